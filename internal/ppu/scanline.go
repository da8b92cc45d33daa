package ppu

// RenderBGScanlineUsingFetcher renders 160 BG pixels for the given LY using the isolated fetcher.
func RenderBGScanlineUsingFetcher(mem VRAMReader, mapBase uint16, tileData8000 bool, scx, scy, ly byte) [160]byte {
	var out [160]byte

	bgY := uint16(ly) + uint16(scy)
	fineY := byte(bgY & 7)
	mapY := (bgY >> 3) & 31

	startX := uint16(scx)
	tileX := (startX >> 3) & 31
	fineX := int(startX & 7)

	tileIndexAddr := mapBase + mapY*32 + tileX

	var q fifo
	f := newBGFetcher(mem, &q)
	f.Configure(mapBase, tileData8000, tileIndexAddr, fineY)
	f.Fetch()
	for i := 0; i < fineX; i++ {
		_, _ = q.Pop()
	}

	for x := 0; x < 160; x++ {
		if q.Len() == 0 {
			tileX = (tileX + 1) & 31
			tileIndexAddr = mapBase + mapY*32 + tileX
			f.Configure(mapBase, tileData8000, tileIndexAddr, fineY)
			f.Fetch()
		}
		px, _ := q.Pop()
		out[x] = px
	}
	return out
}

// RenderWindowScanlineUsingFetcher renders the window layer for a scanline.
// Pixels before wxStart are left as 0 so callers can blend against BG.
func RenderWindowScanlineUsingFetcher(mem VRAMReader, mapBase uint16, tileData8000 bool, wxStart int, winLine byte) [160]byte {
	var out [160]byte
	if wxStart >= 160 {
		return out
	}
	if wxStart < 0 {
		wxStart = 0
	}
	mapY := (uint16(winLine) >> 3) & 31
	fineY := winLine & 7
	tileX := uint16(0)
	tileIndexAddr := mapBase + mapY*32 + tileX
	var q fifo
	f := newBGFetcher(mem, &q)
	f.Configure(mapBase, tileData8000, tileIndexAddr, fineY)
	f.Fetch()
	for x := wxStart; x < 160; x++ {
		if q.Len() == 0 {
			tileX = (tileX + 1) & 31
			tileIndexAddr = mapBase + mapY*32 + tileX
			f.Configure(mapBase, tileData8000, tileIndexAddr, fineY)
			f.Fetch()
		}
		px, _ := q.Pop()
		out[x] = px
	}
	return out
}

// tileAttrs decodes a CGB tile-map attribute byte (stored in VRAM bank 1 at
// the same offset as the tile index in bank 0).
type tileAttrs struct {
	bank     int
	xflip    bool
	yflip    bool
	palette  byte
	priority bool
}

func decodeAttr(a byte) tileAttrs {
	return tileAttrs{
		bank:     int((a >> 3) & 1),
		xflip:    a&0x20 != 0,
		yflip:    a&0x40 != 0,
		priority: a&0x80 != 0,
		palette:  a & 0x07,
	}
}

// RenderBGScanlineCGB renders a BG scanline with full CGB tile attributes:
// per-tile VRAM bank selection, X/Y flip, palette, and BG-to-OBJ priority.
// It returns color indices, the CGB palette each pixel should use, and the
// priority-over-sprites flag.
func RenderBGScanlineCGB(mem BankedVRAMReader, mapBase, attrBase uint16, tileData8000 bool, scx, scy, ly byte) (ci [160]byte, pal [160]byte, pri [160]bool) {
	bgY := uint16(ly) + uint16(scy)
	mapY := (bgY >> 3) & 31
	startX := uint16(scx)
	tileX := (startX >> 3) & 31
	fineX := int(startX & 7)

	x := 0
	pop := fineX
	for x < 160 {
		idxAddr := mapBase + mapY*32 + tileX
		attrAddr := attrBase + mapY*32 + tileX
		tileNum := mem.ReadBank(0, idxAddr)
		attr := decodeAttr(mem.ReadBank(1, attrAddr))
		fineY := byte(bgY & 7)
		if attr.yflip {
			fineY = 7 - fineY
		}
		base := tileDataAddr(tileNum, tileData8000, fineY)
		lo := mem.ReadBank(attr.bank, base)
		hi := mem.ReadBank(attr.bank, base+1)
		var q fifo
		pushTileRow(&q, lo, hi, attr.xflip)
		for pop > 0 {
			_, _ = q.Pop()
			pop--
		}
		for q.Len() > 0 && x < 160 {
			v, _ := q.Pop()
			ci[x] = v
			pal[x] = attr.palette
			pri[x] = attr.priority
			x++
		}
		tileX = (tileX + 1) & 31
	}
	return
}

// RenderWindowScanlineCGB is the window-layer counterpart to
// RenderBGScanlineCGB; pixels left of wxStart are zero/transparent.
func RenderWindowScanlineCGB(mem BankedVRAMReader, mapBase, attrBase uint16, tileData8000 bool, wxStart int, winLine byte) (ci [160]byte, pal [160]byte, pri [160]bool) {
	if wxStart >= 160 {
		return
	}
	if wxStart < 0 {
		wxStart = 0
	}
	mapY := (uint16(winLine) >> 3) & 31
	x := wxStart
	tileX := uint16(0)
	for x < 160 {
		idxAddr := mapBase + mapY*32 + tileX
		attrAddr := attrBase + mapY*32 + tileX
		tileNum := mem.ReadBank(0, idxAddr)
		attr := decodeAttr(mem.ReadBank(1, attrAddr))
		fineY := winLine & 7
		if attr.yflip {
			fineY = 7 - fineY
		}
		base := tileDataAddr(tileNum, tileData8000, fineY)
		lo := mem.ReadBank(attr.bank, base)
		hi := mem.ReadBank(attr.bank, base+1)
		var q fifo
		pushTileRow(&q, lo, hi, attr.xflip)
		for q.Len() > 0 && x < 160 {
			v, _ := q.Pop()
			ci[x] = v
			pal[x] = attr.palette
			pri[x] = attr.priority
			x++
		}
		tileX = (tileX + 1) & 31
	}
	return
}

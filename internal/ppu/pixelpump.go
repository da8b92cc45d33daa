package ppu

import "sort"

// pixelEntry is one pixel carried through the BG or OBJ FIFO: a 2-bit color
// index plus the palette and priority bits the final mux needs. This is the
// {color, palette, prio} tuple a real per-dot pixel FIFO carries, as opposed
// to the bare color index the single-tile scratch fifo in fetcher.go holds.
type pixelEntry struct {
	color    byte
	palette  byte
	priority bool // BG: CGB tile-attribute BG-over-OBJ bit; OBJ: OAM attribute bit7
	valid    bool
}

// pixelFIFO is a ring buffer of up to 16 pixelEntry values: two tile rows'
// worth, the same depth the hardware FIFO needs so a trailing tile can be
// fetched while the leading one is still shifting out.
type pixelFIFO struct {
	buf        [16]pixelEntry
	head, size int
}

func (q *pixelFIFO) Clear()   { q.head, q.size = 0, 0 }
func (q *pixelFIFO) Len() int { return q.size }

func (q *pixelFIFO) Push8(entries [8]pixelEntry) bool {
	if q.size+8 > len(q.buf) {
		return false
	}
	for _, e := range entries {
		q.buf[(q.head+q.size)%len(q.buf)] = e
		q.size++
	}
	return true
}

func (q *pixelFIFO) Pop() (pixelEntry, bool) {
	if q.size == 0 {
		return pixelEntry{}, false
	}
	e := q.buf[q.head]
	q.head = (q.head + 1) % len(q.buf)
	q.size--
	return e, true
}

// MergeFront overlays a decoded sprite's 8 pixels onto the front of the
// queue, the way the hardware's OBJ FIFO merge works: a slot already holding
// an opaque pixel (an earlier, higher-priority sprite) is left untouched.
func (q *pixelFIFO) MergeFront(entries [8]pixelEntry) {
	for i := 0; i < 8 && i < q.size; i++ {
		if !entries[i].valid || entries[i].color == 0 {
			continue
		}
		slot := (q.head + i) % len(q.buf)
		if q.buf[slot].valid && q.buf[slot].color != 0 {
			continue
		}
		q.buf[slot] = entries[i]
	}
}

// drawPipeline is the per-scanline state of the Draw-mode dot pump: two
// persistent FIFOs merged one pixel per dot, a background tile fetcher (two
// dots per step, then a push), and a 6-dot sprite fetcher that suspends the
// background fetch while it runs.
type drawPipeline struct {
	active bool
	lx     int // next screen column to shift out, 0..160
	discard int

	bgFIFO  pixelFIFO
	objFIFO pixelFIFO

	fetchStep int // 0: idle/tile-num pending, 1: tile-num done, 2: data-low done, 3: data-high done
	fetchDot  int
	lo, hi    byte
	tileNum   byte
	attr      tileAttrs

	tileData8000            bool
	mapBase, attrBase       uint16
	winMapBase, winAttrBase uint16
	mapY                    uint16
	fineY                   byte
	tileCol                 uint16

	winEnabled  bool
	usingWindow bool
	wx          byte
	winLine     byte

	sprites           []Sprite
	spriteFetchActive bool
	spriteFetchDot    int
	curSprite         Sprite
}

// beginDraw resets the pixel pipeline for scanline ly and snapshots the
// registers/sprites it will consume, the instant the line enters mode 3.
func (p *PPU) beginDraw(ly byte) {
	p.captureLineRegs(ly)
	lr := p.lineRegs[ly]

	d := &p.draw
	*d = drawPipeline{}
	d.active = true
	d.discard = int(lr.SCX & 7)
	// The line's first tile fetch starts 5 dots late, so a line with SCX=0,
	// no sprites and no window spends 172 dots in Draw.
	d.fetchDot = -5

	d.tileData8000 = (p.lcdc & 0x10) != 0
	d.mapBase = 0x9800
	if p.lcdc&0x08 != 0 {
		d.mapBase = 0x9C00
	}
	// CGB tile attributes live at the same map address as the tile index,
	// just in VRAM bank 1 rather than bank 0 (see ReadBank(1, ...) below).
	d.attrBase = d.mapBase
	d.winMapBase = 0x9800
	if p.lcdc&0x40 != 0 {
		d.winMapBase = 0x9C00
	}
	d.winAttrBase = d.winMapBase
	d.winEnabled = lr.WinOn
	d.wx = lr.WX
	d.winLine = lr.WinLine

	bgY := uint16(ly) + uint16(lr.SCY)
	d.mapY = (bgY >> 3) & 31
	d.fineY = byte(bgY & 7)
	d.tileCol = uint16(lr.SCX) >> 3

	if p.lcdc&0x02 != 0 {
		d.sprites = p.scanOAM(ly)
		sort.SliceStable(d.sprites, func(i, j int) bool { return d.sprites[i].X < d.sprites[j].X })
	}
}

// drawDot advances the pixel pipeline by exactly one dot: it services any
// in-flight sprite fetch, checks whether a new sprite fetch or a window
// switch should start, advances the background fetcher, and shifts out one
// merged pixel when the BG FIFO has one ready.
func (p *PPU) drawDot() {
	d := &p.draw

	if d.spriteFetchActive {
		d.spriteFetchDot++
		if d.spriteFetchDot >= 6 {
			p.finishSpriteFetch()
		}
		return
	}

	if p.lcdc&0x02 != 0 && d.bgFIFO.Len() > 0 && len(d.sprites) > 0 {
		if sp := d.sprites[0]; sp.X-8 <= d.lx {
			d.sprites = d.sprites[1:]
			d.spriteFetchActive = true
			d.spriteFetchDot = 0
			d.curSprite = sp
			return
		}
	}

	if d.winEnabled && !d.usingWindow && d.lx+7 >= int(d.wx) {
		d.usingWindow = true
		d.bgFIFO.Clear()
		d.objFIFO.Clear()
		d.fetchStep = 0
		d.fetchDot = 0
		d.mapY = (uint16(d.winLine) >> 3) & 31
		d.fineY = d.winLine & 7
		d.tileCol = 0
	}

	p.advanceFetch()

	if d.bgFIFO.Len() > 0 {
		bg, _ := d.bgFIFO.Pop()
		obj, _ := d.objFIFO.Pop()
		if d.discard > 0 {
			d.discard--
			return
		}
		p.mergeAndStore(bg, obj, d.lx, p.ly)
		d.lx++
	}
}

// advanceFetch runs one dot of the background fetch pipeline: two dots
// each for tile-number, tile-data-low, and tile-data-high, then the fetched
// row is pushed as soon as the FIFO has room (<=8 pending entries).
func (p *PPU) advanceFetch() {
	d := &p.draw
	if d.fetchStep < 3 {
		d.fetchDot++
		if d.fetchDot < 2 {
			return
		}
		d.fetchDot = 0
		d.fetchStep++

		mapBase, attrBase := d.mapBase, d.attrBase
		if d.usingWindow {
			mapBase, attrBase = d.winMapBase, d.winAttrBase
		}
		col := d.tileCol & 31
		switch d.fetchStep {
		case 1:
			d.tileNum = p.ReadBank(0, mapBase+d.mapY*32+col)
			if p.cgbMode {
				d.attr = decodeAttr(p.ReadBank(1, attrBase+d.mapY*32+col))
			} else {
				d.attr = tileAttrs{}
			}
		case 2:
			d.lo = p.ReadBank(d.attr.bank, d.tileDataAddr())
		case 3:
			d.hi = p.ReadBank(d.attr.bank, d.tileDataAddr()+1)
		}
		return
	}

	if d.bgFIFO.Len() > 8 {
		return
	}
	row := decodeTileRow(d.lo, d.hi, d.attr.xflip)
	var entries [8]pixelEntry
	for i, c := range row {
		entries[i] = pixelEntry{color: c, palette: d.attr.palette, priority: d.attr.priority, valid: true}
	}
	d.bgFIFO.Push8(entries)
	var empty [8]pixelEntry
	for i := range empty {
		empty[i].valid = true
	}
	d.objFIFO.Push8(empty)
	d.tileCol++
	d.fetchStep = 0
}

func (d *drawPipeline) tileDataAddr() uint16 {
	fineY := d.fineY
	if d.attr.yflip {
		fineY = 7 - fineY
	}
	return tileDataAddr(d.tileNum, d.tileData8000, fineY)
}

// finishSpriteFetch decodes the current sprite's tile row and merges it into
// the OBJ FIFO, dropping any leading columns that already scrolled past lx
// (a sprite whose X placed it partly off the left edge).
func (p *PPU) finishSpriteFetch() {
	d := &p.draw
	sp := d.curSprite
	d.spriteFetchActive = false

	tall := p.lcdc&0x04 != 0
	height := 8
	if tall {
		height = 16
	}
	row := int(p.ly) - (sp.Y - 16)
	if sp.Attr&SpriteAttrYFlip != 0 {
		row = height - 1 - row
	}
	tile := sp.Tile
	if tall {
		tile &^= 1
		if row >= 8 {
			tile |= 1
			row -= 8
		}
	}
	bank := 0
	if p.cgbMode && sp.Attr&SpriteAttrBank != 0 {
		bank = 1
	}
	base := uint16(0x8000) + uint16(tile)*16 + uint16(row)*2
	lo := p.ReadBank(bank, base)
	hi := p.ReadBank(bank, base+1)
	xflip := sp.Attr&SpriteAttrXFlip != 0
	colors := decodeTileRow(lo, hi, xflip)

	palette := sp.Attr & 0x07
	if !p.cgbMode {
		palette = 0
		if sp.Attr&SpriteAttrDMGPal != 0 {
			palette = 1
		}
	}
	priority := sp.Attr&SpriteAttrPriority != 0

	var entries [8]pixelEntry
	for i, c := range colors {
		entries[i] = pixelEntry{color: c, palette: palette, priority: priority, valid: c != 0}
	}

	if offset := d.lx - (sp.X - 8); offset > 0 {
		copy(entries[:], entries[offset:])
		for i := 8 - offset; i < 8; i++ {
			entries[i] = pixelEntry{}
		}
	}
	d.objFIFO.MergeFront(entries)
}

// mergeAndStore applies the BG-vs-OBJ priority mux for one pixel and writes
// the resolved color into the frame buffer.
func (p *PPU) mergeAndStore(bg, obj pixelEntry, lx int, ly byte) {
	bgOn := (p.lcdc&0x01) != 0 || p.cgbMode // CGB: BG-enable bit only suppresses BG-over-sprite priority
	var ci, pal byte
	var bgPriority bool
	masterPrio := (p.lcdc & 0x01) != 0
	if bgOn {
		ci = bg.color
		pal = bg.palette
		bgPriority = p.cgbMode && bg.priority && masterPrio
	}
	if obj.valid && obj.color != 0 {
		objBehindBG := obj.priority && ci != 0 && masterPrio
		if !objBehindBG && !(bgPriority && ci != 0) {
			p.frame[int(ly)*160+lx] = p.objColor(obj.palette, obj.color)
			return
		}
	}
	p.frame[int(ly)*160+lx] = p.bgColor(pal, ci)
}

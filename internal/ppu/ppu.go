// Package ppu implements the dot-clocked CGB picture processing unit: the
// Scan/Draw/HBlank/VBlank mode state machine, dual VRAM banks, the two
// 64-byte CGB palette RAMs, and background/window/sprite composition into a
// 160x144 BGR555 frame buffer.
package ppu

// InterruptRequester is a callback signature to request IF bits (0:VBlank, 1:STAT).
type InterruptRequester func(bit int)

// LineRegs snapshots the registers that affect rendering of one scanline,
// captured the moment that line enters Draw (mode 3) so mid-HBlank writes
// from the previous line can't leak into it.
type LineRegs struct {
	SCX, SCY byte
	WX, WY   byte
	WinLine  byte
	WinOn    bool
}

// PPU models VRAM/OAM, LCDC/STAT/scroll/palette regs, CGB banking, and dot timing.
type PPU struct {
	vram [2][0x2000]byte // bank 0/1, 0x8000-0x9FFF
	oam  [0xA0]byte      // 0xFE00-0xFE9F
	vbk  byte            // FF4F bit0: active VRAM bank

	cgbMode bool

	// regs
	lcdc byte // FF40
	stat byte // FF41
	scy  byte // FF42
	scx  byte // FF43
	ly   byte // FF44
	lyc  byte // FF45
	bgp  byte // FF47
	obp0 byte // FF48
	obp1 byte // FF49
	wy   byte // FF4A
	wx   byte // FF4B

	bcps byte // FF68
	ocps byte // FF6A
	bgPal  [64]byte
	objPal [64]byte

	compatColors [4]uint16

	dot int // dots within current line [0..455]

	winEngagedFrame bool
	winLineCounter  int
	lineRegs        [144]LineRegs

	draw drawPipeline

	frame [160 * 144]uint16

	req InterruptRequester
}

func New(req InterruptRequester) *PPU {
	p := &PPU{req: req}
	p.compatColors = GreyscalePalette
	p.recomputeCompatPalettes()
	return p
}

// SetCGBMode switches between CGB tile-attribute rendering and the DMG-compat
// path driven by BGP/OBP0/OBP1 through the installed compat palette.
func (p *PPU) SetCGBMode(on bool) { p.cgbMode = on }

// Read implements VRAMReader over the currently banked-in VRAM half, the way
// the CPU sees it.
func (p *PPU) Read(addr uint16) byte { return p.ReadBank(int(p.vbk&1), addr) }

// ReadBank implements BankedVRAMReader, reading VRAM regardless of the
// currently selected bank.
func (p *PPU) ReadBank(bank int, addr uint16) byte {
	if addr < 0x8000 || addr > 0x9FFF {
		return 0xFF
	}
	return p.vram[bank&1][addr-0x8000]
}

// CPURead returns bytes for VRAM, OAM, and PPU IO registers. Returns 0xFF for others.
func (p *PPU) CPURead(addr uint16) byte {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		if (p.stat & 0x03) == 3 {
			return 0xFF
		}
		return p.vram[p.vbk&1][addr-0x8000]
	case addr >= 0xFE00 && addr <= 0xFE9F:
		m := p.stat & 0x03
		if m == 2 || m == 3 {
			return 0xFF
		}
		return p.oam[addr-0xFE00]
	case addr == 0xFF40:
		return p.lcdc
	case addr == 0xFF41:
		return 0x80 | (p.stat & 0x7F)
	case addr == 0xFF42:
		return p.scy
	case addr == 0xFF43:
		return p.scx
	case addr == 0xFF44:
		return p.ly
	case addr == 0xFF45:
		return p.lyc
	case addr == 0xFF47:
		return p.bgp
	case addr == 0xFF48:
		return p.obp0
	case addr == 0xFF49:
		return p.obp1
	case addr == 0xFF4A:
		return p.wy
	case addr == 0xFF4B:
		return p.wx
	case addr == 0xFF4F:
		return 0xFE | (p.vbk & 1)
	case addr == 0xFF68:
		return p.bcps
	case addr == 0xFF69:
		return p.bgPal[p.bcps&0x3F]
	case addr == 0xFF6A:
		return p.ocps
	case addr == 0xFF6B:
		return p.objPal[p.ocps&0x3F]
	default:
		return 0xFF
	}
}

// CPUWrite handles writes to VRAM, OAM, and PPU IO regs.
func (p *PPU) CPUWrite(addr uint16, value byte) {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		if (p.stat & 0x03) == 3 {
			return
		}
		p.vram[p.vbk&1][addr-0x8000] = value
	case addr >= 0xFE00 && addr <= 0xFE9F:
		m := p.stat & 0x03
		if m == 2 || m == 3 {
			return
		}
		p.oam[addr-0xFE00] = value
	case addr == 0xFF40:
		prev := p.lcdc
		p.lcdc = value
		if (p.lcdc&0x80) == 0 && (prev&0x80) != 0 {
			p.ly = 0
			p.dot = 0
			p.setMode(0)
			p.updateLYC()
		} else if (p.lcdc&0x80) != 0 && (prev&0x80) == 0 {
			p.ly = 0
			p.dot = 0
			p.setMode(2)
			p.updateLYC()
		}
	case addr == 0xFF41:
		p.stat = (p.stat & 0x07) | (value & 0x78)
	case addr == 0xFF42:
		p.scy = value
	case addr == 0xFF43:
		p.scx = value
	case addr == 0xFF44:
		p.ly = 0
		p.dot = 0
		p.updateLYC()
		if (p.lcdc & 0x80) != 0 {
			p.setMode(2)
		}
	case addr == 0xFF45:
		p.lyc = value
		p.updateLYC()
	case addr == 0xFF47:
		p.bgp = value
		if !p.cgbMode {
			p.writeCompatPalette(p.bgPal[:8], value)
		}
	case addr == 0xFF48:
		p.obp0 = value
		if !p.cgbMode {
			p.writeCompatPalette(p.objPal[:8], value)
		}
	case addr == 0xFF49:
		p.obp1 = value
		if !p.cgbMode {
			p.writeCompatPalette(p.objPal[8:16], value)
		}
	case addr == 0xFF4A:
		p.wy = value
	case addr == 0xFF4B:
		p.wx = value
	case addr == 0xFF4F:
		p.vbk = value & 1
	case addr == 0xFF68:
		p.bcps = value &^ 0x40
	case addr == 0xFF69:
		p.bgPal[p.bcps&0x3F] = value
		if p.bcps&0x80 != 0 {
			idx := (p.bcps + 1) & 0x3F
			p.bcps = 0x80 | idx
		}
	case addr == 0xFF6A:
		p.ocps = value &^ 0x40
	case addr == 0xFF6B:
		p.objPal[p.ocps&0x3F] = value
		if p.ocps&0x80 != 0 {
			idx := (p.ocps + 1) & 0x3F
			p.ocps = 0x80 | idx
		}
	}
}

// WriteOAMUnlocked stores a byte directly into OAM without the CPU's
// mode-2/mode-3 access lock. Real OAM DMA hardware drives the bus directly
// and isn't subject to that lock the way a CPU-issued write is; this is the
// bypass the DMA engine uses so an in-flight transfer can't lose bytes to an
// overlapping OAM scan or Draw.
func (p *PPU) WriteOAMUnlocked(index int, value byte) {
	if index < 0 || index >= len(p.oam) {
		return
	}
	p.oam[index] = value
}

// Tick advances PPU state by the given number of dots. During Draw (mode 3)
// on a visible line, each dot drives the pixel-FIFO pump in drawDot rather
// than composing the scanline in one shot; Draw's length is therefore
// variable, ending the moment the 160th pixel has been shifted out (plus
// whatever an overlapping sprite or window-switch fetch cost that line),
// exactly as it does on hardware.
func (p *PPU) Tick(cycles int) {
	if cycles <= 0 {
		return
	}
	for i := 0; i < cycles; i++ {
		if (p.lcdc & 0x80) == 0 {
			continue
		}
		p.dot++

		if p.ly < 144 {
			switch {
			case p.dot < 80:
				p.setMode(2)
			case p.dot == 80:
				p.beginDraw(p.ly)
				p.setMode(3)
			case p.draw.active:
				p.setMode(3)
				p.drawDot()
				if p.draw.lx >= 160 {
					p.draw.active = false
				}
			default:
				p.setMode(0)
			}
		}

		if p.dot >= 456 {
			p.dot = 0
			p.ly++
			if p.ly == 144 {
				if p.req != nil {
					p.req(0)
				}
				if (p.stat & (1 << 4)) != 0 {
					if p.req != nil {
						p.req(1)
					}
				}
			} else if p.ly > 153 {
				p.ly = 0
				p.winEngagedFrame = false
				p.winLineCounter = -1
			}
			p.updateLYC()
			if p.ly >= 144 {
				p.setMode(1)
			} else {
				p.setMode(2)
			}
		}
	}
}

func (p *PPU) setMode(mode byte) {
	prev := p.stat & 0x03
	if prev == mode {
		return
	}
	p.stat = (p.stat &^ 0x03) | (mode & 0x03)
	switch mode {
	case 0:
		if (p.stat & (1 << 3)) != 0 {
			if p.req != nil {
				p.req(1)
			}
		}
	case 2:
		if (p.stat & (1 << 5)) != 0 {
			if p.req != nil {
				p.req(1)
			}
		}
	}
}

func (p *PPU) updateLYC() {
	if p.ly == p.lyc {
		p.stat |= 1 << 2
		if (p.stat & (1 << 6)) != 0 {
			if p.req != nil {
				p.req(1)
			}
		}
	} else {
		p.stat &^= 1 << 2
	}
}

// captureLineRegs snapshots scroll/window state and advances the internal
// window-line counter the instant a scanline enters Draw.
func (p *PPU) captureLineRegs(ly byte) {
	winOn := (p.lcdc&0x20) != 0 && (p.lcdc&0x01) != 0 && p.wy <= ly && p.wx <= 166
	if winOn {
		if !p.winEngagedFrame {
			p.winLineCounter = 0
			p.winEngagedFrame = true
		} else {
			p.winLineCounter++
		}
	}
	winLine := byte(0)
	if winOn && p.winLineCounter >= 0 {
		winLine = byte(p.winLineCounter)
	}
	p.lineRegs[ly] = LineRegs{SCX: p.scx, SCY: p.scy, WX: p.wx, WY: p.wy, WinLine: winLine, WinOn: winOn}
}

// LineRegs returns the registers captured for scanline ly at the start of its Draw mode.
func (p *PPU) LineRegs(ly int) LineRegs {
	if ly < 0 || ly >= 144 {
		return LineRegs{}
	}
	return p.lineRegs[ly]
}

func (p *PPU) bgColor(pal, ci byte) uint16 {
	off := int(pal&7)*8 + int(ci&3)*2
	return uint16(p.bgPal[off]) | uint16(p.bgPal[off+1])<<8
}

func (p *PPU) objColor(pal, ci byte) uint16 {
	off := int(pal&7)*8 + int(ci&3)*2
	return uint16(p.objPal[off]) | uint16(p.objPal[off+1])<<8
}

// scanOAM selects up to 10 sprites visible on scanline ly, in OAM order.
func (p *PPU) scanOAM(ly byte) []Sprite {
	tall := p.lcdc&0x04 != 0
	height := 8
	if tall {
		height = 16
	}
	var out []Sprite
	for i := 0; i < 40 && len(out) < 10; i++ {
		base := i * 4
		y := int(p.oam[base+0])
		x := int(p.oam[base+1])
		tile := p.oam[base+2]
		attr := p.oam[base+3]
		row := int(ly) - (y - 16)
		if row < 0 || row >= height {
			continue
		}
		out = append(out, Sprite{X: x, Y: y, Tile: tile, Attr: attr, OAMIndex: i})
	}
	return out
}

// Framebuffer returns the most recently composed 160x144 BGR555 frame.
func (p *PPU) Framebuffer() []uint16 { return p.frame[:] }

// Expose registers for renderer/debug convenience.
func (p *PPU) BGP() byte  { return p.bgp }
func (p *PPU) OBP0() byte { return p.obp0 }
func (p *PPU) OBP1() byte { return p.obp1 }
func (p *PPU) LCDC() byte { return p.lcdc }
func (p *PPU) SCY() byte  { return p.scy }
func (p *PPU) SCX() byte  { return p.scx }
func (p *PPU) WY() byte   { return p.wy }
func (p *PPU) WX() byte   { return p.wx }

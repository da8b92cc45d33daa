package ppu

// Monochrome-derived BGR555 palettes used when a cartridge has no CGB flag
// (header byte 0x0143 not 0x80/0xC0). Index 0 is the lightest shade, index 3
// the darkest, matching the 2-bit shade encoding packed into BGP/OBP0/OBP1.
// The named sets beyond Greyscale mirror the real hardware's built-in
// DMG-compatibility palette bank, picked automatically by title/licensee.
var (
	GreyscalePalette = [4]uint16{rgb15(255, 255, 255), rgb15(170, 170, 170), rgb15(85, 85, 85), rgb15(0, 0, 0)}
	GreenPalette     = [4]uint16{rgb15(224, 248, 208), rgb15(136, 192, 112), rgb15(52, 104, 86), rgb15(8, 24, 32)}
	SepiaPalette     = [4]uint16{rgb15(255, 246, 211), rgb15(206, 159, 107), rgb15(140, 91, 58), rgb15(59, 35, 27)}
	BluePalette      = [4]uint16{rgb15(224, 248, 255), rgb15(144, 200, 248), rgb15(64, 112, 200), rgb15(8, 24, 72)}
	RedPalette       = [4]uint16{rgb15(255, 240, 224), rgb15(248, 160, 112), rgb15(192, 72, 56), rgb15(56, 16, 16)}
	PastelPalette    = [4]uint16{rgb15(255, 239, 255), rgb15(247, 173, 198), rgb15(149, 137, 255), rgb15(49, 33, 99)}
)

// CompatPalettes is the curated, ordered set a front-end cycles through;
// autoCompatPaletteFromHeader in internal/emu returns an index into it.
var CompatPalettes = []struct {
	Name   string
	Colors [4]uint16
}{
	{"Green", GreenPalette},
	{"Sepia", SepiaPalette},
	{"Blue", BluePalette},
	{"Red", RedPalette},
	{"Pastel", PastelPalette},
	{"Greyscale", GreyscalePalette},
}

func rgb15(r, g, b byte) uint16 {
	r5 := uint16(r) >> 3
	g5 := uint16(g) >> 3
	b5 := uint16(b) >> 3
	return r5 | g5<<5 | b5<<10
}

// SetCompatPalette installs the four DMG-compat shade colors used to
// translate BGP/OBP0/OBP1 writes into CGB-style palette-RAM entries when the
// cartridge is not CGB-aware. Defaults to GreyscalePalette.
func (p *PPU) SetCompatPalette(colors [4]uint16) {
	p.compatColors = colors
	p.recomputeCompatPalettes()
}

func (p *PPU) recomputeCompatPalettes() {
	p.writeCompatPalette(p.bgPal[:8], p.bgp)
	p.writeCompatPalette(p.objPal[:8], p.obp0)
	p.writeCompatPalette(p.objPal[8:16], p.obp1)
}

// writeCompatPalette packs the four shades named by an 8-bit BGP/OBPn value
// into a palette-RAM slot, exactly as BCPD/OCPD would store them.
func (p *PPU) writeCompatPalette(slot []byte, reg byte) {
	for ci := 0; ci < 4; ci++ {
		shade := (reg >> (uint(ci) * 2)) & 0x03
		color := p.compatColors[shade]
		slot[ci*2] = byte(color)
		slot[ci*2+1] = byte(color >> 8)
	}
}

// Package emu wires CPU, MemoryBus, Timer, PPU, and DMA into the
// frame-driven scheduler a front-end drives one StepFrame at a time.
package emu

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gbcolor/cgbemu/internal/bus"
	"github.com/gbcolor/cgbemu/internal/cart"
	"github.com/gbcolor/cgbemu/internal/cpu"
	"github.com/gbcolor/cgbemu/internal/joypad"
	"github.com/gbcolor/cgbemu/internal/ppu"
)

// dotsPerFrame is 154 scanlines * 456 dots: one full CGB frame.
const dotsPerFrame = 70224

// Buttons is the instantaneous pressed/released state of all eight inputs.
type Buttons struct {
	A, B, Start, Select   bool
	Up, Down, Left, Right bool
}

func (b Buttons) mask() byte {
	var m byte
	if b.Right {
		m |= joypad.Right
	}
	if b.Left {
		m |= joypad.Left
	}
	if b.Up {
		m |= joypad.Up
	}
	if b.Down {
		m |= joypad.Down
	}
	if b.A {
		m |= joypad.A
	}
	if b.B {
		m |= joypad.B
	}
	if b.Select {
		m |= joypad.Select
	}
	if b.Start {
		m |= joypad.Start
	}
	return m
}

// Machine owns the CPU/Bus pair for one loaded cartridge and drives the
// frame scheduler: cpu.Step returns a dot count, which is fanned out to
// Timer/PPU/DMA via Bus.Tick before the next fetch.
type Machine struct {
	cfg Config

	bus *bus.Bus
	cpu *cpu.CPU

	romPath  string
	romTitle string
	cgbCart  bool // cartridge declares CGB support (header byte 0x0143)
	useCGBBG bool // front-end opted into CGB-style rendering for a non-CGB cart

	compatIdx int

	dotsAcc   int
	fb        []byte // RGBA 160x144*4, refreshed at the end of each rendered frame
	lastFrame time.Time
}

// New constructs a Machine with no cartridge loaded yet.
func New(cfg Config) *Machine {
	return &Machine{cfg: cfg, fb: make([]byte, 160*144*4)}
}

// LoadCartridge builds a fresh Bus/CPU pair around rom and resets to a
// typical post-boot register state (no boot ROM is executed).
func (m *Machine) LoadCartridge(rom []byte) error {
	h, err := cart.ParseHeader(rom)
	if err != nil {
		return fmt.Errorf("parse header: %w", err)
	}
	b := bus.NewWithCartridge(cart.NewCartridge(rom))
	c := cpu.New(b)

	m.bus = b
	m.cpu = c
	m.romTitle = h.Title
	m.cgbCart = h.CGBFlag == 0x80 || h.CGBFlag == 0xC0
	m.useCGBBG = m.cgbCart
	m.compatIdx = autoCompatPaletteFromHeader(h)

	b.PPU().SetCGBMode(m.useCGBBG)
	if !m.cgbCart {
		b.PPU().SetCompatPalette(ppu.CompatPalettes[m.compatIdx].Colors)
	}
	if m.useCGBBG {
		m.ResetCGBPostBoot(m.cgbCart)
	} else {
		m.ResetPostBoot()
	}
	return nil
}

// LoadROMFromFile reads rom from disk and loads it, recording the path for
// ROMPath()/front-end bookkeeping.
func (m *Machine) LoadROMFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := m.LoadCartridge(data); err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err == nil {
		m.romPath = abs
	} else {
		m.romPath = path
	}
	return nil
}

// ResetPostBoot sets CPU registers to the documented DMG post-boot-ROM state.
func (m *Machine) ResetPostBoot() {
	if m.cpu == nil {
		return
	}
	m.cpu.ResetNoBoot()
	m.cpu.SetPC(0x0100)
}

// ResetCGBPostBoot sets registers to the post-boot state and PC to 0x0100.
// With cgb true it loads the CGB-mode values (AF=1180, BC=0000, DE=FF56,
// HL=000D); with cgb false it keeps the DMG values of ResetNoBoot (A=0x01).
func (m *Machine) ResetCGBPostBoot(cgb bool) {
	if m.cpu == nil {
		return
	}
	m.cpu.ResetNoBoot()
	if cgb {
		m.cpu.A, m.cpu.F = 0x11, 0x80
		m.cpu.B, m.cpu.C = 0x00, 0x00
		m.cpu.D, m.cpu.E = 0xFF, 0x56
		m.cpu.H, m.cpu.L = 0x00, 0x0D
	}
	m.cpu.SetPC(0x0100)
}

// SetSerialWriter forwards serial-port bytes (FF01/FF02) to w.
func (m *Machine) SetSerialWriter(w io.Writer) {
	if m.bus != nil {
		m.bus.SetSerialWriter(w)
	}
}

// SetButtons replaces the pressed-button state for the next frame(s).
func (m *Machine) SetButtons(b Buttons) {
	if m.bus != nil {
		m.bus.SetJoypadState(b.mask())
	}
}

// WantCGBColors reports whether CGB-attribute rendering is currently active
// (always true for CGB-flagged cartridges; toggle-able for DMG carts).
func (m *Machine) WantCGBColors() bool { return m.useCGBBG }

// UseCGBBG reports the same toggle as WantCGBColors from the front-end's
// perspective (kept distinct since a future per-layer toggle could diverge).
func (m *Machine) UseCGBBG() bool { return m.useCGBBG }

// SetUseCGBBG switches a DMG cartridge between its compat palette and full
// CGB-style background rendering; a no-op for CGB-flagged cartridges, which
// are always rendered in CGB mode.
func (m *Machine) SetUseCGBBG(on bool) {
	if m.cgbCart || m.bus == nil {
		return
	}
	m.useCGBBG = on
	m.bus.PPU().SetCGBMode(on)
}

// IsCGBCompat reports whether this cartridge is running through the
// DMG-compat rendering path (no native CGB support), which is the only case
// where a compat palette applies.
func (m *Machine) IsCGBCompat() bool { return m.bus != nil && !m.cgbCart }

// CurrentCompatPalette returns the active compat palette index.
func (m *Machine) CurrentCompatPalette() int { return m.compatIdx }

// CompatPaletteName returns the display name for a compat palette index.
func (m *Machine) CompatPaletteName(idx int) string {
	if idx < 0 || idx >= len(ppu.CompatPalettes) {
		return "?"
	}
	return ppu.CompatPalettes[idx].Name
}

// SetCompatPalette installs a compat palette by index.
func (m *Machine) SetCompatPalette(idx int) {
	if idx < 0 || idx >= len(ppu.CompatPalettes) || m.bus == nil {
		return
	}
	m.compatIdx = idx
	m.bus.PPU().SetCompatPalette(ppu.CompatPalettes[idx].Colors)
}

// CycleCompatPalette advances (or, with a negative delta, retreats) the
// active compat palette by one and re-applies it.
func (m *Machine) CycleCompatPalette(delta int) {
	n := len(ppu.CompatPalettes)
	idx := ((m.compatIdx+delta)%n + n) % n
	m.SetCompatPalette(idx)
}

// ROMPath returns the absolute path LoadROMFromFile was given, or "".
func (m *Machine) ROMPath() string { return m.romPath }

// ROMTitle returns the cartridge header title.
func (m *Machine) ROMTitle() string { return m.romTitle }

// StepFrame runs the CPU/Timer/PPU/DMA pipeline for exactly one frame
// (70,224 dots) and refreshes the RGBA framebuffer.
func (m *Machine) StepFrame() {
	m.runFrame()
	m.renderRGBA()
	if m.cfg.LimitFPS {
		m.throttle()
	}
}

// StepFrameNoRender runs one frame without converting the PPU's BGR555
// output into the RGBA framebuffer; used by headless conformance tests that
// only care about serial output.
func (m *Machine) StepFrameNoRender() {
	m.runFrame()
}

func (m *Machine) runFrame() {
	if m.cpu == nil {
		return
	}
	for m.dotsAcc < dotsPerFrame {
		m.dotsAcc += m.cpu.Step()
	}
	m.dotsAcc -= dotsPerFrame
}

func (m *Machine) throttle() {
	const frameTime = time.Second / 60
	if !m.lastFrame.IsZero() {
		if d := frameTime - time.Since(m.lastFrame); d > 0 {
			time.Sleep(d)
		}
	}
	m.lastFrame = time.Now()
}

// renderRGBA converts the PPU's BGR555 framebuffer into the RGBA byte
// buffer a host renderer (or PNG encoder) expects.
func (m *Machine) renderRGBA() {
	if m.bus == nil {
		return
	}
	src := m.bus.PPU().Framebuffer()
	for i, c := range src {
		r := byte(c&0x1F) << 3
		g := byte((c>>5)&0x1F) << 3
		b := byte((c>>10)&0x1F) << 3
		o := i * 4
		m.fb[o+0] = r
		m.fb[o+1] = g
		m.fb[o+2] = b
		m.fb[o+3] = 0xFF
	}
}

// Framebuffer returns the last rendered frame as packed RGBA8888, 160x144.
func (m *Machine) Framebuffer() []byte { return m.fb }

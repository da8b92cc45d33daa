// Package bus wires the CPU-visible 16-bit address space to the cartridge,
// banked work RAM, HRAM, and the PPU/Timer/DMA/Joypad subsystems.
package bus

import (
	"io"

	"github.com/gbcolor/cgbemu/internal/cart"
	"github.com/gbcolor/cgbemu/internal/dma"
	"github.com/gbcolor/cgbemu/internal/joypad"
	"github.com/gbcolor/cgbemu/internal/ppu"
	"github.com/gbcolor/cgbemu/internal/timer"
)

// Bus dispatches CPU reads/writes to cartridge, WRAM, HRAM, and the owned subsystems.
type Bus struct {
	cart cart.Cartridge

	// Work RAM: bank 0 fixed at 0xC000-0xCFFF, banks 1-7 switchable at
	// 0xD000-0xDFFF via SVBK (bank value 0 behaves as bank 1).
	wram    [8][0x1000]byte
	wramBank byte // SVBK low 3 bits, 0 treated as 1

	hram [0x7F]byte // 0xFF80-0xFFFE

	ppu    *ppu.PPU
	timer  *timer.Timer
	dma    *dma.DMA
	joypad *joypad.Joypad

	ie    byte // IE at 0xFFFF
	ifReg byte // IF at 0xFF0F, lower 5 bits used

	sb byte      // FF01 serial data
	sc byte      // FF02 serial control
	sw io.Writer // optional sink for serial output
}

// New constructs a Bus around rom, with the cartridge type (ROM-only or an
// MBC) chosen from its header by cart.NewCartridge.
func New(rom []byte) *Bus {
	return NewWithCartridge(cart.NewCartridge(rom))
}

// NewWithCartridge wires a provided cartridge implementation.
func NewWithCartridge(c cart.Cartridge) *Bus {
	b := &Bus{cart: c, wramBank: 1}
	b.ppu = ppu.New(func(bit int) { b.ifReg |= 1 << bit })
	b.timer = timer.New(func() { b.ifReg |= 1 << 2 })
	b.joypad = joypad.New(func() { b.ifReg |= 1 << 4 })
	b.dma = dma.New(b.Read, b.ppu.WriteOAMUnlocked)
	return b
}

// PPU returns the internal PPU for rendering and front-end access.
func (b *Bus) PPU() *ppu.PPU { return b.ppu }

// Cart returns the underlying cartridge.
func (b *Bus) Cart() cart.Cartridge { return b.cart }

func (b *Bus) wramBankIndex() int {
	bank := b.wramBank & 0x07
	if bank == 0 {
		bank = 1
	}
	return int(bank)
}

func (b *Bus) Read(addr uint16) byte {
	switch {
	case addr < 0x8000:
		return b.cart.Read(addr)
	case addr >= 0x8000 && addr <= 0x9FFF:
		return b.ppu.CPURead(addr)
	case addr >= 0xA000 && addr <= 0xBFFF:
		return b.cart.Read(addr)
	case addr >= 0xC000 && addr <= 0xCFFF:
		return b.wram[0][addr-0xC000]
	case addr >= 0xD000 && addr <= 0xDFFF:
		return b.wram[b.wramBankIndex()][addr-0xD000]
	case addr >= 0xE000 && addr <= 0xFDFF:
		mirror := addr - 0x2000
		if mirror <= 0xCFFF {
			return b.wram[0][mirror-0xC000]
		}
		return b.wram[b.wramBankIndex()][mirror-0xD000]
	case addr >= 0xFE00 && addr <= 0xFE9F:
		if b.dma.Active() {
			return 0xFF
		}
		return b.ppu.CPURead(addr)
	case addr >= 0xFF80 && addr <= 0xFFFE:
		return b.hram[addr-0xFF80]
	case addr == 0xFF00:
		return b.joypad.Read()
	case addr == 0xFF01:
		return b.sb
	case addr == 0xFF02:
		return 0x7E | (b.sc & 0x81)
	case addr == 0xFF04:
		return b.timer.ReadDIV()
	case addr == 0xFF05:
		return b.timer.ReadTIMA()
	case addr == 0xFF06:
		return b.timer.ReadTMA()
	case addr == 0xFF07:
		return b.timer.ReadTAC()
	case addr == 0xFF0F:
		return 0xE0 | (b.ifReg & 0x1F)
	case addr == 0xFF46:
		return b.dma.Read()
	case addr == 0xFF70:
		return 0xF8 | (b.wramBank & 0x07)
	case addr == 0xFF40, addr == 0xFF41, addr == 0xFF42, addr == 0xFF43,
		addr == 0xFF44, addr == 0xFF45,
		addr == 0xFF47, addr == 0xFF48, addr == 0xFF49,
		addr == 0xFF4A, addr == 0xFF4B, addr == 0xFF4F,
		addr == 0xFF68, addr == 0xFF69, addr == 0xFF6A, addr == 0xFF6B:
		return b.ppu.CPURead(addr)
	case addr == 0xFFFF:
		return b.ie
	}
	return 0xFF
}

func (b *Bus) Write(addr uint16, value byte) {
	switch {
	case addr < 0x8000:
		b.cart.Write(addr, value)
	case addr >= 0x8000 && addr <= 0x9FFF:
		b.ppu.CPUWrite(addr, value)
	case addr >= 0xA000 && addr <= 0xBFFF:
		b.cart.Write(addr, value)
	case addr >= 0xC000 && addr <= 0xCFFF:
		b.wram[0][addr-0xC000] = value
	case addr >= 0xD000 && addr <= 0xDFFF:
		b.wram[b.wramBankIndex()][addr-0xD000] = value
	case addr >= 0xE000 && addr <= 0xFDFF:
		mirror := addr - 0x2000
		if mirror <= 0xCFFF {
			b.wram[0][mirror-0xC000] = value
		} else {
			b.wram[b.wramBankIndex()][mirror-0xD000] = value
		}
	case addr >= 0xFE00 && addr <= 0xFE9F:
		if b.dma.Active() {
			return
		}
		b.ppu.CPUWrite(addr, value)
	case addr >= 0xFF80 && addr <= 0xFFFE:
		b.hram[addr-0xFF80] = value
	case addr == 0xFF00:
		b.joypad.Write(value)
	case addr == 0xFF01:
		b.sb = value
	case addr == 0xFF02:
		b.sc = value & 0x81
		if (b.sc & 0x80) != 0 {
			if b.sw != nil {
				_, _ = b.sw.Write([]byte{b.sb})
			}
			b.ifReg |= 1 << 3
			b.sc &^= 0x80
		}
	case addr == 0xFF04:
		b.timer.WriteDIV()
	case addr == 0xFF05:
		b.timer.WriteTIMA(value)
	case addr == 0xFF06:
		b.timer.WriteTMA(value)
	case addr == 0xFF07:
		b.timer.WriteTAC(value)
	case addr == 0xFF0F:
		b.ifReg = value & 0x1F
	case addr == 0xFF46:
		b.dma.Write(value)
	case addr == 0xFF70:
		b.wramBank = value & 0x07
	case addr == 0xFF40, addr == 0xFF41, addr == 0xFF42, addr == 0xFF43,
		addr == 0xFF44, addr == 0xFF45,
		addr == 0xFF47, addr == 0xFF48, addr == 0xFF49,
		addr == 0xFF4A, addr == 0xFF4B, addr == 0xFF4F,
		addr == 0xFF68, addr == 0xFF69, addr == 0xFF6A, addr == 0xFF6B:
		b.ppu.CPUWrite(addr, value)
	case addr == 0xFFFF:
		b.ie = value
	}
}

// SetJoypadState replaces the pressed-button bitmask (see internal/joypad constants).
func (b *Bus) SetJoypadState(mask byte) { b.joypad.SetState(mask) }

// SetSerialWriter sets a sink that receives bytes written via the serial port.
func (b *Bus) SetSerialWriter(w io.Writer) { b.sw = w }

// Tick advances Timer, PPU, and DMA by the given number of CPU dots (T-states).
func (b *Bus) Tick(cycles int) {
	if cycles <= 0 {
		return
	}
	b.timer.Update(cycles)
	b.ppu.Tick(cycles)
	b.dma.Update(cycles)
}

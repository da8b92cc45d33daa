// Package joypad implements the JOYP register (FF00): button state is
// exposed to the CPU through whichever of the two selector nibbles (P14
// d-pad, P15 buttons) is driven low, active-low, and a 1->0 transition on
// any of the four visible bits raises the Joypad interrupt (IF bit 4).
package joypad

// Button bitmasks for SetState. A set bit means "pressed".
const (
	Right  = 1 << 0
	Left   = 1 << 1
	Up     = 1 << 2
	Down   = 1 << 3
	A      = 1 << 4
	B      = 1 << 5
	Select = 1 << 6
	Start  = 1 << 7
)

// InterruptRequester raises IF bit 4 (Joypad).
type InterruptRequester func()

type Joypad struct {
	selector byte // bits 5-4 of FF00 as last written
	buttons  byte // bitmask of pressed buttons, see constants above
	lower4   byte // last computed active-low lower nibble, for edge detection

	req InterruptRequester
}

func New(req InterruptRequester) *Joypad {
	return &Joypad{selector: 0x30, lower4: 0x0F, req: req}
}

// Read returns the full FF00 byte: bits 7-6 read as 1, bits 5-4 echo the
// selector, bits 3-0 are the active-low state of whichever group is selected.
func (j *Joypad) Read() byte {
	return 0xC0 | (j.selector & 0x30) | j.lowerNibble()
}

// Write stores the selector nibble; the low nibble is read-only from the CPU's
// perspective and is always recomputed from button state.
func (j *Joypad) Write(v byte) {
	j.selector = v & 0x30
	j.recompute()
}

// SetState replaces the pressed-button bitmask and re-evaluates the
// interrupt edge against the currently selected group(s).
func (j *Joypad) SetState(mask byte) {
	j.buttons = mask
	j.recompute()
}

func (j *Joypad) lowerNibble() byte {
	n := byte(0x0F)
	if (j.selector & 0x10) == 0 { // P14 low selects D-Pad
		if j.buttons&Right != 0 {
			n &^= 0x01
		}
		if j.buttons&Left != 0 {
			n &^= 0x02
		}
		if j.buttons&Up != 0 {
			n &^= 0x04
		}
		if j.buttons&Down != 0 {
			n &^= 0x08
		}
	}
	if (j.selector & 0x20) == 0 { // P15 low selects Buttons
		if j.buttons&A != 0 {
			n &^= 0x01
		}
		if j.buttons&B != 0 {
			n &^= 0x02
		}
		if j.buttons&Select != 0 {
			n &^= 0x04
		}
		if j.buttons&Start != 0 {
			n &^= 0x08
		}
	}
	return n
}

func (j *Joypad) recompute() {
	newLower := j.lowerNibble()
	falling := j.lower4 &^ newLower
	if falling != 0 && j.req != nil {
		j.req()
	}
	j.lower4 = newLower
}

package memory

import (
	"github.com/mbianchi/go-advance/advance/addr"
)

// SetKey updates the keypad state. The host passes active-high bits
// (addr.KeyA and friends); KEYINPUT keeps the hardware's active-low
// convention. Each change re-evaluates the KEYCNT match condition.
func (b *Bus) SetKey(mask uint16, pressed bool) {
	mask &= 0x03FF
	if pressed {
		b.keys &^= mask
	} else {
		b.keys |= mask
	}
	b.checkKeypadIRQ()
}

// Keys returns the current KEYINPUT value.
func (b *Bus) Keys() uint16 {
	return b.keys
}

func (b *Bus) checkKeypadIRQ() {
	keycnt := b.ioRaw16(addr.KEYCNT)
	if keycnt&0x4000 == 0 {
		return
	}

	selected := keycnt & 0x03FF
	pressed := ^b.keys & 0x03FF

	if keycnt&0x8000 != 0 {
		// AND mode: every selected key must be down.
		if selected != 0 && pressed&selected == selected {
			b.RaiseIRQ(addr.KeypadInterrupt)
		}
		return
	}
	// OR mode: any selected key down matches.
	if pressed&selected != 0 {
		b.RaiseIRQ(addr.KeypadInterrupt)
	}
}

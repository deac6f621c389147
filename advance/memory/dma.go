package memory

import (
	"github.com/mbianchi/go-advance/advance/addr"
)

// DMA start timings.
const (
	dmaImmediate = 0
	dmaVBlank    = 1
	dmaHBlank    = 2
	dmaSpecial   = 3
)

// DMAChannel is one of the four block transfer engines. Channel 0 has
// the highest priority. Source, destination and count are latched into
// internal copies on the enable rising edge.
type DMAChannel struct {
	id      int
	source  uint32
	dest    uint32
	count   uint32
	control uint16

	internalSource uint32
	internalDest   uint32
	internalCount  uint32
	runnable       bool
}

func (ch *DMAChannel) sourceMask() uint32 {
	if ch.id == 0 {
		return 0x07FFFFFF
	}
	return 0x0FFFFFFF
}

func (ch *DMAChannel) destMask() uint32 {
	if ch.id == 3 {
		return 0x0FFFFFFF
	}
	return 0x07FFFFFF
}

func (ch *DMAChannel) countMask() uint32 {
	if ch.id == 3 {
		return 0xFFFF
	}
	return 0x3FFF
}

// Control returns the raw control register, including the live enable
// bit that clears when a non-repeating transfer completes.
func (ch *DMAChannel) Control() uint16 { return ch.control }

func (ch *DMAChannel) destControl() uint32   { return uint32(ch.control>>5) & 0x3 }
func (ch *DMAChannel) sourceControl() uint32 { return uint32(ch.control>>7) & 0x3 }
func (ch *DMAChannel) repeat() bool          { return ch.control&0x0200 != 0 }
func (ch *DMAChannel) word32() bool          { return ch.control&0x0400 != 0 }
func (ch *DMAChannel) timing() int           { return int(ch.control>>12) & 0x3 }
func (ch *DMAChannel) irqEnabled() bool      { return ch.control&0x4000 != 0 }

// Enabled reports the control enable bit.
func (ch *DMAChannel) Enabled() bool { return ch.control&0x8000 != 0 }

// soundMode reports direct-sound FIFO feeding: channels 1 and 2 with
// special start timing.
func (ch *DMAChannel) soundMode() bool {
	return (ch.id == 1 || ch.id == 2) && ch.timing() == dmaSpecial
}

func (ch *DMAChannel) WriteSourceLow(value uint16) {
	ch.source = (ch.source &^ 0xFFFF) | uint32(value)
}

func (ch *DMAChannel) WriteSourceHigh(value uint16) {
	ch.source = ((ch.source & 0xFFFF) | uint32(value)<<16) & ch.sourceMask()
}

func (ch *DMAChannel) WriteDestLow(value uint16) {
	ch.dest = (ch.dest &^ 0xFFFF) | uint32(value)
}

func (ch *DMAChannel) WriteDestHigh(value uint16) {
	ch.dest = ((ch.dest & 0xFFFF) | uint32(value)<<16) & ch.destMask()
}

func (ch *DMAChannel) WriteCount(value uint16) {
	ch.count = uint32(value) & ch.countMask()
}

// WriteControl updates the control register. The enable rising edge
// latches the internal address and count copies; immediate transfers
// become runnable right away.
func (ch *DMAChannel) WriteControl(value uint16) {
	wasEnabled := ch.Enabled()
	ch.control = value

	if !wasEnabled && ch.Enabled() {
		ch.latch()
		if ch.timing() == dmaImmediate {
			ch.runnable = true
		}
	}
	if !ch.Enabled() {
		ch.runnable = false
	}
}

func (ch *DMAChannel) latch() {
	ch.internalSource = ch.source
	ch.internalDest = ch.dest
	ch.internalCount = ch.latchedCount()
}

// latchedCount maps a zero count to the channel maximum.
func (ch *DMAChannel) latchedCount() uint32 {
	if ch.count == 0 {
		return ch.countMask() + 1
	}
	return ch.count
}

// trigger marks an armed channel runnable for a non-immediate event.
func (ch *DMAChannel) trigger() {
	if ch.Enabled() && !ch.runnable {
		ch.runnable = true
	}
}

// NotifyVBlank arms channels waiting for the vertical blank.
func (b *Bus) NotifyVBlank() {
	for i := range b.DMA {
		ch := &b.DMA[i]
		if ch.Enabled() && ch.timing() == dmaVBlank {
			ch.trigger()
		}
	}
}

// NotifyHBlank arms channels waiting for the horizontal blank.
func (b *Bus) NotifyHBlank() {
	for i := range b.DMA {
		ch := &b.DMA[i]
		if ch.Enabled() && ch.timing() == dmaHBlank {
			ch.trigger()
		}
	}
}

// notifySoundFIFO arms the direct-sound channel feeding the given FIFO
// (0 = A via DMA1, 1 = B via DMA2).
func (b *Bus) notifySoundFIFO(fifo int) {
	ch := &b.DMA[fifo+1]
	if ch.soundMode() {
		ch.trigger()
	}
}

// DMAPending reports whether any channel is ready to run.
func (b *Bus) DMAPending() bool {
	for i := range b.DMA {
		if b.DMA[i].runnable {
			return true
		}
	}
	return false
}

// RunDMA executes the highest-priority runnable channel to completion
// and returns the cycles consumed. The CPU does not advance during the
// burst.
func (b *Bus) RunDMA() int {
	for i := range b.DMA {
		if b.DMA[i].runnable {
			return b.runChannel(&b.DMA[i])
		}
	}
	return 0
}

func (b *Bus) runChannel(ch *DMAChannel) int {
	ch.runnable = false
	cycles := 2

	if ch.soundMode() {
		// Sound DMA always moves four words into the FIFO port; the
		// destination stays fixed regardless of its control bits.
		delta := addressDelta(ch.sourceControl(), 4)
		for i := 0; i < 4; i++ {
			value := b.Read32(ch.internalSource)
			b.Write32(ch.internalDest, value)
			cycles += 2 + b.accessWait(ch.internalSource, i > 0)
			ch.internalSource = (ch.internalSource + uint32(delta)) & ch.sourceMask()
		}
		if !ch.repeat() {
			ch.control &^= 0x8000
		}
		if ch.irqEnabled() {
			b.RaiseIRQ(addr.DMAInterrupt(ch.id))
		}
		return cycles
	}

	unit := uint32(2)
	if ch.word32() {
		unit = 4
	}
	sourceDelta := addressDelta(ch.sourceControl(), int(unit))
	destDelta := addressDelta(ch.destControl(), int(unit))

	// EEPROM carts size their serial stream by the DMA length.
	if b.save.Type().IsEEPROM() && region(ch.internalDest) == 0x0D {
		b.save.EEPROMBeginStream(int(ch.internalCount))
	}

	for i := uint32(0); i < ch.internalCount; i++ {
		sequential := i > 0
		if ch.word32() {
			b.Write32(ch.internalDest, b.Read32(ch.internalSource))
		} else {
			b.Write16(ch.internalDest, b.Read16(ch.internalSource))
		}
		cycles += 2 + b.accessWait(ch.internalSource, sequential) + b.accessWait(ch.internalDest, sequential)

		ch.internalSource = (ch.internalSource + uint32(sourceDelta)) & ch.sourceMask()
		ch.internalDest = (ch.internalDest + uint32(destDelta)) & ch.destMask()
	}

	if ch.repeat() && ch.timing() != dmaImmediate {
		ch.internalCount = ch.latchedCount()
		if ch.destControl() == 3 {
			ch.internalDest = ch.dest
		}
	} else {
		ch.control &^= 0x8000
	}

	if ch.irqEnabled() {
		b.RaiseIRQ(addr.DMAInterrupt(ch.id))
	}
	return cycles
}

// addressDelta maps an address control field to a per-unit step.
// Increment-with-reload behaves as increment during the transfer.
func addressDelta(control uint32, unit int) int {
	switch control {
	case 1:
		return -unit
	case 2:
		return 0
	default:
		return unit
	}
}

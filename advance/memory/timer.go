package memory

import (
	"github.com/mbianchi/go-advance/advance/addr"
)

var timerPrescalers = [4]int{1, 64, 256, 1024}

// Timer is one of the four 16-bit hardware counters. A timer either
// counts CPU cycles through its prescaler or, in cascade mode, counts
// overflow pulses of the timer before it.
type Timer struct {
	id      int
	counter uint16
	reload  uint16
	control uint16
	residue int
}

// Enabled reports the control enable bit.
func (t *Timer) Enabled() bool { return t.control&0x0080 != 0 }

// Cascade reports count-up mode. Timer 0 cannot cascade; its prescaler
// bits always apply.
func (t *Timer) Cascade() bool { return t.control&0x0004 != 0 && t.id > 0 }

// IRQEnabled reports the overflow interrupt enable bit.
func (t *Timer) IRQEnabled() bool { return t.control&0x0040 != 0 }

func (t *Timer) prescaler() int {
	return timerPrescalers[t.control&0x0003]
}

// Counter returns the current counter value.
func (t *Timer) Counter() uint16 { return t.counter }

// WriteReload sets the value loaded on enable and on overflow.
func (t *Timer) WriteReload(value uint16) { t.reload = value }

// WriteControl updates the control register. An enable transition from
// 0 to 1 copies the reload into the counter and clears the prescaler
// residue.
func (t *Timer) WriteControl(value uint16) {
	wasEnabled := t.Enabled()
	t.control = value & 0x00C7
	if !wasEnabled && t.Enabled() {
		t.counter = t.reload
		t.residue = 0
	}
}

// tick increments the counter once and reports an overflow. The counter
// reloads rather than wrapping to zero.
func (t *Timer) tick() bool {
	t.counter++
	if t.counter == 0 {
		t.counter = t.reload
		return true
	}
	return false
}

// tickTimers advances every cycle-driven timer. Cascade timers advance
// only through overflow pulses, delivered one at a time so that chained
// IRQs are never collapsed.
func (b *Bus) tickTimers(cycles int) {
	for i := range b.Timers {
		t := &b.Timers[i]
		if !t.Enabled() || t.Cascade() {
			continue
		}
		t.residue += cycles
		for t.residue >= t.prescaler() {
			t.residue -= t.prescaler()
			if t.tick() {
				b.timerOverflow(i)
			}
		}
	}
}

// timerOverflow handles a single overflow pulse: IRQ, direct-sound
// consumption, and one cascade pulse into the next timer.
func (b *Bus) timerOverflow(id int) {
	t := &b.Timers[id]
	if t.IRQEnabled() {
		b.RaiseIRQ(addr.TimerInterrupt(id))
	}

	// Timers 0 and 1 can drive the direct-sound FIFOs.
	if id < 2 && b.APU != nil {
		refillA, refillB := b.APU.TimerOverflow(id)
		if refillA {
			b.notifySoundFIFO(0)
		}
		if refillB {
			b.notifySoundFIFO(1)
		}
	}

	if id < 3 {
		next := &b.Timers[id+1]
		if next.Enabled() && next.Cascade() && next.tick() {
			b.timerOverflow(id + 1)
		}
	}
}

package cpu

import (
	"github.com/mbianchi/go-advance/advance/memory"
)

// Exception vector addresses.
const (
	VectorReset     uint32 = 0x00
	VectorUndefined uint32 = 0x04
	VectorSWI       uint32 = 0x08
	VectorPrefetch  uint32 = 0x0C
	VectorData      uint32 = 0x10
	VectorIRQ       uint32 = 0x18
	VectorFIQ       uint32 = 0x1C
)

// CPU is the ARM7TDMI core. One call to Step executes a single ARM or
// THUMB instruction and returns the elapsed cycles; pending interrupts
// are taken at instruction boundaries only.
type CPU struct {
	Regs Registers

	bus *memory.Bus

	halted  bool
	stopped bool

	// Address of the instruction currently executing. R15 reads as
	// currentPC+8 in ARM state and currentPC+4 in THUMB state while an
	// instruction runs.
	currentPC uint32
}

// New creates a CPU attached to the given bus and resets it.
func New(bus *memory.Bus) *CPU {
	c := &CPU{bus: bus}
	c.Reset()
	return c
}

// Reset restores the boot state. Halt and stop are cleared.
func (c *CPU) Reset() {
	c.Regs.Reset()
	c.halted = false
	c.stopped = false
	c.currentPC = c.Regs.PC()
}

// Halt pauses execution until an interrupt is pending.
func (c *CPU) Halt() { c.halted = true }

// Stop enters the deep sleep state. Treated as halt for scheduling.
func (c *CPU) Stop() {
	c.stopped = true
	c.halted = true
}

// Halted reports whether the CPU is waiting for an interrupt.
func (c *CPU) Halted() bool { return c.halted }

// Step executes one instruction and returns the cycles it consumed.
// A halted CPU burns one cycle per step until an interrupt arrives.
func (c *CPU) Step() int {
	if c.bus.IRQPending() && !c.Regs.IRQDisabled() {
		c.dispatchIRQ()
	}

	if c.halted {
		if c.bus.IRQPending() {
			c.halted = false
			c.stopped = false
		} else {
			return 1
		}
	}

	c.currentPC = c.Regs.PC()
	c.bus.SetFetchPC(c.currentPC)

	if c.Regs.Thumb() {
		opcode := c.bus.Read16(c.currentPC)
		c.Regs.SetPC(c.currentPC + 2)
		return c.executeThumb(opcode)
	}

	opcode := c.bus.Read32(c.currentPC)
	c.Regs.SetPC(c.currentPC + 4)

	if !c.Regs.CheckCondition(opcode >> 28) {
		return 1
	}
	return c.executeARM(opcode)
}

// prefetchPC is the value of R15 as seen by the executing instruction:
// two fetches ahead of the instruction address.
func (c *CPU) prefetchPC() uint32 {
	if c.Regs.Thumb() {
		return c.currentPC + 4
	}
	return c.currentPC + 8
}

// enterException performs the common exception sequence: save CPSR into
// the target mode's SPSR, switch mode, mask IRQ (and FIQ where the
// architecture requires it), drop to ARM state, set the return address
// and jump to the vector.
func (c *CPU) enterException(vector uint32, mode Mode, lr uint32) {
	c.Regs.SwitchMode(mode, true)
	c.Regs.SetIRQDisabled(true)
	if mode == FIQMode || vector == VectorReset {
		c.Regs.SetFIQDisabled(true)
	}
	c.Regs.SetThumb(false)
	c.Regs.SetLR(lr)
	c.Regs.SetPC(vector)
}

// dispatchIRQ enters IRQ mode. LR_irq holds the address of the next
// unexecuted instruction plus 4 so that SUBS PC, LR, #4 resumes it.
func (c *CPU) dispatchIRQ() {
	c.enterException(VectorIRQ, IRQMode, c.Regs.PC()+4)
	c.halted = false
	c.stopped = false
}

// raiseSWI enters Supervisor mode with LR pointing at the instruction
// after the SWI.
func (c *CPU) raiseSWI() {
	lr := c.currentPC + 4
	if c.Regs.Thumb() {
		lr = c.currentPC + 2
	}
	c.enterException(VectorSWI, SupervisorMode, lr)
}

// raiseUndefined enters Undefined mode. Unknown opcodes land here
// instead of crashing the core.
func (c *CPU) raiseUndefined() {
	c.enterException(VectorUndefined, UndefinedMode, c.currentPC+4)
}

package cpu

// Mode is one of the seven ARM7TDMI operating modes, as encoded in the
// low five bits of the CPSR.
type Mode uint32

const (
	UserMode       Mode = 0x10
	FIQMode        Mode = 0x11
	IRQMode        Mode = 0x12
	SupervisorMode Mode = 0x13
	AbortMode      Mode = 0x17
	UndefinedMode  Mode = 0x1B
	SystemMode     Mode = 0x1F
)

func (m Mode) valid() bool {
	switch m {
	case UserMode, FIQMode, IRQMode, SupervisorMode, AbortMode, UndefinedMode, SystemMode:
		return true
	}
	return false
}

// hasSPSR reports whether the mode has a saved program status register.
// User and System run on the bare CPSR.
func (m Mode) hasSPSR() bool {
	return m != UserMode && m != SystemMode
}

// CPSR bit positions and masks.
const (
	flagN = 1 << 31
	flagZ = 1 << 30
	flagC = 1 << 29
	flagV = 1 << 28

	maskIRQDisable = 1 << 7
	maskFIQDisable = 1 << 6
	maskThumb      = 1 << 5
	maskMode       = 0x1F
)

// bankIndex maps a mode to its slot in the SP/LR/SPSR banks.
// User and System share slot 0.
func bankIndex(m Mode) int {
	switch m {
	case FIQMode:
		return 1
	case IRQMode:
		return 2
	case SupervisorMode:
		return 3
	case AbortMode:
		return 4
	case UndefinedMode:
		return 5
	default:
		return 0
	}
}

// Registers is the banked ARM7TDMI register file: R0-R7 shared, R8-R12
// with a FIQ bank, R13/R14 banked per mode, one CPSR and five SPSRs.
type Registers struct {
	common  [8]uint32 // R0-R7
	highUsr [5]uint32 // R8-R12 for every mode but FIQ
	highFiq [5]uint32 // R8-R12 for FIQ
	spBank  [6]uint32 // R13 per bank slot
	lrBank  [6]uint32 // R14 per bank slot
	r15     uint32

	cpsr uint32
	spsr [6]uint32 // slot 0 unused (User/System have no SPSR)
}

// Reset puts the register file in the post-BIOS boot state: execution
// starts at the ROM entry point in ARM System mode with interrupts
// disabled and the stack pointers at their BIOS defaults.
func (r *Registers) Reset() {
	*r = Registers{}
	r.r15 = 0x08000000
	r.cpsr = uint32(SystemMode) | maskIRQDisable | maskFIQDisable

	r.spBank[bankIndex(SystemMode)] = 0x03007F00
	r.spBank[bankIndex(IRQMode)] = 0x03007FA0
	r.spBank[bankIndex(SupervisorMode)] = 0x03007FE0
}

// Mode returns the current operating mode.
func (r *Registers) Mode() Mode {
	return Mode(r.cpsr & maskMode)
}

// SetMode switches the mode bits. Invalid encodings are discarded.
func (r *Registers) SetMode(m Mode) {
	if !m.valid() {
		return
	}
	r.cpsr = (r.cpsr &^ maskMode) | uint32(m)
}

// Get reads general register reg (0-15) through the current mode's bank.
func (r *Registers) Get(reg int) uint32 {
	switch {
	case reg < 8:
		return r.common[reg]
	case reg < 13:
		if r.Mode() == FIQMode {
			return r.highFiq[reg-8]
		}
		return r.highUsr[reg-8]
	case reg == 13:
		return r.spBank[bankIndex(r.Mode())]
	case reg == 14:
		return r.lrBank[bankIndex(r.Mode())]
	default:
		return r.r15
	}
}

// Set writes general register reg (0-15) through the current mode's bank.
// PC writes are aligned to the current instruction state.
func (r *Registers) Set(reg int, value uint32) {
	switch {
	case reg < 8:
		r.common[reg] = value
	case reg < 13:
		if r.Mode() == FIQMode {
			r.highFiq[reg-8] = value
		} else {
			r.highUsr[reg-8] = value
		}
	case reg == 13:
		r.spBank[bankIndex(r.Mode())] = value
	case reg == 14:
		r.lrBank[bankIndex(r.Mode())] = value
	default:
		if r.Thumb() {
			r.r15 = value &^ 1
		} else {
			r.r15 = value &^ 3
		}
	}
}

// PC returns R15.
func (r *Registers) PC() uint32 { return r.r15 }

// SetPC writes R15, applying state alignment.
func (r *Registers) SetPC(value uint32) { r.Set(15, value) }

// SP returns R13 for the current mode.
func (r *Registers) SP() uint32 { return r.Get(13) }

// SetSP writes R13 for the current mode.
func (r *Registers) SetSP(value uint32) { r.Set(13, value) }

// LR returns R14 for the current mode.
func (r *Registers) LR() uint32 { return r.Get(14) }

// SetLR writes R14 for the current mode.
func (r *Registers) SetLR(value uint32) { r.Set(14, value) }

// CPSR returns the raw status register.
func (r *Registers) CPSR() uint32 { return r.cpsr }

// SetCPSR replaces the whole status register. A write carrying an
// invalid mode encoding keeps the previous mode bits.
func (r *Registers) SetCPSR(value uint32) {
	if !Mode(value & maskMode).valid() {
		value = (value &^ maskMode) | (r.cpsr & maskMode)
	}
	r.cpsr = value
}

// SPSR returns the saved status register of the current mode, or the
// CPSR itself in User/System.
func (r *Registers) SPSR() uint32 {
	m := r.Mode()
	if !m.hasSPSR() {
		return r.cpsr
	}
	return r.spsr[bankIndex(m)]
}

// SetSPSR writes the saved status register of the current mode. Ignored
// in User/System.
func (r *Registers) SetSPSR(value uint32) {
	m := r.Mode()
	if m.hasSPSR() {
		r.spsr[bankIndex(m)] = value
	}
}

// GetUser reads a general register through the User bank regardless of
// the current mode. Used by LDM/STM with the S bit.
func (r *Registers) GetUser(reg int) uint32 {
	switch {
	case reg < 8:
		return r.common[reg]
	case reg < 13:
		return r.highUsr[reg-8]
	case reg == 13:
		return r.spBank[0]
	case reg == 14:
		return r.lrBank[0]
	default:
		return r.r15
	}
}

// SetUser writes a general register through the User bank regardless of
// the current mode.
func (r *Registers) SetUser(reg int, value uint32) {
	switch {
	case reg < 8:
		r.common[reg] = value
	case reg < 13:
		r.highUsr[reg-8] = value
	case reg == 13:
		r.spBank[0] = value
	case reg == 14:
		r.lrBank[0] = value
	default:
		r.Set(15, value)
	}
}

// SwitchMode changes mode, optionally saving the current CPSR into the
// new mode's SPSR. Used by exception entry.
func (r *Registers) SwitchMode(m Mode, saveCPSR bool) {
	if !m.valid() {
		return
	}
	if saveCPSR && m.hasSPSR() {
		r.spsr[bankIndex(m)] = r.cpsr
	}
	r.SetMode(m)
}

// RestoreCPSR copies the SPSR of the current mode back into the CPSR,
// for exception return. No-op in User/System.
func (r *Registers) RestoreCPSR() {
	m := r.Mode()
	if m.hasSPSR() {
		r.SetCPSR(r.spsr[bankIndex(m)])
	}
}

func (r *Registers) N() bool { return r.cpsr&flagN != 0 }
func (r *Registers) Z() bool { return r.cpsr&flagZ != 0 }
func (r *Registers) C() bool { return r.cpsr&flagC != 0 }
func (r *Registers) V() bool { return r.cpsr&flagV != 0 }

func (r *Registers) setFlag(mask uint32, value bool) {
	if value {
		r.cpsr |= mask
	} else {
		r.cpsr &^= mask
	}
}

func (r *Registers) SetN(v bool) { r.setFlag(flagN, v) }
func (r *Registers) SetZ(v bool) { r.setFlag(flagZ, v) }
func (r *Registers) SetC(v bool) { r.setFlag(flagC, v) }
func (r *Registers) SetV(v bool) { r.setFlag(flagV, v) }

// IRQDisabled reports the CPSR I bit.
func (r *Registers) IRQDisabled() bool { return r.cpsr&maskIRQDisable != 0 }

// SetIRQDisabled writes the CPSR I bit.
func (r *Registers) SetIRQDisabled(v bool) { r.setFlag(maskIRQDisable, v) }

// FIQDisabled reports the CPSR F bit.
func (r *Registers) FIQDisabled() bool { return r.cpsr&maskFIQDisable != 0 }

// SetFIQDisabled writes the CPSR F bit.
func (r *Registers) SetFIQDisabled(v bool) { r.setFlag(maskFIQDisable, v) }

// Thumb reports the CPSR T bit.
func (r *Registers) Thumb() bool { return r.cpsr&maskThumb != 0 }

// SetThumb writes the CPSR T bit.
func (r *Registers) SetThumb(v bool) { r.setFlag(maskThumb, v) }

// SetNZ updates the N and Z flags from a 32 bit result.
func (r *Registers) SetNZ(result uint32) {
	r.SetN(result&0x80000000 != 0)
	r.SetZ(result == 0)
}

// CheckCondition evaluates a 4-bit ARM condition code against the flags.
// NV (0xF) is treated as always, as the ARM7 has no unconditional space.
func (r *Registers) CheckCondition(cond uint32) bool {
	n, z, c, v := r.N(), r.Z(), r.C(), r.V()

	switch cond & 0xF {
	case 0x0: // EQ
		return z
	case 0x1: // NE
		return !z
	case 0x2: // CS
		return c
	case 0x3: // CC
		return !c
	case 0x4: // MI
		return n
	case 0x5: // PL
		return !n
	case 0x6: // VS
		return v
	case 0x7: // VC
		return !v
	case 0x8: // HI
		return c && !z
	case 0x9: // LS
		return !c || z
	case 0xA: // GE
		return n == v
	case 0xB: // LT
		return n != v
	case 0xC: // GT
		return !z && n == v
	case 0xD: // LE
		return z || n != v
	default: // AL, NV
		return true
	}
}

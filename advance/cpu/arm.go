package cpu

import (
	"github.com/mbianchi/go-advance/advance/bit"
)

// armHandler executes a decoded ARM instruction and returns its cycles.
type armHandler func(c *CPU, op uint32) int

// armTable dispatches on bits 27:20 and 7:4 of the opcode, the bits that
// disambiguate every ARM7 instruction class.
var armTable [4096]armHandler

func armIndex(op uint32) uint32 {
	return ((op >> 16) & 0xFF0) | ((op >> 4) & 0xF)
}

func init() {
	for i := range armTable {
		hi := uint32(i >> 4) // opcode bits 27:20
		lo := uint32(i & 0xF)
		armTable[i] = decodeARM(hi, lo)
	}
}

func decodeARM(hi, lo uint32) armHandler {
	switch {
	case hi == 0x12 && lo == 0x1:
		return (*CPU).armBranchExchange
	case hi&0xFC == 0x00 && lo == 0x9:
		return (*CPU).armMultiply
	case hi&0xF8 == 0x08 && lo == 0x9:
		return (*CPU).armMultiplyLong
	case hi&0xFB == 0x10 && lo == 0x9:
		return (*CPU).armSwap
	case hi&0xE0 == 0x00 && lo&0x9 == 0x9 && lo != 0x9:
		return (*CPU).armHalfwordTransfer
	case hi&0xFB == 0x10 && lo == 0x0:
		return (*CPU).armMRS
	case hi&0xFB == 0x12 && lo == 0x0:
		return (*CPU).armMSR
	case hi == 0x32 || hi == 0x36:
		return (*CPU).armMSR
	case hi&0xC0 == 0x00:
		return (*CPU).armDataProcessing
	case hi&0xC0 == 0x40:
		return (*CPU).armSingleTransfer
	case hi&0xE0 == 0x80:
		return (*CPU).armBlockTransfer
	case hi&0xE0 == 0xA0:
		return (*CPU).armBranch
	case hi&0xF0 == 0xF0:
		return (*CPU).armSWI
	default:
		return (*CPU).armUndefined
	}
}

func (c *CPU) executeARM(op uint32) int {
	return armTable[armIndex(op)](c, op)
}

// Barrel shifter. The immediate flag selects the special encodings for
// a shift amount of zero (LSR/ASR #32, RRX).

func shiftLSL(value uint32, amount uint32, carry bool) (uint32, bool) {
	switch {
	case amount == 0:
		return value, carry
	case amount < 32:
		return value << amount, (value>>(32-amount))&1 == 1
	case amount == 32:
		return 0, value&1 == 1
	default:
		return 0, false
	}
}

func shiftLSR(value uint32, amount uint32, carry bool, immediate bool) (uint32, bool) {
	if amount == 0 {
		if immediate {
			amount = 32
		} else {
			return value, carry
		}
	}
	switch {
	case amount < 32:
		return value >> amount, (value>>(amount-1))&1 == 1
	case amount == 32:
		return 0, value>>31 == 1
	default:
		return 0, false
	}
}

func shiftASR(value uint32, amount uint32, carry bool, immediate bool) (uint32, bool) {
	if amount == 0 {
		if immediate {
			amount = 32
		} else {
			return value, carry
		}
	}
	if amount >= 32 {
		if value>>31 == 1 {
			return 0xFFFFFFFF, true
		}
		return 0, false
	}
	return uint32(int32(value) >> amount), (value>>(amount-1))&1 == 1
}

func shiftROR(value uint32, amount uint32, carry bool, immediate bool) (uint32, bool) {
	if amount == 0 {
		if immediate {
			// ROR #0 encodes RRX: rotate right by one through carry.
			carryIn := uint32(0)
			if carry {
				carryIn = 1
			}
			return (carryIn << 31) | (value >> 1), value&1 == 1
		}
		return value, carry
	}
	amount &= 31
	if amount == 0 {
		return value, value>>31 == 1
	}
	return bit.RotateRight(value, uint(amount)), (value>>(amount-1))&1 == 1
}

func applyShift(value uint32, shiftType, amount uint32, carry bool, immediate bool) (uint32, bool) {
	switch shiftType {
	case 0:
		return shiftLSL(value, amount, carry)
	case 1:
		return shiftLSR(value, amount, carry, immediate)
	case 2:
		return shiftASR(value, amount, carry, immediate)
	default:
		return shiftROR(value, amount, carry, immediate)
	}
}

// operand2 computes the second operand of a data processing instruction
// together with the shifter carry-out.
func (c *CPU) operand2(op uint32) (uint32, bool) {
	carry := c.Regs.C()

	if op&(1<<25) != 0 { // rotated immediate
		imm := op & 0xFF
		rotate := ((op >> 8) & 0xF) * 2
		if rotate == 0 {
			return imm, carry
		}
		result := bit.RotateRight(imm, uint(rotate))
		return result, result>>31 == 1
	}

	rm := int(op & 0xF)
	value := c.Regs.Get(rm)
	shiftType := (op >> 5) & 0x3

	if op&(1<<4) != 0 { // shift amount from register
		if rm == 15 {
			// Register-specified shifts see the PC one fetch further on.
			value = c.prefetchPC() + 4
		}
		rs := int((op >> 8) & 0xF)
		amount := c.Regs.Get(rs) & 0xFF
		return applyShift(value, shiftType, amount, carry, false)
	}

	if rm == 15 {
		value = c.prefetchPC()
	}
	amount := (op >> 7) & 0x1F
	return applyShift(value, shiftType, amount, carry, true)
}

func addWithCarry(a, b uint32, carryIn bool) (uint32, bool, bool) {
	carry := uint64(0)
	if carryIn {
		carry = 1
	}
	wide := uint64(a) + uint64(b) + carry
	result := uint32(wide)
	overflow := (a^result)&(b^result)>>31 == 1
	return result, wide > 0xFFFFFFFF, overflow
}

func subWithCarry(a, b uint32, carryIn bool) (uint32, bool, bool) {
	borrow := uint32(0)
	if !carryIn {
		borrow = 1
	}
	result := a - b - borrow
	carry := uint64(a) >= uint64(b)+uint64(borrow)
	overflow := (a^b)&(a^result)>>31 == 1
	return result, carry, overflow
}

// ALU opcodes.
const (
	opAND = iota
	opEOR
	opSUB
	opRSB
	opADD
	opADC
	opSBC
	opRSC
	opTST
	opTEQ
	opCMP
	opCMN
	opORR
	opMOV
	opBIC
	opMVN
)

func (c *CPU) armDataProcessing(op uint32) int {
	opcode := (op >> 21) & 0xF
	sBit := op&(1<<20) != 0
	rn := int((op >> 16) & 0xF)
	rd := int((op >> 12) & 0xF)

	rnValue := c.Regs.Get(rn)
	if rn == 15 {
		rnValue = c.prefetchPC()
	}
	op2, shifterCarry := c.operand2(op)

	var result uint32
	carry := c.Regs.C()
	overflow := c.Regs.V()
	writeResult := true
	logical := false

	switch opcode {
	case opAND:
		result, logical = rnValue&op2, true
	case opEOR:
		result, logical = rnValue^op2, true
	case opSUB:
		result, carry, overflow = subWithCarry(rnValue, op2, true)
	case opRSB:
		result, carry, overflow = subWithCarry(op2, rnValue, true)
	case opADD:
		result, carry, overflow = addWithCarry(rnValue, op2, false)
	case opADC:
		result, carry, overflow = addWithCarry(rnValue, op2, c.Regs.C())
	case opSBC:
		result, carry, overflow = subWithCarry(rnValue, op2, c.Regs.C())
	case opRSC:
		result, carry, overflow = subWithCarry(op2, rnValue, c.Regs.C())
	case opTST:
		result, logical, writeResult = rnValue&op2, true, false
	case opTEQ:
		result, logical, writeResult = rnValue^op2, true, false
	case opCMP:
		result, carry, overflow = subWithCarry(rnValue, op2, true)
		writeResult = false
	case opCMN:
		result, carry, overflow = addWithCarry(rnValue, op2, false)
		writeResult = false
	case opORR:
		result, logical = rnValue|op2, true
	case opMOV:
		result, logical = op2, true
	case opBIC:
		result, logical = rnValue&^op2, true
	case opMVN:
		result, logical = ^op2, true
	}

	if writeResult && rd == 15 {
		// Exception return: the SPSR comes back before the jump so the
		// new T bit governs PC alignment.
		if sBit {
			c.Regs.RestoreCPSR()
		}
		c.Regs.Set(15, result)
		return 3
	}

	if writeResult {
		c.Regs.Set(rd, result)
	}

	if sBit {
		c.Regs.SetNZ(result)
		if logical {
			c.Regs.SetC(shifterCarry)
		} else {
			c.Regs.SetC(carry)
			c.Regs.SetV(overflow)
		}
	}
	return 1
}

func (c *CPU) armMultiply(op uint32) int {
	rd := int((op >> 16) & 0xF)
	rn := int((op >> 12) & 0xF)
	rs := int((op >> 8) & 0xF)
	rm := int(op & 0xF)

	result := c.Regs.Get(rm) * c.Regs.Get(rs)
	if op&(1<<21) != 0 { // MLA
		result += c.Regs.Get(rn)
	}
	c.Regs.Set(rd, result)

	if op&(1<<20) != 0 {
		c.Regs.SetNZ(result)
	}
	return 2
}

func (c *CPU) armMultiplyLong(op uint32) int {
	rdHi := int((op >> 16) & 0xF)
	rdLo := int((op >> 12) & 0xF)
	rs := int((op >> 8) & 0xF)
	rm := int(op & 0xF)

	var result uint64
	if op&(1<<22) != 0 { // signed
		result = uint64(int64(int32(c.Regs.Get(rm))) * int64(int32(c.Regs.Get(rs))))
	} else {
		result = uint64(c.Regs.Get(rm)) * uint64(c.Regs.Get(rs))
	}
	if op&(1<<21) != 0 { // accumulate
		result += uint64(c.Regs.Get(rdHi))<<32 | uint64(c.Regs.Get(rdLo))
	}

	c.Regs.Set(rdLo, uint32(result))
	c.Regs.Set(rdHi, uint32(result>>32))

	if op&(1<<20) != 0 {
		c.Regs.SetN(result>>63 == 1)
		c.Regs.SetZ(result == 0)
	}
	return 3
}

func (c *CPU) armBranch(op uint32) int {
	offset := int32(op<<8) >> 6 // sign-extended 24-bit word offset in bytes

	if op&(1<<24) != 0 { // BL
		c.Regs.SetLR(c.currentPC + 4)
	}
	c.Regs.SetPC(uint32(int32(c.prefetchPC()) + offset))
	return 3
}

func (c *CPU) armBranchExchange(op uint32) int {
	target := c.Regs.Get(int(op & 0xF))
	c.Regs.SetThumb(target&1 == 1)
	c.Regs.SetPC(target)
	return 3
}

func (c *CPU) armSingleTransfer(op uint32) int {
	load := op&(1<<20) != 0
	writeBack := op&(1<<21) != 0
	byteTransfer := op&(1<<22) != 0
	up := op&(1<<23) != 0
	preIndex := op&(1<<24) != 0
	registerOffset := op&(1<<25) != 0

	rn := int((op >> 16) & 0xF)
	rd := int((op >> 12) & 0xF)

	base := c.Regs.Get(rn)
	if rn == 15 {
		base = c.prefetchPC()
	}

	var offset uint32
	if registerOffset {
		value := c.Regs.Get(int(op & 0xF))
		offset, _ = applyShift(value, (op>>5)&0x3, (op>>7)&0x1F, c.Regs.C(), true)
	} else {
		offset = op & 0xFFF
	}

	indexed := base + offset
	if !up {
		indexed = base - offset
	}
	address := indexed
	if !preIndex {
		address = base
	}

	if load {
		var value uint32
		if byteTransfer {
			value = uint32(c.bus.Read8(address))
		} else {
			value = bit.RotateRight(c.bus.Read32(address), uint(address&3)*8)
		}
		// Writeback happens before the load lands so a load into the
		// base register wins.
		if (writeBack || !preIndex) && rn != 15 {
			c.Regs.Set(rn, indexed)
		}
		c.Regs.Set(rd, value)
		if rd == 15 {
			return 5
		}
		return 3
	}

	value := c.Regs.Get(rd)
	if rd == 15 {
		value = c.prefetchPC()
	}
	if byteTransfer {
		c.bus.Write8(address, uint8(value))
	} else {
		c.bus.Write32(address, value)
	}
	if (writeBack || !preIndex) && rn != 15 {
		c.Regs.Set(rn, indexed)
	}
	return 2
}

func (c *CPU) armHalfwordTransfer(op uint32) int {
	load := op&(1<<20) != 0
	writeBack := op&(1<<21) != 0
	immediate := op&(1<<22) != 0
	up := op&(1<<23) != 0
	preIndex := op&(1<<24) != 0
	sh := (op >> 5) & 0x3

	rn := int((op >> 16) & 0xF)
	rd := int((op >> 12) & 0xF)

	base := c.Regs.Get(rn)
	if rn == 15 {
		base = c.prefetchPC()
	}

	var offset uint32
	if immediate {
		offset = ((op >> 4) & 0xF0) | (op & 0xF)
	} else {
		offset = c.Regs.Get(int(op & 0xF))
	}

	indexed := base + offset
	if !up {
		indexed = base - offset
	}
	address := indexed
	if !preIndex {
		address = base
	}

	if load {
		var value uint32
		switch sh {
		case 1: // LDRH
			value = uint32(c.bus.Read16(address))
		case 2: // LDRSB
			value = bit.SignExtend8(uint32(c.bus.Read8(address)))
		default: // LDRSH; a misaligned load sign-extends from bit 7
			if address&1 == 1 {
				value = bit.SignExtend8(uint32(c.bus.Read8(address)))
			} else {
				value = bit.SignExtend16(uint32(c.bus.Read16(address)))
			}
		}
		if (writeBack || !preIndex) && rn != 15 {
			c.Regs.Set(rn, indexed)
		}
		c.Regs.Set(rd, value)
		if rd == 15 {
			return 5
		}
		return 3
	}

	if sh == 1 { // STRH
		value := c.Regs.Get(rd)
		if rd == 15 {
			value = c.prefetchPC()
		}
		c.bus.Write16(address, uint16(value))
	}
	if (writeBack || !preIndex) && rn != 15 {
		c.Regs.Set(rn, indexed)
	}
	return 2
}

func (c *CPU) armBlockTransfer(op uint32) int {
	load := op&(1<<20) != 0
	writeBack := op&(1<<21) != 0
	sBit := op&(1<<22) != 0
	up := op&(1<<23) != 0
	preIndex := op&(1<<24) != 0

	rn := int((op >> 16) & 0xF)
	rlist := uint16(op & 0xFFFF)
	base := c.Regs.Get(rn)

	if rlist == 0 {
		// Empty register list transfers the PC and moves the base by 0x40.
		if load {
			c.Regs.Set(15, c.bus.Read32(base))
		} else {
			c.bus.Write32(base, c.prefetchPC()+4)
		}
		if writeBack {
			if up {
				c.Regs.Set(rn, base+0x40)
			} else {
				c.Regs.Set(rn, base-0x40)
			}
		}
		return 2
	}

	count := uint32(bit.CountOnes(rlist))

	// The lowest register always goes to the lowest address; a
	// decrementing transfer just starts the run lower down.
	var address, finalBase uint32
	if up {
		address = base
		if preIndex {
			address += 4
		}
		finalBase = base + count*4
	} else {
		address = base - count*4
		if !preIndex {
			address += 4
		}
		finalBase = base - count*4
	}

	userBank := sBit && !(load && rlist&(1<<15) != 0)

	cycles := 2
	baseWritten := false
	for i := 0; i < 16; i++ {
		if rlist&(1<<i) == 0 {
			continue
		}
		if load {
			value := c.bus.Read32(address)
			if userBank {
				c.Regs.SetUser(i, value)
			} else {
				c.Regs.Set(i, value)
			}
		} else {
			var value uint32
			switch {
			case i == 15:
				value = c.prefetchPC() + 4
			case userBank:
				value = c.Regs.GetUser(i)
			default:
				value = c.Regs.Get(i)
			}
			// A stored base that is not the first register in the list
			// goes out already written back.
			if i == rn && writeBack && baseWritten {
				value = finalBase
			}
			c.bus.Write32(address, value)
		}
		address += 4
		cycles++
		baseWritten = true
	}

	// On a load the incoming value wins over writeback.
	if writeBack && !(load && rlist&(1<<rn) != 0) {
		c.Regs.Set(rn, finalBase)
	}

	if load && rlist&(1<<15) != 0 {
		if sBit {
			c.Regs.RestoreCPSR()
			c.Regs.Set(15, c.Regs.PC())
		}
		cycles += 2
	}
	return cycles
}

func (c *CPU) armSwap(op uint32) int {
	rn := int((op >> 16) & 0xF)
	rd := int((op >> 12) & 0xF)
	rm := int(op & 0xF)
	address := c.Regs.Get(rn)

	if op&(1<<22) != 0 { // SWPB
		old := uint32(c.bus.Read8(address))
		c.bus.Write8(address, uint8(c.Regs.Get(rm)))
		c.Regs.Set(rd, old)
	} else {
		old := bit.RotateRight(c.bus.Read32(address), uint(address&3)*8)
		c.bus.Write32(address, c.Regs.Get(rm))
		c.Regs.Set(rd, old)
	}
	return 4
}

func (c *CPU) armMRS(op uint32) int {
	rd := int((op >> 12) & 0xF)
	if op&(1<<22) != 0 {
		c.Regs.Set(rd, c.Regs.SPSR())
	} else {
		c.Regs.Set(rd, c.Regs.CPSR())
	}
	return 1
}

func (c *CPU) armMSR(op uint32) int {
	var value uint32
	if op&(1<<25) != 0 {
		imm := op & 0xFF
		rotate := ((op >> 8) & 0xF) * 2
		value = bit.RotateRight(imm, uint(rotate))
	} else {
		value = c.Regs.Get(int(op & 0xF))
	}

	var mask uint32
	fields := (op >> 16) & 0xF
	if fields&1 != 0 {
		mask |= 0x000000FF
	}
	if fields&2 != 0 {
		mask |= 0x0000FF00
	}
	if fields&4 != 0 {
		mask |= 0x00FF0000
	}
	if fields&8 != 0 {
		mask |= 0xFF000000
	}

	if op&(1<<22) != 0 {
		c.Regs.SetSPSR((c.Regs.SPSR() &^ mask) | (value & mask))
		return 1
	}

	// User mode may only touch the flag byte.
	if c.Regs.Mode() == UserMode {
		mask &= 0xFF000000
	}
	c.Regs.SetCPSR((c.Regs.CPSR() &^ mask) | (value & mask))
	return 1
}

func (c *CPU) armSWI(op uint32) int {
	c.raiseSWI()
	return 3
}

func (c *CPU) armUndefined(op uint32) int {
	c.raiseUndefined()
	return 3
}

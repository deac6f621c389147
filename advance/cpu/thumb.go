package cpu

import (
	"github.com/mbianchi/go-advance/advance/bit"
)

// thumbHandler executes a decoded THUMB instruction and returns cycles.
type thumbHandler func(c *CPU, op uint16) int

// thumbTable dispatches on the top 8 bits of the halfword, enough to
// separate the 19 THUMB formats.
var thumbTable [256]thumbHandler

func init() {
	for i := range thumbTable {
		thumbTable[i] = decodeThumb(uint16(i))
	}
}

func decodeThumb(top uint16) thumbHandler {
	switch {
	case top>>3 == 0b00011:
		return (*CPU).thumbAddSub
	case top>>5 == 0b000:
		return (*CPU).thumbShiftImmediate
	case top>>5 == 0b001:
		return (*CPU).thumbImmediate
	case top>>2 == 0b010000:
		return (*CPU).thumbALU
	case top>>2 == 0b010001:
		return (*CPU).thumbHiRegister
	case top>>3 == 0b01001:
		return (*CPU).thumbPCLoad
	case top>>4 == 0b0101 && top&0b10 == 0:
		return (*CPU).thumbLoadStoreRegister
	case top>>4 == 0b0101:
		return (*CPU).thumbLoadStoreSigned
	case top>>5 == 0b011:
		return (*CPU).thumbLoadStoreImmediate
	case top>>4 == 0b1000:
		return (*CPU).thumbLoadStoreHalfword
	case top>>4 == 0b1001:
		return (*CPU).thumbSPRelative
	case top>>4 == 0b1010:
		return (*CPU).thumbLoadAddress
	case top == 0b10110000:
		return (*CPU).thumbAdjustSP
	case top>>4 == 0b1011 && (top>>1)&0b11 == 0b10:
		return (*CPU).thumbPushPop
	case top>>4 == 0b1100:
		return (*CPU).thumbMultiple
	case top == 0b11011111:
		return (*CPU).thumbSWI
	case top>>4 == 0b1101 && top&0xF < 0xE:
		return (*CPU).thumbConditionalBranch
	case top>>3 == 0b11100:
		return (*CPU).thumbBranch
	case top>>4 == 0b1111:
		return (*CPU).thumbLongBranchLink
	default:
		return (*CPU).thumbUndefined
	}
}

func (c *CPU) executeThumb(op uint16) int {
	return thumbTable[op>>8](c, op)
}

func (c *CPU) thumbShiftImmediate(op uint16) int {
	shiftType := uint32((op >> 11) & 0x3)
	amount := uint32((op >> 6) & 0x1F)
	rs := int((op >> 3) & 0x7)
	rd := int(op & 0x7)

	result, carry := applyShift(c.Regs.Get(rs), shiftType, amount, c.Regs.C(), true)
	c.Regs.Set(rd, result)
	c.Regs.SetNZ(result)
	c.Regs.SetC(carry)
	return 1
}

func (c *CPU) thumbAddSub(op uint16) int {
	immediate := op&(1<<10) != 0
	subtract := op&(1<<9) != 0
	rd := int(op & 0x7)
	rs := int((op >> 3) & 0x7)

	operand := uint32((op >> 6) & 0x7)
	if !immediate {
		operand = c.Regs.Get(int(operand))
	}
	value := c.Regs.Get(rs)

	var result uint32
	var carry, overflow bool
	if subtract {
		result, carry, overflow = subWithCarry(value, operand, true)
	} else {
		result, carry, overflow = addWithCarry(value, operand, false)
	}

	c.Regs.Set(rd, result)
	c.Regs.SetNZ(result)
	c.Regs.SetC(carry)
	c.Regs.SetV(overflow)
	return 1
}

func (c *CPU) thumbImmediate(op uint16) int {
	rd := int((op >> 8) & 0x7)
	imm := uint32(op & 0xFF)
	value := c.Regs.Get(rd)

	switch (op >> 11) & 0x3 {
	case 0: // MOV
		c.Regs.Set(rd, imm)
		c.Regs.SetNZ(imm)
	case 1: // CMP
		result, carry, overflow := subWithCarry(value, imm, true)
		c.Regs.SetNZ(result)
		c.Regs.SetC(carry)
		c.Regs.SetV(overflow)
	case 2: // ADD
		result, carry, overflow := addWithCarry(value, imm, false)
		c.Regs.Set(rd, result)
		c.Regs.SetNZ(result)
		c.Regs.SetC(carry)
		c.Regs.SetV(overflow)
	default: // SUB
		result, carry, overflow := subWithCarry(value, imm, true)
		c.Regs.Set(rd, result)
		c.Regs.SetNZ(result)
		c.Regs.SetC(carry)
		c.Regs.SetV(overflow)
	}
	return 1
}

func (c *CPU) thumbALU(op uint16) int {
	rs := int((op >> 3) & 0x7)
	rd := int(op & 0x7)
	rdValue := c.Regs.Get(rd)
	rsValue := c.Regs.Get(rs)

	cycles := 1
	switch (op >> 6) & 0xF {
	case 0x0: // AND
		result := rdValue & rsValue
		c.Regs.Set(rd, result)
		c.Regs.SetNZ(result)
	case 0x1: // EOR
		result := rdValue ^ rsValue
		c.Regs.Set(rd, result)
		c.Regs.SetNZ(result)
	case 0x2: // LSL
		result, carry := shiftLSL(rdValue, rsValue&0xFF, c.Regs.C())
		c.Regs.Set(rd, result)
		c.Regs.SetNZ(result)
		c.Regs.SetC(carry)
		cycles = 2
	case 0x3: // LSR
		result, carry := shiftLSR(rdValue, rsValue&0xFF, c.Regs.C(), false)
		c.Regs.Set(rd, result)
		c.Regs.SetNZ(result)
		c.Regs.SetC(carry)
		cycles = 2
	case 0x4: // ASR
		result, carry := shiftASR(rdValue, rsValue&0xFF, c.Regs.C(), false)
		c.Regs.Set(rd, result)
		c.Regs.SetNZ(result)
		c.Regs.SetC(carry)
		cycles = 2
	case 0x5: // ADC
		result, carry, overflow := addWithCarry(rdValue, rsValue, c.Regs.C())
		c.Regs.Set(rd, result)
		c.Regs.SetNZ(result)
		c.Regs.SetC(carry)
		c.Regs.SetV(overflow)
	case 0x6: // SBC
		result, carry, overflow := subWithCarry(rdValue, rsValue, c.Regs.C())
		c.Regs.Set(rd, result)
		c.Regs.SetNZ(result)
		c.Regs.SetC(carry)
		c.Regs.SetV(overflow)
	case 0x7: // ROR
		result, carry := shiftROR(rdValue, rsValue&0xFF, c.Regs.C(), false)
		c.Regs.Set(rd, result)
		c.Regs.SetNZ(result)
		c.Regs.SetC(carry)
		cycles = 2
	case 0x8: // TST
		c.Regs.SetNZ(rdValue & rsValue)
	case 0x9: // NEG
		result, carry, overflow := subWithCarry(0, rsValue, true)
		c.Regs.Set(rd, result)
		c.Regs.SetNZ(result)
		c.Regs.SetC(carry)
		c.Regs.SetV(overflow)
	case 0xA: // CMP
		result, carry, overflow := subWithCarry(rdValue, rsValue, true)
		c.Regs.SetNZ(result)
		c.Regs.SetC(carry)
		c.Regs.SetV(overflow)
	case 0xB: // CMN
		result, carry, overflow := addWithCarry(rdValue, rsValue, false)
		c.Regs.SetNZ(result)
		c.Regs.SetC(carry)
		c.Regs.SetV(overflow)
	case 0xC: // ORR
		result := rdValue | rsValue
		c.Regs.Set(rd, result)
		c.Regs.SetNZ(result)
	case 0xD: // MUL
		result := rdValue * rsValue
		c.Regs.Set(rd, result)
		c.Regs.SetNZ(result)
		cycles = 2
	case 0xE: // BIC
		result := rdValue &^ rsValue
		c.Regs.Set(rd, result)
		c.Regs.SetNZ(result)
	default: // MVN
		result := ^rsValue
		c.Regs.Set(rd, result)
		c.Regs.SetNZ(result)
	}
	return cycles
}

func (c *CPU) thumbHiRegister(op uint16) int {
	rs := int((op >> 3) & 0x7)
	rd := int(op & 0x7)
	if op&(1<<6) != 0 {
		rs += 8
	}
	if op&(1<<7) != 0 {
		rd += 8
	}

	rsValue := c.Regs.Get(rs)
	if rs == 15 {
		rsValue = c.prefetchPC()
	}

	switch (op >> 8) & 0x3 {
	case 0: // ADD, flags untouched
		c.Regs.Set(rd, c.Regs.Get(rd)+rsValue)
		if rd == 15 {
			return 3
		}
	case 1: // CMP
		result, carry, overflow := subWithCarry(c.Regs.Get(rd), rsValue, true)
		c.Regs.SetNZ(result)
		c.Regs.SetC(carry)
		c.Regs.SetV(overflow)
	case 2: // MOV
		c.Regs.Set(rd, rsValue)
		if rd == 15 {
			return 3
		}
	default: // BX
		c.Regs.SetThumb(rsValue&1 == 1)
		c.Regs.SetPC(rsValue)
		return 3
	}
	return 1
}

func (c *CPU) thumbPCLoad(op uint16) int {
	rd := int((op >> 8) & 0x7)
	offset := uint32(op&0xFF) << 2
	address := (c.prefetchPC() &^ 3) + offset
	c.Regs.Set(rd, c.bus.Read32(address))
	return 3
}

func (c *CPU) thumbLoadStoreRegister(op uint16) int {
	load := op&(1<<11) != 0
	byteTransfer := op&(1<<10) != 0
	ro := int((op >> 6) & 0x7)
	rb := int((op >> 3) & 0x7)
	rd := int(op & 0x7)

	address := c.Regs.Get(rb) + c.Regs.Get(ro)

	if load {
		if byteTransfer {
			c.Regs.Set(rd, uint32(c.bus.Read8(address)))
		} else {
			c.Regs.Set(rd, bit.RotateRight(c.bus.Read32(address), uint(address&3)*8))
		}
		return 3
	}
	if byteTransfer {
		c.bus.Write8(address, uint8(c.Regs.Get(rd)))
	} else {
		c.bus.Write32(address, c.Regs.Get(rd))
	}
	return 2
}

func (c *CPU) thumbLoadStoreSigned(op uint16) int {
	ro := int((op >> 6) & 0x7)
	rb := int((op >> 3) & 0x7)
	rd := int(op & 0x7)
	address := c.Regs.Get(rb) + c.Regs.Get(ro)

	hFlag := op&(1<<11) != 0
	sFlag := op&(1<<10) != 0

	switch {
	case !sFlag && !hFlag: // STRH
		c.bus.Write16(address, uint16(c.Regs.Get(rd)))
		return 2
	case !sFlag: // LDRH
		c.Regs.Set(rd, uint32(c.bus.Read16(address)))
	case !hFlag: // LDRSB
		c.Regs.Set(rd, bit.SignExtend8(uint32(c.bus.Read8(address))))
	default: // LDRSH
		if address&1 == 1 {
			c.Regs.Set(rd, bit.SignExtend8(uint32(c.bus.Read8(address))))
		} else {
			c.Regs.Set(rd, bit.SignExtend16(uint32(c.bus.Read16(address))))
		}
	}
	return 3
}

func (c *CPU) thumbLoadStoreImmediate(op uint16) int {
	byteTransfer := op&(1<<12) != 0
	load := op&(1<<11) != 0
	offset := uint32((op >> 6) & 0x1F)
	rb := int((op >> 3) & 0x7)
	rd := int(op & 0x7)

	if !byteTransfer {
		offset <<= 2
	}
	address := c.Regs.Get(rb) + offset

	if load {
		if byteTransfer {
			c.Regs.Set(rd, uint32(c.bus.Read8(address)))
		} else {
			c.Regs.Set(rd, bit.RotateRight(c.bus.Read32(address), uint(address&3)*8))
		}
		return 3
	}
	if byteTransfer {
		c.bus.Write8(address, uint8(c.Regs.Get(rd)))
	} else {
		c.bus.Write32(address, c.Regs.Get(rd))
	}
	return 2
}

func (c *CPU) thumbLoadStoreHalfword(op uint16) int {
	load := op&(1<<11) != 0
	offset := uint32((op>>6)&0x1F) << 1
	rb := int((op >> 3) & 0x7)
	rd := int(op & 0x7)
	address := c.Regs.Get(rb) + offset

	if load {
		c.Regs.Set(rd, uint32(c.bus.Read16(address)))
		return 3
	}
	c.bus.Write16(address, uint16(c.Regs.Get(rd)))
	return 2
}

func (c *CPU) thumbSPRelative(op uint16) int {
	load := op&(1<<11) != 0
	rd := int((op >> 8) & 0x7)
	offset := uint32(op&0xFF) << 2
	address := c.Regs.SP() + offset

	if load {
		c.Regs.Set(rd, c.bus.Read32(address))
		return 3
	}
	c.bus.Write32(address, c.Regs.Get(rd))
	return 2
}

func (c *CPU) thumbLoadAddress(op uint16) int {
	rd := int((op >> 8) & 0x7)
	offset := uint32(op&0xFF) << 2

	base := c.prefetchPC() &^ 3
	if op&(1<<11) != 0 {
		base = c.Regs.SP()
	}
	c.Regs.Set(rd, base+offset)
	return 1
}

func (c *CPU) thumbAdjustSP(op uint16) int {
	offset := uint32(op&0x7F) << 2
	if op&(1<<7) != 0 {
		c.Regs.SetSP(c.Regs.SP() - offset)
	} else {
		c.Regs.SetSP(c.Regs.SP() + offset)
	}
	return 1
}

func (c *CPU) thumbPushPop(op uint16) int {
	load := op&(1<<11) != 0
	pcLR := op&(1<<8) != 0
	rlist := op & 0xFF

	count := bit.CountOnes(rlist)
	if pcLR {
		count++
	}
	cycles := 2

	if load { // POP
		address := c.Regs.SP()
		for i := 0; i < 8; i++ {
			if rlist&(1<<i) != 0 {
				c.Regs.Set(i, c.bus.Read32(address))
				address += 4
				cycles++
			}
		}
		if pcLR {
			value := c.bus.Read32(address)
			c.Regs.SetThumb(value&1 == 1)
			c.Regs.SetPC(value)
			address += 4
			cycles += 2
		}
		c.Regs.SetSP(address)
		return cycles
	}

	// PUSH
	address := c.Regs.SP() - uint32(count)*4
	c.Regs.SetSP(address)
	for i := 0; i < 8; i++ {
		if rlist&(1<<i) != 0 {
			c.bus.Write32(address, c.Regs.Get(i))
			address += 4
			cycles++
		}
	}
	if pcLR {
		c.bus.Write32(address, c.Regs.LR())
		cycles++
	}
	return cycles
}

func (c *CPU) thumbMultiple(op uint16) int {
	load := op&(1<<11) != 0
	rb := int((op >> 8) & 0x7)
	rlist := op & 0xFF

	address := c.Regs.Get(rb)
	cycles := 2

	for i := 0; i < 8; i++ {
		if rlist&(1<<i) == 0 {
			continue
		}
		if load {
			c.Regs.Set(i, c.bus.Read32(address))
		} else {
			c.bus.Write32(address, c.Regs.Get(i))
		}
		address += 4
		cycles++
	}

	// Writeback is suppressed when the base register is loaded.
	if !(load && rlist&(1<<rb) != 0) {
		c.Regs.Set(rb, address)
	}
	return cycles
}

func (c *CPU) thumbConditionalBranch(op uint16) int {
	cond := uint32((op >> 8) & 0xF)
	if !c.Regs.CheckCondition(cond) {
		return 1
	}
	offset := bit.SignExtend8(uint32(op&0xFF)) << 1
	c.Regs.SetPC(c.prefetchPC() + offset)
	return 3
}

func (c *CPU) thumbBranch(op uint16) int {
	offset := bit.SignExtend(uint32(op&0x7FF), 11) << 1
	c.Regs.SetPC(c.prefetchPC() + offset)
	return 3
}

func (c *CPU) thumbLongBranchLink(op uint16) int {
	offset := uint32(op & 0x7FF)

	if op&(1<<11) == 0 {
		// First half: stash the upper part of the target in LR.
		c.Regs.SetLR(c.prefetchPC() + (bit.SignExtend(offset, 11) << 12))
		return 1
	}

	// Second half: jump and leave the return address (with the THUMB
	// bit set) in LR.
	next := c.currentPC + 2
	target := c.Regs.LR() + (offset << 1)
	c.Regs.SetLR(next | 1)
	c.Regs.SetPC(target)
	return 3
}

func (c *CPU) thumbSWI(op uint16) int {
	c.raiseSWI()
	return 3
}

func (c *CPU) thumbUndefined(op uint16) int {
	c.raiseUndefined()
	return 3
}

package bit

// IsSet will check if the bit at the specified index is set to 1 or not.
func IsSet(index uint, value uint32) bool {
	return ((value >> index) & 1) == 1
}

// IsSet16 checks a bit in a 16 bit value.
func IsSet16(index uint, value uint16) bool {
	return ((value >> index) & 1) == 1
}

// Set returns the passed value with the bit at the specified index set to 1.
func Set(index uint, value uint32) uint32 {
	return value | (1 << index)
}

// Reset returns the passed value with the bit at the specified index set to 0.
func Reset(index uint, value uint32) uint32 {
	return value &^ (1 << index)
}

// Extract extracts bits from highBit to lowBit (inclusive).
// Example: Extract(0b11010110, 6, 4) -> 0b101 (bits 6, 5, 4)
func Extract(value uint32, highBit, lowBit uint) uint32 {
	width := highBit - lowBit + 1
	mask := uint32(1)<<width - 1
	return (value >> lowBit) & mask
}

// SignExtend8 widens an 8-bit value preserving its sign.
func SignExtend8(value uint32) uint32 {
	return uint32(int32(int8(value)))
}

// SignExtend16 widens a 16-bit value preserving its sign.
func SignExtend16(value uint32) uint32 {
	return uint32(int32(int16(value)))
}

// SignExtend widens a value of the given bit width preserving its sign.
func SignExtend(value uint32, bits uint) uint32 {
	shift := 32 - bits
	return uint32(int32(value<<shift) >> shift)
}

// RotateRight rotates a 32 bit value right by the given amount.
func RotateRight(value uint32, amount uint) uint32 {
	amount &= 31
	if amount == 0 {
		return value
	}
	return (value >> amount) | (value << (32 - amount))
}

// Combine16 combines two bytes into a 16 bit value, low byte first.
func Combine16(low, high uint8) uint16 {
	return uint16(low) | (uint16(high) << 8)
}

// Low returns the low byte of a 16 bit value.
func Low(value uint16) uint8 {
	return uint8(value)
}

// High returns the high byte of a 16 bit value.
func High(value uint16) uint8 {
	return uint8(value >> 8)
}

// CountOnes counts the set bits in a 16 bit register list.
func CountOnes(value uint16) int {
	count := 0
	for value != 0 {
		count += int(value & 1)
		value >>= 1
	}
	return count
}

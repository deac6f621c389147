package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbianchi/go-advance/advance/addr"
)

func TestReadWidthComposition(t *testing.T) {
	b := New()
	b.Write32(0x02000010, 0x44332211)

	// A halfword is always the two bytes under it.
	for _, address := range []uint32{0x02000010, 0x02000012} {
		expected := uint16(b.Read8(address)) | uint16(b.Read8(address+1))<<8
		assert.Equal(t, expected, b.Read16(address))
	}
	assert.Equal(t, uint32(0x44332211), b.Read32(0x02000010))
}

func TestWriteThenRead(t *testing.T) {
	b := New()

	regions := []uint32{
		0x02000000, // EWRAM
		0x03000000, // IWRAM
		0x05000000, // palette
		0x06000000, // VRAM
		0x07000000, // OAM
	}
	for _, base := range regions {
		b.Write16(base+0x20, 0xBEEF)
		assert.Equal(t, uint16(0xBEEF), b.Read16(base+0x20), "region 0x%08X", base)
	}
}

func TestRAMMirrors(t *testing.T) {
	b := New()

	b.Write16(0x02000000, 0x1234)
	assert.Equal(t, uint16(0x1234), b.Read16(0x02040000), "EWRAM mirrors every 256 KiB")

	b.Write16(0x03000000, 0x5678)
	assert.Equal(t, uint16(0x5678), b.Read16(0x03008000), "IWRAM mirrors every 32 KiB")

	// The top 32 KiB of the VRAM window mirrors the tail below it.
	b.Write16(0x06010000, 0x9ABC)
	assert.Equal(t, uint16(0x9ABC), b.Read16(0x06018000))
}

func TestPaletteByteWriteDuplicates(t *testing.T) {
	b := New()
	b.Write8(0x05000003, 0x7F)

	assert.Equal(t, uint8(0x7F), b.Read8(0x05000002))
	assert.Equal(t, uint8(0x7F), b.Read8(0x05000003))
}

func TestVRAMByteWriteRules(t *testing.T) {
	b := New()

	// BG VRAM widens byte stores to both halves.
	b.Write8(0x06000001, 0x42)
	assert.Equal(t, uint8(0x42), b.Read8(0x06000000))
	assert.Equal(t, uint8(0x42), b.Read8(0x06000001))

	// OBJ VRAM ignores byte stores.
	b.Write8(0x06010000, 0x42)
	assert.Equal(t, uint8(0), b.Read8(0x06010000))
}

func TestOAMIgnoresByteWrites(t *testing.T) {
	b := New()
	b.Write8(0x07000000, 0x42)
	assert.Equal(t, uint8(0), b.Read8(0x07000000))

	b.Write16(0x07000000, 0x1234)
	assert.Equal(t, uint16(0x1234), b.Read16(0x07000000))
}

func TestROMOutOfRangeReadsAddressPattern(t *testing.T) {
	b := New()
	require.NoError(t, b.LoadROM([]byte{1, 2, 3, 4}))

	// Past the ROM each byte lane sees the address pattern.
	assert.Equal(t, uint8(0x80), b.Read8(0x08000100))
	assert.Equal(t, uint8(0x81), b.Read8(0x08000102))
	assert.Equal(t, uint16(0x8080), b.Read16(0x08000100))
}

func TestROMMirrors(t *testing.T) {
	b := New()
	rom := make([]byte, 8)
	rom[0] = 0xAB
	require.NoError(t, b.LoadROM(rom))

	assert.Equal(t, uint8(0xAB), b.Read8(0x08000000))
	assert.Equal(t, uint8(0xAB), b.Read8(0x0A000000))
	assert.Equal(t, uint8(0xAB), b.Read8(0x0C000000))
}

func TestBIOSOpenBus(t *testing.T) {
	b := New()
	bios := make([]byte, 16)
	bios[0] = 0xAA
	require.NoError(t, b.LoadBIOS(bios))

	// Executing inside the BIOS reads normally.
	b.SetFetchPC(0x00000000)
	assert.Equal(t, uint8(0xAA), b.Read8(0x00000000))

	// From outside, the last BIOS fetch is all the bus returns.
	b.SetFetchPC(0x08000000)
	assert.Equal(t, uint8(0xAA), b.Read8(0x00000004))
}

func TestIFWriteOneToClear(t *testing.T) {
	b := New()
	b.RaiseIRQ(addr.VBlankInterrupt)
	b.RaiseIRQ(addr.Timer0Interrupt)
	require.Equal(t, uint16(0x0009), b.Read16(0x04000202))

	// Writing 0 leaves everything alone.
	b.Write16(0x04000202, 0x0000)
	assert.Equal(t, uint16(0x0009), b.Read16(0x04000202))

	// Writing 1 clears only that bit.
	b.Write16(0x04000202, uint16(addr.VBlankInterrupt))
	assert.Equal(t, uint16(0x0008), b.Read16(0x04000202))

	// Byte-wide acknowledges work too.
	b.Write8(0x04000202, uint8(addr.Timer0Interrupt))
	assert.Equal(t, uint16(0x0000), b.Read16(0x04000202))
}

func TestIRQPending(t *testing.T) {
	b := New()
	b.RaiseIRQ(addr.KeypadInterrupt)
	assert.False(t, b.IRQPending(), "masked by IME")

	b.Write16(0x04000208, 1)
	assert.False(t, b.IRQPending(), "masked by IE")

	b.Write16(0x04000200, uint16(addr.KeypadInterrupt))
	assert.True(t, b.IRQPending())

	b.Write16(0x04000202, uint16(addr.KeypadInterrupt))
	assert.False(t, b.IRQPending(), "acknowledged")
}

func TestIOMasks(t *testing.T) {
	b := New()

	// Scroll registers are write-only.
	b.Write16(0x04000010, 0x01FF)
	assert.Equal(t, uint16(0), b.Read16(0x04000010))

	// IME keeps a single bit.
	b.Write16(0x04000208, 0xFFFF)
	assert.Equal(t, uint16(1), b.Read16(0x04000208))

	// VCOUNT ignores writes entirely.
	b.Write16(0x04000006, 0x1234)
	assert.Equal(t, uint16(0), b.Read16(0x04000006))
}

func TestKeypadInput(t *testing.T) {
	b := New()
	assert.Equal(t, uint16(0x03FF), b.Read16(0x04000130), "all keys released")

	b.SetKey(addr.KeyA, true)
	assert.Equal(t, uint16(0x03FE), b.Read16(0x04000130))

	b.SetKey(addr.KeyA, false)
	assert.Equal(t, uint16(0x03FF), b.Read16(0x04000130))
}

func TestKeypadIRQANDMode(t *testing.T) {
	b := New()
	b.Write16(0x04000132, 0xC003) // IRQ enable, AND mode, A+B

	b.SetKey(addr.KeyA, true)
	assert.Equal(t, uint16(0), b.ioRaw16(addr.IF)&uint16(addr.KeypadInterrupt))

	b.SetKey(addr.KeyB, true)
	assert.NotEqual(t, uint16(0), b.ioRaw16(addr.IF)&uint16(addr.KeypadInterrupt))
}

func TestKeypadIRQORMode(t *testing.T) {
	b := New()
	b.Write16(0x04000132, 0x4003) // IRQ enable, OR mode, A+B

	b.SetKey(addr.KeyB, true)
	assert.NotEqual(t, uint16(0), b.ioRaw16(addr.IF)&uint16(addr.KeypadInterrupt))
}

func TestSaveTypeDetection(t *testing.T) {
	cases := []struct {
		marker   string
		expected SaveType
	}{
		{"SRAM_V113", SaveSRAM},
		{"FLASH_V120", SaveFlash64K},
		{"FLASH512_V131", SaveFlash64K},
		{"FLASH1M_V103", SaveFlash128K},
		{"EEPROM_V124", SaveEEPROM8K},
		{"", SaveSRAM},
	}
	for _, tc := range cases {
		b := New()
		rom := make([]byte, 0x100)
		copy(rom[0x40:], tc.marker)
		require.NoError(t, b.LoadROM(rom))
		assert.Equal(t, tc.expected, b.save.Type(), "marker %q", tc.marker)
	}
}

func TestWaitcntDecode(t *testing.T) {
	b := New()

	// Default timings.
	assert.Equal(t, 4, b.accessWait(0x08000000, false))
	assert.Equal(t, 2, b.accessWait(0x08000000, true))
	assert.Equal(t, 4, b.accessWait(0x0E000000, false))

	// WS0 nonseq 3, seq 1; SRAM 8.
	b.Write16(0x04000204, 0x0017)
	assert.Equal(t, 3, b.accessWait(0x08000000, false))
	assert.Equal(t, 1, b.accessWait(0x08000000, true))
	assert.Equal(t, 8, b.accessWait(0x0E000000, false))
}

func TestOpenBusUnmappedRegion(t *testing.T) {
	b := New()
	b.Write32(0x02000000, 0x13579BDF)
	_ = b.Read32(0x02000000)

	// Unmapped regions echo the last value seen on the bus.
	assert.Equal(t, uint32(0x13579BDF), b.Read32(0x10000000))
}

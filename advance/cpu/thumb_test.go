package cpu

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbianchi/go-advance/advance/memory"
)

// newThumbCPU places the given halfwords in IWRAM and starts the CPU on
// them in THUMB state.
func newThumbCPU(t *testing.T, halfwords ...uint16) (*CPU, *memory.Bus) {
	t.Helper()
	bus := memory.New()
	rom := make([]byte, 4)
	binary.LittleEndian.PutUint32(rom, 0xE3A00000)
	require.NoError(t, bus.LoadROM(rom))

	c := New(bus)
	for i, h := range halfwords {
		bus.Write16(0x03000000+uint32(i)*2, h)
	}
	c.Regs.SetThumb(true)
	c.Regs.SetPC(0x03000000)
	return c, bus
}

func TestThumbShiftImmediate(t *testing.T) {
	c, _ := newThumbCPU(t,
		0x0109, // LSL R1, R1, #4
		0x0852, // LSR R2, R2, #1
		0x11DB, // ASR R3, R3, #7
	)
	c.Regs.Set(1, 0x0000000F)
	c.Regs.Set(2, 0x00000003)
	c.Regs.Set(3, 0xFFFFFF80)

	c.Step()
	assert.Equal(t, uint32(0xF0), c.Regs.Get(1))

	c.Step()
	assert.Equal(t, uint32(1), c.Regs.Get(2))
	assert.True(t, c.Regs.C(), "LSR shifts bit 0 into carry")

	c.Step()
	assert.Equal(t, uint32(0xFFFFFFFF), c.Regs.Get(3))
}

func TestThumbAddSubRegister(t *testing.T) {
	c, _ := newThumbCPU(t,
		0x1888, // ADD R0, R1, R2
		0x1A88, // SUB R0, R1, R2
	)
	c.Regs.Set(1, 10)
	c.Regs.Set(2, 4)

	c.Step()
	assert.Equal(t, uint32(14), c.Regs.Get(0))

	c.Step()
	assert.Equal(t, uint32(6), c.Regs.Get(0))
	assert.True(t, c.Regs.C())
	assert.False(t, c.Regs.N())
}

func TestThumbImmediateOps(t *testing.T) {
	c, _ := newThumbCPU(t,
		0x2042, // MOV R0, #0x42
		0x3005, // ADD R0, #5
		0x3810, // SUB R0, #0x10
		0x2837, // CMP R0, #0x37
	)
	step(c, 4)

	assert.Equal(t, uint32(0x37), c.Regs.Get(0))
	assert.True(t, c.Regs.Z())
	assert.True(t, c.Regs.C())
}

func TestThumbALUOperations(t *testing.T) {
	c, _ := newThumbCPU(t,
		0x4008, // AND R0, R1
		0x4048, // EOR R0, R1
		0x4248, // NEG R0, R1
	)
	c.Regs.Set(0, 0xFF)
	c.Regs.Set(1, 0x0F)

	c.Step()
	assert.Equal(t, uint32(0x0F), c.Regs.Get(0))

	c.Step()
	assert.Equal(t, uint32(0), c.Regs.Get(0))
	assert.True(t, c.Regs.Z())

	c.Step()
	assert.Equal(t, uint32(0xFFFFFFF1), c.Regs.Get(0))
}

func TestThumbShiftByRegister(t *testing.T) {
	c, _ := newThumbCPU(t,
		0x4088, // LSL R0, R1
	)
	c.Regs.Set(0, 1)
	c.Regs.Set(1, 33) // register shifts beyond 32 flush to zero
	c.Step()

	assert.Equal(t, uint32(0), c.Regs.Get(0))
	assert.False(t, c.Regs.C())
	assert.True(t, c.Regs.Z())
}

func TestThumbHiRegisterAddAndBX(t *testing.T) {
	c, _ := newThumbCPU(t,
		0x4448, // ADD R0, R9
		0x4748, // BX R9
	)
	c.Regs.Set(0, 1)
	c.Regs.Set(9, 0x03000010)
	c.Step()
	assert.Equal(t, uint32(0x03000011), c.Regs.Get(0))

	c.Step()
	assert.False(t, c.Regs.Thumb(), "even target switches back to ARM")
	assert.Equal(t, uint32(0x03000010), c.Regs.PC())
}

func TestThumbPCRelativeLoad(t *testing.T) {
	c, bus := newThumbCPU(t,
		0x4801, // LDR R0, [PC, #4]
	)
	// PC+4 aligned down is 0x03000004; plus 4 is 0x03000008.
	bus.Write32(0x03000008, 0xDEADBEEF)
	c.Step()
	assert.Equal(t, uint32(0xDEADBEEF), c.Regs.Get(0))
}

func TestThumbLoadStoreOffsets(t *testing.T) {
	c, bus := newThumbCPU(t,
		0x6008, // STR R0, [R1]
		0x684A, // LDR R2, [R1, #4]
		0x7088, // STRB R0, [R1, #2]
	)
	c.Regs.Set(0, 0x11223344)
	c.Regs.Set(1, 0x02000040)
	bus.Write32(0x02000044, 0x55667788)
	step(c, 3)

	assert.Equal(t, uint32(0x11443344), bus.Read32(0x02000040))
	assert.Equal(t, uint32(0x55667788), c.Regs.Get(2))
	assert.Equal(t, uint8(0x44), bus.Read8(0x02000042))
}

func TestThumbSignExtendedLoads(t *testing.T) {
	c, bus := newThumbCPU(t,
		0x5E53, // LDSH R3, [R2, R1]
		0x5653, // LDSB R3, [R2, R1]
	)
	bus.Write16(0x02000050, 0x80FF)
	c.Regs.Set(1, 0)
	c.Regs.Set(2, 0x02000050)

	c.Step()
	assert.Equal(t, uint32(0xFFFF80FF), c.Regs.Get(3))

	c.Regs.SetPC(0x03000002)
	c.Step()
	assert.Equal(t, uint32(0xFFFFFFFF), c.Regs.Get(3))
}

func TestThumbPushPop(t *testing.T) {
	c, bus := newThumbCPU(t,
		0xB507, // PUSH {R0-R2, LR}
		0x2000, // MOV R0, #0
		0x2100, // MOV R1, #0
		0x2200, // MOV R2, #0
		0xBC07, // POP {R0-R2}
	)
	c.Regs.SetSP(0x03007F00)
	c.Regs.Set(0, 0x11111111)
	c.Regs.Set(1, 0x22222222)
	c.Regs.Set(2, 0x33333333)
	c.Regs.SetLR(0x08001001)
	step(c, 5)

	assert.Equal(t, uint32(0x11111111), c.Regs.Get(0))
	assert.Equal(t, uint32(0x22222222), c.Regs.Get(1))
	assert.Equal(t, uint32(0x33333333), c.Regs.Get(2))
	// LR is still on the stack, one word below the original top.
	assert.Equal(t, uint32(0x03007EFC), c.Regs.SP())
	assert.Equal(t, uint32(0x08001001), bus.Read32(0x03007EFC))
}

func TestThumbPopPCSwitchesState(t *testing.T) {
	c, bus := newThumbCPU(t,
		0xBD00, // POP {PC}
	)
	c.Regs.SetSP(0x03007F00)
	bus.Write32(0x03007F00, 0x03000010) // bit 0 clear: back to ARM
	c.Step()

	assert.False(t, c.Regs.Thumb())
	assert.Equal(t, uint32(0x03000010), c.Regs.PC())
	assert.Equal(t, uint32(0x03007F04), c.Regs.SP())
}

func TestThumbMultipleWritebackSuppression(t *testing.T) {
	c, bus := newThumbCPU(t,
		0xC906, // LDMIA R1!, {R1, R2}
	)
	bus.Write32(0x02000060, 0xAAAA5555)
	bus.Write32(0x02000064, 0x5555AAAA)
	c.Regs.Set(1, 0x02000060)
	c.Step()

	// R1 is in the list: the loaded value wins over writeback.
	assert.Equal(t, uint32(0xAAAA5555), c.Regs.Get(1))
	assert.Equal(t, uint32(0x5555AAAA), c.Regs.Get(2))
}

func TestThumbConditionalBranch(t *testing.T) {
	c, _ := newThumbCPU(t,
		0x2800, // CMP R0, #0
		0xD000, // BEQ +0
		0x2101, // MOV R1, #1 (skipped)
		0x2102, // MOV R1, #2
	)
	step(c, 3)

	assert.Equal(t, uint32(2), c.Regs.Get(1))
}

func TestThumbLongBranchWithLink(t *testing.T) {
	c, _ := newThumbCPU(t,
		0xF000, // BL prefix, offset high 0
		0xF802, // BL suffix, offset 2 halfwords
	)
	step(c, 2)

	// Target = (pc of prefix + 4) + (2 << 1) = 0x03000008.
	assert.Equal(t, uint32(0x03000008), c.Regs.PC())
	// LR holds the return address with the THUMB bit set.
	assert.Equal(t, uint32(0x03000005), c.Regs.LR())
}

func TestThumbSPOps(t *testing.T) {
	c, _ := newThumbCPU(t,
		0xB082, // SUB SP, #8
		0xA801, // ADD R0, SP, #4
		0xB002, // ADD SP, #8
	)
	c.Regs.SetSP(0x03007F00)
	step(c, 3)

	assert.Equal(t, uint32(0x03007F00), c.Regs.SP())
	assert.Equal(t, uint32(0x03007EFC), c.Regs.Get(0))
}

package addr

// I/O register offsets from 0x04000000.

// lcd registers
const (
	// DISPCNT is the display control register.
	DISPCNT uint32 = 0x000
	// GREENSWAP is the undocumented green-swap register.
	GREENSWAP uint32 = 0x002
	// DISPSTAT is the display status register.
	DISPSTAT uint32 = 0x004
	// VCOUNT is the vertical counter (current scanline, read-only).
	VCOUNT uint32 = 0x006

	// Background control.
	BG0CNT uint32 = 0x008
	BG1CNT uint32 = 0x00A
	BG2CNT uint32 = 0x00C
	BG3CNT uint32 = 0x00E

	// Background scroll (write-only).
	BG0HOFS uint32 = 0x010
	BG0VOFS uint32 = 0x012
	BG1HOFS uint32 = 0x014
	BG1VOFS uint32 = 0x016
	BG2HOFS uint32 = 0x018
	BG2VOFS uint32 = 0x01A
	BG3HOFS uint32 = 0x01C
	BG3VOFS uint32 = 0x01E

	// BG2/BG3 rotation and scaling parameters.
	BG2PA uint32 = 0x020
	BG2PB uint32 = 0x022
	BG2PC uint32 = 0x024
	BG2PD uint32 = 0x026
	BG2X  uint32 = 0x028
	BG2Y  uint32 = 0x02C
	BG3PA uint32 = 0x030
	BG3PB uint32 = 0x032
	BG3PC uint32 = 0x034
	BG3PD uint32 = 0x036
	BG3X  uint32 = 0x038
	BG3Y  uint32 = 0x03C

	// Window registers.
	WIN0H  uint32 = 0x040
	WIN1H  uint32 = 0x042
	WIN0V  uint32 = 0x044
	WIN1V  uint32 = 0x046
	WININ  uint32 = 0x048
	WINOUT uint32 = 0x04A

	// Effect registers.
	MOSAIC   uint32 = 0x04C
	BLDCNT   uint32 = 0x050
	BLDALPHA uint32 = 0x052
	BLDY     uint32 = 0x054
)

// sound registers
const (
	SOUND1CNTL uint32 = 0x060 // channel 1 sweep
	SOUND1CNTH uint32 = 0x062 // channel 1 duty/length/envelope
	SOUND1CNTX uint32 = 0x064 // channel 1 frequency/control
	SOUND2CNTL uint32 = 0x068 // channel 2 duty/length/envelope
	SOUND2CNTH uint32 = 0x06C // channel 2 frequency/control
	SOUND3CNTL uint32 = 0x070 // channel 3 stop/wave RAM select
	SOUND3CNTH uint32 = 0x072 // channel 3 length/volume
	SOUND3CNTX uint32 = 0x074 // channel 3 frequency/control
	SOUND4CNTL uint32 = 0x078 // channel 4 length/envelope
	SOUND4CNTH uint32 = 0x07C // channel 4 frequency/control
	SOUNDCNTL  uint32 = 0x080 // PSG mixing
	SOUNDCNTH  uint32 = 0x082 // direct sound control
	SOUNDCNTX  uint32 = 0x084 // master enable and channel status
	SOUNDBIAS  uint32 = 0x088 // PWM bias

	WaveRAMStart uint32 = 0x090
	WaveRAMEnd   uint32 = 0x09F

	FIFOA uint32 = 0x0A0
	FIFOB uint32 = 0x0A4
)

// dma registers
const (
	DMA0SAD  uint32 = 0x0B0
	DMA0DAD  uint32 = 0x0B4
	DMA0CNTL uint32 = 0x0B8
	DMA0CNTH uint32 = 0x0BA
	DMA1SAD  uint32 = 0x0BC
	DMA1DAD  uint32 = 0x0C0
	DMA1CNTL uint32 = 0x0C4
	DMA1CNTH uint32 = 0x0C6
	DMA2SAD  uint32 = 0x0C8
	DMA2DAD  uint32 = 0x0CC
	DMA2CNTL uint32 = 0x0D0
	DMA2CNTH uint32 = 0x0D2
	DMA3SAD  uint32 = 0x0D4
	DMA3DAD  uint32 = 0x0D8
	DMA3CNTL uint32 = 0x0DC
	DMA3CNTH uint32 = 0x0DE
)

// timer registers
const (
	TM0CNTL uint32 = 0x100
	TM0CNTH uint32 = 0x102
	TM1CNTL uint32 = 0x104
	TM1CNTH uint32 = 0x106
	TM2CNTL uint32 = 0x108
	TM2CNTH uint32 = 0x10A
	TM3CNTL uint32 = 0x10C
	TM3CNTH uint32 = 0x10E
)

// keypad registers
const (
	// KEYINPUT is the key status register (read-only, active low).
	KEYINPUT uint32 = 0x130
	// KEYCNT is the key interrupt control register.
	KEYCNT uint32 = 0x132
)

// interrupt and system registers
const (
	// IE is the interrupt enable register.
	IE uint32 = 0x200
	// IF is the interrupt request register. Writing 1 to a bit clears it.
	IF uint32 = 0x202
	// WAITCNT is the game pak wait state control register.
	WAITCNT uint32 = 0x204
	// IME is the interrupt master enable register.
	IME uint32 = 0x208
	// POSTFLG is the post boot flag.
	POSTFLG uint32 = 0x300
	// HALTCNT is the halt control register (write-only).
	HALTCNT uint32 = 0x301
)

// Interrupt is a bit in the IE/IF registers.
type Interrupt uint16

const (
	// VBlankInterrupt fires when the PPU enters the vertical blank period.
	VBlankInterrupt Interrupt = 0x0001
	// HBlankInterrupt fires at the start of each horizontal blank.
	HBlankInterrupt Interrupt = 0x0002
	// VCountInterrupt fires when VCOUNT matches the DISPSTAT target.
	VCountInterrupt Interrupt = 0x0004
	// Timer0Interrupt through Timer3Interrupt fire on counter overflow.
	Timer0Interrupt Interrupt = 0x0008
	Timer1Interrupt Interrupt = 0x0010
	Timer2Interrupt Interrupt = 0x0020
	Timer3Interrupt Interrupt = 0x0040
	// SerialInterrupt fires on link transfer completion.
	SerialInterrupt Interrupt = 0x0080
	// DMA0Interrupt through DMA3Interrupt fire when a channel finishes.
	DMA0Interrupt Interrupt = 0x0100
	DMA1Interrupt Interrupt = 0x0200
	DMA2Interrupt Interrupt = 0x0400
	DMA3Interrupt Interrupt = 0x0800
	// KeypadInterrupt fires on a KEYCNT match.
	KeypadInterrupt Interrupt = 0x1000
	// GamePakInterrupt fires when the cartridge is removed.
	GamePakInterrupt Interrupt = 0x2000
)

// TimerInterrupt returns the IF bit for the given timer id.
func TimerInterrupt(id int) Interrupt {
	return Timer0Interrupt << uint(id)
}

// DMAInterrupt returns the IF bit for the given DMA channel.
func DMAInterrupt(channel int) Interrupt {
	return DMA0Interrupt << uint(channel)
}

// Key bits as used by KEYINPUT/KEYCNT and the host API (active high on
// the host side, inverted to active low internally).
const (
	KeyA      uint16 = 0x0001
	KeyB      uint16 = 0x0002
	KeySelect uint16 = 0x0004
	KeyStart  uint16 = 0x0008
	KeyRight  uint16 = 0x0010
	KeyLeft   uint16 = 0x0020
	KeyUp     uint16 = 0x0040
	KeyDown   uint16 = 0x0080
	KeyR      uint16 = 0x0100
	KeyL      uint16 = 0x0200
)

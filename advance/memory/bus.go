package memory

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/mbianchi/go-advance/advance/audio"
)

// Region sizes.
const (
	biosSize    = 0x4000
	ewramSize   = 0x40000
	iwramSize   = 0x8000
	paletteSize = 0x400
	vramSize    = 0x18000
	oamSize     = 0x400
	ioSize      = 0x400
	romLimit    = 0x02000000
)

// VideoUnit is the part of the PPU the bus needs for I/O dispatch:
// DISPSTAT and VCOUNT are live values owned by the video side.
type VideoUnit interface {
	DispStat() uint16
	WriteDispStat(value uint16)
	VCount() uint16
}

// Processor is the part of the CPU the bus needs: HALTCNT writes put the
// core to sleep.
type Processor interface {
	Halt()
	Stop()
}

// Bus owns every memory region of the system and routes 8/16/32-bit
// accesses to them, applying per-region mirrors, width rules and I/O
// masks. The CPU, PPU, APU and DMA engines all go through it.
type Bus struct {
	bios    []byte
	ewram   []byte
	iwram   []byte
	palette []byte
	vram    []byte
	oam     []byte
	rom     []byte
	io      []byte

	save *Save

	// APU lives behind the sound register block and the FIFO ports.
	APU *audio.APU
	// Video answers DISPSTAT/VCOUNT and receives DISPSTAT writes.
	Video VideoUnit
	// Proc receives halt/stop requests from HALTCNT.
	Proc Processor

	Timers [4]Timer
	DMA    [4]DMAChannel

	// keys holds the KEYINPUT value: active low, bit set = released.
	keys uint16

	// fetchPC tracks where the CPU is executing; the BIOS is only
	// readable while it executes from inside the BIOS.
	fetchPC      uint32
	lastBIOSRead uint32
	openBus      uint32

	// Decoded WAITCNT state.
	waitcnt        uint16
	sramWait       int
	romNonSeq      [3]int
	romSeq         [3]int
	prefetchEnable bool
}

// New creates a bus with empty memory regions and no cartridge.
func New() *Bus {
	b := &Bus{
		bios:    make([]byte, biosSize),
		ewram:   make([]byte, ewramSize),
		iwram:   make([]byte, iwramSize),
		palette: make([]byte, paletteSize),
		vram:    make([]byte, vramSize),
		oam:     make([]byte, oamSize),
		io:      make([]byte, ioSize),
		save:    NewSave(SaveSRAM),
		APU:     audio.New(),
		keys:    0x03FF,
	}
	b.writeWaitcnt(0)
	for i := range b.DMA {
		b.DMA[i].id = i
	}
	for i := range b.Timers {
		b.Timers[i].id = i
	}
	return b
}

// Reset clears volatile state but keeps loaded BIOS/ROM/save content.
func (b *Bus) Reset() {
	for i := range b.ewram {
		b.ewram[i] = 0
	}
	for i := range b.iwram {
		b.iwram[i] = 0
	}
	for i := range b.palette {
		b.palette[i] = 0
	}
	for i := range b.vram {
		b.vram[i] = 0
	}
	for i := range b.oam {
		b.oam[i] = 0
	}
	for i := range b.io {
		b.io[i] = 0
	}
	for i := range b.Timers {
		b.Timers[i] = Timer{id: i}
	}
	for i := range b.DMA {
		b.DMA[i] = DMAChannel{id: i}
	}
	b.keys = 0x03FF
	b.lastBIOSRead = 0
	b.openBus = 0
	b.writeWaitcnt(0)
	b.APU.Reset()
}

// LoadBIOS installs a BIOS image. The image must fit the 16 KiB region.
func (b *Bus) LoadBIOS(data []byte) error {
	if len(data) == 0 {
		return errors.New("empty BIOS image")
	}
	if len(data) > biosSize {
		return fmt.Errorf("BIOS image too large: %d bytes", len(data))
	}
	copy(b.bios, data)
	slog.Debug("BIOS loaded", "size", len(data))
	return nil
}

// LoadROM installs a cartridge image and detects its save backend by
// scanning for the library version markers games embed.
func (b *Bus) LoadROM(data []byte) error {
	if len(data) == 0 {
		return errors.New("empty ROM image")
	}
	if len(data) > romLimit {
		return fmt.Errorf("ROM image too large: %d bytes", len(data))
	}
	b.rom = make([]byte, len(data))
	copy(b.rom, data)

	saveType := DetectSaveType(b.rom)
	b.save = NewSave(saveType)

	if len(data) >= 0xC0 {
		title := trimTitle(data[0xA0:0xAC])
		code := trimTitle(data[0xAC:0xB0])
		slog.Info("ROM loaded", "size", len(data), "title", title, "code", code, "save", saveType)
	} else {
		slog.Info("ROM loaded", "size", len(data), "save", saveType)
	}
	return nil
}

// LoadSave restores save memory content.
func (b *Bus) LoadSave(data []byte) error {
	return b.save.Load(data)
}

// SaveData returns the current save memory content.
func (b *Bus) SaveData() []byte {
	return b.save.Data()
}

func trimTitle(raw []byte) string {
	end := len(raw)
	for end > 0 && (raw[end-1] == 0 || raw[end-1] == ' ') {
		end--
	}
	return string(raw[:end])
}

// SetFetchPC records the address the CPU is fetching from, which gates
// BIOS readability.
func (b *Bus) SetFetchPC(pc uint32) {
	b.fetchPC = pc
}

// Tick advances the timers by the given number of CPU cycles.
func (b *Bus) Tick(cycles int) {
	b.tickTimers(cycles)
}

// Raw region accessors for the renderer, which samples palette, VRAM and
// OAM at scanline time.

// PaletteRAM returns the palette region.
func (b *Bus) PaletteRAM() []byte { return b.palette }

// VRAM returns the video memory region.
func (b *Bus) VRAM() []byte { return b.vram }

// OAM returns the object attribute memory region.
func (b *Bus) OAM() []byte { return b.oam }

// mapped reports whether an address reaches real storage; reads from
// anywhere else float to the last value seen on the bus.
func (b *Bus) mapped(address uint32) bool {
	switch region(address) {
	case 0x00:
		return address < biosSize && b.fetchPC < biosSize
	case 0x02, 0x03, 0x04, 0x05, 0x06, 0x07,
		0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F:
		return true
	default:
		return false
	}
}

// Read8 reads one byte.
func (b *Bus) Read8(address uint32) uint8 {
	value := b.read8(address)
	if b.mapped(address) {
		b.openBus = uint32(value) * 0x01010101
	}
	return value
}

func (b *Bus) read8(address uint32) uint8 {
	switch region(address) {
	case 0x00:
		if address >= biosSize {
			return uint8(b.openBus >> ((address & 3) * 8))
		}
		if b.fetchPC < biosSize {
			value := b.bios[address]
			b.lastBIOSRead = uint32(value) * 0x01010101
			return value
		}
		// Outside the BIOS the boot ROM reads as the last value it
		// put on the bus.
		return uint8(b.lastBIOSRead >> ((address & 3) * 8))
	case 0x01:
		return uint8(b.openBus >> ((address & 3) * 8))
	case 0x02:
		return b.ewram[address&(ewramSize-1)]
	case 0x03:
		return b.iwram[address&(iwramSize-1)]
	case 0x04:
		return b.readIO8(address & (ioSize - 1))
	case 0x05:
		return b.palette[address&(paletteSize-1)]
	case 0x06:
		return b.vram[mirrorVRAM(address)]
	case 0x07:
		return b.oam[address&(oamSize-1)]
	case 0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D:
		offset := address & 0x01FFFFFF
		if int(offset) < len(b.rom) {
			return b.rom[offset]
		}
		// Unmapped cartridge space reads back the address pattern.
		return uint8((offset >> 1) & 0xFF)
	case 0x0E, 0x0F:
		return b.save.Read(address)
	default:
		return uint8(b.openBus >> ((address & 3) * 8))
	}
}

// Read16 reads a halfword; the address is force-aligned to 2.
func (b *Bus) Read16(address uint32) uint16 {
	address &^= 1

	if region(address) == 0x0D && b.save.Type().IsEEPROM() {
		return b.save.EEPROMRead()
	}

	value := uint16(b.read8(address)) | uint16(b.read8(address+1))<<8
	if b.mapped(address) {
		b.openBus = uint32(value)<<16 | uint32(value)
	}
	return value
}

// Read32 reads a word; the address is force-aligned to 4. Rotation of
// misaligned loads is the CPU's business.
func (b *Bus) Read32(address uint32) uint32 {
	address &^= 3
	value := uint32(b.Read16(address)) | uint32(b.Read16(address+2))<<16
	if b.mapped(address) {
		b.openBus = value
	}
	return value
}

// Write8 writes one byte, honoring the regions that ignore or widen
// 8-bit stores.
func (b *Bus) Write8(address uint32, value uint8) {
	switch region(address) {
	case 0x02:
		b.ewram[address&(ewramSize-1)] = value
	case 0x03:
		b.iwram[address&(iwramSize-1)] = value
	case 0x04:
		b.writeIO8(address&(ioSize-1), value)
	case 0x05:
		// Palette stores the byte into both halves of the halfword.
		offset := address & (paletteSize - 1) &^ 1
		b.palette[offset] = value
		b.palette[offset+1] = value
	case 0x06:
		offset := mirrorVRAM(address) &^ 1
		// OBJ tile memory ignores byte stores.
		if offset < 0x10000 {
			b.vram[offset] = value
			b.vram[offset+1] = value
		}
	case 0x07:
		// OAM ignores byte stores.
	case 0x0E, 0x0F:
		b.save.Write(address, value)
	}
}

// Write16 writes a halfword; the address is force-aligned to 2.
func (b *Bus) Write16(address uint32, value uint16) {
	address &^= 1

	switch region(address) {
	case 0x02:
		offset := address & (ewramSize - 1)
		b.ewram[offset] = uint8(value)
		b.ewram[offset+1] = uint8(value >> 8)
	case 0x03:
		offset := address & (iwramSize - 1)
		b.iwram[offset] = uint8(value)
		b.iwram[offset+1] = uint8(value >> 8)
	case 0x04:
		b.writeIO16(address&(ioSize-1), value)
	case 0x05:
		offset := address & (paletteSize - 1)
		b.palette[offset] = uint8(value)
		b.palette[offset+1] = uint8(value >> 8)
	case 0x06:
		offset := mirrorVRAM(address)
		b.vram[offset] = uint8(value)
		b.vram[offset+1] = uint8(value >> 8)
	case 0x07:
		offset := address & (oamSize - 1)
		b.oam[offset] = uint8(value)
		b.oam[offset+1] = uint8(value >> 8)
	case 0x0D:
		if b.save.Type().IsEEPROM() {
			b.save.EEPROMWrite(value)
		}
	case 0x0E, 0x0F:
		b.save.Write(address, uint8(value))
	}
}

// Write32 writes a word; the address is force-aligned to 4.
func (b *Bus) Write32(address uint32, value uint32) {
	address &^= 3

	// 32-bit FIFO stores push four samples at once.
	if region(address) == 0x04 {
		switch address & (ioSize - 1) {
		case 0x0A0:
			b.APU.PushFIFO(0, uint8(value), uint8(value>>8), uint8(value>>16), uint8(value>>24))
			return
		case 0x0A4:
			b.APU.PushFIFO(1, uint8(value), uint8(value>>8), uint8(value>>16), uint8(value>>24))
			return
		}
	}

	b.Write16(address, uint16(value))
	b.Write16(address+2, uint16(value>>16))
}

func region(address uint32) uint32 {
	return (address >> 24) & 0xFF
}

// mirrorVRAM folds the 32 KiB logical mirror at the top of the 128 KiB
// VRAM window back onto the physical 96 KiB.
func mirrorVRAM(address uint32) uint32 {
	offset := address & 0x1FFFF
	if offset >= vramSize {
		offset -= 0x8000
	}
	return offset
}

// writeWaitcnt decodes the game pak wait state control register.
func (b *Bus) writeWaitcnt(value uint16) {
	b.waitcnt = value

	nonSeq := [4]int{4, 3, 2, 8}
	b.sramWait = nonSeq[value&3]

	b.romNonSeq[0] = nonSeq[(value>>2)&3]
	b.romNonSeq[1] = nonSeq[(value>>5)&3]
	b.romNonSeq[2] = nonSeq[(value>>8)&3]

	seq0 := [2]int{2, 1}
	seq1 := [2]int{4, 1}
	seq2 := [2]int{8, 1}
	b.romSeq[0] = seq0[(value>>4)&1]
	b.romSeq[1] = seq1[(value>>7)&1]
	b.romSeq[2] = seq2[(value>>10)&1]

	b.prefetchEnable = value&(1<<14) != 0
}

// accessWait returns the extra wait cycles for one access to the given
// address. Sequential accesses within a burst use the sequential timing.
func (b *Bus) accessWait(address uint32, sequential bool) int {
	switch region(address) {
	case 0x08, 0x09:
		if sequential {
			return b.romSeq[0]
		}
		return b.romNonSeq[0]
	case 0x0A, 0x0B:
		if sequential {
			return b.romSeq[1]
		}
		return b.romNonSeq[1]
	case 0x0C, 0x0D:
		if sequential {
			return b.romSeq[2]
		}
		return b.romNonSeq[2]
	case 0x0E, 0x0F:
		return b.sramWait
	default:
		return 0
	}
}

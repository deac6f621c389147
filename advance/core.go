package advance

import (
	"log/slog"
	"os"

	"github.com/mbianchi/go-advance/advance/cpu"
	"github.com/mbianchi/go-advance/advance/memory"
	"github.com/mbianchi/go-advance/advance/video"
)

// GBA is the root struct wiring the bus, CPU, PPU and APU together and
// the entry point for running the emulation.
type GBA struct {
	cpu *cpu.CPU
	ppu *video.PPU
	bus *memory.Bus

	totalCycles uint64
	frameCount  uint64
}

// New creates a powered-on system with no BIOS or cartridge loaded.
func New() *GBA {
	bus := memory.New()
	g := &GBA{bus: bus}

	g.ppu = video.New(bus)
	bus.Video = g.ppu

	g.cpu = cpu.New(bus)
	bus.Proc = g.cpu

	return g
}

// NewWithFiles creates a system and loads the BIOS and ROM images from
// disk.
func NewWithFiles(biosPath, romPath string) (*GBA, error) {
	g := New()

	if biosPath != "" {
		bios, err := os.ReadFile(biosPath)
		if err != nil {
			return nil, err
		}
		if err := g.LoadBIOS(bios); err != nil {
			return nil, err
		}
	}

	rom, err := os.ReadFile(romPath)
	if err != nil {
		return nil, err
	}
	if err := g.LoadROM(rom); err != nil {
		return nil, err
	}
	return g, nil
}

// LoadBIOS supplies the 16 KiB boot ROM image.
func (g *GBA) LoadBIOS(data []byte) error {
	return g.bus.LoadBIOS(data)
}

// LoadROM supplies the cartridge image and detects its save backend.
func (g *GBA) LoadROM(data []byte) error {
	return g.bus.LoadROM(data)
}

// LoadSave restores previously saved cartridge memory.
func (g *GBA) LoadSave(data []byte) error {
	return g.bus.LoadSave(data)
}

// Save returns the current cartridge save memory.
func (g *GBA) Save() []byte {
	return g.bus.SaveData()
}

// Reset restarts execution from the cartridge entry point. Loaded
// BIOS/ROM/save content survives.
func (g *GBA) Reset() {
	g.bus.Reset()
	g.ppu.Reset()
	g.cpu.Reset()
	g.totalCycles = 0
	g.frameCount = 0
	slog.Debug("System reset", "pc", g.cpu.Regs.PC())
}

// Step advances the machine by one unit of forward progress: a pending
// DMA burst drains completely, otherwise the CPU executes one
// instruction. The elapsed cycles then feed the timers, PPU and APU as
// if time ran uninterrupted.
func (g *GBA) Step() int {
	var cycles int
	if g.bus.DMAPending() {
		cycles = g.bus.RunDMA()
	} else {
		cycles = g.cpu.Step()
	}

	g.bus.Tick(cycles)
	g.ppu.Tick(cycles)
	g.bus.APU.Tick(cycles)

	g.totalCycles += uint64(cycles)
	return cycles
}

// StepFrame runs until the PPU signals end of frame (the VCOUNT 159 to
// 160 transition) and returns the finished framebuffer. The buffer is
// borrowed: it is overwritten by the next frame.
func (g *GBA) StepFrame() *video.FrameBuffer {
	g.ppu.ClearFrameReady()
	for !g.ppu.FrameReady() {
		g.Step()
	}
	g.frameCount++
	if g.frameCount%600 == 0 {
		slog.Debug("Frame completed", "frame", g.frameCount, "cycles", g.totalCycles)
	}
	return g.ppu.FrameBuffer()
}

// SetKey presses or releases the keypad bits in mask (addr.KeyA and
// friends, active high). The core inverts to the hardware's active-low
// convention and evaluates KEYCNT matches.
func (g *GBA) SetKey(mask uint16, pressed bool) {
	g.bus.SetKey(mask, pressed)
}

// PullAudio drains up to max stereo sample pairs from the APU,
// interleaved L,R at 32768 Hz.
func (g *GBA) PullAudio(max int) []int16 {
	return g.bus.APU.Samples(max)
}

// FrameCount returns the number of completed frames.
func (g *GBA) FrameCount() uint64 { return g.frameCount }

// CPU exposes the processor, mainly for tests and debugging frontends.
func (g *GBA) CPU() *cpu.CPU { return g.cpu }

// Bus exposes the memory bus.
func (g *GBA) Bus() *memory.Bus { return g.bus }

// PPU exposes the video unit.
func (g *GBA) PPU() *video.PPU { return g.ppu }

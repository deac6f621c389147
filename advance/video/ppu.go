package video

import (
	"github.com/mbianchi/go-advance/advance/addr"
	"github.com/mbianchi/go-advance/advance/bit"
	"github.com/mbianchi/go-advance/advance/memory"
)

// Scanline timing.
const (
	hdrawCycles    = 960
	hblankCycles   = 272
	scanlineCycles = hdrawCycles + hblankCycles // 1232
	vdrawLines     = 160
	totalLines     = 228
)

// CyclesPerFrame is the length of one full field.
const CyclesPerFrame = scanlineCycles * totalLines

// PPU renders the picture one scanline at a time and drives the
// V-Count, H-Blank and V-Blank events the rest of the system hangs off.
type PPU struct {
	bus         *memory.Bus
	framebuffer *FrameBuffer

	vcount       int
	cycles       int
	dispstat     uint16
	vcountTarget int

	frameReady bool

	// Internal affine reference points in 20.8 fixed point, reloaded
	// from BG2X/BG2Y/BG3X/BG3Y at the start of V-Blank and advanced by
	// (PB, PD) after each visible line.
	bg2x, bg2y int32
	bg3x, bg3y int32

	// Per-line scratch buffers.
	line     [FramebufferWidth][3]uint8
	priority [FramebufferWidth]uint8
}

// New creates a PPU rendering through the given bus.
func New(bus *memory.Bus) *PPU {
	return &PPU{
		bus:         bus,
		framebuffer: NewFrameBuffer(),
	}
}

// Reset returns the PPU to scanline zero.
func (p *PPU) Reset() {
	p.vcount = 0
	p.cycles = 0
	p.dispstat = 0
	p.vcountTarget = 0
	p.frameReady = false
	p.bg2x, p.bg2y = 0, 0
	p.bg3x, p.bg3y = 0, 0
	for i := range p.framebuffer.buffer {
		p.framebuffer.buffer[i] = 0
	}
}

// FrameBuffer returns the most recently completed frame.
func (p *PPU) FrameBuffer() *FrameBuffer {
	return p.framebuffer
}

// FrameReady reports whether a V-Blank transition happened since the
// last ClearFrameReady.
func (p *PPU) FrameReady() bool { return p.frameReady }

// ClearFrameReady rearms the end-of-frame signal.
func (p *PPU) ClearFrameReady() { p.frameReady = false }

// VCount returns the current scanline, 0-227.
func (p *PPU) VCount() uint16 { return uint16(p.vcount) }

// DispStat assembles the status register from the stored enable bits
// and the live blanking state.
func (p *PPU) DispStat() uint16 {
	value := p.dispstat & 0xFF38

	if p.vcount >= vdrawLines && p.vcount < totalLines-1 {
		value |= 0x0001
	}
	if p.cycles >= hdrawCycles {
		value |= 0x0002
	}
	if p.vcount == p.vcountTarget {
		value |= 0x0004
	}
	return value
}

// WriteDispStat stores the writable DISPSTAT bits (IRQ enables and the
// V-Count target).
func (p *PPU) WriteDispStat(value uint16) {
	p.dispstat = value & 0xFF38
	p.vcountTarget = int(value >> 8)
}

// Tick advances the PPU by CPU cycles, finishing any scanlines crossed.
func (p *PPU) Tick(cycles int) {
	p.cycles += cycles
	for p.cycles >= scanlineCycles {
		p.cycles -= scanlineCycles
		p.endScanline()
	}
}

func (p *PPU) endScanline() {
	if p.vcount < vdrawLines {
		p.renderScanline()
		p.advanceAffine()
		p.bus.NotifyHBlank()
	}

	// Line 227 is the one H-Blank that never raises the IRQ.
	if p.dispstat&0x0010 != 0 && p.vcount != totalLines-1 {
		p.bus.RaiseIRQ(addr.HBlankInterrupt)
	}

	p.vcount++
	if p.vcount >= totalLines {
		p.vcount = 0
	}

	if p.vcount == p.vcountTarget && p.dispstat&0x0020 != 0 {
		p.bus.RaiseIRQ(addr.VCountInterrupt)
	}

	if p.vcount == vdrawLines {
		if p.dispstat&0x0008 != 0 {
			p.bus.RaiseIRQ(addr.VBlankInterrupt)
		}
		p.bus.NotifyVBlank()
		p.reloadAffine()
		p.frameReady = true
	}
}

// advanceAffine moves the internal reference points by (PB, PD) at the
// end of a visible line.
func (p *PPU) advanceAffine() {
	p.bg2x += int32(bit.SignExtend16(uint32(p.bus.IO16(addr.BG2PB))))
	p.bg2y += int32(bit.SignExtend16(uint32(p.bus.IO16(addr.BG2PD))))
	p.bg3x += int32(bit.SignExtend16(uint32(p.bus.IO16(addr.BG3PB))))
	p.bg3y += int32(bit.SignExtend16(uint32(p.bus.IO16(addr.BG3PD))))
}

// reloadAffine latches the reference registers into the internal
// accumulators at the start of V-Blank.
func (p *PPU) reloadAffine() {
	p.bg2x = affineReference(p.bus.IO32(addr.BG2X))
	p.bg2y = affineReference(p.bus.IO32(addr.BG2Y))
	p.bg3x = affineReference(p.bus.IO32(addr.BG3X))
	p.bg3y = affineReference(p.bus.IO32(addr.BG3Y))
}

// affineReference sign-extends a stored 28-bit reference point.
func affineReference(raw uint32) int32 {
	return int32(bit.SignExtend(raw, 28))
}

func (p *PPU) renderScanline() {
	dispcnt := p.bus.IO16(addr.DISPCNT)

	if dispcnt&0x0080 != 0 { // forced blank
		for x := 0; x < FramebufferWidth; x++ {
			p.framebuffer.SetPixel(x, p.vcount, 0xFF, 0xFF, 0xFF)
		}
		return
	}

	// Backdrop is palette entry zero; priority 4 loses to every layer.
	r, g, b := p.paletteColor(0, 0)
	for x := 0; x < FramebufferWidth; x++ {
		p.line[x] = [3]uint8{r, g, b}
		p.priority[x] = 4
	}

	switch dispcnt & 0x7 {
	case 0:
		p.renderTextLayers(dispcnt, 0, 1, 2, 3)
	case 1:
		p.renderMode1(dispcnt)
	case 2:
		p.renderAffineLayers(dispcnt, 2, 3)
	case 3:
		p.renderMode3(dispcnt)
	case 4:
		p.renderMode4(dispcnt)
	case 5:
		p.renderMode5(dispcnt)
	}

	p.renderSprites(dispcnt)

	for x := 0; x < FramebufferWidth; x++ {
		p.framebuffer.SetPixel(x, p.vcount, p.line[x][0], p.line[x][1], p.line[x][2])
	}
}

// renderTextLayers draws the given text backgrounds, lowest priority
// value last so it wins ties in its favor.
func (p *PPU) renderTextLayers(dispcnt uint16, bgs ...int) {
	for prio := 3; prio >= 0; prio-- {
		for i := len(bgs) - 1; i >= 0; i-- {
			bg := bgs[i]
			if dispcnt&(0x100<<uint(bg)) == 0 {
				continue
			}
			if int(p.bgControl(bg)&0x3) == prio {
				p.renderTextBG(bg, uint8(prio))
			}
		}
	}
}

func (p *PPU) renderMode1(dispcnt uint16) {
	for prio := 3; prio >= 0; prio-- {
		if dispcnt&0x0400 != 0 && int(p.bgControl(2)&0x3) == prio {
			p.renderAffineBG(2, uint8(prio))
		}
		for _, bg := range []int{1, 0} {
			if dispcnt&(0x100<<uint(bg)) == 0 {
				continue
			}
			if int(p.bgControl(bg)&0x3) == prio {
				p.renderTextBG(bg, uint8(prio))
			}
		}
	}
}

func (p *PPU) renderAffineLayers(dispcnt uint16, bgs ...int) {
	for prio := 3; prio >= 0; prio-- {
		for i := len(bgs) - 1; i >= 0; i-- {
			bg := bgs[i]
			if dispcnt&(0x100<<uint(bg)) == 0 {
				continue
			}
			if int(p.bgControl(bg)&0x3) == prio {
				p.renderAffineBG(bg, uint8(prio))
			}
		}
	}
}

func (p *PPU) bgControl(bg int) uint16 {
	return p.bus.IO16(addr.BG0CNT + uint32(bg)*2)
}

func (p *PPU) bgScroll(bg int) (hofs, vofs int) {
	base := addr.BG0HOFS + uint32(bg)*4
	return int(p.bus.IO16(base) & 0x1FF), int(p.bus.IO16(base+2) & 0x1FF)
}

// paletteColor resolves a palette index (plus bank for 16-color modes)
// to RGB.
func (p *PPU) paletteColor(index, bank int) (r, g, b uint8) {
	if bank > 0 {
		index = bank*16 + (index & 0xF)
	}
	palette := p.bus.PaletteRAM()
	offset := index * 2
	color := uint16(palette[offset]) | uint16(palette[offset+1])<<8
	return Color15To24(color)
}

func (p *PPU) objPaletteColor(index, bank int) (r, g, b uint8) {
	if bank >= 0 {
		index = bank*16 + (index & 0xF)
	}
	palette := p.bus.PaletteRAM()
	offset := 0x200 + index*2
	color := uint16(palette[offset]) | uint16(palette[offset+1])<<8
	return Color15To24(color)
}

func (p *PPU) plot(x int, prio uint8, r, g, b uint8) {
	if prio <= p.priority[x] {
		p.line[x] = [3]uint8{r, g, b}
		p.priority[x] = prio
	}
}

var textMapWidths = [4]int{256, 512, 256, 512}
var textMapHeights = [4]int{256, 256, 512, 512}

func (p *PPU) renderTextBG(bg int, prio uint8) {
	vram := p.bus.VRAM()
	control := p.bgControl(bg)
	hofs, vofs := p.bgScroll(bg)

	charBase := int(control>>2&0x3) * 0x4000
	screenBase := int(control>>8&0x1F) * 0x800
	depth256 := control&0x80 != 0
	size := int(control >> 14 & 0x3)

	mapWidth := textMapWidths[size]
	mapHeight := textMapHeights[size]

	y := (p.vcount + vofs) % mapHeight
	tileY := y / 8
	pixelY := y % 8

	for screenX := 0; screenX < FramebufferWidth; screenX++ {
		x := (screenX + hofs) % mapWidth
		tileX := x / 8
		pixelX := x % 8

		// The map tiles into 32x32 screen blocks of 2 KiB each.
		block := 0
		bx, by := tileX, tileY
		if mapWidth == 512 && bx >= 32 {
			block++
			bx -= 32
		}
		if mapHeight == 512 && by >= 32 {
			block += 2
			by -= 32
		}

		entryOffset := screenBase + block*0x800 + (by*32+bx)*2
		entry := uint16(vram[entryOffset]) | uint16(vram[entryOffset+1])<<8

		tile := int(entry & 0x3FF)
		px, py := pixelX, pixelY
		if entry&0x400 != 0 {
			px = 7 - px
		}
		if entry&0x800 != 0 {
			py = 7 - py
		}

		if depth256 {
			index := int(vram[charBase+tile*64+py*8+px])
			if index != 0 {
				r, g, b := p.paletteColor(index, 0)
				p.plot(screenX, prio, r, g, b)
			}
			continue
		}

		packed := vram[charBase+tile*32+py*4+px/2]
		index := int(packed & 0xF)
		if px&1 == 1 {
			index = int(packed >> 4)
		}
		if index != 0 {
			r, g, b := p.paletteColor(index, int(entry>>12))
			p.plot(screenX, prio, r, g, b)
		}
	}
}

var affineSizes = [4]int{128, 256, 512, 1024}

func (p *PPU) renderAffineBG(bg int, prio uint8) {
	vram := p.bus.VRAM()
	control := p.bgControl(bg)

	charBase := int(control>>2&0x3) * 0x4000
	screenBase := int(control>>8&0x1F) * 0x800
	wrap := control&0x2000 != 0
	mapSize := affineSizes[control>>14&0x3]
	tilesPerRow := mapSize / 8

	var xAcc, yAcc int32
	var pa, pc int32
	if bg == 2 {
		xAcc, yAcc = p.bg2x, p.bg2y
		pa = int32(bit.SignExtend16(uint32(p.bus.IO16(addr.BG2PA))))
		pc = int32(bit.SignExtend16(uint32(p.bus.IO16(addr.BG2PC))))
	} else {
		xAcc, yAcc = p.bg3x, p.bg3y
		pa = int32(bit.SignExtend16(uint32(p.bus.IO16(addr.BG3PA))))
		pc = int32(bit.SignExtend16(uint32(p.bus.IO16(addr.BG3PC))))
	}

	for screenX := 0; screenX < FramebufferWidth; screenX++ {
		tx := int(xAcc >> 8)
		ty := int(yAcc >> 8)
		xAcc += pa
		yAcc += pc

		if wrap {
			tx = ((tx % mapSize) + mapSize) % mapSize
			ty = ((ty % mapSize) + mapSize) % mapSize
		} else if tx < 0 || tx >= mapSize || ty < 0 || ty >= mapSize {
			continue
		}

		// Affine maps are one byte per tile, always 256-color.
		tile := int(vram[screenBase+(ty/8)*tilesPerRow+tx/8])
		index := int(vram[charBase+tile*64+(ty%8)*8+tx%8])
		if index != 0 {
			r, g, b := p.paletteColor(index, 0)
			p.plot(screenX, prio, r, g, b)
		}
	}
}

func (p *PPU) renderMode3(dispcnt uint16) {
	if dispcnt&0x0400 == 0 {
		return
	}
	vram := p.bus.VRAM()
	base := p.vcount * FramebufferWidth * 2
	for x := 0; x < FramebufferWidth; x++ {
		color := uint16(vram[base+x*2]) | uint16(vram[base+x*2+1])<<8
		r, g, b := Color15To24(color)
		p.line[x] = [3]uint8{r, g, b}
		p.priority[x] = uint8(p.bgControl(2) & 0x3)
	}
}

func (p *PPU) renderMode4(dispcnt uint16) {
	if dispcnt&0x0400 == 0 {
		return
	}
	vram := p.bus.VRAM()
	base := 0
	if dispcnt&0x0010 != 0 {
		base = 0xA000
	}
	base += p.vcount * FramebufferWidth

	prio := uint8(p.bgControl(2) & 0x3)
	for x := 0; x < FramebufferWidth; x++ {
		index := int(vram[base+x])
		if index != 0 {
			r, g, b := p.paletteColor(index, 0)
			p.line[x] = [3]uint8{r, g, b}
			p.priority[x] = prio
		}
	}
}

func (p *PPU) renderMode5(dispcnt uint16) {
	if dispcnt&0x0400 == 0 || p.vcount >= 128 {
		return
	}
	vram := p.bus.VRAM()
	base := 0
	if dispcnt&0x0010 != 0 {
		base = 0xA000
	}
	base += p.vcount * 160 * 2

	prio := uint8(p.bgControl(2) & 0x3)
	for x := 0; x < 160; x++ {
		color := uint16(vram[base+x*2]) | uint16(vram[base+x*2+1])<<8
		r, g, b := Color15To24(color)
		p.line[x] = [3]uint8{r, g, b}
		p.priority[x] = prio
	}
}

package video

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mbianchi/go-advance/advance/memory"
)

func TestOAMEntryRoundTrip(t *testing.T) {
	entries := []OAMEntry{
		{Y: 0x3C, ObjMode: objModeNormal, GfxMode: 1, Mosaic: true, Color256: false,
			Shape: 1, X: 0x1A5, HFlip: true, VFlip: false, Size: 2,
			Tile: 0x155, Priority: 2, PaletteBank: 7},
		{Y: 0xFF, ObjMode: objModeAffine, Shape: 2, X: 0x0F, AffineIndex: 0x11,
			Size: 3, Tile: 0x3FF, Priority: 3, PaletteBank: 0xF},
		{ObjMode: objModeDisabled},
	}

	for i, entry := range entries {
		attr0, attr1, attr2 := entry.EncodeOAMEntry()
		decoded := DecodeOAMEntry(attr0, attr1, attr2)
		assert.Equal(t, entry, decoded, "entry %d", i)

		// Encoding the decoded entry gives back the same halfwords.
		e0, e1, e2 := decoded.EncodeOAMEntry()
		assert.Equal(t, attr0, e0)
		assert.Equal(t, attr1, e1)
		assert.Equal(t, attr2, e2)
	}
}

func TestSpriteSizeTable(t *testing.T) {
	square := OAMEntry{Shape: 0, Size: 3}
	assert.Equal(t, 64, square.Width())
	assert.Equal(t, 64, square.Height())

	wide := OAMEntry{Shape: 1, Size: 0}
	assert.Equal(t, 16, wide.Width())
	assert.Equal(t, 8, wide.Height())

	tall := OAMEntry{Shape: 2, Size: 1}
	assert.Equal(t, 8, tall.Width())
	assert.Equal(t, 32, tall.Height())

	double := OAMEntry{Shape: 0, Size: 0, ObjMode: objModeAffineDouble}
	assert.Equal(t, 16, double.RenderWidth())
	assert.Equal(t, 16, double.RenderHeight())
}

func newSpritePPU() (*PPU, *memory.Bus) {
	bus := memory.New()
	p := New(bus)
	bus.Video = p
	// Sprites on, 1D mapping.
	bus.Write16(0x04000000, 0x1040)
	return p, bus
}

// solidSpriteTile fills OBJ tile 1 with 4bpp color index 1.
func solidSpriteTile(bus *memory.Bus) {
	for i := uint32(0); i < 32; i += 2 {
		bus.Write16(0x06010020+i, 0x1111)
	}
	// OBJ palette bank 0, index 1: red.
	bus.Write16(0x05000202, 0x001F)
}

func writeOAM(bus *memory.Bus, index int, attr0, attr1, attr2 uint16) {
	base := 0x07000000 + uint32(index)*8
	bus.Write16(base, attr0)
	bus.Write16(base+2, attr1)
	bus.Write16(base+4, attr2)
}

// disableAllSprites parks every OAM entry offscreen in disabled mode.
func disableAllSprites(bus *memory.Bus) {
	for i := 0; i < 128; i++ {
		writeOAM(bus, i, 0x0200, 0, 0)
	}
}

func TestNormalSpriteRendering(t *testing.T) {
	p, bus := newSpritePPU()
	disableAllSprites(bus)
	solidSpriteTile(bus)

	// 8x8 sprite at (10, 0) using tile 1.
	writeOAM(bus, 0, 0x0000, 10, 0x0001)

	p.Tick(scanlineCycles)

	r, _, _ := p.FrameBuffer().Pixel(10, 0)
	assert.Equal(t, uint8(248), r)
	r, _, _ = p.FrameBuffer().Pixel(17, 0)
	assert.Equal(t, uint8(248), r)
	r, _, _ = p.FrameBuffer().Pixel(18, 0)
	assert.Equal(t, uint8(0), r, "outside the sprite")
	r, _, _ = p.FrameBuffer().Pixel(9, 0)
	assert.Equal(t, uint8(0), r)
}

func TestSpriteYWrapFromBottom(t *testing.T) {
	p, bus := newSpritePPU()
	disableAllSprites(bus)
	solidSpriteTile(bus)

	// Y=252 wraps to -4: the bottom half of the sprite covers lines 0-3.
	writeOAM(bus, 0, 252, 10, 0x0001)

	p.Tick(scanlineCycles)
	r, _, _ := p.FrameBuffer().Pixel(10, 0)
	assert.Equal(t, uint8(248), r)
}

func TestDisabledSpriteSkipped(t *testing.T) {
	p, bus := newSpritePPU()
	disableAllSprites(bus)
	solidSpriteTile(bus)

	writeOAM(bus, 0, 0x0200, 10, 0x0001) // disabled mode

	p.Tick(scanlineCycles)
	r, _, _ := p.FrameBuffer().Pixel(10, 0)
	assert.Equal(t, uint8(0), r)
}

func TestLowerOAMIndexWins(t *testing.T) {
	p, bus := newSpritePPU()
	disableAllSprites(bus)
	solidSpriteTile(bus)

	// Tile 2 filled with index 2 (green).
	for i := uint32(0); i < 32; i += 2 {
		bus.Write16(0x06010040+i, 0x2222)
	}
	bus.Write16(0x05000204, 0x03E0)

	// Both sprites overlap at the same priority.
	writeOAM(bus, 0, 0x0000, 10, 0x0001) // red
	writeOAM(bus, 1, 0x0000, 10, 0x0002) // green

	p.Tick(scanlineCycles)
	r, g, _ := p.FrameBuffer().Pixel(10, 0)
	assert.Equal(t, uint8(248), r, "sprite 0 shows on top")
	assert.Equal(t, uint8(0), g)
}

func TestSpriteBehindBackground(t *testing.T) {
	p, bus := newSpritePPU()
	disableAllSprites(bus)
	solidSpriteTile(bus)

	// Mode 3 bitmap on BG2 with priority 0.
	bus.Write16(0x04000000, 0x1443)
	bus.Write16(0x06000000+10*2, 0x7FFF)

	// Sprite priority 3 loses against the bitmap.
	writeOAM(bus, 0, 0x0000, 10, 0x0001|3<<10)

	p.Tick(scanlineCycles)
	r, g, b := p.FrameBuffer().Pixel(10, 0)
	assert.Equal(t, [3]uint8{248, 248, 248}, [3]uint8{r, g, b})
}

func TestHFlipSprite(t *testing.T) {
	p, bus := newSpritePPU()
	disableAllSprites(bus)

	// Tile 1: left half index 1, right half index 2 on every row.
	for row := uint32(0); row < 8; row++ {
		bus.Write16(0x06010020+row*4, 0x1111)
		bus.Write16(0x06010022+row*4, 0x2222)
	}
	bus.Write16(0x05000202, 0x001F) // 1: red
	bus.Write16(0x05000204, 0x03E0) // 2: green

	writeOAM(bus, 0, 0x0000, 10|0x1000, 0x0001) // H-flip

	p.Tick(scanlineCycles)
	_, g, _ := p.FrameBuffer().Pixel(10, 0)
	assert.Equal(t, uint8(248), g, "flip mirrors the row")
	r, _, _ := p.FrameBuffer().Pixel(17, 0)
	assert.Equal(t, uint8(248), r)
}

func TestAffineSpriteIdentity(t *testing.T) {
	p, bus := newSpritePPU()
	disableAllSprites(bus)
	solidSpriteTile(bus)

	// Affine sprite with the identity matrix in group 0.
	writeOAM(bus, 0, 0x0100, 10, 0x0001)
	bus.Write16(0x07000006, 0x0100) // PA
	bus.Write16(0x0700000E, 0x0000) // PB
	bus.Write16(0x07000016, 0x0000) // PC
	bus.Write16(0x0700001E, 0x0100) // PD

	p.Tick(scanlineCycles)
	r, _, _ := p.FrameBuffer().Pixel(10, 0)
	assert.Equal(t, uint8(248), r, "identity transform matches the normal footprint")
	r, _, _ = p.FrameBuffer().Pixel(18, 0)
	assert.Equal(t, uint8(0), r)
}

func TestAffineDoubleSizeBox(t *testing.T) {
	p, bus := newSpritePPU()
	disableAllSprites(bus)
	solidSpriteTile(bus)

	// Double-size render box with identity matrix: the 8x8 texture sits
	// centered in a 16x16 box, so line 0 misses it.
	writeOAM(bus, 0, 0x0300, 10, 0x0001)
	bus.Write16(0x07000006, 0x0100)
	bus.Write16(0x0700001E, 0x0100)

	p.Tick(scanlineCycles)
	r, _, _ := p.FrameBuffer().Pixel(10, 0)
	assert.Equal(t, uint8(0), r, "corner of the double box is outside the texture")
	r, _, _ = p.FrameBuffer().Pixel(14, 0)
	assert.Equal(t, uint8(0), r)

	// Line 4 crosses the centered texture.
	p.Tick(scanlineCycles * 4)
	r, _, _ = p.FrameBuffer().Pixel(14, 4)
	assert.Equal(t, uint8(248), r)
}

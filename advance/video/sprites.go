package video

// spriteSizes maps shape and size fields to pixel dimensions.
var spriteSizes = [4][4][2]int{
	{{8, 8}, {16, 16}, {32, 32}, {64, 64}},   // square
	{{16, 8}, {32, 8}, {32, 16}, {64, 32}},   // horizontal
	{{8, 16}, {8, 32}, {16, 32}, {32, 64}},   // vertical
	{{0, 0}, {0, 0}, {0, 0}, {0, 0}},         // prohibited
}

// Object modes (OAM attribute 0 bits 8-9).
const (
	objModeNormal = iota
	objModeAffine
	objModeDisabled
	objModeAffineDouble
)

// OAMEntry is one decoded sprite descriptor.
type OAMEntry struct {
	Y        int
	ObjMode  int
	GfxMode  int
	Mosaic   bool
	Color256 bool
	Shape    int

	X           int
	AffineIndex int
	HFlip       bool
	VFlip       bool
	Size        int

	Tile        int
	Priority    uint8
	PaletteBank int
}

// DecodeOAMEntry unpacks the three attribute halfwords of a sprite.
func DecodeOAMEntry(attr0, attr1, attr2 uint16) OAMEntry {
	affine := attr0>>8&1 == 1
	affineIndex := 0
	if affine {
		affineIndex = int(attr1 >> 9 & 0x1F)
	}
	return OAMEntry{
		Y:        int(attr0 & 0xFF),
		ObjMode:  int(attr0 >> 8 & 0x3),
		GfxMode:  int(attr0 >> 10 & 0x3),
		Mosaic:   attr0&0x1000 != 0,
		Color256: attr0&0x2000 != 0,
		Shape:    int(attr0 >> 14 & 0x3),

		X:           int(attr1 & 0x1FF),
		AffineIndex: affineIndex,
		HFlip:       attr1&0x1000 != 0 && !affine,
		VFlip:       attr1&0x2000 != 0 && !affine,
		Size:        int(attr1 >> 14 & 0x3),

		Tile:        int(attr2 & 0x3FF),
		Priority:    uint8(attr2 >> 10 & 0x3),
		PaletteBank: int(attr2 >> 12 & 0xF),
	}
}

// EncodeOAMEntry packs a descriptor back into its attribute halfwords.
func (e OAMEntry) EncodeOAMEntry() (attr0, attr1, attr2 uint16) {
	attr0 = uint16(e.Y&0xFF) |
		uint16(e.ObjMode&0x3)<<8 |
		uint16(e.GfxMode&0x3)<<10 |
		uint16(e.Shape&0x3)<<14
	if e.Mosaic {
		attr0 |= 0x1000
	}
	if e.Color256 {
		attr0 |= 0x2000
	}

	attr1 = uint16(e.X&0x1FF) | uint16(e.Size&0x3)<<14
	if e.ObjMode == objModeAffine || e.ObjMode == objModeAffineDouble {
		attr1 |= uint16(e.AffineIndex&0x1F) << 9
	} else {
		if e.HFlip {
			attr1 |= 0x1000
		}
		if e.VFlip {
			attr1 |= 0x2000
		}
	}

	attr2 = uint16(e.Tile&0x3FF) |
		uint16(e.Priority&0x3)<<10 |
		uint16(e.PaletteBank&0xF)<<12
	return attr0, attr1, attr2
}

// Width returns the sprite width in pixels.
func (e OAMEntry) Width() int { return spriteSizes[e.Shape][e.Size][0] }

// Height returns the sprite height in pixels.
func (e OAMEntry) Height() int { return spriteSizes[e.Shape][e.Size][1] }

// Affine reports whether the sprite is transformed.
func (e OAMEntry) Affine() bool {
	return e.ObjMode == objModeAffine || e.ObjMode == objModeAffineDouble
}

// Disabled reports whether the sprite is hidden.
func (e OAMEntry) Disabled() bool { return e.ObjMode == objModeDisabled }

// RenderWidth is the on-screen box width; double-size sprites render
// into a doubled box around the same texture.
func (e OAMEntry) RenderWidth() int {
	if e.ObjMode == objModeAffineDouble {
		return e.Width() * 2
	}
	return e.Width()
}

// RenderHeight is the on-screen box height.
func (e OAMEntry) RenderHeight() int {
	if e.ObjMode == objModeAffineDouble {
		return e.Height() * 2
	}
	return e.Height()
}

const spriteVRAMBase = 0x10000

func (p *PPU) oamEntry(index int) OAMEntry {
	oam := p.bus.OAM()
	offset := index * 8
	attr0 := uint16(oam[offset]) | uint16(oam[offset+1])<<8
	attr1 := uint16(oam[offset+2]) | uint16(oam[offset+3])<<8
	attr2 := uint16(oam[offset+4]) | uint16(oam[offset+5])<<8
	return DecodeOAMEntry(attr0, attr1, attr2)
}

// affineParams fetches (PA, PB, PC, PD) for an affine group; the
// parameters are interleaved with the attributes, one per sprite slot.
func (p *PPU) affineParams(group int) (pa, pb, pc, pd int32) {
	oam := p.bus.OAM()
	base := group * 32
	read := func(offset int) int32 {
		return int32(int16(uint16(oam[base+offset]) | uint16(oam[base+offset+1])<<8))
	}
	return read(6), read(14), read(22), read(30)
}

// renderSprites composes all visible sprites onto the current line.
// Lower OAM indices win, so drawing back to front keeps sprite 0 on
// top.
func (p *PPU) renderSprites(dispcnt uint16) {
	if dispcnt&0x1000 == 0 {
		return
	}
	mapping1D := dispcnt&0x0040 != 0

	for index := 127; index >= 0; index-- {
		entry := p.oamEntry(index)
		if entry.Disabled() || entry.Width() == 0 {
			continue
		}
		p.renderSpriteLine(entry, mapping1D)
	}
}

func (p *PPU) renderSpriteLine(entry OAMEntry, mapping1D bool) {
	spriteY := entry.Y
	if spriteY >= FramebufferHeight {
		spriteY -= 256
	}
	localY := p.vcount - spriteY
	if localY < 0 || localY >= entry.RenderHeight() {
		return
	}

	spriteX := entry.X
	if spriteX >= FramebufferWidth {
		spriteX -= 512
	}

	if entry.Affine() {
		p.renderAffineSpriteLine(entry, localY, spriteX, mapping1D)
		return
	}

	width := entry.Width()
	height := entry.Height()

	texY := localY
	if entry.VFlip {
		texY = height - 1 - localY
	}

	for localX := 0; localX < width; localX++ {
		screenX := spriteX + localX
		if screenX < 0 || screenX >= FramebufferWidth {
			continue
		}
		texX := localX
		if entry.HFlip {
			texX = width - 1 - localX
		}
		p.plotSpritePixel(entry, screenX, texX, texY, mapping1D)
	}
}

func (p *PPU) renderAffineSpriteLine(entry OAMEntry, localY, spriteX int, mapping1D bool) {
	width := entry.Width()
	height := entry.Height()
	renderWidth := entry.RenderWidth()
	renderHeight := entry.RenderHeight()

	pa, pb, pc, pd := p.affineParams(entry.AffineIndex)

	// The transform is centered on the render box; double-size doubles
	// the box but samples the same texture.
	cx := renderWidth / 2
	cy := renderHeight / 2

	for localX := 0; localX < renderWidth; localX++ {
		screenX := spriteX + localX
		if screenX < 0 || screenX >= FramebufferWidth {
			continue
		}

		dx := int32(localX - cx)
		dy := int32(localY - cy)
		texX := int((pa*dx+pb*dy)>>8) + width/2
		texY := int((pc*dx+pd*dy)>>8) + height/2

		if texX < 0 || texX >= width || texY < 0 || texY >= height {
			continue
		}
		p.plotSpritePixel(entry, screenX, texX, texY, mapping1D)
	}
}

// plotSpritePixel fetches one texel and composes it against the BG
// layers under the usual priority rule.
func (p *PPU) plotSpritePixel(entry OAMEntry, screenX, texX, texY int, mapping1D bool) {
	vram := p.bus.VRAM()

	tileX := texX / 8
	tileY := texY / 8
	pixelX := texX % 8
	pixelY := texY % 8
	tilesPerRow := entry.Width() / 8

	if entry.Color256 {
		var tileOffset int
		if mapping1D {
			tileOffset = entry.Tile + tileY*tilesPerRow*2 + tileX*2
		} else {
			tileOffset = entry.Tile + tileY*32 + tileX*2
		}
		pixelAddr := spriteVRAMBase + tileOffset*32 + pixelY*8 + pixelX
		if pixelAddr >= len(vram) {
			return
		}
		index := int(vram[pixelAddr])
		if index == 0 {
			return
		}
		r, g, b := p.objPaletteColor(index, -1)
		p.plot(screenX, entry.Priority, r, g, b)
		return
	}

	var tileOffset int
	if mapping1D {
		tileOffset = entry.Tile + tileY*tilesPerRow + tileX
	} else {
		tileOffset = entry.Tile + tileY*32 + tileX
	}
	pixelAddr := spriteVRAMBase + tileOffset*32 + pixelY*4 + pixelX/2
	if pixelAddr >= len(vram) {
		return
	}
	packed := vram[pixelAddr]
	index := int(packed & 0xF)
	if pixelX&1 == 1 {
		index = int(packed >> 4)
	}
	if index == 0 {
		return
	}
	r, g, b := p.objPaletteColor(index, entry.PaletteBank)
	p.plot(screenX, entry.Priority, r, g, b)
}

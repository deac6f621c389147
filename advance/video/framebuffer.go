package video

// Screen dimensions.
const (
	FramebufferWidth  = 240
	FramebufferHeight = 160
	FramebufferSize   = FramebufferWidth * FramebufferHeight
)

// Color15To24 expands a 15-bit BGR hardware color (bits 0-4 red, 5-9
// green, 10-14 blue) to 8-bit channels. The low three bits stay zero,
// which keeps the conversion injective.
func Color15To24(color uint16) (r, g, b uint8) {
	r = uint8(color&0x1F) << 3
	g = uint8(color>>5&0x1F) << 3
	b = uint8(color>>10&0x1F) << 3
	return r, g, b
}

// FrameBuffer holds one 240x160 frame as packed 24-bit RGB.
type FrameBuffer struct {
	buffer []uint8
}

func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{
		buffer: make([]uint8, FramebufferSize*3),
	}
}

// Pixel returns the RGB components at (x, y).
func (fb *FrameBuffer) Pixel(x, y int) (r, g, b uint8) {
	offset := (y*FramebufferWidth + x) * 3
	return fb.buffer[offset], fb.buffer[offset+1], fb.buffer[offset+2]
}

// SetPixel writes the RGB components at (x, y).
func (fb *FrameBuffer) SetPixel(x, y int, r, g, b uint8) {
	offset := (y*FramebufferWidth + x) * 3
	fb.buffer[offset] = r
	fb.buffer[offset+1] = g
	fb.buffer[offset+2] = b
}

// ToSlice exposes the raw RGB bytes, row-major.
func (fb *FrameBuffer) ToSlice() []uint8 {
	return fb.buffer
}

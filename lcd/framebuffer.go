package lcd

// Width and Height are the DMG's visible resolution in pixels.
const (
	Width  = 160
	Height = 144
	Size   = Width * Height
)

// FrameBuffer holds one frame as raw 2-bit color indices (0-3). It is
// owned by the caller and mutated by the LCD during RunFrame; palette
// translation into an actual color is the caller's job.
type FrameBuffer struct {
	buffer [Size]byte
}

// NewFrameBuffer returns a framebuffer cleared to color index 0.
func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{}
}

// GetPixel returns the color index at (x, y).
func (fb *FrameBuffer) GetPixel(x, y int) byte {
	return fb.buffer[y*Width+x]
}

// SetPixel writes the color index at (x, y).
func (fb *FrameBuffer) SetPixel(x, y int, color byte) {
	fb.buffer[y*Width+x] = color
}

// ToSlice exposes the backing storage for bulk reads (e.g. a CLI's PPM dump).
func (fb *FrameBuffer) ToSlice() []byte {
	return fb.buffer[:]
}

// Clear resets every pixel to color index 0.
func (fb *FrameBuffer) Clear() {
	for i := range fb.buffer {
		fb.buffer[i] = 0
	}
}

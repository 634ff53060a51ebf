// Package lcd implements the DMG's per-dot scanline state machine.
// The algorithm is the direct translation of the source's lcd_cycle/
// render_pixel pair: a signed dot counter ranging over [-80, 376),
// background-only rendering, no SCX/SCY, no window or sprite layers
// (all explicitly deferred — see the design notes this core follows).
package lcd

// LCDC mirrors the eight independent boolean bits of the LCD Control
// register, decomposed the way the bus stores them.
type LCDC struct {
	Enable       bool // bit 7
	WindowMap    bool // bit 6
	WindowEnable bool // bit 5
	TileSelect   bool // bit 4
	BGMap        bool // bit 3
	ObjSize      bool // bit 2
	ObjEnable    bool // bit 1
	BGEnable     bool // bit 0
}

// MemoryView is the slice of the bus the LCD needs: VRAM reads, the
// LCDC flags, and the LY register it advances. Implemented by
// *bus.Bus; kept as an interface here so the lcd package never
// imports bus.
type MemoryView interface {
	// ReadVRAM reads a byte at offset within VRAM (0x0000-0x1FFF).
	ReadVRAM(offset uint16) byte
	LCDC() LCDC
	LY() uint8
	SetLY(v uint8)
	RequestVBlank()
}

// dotMin and dotMax bound the per-scanline dot counter; the negative
// range models the OAM-scan delay before any pixel is emitted.
const (
	dotMin = -80
	dotMax = 376
)

// LCD drives the dot counter and renders background pixels into a
// caller-owned FrameBuffer.
type LCD struct {
	mem MemoryView
	fb  *FrameBuffer

	dot      int16
	endFrame bool
}

// New returns an LCD reading registers and VRAM through mem. The
// caller must call SetFrameBuffer before the first Tick.
func New(mem MemoryView) *LCD {
	return &LCD{mem: mem, dot: dotMin}
}

// SetFrameBuffer installs the pixel buffer the LCD writes into.
func (l *LCD) SetFrameBuffer(fb *FrameBuffer) {
	l.fb = fb
}

// EndFrame reports whether the LCD has reached vblank since the last
// ClearEndFrame.
func (l *LCD) EndFrame() bool {
	return l.endFrame
}

// ClearEndFrame resets the vblank latch; called by the frame driver
// after RunFrame returns.
func (l *LCD) ClearEndFrame() {
	l.endFrame = false
}

// Tick advances the LCD by cycles machine cycles, i.e. 4*cycles dots.
func (l *LCD) Tick(cycles int) {
	for i := 0; i < cycles; i++ {
		for d := 0; d < 4; d++ {
			l.tickDot()
		}
	}
}

func (l *LCD) tickDot() {
	if !l.mem.LCDC().Enable {
		return
	}

	l.dot++
	if l.dot >= dotMax {
		l.dot = dotMin
		ly := l.mem.LY() + 1
		if ly >= 154 {
			ly = 0
		}
		l.mem.SetLY(ly)
		if ly == Height {
			l.mem.RequestVBlank()
			l.endFrame = true
		}
	}

	ly := l.mem.LY()
	if ly < Height && l.dot >= 0 && l.dot < Width {
		l.renderPixel(int(l.dot), int(ly))
	}
}

func (l *LCD) renderPixel(x, y int) {
	lcdc := l.mem.LCDC()

	tileID := uint16(l.backgroundTile(x/8, y/8, lcdc))
	if !lcdc.TileSelect && tileID < 0x80 {
		tileID += 0x100
	}

	color := l.tilePixel(tileID, uint8(x%8), uint8(y%8))
	l.fb.SetPixel(x, y, color)
}

// backgroundTile reads the background tile map entry at tile
// coordinates (tx, ty); tx/ty are tile-based, not pixel-based.
func (l *LCD) backgroundTile(tx, ty int, lcdc LCDC) byte {
	base := uint16(0x1800)
	if lcdc.BGMap {
		base = 0x1C00
	}
	return l.mem.ReadVRAM(base + uint16(ty*32+tx))
}

// tilePixel returns the 2-bit color index of pixel (xm, ym) within
// the tile at tileID; xm/ym are in-tile coordinates, 0-7.
func (l *LCD) tilePixel(tileID uint16, xm, ym uint8) byte {
	lsb := l.mem.ReadVRAM(16*tileID + 2*uint16(ym))
	msb := l.mem.ReadVRAM(16*tileID + 2*uint16(ym) + 1)

	lsbBit := (lsb >> (7 - xm)) & 1
	msbBit := (msb >> (7 - xm)) & 1
	return (msbBit << 1) | lsbBit
}

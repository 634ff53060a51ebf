// Package bus implements the DMG's non-uniform memory map: address
// decoding, I/O register semantics, the DIV/TIMA/TMA/TAC timer, and
// the DMA copy into OAM. It owns every memory region and routes I/O
// register reads and writes to the right subsystem.
package bus

import (
	"log/slog"

	"github.com/rjgabel2/dmgcore/addr"
	"github.com/rjgabel2/dmgcore/bit"
	"github.com/rjgabel2/dmgcore/lcd"
)

type region uint8

const (
	regionROM region = iota
	regionVRAM
	regionExtRAM
	regionWRAM
	regionEcho
	regionOAM
	regionUnused
	regionIO
	regionHRAM
	regionIE
)

// bootTimerSeed is the original's hardcoded internal divider seed at
// power-on, kept as the default and made overridable via WithTimerSeed
// for deterministic tests.
const bootTimerSeed = 0xABCC

// Bus is the DMG memory map. It never ticks on its own; Read/Write are
// pure decode, and ReadTick/WriteTick (used by the CPU) additionally
// advance the LCD and timer by one machine cycle per byte transferred.
type Bus struct {
	rom  []byte
	vram [0x2000]byte
	wram [0x2000]byte
	oam  [0xA0]byte
	hram [0x7F]byte

	ifReg byte
	ie    byte

	sb, sc byte

	timer timer

	lcdc          lcd.LCDC
	stat          byte
	scy, scx      byte
	ly, lyc       byte
	dma           byte
	bgp           [4]byte
	obp0, obp1    [4]byte
	wy, wx        byte

	lcdEngine *lcd.LCD

	regionMap [256]region

	cyclesAccumulated int

	// pendingFault latches an unimplemented-I/O access until the CPU
	// observes it; Read/Write have no error return of their own, so
	// this is the only channel that can carry the condition back out.
	pendingFault *FatalError

	log *slog.Logger
}

// TakePendingFault returns and clears any fault latched by the last
// Read or Write, letting the CPU surface it as the result of the
// instruction that triggered it instead of silently absorbing it.
func (b *Bus) TakePendingFault() *FatalError {
	f := b.pendingFault
	b.pendingFault = nil
	return f
}

// New constructs a Bus over rom, which must already have passed
// validateHeader. Construction always succeeds; validation happens in
// the package-level Create-facing helper that calls this.
func New(rom []byte, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}

	b := &Bus{
		rom: rom,
		log: logger,
	}
	b.timer.requestInterrupt = func() { b.RequestInterrupt(addr.TimerInterrupt) }
	b.timer.setSeed(bootTimerSeed)
	b.lcdc.Enable = true
	b.lcdEngine = lcd.New(b)
	initRegionMap(b)
	return b
}

func initRegionMap(b *Bus) {
	for i := 0x00; i <= 0x7F; i++ {
		b.regionMap[i] = regionROM
	}
	for i := 0x80; i <= 0x9F; i++ {
		b.regionMap[i] = regionVRAM
	}
	for i := 0xA0; i <= 0xBF; i++ {
		b.regionMap[i] = regionExtRAM
	}
	for i := 0xC0; i <= 0xDF; i++ {
		b.regionMap[i] = regionWRAM
	}
	for i := 0xE0; i <= 0xFD; i++ {
		b.regionMap[i] = regionEcho
	}
	b.regionMap[0xFE] = regionOAM
	b.regionMap[0xFF] = regionIO
}

// SetFrameBuffer installs the pixel buffer the LCD writes into.
func (b *Bus) SetFrameBuffer(fb *lcd.FrameBuffer) {
	b.lcdEngine.SetFrameBuffer(fb)
}

// SetTimerSeed overrides the internal divider's boot seed, for test
// determinism.
func (b *Bus) SetTimerSeed(seed uint16) {
	b.timer.setSeed(seed)
}

// EndFrame reports whether the LCD reached vblank since the last
// ClearEndFrame.
func (b *Bus) EndFrame() bool {
	return b.lcdEngine.EndFrame()
}

// ClearEndFrame resets the vblank latch.
func (b *Bus) ClearEndFrame() {
	b.lcdEngine.ClearEndFrame()
}

// Tick advances the timer and the LCD by cycles machine cycles and
// accumulates the wall-cycle counter used for host frame pacing.
func (b *Bus) Tick(cycles int) {
	b.cyclesAccumulated += cycles * 2
	b.timer.tick(cycles)
	b.lcdEngine.Tick(cycles)
}

// Cycles returns the cycle accumulator, counted in the same two-units-
// per-machine-cycle convention the original cartridge timing code uses.
func (b *Bus) Cycles() int {
	return b.cyclesAccumulated
}

// ResetCycles zeroes the accumulator; called by the caller after pacing.
func (b *Bus) ResetCycles() {
	b.cyclesAccumulated = 0
}

// ReadTick reads a byte and ticks the system by one machine cycle,
// matching the CPU's per-byte operand convention.
func (b *Bus) ReadTick(address uint16) byte {
	v := b.Read(address)
	b.Tick(1)
	return v
}

// WriteTick writes a byte and ticks the system by one machine cycle.
func (b *Bus) WriteTick(address uint16, value byte) {
	b.Write(address, value)
	b.Tick(1)
}

// RequestInterrupt sets the given interrupt's bit in IF.
func (b *Bus) RequestInterrupt(i addr.Interrupt) {
	b.ifReg = bit.Set(interruptBit(i), b.ifReg) & 0x1F
}

func interruptBit(i addr.Interrupt) uint8 {
	switch i {
	case addr.VBlankInterrupt:
		return 0
	case addr.LCDSTATInterrupt:
		return 1
	case addr.TimerInterrupt:
		return 2
	case addr.SerialInterrupt:
		return 3
	case addr.JoypadInterrupt:
		return 4
	default:
		return 0
	}
}

// IF and IE expose the interrupt registers directly for the CPU's
// dispatch check; both are always in [0, 0x1F].
func (b *Bus) IF() byte { return b.ifReg }
func (b *Bus) IE() byte { return b.ie }

// ClearIF clears the given bit in IF, used by the interrupt dispatcher
// after it selects a source to service.
func (b *Bus) ClearIF(i addr.Interrupt) {
	b.ifReg = bit.Reset(interruptBit(i), b.ifReg)
}

// Read performs the full address decode without ticking anything.
func (b *Bus) Read(address uint16) byte {
	switch b.regionMap[address>>8] {
	case regionROM:
		return b.rom[address]
	case regionVRAM:
		return b.vram[address&0x1FFF]
	case regionExtRAM:
		return 0xFF
	case regionWRAM:
		return b.wram[address&0x1FFF]
	case regionEcho:
		return b.wram[(address-0x2000)&0x1FFF]
	case regionOAM:
		if address <= 0xFE9F {
			return b.oam[address&0xFF]
		}
		return 0xFF
	case regionIO:
		if address == addr.IE {
			return b.ie
		}
		if address >= 0xFF80 {
			return b.hram[address-0xFF80]
		}
		return b.readIO(address)
	default:
		b.log.Warn("read at unmapped address", "addr", address)
		return 0xFF
	}
}

// Write performs the full address decode without ticking anything.
// Writes to ROM and the unused region are silently discarded.
func (b *Bus) Write(address uint16, value byte) {
	switch b.regionMap[address>>8] {
	case regionROM:
		return
	case regionVRAM:
		b.vram[address&0x1FFF] = value
	case regionExtRAM:
		return
	case regionWRAM:
		b.wram[address&0x1FFF] = value
	case regionEcho:
		b.wram[(address-0x2000)&0x1FFF] = value
	case regionOAM:
		if address <= 0xFE9F {
			b.oam[address&0xFF] = value
		}
	case regionIO:
		if address == addr.IE {
			b.ie = value & 0x1F
			return
		}
		if address >= 0xFF80 {
			b.hram[address-0xFF80] = value
			return
		}
		b.writeIO(address, value)
	default:
		b.log.Warn("write at unmapped address", "addr", address, "value", value)
	}
}

func (b *Bus) readIO(address uint16) byte {
	offset := address & 0x7F

	if offset >= addr.AudioStart&0x7F && offset <= addr.AudioEnd&0x7F {
		return 0x00
	}

	switch address {
	case addr.P1:
		return 0xFF
	case addr.SB:
		return b.sb
	case addr.SC:
		return b.sc
	case addr.DIV:
		return b.timer.div()
	case addr.TIMA:
		return b.timer.tima
	case addr.TMA:
		return b.timer.tma
	case addr.TAC:
		return b.timer.readTAC()
	case addr.IF:
		return b.ifReg
	case addr.LCDC:
		return packLCDC(b.lcdc)
	case addr.STAT:
		return b.stat
	case addr.SCY:
		return b.scy
	case addr.SCX:
		return b.scx
	case addr.LY:
		return b.ly
	case addr.LYC:
		return b.lyc
	case addr.DMA:
		return b.dma
	case addr.BGP:
		return packPalette(b.bgp)
	case addr.OBP0:
		return packPalette(b.obp0)
	case addr.OBP1:
		return packPalette(b.obp1)
	case addr.WY:
		return b.wy
	case addr.WX:
		return b.wx
	default:
		b.pendingFault = &FatalError{Kind: FatalUnimplementedIO, Address: address}
		return 0xFF
	}
}

func (b *Bus) writeIO(address uint16, value byte) {
	offset := address & 0x7F

	if offset >= addr.AudioStart&0x7F && offset <= addr.AudioEnd&0x7F {
		return
	}
	if offset == 0x7F {
		// Write-ignored: a well-known title writes here by bug.
		return
	}

	switch address {
	case addr.P1:
		return
	case addr.SB:
		b.sb = value
	case addr.SC:
		b.sc = value
	case addr.DIV:
		b.timer.resetDiv()
	case addr.TIMA:
		b.timer.tima = value
	case addr.TMA:
		b.timer.tma = value
	case addr.TAC:
		b.timer.tac = value & 0x07
	case addr.IF:
		b.ifReg = value & 0x1F
	case addr.LCDC:
		b.lcdc = unpackLCDC(value)
	case addr.STAT:
		b.stat = value
	case addr.SCY:
		b.scy = value
	case addr.SCX:
		b.scx = value
	case addr.LY:
		return
	case addr.LYC:
		b.lyc = value
	case addr.DMA:
		b.dma = value
		b.runDMA(value)
	case addr.BGP:
		b.bgp = unpackPalette(value)
	case addr.OBP0:
		b.obp0 = unpackPalette(value)
	case addr.OBP1:
		b.obp1 = unpackPalette(value)
	case addr.WY:
		b.wy = value
	case addr.WX:
		b.wx = value
	default:
		b.pendingFault = &FatalError{Kind: FatalUnimplementedIO, Address: address}
	}
}

// runDMA copies 160 bytes starting at value<<8 into OAM. Performed
// here as a single-shot copy; this core does not model the real
// hardware's bus-conflict timing during DMA.
func (b *Bus) runDMA(value byte) {
	source := uint16(value) << 8
	for i := uint16(0); i < 160; i++ {
		b.oam[i] = b.Read(source + i)
	}
}

func packLCDC(l lcd.LCDC) byte {
	var v byte
	if l.Enable {
		v |= 1 << 7
	}
	if l.WindowMap {
		v |= 1 << 6
	}
	if l.WindowEnable {
		v |= 1 << 5
	}
	if l.TileSelect {
		v |= 1 << 4
	}
	if l.BGMap {
		v |= 1 << 3
	}
	if l.ObjSize {
		v |= 1 << 2
	}
	if l.ObjEnable {
		v |= 1 << 1
	}
	if l.BGEnable {
		v |= 1 << 0
	}
	return v
}

func unpackLCDC(v byte) lcd.LCDC {
	return lcd.LCDC{
		Enable:       bit.IsSet(7, v),
		WindowMap:    bit.IsSet(6, v),
		WindowEnable: bit.IsSet(5, v),
		TileSelect:   bit.IsSet(4, v),
		BGMap:        bit.IsSet(3, v),
		ObjSize:      bit.IsSet(2, v),
		ObjEnable:    bit.IsSet(1, v),
		BGEnable:     bit.IsSet(0, v),
	}
}

func packPalette(p [4]byte) byte {
	return (p[3] << 6) | (p[2] << 4) | (p[1] << 2) | p[0]
}

func unpackPalette(v byte) [4]byte {
	return [4]byte{
		v & 0x3,
		(v >> 2) & 0x3,
		(v >> 4) & 0x3,
		(v >> 6) & 0x3,
	}
}

// The methods below implement lcd.MemoryView.

// ReadVRAM reads a byte at offset within VRAM (0x0000-0x1FFF).
func (b *Bus) ReadVRAM(offset uint16) byte {
	return b.vram[offset&0x1FFF]
}

// LCDC returns the decomposed LCD Control flags.
func (b *Bus) LCDC() lcd.LCDC {
	return b.lcdc
}

// LY returns the current scanline register.
func (b *Bus) LY() uint8 {
	return b.ly
}

// SetLY is called only by the LCD engine to advance the scanline.
func (b *Bus) SetLY(v uint8) {
	b.ly = v
}

// RequestVBlank sets the vblank bit in IF; called only by the LCD engine.
func (b *Bus) RequestVBlank() {
	b.RequestInterrupt(addr.VBlankInterrupt)
}

// Package cpu implements the SM83 fetch/decode/execute loop: the
// register file, flag math, and the primary and CB-prefixed dispatch
// tables. Every memory access goes through the bus's ticking
// primitives so the LCD and timer stay in lock-step with instruction
// execution, per the cycle-accuracy contract.
package cpu

import (
	"log/slog"

	"github.com/rjgabel2/dmgcore/bit"
	"github.com/rjgabel2/dmgcore/bus"
	"github.com/rjgabel2/dmgcore/interrupt"
)

// initialPC and initialSP are the DMG's post-boot-ROM values.
const (
	initialPC uint16 = 0x0100
	initialSP uint16 = 0xFFFE
)

// CPU holds the SM83 register file and drives execution against a *bus.Bus.
type CPU struct {
	a, b, c, d, e, h, l uint8
	fz, fn, fh, fc      bool
	pc, sp              uint16
	ime                 bool

	bus *bus.Bus
	log *slog.Logger

	// instrPC is the address of the opcode byte currently executing,
	// used by HALT/STOP/illegal-opcode handlers to report where the
	// fatal condition occurred.
	instrPC uint16
}

// New returns a CPU wired to b, with registers at their post-construction
// values: A/B/C/D/E/H/L and all flags zeroed (rather than modeling real
// hardware's post-boot-ROM register values), PC=0x0100, SP=0xFFFE, IME=false.
func New(b *bus.Bus, logger *slog.Logger) *CPU {
	if logger == nil {
		logger = slog.Default()
	}
	return &CPU{
		pc:  initialPC,
		sp:  initialSP,
		bus: b,
		log: logger,
	}
}

// PC and SP expose program state for test harnesses and S1/S6-style scenarios.
func (c *CPU) PC() uint16 { return c.pc }
func (c *CPU) SP() uint16 { return c.sp }
func (c *CPU) IME() bool  { return c.ime }

// A, BC, DE, HL expose register values for tests.
func (c *CPU) A() uint8    { return c.a }
func (c *CPU) F() uint8    { return c.packedF() }
func (c *CPU) BC() uint16  { return c.bc() }
func (c *CPU) DE() uint16  { return c.de() }
func (c *CPU) HL() uint16  { return c.hl() }
func (c *CPU) Flags() (z, n, h, cy bool) { return c.fz, c.fn, c.fh, c.fc }

// SetPC/SetSP/SetA/SetBC/SetDE/SetHL/SetIME let test harnesses and a
// CLI set up scenarios without exposing the raw register fields.
func (c *CPU) SetPC(v uint16)  { c.pc = v }
func (c *CPU) SetSP(v uint16)  { c.sp = v }
func (c *CPU) SetA(v uint8)    { c.a = v }
func (c *CPU) SetBC(v uint16)  { c.setBC(v) }
func (c *CPU) SetDE(v uint16)  { c.setDE(v) }
func (c *CPU) SetHL(v uint16)  { c.setHL(v) }
func (c *CPU) SetIME(v bool)   { c.ime = v }

// Step performs the interrupt check and then either dispatches an
// interrupt or fetches, decodes, and executes one instruction.
func (c *CPU) Step() *bus.FatalError {
	if c.tryDispatchInterrupt() {
		return c.bus.TakePendingFault()
	}

	c.instrPC = c.pc
	opcode := c.fetchByte()
	if fault := c.bus.TakePendingFault(); fault != nil {
		return fault
	}

	exec := primaryTable[opcode]
	if err := exec(c); err != nil {
		return err
	}
	if fault := c.bus.TakePendingFault(); fault != nil {
		return fault
	}
	return nil
}

// tryDispatchInterrupt: if IME is set and a source is both enabled and
// flagged, clear IME, tick, push PC, clear the source's IF bit, jump
// to its vector, tick.
func (c *CPU) tryDispatchInterrupt() bool {
	if !c.ime {
		return false
	}

	source, vector, ok := interrupt.Pending(c.bus.IE(), c.bus.IF())
	if !ok {
		return false
	}

	c.ime = false
	c.bus.Tick(1)
	c.pushWord(c.pc)
	c.bus.ClearIF(source)
	c.pc = vector
	c.bus.Tick(1)
	return true
}

// fetchByte reads the byte at [PC], advances PC, and ticks once.
func (c *CPU) fetchByte() byte {
	v := c.bus.ReadTick(c.pc)
	c.pc++
	return v
}

// fetchSignedByte reads a signed displacement byte.
func (c *CPU) fetchSignedByte() int8 {
	return int8(c.fetchByte())
}

// fetchWord reads a little-endian word, low byte first.
func (c *CPU) fetchWord() uint16 {
	lo := c.fetchByte()
	hi := c.fetchByte()
	return bit.Combine(hi, lo)
}

// pushWord decrements SP and writes v high-then-low, with one extra
// tick before the writes (three ticks total).
func (c *CPU) pushWord(v uint16) {
	c.bus.Tick(1)
	c.sp--
	c.bus.WriteTick(c.sp, bit.High(v))
	c.sp--
	c.bus.WriteTick(c.sp, bit.Low(v))
}

// popWord reads low then high with post-increment; no extra tick.
func (c *CPU) popWord() uint16 {
	lo := c.bus.ReadTick(c.sp)
	c.sp++
	hi := c.bus.ReadTick(c.sp)
	c.sp++
	return bit.Combine(hi, lo)
}

// Register-pair views. The low nibble of F is always zero.

func (c *CPU) packedF() byte {
	var f byte
	if c.fz {
		f |= 0x80
	}
	if c.fn {
		f |= 0x40
	}
	if c.fh {
		f |= 0x20
	}
	if c.fc {
		f |= 0x10
	}
	return f
}

func (c *CPU) setPackedF(v byte) {
	c.fz = bit.IsSet(7, v)
	c.fn = bit.IsSet(6, v)
	c.fh = bit.IsSet(5, v)
	c.fc = bit.IsSet(4, v)
}

func (c *CPU) af() uint16     { return bit.Combine(c.a, c.packedF()) }
func (c *CPU) setAF(v uint16) { c.a = bit.High(v); c.setPackedF(bit.Low(v) & 0xF0) }

func (c *CPU) bc() uint16     { return bit.Combine(c.b, c.c) }
func (c *CPU) setBC(v uint16) { c.b, c.c = bit.High(v), bit.Low(v) }

func (c *CPU) de() uint16     { return bit.Combine(c.d, c.e) }
func (c *CPU) setDE(v uint16) { c.d, c.e = bit.High(v), bit.Low(v) }

func (c *CPU) hl() uint16     { return bit.Combine(c.h, c.l) }
func (c *CPU) setHL(v uint16) { c.h, c.l = bit.High(v), bit.Low(v) }

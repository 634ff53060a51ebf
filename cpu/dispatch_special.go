package cpu

import "github.com/rjgabel2/dmgcore/bus"

// buildSpecialOpcodes fills in every primary-table opcode that isn't
// part of one of the regular LD/ALU/INC-DEC patterns: 16-bit loads and
// arithmetic, stack ops, jumps/calls/returns, and the handful of
// standalone single-byte instructions.
func buildSpecialOpcodes() {
	rrGroup := [4]rr16{rrBC, rrDE, rrHL, rrSPorAF /* = SP in this group */}
	condNames := [4]func(c *CPU) bool{
		func(c *CPU) bool { return !c.fz },
		func(c *CPU) bool { return c.fz },
		func(c *CPU) bool { return !c.fc },
		func(c *CPU) bool { return c.fc },
	}

	for i := 0; i < 4; i++ {
		r := rrGroup[i]

		ldOp := 0x01 + i*0x10
		primaryTable[ldOp] = func(c *CPU) *bus.FatalError {
			c.setRR(r, c.fetchWord())
			return nil
		}

		incOp := 0x03 + i*0x10
		primaryTable[incOp] = func(c *CPU) *bus.FatalError {
			c.setRR(r, c.getRR(r)+1)
			c.bus.Tick(1)
			return nil
		}

		decOp := 0x0B + i*0x10
		primaryTable[decOp] = func(c *CPU) *bus.FatalError {
			c.setRR(r, c.getRR(r)-1)
			c.bus.Tick(1)
			return nil
		}

		addHLOp := 0x09 + i*0x10
		primaryTable[addHLOp] = func(c *CPU) *bus.FatalError {
			c.addHL(c.getRR(r))
			return nil
		}

		pushOp := 0xC5 + i*0x10
		popOp := 0xC1 + i*0x10
		stackReg := rrGroup[i]
		primaryTable[pushOp] = func(c *CPU) *bus.FatalError {
			c.pushWord(c.getRRStack(stackReg))
			return nil
		}
		primaryTable[popOp] = func(c *CPU) *bus.FatalError {
			c.setRRStack(stackReg, c.popWord())
			return nil
		}

		cond := condNames[i]

		retOp := 0xC0 + i*8
		primaryTable[retOp] = func(c *CPU) *bus.FatalError {
			c.bus.Tick(1)
			if cond(c) {
				c.pc = c.popWord()
				c.bus.Tick(1)
			}
			return nil
		}

		jpOp := 0xC2 + i*8
		primaryTable[jpOp] = func(c *CPU) *bus.FatalError {
			target := c.fetchWord()
			if cond(c) {
				c.pc = target
				c.bus.Tick(1)
			}
			return nil
		}

		callOp := 0xC4 + i*8
		primaryTable[callOp] = func(c *CPU) *bus.FatalError {
			target := c.fetchWord()
			if cond(c) {
				// pushWord's own lead tick supplies CALL's internal delay.
				c.pushWord(c.pc)
				c.pc = target
			}
			return nil
		}

		jrOp := 0x20 + i*8
		primaryTable[jrOp] = func(c *CPU) *bus.FatalError {
			offset := c.fetchSignedByte()
			if cond(c) {
				c.pc = uint16(int32(c.pc) + int32(offset))
				c.bus.Tick(1)
			}
			return nil
		}
	}

	for i := 0; i < 8; i++ {
		vector := uint16(i * 8)
		opcode := 0xC7 + i*8
		primaryTable[opcode] = func(c *CPU) *bus.FatalError {
			c.pushWord(c.pc)
			c.pc = vector
			return nil
		}
	}

	primaryTable[0x00] = func(c *CPU) *bus.FatalError { return nil }

	primaryTable[0x02] = func(c *CPU) *bus.FatalError {
		c.bus.WriteTick(c.bc(), c.a)
		return nil
	}
	primaryTable[0x12] = func(c *CPU) *bus.FatalError {
		c.bus.WriteTick(c.de(), c.a)
		return nil
	}
	primaryTable[0x0A] = func(c *CPU) *bus.FatalError {
		c.a = c.bus.ReadTick(c.bc())
		return nil
	}
	primaryTable[0x1A] = func(c *CPU) *bus.FatalError {
		c.a = c.bus.ReadTick(c.de())
		return nil
	}

	primaryTable[0x22] = func(c *CPU) *bus.FatalError {
		c.bus.WriteTick(c.hl(), c.a)
		c.setHL(c.hl() + 1)
		return nil
	}
	primaryTable[0x2A] = func(c *CPU) *bus.FatalError {
		c.a = c.bus.ReadTick(c.hl())
		c.setHL(c.hl() + 1)
		return nil
	}
	primaryTable[0x32] = func(c *CPU) *bus.FatalError {
		c.bus.WriteTick(c.hl(), c.a)
		c.setHL(c.hl() - 1)
		return nil
	}
	primaryTable[0x3A] = func(c *CPU) *bus.FatalError {
		c.a = c.bus.ReadTick(c.hl())
		c.setHL(c.hl() - 1)
		return nil
	}

	primaryTable[0x08] = func(c *CPU) *bus.FatalError {
		addr := c.fetchWord()
		c.bus.WriteTick(addr, byte(c.sp))
		c.bus.WriteTick(addr+1, byte(c.sp>>8))
		return nil
	}

	primaryTable[0xE0] = func(c *CPU) *bus.FatalError {
		offset := c.fetchByte()
		c.bus.WriteTick(0xFF00+uint16(offset), c.a)
		return nil
	}
	primaryTable[0xF0] = func(c *CPU) *bus.FatalError {
		offset := c.fetchByte()
		c.a = c.bus.ReadTick(0xFF00 + uint16(offset))
		return nil
	}
	primaryTable[0xE2] = func(c *CPU) *bus.FatalError {
		c.bus.WriteTick(0xFF00+uint16(c.c), c.a)
		return nil
	}
	primaryTable[0xF2] = func(c *CPU) *bus.FatalError {
		c.a = c.bus.ReadTick(0xFF00 + uint16(c.c))
		return nil
	}

	primaryTable[0xEA] = func(c *CPU) *bus.FatalError {
		addr := c.fetchWord()
		c.bus.WriteTick(addr, c.a)
		return nil
	}
	primaryTable[0xFA] = func(c *CPU) *bus.FatalError {
		addr := c.fetchWord()
		c.a = c.bus.ReadTick(addr)
		return nil
	}

	primaryTable[0xE8] = func(c *CPU) *bus.FatalError {
		offset := c.fetchSignedByte()
		c.sp = c.addSPSigned(offset)
		c.bus.Tick(2)
		return nil
	}
	primaryTable[0xF8] = func(c *CPU) *bus.FatalError {
		offset := c.fetchSignedByte()
		c.setHL(c.addSPSigned(offset))
		c.bus.Tick(1)
		return nil
	}
	primaryTable[0xF9] = func(c *CPU) *bus.FatalError {
		c.sp = c.hl()
		c.bus.Tick(1)
		return nil
	}

	primaryTable[0x18] = func(c *CPU) *bus.FatalError {
		offset := c.fetchSignedByte()
		c.pc = uint16(int32(c.pc) + int32(offset))
		c.bus.Tick(1)
		return nil
	}
	primaryTable[0xC3] = func(c *CPU) *bus.FatalError {
		c.pc = c.fetchWord()
		c.bus.Tick(1)
		return nil
	}
	primaryTable[0xE9] = func(c *CPU) *bus.FatalError {
		c.pc = c.hl()
		return nil
	}
	primaryTable[0xCD] = func(c *CPU) *bus.FatalError {
		target := c.fetchWord()
		// pushWord's own lead tick supplies CALL's internal delay.
		c.pushWord(c.pc)
		c.pc = target
		return nil
	}
	primaryTable[0xC9] = func(c *CPU) *bus.FatalError {
		c.pc = c.popWord()
		c.bus.Tick(1)
		return nil
	}
	primaryTable[0xD9] = func(c *CPU) *bus.FatalError {
		c.pc = c.popWord()
		c.ime = true
		c.bus.Tick(1)
		return nil
	}

	primaryTable[0x07] = func(c *CPU) *bus.FatalError { c.rlca(); return nil }
	primaryTable[0x0F] = func(c *CPU) *bus.FatalError { c.rrca(); return nil }
	primaryTable[0x17] = func(c *CPU) *bus.FatalError { c.rla(); return nil }
	primaryTable[0x1F] = func(c *CPU) *bus.FatalError { c.rra(); return nil }

	primaryTable[0x27] = func(c *CPU) *bus.FatalError { return nil } // DAA: stub, flags untouched
	primaryTable[0x2F] = func(c *CPU) *bus.FatalError {
		c.a = ^c.a
		c.fn = true
		c.fh = true
		return nil
	}
	primaryTable[0x37] = func(c *CPU) *bus.FatalError {
		c.fn = false
		c.fh = false
		c.fc = true
		return nil
	}
	primaryTable[0x3F] = func(c *CPU) *bus.FatalError {
		c.fn = false
		c.fh = false
		c.fc = !c.fc
		return nil
	}

	primaryTable[0xF3] = func(c *CPU) *bus.FatalError { c.ime = false; return nil }
	primaryTable[0xFB] = func(c *CPU) *bus.FatalError { c.ime = true; return nil }

	primaryTable[0x10] = func(c *CPU) *bus.FatalError {
		return &bus.FatalError{Kind: bus.FatalStopped, Address: c.instrPC}
	}

	primaryTable[0xCB] = func(c *CPU) *bus.FatalError {
		cbOpcode := c.fetchByte()
		return cbTable[cbOpcode](c)
	}
}

func opHalt(c *CPU) *bus.FatalError {
	return &bus.FatalError{Kind: bus.FatalHalted, Address: c.instrPC}
}

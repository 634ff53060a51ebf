package cpu

import "github.com/rjgabel2/dmgcore/bus"

// opcodeFunc executes one primary-table or CB-table instruction.
// Unlike the source's function-pointer arrays, execution ticks the
// bus directly as each operand is read or written, so there is no
// separate cycle-count return value to thread back to a caller.
type opcodeFunc func(c *CPU) *bus.FatalError

// primaryTable and cbTable are dense 256-entry dispatch tables, built
// once at init time and keyed as an array instead of a map since every
// key 0-255 is populated. Step calls the selected function value, so
// each instruction is dispatched through an indirect call.
var primaryTable [256]opcodeFunc
var cbTable [256]opcodeFunc

// illegalOpcodes lists the SM83 primary-table bytes with no defined
// instruction.
var illegalOpcodes = [...]byte{
	0xD3, 0xDB, 0xDD, 0xE3, 0xE4, 0xEB, 0xEC, 0xED, 0xF4, 0xFC, 0xFD,
}

func illegalOpcode(c *CPU) *bus.FatalError {
	opcode := c.bus.Read(c.instrPC)
	return &bus.FatalError{Kind: bus.FatalIllegalOpcode, Address: c.instrPC, Byte: opcode}
}

func init() {
	for i := range primaryTable {
		primaryTable[i] = illegalOpcode
	}
	for _, op := range illegalOpcodes {
		primaryTable[op] = illegalOpcode
	}

	buildLoadTable()
	buildALUTable()
	buildIncDecTable()
	buildSpecialOpcodes()
	buildCBTable()
}

// buildLoadTable fills in LD r,r' (0x40-0x7F, with 0x76 as HALT) and
// LD r,n (0x06/0x0E/.../0x3E).
func buildLoadTable() {
	regs := [8]reg8{regB, regC, regD, regE, regH, regL, regHLInd, regA}

	for dst := 0; dst < 8; dst++ {
		for src := 0; src < 8; src++ {
			opcode := 0x40 + dst*8 + src
			if dst == 6 && src == 6 {
				primaryTable[opcode] = opHalt
				continue
			}
			d, s := regs[dst], regs[src]
			primaryTable[opcode] = func(c *CPU) *bus.FatalError {
				c.setReg8(d, c.getReg8(s))
				return nil
			}
		}
	}

	for dst := 0; dst < 8; dst++ {
		opcode := 0x06 + dst*8
		d := regs[dst]
		primaryTable[opcode] = func(c *CPU) *bus.FatalError {
			c.setReg8(d, c.fetchByte())
			return nil
		}
	}
}

// aluOp identifies the eight ALU A,x operations in their table order.
type aluOp int

const (
	aluAdd aluOp = iota
	aluAdc
	aluSub
	aluSbc
	aluAnd
	aluXor
	aluOr
	aluCp
)

func (c *CPU) applyALU(op aluOp, operand uint8) {
	switch op {
	case aluAdd:
		c.addA(operand)
	case aluAdc:
		c.adcA(operand)
	case aluSub:
		c.subA(operand)
	case aluSbc:
		c.sbcA(operand)
	case aluAnd:
		c.andA(operand)
	case aluXor:
		c.xorA(operand)
	case aluOr:
		c.orA(operand)
	case aluCp:
		c.cpA(operand)
	}
}

// buildALUTable fills in ALU A,r (0x80-0xBF) and ALU A,n (0xC6-0xFE step 8).
func buildALUTable() {
	regs := [8]reg8{regB, regC, regD, regE, regH, regL, regHLInd, regA}
	ops := [8]aluOp{aluAdd, aluAdc, aluSub, aluSbc, aluAnd, aluXor, aluOr, aluCp}

	for opIdx := 0; opIdx < 8; opIdx++ {
		for srcIdx := 0; srcIdx < 8; srcIdx++ {
			opcode := 0x80 + opIdx*8 + srcIdx
			op, s := ops[opIdx], regs[srcIdx]
			primaryTable[opcode] = func(c *CPU) *bus.FatalError {
				c.applyALU(op, c.getReg8(s))
				return nil
			}
		}

		opcode := 0xC6 + opIdx*8
		op := ops[opIdx]
		primaryTable[opcode] = func(c *CPU) *bus.FatalError {
			c.applyALU(op, c.fetchByte())
			return nil
		}
	}
}

// buildIncDecTable fills in INC r (0x04+8n) and DEC r (0x05+8n).
func buildIncDecTable() {
	regs := [8]reg8{regB, regC, regD, regE, regH, regL, regHLInd, regA}

	for i := 0; i < 8; i++ {
		r := regs[i]

		incOp := 0x04 + i*8
		primaryTable[incOp] = func(c *CPU) *bus.FatalError {
			c.setReg8(r, c.inc8(c.getReg8(r)))
			return nil
		}

		decOp := 0x05 + i*8
		primaryTable[decOp] = func(c *CPU) *bus.FatalError {
			c.setReg8(r, c.dec8(c.getReg8(r)))
			return nil
		}
	}
}

// buildCBTable fills in all 256 CB-prefixed opcodes: rotate/shift/swap
// (0x00-0x3F), BIT (0x40-0x7F), RES (0x80-0xBF), SET (0xC0-0xFF).
func buildCBTable() {
	regs := [8]reg8{regB, regC, regD, regE, regH, regL, regHLInd, regA}

	type shiftOp int
	const (
		opRLC shiftOp = iota
		opRRC
		opRL
		opRR
		opSLA
		opSRA
		opSWAP
		opSRL
	)
	shiftOps := [8]shiftOp{opRLC, opRRC, opRL, opRR, opSLA, opSRA, opSWAP, opSRL}

	for groupIdx := 0; groupIdx < 8; groupIdx++ {
		op := shiftOps[groupIdx]
		for regIdx := 0; regIdx < 8; regIdx++ {
			opcode := groupIdx*8 + regIdx
			r := regs[regIdx]
			cbTable[opcode] = func(c *CPU) *bus.FatalError {
				v := c.getReg8(r)
				var result uint8
				var carry bool
				switch op {
				case opRLC:
					result, carry = rlc(v)
				case opRRC:
					result, carry = rrc(v)
				case opRL:
					result, carry = rl(v, c.fc)
				case opRR:
					result, carry = rr(v, c.fc)
				case opSLA:
					result, carry = sla(v)
				case opSRA:
					result, carry = sra(v)
				case opSWAP:
					result, carry = swap(v), false
				case opSRL:
					result, carry = srl(v)
				}
				c.setReg8(r, result)
				c.setZNHC(result == 0, false, false, carry)
				return nil
			}
		}
	}

	for b := 0; b < 8; b++ {
		for regIdx := 0; regIdx < 8; regIdx++ {
			opcode := 0x40 + b*8 + regIdx
			bitNum, r := uint8(b), regs[regIdx]
			cbTable[opcode] = func(c *CPU) *bus.FatalError {
				v := c.getReg8(r)
				set := (v>>bitNum)&1 == 1
				c.fz = !set
				c.fn = false
				c.fh = true
				return nil
			}
		}
	}

	for b := 0; b < 8; b++ {
		for regIdx := 0; regIdx < 8; regIdx++ {
			opcode := 0x80 + b*8 + regIdx
			bitNum, r := uint8(b), regs[regIdx]
			cbTable[opcode] = func(c *CPU) *bus.FatalError {
				c.setReg8(r, c.getReg8(r)&^(1<<bitNum))
				return nil
			}
		}
	}

	for b := 0; b < 8; b++ {
		for regIdx := 0; regIdx < 8; regIdx++ {
			opcode := 0xC0 + b*8 + regIdx
			bitNum, r := uint8(b), regs[regIdx]
			cbTable[opcode] = func(c *CPU) *bus.FatalError {
				c.setReg8(r, c.getReg8(r)|(1<<bitNum))
				return nil
			}
		}
	}
}

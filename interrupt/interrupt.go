// Package interrupt implements the priority scan and vector lookup for
// the DMG's five interrupt sources. It holds no state of its own; IF
// and IE live in the bus, and the CPU performs the actual dispatch
// sequence (clear IME, tick, push PC, clear the IF bit, load PC, tick).
package interrupt

import "github.com/rjgabel2/dmgcore/addr"

// sources lists the five interrupt bits in dispatch-priority order,
// lowest bit first.
var sources = [5]addr.Interrupt{
	addr.VBlankInterrupt,
	addr.LCDSTATInterrupt,
	addr.TimerInterrupt,
	addr.SerialInterrupt,
	addr.JoypadInterrupt,
}

// Pending returns the highest-priority (lowest-numbered bit) interrupt
// source that is both enabled (ie) and flagged (iflag), and the vector
// it dispatches to. ok is false when no such source exists.
func Pending(ie, iflag uint8) (source addr.Interrupt, vector uint16, ok bool) {
	pending := ie & iflag & 0x1F
	if pending == 0 {
		return 0, 0, false
	}
	for _, s := range sources {
		if pending&uint8(s) != 0 {
			return s, s.Vector(), true
		}
	}
	return 0, 0, false
}

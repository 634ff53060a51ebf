// Package dmgcore wires the bus and CPU into a single runnable
// machine: Create loads a ROM image, RunFrame advances emulation one
// frame at a time, and Destroy releases the machine's interior state.
package dmgcore

import (
	"log/slog"

	"github.com/rjgabel2/dmgcore/bus"
	"github.com/rjgabel2/dmgcore/cpu"
	"github.com/rjgabel2/dmgcore/lcd"
)

// Machine is the root handle returned by Create: a bus and a CPU
// wired together, plus whatever framebuffer the caller has installed.
type Machine struct {
	bus *bus.Bus
	cpu *cpu.CPU
}

// Option configures Machine construction, forwarding to the bus's
// own options where applicable.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	timerSeed uint16
	haveSeed  bool
}

// WithLogger overrides the package-default logger (slog.Default()) for
// both the bus and the CPU.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTimerSeed overrides the internal divider's boot seed, for test
// determinism.
func WithTimerSeed(seed uint16) Option {
	return func(o *options) {
		o.timerSeed = seed
		o.haveSeed = true
	}
}

// Create validates rom and, on success, returns a Machine whose CPU is
// positioned at its post-boot-ROM entry point (PC=0x0100). The caller
// must still call SetFrameBuffer before the first RunFrame.
func Create(rom []byte, opts ...Option) (*Machine, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var busOpts []bus.Option
	if o.logger != nil {
		busOpts = append(busOpts, bus.WithLogger(o.logger))
	}
	if o.haveSeed {
		busOpts = append(busOpts, bus.WithTimerSeed(o.timerSeed))
	}

	b, err := bus.Create(rom, busOpts...)
	if err != nil {
		return nil, err
	}

	c := cpu.New(b, o.logger)
	return &Machine{bus: b, cpu: c}, nil
}

// SetFrameBuffer installs the pixel buffer the LCD renders into.
func (m *Machine) SetFrameBuffer(fb *lcd.FrameBuffer) {
	m.bus.SetFrameBuffer(fb)
}

// CPU exposes the machine's CPU for test harnesses and scenario setup.
func (m *Machine) CPU() *cpu.CPU { return m.cpu }

// Bus exposes the machine's bus for test harnesses, direct Read/Write
// access, and scenario setup.
func (m *Machine) Bus() *bus.Bus { return m.bus }

// RunFrame advances emulation until the LCD signals vblank, then
// clears the latch and returns. Pacing and resetting the cycle
// accumulator afterward are the caller's responsibility.
func (m *Machine) RunFrame() *bus.FatalError {
	for !m.bus.EndFrame() {
		if err := m.cpu.Step(); err != nil {
			return err
		}
	}
	m.bus.ClearEndFrame()
	return nil
}

// Destroy releases the machine's interior state. The core holds no
// resources beyond Go-managed memory, so this only drops the
// machine's references; included for interface parity with hosts that
// otherwise have to special-case a no-op teardown.
func Destroy(m *Machine) {
	m.bus = nil
	m.cpu = nil
}

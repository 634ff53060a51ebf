package bus

import "log/slog"

// Option configures Bus construction.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	timerSeed  uint16
	haveSeed   bool
}

// WithLogger overrides the package-default logger (slog.Default()).
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

// Create validates rom against the cartridge header checks and, on
// success, returns a ready Bus. rom is kept and read directly (ROM
// bank 0/1 are read-only views into it); the caller must not mutate it.
func Create(rom []byte, opts ...Option) (*Bus, error) {
	if err := validateHeader(rom); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	b := New(rom, o.logger)
	if o.haveSeed {
		b.SetTimerSeed(o.timerSeed)
	}
	return b, nil
}

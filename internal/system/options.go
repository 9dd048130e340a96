package system

import "github.com/reneklacan/gbcore/pkg/log"

// Model selects which hardware mode a System runs in. ModelAuto follows
// the cartridge header's CGB flag, matching real hardware's own
// auto-detection.
type Model uint8

const (
	ModelAuto Model = iota
	ModelDMG
	ModelCGB
)

// Option configures a System at construction time, mirroring the
// reference core's functional-options pattern.
type Option func(*config)

type config struct {
	logger     log.Logger
	model      Model
	noBattery  bool
	serialTest bool
}

func defaultConfig() *config {
	// logger is left nil here: New tags the default logger with the
	// cartridge's title and CGB flag once the header has been read, so it
	// can only be built after cfg.model is resolved against the cartridge.
	return &config{model: ModelAuto}
}

// WithLogger overrides the default logrus-backed logger, which is
// otherwise tagged with the cartridge's title and CGB flag.
func WithLogger(l log.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithModel forces DMG or CGB mode instead of auto-detecting from the
// cartridge header.
func WithModel(m Model) Option {
	return func(c *config) { c.model = m }
}

// WithoutBattery disables save-RAM persistence even if the cartridge
// header declares a battery, useful for test ROMs that shouldn't leave a
// stray .sav behind.
func WithoutBattery() Option {
	return func(c *config) { c.noBattery = true }
}

// WithSerialTestMode enables the Blargg-style serial-output capture used
// by hardware test ROMs.
func WithSerialTestMode() Option {
	return func(c *config) { c.serialTest = true }
}

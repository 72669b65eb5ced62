package framepool

import (
	"time"
)

// DefaultFrameInterval is how often the frame source is asked to
// produce a new frame.
const DefaultFrameInterval = 50 * time.Millisecond

type Config struct {
	FrameInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		FrameInterval: DefaultFrameInterval,
	}
}

type Option interface {
	Apply(cfg *Config)
}

type Options []Option

func (s Options) Config() Config {
	cfg := DefaultConfig()
	s.apply(&cfg)
	return cfg
}

func (s Options) apply(cfg *Config) {
	for _, opt := range s {
		opt.Apply(cfg)
	}
}

type OptionFrameInterval time.Duration

func (opt OptionFrameInterval) Apply(cfg *Config) {
	if opt <= 0 {
		return
	}
	cfg.FrameInterval = time.Duration(opt)
}

package gpu

type Config struct {
	Adapter             uint
	RowPitchAlignment   uint32
	MaxTextureDimension uint32

	// MemoryBudget limits the total amount of texture memory;
	// zero means no limit.
	MemoryBudget uint64
}

var DefaultConfig = func() Config {
	return Config{
		Adapter:             0,
		RowPitchAlignment:   256,
		MaxTextureDimension: 16384,
	}
}

type Option interface {
	Apply(cfg *Config)
}

type Options []Option

func (s Options) Config() Config {
	cfg := DefaultConfig()
	for _, opt := range s {
		opt.Apply(&cfg)
	}
	return cfg
}

type OptionAdapter uint

func (opt OptionAdapter) Apply(cfg *Config) {
	cfg.Adapter = uint(opt)
}

type OptionRowPitchAlignment uint32

func (opt OptionRowPitchAlignment) Apply(cfg *Config) {
	cfg.RowPitchAlignment = uint32(opt)
}

type OptionMaxTextureDimension uint32

func (opt OptionMaxTextureDimension) Apply(cfg *Config) {
	cfg.MaxTextureDimension = uint32(opt)
}

type OptionMemoryBudget uint64

func (opt OptionMemoryBudget) Apply(cfg *Config) {
	cfg.MemoryBudget = uint64(opt)
}

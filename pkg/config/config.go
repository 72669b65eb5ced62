package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/screensnap/pkg/xpath"
)

const (
	DefaultConfigPath = "~/.screensnap.yaml"
	DefaultOutputPath = "screenshot.png"
)

type DeviceConfig struct {
	RowPitchAlignment uint32 `yaml:"row_pitch_alignment,omitempty"`
	MemoryBudget      uint64 `yaml:"memory_budget,omitempty"`
}

type config struct {
	OutputPath               string       `yaml:"output_path"`
	CaptureTimeout           Duration     `yaml:"capture_timeout"`
	FrameInterval            Duration     `yaml:"frame_interval"`
	WindowTitleCaseSensitive bool         `yaml:"window_title_case_sensitive"`
	MaxWidth                 int          `yaml:"max_width,omitempty"`
	MaxHeight                int          `yaml:"max_height,omitempty"`
	JPEGQuality              int          `yaml:"jpeg_quality,omitempty"`
	WebPQuality              int          `yaml:"webp_quality,omitempty"`
	Device                   DeviceConfig `yaml:"device"`

	LoggerLevel     LoggerLevel `yaml:"logger_level"`
	LogFile         string      `yaml:"log_file,omitempty"`
	SentryDSN       string      `yaml:"sentry_dsn,omitempty"`
	MetricsTextfile string      `yaml:"metrics_textfile,omitempty"`
}

type Config config

var (
	_ fmt.Stringer   = Config{}
	_ fmt.GoStringer = Config{}
)

// String implements fmt.Stringer; the Sentry DSN is hidden.
func (cfg Config) String() string {
	return fmt.Sprintf("%+v", cfg.redacted())
}

// GoString implements fmt.GoStringer, so that "%#v" hides the Sentry DSN as well.
func (cfg Config) GoString() string {
	return fmt.Sprintf("%#v", cfg.redacted())
}

func (cfg Config) redacted() config {
	c := config(cfg)
	if c.SentryDSN != "" {
		c.SentryDSN = "<HIDDEN>"
	}
	return c
}

func DefaultConfig() Config {
	return Config{
		OutputPath:     DefaultOutputPath,
		CaptureTimeout: Duration(5 * time.Second),
		FrameInterval:  Duration(50 * time.Millisecond),
		Device: DeviceConfig{
			RowPitchAlignment: 256,
		},
		LoggerLevel: LoggerLevel(logger.LevelWarning),
	}
}

// ReadConfigFromPath reads the config at cfgPath on top of the values
// already in cfg. A missing file is not an error.
func ReadConfigFromPath(
	ctx context.Context,
	cfgPath string,
	cfg *Config,
) error {
	cfgPath, err := xpath.Expand(cfgPath)
	if err != nil {
		return fmt.Errorf("unable to expand path '%s': %w", cfgPath, err)
	}

	b, err := os.ReadFile(cfgPath)
	switch {
	case err == nil:
	case os.IsNotExist(err):
		logger.Debugf(ctx, "cannot find file '%s', using the defaults", cfgPath)
		return nil
	default:
		return fmt.Errorf("unable to read file '%s': %w", cfgPath, err)
	}

	_, err = cfg.Read(b)
	if err != nil {
		return fmt.Errorf("unable to parse config '%s': %w", cfgPath, err)
	}
	return nil
}

func WriteConfigToPath(
	ctx context.Context,
	cfgPath string,
	cfg Config,
) error {
	cfgPath, err := xpath.Expand(cfgPath)
	if err != nil {
		return fmt.Errorf("unable to expand path '%s': %w", cfgPath, err)
	}

	pathNew := cfgPath + ".new"
	f, err := os.OpenFile(pathNew, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0640)
	if err != nil {
		return fmt.Errorf("unable to open the config file '%s': %w", pathNew, err)
	}
	_, err = cfg.WriteTo(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("unable to write data to file '%s': %w", pathNew, err)
	}
	err = os.Rename(pathNew, cfgPath)
	if err != nil {
		return fmt.Errorf("cannot move '%s' to '%s': %w", pathNew, cfgPath, err)
	}
	logger.Infof(ctx, "wrote the config to '%s'", cfgPath)
	logger.Debugf(ctx, "the written config: %#+v", cfg)
	return nil
}

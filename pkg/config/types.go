package config

import (
	"fmt"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/goccy/go-yaml"
)

// Duration is a time.Duration serialized as a string like "1m30s".
type Duration time.Duration

var _ yaml.BytesUnmarshaler = (*Duration)(nil)
var _ yaml.InterfaceMarshaler = Duration(0)

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(b []byte) error {
	var s string
	if err := yaml.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("unable to unserialize '%s' as a string: %w", b, err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("unable to parse duration '%s': %w", s, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// LoggerLevel is a logger.Level serialized by its name.
type LoggerLevel logger.Level

var _ yaml.BytesUnmarshaler = (*LoggerLevel)(nil)
var _ yaml.InterfaceMarshaler = LoggerLevel(0)

func (l LoggerLevel) MarshalYAML() (any, error) {
	return logger.Level(l).String(), nil
}

func (l *LoggerLevel) UnmarshalYAML(b []byte) error {
	var s string
	if err := yaml.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("unable to unserialize '%s' as a string: %w", b, err)
	}
	var level logger.Level
	if err := level.Set(s); err != nil {
		return fmt.Errorf("unable to parse logging level '%s': %w", s, err)
	}
	*l = LoggerLevel(level)
	return nil
}

func (l LoggerLevel) String() string {
	return logger.Level(l).String()
}

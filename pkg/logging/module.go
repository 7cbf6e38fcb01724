package logging

import (
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// New loads the "logging" Viper key into a Config, validates it and
// constructs the resulting zap-backed Interface. This replaces a
// dependency-injection container with a single explicit constructor,
// matching the "no global singleton, pass config explicitly" convention
// used across this module.
func New(v *viper.Viper) (Interface, error) {
	return NewNamed(v, ConfigKey)
}

// NewNamed is New but reads from a configuration key other than the root
// "logging" key — used when a component wants its own independently
// configured logger (e.g. a request logger with different rotation
// settings).
func NewNamed(v *viper.Viper, configKey string) (Interface, error) {
	config, err := NewConfig(WithViperKey(v, configKey))
	if err != nil {
		return nil, fmt.Errorf("reading logging configuration %q: %w", configKey, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logging configuration %q: %w", configKey, err)
	}

	zapLogger, err := NewLogger(config)
	if err != nil {
		return nil, err
	}

	return ForZap(zapLogger), nil
}

// NewZap is New but returns the underlying *zap.Logger directly, for
// callers that need it as-is rather than wrapped in Interface — e.g. gin
// middleware built around zap (pkg/logging/ginlog.RequestLogger).
func NewZap(v *viper.Viper) (*zap.Logger, error) {
	config, err := NewConfig(WithViperKey(v, ConfigKey))
	if err != nil {
		return nil, fmt.Errorf("reading logging configuration %q: %w", ConfigKey, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logging configuration %q: %w", ConfigKey, err)
	}
	return NewLogger(config)
}

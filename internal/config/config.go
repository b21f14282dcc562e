// Package config handles gltftool configuration loading and management.
package config

import (
	"errors"
	"fmt"

	"go.uber.org/zap/zapcore"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

// Output formats.
const (
	FormatText = "text"
	FormatYAML = "yaml"
)

// Config holds all tool settings.
type Config struct {
	Decode  DecodeConfig  `yaml:"decode"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// DecodeConfig holds glTF decoder limits.
type DecodeConfig struct {
	MaxDocumentBytes     int64 `yaml:"max_document_bytes"`     // 0 = unlimited
	AllowExternalBuffers bool  `yaml:"allow_external_buffers"` // resolve buffer URIs next to the document
}

// OutputConfig holds report formatting settings.
type OutputConfig struct {
	Format    string `yaml:"format"`    // text or yaml
	Precision int    `yaml:"precision"` // digits after the decimal point
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Decode: DecodeConfig{
			MaxDocumentBytes:     256 << 20,
			AllowExternalBuffers: true,
		},
		Output: OutputConfig{
			Format:    FormatText,
			Precision: 4,
		},
		Logging: LoggingConfig{
			Level:   "warn",
			LogFile: "",
		},
	}
}

// Validate checks value ranges after all sources are merged.
func (c *Config) Validate() error {
	if c.Decode.MaxDocumentBytes < 0 {
		return fmt.Errorf("%w: decode.max_document_bytes %d", ErrInvalid, c.Decode.MaxDocumentBytes)
	}
	switch c.Output.Format {
	case FormatText, FormatYAML:
	default:
		return fmt.Errorf("%w: output.format %q", ErrInvalid, c.Output.Format)
	}
	if c.Output.Precision < 0 || c.Output.Precision > 9 {
		return fmt.Errorf("%w: output.precision %d", ErrInvalid, c.Output.Precision)
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: logging.level %q", ErrInvalid, c.Logging.Level)
	}
	return nil
}

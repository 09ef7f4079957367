// Package logging builds the zap loggers used by every womp command.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options select the logger flavour.
type Options struct {
	// Verbose switches to the development config: debug level, caller and
	// stack traces.
	Verbose bool
	// File, when set, receives a copy of every entry.
	File string
	// NoColor disables level colors, e.g. when stderr is not a terminal.
	NoColor bool
}

// New builds a logger writing to stderr. Stdout is left alone because
// `womp mcp serve` speaks the protocol on it.
func New(opts Options) (*zap.Logger, error) {
	var config zap.Config
	if opts.Verbose {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
		config.DisableCaller = true
		config.DisableStacktrace = true
		config.Encoding = "console"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if opts.NoColor || opts.File != "" {
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	if opts.File != "" {
		config.OutputPaths = append(config.OutputPaths, opts.File)
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

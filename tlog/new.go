package tlog

import (
	"fmt"
	"testing"

	"github.com/ridge/must/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// New creates a top-level logger writing to stderr
func New(config Config) *zap.Logger {
	encoderConfig := DefaultEncoderConfig
	var encoding string
	development := true
	switch config.Format {
	case FormatJSON:
		encoding = "json"
		development = false
	case FormatText:
		var color bool
		switch config.Color {
		case ColorYes:
			color = true
		case ColorNo:
			color = false
		case ColorAuto:
			color = term.IsTerminal(unix.Stderr)
		default:
			panic(fmt.Errorf("unexpected --log-color value: %s", config.Color))
		}

		encoding = "console"
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		if color {
			encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
	default:
		panic(fmt.Errorf("unexpected --log-format value: %s", config.Format))
	}

	level := zapcore.InfoLevel
	if config.Verbose {
		level = zapcore.DebugLevel
	}

	cfg := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       development,
		DisableStacktrace: !config.Warnings,
		Encoding:          encoding,
		EncoderConfig:     encoderConfig,
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
	}
	var opts []zap.Option
	if config.Warnings {
		opts = append(opts, zap.AddStacktrace(zapcore.WarnLevel))
	}
	logger := must.OK1(cfg.Build(opts...))

	if config.Name != "" {
		logger = logger.Named(config.Name)
	}

	return logger
}

// NewForTesting creates a logger for use in unit tests
func NewForTesting(t *testing.T) *zap.Logger {
	return New(Config{
		Name:    t.Name(),
		Format:  FormatText,
		Color:   ColorNo,
		Verbose: true,
	})
}

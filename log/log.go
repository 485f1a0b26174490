// Package log builds the process logger from the configured verbosity and encoder.
package log

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Encoders supported by New.
const (
	ConsoleEncoder = "console"
	JSONEncoder    = "json"
)

// ErrUnknownEncoder is returned for an encoder other than console or json.
var ErrUnknownEncoder = errors.New("log: unknown encoder")

// where logs go by default.
var logWriter io.Writer = os.Stdout

// Level maps verbosity to a zap level.
// 0 logs errors only, 1 adds info and warnings, 2 and above add debug.
func Level(verbosity int) zapcore.Level {
	switch {
	case verbosity <= 0:
		return zapcore.ErrorLevel
	case verbosity == 1:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// Encoder returns the zap encoder for name.
func Encoder(name string) (zapcore.Encoder, error) {
	switch name {
	case ConsoleEncoder, "":
		return zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()), nil
	case JSONEncoder:
		return zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEncoder, name)
}

// New creates the process logger. Verbosity 3 and above also annotates entries with the caller.
func New(verbosity int, encoder string) (*zap.Logger, error) {
	enc, err := Encoder(encoder)
	if err != nil {
		return nil, err
	}
	var opts []zap.Option
	if verbosity >= 3 {
		opts = append(opts, zap.AddCaller())
	}
	return NewWithLevel("", zap.NewAtomicLevelAt(Level(verbosity)), enc, opts...), nil
}

// NewWithLevel creates a logger with a fixed level writing to stdout.
func NewWithLevel(name string, level zap.AtomicLevel, encoder zapcore.Encoder, opts ...zap.Option) *zap.Logger {
	core := zapcore.NewCore(encoder, zapcore.AddSync(logWriter), level)
	logger := zap.New(core, opts...)
	if name != "" {
		logger = logger.Named(name)
	}
	return logger
}

package config

import "github.com/spacemeshos/plotsync/log"

// LogEncoder defines a log encoder kind.
type LogEncoder = string

const (
	// ConsoleLogEncoder represents logging with plain text.
	ConsoleLogEncoder LogEncoder = log.ConsoleEncoder
	// JSONLogEncoder represents logging with JSON.
	JSONLogEncoder LogEncoder = log.JSONEncoder
)

// LoggerConfig holds the verbosity and format of the process logger.
type LoggerConfig struct {
	Encoder LogEncoder `mapstructure:"log-encoder"`
	// Verbosity 0 logs errors only, 1 info, 2 debug, 3 debug with callers.
	Verbosity int `mapstructure:"verbosity"`
}

func defaultLoggingConfig() LoggerConfig {
	return LoggerConfig{
		Encoder:   ConsoleLogEncoder,
		Verbosity: 1,
	}
}

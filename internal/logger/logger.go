// Package logger provides JSON structured logging using zerolog
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var globalLogger zerolog.Logger

// Config controls log level and destination
type Config struct {
	Level      string `yaml:"level" env:"LANWATCH_LOG_LEVEL"`
	Debug      bool   `yaml:"debug" env:"LANWATCH_LOG_DEBUG"`
	Output     string `yaml:"output" env:"LANWATCH_LOG_OUTPUT"`
	TimeFormat string `yaml:"time_format"`
}

func init() {
	globalLogger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	zerolog.TimeFieldFormat = time.RFC3339
}

// Init configures the global logger
func Init(config Config) error {
	l, err := New(config)
	if err != nil {
		return err
	}

	globalLogger = l
	log.Logger = globalLogger

	return nil
}

// New builds a logger from config without touching the global one
func New(config Config) (zerolog.Logger, error) {
	var output io.Writer = os.Stdout

	switch config.Output {
	case "", "stdout":
	case "stderr":
		output = os.Stderr
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log output %q", config.Output)
	}

	return NewWithWriter(config, output)
}

// NewWithWriter builds a logger writing to w
func NewWithWriter(config Config, w io.Writer) (zerolog.Logger, error) {
	level := zerolog.InfoLevel

	if config.Debug {
		level = zerolog.DebugLevel
	} else if config.Level != "" {
		var err error

		level, err = zerolog.ParseLevel(config.Level)
		if err != nil {
			return zerolog.Nop(), err
		}
	}

	if config.TimeFormat != "" {
		zerolog.TimeFieldFormat = config.TimeFormat
	}

	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Logger(), nil
}

// GetLogger returns the global logger
func GetLogger() zerolog.Logger {
	return globalLogger
}

// WithComponent returns a child of the global logger tagged with component
func WithComponent(component string) zerolog.Logger {
	return globalLogger.With().Str("component", component).Logger()
}

// WithSource returns a child of the global logger tagged with component and source
func WithSource(component, source string) zerolog.Logger {
	return globalLogger.With().Str("component", component).Str("source", source).Logger()
}

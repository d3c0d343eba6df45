// Package kronolog provides the process-wide structured logger used by
// every Kronoa component.
package kronolog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance. Components should prefer a
// component-scoped child logger (see WithComponent) over logging
// through this value directly.
var Logger zerolog.Logger

// Level is a human-typed log level name, used in configuration.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config configures the global logger.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init (re)configures the global logger. Safe to call multiple times;
// the last call wins.
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}

func init() {
	// A usable default before Init is called by a CLI entrypoint.
	Init(Config{Level: InfoLevel})
}

// WithComponent returns a child logger tagged with the given component
// name, e.g. "session", "publish", "gc".
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithEdition returns a child logger tagged with an edition id.
func WithEdition(logger zerolog.Logger, edition int64) zerolog.Logger {
	return logger.With().Int64("edition", edition).Logger()
}

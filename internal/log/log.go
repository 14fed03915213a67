// Package log provides structured, leveled logging for the indexer via
// zerolog.
package log

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger is the package-level logger, configured once at startup by Init.
var Logger zerolog.Logger

// Component loggers for the indexer's major subsystems.
var (
	API   zerolog.Logger
	Chain zerolog.Logger
	Store zerolog.Logger
)

func init() {
	Logger = NewConsoleLogger(os.Stdout, "info")
	initComponentLoggers()
}

// Init configures the package-level logger. format is "json" or
// "console" (default); level is one of debug/info/warn/error.
func Init(level, format string) {
	if format == "json" {
		Logger = NewJSONLogger(os.Stdout, level)
	} else {
		Logger = NewConsoleLogger(os.Stdout, level)
	}
	initComponentLoggers()
}

// NewConsoleLogger creates a human-readable console logger.
func NewConsoleLogger(w io.Writer, level string) zerolog.Logger {
	output := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	return zerolog.New(output).Level(parseLevel(level)).With().Timestamp().Logger()
}

// NewJSONLogger creates a structured JSON logger.
func NewJSONLogger(w io.Writer, level string) zerolog.Logger {
	return zerolog.New(w).Level(parseLevel(level)).With().Timestamp().Logger()
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func initComponentLoggers() {
	API = Logger.With().Str("component", "api").Logger()
	Chain = Logger.With().Str("component", "chain").Logger()
	Store = Logger.With().Str("component", "store").Logger()
}

// WithComponent returns a logger tagged with an arbitrary component name,
// for subsystems (e.g. a specific store backend) that want a narrower tag
// than the fixed component loggers above.
func WithComponent(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

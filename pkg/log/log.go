// Package log provides structured logging for Nexus using zerolog.
//
// All subsystems log through a single global zerolog.Logger configured once
// at startup via Init. Callers obtain a component-scoped child logger with
// WithComponent so every line carries a "component" field, matching the
// convention used across storage, wal, txn, catalog, query, planner, exec,
// cache, index and replication.
package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance.
var Logger zerolog.Logger

// Level represents a configured log level.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config holds logging configuration.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init initializes the global logger. Safe to call once at process startup.
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

// WithComponent returns a child logger tagged with the given component name.
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithEpoch returns a child logger tagged with the current MVCC epoch.
func WithEpoch(logger zerolog.Logger, epoch uint64) zerolog.Logger {
	return logger.With().Uint64("epoch", epoch).Logger()
}

// WithTxID returns a child logger tagged with a transaction id.
func WithTxID(logger zerolog.Logger, txID uint64) zerolog.Logger {
	return logger.With().Uint64("tx_id", txID).Logger()
}

func init() {
	// Sensible default so packages that log before Init (e.g. tests) don't panic.
	Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
}

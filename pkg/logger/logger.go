// Package logger builds the zerolog logger shared by the server and its
// background jobs.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logger configuration.
type Config struct {
	Level  string // debug, info, warn, error; unknown values fall back to info
	Pretty bool   // Human-readable console output for dev mode
}

// New creates a structured logger with the service name attached. JSON to
// stdout by default; a console writer in dev mode.
func New(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var output io.Writer = os.Stdout
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		}
	}

	return zerolog.New(output).
		With().
		Timestamp().
		Caller().
		Str("service", "replenish").
		Logger()
}

// SetGlobalLogger replaces zerolog's package-level logger so stray
// log.Info() style calls share the configured output.
func SetGlobalLogger(l zerolog.Logger) {
	log.Logger = l
}

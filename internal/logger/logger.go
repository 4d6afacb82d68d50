// Package logger builds component-scoped zerolog loggers.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger tagged with component. APP_ENV=dev switches to the
// human-readable console writer; otherwise records are JSON on stderr.
func New(component string) zerolog.Logger {
	return NewWithWriter(component, nil)
}

// NewWithWriter is New with an explicit sink. A nil writer selects stderr.
func NewWithWriter(component string, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
		if strings.EqualFold(os.Getenv("APP_ENV"), "dev") {
			w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		}
	}
	return zerolog.New(w).With().Timestamp().Str("component", component).Logger().Level(LevelFromEnv())
}

// LevelFromEnv reads DEPOTPLAN_LOG_LEVEL, defaulting to info.
func LevelFromEnv() zerolog.Level {
	return ParseLevel(os.Getenv("DEPOTPLAN_LOG_LEVEL"))
}

// ParseLevel maps a level name to zerolog, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	if s == "" {
		return zerolog.InfoLevel
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

// Nop discards everything.
func Nop() zerolog.Logger { return zerolog.Nop() }

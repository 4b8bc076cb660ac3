// Package logging sets up the relay's structured logger.
package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New creates a zerolog Logger with sane defaults: level parsed from a
// string (info/debug/warn/error/trace), RFC3339Nano timestamps, JSON
// output by default, and a pretty console writer when LOG_PRETTY=1.
func New(levelStr string) zerolog.Logger {
	level := parseLevel(levelStr)

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.TimestampFieldName = "ts"
	zerolog.LevelFieldName = "level"
	zerolog.MessageFieldName = "msg"

	var w = os.Stderr
	var logger zerolog.Logger
	if strings.TrimSpace(os.Getenv("LOG_PRETTY")) == "1" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen})
	} else {
		logger = zerolog.New(w)
	}
	return logger.Level(level).With().Timestamp().Logger()
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "", "info":
		return zerolog.InfoLevel
	default:
		return zerolog.InfoLevel
	}
}

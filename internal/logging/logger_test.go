package logging

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestNewParsesKnownLevels(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"debug":   zerolog.DebugLevel,
		"warn":    zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"info":    zerolog.InfoLevel,
		"":        zerolog.InfoLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range cases {
		logger := New(in)
		if got := logger.GetLevel(); got != want {
			t.Errorf("New(%q).GetLevel() = %v, want %v", in, got, want)
		}
	}
}

func TestNewIsCaseAndSpaceInsensitive(t *testing.T) {
	logger := New("  DEBUG  ")
	if got := logger.GetLevel(); got != zerolog.DebugLevel {
		t.Fatalf("expected case/space-insensitive parsing, got %v", got)
	}
}

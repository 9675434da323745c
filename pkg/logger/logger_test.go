package logx

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Not parallel: the global logger is replaced.
func TestInitWriterLevels(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	tests := []struct {
		name string
		cfg  Config
		want zerolog.Level
	}{
		{name: "default info", cfg: Config{}, want: zerolog.InfoLevel},
		{name: "debug flag", cfg: Config{Debug: true, Level: "error"}, want: zerolog.DebugLevel},
		{name: "explicit level", cfg: Config{Level: "WARN"}, want: zerolog.WarnLevel},
		{name: "bad level", cfg: Config{Level: "loud"}, want: zerolog.InfoLevel},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			InitWriter(&bytes.Buffer{}, tc.cfg)
			if got := log.Logger.GetLevel(); got != tc.want {
				t.Fatalf("level = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestInitWriterEmitsJSON(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	var buf bytes.Buffer
	InitWriter(&buf, Config{})
	log.Info().Str("session_id", "s1").Msg("turn handled")

	out := buf.String()
	if !strings.Contains(out, `"session_id":"s1"`) || !strings.Contains(out, `"message":"turn handled"`) {
		t.Fatalf("unexpected log line: %s", out)
	}
}

package util

import (
	"bytes"
	"strings"
	"testing"
)

func TestLogger_RespectsLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := NewLogger(LevelWarn, "")
	l.SetOutput(&buf)

	l.Info("hidden")
	l.Warn("shown %d", 1)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info logged at warn level: %s", out)
	}
	if !strings.Contains(out, "WARN: shown 1") {
		t.Fatalf("missing warn line: %s", out)
	}
}

func TestLogger_NoFormattingWithoutArgs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := NewLogger(LevelDebug, "")
	l.SetOutput(&buf)

	msg := "loss=50% avg=999"
	l.Info(msg)
	if !strings.Contains(buf.String(), msg) {
		t.Fatalf("message mangled: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]LogLevel{
		"debug":   LevelDebug,
		" WARN ":  LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
		"bogus":   LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q)=%v want %v", in, got, want)
		}
	}
}

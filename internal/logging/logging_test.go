// internal/logging/logging_test.go
package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew_Levels(t *testing.T) {
	cases := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"WARN", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}
	for _, tc := range cases {
		l, err := New(tc.level, "json")
		if err != nil {
			t.Fatalf("New(%q) err=%v", tc.level, err)
		}
		if !l.Core().Enabled(tc.want) {
			t.Fatalf("level %q: %v not enabled", tc.level, tc.want)
		}
		if tc.want > zapcore.DebugLevel && l.Core().Enabled(tc.want-1) {
			t.Fatalf("level %q: %v enabled", tc.level, tc.want-1)
		}
	}
}

func TestNew_Console(t *testing.T) {
	if _, err := New("info", "console"); err != nil {
		t.Fatalf("New() err=%v", err)
	}
}

func TestNew_Invalid(t *testing.T) {
	if _, err := New("loud", "json"); err == nil {
		t.Fatal("expected error for unknown level")
	}
	if _, err := New("info", "xml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

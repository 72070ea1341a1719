// internal/logging/logging_test.go
package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew_Levels(t *testing.T) {
	l, err := New("warn", "console")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("info must be disabled at warn level")
	}
	if !l.Core().Enabled(zapcore.ErrorLevel) {
		t.Fatalf("error must be enabled at warn level")
	}
}

func TestNew_Rejects(t *testing.T) {
	if _, err := New("loud", "json"); err == nil {
		t.Fatalf("expected level error, got nil")
	}
	if _, err := New("info", "xml"); err == nil {
		t.Fatalf("expected format error, got nil")
	}
}

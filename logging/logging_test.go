package logging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"", InfoLevel, false},
		{"INFO", InfoLevel, false},
		{" warning ", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"fatal", FatalLevel, false},
		{"verbose", InfoLevel, true},
	}
	for _, tc := range tests {
		got, err := ParseLevel(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
		}
		if got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestDefaultLogger_LevelFiltering(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := NewDefaultLoggerTo(&buf)
	logger.SetLevel(WarnLevel)

	logger.Debug("hidden debug")
	logger.Info("hidden info")
	logger.Warn("shown warn")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("messages below level were written: %q", out)
	}
	if !strings.Contains(out, "[WARN] shown warn") {
		t.Errorf("warn message missing: %q", out)
	}
}

func TestDefaultLogger_FieldsAndError(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := NewDefaultLoggerTo(&buf).WithFields(Fields{"component": "capture"})

	logger.Error(errors.New("boom"), "read failed", Fields{"device": "mic", "attempt": 1})

	out := buf.String()
	if !strings.Contains(out, "[ERROR] read failed: boom attempt=1 component=capture device=mic") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestDefaultLogger_DerivedSharesLevel(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	parent := NewDefaultLoggerTo(&buf)
	child := parent.WithFields(Fields{"k": "v"})

	parent.SetLevel(ErrorLevel)
	child.Info("should not appear")

	if buf.Len() != 0 {
		t.Errorf("derived logger ignored parent level: %q", buf.String())
	}
}

func TestDefaultLogger_WithContext(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	ctx := ContextWithFields(context.Background(), Fields{"run": 3})

	NewDefaultLoggerTo(&buf).WithContext(ctx).Info("started")

	if !strings.Contains(buf.String(), "run=3") {
		t.Errorf("context fields missing: %q", buf.String())
	}
}

func TestOrNoOp(t *testing.T) {
	t.Parallel()
	if _, ok := OrNoOp(nil).(*NoOpLogger); !ok {
		t.Error("OrNoOp(nil) should return a NoOpLogger")
	}
	l := NewDefaultLoggerNoColor()
	if OrNoOp(l) != Logger(l) {
		t.Error("OrNoOp should return the given logger unchanged")
	}
}

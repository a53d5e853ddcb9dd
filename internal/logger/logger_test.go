package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestToZapLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		DebugLevel: zapcore.DebugLevel,
		InfoLevel:  zapcore.InfoLevel,
		WarnLevel:  zapcore.WarnLevel,
		ErrorLevel: zapcore.ErrorLevel,
		"bogus":    zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := toZapLevel(in); got != want {
			t.Fatalf("toZapLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNamedOnNil(t *testing.T) {
	var l *Logger
	if l.Named("x") == nil {
		t.Fatalf("Named on nil logger must return a usable logger")
	}
	if OrNop(nil) == nil {
		t.Fatalf("OrNop(nil) returned nil")
	}
}

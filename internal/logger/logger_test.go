package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"polymarket-ingest/internal/config"
)

func TestNew_VerboseForcesDebug(t *testing.T) {
	l, err := New(config.LogConfig{Level: "warn", Encoding: "json", Verbose: true})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !l.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("debug disabled with verbose=true")
	}
}

func TestNew_LevelFallback(t *testing.T) {
	l, err := New(config.LogConfig{Level: "loud"})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if l.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("debug enabled for unknown level")
	}
	if !l.Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("info disabled for unknown level")
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatalf("OrNop(nil) returned nil")
	}
}

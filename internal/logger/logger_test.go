package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"strategyhub/internal/config"
)

func TestNew_FallsBackToInfo(t *testing.T) {
	l, err := New(config.LogConfig{Level: "loud", Encoding: "json"})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !l.Core().Enabled(zapcore.InfoLevel) || l.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("level should be info")
	}
}

func TestNew_ConsoleDebug(t *testing.T) {
	l, err := New(config.LogConfig{Level: "DEBUG", Encoding: "console", Sampling: true})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !l.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("debug should be enabled")
	}
}

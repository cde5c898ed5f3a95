package logging

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T, level zapcore.Level) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(level)
	prev := logger
	SetLogger(zap.New(core))
	t.Cleanup(func() { logger = prev })
	return logs
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"verbose", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestInitializeSilentByDefault(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")
	prev := logger
	t.Cleanup(func() { logger = prev })

	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("default logger should be silent")
	}
}

func TestLogBusCall(t *testing.T) {
	logs := observe(t, zapcore.DebugLevel)

	LogBusCall("org.bluez.Device1.Connect", "/org/bluez/hci0/dev_AA", nil)
	LogBusCall("org.bluez.Device1.Pair", "/org/bluez/hci0/dev_AA", errors.New("boom"))

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Level != zapcore.DebugLevel {
		t.Errorf("successful call logged at %v, want debug", entries[0].Level)
	}
	if entries[1].Level != zapcore.ErrorLevel {
		t.Errorf("failed call logged at %v, want error", entries[1].Level)
	}
	if got := entries[1].ContextMap()["method"]; got != "org.bluez.Device1.Pair" {
		t.Errorf("method = %v", got)
	}
}

func TestLogStage(t *testing.T) {
	logs := observe(t, zapcore.InfoLevel)

	LogStage("attempt-1", "AA:BB:CC:DD:EE:FF", "pairing", "running")

	entries := logs.FilterMessage("Reconnect stage").All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	for key, want := range map[string]string{
		"attempt_id": "attempt-1",
		"address":    "AA:BB:CC:DD:EE:FF",
		"stage":      "pairing",
		"status":     "running",
	} {
		if fields[key] != want {
			t.Errorf("%s = %v, want %q", key, fields[key], want)
		}
	}
}

func TestNotFoundStaysAtDebug(t *testing.T) {
	logs := observe(t, zapcore.InfoLevel)

	LogNotFound("device", "AA:BB:CC:DD:EE:FF")
	LogDiscoveryProgress("AA:BB:CC:DD:EE:FF", 42)

	if logs.Len() != 0 {
		t.Errorf("got %d entries at info level, want 0", logs.Len())
	}
}

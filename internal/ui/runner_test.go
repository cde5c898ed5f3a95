package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/godbus/dbus/v5"

	"github.com/keewee/gamepadctl/internal/bluez"
	"github.com/keewee/gamepadctl/internal/reconnect"
)

func newTestRunner(buf *bytes.Buffer) *Runner {
	return NewReconnectRunner(RunnerConfig{
		Title:   "Reconnect",
		Command: "gamepadctl reconnect",
		Params:  []Param{{Key: "Address", Value: "AA:BB:CC:DD:EE:FF"}},
		Output:  buf,
		Width:   80,
	})
}

func TestRunnerSuccess(t *testing.T) {
	var buf bytes.Buffer
	r := newTestRunner(&buf)

	err := r.Run(context.Background(), func(onStep StepCallback) ([]Param, error) {
		onStep(1, StepRunning, "")
		onStep(1, StepSkipped, "no stale record")
		onStep(2, StepComplete, "")
		return []Param{{Key: "Name", Value: "Wireless Controller"}}, nil
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"RECONNECT",
		"gamepadctl reconnect",
		"AA:BB:CC:DD:EE:FF",
		"Remove stale pairing",
		"(no stale record)",
		"SUCCESS",
		"Reconnect complete",
		"Wireless Controller",
		"Duration",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunnerFailure(t *testing.T) {
	var buf bytes.Buffer
	r := newTestRunner(&buf)

	stepErr := &reconnect.StepError{Reason: reconnect.ReasonNotFound, Address: "AA:BB:CC:DD:EE:FF"}
	err := r.Run(context.Background(), func(onStep StepCallback) ([]Param, error) {
		onStep(2, StepFailed, "not found")
		return nil, stepErr
	})
	if !errors.Is(err, stepErr) {
		t.Fatalf("Run() error = %v, want %v", err, stepErr)
	}

	out := buf.String()
	for _, want := range []string{"FAILED", "Reconnect failed", "Troubleshooting:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "SUCCESS") {
		t.Errorf("failure output contains SUCCESS:\n%s", out)
	}
}

func TestRunnerCanceledContext(t *testing.T) {
	var buf bytes.Buffer
	r := newTestRunner(&buf)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := r.Run(ctx, func(onStep StepCallback) ([]Param, error) {
		called = true
		return nil, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if called {
		t.Error("operation ran with a canceled context")
	}
}

func TestTroubleshooting(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    string
		wantLen int
	}{
		{
			name: "not found",
			err:  &reconnect.StepError{Reason: reconnect.ReasonNotFound},
			want: "Keep it close to the adapter",
		},
		{
			name: "daemon down",
			err: &bluez.BusError{
				Kind: bluez.KindCall,
				Op:   "list devices",
				Err:  dbus.Error{Name: "org.freedesktop.DBus.Error.ServiceUnknown"},
			},
			want: "sudo systemctl start bluetooth",
		},
		{
			name:    "plain error",
			err:     errors.New("boom"),
			wantLen: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tips := Troubleshooting(tt.err)
			if tt.want == "" {
				if len(tips) != tt.wantLen {
					t.Errorf("Troubleshooting() = %q, want %d tips", tips, tt.wantLen)
				}
				return
			}
			found := false
			for _, tip := range tips {
				if tip == "Troubleshooting:" || strings.HasPrefix(tip, "•") {
					t.Errorf("tip not cleaned: %q", tip)
				}
				if tip == tt.want {
					found = true
				}
			}
			if !found {
				t.Errorf("Troubleshooting() = %q, missing %q", tips, tt.want)
			}
		})
	}
}

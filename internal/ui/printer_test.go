package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/keewee/gamepadctl/internal/session"
)

func level(v uint8) *uint8 { return &v }

func TestFormatBattery(t *testing.T) {
	tests := []struct {
		name     string
		level    *uint8
		charging bool
		want     string
	}{
		{"unknown", nil, false, "unknown"},
		{"discharging", level(75), false, "75%"},
		{"charging", level(20), true, "20% (charging)"},
		{"empty", level(0), false, "0%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatBattery(tt.level, tt.charging); got != tt.want {
				t.Errorf("FormatBattery() = %q, want %q", got, tt.want)
			}
		})
	}
}

func testSnapshot() session.Snapshot {
	return session.Snapshot{
		Connected: []session.ConnectedDevice{
			{Address: "AA:BB:CC:DD:EE:01", Name: "Pad One", Battery: level(80)},
			{Address: "AA:BB:CC:DD:EE:03", Name: "Stray"},
		},
		Paired: []session.PairedDevice{
			{Address: "AA:BB:CC:DD:EE:01", Name: "Pad One"},
			{Address: "AA:BB:CC:DD:EE:02", Name: "Pad Two"},
		},
	}
}

func TestRenderDevices(t *testing.T) {
	out := RenderDevices(testSnapshot())
	for _, want := range []string{
		"Connected (2)",
		"Paired (2)",
		"AA:BB:CC:DD:EE:01",
		"80%",
		"unknown",
		"Pad Two",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	empty := RenderDevices(session.Snapshot{})
	if strings.Count(empty, "none") != 2 {
		t.Errorf("empty snapshot should show two empty lists:\n%s", empty)
	}
}

func TestRenderDevicesDetailed(t *testing.T) {
	out := RenderDevicesDetailed(testSnapshot())

	if !strings.Contains(out, "Battery:   80%") {
		t.Errorf("connected paired device missing battery:\n%s", out)
	}
	if !strings.Contains(out, "Connected: no") {
		t.Errorf("disconnected paired device not marked:\n%s", out)
	}
	if !strings.Contains(out, "Connected: yes (not paired)") {
		t.Errorf("connected unpaired device not listed:\n%s", out)
	}
	if strings.Count(out, "Pad One") != 1 {
		t.Errorf("device listed twice:\n%s", out)
	}

	if got := RenderDevicesDetailed(session.Snapshot{}); !strings.Contains(got, "No devices") {
		t.Errorf("empty snapshot = %q", got)
	}
}

func TestPrinterResults(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf).SetWidth(80)

	p.PrintSuccess("Device disconnected", Param{Key: "Address", Value: "AA:BB:CC:DD:EE:01"})
	p.PrintWarning("Name not restored", Param{Key: "Reason", Value: "device is no longer paired"})

	out := buf.String()
	for _, want := range []string{"SUCCESS", "Device disconnected", "WARNING", "Name not restored"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

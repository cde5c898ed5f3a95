// Package battery reads controller battery levels from the kernel's
// power-supply class.
//
// HID drivers for game controllers (hid-playstation, hid-nintendo, xpadneo)
// register a power supply whose directory name embeds the controller's
// Bluetooth address in lower case, for example
// ps-controller-battery-aa:bb:cc:dd:ee:ff. The probe matches on that
// substring and reads the capacity file.
package battery

import (
	"io/fs"
	"os"
	"strconv"
	"strings"
)

// DefaultDir is where the kernel exposes power supplies.
const DefaultDir = "/sys/class/power_supply"

// Reading is one battery report.
type Reading struct {
	Capacity uint8  // Percentage, 0-100
	Status   string // Kernel status string, e.g. "Discharging" (may be empty)
}

// Charging reports whether the kernel says the battery is charging.
func (r Reading) Charging() bool {
	return r.Status == "Charging"
}

// Probe looks up battery readings by device address.
type Probe struct {
	fsys fs.FS
}

// NewProbe creates a probe rooted at dir.
func NewProbe(dir string) *Probe {
	if dir == "" {
		dir = DefaultDir
	}
	return &Probe{fsys: os.DirFS(dir)}
}

// NewProbeFS creates a probe over an arbitrary file system, laid out like
// the power-supply directory.
func NewProbeFS(fsys fs.FS) *Probe {
	return &Probe{fsys: fsys}
}

// Read returns the reading for addr. A missing entry, unreadable
// directory or malformed capacity file yields ok=false.
func (p *Probe) Read(addr string) (Reading, bool) {
	needle := strings.ToLower(strings.TrimSpace(addr))
	if needle == "" {
		return Reading{}, false
	}

	entries, err := fs.ReadDir(p.fsys, ".")
	if err != nil {
		return Reading{}, false
	}

	for _, e := range entries {
		if !strings.Contains(e.Name(), needle) {
			continue
		}
		capacity, ok := p.readCapacity(e.Name())
		if !ok {
			continue
		}
		return Reading{Capacity: capacity, Status: p.readStatus(e.Name())}, true
	}
	return Reading{}, false
}

func (p *Probe) readCapacity(entry string) (uint8, bool) {
	data, err := fs.ReadFile(p.fsys, entry+"/capacity")
	if err != nil {
		return 0, false
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 8)
	if err != nil || v > 100 {
		return 0, false
	}
	return uint8(v), true
}

func (p *Probe) readStatus(entry string) string {
	data, err := fs.ReadFile(p.fsys, entry+"/status")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

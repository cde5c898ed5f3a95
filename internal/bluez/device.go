package bluez

import (
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

// Placeholders used when the daemon omits a property.
const (
	UnknownAddress = "<unknown>"
	UnnamedDevice  = "<unnamed>"
)

// Device is a device record as reported by the daemon. It is read fresh on
// every directory query and never cached.
type Device struct {
	Path      dbus.ObjectPath
	Address   string
	Alias     string
	Name      string
	Connected bool
	Paired    bool
	Trusted   bool
	Adapter   dbus.ObjectPath
}

// DisplayName returns the alias, falling back to the advertised name,
// falling back to UnnamedDevice.
func (d Device) DisplayName() string {
	if d.Alias != "" {
		return d.Alias
	}
	if d.Name != "" {
		return d.Name
	}
	return UnnamedDevice
}

// String returns a human-readable representation of the device
func (d Device) String() string {
	return fmt.Sprintf("%s (%s) connected=%t paired=%t trusted=%t",
		d.DisplayName(), d.Address, d.Connected, d.Paired, d.Trusted)
}

// Summary returns the address/name pair used by listings.
func (d Device) Summary() DeviceSummary {
	addr := d.Address
	if addr == "" {
		addr = UnknownAddress
	}
	return DeviceSummary{Address: addr, Name: d.DisplayName()}
}

// DeviceSummary is an address with its display name.
type DeviceSummary struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

// NormalizeAddress returns the canonical form of a device address.
func NormalizeAddress(addr string) string {
	return strings.ToUpper(strings.TrimSpace(addr))
}

// SameAddress compares two addresses case-insensitively.
func SameAddress(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// deviceFromProperties builds a Device from the Device1 property map.
// Properties of the wrong type are treated as absent.
func deviceFromProperties(path dbus.ObjectPath, props map[string]dbus.Variant) Device {
	return Device{
		Path:      path,
		Address:   stringProp(props, "Address"),
		Alias:     stringProp(props, "Alias"),
		Name:      stringProp(props, "Name"),
		Connected: boolProp(props, "Connected"),
		Paired:    boolProp(props, "Paired"),
		Trusted:   boolProp(props, "Trusted"),
		Adapter:   pathProp(props, "Adapter"),
	}
}

func stringProp(props map[string]dbus.Variant, name string) string {
	v, ok := props[name]
	if !ok {
		return ""
	}
	s, _ := v.Value().(string)
	return s
}

func boolProp(props map[string]dbus.Variant, name string) bool {
	v, ok := props[name]
	if !ok {
		return false
	}
	b, _ := v.Value().(bool)
	return b
}

func pathProp(props map[string]dbus.Variant, name string) dbus.ObjectPath {
	v, ok := props[name]
	if !ok {
		return ""
	}
	p, _ := v.Value().(dbus.ObjectPath)
	return p
}

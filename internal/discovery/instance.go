package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Instance is a status server found on the network.
type Instance struct {
	// Name is the mDNS instance name (e.g., "gamepadctl on desk")
	Name string

	// Hostname is the mDNS hostname (e.g., "desk.local.")
	Hostname string

	// IP is the advertised address, IPv4 when available
	IP string

	Port int

	// Metadata holds the TXT records
	Metadata map[string]string

	DiscoveredAt time.Time
}

// String returns a human-readable description of the instance.
func (i *Instance) String() string {
	return fmt.Sprintf("%s (%s) at %s", i.Name, i.Hostname, i.HostPort())
}

// HostPort returns the address to dial, bracketing IPv6 addresses.
func (i *Instance) HostPort() string {
	return net.JoinHostPort(i.IP, strconv.Itoa(i.Port))
}

// DevicesURL returns the snapshot endpoint.
func (i *Instance) DevicesURL() string {
	return "http://" + i.HostPort() + i.path(TXTDevicesPath, DefaultDevicesPath)
}

// WebSocketURL returns the push endpoint.
func (i *Instance) WebSocketURL() string {
	return "ws://" + i.HostPort() + i.path(TXTWebSocketPath, DefaultWebSocketPath)
}

// Version returns the advertised build version, or "" when absent.
func (i *Instance) Version() string {
	return i.GetMetadata(TXTVersion)
}

// GetMetadata retrieves a TXT value by key, or "" if not found.
func (i *Instance) GetMetadata(key string) string {
	if i.Metadata == nil {
		return ""
	}
	return i.Metadata[key]
}

func (i *Instance) path(key, fallback string) string {
	if p := i.GetMetadata(key); p != "" {
		return p
	}
	return fallback
}

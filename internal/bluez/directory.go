package bluez

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/keewee/gamepadctl/internal/logging"
)

// DefaultPollInterval is the discovery polling cadence.
const DefaultPollInterval = time.Second

// Filter selects which devices a listing returns.
type Filter int

const (
	// ConnectedOnly keeps devices whose Connected flag is set
	ConnectedOnly Filter = iota
	// PairedOnly keeps devices whose Paired flag is set
	PairedOnly
)

// String returns the filter name
func (f Filter) String() string {
	switch f {
	case ConnectedOnly:
		return "connected"
	case PairedOnly:
		return "paired"
	default:
		return fmt.Sprintf("Filter(%d)", f)
	}
}

func (f Filter) match(d Device) bool {
	switch f {
	case ConnectedOnly:
		return d.Connected
	case PairedOnly:
		return d.Paired
	default:
		return false
	}
}

// Client issues directory queries and control operations over one bus
// session. A Client is not safe for concurrent use; create one per
// operation together with its session.
type Client struct {
	bus Bus

	// PollInterval is the delay between discovery polls.
	PollInterval time.Duration

	// Clock drives the discovery loop. Tests substitute a fake.
	Clock Clock
}

// Clock is the time source used while polling.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// NewClient creates a client bound to bus.
func NewClient(bus Bus) *Client {
	return &Client{
		bus:          bus,
		PollInterval: DefaultPollInterval,
		Clock:        SystemClock{},
	}
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }

// Sleep waits for d or until ctx is done.
func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) managedObjects(ctx context.Context) (ManagedObjects, error) {
	objects, err := c.bus.ManagedObjects(ctx)
	logging.LogBusCall(ObjectManagerInterface+".GetManagedObjects", "/", err)
	if err != nil {
		return nil, newCallError("enumerate managed objects", "/", err)
	}
	return objects, nil
}

// sortedPaths returns object paths in a stable order so "first match" is
// deterministic across calls.
func sortedPaths(objects ManagedObjects) []dbus.ObjectPath {
	paths := make([]dbus.ObjectPath, 0, len(objects))
	for p := range objects {
		paths = append(paths, p)
	}
	sort.Slice(paths, func(i, j int) bool { return paths[i] < paths[j] })
	return paths
}

func devicesIn(objects ManagedObjects) []Device {
	var devices []Device
	for _, path := range sortedPaths(objects) {
		props, ok := objects[path][DeviceInterface]
		if !ok {
			continue
		}
		devices = append(devices, deviceFromProperties(path, props))
	}
	return devices
}

// Devices returns every device object the daemon manages.
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	objects, err := c.managedObjects(ctx)
	if err != nil {
		return nil, err
	}
	return devicesIn(objects), nil
}

// FindDevice returns the first device whose address matches addr,
// ignoring case. A missing device is reported with ok=false and a nil
// error.
func (c *Client) FindDevice(ctx context.Context, addr string) (Device, bool, error) {
	devices, err := c.Devices(ctx)
	if err != nil {
		return Device{}, false, err
	}
	for _, d := range devices {
		if SameAddress(d.Address, addr) {
			return d, true, nil
		}
	}
	return Device{}, false, nil
}

// ResolveDevicePath returns the object path of the device with address addr.
func (c *Client) ResolveDevicePath(ctx context.Context, addr string) (dbus.ObjectPath, bool, error) {
	d, ok, err := c.FindDevice(ctx, addr)
	if err != nil || !ok {
		return "", ok, err
	}
	return d.Path, true, nil
}

// ListDevices returns address/name pairs for the devices matching filter.
func (c *Client) ListDevices(ctx context.Context, filter Filter) ([]DeviceSummary, error) {
	devices, err := c.Devices(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]DeviceSummary, 0, len(devices))
	for _, d := range devices {
		if filter.match(d) {
			out = append(out, d.Summary())
		}
	}
	return out, nil
}

// ListConnected returns the connected devices.
func (c *Client) ListConnected(ctx context.Context) ([]DeviceSummary, error) {
	return c.ListDevices(ctx, ConnectedOnly)
}

// ListPaired returns the paired devices.
func (c *Client) ListPaired(ctx context.Context) ([]DeviceSummary, error) {
	return c.ListDevices(ctx, PairedOnly)
}

// DefaultAdapter returns the first object exposing the adapter interface.
func (c *Client) DefaultAdapter(ctx context.Context) (dbus.ObjectPath, bool, error) {
	objects, err := c.managedObjects(ctx)
	if err != nil {
		return "", false, err
	}
	for _, path := range sortedPaths(objects) {
		if _, ok := objects[path][AdapterInterface]; ok {
			return path, true, nil
		}
	}
	return "", false, nil
}

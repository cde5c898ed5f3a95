package bluez

import (
	"context"
	"testing"

	"github.com/keewee/gamepadctl/internal/bluez/fakebus"
)

const testAdapter = "/org/bluez/hci0"

func newTestClient(t *testing.T, d *fakebus.Daemon) *Client {
	t.Helper()
	session, err := d.Dial(context.Background())
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { _ = session.Close() })

	c := NewClient(session)
	c.Clock = fakebus.NewClock()
	return c
}

func standardDaemon() *fakebus.Daemon {
	d := fakebus.New()
	d.AddAdapter(testAdapter)
	d.AddDevice(testAdapter, fakebus.DeviceSpec{
		Address: "AA:BB:CC:DD:EE:FF", Alias: "Pad1", Name: "Wireless Controller",
		Connected: true, Paired: true, Trusted: true,
	})
	d.AddDevice(testAdapter, fakebus.DeviceSpec{
		Address: "11:22:33:44:55:66", Name: "Pro Controller", Paired: true,
	})
	d.AddDevice(testAdapter, fakebus.DeviceSpec{
		Address: "77:88:99:AA:BB:CC", Connected: true,
	})
	return d
}

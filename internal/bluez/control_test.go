package bluez

import (
	"context"
	"errors"
	"testing"

	"github.com/keewee/gamepadctl/internal/bluez/fakebus"
)

func propBool(t *testing.T, d *fakebus.Daemon, addr, name string) bool {
	t.Helper()
	props, ok := d.Device(addr)
	if !ok {
		t.Fatalf("device %s missing from fake daemon", addr)
	}
	b, _ := props[name].Value().(bool)
	return b
}

func TestControlOperationsNotFound(t *testing.T) {
	ctx := context.Background()
	const missing = "00:00:00:00:00:01"

	ops := map[string]func(c *Client) (bool, error){
		"Pair":       func(c *Client) (bool, error) { return c.Pair(ctx, missing) },
		"Trust":      func(c *Client) (bool, error) { return c.Trust(ctx, missing, true) },
		"Connect":    func(c *Client) (bool, error) { return c.Connect(ctx, missing) },
		"Disconnect": func(c *Client) (bool, error) { return c.Disconnect(ctx, missing) },
		"Remove":     func(c *Client) (bool, error) { return c.Remove(ctx, missing) },
		"Rename":     func(c *Client) (bool, error) { return c.Rename(ctx, missing, "x") },
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			d := standardDaemon()
			ok, err := op(newTestClient(t, d))
			if err != nil {
				t.Fatalf("%s() error = %v, want nil", name, err)
			}
			if ok {
				t.Errorf("%s() = true, want false", name)
			}
			if methods := d.Methods(); len(methods) != 0 {
				t.Errorf("%s() issued mutating calls %v for a missing device", name, methods)
			}
		})
	}
}

func TestPairConnectDisconnect(t *testing.T) {
	ctx := context.Background()
	d := standardDaemon()
	d.AddDevice(testAdapter, fakebus.DeviceSpec{Address: "DE:AD:BE:EF:00:01"})
	c := newTestClient(t, d)

	if ok, err := c.Pair(ctx, "de:ad:be:ef:00:01"); err != nil || !ok {
		t.Fatalf("Pair() = (%v, %v)", ok, err)
	}
	if !propBool(t, d, "DE:AD:BE:EF:00:01", "Paired") {
		t.Error("Paired = false after Pair()")
	}

	if ok, err := c.Connect(ctx, "DE:AD:BE:EF:00:01"); err != nil || !ok {
		t.Fatalf("Connect() = (%v, %v)", ok, err)
	}
	if !propBool(t, d, "DE:AD:BE:EF:00:01", "Connected") {
		t.Error("Connected = false after Connect()")
	}

	if ok, err := c.Disconnect(ctx, "DE:AD:BE:EF:00:01"); err != nil || !ok {
		t.Fatalf("Disconnect() = (%v, %v)", ok, err)
	}
	if propBool(t, d, "DE:AD:BE:EF:00:01", "Connected") {
		t.Error("Connected = true after Disconnect()")
	}
}

func TestControlBusError(t *testing.T) {
	d := standardDaemon()
	cause := fakebus.DaemonError("org.bluez.Error.AuthenticationFailed", "Authentication Failed")
	d.Fail(fakebus.Pair, cause)
	c := newTestClient(t, d)

	ok, err := c.Pair(context.Background(), "11:22:33:44:55:66")
	if ok {
		t.Error("Pair() = true on daemon error")
	}
	var busErr *BusError
	if !errors.As(err, &busErr) {
		t.Fatalf("Pair() error = %v, want *BusError", err)
	}
	if busErr.Kind != KindCall {
		t.Errorf("Kind = %v, want %v", busErr.Kind, KindCall)
	}
	if busErr.Op != "pair device" {
		t.Errorf("Op = %q, want %q", busErr.Op, "pair device")
	}
	if got := DaemonErrorName(err); got != "org.bluez.Error.AuthenticationFailed" {
		t.Errorf("DaemonErrorName() = %q", got)
	}
}

func TestTrust(t *testing.T) {
	d := standardDaemon()
	c := newTestClient(t, d)

	for _, trusted := range []bool{true, false} {
		ok, err := c.Trust(context.Background(), "11:22:33:44:55:66", trusted)
		if err != nil || !ok {
			t.Fatalf("Trust(%v) = (%v, %v)", trusted, ok, err)
		}
		if got := propBool(t, d, "11:22:33:44:55:66", "Trusted"); got != trusted {
			t.Errorf("Trusted = %v, want %v", got, trusted)
		}
	}
}

func TestRemove(t *testing.T) {
	d := standardDaemon()
	c := newTestClient(t, d)

	ok, err := c.Remove(context.Background(), "aa:bb:cc:dd:ee:ff")
	if err != nil || !ok {
		t.Fatalf("Remove() = (%v, %v)", ok, err)
	}
	if _, still := d.Device("AA:BB:CC:DD:EE:FF"); still {
		t.Error("device still present after Remove()")
	}

	calls := d.Calls()
	last := calls[len(calls)-1]
	if last.Method != fakebus.RemoveDevice || last.Path != testAdapter {
		t.Errorf("last call = %s on %s, want RemoveDevice on adapter", last.Method, last.Path)
	}
	if len(last.Args) != 1 || last.Args[0] != fakebus.DevicePath(testAdapter, "AA:BB:CC:DD:EE:FF") {
		t.Errorf("RemoveDevice args = %v", last.Args)
	}
}

func TestRemoveBadAdapterProperty(t *testing.T) {
	d := standardDaemon()
	d.SetDeviceProperty("AA:BB:CC:DD:EE:FF", "Adapter", "not-a-path")
	c := newTestClient(t, d)

	_, err := c.Remove(context.Background(), "AA:BB:CC:DD:EE:FF")
	var busErr *BusError
	if !errors.As(err, &busErr) || busErr.Kind != KindDecode {
		t.Errorf("Remove() error = %v, want decode BusError", err)
	}
}

func TestRename(t *testing.T) {
	tests := []struct {
		name   string
		addr   string
		wantOK bool
	}{
		{"paired device", "11:22:33:44:55:66", true},
		{"paired lower case", "aa:bb:cc:dd:ee:ff", true},
		{"connected but not paired", "77:88:99:AA:BB:CC", false},
		{"unknown device", "00:00:00:00:00:01", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := standardDaemon()
			c := newTestClient(t, d)

			ok, err := c.Rename(context.Background(), tt.addr, "Player 2")
			if err != nil {
				t.Fatalf("Rename() error = %v", err)
			}
			if ok != tt.wantOK {
				t.Errorf("Rename() = %v, want %v", ok, tt.wantOK)
			}
			if !tt.wantOK {
				return
			}
			props, _ := d.Device(tt.addr)
			if alias := props["Alias"].Value(); alias != "Player 2" {
				t.Errorf("Alias = %v, want Player 2", alias)
			}
		})
	}
}

func TestRenameSetFailure(t *testing.T) {
	d := standardDaemon()
	d.Fail("Set:Alias", fakebus.DaemonError("org.freedesktop.DBus.Error.AccessDenied", "denied"))
	c := newTestClient(t, d)

	ok, err := c.Rename(context.Background(), "11:22:33:44:55:66", "P2")
	if ok || !IsBusError(err) {
		t.Errorf("Rename() = (%v, %v), want (false, BusError)", ok, err)
	}
	if hint := TroubleshootingHint(err); hint == "" {
		t.Error("TroubleshootingHint() empty for access denied")
	}
}

func TestSameAddress(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"AA:BB:CC:DD:EE:FF", "aa:bb:cc:dd:ee:ff", true},
		{"AA:BB:CC:DD:EE:FF", "AA:BB:CC:DD:EE:00", false},
		{"", "", true},
	}
	for _, tt := range tests {
		if got := SameAddress(tt.a, tt.b); got != tt.want {
			t.Errorf("SameAddress(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
	if got := NormalizeAddress(" aa:bb:cc:dd:ee:ff "); got != "AA:BB:CC:DD:EE:FF" {
		t.Errorf("NormalizeAddress() = %q", got)
	}
}

var _ Bus = (*fakebus.Session)(nil)

package bluez

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/keewee/gamepadctl/internal/bluez/fakebus"
)

const lostPad = "AA:BB:CC:DD:EE:01"

func TestDiscoverAlreadyKnown(t *testing.T) {
	d := standardDaemon()
	c := newTestClient(t, d)

	found, err := c.DiscoverByAddress(context.Background(), "aa:bb:cc:dd:ee:ff", 60*time.Second, nil)
	if err != nil || !found {
		t.Fatalf("DiscoverByAddress() = (%v, %v), want (true, nil)", found, err)
	}
	if n := d.CallCount(fakebus.StartDiscovery); n != 0 {
		t.Errorf("StartDiscovery called %d times for a known device", n)
	}
}

func TestDiscoverNoAdapter(t *testing.T) {
	d := fakebus.New()
	c := newTestClient(t, d)

	found, err := c.DiscoverByAddress(context.Background(), lostPad, 60*time.Second, nil)
	if err != nil || found {
		t.Errorf("DiscoverByAddress() = (%v, %v), want (false, nil)", found, err)
	}
}

func TestDiscoverFindsDevice(t *testing.T) {
	d := standardDaemon()
	d.AppearDuringDiscovery(testAdapter, fakebus.DeviceSpec{Address: lostPad, Name: "Wireless Controller"}, 12)
	c := newTestClient(t, d)
	clock := c.Clock.(*fakebus.Clock)

	found, err := c.DiscoverByAddress(context.Background(), lostPad, 60*time.Second, nil)
	if err != nil || !found {
		t.Fatalf("DiscoverByAddress() = (%v, %v), want (true, nil)", found, err)
	}
	if d.Discovering(testAdapter) {
		t.Error("adapter left discovering after success")
	}
	if got := clock.Elapsed(); got != 11*time.Second {
		t.Errorf("elapsed = %v, want 11s", got)
	}
	if got := d.Methods(); !reflect.DeepEqual(got, []string{fakebus.StartDiscovery, fakebus.StopDiscovery}) {
		t.Errorf("calls = %v", got)
	}
}

func TestDiscoverTimeout(t *testing.T) {
	d := standardDaemon()
	c := newTestClient(t, d)
	clock := c.Clock.(*fakebus.Clock)

	var reported []int
	found, err := c.DiscoverByAddress(context.Background(), lostPad, 60*time.Second, func(remaining int) {
		reported = append(reported, remaining)
	})
	if err != nil || found {
		t.Fatalf("DiscoverByAddress() = (%v, %v), want (false, nil)", found, err)
	}
	if d.Discovering(testAdapter) {
		t.Error("adapter left discovering after timeout")
	}
	if n := d.CallCount(fakebus.StopDiscovery); n != 1 {
		t.Errorf("StopDiscovery called %d times, want 1", n)
	}
	if got := clock.Elapsed(); got != 60*time.Second {
		t.Errorf("elapsed = %v, want 60s", got)
	}
	if len(reported) != 60 || reported[0] != 60 || reported[59] != 1 {
		t.Errorf("progress = %v, want 60..1", reported)
	}
}

func TestDiscoverProgressOncePerSecond(t *testing.T) {
	d := standardDaemon()
	c := newTestClient(t, d)
	c.PollInterval = 250 * time.Millisecond

	var reported []int
	_, err := c.DiscoverByAddress(context.Background(), lostPad, 3*time.Second, func(remaining int) {
		reported = append(reported, remaining)
	})
	if err != nil {
		t.Fatalf("DiscoverByAddress() error = %v", err)
	}
	if want := []int{3, 2, 1}; !reflect.DeepEqual(reported, want) {
		t.Errorf("progress = %v, want %v", reported, want)
	}
}

func TestDiscoverAlreadyScanning(t *testing.T) {
	d := standardDaemon()
	d.AppearDuringDiscovery(testAdapter, fakebus.DeviceSpec{Address: lostPad}, 2)
	c := newTestClient(t, d)

	// Another client started the scan first.
	other := newTestClient(t, d)
	if err := other.bus.Call(context.Background(), testAdapter, MethodStartDiscovery); err != nil {
		t.Fatalf("StartDiscovery: %v", err)
	}

	found, err := c.DiscoverByAddress(context.Background(), lostPad, 60*time.Second, nil)
	if err != nil || !found {
		t.Fatalf("DiscoverByAddress() = (%v, %v), want (true, nil)", found, err)
	}
	if n := d.CallCount(fakebus.StopDiscovery); n != 1 {
		t.Errorf("StopDiscovery called %d times, want 1", n)
	}

	// Only our own discovery ended; the other client is still scanning.
	if !d.Discovering(testAdapter) {
		t.Error("stopping our discovery ended the other client's scan")
	}
	if n := d.DiscoverySessions(testAdapter); n != 1 {
		t.Errorf("discovery sessions = %d, want 1", n)
	}

	if err := other.bus.Call(context.Background(), testAdapter, MethodStopDiscovery); err != nil {
		t.Fatalf("other StopDiscovery: %v", err)
	}
	if d.Discovering(testAdapter) {
		t.Error("adapter left discovering")
	}
}

func TestStopDiscoveryWithoutOwnScan(t *testing.T) {
	d := standardDaemon()
	owner := newTestClient(t, d)
	if err := owner.bus.Call(context.Background(), testAdapter, MethodStartDiscovery); err != nil {
		t.Fatalf("StartDiscovery: %v", err)
	}

	c := newTestClient(t, d)
	err := c.stopDiscovery(context.Background(), testAdapter)
	if DaemonErrorName(err) != "org.bluez.Error.Failed" {
		t.Errorf("stopDiscovery() error = %v, want org.bluez.Error.Failed", err)
	}
	if !d.Discovering(testAdapter) {
		t.Error("failed stop ended the owner's scan")
	}
}

func TestDiscoverySessionEndsWithBusSession(t *testing.T) {
	d := standardDaemon()
	session, err := d.Dial(context.Background())
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	if err := session.Call(context.Background(), testAdapter, MethodStartDiscovery); err != nil {
		t.Fatalf("StartDiscovery: %v", err)
	}
	if err := session.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if d.Discovering(testAdapter) {
		t.Error("discovery outlived the session that started it")
	}
}

func TestDiscoverStartFailure(t *testing.T) {
	d := standardDaemon()
	d.Fail(fakebus.StartDiscovery, fakebus.DaemonError("org.bluez.Error.NotReady", "Resource Not Ready"))
	c := newTestClient(t, d)

	found, err := c.DiscoverByAddress(context.Background(), lostPad, 60*time.Second, nil)
	if found || !IsBusError(err) {
		t.Errorf("DiscoverByAddress() = (%v, %v), want (false, BusError)", found, err)
	}
	if n := d.CallCount(fakebus.StopDiscovery); n != 0 {
		t.Errorf("StopDiscovery called %d times after failed start", n)
	}
}

func TestDiscoverPollFailureStopsScan(t *testing.T) {
	d := standardDaemon()
	c := newTestClient(t, d)
	d.Hook(fakebus.StartDiscovery, func(d *fakebus.Daemon) {
		d.Fail(fakebus.GetManagedObjects, errors.New("connection reset"))
	})

	found, err := c.DiscoverByAddress(context.Background(), lostPad, 60*time.Second, nil)
	if found || !IsBusError(err) {
		t.Errorf("DiscoverByAddress() = (%v, %v), want (false, BusError)", found, err)
	}
	if d.Discovering(testAdapter) {
		t.Error("adapter left discovering after poll failure")
	}
}

func TestDiscoverCanceled(t *testing.T) {
	d := standardDaemon()
	c := newTestClient(t, d)
	ctx, cancel := context.WithCancel(context.Background())
	c.Clock = cancelingClock{Clock: fakebus.NewClock(), cancel: cancel}

	found, err := c.DiscoverByAddress(ctx, lostPad, 60*time.Second, nil)
	if found || err == nil {
		t.Fatalf("DiscoverByAddress() = (%v, %v), want cancellation error", found, err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled in chain", err)
	}
	if d.Discovering(testAdapter) {
		t.Error("adapter left discovering after cancellation")
	}
}

// cancelingClock cancels the operation on the first sleep.
type cancelingClock struct {
	*fakebus.Clock
	cancel context.CancelFunc
}

func (c cancelingClock) Sleep(ctx context.Context, d time.Duration) error {
	c.cancel()
	return c.Clock.Sleep(ctx, d)
}

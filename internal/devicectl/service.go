// Package devicectl runs one user-level device operation at a time against
// the Bluetooth daemon.
//
// Every call opens its own bus session and closes it before returning.
// Sessions are never shared between calls, so operations running
// concurrently from the TUI cannot observe each other's connection state.
//
// Errors are phrased for display: bus faults read "Failed to <op>: <cause>",
// a session that cannot be opened reads "DBus error: <cause>", and a
// missing device is ErrDeviceNotFound.
package devicectl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/keewee/gamepadctl/internal/battery"
	"github.com/keewee/gamepadctl/internal/bluez"
	"github.com/keewee/gamepadctl/internal/logging"
	"github.com/keewee/gamepadctl/internal/reconnect"
	"github.com/keewee/gamepadctl/internal/session"
)

// ErrDeviceNotFound is returned when the daemon does not know the address.
var ErrDeviceNotFound = errors.New("Device not found")

// BatteryProbe looks up a battery reading by address.
type BatteryProbe interface {
	Read(addr string) (battery.Reading, bool)
}

// Service performs device operations, one bus session per call.
type Service struct {
	dial    bluez.Dialer
	battery BatteryProbe

	// DiscoveryTimeout bounds the scan used by Reconnect. Zero means the
	// orchestrator's default.
	DiscoveryTimeout time.Duration

	// Clock replaces the wall clock in discovery loops (tests only).
	Clock bluez.Clock
}

// New creates a service. probe may be nil to skip battery lookups.
func New(dial bluez.Dialer, probe BatteryProbe) *Service {
	if dial == nil {
		dial = bluez.Dial
	}
	return &Service{dial: dial, battery: probe}
}

func (s *Service) withClient(ctx context.Context, fn func(c *bluez.Client) error) error {
	bus, err := s.dial(ctx)
	if err != nil {
		return fmt.Errorf("DBus error: %w", err)
	}
	defer func() {
		if cerr := bus.Close(); cerr != nil {
			logging.Warn("Failed to close bus session", zap.Error(cerr))
		}
	}()

	c := bluez.NewClient(bus)
	if s.Clock != nil {
		c.Clock = s.Clock
	}
	return fn(c)
}

// LoadDevices reads the connected and paired lists and joins battery
// readings onto the connected devices.
func (s *Service) LoadDevices(ctx context.Context) (session.Snapshot, error) {
	var snap session.Snapshot
	err := s.withClient(ctx, func(c *bluez.Client) error {
		connected, err := c.ListConnected(ctx)
		if err != nil {
			return fmt.Errorf("Failed to list connected devices: %w", err)
		}
		paired, err := c.ListPaired(ctx)
		if err != nil {
			return fmt.Errorf("Failed to list paired devices: %w", err)
		}

		snap.Connected = make([]session.ConnectedDevice, 0, len(connected))
		for _, d := range connected {
			snap.Connected = append(snap.Connected, s.withBattery(d))
		}
		snap.Paired = make([]session.PairedDevice, 0, len(paired))
		for _, d := range paired {
			snap.Paired = append(snap.Paired, session.PairedDevice{Address: d.Address, Name: d.Name})
		}
		return nil
	})
	if err != nil {
		return session.Snapshot{}, err
	}

	logging.Debug("Devices loaded",
		zap.Int("connected", len(snap.Connected)),
		zap.Int("paired", len(snap.Paired)),
	)
	return snap, nil
}

func (s *Service) withBattery(d bluez.DeviceSummary) session.ConnectedDevice {
	out := session.ConnectedDevice{Address: d.Address, Name: d.Name}
	if s.battery == nil {
		return out
	}
	if r, ok := s.battery.Read(d.Address); ok {
		capacity := r.Capacity
		out.Battery = &capacity
		out.Charging = r.Charging()
	}
	return out
}

// Disconnect disconnects addr.
func (s *Service) Disconnect(ctx context.Context, addr string) error {
	return s.single(ctx, "disconnect device", addr, func(c *bluez.Client) (bool, error) {
		return c.Disconnect(ctx, addr)
	})
}

// Remove makes the daemon forget addr.
func (s *Service) Remove(ctx context.Context, addr string) error {
	return s.single(ctx, "remove device", addr, func(c *bluez.Client) (bool, error) {
		return c.Remove(ctx, addr)
	})
}

// Rename sets the alias of paired device addr. A blank name is rejected
// before the bus is touched.
func (s *Service) Rename(ctx context.Context, addr string, name string) error {
	name, err := session.ValidateName(name)
	if err != nil {
		return err
	}
	return s.single(ctx, "rename device", addr, func(c *bluez.Client) (bool, error) {
		return c.Rename(ctx, addr, name)
	})
}

func (s *Service) single(ctx context.Context, op string, addr string, fn func(c *bluez.Client) (bool, error)) error {
	return s.withClient(ctx, func(c *bluez.Client) error {
		ok, err := fn(c)
		if err != nil {
			return fmt.Errorf("Failed to %s: %w", op, err)
		}
		if !ok {
			return ErrDeviceNotFound
		}
		logging.Info("Device operation complete",
			zap.String("op", op),
			zap.String("address", addr),
		)
		return nil
	})
}

// Discover scans for addr until it appears or timeout elapses.
func (s *Service) Discover(ctx context.Context, addr string, timeout time.Duration, progress bluez.ProgressFunc) (bool, error) {
	var found bool
	err := s.withClient(ctx, func(c *bluez.Client) error {
		var err error
		found, err = c.DiscoverByAddress(ctx, addr, timeout, progress)
		if err != nil {
			return fmt.Errorf("Failed to discover device: %w", err)
		}
		return nil
	})
	return found, err
}

// Reconnect runs the reconnection workflow for req over a single bus
// session. Step failures are returned as *reconnect.StepError; bus faults
// are wrapped with the step they interrupted.
func (s *Service) Reconnect(ctx context.Context, req reconnect.Request, opts reconnect.Options) (*reconnect.Result, error) {
	if opts.DiscoveryTimeout == 0 {
		opts.DiscoveryTimeout = s.DiscoveryTimeout
	}

	result := &reconnect.Result{Address: req.Address, AttemptID: req.AttemptID}
	err := s.withClient(ctx, func(c *bluez.Client) error {
		var err error
		result, err = reconnect.New(c, opts).Run(ctx, req)
		if err != nil && reconnect.FailureReason(err) == 0 {
			return fmt.Errorf("Failed to %s device: %w", stageVerb(result.Stage), err)
		}
		return err
	})
	if err != nil {
		result.Error = err
	}
	return result, err
}

func stageVerb(stage reconnect.Stage) string {
	switch stage {
	case reconnect.StageRemoving:
		return "remove"
	case reconnect.StageDiscovering:
		return "discover"
	case reconnect.StagePairing:
		return "pair"
	case reconnect.StageTrusting:
		return "trust"
	case reconnect.StageConnecting:
		return "connect"
	default:
		return "reconnect"
	}
}

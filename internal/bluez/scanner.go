package bluez

import (
	"context"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/keewee/gamepadctl/internal/logging"
)

// stopTimeout bounds StopDiscovery when the caller's context is already done.
const stopTimeout = 5 * time.Second

// ProgressFunc receives the number of whole seconds left in a discovery
// window. It is called once per distinct value.
type ProgressFunc func(remaining int)

// DiscoverByAddress scans on the default adapter until a device with addr
// appears or timeout elapses.
//
// A device the daemon already knows is reported immediately without
// scanning. With no adapter present the result is false and no error.
// Whenever a scan was started it is stopped before returning.
func (c *Client) DiscoverByAddress(ctx context.Context, addr string, timeout time.Duration, progress ProgressFunc) (bool, error) {
	if _, found, err := c.ResolveDevicePath(ctx, addr); err != nil || found {
		return found, err
	}

	adapter, ok, err := c.DefaultAdapter(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		logging.LogNotFound("adapter", addr)
		return false, nil
	}

	err = c.bus.Call(ctx, adapter, MethodStartDiscovery)
	logging.LogBusCall(MethodStartDiscovery, string(adapter), err)
	if err != nil && !isInProgress(err) {
		return false, newCallError("start discovery", adapter, err)
	}

	found, err := c.pollForDevice(ctx, addr, timeout, progress)
	if stopErr := c.stopDiscovery(ctx, adapter); stopErr != nil && err == nil {
		return false, stopErr
	}
	return found, err
}

func (c *Client) pollForDevice(ctx context.Context, addr string, timeout time.Duration, progress ProgressFunc) (bool, error) {
	start := c.Clock.Now()
	lastReported := -1

	for {
		_, found, err := c.ResolveDevicePath(ctx, addr)
		if err != nil {
			return false, err
		}
		if found {
			return true, nil
		}

		elapsed := c.Clock.Now().Sub(start)
		if elapsed >= timeout {
			logging.LogNotFound("device after discovery", addr)
			return false, nil
		}

		remaining := int((timeout - elapsed + time.Second - 1) / time.Second)
		if remaining != lastReported {
			lastReported = remaining
			logging.LogDiscoveryProgress(addr, remaining)
			if progress != nil {
				progress(remaining)
			}
		}

		if err := c.Clock.Sleep(ctx, c.PollInterval); err != nil {
			return false, newCallError("wait for device", "", err)
		}
	}
}

// stopDiscovery runs even when ctx is already canceled, so the adapter is
// not left scanning.
func (c *Client) stopDiscovery(ctx context.Context, adapter dbus.ObjectPath) error {
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
	defer cancel()

	err := c.bus.Call(stopCtx, adapter, MethodStopDiscovery)
	logging.LogBusCall(MethodStopDiscovery, string(adapter), err)
	if err != nil {
		return newCallError("stop discovery", adapter, err)
	}
	return nil
}

package bluez

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/keewee/gamepadctl/internal/logging"
)

// Pair asks the daemon to pair with the device.
func (c *Client) Pair(ctx context.Context, addr string) (bool, error) {
	return c.invoke(ctx, addr, "pair device", MethodPair)
}

// Connect asks the daemon to connect the device.
func (c *Client) Connect(ctx context.Context, addr string) (bool, error) {
	return c.invoke(ctx, addr, "connect device", MethodConnect)
}

// Disconnect asks the daemon to disconnect the device.
func (c *Client) Disconnect(ctx context.Context, addr string) (bool, error) {
	return c.invoke(ctx, addr, "disconnect device", MethodDisconnect)
}

// Trust sets the device's Trusted property.
func (c *Client) Trust(ctx context.Context, addr string, trusted bool) (bool, error) {
	path, ok, err := c.resolve(ctx, addr)
	if err != nil || !ok {
		return false, err
	}
	if err := c.setProperty(ctx, path, "Trusted", trusted); err != nil {
		return false, newCallError("trust device", path, err)
	}
	return true, nil
}

// Remove asks the device's owning adapter to forget it.
func (c *Client) Remove(ctx context.Context, addr string) (bool, error) {
	path, ok, err := c.resolve(ctx, addr)
	if err != nil || !ok {
		return false, err
	}

	v, err := c.bus.GetProperty(ctx, path, DeviceInterface, "Adapter")
	logging.LogBusCall(PropertiesInterface+".Get", string(path), err)
	if err != nil {
		return false, newCallError("read device adapter", path, err)
	}
	adapter, isPath := v.Value().(dbus.ObjectPath)
	if !isPath {
		return false, newDecodeError("read device adapter", path,
			fmt.Errorf("unexpected Adapter value of type %T", v.Value()))
	}

	err = c.bus.Call(ctx, adapter, MethodRemoveDevice, path)
	logging.LogBusCall(MethodRemoveDevice, string(adapter), err)
	if err != nil {
		return false, newCallError("remove device", path, err)
	}
	return true, nil
}

// Rename sets the alias of a paired device. Devices that are known to the
// daemon but not paired are reported as not found.
func (c *Client) Rename(ctx context.Context, addr string, alias string) (bool, error) {
	devices, err := c.Devices(ctx)
	if err != nil {
		return false, err
	}

	var path dbus.ObjectPath
	for _, d := range devices {
		if d.Paired && SameAddress(d.Address, addr) {
			path = d.Path
			break
		}
	}
	if path == "" {
		logging.LogNotFound("paired device", addr)
		return false, nil
	}

	if err := c.setProperty(ctx, path, "Alias", alias); err != nil {
		return false, newCallError("rename device", path, err)
	}
	return true, nil
}

func (c *Client) resolve(ctx context.Context, addr string) (dbus.ObjectPath, bool, error) {
	path, ok, err := c.ResolveDevicePath(ctx, addr)
	if err == nil && !ok {
		logging.LogNotFound("device", addr)
	}
	return path, ok, err
}

func (c *Client) invoke(ctx context.Context, addr string, op string, method string) (bool, error) {
	path, ok, err := c.resolve(ctx, addr)
	if err != nil || !ok {
		return false, err
	}
	err = c.bus.Call(ctx, path, method)
	logging.LogBusCall(method, string(path), err)
	if err != nil {
		return false, newCallError(op, path, err)
	}
	return true, nil
}

func (c *Client) setProperty(ctx context.Context, path dbus.ObjectPath, name string, value interface{}) error {
	err := c.bus.SetProperty(ctx, path, DeviceInterface, name, value)
	logging.LogBusCall(PropertiesInterface+".Set "+name, string(path), err)
	return err
}

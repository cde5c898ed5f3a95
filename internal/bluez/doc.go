// Package bluez is a client for the BlueZ Bluetooth daemon on the system
// D-Bus.
//
// It covers the pieces of the daemon's API that a gamepad manager needs:
//
//   - Bus sessions: one fresh system-bus connection per operation (Dial).
//     Sessions are never pooled or shared between operations.
//   - Device directory: enumerating the daemon's managed-object tree to
//     resolve a device path by address, list connected or paired devices,
//     and find the default adapter.
//   - Control operations: Pair, Trust, Connect, Disconnect, Remove, Rename.
//   - Discovery: scanning on the default adapter until an address shows up
//     or a timeout elapses.
//
// # Not found is not an error
//
// Every lookup and control operation distinguishes "the device (or adapter)
// is not there" from "the bus failed". The first is reported as a false or
// empty result with a nil error. The second is a *BusError:
//
//	ok, err := client.Connect(ctx, "AA:BB:CC:DD:EE:FF")
//	switch {
//	case err != nil:
//	    // transport or daemon fault
//	case !ok:
//	    // no such device
//	}
//
// # Addresses
//
// Addresses are compared case-insensitively everywhere. NormalizeAddress
// gives the canonical upper-case form used as a map key by callers.
//
// # Usage Example
//
//	bus, err := bluez.Dial(ctx)
//	if err != nil {
//	    return err
//	}
//	defer bus.Close()
//
//	client := bluez.NewClient(bus)
//	found, err := client.DiscoverByAddress(ctx, addr, 60*time.Second, nil)
package bluez

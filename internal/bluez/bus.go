package bluez

import (
	"context"

	"github.com/godbus/dbus/v5"
)

// D-Bus names used by the daemon.
const (
	Service          = "org.bluez"
	DeviceInterface  = "org.bluez.Device1"
	AdapterInterface = "org.bluez.Adapter1"

	ObjectManagerInterface = "org.freedesktop.DBus.ObjectManager"
	PropertiesInterface    = "org.freedesktop.DBus.Properties"
)

// Methods invoked on device and adapter objects.
const (
	MethodPair           = DeviceInterface + ".Pair"
	MethodConnect        = DeviceInterface + ".Connect"
	MethodDisconnect     = DeviceInterface + ".Disconnect"
	MethodStartDiscovery = AdapterInterface + ".StartDiscovery"
	MethodStopDiscovery  = AdapterInterface + ".StopDiscovery"
	MethodRemoveDevice   = AdapterInterface + ".RemoveDevice"
)

// ManagedObjects is the reply of ObjectManager.GetManagedObjects: object
// path to interface name to property name to value.
type ManagedObjects = map[dbus.ObjectPath]map[string]map[string]dbus.Variant

// Bus is a single session with the system bus, scoped to one operation.
type Bus interface {
	ManagedObjects(ctx context.Context) (ManagedObjects, error)
	Call(ctx context.Context, path dbus.ObjectPath, method string, args ...interface{}) error
	GetProperty(ctx context.Context, path dbus.ObjectPath, iface, name string) (dbus.Variant, error)
	SetProperty(ctx context.Context, path dbus.ObjectPath, iface, name string, value interface{}) error
	Close() error
}

// Dialer opens a new bus session.
type Dialer func(ctx context.Context) (Bus, error)

// ConnectSystemBus is a hook for tests to override D-Bus connection behavior.
var ConnectSystemBus = dbus.ConnectSystemBus

// Dial opens a private connection to the system bus.
func Dial(ctx context.Context) (Bus, error) {
	conn, err := ConnectSystemBus(dbus.WithContext(ctx))
	if err != nil {
		return nil, &BusError{Kind: KindConnection, Op: "connect to system bus", Err: err}
	}
	return &systemBus{conn: conn}, nil
}

type systemBus struct {
	conn *dbus.Conn
}

func (b *systemBus) ManagedObjects(ctx context.Context) (ManagedObjects, error) {
	var objects ManagedObjects
	obj := b.conn.Object(Service, "/")
	err := obj.CallWithContext(ctx, ObjectManagerInterface+".GetManagedObjects", 0).Store(&objects)
	if err != nil {
		return nil, err
	}
	return objects, nil
}

func (b *systemBus) Call(ctx context.Context, path dbus.ObjectPath, method string, args ...interface{}) error {
	return b.conn.Object(Service, path).CallWithContext(ctx, method, 0, args...).Err
}

func (b *systemBus) GetProperty(ctx context.Context, path dbus.ObjectPath, iface, name string) (dbus.Variant, error) {
	var v dbus.Variant
	err := b.conn.Object(Service, path).
		CallWithContext(ctx, PropertiesInterface+".Get", 0, iface, name).
		Store(&v)
	return v, err
}

func (b *systemBus) SetProperty(ctx context.Context, path dbus.ObjectPath, iface, name string, value interface{}) error {
	return b.conn.Object(Service, path).
		CallWithContext(ctx, PropertiesInterface+".Set", 0, iface, name, dbus.MakeVariant(value)).
		Err
}

func (b *systemBus) Close() error {
	return b.conn.Close()
}

// Package fakebus is an in-memory stand-in for the BlueZ daemon, used by
// tests that exercise the bus client without a system bus.
//
// It models the managed-object tree, device pairing/connection flags,
// per-session discovery on adapters, and devices that only show up while a
// scan is running. Like the daemon, an adapter keeps scanning while any
// session still holds a discovery, and a session's discoveries end when it
// closes.
package fakebus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	deviceIface  = "org.bluez.Device1"
	adapterIface = "org.bluez.Adapter1"
)

// Method names the fake understands. Property access is keyed as
// "Get:<Name>" and "Set:<Name>" for Fail and Hook.
const (
	GetManagedObjects = "org.freedesktop.DBus.ObjectManager.GetManagedObjects"
	Pair              = "org.bluez.Device1.Pair"
	Connect           = "org.bluez.Device1.Connect"
	Disconnect        = "org.bluez.Device1.Disconnect"
	StartDiscovery    = "org.bluez.Adapter1.StartDiscovery"
	StopDiscovery     = "org.bluez.Adapter1.StopDiscovery"
	RemoveDevice      = "org.bluez.Adapter1.RemoveDevice"
)

// ErrBusClosed is returned for calls on a closed session.
var ErrBusClosed = errors.New("fakebus: session closed")

// DaemonError builds an error shaped like a daemon error reply.
func DaemonError(name string, msg string) error {
	return &dbus.Error{Name: name, Body: []interface{}{msg}}
}

// Call is one recorded method call.
type Call struct {
	Path   dbus.ObjectPath
	Method string
	Args   []interface{}
}

// DeviceSpec describes a device to add to the tree.
type DeviceSpec struct {
	Address   string
	Alias     string
	Name      string
	Connected bool
	Paired    bool
	Trusted   bool
}

type pendingDevice struct {
	adapter dbus.ObjectPath
	spec    DeviceSpec
	polls   int
}

// Daemon holds the fake object tree.
type Daemon struct {
	mu          sync.Mutex
	objects     map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	discovering map[dbus.ObjectPath]map[*Session]bool
	pending     []pendingDevice
	failures    map[string]error
	hooks       map[string]func(*Daemon)
	calls       []Call
	opened      int
	closed      int

	// DialErr, when set, makes Dial fail.
	DialErr error
}

// New returns an empty daemon.
func New() *Daemon {
	return &Daemon{
		objects:     make(map[dbus.ObjectPath]map[string]map[string]dbus.Variant),
		discovering: make(map[dbus.ObjectPath]map[*Session]bool),
		failures:    make(map[string]error),
		hooks:       make(map[string]func(*Daemon)),
	}
}

// DevicePath returns the path BlueZ would give addr under adapter.
func DevicePath(adapter dbus.ObjectPath, addr string) dbus.ObjectPath {
	return dbus.ObjectPath(fmt.Sprintf("%s/dev_%s", adapter, strings.ReplaceAll(strings.ToUpper(addr), ":", "_")))
}

// AddAdapter adds an adapter object.
func (d *Daemon) AddAdapter(path dbus.ObjectPath) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.objects[path] = map[string]map[string]dbus.Variant{
		adapterIface: {
			"Address":     dbus.MakeVariant("00:1A:7D:DA:71:13"),
			"Powered":     dbus.MakeVariant(true),
			"Discovering": dbus.MakeVariant(false),
		},
	}
}

// AddDevice adds a device under adapter and returns its path.
func (d *Daemon) AddDevice(adapter dbus.ObjectPath, spec DeviceSpec) dbus.ObjectPath {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.addDeviceLocked(adapter, spec)
}

func (d *Daemon) addDeviceLocked(adapter dbus.ObjectPath, spec DeviceSpec) dbus.ObjectPath {
	path := DevicePath(adapter, spec.Address)
	props := map[string]dbus.Variant{
		"Connected": dbus.MakeVariant(spec.Connected),
		"Paired":    dbus.MakeVariant(spec.Paired),
		"Trusted":   dbus.MakeVariant(spec.Trusted),
		"Adapter":   dbus.MakeVariant(adapter),
	}
	if spec.Address != "" {
		props["Address"] = dbus.MakeVariant(spec.Address)
	}
	if spec.Alias != "" {
		props["Alias"] = dbus.MakeVariant(spec.Alias)
	}
	if spec.Name != "" {
		props["Name"] = dbus.MakeVariant(spec.Name)
	}
	d.objects[path] = map[string]map[string]dbus.Variant{deviceIface: props}
	return path
}

// AddObject adds an arbitrary object, e.g. one exposing only unrelated
// interfaces.
func (d *Daemon) AddObject(path dbus.ObjectPath, ifaces map[string]map[string]dbus.Variant) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.objects[path] = ifaces
}

// AppearDuringDiscovery registers a device that is added to the tree after
// the given number of object enumerations made while adapter is scanning.
func (d *Daemon) AppearDuringDiscovery(adapter dbus.ObjectPath, spec DeviceSpec, polls int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = append(d.pending, pendingDevice{adapter: adapter, spec: spec, polls: polls})
}

// RemoveObject drops an object from the tree.
func (d *Daemon) RemoveObject(path dbus.ObjectPath) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.objects, path)
}

// Fail makes every call to method return err. A nil err clears it.
func (d *Daemon) Fail(method string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		delete(d.failures, method)
		return
	}
	d.failures[method] = err
}

// Hook runs fn after each successful call to method.
func (d *Daemon) Hook(method string, fn func(*Daemon)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hooks[method] = fn
}

// Device returns the Device1 properties of the device with addr.
func (d *Daemon) Device(addr string) (map[string]dbus.Variant, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, props, ok := d.findDeviceLocked(addr)
	if !ok {
		return nil, false
	}
	out := make(map[string]dbus.Variant, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out, true
}

// SetDeviceProperty changes a Device1 property directly.
func (d *Daemon) SetDeviceProperty(addr string, name string, value interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, props, ok := d.findDeviceLocked(addr); ok {
		props[name] = dbus.MakeVariant(value)
	}
}

// Discovering reports whether adapter is scanning for any session.
func (d *Daemon) Discovering(adapter dbus.ObjectPath) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.discovering[adapter]) > 0
}

// DiscoverySessions returns how many sessions hold a discovery on adapter.
func (d *Daemon) DiscoverySessions(adapter dbus.ObjectPath) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.discovering[adapter])
}

// setDiscoveringLocked mirrors the session set into the Discovering property.
func (d *Daemon) setDiscoveringLocked(adapter dbus.ObjectPath) {
	if props, ok := d.objects[adapter][adapterIface]; ok {
		props["Discovering"] = dbus.MakeVariant(len(d.discovering[adapter]) > 0)
	}
}

// Calls returns the recorded calls in order.
func (d *Daemon) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Call, len(d.calls))
	copy(out, d.calls)
	return out
}

// Methods returns the recorded method names in order, without enumerations.
func (d *Daemon) Methods() []string {
	var out []string
	for _, c := range d.Calls() {
		if c.Method != GetManagedObjects {
			out = append(out, c.Method)
		}
	}
	return out
}

// CallCount returns how many times method was called.
func (d *Daemon) CallCount(method string) int {
	n := 0
	for _, c := range d.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Sessions returns how many sessions were opened and closed.
func (d *Daemon) Sessions() (opened, closed int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opened, d.closed
}

// Dial opens a session on the daemon.
func (d *Daemon) Dial(ctx context.Context) (*Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.DialErr != nil {
		return nil, d.DialErr
	}
	d.opened++
	return &Session{d: d}, nil
}

func (d *Daemon) findDeviceLocked(addr string) (dbus.ObjectPath, map[string]dbus.Variant, bool) {
	for path, ifaces := range d.objects {
		props, ok := ifaces[deviceIface]
		if !ok {
			continue
		}
		if a, _ := props["Address"].Value().(string); strings.EqualFold(a, addr) {
			return path, props, true
		}
	}
	return "", nil, false
}

// record logs the call and returns the configured failure, if any.
func (d *Daemon) record(path dbus.ObjectPath, method string, args ...interface{}) error {
	d.calls = append(d.calls, Call{Path: path, Method: method, Args: args})
	return d.failures[method]
}

func (d *Daemon) runHook(method string) {
	d.mu.Lock()
	fn := d.hooks[method]
	d.mu.Unlock()
	if fn != nil {
		fn(d)
	}
}

// Session is one connection to the fake daemon.
type Session struct {
	d      *Daemon
	closed bool
}

// ManagedObjects returns a copy of the object tree.
func (s *Session) ManagedObjects(ctx context.Context) (map[dbus.ObjectPath]map[string]map[string]dbus.Variant, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	d := s.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("/", GetManagedObjects); err != nil {
		return nil, err
	}

	remaining := d.pending[:0]
	for _, p := range d.pending {
		if len(d.discovering[p.adapter]) > 0 {
			p.polls--
			if p.polls <= 0 {
				d.addDeviceLocked(p.adapter, p.spec)
				continue
			}
		}
		remaining = append(remaining, p)
	}
	d.pending = remaining

	out := make(map[dbus.ObjectPath]map[string]map[string]dbus.Variant, len(d.objects))
	for path, ifaces := range d.objects {
		ifCopy := make(map[string]map[string]dbus.Variant, len(ifaces))
		for name, props := range ifaces {
			pCopy := make(map[string]dbus.Variant, len(props))
			for k, v := range props {
				pCopy[k] = v
			}
			ifCopy[name] = pCopy
		}
		out[path] = ifCopy
	}
	return out, nil
}

// Call invokes a device or adapter method.
func (s *Session) Call(ctx context.Context, path dbus.ObjectPath, method string, args ...interface{}) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if err := s.call(path, method, args...); err != nil {
		return err
	}
	s.d.runHook(method)
	return nil
}

func (s *Session) call(path dbus.ObjectPath, method string, args ...interface{}) error {
	d := s.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record(path, method, args...); err != nil {
		return err
	}

	obj, ok := d.objects[path]
	if !ok {
		return DaemonError("org.freedesktop.DBus.Error.UnknownObject", "Method \""+method+"\" doesn't exist")
	}

	switch method {
	case Pair:
		obj[deviceIface]["Paired"] = dbus.MakeVariant(true)
	case Connect:
		obj[deviceIface]["Connected"] = dbus.MakeVariant(true)
	case Disconnect:
		obj[deviceIface]["Connected"] = dbus.MakeVariant(false)
	case StartDiscovery:
		if d.discovering[path][s] {
			return DaemonError("org.bluez.Error.InProgress", "Operation already in progress")
		}
		if d.discovering[path] == nil {
			d.discovering[path] = make(map[*Session]bool)
		}
		d.discovering[path][s] = true
		d.setDiscoveringLocked(path)
	case StopDiscovery:
		if !d.discovering[path][s] {
			return DaemonError("org.bluez.Error.Failed", "No discovery started")
		}
		delete(d.discovering[path], s)
		d.setDiscoveringLocked(path)
	case RemoveDevice:
		if len(args) != 1 {
			return DaemonError("org.bluez.Error.InvalidArguments", "Invalid arguments in method call")
		}
		target, _ := args[0].(dbus.ObjectPath)
		if _, ok := d.objects[target]; !ok {
			return DaemonError("org.bluez.Error.DoesNotExist", "Does Not Exist")
		}
		delete(d.objects, target)
	default:
		return DaemonError("org.freedesktop.DBus.Error.UnknownMethod", "Unknown method "+method)
	}
	return nil
}

// GetProperty reads a property.
func (s *Session) GetProperty(ctx context.Context, path dbus.ObjectPath, iface, name string) (dbus.Variant, error) {
	if err := s.check(ctx); err != nil {
		return dbus.Variant{}, err
	}
	d := s.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record(path, "Get:"+name, iface, name); err != nil {
		return dbus.Variant{}, err
	}
	v, ok := d.objects[path][iface][name]
	if !ok {
		return dbus.Variant{}, DaemonError("org.freedesktop.DBus.Error.InvalidArgs", "No such property '"+name+"'")
	}
	return v, nil
}

// SetProperty writes a property.
func (s *Session) SetProperty(ctx context.Context, path dbus.ObjectPath, iface, name string, value interface{}) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if err := s.setProperty(path, iface, name, value); err != nil {
		return err
	}
	s.d.runHook("Set:" + name)
	return nil
}

func (s *Session) setProperty(path dbus.ObjectPath, iface, name string, value interface{}) error {
	d := s.d
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record(path, "Set:"+name, iface, name, value); err != nil {
		return err
	}
	props, ok := d.objects[path][iface]
	if !ok {
		return DaemonError("org.freedesktop.DBus.Error.UnknownObject", "No such object")
	}
	props[name] = dbus.MakeVariant(value)
	return nil
}

// Close ends the session.
func (s *Session) Close() error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if s.closed {
		return ErrBusClosed
	}
	s.closed = true
	s.d.closed++
	for adapter, sessions := range s.d.discovering {
		if sessions[s] {
			delete(sessions, s)
			s.d.setDiscoveringLocked(adapter)
		}
	}
	return nil
}

func (s *Session) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if s.closed {
		return ErrBusClosed
	}
	return nil
}

// Clock is a manual clock whose Sleep advances time instantly.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock starting at a fixed instant.
func NewClock() *Clock {
	return &Clock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

// Now returns the clock's current time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep advances the clock by d.
func (c *Clock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return nil
}

// Elapsed returns the time slept since NewClock.
func (c *Clock) Elapsed() time.Duration {
	return c.Now().Sub(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
}

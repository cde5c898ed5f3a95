package bluez

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

// ErrorKind represents the category of a bus failure
type ErrorKind int

const (
	// KindConnection indicates the system bus could not be reached
	KindConnection ErrorKind = iota
	// KindCall indicates a method call was rejected by the daemon or the bus
	KindCall
	// KindDecode indicates a reply did not have the expected shape
	KindDecode
	// KindCanceled indicates the operation's context ended mid-call
	KindCanceled
)

// String returns a human-readable name for the error kind
func (k ErrorKind) String() string {
	switch k {
	case KindConnection:
		return "Connection Error"
	case KindCall:
		return "Call Error"
	case KindDecode:
		return "Decode Error"
	case KindCanceled:
		return "Canceled"
	default:
		return fmt.Sprintf("ErrorKind(%d)", k)
	}
}

// Error names returned by the daemon that callers care about.
const (
	errInProgress   = "org.bluez.Error.InProgress"
	errNotReady     = "org.bluez.Error.NotReady"
	errAuthFailed   = "org.bluez.Error.AuthenticationFailed"
	errAuthRejected = "org.bluez.Error.AuthenticationRejected"
	errAuthTimeout  = "org.bluez.Error.AuthenticationTimeout"
	errAccessDenied = "org.freedesktop.DBus.Error.AccessDenied"
	errServiceGone  = "org.freedesktop.DBus.Error.ServiceUnknown"
)

// BusError is a transport or protocol failure talking to the daemon.
// It is always fatal to the current operation and never retried.
type BusError struct {
	Kind ErrorKind       // Category of failure
	Op   string          // What was being attempted, e.g. "pair device"
	Path dbus.ObjectPath // Object the call targeted (if any)
	Err  error           // Underlying error
}

// Error implements the error interface
func (e *BusError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s %s (caused by: %v)", e.Kind, e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Op, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *BusError) Unwrap() error {
	return e.Err
}

func newCallError(op string, path dbus.ObjectPath, err error) *BusError {
	kind := KindCall
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		kind = KindCanceled
	}
	return &BusError{Kind: kind, Op: op, Path: path, Err: err}
}

func newDecodeError(op string, path dbus.ObjectPath, err error) *BusError {
	return &BusError{Kind: KindDecode, Op: op, Path: path, Err: err}
}

// IsBusError reports whether err is, or wraps, a *BusError.
func IsBusError(err error) bool {
	var busErr *BusError
	return errors.As(err, &busErr)
}

// DaemonErrorName returns the D-Bus error name carried in err, or "" when
// the error did not come from a daemon reply.
func DaemonErrorName(err error) string {
	var dbusErr dbus.Error
	if errors.As(err, &dbusErr) {
		return dbusErr.Name
	}
	var dbusErrPtr *dbus.Error
	if errors.As(err, &dbusErrPtr) && dbusErrPtr != nil {
		return dbusErrPtr.Name
	}
	return ""
}

func isInProgress(err error) bool {
	return DaemonErrorName(err) == errInProgress
}

// TroubleshootingHint returns user-facing advice for a bus failure.
func TroubleshootingHint(err error) string {
	var busErr *BusError
	if !errors.As(err, &busErr) {
		return ""
	}

	if busErr.Kind == KindConnection {
		return strings.Join([]string{
			"Could not reach the system bus.",
			"Troubleshooting:",
			"  • Check that D-Bus is running",
			"  • Run from a session that can access the system bus",
		}, "\n")
	}

	switch DaemonErrorName(err) {
	case errServiceGone:
		return strings.Join([]string{
			"The Bluetooth daemon is not running.",
			"Troubleshooting:",
			"  • systemctl status bluetooth",
			"  • sudo systemctl start bluetooth",
		}, "\n")
	case errAccessDenied:
		return strings.Join([]string{
			"The daemon refused the request.",
			"Troubleshooting:",
			"  • Check the D-Bus policy for org.bluez",
			"  • Your user may need to be in the bluetooth group",
		}, "\n")
	case errNotReady:
		return "The adapter is not ready. Make sure it is powered on (bluetoothctl power on)."
	case errAuthFailed, errAuthRejected, errAuthTimeout:
		return strings.Join([]string{
			"Pairing was not accepted by the controller.",
			"Troubleshooting:",
			"  • Put the controller back into pairing mode",
			"  • Keep it close to the adapter and try again",
		}, "\n")
	}
	return ""
}

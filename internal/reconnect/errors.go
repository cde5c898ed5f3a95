package reconnect

import (
	"errors"
	"fmt"
)

// Reason names the step at which a reconnection gave up.
type Reason int

const (
	// ReasonNotFound means discovery ran out of time without seeing the device
	ReasonNotFound Reason = iota + 1
	// ReasonPairFailed means the device vanished before it could be paired
	ReasonPairFailed
	// ReasonTrustFailed means the device vanished before it could be trusted
	ReasonTrustFailed
	// ReasonConnectFailed means the device vanished before it could be connected
	ReasonConnectFailed
)

// String returns the stable identifier for the reason
func (r Reason) String() string {
	switch r {
	case ReasonNotFound:
		return "reconnect-not-found"
	case ReasonPairFailed:
		return "reconnect-pair-failed"
	case ReasonTrustFailed:
		return "reconnect-trust-failed"
	case ReasonConnectFailed:
		return "reconnect-connect-failed"
	default:
		return fmt.Sprintf("Reason(%d)", int(r))
	}
}

// Message returns the user-facing text for the reason
func (r Reason) Message() string {
	switch r {
	case ReasonNotFound:
		return "Device not found. Put the controller in pairing mode and try again."
	case ReasonPairFailed:
		return "Pairing failed."
	case ReasonTrustFailed:
		return "Could not mark the device as trusted."
	case ReasonConnectFailed:
		return "Connection failed."
	default:
		return "Reconnection failed."
	}
}

// StepError is a reconnection that stopped at a named step. It is only
// produced by the orchestrator; bus faults are returned unchanged instead.
type StepError struct {
	Reason  Reason
	Stage   Stage
	Address string
}

// Error implements the error interface
func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Reason, e.Reason.Message(), e.Address)
}

// IsStepFailure reports whether err is a StepError with the given reason.
func IsStepFailure(err error, reason Reason) bool {
	var stepErr *StepError
	return errors.As(err, &stepErr) && stepErr.Reason == reason
}

// FailureReason returns the reason carried by err, or 0 when err is not a
// StepError.
func FailureReason(err error) Reason {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Reason
	}
	return 0
}

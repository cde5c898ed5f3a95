package reconnect

import "fmt"

// Stage is a state of the reconnection workflow.
type Stage int

const (
	StageIdle Stage = iota
	StageRemoving
	StageDiscovering
	StagePairing
	StageTrusting
	StageConnecting
	StageRenaming
	StageDone
)

// Stages lists the working stages in execution order.
var Stages = []Stage{
	StageRemoving,
	StageDiscovering,
	StagePairing,
	StageTrusting,
	StageConnecting,
	StageRenaming,
}

// String returns the stage name
func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageRemoving:
		return "removing"
	case StageDiscovering:
		return "discovering"
	case StagePairing:
		return "pairing"
	case StageTrusting:
		return "trusting"
	case StageConnecting:
		return "connecting"
	case StageRenaming:
		return "renaming"
	case StageDone:
		return "done"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// Title returns a label suitable for step-by-step progress output.
func (s Stage) Title() string {
	switch s {
	case StageRemoving:
		return "Remove stale pairing"
	case StageDiscovering:
		return "Scan for device"
	case StagePairing:
		return "Pair"
	case StageTrusting:
		return "Trust"
	case StageConnecting:
		return "Connect"
	case StageRenaming:
		return "Restore name"
	default:
		return s.String()
	}
}

// Status is the outcome of a stage as reported to observers.
type Status int

const (
	StatusRunning Status = iota
	StatusComplete
	StatusFailed
	StatusSkipped
)

// String returns the status name
func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusComplete:
		return "complete"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// StageFunc observes stage transitions. detail carries a short note such as
// "no stale record" or the discovery countdown.
type StageFunc func(stage Stage, status Status, detail string)

package reconnect

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/keewee/gamepadctl/internal/bluez"
	"github.com/keewee/gamepadctl/internal/logging"
)

// DiscoveryTimeout is the scan budget for a reconnection.
const DiscoveryTimeout = 60 * time.Second

// DeviceController is the set of device operations the workflow drives.
// *bluez.Client implements it.
type DeviceController interface {
	Remove(ctx context.Context, addr string) (bool, error)
	DiscoverByAddress(ctx context.Context, addr string, timeout time.Duration, progress bluez.ProgressFunc) (bool, error)
	Pair(ctx context.Context, addr string) (bool, error)
	Trust(ctx context.Context, addr string, trusted bool) (bool, error)
	Connect(ctx context.Context, addr string) (bool, error)
	Rename(ctx context.Context, addr string, alias string) (bool, error)
}

var _ DeviceController = (*bluez.Client)(nil)

// Request identifies the device to bring back.
type Request struct {
	Address string
	// Name is restored as the alias once connected. Empty, or equal to the
	// address, skips the rename.
	Name string
	// AttemptID correlates log lines; generated when empty.
	AttemptID string
}

// Options configures an Orchestrator.
type Options struct {
	// DiscoveryTimeout overrides the 60 second scan budget (tests only).
	DiscoveryTimeout time.Duration
	// OnStage observes stage transitions.
	OnStage StageFunc
	// OnDiscoveryProgress receives the seconds left in the scan window.
	OnDiscoveryProgress bluez.ProgressFunc
}

// Result is the outcome of one reconnection run.
type Result struct {
	AttemptID string
	Address   string
	Connected bool

	// Stage is where the run ended: StageDone on success, otherwise the
	// stage that failed.
	Stage Stage

	// RemovedStale reports whether a stale record existed and was removed.
	RemovedStale bool

	// Renamed reports whether the alias was restored. RenameWarning holds
	// the reason it was not, when a rename was requested.
	Renamed       bool
	RenameWarning error

	Duration time.Duration
	Error    error
}

// Success reports whether the device ended up connected.
func (r *Result) Success() bool {
	return r.Error == nil && r.Connected
}

// String returns a human-readable summary of the result
func (r *Result) String() string {
	if r.Success() {
		if r.RenameWarning != nil {
			return fmt.Sprintf("✓ Reconnected %s in %s (name not restored: %v)",
				r.Address, r.Duration.Round(time.Second), r.RenameWarning)
		}
		return fmt.Sprintf("✓ Reconnected %s in %s", r.Address, r.Duration.Round(time.Second))
	}
	return fmt.Sprintf("✗ Reconnect of %s failed while %s: %v", r.Address, r.Stage, r.Error)
}

// Orchestrator runs the reconnection workflow against a DeviceController.
type Orchestrator struct {
	ctrl DeviceController
	opts Options
	now  func() time.Time
}

// New creates an orchestrator.
func New(ctrl DeviceController, opts Options) *Orchestrator {
	if opts.DiscoveryTimeout <= 0 {
		opts.DiscoveryTimeout = DiscoveryTimeout
	}
	return &Orchestrator{ctrl: ctrl, opts: opts, now: time.Now}
}

type run struct {
	o      *Orchestrator
	req    Request
	result *Result
}

func (r *run) stage(s Stage, status Status, detail string) {
	r.result.Stage = s
	logging.LogStage(r.result.AttemptID, r.req.Address, s.String(), status.String())
	if r.o.opts.OnStage != nil {
		r.o.opts.OnStage(s, status, detail)
	}
}

// fail ends the run at the current stage.
func (r *run) fail(err error) (*Result, error) {
	r.stage(r.result.Stage, StatusFailed, err.Error())
	r.result.Error = err
	return r.result, err
}

func (r *run) stepFailed(reason Reason) (*Result, error) {
	return r.fail(&StepError{Reason: reason, Stage: r.result.Stage, Address: r.req.Address})
}

// Run executes the workflow. The returned Result is never nil; on failure
// the error is also stored in Result.Error.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	if req.AttemptID == "" {
		req.AttemptID = uuid.NewString()
	}
	start := o.now()
	r := &run{o: o, req: req, result: &Result{
		AttemptID: req.AttemptID,
		Address:   req.Address,
		Stage:     StageIdle,
	}}
	defer func() { r.result.Duration = o.now().Sub(start) }()

	logging.Info("Reconnect started",
		zap.String("attempt_id", req.AttemptID),
		zap.String("address", req.Address),
		zap.String("name", req.Name),
	)

	r.stage(StageRemoving, StatusRunning, "")
	removed, err := o.ctrl.Remove(ctx, req.Address)
	if err != nil {
		return r.fail(err)
	}
	r.result.RemovedStale = removed
	if removed {
		r.stage(StageRemoving, StatusComplete, "stale record removed")
	} else {
		r.stage(StageRemoving, StatusSkipped, "no stale record")
	}

	r.stage(StageDiscovering, StatusRunning, "")
	found, err := o.ctrl.DiscoverByAddress(ctx, req.Address, o.opts.DiscoveryTimeout, o.opts.OnDiscoveryProgress)
	if err != nil {
		return r.fail(err)
	}
	if !found {
		return r.stepFailed(ReasonNotFound)
	}
	r.stage(StageDiscovering, StatusComplete, "")

	steps := []struct {
		stage  Stage
		reason Reason
		do     func() (bool, error)
	}{
		{StagePairing, ReasonPairFailed, func() (bool, error) { return o.ctrl.Pair(ctx, req.Address) }},
		{StageTrusting, ReasonTrustFailed, func() (bool, error) { return o.ctrl.Trust(ctx, req.Address, true) }},
		{StageConnecting, ReasonConnectFailed, func() (bool, error) { return o.ctrl.Connect(ctx, req.Address) }},
	}
	for _, step := range steps {
		r.stage(step.stage, StatusRunning, "")
		ok, err := step.do()
		if err != nil {
			return r.fail(err)
		}
		if !ok {
			return r.stepFailed(step.reason)
		}
		r.stage(step.stage, StatusComplete, "")
	}
	r.result.Connected = true

	o.restoreName(ctx, r)

	r.result.Stage = StageDone
	logging.Info("Reconnect finished",
		zap.String("attempt_id", req.AttemptID),
		zap.String("address", req.Address),
		zap.Bool("renamed", r.result.Renamed),
	)
	return r.result, nil
}

// restoreName is the best-effort final step. Its failure lands in
// RenameWarning and never fails the run.
func (o *Orchestrator) restoreName(ctx context.Context, r *run) {
	name := strings.TrimSpace(r.req.Name)
	if name == "" || bluez.SameAddress(name, r.req.Address) {
		r.stage(StageRenaming, StatusSkipped, "no name to restore")
		return
	}

	r.stage(StageRenaming, StatusRunning, name)
	ok, err := o.ctrl.Rename(ctx, r.req.Address, name)
	switch {
	case err != nil:
		r.result.RenameWarning = err
	case !ok:
		r.result.RenameWarning = errors.New("device is no longer paired")
	default:
		r.result.Renamed = true
		r.stage(StageRenaming, StatusComplete, name)
		return
	}

	logging.Warn("Could not restore device name",
		zap.String("attempt_id", r.result.AttemptID),
		zap.String("address", r.req.Address),
		zap.String("name", name),
		zap.Error(r.result.RenameWarning),
	)
	r.stage(StageRenaming, StatusSkipped, r.result.RenameWarning.Error())
}

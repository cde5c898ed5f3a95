package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/keewee/gamepadctl/internal/bluez"
	"github.com/keewee/gamepadctl/internal/reconnect"
)

// RunnerConfig holds configuration for a multi-step command execution
type RunnerConfig struct {
	Title   string    // Command title (e.g., "Reconnect")
	Command string    // Full command (e.g., "gamepadctl reconnect")
	Params  []Param   // Parameters to display in header
	Steps   []string  // Step names; nil disables the step list
	Output  io.Writer // Output writer (default: os.Stdout)
	Width   int       // Render width (default: terminal width)
}

// Runner orchestrates the output of a command: header, then step lines as
// they are reported, then a result box.
type Runner struct {
	config   RunnerConfig
	header   *Header
	progress *Progress
	output   io.Writer
	width    int
	now      func() time.Time
}

// NewRunner creates a new runner
func NewRunner(config RunnerConfig) *Runner {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	width := config.Width
	if width == 0 {
		width = GetTerminalWidth()
	}

	header := NewHeader(config.Title, config.Command, config.Params...)
	header.SetWidth(width)

	var progress *Progress
	if len(config.Steps) > 0 {
		progress = NewProgress("", config.Steps)
		progress.SetWidth(width)
	}

	return &Runner{
		config:   config,
		header:   header,
		progress: progress,
		output:   config.Output,
		width:    width,
		now:      time.Now,
	}
}

// NewReconnectRunner creates a runner whose steps are the reconnect stages.
func NewReconnectRunner(config RunnerConfig) *Runner {
	config.Steps = make([]string, len(reconnect.Stages))
	for i, s := range reconnect.Stages {
		config.Steps[i] = s.Title()
	}
	return NewRunner(config)
}

// Operation does the work of a command. It reports progress through onStep
// and may return extra details for the success box.
type Operation func(onStep StepCallback) ([]Param, error)

// Run prints the header, executes the operation and prints the result.
func (r *Runner) Run(ctx context.Context, operation Operation) error {
	start := r.now()

	_, _ = fmt.Fprintln(r.output, r.header.Render())
	_, _ = fmt.Fprintln(r.output)

	var details []Param
	err := ctx.Err()
	if err == nil {
		details, err = operation(r.stepCallback())
	}
	duration := r.now().Sub(start)

	_, _ = fmt.Fprintln(r.output)
	if err != nil {
		result := NewFailureResult(r.config.Title+" failed", err, Troubleshooting(err))
		_, _ = fmt.Fprintln(r.output, result.SetWidth(r.width).Render())
		return err
	}

	details = append(details, Param{Key: "Duration", Value: duration.Round(time.Millisecond).String()})
	result := NewSuccessResult(r.config.Title+" complete", details...)
	_, _ = fmt.Fprintln(r.output, result.SetWidth(r.width).Render())
	return nil
}

func (r *Runner) stepCallback() StepCallback {
	return func(stepNumber int, status StepStatus, message string) {
		if r.progress == nil || stepNumber < 1 || stepNumber > len(r.progress.Steps) {
			return
		}
		r.progress.UpdateStep(stepNumber, status, message)
		line := r.progress.renderStepLine(r.progress.Steps[stepNumber-1])

		if status == StepRunning {
			// Overwritten by the next report for this step
			_, _ = fmt.Fprint(r.output, "\r"+line)
			return
		}
		_, _ = fmt.Fprintln(r.output, "\r"+line)
	}
}

// Troubleshooting returns the tips shown under a failed command.
func Troubleshooting(err error) []string {
	var tips []string

	var stepErr *reconnect.StepError
	if errors.As(err, &stepErr) && stepErr.Reason == reconnect.ReasonNotFound {
		tips = append(tips,
			"Put the controller in pairing mode (hold Share + PS until the light bar flashes)",
			"Keep it close to the adapter",
		)
	} else if errors.As(err, &stepErr) {
		tips = append(tips, "Run the reconnect again; the controller may have left pairing mode")
	}

	for _, line := range strings.Split(bluez.TroubleshootingHint(err), "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "•"))
		if line == "" || line == "Troubleshooting:" {
			continue
		}
		tips = append(tips, line)
	}
	return tips
}

// PrintPleaseWait prints a styled "please wait" message for long-running operations.
// The duration hint helps set user expectations, e.g., "up to 60 seconds".
func (p *Printer) PrintPleaseWait(message string, durationHint string) {
	line := PleaseWaitStyle.Render("⏳ " + message)
	if durationHint != "" {
		line += " " + StepNoteStyle.Render("("+durationHint+")")
	}
	line += PleaseWaitStyle.Render("...")

	p.Newline()
	p.Println(line)
	p.Newline()
}

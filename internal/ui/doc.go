// Package ui provides styled one-shot output for the gamepadctl commands.
//
// These components follow a "run once and exit" pattern: they render
// output with Lipgloss but never wait for input, except for the removal
// confirmation prompt. The interactive dashboard lives in package tui.
//
// # Components
//
//   - Header: Command banner showing operation name and parameters
//   - Progress: Progress bar with step list showing real-time status
//   - Result: Success/failure/warning boxes with troubleshooting tips
//   - Printer: Header, result and device list output for simple commands
//
// The Runner drives the header, step and result flow for multi-step
// commands. NewReconnectRunner lays out one step per reconnect stage, and
// StageReporter turns the orchestrator's stage events into step updates:
//
//	runner := ui.NewReconnectRunner(ui.RunnerConfig{
//	    Title:   "Reconnect",
//	    Command: "gamepadctl reconnect",
//	    Params:  []ui.Param{{Key: "Address", Value: addr}},
//	})
//
//	err := runner.Run(ctx, func(onStep ui.StepCallback) ([]ui.Param, error) {
//	    res, err := svc.Reconnect(ctx, req, reconnect.Options{
//	        OnStage: ui.StageReporter(onStep),
//	    })
//	    ...
//	})
//
// # Logging Integration
//
// Logging is controlled by GAMEPADCTL_LOG_LEVEL or --log-level. When unset,
// zap logging is silent so the styled output is displayed cleanly.
package ui

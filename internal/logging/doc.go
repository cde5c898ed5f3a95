// Package logging provides structured logging for gamepadctl.
//
// This package wraps zap with package-level helpers so that the bus client,
// the reconnection orchestrator and the TUI all log through one logger
// without passing it around.
//
// # Log Levels
//
//   - Debug: bus calls, discovery countdown, tick/refresh bookkeeping
//   - Info: reconnection stages, completed device operations
//   - Warn: non-fatal sub-results (best-effort rename after reconnect)
//   - Error: bus faults that abort an operation
//
// A device that cannot be found is an ordinary outcome and is never logged
// at Error level.
//
// # Configuration
//
// Logging is silent unless a level is given through --log-level or the
// GAMEPADCTL_LOG_LEVEL environment variable. The TUI owns the terminal, so
// when it runs, point GAMEPADCTL_LOG_FILE at a file:
//
//	GAMEPADCTL_LOG_LEVEL=debug GAMEPADCTL_LOG_FILE=/tmp/gamepadctl.log gamepadctl
//
// # Structured Logging
//
//	logging.Info("Device disconnected",
//	    zap.String("address", "AA:BB:CC:DD:EE:FF"),
//	)
//
// # Thread Safety
//
// All logging functions are safe for concurrent use once Initialize has
// returned.
package logging

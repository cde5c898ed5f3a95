// Package session holds the client-side state of a gamepadctl session: the
// last device snapshot, in-flight reconnection attempts with their display
// countdowns, and the rename being edited.
//
// State is owned by a single control loop and does no I/O. Results from
// background operations are applied to it strictly in completion order and
// are keyed by device address, so a fast failure can land before a slower
// success without mixing them up.
//
// The countdown on an attempt is a display timeout only. When it reaches
// zero the attempt is dropped from the state even though the reconnection it
// tracks may still be running; that run's result is still applied when it
// arrives.
package session

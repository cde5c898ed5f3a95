// Package tui implements the interactive gamepadctl dashboard.
//
// AppModel is the single foreground control loop. It owns the session
// state; every bus operation runs as a tea.Cmd and reports back with a
// result message, so state is only ever mutated inside Update.
//
// Two timers drive the loop: a refresh every 10 seconds that reloads the
// device lists (skipped while a reconnection or rename is in progress) and
// a one second tick that counts reconnection attempts down. The countdown
// is a display timeout only; the reconnection itself keeps running and its
// result is applied by address whenever it arrives.
package tui

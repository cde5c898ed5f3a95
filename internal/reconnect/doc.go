// Package reconnect re-establishes a pairing that has dropped out of the
// daemon's device table.
//
// The workflow is a single forward path:
//
//	Idle → Removing → Discovering → Pairing → Trusting → Connecting → Renaming → Done
//
// Removing clears any stale record; a missing record is fine. Discovering
// scans for up to 60 seconds. Pairing, trusting and connecting each fail the
// run with a named reason if the device disappears. Renaming restores the
// last known display name and is best effort: its failure is reported as a
// warning on the Result, never as a failed run.
//
// Any bus error aborts the run at the step where it happened. Steps that
// already completed are not rolled back; a device removed in the first step
// stays removed if pairing later fails.
package reconnect

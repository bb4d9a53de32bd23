// Package coordinator decides when a change notification turns into a scan.
//
// Notifications are throttled on the leading edge: the first one fires a
// scan immediately, and any that arrive within the window after it are
// dropped, not queued. Scans triggered this way run in their own goroutine
// and may overlap a scan that is still running.
package coordinator

// Package schedule owns every deferred callback the scrub engine creates.
//
// All work runs on a single event loop: a Scheduler never invokes callbacks
// concurrently with each other or with the caller. Handles are explicit and
// cancelable, and CancelAll must be called when the owning view is disposed
// so that Pending reports zero.
package schedule

import "time"

// Handle is a scheduled callback that can be cancelled. Cancel is idempotent.
type Handle interface {
	Cancel()
}

// Scheduler hands out cancelable one-shot and repeating callbacks.
type Scheduler interface {
	Now() time.Time
	ScheduleOnce(delay time.Duration, fn func()) Handle
	ScheduleRepeating(interval time.Duration, fn func()) Handle
	CancelAll()
	Pending() int
}

// Cancel cancels h when it is non-nil.
func Cancel(h Handle) {
	if h != nil {
		h.Cancel()
	}
}

// Package trim owns the non-destructive trim region of a recording.
package trim

import (
	"log/slog"
	"math"
	"time"

	"github.com/aschmelyun/snipscrub/internal/schedule"
	"github.com/aschmelyun/snipscrub/internal/timeline"
)

const (
	// MinDuration is the shortest region a trim may produce, in seconds.
	MinDuration = 1.0
	// ChangeTolerance is how far a bound may drift from the committed region
	// before the session reports unsaved changes.
	ChangeTolerance = 0.1
	// SettleDelay debounces the HasChanges recomputation while handles move.
	SettleDelay = 100 * time.Millisecond
)

// Region is a trim window in seconds.
type Region struct {
	Start float64
	End   float64
}

func (r Region) Length() float64 { return r.End - r.Start }

func (r Region) Contains(t float64) bool { return t >= r.Start && t <= r.End }

// Cursor is the play position a session keeps inside its region.
type Cursor interface {
	CurrentTime() float64
	Seek(t float64)
}

// Session holds the trim region, the committed region it is compared with,
// and the debounced HasChanges flag.
type Session struct {
	sched    schedule.Scheduler
	cursor   Cursor
	logger   *slog.Logger
	onSettle func(bool)

	duration   float64
	region     Region
	original   Region
	hasChanges bool
	pending    schedule.Handle
	disposed   bool
}

type Option func(*Session)

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithSettleFunc registers fn to run each time HasChanges is recomputed.
func WithSettleFunc(fn func(hasChanges bool)) Option {
	return func(s *Session) { s.onSettle = fn }
}

func NewSession(sched schedule.Scheduler, cursor Cursor, opts ...Option) *Session {
	s := &Session{sched: sched, cursor: cursor, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Initialize sets the region to the whole recording. Calling it again with
// the same duration is a no-op; a different duration re-initializes fully.
func (s *Session) Initialize(duration float64) {
	if s.disposed || duration <= 0 || duration == s.duration {
		return
	}
	if s.duration > 0 {
		s.logger.Debug("trim: duration changed, re-initializing", "from", s.duration, "to", duration)
	}
	schedule.Cancel(s.pending)
	s.pending = nil
	s.duration = duration
	s.region = Region{Start: 0, End: duration}
	s.original = s.region
	s.hasChanges = false
}

func (s *Session) Ready() bool { return s.duration > 0 }

func (s *Session) Duration() float64 { return s.duration }

func (s *Session) Region() Region { return s.region }

func (s *Session) Original() Region { return s.original }

func (s *Session) HasChanges() bool { return s.hasChanges }

// Bounds reports the active region for a playhead clock.
func (s *Session) Bounds() (start, end float64, ok bool) {
	if !s.Ready() {
		return 0, 0, false
	}
	return s.region.Start, s.region.End, true
}

// Validate clamps a requested region the way UpdateTrim does.
func (s *Session) Validate(start, end float64) Region {
	d := s.duration
	if d < MinDuration {
		return Region{Start: 0, End: d}
	}
	vs := timeline.Clamp(start, 0, d-MinDuration)
	ve := timeline.Clamp(end, vs+MinDuration, d)
	return Region{Start: vs, End: ve}
}

// UpdateTrim applies a new region atomically, then pulls the cursor back
// inside it. It reports whether the region changed.
func (s *Session) UpdateTrim(start, end float64) bool {
	if s.disposed || !s.Ready() {
		return false
	}
	next := s.Validate(start, end)
	if next == s.region {
		return false
	}
	s.region = next
	s.containCursor()
	s.scheduleSettle()
	return true
}

// Commit records the current region as the applied one, typically after a
// destructive trim succeeded.
func (s *Session) Commit() {
	if s.disposed {
		return
	}
	s.original = s.region
	s.settleNow()
}

// Reset restores the last committed region.
func (s *Session) Reset() {
	if s.disposed || !s.Ready() {
		return
	}
	s.region = s.original
	s.containCursor()
	s.settleNow()
}

// Dispose cancels the pending settle timer. The session ignores all calls
// afterwards.
func (s *Session) Dispose() {
	schedule.Cancel(s.pending)
	s.pending = nil
	s.disposed = true
}

func (s *Session) containCursor() {
	if s.cursor == nil {
		return
	}
	t := s.cursor.CurrentTime()
	switch {
	case s.region.Contains(t):
	case t < s.region.Start:
		s.cursor.Seek(s.region.Start)
	default:
		s.cursor.Seek(s.region.End)
	}
}

func (s *Session) scheduleSettle() {
	schedule.Cancel(s.pending)
	s.pending = s.sched.ScheduleOnce(SettleDelay, func() {
		s.pending = nil
		s.settle()
	})
}

func (s *Session) settleNow() {
	schedule.Cancel(s.pending)
	s.pending = nil
	s.settle()
}

func (s *Session) settle() {
	same := math.Abs(s.region.Start-s.original.Start) < ChangeTolerance &&
		math.Abs(s.region.End-s.original.End) < ChangeTolerance
	s.hasChanges = !same
	if s.onSettle != nil {
		s.onSettle(s.hasChanges)
	}
}

// Package playhead advances a play cursor at wall-clock rate and keeps it in
// step with an external media player without fighting it.
package playhead

import (
	"log/slog"
	"math"
	"time"

	"github.com/aschmelyun/snipscrub/internal/schedule"
	"github.com/aschmelyun/snipscrub/internal/timeline"
)

const (
	DefaultTickInterval = time.Second / 60
	// SeekThrottle is the minimum spacing of position-set requests sent to
	// the player, one per frame.
	SeekThrottle = 16 * time.Millisecond
	// DriftTolerance is how far a player-reported position may differ from
	// the local cursor before it is adopted.
	DriftTolerance = 0.1
)

// Bounds supplies the active trim window. ok is false when no trim is set,
// in which case the clock plays the whole recording.
type Bounds interface {
	Bounds() (start, end float64, ok bool)
}

// Status is a position report from an external player.
type Status struct {
	Playing  bool
	Position float64
	Loaded   bool
}

// Clock is the play cursor. It is Stopped or Playing; Scrubbing is an
// orthogonal flag under which ticks and player reports leave the cursor alone.
type Clock struct {
	sched    schedule.Scheduler
	logger   *slog.Logger
	time     *Cell
	interval time.Duration

	duration  float64
	bounds    Bounds
	playing   bool
	scrubbing bool
	lastTick  time.Time
	tick      schedule.Handle

	seekFn       func(seconds float64, exact bool)
	seekTimer    schedule.Handle
	lastSeekAt   time.Time
	seeked       bool
	pendingSeek  float64
	pendingExact bool

	onStop   func()
	disposed bool
}

type Option func(*Clock)

func WithLogger(l *slog.Logger) Option {
	return func(c *Clock) { c.logger = l }
}

// WithTickInterval sets the playback tick period. Anything slower than 10Hz
// is raised to 10Hz.
func WithTickInterval(d time.Duration) Option {
	return func(c *Clock) {
		if d <= 0 || d > 100*time.Millisecond {
			d = 100 * time.Millisecond
		}
		c.interval = d
	}
}

// WithSeekFunc binds the clock to a real player. fn receives throttled
// position-set requests; exact is false for seeks made while scrubbing,
// where landing on a nearby keyframe is good enough.
func WithSeekFunc(fn func(seconds float64, exact bool)) Option {
	return func(c *Clock) { c.seekFn = fn }
}

// WithStopFunc registers fn to run when playback stops at the region end.
func WithStopFunc(fn func()) Option {
	return func(c *Clock) { c.onStop = fn }
}

func NewClock(sched schedule.Scheduler, bounds Bounds, opts ...Option) *Clock {
	c := &Clock{
		sched:    sched,
		bounds:   bounds,
		logger:   slog.Default(),
		time:     NewCell(0),
		interval: DefaultTickInterval,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Clock) Time() *Cell { return c.time }

func (c *Clock) CurrentTime() float64 { return c.time.Get() }

func (c *Clock) IsPlaying() bool { return c.playing }

func (c *Clock) Scrubbing() bool { return c.scrubbing }

// SetBounds attaches the trim window after construction, for owners that
// build the clock before the session that reads it.
func (c *Clock) SetBounds(b Bounds) {
	c.bounds = b
}

func (c *Clock) SetDuration(d float64) {
	if d > 0 {
		c.duration = d
	}
}

// Window returns the range the cursor is allowed to occupy.
func (c *Clock) Window() (start, end float64) {
	if c.bounds != nil {
		if s, e, ok := c.bounds.Bounds(); ok {
			return s, e
		}
	}
	return 0, c.duration
}

// Play starts the tick loop. Playing from the region end restarts at the
// region start.
func (c *Clock) Play() {
	if c.disposed || c.playing || c.duration <= 0 {
		return
	}
	start, end := c.Window()
	if c.CurrentTime() >= end {
		c.Seek(start)
	}
	c.playing = true
	c.lastTick = c.sched.Now()
	c.tick = c.sched.ScheduleRepeating(c.interval, c.Tick)
}

// Pause stops the tick loop. It is idempotent.
func (c *Clock) Pause() {
	schedule.Cancel(c.tick)
	c.tick = nil
	c.playing = false
}

// Tick advances the cursor by the wall time since the previous tick. It
// stops exactly at the region end and never overshoots it.
func (c *Clock) Tick() {
	if !c.playing {
		return
	}
	now := c.sched.Now()
	elapsed := now.Sub(c.lastTick).Seconds()
	c.lastTick = now
	if c.scrubbing {
		return
	}

	_, end := c.Window()
	next := c.CurrentTime() + elapsed
	if next >= end {
		c.time.Set(end)
		c.Pause()
		if c.onStop != nil {
			c.onStop()
		}
		return
	}
	c.time.Set(next)
}

// SetScrubbing marks a finger-down gesture. Releasing resynchronises the
// tick baseline so no scrub time leaks into playback.
func (c *Clock) SetScrubbing(on bool) {
	c.scrubbing = on
	if !on {
		c.lastTick = c.sched.Now()
	}
}

// Seek moves the cursor into the trim window and forwards the position to
// the player, at most once per SeekThrottle. The latest request in a window
// is always delivered. Seeks made outside a scrub are exact.
func (c *Clock) Seek(t float64) {
	if c.disposed {
		return
	}
	start, end := c.Window()
	t = timeline.Clamp(t, start, end)
	c.time.Set(t)
	c.requestSeek(t, !c.scrubbing)
}

func (c *Clock) requestSeek(t float64, exact bool) {
	if c.seekFn == nil {
		return
	}
	now := c.sched.Now()
	if c.seekTimer == nil && (!c.seeked || now.Sub(c.lastSeekAt) >= SeekThrottle) {
		c.sendSeek(t, exact)
		return
	}
	c.pendingSeek, c.pendingExact = t, exact
	if c.seekTimer != nil {
		return
	}
	wait := SeekThrottle - now.Sub(c.lastSeekAt)
	c.seekTimer = c.sched.ScheduleOnce(wait, func() {
		c.seekTimer = nil
		c.sendSeek(c.pendingSeek, c.pendingExact)
	})
}

func (c *Clock) sendSeek(t float64, exact bool) {
	c.seeked = true
	c.lastSeekAt = c.sched.Now()
	c.seekFn(t, exact)
}

// MergeStatus adopts a player-reported position when the user is not
// scrubbing and the drift exceeds DriftTolerance.
func (c *Clock) MergeStatus(st Status) {
	if c.disposed || c.scrubbing || !st.Loaded {
		return
	}
	if math.Abs(st.Position-c.CurrentTime()) <= DriftTolerance {
		return
	}
	start, end := c.Window()
	c.logger.Debug("playhead: adopting player position", "local", c.CurrentTime(), "player", st.Position)
	c.time.Set(timeline.Clamp(st.Position, start, end))
	c.lastTick = c.sched.Now()
}

// Dispose cancels the tick loop and any pending seek. The player is never
// called afterwards.
func (c *Clock) Dispose() {
	c.Pause()
	schedule.Cancel(c.seekTimer)
	c.seekTimer = nil
	c.seekFn = nil
	c.disposed = true
}

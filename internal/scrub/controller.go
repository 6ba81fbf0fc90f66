// Package scrub routes timeline gestures, playback and trim edits for one
// open recording. Everything here runs on the caller's event loop; the
// only way out is through Callbacks.
package scrub

import (
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/aschmelyun/snipscrub/internal/media"
	"github.com/aschmelyun/snipscrub/internal/playhead"
	"github.com/aschmelyun/snipscrub/internal/replay"
	"github.com/aschmelyun/snipscrub/internal/schedule"
	"github.com/aschmelyun/snipscrub/internal/timeline"
	"github.com/aschmelyun/snipscrub/internal/trim"
)

// HandleHitSlop is how many pixels either side of a trim handle still count
// as grabbing it.
const HandleHitSlop = 1.0

var ErrNotReady = errors.New("scrub: duration or layout not known yet")

// Callbacks are the controller's only side effects. Any of them may be nil.
type Callbacks struct {
	OnSeek          func(seconds float64, exact bool)
	OnTrimChange    func(region trim.Region)
	OnPlayPause     func(playing bool)
	OnTrimDragStart func(h timeline.Handle)
	OnTrimDragEnd   func(h timeline.Handle, region trim.Region)
}

// RenderState is a consistent snapshot for drawing the scrub bar.
type RenderState struct {
	Duration       float64
	Width          float64
	CurrentTime    float64
	PlayheadPixel  float64
	TrimStartPixel float64
	TrimEndPixel   float64
	Trim           trim.Region
	IsPlaying      bool
	HasChanges     bool
	Scrubbing      bool
	Dragging       bool
	ActiveHandle   timeline.Handle
}

type Controller struct {
	sched  schedule.Scheduler
	logger *slog.Logger
	cb     Callbacks

	clock   *playhead.Clock
	session *trim.Session
	drag    timeline.Drag
	width   float64

	// scrubbing is true between OnGestureStart and OnGestureEnd.
	scrubbing bool
	disposed  bool

	replayer   *replay.Replayer
	transcoder media.Transcoder
	source     string
}

type Option func(*config)

type config struct {
	logger     *slog.Logger
	cb         Callbacks
	tick       time.Duration
	replayer   *replay.Replayer
	transcoder media.Transcoder
	source     string
}

func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

func WithCallbacks(cb Callbacks) Option {
	return func(c *config) { c.cb = cb }
}

// WithTickInterval sets the playback tick period, see playhead.WithTickInterval.
func WithTickInterval(d time.Duration) Option {
	return func(c *config) { c.tick = d }
}

// WithReplayer puts the controller on the code path: content is rebuilt
// from r and the duration is the span of its log.
func WithReplayer(r *replay.Replayer) Option {
	return func(c *config) { c.replayer = r }
}

// WithTranscoder puts the controller on the video path for source.
func WithTranscoder(t media.Transcoder, source string) Option {
	return func(c *config) {
		c.transcoder = t
		c.source = source
	}
}

func New(sched schedule.Scheduler, opts ...Option) *Controller {
	cfg := config{logger: slog.Default(), tick: playhead.DefaultTickInterval}
	for _, o := range opts {
		o(&cfg)
	}
	c := &Controller{
		sched:      sched,
		logger:     cfg.logger,
		cb:         cfg.cb,
		replayer:   cfg.replayer,
		transcoder: cfg.transcoder,
		source:     cfg.source,
	}
	c.clock = playhead.NewClock(sched, nil,
		playhead.WithLogger(cfg.logger),
		playhead.WithTickInterval(cfg.tick),
		playhead.WithSeekFunc(c.emitSeek),
		playhead.WithStopFunc(func() { c.emitPlayPause(false) }),
	)
	c.session = trim.NewSession(sched, c.clock, trim.WithLogger(cfg.logger))
	c.clock.SetBounds(c.session)
	if c.replayer != nil {
		c.SetDuration(c.replayer.Duration())
	}
	return c
}

func (c *Controller) timeline() timeline.Timeline {
	return timeline.Timeline{Duration: c.session.Duration(), Width: c.width}
}

// Ready reports whether gestures can be mapped, i.e. both the duration and
// the bar width are known.
func (c *Controller) Ready() bool {
	return !c.disposed && c.timeline().Ready()
}

func (c *Controller) Duration() float64 { return c.session.Duration() }

func (c *Controller) CurrentTime() float64 { return c.clock.CurrentTime() }

func (c *Controller) IsPlaying() bool { return c.clock.IsPlaying() }

func (c *Controller) Trim() trim.Region { return c.session.Region() }

func (c *Controller) HasChanges() bool { return c.session.HasChanges() }

// Source is the media file on the video path.
func (c *Controller) Source() string { return c.source }

// WatchCursor calls fn whenever the play position changes and returns a
// function that stops watching.
func (c *Controller) WatchCursor(fn func(seconds float64)) (unwatch func()) {
	return c.clock.Time().Subscribe(fn)
}

// SetDuration is called when the recording's length becomes known. A
// different duration later re-initializes the trim region.
func (c *Controller) SetDuration(d float64) {
	if c.disposed || d <= 0 || d == c.session.Duration() {
		return
	}
	c.cancelGestures()
	c.session.Initialize(d)
	c.clock.SetDuration(d)
	if start, end := c.clock.Window(); c.clock.CurrentTime() < start || c.clock.CurrentTime() > end {
		c.clock.Seek(c.clock.CurrentTime())
	}
	c.emitTrimChange()
}

func (c *Controller) OnLayoutWidthChanged(w float64) {
	if c.disposed {
		return
	}
	c.width = max(w, 0)
}

// HandleAt reports which trim handle, if any, a gesture starting at x grabs.
// It is the predicate that separates handle drags from timeline scrubs.
func (c *Controller) HandleAt(x float64) (timeline.Handle, bool) {
	if !c.Ready() {
		return 0, false
	}
	tl := c.timeline()
	r := c.session.Region()
	ds := math.Abs(x - tl.TimeToPixel(r.Start))
	de := math.Abs(x - tl.TimeToPixel(r.End))
	switch {
	case ds > HandleHitSlop && de > HandleHitSlop:
		return 0, false
	case de < ds, de == ds && x > tl.TimeToPixel(r.Start):
		return timeline.HandleEnd, true
	}
	return timeline.HandleStart, true
}

// OnGestureStart begins a timeline scrub. It is rejected while a handle drag
// is active.
func (c *Controller) OnGestureStart(x float64) bool {
	if !c.Ready() || c.scrubbing || c.drag.State() != timeline.DragIdle {
		return false
	}
	c.scrubbing = true
	c.clock.SetScrubbing(true)
	c.scrubTo(x)
	return true
}

func (c *Controller) OnGestureMove(x float64) {
	if !c.scrubbing || !c.Ready() {
		return
	}
	c.scrubTo(x)
}

func (c *Controller) OnGestureEnd(x float64) {
	if !c.scrubbing {
		return
	}
	c.scrubbing = false
	c.clock.SetScrubbing(false)
	if c.Ready() {
		c.scrubTo(x)
	}
}

func (c *Controller) scrubTo(x float64) {
	tl := c.timeline()
	r := c.session.Region()
	px := timeline.ClampPixelToTrim(x, r.Start, r.End, tl.Duration, tl.Width)
	c.clock.Seek(tl.PixelToTime(px))
}

// OnTrimHandleStart begins dragging handle h. It is rejected while a scrub
// or another drag is active.
func (c *Controller) OnTrimHandleStart(h timeline.Handle) bool {
	if !c.Ready() || c.scrubbing {
		return false
	}
	tl := c.timeline()
	r := c.session.Region()
	current, other := tl.TimeToPixel(r.Start), tl.TimeToPixel(r.End)
	if h == timeline.HandleEnd {
		current, other = other, current
	}
	if !c.drag.Begin(h, current, other, tl) {
		return false
	}
	c.clock.SetScrubbing(true)
	if c.cb.OnTrimDragStart != nil {
		c.cb.OnTrimDragStart(h)
	}
	return true
}

// OnTrimHandleMove applies dx, the total movement since the drag started.
func (c *Controller) OnTrimHandleMove(h timeline.Handle, dx float64) {
	if c.disposed || c.drag.State() != timeline.DragDragging || c.drag.Handle() != h {
		return
	}
	px, ok := c.drag.Move(dx)
	if !ok {
		return
	}
	c.applyHandle(h, c.drag.Timeline().PixelToTime(px))
}

func (c *Controller) OnTrimHandleEnd(h timeline.Handle) {
	if c.disposed || c.drag.State() != timeline.DragDragging || c.drag.Handle() != h {
		return
	}
	_, px, _ := c.drag.End()
	if tl := c.drag.Timeline(); tl.Ready() {
		c.applyHandle(h, tl.PixelToTime(px))
	}
	// The drag may have pushed the cursor with loose seeks; settle it exactly.
	c.clock.SetScrubbing(false)
	if h == timeline.HandleStart {
		c.clock.Seek(c.session.Region().Start)
	} else {
		c.clock.Seek(c.clock.CurrentTime())
	}
	c.drag.Finish()
	if c.cb.OnTrimDragEnd != nil {
		c.cb.OnTrimDragEnd(h, c.session.Region())
	}
}

// applyHandle moves one bound to t. The region is updated before the cursor
// is looked at, and a start-handle drag carries the cursor with it.
func (c *Controller) applyHandle(h timeline.Handle, t float64) {
	r := c.session.Region()
	var changed bool
	if h == timeline.HandleStart {
		changed = c.session.UpdateTrim(t, r.End)
		c.clock.Seek(c.session.Region().Start)
	} else {
		changed = c.session.UpdateTrim(r.Start, t)
	}
	if changed {
		c.emitTrimChange()
	}
}

// NudgeHandle moves handle h by dt seconds, for keyboard control.
func (c *Controller) NudgeHandle(h timeline.Handle, dt float64) {
	if c.disposed || !c.session.Ready() || c.drag.State() != timeline.DragIdle {
		return
	}
	r := c.session.Region()
	if h == timeline.HandleStart {
		r.Start += dt
	} else {
		r.End += dt
	}
	c.SetTrim(r.Start, r.End)
}

// SetTrim moves both bounds at once, for example to restore a saved region.
func (c *Controller) SetTrim(start, end float64) {
	if c.disposed || c.drag.State() != timeline.DragIdle {
		return
	}
	if c.session.UpdateTrim(start, end) {
		c.emitTrimChange()
	}
}

// ResetTrim restores the last applied region.
func (c *Controller) ResetTrim() {
	if c.disposed || c.drag.State() != timeline.DragIdle {
		return
	}
	before := c.session.Region()
	c.session.Reset()
	if c.session.Region() != before {
		c.emitTrimChange()
	}
}

func (c *Controller) OnPlayPauseToggle() {
	if c.disposed || !c.session.Ready() {
		return
	}
	if c.clock.IsPlaying() {
		c.clock.Pause()
		c.emitPlayPause(false)
		return
	}
	c.clock.Play()
	if c.clock.IsPlaying() {
		c.emitPlayPause(true)
	}
}

// SeekTo jumps to t, clamped into the trim region. It is ignored during a
// gesture, where the user's finger wins.
func (c *Controller) SeekTo(t float64) {
	if c.disposed || c.scrubbing || c.drag.State() != timeline.DragIdle {
		return
	}
	c.clock.Seek(t)
}

// MergePlayerStatus folds a report from the external player into the cursor.
func (c *Controller) MergePlayerStatus(st media.Status) {
	if c.disposed {
		return
	}
	c.clock.MergeStatus(playhead.Status{Playing: st.Playing, Position: st.Position, Loaded: st.Loaded})
}

func (c *Controller) RenderState() RenderState {
	tl := c.timeline()
	r := c.session.Region()
	return RenderState{
		Duration:       tl.Duration,
		Width:          tl.Width,
		CurrentTime:    c.clock.CurrentTime(),
		PlayheadPixel:  tl.TimeToPixel(c.clock.CurrentTime()),
		TrimStartPixel: tl.TimeToPixel(r.Start),
		TrimEndPixel:   tl.TimeToPixel(r.End),
		Trim:           r,
		IsPlaying:      c.clock.IsPlaying(),
		HasChanges:     c.session.HasChanges(),
		Scrubbing:      c.scrubbing,
		Dragging:       c.drag.State() != timeline.DragIdle,
		ActiveHandle:   c.drag.Handle(),
	}
}

// Content is the code snippet as it stood at the cursor, with edits outside
// the trim region hidden. It is empty on the video path.
func (c *Controller) Content() string {
	if c.replayer == nil {
		return ""
	}
	if r := c.session.Region(); c.session.Ready() {
		c.replayer.SetTrim(r.Start, r.End)
	}
	return c.replayer.At(c.clock.CurrentTime())
}

// Log is the edit log on the code path, nil on the video path.
func (c *Controller) Log() []replay.Event {
	if c.replayer == nil {
		return nil
	}
	return c.replayer.Events()
}

// LoadLog swaps in a new edit log fetched from storage.
func (c *Controller) LoadLog(initial string, batches []replay.Batch) {
	if c.disposed {
		return
	}
	c.replayer = replay.NewReplayer(initial, replay.Flatten(batches), replay.WithLogger(c.logger))
	c.SetDuration(c.replayer.Duration())
}

// Dispose stops playback and cancels every timer the controller owns. No
// callback runs afterwards.
func (c *Controller) Dispose() {
	if c.disposed {
		return
	}
	c.cancelGestures()
	c.clock.Dispose()
	c.session.Dispose()
	c.sched.CancelAll()
	c.cb = Callbacks{}
	c.disposed = true
}

func (c *Controller) cancelGestures() {
	if c.scrubbing || c.drag.State() != timeline.DragIdle {
		c.scrubbing = false
		c.drag.Finish()
		c.clock.SetScrubbing(false)
	}
}

func (c *Controller) emitSeek(t float64, exact bool) {
	if c.cb.OnSeek != nil {
		c.cb.OnSeek(t, exact)
	}
}

func (c *Controller) emitPlayPause(playing bool) {
	if c.cb.OnPlayPause != nil {
		c.cb.OnPlayPause(playing)
	}
}

func (c *Controller) emitTrimChange() {
	if c.cb.OnTrimChange != nil {
		c.cb.OnTrimChange(c.session.Region())
	}
}

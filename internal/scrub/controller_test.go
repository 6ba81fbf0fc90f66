package scrub

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/aschmelyun/snipscrub/internal/media"
	"github.com/aschmelyun/snipscrub/internal/replay"
	"github.com/aschmelyun/snipscrub/internal/schedule"
	"github.com/aschmelyun/snipscrub/internal/timeline"
	"github.com/aschmelyun/snipscrub/internal/trim"
)

type recorder struct {
	seeks      []float64
	exact      []bool
	playPause  []bool
	trims      []trim.Region
	dragStarts []timeline.Handle
	dragEnds   []trim.Region
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnSeek: func(s float64, exact bool) {
			r.seeks = append(r.seeks, s)
			r.exact = append(r.exact, exact)
		},
		OnPlayPause:     func(p bool) { r.playPause = append(r.playPause, p) },
		OnTrimChange:    func(reg trim.Region) { r.trims = append(r.trims, reg) },
		OnTrimDragStart: func(h timeline.Handle) { r.dragStarts = append(r.dragStarts, h) },
		OnTrimDragEnd:   func(_ timeline.Handle, reg trim.Region) { r.dragEnds = append(r.dragEnds, reg) },
	}
}

func (r *recorder) lastSeek(t *testing.T) float64 {
	t.Helper()
	if len(r.seeks) == 0 {
		t.Fatal("no seek was issued")
	}
	return r.seeks[len(r.seeks)-1]
}

func (r *recorder) lastExact(t *testing.T) bool {
	t.Helper()
	if len(r.exact) == 0 {
		t.Fatal("no seek was issued")
	}
	return r.exact[len(r.exact)-1]
}

// newController returns a laid-out controller for a 10s recording on a
// 100px bar, so one second is ten pixels.
func newController(t *testing.T, opts ...Option) (*Controller, *schedule.Manual, *recorder) {
	t.Helper()
	sched := schedule.NewManual(time.Unix(1000, 0))
	rec := &recorder{}
	c := New(sched, append([]Option{WithCallbacks(rec.callbacks())}, opts...)...)
	c.OnLayoutWidthChanged(100)
	c.SetDuration(10)
	return c, sched, rec
}

func TestGestureScrub_ClampsToTrim(t *testing.T) {
	c, sched, rec := newController(t)
	c.SetTrim(2, 8)

	if !c.OnGestureStart(50) {
		t.Fatal("OnGestureStart: rejected")
	}
	if got := c.CurrentTime(); got != 5 {
		t.Errorf("after start: got %v, want 5", got)
	}
	if !c.RenderState().Scrubbing {
		t.Error("RenderState.Scrubbing: got false during gesture")
	}
	c.OnGestureMove(10)
	if got := c.CurrentTime(); got != 2 {
		t.Errorf("move below trim: got %v, want 2", got)
	}
	c.OnGestureMove(95)
	if got := c.CurrentTime(); got != 8 {
		t.Errorf("move above trim: got %v, want 8", got)
	}
	c.OnGestureEnd(60)
	if got := c.CurrentTime(); got != 6 {
		t.Errorf("after end: got %v, want 6", got)
	}

	// The throttle delivers the last position once the frame elapses.
	sched.Advance(20 * time.Millisecond)
	if got := rec.lastSeek(t); got != 6 {
		t.Errorf("last seek: got %v, want 6", got)
	}
}

func TestGestures_MutuallyExclusive(t *testing.T) {
	c, _, _ := newController(t)

	if !c.OnTrimHandleStart(timeline.HandleEnd) {
		t.Fatal("OnTrimHandleStart: rejected")
	}
	if c.OnGestureStart(50) {
		t.Error("OnGestureStart during handle drag: accepted")
	}
	if c.OnTrimHandleStart(timeline.HandleStart) {
		t.Error("second OnTrimHandleStart: accepted")
	}
	c.OnTrimHandleEnd(timeline.HandleEnd)

	if !c.OnGestureStart(50) {
		t.Fatal("OnGestureStart after drag: rejected")
	}
	if c.OnTrimHandleStart(timeline.HandleStart) {
		t.Error("OnTrimHandleStart during scrub: accepted")
	}
	c.OnGestureEnd(50)
	if !c.OnTrimHandleStart(timeline.HandleStart) {
		t.Error("OnTrimHandleStart after scrub: rejected")
	}
}

func TestHandleAt(t *testing.T) {
	c, _, _ := newController(t)
	c.SetTrim(2, 8)

	tests := []struct {
		x    float64
		want timeline.Handle
		ok   bool
	}{
		{20, timeline.HandleStart, true},
		{21, timeline.HandleStart, true},
		{19, timeline.HandleStart, true},
		{80, timeline.HandleEnd, true},
		{79, timeline.HandleEnd, true},
		{50, 0, false},
		{22, 0, false},
	}
	for _, tt := range tests {
		h, ok := c.HandleAt(tt.x)
		if ok != tt.ok || (ok && h != tt.want) {
			t.Errorf("HandleAt(%v): got %v %v, want %v %v", tt.x, h, ok, tt.want, tt.ok)
		}
	}
}

func TestStartHandleDrag_ScrubsAndFollowsOnRelease(t *testing.T) {
	c, _, rec := newController(t)
	c.SeekTo(5)

	if !c.OnTrimHandleStart(timeline.HandleStart) {
		t.Fatal("OnTrimHandleStart: rejected")
	}
	c.OnTrimHandleMove(timeline.HandleStart, 30)
	if got := c.Trim(); got != (trim.Region{Start: 3, End: 10}) {
		t.Errorf("region after move: got %+v", got)
	}
	if got := c.CurrentTime(); got != 3 {
		t.Errorf("cursor during drag: got %v, want 3", got)
	}
	// A move for the other handle is ignored.
	c.OnTrimHandleMove(timeline.HandleEnd, -50)
	c.OnTrimHandleMove(timeline.HandleStart, 40)
	c.OnTrimHandleEnd(timeline.HandleStart)

	if got := c.CurrentTime(); got != 4 {
		t.Errorf("cursor after release: got %v, want 4", got)
	}
	if !slices.Equal(rec.dragStarts, []timeline.Handle{timeline.HandleStart}) {
		t.Errorf("drag starts: got %v", rec.dragStarts)
	}
	if len(rec.dragEnds) != 1 || rec.dragEnds[0] != (trim.Region{Start: 4, End: 10}) {
		t.Errorf("drag ends: got %v", rec.dragEnds)
	}
	if c.RenderState().Dragging {
		t.Error("RenderState.Dragging: got true after release")
	}
}

func TestEndHandleDrag_NeverCrosses(t *testing.T) {
	c, _, _ := newController(t)
	c.OnTrimHandleStart(timeline.HandleEnd)
	c.OnTrimHandleMove(timeline.HandleEnd, -95)
	c.OnTrimHandleEnd(timeline.HandleEnd)

	r := c.Trim()
	if r.Start != 0 || r.End != 1 {
		t.Errorf("region: got %+v, want [0,1]", r)
	}
}

func TestHandleDrag_UsesGeometryFromGestureStart(t *testing.T) {
	c, _, _ := newController(t)
	c.OnTrimHandleStart(timeline.HandleEnd)
	c.OnLayoutWidthChanged(50)
	c.OnTrimHandleMove(timeline.HandleEnd, -30)
	c.OnTrimHandleEnd(timeline.HandleEnd)

	if got := c.Trim().End; got != 7 {
		t.Errorf("trim end: got %v, want 7", got)
	}
}

func TestPlay_StopsAtTrimEnd(t *testing.T) {
	c, sched, rec := newController(t)
	c.SetTrim(0, 9)
	c.SeekTo(8)

	c.OnPlayPauseToggle()
	if !c.IsPlaying() {
		t.Fatal("IsPlaying: got false after toggle")
	}
	sched.Advance(2 * time.Second)

	if c.IsPlaying() {
		t.Error("IsPlaying: got true past trim end")
	}
	if got := c.CurrentTime(); got != 9 {
		t.Errorf("CurrentTime: got %v, want exactly 9", got)
	}
	if !slices.Equal(rec.playPause, []bool{true, false}) {
		t.Errorf("play/pause: got %v, want [true false]", rec.playPause)
	}

	// Playing again from the end restarts at the trim start.
	c.OnPlayPauseToggle()
	if got := c.CurrentTime(); got != 0 {
		t.Errorf("restart: got %v, want 0", got)
	}
	c.OnPlayPauseToggle()
	if c.IsPlaying() {
		t.Error("IsPlaying: got true after second toggle")
	}
}

func TestSetTrim_ContainsCursor(t *testing.T) {
	c, _, rec := newController(t)
	c.SeekTo(9)
	c.SetTrim(0, 5)
	if got := c.CurrentTime(); got != 5 {
		t.Errorf("cursor: got %v, want 5", got)
	}
	c.SetTrim(6, 10)
	if got := c.CurrentTime(); got != 6 {
		t.Errorf("cursor: got %v, want 6", got)
	}
	if len(rec.trims) != 3 {
		t.Errorf("trim changes: got %d, want 3 (init + 2)", len(rec.trims))
	}
	// An identical update is not reported again.
	c.SetTrim(6, 10)
	if len(rec.trims) != 3 {
		t.Errorf("no-op SetTrim reported a change")
	}
}

func TestHasChanges_SettlesAndResets(t *testing.T) {
	c, sched, _ := newController(t)
	c.NudgeHandle(timeline.HandleStart, 2)
	c.NudgeHandle(timeline.HandleEnd, -1)
	if got := c.Trim(); got != (trim.Region{Start: 2, End: 9}) {
		t.Fatalf("region: got %+v", got)
	}
	if c.HasChanges() {
		t.Error("HasChanges: got true before debounce")
	}
	sched.Advance(trim.SettleDelay)
	if !c.HasChanges() || !c.RenderState().HasChanges {
		t.Error("HasChanges: got false after debounce")
	}

	c.ResetTrim()
	if c.HasChanges() {
		t.Error("HasChanges: got true after reset")
	}
	if got := c.Trim(); got != (trim.Region{Start: 0, End: 10}) {
		t.Errorf("region after reset: got %+v", got)
	}
}

func TestNotReady_IgnoresGestures(t *testing.T) {
	sched := schedule.NewManual(time.Unix(1000, 0))
	c := New(sched)

	c.SetDuration(10)
	if c.OnGestureStart(10) {
		t.Error("OnGestureStart before layout: accepted")
	}
	if c.OnTrimHandleStart(timeline.HandleStart) {
		t.Error("OnTrimHandleStart before layout: accepted")
	}
	if _, ok := c.HandleAt(0); ok {
		t.Error("HandleAt before layout: got a handle")
	}
	rs := c.RenderState()
	if rs.PlayheadPixel != 0 || rs.TrimEndPixel != 0 {
		t.Errorf("RenderState before layout: got %+v", rs)
	}

	empty := New(schedule.NewManual(time.Unix(0, 0)))
	empty.OnLayoutWidthChanged(100)
	empty.OnPlayPauseToggle()
	if empty.IsPlaying() {
		t.Error("play without duration: got playing")
	}
}

func TestSetDuration_Reinitializes(t *testing.T) {
	c, _, _ := newController(t)
	c.SetTrim(2, 8)
	c.SeekTo(7)
	c.SetDuration(5)

	if got := c.Trim(); got != (trim.Region{Start: 0, End: 5}) {
		t.Errorf("region: got %+v, want [0,5]", got)
	}
	if got := c.CurrentTime(); got != 5 {
		t.Errorf("cursor: got %v, want 5", got)
	}
}

func TestSeeks_ExactOnceSettled(t *testing.T) {
	c, sched, rec := newController(t)

	c.OnGestureStart(40)
	sched.Advance(time.Second)
	c.OnGestureMove(50)
	if rec.lastExact(t) {
		t.Error("mid-gesture seek: got exact, want keyframe-tolerant")
	}
	c.OnGestureEnd(53)
	sched.Advance(time.Second)
	if got, exact := rec.lastSeek(t), rec.lastExact(t); got != 5.3 || !exact {
		t.Errorf("release seek: got %v exact=%v, want 5.3 exact", got, exact)
	}

	c.SeekTo(2)
	if !rec.lastExact(t) {
		t.Error("SeekTo: got keyframe-tolerant seek")
	}

	sched.Advance(time.Second)
	c.OnTrimHandleStart(timeline.HandleStart)
	c.OnTrimHandleMove(timeline.HandleStart, 30)
	sched.Advance(time.Second)
	c.OnTrimHandleEnd(timeline.HandleStart)
	sched.Advance(time.Second)
	if got, exact := rec.lastSeek(t), rec.lastExact(t); got != 3 || !exact {
		t.Errorf("handle release seek: got %v exact=%v, want 3 exact", got, exact)
	}
}

type seekCall struct {
	seconds   float64
	tolerance time.Duration
}

// seekPlayer records the seeks that reach it through a media.Queue.
type seekPlayer struct {
	mu    sync.Mutex
	seeks []seekCall
}

func (p *seekPlayer) Load(context.Context, string) (media.Metadata, error) {
	return media.Metadata{Duration: 10}, nil
}
func (p *seekPlayer) Play(context.Context) error  { return nil }
func (p *seekPlayer) Pause(context.Context) error { return nil }
func (p *seekPlayer) Seek(_ context.Context, s float64, tol time.Duration) error {
	p.mu.Lock()
	p.seeks = append(p.seeks, seekCall{s, tol})
	p.mu.Unlock()
	return nil
}
func (p *seekPlayer) Status() <-chan media.Status { return nil }
func (p *seekPlayer) Close() error                { return nil }

func (p *seekPlayer) last() (seekCall, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.seeks) == 0 {
		return seekCall{}, false
	}
	return p.seeks[len(p.seeks)-1], true
}

func TestGestureEnd_PlayerGetsExactSeek(t *testing.T) {
	p := &seekPlayer{}
	q := media.NewQueue(p, nil)
	defer q.Close()

	sched := schedule.NewManual(time.Unix(1000, 0))
	c := New(sched, WithCallbacks(Callbacks{
		OnSeek: func(s float64, exact bool) {
			if exact {
				q.SeekExact(s)
			} else {
				q.Seek(s)
			}
		},
	}))
	c.OnLayoutWidthChanged(100)
	c.SetDuration(10)

	c.OnGestureStart(53)
	c.OnGestureEnd(53)
	sched.Advance(time.Second)

	want := seekCall{5.3, 0}
	deadline := time.Now().Add(2 * time.Second)
	for {
		if got, ok := p.last(); ok && got == want {
			break
		}
		if time.Now().After(deadline) {
			got, _ := p.last()
			t.Fatalf("last player seek: got %+v, want %+v", got, want)
		}
		time.Sleep(5 * time.Millisecond)
	}

	// The player lands where it was asked to, so the cursor stays put.
	c.MergePlayerStatus(media.Status{Loaded: true, Position: 5.3})
	if got := c.CurrentTime(); got != 5.3 {
		t.Errorf("cursor after release: got %v, want 5.3", got)
	}
}

func TestWatchCursor(t *testing.T) {
	c, _, _ := newController(t)
	var seen []float64
	unwatch := c.WatchCursor(func(s float64) { seen = append(seen, s) })
	c.SeekTo(4)
	unwatch()
	c.SeekTo(6)
	if !slices.Equal(seen, []float64{4}) {
		t.Errorf("watched positions: got %v, want [4]", seen)
	}
}

func TestMergePlayerStatus(t *testing.T) {
	c, _, _ := newController(t)
	c.SeekTo(3)
	c.MergePlayerStatus(media.Status{Loaded: true, Position: 3.05})
	if got := c.CurrentTime(); got != 3 {
		t.Errorf("small drift: got %v, want 3", got)
	}
	c.MergePlayerStatus(media.Status{Loaded: true, Position: 4})
	if got := c.CurrentTime(); got != 4 {
		t.Errorf("large drift: got %v, want 4", got)
	}
}

func TestDispose_CancelsEverything(t *testing.T) {
	c, sched, rec := newController(t)
	c.OnPlayPauseToggle()
	c.SetTrim(2, 8)
	c.OnGestureStart(30)
	c.OnGestureMove(40)

	c.Dispose()
	if sched.Pending() != 0 {
		t.Errorf("Pending after Dispose: got %d, want 0", sched.Pending())
	}
	seeks, toggles := len(rec.seeks), len(rec.playPause)
	sched.Advance(time.Second)
	c.OnPlayPauseToggle()
	c.SeekTo(1)
	c.OnGestureStart(10)
	if len(rec.seeks) != seeks || len(rec.playPause) != toggles {
		t.Error("callbacks ran after Dispose")
	}
	if c.IsPlaying() {
		t.Error("IsPlaying after Dispose: got true")
	}
}

func TestInvariants_RandomOperations(t *testing.T) {
	c, sched, _ := newController(t)
	rng := rand.New(rand.NewPCG(7, 11))

	for i := range 2000 {
		switch rng.IntN(8) {
		case 0:
			c.SetTrim(rng.Float64()*12-1, rng.Float64()*12-1)
		case 1:
			h := timeline.Handle(rng.IntN(2))
			c.NudgeHandle(h, rng.Float64()*4-2)
		case 2:
			c.SeekTo(rng.Float64()*12 - 1)
		case 3:
			x := rng.Float64() * 100
			if c.OnGestureStart(x) {
				c.OnGestureMove(rng.Float64()*120 - 10)
				c.OnGestureEnd(rng.Float64()*120 - 10)
			}
		case 4:
			h := timeline.Handle(rng.IntN(2))
			if c.OnTrimHandleStart(h) {
				c.OnTrimHandleMove(h, rng.Float64()*200-100)
				c.OnTrimHandleEnd(h)
			}
		case 5:
			c.OnPlayPauseToggle()
		case 6:
			sched.Advance(time.Duration(rng.IntN(500)) * time.Millisecond)
		case 7:
			c.ResetTrim()
		}

		r := c.Trim()
		if r.Start < 0 || r.End > 10 || r.Length() < trim.MinDuration {
			t.Fatalf("step %d: region %+v breaks bounds", i, r)
		}
		if cur := c.CurrentTime(); cur < r.Start || cur > r.End {
			t.Fatalf("step %d: cursor %v outside %+v", i, cur, r)
		}
	}
}

type fakeTranscoder struct {
	calls [][2]float64
	uri   string
	err   error
}

func (f *fakeTranscoder) Trim(_ context.Context, _ string, start, end float64) (string, error) {
	f.calls = append(f.calls, [2]float64{start, end})
	return f.uri, f.err
}

func TestApplyTrim_Video(t *testing.T) {
	tc := &fakeTranscoder{uri: "/v/talk_trim.mp4"}
	c, sched, _ := newController(t, WithTranscoder(tc, "/v/talk.mp4"))
	c.SetTrim(2, 8)
	c.SeekTo(5)
	sched.Advance(trim.SettleDelay)

	if err := c.ApplyTrim(context.Background()); err != nil {
		t.Fatalf("ApplyTrim: %v", err)
	}
	if len(tc.calls) != 1 || tc.calls[0] != [2]float64{2, 8} {
		t.Errorf("transcoder calls: got %v", tc.calls)
	}
	if c.Source() != "/v/talk_trim.mp4" {
		t.Errorf("Source: got %q", c.Source())
	}
	if c.Duration() != 6 || c.Trim() != (trim.Region{Start: 0, End: 6}) {
		t.Errorf("after commit: duration %v region %+v", c.Duration(), c.Trim())
	}
	if c.HasChanges() {
		t.Error("HasChanges: got true after commit")
	}
	if got := c.CurrentTime(); got != 3 {
		t.Errorf("cursor: got %v, want 3", got)
	}
}

func TestApplyTrim_FailureLeavesStateUnchanged(t *testing.T) {
	boom := errors.New("ffmpeg exited 1")
	tc := &fakeTranscoder{err: boom}
	c, sched, _ := newController(t, WithTranscoder(tc, "/v/talk.mp4"))
	c.SetTrim(2, 8)
	c.SeekTo(5)
	sched.Advance(trim.SettleDelay)

	err := c.ApplyTrim(context.Background())
	var f *Failure
	if !errors.As(err, &f) || f.Op != "trim" || !errors.Is(err, boom) {
		t.Fatalf("ApplyTrim error: got %v", err)
	}
	if c.Duration() != 10 || c.Trim() != (trim.Region{Start: 2, End: 8}) || c.CurrentTime() != 5 {
		t.Errorf("state changed: duration %v region %+v cursor %v", c.Duration(), c.Trim(), c.CurrentTime())
	}
	if !c.HasChanges() {
		t.Error("HasChanges: got false after failed trim")
	}
	if c.Source() != "/v/talk.mp4" {
		t.Errorf("Source: got %q", c.Source())
	}

	tc.err = nil
	tc.uri = "/v/talk_trim.mp4"
	if err := c.ApplyTrim(context.Background()); err != nil {
		t.Errorf("retry: %v", err)
	}
}

func TestApplyTrim_NothingToTrim(t *testing.T) {
	c, _, _ := newController(t, WithTranscoder(&fakeTranscoder{}, "/v/a.mp4"))
	if err := c.ApplyTrim(context.Background()); !errors.Is(err, ErrNothingToTrim) {
		t.Errorf("got %v, want ErrNothingToTrim", err)
	}
}

func TestCommitTrim_Stale(t *testing.T) {
	c, _, _ := newController(t, WithTranscoder(&fakeTranscoder{uri: "/v/b.mp4"}, "/v/a.mp4"))
	c.SetTrim(2, 8)
	req, err := c.PrepareTrim()
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	res, err := req.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	c.SetDuration(12)
	if err := c.CommitTrim(req, res); !errors.Is(err, ErrStale) {
		t.Errorf("commit after reload: got %v, want ErrStale", err)
	}
	if c.Source() != "/v/a.mp4" {
		t.Errorf("Source: got %q", c.Source())
	}
}

const base = 1_700_000_000_000

// prependLog inserts one letter per second at offset 0, so every event
// stays valid whatever subset of the log is replayed.
func prependLog(letters string) []replay.Event {
	var events []replay.Event
	for i, r := range letters {
		events = append(events, replay.Event{
			Type:      replay.Insert,
			Timestamp: base + int64(i)*1000,
			Text:      string(r),
		})
	}
	return events
}

func TestCodePath_ContentAndTrim(t *testing.T) {
	sched := schedule.NewManual(time.Unix(1000, 0))
	c := New(sched, WithReplayer(replay.NewReplayer("", prependLog("abcde"))))
	c.OnLayoutWidthChanged(100)

	if c.Duration() != 4 {
		t.Fatalf("Duration: got %v, want 4", c.Duration())
	}
	c.SeekTo(2.5)
	if got := c.Content(); got != "cba" {
		t.Errorf("Content: got %q, want %q", got, "cba")
	}
	c.SetTrim(1, 3)
	if got := c.Content(); got != "cb" {
		t.Errorf("trimmed Content: got %q, want %q", got, "cb")
	}

	if err := c.ApplyTrim(context.Background()); err != nil {
		t.Fatalf("ApplyTrim: %v", err)
	}
	if c.Duration() != 2 || c.Trim() != (trim.Region{Start: 0, End: 2}) {
		t.Errorf("after commit: duration %v region %+v", c.Duration(), c.Trim())
	}
	if got := c.CurrentTime(); got != 1.5 {
		t.Errorf("cursor: got %v, want 1.5", got)
	}
	if got := c.Content(); got != "cb" {
		t.Errorf("Content after commit: got %q, want %q", got, "cb")
	}
	c.SeekTo(2)
	if got := c.Content(); got != "dcb" {
		t.Errorf("Content at end: got %q, want %q", got, "dcb")
	}
}

func TestCodePath_TooFewEdits(t *testing.T) {
	events := []replay.Event{
		{Type: replay.Insert, Timestamp: base, Text: "a"},
		{Type: replay.Insert, Timestamp: base + 1000, Text: "b"},
		{Type: replay.Insert, Timestamp: base + 5000, Text: "c"},
	}
	c := New(schedule.NewManual(time.Unix(0, 0)), WithReplayer(replay.NewReplayer("", events)))
	c.SetTrim(2, 4)
	err := c.ApplyTrim(context.Background())
	if !errors.Is(err, ErrTooFewEdits) {
		t.Fatalf("got %v, want ErrTooFewEdits", err)
	}
	if c.Duration() != 5 {
		t.Errorf("Duration: got %v, want 5", c.Duration())
	}
}

func TestLoadLog_SortsBatches(t *testing.T) {
	c := New(schedule.NewManual(time.Unix(0, 0)))
	log := prependLog("abc")
	c.LoadLog("", []replay.Batch{
		{Events: log[2:]},
		{Events: log[:2]},
	})
	if c.Duration() != 2 {
		t.Fatalf("Duration: got %v, want 2", c.Duration())
	}
	c.SeekTo(2)
	if got := c.Content(); got != "cba" {
		t.Errorf("Content: got %q, want %q", got, "cba")
	}
}

package replay

import (
	"log/slog"
	"math"
	"unicode/utf16"
)

func encode(s string) []uint16 { return utf16.Encode([]rune(s)) }

func decode(b []uint16) string { return string(utf16.Decode(b)) }

// Reconstruct returns the content at elapsed seconds into the log. Events
// outside [trimStart, trimEnd] are invisible at every playback time. A
// malformed event is skipped and logged; the fold carries on without it.
func Reconstruct(initial string, events []Event, elapsed, trimStart, trimEnd float64) string {
	if elapsed <= 0 || len(events) == 0 {
		return initial
	}
	origin := events[0].Timestamp
	buf := encode(initial)
	for i, e := range events {
		at := e.Elapsed(origin)
		if at > elapsed {
			break
		}
		if at < trimStart || at > trimEnd {
			continue
		}
		next, err := e.apply(buf)
		if err != nil {
			slog.Warn("replay: skipping malformed event", "index", i, "error", err)
			continue
		}
		buf = next
	}
	return decode(buf)
}

// TrimmedEvents keeps the events inside [trimStart, trimEnd] and shifts them
// so the first survivor sits at the log origin. Order is preserved.
func TrimmedEvents(events []Event, trimStart, trimEnd float64) []Event {
	if len(events) == 0 {
		return nil
	}
	origin := events[0].Timestamp
	var out []Event
	for _, e := range events {
		at := e.Elapsed(origin)
		if at < trimStart || at > trimEnd {
			continue
		}
		out = append(out, e)
	}
	if len(out) == 0 {
		return out
	}
	shift := out[0].Timestamp - origin
	for i := range out {
		out[i].Timestamp -= shift
	}
	return out
}

// Replayer serves Reconstruct for a moving playhead. Moving forward only
// applies the events between the previous and the new time; moving backward
// replays from the initial content.
type Replayer struct {
	initial   string
	events    []Event
	trimStart float64
	trimEnd   float64
	logger    *slog.Logger

	buf  []uint16
	next int
	at   float64
}

type ReplayerOption func(*Replayer)

func WithLogger(l *slog.Logger) ReplayerOption {
	return func(r *Replayer) { r.logger = l }
}

func NewReplayer(initial string, events []Event, opts ...ReplayerOption) *Replayer {
	r := &Replayer{
		initial: initial,
		events:  events,
		trimEnd: math.Inf(1),
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	r.rewind()
	return r
}

func (r *Replayer) Events() []Event { return r.events }

func (r *Replayer) Initial() string { return r.initial }

// Duration is the span of the log in seconds.
func (r *Replayer) Duration() float64 { return Span(r.events) }

// SetTrim changes the visible window and drops the cached fold.
func (r *Replayer) SetTrim(start, end float64) {
	if start == r.trimStart && end == r.trimEnd {
		return
	}
	r.trimStart, r.trimEnd = start, end
	r.rewind()
}

// At returns the content at elapsed seconds.
func (r *Replayer) At(elapsed float64) string {
	if elapsed <= 0 || len(r.events) == 0 {
		return r.initial
	}
	if elapsed < r.at {
		r.rewind()
	}
	origin := r.events[0].Timestamp
	for r.next < len(r.events) {
		e := r.events[r.next]
		at := e.Elapsed(origin)
		if at > elapsed {
			break
		}
		r.next++
		if at < r.trimStart || at > r.trimEnd {
			continue
		}
		buf, err := e.apply(r.buf)
		if err != nil {
			r.logger.Warn("replay: skipping malformed event", "index", r.next-1, "error", err)
			continue
		}
		r.buf = buf
	}
	r.at = elapsed
	return decode(r.buf)
}

func (r *Replayer) rewind() {
	r.buf = encode(r.initial)
	r.next = 0
	r.at = 0
}

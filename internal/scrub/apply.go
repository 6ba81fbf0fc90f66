package scrub

import (
	"context"
	"errors"
	"fmt"

	"github.com/aschmelyun/snipscrub/internal/media"
	"github.com/aschmelyun/snipscrub/internal/replay"
	"github.com/aschmelyun/snipscrub/internal/timeline"
	"github.com/aschmelyun/snipscrub/internal/trim"
)

var (
	ErrNothingToTrim = errors.New("scrub: trim region covers the whole recording")
	ErrStale         = errors.New("scrub: recording changed while the trim was running")
	ErrTooFewEdits   = errors.New("scrub: fewer than two edits inside the trim region")
)

// Failure is an external I/O error surfaced to the presentation layer.
// Controller state is left as it was, so the operation can be retried.
type Failure struct {
	Op  string
	Err error
}

func (f *Failure) Error() string { return fmt.Sprintf("%s failed: %v", f.Op, f.Err) }

func (f *Failure) Unwrap() error { return f.Err }

// TrimRequest is a snapshot of everything a destructive trim needs. Run is
// safe to call off the event loop.
type TrimRequest struct {
	Region   trim.Region
	Duration float64

	Source     string
	Transcoder media.Transcoder

	Initial string
	Events  []replay.Event
}

// TrimResult is what a successful Run produced. Offset is where the new
// recording begins on the old timeline.
type TrimResult struct {
	URI      string
	Events   []replay.Event
	Duration float64
	Offset   float64
}

// PrepareTrim snapshots the current region for a destructive trim.
func (c *Controller) PrepareTrim() (TrimRequest, error) {
	if c.disposed || !c.session.Ready() {
		return TrimRequest{}, ErrNotReady
	}
	r := c.session.Region()
	if r.Start == 0 && r.End == c.session.Duration() {
		return TrimRequest{}, ErrNothingToTrim
	}
	req := TrimRequest{
		Region:     r,
		Duration:   c.session.Duration(),
		Source:     c.source,
		Transcoder: c.transcoder,
	}
	if c.replayer != nil {
		req.Initial = c.replayer.Initial()
		req.Events = c.replayer.Events()
	}
	return req, nil
}

// Run performs the trim. Video recordings go through the transcoder; code
// recordings get a rewritten edit log.
func (r TrimRequest) Run(ctx context.Context) (TrimResult, error) {
	if r.Transcoder != nil {
		uri, err := r.Transcoder.Trim(ctx, r.Source, r.Region.Start, r.Region.End)
		if err != nil {
			return TrimResult{}, &Failure{Op: "trim", Err: err}
		}
		return TrimResult{URI: uri, Duration: r.Region.Length(), Offset: r.Region.Start}, nil
	}
	events := replay.TrimmedEvents(r.Events, r.Region.Start, r.Region.End)
	if len(events) < 2 || replay.Span(events) <= 0 {
		return TrimResult{}, &Failure{Op: "trim", Err: ErrTooFewEdits}
	}
	// TrimmedEvents moves the first kept edit onto the old origin.
	var shift int64
	for _, e := range r.Events {
		if e.Elapsed(r.Events[0].Timestamp) >= r.Region.Start {
			shift = e.Timestamp - r.Events[0].Timestamp
			break
		}
	}
	return TrimResult{
		Events:   events,
		Duration: replay.Span(events),
		Offset:   float64(shift) / 1000,
	}, nil
}

// CommitTrim adopts a finished trim. The committed region becomes the new
// baseline and the timeline is rebased onto the trimmed recording, keeping
// the cursor on the same moment of content.
func (c *Controller) CommitTrim(req TrimRequest, res TrimResult) error {
	if c.disposed {
		return ErrNotReady
	}
	if c.session.Duration() != req.Duration {
		return &Failure{Op: "commit", Err: ErrStale}
	}
	c.cancelGestures()
	if c.clock.IsPlaying() {
		c.clock.Pause()
		c.emitPlayPause(false)
	}
	at := c.clock.CurrentTime() - res.Offset

	c.session.UpdateTrim(req.Region.Start, req.Region.End)
	c.session.Commit()

	if res.URI != "" {
		c.source = res.URI
	}
	if c.replayer != nil {
		c.replayer = replay.NewReplayer(req.Initial, res.Events, replay.WithLogger(c.logger))
	}
	c.SetDuration(res.Duration)
	c.clock.Seek(timeline.Clamp(at, 0, c.session.Duration()))
	c.logger.Info("trim applied", "start", req.Region.Start, "end", req.Region.End, "duration", res.Duration)
	return nil
}

// ApplyTrim runs a destructive trim to completion on the calling goroutine.
// On failure nothing changes and the error is a *Failure.
func (c *Controller) ApplyTrim(ctx context.Context) error {
	req, err := c.PrepareTrim()
	if err != nil {
		return err
	}
	res, err := req.Run(ctx)
	if err != nil {
		return err
	}
	return c.CommitTrim(req, res)
}

package media

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ScrubTolerance is passed to Player.Seek for seeks made mid-gesture.
const ScrubTolerance = 100 * time.Millisecond

const commandTimeout = 3 * time.Second

// Queue issues player commands from a single worker goroutine so the event
// loop never blocks on IPC. Consecutive seeks collapse into the latest one;
// play and pause keep their order relative to seeks.
type Queue struct {
	player Player
	logger *slog.Logger

	mu      sync.Mutex
	wake    chan struct{}
	ops     []queueOp
	closed  bool
	stopped chan struct{}
}

type queueOp struct {
	kind    opKind
	seconds float64
	exact   bool
}

type opKind int

const (
	opSeek opKind = iota
	opPlay
	opPause
)

func (k opKind) String() string {
	switch k {
	case opSeek:
		return "seek"
	case opPlay:
		return "play"
	default:
		return "pause"
	}
}

func NewQueue(p Player, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		player:  p,
		logger:  logger,
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	go q.run()
	return q
}

// Seek requests a fast, keyframe-tolerant seek for use while scrubbing.
func (q *Queue) Seek(seconds float64) { q.push(queueOp{kind: opSeek, seconds: seconds}) }

// SeekExact requests a frame-accurate seek. Use it where the playhead
// settles, since the player reports back the position it lands on.
func (q *Queue) SeekExact(seconds float64) {
	q.push(queueOp{kind: opSeek, seconds: seconds, exact: true})
}

func (q *Queue) Play() { q.push(queueOp{kind: opPlay}) }

func (q *Queue) Pause() { q.push(queueOp{kind: opPause}) }

func (q *Queue) push(op queueOp) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	if n := len(q.ops); op.kind == opSeek && n > 0 && q.ops[n-1].kind == opSeek {
		q.ops[n-1] = op
	} else {
		q.ops = append(q.ops, op)
	}
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) run() {
	defer close(q.stopped)
	for range q.wake {
		for {
			q.mu.Lock()
			if q.closed || len(q.ops) == 0 {
				q.mu.Unlock()
				break
			}
			op := q.ops[0]
			q.ops = q.ops[1:]
			q.mu.Unlock()
			q.exec(op)
		}
	}
}

func (q *Queue) exec(op queueOp) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	var err error
	switch op.kind {
	case opSeek:
		tol := ScrubTolerance
		if op.exact {
			tol = 0
		}
		err = q.player.Seek(ctx, op.seconds, tol)
	case opPlay:
		err = q.player.Play(ctx)
	case opPause:
		err = q.player.Pause(ctx)
	}
	if err != nil {
		q.logger.Warn("player command failed", "op", op.kind, "error", err)
	}
}

// Close drops queued commands and stops the worker. Nothing reaches the
// player after Close returns.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.ops = nil
	q.mu.Unlock()
	close(q.wake)
	<-q.stopped
}

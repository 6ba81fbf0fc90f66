package schedule

import (
	"log/slog"
	"time"
)

// Fired is posted to the event loop when a Loop timer elapses. The loop must
// hand it back to Dispatch, which runs the callback on the loop goroutine.
type Fired struct {
	ID uint64
}

// Loop is a wall-clock Scheduler for an event loop such as a bubbletea
// program. Timers only post a Fired message; callbacks run inside Dispatch,
// so a handle cancelled before its message is dispatched never runs.
//
// Schedule, Cancel and Dispatch must all be called from the loop goroutine.
type Loop struct {
	post   func(Fired)
	seq    uint64
	tasks  map[uint64]*loopTask
	logger *slog.Logger
}

type loopTask struct {
	id    uint64
	every time.Duration
	fn    func()
	timer *time.Timer
	owner *Loop
}

func (t *loopTask) Cancel() {
	if t.timer != nil {
		t.timer.Stop()
	}
	delete(t.owner.tasks, t.id)
}

// NewLoop returns a Loop. Bind must be called before the first timer fires.
func NewLoop(logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{tasks: make(map[uint64]*loopTask), logger: logger}
}

// Bind sets the function used to post Fired messages onto the event loop,
// typically a wrapper around tea.Program.Send.
func (l *Loop) Bind(post func(Fired)) {
	l.post = post
}

func (l *Loop) Now() time.Time { return time.Now() }

func (l *Loop) ScheduleOnce(delay time.Duration, fn func()) Handle {
	return l.arm(delay, 0, fn)
}

func (l *Loop) ScheduleRepeating(interval time.Duration, fn func()) Handle {
	if interval <= 0 {
		interval = time.Millisecond
	}
	return l.arm(interval, interval, fn)
}

func (l *Loop) arm(delay, every time.Duration, fn func()) Handle {
	l.seq++
	t := &loopTask{id: l.seq, every: every, fn: fn, owner: l}
	t.timer = time.AfterFunc(delay, l.fire(t.id))
	l.tasks[t.id] = t
	return t
}

func (l *Loop) fire(id uint64) func() {
	post := l.post
	return func() {
		if post == nil {
			l.logger.Warn("schedule: timer fired before loop was bound", "id", id)
			return
		}
		post(Fired{ID: id})
	}
}

// Dispatch runs the callback for msg. It reports false for stale messages
// whose handle has already been cancelled.
func (l *Loop) Dispatch(msg Fired) bool {
	t, ok := l.tasks[msg.ID]
	if !ok {
		return false
	}
	if t.every > 0 {
		t.timer = time.AfterFunc(t.every, l.fire(t.id))
	} else {
		delete(l.tasks, t.id)
	}
	t.fn()
	return true
}

func (l *Loop) CancelAll() {
	for _, t := range l.tasks {
		t.timer.Stop()
	}
	clear(l.tasks)
}

func (l *Loop) Pending() int { return len(l.tasks) }

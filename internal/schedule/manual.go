package schedule

import (
	"time"
)

// Manual is a virtual-time Scheduler. Nothing fires until Advance is called,
// which makes timer-driven behaviour deterministic in tests.
type Manual struct {
	now   time.Time
	seq   uint64
	tasks map[uint64]*manualTask
}

type manualTask struct {
	id    uint64
	due   time.Time
	every time.Duration
	fn    func()
	owner *Manual
}

func (t *manualTask) Cancel() {
	delete(t.owner.tasks, t.id)
}

// NewManual returns a Manual scheduler whose clock starts at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start, tasks: make(map[uint64]*manualTask)}
}

func (m *Manual) Now() time.Time { return m.now }

func (m *Manual) ScheduleOnce(delay time.Duration, fn func()) Handle {
	return m.add(delay, 0, fn)
}

func (m *Manual) ScheduleRepeating(interval time.Duration, fn func()) Handle {
	if interval <= 0 {
		interval = time.Millisecond
	}
	return m.add(interval, interval, fn)
}

func (m *Manual) add(delay, every time.Duration, fn func()) Handle {
	if delay < 0 {
		delay = 0
	}
	m.seq++
	t := &manualTask{id: m.seq, due: m.now.Add(delay), every: every, fn: fn, owner: m}
	m.tasks[t.id] = t
	return t
}

func (m *Manual) CancelAll() {
	clear(m.tasks)
}

func (m *Manual) Pending() int { return len(m.tasks) }

// Advance moves virtual time forward by d, running every callback that falls
// due in order. Callbacks with the same due time run in scheduling order.
func (m *Manual) Advance(d time.Duration) {
	target := m.now.Add(d)
	for {
		next := m.nextDue(target)
		if next == nil {
			break
		}
		m.now = next.due
		if next.every > 0 {
			next.due = next.due.Add(next.every)
		} else {
			delete(m.tasks, next.id)
		}
		next.fn()
	}
	m.now = target
}

func (m *Manual) nextDue(limit time.Time) *manualTask {
	var best *manualTask
	for _, t := range m.tasks {
		if t.due.After(limit) {
			continue
		}
		if best == nil || t.due.Before(best.due) || (t.due.Equal(best.due) && t.id < best.id) {
			best = t
		}
	}
	return best
}

package scheduler

import (
	"time"

	"github.com/go-logr/logr"

	"github.com/kelos-dev/floodwatch/internal/metrics"
)

// Func is a timer callback. It runs on the goroutine that advances the
// scheduler and may arm or cancel timers, including its own.
type Func func()

type timer struct {
	key      string
	deadline time.Time
	interval time.Duration // zero for one-shot timers
	seq      uint64
	fn       Func
}

// before orders timers by deadline, then by arm sequence.
func (t *timer) before(o *timer) bool {
	if t.deadline.Equal(o.deadline) {
		return t.seq < o.seq
	}
	return t.deadline.Before(o.deadline)
}

// Scheduler owns at most one pending timer per key on a virtual clock. Time
// only moves when AdvanceTo or Advance is called, which makes firing and
// cancellation linear: a timer cancelled before the call that would fire it
// never runs.
//
// A Scheduler is not safe for concurrent use; it belongs to a single event
// loop.
type Scheduler struct {
	log   logr.Logger
	now   time.Time
	seq   uint64
	queue []*timer // sorted by (deadline, seq)
}

// New creates a Scheduler whose virtual clock starts at start.
func New(start time.Time, log logr.Logger) *Scheduler {
	return &Scheduler{
		log: log.WithName("scheduler"),
		now: start,
	}
}

// Now returns the scheduler's virtual time.
func (s *Scheduler) Now() time.Time {
	return s.now
}

// Arm schedules fn to run once after delay, replacing any timer under key.
// A non-positive delay fires on the next advance.
func (s *Scheduler) Arm(key string, delay time.Duration, fn Func) {
	if delay < 0 {
		delay = 0
	}
	s.push(key, delay, 0, fn)
}

// ArmRepeating schedules fn to run every interval until the timer under key
// is cancelled, replacing any timer under key. It panics if interval is not
// positive.
func (s *Scheduler) ArmRepeating(key string, interval time.Duration, fn Func) {
	if interval <= 0 {
		panic("scheduler: non-positive interval for ArmRepeating")
	}
	s.push(key, interval, interval, fn)
}

func (s *Scheduler) push(key string, delay, interval time.Duration, fn Func) {
	s.remove(key)
	s.seq++
	t := &timer{
		key:      key,
		deadline: s.now.Add(delay),
		interval: interval,
		seq:      s.seq,
		fn:       fn,
	}
	s.insert(t)
	metrics.TimersArmedTotal.WithLabelValues(key).Inc()
	s.log.V(1).Info("Armed timer", "key", key, "delay", delay, "repeating", interval > 0)
}

func (s *Scheduler) insert(t *timer) {
	s.queue = append(s.queue, t)
	for i := len(s.queue) - 1; i > 0; i-- {
		if !s.queue[i].before(s.queue[i-1]) {
			break
		}
		s.queue[i], s.queue[i-1] = s.queue[i-1], s.queue[i]
	}
}

func (s *Scheduler) remove(key string) bool {
	for i, t := range s.queue {
		if t.key == key {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			return true
		}
	}
	return false
}

// Cancel removes the timer under key. It reports whether a timer was pending.
func (s *Scheduler) Cancel(key string) bool {
	if !s.remove(key) {
		return false
	}
	metrics.TimersCancelledTotal.WithLabelValues(key).Inc()
	s.log.V(1).Info("Cancelled timer", "key", key)
	return true
}

// CancelAll removes every pending timer and returns how many were removed.
func (s *Scheduler) CancelAll() int {
	n := len(s.queue)
	for _, t := range s.queue {
		metrics.TimersCancelledTotal.WithLabelValues(t.key).Inc()
	}
	s.queue = nil
	if n > 0 {
		s.log.V(1).Info("Cancelled all timers", "count", n)
	}
	return n
}

// Pending reports whether a timer is armed under key.
func (s *Scheduler) Pending(key string) bool {
	for _, t := range s.queue {
		if t.key == key {
			return true
		}
	}
	return false
}

// Len returns the number of pending timers.
func (s *Scheduler) Len() int {
	return len(s.queue)
}

// Keys returns the keys of pending timers in firing order.
func (s *Scheduler) Keys() []string {
	keys := make([]string, 0, len(s.queue))
	for _, t := range s.queue {
		keys = append(keys, t.key)
	}
	return keys
}

// NextDeadline returns the deadline of the earliest pending timer.
func (s *Scheduler) NextDeadline() (time.Time, bool) {
	if len(s.queue) == 0 {
		return time.Time{}, false
	}
	return s.queue[0].deadline, true
}

// AdvanceTo moves the virtual clock to t, firing every timer whose deadline
// is not after t in (deadline, arm order). The clock is set to each timer's
// deadline before its callback runs, so timers armed from a callback are
// measured from the firing instant. It returns the number of callbacks run.
// Moving backwards is a no-op.
func (s *Scheduler) AdvanceTo(t time.Time) int {
	fired := 0
	for len(s.queue) > 0 && !s.queue[0].deadline.After(t) {
		next := s.queue[0]
		s.queue = s.queue[1:]
		if next.deadline.After(s.now) {
			s.now = next.deadline
		}
		if next.interval > 0 {
			s.seq++
			s.insert(&timer{
				key:      next.key,
				deadline: next.deadline.Add(next.interval),
				interval: next.interval,
				seq:      s.seq,
				fn:       next.fn,
			})
		}
		metrics.TimersFiredTotal.WithLabelValues(next.key).Inc()
		next.fn()
		fired++
	}
	if t.After(s.now) {
		s.now = t
	}
	return fired
}

// Advance moves the virtual clock forward by d. See AdvanceTo.
func (s *Scheduler) Advance(d time.Duration) int {
	return s.AdvanceTo(s.now.Add(d))
}

package loop

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/utils/clock"

	"github.com/kelos-dev/floodwatch/internal/scheduler"
)

const commandBuffer = 32

type command struct {
	fn   func()
	done chan struct{}
}

// Loop is the single goroutine that owns a Scheduler and everything its
// timers touch. Commands from other goroutines are serialized with timer
// firings, and wall-clock time from the Clock is fed into the scheduler's
// virtual clock before each command and on each wake-up.
type Loop struct {
	clock   clock.Clock
	sched   *scheduler.Scheduler
	log     logr.Logger
	cmds    chan command
	stopped chan struct{}
}

// New creates a Loop. The scheduler's virtual clock should start at
// clk.Now().
func New(clk clock.Clock, sched *scheduler.Scheduler, log logr.Logger) *Loop {
	return &Loop{
		clock:   clk,
		sched:   sched,
		log:     log.WithName("loop"),
		cmds:    make(chan command, commandBuffer),
		stopped: make(chan struct{}),
	}
}

// Run processes commands and timers until ctx is cancelled. It must be
// called at most once.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.stopped)
	l.log.V(1).Info("Event loop started")

	for {
		l.sched.AdvanceTo(l.clock.Now())

		var (
			timer clock.Timer
			wake  <-chan time.Time
		)
		if next, ok := l.sched.NextDeadline(); ok {
			d := next.Sub(l.clock.Now())
			if d <= 0 {
				continue
			}
			timer = l.clock.NewTimer(d)
			wake = timer.C()
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			l.log.V(1).Info("Event loop stopped", "pendingTimers", l.sched.Len())
			return nil

		case <-wake:

		case cmd := <-l.cmds:
			if timer != nil {
				timer.Stop()
			}
			l.sched.AdvanceTo(l.clock.Now())
			cmd.fn()
			if cmd.done != nil {
				close(cmd.done)
			}
		}
	}
}

// Do runs fn on the loop and waits for it to return. Timers that are due
// when fn is dequeued fire before it.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	cmd := command{fn: fn, done: make(chan struct{})}
	if err := l.enqueue(ctx, cmd); err != nil {
		return err
	}
	select {
	case <-cmd.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stopped:
		// The loop may have run fn just before stopping.
		select {
		case <-cmd.done:
			return nil
		default:
			return fmt.Errorf("event loop stopped")
		}
	}
}

// Post queues fn to run on the loop without waiting for it. It must not be
// called from the loop goroutine.
func (l *Loop) Post(fn func()) error {
	return l.enqueue(context.Background(), command{fn: fn})
}

func (l *Loop) enqueue(ctx context.Context, cmd command) error {
	select {
	case <-l.stopped:
		return fmt.Errorf("event loop stopped")
	default:
	}
	select {
	case l.cmds <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stopped:
		return fmt.Errorf("event loop stopped")
	}
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.stopped
}

package cli

import (
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/utils/clock"

	"github.com/kelos-dev/floodwatch/internal/autoplay"
	"github.com/kelos-dev/floodwatch/internal/narrative"
	"github.com/kelos-dev/floodwatch/internal/scheduler"
)

// session bundles a controller with its scheduler and optional autoplay
// driver. It is confined to one goroutine, like its parts.
type session struct {
	sched   *scheduler.Scheduler
	ctrl    *narrative.Controller
	driver  *autoplay.Driver
	started time.Time
}

type sessionOptions struct {
	Narrative narrative.Config

	// Autoplay creates the driver when set.
	Autoplay *autoplay.Config

	// StartAutoplay starts the driver right away.
	StartAutoplay bool

	Clock    clock.PassiveClock
	Log      logr.Logger
	OnFinish func()
}

func newSession(opts sessionOptions) (*session, error) {
	start := opts.Clock.Now()
	sched := scheduler.New(start, opts.Log)
	ctrl, err := narrative.NewController(narrative.Options{
		Config:    opts.Narrative,
		Scheduler: sched,
		Clock:     opts.Clock,
		Log:       opts.Log,
	})
	if err != nil {
		return nil, err
	}

	s := &session{sched: sched, ctrl: ctrl, started: start}
	if opts.Autoplay != nil {
		s.driver, err = autoplay.New(autoplay.Options{
			Config:     *opts.Autoplay,
			Controller: ctrl,
			Scheduler:  sched,
			Log:        opts.Log,
			OnFinish:   opts.OnFinish,
		})
		if err != nil {
			ctrl.Dispose()
			return nil, fmt.Errorf("creating autoplay driver: %w", err)
		}
		if opts.StartAutoplay {
			s.driver.Start()
		}
	}
	return s, nil
}

func (s *session) autoplay() bool {
	return s.driver != nil && s.driver.Running()
}

// frame captures the current state for the renderer.
func (s *session) frame(now time.Time, spinner int, interactive bool) frame {
	return frame{
		Snapshot:    s.ctrl.Snapshot(),
		View:        s.ctrl.View(),
		Stages:      s.ctrl.Stages(),
		Autoplay:    s.autoplay(),
		Interactive: interactive,
		Elapsed:     now.Sub(s.started),
		Spinner:     spinner,
	}
}

// toggleAutoplay starts or stops the driver, if there is one.
func (s *session) toggleAutoplay() {
	if s.driver == nil {
		return
	}
	if s.driver.Running() {
		s.driver.Stop()
	} else {
		s.driver.Start()
	}
}

func (s *session) close() {
	if s.driver != nil {
		s.driver.Stop()
	}
	s.ctrl.Dispose()
}

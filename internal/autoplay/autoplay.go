package autoplay

import (
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/robfig/cron/v3"

	"github.com/kelos-dev/floodwatch/api/v1alpha1"
	"github.com/kelos-dev/floodwatch/internal/narrative"
	"github.com/kelos-dev/floodwatch/internal/scheduler"
)

// Timer keys owned by the driver.
const (
	KeyAdvance = "autoplay-advance"
	KeyRain    = "autoplay-rain"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Config holds the autoplay schedules in cron syntax. "@every <duration>"
// descriptors measure from the moment a stage is entered.
type Config struct {
	// Advance is the schedule for moving to the next stage.
	Advance string

	// Rain is the schedule for the rain stimulus while the detection stage
	// accepts it.
	Rain string
}

// DefaultConfig leaves enough time in the monitoring stage for the link to
// fail and recover before moving on.
func DefaultConfig() Config {
	return Config{
		Advance: "@every 8s",
		Rain:    "@every 2s",
	}
}

// Validate parses both schedules.
func (c Config) Validate() error {
	if _, err := parseSchedule(c.Advance); err != nil {
		return fmt.Errorf("advance: %w", err)
	}
	if _, err := parseSchedule(c.Rain); err != nil {
		return fmt.Errorf("rain: %w", err)
	}
	return nil
}

func parseSchedule(spec string) (cron.Schedule, error) {
	s, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parsing cron schedule %q: %w", spec, err)
	}
	return s, nil
}

// Driver walks a Controller through the narrative on its own, arming its
// timers on the controller's Scheduler. It follows manual commands too: every
// stage change restarts the advance schedule, and a reset starts the
// walkthrough over.
//
// Like the Controller, a Driver belongs to the goroutine that advances the
// Scheduler.
type Driver struct {
	ctrl     *narrative.Controller
	sched    *scheduler.Scheduler
	advance  cron.Schedule
	rain     cron.Schedule
	log      logr.Logger
	onFinish func()

	stage       v1alpha1.Stage
	unsubscribe func()
}

// Options configures a Driver.
type Options struct {
	Config     Config
	Controller *narrative.Controller
	Scheduler  *scheduler.Scheduler
	Log        logr.Logger

	// OnFinish, if set, is called when the walkthrough reaches the
	// resolution stage.
	OnFinish func()
}

// New creates a stopped Driver.
func New(opts Options) (*Driver, error) {
	if opts.Controller == nil || opts.Scheduler == nil {
		return nil, fmt.Errorf("controller and scheduler are required")
	}
	advance, err := parseSchedule(opts.Config.Advance)
	if err != nil {
		return nil, fmt.Errorf("advance: %w", err)
	}
	rain, err := parseSchedule(opts.Config.Rain)
	if err != nil {
		return nil, fmt.Errorf("rain: %w", err)
	}
	return &Driver{
		ctrl:     opts.Controller,
		sched:    opts.Scheduler,
		advance:  advance,
		rain:     rain,
		log:      opts.Log.WithName("autoplay"),
		onFinish: opts.OnFinish,
	}, nil
}

// Start subscribes to the controller and arms the schedules for the current
// stage. Calling Start on a running Driver does nothing.
func (d *Driver) Start() {
	if d.unsubscribe != nil {
		return
	}
	snap := d.ctrl.Snapshot()
	d.stage = snap.Stage
	d.unsubscribe = d.ctrl.Subscribe(d.observe)
	d.log.Info("Autoplay started", "stage", snap.StageName)
	d.sync(snap)
}

// Stop cancels the driver's timers and unsubscribes.
func (d *Driver) Stop() {
	if d.unsubscribe == nil {
		return
	}
	d.unsubscribe()
	d.unsubscribe = nil
	d.sched.Cancel(KeyAdvance)
	d.sched.Cancel(KeyRain)
	d.log.Info("Autoplay stopped")
}

// Running reports whether the driver is started.
func (d *Driver) Running() bool {
	return d.unsubscribe != nil
}

func (d *Driver) observe(snap v1alpha1.Snapshot) {
	if snap.Stage != d.stage {
		d.stage = snap.Stage
		d.sched.Cancel(KeyAdvance)
		d.sched.Cancel(KeyRain)
		if snap.Stage == v1alpha1.StageResolution {
			d.log.Info("Autoplay finished")
			if d.onFinish != nil {
				d.onFinish()
			}
		}
	}
	d.sync(snap)
}

// sync arms whichever schedule the stage needs and is not pending. A reset
// cancels every timer, including ours, so this runs after every change.
func (d *Driver) sync(snap v1alpha1.Snapshot) {
	if d.unsubscribe == nil {
		return
	}
	if snap.Stage < v1alpha1.StageResolution && !d.sched.Pending(KeyAdvance) {
		d.arm(KeyAdvance, d.advance, d.fireAdvance)
	}
	if d.wantsRain(snap) && !d.sched.Pending(KeyRain) {
		d.arm(KeyRain, d.rain, d.fireRain)
	}
}

func (d *Driver) wantsRain(snap v1alpha1.Snapshot) bool {
	return snap.Stage == v1alpha1.StageDetection &&
		d.ctrl.Config().WaterMode == narrative.WaterModeManual &&
		snap.WaterLevelPercent < narrative.RainCap
}

func (d *Driver) arm(key string, s cron.Schedule, fn scheduler.Func) {
	now := d.sched.Now()
	delay := s.Next(now).Sub(now)
	d.sched.Arm(key, delay, fn)
	d.log.V(1).Info("Autoplay armed", "key", key, "in", delay.Round(time.Millisecond))
}

func (d *Driver) fireAdvance() {
	d.ctrl.Advance()
}

func (d *Driver) fireRain() {
	// Rain at the cap changes nothing and notifies no one.
	d.sync(d.ctrl.ApplyStimulus(narrative.StimulusRain))
}

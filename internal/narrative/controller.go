package narrative

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"k8s.io/utils/clock"

	"github.com/kelos-dev/floodwatch/api/v1alpha1"
	"github.com/kelos-dev/floodwatch/internal/metrics"
	"github.com/kelos-dev/floodwatch/internal/scheduler"
)

// Options configures a Controller.
type Options struct {
	// Config selects the narrative variant. Zero fields are not defaulted;
	// start from DefaultConfig.
	Config Config

	// Scheduler arms the stage simulations. Required.
	Scheduler *scheduler.Scheduler

	// Clock stamps log entries. Defaults to the real clock.
	Clock clock.PassiveClock

	// Log receives transition and lifecycle messages.
	Log logr.Logger
}

type subscriber struct {
	id int
	fn func(v1alpha1.Snapshot)
}

// Controller owns the narrative state: the active stage, the water level,
// the monitoring link status and the event log.
//
// All methods must be called from the goroutine that advances the
// controller's Scheduler, and timer callbacks run on that goroutine too.
type Controller struct {
	cfg       Config
	sched     *scheduler.Scheduler
	clock     clock.PassiveClock
	log       logr.Logger
	sessionID string

	stage   v1alpha1.Stage
	water   int
	monitor v1alpha1.MonitorStatus
	events  eventLog

	subs      []subscriber
	nextSubID int
	disposed  bool
}

// NewController creates a Controller at the intro stage with a single boot
// log entry.
func NewController(opts Options) (*Controller, error) {
	if opts.Scheduler == nil {
		return nil, fmt.Errorf("scheduler is required")
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid narrative config: %w", err)
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}
	c := &Controller{
		cfg:       opts.Config,
		sched:     opts.Scheduler,
		clock:     clk,
		sessionID: uuid.New().String(),
		stage:     v1alpha1.StageIdle,
		water:     InitialWaterLevel,
	}
	c.log = opts.Log.WithName("narrative").WithValues("session", c.sessionID)
	c.events.restart(clk.Now(), c.cfg.Script.Boot)
	metrics.WaterLevelPercent.Set(float64(c.water))
	c.log.Info("Narrative created", "waterMode", c.cfg.WaterMode, "monitorMode", c.cfg.MonitorMode)
	return c, nil
}

// Config returns the configuration the controller was created with.
func (c *Controller) Config() Config {
	return c.cfg
}

// Stage returns the active stage.
func (c *Controller) Stage() v1alpha1.Stage {
	return c.stage
}

// Advance moves to the next stage, appends its log entry and arms its
// simulation. At the resolution stage it does nothing.
func (c *Controller) Advance() v1alpha1.Snapshot {
	if c.disposed || c.stage >= v1alpha1.StageResolution {
		return c.Snapshot()
	}

	from := c.stage
	c.exit(from)
	c.stage++

	st, _ := c.cfg.Script.For(c.stage)
	c.events.append(c.clock.Now(), st.Log)
	metrics.StageTransitionsTotal.WithLabelValues(c.stage.String()).Inc()
	c.log.Info("Stage advanced", "from", from.String(), "to", c.stage.String(), "logEntries", c.events.size())

	c.enter(c.stage)
	return c.changed()
}

// Reset cancels every pending timer on the scheduler, including ones the
// controller does not own, and returns to the intro stage with a
// fresh log.
func (c *Controller) Reset() v1alpha1.Snapshot {
	if c.disposed {
		return c.Snapshot()
	}

	cancelled := c.sched.CancelAll()
	c.stage = v1alpha1.StageIdle
	c.water = InitialWaterLevel
	c.monitor = v1alpha1.MonitorStatusNone
	c.events.restart(c.clock.Now(), c.cfg.Script.Reboot)

	metrics.ResetsTotal.Inc()
	metrics.WaterLevelPercent.Set(float64(c.water))
	c.log.Info("Narrative reset", "cancelledTimers", cancelled)
	return c.changed()
}

// ApplyStimulus applies a user-triggered input. Only "rain" during the
// detection stage in manual water mode has an effect; anything else is
// ignored.
func (c *Controller) ApplyStimulus(kind string) v1alpha1.Snapshot {
	label := kind
	if label != StimulusRain {
		label = "other"
	}

	if c.disposed || kind != StimulusRain || c.stage != v1alpha1.StageDetection || c.cfg.WaterMode != WaterModeManual {
		metrics.StimuliTotal.WithLabelValues(label, "ignored").Inc()
		c.log.V(1).Info("Stimulus ignored", "kind", kind, "stage", c.stage.String())
		return c.Snapshot()
	}

	next := min(c.water+RainStep, RainCap)
	if next == c.water {
		metrics.StimuliTotal.WithLabelValues(label, "capped").Inc()
		c.log.V(1).Info("Stimulus had no effect", "kind", kind, "percent", c.water)
		return c.Snapshot()
	}
	metrics.StimuliTotal.WithLabelValues(label, "applied").Inc()
	c.setWater(next)
	return c.changed()
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() v1alpha1.Snapshot {
	return v1alpha1.Snapshot{
		SessionID:         c.sessionID,
		Stage:             c.stage,
		StageName:         c.stage.String(),
		WaterLevelPercent: c.water,
		WaterHeightMeters: v1alpha1.WaterHeightMeters(c.water),
		RiskBand:          v1alpha1.RiskBandFor(c.water),
		MonitorStatus:     c.monitor,
		Condition:         v1alpha1.SystemConditionFor(c.stage),
		Log:               c.events.list(),
	}
}

// Subscribe registers fn to receive a snapshot after every state change,
// including changes made by timers. The returned function unregisters it.
func (c *Controller) Subscribe(fn func(v1alpha1.Snapshot)) (cancel func()) {
	c.nextSubID++
	id := c.nextSubID
	c.subs = append(c.subs, subscriber{id: id, fn: fn})
	return func() {
		for i, s := range c.subs {
			if s.id == id {
				c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
				return
			}
		}
	}
}

// Dispose cancels the controller's timers and drops its subscribers. Every
// later command is a no-op.
func (c *Controller) Dispose() {
	if c.disposed {
		return
	}
	c.exit(c.stage)
	c.subs = nil
	c.disposed = true
	c.log.Info("Narrative disposed")
}

// exit cancels the simulation owned by stage.
func (c *Controller) exit(stage v1alpha1.Stage) {
	switch stage {
	case v1alpha1.StageDetection:
		c.sched.Cancel(KeyWaterRise)
	case v1alpha1.StageMonitoring:
		c.sched.Cancel(KeyMonitorFail)
		c.sched.Cancel(KeyMonitorRecover)
		c.monitor = v1alpha1.MonitorStatusNone
	}
}

// enter starts the simulation owned by stage.
func (c *Controller) enter(stage v1alpha1.Stage) {
	switch stage {
	case v1alpha1.StageDetection:
		if c.cfg.WaterMode == WaterModeAutonomous && c.water < RiseCap {
			c.sched.ArmRepeating(KeyWaterRise, c.cfg.RiseInterval, c.riseTick)
		}
	case v1alpha1.StageMonitoring:
		if c.cfg.MonitorMode == MonitorModeStatic {
			c.monitor = v1alpha1.MonitorStatusFailed
			return
		}
		c.monitor = v1alpha1.MonitorStatusConnecting
		c.sched.Arm(KeyMonitorFail, c.cfg.MonitorFailAfter, c.monitorFailed)
	}
}

func (c *Controller) riseTick() {
	if c.stage != v1alpha1.StageDetection {
		c.stale(KeyWaterRise)
		return
	}
	if c.water < RiseCap {
		c.setWater(min(c.water+RiseStep, RiseCap))
	}
	if c.water >= RiseCap {
		c.sched.Cancel(KeyWaterRise)
	}
	c.changed()
}

func (c *Controller) monitorFailed() {
	if c.stage != v1alpha1.StageMonitoring || c.monitor != v1alpha1.MonitorStatusConnecting {
		c.stale(KeyMonitorFail)
		return
	}
	c.monitor = v1alpha1.MonitorStatusFailed
	c.log.Info("Monitoring link failed")
	c.sched.Arm(KeyMonitorRecover, c.cfg.MonitorRecoverAfter, c.monitorRestored)
	c.changed()
}

func (c *Controller) monitorRestored() {
	if c.stage != v1alpha1.StageMonitoring || c.monitor != v1alpha1.MonitorStatusFailed {
		c.stale(KeyMonitorRecover)
		return
	}
	c.monitor = v1alpha1.MonitorStatusRestored
	c.log.Info("Monitoring link restored")
	c.changed()
}

// stale records a callback that outlived its stage. Stage exits cancel their
// timers, so reaching this is a lifecycle bug.
func (c *Controller) stale(key string) {
	c.sched.Cancel(key)
	metrics.StaleCallbacksTotal.WithLabelValues(key).Inc()
	c.log.Error(fmt.Errorf("timer %q fired during stage %s", key, c.stage), "Dropped stale timer callback")
}

func (c *Controller) setWater(level int) {
	c.water = level
	metrics.WaterLevelPercent.Set(float64(level))
	c.log.V(1).Info("Water level changed", "percent", level, "band", v1alpha1.RiskBandFor(level))
}

// changed notifies subscribers and returns the new snapshot.
func (c *Controller) changed() v1alpha1.Snapshot {
	snap := c.Snapshot()
	subs := make([]subscriber, len(c.subs))
	copy(subs, c.subs)
	for _, s := range subs {
		s.fn(*snap.DeepCopy())
	}
	return snap
}

package narrative

import (
	"fmt"
	"time"
)

// WaterMode selects how the detection stage raises the water level.
type WaterMode string

const (
	// WaterModeManual raises the level only on the "rain" stimulus.
	WaterModeManual WaterMode = "manual"
	// WaterModeAutonomous raises the level on a repeating timer.
	WaterModeAutonomous WaterMode = "autonomous"
)

// MonitorMode selects how the monitoring stage simulates the link outage.
type MonitorMode string

const (
	// MonitorModeTimed runs CONNECTING -> FAILED -> RESTORED on timers.
	MonitorModeTimed MonitorMode = "timed"
	// MonitorModeStatic shows a broken link for the whole stage.
	MonitorModeStatic MonitorMode = "static"
)

// Simulation process keys owned by the controller.
const (
	KeyWaterRise      = "water-rise"
	KeyMonitorFail    = "monitor-fail"
	KeyMonitorRecover = "monitor-recover"
)

// StimulusRain is the only stimulus kind the narrative understands.
const StimulusRain = "rain"

const (
	// InitialWaterLevel is the level at boot and after a reset.
	InitialWaterLevel = 20

	// RainStep and RainCap bound the manual stimulus.
	RainStep = 20
	RainCap  = 95

	// RiseStep and RiseCap bound the autonomous tick.
	RiseStep = 5
	RiseCap  = 85
)

// Config holds the narrative variant and timing.
type Config struct {
	// WaterMode selects manual or autonomous water rise.
	WaterMode WaterMode

	// RiseInterval is the autonomous tick period.
	RiseInterval time.Duration

	// MonitorMode selects the timed or static outage narrative.
	MonitorMode MonitorMode

	// MonitorFailAfter is the CONNECTING -> FAILED delay.
	MonitorFailAfter time.Duration

	// MonitorRecoverAfter is the FAILED -> RESTORED delay, measured from the
	// moment the link failed.
	MonitorRecoverAfter time.Duration

	// Script holds the narrative copy.
	Script Script
}

// DefaultConfig returns the manual-rain, timed-outage variant with a one
// second time unit.
func DefaultConfig() Config {
	return Config{
		WaterMode:           WaterModeManual,
		RiseInterval:        800 * time.Millisecond,
		MonitorMode:         MonitorModeTimed,
		MonitorFailAfter:    3 * time.Second,
		MonitorRecoverAfter: 4 * time.Second,
		Script:              DefaultScript(),
	}
}

// Validate checks that every field holds a usable value.
func (c Config) Validate() error {
	switch c.WaterMode {
	case WaterModeManual, WaterModeAutonomous:
	default:
		return fmt.Errorf("water mode %q: must be %s or %s", c.WaterMode, WaterModeManual, WaterModeAutonomous)
	}
	switch c.MonitorMode {
	case MonitorModeTimed, MonitorModeStatic:
	default:
		return fmt.Errorf("monitor mode %q: must be %s or %s", c.MonitorMode, MonitorModeTimed, MonitorModeStatic)
	}
	if c.RiseInterval <= 0 {
		return fmt.Errorf("rise interval must be positive, got %s", c.RiseInterval)
	}
	if c.MonitorFailAfter <= 0 {
		return fmt.Errorf("monitor fail delay must be positive, got %s", c.MonitorFailAfter)
	}
	if c.MonitorRecoverAfter <= 0 {
		return fmt.Errorf("monitor recover delay must be positive, got %s", c.MonitorRecoverAfter)
	}
	if err := c.Script.Validate(); err != nil {
		return fmt.Errorf("script: %w", err)
	}
	return nil
}

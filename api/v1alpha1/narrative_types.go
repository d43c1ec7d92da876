package v1alpha1

import (
	"time"
)

// Stage is the top-level step of the narrative, 0 (idle) through 5 (resolution).
type Stage int

const (
	// StageIdle is the intro screen; no simulation runs.
	StageIdle Stage = iota
	// StageDetection is the camera water gauge stage.
	StageDetection
	// StageMonitoring is the network path monitoring stage.
	StageMonitoring
	// StageAnalysis is the correlation dashboard stage.
	StageAnalysis
	// StageExecution is the automated rerouting stage.
	StageExecution
	// StageResolution is the terminal rescue stage.
	StageResolution
)

// StageCount is the number of narrative stages, excluding StageIdle.
const StageCount = int(StageResolution)

// String returns the name of the stage.
func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "Idle"
	case StageDetection:
		return "Detection"
	case StageMonitoring:
		return "Monitoring"
	case StageAnalysis:
		return "Analysis"
	case StageExecution:
		return "Execution"
	case StageResolution:
		return "Resolution"
	default:
		return "Unknown"
	}
}

// Valid reports whether s is within [StageIdle, StageResolution].
func (s Stage) Valid() bool {
	return s >= StageIdle && s <= StageResolution
}

// RiskBand classifies a water level.
type RiskBand string

const (
	// RiskBandNormal means the level is below 40%.
	RiskBandNormal RiskBand = "NORMAL"
	// RiskBandWarning means the level is at least 40% and below 70%.
	RiskBandWarning RiskBand = "WARNING"
	// RiskBandCritical means the level is at least 70%.
	RiskBandCritical RiskBand = "CRITICAL"
)

// RiskBandFor returns the risk band of a water level percentage.
func RiskBandFor(levelPercent int) RiskBand {
	switch {
	case levelPercent < 40:
		return RiskBandNormal
	case levelPercent < 70:
		return RiskBandWarning
	default:
		return RiskBandCritical
	}
}

// GaugeLabel returns the operator-facing label of the band.
func (b RiskBand) GaugeLabel() string {
	switch b {
	case RiskBandWarning:
		return "RISING"
	case RiskBandCritical:
		return "CRITICAL ALERT"
	default:
		return "STABLE"
	}
}

// WaterHeightMeters converts a water level percentage to gauge height.
func WaterHeightMeters(levelPercent int) float64 {
	return float64(levelPercent) / 20
}

// MonitorStatus is the state of the simulated monitoring link.
type MonitorStatus string

const (
	// MonitorStatusNone means no monitoring link is being simulated.
	MonitorStatusNone MonitorStatus = ""
	// MonitorStatusConnecting means the link is being probed.
	MonitorStatusConnecting MonitorStatus = "CONNECTING"
	// MonitorStatusFailed means the link went down.
	MonitorStatusFailed MonitorStatus = "FAILED"
	// MonitorStatusRestored means the link came back.
	MonitorStatusRestored MonitorStatus = "RESTORED"
)

// SystemCondition is the header badge shown above every stage.
type SystemCondition string

const (
	// SystemConditionReady is shown before the walkthrough starts.
	SystemConditionReady SystemCondition = "SYSTEM READY"
	// SystemConditionCritical is shown while the incident is unfolding.
	SystemConditionCritical SystemCondition = "CRITICAL EVENT"
	// SystemConditionRecovered is shown once the resolution stage is reached.
	SystemConditionRecovered SystemCondition = "RECOVERY COMPLETE"
)

// SystemConditionFor returns the badge for a stage.
func SystemConditionFor(s Stage) SystemCondition {
	switch {
	case s <= StageIdle:
		return SystemConditionReady
	case s >= StageResolution:
		return SystemConditionRecovered
	default:
		return SystemConditionCritical
	}
}

// LogTimestampLayout is the layout of LogEntry.TimestampText.
const LogTimestampLayout = "15:04:05"

// LogEntry is a single line of the event log.
type LogEntry struct {
	// Timestamp is when the entry was created.
	Timestamp time.Time `json:"timestamp"`

	// TimestampText is Timestamp rendered for display.
	TimestampText string `json:"timestampText"`

	// Message is the fixed narrative message of the triggering event.
	Message string `json:"message"`
}

// NewLogEntry creates a LogEntry stamped at ts.
func NewLogEntry(ts time.Time, message string) LogEntry {
	return LogEntry{
		Timestamp:     ts,
		TimestampText: ts.Format(LogTimestampLayout),
		Message:       message,
	}
}

// String renders the entry as a single log line.
func (e LogEntry) String() string {
	return "[" + e.TimestampText + "] " + e.Message
}

// Snapshot is the read-only projection of narrative state consumed by renderers.
type Snapshot struct {
	// SessionID identifies the controller that produced the snapshot.
	SessionID string `json:"sessionId"`

	// Stage is the active stage.
	Stage Stage `json:"stage"`

	// StageName is the name of the active stage.
	StageName string `json:"stageName"`

	// WaterLevelPercent is the simulated water level.
	WaterLevelPercent int `json:"waterLevelPercent"`

	// WaterHeightMeters is derived from WaterLevelPercent.
	WaterHeightMeters float64 `json:"waterHeightMeters"`

	// RiskBand is derived from WaterLevelPercent.
	RiskBand RiskBand `json:"riskBand"`

	// MonitorStatus is set only while the monitoring stage is active.
	// +optional
	MonitorStatus MonitorStatus `json:"monitorStatus,omitempty"`

	// Condition is the header badge derived from Stage.
	Condition SystemCondition `json:"condition"`

	// Log is the event log in insertion order.
	Log []LogEntry `json:"log"`
}

// DeepCopy returns a copy of the snapshot that shares no memory with s.
func (s *Snapshot) DeepCopy() *Snapshot {
	if s == nil {
		return nil
	}
	out := new(Snapshot)
	*out = *s
	if s.Log != nil {
		out.Log = make([]LogEntry, len(s.Log))
		copy(out.Log, s.Log)
	}
	return out
}

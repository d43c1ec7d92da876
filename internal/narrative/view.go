package narrative

import (
	"math"

	"github.com/kelos-dev/floodwatch/api/v1alpha1"
)

// StageView is the rendering state of the active stage. Renderers switch on
// the concrete type.
type StageView interface {
	Stage() v1alpha1.Stage
	isStageView()
}

// IntroView is shown before the walkthrough starts.
type IntroView struct{}

// SensorReading is the payload published by the simulated camera.
type SensorReading struct {
	ID        string  `json:"id"`
	Level     float64 `json:"lvl"`
	Timestamp string  `json:"ts"`
}

// SensorID identifies the simulated camera.
const SensorID = "MV72"

// DetectionView is the camera water gauge.
type DetectionView struct {
	WaterLevelPercent int
	HeightMeters      float64
	Risk              v1alpha1.RiskBand
	// AcceptsRain is true when the rain stimulus has an effect.
	AcceptsRain bool
	Reading     SensorReading
}

// LinkState is the drawn state of the monitored path.
type LinkState string

const (
	LinkProbing LinkState = "probing"
	LinkBroken  LinkState = "broken"
	LinkUp      LinkState = "up"
)

// MonitoringView is the network path under test.
type MonitoringView struct {
	Status v1alpha1.MonitorStatus
	Link   LinkState
}

// AnalysisView is the correlation dashboard.
type AnalysisView struct {
	HeightMeters float64
	Risk         v1alpha1.RiskBand
}

// ExecutionView is the rerouting screen.
type ExecutionView struct{}

// ResolutionView is the terminal rescue screen.
type ResolutionView struct{}

func (IntroView) Stage() v1alpha1.Stage      { return v1alpha1.StageIdle }
func (DetectionView) Stage() v1alpha1.Stage  { return v1alpha1.StageDetection }
func (MonitoringView) Stage() v1alpha1.Stage { return v1alpha1.StageMonitoring }
func (AnalysisView) Stage() v1alpha1.Stage   { return v1alpha1.StageAnalysis }
func (ExecutionView) Stage() v1alpha1.Stage  { return v1alpha1.StageExecution }
func (ResolutionView) Stage() v1alpha1.Stage { return v1alpha1.StageResolution }

func (IntroView) isStageView()      {}
func (DetectionView) isStageView()  {}
func (MonitoringView) isStageView() {}
func (AnalysisView) isStageView()   {}
func (ExecutionView) isStageView()  {}
func (ResolutionView) isStageView() {}

// View returns the rendering state of the active stage.
func (c *Controller) View() StageView {
	height := v1alpha1.WaterHeightMeters(c.water)
	risk := v1alpha1.RiskBandFor(c.water)

	switch c.stage {
	case v1alpha1.StageDetection:
		return DetectionView{
			WaterLevelPercent: c.water,
			HeightMeters:      height,
			Risk:              risk,
			AcceptsRain:       c.cfg.WaterMode == WaterModeManual && !c.disposed,
			Reading: SensorReading{
				ID:        SensorID,
				Level:     math.Round(height*100) / 100,
				Timestamp: c.clock.Now().Format(v1alpha1.LogTimestampLayout),
			},
		}
	case v1alpha1.StageMonitoring:
		v := MonitoringView{Status: c.monitor}
		switch c.monitor {
		case v1alpha1.MonitorStatusFailed:
			v.Link = LinkBroken
		case v1alpha1.MonitorStatusRestored:
			v.Link = LinkUp
		default:
			v.Link = LinkProbing
		}
		return v
	case v1alpha1.StageAnalysis:
		return AnalysisView{HeightMeters: height, Risk: risk}
	case v1alpha1.StageExecution:
		return ExecutionView{}
	case v1alpha1.StageResolution:
		return ResolutionView{}
	default:
		return IntroView{}
	}
}

// StageInfo is one step of the progress rail.
type StageInfo struct {
	Stage       v1alpha1.Stage
	Title       string
	Description string
	// Reached is true once the walkthrough has entered the stage.
	Reached bool
	// Current is true for the active stage.
	Current bool
}

// Stages returns the progress rail for stages 1 through 5.
func (c *Controller) Stages() []StageInfo {
	out := make([]StageInfo, 0, v1alpha1.StageCount)
	for s := v1alpha1.StageDetection; s <= v1alpha1.StageResolution; s++ {
		st, _ := c.cfg.Script.For(s)
		out = append(out, StageInfo{
			Stage:       s,
			Title:       st.Title,
			Description: st.Description,
			Reached:     c.stage >= s,
			Current:     c.stage == s,
		})
	}
	return out
}

package narrative

import (
	"fmt"

	"github.com/kelos-dev/floodwatch/api/v1alpha1"
)

// StageScript is the copy shown for one narrative stage.
type StageScript struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Log         string `json:"log"`
}

// Script is the narrative copy. Stages[i] belongs to stage i+1.
type Script struct {
	Boot   string                            `json:"boot"`
	Reboot string                            `json:"reboot"`
	Stages [v1alpha1.StageCount]StageScript `json:"stages"`
}

// DefaultScript returns the flood response walkthrough.
func DefaultScript() Script {
	return Script{
		Boot:   "System Initialized. Scanning...",
		Reboot: "System Initialized. Re-scanning...",
		Stages: [v1alpha1.StageCount]StageScript{
			{
				Title:       "1. Detection (Meraki MV72)",
				Description: "AI-powered Virtual Gauge detects rising water levels.",
				Log:         "Meraki MV72: Initializing Virtual Gauge... Monitoring Pixel delta...",
			},
			{
				Title:       "2. Monitoring (ThousandEyes)",
				Description: "Real-time network path analysis detects infrastructure failure.",
				Log:         "ThousandEyes: Scanning Digital Highway... Latency spike detected on Node B.",
			},
			{
				Title:       "3. Analysis (Splunk)",
				Description: "Correlation of sensor data and weather APIs for risk prediction.",
				Log:         "Splunk: Received Data. Rising Rate > 30% vs History. CRITICAL ALERT.",
			},
			{
				Title:       "4. Execution (Agentic AI)",
				Description: "Autonomous SD-WAN rerouting to Starlink satellite network.",
				Log:         "Agentic AI: Primary WAN Unstable. Switching context... Rerouting via Starlink.",
			},
			{
				Title:       "5. Rescue (Solution)",
				Description: "Person detection coordinates sent to rescue teams.",
				Log:         "System: Connection Restored. Person Detected at Sector 4. Coordinates sent.",
			},
		},
	}
}

// For returns the copy of a narrative stage. StageIdle has none.
func (s Script) For(stage v1alpha1.Stage) (StageScript, bool) {
	if stage < v1alpha1.StageDetection || stage > v1alpha1.StageResolution {
		return StageScript{}, false
	}
	return s.Stages[stage-1], true
}

// Validate requires every log message to be set.
func (s Script) Validate() error {
	if s.Boot == "" {
		return fmt.Errorf("boot message is required")
	}
	if s.Reboot == "" {
		return fmt.Errorf("reboot message is required")
	}
	for i, st := range s.Stages {
		if st.Log == "" {
			return fmt.Errorf("stage %d: log message is required", i+1)
		}
	}
	return nil
}

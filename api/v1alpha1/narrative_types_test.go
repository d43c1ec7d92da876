package v1alpha1

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestRiskBandFor(t *testing.T) {
	tests := []struct {
		level int
		want  RiskBand
		label string
	}{
		{0, RiskBandNormal, "STABLE"},
		{20, RiskBandNormal, "STABLE"},
		{39, RiskBandNormal, "STABLE"},
		{40, RiskBandWarning, "RISING"},
		{69, RiskBandWarning, "RISING"},
		{70, RiskBandCritical, "CRITICAL ALERT"},
		{95, RiskBandCritical, "CRITICAL ALERT"},
		{100, RiskBandCritical, "CRITICAL ALERT"},
	}
	for _, tt := range tests {
		got := RiskBandFor(tt.level)
		if got != tt.want {
			t.Errorf("RiskBandFor(%d) = %q, want %q", tt.level, got, tt.want)
		}
		if l := got.GaugeLabel(); l != tt.label {
			t.Errorf("RiskBandFor(%d).GaugeLabel() = %q, want %q", tt.level, l, tt.label)
		}
	}
}

func TestWaterHeightMeters(t *testing.T) {
	tests := []struct {
		level int
		want  float64
	}{
		{20, 1.0},
		{40, 2.0},
		{85, 4.25},
		{95, 4.75},
	}
	for _, tt := range tests {
		if got := WaterHeightMeters(tt.level); got != tt.want {
			t.Errorf("WaterHeightMeters(%d) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestSystemConditionFor(t *testing.T) {
	tests := []struct {
		stage Stage
		want  SystemCondition
	}{
		{StageIdle, SystemConditionReady},
		{StageDetection, SystemConditionCritical},
		{StageMonitoring, SystemConditionCritical},
		{StageAnalysis, SystemConditionCritical},
		{StageExecution, SystemConditionCritical},
		{StageResolution, SystemConditionRecovered},
	}
	for _, tt := range tests {
		if got := SystemConditionFor(tt.stage); got != tt.want {
			t.Errorf("SystemConditionFor(%s) = %q, want %q", tt.stage, got, tt.want)
		}
	}
}

func TestStageValid(t *testing.T) {
	for s := StageIdle; s <= StageResolution; s++ {
		if !s.Valid() {
			t.Errorf("Stage(%d).Valid() = false", s)
		}
	}
	for _, s := range []Stage{-1, 6} {
		if s.Valid() {
			t.Errorf("Stage(%d).Valid() = true", s)
		}
		if s.String() != "Unknown" {
			t.Errorf("Stage(%d).String() = %q, want Unknown", s, s.String())
		}
	}
}

func TestLogEntryString(t *testing.T) {
	e := NewLogEntry(time.Date(2026, 2, 7, 14, 3, 9, 0, time.UTC), "System Initialized. Scanning...")
	if got, want := e.String(), "[14:03:09] System Initialized. Scanning..."; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestSnapshotDeepCopy(t *testing.T) {
	s := &Snapshot{Log: []LogEntry{{Message: "a"}}}
	c := s.DeepCopy()
	c.Log[0].Message = "b"
	if s.Log[0].Message != "a" {
		t.Error("DeepCopy shares the log slice")
	}

	var nilSnap *Snapshot
	if nilSnap.DeepCopy() != nil {
		t.Error("DeepCopy of nil should be nil")
	}
}

func TestSnapshotJSONOmitsMonitorStatus(t *testing.T) {
	data, err := json.Marshal(Snapshot{Stage: StageDetection})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if strings.Contains(string(data), "monitorStatus") {
		t.Errorf("expected monitorStatus to be omitted, got %s", data)
	}
}

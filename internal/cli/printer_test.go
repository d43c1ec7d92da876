package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/kelos-dev/floodwatch/api/v1alpha1"
)

var testEpoch = time.Date(2026, 2, 7, 9, 0, 0, 0, time.UTC)

func testSnapshot(stage v1alpha1.Stage, water int) v1alpha1.Snapshot {
	return v1alpha1.Snapshot{
		SessionID:         "3f1c2d9e",
		Stage:             stage,
		StageName:         stage.String(),
		WaterLevelPercent: water,
		WaterHeightMeters: v1alpha1.WaterHeightMeters(water),
		RiskBand:          v1alpha1.RiskBandFor(water),
		Condition:         v1alpha1.SystemConditionFor(stage),
		Log: []v1alpha1.LogEntry{
			v1alpha1.NewLogEntry(testEpoch, "System Initialized. Scanning..."),
			v1alpha1.NewLogEntry(testEpoch.Add(90*time.Second), "Meraki MV72: Initializing Virtual Gauge..."),
		},
	}
}

func TestPrintSnapshot(t *testing.T) {
	snap := testSnapshot(v1alpha1.StageDetection, 60)

	var buf bytes.Buffer
	printSnapshot(&buf, snap)
	output := buf.String()

	for _, want := range []string{
		"Session:            3f1c2d9e",
		"Stage:              1 (Detection)",
		"Condition:          CRITICAL EVENT",
		"Water Level:        60%",
		"Water Height:       3.00 m",
		"Risk:               WARNING (RISING)",
		"TIME",
		"MESSAGE",
		"09:01:30",
		"Meraki MV72: Initializing Virtual Gauge...",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, output)
		}
	}
	if strings.Contains(output, "Monitor:") {
		t.Errorf("expected no Monitor field outside monitoring, got:\n%s", output)
	}
}

func TestPrintSnapshot_Monitor(t *testing.T) {
	snap := testSnapshot(v1alpha1.StageMonitoring, 20)
	snap.MonitorStatus = v1alpha1.MonitorStatusFailed

	var buf bytes.Buffer
	printSnapshot(&buf, snap)

	if !strings.Contains(buf.String(), "Monitor:            FAILED") {
		t.Errorf("expected Monitor field, got:\n%s", buf.String())
	}
}

func TestPrintSummary(t *testing.T) {
	tests := []struct {
		name  string
		stage v1alpha1.Stage
		want  []string
	}{
		{
			name:  "completed",
			stage: v1alpha1.StageResolution,
			want:  []string{"RECOVERY COMPLETE", "Stage: 5/5", "Water: 80% (CRITICAL)", "42s"},
		},
		{
			name:  "stopped early",
			stage: v1alpha1.StageAnalysis,
			want:  []string{"Stopped at Analysis", "Stage: 3/5"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printSummary(&buf, testSnapshot(tt.stage, 80), 42*time.Second)
			output := buf.String()
			for _, want := range tt.want {
				if !strings.Contains(output, want) {
					t.Errorf("expected output to contain %q, got:\n%s", want, output)
				}
			}
			if !strings.Contains(output, "[09:00:00] System Initialized. Scanning...") {
				t.Errorf("expected log lines in summary, got:\n%s", output)
			}
		})
	}
}

func TestPrintYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := printYAML(&buf, testSnapshot(v1alpha1.StageIdle, 20)); err != nil {
		t.Fatalf("printYAML: %v", err)
	}
	for _, want := range []string{"stage: 0", "riskBand: NORMAL", "condition: SYSTEM READY"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("expected YAML to contain %q, got:\n%s", want, buf.String())
		}
	}
	if strings.Contains(buf.String(), "monitorStatus") {
		t.Errorf("expected monitorStatus to be omitted, got:\n%s", buf.String())
	}
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"k8s.io/apimachinery/pkg/util/duration"
	"sigs.k8s.io/yaml"

	"github.com/kelos-dev/floodwatch/api/v1alpha1"
)

func printSnapshot(w io.Writer, s v1alpha1.Snapshot) {
	printField(w, "Session", s.SessionID)
	printField(w, "Stage", fmt.Sprintf("%d (%s)", s.Stage, s.StageName))
	printField(w, "Condition", string(s.Condition))
	printField(w, "Water Level", fmt.Sprintf("%d%%", s.WaterLevelPercent))
	printField(w, "Water Height", fmt.Sprintf("%.2f m", s.WaterHeightMeters))
	printField(w, "Risk", fmt.Sprintf("%s (%s)", s.RiskBand, s.RiskBand.GaugeLabel()))
	if s.MonitorStatus != v1alpha1.MonitorStatusNone {
		printField(w, "Monitor", string(s.MonitorStatus))
	}
	fmt.Fprintln(w, "Log:")
	printLogTable(w, s.Log)
}

func printLogTable(w io.Writer, entries []v1alpha1.LogEntry) {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "  TIME\tMESSAGE")
	for _, e := range entries {
		fmt.Fprintf(tw, "  %s\t%s\n", e.TimestampText, e.Message)
	}
	tw.Flush()
}

// printSummary prints a text summary after leaving the alternate screen.
func printSummary(w io.Writer, s v1alpha1.Snapshot, elapsed time.Duration) {
	fmt.Fprintln(w)
	if s.Condition == v1alpha1.SystemConditionRecovered {
		fmt.Fprintf(w, "%s%s%s%s\n", ansiBold, ansiGreen, s.Condition, ansiReset)
	} else {
		fmt.Fprintf(w, "%s%sStopped at %s%s\n", ansiBold, ansiYellow, s.StageName, ansiReset)
	}
	fmt.Fprintf(w, "Stage: %d/%d  |  Water: %d%% (%s)  |  %s\n",
		s.Stage, v1alpha1.StageCount, s.WaterLevelPercent, s.RiskBand, duration.HumanDuration(elapsed))
	for _, e := range s.Log {
		fmt.Fprintf(w, "  %s\n", e)
	}
	fmt.Fprintln(w)
}

func printField(w io.Writer, label, value string) {
	fmt.Fprintf(w, "%-20s%s\n", label+":", value)
}

func printYAML(w io.Writer, obj interface{}) error {
	data, err := yaml.Marshal(obj)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func printJSON(w io.Writer, obj interface{}) error {
	data, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

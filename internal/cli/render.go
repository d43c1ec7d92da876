package cli

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kelos-dev/floodwatch/api/v1alpha1"
	"github.com/kelos-dev/floodwatch/internal/narrative"
)

// ANSI escape codes for terminal formatting.
const (
	ansiReset        = "\033[0m"
	ansiBold         = "\033[1m"
	ansiDim          = "\033[2m"
	ansiGreen        = "\033[32m"
	ansiYellow       = "\033[33m"
	ansiCyan         = "\033[36m"
	ansiWhite        = "\033[37m"
	ansiGray         = "\033[90m"
	ansiBrightRed    = "\033[91m"
	ansiBrightGreen  = "\033[92m"
	ansiBrightYellow = "\033[93m"
	ansiBrightCyan   = "\033[96m"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

var ansiEscapeRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// panelLines is the fixed height of the stage panel body.
const panelLines = 4

const gaugeCells = 20

// frame is everything drawn in one refresh of the full-screen view.
type frame struct {
	Snapshot    v1alpha1.Snapshot
	View        narrative.StageView
	Stages      []narrative.StageInfo
	Autoplay    bool
	Interactive bool
	Elapsed     time.Duration
	Spinner     int
}

// Render builds the complete terminal frame as a string.
func (f frame) Render(width, height int) string {
	if width < 60 {
		width = 60
	}
	if height < 24 {
		height = 24
	}

	fw := width
	iw := fw - 4

	var b strings.Builder
	b.WriteString("\033[H")

	// Title block
	b.WriteString(topBorder(fw))
	b.WriteString(emptyLine(fw))
	b.WriteString(f.renderTitle(fw))
	b.WriteString(emptyLine(fw))
	b.WriteString(midBorder(fw))

	// Status line
	b.WriteString(f.renderStatusLine(fw))
	b.WriteString(midBorder(fw))

	// Stage rail
	b.WriteString(emptyLine(fw))
	for _, st := range f.Stages {
		b.WriteString(f.renderStageLine(fw, iw, st))
	}
	b.WriteString(emptyLine(fw))
	b.WriteString(midBorder(fw))

	// Stage panel
	b.WriteString(f.renderPanelHeader(fw))
	lines := f.panel(iw)
	for i := 0; i < panelLines; i++ {
		if i < len(lines) {
			b.WriteString(borderedLine(fw, lines[i]))
		} else {
			b.WriteString(emptyLine(fw))
		}
	}
	b.WriteString(midBorder(fw))

	// Event log: header + entries + bottom border, which carries the key help
	// in interactive frames
	fixedLines := 5 + 2 + len(f.Stages) + 3 + 1 + panelLines + 1 + 1 + 1
	availLog := height - fixedLines
	if availLog < 1 {
		availLog = 1
	}

	b.WriteString(borderedLine(fw, fmt.Sprintf("  %s%sEVENT LOG%s", ansiBold, ansiYellow, ansiReset)))
	entries := lastEntries(f.Snapshot.Log, availLog)
	for _, e := range entries {
		b.WriteString(renderLogEntry(fw, iw, e))
	}
	for i := len(entries); i < availLog; i++ {
		b.WriteString(emptyLine(fw))
	}
	if f.Interactive {
		b.WriteString(labeledBottomBorder(fw, keyHelp()))
	} else {
		b.WriteString(bottomBorder(fw))
	}
	b.WriteString("\033[J")

	return b.String()
}

// --- Border helpers ---

func topBorder(fw int) string {
	return ansiGray + "╔" + strings.Repeat("═", fw-2) + "╗" + ansiReset + "\n"
}

func midBorder(fw int) string {
	return ansiGray + "╠" + strings.Repeat("═", fw-2) + "╣" + ansiReset + "\n"
}

func bottomBorder(fw int) string {
	return ansiGray + "╚" + strings.Repeat("═", fw-2) + "╝" + ansiReset + "\n"
}

// labeledBottomBorder inlays label into the bottom border, falling back to a
// plain border when it does not fit.
func labeledBottomBorder(fw int, label string) string {
	fill := fw - 6 - visibleWidth(label)
	if fill < 1 {
		return bottomBorder(fw)
	}
	return ansiGray + "╚══ " + ansiReset + label + ansiGray + " " + strings.Repeat("═", fill) + "╝" + ansiReset + "\n"
}

func emptyLine(fw int) string {
	return ansiGray + "║" + ansiReset + strings.Repeat(" ", fw-2) + ansiGray + "║" + ansiReset + "\n"
}

// borderedLine wraps content with box-drawing borders and right-pads to the
// frame width.
func borderedLine(fw int, content string) string {
	pad := fw - 2 - visibleWidth(content)
	if pad < 0 {
		pad = 0
	}
	return ansiGray + "║" + ansiReset + content + strings.Repeat(" ", pad) + ansiGray + "║" + ansiReset + "\n"
}

// --- Content renderers ---

func conditionColor(c v1alpha1.SystemCondition) string {
	switch c {
	case v1alpha1.SystemConditionCritical:
		return ansiBold + ansiBrightRed
	case v1alpha1.SystemConditionRecovered:
		return ansiBold + ansiBrightGreen
	default:
		return ansiBold + ansiBrightYellow
	}
}

func riskColor(r v1alpha1.RiskBand) string {
	switch r {
	case v1alpha1.RiskBandWarning:
		return ansiBrightYellow
	case v1alpha1.RiskBandCritical:
		return ansiBrightRed
	default:
		return ansiBrightGreen
	}
}

func (f frame) renderTitle(fw int) string {
	title := "≋  F L O O D W A T C H  ≋"
	leftPad := (fw - 2 - utf8.RuneCountInString(title)) / 2
	if leftPad < 0 {
		leftPad = 0
	}
	content := strings.Repeat(" ", leftPad) + conditionColor(f.Snapshot.Condition) + title + ansiReset
	return borderedLine(fw, content)
}

func (f frame) renderStatusLine(fw int) string {
	mode := "manual"
	if f.Autoplay {
		mode = "autoplay"
	}
	content := fmt.Sprintf("  %sStatus%s %s%s%s    %sMode%s %s%s%s    %sTime%s %s%s%s",
		ansiBold+ansiYellow, ansiReset, conditionColor(f.Snapshot.Condition), f.Snapshot.Condition, ansiReset,
		ansiBold+ansiYellow, ansiReset, ansiCyan, mode, ansiReset,
		ansiBold+ansiYellow, ansiReset, ansiCyan, fmtDuration(f.Elapsed), ansiReset,
	)
	return borderedLine(fw, content)
}

func (f frame) renderStageLine(fw, iw int, st narrative.StageInfo) string {
	var icon, color string
	switch {
	case st.Current && st.Stage == v1alpha1.StageResolution:
		icon = "✓"
		color = ansiBrightGreen + ansiBold
	case st.Current:
		icon = spinnerFrames[f.Spinner%len(spinnerFrames)]
		color = ansiBrightCyan + ansiBold
	case st.Reached:
		icon = "✓"
		color = ansiGreen
	default:
		icon = "·"
		color = ansiGray
	}
	desc := truncate(st.Description, iw-8-utf8.RuneCountInString(st.Title))
	content := fmt.Sprintf("  %s[%s]%s %s%s%s  %s%s%s", color, icon, ansiReset, color, st.Title, ansiReset, ansiDim, desc, ansiReset)
	return borderedLine(fw, content)
}

func (f frame) renderPanelHeader(fw int) string {
	name := strings.ToUpper(f.Snapshot.StageName)
	if f.Snapshot.Stage == v1alpha1.StageIdle {
		name = "STANDBY"
	}
	return borderedLine(fw, fmt.Sprintf("  %s%s%s%s", ansiBold, ansiYellow, name, ansiReset))
}

// panel returns the body lines of the active stage.
func (f frame) panel(iw int) []string {
	switch v := f.View.(type) {
	case narrative.DetectionView:
		return detectionPanel(v, iw)
	case narrative.MonitoringView:
		return monitoringPanel(v, f.Spinner)
	case narrative.AnalysisView:
		return []string{
			fmt.Sprintf("  %sWater height%s  %.2f m", ansiBold, ansiReset, v.HeightMeters),
			fmt.Sprintf("  %sRising rate%s   > 30%% vs history", ansiBold, ansiReset),
			fmt.Sprintf("  %sRisk%s          %s%s%s", ansiBold, ansiReset, riskColor(v.Risk), v.Risk, ansiReset),
		}
	case narrative.ExecutionView:
		return []string{
			fmt.Sprintf("  %sPrimary WAN%s   %s✗ unstable%s", ansiBold, ansiReset, ansiBrightRed, ansiReset),
			fmt.Sprintf("  %sStarlink%s      %s✓ active%s", ansiBold, ansiReset, ansiBrightGreen, ansiReset),
			fmt.Sprintf("  %sTraffic rerouted via satellite%s", ansiGray, ansiReset),
		}
	case narrative.ResolutionView:
		return []string{
			fmt.Sprintf("  %sConnection restored%s", ansiBrightGreen, ansiReset),
			fmt.Sprintf("  %sPerson detected at Sector 4%s", ansiWhite, ansiReset),
			fmt.Sprintf("  %sCoordinates sent to rescue teams%s", ansiWhite, ansiReset),
		}
	default:
		hint := "Press n to begin."
		if f.Autoplay {
			hint = "Autoplay will begin shortly."
		}
		return []string{
			fmt.Sprintf("  %sFlood response walkthrough ready.%s", ansiWhite, ansiReset),
			fmt.Sprintf("  %sDetection, monitoring, analysis, execution, resolution.%s", ansiGray, ansiReset),
			"",
			fmt.Sprintf("  %s%s%s", ansiCyan, hint, ansiReset),
		}
	}
}

func detectionPanel(v narrative.DetectionView, iw int) []string {
	filled := v.WaterLevelPercent * gaugeCells / 100
	if filled > gaugeCells {
		filled = gaugeCells
	}
	color := riskColor(v.Risk)
	bar := color + strings.Repeat("█", filled) + ansiGray + strings.Repeat("░", gaugeCells-filled) + ansiReset

	reading, err := json.Marshal(v.Reading)
	if err != nil {
		reading = []byte("{}")
	}

	hint := "Autonomous rise"
	if v.AcceptsRain {
		hint = "Press r to add rain"
	}
	return []string{
		fmt.Sprintf("  %sWater%s   [%s]  %3d%%  %.2f m  %s%s%s",
			ansiBold, ansiReset, bar, v.WaterLevelPercent, v.HeightMeters, color+ansiBold, v.Risk.GaugeLabel(), ansiReset),
		fmt.Sprintf("  %sSensor%s  %s%s%s", ansiBold, ansiReset, ansiCyan, truncate(string(reading), iw-10), ansiReset),
		"",
		fmt.Sprintf("  %s%s%s", ansiGray, hint, ansiReset),
	}
}

func monitoringPanel(v narrative.MonitoringView, spinner int) []string {
	var link, color string
	switch v.Link {
	case narrative.LinkBroken:
		color = ansiBrightRed
		link = color + "───✗───" + ansiReset
	case narrative.LinkUp:
		color = ansiBrightGreen
		link = color + "━━━━━━━" + ansiReset
	default:
		color = ansiBrightCyan
		dots := []rune("·······")
		dots[spinner%len(dots)] = '•'
		link = color + string(dots) + ansiReset
	}
	return []string{
		fmt.Sprintf("  %sSite%s %s %sNode B%s %s %sCloud%s", ansiBold, ansiReset, link, ansiBold, ansiReset, link, ansiBold, ansiReset),
		"",
		fmt.Sprintf("  %sLink%s    %s%s%s", ansiBold, ansiReset, color+ansiBold, v.Status, ansiReset),
	}
}

func renderLogEntry(fw, iw int, e v1alpha1.LogEntry) string {
	msg := truncate(e.Message, iw-14)
	content := fmt.Sprintf("  %s[%s]%s %s%s%s", ansiGray, e.TimestampText, ansiReset, ansiWhite, msg, ansiReset)
	return borderedLine(fw, content)
}

func keyHelp() string {
	var parts []string
	for _, k := range []struct{ key, action string }{
		{"n", "next"}, {"r", "rain"}, {"x", "reset"}, {"a", "autoplay"}, {"q", "quit"},
	} {
		parts = append(parts, ansiBold+k.key+ansiReset+" "+k.action)
	}
	return strings.Join(parts, "  ")
}

func lastEntries(log []v1alpha1.LogEntry, n int) []v1alpha1.LogEntry {
	if len(log) <= n {
		return log
	}
	return log[len(log)-n:]
}

// --- Utility functions ---

// visibleWidth returns the visible width of a string, ignoring ANSI escapes.
func visibleWidth(s string) int {
	return utf8.RuneCountInString(ansiEscapeRegex.ReplaceAllString(s, ""))
}

// truncate shortens s to max runes, marking the cut with "...".
func truncate(s string, max int) string {
	if max < 10 {
		max = 10
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max-3]) + "..."
}

// fmtDuration formats a duration as "Xs" or "XmYYs".
func fmtDuration(d time.Duration) string {
	d = d.Truncate(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}

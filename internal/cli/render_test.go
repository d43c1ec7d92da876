package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/kelos-dev/floodwatch/internal/autoplay"
	"github.com/kelos-dev/floodwatch/internal/narrative"
)

func newTestSession(t *testing.T, cfg narrative.Config, ap *autoplay.Config) (*session, *clocktesting.FakePassiveClock) {
	t.Helper()
	clk := clocktesting.NewFakePassiveClock(testEpoch)
	s, err := newSession(sessionOptions{
		Narrative: cfg,
		Autoplay:  ap,
		Clock:     clk,
		Log:       logr.Discard(),
	})
	if err != nil {
		t.Fatalf("newSession: %v", err)
	}
	t.Cleanup(s.close)
	return s, clk
}

func stripANSI(s string) string {
	return ansiEscapeRegex.ReplaceAllString(s, "")
}

func TestRender_FrameGeometry(t *testing.T) {
	s, _ := newTestSession(t, narrative.DefaultConfig(), nil)
	s.ctrl.Advance()
	s.ctrl.ApplyStimulus(narrative.StimulusRain)

	for _, size := range []struct{ w, h int }{{80, 30}, {120, 40}, {60, 24}} {
		for _, interactive := range []bool{false, true} {
			out := s.frame(testEpoch, 0, interactive).Render(size.w, size.h)

			lines := strings.Split(stripANSI(out), "\n")
			if got := len(lines) - 1; got != size.h {
				t.Errorf("%dx%d interactive=%v: got %d lines, want %d", size.w, size.h, interactive, got, size.h)
			}
			for i, l := range lines[:len(lines)-1] {
				if w := visibleWidth(l); w != size.w {
					t.Errorf("%dx%d line %d: width %d, want %d: %q", size.w, size.h, i, w, size.w, l)
				}
			}
		}
	}
}

func TestRender_KeyHelpInBottomBorder(t *testing.T) {
	s, _ := newTestSession(t, narrative.DefaultConfig(), nil)
	for _, w := range []int{60, 100} {
		lines := strings.Split(stripANSI(s.frame(testEpoch, 0, true).Render(w, 24)), "\n")
		last := lines[len(lines)-2]
		if !strings.HasPrefix(last, "╚══ n next") || !strings.HasSuffix(last, "═╝") {
			t.Errorf("width %d: bottom border = %q", w, last)
		}
		for _, action := range []string{"rain", "reset", "autoplay", "quit"} {
			if !strings.Contains(last, action) {
				t.Errorf("width %d: expected %q in bottom border %q", w, action, last)
			}
		}
	}

	plain := strings.Split(stripANSI(s.frame(testEpoch, 0, false).Render(60, 24)), "\n")
	if got := plain[len(plain)-2]; strings.Contains(got, "quit") {
		t.Errorf("expected a plain bottom border outside interactive mode, got %q", got)
	}
}

func TestRender_MinimumSize(t *testing.T) {
	s, _ := newTestSession(t, narrative.DefaultConfig(), nil)
	out := stripANSI(s.frame(testEpoch, 0, false).Render(10, 5))
	if got := strings.Count(out, "\n"); got != 24 {
		t.Errorf("got %d lines, want 24", got)
	}
}

func TestRender_Panels(t *testing.T) {
	tests := []struct {
		name     string
		cfg      func(*narrative.Config)
		steps    func(s *session, clk *clocktesting.FakePassiveClock)
		autoplay bool
		want     []string
	}{
		{
			name: "idle",
			want: []string{"STANDBY", "SYSTEM READY", "Flood response walkthrough ready.", "Press n to begin.", "Mode manual"},
		},
		{
			name:     "idle with autoplay",
			autoplay: true,
			want:     []string{"Autoplay will begin shortly.", "Mode autoplay"},
		},
		{
			name: "detection",
			steps: func(s *session, _ *clocktesting.FakePassiveClock) {
				s.ctrl.Advance()
				s.ctrl.ApplyStimulus(narrative.StimulusRain)
			},
			want: []string{"DETECTION", "CRITICAL EVENT", " 40%", "2.00 m", "RISING", `"id":"MV72"`, "Press r to add rain"},
		},
		{
			name: "detection autonomous",
			cfg:  func(c *narrative.Config) { c.WaterMode = narrative.WaterModeAutonomous },
			steps: func(s *session, _ *clocktesting.FakePassiveClock) {
				s.ctrl.Advance()
			},
			want: []string{"Autonomous rise", "STABLE"},
		},
		{
			name: "monitoring connecting",
			steps: func(s *session, _ *clocktesting.FakePassiveClock) {
				s.ctrl.Advance()
				s.ctrl.Advance()
			},
			want: []string{"MONITORING", "Site", "Node B", "Cloud", "CONNECTING"},
		},
		{
			name: "monitoring failed",
			steps: func(s *session, clk *clocktesting.FakePassiveClock) {
				s.ctrl.Advance()
				s.ctrl.Advance()
				clk.SetTime(testEpoch.Add(3 * time.Second))
				s.sched.AdvanceTo(clk.Now())
			},
			want: []string{"───✗───", "FAILED"},
		},
		{
			name: "analysis",
			steps: func(s *session, _ *clocktesting.FakePassiveClock) {
				for range 3 {
					s.ctrl.Advance()
				}
			},
			want: []string{"ANALYSIS", "Rising rate", "NORMAL"},
		},
		{
			name: "execution",
			steps: func(s *session, _ *clocktesting.FakePassiveClock) {
				for range 4 {
					s.ctrl.Advance()
				}
			},
			want: []string{"EXECUTION", "Starlink", "Primary WAN"},
		},
		{
			name: "resolution",
			steps: func(s *session, _ *clocktesting.FakePassiveClock) {
				for range 5 {
					s.ctrl.Advance()
				}
			},
			want: []string{"RESOLUTION", "RECOVERY COMPLETE", "Person detected at Sector 4", "[✓] 5. Rescue"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := narrative.DefaultConfig()
			if tt.cfg != nil {
				tt.cfg(&cfg)
			}
			var ap *autoplay.Config
			if tt.autoplay {
				c := autoplay.DefaultConfig()
				ap = &c
			}
			s, clk := newTestSession(t, cfg, ap)
			if tt.autoplay {
				s.toggleAutoplay()
			}
			if tt.steps != nil {
				tt.steps(s, clk)
			}

			out := stripANSI(s.frame(clk.Now(), 0, true).Render(100, 30))
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("expected frame to contain %q, got:\n%s", want, out)
				}
			}
		})
	}
}

func TestRender_EventLogShowsNewestEntries(t *testing.T) {
	s, _ := newTestSession(t, narrative.DefaultConfig(), nil)
	for range 3 {
		s.ctrl.Reset()
	}
	for range 5 {
		s.ctrl.Advance()
	}

	// 24 rows leave room for one log line in a non-interactive frame.
	out := stripANSI(s.frame(testEpoch, 0, false).Render(80, 24))
	if strings.Contains(out, "Re-scanning") {
		t.Errorf("expected older entries to be dropped, got:\n%s", out)
	}
	if !strings.Contains(out, "Person Detected at Sector 4") {
		t.Errorf("expected newest entry, got:\n%s", out)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{in: "short", max: 20, want: "short"},
		{in: "exactly ten", max: 11, want: "exactly ten"},
		{in: "this message is too long", max: 12, want: "this mess..."},
		{in: "minimum width applies here", max: 2, want: "minimum..."},
		{in: "≋≋≋≋≋≋≋≋≋≋≋≋", max: 10, want: "≋≋≋≋≋≋≋..."},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestFmtDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{1500 * time.Millisecond, "1s"},
		{59 * time.Second, "59s"},
		{61 * time.Second, "1m01s"},
		{12*time.Minute + 5*time.Second, "12m05s"},
	}
	for _, tt := range tests {
		if got := fmtDuration(tt.d); got != tt.want {
			t.Errorf("fmtDuration(%s) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestVisibleWidth(t *testing.T) {
	if got := visibleWidth(ansiBold + ansiGreen + "✓ ok" + ansiReset); got != 4 {
		t.Errorf("visibleWidth = %d, want 4", got)
	}
}

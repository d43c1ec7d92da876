package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/kelos-dev/floodwatch/api/v1alpha1"
	"github.com/kelos-dev/floodwatch/internal/autoplay"
	"github.com/kelos-dev/floodwatch/internal/narrative"
)

type stepKind string

const (
	stepAdvance  stepKind = "advance"
	stepRain     stepKind = "rain"
	stepReset    stepKind = "reset"
	stepWait     stepKind = "wait"
	stepStimulus stepKind = "stimulus"
)

type simStep struct {
	kind     stepKind
	wait     time.Duration
	stimulus string
}

func newSimulateCommand(opts *rootOptions) *cobra.Command {
	var (
		steps      []string
		output     string
		start      string
		autoplayOn bool
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the walkthrough headless on virtual time",
		Long: `Apply a sequence of steps to a fresh walkthrough on a virtual clock and
print the final state. Timers fire as wait steps move the clock.

Steps:
  advance            move to the next stage
  rain               apply the rain stimulus
  reset              start over
  wait=<duration>    let virtual time pass (e.g. wait=3s)
  stimulus=<kind>    apply an arbitrary stimulus`,
		Example: `  floodwatch simulate --step advance --step rain --step advance --step wait=3s
  floodwatch simulate --autoplay --step wait=40s -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "text" && output != "json" && output != "yaml" {
				return fmt.Errorf("unknown output format %q: must be one of text, json, yaml", output)
			}

			parsed, err := parseSteps(steps)
			if err != nil {
				return err
			}

			startTime := time.Now()
			if start != "" {
				startTime, err = time.Parse(time.RFC3339, start)
				if err != nil {
					return fmt.Errorf("parsing --start: %w", err)
				}
			}

			cfg, err := opts.resolve(cmd)
			if err != nil {
				return err
			}
			level, _ := parseLogLevel(cfg.Log.Level)
			log, closeLog, err := openLogger(level, cfg.Log.File, false, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeLog()

			var ap *autoplay.Config
			if autoplayOn || cfg.AutoplayEnabled() {
				c := cfg.AutoplayConfig()
				ap = &c
			}

			snap, err := runSimulation(cfg.NarrativeConfig(), ap, startTime, parsed, log)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch output {
			case "json":
				return printJSON(out, snap)
			case "yaml":
				return printYAML(out, snap)
			default:
				printSnapshot(out, snap)
				return nil
			}
		},
	}

	cmd.Flags().StringArrayVarP(&steps, "step", "s", nil, "step to apply, repeatable (advance, rain, reset, wait=<duration>, stimulus=<kind>)")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format (text, json, yaml)")
	cmd.Flags().StringVar(&start, "start", "", "virtual start time in RFC3339 (default now)")
	cmd.Flags().BoolVar(&autoplayOn, "autoplay", false, "let the autoplay driver run during wait steps")

	_ = cmd.RegisterFlagCompletionFunc("output", cobra.FixedCompletions([]string{"text", "json", "yaml"}, cobra.ShellCompDirectiveNoFileComp))

	return cmd
}

func parseSteps(raw []string) ([]simStep, error) {
	steps := make([]simStep, 0, len(raw))
	for _, r := range raw {
		name, value, hasValue := strings.Cut(strings.TrimSpace(r), "=")
		switch stepKind(name) {
		case stepAdvance, stepRain, stepReset:
			if hasValue {
				return nil, fmt.Errorf("step %q takes no value", name)
			}
			steps = append(steps, simStep{kind: stepKind(name)})
		case stepWait:
			d, err := time.ParseDuration(value)
			if err != nil {
				return nil, fmt.Errorf("parsing step %q: %w", r, err)
			}
			if d < 0 {
				return nil, fmt.Errorf("step %q: duration must not be negative", r)
			}
			steps = append(steps, simStep{kind: stepWait, wait: d})
		case stepStimulus:
			if value == "" {
				return nil, fmt.Errorf("step %q: stimulus kind is required", r)
			}
			steps = append(steps, simStep{kind: stepStimulus, stimulus: value})
		default:
			return nil, fmt.Errorf("unknown step %q", r)
		}
	}
	return steps, nil
}

// runSimulation applies steps to a fresh session on a virtual clock and
// returns the final snapshot.
func runSimulation(cfg narrative.Config, ap *autoplay.Config, start time.Time, steps []simStep, log logr.Logger) (v1alpha1.Snapshot, error) {
	clk := clocktesting.NewFakePassiveClock(start)
	s, err := newSession(sessionOptions{
		Narrative:     cfg,
		Autoplay:      ap,
		StartAutoplay: true,
		Clock:         clk,
		Log:           log,
	})
	if err != nil {
		return v1alpha1.Snapshot{}, err
	}
	defer s.close()

	for _, st := range steps {
		switch st.kind {
		case stepAdvance:
			s.ctrl.Advance()
		case stepRain:
			s.ctrl.ApplyStimulus(narrative.StimulusRain)
		case stepReset:
			s.ctrl.Reset()
		case stepStimulus:
			s.ctrl.ApplyStimulus(st.stimulus)
		case stepWait:
			waitVirtual(s, clk, st.wait)
		}
	}
	return s.ctrl.Snapshot(), nil
}

// waitVirtual moves virtual time forward one deadline at a time so entries logged
// by timer-driven transitions carry the deadline's time.
func waitVirtual(s *session, clk *clocktesting.FakePassiveClock, d time.Duration) {
	end := s.sched.Now().Add(d)
	for {
		next, ok := s.sched.NextDeadline()
		if !ok || next.After(end) {
			break
		}
		clk.SetTime(next)
		s.sched.AdvanceTo(next)
	}
	clk.SetTime(end)
	s.sched.AdvanceTo(end)
}

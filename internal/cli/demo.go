package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"k8s.io/utils/clock"

	"github.com/kelos-dev/floodwatch/api/v1alpha1"
	"github.com/kelos-dev/floodwatch/internal/autoplay"
	"github.com/kelos-dev/floodwatch/internal/loop"
	"github.com/kelos-dev/floodwatch/internal/metrics"
	"github.com/kelos-dev/floodwatch/internal/narrative"
)

// demoLinger is how long the final stage stays on screen.
const demoLinger = 3 * time.Second

func newDemoCommand(opts *rootOptions) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Play the whole walkthrough with autoplay",
		Long: `Play the flood response walkthrough from detection to resolution without
any input. On a terminal the full-screen view is shown; otherwise each event is
printed as a line. Press Ctrl+C to stop early.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.resolve(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("metrics-bind-address") {
				metricsAddr = cfg.Metrics.BindAddress
			}

			fullscreen := isTerminal(os.Stdout)
			level, _ := parseLogLevel(cfg.Log.Level)
			log, closeLog, err := openLogger(level, cfg.Log.File, fullscreen, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, cancel := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return runDemo(ctx, demoOptions{
				Narrative:   cfg.NarrativeConfig(),
				Autoplay:    cfg.AutoplayConfig(),
				Clock:       clock.RealClock{},
				Fullscreen:  fullscreen,
				MetricsAddr: metricsAddr,
				Out:         cmd.OutOrStdout(),
				Log:         log,
			})
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-bind-address", "", "serve Prometheus metrics on this address (e.g. :9090)")

	return cmd
}

type demoOptions struct {
	Narrative   narrative.Config
	Autoplay    autoplay.Config
	Clock       clock.WithTicker
	Fullscreen  bool
	MetricsAddr string
	Out         io.Writer
	Log         logr.Logger
}

func runDemo(ctx context.Context, opts demoOptions) error {
	clk := opts.Clock
	finished := make(chan struct{})
	s, err := newSession(sessionOptions{
		Narrative:     opts.Narrative,
		Autoplay:      &opts.Autoplay,
		StartAutoplay: true,
		Clock:         clk,
		Log:           opts.Log,
		OnFinish: func() {
			select {
			case <-finished:
			default:
				close(finished)
			}
		},
	})
	if err != nil {
		return err
	}
	l := loop.New(clk, s.sched, opts.Log)

	g, gctx := errgroup.WithContext(ctx)
	runCtx, stop := context.WithCancel(gctx)
	defer stop()

	if opts.Fullscreen {
		fmt.Fprint(opts.Out, enterAltScreen)
		g.Go(func() error { return renderLoop(runCtx, l, s, clk, opts.Out, false) })
	} else {
		// Subscribed before the loop starts; runs on the loop afterwards.
		printEvents(opts.Out, s.ctrl)
	}

	g.Go(func() error { return l.Run(runCtx) })
	g.Go(func() error {
		select {
		case <-finished:
			sleepCtx(runCtx, clk, demoLinger)
			stop()
		case <-runCtx.Done():
		}
		return nil
	})
	if opts.MetricsAddr != "" {
		g.Go(func() error { return metrics.Serve(runCtx, opts.MetricsAddr, opts.Log) })
	}
	err = g.Wait()

	if opts.Fullscreen {
		fmt.Fprint(opts.Out, leaveAltScreen)
	}

	snap := s.ctrl.Snapshot()
	s.close()
	printSummary(opts.Out, snap, clk.Since(s.started))
	return err
}

func sameEntry(a, b v1alpha1.LogEntry) bool {
	return a.Timestamp.Equal(b.Timestamp) && a.Message == b.Message
}

// printEvents writes new log entries and sub-state changes to w as they
// happen.
func printEvents(w io.Writer, ctrl *narrative.Controller) {
	initial := ctrl.Snapshot()
	for _, e := range initial.Log {
		fmt.Fprintln(w, e)
	}
	seen := len(initial.Log)
	first := initial.Log[0]
	water := initial.WaterLevelPercent
	monitor := initial.MonitorStatus

	ctrl.Subscribe(func(snap v1alpha1.Snapshot) {
		// A reset restarts the log, possibly at the same length.
		if len(snap.Log) < seen || !sameEntry(snap.Log[0], first) {
			seen = 0
		}
		first = snap.Log[0]
		for _, e := range snap.Log[seen:] {
			fmt.Fprintln(w, e)
		}
		seen = len(snap.Log)

		if snap.WaterLevelPercent != water {
			water = snap.WaterLevelPercent
			fmt.Fprintf(w, "  water %d%% (%.2f m, %s)\n", water, snap.WaterHeightMeters, snap.RiskBand.GaugeLabel())
		}
		if snap.MonitorStatus != monitor {
			monitor = snap.MonitorStatus
			if monitor != v1alpha1.MonitorStatusNone {
				fmt.Fprintf(w, "  link %s\n", monitor)
			}
		}
	})
}

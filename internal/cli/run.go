package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
	"k8s.io/utils/clock"

	"github.com/kelos-dev/floodwatch/internal/autoplay"
	"github.com/kelos-dev/floodwatch/internal/loop"
	"github.com/kelos-dev/floodwatch/internal/metrics"
	"github.com/kelos-dev/floodwatch/internal/narrative"
)

func newRunCommand(opts *rootOptions) *cobra.Command {
	var (
		autoplayOn  bool
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the interactive walkthrough in the terminal",
		Long: `Run the flood response walkthrough full-screen.

Keys:
  n, space, enter   next stage
  r                 rain (detection stage, manual water mode)
  x                 reset
  a                 toggle autoplay
  q, Ctrl+C         quit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isTerminal(os.Stdin) || !isTerminal(os.Stdout) {
				return fmt.Errorf("run requires a terminal (use simulate for headless runs)")
			}

			cfg, err := opts.resolve(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("metrics-bind-address") {
				metricsAddr = cfg.Metrics.BindAddress
			}
			if !cmd.Flags().Changed("autoplay") {
				autoplayOn = cfg.AutoplayEnabled()
			}

			level, _ := parseLogLevel(cfg.Log.Level)
			log, closeLog, err := openLogger(level, cfg.Log.File, true, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, cancel := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			ap := cfg.AutoplayConfig()
			return runInteractive(ctx, interactiveOptions{
				Narrative:     cfg.NarrativeConfig(),
				Autoplay:      ap,
				StartAutoplay: autoplayOn,
				MetricsAddr:   metricsAddr,
				In:            os.Stdin,
				Out:           cmd.OutOrStdout(),
				Log:           log,
			})
		},
	}

	cmd.Flags().BoolVar(&autoplayOn, "autoplay", false, "start with the autoplay driver on")
	cmd.Flags().StringVar(&metricsAddr, "metrics-bind-address", "", "serve Prometheus metrics on this address (e.g. :9090)")

	return cmd
}

type interactiveOptions struct {
	Narrative     narrative.Config
	Autoplay      autoplay.Config
	StartAutoplay bool
	MetricsAddr   string
	In            *os.File
	Out           io.Writer
	Log           logr.Logger
}

func runInteractive(ctx context.Context, opts interactiveOptions) error {
	clk := clock.RealClock{}
	s, err := newSession(sessionOptions{
		Narrative:     opts.Narrative,
		Autoplay:      &opts.Autoplay,
		StartAutoplay: opts.StartAutoplay,
		Clock:         clk,
		Log:           opts.Log,
	})
	if err != nil {
		return err
	}
	l := loop.New(clk, s.sched, opts.Log)

	fd := int(opts.In.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		s.close()
		return fmt.Errorf("entering raw mode: %w", err)
	}
	restore := func() { _ = term.Restore(fd, oldState) }
	defer restore()

	fmt.Fprint(opts.Out, enterAltScreen)

	keys := make(chan byte)
	go readKeys(opts.In, keys)

	g, gctx := errgroup.WithContext(ctx)
	runCtx, quit := context.WithCancel(gctx)
	defer quit()

	g.Go(func() error { return l.Run(runCtx) })
	g.Go(func() error { return renderLoop(runCtx, l, s, clk, opts.Out, true) })
	g.Go(func() error { return handleKeys(runCtx, keys, l, s, quit) })
	if opts.MetricsAddr != "" {
		g.Go(func() error { return metrics.Serve(runCtx, opts.MetricsAddr, opts.Log) })
	}
	err = g.Wait()

	fmt.Fprint(opts.Out, leaveAltScreen)
	restore()

	// The loop has returned, so the session is ours again.
	snap := s.ctrl.Snapshot()
	s.close()
	printSummary(opts.Out, snap, clk.Since(s.started))
	return err
}

// cmdContext returns the command's context, or Background when it was run
// without one.
func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

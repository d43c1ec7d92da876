package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath  string
	waterMode   string
	monitorMode string
	logLevel    string
	logFile     string
}

// NewRootCommand returns the floodwatch command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "floodwatch",
		Short: "Walk through a simulated flood incident response",
		Long: `floodwatch drives a five-stage flood incident walkthrough: detection,
monitoring, analysis, execution and resolution. Every signal is simulated.

  floodwatch run              Interactive walkthrough in the terminal
  floodwatch demo             Hands-off walkthrough with autoplay
  floodwatch simulate ...     Headless run on virtual time`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	opts.addFlags(cmd.PersistentFlags())
	_ = cmd.RegisterFlagCompletionFunc("water-mode", cobra.FixedCompletions([]string{"manual", "autonomous"}, cobra.ShellCompDirectiveNoFileComp))
	_ = cmd.RegisterFlagCompletionFunc("monitor-mode", cobra.FixedCompletions([]string{"timed", "static"}, cobra.ShellCompDirectiveNoFileComp))
	_ = cmd.RegisterFlagCompletionFunc("log-level", cobra.FixedCompletions([]string{"debug", "info", "error"}, cobra.ShellCompDirectiveNoFileComp))

	cmd.AddCommand(
		newRunCommand(opts),
		newDemoCommand(opts),
		newSimulateCommand(opts),
		newInitCommand(opts),
		newVersionCommand(),
	)

	return cmd
}

func (o *rootOptions) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.configPath, "config", "", "path to config file (default ~/.floodwatch/config.yaml)")
	fs.StringVar(&o.waterMode, "water-mode", "", "water rise mode (manual, autonomous)")
	fs.StringVar(&o.monitorMode, "monitor-mode", "", "monitoring outage mode (timed, static)")
	fs.StringVar(&o.logLevel, "log-level", "", "log verbosity (debug, info, error)")
	fs.StringVar(&o.logFile, "log-file", "", "write logs to this file")
}

// resolve loads the config file and applies explicitly set flags over it.
func (o *rootOptions) resolve(cmd *cobra.Command) (*Config, error) {
	path := o.configPath
	required := cmd.Flags().Changed("config")
	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return nil, err
		}
	}

	cfg, err := LoadConfig(path, required)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("water-mode") {
		cfg.Water.Mode = o.waterMode
	}
	if flags.Changed("monitor-mode") {
		cfg.Monitor.Mode = o.monitorMode
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if flags.Changed("log-file") {
		cfg.Log.File = o.logFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

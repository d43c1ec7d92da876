package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const configTemplate = `# floodwatch configuration file

# Detection stage (optional)
# water:
#   # manual: the level rises on the rain key; autonomous: it rises on its own
#   mode: manual
#   riseInterval: 800ms

# Monitoring stage (optional)
# monitor:
#   # timed: CONNECTING, then FAILED, then RESTORED; static: FAILED throughout
#   mode: timed
#   failAfter: 3s
#   recoverAfter: 4s

# Autoplay driver for run (optional; demo always uses it)
# autoplay:
#   enabled: false
#   advance: "@every 8s"
#   rain: "@every 2s"

# Logging (optional)
# log:
#   level: info
#   file: /tmp/floodwatch.log

# Prometheus metrics endpoint for run and demo (optional)
# metrics:
#   bindAddress: ":9090"
`

func printNextSteps(w io.Writer, configPath string) {
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Next steps:")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "1. Edit the config file if you want to change the defaults:")
	fmt.Fprintf(w, "   %s\n", configPath)
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "2. Start the walkthrough:")
	fmt.Fprintln(w, "   floodwatch run")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "3. Or watch it play by itself:")
	fmt.Fprintln(w, "   floodwatch demo")
	fmt.Fprintln(w, "")
}

func newInitCommand(_ *rootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			if path == "" {
				var err error
				path, err = DefaultConfigPath()
				if err != nil {
					return err
				}
			}

			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
				}
			}

			if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
				return fmt.Errorf("creating directory: %w", err)
			}

			if err := os.WriteFile(path, []byte(configTemplate), 0o600); err != nil {
				return fmt.Errorf("writing config file: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config file created: %s\n", path)
			printNextSteps(out, path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite existing config file")

	return cmd
}

package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	configFile string
	dataDir    string
	brewPath   string
	logLevel   string
	logFormat  string

	// RootCmd is the root command for brewnotify
	RootCmd = &cobra.Command{
		Use:   "brewnotify",
		Short: "Keep an eye on outdated Homebrew packages",
		Long: `brewnotify checks for outdated Homebrew packages on a schedule and lets you
upgrade them while watching brew's progress live.

Checks run 'brew outdated --json=v2'. Packages on your ignore list are left
out of the results. The background watcher re-checks on a fixed interval or
once a day at a chosen hour.

Quick Start:
  1. brewnotify check
  2. brewnotify settings set --mode daily --hour 9
  3. brewnotify watch --daemon

Examples:
  # Check right now, with live progress
  brewnotify check

  # Upgrade one package, or everything
  brewnotify upgrade wget
  brewnotify upgrade --all

  # Never report a package
  brewnotify ignore add node

  # Is the watcher running, and when does it check next?
  brewnotify status`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "brewnotify: scheduled Homebrew update checks")
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Run 'brewnotify check' to look for outdated packages.")
			fmt.Fprintln(out, "Run 'brewnotify --help' for the full reference.")
			return nil
		},
	}
)

func init() {
	flags := RootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default: ~/.config/brewnotify/config.yaml)")
	flags.StringVar(&dataDir, "data-dir", "", "data directory (default: ~/.brewnotify)")
	flags.StringVar(&brewPath, "brew-path", "", "path to the brew executable (default: auto-detect)")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&logFormat, "log-format", "", "log format: text or json")

	// Enable cobra's built-in suggestion feature for unknown subcommands
	RootCmd.SuggestionsMinimumDistance = 2

	RootCmd.AddCommand(checkCmd)
	RootCmd.AddCommand(upgradeCmd)
	RootCmd.AddCommand(watchCmd)
	RootCmd.AddCommand(settingsCmd)
	RootCmd.AddCommand(ignoreCmd)
	RootCmd.AddCommand(statusCmd)
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}

// rootFlagArgs re-renders the persistent flags that were set, for passing to
// a daemon child.
func rootFlagArgs() []string {
	var args []string
	for _, name := range []string{"config", "data-dir", "brew-path", "log-level", "log-format"} {
		f := RootCmd.PersistentFlags().Lookup(name)
		if f != nil && f.Changed {
			args = append(args, "--"+name, f.Value.String())
		}
	}
	return args
}

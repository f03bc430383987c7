package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/brewnotify/internal/schedule"
	"github.com/blackwell-systems/brewnotify/internal/watcher"
)

var (
	settingsMode     string
	settingsInterval int
	settingsHour     int

	settingsCmd = &cobra.Command{
		Use:   "settings",
		Short: "Show or change the check schedule",
		Long: `Show or change when automatic checks run.

Two schedule modes are available:
  • interval: check every N minutes (default 60)
  • daily: check once a day at a given hour (0-23, local time)

Changes are saved immediately. A running watcher picks them up and
re-arms its timer without a restart.`,
		Example: `  # Show current settings
  brewnotify settings show

  # Check every 30 minutes
  brewnotify settings set --mode interval --interval 30

  # Check every morning at 8
  brewnotify settings set --mode daily --hour 8`,
		RunE: runSettingsShow,
	}

	settingsShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Show the current settings",
		Args:  cobra.NoArgs,
		RunE:  runSettingsShow,
	}

	settingsSetCmd = &cobra.Command{
		Use:   "set",
		Short: "Change the check schedule",
		Args:  cobra.NoArgs,
		RunE:  runSettingsSet,
	}
)

func init() {
	settingsSetCmd.Flags().StringVar(&settingsMode, "mode", "", "schedule mode: interval or daily")
	settingsSetCmd.Flags().IntVar(&settingsInterval, "interval", 0, "minutes between checks in interval mode")
	settingsSetCmd.Flags().IntVar(&settingsHour, "hour", 0, "hour of day (0-23) for daily mode")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd.ErrOrStderr(), false)
	if err != nil {
		return err
	}
	defer e.Close()

	printSettings(cmd.OutOrStdout(), e.settings.Schedule(), e.settings.IgnoredPackages())
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	if !flags.Changed("mode") && !flags.Changed("interval") && !flags.Changed("hour") {
		return fmt.Errorf("nothing to change: pass --mode, --interval or --hour")
	}

	e, err := openEnv(cmd.ErrOrStderr(), false)
	if err != nil {
		return err
	}
	defer e.Close()

	cfg := e.settings.Schedule()
	if flags.Changed("mode") {
		mode, err := schedule.ParseMode(settingsMode)
		if err != nil {
			return err
		}
		cfg.Mode = mode
	}
	if flags.Changed("interval") {
		cfg.IntervalMinutes = settingsInterval
	}
	if flags.Changed("hour") {
		cfg.DailyStartHour = settingsHour
	}

	if err := e.settings.SetSchedule(cfg); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Checks now run %s\n", cfg.Describe())

	if running, _ := watcher.IsDaemonRunning(e.cfg.PIDFile()); running {
		fmt.Fprintln(out, "  The running watcher will reschedule automatically.")
	}
	return nil
}

func printSettings(out io.Writer, cfg schedule.Config, ignored []string) {
	fmt.Fprintf(out, "Schedule:   %s\n", cfg.Describe())
	fmt.Fprintf(out, "  mode:     %s\n", cfg.Mode)
	fmt.Fprintf(out, "  interval: %d minutes\n", cfg.IntervalMinutes)
	fmt.Fprintf(out, "  hour:     %02d:00\n", cfg.DailyStartHour)
	if len(ignored) == 0 {
		fmt.Fprintln(out, "Ignored:    (none)")
		return
	}
	fmt.Fprintf(out, "Ignored:    %s\n", strings.Join(ignored, ", "))
}

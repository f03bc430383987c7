package app

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/brewnotify/internal/brew"
	"github.com/blackwell-systems/brewnotify/internal/output"
	"github.com/blackwell-systems/brewnotify/internal/schedule"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show watcher status and schedule",
	Long: `Display the state of brewnotify.

Shows:
  • Whether the background watcher is running, and its PID
  • The check schedule, and for daily mode the next check time
  • Where brew was found, or how to install it
  • How many packages are on the ignore list
  • Data directory and config file in use`,
	Example: `  # Check status
  brewnotify status`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd.ErrOrStderr(), false)
	if err != nil {
		return err
	}
	defer e.Close()

	out := cmd.OutOrStdout()
	now := time.Now()

	if pid := daemonPID(e.cfg.PIDFile()); pid != 0 {
		fmt.Fprintf(out, "Watcher:    running (PID %d)\n", pid)
	} else {
		fmt.Fprintln(out, "Watcher:    stopped (start with 'brewnotify watch --daemon')")
	}

	cfg := e.settings.Schedule()
	if changed := lastChanged(e); !changed.IsZero() {
		fmt.Fprintf(out, "Schedule:   %s (changed %s)\n", cfg.Describe(), output.FormatRelativeTime(changed))
	} else {
		fmt.Fprintf(out, "Schedule:   %s\n", cfg.Describe())
	}
	if cfg.Mode == schedule.ModeDaily {
		next := schedule.NextDaily(now, cfg.DailyStartHour)
		fmt.Fprintf(out, "Next check: %s (%s)\n", next.Format("Mon Jan 2 15:04"), output.FormatUntil(next))
	}

	if path, err := brew.Locate(e.cfg.BrewPath, brew.DefaultPaths); err != nil {
		fmt.Fprintf(out, "Homebrew:   %v\n", err)
	} else {
		fmt.Fprintf(out, "Homebrew:   %s\n", path)
	}

	fmt.Fprintf(out, "Ignored:    %d package(s)\n", len(e.settings.IgnoredPackages()))
	fmt.Fprintf(out, "Data dir:   %s\n", e.cfg.DataDir)
	if e.cfg.File != "" {
		fmt.Fprintf(out, "Config:     %s\n", e.cfg.File)
	}
	return nil
}

// lastChanged is the most recent write to a stored setting, or zero when
// only defaults are in effect.
func lastChanged(e *env) time.Time {
	stored, err := e.store.ListSettings()
	if err != nil {
		e.log.WithError(err).Debug("failed to list settings")
		return time.Time{}
	}
	var latest time.Time
	for _, st := range stored {
		if st.UpdatedAt.After(latest) {
			latest = st.UpdatedAt
		}
	}
	return latest
}

package app

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/brewnotify/internal/brew"
	"github.com/blackwell-systems/brewnotify/internal/checker"
	"github.com/blackwell-systems/brewnotify/internal/output"
	"github.com/blackwell-systems/brewnotify/internal/watcher"
)

var (
	watchDaemon      bool
	watchDaemonChild bool
	watchPIDFile     string
	watchLogFile     string
	watchStop        bool

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Check for outdated packages on a schedule",
		Long: `Run scheduled outdated checks until stopped.

A check runs immediately on start, then on the configured schedule (see
'brewnotify settings'). Editing the schedule while the watcher runs
re-arms its timer; a check already in progress is never interrupted by a
schedule change.

Watch modes:
  • Foreground (default): Run in current terminal with Ctrl+C to stop
  • Daemon: Run as a detached background process logging to a file
  • Stop: Stop a running daemon`,
		Example: `  # Run in foreground (Ctrl+C to stop)
  brewnotify watch

  # Run as background daemon
  brewnotify watch --daemon

  # Stop running daemon
  brewnotify watch --stop

  # Use custom PID and log files
  brewnotify watch --daemon --pid-file /tmp/watch.pid --log-file /tmp/watch.log`,
		Args: cobra.NoArgs,
		RunE: runWatch,
	}
)

func init() {
	watchCmd.Flags().BoolVar(&watchDaemon, "daemon", false, "run as background daemon")
	watchCmd.Flags().BoolVar(&watchDaemonChild, "daemon-child", false, "internal flag for daemon child process")
	watchCmd.Flags().StringVar(&watchPIDFile, "pid-file", "", "PID file path (default: ~/.brewnotify/watch.pid)")
	watchCmd.Flags().StringVar(&watchLogFile, "log-file", "", "log file path (default: ~/.brewnotify/watch.log)")
	watchCmd.Flags().BoolVar(&watchStop, "stop", false, "stop running daemon")

	// Hide the internal daemon-child flag from help
	watchCmd.Flags().MarkHidden("daemon-child") //nolint:errcheck
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	pidFile := watchPIDFile
	if pidFile == "" {
		pidFile = cfg.PIDFile()
	}
	logFile := watchLogFile
	if logFile == "" {
		logFile = cfg.LogFile()
	}

	switch {
	case watchStop:
		return stopWatchDaemon(cmd, pidFile)
	case watchDaemon:
		return startWatchDaemon(cmd, pidFile, logFile)
	}

	// Foreground logs to the terminal; the daemon child's stdout is the log file.
	logOut := cmd.ErrOrStderr()
	if watchDaemonChild {
		logOut = cmd.OutOrStdout()
	}
	e, err := openEnv(logOut, true)
	if err != nil {
		return err
	}
	defer e.Close()

	chk := checker.New(brew.NewService(e.brewOptions()...), e.settings, checker.WithLogger(e.log))
	defer chk.Close()

	w, err := watcher.New(chk, e.settings, e.log)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	if watchDaemonChild {
		return w.RunDaemon(pidFile)
	}
	return runWatchForeground(cmd, w)
}

func stopWatchDaemon(cmd *cobra.Command, pidFile string) error {
	out := cmd.OutOrStdout()
	running, err := watcher.IsDaemonRunning(pidFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}
	if !running {
		fmt.Fprintln(out, "Daemon is not running")
		return nil
	}

	spinner := output.NewSpinner("Stopping daemon")
	spinner.SetWriter(out)
	spinner.Start()
	if err := watcher.StopDaemon(pidFile, 10*time.Second); err != nil {
		spinner.Stop()
		return fmt.Errorf("failed to stop daemon: %w", err)
	}
	spinner.StopWithMessage("✓ Daemon stopped")
	return nil
}

func startWatchDaemon(cmd *cobra.Command, pidFile, logFile string) error {
	out := cmd.OutOrStdout()

	childArgs := append([]string{"watch", "--daemon-child", "--pid-file", pidFile}, rootFlagArgs()...)

	spinner := output.NewSpinner("Starting daemon")
	spinner.SetWriter(out)
	spinner.Start()
	if err := watcher.StartDaemon(pidFile, logFile, childArgs); err != nil {
		spinner.Stop()
		return fmt.Errorf("failed to start daemon: %w", err)
	}
	spinner.StopWithMessage("✓ Daemon started")

	fmt.Fprintf(out, "\nUpdate-check daemon started\n")
	fmt.Fprintf(out, "  PID file: %s\n", pidFile)
	fmt.Fprintf(out, "  Log file: %s\n", logFile)
	fmt.Fprintf(out, "\nTo stop: brewnotify watch --stop\n")
	return nil
}

func runWatchForeground(cmd *cobra.Command, w *watcher.Watcher) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Watching for outdated packages (press Ctrl+C to stop)...")
	fmt.Fprintln(out)

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	if err := w.Run(ctx); err != nil {
		return fmt.Errorf("watcher failed: %w", err)
	}
	fmt.Fprintln(out, "\n✓ Watcher stopped")
	return nil
}

// daemonPID returns the running daemon's PID, or 0.
func daemonPID(pidFile string) int {
	running, err := watcher.IsDaemonRunning(pidFile)
	if err != nil || !running {
		return 0
	}
	pid, err := watcher.ReadPID(pidFile)
	if err != nil {
		return 0
	}
	return pid
}

// Package watcher runs brewnotify in the background.
//
// A Watcher ties a checker.Checker to the persisted settings: it starts the
// schedule, re-arms it whenever the schedule is edited (including by another
// brewnotify process, observed through fsnotify), and logs when the set of
// outdated packages changes. The daemon helpers fork the current executable
// into a detached child and track it with a PID file.
//
// Example usage:
//
//	w, err := watcher.New(chk, st, log)
//	if err != nil {
//		return err
//	}
//
//	// Run in the foreground until interrupted
//	if err := w.Run(ctx); err != nil {
//		return err
//	}
//
//	// Or detach
//	if err := watcher.StartDaemon(pidFile, logFile, []string{"watch", "--daemon-child"}); err != nil {
//		return err
//	}
package watcher

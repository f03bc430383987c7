package settings

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// DefaultDebounce coalesces the burst of writes SQLite makes for one commit.
const DefaultDebounce = 250 * time.Millisecond

// Watch reloads the settings whenever the database file (or its WAL/journal
// siblings) is written by any process, until ctx is done. Listeners
// registered with OnChange fire only for real changes.
func (s *Settings) Watch(ctx context.Context, debounce time.Duration) error {
	path := s.store.Path()
	if path == "" || path == ":memory:" {
		return fmt.Errorf("cannot watch in-memory settings")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer w.Close()

	// Watch the directory: SQLite replaces and creates sibling files.
	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	base := filepath.Base(path)

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.HasPrefix(filepath.Base(ev.Name), base) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			pending = time.After(debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.WithError(err).Warn("settings watcher error")

		case <-pending:
			pending = nil
			change, err := s.Reload()
			if err != nil {
				s.log.WithError(err).Warn("failed to reload settings")
				continue
			}
			if change.Any() {
				s.log.WithFields(logrus.Fields{
					"schedule": change.Schedule,
					"ignored":  change.Ignored,
				}).Info("settings changed")
			}
		}
	}
}

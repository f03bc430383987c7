package watcher

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/blackwell-systems/brewnotify/internal/checker"
	"github.com/blackwell-systems/brewnotify/internal/settings"
)

// Watcher drives scheduled checks until stopped.
type Watcher struct {
	checker  *checker.Checker
	settings *settings.Settings
	log      logrus.FieldLogger
	debounce time.Duration

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	unsubs   []func()
	reported string // joined names of the last announced result
}

// New creates a Watcher. The checker must not have been started.
func New(chk *checker.Checker, st *settings.Settings, log logrus.FieldLogger) (*Watcher, error) {
	if chk == nil {
		return nil, fmt.Errorf("checker cannot be nil")
	}
	if st == nil {
		return nil, fmt.Errorf("settings cannot be nil")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	w := &Watcher{
		checker:  chk,
		settings: st,
		log:      log,
		debounce: settings.DefaultDebounce,
	}
	st.OnChange(w.settingsChanged)
	return w, nil
}

// Start arms the schedule, runs the startup check and begins watching the
// settings database for edits.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.mu.Unlock()

	// Checker calls happen outside mu: stateChanged takes it on the
	// checker's goroutine.
	unsub := w.checker.Subscribe(w.stateChanged)
	w.mu.Lock()
	w.unsubs = append(w.unsubs, unsub)
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.settings.Watch(ctx, w.debounce); err != nil {
			w.log.WithError(err).Warn("not watching settings for changes")
		}
	}()

	w.log.WithField("schedule", w.settings.Schedule().Describe()).Info("watcher started")
	w.checker.Start()
	return nil
}

// Stop cancels the schedule and the settings watch. A check in flight is
// left to finish; close the checker to abandon it.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.cancel()
	unsubs := w.unsubs
	w.unsubs = nil
	w.mu.Unlock()

	w.wg.Wait()
	w.checker.Stop()
	for _, unsub := range unsubs {
		unsub()
	}
	w.log.Info("watcher stopped")
	return nil
}

// Run starts the watcher and blocks until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	return w.Stop()
}

func (w *Watcher) isRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) settingsChanged(change settings.Change) {
	if !change.Schedule || !w.isRunning() {
		return
	}
	cfg := w.settings.Schedule()
	w.log.WithField("schedule", cfg.Describe()).Info("schedule changed, rescheduling")
	w.checker.Reschedule()
}

// stateChanged runs on the checker's goroutine and must not call back into
// the checker.
func (w *Watcher) stateChanged(s checker.State) {
	if s.IsChecking || s.LastError != "" || s.LastResult == nil {
		return
	}

	var names []string
	for _, pkg := range s.LastResult.All() {
		names = append(names, pkg.Name)
	}
	joined := strings.Join(names, ",")

	w.mu.Lock()
	changed := joined != w.reported
	w.reported = joined
	w.mu.Unlock()

	if !changed {
		return
	}
	if len(names) == 0 {
		w.log.Info("all packages up to date")
		return
	}
	w.log.WithFields(logrus.Fields{
		"count":    len(names),
		"packages": strings.Join(names, ", "),
	}).Info("updates available")
}

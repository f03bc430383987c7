// Package settings is the user-editable configuration of brewnotify: the
// check schedule and the ignore list.
//
// Values are persisted in the SQLite store so that the CLI (which edits them)
// and the daemon (which schedules checks from them) share one source of
// truth. The daemon calls Watch to notice edits made by other processes.
package settings

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/blackwell-systems/brewnotify/internal/schedule"
	"github.com/blackwell-systems/brewnotify/internal/store"
)

// Store keys.
const (
	KeyScheduleMode    = "schedule.mode"
	KeyIntervalMinutes = "schedule.interval_minutes"
	KeyDailyStartHour  = "schedule.daily_start_hour"
)

// Change describes what a settings update touched.
type Change struct {
	Schedule bool
	Ignored  bool
}

// Any reports whether anything changed.
func (c Change) Any() bool {
	return c.Schedule || c.Ignored
}

// Settings caches the persisted settings and notifies listeners on change.
// It is safe for concurrent use.
type Settings struct {
	store    *store.Store
	defaults schedule.Config
	log      logrus.FieldLogger

	mu      sync.RWMutex
	cfg     schedule.Config
	ignored []string

	subsMu sync.Mutex
	subs   []func(Change)
}

// Open creates the settings tables if needed and loads the current values.
// defaults fill in anything that has never been saved.
func Open(st *store.Store, defaults schedule.Config, log logrus.FieldLogger) (*Settings, error) {
	if err := defaults.Validate(); err != nil {
		return nil, fmt.Errorf("invalid default schedule: %w", err)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	if err := st.CreateSchema(); err != nil {
		return nil, err
	}

	s := &Settings{
		store:    st,
		defaults: defaults,
		log:      log,
	}
	cfg, ignored, err := s.load()
	if err != nil {
		return nil, err
	}
	s.cfg = cfg
	s.ignored = ignored
	return s, nil
}

// Schedule returns the current schedule.
func (s *Settings) Schedule() schedule.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// IgnoredPackages returns a copy of the ignore list in the order names were
// added.
func (s *Settings) IgnoredPackages() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.ignored...)
}

// IsIgnored reports whether name is on the ignore list.
func (s *Settings) IsIgnored(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, n := range s.ignored {
		if n == name {
			return true
		}
	}
	return false
}

// OnChange registers fn to be called after every change, whether made
// through this value or picked up by Reload.
func (s *Settings) OnChange(fn func(Change)) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	s.subs = append(s.subs, fn)
}

// SetSchedule validates and persists cfg.
func (s *Settings) SetSchedule(cfg schedule.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	values := map[string]string{
		KeyScheduleMode:    string(cfg.Mode),
		KeyIntervalMinutes: strconv.Itoa(cfg.IntervalMinutes),
		KeyDailyStartHour:  strconv.Itoa(cfg.DailyStartHour),
	}
	for _, key := range []string{KeyScheduleMode, KeyIntervalMinutes, KeyDailyStartHour} {
		if err := s.store.SetSetting(key, values[key]); err != nil {
			return err
		}
	}

	s.mu.Lock()
	changed := s.cfg != cfg
	s.cfg = cfg
	s.mu.Unlock()

	if changed {
		s.notify(Change{Schedule: true})
	}
	return nil
}

// SetMode switches between interval and daily scheduling.
func (s *Settings) SetMode(mode schedule.Mode) error {
	cfg := s.Schedule()
	cfg.Mode = mode
	return s.SetSchedule(cfg)
}

// SetIntervalMinutes sets the period used in interval mode.
func (s *Settings) SetIntervalMinutes(minutes int) error {
	cfg := s.Schedule()
	cfg.IntervalMinutes = minutes
	return s.SetSchedule(cfg)
}

// SetDailyStartHour sets the hour used in daily mode.
func (s *Settings) SetDailyStartHour(hour int) error {
	cfg := s.Schedule()
	cfg.DailyStartHour = hour
	return s.SetSchedule(cfg)
}

// Ignore adds names to the ignore list. It returns how many were new.
func (s *Settings) Ignore(names ...string) (int, error) {
	names = cleanNames(names)
	if len(names) == 0 {
		return 0, nil
	}
	added, err := s.store.AddIgnored(names...)
	if err != nil {
		return 0, err
	}
	if added > 0 {
		if err := s.reloadIgnored(); err != nil {
			return added, err
		}
	}
	return added, nil
}

// Unignore removes names from the ignore list. It returns how many were
// present.
func (s *Settings) Unignore(names ...string) (int, error) {
	names = cleanNames(names)
	if len(names) == 0 {
		return 0, nil
	}
	removed, err := s.store.RemoveIgnored(names...)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		if err := s.reloadIgnored(); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// SetIgnoredPackages replaces the ignore list.
func (s *Settings) SetIgnoredPackages(names []string) error {
	if err := s.store.ReplaceIgnored(cleanNames(names)); err != nil {
		return err
	}
	return s.reloadIgnored()
}

// Reload re-reads the store and notifies listeners when something differs
// from the cached values.
func (s *Settings) Reload() (Change, error) {
	cfg, ignored, err := s.load()
	if err != nil {
		return Change{}, err
	}

	s.mu.Lock()
	change := Change{
		Schedule: s.cfg != cfg,
		Ignored:  !equalNames(s.ignored, ignored),
	}
	s.cfg = cfg
	s.ignored = ignored
	s.mu.Unlock()

	if change.Any() {
		s.notify(change)
	}
	return change, nil
}

func (s *Settings) reloadIgnored() error {
	ignored, err := s.loadIgnored()
	if err != nil {
		return err
	}

	s.mu.Lock()
	changed := !equalNames(s.ignored, ignored)
	s.ignored = ignored
	s.mu.Unlock()

	if changed {
		s.notify(Change{Ignored: true})
	}
	return nil
}

func (s *Settings) load() (schedule.Config, []string, error) {
	cfg := s.defaults

	mode, ok, err := s.store.GetSetting(KeyScheduleMode)
	if err != nil {
		return cfg, nil, err
	}
	if ok {
		if parsed, err := schedule.ParseMode(mode); err == nil {
			cfg.Mode = parsed
		} else {
			s.log.WithError(err).Warn("ignoring stored schedule mode")
		}
	}

	if v, err := s.loadInt(KeyIntervalMinutes, func(n int) bool { return n > 0 }); err != nil {
		return cfg, nil, err
	} else if v != nil {
		cfg.IntervalMinutes = *v
	}

	if v, err := s.loadInt(KeyDailyStartHour, func(n int) bool { return n >= 0 && n <= 23 }); err != nil {
		return cfg, nil, err
	} else if v != nil {
		cfg.DailyStartHour = *v
	}

	ignored, err := s.loadIgnored()
	if err != nil {
		return cfg, nil, err
	}
	return cfg, ignored, nil
}

// loadInt returns nil when key is unset or holds an out-of-range value.
func (s *Settings) loadInt(key string, valid func(int) bool) (*int, error) {
	raw, ok, err := s.store.GetSetting(key)
	if err != nil || !ok {
		return nil, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || !valid(n) {
		s.log.WithFields(logrus.Fields{"key": key, "value": raw}).Warn("ignoring invalid stored setting")
		return nil, nil
	}
	return &n, nil
}

func (s *Settings) loadIgnored() ([]string, error) {
	pkgs, err := s.store.ListIgnored()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(pkgs))
	for _, p := range pkgs {
		names = append(names, p.Name)
	}
	return names, nil
}

func (s *Settings) notify(change Change) {
	s.subsMu.Lock()
	subs := append([]func(Change){}, s.subs...)
	s.subsMu.Unlock()

	for _, fn := range subs {
		fn(change)
	}
}

func cleanNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

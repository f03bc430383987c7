package settings

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/blackwell-systems/brewnotify/internal/schedule"
	"github.com/blackwell-systems/brewnotify/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func openStore(t *testing.T, path string) *store.Store {
	t.Helper()
	st, err := store.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func openSettings(t *testing.T, st *store.Store) *Settings {
	t.Helper()
	s, err := Open(st, schedule.Default(), quietLogger())
	require.NoError(t, err)
	return s
}

type changeRecorder struct {
	mu      sync.Mutex
	changes []Change
}

func (r *changeRecorder) record(c Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *changeRecorder) all() []Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Change(nil), r.changes...)
}

func TestOpen_Defaults(t *testing.T) {
	s := openSettings(t, openStore(t, ":memory:"))

	assert.Equal(t, schedule.Config{Mode: schedule.ModeInterval, IntervalMinutes: 60, DailyStartHour: 9}, s.Schedule())
	assert.Empty(t, s.IgnoredPackages())
	assert.False(t, s.IsIgnored("git"))
}

func TestOpen_CustomDefaults(t *testing.T) {
	defaults := schedule.Config{Mode: schedule.ModeDaily, IntervalMinutes: 15, DailyStartHour: 7}
	s, err := Open(openStore(t, ":memory:"), defaults, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, defaults, s.Schedule())
}

func TestOpen_InvalidDefaults(t *testing.T) {
	_, err := Open(openStore(t, ":memory:"), schedule.Config{Mode: "weekly", IntervalMinutes: 60}, quietLogger())
	assert.Error(t, err)
}

func TestSetSchedule_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brewnotify.db")

	st := openStore(t, path)
	s := openSettings(t, st)
	require.NoError(t, s.SetMode(schedule.ModeDaily))
	require.NoError(t, s.SetDailyStartHour(14))
	require.NoError(t, s.SetIntervalMinutes(30))
	_, err := s.Ignore("git", "firefox")
	require.NoError(t, err)
	st.Close()

	reopened := openSettings(t, openStore(t, path))
	assert.Equal(t, schedule.Config{Mode: schedule.ModeDaily, IntervalMinutes: 30, DailyStartHour: 14}, reopened.Schedule())
	assert.Equal(t, []string{"git", "firefox"}, reopened.IgnoredPackages())
}

func TestSetSchedule_RejectsInvalid(t *testing.T) {
	s := openSettings(t, openStore(t, ":memory:"))
	rec := &changeRecorder{}
	s.OnChange(rec.record)

	assert.Error(t, s.SetIntervalMinutes(0))
	assert.Error(t, s.SetDailyStartHour(24))
	assert.Error(t, s.SetDailyStartHour(-1))
	assert.Error(t, s.SetMode("weekly"))

	assert.Equal(t, schedule.Default(), s.Schedule())
	assert.Empty(t, rec.all())
}

func TestSetSchedule_NotifiesOnlyOnChange(t *testing.T) {
	s := openSettings(t, openStore(t, ":memory:"))
	rec := &changeRecorder{}
	s.OnChange(rec.record)

	require.NoError(t, s.SetIntervalMinutes(60)) // same as default
	require.NoError(t, s.SetIntervalMinutes(5))

	assert.Equal(t, []Change{{Schedule: true}}, rec.all())
}

func TestIgnore_Unignore(t *testing.T) {
	s := openSettings(t, openStore(t, ":memory:"))
	rec := &changeRecorder{}
	s.OnChange(rec.record)

	added, err := s.Ignore("git", " ", "curl", "git")
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Equal(t, []string{"git", "curl"}, s.IgnoredPackages())
	assert.True(t, s.IsIgnored("curl"))

	added, err = s.Ignore("git")
	require.NoError(t, err)
	assert.Zero(t, added)

	removed, err := s.Unignore("curl", "wget")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, []string{"git"}, s.IgnoredPackages())

	assert.Equal(t, []Change{{Ignored: true}, {Ignored: true}}, rec.all())
}

func TestIgnoredPackages_ReturnsCopy(t *testing.T) {
	s := openSettings(t, openStore(t, ":memory:"))
	_, err := s.Ignore("git")
	require.NoError(t, err)

	got := s.IgnoredPackages()
	got[0] = "mutated"
	assert.Equal(t, []string{"git"}, s.IgnoredPackages())
}

func TestSetIgnoredPackages(t *testing.T) {
	s := openSettings(t, openStore(t, ":memory:"))
	_, err := s.Ignore("git")
	require.NoError(t, err)

	require.NoError(t, s.SetIgnoredPackages([]string{"node", "", "python@3.13"}))
	assert.Equal(t, []string{"node", "python@3.13"}, s.IgnoredPackages())
}

func TestReload_PicksUpOtherWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brewnotify.db")
	daemon := openSettings(t, openStore(t, path))
	cli := openSettings(t, openStore(t, path))

	rec := &changeRecorder{}
	daemon.OnChange(rec.record)

	require.NoError(t, cli.SetMode(schedule.ModeDaily))
	_, err := cli.Ignore("git")
	require.NoError(t, err)

	change, err := daemon.Reload()
	require.NoError(t, err)
	assert.Equal(t, Change{Schedule: true, Ignored: true}, change)
	assert.Equal(t, schedule.ModeDaily, daemon.Schedule().Mode)
	assert.Equal(t, []string{"git"}, daemon.IgnoredPackages())

	change, err = daemon.Reload()
	require.NoError(t, err)
	assert.False(t, change.Any())
	assert.Len(t, rec.all(), 1)
}

func TestLoad_IgnoresCorruptValues(t *testing.T) {
	st := openStore(t, ":memory:")
	require.NoError(t, st.CreateSchema())
	require.NoError(t, st.SetSetting(KeyScheduleMode, "fortnightly"))
	require.NoError(t, st.SetSetting(KeyIntervalMinutes, "-5"))
	require.NoError(t, st.SetSetting(KeyDailyStartHour, "noon"))

	s := openSettings(t, st)
	assert.Equal(t, schedule.Default(), s.Schedule())
}

func TestWatch_InMemoryRejected(t *testing.T) {
	s := openSettings(t, openStore(t, ":memory:"))
	assert.Error(t, s.Watch(context.Background(), 0))
}

func TestWatch_ReloadsOnExternalWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brewnotify.db")
	daemon := openSettings(t, openStore(t, path))
	cli := openSettings(t, openStore(t, path))

	changed := make(chan Change, 8)
	daemon.OnChange(func(c Change) { changed <- c })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- daemon.Watch(ctx, 20*time.Millisecond) }()
	defer func() {
		cancel()
		assert.NoError(t, <-done)
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, cli.SetIntervalMinutes(15))

	select {
	case c := <-changed:
		assert.True(t, c.Schedule)
	case <-time.After(5 * time.Second):
		t.Fatal("settings change not observed")
	}
	assert.Equal(t, 15, daemon.Schedule().IntervalMinutes)
}

package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/blackwell-systems/brewnotify/internal/brew"
	"github.com/blackwell-systems/brewnotify/internal/checker"
	"github.com/blackwell-systems/brewnotify/internal/schedule"
	"github.com/blackwell-systems/brewnotify/internal/settings"
	"github.com/blackwell-systems/brewnotify/internal/store"
)

// scriptedFetcher returns queued results in order, then repeats the last.
type scriptedFetcher struct {
	mu      sync.Mutex
	results []*brew.Outdated
	calls   int
}

func (f *scriptedFetcher) FetchOutdated(ctx context.Context, onLine func(string)) (*brew.Outdated, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.results) == 0 {
		return &brew.Outdated{}, nil
	}
	r := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return r, nil
}

func outdated(names ...string) *brew.Outdated {
	out := &brew.Outdated{}
	for _, n := range names {
		out.Formulae = append(out.Formulae, brew.Package{
			Name:              n,
			InstalledVersions: []string{"1.0.0"},
			CurrentVersion:    "1.1.0",
		})
	}
	return out
}

// openSettings opens file-backed settings in dir and registers cleanup.
func openSettings(t *testing.T, dir string) *settings.Settings {
	t.Helper()
	st, err := store.New(filepath.Join(dir, "brewnotify.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	s, err := settings.Open(st, schedule.Default(), nil)
	if err != nil {
		t.Fatalf("settings.Open: %v", err)
	}
	return s
}

type harness struct {
	dir      string
	settings *settings.Settings
	fetcher  *scriptedFetcher
	checker  *checker.Checker
	watcher  *Watcher
	log      *logrus.Logger
	hook     *test.Hook
}

func newHarness(t *testing.T, results ...*brew.Outdated) *harness {
	t.Helper()
	h := &harness{
		dir:     t.TempDir(),
		fetcher: &scriptedFetcher{results: results},
	}
	h.log, h.hook = test.NewNullLogger()
	h.log.SetLevel(logrus.DebugLevel)
	h.settings = openSettings(t, h.dir)

	h.checker = checker.New(h.fetcher, h.settings, checker.WithLogger(h.log))
	t.Cleanup(h.checker.Close)

	w, err := New(h.checker, h.settings, h.log)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	w.debounce = 20 * time.Millisecond
	h.watcher = w
	return h
}

// messages returns every logged message so far.
func (h *harness) messages() []string {
	var msgs []string
	for _, e := range h.hook.AllEntries() {
		msgs = append(msgs, e.Message)
	}
	return msgs
}

func (h *harness) count(msg string) int {
	n := 0
	for _, m := range h.messages() {
		if m == msg {
			n++
		}
	}
	return n
}

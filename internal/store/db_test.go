package store

import (
	"errors"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := s.CreateSchema(); err != nil {
		s.Close()
		t.Fatalf("CreateSchema() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func ignoredNames(t *testing.T, s *Store) []string {
	t.Helper()
	pkgs, err := s.ListIgnored()
	if err != nil {
		t.Fatalf("ListIgnored() failed: %v", err)
	}
	var names []string
	for _, p := range pkgs {
		names = append(names, p.Name)
	}
	return names
}

func equalStrings(a, b []string) bool {
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

// TestGetSetting_NoSchema_ReturnsErrNotInitialized verifies that reading a
// setting from a fresh DB (no CreateSchema) returns ErrNotInitialized.
func TestGetSetting_NoSchema_ReturnsErrNotInitialized(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer s.Close()

	_, _, err = s.GetSetting("schedule.mode")
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("GetSetting() error = %v; want ErrNotInitialized", err)
	}

	_, err = s.ListIgnored()
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("ListIgnored() error = %v; want ErrNotInitialized", err)
	}
}

func TestCreateSchema_Idempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.CreateSchema(); err != nil {
		t.Errorf("second CreateSchema() failed: %v", err)
	}
}

func TestSettings_RoundTrip(t *testing.T) {
	s := newTestStore(t)

	if _, ok, err := s.GetSetting("schedule.mode"); err != nil || ok {
		t.Fatalf("GetSetting() on empty store = ok %v, err %v; want false, nil", ok, err)
	}

	if err := s.SetSetting("schedule.mode", "daily"); err != nil {
		t.Fatalf("SetSetting() failed: %v", err)
	}
	if err := s.SetSetting("schedule.mode", "interval"); err != nil {
		t.Fatalf("SetSetting() overwrite failed: %v", err)
	}
	if err := s.SetSetting("schedule.interval_minutes", "30"); err != nil {
		t.Fatalf("SetSetting() failed: %v", err)
	}

	value, ok, err := s.GetSetting("schedule.mode")
	if err != nil || !ok {
		t.Fatalf("GetSetting() = ok %v, err %v", ok, err)
	}
	if value != "interval" {
		t.Errorf("GetSetting() = %q, want %q", value, "interval")
	}

	all, err := s.ListSettings()
	if err != nil {
		t.Fatalf("ListSettings() failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("ListSettings() returned %d settings, want 2", len(all))
	}
	if all[0].Key != "schedule.interval_minutes" || all[1].Key != "schedule.mode" {
		t.Errorf("ListSettings() not ordered by key: %s, %s", all[0].Key, all[1].Key)
	}
	if all[0].UpdatedAt.IsZero() {
		t.Error("UpdatedAt should be set")
	}
}

func TestIgnored_AddRemove(t *testing.T) {
	s := newTestStore(t)

	added, err := s.AddIgnored("git", "curl", "git")
	if err != nil {
		t.Fatalf("AddIgnored() failed: %v", err)
	}
	if added != 2 {
		t.Errorf("AddIgnored() added %d, want 2 (duplicates skipped)", added)
	}

	if _, err := s.AddIgnored("firefox"); err != nil {
		t.Fatalf("AddIgnored() failed: %v", err)
	}

	if got := ignoredNames(t, s); !equalStrings(got, []string{"git", "curl", "firefox"}) {
		t.Errorf("ListIgnored() = %v, want insertion order [git curl firefox]", got)
	}

	removed, err := s.RemoveIgnored("curl", "not-there")
	if err != nil {
		t.Fatalf("RemoveIgnored() failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("RemoveIgnored() removed %d, want 1", removed)
	}

	if got := ignoredNames(t, s); !equalStrings(got, []string{"git", "firefox"}) {
		t.Errorf("ListIgnored() = %v, want [git firefox]", got)
	}
}

func TestIgnored_Replace(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.AddIgnored("git"); err != nil {
		t.Fatal(err)
	}
	if err := s.ReplaceIgnored([]string{"node", "python@3.13"}); err != nil {
		t.Fatalf("ReplaceIgnored() failed: %v", err)
	}
	if got := ignoredNames(t, s); !equalStrings(got, []string{"node", "python@3.13"}) {
		t.Errorf("ListIgnored() = %v, want [node python@3.13]", got)
	}

	if err := s.ReplaceIgnored(nil); err != nil {
		t.Fatalf("ReplaceIgnored(nil) failed: %v", err)
	}
	if got := ignoredNames(t, s); len(got) != 0 {
		t.Errorf("ListIgnored() = %v, want empty", got)
	}
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brewnotify.db")

	s, err := New(path)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := s.CreateSchema(); err != nil {
		t.Fatal(err)
	}
	if err := s.SetSetting("schedule.daily_start_hour", "14"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddIgnored("git", "curl"); err != nil {
		t.Fatal(err)
	}
	s.Close()

	reopened, err := New(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	if reopened.Path() != path {
		t.Errorf("Path() = %q, want %q", reopened.Path(), path)
	}

	value, ok, err := reopened.GetSetting("schedule.daily_start_hour")
	if err != nil || !ok || value != "14" {
		t.Errorf("GetSetting() = %q, %v, %v; want 14, true, nil", value, ok, err)
	}
	if got := ignoredNames(t, reopened); !equalStrings(got, []string{"git", "curl"}) {
		t.Errorf("ListIgnored() = %v, want [git curl]", got)
	}
}

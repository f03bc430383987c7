package app

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchCommand(t *testing.T) {
	if watchCmd.Use != "watch" {
		t.Errorf("expected Use to be 'watch', got '%s'", watchCmd.Use)
	}
	if watchCmd.Short == "" {
		t.Error("expected Short description to be set")
	}
	if watchCmd.Long == "" {
		t.Error("expected Long description to be set")
	}
	if watchCmd.Example == "" {
		t.Error("expected Example to be set")
	}
	if watchCmd.RunE == nil {
		t.Error("expected RunE to be set")
	}
}

func TestWatchCommandFlags(t *testing.T) {
	tests := []struct {
		flagName     string
		shouldHidden bool
		defValue     string
	}{
		{"daemon", false, "false"},
		{"daemon-child", true, "false"},
		{"pid-file", false, ""},
		{"log-file", false, ""},
		{"stop", false, "false"},
	}

	for _, tt := range tests {
		t.Run(tt.flagName, func(t *testing.T) {
			flag := watchCmd.Flags().Lookup(tt.flagName)
			if flag == nil {
				t.Fatalf("expected flag '%s' to be registered", tt.flagName)
			}
			if flag.Hidden != tt.shouldHidden {
				t.Errorf("flag '%s' hidden = %v, want %v", tt.flagName, flag.Hidden, tt.shouldHidden)
			}
			if flag.DefValue != tt.defValue {
				t.Errorf("flag '%s' default = %q, want %q", tt.flagName, flag.DefValue, tt.defValue)
			}
		})
	}
}

func TestWatchCommandLongDescription(t *testing.T) {
	for _, want := range []string{"Foreground", "Daemon", "Stop", "schedule"} {
		if !strings.Contains(watchCmd.Long, want) {
			t.Errorf("expected Long description to mention %q", want)
		}
	}
}

func TestWatchStop_NotRunning(t *testing.T) {
	data := isolateHome(t)

	stdout, _, err := runCLI(t, "watch", "--stop", "--data-dir", data)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Daemon is not running")
}

func TestWatchStop_StalePIDFile(t *testing.T) {
	data := isolateHome(t)
	require.NoError(t, os.MkdirAll(data, 0755))
	pidFile := filepath.Join(data, "custom.pid")
	// PIDs this large are never assigned on Linux or macOS.
	require.NoError(t, os.WriteFile(pidFile, []byte("99999999\n"), 0644))

	stdout, _, err := runCLI(t, "watch", "--stop", "--pid-file", pidFile, "--data-dir", data)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Daemon is not running")
}

func TestWatchDaemon_AlreadyRunning(t *testing.T) {
	data := isolateHome(t)
	require.NoError(t, os.MkdirAll(data, 0755))
	pidFile := filepath.Join(data, "watch.pid")
	require.NoError(t, os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())+"\n"), 0644))

	_, _, err := runCLI(t, "watch", "--daemon", "--pid-file", pidFile, "--data-dir", data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestStatus_ReportsRunningDaemon(t *testing.T) {
	data := isolateHome(t)
	require.NoError(t, os.MkdirAll(data, 0755))
	pid := os.Getpid()
	require.NoError(t, os.WriteFile(filepath.Join(data, "watch.pid"), []byte(strconv.Itoa(pid)+"\n"), 0644))

	stdout, _, err := runCLI(t, "status", "--data-dir", data, "--brew-path", "/nonexistent/brew")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Watcher:    running (PID "+strconv.Itoa(pid)+")")
}

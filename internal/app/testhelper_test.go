package app

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// fakeBrewScript answers the two brew invocations brewnotify makes.
const fakeBrewScript = `#!/bin/sh
case "$1" in
outdated)
  echo "==> Auto-updated Homebrew!" >&2
  cat <<'JSON'
{"formulae":[{"name":"wget","installed_versions":["1.21.3"],"current_version":"1.24.5","pinned":false},{"name":"node","installed_versions":["21.6.1"],"current_version":"22.1.0","pinned":false}],"casks":[{"name":"firefox","installed_versions":["124.0"],"current_version":"125.0.1"}]}
JSON
  ;;
upgrade)
  if [ "$2" = "broken" ]; then
    echo "Error: broken is not installed" >&2
    exit 1
  fi
  echo "==> Upgrading ${2:-everything}"
  ;;
*)
  exit 1
  ;;
esac
`

// failingBrewScript fails every invocation the way brew does without network.
const failingBrewScript = `#!/bin/sh
echo "Error: Failed to download resource" >&2
exit 1
`

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
}

// writeBrew installs script as an executable and returns its path.
func writeBrew(t *testing.T, script string) string {
	t.Helper()
	requireShell(t)
	path := filepath.Join(t.TempDir(), "brew")
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("failed to write fake brew: %v", err)
	}
	return path
}

// isolateHome points HOME and XDG_CONFIG_HOME at temp dirs so no user config
// or data is touched, and returns a fresh data dir.
func isolateHome(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, key := range []string{
		"BREWNOTIFY_DATA_DIR", "BREWNOTIFY_BREW_PATH", "BREWNOTIFY_LOG_LEVEL",
		"BREWNOTIFY_LOG_FORMAT", "BREWNOTIFY_LOG_DAEMON_LEVEL", "BREWNOTIFY_DEFAULTS_SCHEDULE_MODE",
		"BREWNOTIFY_DEFAULTS_INTERVAL_MINUTES", "BREWNOTIFY_DEFAULTS_DAILY_START_HOUR",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	return filepath.Join(t.TempDir(), "data")
}

// resetFlags restores every flag of cmd and its children to its default so
// package-level flag variables do not leak between Execute calls.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue) //nolint:errcheck
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// runCLI executes the root command with args and returns stdout and stderr.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(RootCmd)
	t.Cleanup(func() { resetFlags(RootCmd) })

	var stdout, stderr bytes.Buffer
	RootCmd.SetOut(&stdout)
	RootCmd.SetErr(&stderr)
	RootCmd.SetArgs(args)
	err := RootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/brewnotify/internal/brew"
	"github.com/blackwell-systems/brewnotify/internal/checker"
	"github.com/blackwell-systems/brewnotify/internal/output"
)

var (
	checkJSON bool

	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Check for outdated packages now",
		Long: `Run 'brew outdated' now and list what can be upgraded.

brew's progress output (auto-update, tap fetches) is shown live on stderr
while the check runs. Packages on the ignore list are left out of the
results and counted in the summary line.`,
		Example: `  # Check with live progress
  brewnotify check

  # Machine-readable results
  brewnotify check --json`,
		Args: cobra.NoArgs,
		RunE: runCheck,
	}
)

func init() {
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "print results as JSON")
}

// checkReport is the --json output.
type checkReport struct {
	Formulae  []brew.Package `json:"formulae"`
	Casks     []brew.Package `json:"casks"`
	Ignored   []string       `json:"ignored"`
	CheckedAt time.Time      `json:"checked_at"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd.ErrOrStderr(), false)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	fetcher := &recordingFetcher{Fetcher: brew.NewService(e.brewOptions()...)}
	state, err := checkOnce(ctx, e, fetcher, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if state.LastError != "" {
		return errors.New(state.LastError)
	}

	result := state.LastResult
	ignored := ignoredNames(fetcher.Last(), result)
	out := cmd.OutOrStdout()

	if checkJSON {
		report := checkReport{
			Formulae:  nonNil(result.Formulae),
			Casks:     nonNil(result.Casks),
			Ignored:   ignored,
			CheckedAt: state.CheckedAt,
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Fprint(out, output.RenderOutdatedTable(result))
	fmt.Fprintln(out)
	fmt.Fprintln(out, output.RenderSummary(result, len(ignored)))
	return nil
}

// checkOnce runs a single check through a Checker, printing brew's progress
// lines to progress, and returns the state it settled in.
func checkOnce(ctx context.Context, e *env, fetcher checker.Fetcher, progress io.Writer) (checker.State, error) {
	chk := checker.New(fetcher, e.settings, checker.WithLogger(e.log))
	defer chk.Close()

	spinner := output.NewSpinner("Checking for outdated packages")
	spinner.SetWriter(progress)

	done := make(chan checker.State, 1)
	unsubState := chk.Subscribe(func(s checker.State) {
		if s.IsChecking {
			return
		}
		select {
		case done <- s:
		default:
		}
	})
	defer unsubState()
	unsubLines := chk.SubscribeLines(spinner.Println)
	defer unsubLines()

	spinner.Start()
	chk.CheckNow()

	select {
	case s := <-done:
		spinner.Stop()
		return s, nil
	case <-ctx.Done():
		spinner.Stop()
		return checker.State{}, ctx.Err()
	}
}

// recordingFetcher keeps the unfiltered result so the command can report
// which outdated packages the ignore list hid.
type recordingFetcher struct {
	checker.Fetcher

	mu   sync.Mutex
	last *brew.Outdated
}

func (f *recordingFetcher) FetchOutdated(ctx context.Context, onLine func(string)) (*brew.Outdated, error) {
	out, err := f.Fetcher.FetchOutdated(ctx, onLine)
	f.mu.Lock()
	f.last = out
	f.mu.Unlock()
	return out, err
}

// Last returns the most recent unfiltered result.
func (f *recordingFetcher) Last() *brew.Outdated {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

// ignoredNames lists packages present in raw but filtered out of shown.
func ignoredNames(raw, shown *brew.Outdated) []string {
	kept := make(map[string]bool, shown.TotalCount())
	for _, p := range shown.All() {
		kept[p.Name] = true
	}
	names := []string{}
	for _, p := range raw.All() {
		if !kept[p.Name] {
			names = append(names, p.Name)
		}
	}
	return names
}

func nonNil(pkgs []brew.Package) []brew.Package {
	if pkgs == nil {
		return []brew.Package{}
	}
	return pkgs
}

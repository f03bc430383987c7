package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/brewnotify/internal/brew"
	"github.com/blackwell-systems/brewnotify/internal/output"
)

var (
	upgradeAll bool

	upgradeCmd = &cobra.Command{
		Use:   "upgrade [package...]",
		Short: "Upgrade packages with live progress",
		Long: `Run 'brew upgrade' for the named packages, or for everything with --all.

All of brew's output is shown as it arrives. Named packages are upgraded one
after another; a failure is reported and the remaining packages are still
attempted. brew's exit code is the only success signal, so --all does not
report which individual packages succeeded.`,
		Example: `  # Upgrade one package
  brewnotify upgrade wget

  # Upgrade several, one at a time
  brewnotify upgrade wget jq node

  # Upgrade everything brew considers outdated
  brewnotify upgrade --all`,
		RunE: runUpgrade,
	}
)

func init() {
	upgradeCmd.Flags().BoolVar(&upgradeAll, "all", false, "upgrade all outdated packages")
}

func runUpgrade(cmd *cobra.Command, args []string) error {
	if upgradeAll && len(args) > 0 {
		return fmt.Errorf("use either package names or --all, not both")
	}
	if !upgradeAll && len(args) == 0 {
		return fmt.Errorf("specify a package to upgrade, or --all")
	}

	e, err := openEnv(cmd.ErrOrStderr(), false)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	up := brew.NewUpgrader(e.brewOptions()...)
	out := cmd.OutOrStdout()

	if upgradeAll {
		return upgradeWithSpinner(ctx, cmd, "all packages", func(onLine func(string)) error {
			return up.UpgradeAll(ctx, onLine)
		})
	}

	for _, name := range args {
		if e.settings.IsIgnored(name) {
			fmt.Fprintf(out, "Note: %s is on your ignore list\n", name)
		}
	}

	if len(args) == 1 {
		name := args[0]
		return upgradeWithSpinner(ctx, cmd, name, func(onLine func(string)) error {
			return up.Upgrade(ctx, name, onLine)
		})
	}

	bar := output.NewProgress(len(args), "")
	bar.SetWriter(out)

	var failed []string
	for _, name := range args {
		bar.SetDescription("Upgrading " + name)
		if err := up.Upgrade(ctx, name, bar.Println); err != nil {
			if ctx.Err() != nil {
				bar.Finish()
				return ctx.Err()
			}
			e.log.WithError(err).WithField("package", name).Warn("upgrade failed")
			bar.Println(fmt.Sprintf("✗ %s: %v", name, err))
			failed = append(failed, name)
		}
		bar.Increment()
	}
	bar.Finish()

	if len(failed) > 0 {
		return fmt.Errorf("failed to upgrade %d of %d packages: %s",
			len(failed), len(args), strings.Join(failed, ", "))
	}
	fmt.Fprintf(out, "✓ Upgraded %d packages\n", len(args))
	return nil
}

func upgradeWithSpinner(ctx context.Context, cmd *cobra.Command, what string, run func(onLine func(string)) error) error {
	spinner := output.NewSpinner("Upgrading " + what)
	spinner.SetWriter(cmd.OutOrStdout())
	spinner.Start()

	// brew announces each phase with a "==> " header; keep the spinner on
	// the current one.
	onLine := func(line string) {
		if phase, ok := strings.CutPrefix(line, "==> "); ok && phase != "" {
			spinner.UpdateMessage(phase)
		}
		spinner.Println(line)
	}

	if err := run(onLine); err != nil {
		spinner.Stop()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("upgrade failed: %w", err)
	}
	spinner.StopWithMessage("✓ Upgraded " + what)
	return nil
}

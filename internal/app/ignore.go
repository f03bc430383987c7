package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	ignoreCmd = &cobra.Command{
		Use:   "ignore",
		Short: "Manage packages left out of check results",
		Long: `Packages on the ignore list never show up in check results or counts,
whether they are formulae or casks. The list is applied when a check
completes, so edits take effect from the next check.`,
		Example: `  # Stop reporting node and firefox
  brewnotify ignore add node firefox

  # Report node again
  brewnotify ignore remove node

  # Show the list
  brewnotify ignore list`,
		RunE: runIgnoreList,
	}

	ignoreAddCmd = &cobra.Command{
		Use:   "add <package>...",
		Short: "Add packages to the ignore list",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runIgnoreAdd,
	}

	ignoreRemoveCmd = &cobra.Command{
		Use:     "remove <package>...",
		Aliases: []string{"rm"},
		Short:   "Remove packages from the ignore list",
		Args:    cobra.MinimumNArgs(1),
		RunE:    runIgnoreRemove,
	}

	ignoreListCmd = &cobra.Command{
		Use:   "list",
		Short: "List ignored packages",
		Args:  cobra.NoArgs,
		RunE:  runIgnoreList,
	}
)

func init() {
	ignoreCmd.AddCommand(ignoreAddCmd)
	ignoreCmd.AddCommand(ignoreRemoveCmd)
	ignoreCmd.AddCommand(ignoreListCmd)
}

func runIgnoreAdd(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd.ErrOrStderr(), false)
	if err != nil {
		return err
	}
	defer e.Close()

	added, err := e.settings.Ignore(args...)
	if err != nil {
		return fmt.Errorf("failed to update ignore list: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Ignoring %d new package(s); %d on the list\n",
		added, len(e.settings.IgnoredPackages()))
	return nil
}

func runIgnoreRemove(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd.ErrOrStderr(), false)
	if err != nil {
		return err
	}
	defer e.Close()

	removed, err := e.settings.Unignore(args...)
	if err != nil {
		return fmt.Errorf("failed to update ignore list: %w", err)
	}
	if removed == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "None of those packages were ignored")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed %d package(s) from the ignore list\n", removed)
	return nil
}

func runIgnoreList(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd.ErrOrStderr(), false)
	if err != nil {
		return err
	}
	defer e.Close()

	out := cmd.OutOrStdout()
	ignored := e.settings.IgnoredPackages()
	if len(ignored) == 0 {
		fmt.Fprintln(out, "No packages are ignored.")
		return nil
	}
	for _, name := range ignored {
		fmt.Fprintln(out, name)
	}
	return nil
}

// Package output renders brewnotify results for the terminal.
//
// Tables use box-drawing rules and ANSI colors when stdout is a terminal and
// NO_COLOR is unset. Progress indicators are safe for concurrent use, which
// matters because brew output lines arrive from a background goroutine.
package output

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/brewnotify/internal/brew"
)

const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

// RenderOutdatedTable lists formulae first, then casks, each in brew's order.
func RenderOutdatedTable(out *brew.Outdated) string {
	if out.TotalCount() == 0 {
		return "Everything is up to date.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-28s %-18s %-18s %-7s %s\n",
		"Package", "Installed", "Current", "Bump", "Kind"))
	sb.WriteString(strings.Repeat("─", 82))
	sb.WriteString("\n")

	for _, pkg := range out.All() {
		installed := pkg.InstalledVersion()
		if installed == "" {
			installed = "-"
		}
		bump := pkg.Bump()
		bumpCell := fmt.Sprintf("%-7s", bump)
		if bump == "" {
			bumpCell = fmt.Sprintf("%-7s", "-")
		}

		sb.WriteString(fmt.Sprintf("%-28s %-18s %-18s %s %s\n",
			truncate(pkg.Name, 28),
			truncate(installed, 18),
			truncate(pkg.CurrentVersion, 18),
			colorize(bumpColor(bump), bumpCell),
			pkg.Kind))
	}

	return sb.String()
}

// RenderSummary is the one-line count shown under the table, e.g.
// "3 outdated (2 formulae, 1 cask), 1 ignored".
func RenderSummary(out *brew.Outdated, ignored int) string {
	formulae, casks := 0, 0
	if out != nil {
		formulae, casks = len(out.Formulae), len(out.Casks)
	}

	s := fmt.Sprintf("%d outdated (%s, %s)",
		formulae+casks,
		plural(formulae, "formula", "formulae"),
		plural(casks, "cask", "casks"))
	if ignored > 0 {
		s += fmt.Sprintf(", %d ignored", ignored)
	}
	return s
}

func bumpColor(bump string) string {
	switch bump {
	case "major":
		return colorRed
	case "minor":
		return colorYellow
	case "patch":
		return colorGreen
	default:
		return colorGray
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}

// FormatRelativeTime renders t relative to now, e.g. "5 minutes ago".
func FormatRelativeTime(t time.Time) string {
	return formatRelativeTime(t, time.Now())
}

// FormatUntil renders the time remaining until t, e.g. "in 42 minutes".
func FormatUntil(t time.Time) string {
	if t.IsZero() {
		return "not scheduled"
	}
	d := time.Until(t).Round(time.Minute)
	switch {
	case d <= 0:
		return "now"
	case d < time.Hour:
		return "in " + plural(int(d.Minutes()), "minute", "minutes")
	default:
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m == 0 {
			return "in " + plural(h, "hour", "hours")
		}
		return fmt.Sprintf("in %dh%02dm", h, m)
	}
}

func formatRelativeTime(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}

	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute", "minutes") + " ago"
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour", "hours") + " ago"
	case diff < 7*24*time.Hour:
		return plural(int(diff.Hours()/24), "day", "days") + " ago"
	default:
		return t.Format("2006-01-02 15:04")
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

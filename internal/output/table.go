// Package output provides terminal output utilities for mons.
//
// This package includes:
//   - Table rendering for installs, mods and per-install details
//   - Status lines (✔ / ✘ / •) for command results
//   - Progress bars for extraction and downloads
//   - Spinners for indeterminate operations
//
// Colors come from fatih/color and are disabled when stdout is not a TTY or
// NO_COLOR is set. Progress indicators are thread-safe and only animate on
// a terminal.
package output

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
)

var (
	green = color.New(color.FgGreen)
	red   = color.New(color.FgRed)
	blue  = color.New(color.FgBlue)
	gray  = color.New(color.FgHiBlack)
	bold  = color.New(color.Bold)
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
func IsColorEnabled() bool {
	return !color.NoColor
}

// InstallRow is one line of the install table.
type InstallRow struct {
	Name    string
	Path    string
	Branch  string
	AddedAt time.Time
}

// RenderInstallTable renders a table of installs sorted by name.
func RenderInstallTable(rows []InstallRow) string {
	if len(rows) == 0 {
		return "No installs found. Add one with 'mons add NAME PATH'.\n"
	}

	sorted := make([]InstallRow, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-16s %-10s %-14s %s\n", "Name", "Branch", "Added", "Path"))
	sb.WriteString(strings.Repeat("─", 72))
	sb.WriteString("\n")

	for _, row := range sorted {
		branch := row.Branch
		if branch == "" {
			branch = "-"
		}
		sb.WriteString(fmt.Sprintf("%-16s %-10s %-14s %s\n",
			truncate(row.Name, 16),
			truncate(branch, 10),
			formatRelativeTime(row.AddedAt),
			row.Path))
	}

	return sb.String()
}

// ModRow is one line of the mod table.
type ModRow struct {
	Name     string
	Version  string
	File     string
	Disabled bool
	Invalid  bool
}

// RenderModTable renders a table of mods in the given order.
func RenderModTable(rows []ModRow) string {
	if len(rows) == 0 {
		return "No mods found.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-32s %-12s %-9s %s\n", "Name", "Version", "Status", "File"))
	sb.WriteString(strings.Repeat("─", 72))
	sb.WriteString("\n")

	for _, row := range rows {
		version := row.Version
		if version == "" {
			version = "-"
		}
		status := green.Sprintf("%-9s", "enabled")
		switch {
		case row.Invalid:
			status = red.Sprintf("%-9s", "invalid")
		case row.Disabled:
			status = gray.Sprintf("%-9s", "disabled")
		}
		sb.WriteString(fmt.Sprintf("%-32s %-12s %s %s\n",
			truncate(row.Name, 32),
			truncate(version, 12),
			status,
			row.File))
	}

	if len(rows) == 1 {
		sb.WriteString("\n1 mod\n")
	} else {
		sb.WriteString(fmt.Sprintf("\n%d mods\n", len(rows)))
	}
	return sb.String()
}

// Info is the detail view of one install.
type Info struct {
	Name        string
	Path        string
	Branch      string
	Version     string
	Framework   bool
	Build       string
	Fingerprint string
	Classified  time.Time
}

// RenderInfo renders the detail view of an install. Fingerprint and
// classification time are shown only when verbose is set.
func RenderInfo(info Info, verbose bool) string {
	var sb strings.Builder

	field := func(label, value string) {
		sb.WriteString(fmt.Sprintf("%-11s %s\n", label+":", value))
	}

	field("Name", bold.Sprint(info.Name))
	field("Path", info.Path)
	field("Version", info.Version)

	switch {
	case !info.Framework:
		field("Everest", gray.Sprint("not installed"))
	case info.Build == "":
		field("Everest", green.Sprint("installed")+" (unknown build)")
	default:
		field("Everest", green.Sprint("installed")+" (build "+info.Build+")")
	}

	branch := info.Branch
	if branch == "" {
		branch = "-"
	}
	field("Branch", branch)

	if verbose {
		field("Hash", info.Fingerprint)
		if !info.Classified.IsZero() {
			field("Classified", info.Classified.Local().Format(time.RFC3339))
		}
	}

	return sb.String()
}

// Success prints a green check line.
func Success(w io.Writer, format string, a ...any) {
	fmt.Fprintln(w, green.Sprint("✔"), fmt.Sprintf(format, a...))
}

// Failure prints a red cross line.
func Failure(w io.Writer, format string, a ...any) {
	fmt.Fprintln(w, red.Sprint("✘"), fmt.Sprintf(format, a...))
}

// Step prints the start of a multi-step operation.
func Step(w io.Writer, format string, a ...any) {
	fmt.Fprintln(w, blue.Sprint(" •"), fmt.Sprintf(format, a...))
}

// Detail prints a dimmed line belonging to the previous step.
func Detail(w io.Writer, format string, a ...any) {
	fmt.Fprintln(w, gray.Sprint("   └"), gray.Sprint(fmt.Sprintf(format, a...)))
}

// formatRelativeTime converts a timestamp to relative time (e.g., "2 days ago").
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}

	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour")
	case diff < 30*24*time.Hour:
		return plural(int(diff.Hours()/24), "day")
	case diff < 365*24*time.Hour:
		return plural(int(diff.Hours()/24/30), "month")
	default:
		return plural(int(diff.Hours()/24/365), "year")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit + " ago"
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// truncate truncates a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
)

func init() {
	color.NoColor = true
}

func TestRenderInstallTable(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		rows     []InstallRow
		contains []string
	}{
		{
			name:     "empty",
			rows:     nil,
			contains: []string{"No installs found"},
		},
		{
			name: "single install",
			rows: []InstallRow{
				{Name: "main", Path: "/games/Celeste/Celeste.exe", Branch: "stable", AddedAt: now.Add(-24 * time.Hour)},
			},
			contains: []string{"main", "stable", "1 day ago", "/games/Celeste/Celeste.exe"},
		},
		{
			name: "missing branch shows dash",
			rows: []InstallRow{
				{Name: "steam", Path: "/s/Celeste.exe", AddedAt: now},
			},
			contains: []string{"steam", " - ", "just now"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RenderInstallTable(tt.rows)
			for _, want := range tt.contains {
				if !strings.Contains(result, want) {
					t.Errorf("RenderInstallTable() missing %q\nGot:\n%s", want, result)
				}
			}
		})
	}
}

func TestRenderInstallTable_SortedByName(t *testing.T) {
	rows := []InstallRow{
		{Name: "zeta", Path: "/z/Celeste.exe"},
		{Name: "alpha", Path: "/a/Celeste.exe"},
	}
	result := RenderInstallTable(rows)

	if strings.Index(result, "alpha") > strings.Index(result, "zeta") {
		t.Errorf("expected alpha before zeta:\n%s", result)
	}
	// The caller's slice is left untouched
	if rows[0].Name != "zeta" {
		t.Error("RenderInstallTable reordered its input")
	}
}

func TestRenderModTable(t *testing.T) {
	tests := []struct {
		name     string
		rows     []ModRow
		contains []string
	}{
		{
			name:     "empty",
			rows:     nil,
			contains: []string{"No mods found"},
		},
		{
			name: "statuses",
			rows: []ModRow{
				{Name: "SpringCollab2020", Version: "1.0.4", File: "SpringCollab.zip"},
				{Name: "MyMap", Version: "1.0", File: "MyMap", Disabled: true},
				{Name: "Broken", File: "Broken", Invalid: true, Disabled: true},
			},
			contains: []string{"SpringCollab2020", "1.0.4", "enabled", "disabled", "invalid", "SpringCollab.zip", "3 mods"},
		},
		{
			name:     "single mod",
			rows:     []ModRow{{Name: "A", Version: "1", File: "A.zip"}},
			contains: []string{"A.zip", "1 mod\n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RenderModTable(tt.rows)
			for _, want := range tt.contains {
				if !strings.Contains(result, want) {
					t.Errorf("RenderModTable() missing %q\nGot:\n%s", want, result)
				}
			}
		})
	}
}

func TestRenderModTable_KeepsOrder(t *testing.T) {
	result := RenderModTable([]ModRow{
		{Name: "zeta", File: "z.zip"},
		{Name: "alpha", File: "a.zip"},
	})
	if strings.Index(result, "zeta") > strings.Index(result, "alpha") {
		t.Errorf("expected rows in input order:\n%s", result)
	}
	if !strings.Contains(result, " - ") {
		t.Errorf("missing version should show a dash:\n%s", result)
	}
}

func TestRenderInfo(t *testing.T) {
	tests := []struct {
		name     string
		info     Info
		verbose  bool
		contains []string
		excludes []string
	}{
		{
			name: "vanilla",
			info: Info{
				Name:        "main",
				Path:        "/g/Celeste.exe",
				Branch:      "stable",
				Version:     "1.4.0.0-FNA",
				Fingerprint: "f1c4967fa8f1f113858327590e274b69",
			},
			contains: []string{"main", "1.4.0.0-FNA", "not installed", "stable"},
			excludes: []string{"f1c4967fa8f1f113858327590e274b69"},
		},
		{
			name: "everest with build",
			info: Info{
				Name:      "modded",
				Version:   "1.4.0.0-FNA + 1.4465.0",
				Framework: true,
				Build:     "4465",
			},
			contains: []string{"installed (build 4465)", "Branch:     -"},
		},
		{
			name: "everest unknown build",
			info: Info{Name: "old", Framework: true},
			contains: []string{"installed (unknown build)"},
		},
		{
			name: "verbose shows hash",
			info: Info{
				Name:        "main",
				Fingerprint: "f1c4967fa8f1f113858327590e274b69",
				Classified:  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
			},
			verbose:  true,
			contains: []string{"Hash:", "f1c4967fa8f1f113858327590e274b69", "Classified:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RenderInfo(tt.info, tt.verbose)
			for _, want := range tt.contains {
				if !strings.Contains(result, want) {
					t.Errorf("RenderInfo() missing %q\nGot:\n%s", want, result)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(result, unwanted) {
					t.Errorf("RenderInfo() should not contain %q\nGot:\n%s", unwanted, result)
				}
			}
		})
	}
}

func TestStatusLines(t *testing.T) {
	var buf bytes.Buffer

	Success(&buf, "installed %s", "main")
	Failure(&buf, "failed: %d", 3)
	Step(&buf, "Downloading")
	Detail(&buf, "build %d", 4465)

	want := []string{"✔ installed main", "✘ failed: 3", " • Downloading", "   └ build 4465"}
	got := buf.String()
	for _, w := range want {
		if !strings.Contains(got, w) {
			t.Errorf("missing %q in:\n%s", w, got)
		}
	}
}

func TestIsColorEnabled(t *testing.T) {
	old := color.NoColor
	defer func() { color.NoColor = old }()

	color.NoColor = true
	if IsColorEnabled() {
		t.Error("IsColorEnabled() should be false when color.NoColor is set")
	}
	color.NoColor = false
	if !IsColorEnabled() {
		t.Error("IsColorEnabled() should be true when color.NoColor is unset")
	}
}

func TestFormatRelativeTime(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name string
		time time.Time
		want string
	}{
		{"zero", time.Time{}, "unknown"},
		{"just now", now.Add(-30 * time.Second), "just now"},
		{"1 minute", now.Add(-90 * time.Second), "1 minute ago"},
		{"minutes", now.Add(-5 * time.Minute), "5 minutes ago"},
		{"1 hour", now.Add(-1 * time.Hour), "1 hour ago"},
		{"hours", now.Add(-5 * time.Hour), "5 hours ago"},
		{"1 day", now.Add(-24 * time.Hour), "1 day ago"},
		{"days", now.Add(-5 * 24 * time.Hour), "5 days ago"},
		{"1 month", now.Add(-31 * 24 * time.Hour), "1 month ago"},
		{"months", now.Add(-90 * 24 * time.Hour), "3 months ago"},
		{"1 year", now.Add(-366 * 24 * time.Hour), "1 year ago"},
		{"years", now.Add(-800 * 24 * time.Hour), "2 years ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatRelativeTime(tt.time); got != tt.want {
				t.Errorf("formatRelativeTime() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input  string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly10c", 10, "exactly10c"},
		{"this is a long string", 10, "this is..."},
		{"abcdef", 3, "abc"},
	}

	for _, tt := range tests {
		if got := truncate(tt.input, tt.maxLen); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
		}
	}
}

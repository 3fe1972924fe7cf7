package app

import (
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"
)

func TestLaunchArgs(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		console     bool
		wantArgs    []string
		wantConsole bool
	}{
		{"detached", []string{"--loglevel", "verbose"}, false, []string{"--loglevel", "verbose"}, false},
		{"console flag forwarded", []string{"--loglevel", "verbose"}, true, []string{"--loglevel", "verbose", "--console"}, true},
		{"console after name", []string{"--console", "-x"}, false, []string{"--console", "-x"}, true},
		{"console given twice", []string{"--console"}, true, []string{"--console"}, true},
		{"no args", nil, true, []string{"--console"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := slices.Clone(tt.args)
			got, console := launchArgs(tt.args, tt.console)
			if !slices.Equal(got, tt.wantArgs) {
				t.Errorf("args = %q, want %q", got, tt.wantArgs)
			}
			if console != tt.wantConsole {
				t.Errorf("console = %v, want %v", console, tt.wantConsole)
			}
			if !slices.Equal(tt.args, in) {
				t.Errorf("input args modified: %q", tt.args)
			}
		})
	}
}

// echoGame registers an install whose native launcher prints its arguments.
func echoGame(t *testing.T, env *testEnv) {
	t.Helper()
	if runtime.GOOS != "linux" {
		t.Skip("launcher scripts need linux")
	}
	game := gameDir(t)
	script := "#!/bin/sh\necho \"game args: $*\"\n"
	if err := os.WriteFile(filepath.Join(game, "Celeste"), []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	env.mustRun(t, "add", "main", game)
}

func TestLaunch_ForwardsGameFlags(t *testing.T) {
	env := newTestEnv(t)
	echoGame(t, env)

	out := env.mustRun(t, "launch", "main", "--console", "--loglevel", "verbose")
	if !strings.Contains(out, "game args: --console --loglevel verbose") {
		t.Errorf("game flags should be passed through unchanged:\n%s", out)
	}
}

func TestLaunch_ConsoleFlagBeforeName(t *testing.T) {
	env := newTestEnv(t)
	echoGame(t, env)

	out := env.mustRun(t, "launch", "--console", "main", "-x")
	if !strings.Contains(out, "game args: -x --console") {
		t.Errorf("--console should be forwarded to the game:\n%s", out)
	}
}

func TestLaunch_DefaultInstall(t *testing.T) {
	env := newTestEnv(t)
	echoGame(t, env)
	t.Setenv(defaultInstallEnv, "main")

	out := env.mustRun(t, "launch", "--console", "--", "--fast")
	if !strings.Contains(out, "game args: --fast --console") {
		t.Errorf("args should go to the default install's game:\n%s", out)
	}
}

func TestLaunch_UnknownInstall(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv(defaultInstallEnv, "")

	if _, err := env.run(t, "", "launch"); err == nil || !strings.Contains(err.Error(), defaultInstallEnv) {
		t.Errorf("expected missing default install error, got %v", err)
	}
	if _, err := env.run(t, "", "launch", "nope"); err == nil {
		t.Error("expected error for unknown install")
	}
}

package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWatchCommand(t *testing.T) {
	if watchCmd.Use != "watch" {
		t.Errorf("expected Use to be 'watch', got '%s'", watchCmd.Use)
	}

	for _, name := range []string{"daemon", "stop", "pid-file", "log-file", "daemon-child"} {
		if watchCmd.Flags().Lookup(name) == nil {
			t.Errorf("expected --%s flag to be registered", name)
		}
	}
	if !watchCmd.Flags().Lookup("daemon-child").Hidden {
		t.Error("expected --daemon-child to be hidden")
	}
}

func TestWatch_StopWhenNotRunning(t *testing.T) {
	env := newTestEnv(t)
	out := env.mustRun(t, "watch", "--stop")
	if !strings.Contains(out, "Daemon is not running") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestWatch_StopRemovesStalePIDFile(t *testing.T) {
	env := newTestEnv(t)
	pidFile := filepath.Join(t.TempDir(), "watch.pid")
	// PIDs this large are never assigned
	if err := os.WriteFile(pidFile, []byte("999999999\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out := env.mustRun(t, "watch", "--stop", "--pid-file", pidFile)
	if !strings.Contains(out, "Daemon is not running") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if _, err := os.Stat(pidFile); !os.IsNotExist(err) {
		t.Error("expected stale PID file to be removed")
	}
}

func TestWatch_NoInstalls(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.run(t, "", "watch"); err == nil {
		t.Error("expected watch to fail without installs")
	}
}

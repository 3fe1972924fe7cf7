package launcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestIsRunning_DetectsOwnProcess(t *testing.T) {
	exe, err := os.Executable()
	if err != nil {
		t.Skipf("cannot determine test executable: %v", err)
	}

	running, err := IsRunning(context.Background(), filepath.Dir(exe))
	if err != nil {
		t.Fatalf("IsRunning() error: %v", err)
	}
	if !running {
		t.Error("expected the test binary's directory to have a running process")
	}
}

func TestIsRunning_EmptyDir(t *testing.T) {
	running, err := IsRunning(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("IsRunning() error: %v", err)
	}
	if running {
		t.Error("no process should run from a fresh temp dir")
	}
}

func TestWithin(t *testing.T) {
	dir := filepath.Join(string(filepath.Separator), "games", "celeste")
	tests := []struct {
		path string
		want bool
	}{
		{filepath.Join(dir, "Celeste.bin.x86_64"), true},
		{filepath.Join(dir, "lib", "x"), true},
		{filepath.Join(dir+"2", "Celeste"), false},
		{filepath.Join(string(filepath.Separator), "usr", "bin", "sh"), false},
	}
	for _, tt := range tests {
		if got := within(dir, tt.path); got != tt.want {
			t.Errorf("within(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

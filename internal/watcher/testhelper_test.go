package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/blackwell-systems/mons/internal/install"
)

// recorder collects handler calls.
type recorder struct {
	mu    sync.Mutex
	calls []string
	ch    chan string
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan string, 16)}
}

func (r *recorder) handle(ctx context.Context, name string) error {
	r.mu.Lock()
	r.calls = append(r.calls, name)
	r.mu.Unlock()
	r.ch <- name
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// newTestInstall creates an install directory with a placeholder executable.
func newTestInstall(t *testing.T, name string) install.Install {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, install.ExeName)
	if err := os.WriteFile(path, []byte("MZ original"), 0644); err != nil {
		t.Fatalf("newTestInstall: %v", err)
	}
	return install.Install{Name: name, Path: path}
}

func newTestWatcher(t *testing.T, r *recorder) *Watcher {
	t.Helper()
	w, err := New(r.handle, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { w.Stop() })
	return w
}

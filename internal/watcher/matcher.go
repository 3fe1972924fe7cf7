package watcher

import (
	"fmt"
	"path/filepath"

	"github.com/blackwell-systems/mons/internal/install"
)

// SetInstalls replaces the tracked executables and watches their
// directories. Directories that cannot be watched are skipped with a
// warning; an error is returned only when none could be watched.
func (w *Watcher) SetInstalls(installs []install.Install) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.paths = make(map[string]string, len(installs))
	dirs := make(map[string]bool)
	for _, inst := range installs {
		path := filepath.Clean(inst.Path)
		w.paths[path] = inst.Name
		dirs[filepath.Dir(path)] = true
	}

	for dir := range w.watched {
		if !dirs[dir] {
			w.fs.Remove(dir)
			delete(w.watched, dir)
		}
	}

	var lastErr error
	for dir := range dirs {
		if w.watched[dir] {
			continue
		}
		if err := w.fs.Add(dir); err != nil {
			w.logger.Warn("cannot watch install directory", "dir", dir, "error", err)
			lastErr = err
			continue
		}
		w.watched[dir] = true
	}

	if len(dirs) > 0 && len(w.watched) == 0 {
		return fmt.Errorf("failed to watch any install directory: %w", lastErr)
	}
	return nil
}

// MatchPath matches a file path to an install name.
// Returns the install name and true if found, empty string and false otherwise.
func (w *Watcher) MatchPath(path string) (string, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	path = filepath.Clean(path)
	if name, ok := w.paths[path]; ok {
		return name, true
	}

	resolved, err := filepath.EvalSymlinks(path)
	if err == nil && resolved != path {
		if name, ok := w.paths[resolved]; ok {
			return name, true
		}
	}

	return "", false
}

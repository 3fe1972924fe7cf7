// Package install models registered game installs and keeps them persisted.
package install

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
	"unicode"
)

var (
	// ErrNotFound is returned when no install has the requested name.
	ErrNotFound = errors.New("install not found")
	// ErrExists is returned when adding or renaming onto a name in use.
	ErrExists = errors.New("install already exists")
	// ErrNoExecutable is returned when a path holds no game executable.
	ErrNoExecutable = errors.New("no game executable found")
)

// Executable names probed during discovery, in order.
const (
	ExeName = "Celeste.exe"
	DLLName = "Celeste.dll"
)

// Install is a named game installation.
type Install struct {
	Name string
	// Path is the managed game executable.
	Path            string
	PreferredBranch string
	AddedAt         time.Time
}

// Dir returns the directory holding the executable.
func (i Install) Dir() string {
	return filepath.Dir(i.Path)
}

// OrigPath returns where the framework installer keeps a backup of the
// unpatched executable. The backup is always Celeste.exe, also for installs
// tracked through Celeste.dll.
func (i Install) OrigPath() string {
	return filepath.Join(i.Dir(), "orig", ExeName)
}

// ValidateName rejects names that cannot be typed as a single argument.
func ValidateName(name string) error {
	if name == "" {
		return errors.New("install name must not be empty")
	}
	if strings.HasPrefix(name, "-") {
		return fmt.Errorf("install name %q must not start with '-'", name)
	}
	if strings.IndexFunc(name, unicode.IsSpace) >= 0 {
		return fmt.Errorf("install name %q must not contain whitespace", name)
	}
	return nil
}

// FindExecutable resolves a user supplied path to the game executable. The
// path may name the executable itself, the install directory, or a macOS
// app bundle.
func FindExecutable(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}

	if !info.IsDir() {
		if isExecutableName(filepath.Base(abs)) {
			return abs, nil
		}
		return "", fmt.Errorf("%w: %s is not %s", ErrNoExecutable, abs, ExeName)
	}

	dir := abs
	if strings.HasSuffix(dir, ".app") {
		dir = filepath.Join(dir, "Contents", "Resources")
	}

	for _, name := range executableNames() {
		candidate := filepath.Join(dir, name)
		if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w in %s", ErrNoExecutable, dir)
}

func executableNames() []string {
	if runtime.GOOS == "windows" {
		return []string{ExeName}
	}
	return []string{ExeName, DLLName}
}

func isExecutableName(base string) bool {
	for _, name := range executableNames() {
		if strings.EqualFold(base, name) {
			return true
		}
	}
	return false
}

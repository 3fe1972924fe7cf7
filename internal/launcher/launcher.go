// Package launcher runs the framework installer and the game itself.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Platform selects the per-OS executable layout.
type Platform struct {
	GOOS   string
	GOARCH string
}

// Current returns the platform mons is running on.
func Current() Platform {
	return Platform{GOOS: runtime.GOOS, GOARCH: runtime.GOARCH}
}

func (p Platform) binSuffix() string {
	if p.GOARCH == "amd64" {
		return "x86_64"
	}
	return "x86"
}

// Installer returns the installer to run for the install in dir. When
// kickstart is not empty, the installer is a copy of that native launcher
// which picks the managed entry point from its own file name.
func (p Platform) Installer(dir string) (kickstart, installer string) {
	switch p.GOOS {
	case "windows":
		return "", filepath.Join(dir, "MiniInstaller.exe")
	case "darwin":
		macos := filepath.Join(filepath.Dir(dir), "MacOS")
		return filepath.Join(macos, "Celeste"), filepath.Join(macos, "MiniInstaller")
	default:
		suffix := p.binSuffix()
		return filepath.Join(dir, "Celeste.bin."+suffix), filepath.Join(dir, "MiniInstaller.bin."+suffix)
	}
}

// GamePath returns the native executable that starts the game whose managed
// executable is exe.
func (p Platform) GamePath(exe string) string {
	switch p.GOOS {
	case "windows":
		return exe
	case "darwin":
		return filepath.Join(filepath.Dir(filepath.Dir(exe)), "MacOS", "Celeste")
	default:
		return strings.TrimSuffix(exe, filepath.Ext(exe))
	}
}

// InstallerError reports a non-zero installer exit code.
type InstallerError struct {
	Code int
}

func (e *InstallerError) Error() string {
	return fmt.Sprintf("installer exited with code %d", e.Code)
}

// Runner starts installer and game processes.
type Runner struct {
	Platform Platform
	Stdout   io.Writer
	Stderr   io.Writer
	Logger   *slog.Logger
}

// NewRunner returns a runner for the current platform wired to the process
// stdio.
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{
		Platform: Current(),
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		Logger:   logger,
	}
}

// RunInstaller patches the install in dir. Installer output is shown only
// when verbose is set; errors are always shown. A non-zero exit code is
// returned as *InstallerError.
func (r *Runner) RunInstaller(ctx context.Context, dir string, verbose bool) error {
	kickstart, installer := r.Platform.Installer(dir)

	if kickstart != "" {
		if err := copyFile(kickstart, installer); err != nil {
			return fmt.Errorf("failed to prepare installer: %w", err)
		}
		defer os.Remove(installer)
	}

	r.Logger.Debug("running installer", "path", installer, "dir", dir)

	cmd := exec.CommandContext(ctx, installer)
	cmd.Dir = dir
	if verbose {
		cmd.Stdout = r.Stdout
	}
	cmd.Stderr = r.Stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &InstallerError{Code: exitErr.ExitCode()}
		}
		return fmt.Errorf("failed to run installer: %w", err)
	}
	return nil
}

// Launch starts the game for the managed executable exe with args. With
// console set, stdio stays attached and Launch waits for the game to exit;
// otherwise the process is detached.
func (r *Runner) Launch(ctx context.Context, exe string, args []string, console bool) error {
	path := r.Platform.GamePath(exe)
	r.Logger.Debug("launching game", "path", path, "args", args, "console", console)

	if console {
		cmd := exec.CommandContext(ctx, path, args...)
		cmd.Dir = filepath.Dir(path)
		cmd.Stdout = r.Stdout
		cmd.Stderr = r.Stderr
		cmd.Stdin = os.Stdin
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("game exited: %w", err)
		}
		return nil
	}

	cmd := exec.Command(path, args...)
	cmd.Dir = filepath.Dir(path)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to launch %s: %w", path, err)
	}
	return cmd.Process.Release()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}

// ProcessDir returns the directory a running game started from exe
// executes in.
func (p Platform) ProcessDir(exe string) string {
	return filepath.Dir(p.GamePath(exe))
}

package everest

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	// NestedArtifact is the inner zip of an olympus-build artifact.
	NestedArtifact = "olympus-build/build.zip"
	// MainPrefix is the directory holding the files of a main artifact.
	MainPrefix = "main/"
)

// ErrUnsafePath is returned for archive entries escaping the destination.
var ErrUnsafePath = errors.New("archive entry escapes destination")

// Progress receives one Increment per extracted file.
type Progress interface {
	Increment()
	Finish()
}

// Extract unpacks a build artifact into dest and returns the number of
// files written. Both layouts are supported: an outer zip carrying
// NestedArtifact, and a flat zip whose files live under MainPrefix.
// newProgress may be nil.
func Extract(artifact, dest string, newProgress func(total int) Progress) (int, error) {
	outer, err := zip.OpenReader(artifact)
	if err != nil {
		return 0, fmt.Errorf("failed to open artifact: %w", err)
	}
	defer outer.Close()

	for _, f := range outer.File {
		if f.Name != NestedArtifact {
			continue
		}
		nested, err := openNested(f)
		if err != nil {
			return 0, err
		}
		return unpack(nested, dest, "", newProgress)
	}

	return unpack(&outer.Reader, dest, MainPrefix, newProgress)
}

func openNested(f *zip.File) (*zip.Reader, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to create zip reader for %s: %w", f.Name, err)
	}
	return zr, nil
}

type entry struct {
	file *zip.File
	rel  string
}

func unpack(zr *zip.Reader, dest, prefix string, newProgress func(total int) Progress) (int, error) {
	var entries []entry
	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, prefix) {
			continue
		}
		rel := strings.TrimPrefix(f.Name, prefix)
		if rel == "" {
			continue
		}
		entries = append(entries, entry{file: f, rel: rel})
	}
	if len(entries) == 0 {
		return 0, fmt.Errorf("artifact has no files under %q", prefix)
	}

	var progress Progress
	if newProgress != nil {
		progress = newProgress(len(entries))
		defer progress.Finish()
	}

	written := 0
	for _, e := range entries {
		target, err := safeJoin(dest, e.rel)
		if err != nil {
			return written, err
		}

		if e.file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return written, fmt.Errorf("failed to create directory %s: %w", target, err)
			}
		} else {
			if err := writeEntry(e.file, target); err != nil {
				return written, err
			}
			written++
		}

		if progress != nil {
			progress.Increment()
		}
	}
	return written, nil
}

func writeEntry(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", filepath.Dir(target), err)
	}

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", target, err)
	}
	defer out.Close()

	contents, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", f.Name, err)
	}
	defer contents.Close()

	if _, err := io.Copy(out, contents); err != nil {
		return fmt.Errorf("failed to copy data to file %s: %w", target, err)
	}
	return out.Close()
}

func safeJoin(dest, name string) (string, error) {
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	target := filepath.Join(dest, filepath.FromSlash(name))
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return target, nil
}

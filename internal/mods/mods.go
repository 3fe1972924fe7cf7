// Package mods reads the mods installed in a game's Mods folder.
//
// A mod is a directory or a zip archive holding an everest.yaml manifest at
// its root. Mods named in blacklist.txt are installed but disabled.
package mods

import (
	"archive/zip"
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DirName is the mods folder inside a game directory.
	DirName = "Mods"
	// BlacklistName lists disabled mods by file name, one per line.
	BlacklistName = "blacklist.txt"
)

// manifestNames are the accepted manifest file names, in lookup order.
var manifestNames = []string{"everest.yaml", "everest.yml"}

// Dependency names another mod and its minimum version.
type Dependency struct {
	Name    string `yaml:"Name"`
	Version string `yaml:"Version"`
}

// Meta describes an installed mod. Only the first module of a manifest is
// read.
type Meta struct {
	Name                 string       `yaml:"Name"`
	Version              string       `yaml:"Version"`
	DLL                  string       `yaml:"DLL,omitempty"`
	Dependencies         []Dependency `yaml:"Dependencies,omitempty"`
	OptionalDependencies []Dependency `yaml:"OptionalDependencies,omitempty"`

	// Path is the mod directory or archive.
	Path string `yaml:"-"`
	// Dir is set when the mod is a directory rather than a zip.
	Dir         bool `yaml:"-"`
	Blacklisted bool `yaml:"-"`
	// Valid is false when no manifest could be read. Name is then the file
	// name of Path.
	Valid bool `yaml:"-"`
}

// Dir returns the mods folder of the game directory gameDir.
func Dir(gameDir string) string {
	return filepath.Join(gameDir, DirName)
}

// File returns the file name of the mod in the mods folder.
func (m Meta) File() string {
	return filepath.Base(m.Path)
}

// DependsOn reports whether name is a required dependency of m.
func (m Meta) DependsOn(name string) bool {
	return slices.ContainsFunc(m.Dependencies, func(d Dependency) bool {
		return d.Name == name
	})
}

// Details renders m as YAML, including where it is installed.
func (m Meta) Details() (string, error) {
	view := struct {
		Meta    `yaml:",inline"`
		Path    string `yaml:"Path"`
		Enabled bool   `yaml:"Enabled"`
	}{m, m.Path, !m.Blacklisted}
	b, err := yaml.Marshal(view)
	if err != nil {
		return "", fmt.Errorf("failed to format %s: %w", m.File(), err)
	}
	return string(b), nil
}

// ParseManifest reads the first module of an everest.yaml document.
func ParseManifest(r io.Reader) (Meta, error) {
	var modules []Meta
	if err := yaml.NewDecoder(r).Decode(&modules); err != nil {
		return Meta{}, fmt.Errorf("invalid manifest: %w", err)
	}
	if len(modules) == 0 || modules[0].Name == "" {
		return Meta{}, errors.New("invalid manifest: no module name")
	}
	m := modules[0]
	m.Valid = true
	return m, nil
}

// ReadBlacklist returns the file names listed in the blacklist at path.
// Lines starting with '#' are comments. A missing file is an empty list.
func ReadBlacklist(path string) (map[string]bool, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]bool{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	names := make(map[string]bool)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		if name := strings.TrimSpace(line); name != "" {
			names[name] = true
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return names, nil
}

// List returns the mods in dir sorted by file name. Entries that are neither
// directories nor zip archives are skipped. A missing dir has no mods.
func List(dir string) ([]Meta, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read mods folder: %w", err)
	}

	blacklist, err := ReadBlacklist(filepath.Join(dir, BlacklistName))
	if err != nil {
		return nil, err
	}

	var mods []Meta
	for _, e := range entries {
		name := e.Name()
		isDir := e.IsDir()
		if !isDir && !strings.EqualFold(filepath.Ext(name), ".zip") {
			continue
		}

		path := filepath.Join(dir, name)
		m, err := Read(path, isDir)
		if err != nil {
			m = Meta{Name: name}
		}
		m.Path = path
		m.Dir = isDir
		m.Blacklisted = blacklist[name]
		mods = append(mods, m)
	}
	return mods, nil
}

// Read returns the manifest of the mod at path.
func Read(path string, isDir bool) (Meta, error) {
	if isDir {
		return readDir(path)
	}
	return readZip(path)
}

func readDir(path string) (Meta, error) {
	for _, name := range manifestNames {
		f, err := os.Open(filepath.Join(path, name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Meta{}, err
		}
		defer f.Close()
		return ParseManifest(f)
	}
	return Meta{}, fmt.Errorf("%s: no everest.yaml", path)
}

func readZip(path string) (Meta, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return Meta{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer zr.Close()

	for _, name := range manifestNames {
		f, err := zr.Open(name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Meta{}, err
		}
		defer f.Close()
		return ParseManifest(f)
	}
	return Meta{}, fmt.Errorf("%s: no everest.yaml", path)
}

// Filter selects mods. Nil fields match everything.
type Filter struct {
	Enabled *bool
	Valid   *bool
	DLL     *bool
	Dir     *bool
	// Dependency keeps mods that require the named mod.
	Dependency string
	// Search is matched against the mod name and file name.
	Search *regexp.Regexp
}

// Match reports whether m passes every set condition.
func (f Filter) Match(m Meta) bool {
	switch {
	case f.Enabled != nil && *f.Enabled == m.Blacklisted:
		return false
	case f.Valid != nil && *f.Valid != m.Valid:
		return false
	case f.DLL != nil && *f.DLL != (m.DLL != ""):
		return false
	case f.Dir != nil && *f.Dir != m.Dir:
		return false
	case f.Dependency != "" && !m.DependsOn(f.Dependency):
		return false
	case f.Search != nil && !f.Search.MatchString(m.Name) && !f.Search.MatchString(m.File()):
		return false
	}
	return true
}

// Apply returns the mods in ms that match f.
func (f Filter) Apply(ms []Meta) []Meta {
	var out []Meta
	for _, m := range ms {
		if f.Match(m) {
			out = append(out, m)
		}
	}
	return out
}

package clrmeta

import (
	"strings"
)

const (
	// DefaultMarkerPrefix starts the string the modding framework embeds to
	// record its build number, e.g. "EverestBuild4465".
	DefaultMarkerPrefix = "EverestBuild"

	// DefaultModuleName is a type name only present in patched executables.
	// It marks the framework as installed when no build marker exists.
	DefaultModuleName = "EverestModule"
)

// Marker is the outcome of a string heap scan.
type Marker struct {
	// Installed is true when the framework was detected.
	Installed bool
	// Build is the text following the marker prefix. Empty when only the
	// module name was found.
	Build string
	// Offset is the heap offset of the matching entry.
	Offset uint32
}

// Scanner looks for the framework marker in a string heap.
type Scanner struct {
	Prefix     string
	ModuleName string
}

// DefaultScanner scans for DefaultMarkerPrefix and DefaultModuleName.
var DefaultScanner = Scanner{Prefix: DefaultMarkerPrefix, ModuleName: DefaultModuleName}

// Scan walks heap from offset zero and stops at the first entry starting with
// the marker prefix. Reaching the end of the heap is not an error; the
// returned Marker then reports whether the module name was seen.
func (s Scanner) Scan(heap []byte) Marker {
	prefix := s.Prefix
	if prefix == "" {
		prefix = DefaultMarkerPrefix
	}

	var m Marker
	for off, entry := range Strings(heap) {
		if strings.HasPrefix(entry, prefix) {
			return Marker{Installed: true, Build: entry[len(prefix):], Offset: off}
		}
		if s.ModuleName != "" && entry == s.ModuleName && !m.Installed {
			m = Marker{Installed: true, Offset: off}
		}
	}
	return m
}

// ScanFile opens the executable at path, locates its string heap and scans
// it. Errors wrapping ErrFormat mean the file is not a managed executable.
func (s Scanner) ScanFile(path string) (Marker, error) {
	img, err := Open(path)
	if err != nil {
		return Marker{}, err
	}
	defer img.Close()

	heap, err := img.StringHeap()
	if err != nil {
		return Marker{}, err
	}
	return s.Scan(heap), nil
}

// Package classify decides whether an install runs a vanilla or a patched
// game executable and caches the answer per install.
package classify

import "time"

// Record is the classification of one install's executable.
type Record struct {
	Fingerprint string
	// Version is the game version, empty when it could not be determined.
	Version  string
	Graphics string

	FrameworkInstalled bool
	// FrameworkBuild is the build number of the patched in framework, empty
	// when unknown.
	FrameworkBuild string

	ClassifiedAt time.Time
}

// VersionString formats the record for display, e.g.
// "1.4.0.0-FNA + 1.4465.0".
func (r Record) VersionString() string {
	s := r.Version
	if s == "" {
		s = "unknown"
	}
	if r.Graphics != "" {
		s += "-" + r.Graphics
	}

	if !r.FrameworkInstalled {
		return s
	}
	if r.FrameworkBuild == "" {
		return s + " + Everest(unknown version)"
	}
	return s + " + 1." + r.FrameworkBuild + ".0"
}

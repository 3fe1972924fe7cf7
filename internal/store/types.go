package store

import "time"

// InstallRow is the persisted form of a registered game install.
type InstallRow struct {
	Name            string
	Path            string
	PreferredBranch string
	AddedAt         time.Time
}

// ClassificationRow is the persisted form of a cached classification.
// The store does not interpret it; staleness is decided by the caller.
type ClassificationRow struct {
	Install            string
	Fingerprint        string
	Version            string
	Graphics           string
	FrameworkInstalled bool
	FrameworkBuild     string
	ClassifiedAt       time.Time
}

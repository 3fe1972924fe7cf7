package classify

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/blackwell-systems/mons/internal/clrmeta"
	"github.com/blackwell-systems/mons/internal/fingerprint"
	"github.com/blackwell-systems/mons/internal/install"
	"github.com/blackwell-systems/mons/internal/vanilla"
)

// MarkerScanner finds the framework marker inside an executable.
type MarkerScanner interface {
	ScanFile(path string) (clrmeta.Marker, error)
}

// Classifier classifies installs, consulting and filling a Cache.
type Classifier struct {
	cache   *Cache
	scanner MarkerScanner
	logger  *slog.Logger

	hash func(path string) (string, error)
	now  func() time.Time
}

// NewClassifier returns a classifier using cache and scanner. A nil scanner
// means clrmeta.DefaultScanner.
func NewClassifier(cache *Cache, scanner MarkerScanner, logger *slog.Logger) *Classifier {
	if scanner == nil {
		scanner = clrmeta.DefaultScanner
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Classifier{
		cache:   cache,
		scanner: scanner,
		logger:  logger,
		hash:    fingerprint.File,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Classify fingerprints the executable of inst and returns its record.
// A cached record is returned only when its fingerprint matches the file.
// Known vanilla builds are recognised without parsing the executable.
// Errors wrapping clrmeta.ErrFormat mean the file is not a managed
// executable; nothing is cached in that case.
func (c *Classifier) Classify(ctx context.Context, inst install.Install) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fp, err := c.hash(inst.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint %s: %w", inst.Name, err)
	}

	if cached, ok := c.cache.Get(inst.Name); ok {
		if cached.Fingerprint == fp {
			c.logger.Debug("classification cache hit", "install", inst.Name, "fingerprint", fp)
			return &cached, nil
		}
		c.logger.Debug("stale classification", "install", inst.Name, "cached", cached.Fingerprint, "fingerprint", fp)
	}

	if entry, ok := vanilla.Lookup(fp); ok {
		rec := Record{
			Fingerprint:  fp,
			Version:      entry.Version,
			Graphics:     entry.Graphics,
			ClassifiedAt: c.now(),
		}
		c.cache.Put(inst.Name, rec)
		return &rec, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	marker, err := c.scanner.ScanFile(inst.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to classify %s: %w", inst.Name, err)
	}

	rec := Record{
		Fingerprint:        fp,
		FrameworkInstalled: marker.Installed,
		FrameworkBuild:     marker.Build,
		ClassifiedAt:       c.now(),
	}
	if entry, ok := c.lookupOrig(inst); ok {
		rec.Version = entry.Version
		rec.Graphics = entry.Graphics
	}

	c.logger.Debug("classified install", "install", inst.Name, "fingerprint", fp,
		"framework", rec.FrameworkInstalled, "build", rec.FrameworkBuild)
	c.cache.Put(inst.Name, rec)
	return &rec, nil
}

// lookupOrig checks the backup of the unpatched executable the framework
// installer leaves behind.
func (c *Classifier) lookupOrig(inst install.Install) (vanilla.Entry, bool) {
	fp, err := c.hash(inst.OrigPath())
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Debug("cannot fingerprint original executable", "install", inst.Name, "error", err)
		}
		return vanilla.Entry{}, false
	}
	return vanilla.Lookup(fp)
}

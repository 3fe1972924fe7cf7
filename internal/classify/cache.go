package classify

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/blackwell-systems/mons/internal/fingerprint"
	"github.com/blackwell-systems/mons/internal/store"
)

// CacheStore persists classification rows.
type CacheStore interface {
	ListClassifications() ([]*store.ClassificationRow, error)
	SyncClassifications(upserts []*store.ClassificationRow, deletes []string) error
}

// Cache is a keyed store of records by install name. It does not check
// records against the files they describe; Classifier does.
type Cache struct {
	store  CacheStore
	logger *slog.Logger

	records map[string]Record
	dirty   map[string]bool
	deleted map[string]bool
}

// NewCache returns an empty cache backed by st.
func NewCache(st CacheStore, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Cache{
		store:   st,
		logger:  logger,
		records: make(map[string]Record),
		dirty:   make(map[string]bool),
		deleted: make(map[string]bool),
	}
}

// Load replaces the cached records with the persisted ones. Rows whose
// fingerprint is malformed are dropped and deleted on the next Flush.
func (c *Cache) Load() error {
	rows, err := c.store.ListClassifications()
	if err != nil {
		return fmt.Errorf("failed to load classifications: %w", err)
	}

	clear(c.records)
	clear(c.dirty)
	clear(c.deleted)

	for _, row := range rows {
		if !fingerprint.Valid(row.Fingerprint) {
			c.logger.Warn("dropping cached classification", "install", row.Install, "fingerprint", row.Fingerprint)
			c.deleted[row.Install] = true
			continue
		}
		c.records[row.Install] = Record{
			Fingerprint:        row.Fingerprint,
			Version:            row.Version,
			Graphics:           row.Graphics,
			FrameworkInstalled: row.FrameworkInstalled,
			FrameworkBuild:     row.FrameworkBuild,
			ClassifiedAt:       row.ClassifiedAt,
		}
	}
	return nil
}

// Get returns the record stored for an install.
func (c *Cache) Get(name string) (Record, bool) {
	rec, ok := c.records[name]
	return rec, ok
}

// Put stores rec for an install, replacing any previous record.
// ClassifiedAt is kept in UTC so records read back from the store compare
// equal to the ones written.
func (c *Cache) Put(name string, rec Record) {
	rec.ClassifiedAt = rec.ClassifiedAt.UTC()
	c.records[name] = rec
	c.dirty[name] = true
	delete(c.deleted, name)
}

// Delete forgets the record of an install.
func (c *Cache) Delete(name string) {
	if _, ok := c.records[name]; !ok {
		return
	}
	delete(c.records, name)
	delete(c.dirty, name)
	c.deleted[name] = true
}

// Rename moves the record of an install to a new name.
func (c *Cache) Rename(oldName, newName string) {
	rec, ok := c.records[oldName]
	if !ok || oldName == newName {
		return
	}
	c.Delete(oldName)
	c.Put(newName, rec)
}

// Len returns the number of cached records.
func (c *Cache) Len() int {
	return len(c.records)
}

// Flush writes pending changes in one batch.
func (c *Cache) Flush() error {
	if len(c.dirty) == 0 && len(c.deleted) == 0 {
		return nil
	}

	var upserts []*store.ClassificationRow
	for _, name := range slices.Sorted(maps.Keys(c.dirty)) {
		rec := c.records[name]
		upserts = append(upserts, &store.ClassificationRow{
			Install:            name,
			Fingerprint:        rec.Fingerprint,
			Version:            rec.Version,
			Graphics:           rec.Graphics,
			FrameworkInstalled: rec.FrameworkInstalled,
			FrameworkBuild:     rec.FrameworkBuild,
			ClassifiedAt:       rec.ClassifiedAt,
		})
	}
	deletes := slices.Sorted(maps.Keys(c.deleted))

	if err := c.store.SyncClassifications(upserts, deletes); err != nil {
		return fmt.Errorf("failed to save classifications: %w", err)
	}

	clear(c.dirty)
	clear(c.deleted)
	return nil
}

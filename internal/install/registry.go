package install

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/blackwell-systems/mons/internal/store"
)

// Store persists install rows.
type Store interface {
	ListInstalls() ([]*store.InstallRow, error)
	SyncInstalls(upserts []*store.InstallRow, deletes []string) error
}

// Registry holds the installs in memory between Load and Flush.
type Registry struct {
	store  Store
	logger *slog.Logger

	installs map[string]*Install
	dirty    map[string]bool
	deleted  map[string]bool
}

// NewRegistry creates an empty registry backed by st.
func NewRegistry(st Store, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		store:    st,
		logger:   logger,
		installs: make(map[string]*Install),
		dirty:    make(map[string]bool),
		deleted:  make(map[string]bool),
	}
}

// Load replaces the in-memory installs with the persisted ones. Rows with
// an invalid name or an empty path are skipped.
func (r *Registry) Load() error {
	rows, err := r.store.ListInstalls()
	if err != nil {
		return fmt.Errorf("failed to load installs: %w", err)
	}

	clear(r.installs)
	clear(r.dirty)
	clear(r.deleted)

	for _, row := range rows {
		if err := ValidateName(row.Name); err != nil {
			r.logger.Warn("skipping stored install", "name", row.Name, "error", err)
			continue
		}
		if row.Path == "" {
			r.logger.Warn("skipping stored install without a path", "name", row.Name)
			continue
		}
		r.installs[row.Name] = &Install{
			Name:            row.Name,
			Path:            row.Path,
			PreferredBranch: row.PreferredBranch,
			AddedAt:         row.AddedAt,
		}
	}

	r.logger.Debug("loaded installs", "count", len(r.installs))
	return nil
}

// Add registers a new install. path must already point at the executable.
func (r *Registry) Add(name, path, branch string) (Install, error) {
	if err := ValidateName(name); err != nil {
		return Install{}, err
	}
	if _, ok := r.installs[name]; ok {
		return Install{}, fmt.Errorf("%w: %s", ErrExists, name)
	}

	inst := &Install{Name: name, Path: path, PreferredBranch: branch, AddedAt: time.Now().UTC()}
	r.installs[name] = inst
	r.touch(name)
	return *inst, nil
}

// Get returns the install with the given name.
func (r *Registry) Get(name string) (Install, error) {
	inst, ok := r.installs[name]
	if !ok {
		return Install{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return *inst, nil
}

// Rename moves an install to a new name.
func (r *Registry) Rename(oldName, newName string) error {
	inst, ok := r.installs[oldName]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, oldName)
	}
	if err := ValidateName(newName); err != nil {
		return err
	}
	if oldName == newName {
		return nil
	}
	if _, ok := r.installs[newName]; ok {
		return fmt.Errorf("%w: %s", ErrExists, newName)
	}

	delete(r.installs, oldName)
	delete(r.dirty, oldName)
	r.deleted[oldName] = true

	inst.Name = newName
	r.installs[newName] = inst
	r.touch(newName)
	return nil
}

// SetPath points an install at a different executable.
func (r *Registry) SetPath(name, path string) error {
	inst, ok := r.installs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	inst.Path = path
	r.touch(name)
	return nil
}

// SetBranch changes the preferred release branch of an install.
func (r *Registry) SetBranch(name, branch string) error {
	inst, ok := r.installs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	inst.PreferredBranch = branch
	r.touch(name)
	return nil
}

// Remove forgets an install.
func (r *Registry) Remove(name string) error {
	if _, ok := r.installs[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	delete(r.installs, name)
	delete(r.dirty, name)
	r.deleted[name] = true
	return nil
}

// List returns all installs sorted by name.
func (r *Registry) List() []Install {
	out := make([]Install, 0, len(r.installs))
	for _, name := range slices.Sorted(maps.Keys(r.installs)) {
		out = append(out, *r.installs[name])
	}
	return out
}

// Dirty reports whether there are changes not yet flushed.
func (r *Registry) Dirty() bool {
	return len(r.dirty) > 0 || len(r.deleted) > 0
}

// Flush writes pending changes in one batch. Nothing is written when the
// registry is clean.
func (r *Registry) Flush() error {
	if !r.Dirty() {
		return nil
	}

	var upserts []*store.InstallRow
	for _, name := range slices.Sorted(maps.Keys(r.dirty)) {
		inst := r.installs[name]
		upserts = append(upserts, &store.InstallRow{
			Name:            inst.Name,
			Path:            inst.Path,
			PreferredBranch: inst.PreferredBranch,
			AddedAt:         inst.AddedAt,
		})
	}
	deletes := slices.Sorted(maps.Keys(r.deleted))

	if err := r.store.SyncInstalls(upserts, deletes); err != nil {
		return fmt.Errorf("failed to save installs: %w", err)
	}

	clear(r.dirty)
	clear(r.deleted)
	return nil
}

func (r *Registry) touch(name string) {
	r.dirty[name] = true
	delete(r.deleted, name)
}

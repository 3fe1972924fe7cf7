package store

import (
	"database/sql"
	"fmt"
	"time"
)

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// Install operations

// UpsertInstall inserts or replaces an install.
func (s *Store) UpsertInstall(row *InstallRow) error {
	return upsertInstall(s.db, row)
}

func upsertInstall(e execer, row *InstallRow) error {
	query := `
		INSERT OR REPLACE INTO installs (name, path, preferred_branch, added_at)
		VALUES (?, ?, ?, ?)
	`

	addedAt := row.AddedAt
	if addedAt.IsZero() {
		addedAt = time.Now()
	}

	_, err := e.Exec(query, row.Name, row.Path, row.PreferredBranch, addedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to upsert install %s: %w", row.Name, err)
	}
	return nil
}

// DeleteInstall removes an install. Deleting a missing install is not an error.
func (s *Store) DeleteInstall(name string) error {
	return deleteInstall(s.db, name)
}

func deleteInstall(e execer, name string) error {
	if _, err := e.Exec(`DELETE FROM installs WHERE name = ?`, name); err != nil {
		return fmt.Errorf("failed to delete install %s: %w", name, err)
	}
	return nil
}

// ListInstalls returns all installs ordered by name.
func (s *Store) ListInstalls() ([]*InstallRow, error) {
	query := `
		SELECT name, path, preferred_branch, added_at
		FROM installs
		ORDER BY name
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list installs: %w", err)
	}
	defer rows.Close()

	var installs []*InstallRow
	for rows.Next() {
		var row InstallRow
		var addedAt string

		if err := rows.Scan(&row.Name, &row.Path, &row.PreferredBranch, &addedAt); err != nil {
			return nil, fmt.Errorf("failed to scan install row: %w", err)
		}

		// A malformed timestamp is not worth losing the install over
		row.AddedAt, _ = time.Parse(time.RFC3339Nano, addedAt)

		installs = append(installs, &row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating installs: %w", err)
	}

	return installs, nil
}

// SyncInstalls applies a batch of upserts and deletions in one transaction.
func (s *Store) SyncInstalls(upserts []*InstallRow, deletes []string) error {
	return s.withTx(func(tx *sql.Tx) error {
		for _, name := range deletes {
			if err := deleteInstall(tx, name); err != nil {
				return err
			}
		}
		for _, row := range upserts {
			if err := upsertInstall(tx, row); err != nil {
				return err
			}
		}
		return nil
	})
}

// Classification operations

// UpsertClassification inserts or replaces the cached classification of an install.
func (s *Store) UpsertClassification(row *ClassificationRow) error {
	return upsertClassification(s.db, row)
}

func upsertClassification(e execer, row *ClassificationRow) error {
	query := `
		INSERT OR REPLACE INTO classifications
		(install, fingerprint, version, graphics, framework_installed, framework_build, classified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	classifiedAt := row.ClassifiedAt
	if classifiedAt.IsZero() {
		classifiedAt = time.Now()
	}

	_, err := e.Exec(query,
		row.Install,
		row.Fingerprint,
		row.Version,
		row.Graphics,
		row.FrameworkInstalled,
		row.FrameworkBuild,
		classifiedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert classification for %s: %w", row.Install, err)
	}
	return nil
}

// DeleteClassification removes the cached classification of an install.
func (s *Store) DeleteClassification(install string) error {
	return deleteClassification(s.db, install)
}

func deleteClassification(e execer, install string) error {
	if _, err := e.Exec(`DELETE FROM classifications WHERE install = ?`, install); err != nil {
		return fmt.Errorf("failed to delete classification for %s: %w", install, err)
	}
	return nil
}

// GetClassification returns the cached classification of an install, or nil
// if there is none.
func (s *Store) GetClassification(install string) (*ClassificationRow, error) {
	query := `
		SELECT install, fingerprint, version, graphics, framework_installed, framework_build, classified_at
		FROM classifications
		WHERE install = ?
	`

	row, err := scanClassification(s.db.QueryRow(query, install))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get classification for %s: %w", install, err)
	}
	return row, nil
}

// ListClassifications returns every cached classification.
func (s *Store) ListClassifications() ([]*ClassificationRow, error) {
	query := `
		SELECT install, fingerprint, version, graphics, framework_installed, framework_build, classified_at
		FROM classifications
		ORDER BY install
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list classifications: %w", err)
	}
	defer rows.Close()

	var out []*ClassificationRow
	for rows.Next() {
		row, err := scanClassification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan classification row: %w", err)
		}
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating classifications: %w", err)
	}

	return out, nil
}

// SyncClassifications applies a batch of upserts and deletions in one transaction.
func (s *Store) SyncClassifications(upserts []*ClassificationRow, deletes []string) error {
	return s.withTx(func(tx *sql.Tx) error {
		for _, install := range deletes {
			if err := deleteClassification(tx, install); err != nil {
				return err
			}
		}
		for _, row := range upserts {
			if err := upsertClassification(tx, row); err != nil {
				return err
			}
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClassification(r rowScanner) (*ClassificationRow, error) {
	var row ClassificationRow
	var classifiedAt string

	err := r.Scan(
		&row.Install,
		&row.Fingerprint,
		&row.Version,
		&row.Graphics,
		&row.FrameworkInstalled,
		&row.FrameworkBuild,
		&classifiedAt,
	)
	if err != nil {
		return nil, err
	}

	row.ClassifiedAt, _ = time.Parse(time.RFC3339Nano, classifiedAt)
	return &row, nil
}

func (s *Store) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

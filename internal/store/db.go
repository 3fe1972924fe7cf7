package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrCorrupt is returned when the database file exists but cannot be read
// as a mons database.
var ErrCorrupt = errors.New("database file is corrupt")

// Store provides SQLite database operations for mons.
type Store struct {
	db *sql.DB
}

// New creates a new Store with the specified database path.
// Use ":memory:" for in-memory databases (useful for testing).
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool defaults
	db.SetMaxOpenConns(1) // SQLite only allows one writer at a time
	db.SetMaxIdleConns(1)

	// Enable WAL mode so an interrupted flush never leaves a torn file
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", tagCorrupt(err))
	}

	return &Store{db: db}, nil
}

// Open opens the database at dbPath and makes sure the schema exists.
//
// A file that SQLite cannot read, or that fails the integrity check, is
// moved aside to dbPath+".corrupt" and replaced by an empty database. The
// user loses the stored installs but the command keeps working.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s, err := openChecked(dbPath)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, ErrCorrupt) || dbPath == ":memory:" {
		return nil, err
	}

	backup := dbPath + ".corrupt"
	logger.Warn("database unreadable, starting with an empty one",
		"path", dbPath, "backup", backup, "error", err)

	if err := os.Rename(dbPath, backup); err != nil {
		return nil, fmt.Errorf("failed to move corrupt database aside: %w", err)
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(dbPath + suffix); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove %s: %w", dbPath+suffix, err)
		}
	}

	return openChecked(dbPath)
}

func openChecked(dbPath string) (*Store, error) {
	s, err := New(dbPath)
	if err != nil {
		return nil, err
	}
	if err := s.CreateSchema(); err != nil {
		s.Close()
		return nil, err
	}
	if err := s.Check(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DB returns the underlying database connection for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// CreateSchema creates all tables and indexes.
func (s *Store) CreateSchema() error {
	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", tagCorrupt(err))
	}
	return nil
}

// Check runs SQLite's quick integrity check.
func (s *Store) Check() error {
	var result string
	if err := s.db.QueryRow("PRAGMA quick_check").Scan(&result); err != nil {
		return fmt.Errorf("failed to check database: %w", tagCorrupt(err))
	}
	if result != "ok" {
		return fmt.Errorf("%w: %s", ErrCorrupt, result)
	}
	return nil
}

// tagCorrupt tags SQLite errors that mean the file is not a usable database.
func tagCorrupt(err error) error {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return err
	}
	switch se.Code() & 0xff {
	case sqlite3.SQLITE_NOTADB, sqlite3.SQLITE_CORRUPT:
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return err
}

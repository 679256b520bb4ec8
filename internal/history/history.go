// Package history persists executed cell input per kernel so it can be
// recalled across sessions, like a shell history.
package history

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Entry is one recorded execution.
type Entry struct {
	ID        int64
	Kernel    string
	Source    string
	CreatedAt time.Time
}

// Store is a sqlite-backed execution history.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path and applies
// migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir history dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1) // sqlite
	db.SetConnMaxLifetime(0)

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate history db: %w", err)
	}
	return &Store{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return err
	}
	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

// Append records one executed source string for the named kernel. Empty
// source is skipped, and a source identical to the most recent entry for the
// same kernel is not duplicated.
func (s *Store) Append(kernel, source string) error {
	if source == "" {
		return nil
	}
	var last string
	err := s.db.QueryRow(
		"SELECT source FROM history WHERE kernel = ? ORDER BY id DESC LIMIT 1", kernel,
	).Scan(&last)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if err == nil && last == source {
		return nil
	}
	_, err = s.db.Exec(
		"INSERT INTO history (kernel, source, created_at) VALUES (?, ?, ?)",
		kernel, source, time.Now().UTC().Truncate(time.Second),
	)
	return err
}

// Recent returns up to limit entries for the named kernel, most recent first.
func (s *Store) Recent(kernel string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(
		"SELECT id, kernel, source, created_at FROM history WHERE kernel = ? ORDER BY id DESC LIMIT ?",
		kernel, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Kernel, &e.Source, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

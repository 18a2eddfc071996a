// Package store persists the order of the reorderable list in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vango-dev/livehooks/internal/errors"
)

// Item is one list entry.
type Item struct {
	ID       string
	Label    string
	Position int
}

// Store is a SQLite-backed item list.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path. ":memory:" gives
// a private in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.New("E140").Wrap(fmt.Errorf("open sqlite db: %w", err))
	}
	// One connection keeps ":memory:" databases shared and serializes
	// writers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS items (
			id TEXT PRIMARY KEY,
			label TEXT NOT NULL,
			position INTEGER NOT NULL,
			updated_utc TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_items_position ON items(position);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return errors.New("E140").Wrap(fmt.Errorf("migrate: %w", err))
		}
	}
	return nil
}

// Seed inserts items that do not exist yet, appending them after the
// current last position. Existing items keep their label and position.
func (s *Store) Seed(ctx context.Context, items []Item) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.New("E140").Wrap(err)
	}
	defer tx.Rollback()

	var next int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(position) + 1, 0) FROM items`).Scan(&next); err != nil {
		return errors.New("E140").Wrap(err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, it := range items {
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO items (id, label, position, updated_utc) VALUES (?, ?, ?, ?)`,
			it.ID, it.Label, next, now)
		if err != nil {
			return errors.New("E140").Wrap(fmt.Errorf("seed %s: %w", it.ID, err))
		}
		if n, _ := res.RowsAffected(); n > 0 {
			next++
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.New("E140").Wrap(err)
	}
	return nil
}

// Items returns all items ordered by position.
func (s *Store) Items(ctx context.Context) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, label, position FROM items ORDER BY position, id`)
	if err != nil {
		return nil, errors.New("E140").Wrap(err)
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.Label, &it.Position); err != nil {
			return nil, errors.New("E140").Wrap(err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.New("E140").Wrap(err)
	}
	return out, nil
}

// SaveOrder sets positions to the order of ids. Every id must exist and
// appear once; items missing from ids keep their relative order after
// the listed ones. Nothing is written when validation fails.
func (s *Store) SaveOrder(ctx context.Context, ids []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.New("E140").Wrap(err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT id FROM items ORDER BY position, id`)
	if err != nil {
		return errors.New("E140").Wrap(err)
	}
	var existing []string
	known := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return errors.New("E140").Wrap(err)
		}
		existing = append(existing, id)
		known[id] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return errors.New("E140").Wrap(err)
	}

	seen := map[string]bool{}
	var unknown []string
	for _, id := range ids {
		if !known[id] || seen[id] {
			unknown = append(unknown, id)
		}
		seen[id] = true
	}
	if len(unknown) > 0 {
		return errors.New("E141").WithDetail("unknown or repeated ids: " + strings.Join(unknown, ", "))
	}

	order := append([]string(nil), ids...)
	for _, id := range existing {
		if !seen[id] {
			order = append(order, id)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	for pos, id := range order {
		if _, err := tx.ExecContext(ctx,
			`UPDATE items SET position = ?, updated_utc = ? WHERE id = ?`, pos, now, id); err != nil {
			return errors.New("E140").Wrap(err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.New("E140").Wrap(err)
	}
	return nil
}

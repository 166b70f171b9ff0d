// Copyright Chicken-AI Breeds Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlstore implements state.Store on database/sql. The sqlite and
// postgres packages supply the driver and dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chickenai/breeds-gw/pkg/catalog"
	"github.com/chickenai/breeds-gw/pkg/core/state"
)

// Dialect captures what differs between SQL engines.
type Dialect struct {
	// Name prefixes error messages, e.g. "postgres".
	Name string
	// Schema is executed in order when the store opens.
	Schema []string
	// Numbered rewrites ? placeholders to $1, $2, ...
	Numbered bool
}

// Store is a SQL-backed implementation of state.Store. Each entry is a JSON
// document keyed by list and dedup key; seq preserves insertion order.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open wraps db and creates the schema.
func Open(ctx context.Context, db *sql.DB, d Dialect) (*Store, error) {
	s := &Store{db: db, dialect: d}
	for _, stmt := range d.Schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("%s create tables: %w", d.Name, err)
		}
	}
	return s, nil
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) q(query string) string {
	if !s.dialect.Numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Add inserts breed unless an entry with the same dedup key exists.
func (s *Store) Add(ctx context.Context, list state.List, breed catalog.Breed) (bool, error) {
	if err := state.CheckList(list); err != nil {
		return false, err
	}
	data, err := json.Marshal(breed)
	if err != nil {
		return false, fmt.Errorf("marshal breed: %w", err)
	}

	res, err := s.db.ExecContext(ctx, s.q(
		`INSERT INTO collection_entries (list, breed_id, dedup_key, data, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (list, dedup_key) DO NOTHING`),
		string(list), breed.ID, state.DedupKey(list, breed), string(data), time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("%s add to %s: %w", s.dialect.Name, list, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s add to %s: %w", s.dialect.Name, list, err)
	}
	return n > 0, nil
}

// Remove deletes the entry with breedID.
func (s *Store) Remove(ctx context.Context, list state.List, breedID string) error {
	if err := state.CheckList(list); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, s.q(
		`DELETE FROM collection_entries WHERE list = ? AND breed_id = ?`),
		string(list), breedID,
	)
	if err != nil {
		return fmt.Errorf("%s remove from %s: %w", s.dialect.Name, list, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s remove from %s: %w", s.dialect.Name, list, err)
	}
	if n == 0 {
		return state.ErrNotFound
	}
	return nil
}

// List returns the entries of list, oldest first.
func (s *Store) List(ctx context.Context, list state.List) ([]catalog.Breed, error) {
	if err := state.CheckList(list); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, s.q(
		`SELECT data FROM collection_entries WHERE list = ? ORDER BY seq ASC`),
		string(list),
	)
	if err != nil {
		return nil, fmt.Errorf("%s list %s: %w", s.dialect.Name, list, err)
	}
	defer rows.Close()

	out := []catalog.Breed{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("%s scan %s: %w", s.dialect.Name, list, err)
		}
		var b catalog.Breed
		if err := json.Unmarshal([]byte(data), &b); err != nil {
			return nil, fmt.Errorf("unmarshal breed: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Contains reports whether breedID is in list.
func (s *Store) Contains(ctx context.Context, list state.List, breedID string) (bool, error) {
	if err := state.CheckList(list); err != nil {
		return false, err
	}
	var n int
	err := s.db.QueryRowContext(ctx, s.q(
		`SELECT COUNT(*) FROM collection_entries WHERE list = ? AND breed_id = ?`),
		string(list), breedID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("%s contains in %s: %w", s.dialect.Name, list, err)
	}
	return n > 0, nil
}

// Copyright Chicken-AI Breeds Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlite is a state.Store on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/chickenai/breeds-gw/pkg/core/state"
	"github.com/chickenai/breeds-gw/pkg/storage/sqlstore"

	_ "modernc.org/sqlite"
)

func init() {
	state.Providers.Register("sqlite", func(ctx context.Context, params map[string]string) (state.Store, error) {
		dsn := params["dsn"]
		if dsn == "" {
			dsn = "breeds.db"
		}
		return New(dsn)
	})
}

var dialect = sqlstore.Dialect{
	Name: "sqlite",
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS collection_entries (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			list TEXT NOT NULL,
			breed_id TEXT NOT NULL,
			dedup_key TEXT NOT NULL,
			data TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			UNIQUE (list, dedup_key)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_collection_entries_breed ON collection_entries(list, breed_id)`,
	},
}

// New opens (creating if needed) the database at dsn. ":memory:" gives a
// private in-memory database.
func New(dsn string) (*sqlstore.Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	// One connection: SQLite serializes writers, and each ":memory:"
	// connection would otherwise see its own database.
	db.SetMaxOpenConns(1)

	s, err := sqlstore.Open(context.Background(), db, dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

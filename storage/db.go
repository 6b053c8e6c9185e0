// Package storage is the backing store for the shop: bun over SQLite,
// with one repository per entity type. Repositories expose plain CRUD
// plus, for the searchable entities, the case-insensitive substring
// lookup the autocomplete cache sits in front of.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// ErrNotFound reports that a record does not exist.
var ErrNotFound = errors.New("storage: record not found")

// Open connects to the SQLite database at dsn.
func Open(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", dsn, err)
	}
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// Migrate creates the shop tables if they do not exist yet.
func Migrate(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*Product)(nil),
		(*Customer)(nil),
		(*Order)(nil),
		(*Delivery)(nil),
	}
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("storage: create table for %T: %w", model, err)
		}
	}
	return nil
}

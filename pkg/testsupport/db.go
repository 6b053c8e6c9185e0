// Package testsupport provides shared helpers for package tests: an
// in-memory backing store and seed data shaped like the shop fixtures.
package testsupport

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"github.com/arvik/shopsearch/storage"
)

// NewDB opens a private in-memory SQLite database with the shop schema
// applied. The handle is closed when the test finishes.
func NewDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := storage.Open("file::memory:?cache=private")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	// The in-memory database lives and dies with a single connection.
	db.SetMaxOpenConns(1)

	if err := storage.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

// SeedProducts inserts one product per name with an arbitrary price and
// returns the created records in insertion order.
func SeedProducts(t *testing.T, db *bun.DB, names ...string) []storage.Product {
	t.Helper()

	repo := storage.NewProductRepository(db)
	products := make([]storage.Product, 0, len(names))
	for i, name := range names {
		p, err := repo.Create(context.Background(), storage.Product{
			Name:  name,
			Price: decimal.NewFromInt(int64(10 + i)),
			Stock: 5,
		})
		if err != nil {
			t.Fatalf("seed product %q: %v", name, err)
		}
		products = append(products, p)
	}
	return products
}

// SeedCustomers inserts one customer per name and returns the created
// records in insertion order.
func SeedCustomers(t *testing.T, db *bun.DB, names ...string) []storage.Customer {
	t.Helper()

	repo := storage.NewCustomerRepository(db)
	customers := make([]storage.Customer, 0, len(names))
	for _, name := range names {
		c, err := repo.Create(context.Background(), storage.Customer{
			Name:  name,
			Email: name + "@example.com",
		})
		if err != nil {
			t.Fatalf("seed customer %q: %v", name, err)
		}
		customers = append(customers, c)
	}
	return customers
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// ProductRepository persists products.
type ProductRepository struct {
	db *bun.DB
}

var (
	_ Repository[Product] = (*ProductRepository)(nil)
	_ Searcher            = (*ProductRepository)(nil)
)

func NewProductRepository(db *bun.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) GetByID(ctx context.Context, id int64) (Product, error) {
	var p Product
	err := r.db.NewSelect().Model(&p).Where("p.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

func (r *ProductRepository) List(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := r.db.NewSelect().Model(&products).Order("id").Scan(ctx); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *ProductRepository) Create(ctx context.Context, record Product) (Product, error) {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	if _, err := r.db.NewInsert().Model(&record).Exec(ctx); err != nil {
		return Product{}, err
	}
	return record, nil
}

func (r *ProductRepository) Update(ctx context.Context, record Product) (Product, error) {
	res, err := r.db.NewUpdate().Model(&record).WherePK().Exec(ctx)
	if err != nil {
		return Product{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Product{}, ErrNotFound
	}
	return record, nil
}

func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.NewDelete().Model((*Product)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SearchByName matches term as a case-insensitive substring of the product
// name. No ordering is imposed beyond what the table scan yields.
func (r *ProductRepository) SearchByName(ctx context.Context, term string) ([]EntitySummary, error) {
	var products []Product
	pattern := "%" + strings.ToLower(term) + "%"
	if err := r.db.NewSelect().Model(&products).Where("LOWER(p.name) LIKE ?", pattern).Scan(ctx); err != nil {
		return nil, err
	}
	summaries := make([]EntitySummary, 0, len(products))
	for i := range products {
		summaries = append(summaries, products[i].summary())
	}
	return summaries, nil
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// CustomerRepository persists customers.
type CustomerRepository struct {
	db *bun.DB
}

var (
	_ Repository[Customer] = (*CustomerRepository)(nil)
	_ Searcher             = (*CustomerRepository)(nil)
)

func NewCustomerRepository(db *bun.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func (r *CustomerRepository) GetByID(ctx context.Context, id int64) (Customer, error) {
	var c Customer
	err := r.db.NewSelect().Model(&c).Where("c.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return Customer{}, ErrNotFound
	}
	return c, err
}

func (r *CustomerRepository) List(ctx context.Context) ([]Customer, error) {
	var customers []Customer
	if err := r.db.NewSelect().Model(&customers).Order("id").Scan(ctx); err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *CustomerRepository) Create(ctx context.Context, record Customer) (Customer, error) {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	if _, err := r.db.NewInsert().Model(&record).Exec(ctx); err != nil {
		return Customer{}, err
	}
	return record, nil
}

func (r *CustomerRepository) Update(ctx context.Context, record Customer) (Customer, error) {
	res, err := r.db.NewUpdate().Model(&record).WherePK().Exec(ctx)
	if err != nil {
		return Customer{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Customer{}, ErrNotFound
	}
	return record, nil
}

func (r *CustomerRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.NewDelete().Model((*Customer)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SearchByName matches term as a case-insensitive substring of the
// customer name.
func (r *CustomerRepository) SearchByName(ctx context.Context, term string) ([]EntitySummary, error) {
	var customers []Customer
	pattern := "%" + strings.ToLower(term) + "%"
	if err := r.db.NewSelect().Model(&customers).Where("LOWER(c.name) LIKE ?", pattern).Scan(ctx); err != nil {
		return nil, err
	}
	summaries := make([]EntitySummary, 0, len(customers))
	for i := range customers {
		summaries = append(summaries, customers[i].summary())
	}
	return summaries, nil
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
)

// OrderRepository persists orders.
type OrderRepository struct {
	db *bun.DB
}

var _ Repository[Order] = (*OrderRepository)(nil)

func NewOrderRepository(db *bun.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) GetByID(ctx context.Context, id int64) (Order, error) {
	var o Order
	err := r.db.NewSelect().Model(&o).Where("o.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	return o, err
}

func (r *OrderRepository) List(ctx context.Context) ([]Order, error) {
	var orders []Order
	if err := r.db.NewSelect().Model(&orders).Order("id").Scan(ctx); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrderRepository) Create(ctx context.Context, record Order) (Order, error) {
	if record.Status == "" {
		record.Status = OrderStatusPending
	}
	if record.PlacedAt.IsZero() {
		record.PlacedAt = time.Now().UTC()
	}
	if _, err := r.db.NewInsert().Model(&record).Exec(ctx); err != nil {
		return Order{}, err
	}
	return record, nil
}

func (r *OrderRepository) Update(ctx context.Context, record Order) (Order, error) {
	res, err := r.db.NewUpdate().Model(&record).WherePK().Exec(ctx)
	if err != nil {
		return Order{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Order{}, ErrNotFound
	}
	return record, nil
}

func (r *OrderRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.NewDelete().Model((*Order)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByCustomer returns a customer's orders, newest first.
func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID int64) ([]Order, error) {
	var orders []Order
	err := r.db.NewSelect().Model(&orders).
		Where("customer_id = ?", customerID).
		Order("placed_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

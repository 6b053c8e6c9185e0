package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DeliveryRepository persists deliveries.
type DeliveryRepository struct {
	db *bun.DB
}

var _ Repository[Delivery] = (*DeliveryRepository)(nil)

func NewDeliveryRepository(db *bun.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

func (r *DeliveryRepository) GetByID(ctx context.Context, id int64) (Delivery, error) {
	var d Delivery
	err := r.db.NewSelect().Model(&d).Where("d.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return Delivery{}, ErrNotFound
	}
	return d, err
}

func (r *DeliveryRepository) List(ctx context.Context) ([]Delivery, error) {
	var deliveries []Delivery
	if err := r.db.NewSelect().Model(&deliveries).Order("id").Scan(ctx); err != nil {
		return nil, err
	}
	return deliveries, nil
}

func (r *DeliveryRepository) Create(ctx context.Context, record Delivery) (Delivery, error) {
	if record.TrackingCode == "" {
		record.TrackingCode = uuid.NewString()
	}
	if record.Status == "" {
		record.Status = DeliveryStatusPreparing
	}
	if _, err := r.db.NewInsert().Model(&record).Exec(ctx); err != nil {
		return Delivery{}, err
	}
	return record, nil
}

func (r *DeliveryRepository) Update(ctx context.Context, record Delivery) (Delivery, error) {
	res, err := r.db.NewUpdate().Model(&record).WherePK().Exec(ctx)
	if err != nil {
		return Delivery{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Delivery{}, ErrNotFound
	}
	return record, nil
}

func (r *DeliveryRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.NewDelete().Model((*Delivery)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByTrackingCode resolves a delivery from its public tracking code.
func (r *DeliveryRepository) GetByTrackingCode(ctx context.Context, code string) (Delivery, error) {
	var d Delivery
	err := r.db.NewSelect().Model(&d).Where("tracking_code = ?", code).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return Delivery{}, ErrNotFound
	}
	return d, err
}

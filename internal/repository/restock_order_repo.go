package repository

import (
	"context"
	"time"

	"opticare/internal/model"

	"gorm.io/gorm"
)

type RestockOrderRepository interface {
	Create(ctx context.Context, o *model.RestockOrder) error
	Update(ctx context.Context, o *model.RestockOrder) error
	// ListPendingRetries returns pending orders whose next_retry_at has passed.
	ListPendingRetries(ctx context.Context, now time.Time, limit int) ([]model.RestockOrder, error)
}

type restockOrderRepo struct{ db *gorm.DB }

func NewRestockOrderRepository(db *gorm.DB) RestockOrderRepository {
	return &restockOrderRepo{db: db}
}

func (r *restockOrderRepo) Create(ctx context.Context, o *model.RestockOrder) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *restockOrderRepo) Update(ctx context.Context, o *model.RestockOrder) error {
	return r.db.WithContext(ctx).Save(o).Error
}

func (r *restockOrderRepo) ListPendingRetries(ctx context.Context, now time.Time, limit int) ([]model.RestockOrder, error) {
	var orders []model.RestockOrder
	err := r.db.WithContext(ctx).
		Where("status = 'pending' AND next_retry_at IS NOT NULL AND next_retry_at <= ?", now).
		Order("next_retry_at ASC").Limit(limit).
		Find(&orders).Error
	return orders, err
}

package repository

import (
	"context"

	"opticare/internal/dto"
	"opticare/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReservationRepository interface {
	Create(ctx context.Context, res *model.Reservation) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Reservation, error)
	List(ctx context.Context, filter dto.ReservationFilter) ([]model.Reservation, int64, error)
	Delete(ctx context.Context, id uuid.UUID) error

	SaveTx(tx *gorm.DB, res *model.Reservation) error

	DB() *gorm.DB
}

type reservationRepo struct{ db *gorm.DB }

func NewReservationRepository(db *gorm.DB) ReservationRepository {
	return &reservationRepo{db: db}
}

func (r *reservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	return r.db.WithContext(ctx).Create(res).Error
}

func (r *reservationRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	var res model.Reservation
	err := r.db.WithContext(ctx).Preload("Product").Preload("Branch").First(&res, id).Error
	return &res, err
}

func (r *reservationRepo) List(ctx context.Context, filter dto.ReservationFilter) ([]model.Reservation, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Reservation{})
	if filter.ProductID != "" {
		q = q.Where("product_id = ?", filter.ProductID)
	}
	if filter.BranchID != "" {
		q = q.Where("branch_id = ?", filter.BranchID)
	}
	if filter.CustomerID != "" {
		q = q.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	var reservations []model.Reservation
	err := q.Preload("Product").Preload("Branch").
		Order("created_at DESC").Limit(filter.Limit).Offset(offset).
		Find(&reservations).Error
	return reservations, total, err
}

func (r *reservationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Reservation{}, id).Error
}

func (r *reservationRepo) SaveTx(tx *gorm.DB, res *model.Reservation) error {
	return tx.Save(res).Error
}

func (r *reservationRepo) DB() *gorm.DB { return r.db }

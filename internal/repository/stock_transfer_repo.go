package repository

import (
	"context"

	"opticare/internal/dto"
	"opticare/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StockTransferRepository interface {
	Create(ctx context.Context, t *model.StockTransfer) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.StockTransfer, error)
	List(ctx context.Context, filter dto.TransferFilter) ([]model.StockTransfer, int64, error)

	SaveTx(tx *gorm.DB, t *model.StockTransfer) error

	DB() *gorm.DB
}

type stockTransferRepo struct{ db *gorm.DB }

func NewStockTransferRepository(db *gorm.DB) StockTransferRepository {
	return &stockTransferRepo{db: db}
}

func (r *stockTransferRepo) Create(ctx context.Context, t *model.StockTransfer) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *stockTransferRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.StockTransfer, error) {
	var t model.StockTransfer
	err := r.db.WithContext(ctx).
		Preload("Product").Preload("FromBranch").Preload("ToBranch").
		First(&t, id).Error
	return &t, err
}

func (r *stockTransferRepo) List(ctx context.Context, filter dto.TransferFilter) ([]model.StockTransfer, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.StockTransfer{})
	if filter.ProductID != "" {
		q = q.Where("product_id = ?", filter.ProductID)
	}
	if filter.FromBranchID != "" {
		q = q.Where("from_branch_id = ?", filter.FromBranchID)
	}
	if filter.ToBranchID != "" {
		q = q.Where("to_branch_id = ?", filter.ToBranchID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	var transfers []model.StockTransfer
	err := q.Preload("Product").Preload("FromBranch").Preload("ToBranch").
		Order("created_at DESC").Limit(filter.Limit).Offset(offset).
		Find(&transfers).Error
	return transfers, total, err
}

func (r *stockTransferRepo) SaveTx(tx *gorm.DB, t *model.StockTransfer) error {
	return tx.Save(t).Error
}

func (r *stockTransferRepo) DB() *gorm.DB { return r.db }

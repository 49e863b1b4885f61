package repository

import (
	"context"

	"opticare/internal/dto"
	"opticare/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BranchStockRepository defines the data access contract for branch inventory.
// Services depend on this interface, not on the concrete GORM implementation,
// enabling clean unit testing via in-memory stubs.
type BranchStockRepository interface {
	Create(ctx context.Context, bs *model.BranchStock) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.BranchStock, error)
	FindByPair(ctx context.Context, productID, branchID uuid.UUID) (*model.BranchStock, error)
	FindByProduct(ctx context.Context, productID uuid.UUID) ([]model.BranchStock, error)
	List(ctx context.Context, filter dto.BranchStockFilter) ([]model.BranchStock, int64, error)
	ListBelowThreshold(ctx context.Context) ([]model.BranchStock, error)
	ListAll(ctx context.Context) ([]model.BranchStock, error)

	// Used inside transactions — callers must pass the tx instance.
	// FindByPairForUpdateTx takes a row-level lock (SELECT … FOR UPDATE) so
	// concurrent decrements against the same row serialize.
	FindByPairForUpdateTx(tx *gorm.DB, productID, branchID uuid.UUID) (*model.BranchStock, error)
	CreateTx(tx *gorm.DB, bs *model.BranchStock) error
	SaveTx(tx *gorm.DB, bs *model.BranchStock) error
	// ListAllTx reads the full table inside the caller's transaction so a
	// multi-pass job sees one consistent snapshot.
	ListAllTx(tx *gorm.DB) ([]model.BranchStock, error)

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type branchStockRepo struct{ db *gorm.DB }

func NewBranchStockRepository(db *gorm.DB) BranchStockRepository {
	return &branchStockRepo{db: db}
}

func (r *branchStockRepo) Create(ctx context.Context, bs *model.BranchStock) error {
	return r.db.WithContext(ctx).Create(bs).Error
}

func (r *branchStockRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.BranchStock, error) {
	var bs model.BranchStock
	err := r.db.WithContext(ctx).Preload("Product").Preload("Branch").First(&bs, id).Error
	return &bs, err
}

func (r *branchStockRepo) FindByPair(ctx context.Context, productID, branchID uuid.UUID) (*model.BranchStock, error) {
	var bs model.BranchStock
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND branch_id = ?", productID, branchID).
		First(&bs).Error
	return &bs, err
}

func (r *branchStockRepo) FindByProduct(ctx context.Context, productID uuid.UUID) ([]model.BranchStock, error) {
	var rows []model.BranchStock
	err := r.db.WithContext(ctx).Preload("Branch").
		Where("product_id = ? AND is_active = true", productID).
		Find(&rows).Error
	return rows, err
}

func (r *branchStockRepo) List(ctx context.Context, filter dto.BranchStockFilter) ([]model.BranchStock, int64, error) {
	var rows []model.BranchStock
	var total int64

	q := r.db.WithContext(ctx).Model(&model.BranchStock{}).Where("is_active = true")
	if filter.ProductID != "" {
		q = q.Where("product_id = ?", filter.ProductID)
	}
	if filter.BranchID != "" {
		q = q.Where("branch_id = ?", filter.BranchID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	err := q.Preload("Product").Preload("Branch").
		Order("updated_at DESC").Limit(filter.Limit).Offset(offset).
		Find(&rows).Error
	return rows, total, err
}

func (r *branchStockRepo) ListBelowThreshold(ctx context.Context) ([]model.BranchStock, error) {
	var rows []model.BranchStock
	err := r.db.WithContext(ctx).Preload("Product").Preload("Branch").
		Where("is_active = true AND status IN ?", []string{model.StatusLowStock, model.StatusOutOfStock}).
		Order("stock_quantity - reserved_quantity ASC").
		Find(&rows).Error
	return rows, err
}

func (r *branchStockRepo) ListAll(ctx context.Context) ([]model.BranchStock, error) {
	var rows []model.BranchStock
	err := r.db.WithContext(ctx).Find(&rows).Error
	return rows, err
}

func (r *branchStockRepo) FindByPairForUpdateTx(tx *gorm.DB, productID, branchID uuid.UUID) (*model.BranchStock, error) {
	var bs model.BranchStock
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ? AND branch_id = ?", productID, branchID).
		First(&bs).Error
	return &bs, err
}

func (r *branchStockRepo) CreateTx(tx *gorm.DB, bs *model.BranchStock) error {
	return tx.Create(bs).Error
}

func (r *branchStockRepo) SaveTx(tx *gorm.DB, bs *model.BranchStock) error {
	return tx.Save(bs).Error
}

func (r *branchStockRepo) ListAllTx(tx *gorm.DB) ([]model.BranchStock, error) {
	var rows []model.BranchStock
	err := tx.Find(&rows).Error
	return rows, err
}

func (r *branchStockRepo) DB() *gorm.DB { return r.db }

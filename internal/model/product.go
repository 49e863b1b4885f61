package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog entry (frames, lenses, solutions, accessories).
// StockQuantity is the legacy aggregate total across all branches; the
// reconcile job keeps it equal to the sum of the product's BranchStock rows.
type Product struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SKU         string    `gorm:"uniqueIndex;not null"`
	Name        string    `gorm:"index;not null"`
	Description *string
	Category    string          `gorm:"not null"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	// StockQuantity is the legacy aggregate — do not mutate directly,
	// it is recomputed by SyncService from branch_stock rows.
	StockQuantity int  `gorm:"not null;default:0"`
	IsActive      bool `gorm:"not null;default:true"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (Product) TableName() string { return "products" }

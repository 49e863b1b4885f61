package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Stock status labels persisted on BranchStock.Status.
// Status is a cached derivation — every quantity write must recompute it
// inside the same transaction (see service layer).
const (
	StatusInStock    = "In Stock"
	StatusLowStock   = "Low Stock"
	StatusOutOfStock = "Out of Stock"
)

// BranchStock is the inventory record for one product at one branch.
// The (product_id, branch_id) pair is unique: at most one row per pair.
type BranchStock struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_product_branch"`
	BranchID          uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_product_branch"`
	StockQuantity     int       `gorm:"not null;default:0"` // units physically present
	ReservedQuantity  int       `gorm:"not null;default:0"` // units held against approved reservations
	MinStockThreshold int       `gorm:"not null;default:5"`
	Status            string    `gorm:"type:varchar(20);not null;default:'In Stock'"`
	// PriceOverride is a branch-specific price; nil = use the product price
	PriceOverride       *decimal.Decimal `gorm:"type:decimal(10,2)"`
	ExpiryDate          *time.Time
	AutoRestockEnabled  bool `gorm:"not null;default:false"`
	AutoRestockQuantity int  `gorm:"not null;default:0"`
	LastRestockDate     *time.Time
	IsActive            bool `gorm:"not null;default:true"`
	CreatedAt           time.Time
	UpdatedAt           time.Time

	Product *Product `gorm:"foreignKey:ProductID"`
	Branch  *Branch  `gorm:"foreignKey:BranchID"`
}

func (BranchStock) TableName() string { return "branch_stock" }

// Available returns stock minus reservations, floored at zero.
func (bs *BranchStock) Available() int {
	if avail := bs.StockQuantity - bs.ReservedQuantity; avail > 0 {
		return avail
	}
	return 0
}

// DeriveStatus maps the current quantities to a status label:
// available == 0 → Out of Stock, available <= threshold → Low Stock,
// otherwise In Stock.
func (bs *BranchStock) DeriveStatus() string {
	avail := bs.Available()
	switch {
	case avail == 0:
		return StatusOutOfStock
	case avail <= bs.MinStockThreshold:
		return StatusLowStock
	default:
		return StatusInStock
	}
}

// RecomputeStatus refreshes the persisted status from the quantities.
// Callers mutating quantities must invoke this before saving the row.
func (bs *BranchStock) RecomputeStatus() {
	bs.Status = bs.DeriveStatus()
}

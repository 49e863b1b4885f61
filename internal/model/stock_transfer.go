package model

import (
	"time"

	"github.com/google/uuid"
)

// StockTransfer lifecycle: pending → approved → in_transit → completed.
// cancelled is reachable from any non-terminal state; rejecting a pending
// transfer also lands on cancelled. No stock moves before completion.
const (
	TransferPending   = "pending"
	TransferApproved  = "approved"
	TransferInTransit = "in_transit"
	TransferCompleted = "completed"
	TransferCancelled = "cancelled"
)

// StockTransfer moves quantity units of a product from one branch's
// BranchStock row to another's.
type StockTransfer struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID    uuid.UUID `gorm:"type:uuid;not null;index"`
	FromBranchID uuid.UUID `gorm:"type:uuid;not null;index"`
	ToBranchID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Quantity     int       `gorm:"not null"`
	Status       string    `gorm:"type:varchar(20);not null;default:'pending'"`
	Reason       string
	Notes        *string
	RequestedBy  uuid.UUID  `gorm:"type:uuid;not null"`
	ApprovedBy   *uuid.UUID `gorm:"type:uuid"`
	ApprovedAt   *time.Time
	ShippedAt    *time.Time
	CompletedAt  *time.Time
	CancelledAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Product    *Product `gorm:"foreignKey:ProductID"`
	FromBranch *Branch  `gorm:"foreignKey:FromBranchID"`
	ToBranch   *Branch  `gorm:"foreignKey:ToBranchID"`
}

func (StockTransfer) TableName() string { return "stock_transfers" }

// IsTerminal reports whether the transfer reached a final state.
func (t *StockTransfer) IsTerminal() bool {
	return t.Status == TransferCompleted || t.Status == TransferCancelled
}

package model

import (
	"time"

	"github.com/google/uuid"
)

// StockMovement records every change to a branch_stock row.
// Created automatically on manual adjustments, reservation completions,
// transfers, restocks and reconcile corrections.
type StockMovement struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID     uuid.UUID `gorm:"type:uuid;not null;index"`
	BranchID      uuid.UUID `gorm:"type:uuid;not null;index"`
	Type          string    `gorm:"not null"` // "adjustment" | "reservation" | "transfer_out" | "transfer_in" | "restock" | "reconcile"
	Quantity      int       `gorm:"not null"` // positive = in, negative = out
	StockBefore   int       `gorm:"not null"`
	StockAfter    int       `gorm:"not null"`
	Reason        string
	ReferenceID   *uuid.UUID `gorm:"type:uuid"` // reservation_id or transfer_id if applicable
	PerformedBy   *uuid.UUID `gorm:"type:uuid"`
	CreatedAt     time.Time

	Product *Product `gorm:"foreignKey:ProductID"`
	Branch  *Branch  `gorm:"foreignKey:BranchID"`
}

func (StockMovement) TableName() string { return "stock_movements" }

package model

import (
	"time"

	"github.com/google/uuid"
)

// Reservation lifecycle: pending → approved | rejected; approved → completed.
// Stock is held (reserved_quantity incremented) at approval, not at request,
// so unreviewed requests never pin inventory.
const (
	ReservationPending   = "pending"
	ReservationApproved  = "approved"
	ReservationRejected  = "rejected"
	ReservationCompleted = "completed"
)

// Reservation is a customer's request to hold quantity units of a product
// at a branch, pending staff review.
type Reservation struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID   uuid.UUID `gorm:"type:uuid;not null;index"`
	BranchID    uuid.UUID `gorm:"type:uuid;not null;index"`
	CustomerID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Quantity    int       `gorm:"not null"`
	Status      string    `gorm:"type:varchar(20);not null;default:'pending'"`
	Notes       *string
	ProcessedBy *uuid.UUID `gorm:"type:uuid"` // staff member who approved/rejected
	ProcessedAt *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Product  *Product `gorm:"foreignKey:ProductID"`
	Branch   *Branch  `gorm:"foreignKey:BranchID"`
	Customer *User    `gorm:"foreignKey:CustomerID"`
}

func (Reservation) TableName() string { return "reservations" }

// IsTerminal reports whether no further transitions are allowed.
func (r *Reservation) IsTerminal() bool {
	return r.Status == ReservationRejected || r.Status == ReservationCompleted
}

package model

import (
	"time"

	"github.com/google/uuid"
)

// RestockOrder tracks one auto-restock purchase order against the supplier
// gateway. pending = not yet confirmed (retry cron re-attempts), ordered =
// confirmed and stock applied, error = gave up after max retries.
type RestockOrder struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID   uuid.UUID `gorm:"type:uuid;not null;index"`
	BranchID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Quantity    int       `gorm:"not null"`
	Status      string    `gorm:"type:varchar(20);not null;default:'pending'"`
	SupplierRef *string
	RetryCount  int `gorm:"not null;default:0"`
	NextRetryAt *time.Time
	LastError   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (RestockOrder) TableName() string { return "restock_orders" }

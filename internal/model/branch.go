package model

import (
	"time"

	"github.com/google/uuid"
)

// Branch is a physical clinic location holding its own inventory.
type Branch struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Code      string    `gorm:"uniqueIndex;not null"`
	Name      string    `gorm:"not null"`
	Address   *string
	Phone     *string
	// ManagerEmail receives low-stock alert mails for this branch
	ManagerEmail *string
	IsActive     bool `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (Branch) TableName() string { return "branches" }

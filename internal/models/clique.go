package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Clique is a shared-expense group with an optional pooled fund.
type Clique struct {
	ID string `gorm:"primaryKey;type:text" json:"id"` // External collision-free id.

	Name string          `gorm:"type:text;not null" json:"name"`  // Display name.
	Fund decimal.Decimal `gorm:"type:numeric;not null" json:"fund"` // Pooled fund balance.

	// IsFund is fixed at creation: true iff the founding fund amount was
	// non-zero. It is never re-derived after transactions move the balance.
	IsFund   bool `gorm:"not null;default:false" json:"is_fund"`
	IsActive bool `gorm:"not null;default:true" json:"is_active"`

	Members []Member `gorm:"foreignKey:CliqueID" json:"members,omitempty"` // Related memberships.

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"-"`          // Last update timestamp.
}

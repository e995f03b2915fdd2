package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is an append-only record of fund movement within a clique.
// It is written by the payment subsystem; this server only reads and
// cascades it on clique deletion.
type Transaction struct {
	ID string `gorm:"primaryKey;type:text" json:"id"` // External collision-free id.

	CliqueID string `gorm:"type:text;not null;index" json:"clique_id"`
	MemberID string `gorm:"type:text;not null;index" json:"member_id"` // Sending member.

	Type        string          `gorm:"type:text;not null" json:"type"`
	Amount      decimal.Decimal `gorm:"type:numeric;not null" json:"amount"`
	Description string          `gorm:"type:text" json:"description"`
	IsVerified  bool            `gorm:"not null;default:false" json:"is_verified"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntry is a member's running balance within a clique's fund.
// Exactly one entry exists per Member row for the lifetime of that row;
// member deactivation and reactivation never touch it.
type LedgerEntry struct {
	MemberID string `gorm:"primaryKey;type:text" json:"member_id"` // One-to-one with Member.
	CliqueID string `gorm:"type:text;not null;index" json:"clique_id"`

	Balance decimal.Decimal `gorm:"type:numeric;not null" json:"balance"` // Running balance.
	IsDue   bool            `gorm:"not null;default:false" json:"is_due"` // True when the member owes the fund.

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"-"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"-"`
}

package clique

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cliquepay/cliqued/internal/models"
)

// Ledger reads and adjusts per-member balances. Entries are created by
// the membership manager on first join and never standalone.
type Ledger struct {
	db *gorm.DB
}

// NewLedger constructs a Ledger accessor.
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Get returns the ledger entry for a member.
func (l *Ledger) Get(ctx context.Context, memberID string) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	if errFind := l.db.WithContext(ctx).First(&entry, "member_id = ?", memberID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: ledger for member %s", ErrNotFound, memberID)
		}
		return nil, fmt.Errorf("get ledger: %w", errFind)
	}
	return &entry, nil
}

// Adjust applies a signed delta to a member's balance and recomputes the
// due flag. The read and write run in one transaction.
func (l *Ledger) Adjust(ctx context.Context, memberID string, delta decimal.Decimal) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	errTx := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errFind := tx.First(&entry, "member_id = ?", memberID).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: ledger for member %s", ErrNotFound, memberID)
			}
			return fmt.Errorf("get ledger: %w", errFind)
		}
		entry.Balance = entry.Balance.Add(delta)
		entry.IsDue = entry.Balance.IsNegative()
		if errSave := tx.Model(&models.LedgerEntry{}).
			Where("member_id = ?", memberID).
			Updates(map[string]any{"balance": entry.Balance, "is_due": entry.IsDue}).Error; errSave != nil {
			return fmt.Errorf("update ledger: %w", errSave)
		}
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	return &entry, nil
}

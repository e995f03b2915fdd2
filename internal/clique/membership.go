package clique

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cliquepay/cliqued/internal/ident"
	"github.com/cliquepay/cliqued/internal/models"
)

// Membership adds, reactivates and soft-removes members. Mutations for a
// given (user, clique) pair are serialized through a keyed mutex so that
// racing adds cannot commit two live member rows; the unique index on
// (user_id, clique_id) is the storage-level backstop.
type Membership struct {
	db    *gorm.DB
	ids   ident.Generator
	locks keyedLocks
}

// NewMembership constructs a Membership manager.
func NewMembership(db *gorm.DB, ids ident.Generator) *Membership {
	return &Membership{db: db, ids: ids}
}

// AddMembers adds or reactivates the given users in order. The loop stops
// at the first unresolvable id (ErrNotFound) or already-active membership
// (ErrConflict); members committed before the failure stay committed and
// are returned alongside the error.
func (m *Membership) AddMembers(ctx context.Context, cliqueID string, userIDs []string) ([]models.Member, error) {
	if len(userIDs) == 0 {
		return nil, fmt.Errorf("%w: empty user id list", ErrValidation)
	}
	// Shape validation runs before any write so a malformed batch
	// commits nothing.
	seen := make(map[string]struct{}, len(userIDs))
	for _, userID := range userIDs {
		if userID == "" {
			return nil, fmt.Errorf("%w: empty user id", ErrValidation)
		}
		if _, dup := seen[userID]; dup {
			return nil, fmt.Errorf("%w: duplicate user id %s", ErrValidation, userID)
		}
		seen[userID] = struct{}{}
	}

	var cliqueRow models.Clique
	if errFind := m.db.WithContext(ctx).First(&cliqueRow, "id = ?", cliqueID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: clique %s", ErrNotFound, cliqueID)
		}
		return nil, fmt.Errorf("get clique: %w", errFind)
	}

	added := make([]models.Member, 0, len(userIDs))
	for _, userID := range userIDs {
		member, errAdd := m.addOne(ctx, cliqueID, userID)
		if errAdd != nil {
			return added, errAdd
		}
		added = append(added, *member)
	}
	return added, nil
}

// addOne resolves one user and reactivates or creates its membership.
func (m *Membership) addOne(ctx context.Context, cliqueID, userID string) (*models.Member, error) {
	unlock := m.locks.lock(userID + "\x00" + cliqueID)
	defer unlock()

	var user models.User
	if errFind := m.db.WithContext(ctx).First(&user, "id = ?", userID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
		}
		return nil, fmt.Errorf("resolve user: %w", errFind)
	}

	var existing models.Member
	errFind := m.db.WithContext(ctx).
		Where("user_id = ? AND clique_id = ?", userID, cliqueID).
		First(&existing).Error
	switch {
	case errFind == nil && existing.IsActive:
		return nil, fmt.Errorf("%w: user %s", ErrConflict, userID)
	case errFind == nil:
		// Rejoin: flip the existing row back on. The ledger entry created
		// with the original join is reused, so the balance survives.
		if errUpdate := m.db.WithContext(ctx).
			Model(&existing).
			Update("is_active", true).Error; errUpdate != nil {
			return nil, fmt.Errorf("reactivate member: %w", errUpdate)
		}
		existing.IsActive = true
		existing.Username = user.Username
		return &existing, nil
	case errors.Is(errFind, gorm.ErrRecordNotFound):
		// First join: member and ledger entry are created together.
		member := models.Member{
			ID:       m.ids.NewID(),
			UserID:   userID,
			CliqueID: cliqueID,
			IsAdmin:  false,
			IsActive: true,
			JoinedAt: time.Now().UTC(),
		}
		ledger := models.LedgerEntry{
			MemberID: member.ID,
			CliqueID: cliqueID,
			Balance:  decimal.Zero,
		}
		errTx := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if errCreate := tx.Create(&member).Error; errCreate != nil {
				return fmt.Errorf("create member: %w", errCreate)
			}
			if errCreate := tx.Create(&ledger).Error; errCreate != nil {
				return fmt.Errorf("create ledger: %w", errCreate)
			}
			return nil
		})
		if errTx != nil {
			return nil, errTx
		}
		member.Username = user.Username
		return &member, nil
	default:
		return nil, fmt.Errorf("lookup member: %w", errFind)
	}
}

// RemoveMembers soft-deletes the given members of one clique. Removing
// an already inactive member, or an id outside the clique, is a no-op;
// the ledger entries stay intact.
func (m *Membership) RemoveMembers(ctx context.Context, cliqueID string, memberIDs []string) error {
	if len(memberIDs) == 0 {
		return fmt.Errorf("%w: empty member id list", ErrValidation)
	}
	for _, memberID := range memberIDs {
		if memberID == "" {
			return fmt.Errorf("%w: empty member id", ErrValidation)
		}
	}
	if errUpdate := m.db.WithContext(ctx).
		Model(&models.Member{}).
		Where("clique_id = ? AND id IN ?", cliqueID, memberIDs).
		Update("is_active", false).Error; errUpdate != nil {
		return fmt.Errorf("remove members: %w", errUpdate)
	}
	return nil
}

// keyedLocks hands out one mutex per key. Entries are reference counted
// and evicted on last release, so the map is bounded by in-flight keys.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// lock acquires the mutex for key and returns its release function.
func (k *keyedLocks) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*lockEntry)
	}
	entry, ok := k.locks[key]
	if !ok {
		entry = &lockEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

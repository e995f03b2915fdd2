// Package clique implements the membership and ledger consistency core:
// group lifecycle, membership state transitions, per-member balances and
// the role checks gating every mutation.
package clique

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cliquepay/cliqued/internal/db"
	"github.com/cliquepay/cliqued/internal/ident"
	"github.com/cliquepay/cliqued/internal/models"
)

// Directory owns clique records: create, read, rename and delete.
type Directory struct {
	db  *gorm.DB
	ids ident.Generator
}

// NewDirectory constructs a Directory.
func NewDirectory(conn *gorm.DB, ids ident.Generator) *Directory {
	return &Directory{db: conn, ids: ids}
}

// Summary is a clique with its most recent transaction, as returned by
// ListForUser.
type Summary struct {
	models.Clique
	LastTransaction *models.Transaction `json:"last_transaction,omitempty"`
}

// Create allocates a clique, its founding admin member and a zero-balance
// ledger entry as one unit. Either all three records exist afterwards or
// none do.
func (d *Directory) Create(ctx context.Context, name string, fund decimal.Decimal, founderUserID string) (*models.Clique, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: missing clique name", ErrValidation)
	}

	var founder models.User
	if errFind := d.db.WithContext(ctx).First(&founder, "id = ?", founderUserID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %s", ErrNotFound, founderUserID)
		}
		return nil, fmt.Errorf("resolve founder: %w", errFind)
	}

	now := time.Now().UTC()
	cliqueRow := models.Clique{
		ID:       d.ids.NewID(),
		Name:     name,
		Fund:     fund,
		IsFund:   !fund.IsZero(),
		IsActive: true,
	}
	memberRow := models.Member{
		ID:       d.ids.NewID(),
		UserID:   founder.ID,
		CliqueID: cliqueRow.ID,
		IsAdmin:  true,
		IsActive: true,
		JoinedAt: now,
	}
	ledgerRow := models.LedgerEntry{
		MemberID: memberRow.ID,
		CliqueID: cliqueRow.ID,
		Balance:  decimal.Zero,
	}

	errTx := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errCreate := tx.Create(&cliqueRow).Error; errCreate != nil {
			return fmt.Errorf("create clique: %w", errCreate)
		}
		if errCreate := tx.Create(&memberRow).Error; errCreate != nil {
			return fmt.Errorf("create founder member: %w", errCreate)
		}
		if errCreate := tx.Create(&ledgerRow).Error; errCreate != nil {
			return fmt.Errorf("create founder ledger: %w", errCreate)
		}
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}

	memberRow.Username = founder.Username
	cliqueRow.Members = []models.Member{memberRow}
	return &cliqueRow, nil
}

// Get returns a clique with its active members.
func (d *Directory) Get(ctx context.Context, cliqueID string) (*models.Clique, error) {
	var row models.Clique
	if errFind := d.db.WithContext(ctx).First(&row, "id = ?", cliqueID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: clique %s", ErrNotFound, cliqueID)
		}
		return nil, fmt.Errorf("get clique: %w", errFind)
	}

	members, errMembers := activeMembers(ctx, d.db, row.ID)
	if errMembers != nil {
		return nil, errMembers
	}
	row.Members = members
	return &row, nil
}

// ListForUser returns every clique where the user holds an active
// membership, each with active members and the most recent transaction.
// A non-empty search narrows the result to cliques whose name matches,
// case-insensitively.
func (d *Directory) ListForUser(ctx context.Context, userID, search string) ([]Summary, error) {
	var memberships []models.Member
	if errFind := d.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Find(&memberships).Error; errFind != nil {
		return nil, fmt.Errorf("list memberships: %w", errFind)
	}
	if len(memberships) == 0 {
		return []Summary{}, nil
	}

	cliqueIDs := make([]string, 0, len(memberships))
	for _, membership := range memberships {
		cliqueIDs = append(cliqueIDs, membership.CliqueID)
	}

	query := d.db.WithContext(ctx).Where("id IN ?", cliqueIDs)
	if search = strings.TrimSpace(search); search != "" {
		pattern := db.NormalizeLikePattern(d.db, "%"+search+"%")
		query = query.Where(db.CaseInsensitiveLikeExpr(d.db, "name"), pattern)
	}

	var rows []models.Clique
	if errFind := query.Order("created_at DESC").Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("list cliques: %w", errFind)
	}

	out := make([]Summary, 0, len(rows))
	for i := range rows {
		members, errMembers := activeMembers(ctx, d.db, rows[i].ID)
		if errMembers != nil {
			return nil, errMembers
		}
		rows[i].Members = members

		var last models.Transaction
		errLast := d.db.WithContext(ctx).
			Where("clique_id = ?", rows[i].ID).
			Order("created_at DESC").
			First(&last).Error
		summary := Summary{Clique: rows[i]}
		if errLast == nil {
			summary.LastTransaction = &last
		} else if !errors.Is(errLast, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("last transaction: %w", errLast)
		}
		out = append(out, summary)
	}
	return out, nil
}

// Rename applies a partial update to the clique name. An omitted name is
// a no-op returning the current record.
func (d *Directory) Rename(ctx context.Context, cliqueID, name string) (*models.Clique, error) {
	name = strings.TrimSpace(name)

	var row models.Clique
	if errFind := d.db.WithContext(ctx).First(&row, "id = ?", cliqueID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: clique %s", ErrNotFound, cliqueID)
		}
		return nil, fmt.Errorf("get clique: %w", errFind)
	}
	if name == "" || name == row.Name {
		return &row, nil
	}

	if errUpdate := d.db.WithContext(ctx).Model(&row).Update("name", name).Error; errUpdate != nil {
		return nil, fmt.Errorf("rename clique: %w", errUpdate)
	}
	row.Name = name
	return &row, nil
}

// Delete removes the clique together with its transactions and media
// references. Member and ledger rows are retained as history.
func (d *Directory) Delete(ctx context.Context, cliqueID string) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.Clique
		if errFind := tx.First(&row, "id = ?", cliqueID).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: clique %s", ErrNotFound, cliqueID)
			}
			return fmt.Errorf("get clique: %w", errFind)
		}
		if errDelete := tx.Where("clique_id = ?", cliqueID).Delete(&models.Transaction{}).Error; errDelete != nil {
			return fmt.Errorf("delete transactions: %w", errDelete)
		}
		if errDelete := tx.Where("clique_id = ?", cliqueID).Delete(&models.Media{}).Error; errDelete != nil {
			return fmt.Errorf("delete media: %w", errDelete)
		}
		if errDelete := tx.Delete(&row).Error; errDelete != nil {
			return fmt.Errorf("delete clique: %w", errDelete)
		}
		return nil
	})
}

// activeMembers loads a clique's active members with usernames attached.
func activeMembers(ctx context.Context, conn *gorm.DB, cliqueID string) ([]models.Member, error) {
	var members []models.Member
	if errFind := conn.WithContext(ctx).
		Where("clique_id = ? AND is_active = ?", cliqueID, true).
		Order("joined_at ASC").
		Find(&members).Error; errFind != nil {
		return nil, fmt.Errorf("list members: %w", errFind)
	}
	if len(members) == 0 {
		return members, nil
	}

	userIDs := make([]string, 0, len(members))
	for _, member := range members {
		userIDs = append(userIDs, member.UserID)
	}
	var users []models.User
	if errFind := conn.WithContext(ctx).
		Select("id", "username").
		Where("id IN ?", userIDs).
		Find(&users).Error; errFind != nil {
		return nil, fmt.Errorf("list member users: %w", errFind)
	}
	names := make(map[string]string, len(users))
	for _, user := range users {
		names[user.ID] = user.Username
	}
	for i := range members {
		members[i].Username = names[members[i].UserID]
	}
	return members, nil
}

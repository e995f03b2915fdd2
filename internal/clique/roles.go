package clique

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/cliquepay/cliqued/internal/models"
)

// Role is a caller's effective role within a clique. The values form a
// total order, so a minimum-level check is a plain comparison.
type Role int

// Role levels, lowest first.
const (
	RoleNone Role = iota
	RoleMember
	RoleAdmin
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleMember:
		return "member"
	case RoleAdmin:
		return "admin"
	default:
		return "none"
	}
}

// Meets reports whether the role satisfies the required minimum level.
func (r Role) Meets(min Role) bool { return r >= min }

// Evaluator resolves a caller's effective role for a target clique.
type Evaluator struct {
	db *gorm.DB
}

// NewEvaluator constructs an Evaluator.
func NewEvaluator(db *gorm.DB) *Evaluator {
	return &Evaluator{db: db}
}

// Resolve returns the caller's active membership and role in the clique.
// A missing or inactive membership resolves to (nil, RoleNone).
func (e *Evaluator) Resolve(ctx context.Context, userID, cliqueID string) (*models.Member, Role, error) {
	var member models.Member
	errFind := e.db.WithContext(ctx).
		Where("user_id = ? AND clique_id = ? AND is_active = ?", userID, cliqueID, true).
		First(&member).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, RoleNone, nil
		}
		return nil, RoleNone, fmt.Errorf("resolve role: %w", errFind)
	}
	if member.IsAdmin {
		return &member, RoleAdmin, nil
	}
	return &member, RoleMember, nil
}

// Require resolves the caller's role and fails with ErrForbidden when it
// is below the required minimum. This gate runs before every mutation
// that targets a specific clique.
func (e *Evaluator) Require(ctx context.Context, userID, cliqueID string, min Role) (*models.Member, error) {
	member, role, errResolve := e.Resolve(ctx, userID, cliqueID)
	if errResolve != nil {
		return nil, errResolve
	}
	if !role.Meets(min) {
		return nil, fmt.Errorf("%w: %s required", ErrForbidden, min)
	}
	return member, nil
}

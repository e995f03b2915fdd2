package models

import "time"

// Member is the join record linking a user to a clique. A (user, clique)
// pair keeps at most one Member row over its entire history: leaving
// flips IsActive off and rejoining flips it back on the same row.
type Member struct {
	ID string `gorm:"primaryKey;type:text" json:"id"` // External collision-free id.

	UserID   string `gorm:"type:text;not null;index;uniqueIndex:idx_members_user_clique" json:"user_id"`
	CliqueID string `gorm:"type:text;not null;index;uniqueIndex:idx_members_user_clique" json:"clique_id"`

	IsAdmin  bool `gorm:"not null;default:false" json:"is_admin"`
	IsActive bool `gorm:"not null;default:true" json:"is_active"`

	JoinedAt time.Time `gorm:"not null" json:"joined_at"` // First-join timestamp, kept across rejoin cycles.

	// Username is populated from the user row for API responses; it is not
	// a column.
	Username string `gorm:"-" json:"username,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"-"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"-"`
}

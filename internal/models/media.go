package models

import (
	"time"

	"gorm.io/datatypes"
)

// Media is a shared file reference attached to a clique. The bytes live
// in external storage; this row records the location and the sender.
// Rows are immutable after creation.
type Media struct {
	ID string `gorm:"primaryKey;type:text" json:"id"` // External collision-free id.

	CliqueID string `gorm:"type:text;not null;index" json:"clique_id"`
	MemberID string `gorm:"type:text;not null;index" json:"member_id"` // Uploading member.

	Location    string `gorm:"type:text;not null" json:"location"`     // Storage location returned by the upload store.
	ContentType string `gorm:"type:text;not null" json:"content_type"` // MIME type of the stored bytes.

	Metadata datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"` // Upload metadata (original name, size).

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

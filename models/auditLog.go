package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit actions. One entry is written per disclosure-relevant action,
// after the action's effect is durable.
const (
	ActionUpload       = "UPLOAD"
	ActionShare        = "SHARE"
	ActionLinkGenerate = "LINK_GENERATE"
	ActionViewLink     = "VIEW_LINK"
	ActionDownload     = "DOWNLOAD"
	ActionDownloadLink = "DOWNLOAD_LINK"
	ActionRevokeAccess = "REVOKE_ACCESS"
)

// AuditLog rows are append-only; nothing in this codebase updates or
// deletes them. UserID is nullable: link accesses are logged even when
// the actor could not be resolved.
type AuditLog struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Action    string     `gorm:"not null;index" json:"action"`
	UserID    *uuid.UUID `gorm:"type:uuid" json:"userId"`
	FileID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"fileId"`
	Details   string     `json:"details"`
	IPAddress string     `json:"ipAddress"`
	CreatedAt time.Time  `json:"createdAt"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	File File  `gorm:"foreignKey:FileID" json:"-"`
}

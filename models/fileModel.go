package models

import (
	"time"

	"github.com/google/uuid"
)

// Resource types as reported by the storage backend.
const (
	ResourceImage = "image"
	ResourceVideo = "video"
	ResourceRaw   = "raw"
)

type File struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID      uuid.UUID `gorm:"type:uuid;not null;index" json:"ownerId"`
	OriginalName string    `gorm:"not null" json:"originalName"`
	MimeType     string    `gorm:"not null" json:"mimeType"`
	Size         int64     `gorm:"not null" json:"size"`
	FileURL      string    `gorm:"not null" json:"fileUrl"`
	PublicID     string    `gorm:"not null" json:"publicId"`
	ResourceType string    `gorm:"default:raw" json:"resourceType"`

	// At most one active link per file. Regenerating overwrites both
	// columns in a single UPDATE; stale tokens are never swept, they
	// just stop passing the expiry check at access time.
	ShareLinkToken     *string    `gorm:"uniqueIndex" json:"-"`
	ShareLinkExpiresAt *time.Time `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Owner      User   `gorm:"foreignKey:OwnerID" json:"owner"`
	SharedWith []User `gorm:"many2many:file_shares;joinForeignKey:FileID;joinReferences:UserID" json:"sharedWith"`
}

// FileShare is one row of the grantee relation. The composite primary
// key lets grants be applied as INSERT ... ON CONFLICT DO NOTHING, so
// concurrent grants against the same file cannot lose each other.
type FileShare struct {
	FileID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time
}

// IsSharedWith reports membership in the grantee set. SharedWith must
// have been loaded with the record.
func (f *File) IsSharedWith(userID uuid.UUID) bool {
	for _, u := range f.SharedWith {
		if u.ID == userID {
			return true
		}
	}
	return false
}

// HasActiveLink reports whether a share link exists and has not yet
// expired at the given instant.
func (f *File) HasActiveLink(now time.Time) bool {
	return f.ShareLinkToken != nil && f.ShareLinkExpiresAt != nil && now.Before(*f.ShareLinkExpiresAt)
}

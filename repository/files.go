package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/basit/nua-backend/links"
	"github.com/basit/nua-backend/models"
)

// Files is the GORM-backed file store. Absent records are (nil, nil);
// the caller decides what not-found means for it.
type Files struct {
	db *gorm.DB
}

func NewFiles(db *gorm.DB) *Files {
	return &Files{db: db}
}

func (r *Files) Create(ctx context.Context, f *models.File) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *Files) ByID(ctx context.Context, id uuid.UUID) (*models.File, error) {
	var f models.File
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Preload("SharedWith").
		First(&f, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *Files) ByLinkToken(ctx context.Context, token string) (*models.File, error) {
	var f models.File
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Preload("SharedWith").
		First(&f, "share_link_token = ?", token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, links.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *Files) OwnedBy(ctx context.Context, userID uuid.UUID) ([]models.File, error) {
	var files []models.File
	err := r.db.WithContext(ctx).
		Preload("SharedWith").
		Where("owner_id = ?", userID).
		Order("created_at DESC").
		Find(&files).Error
	return files, err
}

func (r *Files) SharedWithUser(ctx context.Context, userID uuid.UUID) ([]models.File, error) {
	var files []models.File
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Joins("JOIN file_shares ON file_shares.file_id = files.id").
		Where("file_shares.user_id = ?", userID).
		Order("files.created_at DESC").
		Find(&files).Error
	return files, err
}

// SetShareLink replaces both link columns in a single UPDATE, so a
// regeneration is atomic: no reader ever sees the new token with the
// old expiry.
func (r *Files) SetShareLink(ctx context.Context, fileID uuid.UUID, token string, expiresAt time.Time) error {
	return r.db.WithContext(ctx).Model(&models.File{}).
		Where("id = ?", fileID).
		Updates(map[string]any{
			"share_link_token":      token,
			"share_link_expires_at": expiresAt,
		}).Error
}

// AddGrantees inserts all rows in one batch with ON CONFLICT DO
// NOTHING on the composite key. Concurrent grants against the same
// file each land their own rows; nothing is read-modify-written.
func (r *Files) AddGrantees(ctx context.Context, fileID uuid.UUID, userIDs []uuid.UUID) error {
	if len(userIDs) == 0 {
		return nil
	}
	rows := make([]models.FileShare, len(userIDs))
	for i, id := range userIDs {
		rows[i] = models.FileShare{FileID: fileID, UserID: id, CreatedAt: time.Now()}
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
}

func (r *Files) RemoveGrantee(ctx context.Context, fileID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("file_id = ? AND user_id = ?", fileID, userID).
		Delete(&models.FileShare{}).Error
}

package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/basit/nua-backend/models"
)

// Audit is the append-only log store. There is intentionally no
// update or delete here.
type Audit struct {
	db *gorm.DB
}

func NewAudit(db *gorm.DB) *Audit {
	return &Audit{db: db}
}

func (r *Audit) Insert(ctx context.Context, entry *models.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *Audit) ByFile(ctx context.Context, fileID uuid.UUID) ([]models.AuditLog, error) {
	var entries []models.AuditLog
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("file_id = ?", fileID).
		Order("created_at DESC").
		Find(&entries).Error
	return entries, err
}

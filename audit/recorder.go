// Package audit appends disclosure events. Writes are best-effort:
// losing an audit row must never fail the action it documents, so
// Record has no error return at all — persistence failures are logged
// locally and discarded. Rows are never updated or deleted.
package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/basit/nua-backend/models"
)

type Store interface {
	Insert(ctx context.Context, entry *models.AuditLog) error
	// ByFile returns the file's entries newest first.
	ByFile(ctx context.Context, fileID uuid.UUID) ([]models.AuditLog, error)
}

type Recorder struct {
	store Store
}

func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// Record appends one entry. actorID may be nil for accesses where the
// actor could not be resolved. Call it only after the effect being
// documented is durable.
func (r *Recorder) Record(ctx context.Context, action string, actorID *uuid.UUID, fileID uuid.UUID, details, ip string) {
	entry := &models.AuditLog{
		ID:        uuid.New(),
		Action:    action,
		UserID:    actorID,
		FileID:    fileID,
		Details:   details,
		IPAddress: ip,
		CreatedAt: time.Now(),
	}
	if err := r.store.Insert(ctx, entry); err != nil {
		log.Printf("audit log error (action=%s file=%s): %v", action, fileID, err)
	}
}

// List returns the file's trail, newest first. Owner-only restriction
// is enforced by the caller, which has the file record at hand.
func (r *Recorder) List(ctx context.Context, fileID uuid.UUID) ([]models.AuditLog, error) {
	return r.store.ByFile(ctx, fileID)
}

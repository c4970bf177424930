// Package share mutates the grantee relation of a file. Grants and
// revokes go through single atomic statements against the file_shares
// relation rather than rewriting the whole record, so concurrent calls
// against the same file cannot lose each other's rows.
package share

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/basit/nua-backend/models"
)

// ErrNotOwner is returned when the caller is not the file's owner.
var ErrNotOwner = errors.New("caller is not the file owner")

// Outcome is the per-email result of a grant attempt. Expected
// conditions are values here, not errors.
type Outcome int

const (
	Granted Outcome = iota
	AlreadyShared
	UserNotFound
)

// Result pairs a candidate email with its outcome, formatted the way
// the share endpoint reports it.
type Result struct {
	Email   string
	Outcome Outcome
	User    *models.User
}

// Label renders the outcome as the per-recipient status string the
// share response carries.
func (r Result) Label() string {
	switch r.Outcome {
	case Granted:
		return fmt.Sprintf("%s (Success)", r.Email)
	case AlreadyShared:
		return fmt.Sprintf("%s (Already shared)", r.Email)
	default:
		return fmt.Sprintf("%s (User not found)", r.Email)
	}
}

// FileStore covers the two set mutations the registry performs.
type FileStore interface {
	// AddGrantees inserts all rows in one statement, ignoring rows
	// that already exist.
	AddGrantees(ctx context.Context, fileID uuid.UUID, userIDs []uuid.UUID) error
	// RemoveGrantee deletes the row if present; absent is not an error.
	RemoveGrantee(ctx context.Context, fileID, userID uuid.UUID) error
}

// UserStore resolves candidate emails. A missing account is reported
// as (nil, nil).
type UserStore interface {
	ByEmail(ctx context.Context, email string) (*models.User, error)
}

// Auditor is the slice of the audit recorder the registry needs.
type Auditor interface {
	Record(ctx context.Context, action string, actorID *uuid.UUID, fileID uuid.UUID, details, ip string)
}

type Registry struct {
	files FileStore
	users UserStore
	audit Auditor
}

func NewRegistry(files FileStore, users UserStore, audit Auditor) *Registry {
	return &Registry{files: files, users: users, audit: audit}
}

// Grant resolves each email independently and reports every outcome;
// it never stops at the first failure. All newly resolved grantees are
// written in one durable statement, and one SHARE entry is recorded
// per actually-granted email after that write lands. The file's
// in-memory grantee set is updated to match.
func (reg *Registry) Grant(ctx context.Context, f *models.File, callerID uuid.UUID, emails []string, ip string) ([]Result, error) {
	if f.OwnerID != callerID {
		return nil, ErrNotOwner
	}

	results := make([]Result, 0, len(emails))
	var granted []Result
	pending := make(map[uuid.UUID]bool)

	for _, raw := range emails {
		email := strings.TrimSpace(raw)
		user, err := reg.users.ByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if user == nil {
			results = append(results, Result{Email: email, Outcome: UserNotFound})
			continue
		}
		// The owner already has full access and is never a grantee;
		// duplicates within one call collapse the same way.
		if user.ID == f.OwnerID || f.IsSharedWith(user.ID) || pending[user.ID] {
			results = append(results, Result{Email: email, Outcome: AlreadyShared, User: user})
			continue
		}
		pending[user.ID] = true
		r := Result{Email: email, Outcome: Granted, User: user}
		results = append(results, r)
		granted = append(granted, r)
	}

	if len(granted) > 0 {
		ids := make([]uuid.UUID, len(granted))
		for i, r := range granted {
			ids[i] = r.User.ID
		}
		if err := reg.files.AddGrantees(ctx, f.ID, ids); err != nil {
			return nil, err
		}
		for _, r := range granted {
			f.SharedWith = append(f.SharedWith, *r.User)
			reg.audit.Record(ctx, models.ActionShare, &callerID, f.ID, fmt.Sprintf("Shared with %s", r.Email), ip)
		}
	}
	return results, nil
}

// Revoke removes one grantee. Removing an absent grantee is a no-op,
// not an error; the REVOKE_ACCESS entry is recorded either way, after
// the delete is durable.
func (reg *Registry) Revoke(ctx context.Context, f *models.File, callerID, userID uuid.UUID, ip string) error {
	if f.OwnerID != callerID {
		return ErrNotOwner
	}
	if err := reg.files.RemoveGrantee(ctx, f.ID, userID); err != nil {
		return err
	}
	kept := f.SharedWith[:0]
	for _, u := range f.SharedWith {
		if u.ID != userID {
			kept = append(kept, u)
		}
	}
	f.SharedWith = kept
	reg.audit.Record(ctx, models.ActionRevokeAccess, &callerID, f.ID, fmt.Sprintf("Removed access for user %s", userID), ip)
	return nil
}

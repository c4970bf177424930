// Package links manages the single expiring share link each file may
// carry. Expiry is lazy: Resolve matches the token only, and the access
// layer decides whether the link still grants anything. Stale tokens
// sit in the row until the next regeneration overwrites them.
package links

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/basit/nua-backend/models"
)

// DefaultTTLHours is applied when the caller supplies a non-positive
// or non-numeric window.
const DefaultTTLHours = 24

var ErrNotFound = errors.New("link not found")

// Store is the slice of persistence the manager needs.
type Store interface {
	// ByLinkToken returns the file whose active token exactly matches,
	// or ErrNotFound. Expired tokens still resolve.
	ByLinkToken(ctx context.Context, token string) (*models.File, error)
	// SetShareLink replaces both link columns in one write.
	SetShareLink(ctx context.Context, fileID uuid.UUID, token string, expiresAt time.Time) error
}

type Link struct {
	Token     string    `json:"linkToken"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Manager struct {
	store Store
	now   func() time.Time
}

func NewManager(store Store) *Manager {
	return &Manager{store: store, now: time.Now}
}

// Generate mints a fresh token for the file and overwrites any
// existing link; the previous token stops resolving to this record
// once the write lands. The caller is expected to have verified
// ownership already.
func (m *Manager) Generate(ctx context.Context, f *models.File, ttlHours float64) (Link, error) {
	ttlHours = NormalizeTTL(ttlHours)

	token := uuid.NewString()
	expiresAt := m.now().Add(time.Duration(ttlHours * float64(time.Hour)))

	if err := m.store.SetShareLink(ctx, f.ID, token, expiresAt); err != nil {
		return Link{}, err
	}
	f.ShareLinkToken = &token
	f.ShareLinkExpiresAt = &expiresAt
	return Link{Token: token, ExpiresAt: expiresAt}, nil
}

// Resolve looks up a file by exact token match. It does not consider
// expiry; a record found through an expired token is still returned
// and the access decision at the call site is what denies it.
func (m *Manager) Resolve(ctx context.Context, token string) (*models.File, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	return m.store.ByLinkToken(ctx, token)
}

// NormalizeTTL maps unusable windows to the default one.
func NormalizeTTL(ttlHours float64) float64 {
	if math.IsNaN(ttlHours) || ttlHours <= 0 {
		return DefaultTTLHours
	}
	return ttlHours
}

// HoursFrom extracts a TTL in hours from a loosely-typed request value
// (JSON numbers, numeric strings, or absent). Anything unusable maps
// to NaN, which Generate coerces to the default window.
func HoursFrom(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case string:
		parsed, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return math.NaN()
		}
		return parsed
	default:
		return math.NaN()
	}
}

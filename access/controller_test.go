package access

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/basit/nua-backend/models"
)

func linkedFile(owner uuid.UUID, grantees []uuid.UUID, expiresAt *time.Time) *models.File {
	f := &models.File{ID: uuid.New(), OwnerID: owner}
	for _, g := range grantees {
		f.SharedWith = append(f.SharedWith, models.User{ID: g})
	}
	if expiresAt != nil {
		token := uuid.NewString()
		f.ShareLinkToken = &token
		f.ShareLinkExpiresAt = expiresAt
	}
	return f
}

func TestDecide(t *testing.T) {
	owner := uuid.New()
	grantee := uuid.New()
	stranger := uuid.New()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name     string
		file     *models.File
		req      Request
		want     Decision
		wantRule string
	}{
		{
			name:     "owner always allowed",
			file:     linkedFile(owner, nil, nil),
			req:      Request{UserID: owner, Authenticated: true, Now: now},
			want:     Allow,
			wantRule: "owner",
		},
		{
			name:     "grantee allowed",
			file:     linkedFile(owner, []uuid.UUID{grantee}, nil),
			req:      Request{UserID: grantee, Authenticated: true, Now: now},
			want:     Allow,
			wantRule: "grantee",
		},
		{
			name: "stranger denied without link",
			file: linkedFile(owner, []uuid.UUID{grantee}, nil),
			req:  Request{UserID: stranger, Authenticated: true, Now: now},
			want: Deny,
		},
		{
			name:     "any authenticated account with active link allowed",
			file:     linkedFile(owner, nil, &future),
			req:      Request{UserID: stranger, Authenticated: true, Now: now},
			want:     Allow,
			wantRule: "active-link",
		},
		{
			name: "expired link denies stranger",
			file: linkedFile(owner, nil, &past),
			req:  Request{UserID: stranger, Authenticated: true, Now: now},
			want: Deny,
		},
		{
			name:     "expired link still allows owner",
			file:     linkedFile(owner, nil, &past),
			req:      Request{UserID: owner, Authenticated: true, Now: now},
			want:     Allow,
			wantRule: "owner",
		},
		{
			name:     "expired link still allows grantee",
			file:     linkedFile(owner, []uuid.UUID{grantee}, &past),
			req:      Request{UserID: grantee, Authenticated: true, Now: now},
			want:     Allow,
			wantRule: "grantee",
		},
		{
			name: "unauthenticated denied even with active link",
			file: linkedFile(owner, nil, &future),
			req:  Request{Authenticated: false, Now: now},
			want: Deny,
		},
		{
			name: "link expiring exactly now denies",
			file: linkedFile(owner, nil, &now),
			req:  Request{UserID: stranger, Authenticated: true, Now: now},
			want: Deny,
		},
	}

	c := NewController()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, rule := c.Decide(tt.file, tt.req)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantRule, rule)
		})
	}
}

func TestDecideDefaultsClock(t *testing.T) {
	owner := uuid.New()
	expires := time.Now().Add(time.Hour)
	f := linkedFile(owner, nil, &expires)

	got, rule := NewController().Decide(f, Request{UserID: uuid.New(), Authenticated: true})
	assert.Equal(t, Allow, got)
	assert.Equal(t, "active-link", rule)
}

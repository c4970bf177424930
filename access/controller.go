// Package access decides whether a requester may see a file. The
// decision is a pure function over the loaded record, the requester and
// an injected clock; it never touches storage and records nothing.
package access

import (
	"time"

	"github.com/google/uuid"

	"github.com/basit/nua-backend/models"
)

type Decision int

const (
	Deny Decision = iota
	Allow
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// Request describes who is asking. Authenticated is set by the
// transport layer after the bearer token check; an unauthenticated
// requester can never be allowed here, whatever link it holds.
type Request struct {
	UserID        uuid.UUID
	Authenticated bool
	Now           time.Time
}

// A rule grants access on its own; rules are evaluated in order and
// the first match wins. Keeping them named and separate avoids the
// inverted-boolean mistakes the combined expression invites.
type rule struct {
	name    string
	applies func(f *models.File, req Request) bool
}

type Controller struct {
	rules []rule
}

// NewController builds the standard rule chain:
//
//  1. owner       — requester owns the record
//  2. grantee     — requester is in the shared-with set
//  3. active-link — the record carries an unexpired share link
//
// The active-link rule deliberately ignores the requester's identity:
// possession of the link URL stands in for an identity check, and any
// authenticated account may use it. Anonymous use is blocked by the
// Authenticated flag, which the transport sets only after a valid
// bearer token.
func NewController() *Controller {
	return &Controller{rules: []rule{
		{name: "owner", applies: func(f *models.File, req Request) bool {
			return req.Authenticated && f.OwnerID == req.UserID
		}},
		{name: "grantee", applies: func(f *models.File, req Request) bool {
			return req.Authenticated && f.IsSharedWith(req.UserID)
		}},
		{name: "active-link", applies: func(f *models.File, req Request) bool {
			return req.Authenticated && f.HasActiveLink(req.Now)
		}},
	}}
}

// Decide returns Allow if any rule matches, along with the name of the
// matching rule ("" on Deny).
func (c *Controller) Decide(f *models.File, req Request) (Decision, string) {
	if req.Now.IsZero() {
		req.Now = time.Now()
	}
	for _, r := range c.rules {
		if r.applies(f, req) {
			return Allow, r.name
		}
	}
	return Deny, ""
}

package session

import (
	"slices"
	"time"
)

// State is the session controller state.
type State int

const (
	StateAnonymous State = iota
	StateAuthenticating
	StateAuthenticated
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// WildcardPermission grants every capability.
const WildcardPermission = "*"

// Identity is the user record returned by login and verify.
type Identity struct {
	ID                int64  `json:"id"`
	Username          string `json:"username"`
	Email             string `json:"email"`
	DisplayName       string `json:"full_name"`
	IsSuperuser       bool   `json:"is_superuser"`
	AdvertiserScopeID *int64 `json:"advertiser_id"`
}

func (i *Identity) clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	if i.AdvertiserScopeID != nil {
		v := *i.AdvertiserScopeID
		c.AdvertiserScopeID = &v
	}
	return &c
}

// LoginResult is what a successful credential exchange returns.
type LoginResult struct {
	AccessToken string    `json:"access_token"`
	CSRFToken   string    `json:"csrf_token"`
	User        *Identity `json:"user"`
	// Permissions is nil when the backend omitted the list.
	Permissions []string `json:"permissions,omitempty"`
}

// Snapshot is a point-in-time copy of the session. Empty strings stand for
// absent tokens.
type Snapshot struct {
	BearerToken      string
	AntiForgeryToken string
	Identity         *Identity
	Permissions      []string
	State            State
	Generation       uint64
	// RestoredAt is set when the bearer token came from the durable slot
	// and has not been confirmed by a login or verify yet.
	RestoredAt time.Time
}

// Authenticated reports whether a bearer token is present.
func (s Snapshot) Authenticated() bool {
	return s.BearerToken != ""
}

// Can is shorthand for HasPermission(s, capability).
func (s Snapshot) Can(capability string) bool {
	return HasPermission(s, capability)
}

// Equal compares everything but the token bytes' storage.
func (s Snapshot) Equal(o Snapshot) bool {
	if s.BearerToken != o.BearerToken || s.AntiForgeryToken != o.AntiForgeryToken ||
		s.State != o.State || s.Generation != o.Generation || !s.RestoredAt.Equal(o.RestoredAt) {
		return false
	}
	if !slices.Equal(s.Permissions, o.Permissions) {
		return false
	}
	switch {
	case s.Identity == nil && o.Identity == nil:
		return true
	case s.Identity == nil || o.Identity == nil:
		return false
	}
	a, b := *s.Identity, *o.Identity
	if (a.AdvertiserScopeID == nil) != (b.AdvertiserScopeID == nil) {
		return false
	}
	if a.AdvertiserScopeID != nil && *a.AdvertiserScopeID != *b.AdvertiserScopeID {
		return false
	}
	a.AdvertiserScopeID, b.AdvertiserScopeID = nil, nil
	return a == b
}

package authgate

import (
	"time"

	"github.com/authgate-io/authgate/store"
)

// AuthContext is the resolved identity for one request. It is an
// immutable value produced by [Engine.Validate] and threaded explicitly
// through calls; an anonymous context has a nil User and empty sets.
type AuthContext struct {
	User        *store.User
	Roles       map[string]struct{}
	Permissions map[string]struct{}

	// SessionToken is the token the context was resolved from, empty
	// for anonymous contexts.
	SessionToken string
}

// Anonymous reports whether the context carries no authenticated user.
func (c *AuthContext) Anonymous() bool {
	return c == nil || c.User == nil
}

// HasRole reports whether the context includes the named role.
func (c *AuthContext) HasRole(name string) bool {
	if c == nil {
		return false
	}
	_, ok := c.Roles[name]
	return ok
}

func anonymousContext() *AuthContext {
	return &AuthContext{
		Roles:       map[string]struct{}{},
		Permissions: map[string]struct{}{},
	}
}

// SignupRequest carries the fields collected at account creation.
type SignupRequest struct {
	Email    string
	Username string
	Phone    string
	FullName string
	Password string
}

// SignupResult reports the persisted outcome of a signup. Delivery of
// the verification email is best-effort and not reflected here.
type SignupResult struct {
	UserID            string
	VerificationToken string
}

// SigninResult is returned by SigninStart. A session is never issued
// at this stage; the caller must complete the OTP challenge.
type SigninResult struct {
	UserID      string
	OTPRequired bool
}

// SessionResult is a freshly issued session.
type SessionResult struct {
	Token     string
	SessionID string
	UserID    string
	ExpiresAt time.Time
}

// SessionInfo is the caller-facing view of one stored session.
type SessionInfo struct {
	ID        string
	UserID    string
	IPAddress string
	UserAgent string
	Device    store.Device
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Hasher is the opaque password hashing capability. The default
// implementation is [password.Argon2].
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) (bool, error)
}

func sessionInfoFromRecord(s *store.Session) SessionInfo {
	return SessionInfo{
		ID:        s.ID,
		UserID:    s.UserID,
		IPAddress: s.IPAddress,
		UserAgent: s.UserAgent,
		Device:    s.Device,
		CreatedAt: s.CreatedAt,
		ExpiresAt: s.ExpiresAt,
	}
}

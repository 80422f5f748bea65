// Package store defines the persistence capability consumed by the
// authgate engine: record types and the Store interface. Implementations
// live in subpackages (memstore for development and tests, gormstore for
// Postgres).
package store

import (
	"context"
	"time"
)

// Device is the coarse classification of the client that created a
// session, derived from the User-Agent string.
type Device struct {
	OS         string `json:"os"`
	Browser    string `json:"browser"`
	DeviceType string `json:"deviceType"`
}

// User is the identity record. A non-nil DeletedAt marks the account as
// locked/deactivated (soft delete); hard deletion removes the row and
// cascades to owned sessions, codes, and tokens.
type User struct {
	ID            string
	Email         string
	Username      string
	Phone         string
	FullName      string
	PasswordHash  string
	EmailVerified bool
	AvatarURL     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     *time.Time
}

// Role is a named bundle of permissions. Names are canonical uppercase
// keys (SUPER_ADMIN, EDITOR, ...). Roles are soft-deleted to preserve
// audit history.
type Role struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
	DeletedAt   *time.Time
}

// Permission is a single grantable capability identified by a dotted
// canonical key, e.g. "session.terminate.all".
type Permission struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
	DeletedAt   *time.Time
}

// RolePermission joins a role to a permission. Unique on the pair.
type RolePermission struct {
	RoleID       string
	PermissionID string
}

// UserRole joins a user to a role. Unique on the pair.
type UserRole struct {
	UserID string
	RoleID string
}

// Session is a logged-in session identified by an opaque unguessable
// token. A session is valid iff it exists, DeletedAt is nil, and
// ExpiresAt is in the future.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	IPAddress string
	UserAgent string
	Device    Device
	CreatedAt time.Time
	DeletedAt *time.Time
}

// OtpCode is the single live one-time code for a user. Issuing a new
// code overwrites the previous one and resets Attempts.
type OtpCode struct {
	UserID    string
	Code      string
	Purpose   string
	ExpiresAt time.Time
	Attempts  int
	CreatedAt time.Time
}

// VerificationToken is a single-use email verification token, deleted
// after successful verification.
type VerificationToken struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// ResetToken is a single-use password reset token. It is never deleted;
// Used flips on consumption so the trail survives.
type ResetToken struct {
	ID        string
	Token     string
	UserID    string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// AuditLog is an append-only record of a security-relevant action.
// UserID is empty for system-level events. Metadata is opaque to the
// engine and only meaningful to audit consumers.
type AuditLog struct {
	ID        string
	UserID    string
	Action    string
	IPAddress string
	UserAgent string
	Metadata  map[string]any
	CreatedAt time.Time
}

// LoginAttempt records every signin attempt, successful or not.
type LoginAttempt struct {
	ID        string
	Email     string
	UserID    string
	Success   bool
	IPAddress string
	UserAgent string
	CreatedAt time.Time
}

// SystemSetting is a generic key/value row; Value is arbitrary JSON.
type SystemSetting struct {
	Key       string
	Value     any
	UpdatedAt time.Time
}

// AuditQuery filters an audit log listing. Zero values mean "no filter".
// Limit is capped by implementations at 1000; Page is 1-based.
type AuditQuery struct {
	UserID string
	Action string
	From   time.Time
	To     time.Time
	Page   int
	Limit  int
}

// UserUpdate is a partial user update; nil fields are left untouched.
type UserUpdate struct {
	Email         *string
	Username      *string
	Phone         *string
	FullName      *string
	PasswordHash  *string
	EmailVerified *bool
	AvatarURL     *string
}

// UserStore covers identity records. Lookups never return soft-deleted
// context about validity; callers inspect DeletedAt themselves.
type UserStore interface {
	FindUserByID(ctx context.Context, id string) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	FindUserByUsername(ctx context.Context, username string) (*User, error)
	FindUserByPhone(ctx context.Context, phone string) (*User, error)
	CreateUser(ctx context.Context, u *User) error
	UpdateUser(ctx context.Context, id string, upd UserUpdate) (*User, error)
	SetUserDeleted(ctx context.Context, id string, deletedAt *time.Time) error
	// HardDeleteUser removes the row and cascades to sessions, OTP codes,
	// and verification/reset tokens owned by the user.
	HardDeleteUser(ctx context.Context, id string) error
}

// RoleStore covers the role catalog.
type RoleStore interface {
	FindRoleByID(ctx context.Context, id string) (*Role, error)
	FindRoleByName(ctx context.Context, name string) (*Role, error)
	ListRoles(ctx context.Context) ([]Role, error)
	CreateRole(ctx context.Context, r *Role) error
	UpdateRole(ctx context.Context, id string, name, description *string) (*Role, error)
	SoftDeleteRole(ctx context.Context, id string) error
	UpsertRoleByName(ctx context.Context, name, description string) (*Role, error)
}

// PermissionStore covers the permission catalog.
type PermissionStore interface {
	FindPermissionByID(ctx context.Context, id string) (*Permission, error)
	FindPermissionByName(ctx context.Context, name string) (*Permission, error)
	ListPermissions(ctx context.Context) ([]Permission, error)
	CreatePermission(ctx context.Context, p *Permission) error
	SoftDeletePermission(ctx context.Context, id string) error
	UpsertPermissionByName(ctx context.Context, name, description string) (*Permission, error)
}

// AssignmentStore covers the two join tables. Creates must be atomic
// with respect to the pair's unique constraint; concurrent duplicate
// inserts yield ErrConflict, never duplicate rows.
type AssignmentStore interface {
	FindRolePermission(ctx context.Context, roleID, permissionID string) (*RolePermission, error)
	CreateRolePermission(ctx context.Context, roleID, permissionID string) error
	DeleteRolePermission(ctx context.Context, roleID, permissionID string) error
	ListRolePermissions(ctx context.Context, roleID string) ([]Permission, error)

	FindUserRole(ctx context.Context, userID, roleID string) (*UserRole, error)
	UpsertUserRole(ctx context.Context, userID, roleID string) error
	DeleteUserRole(ctx context.Context, userID, roleID string) error
	ListUserRoles(ctx context.Context, userID string) ([]Role, error)
}

// SessionStore covers session rows. DeleteSessionByToken is idempotent.
type SessionStore interface {
	FindSessionByToken(ctx context.Context, token string) (*Session, error)
	ListSessionsByUser(ctx context.Context, userID string) ([]Session, error)
	CreateSession(ctx context.Context, s *Session) error
	DeleteSessionByToken(ctx context.Context, token string) error
	DeleteSessionsByUser(ctx context.Context, userID string) error
	DeleteAllSessions(ctx context.Context) error
}

// OtpStore covers the per-user one-time code. UpsertOtpCode and
// IncrementOtpAttempts must be atomic under the userId unique key.
type OtpStore interface {
	FindOtpByUser(ctx context.Context, userID string) (*OtpCode, error)
	UpsertOtpCode(ctx context.Context, code *OtpCode) error
	IncrementOtpAttempts(ctx context.Context, userID string) error
	DeleteOtpByUser(ctx context.Context, userID string) error
}

// TokenStore covers verification and reset tokens.
type TokenStore interface {
	FindVerificationToken(ctx context.Context, token string) (*VerificationToken, error)
	CreateVerificationToken(ctx context.Context, t *VerificationToken) error
	DeleteVerificationTokensByUser(ctx context.Context, userID string) error

	FindResetToken(ctx context.Context, token string) (*ResetToken, error)
	CreateResetToken(ctx context.Context, t *ResetToken) error
	MarkResetTokenUsed(ctx context.Context, id string) error
}

// AuditStore is append-only: records are created and queried, never
// mutated or removed.
type AuditStore interface {
	CreateAuditLog(ctx context.Context, e *AuditLog) error
	QueryAuditLogs(ctx context.Context, q AuditQuery) ([]AuditLog, error)
	CreateLoginAttempt(ctx context.Context, a *LoginAttempt) error
}

// SettingStore covers the generic system settings table.
type SettingStore interface {
	FindSettingByKey(ctx context.Context, key string) (*SystemSetting, error)
	UpsertSettingByKey(ctx context.Context, key string, value any) (*SystemSetting, error)
	DeleteSettingByKey(ctx context.Context, key string) error
}

// Store is the full persistence capability the engine is built on.
type Store interface {
	UserStore
	RoleStore
	PermissionStore
	AssignmentStore
	SessionStore
	OtpStore
	TokenStore
	AuditStore
	SettingStore
}

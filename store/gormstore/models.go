package gormstore

import (
	"encoding/json"
	"time"

	"github.com/authgate-io/authgate/store"
)

type userModel struct {
	ID            string `gorm:"primaryKey"`
	Email         string `gorm:"uniqueIndex;not null"`
	Username      string `gorm:"uniqueIndex;not null"`
	Phone         string `gorm:"index"`
	FullName      string
	PasswordHash  string `gorm:"not null"`
	EmailVerified bool
	AvatarURL     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     *time.Time `gorm:"index"`
}

func (userModel) TableName() string { return "users" }

func (m *userModel) record() *store.User {
	return &store.User{
		ID:            m.ID,
		Email:         m.Email,
		Username:      m.Username,
		Phone:         m.Phone,
		FullName:      m.FullName,
		PasswordHash:  m.PasswordHash,
		EmailVerified: m.EmailVerified,
		AvatarURL:     m.AvatarURL,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
		DeletedAt:     m.DeletedAt,
	}
}

type roleModel struct {
	ID          string `gorm:"primaryKey"`
	Name        string `gorm:"uniqueIndex;not null"`
	Description string
	CreatedAt   time.Time
	DeletedAt   *time.Time `gorm:"index"`
}

func (roleModel) TableName() string { return "roles" }

func (m *roleModel) record() *store.Role {
	return &store.Role{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
		DeletedAt:   m.DeletedAt,
	}
}

type permissionModel struct {
	ID          string `gorm:"primaryKey"`
	Name        string `gorm:"uniqueIndex;not null"`
	Description string
	CreatedAt   time.Time
	DeletedAt   *time.Time `gorm:"index"`
}

func (permissionModel) TableName() string { return "permissions" }

func (m *permissionModel) record() *store.Permission {
	return &store.Permission{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
		DeletedAt:   m.DeletedAt,
	}
}

type rolePermissionModel struct {
	RoleID       string `gorm:"primaryKey"`
	PermissionID string `gorm:"primaryKey"`
}

func (rolePermissionModel) TableName() string { return "role_permissions" }

type userRoleModel struct {
	UserID string `gorm:"primaryKey"`
	RoleID string `gorm:"primaryKey"`
}

func (userRoleModel) TableName() string { return "user_roles" }

type sessionModel struct {
	ID         string `gorm:"primaryKey"`
	UserID     string `gorm:"index;not null"`
	Token      string `gorm:"uniqueIndex;not null"`
	ExpiresAt  time.Time
	IPAddress  string
	UserAgent  string
	OS         string
	Browser    string
	DeviceType string
	CreatedAt  time.Time
	DeletedAt  *time.Time `gorm:"index"`
}

func (sessionModel) TableName() string { return "sessions" }

func (m *sessionModel) record() *store.Session {
	return &store.Session{
		ID:        m.ID,
		UserID:    m.UserID,
		Token:     m.Token,
		ExpiresAt: m.ExpiresAt,
		IPAddress: m.IPAddress,
		UserAgent: m.UserAgent,
		Device: store.Device{
			OS:         m.OS,
			Browser:    m.Browser,
			DeviceType: m.DeviceType,
		},
		CreatedAt: m.CreatedAt,
		DeletedAt: m.DeletedAt,
	}
}

type otpCodeModel struct {
	UserID    string `gorm:"primaryKey"`
	Code      string `gorm:"not null"`
	Purpose   string
	ExpiresAt time.Time
	Attempts  int
	CreatedAt time.Time
}

func (otpCodeModel) TableName() string { return "otp_codes" }

type verificationTokenModel struct {
	Token     string `gorm:"primaryKey"`
	UserID    string `gorm:"index;not null"`
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (verificationTokenModel) TableName() string { return "verification_tokens" }

type resetTokenModel struct {
	ID        string `gorm:"primaryKey"`
	Token     string `gorm:"uniqueIndex;not null"`
	UserID    string `gorm:"index;not null"`
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

func (resetTokenModel) TableName() string { return "reset_tokens" }

type auditLogModel struct {
	ID        string `gorm:"primaryKey"`
	UserID    string `gorm:"index"`
	Action    string `gorm:"index;not null"`
	IPAddress string
	UserAgent string
	Metadata  []byte `gorm:"type:jsonb"`
	CreatedAt time.Time `gorm:"index"`
}

func (auditLogModel) TableName() string { return "audit_logs" }

func (m *auditLogModel) record() (*store.AuditLog, error) {
	rec := &store.AuditLog{
		ID:        m.ID,
		UserID:    m.UserID,
		Action:    m.Action,
		IPAddress: m.IPAddress,
		UserAgent: m.UserAgent,
		CreatedAt: m.CreatedAt,
	}
	if len(m.Metadata) > 0 {
		if err := json.Unmarshal(m.Metadata, &rec.Metadata); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

type loginAttemptModel struct {
	ID        string `gorm:"primaryKey"`
	Email     string `gorm:"index"`
	UserID    string `gorm:"index"`
	Success   bool
	IPAddress string
	UserAgent string
	CreatedAt time.Time
}

func (loginAttemptModel) TableName() string { return "login_attempts" }

type systemSettingModel struct {
	Key       string `gorm:"primaryKey"`
	Value     []byte `gorm:"type:jsonb"`
	UpdatedAt time.Time
}

func (systemSettingModel) TableName() string { return "system_settings" }

// Package gormstore implements store.Store on Postgres via GORM.
package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/authgate-io/authgate/store"
)

// Store wraps a *gorm.DB. All methods translate gorm errors into the
// store sentinel set so the engine never sees driver-level errors.
type Store struct {
	db *gorm.DB
}

// Open connects to Postgres with the given DSN and runs migrations.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true, // surfaces gorm.ErrDuplicatedKey on unique violations
	})
	if err != nil {
		return nil, err
	}
	return NewWithDB(db)
}

// NewWithDB wraps an existing gorm.DB and runs migrations. Useful for
// tests that supply their own dialector.
func NewWithDB(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(
		&userModel{},
		&roleModel{},
		&permissionModel{},
		&rolePermissionModel{},
		&userRoleModel{},
		&sessionModel{},
		&otpCodeModel{},
		&verificationTokenModel{},
		&resetTokenModel{},
		&auditLogModel{},
		&loginAttemptModel{},
		&systemSettingModel{},
	); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return store.ErrConflict
	default:
		return err
	}
}

// --- users ---

func (s *Store) FindUserByID(ctx context.Context, id string) (*store.User, error) {
	var m userModel
	if err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return m.record(), nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*store.User, error) {
	var m userModel
	if err := s.db.WithContext(ctx).First(&m, "lower(email) = lower(?)", email).Error; err != nil {
		return nil, translate(err)
	}
	return m.record(), nil
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (*store.User, error) {
	var m userModel
	if err := s.db.WithContext(ctx).First(&m, "username = ?", username).Error; err != nil {
		return nil, translate(err)
	}
	return m.record(), nil
}

func (s *Store) FindUserByPhone(ctx context.Context, phone string) (*store.User, error) {
	var m userModel
	if err := s.db.WithContext(ctx).First(&m, "phone = ? AND phone <> ''", phone).Error; err != nil {
		return nil, translate(err)
	}
	return m.record(), nil
}

func (s *Store) CreateUser(ctx context.Context, u *store.User) error {
	m := userModel{
		ID:            u.ID,
		Email:         u.Email,
		Username:      u.Username,
		Phone:         u.Phone,
		FullName:      u.FullName,
		PasswordHash:  u.PasswordHash,
		EmailVerified: u.EmailVerified,
		AvatarURL:     u.AvatarURL,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
		DeletedAt:     u.DeletedAt,
	}
	return translate(s.db.WithContext(ctx).Create(&m).Error)
}

func (s *Store) UpdateUser(ctx context.Context, id string, upd store.UserUpdate) (*store.User, error) {
	cols := map[string]any{"updated_at": time.Now().UTC()}
	if upd.Email != nil {
		cols["email"] = *upd.Email
	}
	if upd.Username != nil {
		cols["username"] = *upd.Username
	}
	if upd.Phone != nil {
		cols["phone"] = *upd.Phone
	}
	if upd.FullName != nil {
		cols["full_name"] = *upd.FullName
	}
	if upd.PasswordHash != nil {
		cols["password_hash"] = *upd.PasswordHash
	}
	if upd.EmailVerified != nil {
		cols["email_verified"] = *upd.EmailVerified
	}
	if upd.AvatarURL != nil {
		cols["avatar_url"] = *upd.AvatarURL
	}

	res := s.db.WithContext(ctx).Model(&userModel{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, store.ErrNotFound
	}
	return s.FindUserByID(ctx, id)
}

func (s *Store) SetUserDeleted(ctx context.Context, id string, deletedAt *time.Time) error {
	res := s.db.WithContext(ctx).Model(&userModel{}).Where("id = ?", id).Update("deleted_at", deletedAt)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) HardDeleteUser(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&userModel{}, "id = ?", id)
		if res.Error != nil {
			return translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return store.ErrNotFound
		}
		if err := tx.Delete(&sessionModel{}, "user_id = ?", id).Error; err != nil {
			return translate(err)
		}
		if err := tx.Delete(&otpCodeModel{}, "user_id = ?", id).Error; err != nil {
			return translate(err)
		}
		if err := tx.Delete(&verificationTokenModel{}, "user_id = ?", id).Error; err != nil {
			return translate(err)
		}
		if err := tx.Delete(&resetTokenModel{}, "user_id = ?", id).Error; err != nil {
			return translate(err)
		}
		return translate(tx.Delete(&userRoleModel{}, "user_id = ?", id).Error)
	})
}

// --- roles ---

func (s *Store) FindRoleByID(ctx context.Context, id string) (*store.Role, error) {
	var m roleModel
	if err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return m.record(), nil
}

func (s *Store) FindRoleByName(ctx context.Context, name string) (*store.Role, error) {
	var m roleModel
	if err := s.db.WithContext(ctx).First(&m, "name = ?", name).Error; err != nil {
		return nil, translate(err)
	}
	return m.record(), nil
}

func (s *Store) ListRoles(ctx context.Context) ([]store.Role, error) {
	var ms []roleModel
	if err := s.db.WithContext(ctx).Where("deleted_at IS NULL").Order("name").Find(&ms).Error; err != nil {
		return nil, translate(err)
	}
	out := make([]store.Role, 0, len(ms))
	for i := range ms {
		out = append(out, *ms[i].record())
	}
	return out, nil
}

func (s *Store) CreateRole(ctx context.Context, r *store.Role) error {
	m := roleModel{ID: r.ID, Name: r.Name, Description: r.Description, CreatedAt: r.CreatedAt}
	return translate(s.db.WithContext(ctx).Create(&m).Error)
}

func (s *Store) UpdateRole(ctx context.Context, id string, name, description *string) (*store.Role, error) {
	cols := map[string]any{}
	if name != nil {
		cols["name"] = *name
	}
	if description != nil {
		cols["description"] = *description
	}
	if len(cols) > 0 {
		res := s.db.WithContext(ctx).Model(&roleModel{}).Where("id = ?", id).Updates(cols)
		if res.Error != nil {
			return nil, translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, store.ErrNotFound
		}
	}
	return s.FindRoleByID(ctx, id)
}

func (s *Store) SoftDeleteRole(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&roleModel{}).Where("id = ?", id).Update("deleted_at", time.Now().UTC())
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) UpsertRoleByName(ctx context.Context, name, description string) (*store.Role, error) {
	m := roleModel{ID: newID(), Name: name, Description: description, CreatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&m).Error
	if err != nil {
		return nil, translate(err)
	}
	return s.FindRoleByName(ctx, name)
}

// --- permissions ---

func (s *Store) FindPermissionByID(ctx context.Context, id string) (*store.Permission, error) {
	var m permissionModel
	if err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return m.record(), nil
}

func (s *Store) FindPermissionByName(ctx context.Context, name string) (*store.Permission, error) {
	var m permissionModel
	if err := s.db.WithContext(ctx).First(&m, "name = ?", name).Error; err != nil {
		return nil, translate(err)
	}
	return m.record(), nil
}

func (s *Store) ListPermissions(ctx context.Context) ([]store.Permission, error) {
	var ms []permissionModel
	if err := s.db.WithContext(ctx).Where("deleted_at IS NULL").Order("name").Find(&ms).Error; err != nil {
		return nil, translate(err)
	}
	out := make([]store.Permission, 0, len(ms))
	for i := range ms {
		out = append(out, *ms[i].record())
	}
	return out, nil
}

func (s *Store) CreatePermission(ctx context.Context, p *store.Permission) error {
	m := permissionModel{ID: p.ID, Name: p.Name, Description: p.Description, CreatedAt: p.CreatedAt}
	return translate(s.db.WithContext(ctx).Create(&m).Error)
}

func (s *Store) SoftDeletePermission(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&permissionModel{}).Where("id = ?", id).Update("deleted_at", time.Now().UTC())
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) UpsertPermissionByName(ctx context.Context, name, description string) (*store.Permission, error) {
	m := permissionModel{ID: newID(), Name: name, Description: description, CreatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&m).Error
	if err != nil {
		return nil, translate(err)
	}
	return s.FindPermissionByName(ctx, name)
}

// --- assignments ---

func (s *Store) FindRolePermission(ctx context.Context, roleID, permissionID string) (*store.RolePermission, error) {
	var m rolePermissionModel
	err := s.db.WithContext(ctx).First(&m, "role_id = ? AND permission_id = ?", roleID, permissionID).Error
	if err != nil {
		return nil, translate(err)
	}
	return &store.RolePermission{RoleID: m.RoleID, PermissionID: m.PermissionID}, nil
}

func (s *Store) CreateRolePermission(ctx context.Context, roleID, permissionID string) error {
	m := rolePermissionModel{RoleID: roleID, PermissionID: permissionID}
	return translate(s.db.WithContext(ctx).Create(&m).Error)
}

func (s *Store) DeleteRolePermission(ctx context.Context, roleID, permissionID string) error {
	res := s.db.WithContext(ctx).Delete(&rolePermissionModel{}, "role_id = ? AND permission_id = ?", roleID, permissionID)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListRolePermissions(ctx context.Context, roleID string) ([]store.Permission, error) {
	var ms []permissionModel
	err := s.db.WithContext(ctx).
		Joins("JOIN role_permissions rp ON rp.permission_id = permissions.id").
		Where("rp.role_id = ?", roleID).
		Order("permissions.name").
		Find(&ms).Error
	if err != nil {
		return nil, translate(err)
	}
	out := make([]store.Permission, 0, len(ms))
	for i := range ms {
		out = append(out, *ms[i].record())
	}
	return out, nil
}

func (s *Store) FindUserRole(ctx context.Context, userID, roleID string) (*store.UserRole, error) {
	var m userRoleModel
	err := s.db.WithContext(ctx).First(&m, "user_id = ? AND role_id = ?", userID, roleID).Error
	if err != nil {
		return nil, translate(err)
	}
	return &store.UserRole{UserID: m.UserID, RoleID: m.RoleID}, nil
}

func (s *Store) UpsertUserRole(ctx context.Context, userID, roleID string) error {
	m := userRoleModel{UserID: userID, RoleID: roleID}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "role_id"}},
			DoNothing: true,
		}).
		Create(&m).Error
	return translate(err)
}

func (s *Store) DeleteUserRole(ctx context.Context, userID, roleID string) error {
	res := s.db.WithContext(ctx).Delete(&userRoleModel{}, "user_id = ? AND role_id = ?", userID, roleID)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListUserRoles(ctx context.Context, userID string) ([]store.Role, error) {
	var ms []roleModel
	err := s.db.WithContext(ctx).
		Joins("JOIN user_roles ur ON ur.role_id = roles.id").
		Where("ur.user_id = ?", userID).
		Order("roles.name").
		Find(&ms).Error
	if err != nil {
		return nil, translate(err)
	}
	out := make([]store.Role, 0, len(ms))
	for i := range ms {
		out = append(out, *ms[i].record())
	}
	return out, nil
}

// --- sessions ---

func (s *Store) FindSessionByToken(ctx context.Context, token string) (*store.Session, error) {
	var m sessionModel
	if err := s.db.WithContext(ctx).First(&m, "token = ?", token).Error; err != nil {
		return nil, translate(err)
	}
	return m.record(), nil
}

func (s *Store) ListSessionsByUser(ctx context.Context, userID string) ([]store.Session, error) {
	var ms []sessionModel
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at").Find(&ms).Error
	if err != nil {
		return nil, translate(err)
	}
	out := make([]store.Session, 0, len(ms))
	for i := range ms {
		out = append(out, *ms[i].record())
	}
	return out, nil
}

func (s *Store) CreateSession(ctx context.Context, sess *store.Session) error {
	m := sessionModel{
		ID:         sess.ID,
		UserID:     sess.UserID,
		Token:      sess.Token,
		ExpiresAt:  sess.ExpiresAt,
		IPAddress:  sess.IPAddress,
		UserAgent:  sess.UserAgent,
		OS:         sess.Device.OS,
		Browser:    sess.Device.Browser,
		DeviceType: sess.Device.DeviceType,
		CreatedAt:  sess.CreatedAt,
		DeletedAt:  sess.DeletedAt,
	}
	return translate(s.db.WithContext(ctx).Create(&m).Error)
}

func (s *Store) DeleteSessionByToken(ctx context.Context, token string) error {
	return translate(s.db.WithContext(ctx).Delete(&sessionModel{}, "token = ?", token).Error)
}

func (s *Store) DeleteSessionsByUser(ctx context.Context, userID string) error {
	return translate(s.db.WithContext(ctx).Delete(&sessionModel{}, "user_id = ?", userID).Error)
}

func (s *Store) DeleteAllSessions(ctx context.Context) error {
	return translate(s.db.WithContext(ctx).Where("1 = 1").Delete(&sessionModel{}).Error)
}

// --- otp codes ---

func (s *Store) FindOtpByUser(ctx context.Context, userID string) (*store.OtpCode, error) {
	var m otpCodeModel
	if err := s.db.WithContext(ctx).First(&m, "user_id = ?", userID).Error; err != nil {
		return nil, translate(err)
	}
	return &store.OtpCode{
		UserID:    m.UserID,
		Code:      m.Code,
		Purpose:   m.Purpose,
		ExpiresAt: m.ExpiresAt,
		Attempts:  m.Attempts,
		CreatedAt: m.CreatedAt,
	}, nil
}

func (s *Store) UpsertOtpCode(ctx context.Context, code *store.OtpCode) error {
	m := otpCodeModel{
		UserID:    code.UserID,
		Code:      code.Code,
		Purpose:   code.Purpose,
		ExpiresAt: code.ExpiresAt,
		Attempts:  code.Attempts,
		CreatedAt: code.CreatedAt,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			UpdateAll: true,
		}).
		Create(&m).Error
	return translate(err)
}

func (s *Store) IncrementOtpAttempts(ctx context.Context, userID string) error {
	res := s.db.WithContext(ctx).Model(&otpCodeModel{}).
		Where("user_id = ?", userID).
		Update("attempts", gorm.Expr("attempts + 1"))
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteOtpByUser(ctx context.Context, userID string) error {
	return translate(s.db.WithContext(ctx).Delete(&otpCodeModel{}, "user_id = ?", userID).Error)
}

// --- tokens ---

func (s *Store) FindVerificationToken(ctx context.Context, token string) (*store.VerificationToken, error) {
	var m verificationTokenModel
	if err := s.db.WithContext(ctx).First(&m, "token = ?", token).Error; err != nil {
		return nil, translate(err)
	}
	return &store.VerificationToken{
		Token:     m.Token,
		UserID:    m.UserID,
		ExpiresAt: m.ExpiresAt,
		CreatedAt: m.CreatedAt,
	}, nil
}

func (s *Store) CreateVerificationToken(ctx context.Context, t *store.VerificationToken) error {
	m := verificationTokenModel{
		Token:     t.Token,
		UserID:    t.UserID,
		ExpiresAt: t.ExpiresAt,
		CreatedAt: t.CreatedAt,
	}
	return translate(s.db.WithContext(ctx).Create(&m).Error)
}

func (s *Store) DeleteVerificationTokensByUser(ctx context.Context, userID string) error {
	return translate(s.db.WithContext(ctx).Delete(&verificationTokenModel{}, "user_id = ?", userID).Error)
}

func (s *Store) FindResetToken(ctx context.Context, token string) (*store.ResetToken, error) {
	var m resetTokenModel
	if err := s.db.WithContext(ctx).First(&m, "token = ?", token).Error; err != nil {
		return nil, translate(err)
	}
	return &store.ResetToken{
		ID:        m.ID,
		Token:     m.Token,
		UserID:    m.UserID,
		ExpiresAt: m.ExpiresAt,
		Used:      m.Used,
		CreatedAt: m.CreatedAt,
	}, nil
}

func (s *Store) CreateResetToken(ctx context.Context, t *store.ResetToken) error {
	m := resetTokenModel{
		ID:        t.ID,
		Token:     t.Token,
		UserID:    t.UserID,
		ExpiresAt: t.ExpiresAt,
		Used:      t.Used,
		CreatedAt: t.CreatedAt,
	}
	return translate(s.db.WithContext(ctx).Create(&m).Error)
}

func (s *Store) MarkResetTokenUsed(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&resetTokenModel{}).Where("id = ?", id).Update("used", true)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// --- audit ---

func (s *Store) CreateAuditLog(ctx context.Context, e *store.AuditLog) error {
	id := e.ID
	if id == "" {
		id = newID()
	}
	var meta []byte
	if e.Metadata != nil {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return err
		}
		meta = b
	}
	m := auditLogModel{
		ID:        id,
		UserID:    e.UserID,
		Action:    e.Action,
		IPAddress: e.IPAddress,
		UserAgent: e.UserAgent,
		Metadata:  meta,
		CreatedAt: e.CreatedAt,
	}
	return translate(s.db.WithContext(ctx).Create(&m).Error)
}

func (s *Store) QueryAuditLogs(ctx context.Context, q store.AuditQuery) ([]store.AuditLog, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}
	page := q.Page
	if page <= 0 {
		page = 1
	}

	tx := s.db.WithContext(ctx).Model(&auditLogModel{})
	if q.UserID != "" {
		tx = tx.Where("user_id = ?", q.UserID)
	}
	if q.Action != "" {
		tx = tx.Where("action = ?", q.Action)
	}
	if !q.From.IsZero() {
		tx = tx.Where("created_at >= ?", q.From)
	}
	if !q.To.IsZero() {
		tx = tx.Where("created_at <= ?", q.To)
	}

	var ms []auditLogModel
	err := tx.Order("created_at DESC").Limit(limit).Offset((page - 1) * limit).Find(&ms).Error
	if err != nil {
		return nil, translate(err)
	}
	out := make([]store.AuditLog, 0, len(ms))
	for i := range ms {
		rec, err := ms[i].record()
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (s *Store) CreateLoginAttempt(ctx context.Context, a *store.LoginAttempt) error {
	id := a.ID
	if id == "" {
		id = newID()
	}
	m := loginAttemptModel{
		ID:        id,
		Email:     a.Email,
		UserID:    a.UserID,
		Success:   a.Success,
		IPAddress: a.IPAddress,
		UserAgent: a.UserAgent,
		CreatedAt: a.CreatedAt,
	}
	return translate(s.db.WithContext(ctx).Create(&m).Error)
}

// --- settings ---

func (s *Store) FindSettingByKey(ctx context.Context, key string) (*store.SystemSetting, error) {
	var m systemSettingModel
	if err := s.db.WithContext(ctx).First(&m, "key = ?", key).Error; err != nil {
		return nil, translate(err)
	}
	var value any
	if len(m.Value) > 0 {
		if err := json.Unmarshal(m.Value, &value); err != nil {
			return nil, err
		}
	}
	return &store.SystemSetting{Key: m.Key, Value: value, UpdatedAt: m.UpdatedAt}, nil
}

func (s *Store) UpsertSettingByKey(ctx context.Context, key string, value any) (*store.SystemSetting, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	m := systemSettingModel{Key: key, Value: b, UpdatedAt: time.Now().UTC()}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			UpdateAll: true,
		}).
		Create(&m).Error
	if err != nil {
		return nil, translate(err)
	}
	return &store.SystemSetting{Key: key, Value: value, UpdatedAt: m.UpdatedAt}, nil
}

func (s *Store) DeleteSettingByKey(ctx context.Context, key string) error {
	return translate(s.db.WithContext(ctx).Delete(&systemSettingModel{}, "key = ?", key).Error)
}

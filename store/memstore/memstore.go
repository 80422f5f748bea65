// Package memstore is a mutex-guarded in-memory implementation of
// store.Store for development and tests. All returned records are
// copies; mutating them does not touch stored state.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/authgate-io/authgate/store"
)

// Store holds everything in maps under one mutex. Operations touching
// a unique key are atomic under the lock, matching the contract the
// engine expects from a transactional backend.
type Store struct {
	mu sync.Mutex

	users         map[string]*store.User
	roles         map[string]*store.Role
	permissions   map[string]*store.Permission
	rolePerms     map[string]map[string]struct{} // roleID -> permissionID set
	userRoles     map[string]map[string]struct{} // userID -> roleID set
	sessions      map[string]*store.Session      // token -> session
	otps          map[string]*store.OtpCode      // userID -> code
	verifications map[string]*store.VerificationToken
	resets        map[string]*store.ResetToken
	audits        []store.AuditLog
	attempts      []store.LoginAttempt
	settings      map[string]*store.SystemSetting
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		users:         map[string]*store.User{},
		roles:         map[string]*store.Role{},
		permissions:   map[string]*store.Permission{},
		rolePerms:     map[string]map[string]struct{}{},
		userRoles:     map[string]map[string]struct{}{},
		sessions:      map[string]*store.Session{},
		otps:          map[string]*store.OtpCode{},
		verifications: map[string]*store.VerificationToken{},
		resets:        map[string]*store.ResetToken{},
		settings:      map[string]*store.SystemSetting{},
	}
}

func copyUser(u *store.User) *store.User {
	c := *u
	return &c
}

func copyRole(r *store.Role) *store.Role {
	c := *r
	return &c
}

func copyPermission(p *store.Permission) *store.Permission {
	c := *p
	return &c
}

func copySession(s *store.Session) *store.Session {
	c := *s
	return &c
}

// --- users ---

func (m *Store) FindUserByID(_ context.Context, id string) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyUser(u), nil
}

func (m *Store) FindUserByEmail(_ context.Context, email string) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return copyUser(u), nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *Store) FindUserByUsername(_ context.Context, username string) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return copyUser(u), nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *Store) FindUserByPhone(_ context.Context, phone string) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Phone != "" && u.Phone == phone {
			return copyUser(u), nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *Store) CreateUser(_ context.Context, u *store.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; ok {
		return store.ErrConflict
	}
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) || existing.Username == u.Username {
			return store.ErrConflict
		}
		if u.Phone != "" && existing.Phone == u.Phone {
			return store.ErrConflict
		}
	}
	m.users[u.ID] = copyUser(u)
	return nil
}

func (m *Store) UpdateUser(_ context.Context, id string, upd store.UserUpdate) (*store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}

	if upd.Email != nil {
		for oid, other := range m.users {
			if oid != id && strings.EqualFold(other.Email, *upd.Email) {
				return nil, store.ErrConflict
			}
		}
		u.Email = *upd.Email
	}
	if upd.Username != nil {
		for oid, other := range m.users {
			if oid != id && other.Username == *upd.Username {
				return nil, store.ErrConflict
			}
		}
		u.Username = *upd.Username
	}
	if upd.Phone != nil {
		u.Phone = *upd.Phone
	}
	if upd.FullName != nil {
		u.FullName = *upd.FullName
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
	if upd.EmailVerified != nil {
		u.EmailVerified = *upd.EmailVerified
	}
	if upd.AvatarURL != nil {
		u.AvatarURL = *upd.AvatarURL
	}
	u.UpdatedAt = time.Now().UTC()

	return copyUser(u), nil
}

func (m *Store) SetUserDeleted(_ context.Context, id string, deletedAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.DeletedAt = deletedAt
	return nil
}

func (m *Store) HardDeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.users, id)
	delete(m.userRoles, id)
	delete(m.otps, id)
	for token, s := range m.sessions {
		if s.UserID == id {
			delete(m.sessions, token)
		}
	}
	for token, v := range m.verifications {
		if v.UserID == id {
			delete(m.verifications, token)
		}
	}
	for token, r := range m.resets {
		if r.UserID == id {
			delete(m.resets, token)
		}
	}
	return nil
}

// --- roles ---

func (m *Store) FindRoleByID(_ context.Context, id string) (*store.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roles[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyRole(r), nil
}

func (m *Store) FindRoleByName(_ context.Context, name string) (*store.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findRoleByNameLocked(name)
}

func (m *Store) findRoleByNameLocked(name string) (*store.Role, error) {
	for _, r := range m.roles {
		if r.Name == name {
			return copyRole(r), nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *Store) ListRoles(_ context.Context) ([]store.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Role, 0, len(m.roles))
	for _, r := range m.roles {
		if r.DeletedAt != nil {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Store) CreateRole(_ context.Context, r *store.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.roles {
		if existing.Name == r.Name {
			return store.ErrConflict
		}
	}
	m.roles[r.ID] = copyRole(r)
	return nil
}

func (m *Store) UpdateRole(_ context.Context, id string, name, description *string) (*store.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roles[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if name != nil {
		for oid, other := range m.roles {
			if oid != id && other.Name == *name {
				return nil, store.ErrConflict
			}
		}
		r.Name = *name
	}
	if description != nil {
		r.Description = *description
	}
	return copyRole(r), nil
}

func (m *Store) SoftDeleteRole(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roles[id]
	if !ok {
		return store.ErrNotFound
	}
	now := time.Now().UTC()
	r.DeletedAt = &now
	return nil
}

func (m *Store) UpsertRoleByName(_ context.Context, name, description string) (*store.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.roles {
		if r.Name == name {
			return copyRole(r), nil
		}
	}
	r := &store.Role{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	m.roles[r.ID] = r
	return copyRole(r), nil
}

// --- permissions ---

func (m *Store) FindPermissionByID(_ context.Context, id string) (*store.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.permissions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyPermission(p), nil
}

func (m *Store) FindPermissionByName(_ context.Context, name string) (*store.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.permissions {
		if p.Name == name {
			return copyPermission(p), nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *Store) ListPermissions(_ context.Context) ([]store.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Permission, 0, len(m.permissions))
	for _, p := range m.permissions {
		if p.DeletedAt != nil {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Store) CreatePermission(_ context.Context, p *store.Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.permissions {
		if existing.Name == p.Name {
			return store.ErrConflict
		}
	}
	m.permissions[p.ID] = copyPermission(p)
	return nil
}

func (m *Store) SoftDeletePermission(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.permissions[id]
	if !ok {
		return store.ErrNotFound
	}
	now := time.Now().UTC()
	p.DeletedAt = &now
	return nil
}

func (m *Store) UpsertPermissionByName(_ context.Context, name, description string) (*store.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.permissions {
		if p.Name == name {
			return copyPermission(p), nil
		}
	}
	p := &store.Permission{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	m.permissions[p.ID] = p
	return copyPermission(p), nil
}

// --- assignments ---

func (m *Store) FindRolePermission(_ context.Context, roleID, permissionID string) (*store.RolePermission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if perms, ok := m.rolePerms[roleID]; ok {
		if _, ok := perms[permissionID]; ok {
			return &store.RolePermission{RoleID: roleID, PermissionID: permissionID}, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *Store) CreateRolePermission(_ context.Context, roleID, permissionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	perms, ok := m.rolePerms[roleID]
	if !ok {
		perms = map[string]struct{}{}
		m.rolePerms[roleID] = perms
	}
	if _, ok := perms[permissionID]; ok {
		return store.ErrConflict
	}
	perms[permissionID] = struct{}{}
	return nil
}

func (m *Store) DeleteRolePermission(_ context.Context, roleID, permissionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	perms, ok := m.rolePerms[roleID]
	if !ok {
		return store.ErrNotFound
	}
	if _, ok := perms[permissionID]; !ok {
		return store.ErrNotFound
	}
	delete(perms, permissionID)
	return nil
}

func (m *Store) ListRolePermissions(_ context.Context, roleID string) ([]store.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []store.Permission{}
	for pid := range m.rolePerms[roleID] {
		if p, ok := m.permissions[pid]; ok {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Store) FindUserRole(_ context.Context, userID, roleID string) (*store.UserRole, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if roles, ok := m.userRoles[userID]; ok {
		if _, ok := roles[roleID]; ok {
			return &store.UserRole{UserID: userID, RoleID: roleID}, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *Store) UpsertUserRole(_ context.Context, userID, roleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	roles, ok := m.userRoles[userID]
	if !ok {
		roles = map[string]struct{}{}
		m.userRoles[userID] = roles
	}
	roles[roleID] = struct{}{}
	return nil
}

func (m *Store) DeleteUserRole(_ context.Context, userID, roleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	roles, ok := m.userRoles[userID]
	if !ok {
		return store.ErrNotFound
	}
	if _, ok := roles[roleID]; !ok {
		return store.ErrNotFound
	}
	delete(roles, roleID)
	return nil
}

func (m *Store) ListUserRoles(_ context.Context, userID string) ([]store.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []store.Role{}
	for rid := range m.userRoles[userID] {
		if r, ok := m.roles[rid]; ok {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// --- sessions ---

func (m *Store) FindSessionByToken(_ context.Context, token string) (*store.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copySession(s), nil
}

func (m *Store) ListSessionsByUser(_ context.Context, userID string) ([]store.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []store.Session{}
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Store) CreateSession(_ context.Context, s *store.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.Token]; ok {
		return store.ErrConflict
	}
	m.sessions[s.Token] = copySession(s)
	return nil
}

func (m *Store) DeleteSessionByToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

func (m *Store) DeleteSessionsByUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for token, s := range m.sessions {
		if s.UserID == userID {
			delete(m.sessions, token)
		}
	}
	return nil
}

func (m *Store) DeleteAllSessions(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = map[string]*store.Session{}
	return nil
}

// --- otp codes ---

func (m *Store) FindOtpByUser(_ context.Context, userID string) (*store.OtpCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.otps[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *Store) UpsertOtpCode(_ context.Context, code *store.OtpCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *code
	m.otps[code.UserID] = &cp
	return nil
}

func (m *Store) IncrementOtpAttempts(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.otps[userID]
	if !ok {
		return store.ErrNotFound
	}
	c.Attempts++
	return nil
}

func (m *Store) DeleteOtpByUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.otps, userID)
	return nil
}

// --- tokens ---

func (m *Store) FindVerificationToken(_ context.Context, token string) (*store.VerificationToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.verifications[token]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (m *Store) CreateVerificationToken(_ context.Context, t *store.VerificationToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.verifications[t.Token]; ok {
		return store.ErrConflict
	}
	cp := *t
	m.verifications[t.Token] = &cp
	return nil
}

func (m *Store) DeleteVerificationTokensByUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for token, v := range m.verifications {
		if v.UserID == userID {
			delete(m.verifications, token)
		}
	}
	return nil
}

func (m *Store) FindResetToken(_ context.Context, token string) (*store.ResetToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.resets[token]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *Store) CreateResetToken(_ context.Context, t *store.ResetToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.resets[t.Token]; ok {
		return store.ErrConflict
	}
	cp := *t
	m.resets[t.Token] = &cp
	return nil
}

func (m *Store) MarkResetTokenUsed(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.resets {
		if r.ID == id {
			r.Used = true
			return nil
		}
	}
	return store.ErrNotFound
}

// --- audit ---

func (m *Store) CreateAuditLog(_ context.Context, e *store.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := *e
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	m.audits = append(m.audits, rec)
	return nil
}

func (m *Store) QueryAuditLogs(_ context.Context, q store.AuditQuery) ([]store.AuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := []store.AuditLog{}
	for i := len(m.audits) - 1; i >= 0; i-- { // newest first
		l := m.audits[i]
		if q.UserID != "" && l.UserID != q.UserID {
			continue
		}
		if q.Action != "" && l.Action != q.Action {
			continue
		}
		if !q.From.IsZero() && l.CreatedAt.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && l.CreatedAt.After(q.To) {
			continue
		}
		matched = append(matched, l)
	}

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
	start := (page - 1) * limit
	if start >= len(matched) {
		return []store.AuditLog{}, nil
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

func (m *Store) CreateLoginAttempt(_ context.Context, a *store.LoginAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := *a
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	m.attempts = append(m.attempts, rec)
	return nil
}

// LoginAttempts returns a copy of all recorded attempts. Test helper.
func (m *Store) LoginAttempts() []store.LoginAttempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.LoginAttempt, len(m.attempts))
	copy(out, m.attempts)
	return out
}

// --- settings ---

func (m *Store) FindSettingByKey(_ context.Context, key string) (*store.SystemSetting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.settings[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *Store) UpsertSettingByKey(_ context.Context, key string, value any) (*store.SystemSetting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &store.SystemSetting{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}
	m.settings[key] = s
	cp := *s
	return &cp, nil
}

func (m *Store) DeleteSettingByKey(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.settings, key)
	return nil
}

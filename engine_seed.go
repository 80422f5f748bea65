package authgate

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/authgate-io/authgate/store"
)

type seedEntry struct {
	name        string
	description string
}

var seedPermissions = []seedEntry{
	// Authentication & session
	{"session.read", "Read sessions"},
	{"session.read.own", "Read own sessions"},
	{"session.read.all", "Read all users sessions"},
	{"session.write", "Create/update sessions"},
	{"session.terminate", "Terminate sessions"},
	{"session.terminate.own", "Terminate own sessions"},
	{"session.terminate.all", "Terminate any user sessions"},
	{"auth.login", "Login capability"},
	{"auth.logout", "Logout capability"},
	{"auth.mfa", "Use multi-factor authentication"},

	// User management
	{"user.read", "Read users"},
	{"user.read.own", "Read own profile"},
	{"user.read.all", "Read all user profiles"},
	{"user.create", "Create users"},
	{"user.update", "Update users"},
	{"user.update.own", "Update own profile"},
	{"user.delete", "Delete users"},
	{"user.manage", "Administer user accounts"},
	{"user.assign-role", "Assign role to user"},
	{"user.view-sensitive", "View sensitive user data"},
	{"user.impersonate", "Impersonate other users"},
	{"user.lock", "Lock/unlock user accounts"},
	{"user.export", "Export user data"},

	// Role & permission management
	{"role.read", "Read roles"},
	{"role.create", "Create roles"},
	{"role.update", "Update roles"},
	{"role.delete", "Delete roles"},
	{"role.manage", "Manage roles"},
	{"role.assign", "Assign roles to users"},
	{"permission.read", "Read permissions"},
	{"permission.assign", "Assign permissions to roles"},
	{"permission.manage", "Manage permissions"},
	{"audit.read", "View audit logs"},

	// System settings & security
	{"system.read", "Read system settings"},
	{"system.update", "Update system settings"},
	{"system.reset", "Reset system settings"},
	{"system.audit", "View audit logs"},
	{"system.security", "Manage security settings"},
	{"system.backup", "Perform system backups"},

	// Content / resource management
	{"content.read", "Read content"},
	{"content.read.own", "Read own content"},
	{"content.read.all", "Read all content"},
	{"content.create", "Create content"},
	{"content.update", "Update content"},
	{"content.update.own", "Update own content"},
	{"content.delete", "Delete content"},
	{"content.delete.own", "Delete own content"},
	{"content.publish", "Publish content"},
	{"content.moderate", "Moderate content"},
	{"media.upload", "Upload media"},
	{"media.delete", "Delete media"},
	{"media.delete.own", "Delete own media"},

	// Profile
	{"profile.update", "Update own profile"},
	{"profile.view", "View own profile"},
	{"profile.avatar", "Update profile avatar"},
}

var seedRoles = []seedEntry{
	{"SUPER_ADMIN", "Highest-level role, full system control"},
	{"ADMIN", "System administrator (platform-level)"},
	{"SECURITY_ADMIN", "Security and audit administrator"},
	{"MANAGER", "Operational manager"},
	{"MODERATOR", "Content moderator"},
	{"EDITOR", "Content editor"},
	{"SUPPORT", "Support staff"},
	{"CONTRIBUTOR", "Content contributor"},
	{"USER", "Regular user"},
	{"GUEST", "Guest user with limited access"},
}

var seedGrants = map[string][]string{
	"ADMIN": {
		"session.read", "session.read.all", "session.terminate", "session.terminate.all", "session.write",
		"user.read", "user.read.all", "user.create", "user.update", "user.delete",
		"user.manage", "user.assign-role", "user.view-sensitive", "user.lock", "user.export",
		"role.read", "role.create", "role.update", "role.delete", "role.manage", "role.assign",
		"permission.read", "permission.assign", "audit.read",
		"content.read.all", "content.create", "content.update", "content.delete",
		"content.publish", "content.moderate",
		"media.upload", "media.delete",
		"system.read", "system.update", "system.audit",
	},
	"SECURITY_ADMIN": {
		"session.read.all", "session.terminate.all",
		"user.read.all", "user.view-sensitive", "user.lock", "user.export",
		"system.read", "system.audit", "system.security", "system.backup",
		"audit.read", "auth.mfa",
	},
	"MANAGER": {
		"session.read.all",
		"user.read.all", "user.update", "user.lock",
		"content.read.all", "content.create", "content.update", "content.delete",
		"content.publish", "content.moderate",
		"media.upload", "media.delete",
		"system.read",
	},
	"MODERATOR": {
		"content.read.all", "content.update", "content.delete", "content.moderate",
		"user.read.all", "user.lock",
		"media.delete",
	},
	"EDITOR": {
		"content.read.all", "content.create", "content.update", "content.update.own",
		"content.publish",
		"media.upload", "media.delete.own",
		"profile.update", "profile.view", "profile.avatar",
	},
	"SUPPORT": {
		"user.read.all", "user.update",
		"content.read.all", "content.create", "content.update",
		"media.upload",
		"session.read.own", "session.terminate.own",
	},
	"CONTRIBUTOR": {
		"content.read.own", "content.create", "content.update.own", "content.delete.own",
		"media.upload", "media.delete.own",
		"session.read.own", "session.terminate.own",
		"profile.update", "profile.view", "profile.avatar",
	},
	"USER": {
		"content.read", "content.read.own",
		"media.upload", "media.delete.own",
		"session.read.own", "session.terminate.own",
		"profile.update", "profile.view", "profile.avatar",
		"user.read.own", "user.update.own",
	},
	"GUEST": {
		"content.read", "profile.view",
	},
}

// Seed bootstraps the permission catalog, the role catalog, the
// role-permission grants, and the first SUPER_ADMIN account from
// Config.Bootstrap. Safe to run repeatedly: every step upserts and the
// admin user is only created when the email is unclaimed.
func (e *Engine) Seed(ctx context.Context) error {
	if e == nil {
		return ErrEngineNotReady
	}
	boot := e.config.Bootstrap
	if boot.AdminEmail == "" || boot.AdminPassword == "" {
		return fmt.Errorf("%w: bootstrap admin email and password required", ErrValidation)
	}

	permsByName := make(map[string]*store.Permission, len(seedPermissions))
	for _, p := range seedPermissions {
		perm, err := e.store.UpsertPermissionByName(ctx, p.name, p.description)
		if err != nil {
			return fmt.Errorf("seed permission %s: %w", p.name, err)
		}
		permsByName[perm.Name] = perm
	}

	rolesByName := make(map[string]*store.Role, len(seedRoles))
	for _, r := range seedRoles {
		role, err := e.store.UpsertRoleByName(ctx, r.name, r.description)
		if err != nil {
			return fmt.Errorf("seed role %s: %w", r.name, err)
		}
		rolesByName[role.Name] = role
	}

	// SUPER_ADMIN holds the full catalog. It would bypass checks
	// anyway; the grants keep its listing honest.
	grant := func(roleName string, permNames []string) error {
		role := rolesByName[roleName]
		for _, pn := range permNames {
			perm, ok := permsByName[pn]
			if !ok {
				continue
			}
			err := e.store.CreateRolePermission(ctx, role.ID, perm.ID)
			if err != nil && !errors.Is(err, store.ErrConflict) {
				return fmt.Errorf("grant %s to %s: %w", pn, roleName, err)
			}
		}
		return nil
	}

	all := make([]string, 0, len(seedPermissions))
	for _, p := range seedPermissions {
		all = append(all, p.name)
	}
	if err := grant(SuperAdminRole, all); err != nil {
		return err
	}
	for roleName, permNames := range seedGrants {
		if err := grant(roleName, permNames); err != nil {
			return err
		}
	}

	if err := e.seedAdmin(ctx, rolesByName[SuperAdminRole]); err != nil {
		return err
	}

	e.audit(ctx, ActionSeedRun, "", map[string]any{
		"permissions": len(seedPermissions),
		"roles":       len(seedRoles),
	})

	return nil
}

func (e *Engine) seedAdmin(ctx context.Context, superAdmin *store.Role) error {
	boot := e.config.Bootstrap

	existing, err := e.store.FindUserByEmail(ctx, boot.AdminEmail)
	if err == nil {
		return e.ensureUserRole(ctx, existing.ID, superAdmin.ID)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("admin lookup: %w", err)
	}

	hash, err := e.hasher.Hash(boot.AdminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	username := boot.AdminUsername
	if username == "" {
		username = "admin"
	}

	now := e.now()
	admin := &store.User{
		ID:            uuid.NewString(),
		Email:         boot.AdminEmail,
		Username:      username,
		Phone:         boot.AdminPhone,
		FullName:      "System Administrator",
		PasswordHash:  hash,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := e.store.CreateUser(ctx, admin); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	return e.ensureUserRole(ctx, admin.ID, superAdmin.ID)
}

func (e *Engine) ensureUserRole(ctx context.Context, userID, roleID string) error {
	if _, err := e.store.FindUserRole(ctx, userID, roleID); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("user role lookup: %w", err)
	}
	if err := e.store.UpsertUserRole(ctx, userID, roleID); err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	return nil
}

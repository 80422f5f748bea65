package authgate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/authgate-io/authgate/store"
)

// ListRoles returns the non-deleted role catalog. Requires role.read.
func (e *Engine) ListRoles(ctx context.Context, authCtx *AuthContext) ([]store.Role, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if err := e.Authorize(authCtx, "role.read"); err != nil {
		return nil, err
	}
	roles, err := e.store.ListRoles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

// CreateRole adds a role to the catalog. Requires role.manage; a
// duplicate name is a conflict and emits no audit event.
func (e *Engine) CreateRole(ctx context.Context, authCtx *AuthContext, name, description string) (*store.Role, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if err := e.Authorize(authCtx, "role.manage"); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: role name required", ErrValidation)
	}

	if _, err := e.store.FindRoleByName(ctx, name); err == nil {
		return nil, fmt.Errorf("%w: role exists", ErrConflict)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("role lookup: %w", err)
	}

	role := &store.Role{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		CreatedAt:   e.now(),
	}
	if err := e.store.CreateRole(ctx, role); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, fmt.Errorf("%w: role exists", ErrConflict)
		}
		return nil, fmt.Errorf("create role: %w", err)
	}

	e.audit(ctx, ActionRoleChanged, authCtx.User.ID, map[string]any{
		"op":     "create",
		"roleId": role.ID,
		"name":   name,
	})

	return role, nil
}

// UpdateRole renames or re-describes a role. Requires role.manage.
func (e *Engine) UpdateRole(ctx context.Context, authCtx *AuthContext, roleID string, name, description *string) (*store.Role, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if err := e.Authorize(authCtx, "role.manage"); err != nil {
		return nil, err
	}

	role, err := e.store.UpdateRole(ctx, roleID, name, description)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		if errors.Is(err, store.ErrConflict) {
			return nil, fmt.Errorf("%w: role name in use", ErrConflict)
		}
		return nil, fmt.Errorf("update role: %w", err)
	}

	e.audit(ctx, ActionRoleChanged, authCtx.User.ID, map[string]any{
		"op":     "update",
		"roleId": roleID,
	})

	return role, nil
}

// DeleteRole soft-deletes a role; join rows survive so history stays
// reconstructable. Requires role.manage.
func (e *Engine) DeleteRole(ctx context.Context, authCtx *AuthContext, roleID string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := e.Authorize(authCtx, "role.manage"); err != nil {
		return err
	}

	if err := e.store.SoftDeleteRole(ctx, roleID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete role: %w", err)
	}

	e.audit(ctx, ActionRoleChanged, authCtx.User.ID, map[string]any{
		"op":     "delete",
		"roleId": roleID,
	})

	return nil
}

// AssignPermission grants a permission to a role. Requires
// role.manage; assigning an existing pair is a conflict, never a
// duplicate row.
func (e *Engine) AssignPermission(ctx context.Context, authCtx *AuthContext, roleID, permissionID string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := e.Authorize(authCtx, "role.manage"); err != nil {
		return err
	}

	if _, err := e.store.FindRolePermission(ctx, roleID, permissionID); err == nil {
		return fmt.Errorf("%w: permission already assigned", ErrConflict)
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("assignment lookup: %w", err)
	}

	if err := e.store.CreateRolePermission(ctx, roleID, permissionID); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return fmt.Errorf("%w: permission already assigned", ErrConflict)
		}
		return fmt.Errorf("assign permission: %w", err)
	}

	e.audit(ctx, ActionPermissionChanged, authCtx.User.ID, map[string]any{
		"op":           "assign",
		"roleId":       roleID,
		"permissionId": permissionID,
	})

	return nil
}

// RemovePermission revokes a permission from a role. Requires
// role.manage; removing an absent pair is not an error.
func (e *Engine) RemovePermission(ctx context.Context, authCtx *AuthContext, roleID, permissionID string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := e.Authorize(authCtx, "role.manage"); err != nil {
		return err
	}

	if err := e.store.DeleteRolePermission(ctx, roleID, permissionID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("remove permission: %w", err)
	}

	e.audit(ctx, ActionPermissionChanged, authCtx.User.ID, map[string]any{
		"op":           "remove",
		"roleId":       roleID,
		"permissionId": permissionID,
	})

	return nil
}

// AssignRole grants a role to a user. Requires role.assign. Assignment
// is an idempotent upsert: re-assigning an already held role succeeds
// without a second join row or a second audit event.
func (e *Engine) AssignRole(ctx context.Context, authCtx *AuthContext, userID, roleID string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := e.Authorize(authCtx, "role.assign"); err != nil {
		return err
	}

	if _, err := e.findAnyUser(ctx, userID); err != nil {
		return err
	}
	role, err := e.store.FindRoleByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("role lookup: %w", err)
	}

	if _, err := e.store.FindUserRole(ctx, userID, roleID); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("assignment lookup: %w", err)
	}

	if err := e.store.UpsertUserRole(ctx, userID, roleID); err != nil {
		return fmt.Errorf("assign role: %w", err)
	}

	e.audit(ctx, ActionRoleAssigned, userID, map[string]any{
		"roleId":     roleID,
		"roleName":   role.Name,
		"assignedBy": authCtx.User.ID,
	})

	return nil
}

// RemoveRole revokes a role from a user. Requires role.assign.
func (e *Engine) RemoveRole(ctx context.Context, authCtx *AuthContext, userID, roleID string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := e.Authorize(authCtx, "role.assign"); err != nil {
		return err
	}

	if err := e.store.DeleteUserRole(ctx, userID, roleID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("remove role: %w", err)
	}

	e.audit(ctx, ActionRoleRemoved, userID, map[string]any{
		"roleId":    roleID,
		"removedBy": authCtx.User.ID,
	})

	return nil
}

// ListPermissions returns the non-deleted permission catalog.
// Requires permission.read.
func (e *Engine) ListPermissions(ctx context.Context, authCtx *AuthContext) ([]store.Permission, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if err := e.Authorize(authCtx, "permission.read"); err != nil {
		return nil, err
	}
	perms, err := e.store.ListPermissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	return perms, nil
}

// CreatePermission adds a permission key to the catalog. Requires
// permission.manage; duplicate names conflict.
func (e *Engine) CreatePermission(ctx context.Context, authCtx *AuthContext, name, description string) (*store.Permission, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if err := e.Authorize(authCtx, "permission.manage"); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: permission name required", ErrValidation)
	}

	if _, err := e.store.FindPermissionByName(ctx, name); err == nil {
		return nil, fmt.Errorf("%w: permission exists", ErrConflict)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("permission lookup: %w", err)
	}

	perm := &store.Permission{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		CreatedAt:   e.now(),
	}
	if err := e.store.CreatePermission(ctx, perm); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, fmt.Errorf("%w: permission exists", ErrConflict)
		}
		return nil, fmt.Errorf("create permission: %w", err)
	}

	e.audit(ctx, ActionPermissionChanged, authCtx.User.ID, map[string]any{
		"op":           "create",
		"permissionId": perm.ID,
		"name":         name,
	})

	return perm, nil
}

// DeletePermission soft-deletes a permission. Requires
// permission.manage.
func (e *Engine) DeletePermission(ctx context.Context, authCtx *AuthContext, permissionID string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := e.Authorize(authCtx, "permission.manage"); err != nil {
		return err
	}

	if err := e.store.SoftDeletePermission(ctx, permissionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete permission: %w", err)
	}

	e.audit(ctx, ActionPermissionChanged, authCtx.User.ID, map[string]any{
		"op":           "delete",
		"permissionId": permissionID,
	})

	return nil
}

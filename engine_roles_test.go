package authgate

import (
	"context"
	"errors"
	"testing"
)

func TestPermissionUnionAcrossRoles(t *testing.T) {
	env := newTestEnv(t)

	userID := env.signup(t, "alice@example.com", "password-123")
	env.grant(t, userID, "EDITOR", "content.read", "content.write")
	env.grant(t, userID, "SUPPORT", "user.read", "content.read")

	roles, perms, err := env.engine.ResolvePermissions(context.Background(), userID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(roles) != 2 {
		t.Fatalf("roles = %d, want 2", len(roles))
	}
	for _, want := range []string{"content.read", "content.write", "user.read"} {
		if _, ok := perms[want]; !ok {
			t.Fatalf("missing permission %s in union", want)
		}
	}
	if len(perms) != 3 {
		t.Fatalf("permissions = %d, want 3", len(perms))
	}
}

func TestSuperAdminBypassesPermissionChecks(t *testing.T) {
	env := newTestEnv(t)

	userID := env.signup(t, "root@example.com", "password-123")
	env.grant(t, userID, SuperAdminRole) // no permissions attached at all
	sess := env.signin(t, "root@example.com", "password-123")
	authCtx := env.authCtx(t, sess.Token)

	for _, key := range []string{"user.manage", "audit.read", "some.future.permission"} {
		if !env.engine.CheckPermission(authCtx, key) {
			t.Fatalf("SUPER_ADMIN denied %s", key)
		}
		if err := env.engine.Authorize(authCtx, key); err != nil {
			t.Fatalf("authorize %s: %v", key, err)
		}
	}
}

func TestAuthorizeDistinguishesAnonymousFromForbidden(t *testing.T) {
	env := newTestEnv(t)

	if err := env.engine.Authorize(anonymousContext(), "user.read"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("anonymous: got %v, want ErrUnauthorized", err)
	}

	env.signup(t, "alice@example.com", "password-123")
	sess := env.signin(t, "alice@example.com", "password-123")
	authCtx := env.authCtx(t, sess.Token)

	if err := env.engine.Authorize(authCtx, "user.read"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("no grant: got %v, want ErrForbidden", err)
	}

	snap := env.engine.MetricsSnapshot()
	if snap.Counters[MetricPermissionDenied] != 1 {
		t.Fatalf("denied counter = %d, want 1", snap.Counters[MetricPermissionDenied])
	}
}

func TestGrantTakesEffectOnNextValidate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	userID := env.signup(t, "alice@example.com", "password-123")
	sess := env.signin(t, "alice@example.com", "password-123")

	authCtx := env.authCtx(t, sess.Token)
	if _, err := env.engine.ListRoles(ctx, authCtx); !errors.Is(err, ErrForbidden) {
		t.Fatalf("before grant: got %v, want ErrForbidden", err)
	}

	env.grant(t, userID, "VIEWER", "role.read")

	// permissions resolve per request; the same token now passes
	authCtx = env.authCtx(t, sess.Token)
	if _, err := env.engine.ListRoles(ctx, authCtx); err != nil {
		t.Fatalf("after grant: %v", err)
	}
}

func TestRoleLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	adminID := env.signup(t, "admin@example.com", "password-123")
	env.grant(t, adminID, SuperAdminRole)
	sess := env.signin(t, "admin@example.com", "password-123")
	authCtx := env.authCtx(t, sess.Token)

	role, err := env.engine.CreateRole(ctx, authCtx, "REVIEWER", "reviews content")
	if err != nil {
		t.Fatalf("create role: %v", err)
	}

	// duplicate name conflicts and leaves no audit event behind
	before := len(env.auditEvents(t, ActionRoleChanged))
	if _, err := env.engine.CreateRole(ctx, authCtx, "REVIEWER", "dup"); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate: got %v, want ErrConflict", err)
	}
	if after := len(env.auditEvents(t, ActionRoleChanged)); after != before {
		t.Fatalf("duplicate create audited: %d -> %d", before, after)
	}

	desc := "reviews and approves content"
	updated, err := env.engine.UpdateRole(ctx, authCtx, role.ID, nil, &desc)
	if err != nil {
		t.Fatalf("update role: %v", err)
	}
	if updated.Description != desc {
		t.Fatalf("description = %q", updated.Description)
	}

	if err := env.engine.DeleteRole(ctx, authCtx, role.ID); err != nil {
		t.Fatalf("delete role: %v", err)
	}
	roles, err := env.engine.ListRoles(ctx, authCtx)
	if err != nil {
		t.Fatalf("list roles: %v", err)
	}
	for _, r := range roles {
		if r.ID == role.ID {
			t.Fatal("soft-deleted role still listed")
		}
	}
}

func TestAssignPermissionConflictsOnDuplicate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	adminID := env.signup(t, "admin@example.com", "password-123")
	env.grant(t, adminID, SuperAdminRole)
	sess := env.signin(t, "admin@example.com", "password-123")
	authCtx := env.authCtx(t, sess.Token)

	role, err := env.engine.CreateRole(ctx, authCtx, "REVIEWER", "")
	if err != nil {
		t.Fatalf("create role: %v", err)
	}
	perm, err := env.engine.CreatePermission(ctx, authCtx, "content.review", "")
	if err != nil {
		t.Fatalf("create permission: %v", err)
	}

	if err := env.engine.AssignPermission(ctx, authCtx, role.ID, perm.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := env.engine.AssignPermission(ctx, authCtx, role.ID, perm.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate assign: got %v, want ErrConflict", err)
	}

	if err := env.engine.RemovePermission(ctx, authCtx, role.ID, perm.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
}

func TestAssignRoleIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	adminID := env.signup(t, "admin@example.com", "password-123")
	env.grant(t, adminID, SuperAdminRole)
	sess := env.signin(t, "admin@example.com", "password-123")
	authCtx := env.authCtx(t, sess.Token)

	userID := env.signup(t, "bob@example.com", "password-123")
	role, err := env.engine.CreateRole(ctx, authCtx, "VIEWER", "")
	if err != nil {
		t.Fatalf("create role: %v", err)
	}

	if err := env.engine.AssignRole(ctx, authCtx, userID, role.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	// repeat assignment succeeds and records no second audit event
	if err := env.engine.AssignRole(ctx, authCtx, userID, role.ID); err != nil {
		t.Fatalf("repeat assign: %v", err)
	}
	if events := env.auditEvents(t, ActionRoleAssigned); len(events) != 1 {
		t.Fatalf("ROLE_ASSIGNED events = %d, want 1", len(events))
	}

	roles, _, err := env.engine.ResolvePermissions(ctx, userID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, ok := roles["VIEWER"]; !ok {
		t.Fatal("role not resolved after assignment")
	}

	if err := env.engine.RemoveRole(ctx, authCtx, userID, role.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := env.engine.RemoveRole(ctx, authCtx, userID, role.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second remove: got %v, want ErrNotFound", err)
	}
}

func TestAssignRoleRequiresExistingTargets(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	adminID := env.signup(t, "admin@example.com", "password-123")
	env.grant(t, adminID, SuperAdminRole)
	sess := env.signin(t, "admin@example.com", "password-123")
	authCtx := env.authCtx(t, sess.Token)

	userID := env.signup(t, "bob@example.com", "password-123")
	role, err := env.engine.CreateRole(ctx, authCtx, "VIEWER", "")
	if err != nil {
		t.Fatalf("create role: %v", err)
	}

	if err := env.engine.AssignRole(ctx, authCtx, "missing-user", role.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing user: got %v, want ErrNotFound", err)
	}
	if err := env.engine.AssignRole(ctx, authCtx, userID, "missing-role"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing role: got %v, want ErrNotFound", err)
	}
}

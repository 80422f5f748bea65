package authgate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/authgate-io/authgate/store/memstore"
)

func newSeededEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		store:  memstore.New(),
		mailer: &fakeMailer{name: "primary"},
		now:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	cfg := DefaultConfig()
	cfg.RateLimit.Enabled = false
	cfg.Bootstrap.AdminEmail = "root@example.com"
	cfg.Bootstrap.AdminPassword = "bootstrap-password"

	engine, err := New().
		WithConfig(cfg).
		WithStore(env.store).
		WithMailers(env.mailer).
		WithHasher(plainHasher{}).
		WithClock(env.clock).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)

	env.engine = engine
	return env
}

func TestSeedProvisionsCatalogAndAdmin(t *testing.T) {
	env := newSeededEnv(t)
	ctx := context.Background()

	if err := env.engine.Seed(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}

	admin, err := env.store.FindUserByEmail(ctx, "root@example.com")
	if err != nil {
		t.Fatalf("admin not created: %v", err)
	}
	if !admin.EmailVerified {
		t.Fatal("bootstrap admin must start verified")
	}

	roles, _, err := env.engine.ResolvePermissions(ctx, admin.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, ok := roles[SuperAdminRole]; !ok {
		t.Fatal("bootstrap admin lacks SUPER_ADMIN")
	}

	// the full catalog is in place
	for _, name := range []string{"user.manage", "role.assign", "audit.read", "session.terminate"} {
		if _, err := env.store.FindPermissionByName(ctx, name); err != nil {
			t.Fatalf("permission %s missing after seed: %v", name, err)
		}
	}
	for _, name := range []string{SuperAdminRole, "ADMIN", "EDITOR", "GUEST"} {
		if _, err := env.store.FindRoleByName(ctx, name); err != nil {
			t.Fatalf("role %s missing after seed: %v", name, err)
		}
	}

	// the admin can sign in with the bootstrap credentials
	sess := env.signin(t, "root@example.com", "bootstrap-password")
	authCtx := env.authCtx(t, sess.Token)
	if err := env.engine.Authorize(authCtx, "audit.read"); err != nil {
		t.Fatalf("seeded admin denied: %v", err)
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	env := newSeededEnv(t)
	ctx := context.Background()

	if err := env.engine.Seed(ctx); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	first, err := env.store.FindUserByEmail(ctx, "root@example.com")
	if err != nil {
		t.Fatalf("find admin: %v", err)
	}

	if err := env.engine.Seed(ctx); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	second, err := env.store.FindUserByEmail(ctx, "root@example.com")
	if err != nil {
		t.Fatalf("find admin again: %v", err)
	}
	if first.ID != second.ID {
		t.Fatal("re-seed replaced the admin account")
	}

	roles, err := env.store.ListRoles(ctx)
	if err != nil {
		t.Fatalf("list roles: %v", err)
	}
	if len(roles) != 10 {
		t.Fatalf("roles after double seed = %d, want 10", len(roles))
	}
}

func TestSeedRequiresBootstrapCredentials(t *testing.T) {
	env := newTestEnv(t) // no bootstrap admin configured

	if err := env.engine.Seed(context.Background()); !errors.Is(err, ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}
}

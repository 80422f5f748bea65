package authgate

import (
	"context"
	"errors"
	"testing"
)

func TestSettingsLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	adminID := env.signup(t, "admin@example.com", "password-123")
	env.grant(t, adminID, "OPS", "system.read", "system.update", "system.reset")
	sess := env.signin(t, "admin@example.com", "password-123")
	authCtx := env.authCtx(t, sess.Token)

	if _, err := env.engine.GetSetting(ctx, authCtx, "maintenance"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unset key: got %v, want ErrNotFound", err)
	}

	set, err := env.engine.UpdateSetting(ctx, authCtx, "maintenance", map[string]any{"enabled": true})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if set.Key != "maintenance" {
		t.Fatalf("key = %q", set.Key)
	}

	got, err := env.engine.GetSetting(ctx, authCtx, "maintenance")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if m, ok := got.Value.(map[string]any); !ok || m["enabled"] != true {
		t.Fatalf("value = %#v", got.Value)
	}

	if err := env.engine.ResetSetting(ctx, authCtx, "maintenance"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, err := env.engine.GetSetting(ctx, authCtx, "maintenance"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("after reset: got %v, want ErrNotFound", err)
	}

	// resetting an absent key is a no-op
	if err := env.engine.ResetSetting(ctx, authCtx, "missing"); err != nil {
		t.Fatalf("reset missing: %v", err)
	}
}

func TestSettingsGatedPerOperation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	readerID := env.signup(t, "reader@example.com", "password-123")
	env.grant(t, readerID, "READER", "system.read")
	sess := env.signin(t, "reader@example.com", "password-123")
	authCtx := env.authCtx(t, sess.Token)

	if _, err := env.engine.UpdateSetting(ctx, authCtx, "k", "v"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("update without system.update: got %v, want ErrForbidden", err)
	}
	if err := env.engine.ResetSetting(ctx, authCtx, "k"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("reset without system.reset: got %v, want ErrForbidden", err)
	}
}

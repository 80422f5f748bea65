package authgate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/authgate-io/authgate/store"
)

// DeactivateAccount soft-deletes the caller's own account and revokes
// its sessions. The record survives and can be restored with
// [Engine.ReactivateAccount].
func (e *Engine) DeactivateAccount(ctx context.Context, authCtx *AuthContext, reason string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if authCtx.Anonymous() {
		return ErrUnauthorized
	}
	if reason == "" {
		reason = "User-initiated"
	}

	now := e.now()
	if err := e.store.SetUserDeleted(ctx, authCtx.User.ID, &now); err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}
	if err := e.revokeSessionsForUser(ctx, authCtx.User.ID, "account_deactivated"); err != nil {
		return err
	}

	e.audit(ctx, ActionAccountDeactivated, authCtx.User.ID, map[string]any{
		"reason": reason,
		"type":   "user_initiated",
	})

	return nil
}

// ReactivateAccount clears a soft-delete marker. Deactivation revokes
// every session, so reactivation authenticates by credentials rather
// than by session.
func (e *Engine) ReactivateAccount(ctx context.Context, email, plaintext string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := e.checkRate(ctx, "signin"); err != nil {
		return err
	}

	email = strings.ToLower(strings.TrimSpace(email))
	user, err := e.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("user lookup: %w", err)
	}
	if user.DeletedAt == nil {
		return nil
	}

	ok, err := e.hasher.Verify(plaintext, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}

	if err := e.store.SetUserDeleted(ctx, user.ID, nil); err != nil {
		return fmt.Errorf("reactivate user: %w", err)
	}

	e.audit(ctx, ActionAccountReactivated, user.ID, map[string]any{
		"type": "user_initiated",
	})

	return nil
}

// DeleteAccount permanently removes the caller's account. The audit
// record is written before the row disappears so the trail keeps the
// identity; the store cascades sessions, codes, and tokens.
func (e *Engine) DeleteAccount(ctx context.Context, authCtx *AuthContext, reason string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if authCtx.Anonymous() {
		return ErrUnauthorized
	}
	if reason == "" {
		reason = "User-initiated"
	}

	e.audit(ctx, ActionAccountDeleted, authCtx.User.ID, map[string]any{
		"reason": reason,
		"type":   "user_initiated",
		"email":  authCtx.User.Email,
	})

	if err := e.store.HardDeleteUser(ctx, authCtx.User.ID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	return nil
}

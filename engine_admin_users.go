package authgate

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/authgate-io/authgate/store"
)

// GetUser returns the identity record for userID. Requires user.read.
// Soft-deleted users are returned too so admins can see locked
// accounts; callers inspect DeletedAt.
func (e *Engine) GetUser(ctx context.Context, authCtx *AuthContext, userID string) (*store.User, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if err := e.Authorize(authCtx, "user.read"); err != nil {
		return nil, err
	}

	user, err := e.store.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("user lookup: %w", err)
	}
	return user, nil
}

// LockUser soft-deletes the target account and revokes its sessions.
// Requires user.manage.
func (e *Engine) LockUser(ctx context.Context, authCtx *AuthContext, userID string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := e.Authorize(authCtx, "user.manage"); err != nil {
		return err
	}
	if _, err := e.findAnyUser(ctx, userID); err != nil {
		return err
	}

	now := e.now()
	if err := e.store.SetUserDeleted(ctx, userID, &now); err != nil {
		return fmt.Errorf("lock user: %w", err)
	}
	if err := e.revokeSessionsForUser(ctx, userID, "account_locked"); err != nil {
		return err
	}

	e.audit(ctx, ActionAccountDeactivated, userID, map[string]any{
		"by": authCtx.User.ID,
	})

	return nil
}

// UnlockUser clears the target's soft-delete marker. Requires
// user.manage.
func (e *Engine) UnlockUser(ctx context.Context, authCtx *AuthContext, userID string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := e.Authorize(authCtx, "user.manage"); err != nil {
		return err
	}
	if _, err := e.findAnyUser(ctx, userID); err != nil {
		return err
	}

	if err := e.store.SetUserDeleted(ctx, userID, nil); err != nil {
		return fmt.Errorf("unlock user: %w", err)
	}

	e.audit(ctx, ActionAccountReactivated, userID, map[string]any{
		"by": authCtx.User.ID,
	})

	return nil
}

// Impersonate issues a session for the target user on behalf of the
// caller. Requires user.manage; the issuance audit carries the
// impersonating admin's id.
func (e *Engine) Impersonate(ctx context.Context, authCtx *AuthContext, userID string) (*SessionResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if err := e.Authorize(authCtx, "user.manage"); err != nil {
		return nil, err
	}
	if _, err := e.activeUserByID(ctx, userID); err != nil {
		return nil, err
	}

	return e.issueSession(ctx, userID, authCtx.User.ID)
}

// AdminResetPassword issues a reset token for the target and emails
// it best-effort. Requires user.manage.
func (e *Engine) AdminResetPassword(ctx context.Context, authCtx *AuthContext, userID string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := e.Authorize(authCtx, "user.manage"); err != nil {
		return err
	}

	user, err := e.findAnyUser(ctx, userID)
	if err != nil {
		return err
	}

	token, err := e.issueResetToken(ctx, userID)
	if err != nil {
		return err
	}

	e.audit(ctx, ActionResetRequest, userID, map[string]any{
		"by": authCtx.User.ID,
	})
	e.metrics.Inc(MetricResetRequest)

	link := e.config.Delivery.AppBaseURL + "/authpage/reset-password/" + token
	if err := e.deliver(ctx, resetMessage(user.Email, link)); err != nil {
		e.log.Warn("admin reset email not delivered",
			zap.String("userId", userID),
			zap.Error(err),
		)
	}

	return nil
}

// findAnyUser loads a user regardless of soft-delete state.
func (e *Engine) findAnyUser(ctx context.Context, userID string) (*store.User, error) {
	user, err := e.store.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("user lookup: %w", err)
	}
	return user, nil
}

package authgate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/authgate-io/authgate/store"
)

// RequestPasswordReset issues a reset token and emails the reset link.
// Enumeration-safe: an unknown email reports success without issuing
// anything.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := e.checkRate(ctx, "forgot"); err != nil {
		return err
	}

	email = strings.ToLower(strings.TrimSpace(email))
	user, err := e.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("user lookup: %w", err)
	}
	if user.DeletedAt != nil {
		return nil
	}

	token, err := e.issueResetToken(ctx, user.ID)
	if err != nil {
		return err
	}

	e.audit(ctx, ActionResetRequest, user.ID, map[string]any{
		"email": email,
	})
	e.metrics.Inc(MetricResetRequest)

	link := e.config.Delivery.AppBaseURL + "/authpage/reset-password/" + token
	if err := e.deliver(ctx, resetMessage(email, link)); err != nil {
		e.log.Warn("reset email not delivered",
			zap.String("userId", user.ID),
			zap.Error(err),
		)
	}

	return nil
}

// ValidateResetToken checks a reset token without consuming it. The
// three causes of failure (absent, expired, already used) collapse
// into one uniform error.
func (e *Engine) ValidateResetToken(ctx context.Context, token string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	_, err := e.usableResetToken(ctx, token)
	return err
}

// ResetPassword consumes a reset token, sets the new password, and
// revokes the user's existing sessions.
func (e *Engine) ResetPassword(ctx context.Context, token, newPassword string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if len(newPassword) < e.config.Password.MinLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, e.config.Password.MinLength)
	}

	rec, err := e.usableResetToken(ctx, token)
	if err != nil {
		e.metrics.Inc(MetricResetFailure)
		return err
	}

	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if _, err := e.store.UpdateUser(ctx, rec.UserID, store.UserUpdate{PasswordHash: &hash}); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if err := e.store.MarkResetTokenUsed(ctx, rec.ID); err != nil {
		return fmt.Errorf("consume reset token: %w", err)
	}
	if err := e.revokeSessionsForUser(ctx, rec.UserID, "password_reset"); err != nil {
		return err
	}

	e.audit(ctx, ActionResetSuccess, rec.UserID, nil)
	e.metrics.Inc(MetricResetSuccess)

	return nil
}

func (e *Engine) usableResetToken(ctx context.Context, token string) (*store.ResetToken, error) {
	if token == "" {
		return nil, ErrTokenInvalid
	}
	rec, err := e.store.FindResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, fmt.Errorf("reset token lookup: %w", err)
	}
	if rec.Used || !e.now().Before(rec.ExpiresAt) {
		return nil, ErrTokenInvalid
	}
	return rec, nil
}

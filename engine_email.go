package authgate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/authgate-io/authgate/store"
)

// VerifyEmail consumes a verification token and marks the owning
// account's email as verified. Absent and expired tokens fail with the
// same uniform error; an expired-but-present one additionally audits
// the failure against the owner.
func (e *Engine) VerifyEmail(ctx context.Context, token string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if token == "" {
		return ErrTokenInvalid
	}

	rec, err := e.store.FindVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			e.metrics.Inc(MetricEmailVerificationFailure)
			return ErrTokenInvalid
		}
		return fmt.Errorf("verification token lookup: %w", err)
	}
	if !e.now().Before(rec.ExpiresAt) {
		e.audit(ctx, ActionEmailVerificationFailed, rec.UserID, map[string]any{
			"reason": "expired_token",
		})
		e.metrics.Inc(MetricEmailVerificationFailure)
		return ErrTokenInvalid
	}

	verified := true
	if _, err := e.store.UpdateUser(ctx, rec.UserID, store.UserUpdate{EmailVerified: &verified}); err != nil {
		return fmt.Errorf("mark email verified: %w", err)
	}
	if err := e.store.DeleteVerificationTokensByUser(ctx, rec.UserID); err != nil {
		return fmt.Errorf("clear verification tokens: %w", err)
	}

	e.audit(ctx, ActionEmailVerified, rec.UserID, nil)
	e.metrics.Inc(MetricEmailVerified)

	return nil
}

// ResendVerification issues a fresh verification token and emails it.
// Enumeration-safe: unknown or already-verified accounts report
// success without sending.
func (e *Engine) ResendVerification(ctx context.Context, email string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := e.checkRate(ctx, "resend"); err != nil {
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
	if user.DeletedAt != nil || user.EmailVerified {
		return nil
	}

	token, err := e.issueVerificationToken(ctx, user.ID)
	if err != nil {
		return err
	}

	link := e.config.Delivery.AppBaseURL + "/authpage/verify-email/" + token
	if err := e.deliver(ctx, verificationMessage(email, link)); err != nil {
		e.log.Warn("verification email not delivered",
			zap.String("userId", user.ID),
			zap.Error(err),
		)
	}

	return nil
}

// RequestEmailChange issues a verification token for the caller and
// delivers it to the prospective address. The request, including the
// conflict path, is always audited.
func (e *Engine) RequestEmailChange(ctx context.Context, authCtx *AuthContext, newEmail string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if authCtx.Anonymous() {
		return ErrUnauthorized
	}

	newEmail = strings.ToLower(strings.TrimSpace(newEmail))
	if newEmail == "" || !strings.Contains(newEmail, "@") {
		return fmt.Errorf("%w: valid email required", ErrValidation)
	}

	if _, err := e.store.FindUserByEmail(ctx, newEmail); err == nil {
		e.audit(ctx, ActionEmailChangeRequested, authCtx.User.ID, map[string]any{
			"newEmail": newEmail,
			"status":   "failed_email_exists",
		})
		return fmt.Errorf("%w: email already in use", ErrConflict)
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("email lookup: %w", err)
	}

	token, err := e.issueVerificationToken(ctx, authCtx.User.ID)
	if err != nil {
		return err
	}

	e.audit(ctx, ActionEmailChangeRequested, authCtx.User.ID, map[string]any{
		"oldEmail": authCtx.User.Email,
		"newEmail": newEmail,
		"status":   "pending_verification",
	})
	e.metrics.Inc(MetricEmailChangeRequested)

	// The token goes to the address being claimed, not the current one.
	link := e.config.Delivery.AppBaseURL + "/authpage/verify-email/" + token
	if err := e.deliver(ctx, verificationMessage(newEmail, link)); err != nil {
		e.log.Warn("email change verification not delivered",
			zap.String("userId", authCtx.User.ID),
			zap.Error(err),
		)
	}

	return nil
}

// ConfirmEmailChange consumes the emailed token and swaps the caller's
// address. The token must belong to the caller; a token issued to
// anyone else fails the same way as an expired one.
func (e *Engine) ConfirmEmailChange(ctx context.Context, authCtx *AuthContext, token, newEmail string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if authCtx.Anonymous() {
		return ErrUnauthorized
	}

	newEmail = strings.ToLower(strings.TrimSpace(newEmail))
	rec, err := e.store.FindVerificationToken(ctx, token)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("verification token lookup: %w", err)
	}
	if rec == nil || !e.now().Before(rec.ExpiresAt) || rec.UserID != authCtx.User.ID {
		e.audit(ctx, ActionEmailChangeCompleted, authCtx.User.ID, map[string]any{
			"status": "failed_invalid_token",
		})
		return ErrTokenInvalid
	}

	oldEmail := authCtx.User.Email
	if _, err := e.store.UpdateUser(ctx, authCtx.User.ID, store.UserUpdate{Email: &newEmail}); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return fmt.Errorf("%w: email already in use", ErrConflict)
		}
		return fmt.Errorf("update email: %w", err)
	}
	if err := e.store.DeleteVerificationTokensByUser(ctx, authCtx.User.ID); err != nil {
		return fmt.Errorf("clear verification tokens: %w", err)
	}

	e.audit(ctx, ActionEmailChangeCompleted, authCtx.User.ID, map[string]any{
		"oldEmail": oldEmail,
		"newEmail": newEmail,
		"status":   "success",
	})
	e.metrics.Inc(MetricEmailChangeCompleted)

	return nil
}

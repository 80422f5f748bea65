package authgate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/authgate-io/authgate/store"
)

// SigninStart checks the password and, when it matches, issues an OTP
// challenge to the user's email. No session exists yet; the caller
// must complete [Engine.SigninVerify]. Every attempt is recorded in
// the login-attempt log, failed or not.
func (e *Engine) SigninStart(ctx context.Context, email, plaintext string) (*SigninResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if err := e.checkRate(ctx, "signin"); err != nil {
		return nil, err
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || plaintext == "" {
		return nil, fmt.Errorf("%w: email and password required", ErrValidation)
	}

	user, err := e.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			e.recordLoginAttempt(ctx, email, "", false)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("user lookup: %w", err)
	}
	if user.DeletedAt != nil {
		e.recordLoginAttempt(ctx, email, user.ID, false)
		return nil, ErrInvalidCredentials
	}

	ok, err := e.hasher.Verify(plaintext, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		e.recordLoginAttempt(ctx, email, user.ID, false)
		return nil, ErrInvalidCredentials
	}

	e.recordLoginAttempt(ctx, email, user.ID, true)

	if err := e.issueOTP(ctx, user, otpPurposeSignin); err != nil {
		return nil, err
	}

	return &SigninResult{
		UserID:      user.ID,
		OTPRequired: true,
	}, nil
}

// SigninVerify completes the OTP challenge and issues a session.
func (e *Engine) SigninVerify(ctx context.Context, userID, code string) (*SessionResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if err := e.checkRate(ctx, "signin"); err != nil {
		return nil, err
	}

	user, err := e.activeUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidOTP
		}
		return nil, err
	}

	if err := e.verifyOTP(ctx, user.ID, code, otpPurposeSignin); err != nil {
		return nil, err
	}

	return e.issueSession(ctx, user.ID, "")
}

// ResendOTP issues a fresh signin code, replacing the outstanding one
// and restoring the attempt budget. The user must exist.
func (e *Engine) ResendOTP(ctx context.Context, email string) error {
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
			return ErrNotFound
		}
		return fmt.Errorf("user lookup: %w", err)
	}
	if user.DeletedAt != nil {
		return ErrNotFound
	}

	return e.issueOTP(ctx, user, otpPurposeSignin)
}

func (e *Engine) recordLoginAttempt(ctx context.Context, email, userID string, success bool) {
	attempt := &store.LoginAttempt{
		ID:        uuid.NewString(),
		Email:     email,
		UserID:    userID,
		Success:   success,
		IPAddress: clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		CreatedAt: e.now(),
	}
	if err := e.store.CreateLoginAttempt(ctx, attempt); err != nil {
		e.log.Warn("login attempt write failed", zap.Error(err))
	}
}

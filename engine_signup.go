package authgate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/authgate-io/authgate/internal"
	"github.com/authgate-io/authgate/store"
)

// Signup creates an account, issues a verification token, and sends
// the verification email. Persistence is the commit point: a failed
// email delivery is logged and audited but the signup still succeeds.
func (e *Engine) Signup(ctx context.Context, req SignupRequest) (*SignupResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if err := e.checkRate(ctx, "signup"); err != nil {
		return nil, err
	}
	if err := validateSignup(req, e.config.Password.MinLength); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.TrimSpace(req.Username)
	phone := strings.TrimSpace(req.Phone)

	if err := e.ensureIdentityFree(ctx, email, username, phone); err != nil {
		if errors.Is(err, ErrConflict) {
			e.metrics.Inc(MetricSignupDuplicate)
		}
		return nil, err
	}

	hash, err := e.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := e.now()
	user := &store.User{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     username,
		Phone:        phone,
		FullName:     strings.TrimSpace(req.FullName),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			e.metrics.Inc(MetricSignupDuplicate)
			return nil, fmt.Errorf("%w: identity already in use", ErrConflict)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	device := internal.ClassifyUserAgent(userAgentFromContext(ctx))
	e.audit(ctx, ActionSignup, user.ID, map[string]any{
		"email": email,
		"device": map[string]any{
			"os":         device.OS,
			"browser":    device.Browser,
			"deviceType": device.DeviceType,
		},
	})
	e.metrics.Inc(MetricSignupSuccess)

	token, err := e.issueVerificationToken(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	link := e.config.Delivery.AppBaseURL + "/authpage/verify-email/" + token
	if err := e.deliver(ctx, verificationMessage(email, link)); err != nil {
		e.log.Warn("signup verification email not delivered",
			zap.String("userId", user.ID),
			zap.Error(err),
		)
	}

	return &SignupResult{
		UserID:            user.ID,
		VerificationToken: token,
	}, nil
}

func (e *Engine) ensureIdentityFree(ctx context.Context, email, username, phone string) error {
	if _, err := e.store.FindUserByEmail(ctx, email); err == nil {
		return fmt.Errorf("%w: email already in use", ErrConflict)
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("email lookup: %w", err)
	}

	if _, err := e.store.FindUserByUsername(ctx, username); err == nil {
		return fmt.Errorf("%w: username already in use", ErrConflict)
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("username lookup: %w", err)
	}

	if phone != "" {
		if _, err := e.store.FindUserByPhone(ctx, phone); err == nil {
			return fmt.Errorf("%w: phone already in use", ErrConflict)
		} else if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("phone lookup: %w", err)
		}
	}

	return nil
}

func validateSignup(req SignupRequest, minPassword int) error {
	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("%w: valid email required", ErrValidation)
	}
	if strings.TrimSpace(req.Username) == "" {
		return fmt.Errorf("%w: username required", ErrValidation)
	}
	if len(req.Password) < minPassword {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPassword)
	}
	return nil
}

package authgate

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/authgate-io/authgate/internal"
	"github.com/authgate-io/authgate/store"
)

// Token entropy in random bytes before hex encoding. Session tokens
// are 64 hex chars, verification and reset tokens 48.
const (
	sessionTokenBytes = 32
	purposeTokenBytes = 24
)

// issueSession creates and persists a session for userID and returns
// the opaque token. Every issuance is audited as SESSION_CREATED;
// impersonatedBy, when set, records the admin who requested it.
func (e *Engine) issueSession(ctx context.Context, userID, impersonatedBy string) (*SessionResult, error) {
	token, err := internal.NewToken(sessionTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	now := e.now()
	ua := userAgentFromContext(ctx)
	device := internal.ClassifyUserAgent(ua)

	sess := &store.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Token:     token,
		ExpiresAt: now.Add(e.config.Session.TokenTTL),
		IPAddress: clientIPFromContext(ctx),
		UserAgent: ua,
		Device: store.Device{
			OS:         device.OS,
			Browser:    device.Browser,
			DeviceType: device.DeviceType,
		},
		CreatedAt: now,
	}
	if err := e.store.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	meta := map[string]any{
		"sessionId": sess.ID,
		"device": map[string]any{
			"os":         device.OS,
			"browser":    device.Browser,
			"deviceType": device.DeviceType,
		},
	}
	if impersonatedBy != "" {
		meta["impersonatedBy"] = impersonatedBy
	}
	e.audit(ctx, ActionSessionCreated, userID, meta)
	e.metrics.Inc(MetricSessionCreated)

	return &SessionResult{
		Token:     token,
		SessionID: sess.ID,
		UserID:    userID,
		ExpiresAt: sess.ExpiresAt,
	}, nil
}

// issueVerificationToken creates a single-use email verification token
// for userID. Prior tokens for the user are replaced.
func (e *Engine) issueVerificationToken(ctx context.Context, userID string) (string, error) {
	token, err := internal.NewToken(purposeTokenBytes)
	if err != nil {
		return "", fmt.Errorf("generate verification token: %w", err)
	}

	if err := e.store.DeleteVerificationTokensByUser(ctx, userID); err != nil {
		return "", fmt.Errorf("clear verification tokens: %w", err)
	}

	now := e.now()
	rec := &store.VerificationToken{
		Token:     token,
		UserID:    userID,
		ExpiresAt: now.Add(e.config.Tokens.VerificationTTL),
		CreatedAt: now,
	}
	if err := e.store.CreateVerificationToken(ctx, rec); err != nil {
		return "", fmt.Errorf("create verification token: %w", err)
	}

	return token, nil
}

// issueResetToken creates a password reset token. Reset tokens are
// never deleted; consumption flips the used flag so the row remains as
// history.
func (e *Engine) issueResetToken(ctx context.Context, userID string) (string, error) {
	token, err := internal.NewToken(purposeTokenBytes)
	if err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}

	now := e.now()
	rec := &store.ResetToken{
		ID:        uuid.NewString(),
		Token:     token,
		UserID:    userID,
		ExpiresAt: now.Add(e.config.Tokens.ResetTTL),
		CreatedAt: now,
	}
	if err := e.store.CreateResetToken(ctx, rec); err != nil {
		return "", fmt.Errorf("create reset token: %w", err)
	}

	return token, nil
}

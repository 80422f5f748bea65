package authgate

import (
	"context"
	"errors"
	"fmt"

	"github.com/authgate-io/authgate/store"
)

// Logout revokes the session behind the presented token. Revoking a
// token that no longer resolves to a session is not an error.
func (e *Engine) Logout(ctx context.Context, token string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if token == "" {
		return nil
	}

	sess, err := e.store.FindSessionByToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("session lookup: %w", err)
	}

	if err := e.store.DeleteSessionByToken(ctx, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	e.audit(ctx, ActionSessionRevoked, sess.UserID, map[string]any{
		"sessionId": sess.ID,
		"scope":     "single",
		"reason":    "logout",
	})
	e.metrics.Inc(MetricLogout)
	e.metrics.Inc(MetricSessionRevoked)

	return nil
}

// ListSessions returns the live sessions of userID. Users may list
// their own; listing another user's requires session.read.
func (e *Engine) ListSessions(ctx context.Context, authCtx *AuthContext, userID string) ([]SessionInfo, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if authCtx.Anonymous() {
		return nil, ErrUnauthorized
	}
	if authCtx.User.ID != userID {
		if err := e.Authorize(authCtx, "session.read"); err != nil {
			return nil, err
		}
	}

	sessions, err := e.store.ListSessionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	now := e.now()
	out := make([]SessionInfo, 0, len(sessions))
	for i := range sessions {
		s := &sessions[i]
		if s.DeletedAt != nil || !now.Before(s.ExpiresAt) {
			continue
		}
		out = append(out, sessionInfoFromRecord(s))
	}
	return out, nil
}

// RevokeSession terminates one session of userID by session id.
// Requires session.terminate unless the session is the caller's own.
func (e *Engine) RevokeSession(ctx context.Context, authCtx *AuthContext, userID, sessionID string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if authCtx.Anonymous() {
		return ErrUnauthorized
	}
	if authCtx.User.ID != userID {
		if err := e.Authorize(authCtx, "session.terminate"); err != nil {
			return err
		}
	}

	sessions, err := e.store.ListSessionsByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	for i := range sessions {
		if sessions[i].ID != sessionID {
			continue
		}
		if err := e.store.DeleteSessionByToken(ctx, sessions[i].Token); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		e.audit(ctx, ActionSessionRevoked, userID, map[string]any{
			"sessionId": sessionID,
			"scope":     "single",
			"revokedBy": authCtx.User.ID,
		})
		e.metrics.Inc(MetricSessionRevoked)
		return nil
	}

	return ErrNotFound
}

// RevokeUserSessions terminates every session of userID. Used for
// logout-everywhere and administrative locks.
func (e *Engine) RevokeUserSessions(ctx context.Context, authCtx *AuthContext, userID string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if authCtx.Anonymous() {
		return ErrUnauthorized
	}
	if authCtx.User.ID != userID {
		if err := e.Authorize(authCtx, "session.terminate"); err != nil {
			return err
		}
	}

	if err := e.store.DeleteSessionsByUser(ctx, userID); err != nil {
		return fmt.Errorf("delete user sessions: %w", err)
	}

	e.audit(ctx, ActionSessionRevoked, userID, map[string]any{
		"scope":     "user",
		"revokedBy": authCtx.User.ID,
	})
	e.metrics.Inc(MetricSessionRevoked)

	return nil
}

// RevokeAllSessions terminates every session system-wide. The confirm
// flag is mandatory: without it the call fails hard and no session is
// touched, it is never a silent no-op.
func (e *Engine) RevokeAllSessions(ctx context.Context, authCtx *AuthContext, confirm bool) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := e.Authorize(authCtx, "session.terminate"); err != nil {
		return err
	}
	if !confirm {
		return fmt.Errorf("%w: global session revoke requires confirm", ErrConfirmationRequired)
	}

	if err := e.store.DeleteAllSessions(ctx); err != nil {
		return fmt.Errorf("delete all sessions: %w", err)
	}

	e.audit(ctx, ActionSessionRevoked, authCtx.User.ID, map[string]any{
		"scope":     "global",
		"revokedBy": authCtx.User.ID,
	})
	e.metrics.Inc(MetricGlobalRevoke)
	e.metrics.Inc(MetricSessionRevoked)

	return nil
}

// revokeSessionsForUser is the unauthorized internal variant used by
// account lock, deactivation, and password reset.
func (e *Engine) revokeSessionsForUser(ctx context.Context, userID, reason string) error {
	if err := e.store.DeleteSessionsByUser(ctx, userID); err != nil {
		return fmt.Errorf("delete user sessions: %w", err)
	}
	e.audit(ctx, ActionSessionRevoked, userID, map[string]any{
		"scope":  "user",
		"reason": reason,
	})
	e.metrics.Inc(MetricSessionRevoked)
	return nil
}

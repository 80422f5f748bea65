package authgate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/authgate-io/authgate/internal/rate"
	"github.com/authgate-io/authgate/store"
)

// SuperAdminRole bypasses every permission check unconditionally.
const SuperAdminRole = "SUPER_ADMIN"

// Engine is the authentication and authorization core. Construct it
// through [New] and [Builder.Build]; zero-value Engines are not usable.
type Engine struct {
	config     Config
	store      store.Store
	limiter    *rate.Limiter
	mailers    []Mailer
	hasher     Hasher
	metrics    *Metrics
	dispatcher *auditDispatcher
	log        *zap.Logger
	now        func() time.Time
}

// Close drains the audit dispatcher. Call once on shutdown.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.dispatcher != nil {
		e.dispatcher.Close()
	}
}

// AuditDropped reports how many mirrored audit events were discarded
// under buffer pressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.dispatcher.Dropped()
}

// MetricsSnapshot copies the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

// Validate resolves a presented session token to an [AuthContext]. A
// missing, expired, or revoked token yields an anonymous context, not
// an error; callers decide whether anonymous access is acceptable.
func (e *Engine) Validate(ctx context.Context, token string) (*AuthContext, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if token == "" {
		return anonymousContext(), nil
	}

	sess, err := e.store.FindSessionByToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return anonymousContext(), nil
		}
		return nil, fmt.Errorf("session lookup: %w", err)
	}
	if sess.DeletedAt != nil || !e.now().Before(sess.ExpiresAt) {
		return anonymousContext(), nil
	}

	user, err := e.store.FindUserByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return anonymousContext(), nil
		}
		return nil, fmt.Errorf("user lookup: %w", err)
	}
	if user.DeletedAt != nil {
		return anonymousContext(), nil
	}

	roles, perms, err := e.ResolvePermissions(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &AuthContext{
		User:         user,
		Roles:        roles,
		Permissions:  perms,
		SessionToken: token,
	}, nil
}

// ResolvePermissions computes the user's role set and the union of
// permissions across those roles. Unknown users fail closed to empty
// sets. Pure read, no side effects.
func (e *Engine) ResolvePermissions(ctx context.Context, userID string) (roles, permissions map[string]struct{}, err error) {
	roles = map[string]struct{}{}
	permissions = map[string]struct{}{}

	userRoles, err := e.store.ListUserRoles(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return roles, permissions, nil
		}
		return nil, nil, fmt.Errorf("list user roles: %w", err)
	}

	for _, role := range userRoles {
		if role.DeletedAt != nil {
			continue
		}
		roles[role.Name] = struct{}{}

		grants, err := e.store.ListRolePermissions(ctx, role.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("list role permissions: %w", err)
		}
		for _, perm := range grants {
			if perm.DeletedAt != nil {
				continue
			}
			permissions[perm.Name] = struct{}{}
		}
	}

	return roles, permissions, nil
}

// CheckPermission reports whether the context may perform the action
// guarded by key. SUPER_ADMIN bypasses unconditionally; otherwise the
// exact key must be present — no wildcard or hierarchy matching.
func (e *Engine) CheckPermission(authCtx *AuthContext, key string) bool {
	if authCtx.Anonymous() {
		return false
	}
	if authCtx.HasRole(SuperAdminRole) {
		return true
	}
	_, ok := authCtx.Permissions[key]
	return ok
}

// Authorize gates an operation on a permission key, distinguishing
// missing identity (ErrUnauthorized) from insufficient permission
// (ErrForbidden).
func (e *Engine) Authorize(authCtx *AuthContext, key string) error {
	if authCtx.Anonymous() {
		return ErrUnauthorized
	}
	if !e.CheckPermission(authCtx, key) {
		e.metrics.Inc(MetricPermissionDenied)
		return fmt.Errorf("%w: %s", ErrForbidden, key)
	}
	return nil
}

// RecordSystemError is the outer-boundary hook for unexpected
// failures: it audits SYSTEM_ERROR best-effort and returns the
// original error untouched.
func (e *Engine) RecordSystemError(ctx context.Context, origErr error, operation string) error {
	if e == nil || origErr == nil {
		return origErr
	}
	e.metrics.Inc(MetricSystemError)
	e.audit(ctx, ActionSystemError, "", map[string]any{
		"operation": operation,
		"error":     origErr.Error(),
	})
	return origErr
}

// checkRate charges one hit against "<prefix>:<client-ip>". No-op when
// rate limiting is disabled.
func (e *Engine) checkRate(ctx context.Context, prefix string) error {
	if e.limiter == nil {
		return nil
	}
	ip := clientIPFromContext(ctx)
	if ip == "" {
		ip = "unknown"
	}
	if err := e.limiter.Allow(ctx, prefix, ip); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			e.metrics.Inc(MetricRateLimitHit)
			return ErrRateLimited
		}
		return err
	}
	return nil
}

// activeUserByID loads a user and rejects soft-deleted accounts.
func (e *Engine) activeUserByID(ctx context.Context, userID string) (*store.User, error) {
	user, err := e.store.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("user lookup: %w", err)
	}
	if user.DeletedAt != nil {
		return nil, ErrNotFound
	}
	return user, nil
}

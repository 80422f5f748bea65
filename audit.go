package authgate

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/authgate-io/authgate/store"
)

// Action is a canonical audit event kind.
type Action string

// Canonical audit actions. Every privileged mutation emits exactly one
// of these before reporting success.
const (
	ActionSignup                  Action = "SIGNUP"
	ActionOTPSent                 Action = "OTP_SENT"
	ActionOTPSensitive            Action = "OTP_SENSITIVE"
	ActionOTPVerified             Action = "OTP_VERIFIED"
	ActionSessionCreated          Action = "SESSION_CREATED"
	ActionSessionRevoked          Action = "SESSION_REVOKED"
	ActionResetRequest            Action = "RESET_REQUEST"
	ActionResetSuccess            Action = "RESET_SUCCESS"
	ActionEmailVerified           Action = "EMAIL_VERIFIED"
	ActionEmailVerificationFailed Action = "EMAIL_VERIFICATION_FAILED"
	ActionEmailChangeRequested    Action = "EMAIL_CHANGE_REQUESTED"
	ActionEmailChangeCompleted    Action = "EMAIL_CHANGE_COMPLETED"
	ActionAccountDeactivated      Action = "ACCOUNT_DEACTIVATED"
	ActionAccountReactivated      Action = "ACCOUNT_REACTIVATED"
	ActionAccountDeleted          Action = "ACCOUNT_DELETED"
	ActionRoleAssigned            Action = "ROLE_ASSIGNED"
	ActionRoleRemoved             Action = "ROLE_REMOVED"
	ActionRoleChanged             Action = "ROLE_CHANGED"
	ActionPermissionChanged       Action = "PERMISSION_CHANGED"
	ActionAuditExport             Action = "AUDIT_EXPORT"
	ActionSeedRun                 Action = "SEED_RUN"
	ActionEmailDeliveryFailed     Action = "EMAIL_DELIVERY_FAILED"
	ActionSystemError             Action = "SYSTEM_ERROR"
)

// AuditEvent is the form in which stored audit records are mirrored to
// an optional AuditSink.
type AuditEvent struct {
	Timestamp time.Time      `json:"timestamp"`
	Action    Action         `json:"action"`
	UserID    string         `json:"user_id,omitempty"`
	IP        string         `json:"ip,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// AuditSink receives mirrored audit events from the engine's dispatcher.
// The store write remains the record of truth; sinks are an
// observability tap and may drop events under pressure.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// NoOpSink discards all events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, AuditEvent) {}

// ChannelSink buffers events on a channel for out-of-process shipping.
type ChannelSink struct {
	events chan AuditEvent
}

// NewChannelSink creates a ChannelSink with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan AuditEvent, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

// Events exposes the receive side of the sink.
func (s *ChannelSink) Events() <-chan AuditEvent {
	return s.events
}

// JSONWriterSink writes one JSON-encoded event per line to w.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewJSONWriterSink creates a JSONWriterSink that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, event AuditEvent) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}

// audit writes one audit record through the store, synchronously and
// best-effort: a failed write is logged to diagnostics and mirrored
// sinks still receive the event, but the business operation is never
// aborted on its account.
func (e *Engine) audit(ctx context.Context, action Action, userID string, metadata map[string]any) {
	now := e.now()
	ip := clientIPFromContext(ctx)
	ua := userAgentFromContext(ctx)

	rec := &store.AuditLog{
		UserID:    userID,
		Action:    string(action),
		IPAddress: ip,
		UserAgent: ua,
		Metadata:  metadata,
		CreatedAt: now,
	}
	if err := e.store.CreateAuditLog(ctx, rec); err != nil {
		e.log.Warn("audit write failed",
			zap.String("action", string(action)),
			zap.Error(err),
		)
	}

	if e.dispatcher != nil {
		e.dispatcher.Emit(ctx, AuditEvent{
			Timestamp: now,
			Action:    action,
			UserID:    userID,
			IP:        ip,
			UserAgent: ua,
			Metadata:  metadata,
		})
	}
}

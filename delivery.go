package authgate

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Mailer is a single delivery channel, typically SMTP or an HTTP
// email API. Send must return a non-nil error when the message was
// not accepted by the channel.
type Mailer interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// deliver walks the configured mailer chain in order and stops at the
// first channel that accepts the message. A channel failure is a
// diagnostics event; only exhausting the whole chain is an audited
// delivery failure.
func (e *Engine) deliver(ctx context.Context, msg Message) error {
	if len(e.mailers) == 0 {
		return fmt.Errorf("%w: no delivery channels configured", ErrDeliveryFailed)
	}

	var lastErr error
	for i, m := range e.mailers {
		err := m.Send(ctx, msg)
		if err == nil {
			if i > 0 {
				e.metrics.Inc(MetricDeliveryFallback)
			}
			e.metrics.Inc(MetricDeliverySuccess)
			return nil
		}

		lastErr = err
		e.log.Warn("delivery channel failed",
			zap.String("channel", m.Name()),
			zap.String("subject", msg.Subject),
			zap.Error(err),
		)
	}

	e.metrics.Inc(MetricDeliveryFailure)
	e.audit(ctx, ActionEmailDeliveryFailed, "", map[string]any{
		"subject":  msg.Subject,
		"channels": len(e.mailers),
		"error":    lastErr.Error(),
	})

	return fmt.Errorf("%w: %v", ErrDeliveryFailed, lastErr)
}

func otpMessage(to, code string, minutes int) Message {
	return Message{
		To:      to,
		Subject: "Your OTP code",
		HTML:    fmt.Sprintf("<p>Your OTP code is <strong>%s</strong>. It expires in %d minutes.</p>", code, minutes),
	}
}

func verificationMessage(to, link string) Message {
	return Message{
		To:      to,
		Subject: "Verify your email",
		HTML:    fmt.Sprintf(`<p>Click <a href="%s">here</a> to verify your email.</p>`, link),
	}
}

func resetMessage(to, link string) Message {
	return Message{
		To:      to,
		Subject: "Reset your password",
		HTML:    fmt.Sprintf(`<p>Reset your password: <a href="%s">Reset password</a></p>`, link),
	}
}

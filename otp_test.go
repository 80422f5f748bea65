package authgate

import (
	"context"
	"errors"
	"testing"
)

func TestSensitivePurposeAuditsAsSensitive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.signup(t, "alice@example.com", "password-123")
	user, err := env.store.FindUserByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("find user: %v", err)
	}

	if err := env.engine.issueOTP(ctx, user, otpPurposeEmailChange); err != nil {
		t.Fatalf("issue otp: %v", err)
	}

	events := env.auditEvents(t, ActionOTPSensitive)
	if len(events) != 1 {
		t.Fatalf("OTP_SENSITIVE events = %d, want 1", len(events))
	}
	if events[0].Metadata["purpose"] != otpPurposeEmailChange {
		t.Fatalf("purpose = %v, want %s", events[0].Metadata["purpose"], otpPurposeEmailChange)
	}
	if sent := env.auditEvents(t, ActionOTPSent); len(sent) != 0 {
		t.Fatalf("OTP_SENT events = %d, want 0 for a sensitive issue", len(sent))
	}
}

func TestSigninVerifyRejectsCodeIssuedForAnotherPurpose(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	userID := env.signup(t, "alice@example.com", "password-123")
	user, err := env.store.FindUserByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("find user: %v", err)
	}

	if err := env.engine.issueOTP(ctx, user, otpPurposeEmailChange); err != nil {
		t.Fatalf("issue otp: %v", err)
	}
	code := env.otpFor(t, userID)

	// a code tagged to one flow is worthless in another
	if _, err := env.engine.SigninVerify(ctx, userID, code); !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("cross-purpose verify: got %v, want ErrInvalidOTP", err)
	}

	// the issuing purpose still consumes it
	if err := env.engine.verifyOTP(ctx, userID, code, otpPurposeEmailChange); err != nil {
		t.Fatalf("matching purpose: %v", err)
	}
}

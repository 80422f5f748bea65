package authgate

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSignupCreatesUnverifiedUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.engine.Signup(ctx, SignupRequest{
		Email:    "Alice@Example.com",
		Username: "alice",
		FullName: "Alice Smith",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if res.UserID == "" {
		t.Fatal("expected a user ID")
	}

	u, err := env.store.FindUserByID(ctx, res.UserID)
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if u.Email != "alice@example.com" {
		t.Fatalf("email not normalized: %q", u.Email)
	}
	if u.EmailVerified {
		t.Fatal("new account must start unverified")
	}
	if u.PasswordHash == "correct-horse" {
		t.Fatal("password stored in the clear")
	}

	// verification token exists and expires roughly a day out
	tok, err := env.store.FindVerificationToken(ctx, res.VerificationToken)
	if err != nil {
		t.Fatalf("verification token not stored: %v", err)
	}
	if tok.UserID != res.UserID {
		t.Fatalf("token bound to %s, want %s", tok.UserID, res.UserID)
	}
	if got, want := tok.ExpiresAt.Sub(env.clock()), 24*time.Hour; got != want {
		t.Fatalf("verification TTL = %v, want %v", got, want)
	}

	events := env.auditEvents(t, ActionSignup)
	if len(events) != 1 {
		t.Fatalf("SIGNUP events = %d, want 1", len(events))
	}
	if events[0].UserID != res.UserID {
		t.Fatalf("SIGNUP attributed to %q", events[0].UserID)
	}
}

func TestSignupSendsVerificationLink(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.engine.Signup(context.Background(), SignupRequest{
		Email:    "bob@example.com",
		Username: "bob",
		Password: "password-123",
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	msgs := env.mailer.messages()
	if len(msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(msgs))
	}
	if msgs[0].To != "bob@example.com" {
		t.Fatalf("sent to %q", msgs[0].To)
	}
	if !strings.Contains(msgs[0].HTML, "/authpage/verify-email/"+res.VerificationToken) {
		t.Fatal("verification link missing from message body")
	}
}

func TestSignupSucceedsWhenDeliveryFails(t *testing.T) {
	env := newTestEnv(t)
	env.mailer.setFail(true)

	res, err := env.engine.Signup(context.Background(), SignupRequest{
		Email:    "carol@example.com",
		Username: "carol",
		Password: "password-123",
	})
	if err != nil {
		t.Fatalf("signup should not fail on delivery: %v", err)
	}
	if _, err := env.store.FindUserByID(context.Background(), res.UserID); err != nil {
		t.Fatalf("user not persisted: %v", err)
	}

	if events := env.auditEvents(t, ActionEmailDeliveryFailed); len(events) != 1 {
		t.Fatalf("EMAIL_DELIVERY_FAILED events = %d, want 1", len(events))
	}
}

func TestSignupRejectsDuplicateIdentity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.signup(t, "dave@example.com", "password-123")

	cases := []SignupRequest{
		{Email: "dave@example.com", Username: "other", Password: "password-123"},
		{Email: "DAVE@example.com", Username: "other2", Password: "password-123"},
		{Email: "new@example.com", Username: "dave", Password: "password-123"},
	}
	for _, req := range cases {
		if _, err := env.engine.Signup(ctx, req); !errors.Is(err, ErrConflict) {
			t.Fatalf("signup %s/%s: got %v, want ErrConflict", req.Email, req.Username, err)
		}
	}
}

func TestSignupRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := []SignupRequest{
		{Email: "", Username: "x", Password: "password-123"},
		{Email: "not-an-email", Username: "x", Password: "password-123"},
		{Email: "x@example.com", Username: "", Password: "password-123"},
		{Email: "x@example.com", Username: "x", Password: "short"},
	}
	for _, req := range cases {
		if _, err := env.engine.Signup(ctx, req); !errors.Is(err, ErrValidation) {
			t.Fatalf("signup %+v: got %v, want ErrValidation", req, err)
		}
	}
}

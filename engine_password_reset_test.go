package authgate

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// resetTokenFromMail parses the reset link out of the latest message.
func resetTokenFromMail(t *testing.T, env *testEnv) string {
	t.Helper()
	msgs := env.mailer.messages()
	if len(msgs) == 0 {
		t.Fatal("no messages delivered")
	}
	html := msgs[len(msgs)-1].HTML
	const marker = "/authpage/reset-password/"
	i := strings.Index(html, marker)
	if i < 0 {
		t.Fatalf("no reset link in message: %s", html)
	}
	rest := html[i+len(marker):]
	if j := strings.IndexAny(rest, `"<`); j >= 0 {
		rest = rest[:j]
	}
	return rest
}

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.signup(t, "alice@example.com", "old-password")
	sess := env.signin(t, "alice@example.com", "old-password")

	if err := env.engine.RequestPasswordReset(ctx, "alice@example.com"); err != nil {
		t.Fatalf("request reset: %v", err)
	}
	token := resetTokenFromMail(t, env)

	if err := env.engine.ValidateResetToken(ctx, token); err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if err := env.engine.ResetPassword(ctx, token, "new-password"); err != nil {
		t.Fatalf("reset password: %v", err)
	}

	// old credentials dead, new ones live
	if _, err := env.engine.SigninStart(ctx, "alice@example.com", "old-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password: got %v, want ErrInvalidCredentials", err)
	}
	env.signin(t, "alice@example.com", "new-password")

	// every pre-reset session is revoked
	if !env.authCtx(t, sess.Token).Anonymous() {
		t.Fatal("session survived password reset")
	}
}

func TestPasswordResetEnumerationSafe(t *testing.T) {
	env := newTestEnv(t)

	if err := env.engine.RequestPasswordReset(context.Background(), "nobody@example.com"); err != nil {
		t.Fatalf("unknown email must not error: %v", err)
	}
	if msgs := env.mailer.messages(); len(msgs) != 0 {
		t.Fatalf("messages for unknown account = %d, want 0", len(msgs))
	}
}

func TestPasswordResetTokenSingleUse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.signup(t, "alice@example.com", "old-password")
	if err := env.engine.RequestPasswordReset(ctx, "alice@example.com"); err != nil {
		t.Fatalf("request reset: %v", err)
	}
	token := resetTokenFromMail(t, env)

	if err := env.engine.ResetPassword(ctx, token, "new-password"); err != nil {
		t.Fatalf("first reset: %v", err)
	}
	if err := env.engine.ResetPassword(ctx, token, "another-password"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("replay: got %v, want ErrTokenInvalid", err)
	}
	if err := env.engine.ValidateResetToken(ctx, token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("validate used token: got %v, want ErrTokenInvalid", err)
	}
}

func TestPasswordResetTokenExpires(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.signup(t, "alice@example.com", "old-password")
	if err := env.engine.RequestPasswordReset(ctx, "alice@example.com"); err != nil {
		t.Fatalf("request reset: %v", err)
	}
	token := resetTokenFromMail(t, env)

	env.advance(time.Hour + time.Second)

	if err := env.engine.ResetPassword(ctx, token, "new-password"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expired token: got %v, want ErrTokenInvalid", err)
	}
}

func TestPasswordResetUniformFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// bogus and empty tokens fail identically to used/expired ones
	for _, token := range []string{"", "not-a-token"} {
		if err := env.engine.ResetPassword(ctx, token, "new-password"); !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("token %q: got %v, want ErrTokenInvalid", token, err)
		}
	}
}

func TestPasswordResetEnforcesMinLength(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.signup(t, "alice@example.com", "old-password")
	if err := env.engine.RequestPasswordReset(ctx, "alice@example.com"); err != nil {
		t.Fatalf("request reset: %v", err)
	}
	token := resetTokenFromMail(t, env)

	if err := env.engine.ResetPassword(ctx, token, "short"); !errors.Is(err, ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}
	// the token is still usable after the rejected attempt
	if err := env.engine.ResetPassword(ctx, token, "long-enough-now"); err != nil {
		t.Fatalf("reset after validation failure: %v", err)
	}
}

package authgate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/authgate-io/authgate/store"
	"github.com/authgate-io/authgate/store/memstore"
)

// fakeMailer records every message and can be flipped into failure
// mode to exercise the delivery fallback chain.
type fakeMailer struct {
	name string

	mu   sync.Mutex
	fail bool
	sent []Message
}

func (m *fakeMailer) Name() string { return m.name }

func (m *fakeMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New(m.name + " unavailable")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) setFail(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fail
}

func (m *fakeMailer) messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.sent))
	copy(out, m.sent)
	return out
}

// plainHasher keeps engine tests fast; Argon2id has its own tests.
type plainHasher struct{}

func (plainHasher) Hash(plaintext string) (string, error) {
	return "plain$" + plaintext, nil
}

func (plainHasher) Verify(plaintext, digest string) (bool, error) {
	return digest == "plain$"+plaintext, nil
}

type testEnv struct {
	engine *Engine
	store  *memstore.Store
	mailer *fakeMailer

	mu  sync.Mutex
	now time.Time
}

func (env *testEnv) clock() time.Time {
	env.mu.Lock()
	defer env.mu.Unlock()
	return env.now
}

func (env *testEnv) advance(d time.Duration) {
	env.mu.Lock()
	defer env.mu.Unlock()
	env.now = env.now.Add(d)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		store:  memstore.New(),
		mailer: &fakeMailer{name: "primary"},
		now:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	cfg := DefaultConfig()
	cfg.RateLimit.Enabled = false

	engine, err := New().
		WithConfig(cfg).
		WithStore(env.store).
		WithMailers(env.mailer).
		WithHasher(plainHasher{}).
		WithClock(env.clock).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)

	env.engine = engine
	return env
}

func (env *testEnv) signup(t *testing.T, email, password string) string {
	t.Helper()
	res, err := env.engine.Signup(context.Background(), SignupRequest{
		Email:    email,
		Username: strings.SplitN(email, "@", 2)[0],
		Password: password,
	})
	if err != nil {
		t.Fatalf("signup %s: %v", email, err)
	}
	return res.UserID
}

// signin runs the full two-step flow, reading the stored OTP the way
// the user would read their inbox.
func (env *testEnv) signin(t *testing.T, email, password string) *SessionResult {
	t.Helper()
	ctx := context.Background()

	start, err := env.engine.SigninStart(ctx, email, password)
	if err != nil {
		t.Fatalf("signin start %s: %v", email, err)
	}
	code := env.otpFor(t, start.UserID)
	sess, err := env.engine.SigninVerify(ctx, start.UserID, code)
	if err != nil {
		t.Fatalf("signin verify %s: %v", email, err)
	}
	return sess
}

func (env *testEnv) otpFor(t *testing.T, userID string) string {
	t.Helper()
	rec, err := env.store.FindOtpByUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("no OTP stored for %s: %v", userID, err)
	}
	return rec.Code
}

func (env *testEnv) authCtx(t *testing.T, token string) *AuthContext {
	t.Helper()
	authCtx, err := env.engine.Validate(context.Background(), token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	return authCtx
}

// grant wires a role with the named permissions straight through the
// store and assigns it to the user.
func (env *testEnv) grant(t *testing.T, userID, roleName string, permissions ...string) {
	t.Helper()
	ctx := context.Background()

	role, err := env.store.UpsertRoleByName(ctx, roleName, "")
	if err != nil {
		t.Fatalf("upsert role %s: %v", roleName, err)
	}
	for _, name := range permissions {
		perm, err := env.store.UpsertPermissionByName(ctx, name, "")
		if err != nil {
			t.Fatalf("upsert permission %s: %v", name, err)
		}
		if err := env.store.CreateRolePermission(ctx, role.ID, perm.ID); err != nil && !errors.Is(err, store.ErrConflict) {
			t.Fatalf("grant %s to %s: %v", name, roleName, err)
		}
	}
	if err := env.store.UpsertUserRole(ctx, userID, role.ID); err != nil {
		t.Fatalf("assign role %s: %v", roleName, err)
	}
}

// auditEvents returns stored audit records for one action, newest first.
func (env *testEnv) auditEvents(t *testing.T, action Action) []store.AuditLog {
	t.Helper()
	logs, err := env.store.QueryAuditLogs(context.Background(), store.AuditQuery{Action: string(action)})
	if err != nil {
		t.Fatalf("query audit logs: %v", err)
	}
	return logs
}

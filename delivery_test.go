package authgate

import (
	"testing"
	"time"

	"github.com/authgate-io/authgate/store/memstore"
)

func newFallbackEnv(t *testing.T) (*testEnv, *fakeMailer, *fakeMailer) {
	t.Helper()

	primary := &fakeMailer{name: "smtp"}
	backup := &fakeMailer{name: "ses"}

	env := &testEnv{
		store:  memstore.New(),
		mailer: primary,
		now:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	cfg := DefaultConfig()
	cfg.RateLimit.Enabled = false

	engine, err := New().
		WithConfig(cfg).
		WithStore(env.store).
		WithMailers(primary, backup).
		WithHasher(plainHasher{}).
		WithClock(env.clock).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)

	env.engine = engine
	return env, primary, backup
}

func TestDeliveryPrefersPrimaryChannel(t *testing.T) {
	env, primary, backup := newFallbackEnv(t)

	env.signup(t, "alice@example.com", "password-123")

	if got := len(primary.messages()); got != 1 {
		t.Fatalf("primary messages = %d, want 1", got)
	}
	if got := len(backup.messages()); got != 0 {
		t.Fatalf("backup messages = %d, want 0", got)
	}
}

func TestDeliveryFallsBackWhenPrimaryFails(t *testing.T) {
	env, primary, backup := newFallbackEnv(t)
	primary.setFail(true)

	env.signup(t, "alice@example.com", "password-123")

	if got := len(backup.messages()); got != 1 {
		t.Fatalf("backup messages = %d, want 1", got)
	}

	snap := env.engine.MetricsSnapshot()
	if snap.Counters[MetricDeliveryFallback] != 1 {
		t.Fatalf("fallback counter = %d, want 1", snap.Counters[MetricDeliveryFallback])
	}
	// the chain recovered, so no failure is audited
	if events := env.auditEvents(t, ActionEmailDeliveryFailed); len(events) != 0 {
		t.Fatalf("EMAIL_DELIVERY_FAILED events = %d, want 0", len(events))
	}
}

func TestDeliveryAuditsWhenAllChannelsFail(t *testing.T) {
	env, primary, backup := newFallbackEnv(t)
	primary.setFail(true)
	backup.setFail(true)

	env.signup(t, "alice@example.com", "password-123")

	events := env.auditEvents(t, ActionEmailDeliveryFailed)
	if len(events) != 1 {
		t.Fatalf("EMAIL_DELIVERY_FAILED events = %d, want 1", len(events))
	}

	snap := env.engine.MetricsSnapshot()
	if snap.Counters[MetricDeliveryFailure] != 1 {
		t.Fatalf("failure counter = %d, want 1", snap.Counters[MetricDeliveryFailure])
	}
}

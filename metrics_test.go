package authgate

import (
	"sync"
	"testing"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	m.Inc(MetricSignupSuccess)
	m.Inc(MetricSignupSuccess)
	m.Inc(MetricOTPVerified)

	if got := m.Value(MetricSignupSuccess); got != 2 {
		t.Fatalf("signup counter = %d, want 2", got)
	}
	snap := m.Snapshot()
	if snap.Counters[MetricSignupSuccess] != 2 || snap.Counters[MetricOTPVerified] != 1 {
		t.Fatalf("snapshot = %v", snap)
	}
	if snap.Counters[MetricOTPFailure] != 0 {
		t.Fatalf("untouched counter = %d, want 0", snap.Counters[MetricOTPFailure])
	}
}

func TestMetricsDisabled(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})

	m.Inc(MetricSignupSuccess)
	if got := m.Value(MetricSignupSuccess); got != 0 {
		t.Fatalf("disabled counter = %d, want 0", got)
	}

	// a nil receiver is also a no-op
	var nilMetrics *Metrics
	nilMetrics.Inc(MetricSignupSuccess)
	if got := nilMetrics.Value(MetricSignupSuccess); got != 0 {
		t.Fatalf("nil counter = %d, want 0", got)
	}
}

func TestMetricsConcurrentIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const workers = 8
	const perWorker = 1000

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.Inc(MetricSessionCreated)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricSessionCreated); got != workers*perWorker {
		t.Fatalf("counter = %d, want %d", got, workers*perWorker)
	}
}

func TestEngineFlowsMoveCounters(t *testing.T) {
	env := newTestEnv(t)

	env.signup(t, "alice@example.com", "password-123")
	env.signin(t, "alice@example.com", "password-123")

	snap := env.engine.MetricsSnapshot()
	checks := map[MetricID]uint64{
		MetricSignupSuccess:  1,
		MetricOTPSent:        1,
		MetricOTPVerified:    1,
		MetricSessionCreated: 1,
	}
	for id, want := range checks {
		if snap.Counters[id] != want {
			t.Fatalf("metric %d = %d, want %d", id, snap.Counters[id], want)
		}
	}
}

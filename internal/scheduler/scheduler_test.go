package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"BalanceSentinel/internal/model"
	"BalanceSentinel/internal/notifier"
	"BalanceSentinel/internal/store"
	"BalanceSentinel/internal/telemetry"
	"BalanceSentinel/internal/upstream"
	"BalanceSentinel/internal/vault"
)

func newTestScheduler(t *testing.T, fetcher upstream.Fetcher) (*Scheduler, *store.Store, *vault.Vault) {
	t.Helper()

	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	v, err := vault.New("test-secret-0123456789abcdef")
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}

	settings := testSettings()
	settings.Throttle = 0
	s := New(context.Background(), st, v, fetcher, notifier.Noop{}, telemetry.New(), settings)
	s.sleep = func(time.Duration) {}
	return s, st, v
}

func trackKey(t *testing.T, st *store.Store, v *vault.Vault, plain string) int64 {
	t.Helper()
	enc, err := v.Encrypt(plain)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	id, err := st.CreateKey(vault.Fingerprint(plain), enc, "u1", "u1@example.com", true)
	if err != nil {
		t.Fatalf("create key: %v", err)
	}
	return id
}

func TestRunBatch_FirstCheckAppendsSample(t *testing.T) {
	mock := &upstream.MockFetcher{Balance: 50}
	s, st, v := newTestScheduler(t, mock)
	id := trackKey(t, st, v, "sk-first-check-abcdef123456")

	summary := s.RunBatch()
	if summary.Total != 1 || summary.Success != 1 {
		t.Fatalf("summary = %+v, want 1 total / 1 success", summary)
	}
	if mock.Calls != 1 {
		t.Errorf("expected exactly one upstream call, got %d", mock.Calls)
	}

	latest, err := st.LatestSample(id)
	if err != nil || latest == nil {
		t.Fatalf("latest sample: %v, %v", latest, err)
	}
	if latest.Balance != 50 {
		t.Errorf("sample balance = %v, want 50", latest.Balance)
	}

	key, _ := st.KeyByID(id)
	if key.LastCheckedAt == nil {
		t.Error("last checked should be set after a successful check")
	}
	if !key.Active {
		t.Error("key with positive balance must stay active")
	}
}

func TestRunBatch_DrainedKeyAutoDeactivated(t *testing.T) {
	mock := &upstream.MockFetcher{Balance: 0}
	s, st, v := newTestScheduler(t, mock)
	id := trackKey(t, st, v, "sk-drained-key-abcdef123456")

	s.RunBatch()

	key, _ := st.KeyByID(id)
	if key.Active {
		t.Fatal("drained key should be auto-deactivated")
	}
	latest, _ := st.LatestSample(id)
	if latest == nil {
		t.Fatal("the zero-balance sample must still be recorded")
	}

	// Deactivated keys are excluded from the next pass entirely.
	summary := s.RunBatch()
	if summary.Total != 0 {
		t.Errorf("next pass total = %d, want 0", summary.Total)
	}
	if mock.Calls != 1 {
		t.Errorf("deactivated key must not be fetched again, calls = %d", mock.Calls)
	}
}

func TestRunBatch_UpstreamFailureIsolated(t *testing.T) {
	mock := &upstream.MockFetcher{Err: errors.New("connection refused")}
	s, st, v := newTestScheduler(t, mock)
	id := trackKey(t, st, v, "sk-failing-key-abcdef123456")

	summary := s.RunBatch()
	if summary.Failed != 1 {
		t.Fatalf("failed = %d, want 1", summary.Failed)
	}

	key, _ := st.KeyByID(id)
	if key.LastCheckedAt != nil {
		t.Error("failed check must not update last checked")
	}
	if !key.Active {
		t.Error("failed check must not deactivate the key")
	}
	if latest, _ := st.LatestSample(id); latest != nil {
		t.Error("failed check must not append a sample")
	}
}

func TestRunBatch_OneFailureDoesNotAbortPass(t *testing.T) {
	// Fetcher fails only for the key whose plaintext decodes to "sk-bad".
	bad := &selectiveFetcher{failFor: "sk-bad-key-abcdefgh12345678"}
	s, st, v := newTestScheduler(t, bad)

	trackKey(t, st, v, "sk-bad-key-abcdefgh12345678")
	goodID := trackKey(t, st, v, "sk-good-key-abcdefg12345678")

	summary := s.RunBatch()
	if summary.Success != 1 || summary.Failed != 1 {
		t.Fatalf("summary = %+v, want 1 success / 1 failed", summary)
	}
	if latest, _ := st.LatestSample(goodID); latest == nil {
		t.Error("healthy key should still be checked after a failure")
	}
}

func TestRunBatch_RecentlyCheckedKeySkipped(t *testing.T) {
	mock := &upstream.MockFetcher{Balance: 50}
	s, st, v := newTestScheduler(t, mock)
	trackKey(t, st, v, "sk-skip-test-abcdefg12345678")

	s.RunBatch()
	// Immediately after a check the key is inside even the fast cadence.
	summary := s.RunBatch()
	if summary.Skipped != 1 {
		t.Fatalf("skipped = %d, want 1", summary.Skipped)
	}
	if mock.Calls != 1 {
		t.Errorf("upstream calls = %d, want 1", mock.Calls)
	}
}

func TestRunBatch_RecordsLastBatchCheck(t *testing.T) {
	s, st, v := newTestScheduler(t, &upstream.MockFetcher{Balance: 50})
	trackKey(t, st, v, "sk-status-test-abcdef1234567")

	before := time.Now().Add(-time.Second)
	s.RunBatch()

	ts, err := st.SystemStatus(model.LastBatchCheckKey)
	if err != nil || ts == nil {
		t.Fatalf("system status: %v, %v", ts, err)
	}
	if ts.Before(before) {
		t.Errorf("last batch check %v predates the pass", ts)
	}
}

// selectiveFetcher fails for one specific key and succeeds for the rest.
type selectiveFetcher struct {
	failFor string
}

func (f *selectiveFetcher) Name() string { return "selective" }

func (f *selectiveFetcher) FetchBalance(_ context.Context, apiKey string) (*upstream.Balance, error) {
	if apiKey == f.failFor {
		return nil, errors.New("simulated upstream failure")
	}
	return &upstream.Balance{Balance: 75, Status: "active"}, nil
}

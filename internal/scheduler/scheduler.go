package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"BalanceSentinel/internal/analyzer"
	"BalanceSentinel/internal/model"
	"BalanceSentinel/internal/notifier"
	"BalanceSentinel/internal/store"
	"BalanceSentinel/internal/telemetry"
	"BalanceSentinel/internal/upstream"
	"BalanceSentinel/internal/vault"
)

// Scheduler owns the batch driver: a single sequential pass over all
// active keys on a cron cadence. Each pass consults the adaptive due
// predicate per key, so the cron tick can be much faster than the actual
// upstream call rate.
type Scheduler struct {
	Cron    *cron.Cron
	Store   *store.Store
	Vault   *vault.Vault
	Fetcher upstream.Fetcher
	Notify  notifier.Notifier
	Metrics *telemetry.Metrics
	Ctx     context.Context

	mu       sync.RWMutex
	settings Settings

	runMu sync.Mutex // one pass at a time

	alertMu sync.Mutex
	alerted map[int64]model.BurnClass // last burn class alerted per key

	sleep func(time.Duration) // swapped out in tests
}

// New creates a Scheduler.
func New(ctx context.Context, st *store.Store, v *vault.Vault, fetcher upstream.Fetcher, n notifier.Notifier, m *telemetry.Metrics, settings Settings) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Store:    st,
		Vault:    v,
		Fetcher:  fetcher,
		Notify:   n,
		Metrics:  m,
		Ctx:      ctx,
		settings: settings,
		alerted:  make(map[int64]model.BurnClass),
		sleep:    time.Sleep,
	}
}

// Register wires the batch pass onto the cron schedule.
func (s *Scheduler) Register(batchCron string) error {
	if _, err := s.Cron.AddFunc(batchCron, func() { s.RunBatch() }); err != nil {
		return fmt.Errorf("register batch task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info("scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	log.Info("scheduler stopped")
}

// UpdateSettings swaps the adaptive cadence knobs; the next pass picks
// them up.
func (s *Scheduler) UpdateSettings(settings Settings) {
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
}

// Settings returns the current cadence knobs.
func (s *Scheduler) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// RunBatch executes one full pass over all active keys. Per-key failures
// are isolated and aggregated; nothing here is fatal. The summary is also
// what the manual trigger endpoint returns.
func (s *Scheduler) RunBatch() *model.BatchSummary {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	st := s.Settings()
	summary := &model.BatchSummary{
		PassID:  uuid.NewString(),
		Started: time.Now(),
	}
	passLog := log.WithField("pass", summary.PassID)

	keys, err := s.Store.ListActiveKeys()
	if err != nil {
		passLog.WithError(err).Error("list active keys")
		summary.Finished = time.Now()
		return summary
	}
	summary.Total = len(keys)
	s.Metrics.SetActiveKeys(len(keys))

	for i := range keys {
		key := &keys[i]
		result := s.checkKey(key, st, passLog)
		summary.Details = append(summary.Details, result)
		switch result.Status {
		case "success":
			summary.Success++
		case "skipped":
			summary.Skipped++
		default:
			summary.Failed++
		}
		s.Metrics.ObserveCheck(result.Status)

		// Courtesy pause toward the upstream API, only after calls that
		// actually went out.
		if result.Status != "skipped" {
			s.sleep(st.Throttle)
		}
	}

	summary.Finished = time.Now()
	if err := s.Store.SetSystemStatus(model.LastBatchCheckKey, summary.Finished); err != nil {
		passLog.WithError(err).Error("record batch check time")
	}
	s.Metrics.SetLastBatch(summary.Finished)

	passLog.WithFields(log.Fields{
		"total":   summary.Total,
		"success": summary.Success,
		"failed":  summary.Failed,
		"skipped": summary.Skipped,
	}).Info("batch pass completed")
	return summary
}

func (s *Scheduler) checkKey(key *model.TrackedKey, st Settings, passLog *log.Entry) model.CheckResult {
	keyLog := passLog.WithField("key_id", key.ID)
	now := time.Now()

	recent, err := s.Store.RecentSamples(key.ID, analyzer.RecentSampleLimit)
	if err != nil {
		keyLog.WithError(err).Error("load recent samples")
		return model.CheckResult{TrackedKeyID: key.ID, Status: "failed", Error: err.Error()}
	}

	if !ShouldCheckNow(key, recent, now, st) {
		return model.CheckResult{TrackedKeyID: key.ID, Status: "skipped"}
	}

	plainKey, err := s.Vault.Decrypt(key.KeyEncrypted)
	if err != nil {
		keyLog.WithError(err).Error("decrypt key")
		return model.CheckResult{TrackedKeyID: key.ID, Status: "failed", Error: "decrypt failed"}
	}

	fetchStart := time.Now()
	balance, err := s.Fetcher.FetchBalance(s.Ctx, plainKey)
	s.Metrics.ObserveUpstream(time.Since(fetchStart))
	if err != nil {
		// Upstream failure: no sample, no last-checked update; the key is
		// simply retried on a later pass.
		keyLog.WithError(err).Error("upstream balance check failed")
		return model.CheckResult{TrackedKeyID: key.ID, Status: "failed", Error: err.Error()}
	}

	now = time.Now()
	sample := model.BalanceSample{
		TrackedKeyID: key.ID,
		Balance:      balance.Balance,
		Status:       balance.Status,
		CheckedAt:    now,
	}
	if err := s.Store.AppendSample(sample); err != nil {
		keyLog.WithError(err).Error("append sample")
		return model.CheckResult{TrackedKeyID: key.ID, Status: "failed", Error: err.Error()}
	}
	if err := s.Store.TouchLastChecked(key.ID, now); err != nil {
		keyLog.WithError(err).Error("update last checked")
		return model.CheckResult{TrackedKeyID: key.ID, Status: "failed", Error: err.Error()}
	}

	if balance.Balance <= 0 {
		// Auto-retirement: stop polling a drained key.
		if err := s.Store.SetActive(key.ID, false); err != nil {
			keyLog.WithError(err).Error("auto-deactivate")
		} else {
			keyLog.WithField("balance", balance.Balance).Info("key drained, tracking disabled")
			s.tryNotify(notifier.FormatDrained(vault.Mask(plainKey), balance.Balance))
		}
	} else {
		s.maybeAlertFastBurn(key.ID, vault.Mask(plainKey), now, st)
	}

	return model.CheckResult{TrackedKeyID: key.ID, Status: "success", Balance: balance.Balance}
}

// maybeAlertFastBurn raises an alert the first time a key crosses into the
// very-fast class, and rearms once it drops back out.
func (s *Scheduler) maybeAlertFastBurn(keyID int64, masked string, now time.Time, st Settings) {
	initial, err := s.Store.EarliestSample(keyID)
	if err != nil || initial == nil {
		return
	}
	window, err := s.Store.SamplesSince(keyID, now.Add(-st.BurnWindow))
	if err != nil {
		return
	}
	rate := analyzer.EstimateBurnRate(window, initial.Balance, now, st.BurnWindow)

	s.alertMu.Lock()
	previous := s.alerted[keyID]
	s.alerted[keyID] = rate.Class
	s.alertMu.Unlock()

	if rate.Class == model.BurnVeryFast && previous != model.BurnVeryFast {
		latest := window[len(window)-1]
		eta := analyzer.ProjectETA(rate.HourlyBurn, latest.Balance)
		s.tryNotify(notifier.FormatFastBurn(masked, rate.HourlyPercentBurn, eta))
	}
}

func (s *Scheduler) tryNotify(text string) {
	if err := s.Notify.Notify(text); err != nil {
		log.WithError(err).Warn("send notification")
	}
}

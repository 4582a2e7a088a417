package server

import (
	"time"

	"BalanceSentinel/internal/analyzer"
	"BalanceSentinel/internal/model"
	"BalanceSentinel/internal/vault"
)

// buildOverview assembles the dashboard projection for one tracked key:
// raw balances from the store, derived metrics from the analyzer. The
// changing flag lets consumers pick their own poll cadence, mirroring the
// batch driver's fast/slow split.
func (s *Server) buildOverview(key *model.TrackedKey, includeHistory bool) (*model.KeyOverview, error) {
	now := time.Now()
	st := s.Scheduler.Settings()

	plain, err := s.Vault.Decrypt(key.KeyEncrypted)
	if err != nil {
		return nil, err
	}

	earliest, err := s.Store.EarliestSample(key.ID)
	if err != nil {
		return nil, err
	}
	latest, err := s.Store.LatestSample(key.ID)
	if err != nil {
		return nil, err
	}
	recent, err := s.Store.RecentSamples(key.ID, analyzer.RecentSampleLimit)
	if err != nil {
		return nil, err
	}
	// Raw last-24h slice, exposed as data; the estimator applies its own
	// 30-minute cutoff on top.
	history, err := s.Store.SamplesSince(key.ID, now.Add(-24*time.Hour))
	if err != nil {
		return nil, err
	}

	var currentBalance, initialBalance float64
	accountStatus := "unknown"
	if latest != nil {
		currentBalance = latest.Balance
		accountStatus = latest.Status
	}
	if earliest != nil {
		initialBalance = earliest.Balance
	}

	rate := analyzer.EstimateBurnRate(history, initialBalance, now, st.BurnWindow)

	overview := &model.KeyOverview{
		ID:             key.ID,
		MaskedKey:      vault.Mask(plain),
		UserID:         key.UserID,
		UserEmail:      key.UserEmail,
		CurrentBalance: currentBalance,
		InitialBalance: initialBalance,
		Used:           initialBalance - currentBalance,
		Percentage:     analyzer.Percentage(currentBalance, initialBalance),
		AccountStatus:  accountStatus,
		Blocked:        accountStatus == model.StatusBlocked,
		BurnClass:      rate.Class,
		Eta:            analyzer.ProjectETA(rate.HourlyBurn, currentBalance),
		Changing:       analyzer.IsChanging(recent, now, st.ChangeWindow),
		LastCheckedAt:  key.LastCheckedAt,
		CreatedAt:      key.CreatedAt,
	}
	if includeHistory {
		overview.RecentHistory = history
	}
	return overview, nil
}

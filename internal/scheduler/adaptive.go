package scheduler

import (
	"time"

	"BalanceSentinel/internal/analyzer"
	"BalanceSentinel/internal/config"
	"BalanceSentinel/internal/model"
)

// Settings are the tunable knobs of the adaptive cadence. They are read
// once per pass and may be swapped at runtime by the config watcher.
type Settings struct {
	ChangingRecheck time.Duration // cadence while a balance is moving
	StableRecheck   time.Duration // cadence while it is idle
	ChangeWindow    time.Duration // trailing horizon for change detection
	BurnWindow      time.Duration // trailing window for burn estimation
	Throttle        time.Duration // pause after each executed upstream call
}

// SettingsFromConfig converts the schedule section into durations.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		ChangingRecheck: time.Duration(cfg.Schedule.ChangingRecheckMin * float64(time.Minute)),
		StableRecheck:   time.Duration(cfg.Schedule.StableRecheckMin * float64(time.Minute)),
		ChangeWindow:    time.Duration(cfg.Schedule.ChangeWindowMin * float64(time.Minute)),
		BurnWindow:      time.Duration(cfg.Schedule.BurnWindowMin * float64(time.Minute)),
		Throttle:        time.Duration(cfg.Schedule.CheckThrottleMs) * time.Millisecond,
	}
}

// ShouldCheckNow decides whether a key is due for an upstream balance
// check. A key that has never been checked is always due. Otherwise keys
// whose balance moved inside the change window are rechecked on the fast
// cadence, idle keys on the slow one - the admission control that keeps
// call volume within the upstream API's tolerance while still producing a
// usable burn-rate curve for active keys.
func ShouldCheckNow(key *model.TrackedKey, recent []model.BalanceSample, now time.Time, st Settings) bool {
	if key.LastCheckedAt == nil {
		return true
	}

	elapsed := now.Sub(*key.LastCheckedAt)
	if analyzer.IsChanging(recent, now, st.ChangeWindow) {
		return elapsed >= st.ChangingRecheck
	}
	return elapsed >= st.StableRecheck
}

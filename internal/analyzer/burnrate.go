package analyzer

import (
	"sort"
	"time"

	"BalanceSentinel/internal/model"
)

// DefaultBurnWindow is the canonical trailing window for burn-rate
// estimation. Applied uniformly on every read path.
const DefaultBurnWindow = 30 * time.Minute

// EstimateBurnRate computes the hourly consumption rate from the samples
// inside the trailing window ending at now, and classifies it against the
// key's initial balance.
//
// Fewer than two in-window samples, or a window collapsing to a single
// instant, yields an undefined (minimal) rate - insufficient data is a
// policy default, not an error. A negative rate means the account was
// topped up; it is reported as-is and classified minimal.
func EstimateBurnRate(samples []model.BalanceSample, initialBalance float64, now time.Time, window time.Duration) model.BurnRate {
	rate := model.BurnRate{Class: model.BurnMinimal}

	ordered := make([]model.BalanceSample, 0, len(samples))
	cutoff := now.Add(-window)
	for _, sample := range samples {
		if !sample.CheckedAt.Before(cutoff) {
			ordered = append(ordered, sample)
		}
	}
	if len(ordered) < 2 {
		return rate
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].CheckedAt.Before(ordered[j].CheckedAt)
	})

	first := ordered[0]
	last := ordered[len(ordered)-1]
	hoursDiff := last.CheckedAt.Sub(first.CheckedAt).Hours()
	if hoursDiff <= 0 {
		return rate
	}

	consumed := first.Balance - last.Balance
	rate.Defined = true
	rate.HourlyBurn = consumed / hoursDiff

	// Percentage burn is undefined without a positive initial balance.
	if initialBalance <= 0 {
		return rate
	}
	rate.HourlyPercentBurn = rate.HourlyBurn / initialBalance * 100

	switch {
	case rate.HourlyPercentBurn > 2:
		rate.Class = model.BurnVeryFast
	case rate.HourlyPercentBurn > 0.5:
		rate.Class = model.BurnFast
	}
	return rate
}

// Percentage returns the remaining share of the initial balance, clamped
// to [0,100]. A non-positive initial balance reads as 100: there is no
// meaningful denominator, and rendering an empty gauge for a key that was
// never funded would be misleading.
func Percentage(currentBalance, initialBalance float64) float64 {
	if initialBalance <= 0 {
		return 100
	}
	p := currentBalance / initialBalance * 100
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

package analyzer

import (
	"sort"
	"time"

	"BalanceSentinel/internal/model"
)

// RecentSampleLimit is how many of the newest samples feed change
// detection: enough to span the change window plus one predecessor
// outside it at the fastest sampling cadence.
const RecentSampleLimit = 15

// DefaultChangeWindow is the trailing horizon inside which a balance
// difference counts as "changing".
const DefaultChangeWindow = 6 * time.Minute

// IsChanging reports whether a key's balance moved within the trailing
// window ending at now. Samples may arrive in any order; they are sorted
// newest first before scanning.
//
// Fewer than two samples means there is no evidence of stability yet, so
// the key is treated as changing and sampled aggressively until history
// accumulates. Balances are compared with exact float equality: readings
// come from a decimal-stringed API field, so equal balances are
// bit-identical and an epsilon would only mask real sub-cent spending.
func IsChanging(samples []model.BalanceSample, now time.Time, window time.Duration) bool {
	if len(samples) < 2 {
		return true
	}

	ordered := make([]model.BalanceSample, len(samples))
	copy(ordered, samples)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].CheckedAt.After(ordered[j].CheckedAt)
	})

	threshold := now.Add(-window)
	for i := 0; i < len(ordered)-1; i++ {
		current := ordered[i]
		previous := ordered[i+1]

		// Everything older than the window is out of relevance.
		if current.CheckedAt.Before(threshold) {
			break
		}
		if current.Balance != previous.Balance {
			return true
		}
	}
	return false
}

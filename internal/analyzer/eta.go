package analyzer

import (
	"fmt"
	"math"

	"BalanceSentinel/internal/model"
)

// safeHorizonHours is 90 days: projections beyond it render as the safe
// sentinel rather than a decade-scale countdown.
const safeHorizonHours = 24 * 90

// ProjectETA converts an hourly burn rate into a human-readable time to
// depletion. Zero or negative burn (idle key, or a top-up) is "safe", as is
// any projection at least 90 days out.
//
// Exactly one granularity is rendered: ~3d5h, ~2h0m or ~45m. The trailing
// zero unit is kept (~2h0m, not ~2h) so the string length stays stable as
// the countdown ticks.
func ProjectETA(hourlyBurn, currentBalance float64) string {
	if hourlyBurn <= 0 {
		return model.EtaSafe
	}
	hoursLeft := currentBalance / hourlyBurn
	if hoursLeft >= safeHorizonHours {
		return model.EtaSafe
	}

	totalMinutes := int(math.Floor(hoursLeft * 60))
	days := totalMinutes / (24 * 60)
	hours := (totalMinutes % (24 * 60)) / 60
	minutes := totalMinutes % 60

	switch {
	case days > 0:
		return fmt.Sprintf("~%dd%dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("~%dh%dm", hours, minutes)
	default:
		return fmt.Sprintf("~%dm", minutes)
	}
}

package analyzer

import (
	"testing"

	"BalanceSentinel/internal/model"
)

func TestProjectETA(t *testing.T) {
	cases := []struct {
		name       string
		hourlyBurn float64
		balance    float64
		want       string
	}{
		{"no burn", 0, 100, model.EtaSafe},
		{"top-up", -5, 100, model.EtaSafe},
		{"far out", 0.001, 100, model.EtaSafe}, // 100000h >> 90 days
		{"exactly horizon", 1, 24 * 90, model.EtaSafe},
		{"days", 1, 77, "~3d5h"},
		{"hours keeps zero minutes", 5, 10, "~2h0m"},
		{"hours and minutes", 10, 21, "~2h6m"},
		{"minutes only", 4, 3, "~45m"},
		{"under a minute", 100, 1, "~0m"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ProjectETA(tc.hourlyBurn, tc.balance); got != tc.want {
				t.Errorf("ProjectETA(%v, %v) = %q, want %q", tc.hourlyBurn, tc.balance, got, tc.want)
			}
		})
	}
}

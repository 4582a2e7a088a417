package analyzer

import (
	"testing"
	"time"

	"BalanceSentinel/internal/model"
)

func sampleAt(t time.Time, balance float64) model.BalanceSample {
	return model.BalanceSample{Balance: balance, Status: "active", CheckedAt: t}
}

func TestIsChanging_InsufficientData(t *testing.T) {
	now := time.Now()
	if !IsChanging(nil, now, DefaultChangeWindow) {
		t.Error("no samples should count as changing")
	}
	one := []model.BalanceSample{sampleAt(now, 50)}
	if !IsChanging(one, now, DefaultChangeWindow) {
		t.Error("a single sample should count as changing")
	}
}

func TestIsChanging_BalanceMovedInsideWindow(t *testing.T) {
	now := time.Now()
	samples := []model.BalanceSample{
		sampleAt(now.Add(-1*time.Minute), 48.2),
		sampleAt(now.Add(-2*time.Minute), 49.1),
		sampleAt(now.Add(-3*time.Minute), 49.1),
	}
	if !IsChanging(samples, now, DefaultChangeWindow) {
		t.Error("expected changing: balance differs inside the window")
	}
}

func TestIsChanging_StableInsideWindow(t *testing.T) {
	now := time.Now()
	samples := []model.BalanceSample{
		sampleAt(now.Add(-1*time.Minute), 49.1),
		sampleAt(now.Add(-3*time.Minute), 49.1),
		sampleAt(now.Add(-5*time.Minute), 49.1),
		// The scan stops at the first sample older than the window, so the
		// historical drop from 80 is never compared.
		sampleAt(now.Add(-7*time.Minute), 49.1),
		sampleAt(now.Add(-20*time.Minute), 80),
	}
	if IsChanging(samples, now, DefaultChangeWindow) {
		t.Error("expected stable: only out-of-window samples differ")
	}
}

func TestIsChanging_OrderIndependent(t *testing.T) {
	now := time.Now()
	ordered := []model.BalanceSample{
		sampleAt(now.Add(-1*time.Minute), 48.2),
		sampleAt(now.Add(-2*time.Minute), 49.1),
	}
	reversed := []model.BalanceSample{ordered[1], ordered[0]}

	if IsChanging(ordered, now, DefaultChangeWindow) != IsChanging(reversed, now, DefaultChangeWindow) {
		t.Error("verdict must not depend on input order")
	}
}

func TestIsChanging_ExactEquality(t *testing.T) {
	// Comparison is exact, not epsilon-tolerant: even a tiny difference
	// counts as movement.
	now := time.Now()
	samples := []model.BalanceSample{
		sampleAt(now.Add(-1*time.Minute), 49.100000001),
		sampleAt(now.Add(-2*time.Minute), 49.1),
	}
	if !IsChanging(samples, now, DefaultChangeWindow) {
		t.Error("exact inequality should count as changing")
	}
}

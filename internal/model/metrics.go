package model

import "time"

// BurnClass buckets the hourly percentage burn for display.
type BurnClass string

const (
	BurnMinimal  BurnClass = "minimal"
	BurnFast     BurnClass = "fast"
	BurnVeryFast BurnClass = "veryFast"
)

// BurnRate is the output of the burn-rate estimator over a trailing window.
// Defined is false when fewer than two samples fell inside the window or the
// window collapsed to a single instant; HourlyBurn and HourlyPercentBurn are
// zero in that case and Class stays BurnMinimal.
type BurnRate struct {
	Defined           bool
	HourlyBurn        float64 // balance units consumed per hour; negative means top-up
	HourlyPercentBurn float64 // percent of initial balance per hour
	Class             BurnClass
}

// EtaSafe is the sentinel rendered when depletion is implausibly distant
// or there is no net consumption.
const EtaSafe = "safe"

// KeyOverview is the dashboard projection for a single tracked key.
type KeyOverview struct {
	ID             int64           `json:"id"`
	MaskedKey      string          `json:"masked_key"`
	UserID         string          `json:"user_id"`
	UserEmail      string          `json:"user_email"`
	CurrentBalance float64         `json:"current_balance"`
	InitialBalance float64         `json:"initial_balance"`
	Used           float64         `json:"used"`
	Percentage     float64         `json:"percentage"`
	AccountStatus  string          `json:"account_status"`
	Blocked        bool            `json:"is_blocked"`
	BurnClass      BurnClass       `json:"burn_class"`
	Eta            string          `json:"eta"`
	Changing       bool            `json:"balance_changing"`
	LastCheckedAt  *time.Time      `json:"last_checked_at"`
	CreatedAt      time.Time       `json:"created_at"`
	RecentHistory  []BalanceSample `json:"recent_history,omitempty"`
}

// CheckResult describes the outcome of one key within a batch pass.
type CheckResult struct {
	TrackedKeyID int64   `json:"tracked_key_id"`
	Status       string  `json:"status"` // "success", "failed" or "skipped"
	Balance      float64 `json:"balance,omitempty"`
	Error        string  `json:"error,omitempty"`
}

// BatchSummary aggregates one full pass over all active keys. Per-key
// failures are isolated here; nothing in a pass is fatal.
type BatchSummary struct {
	PassID   string        `json:"pass_id"`
	Total    int           `json:"total"`
	Success  int           `json:"success"`
	Failed   int           `json:"failed"`
	Skipped  int           `json:"skipped"`
	Details  []CheckResult `json:"details"`
	Started  time.Time     `json:"started"`
	Finished time.Time     `json:"finished"`
}

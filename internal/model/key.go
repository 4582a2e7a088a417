package model

import "time"

// TrackedKey is an API key whose balance is being periodically sampled.
// The plaintext key never appears here: KeyHash is a SHA-256 fingerprint
// used for lookups and KeyEncrypted is the AES-GCM ciphertext.
type TrackedKey struct {
	ID            int64
	KeyHash       string
	KeyEncrypted  string
	UserID        string
	UserEmail     string
	Active        bool
	CreatedAt     time.Time
	LastCheckedAt *time.Time // nil until the first successful check
}

// BalanceSample is one observed (balance, status, timestamp) reading.
// Samples are append-only; negative balances are valid signals of an
// exhausted or invalid key.
type BalanceSample struct {
	TrackedKeyID int64
	Balance      float64
	Status       string
	CheckedAt    time.Time
}

// StatusBlocked is the only account status with special meaning; every
// other value is treated as active.
const StatusBlocked = "blocked"

// LastBatchCheckKey is the system_status row recording when the batch
// driver last completed a pass. Used for dashboard countdown sync only.
const LastBatchCheckKey = "last_batch_check"

package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"BalanceSentinel/internal/model"
)

// Store persists tracked keys, the balance time series and the system
// status singleton in SQLite. Samples are append-only and keys are only
// ever soft-deactivated.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New opens (or creates) the SQLite database and runs migrations.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboard reads do not block the batch writer.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.WithField("path", dbPath).Info("sqlite store opened")
	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tracked_keys (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			key_hash        TEXT NOT NULL UNIQUE,
			key_encrypted   TEXT NOT NULL,
			user_id         TEXT NOT NULL DEFAULT '',
			user_email      TEXT NOT NULL DEFAULT '',
			is_active       INTEGER NOT NULL DEFAULT 1,
			created_at      INTEGER NOT NULL,
			last_checked_at INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_keys_active ON tracked_keys(is_active)`,

		`CREATE TABLE IF NOT EXISTS balance_history (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			tracked_key_id INTEGER NOT NULL,
			balance        REAL NOT NULL,
			status         TEXT NOT NULL DEFAULT 'active',
			checked_at     INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_history_key_ts ON balance_history(tracked_key_id, checked_at)`,

		`CREATE TABLE IF NOT EXISTS system_status (
			status_key   TEXT PRIMARY KEY,
			status_value INTEGER NOT NULL,
			updated_at   INTEGER NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// CreateKey inserts a new tracked key row and returns its id.
func (s *Store) CreateKey(hash, encrypted, userID, userEmail string, active bool) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`INSERT INTO tracked_keys (key_hash, key_encrypted, user_id, user_email, is_active, created_at)
		 VALUES (?,?,?,?,?,?)`,
		hash, encrypted, userID, userEmail, boolToInt(active), time.Now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert tracked key: %w", err)
	}
	return res.LastInsertId()
}

// KeyByHash returns the tracked key with the given fingerprint, or nil when
// none exists.
func (s *Store) KeyByHash(hash string) (*model.TrackedKey, error) {
	return s.scanKey(s.db.QueryRow(
		`SELECT id, key_hash, key_encrypted, user_id, user_email, is_active, created_at, last_checked_at
		 FROM tracked_keys WHERE key_hash = ?`, hash))
}

// KeyByID returns the tracked key with the given id, or nil when none exists.
func (s *Store) KeyByID(id int64) (*model.TrackedKey, error) {
	return s.scanKey(s.db.QueryRow(
		`SELECT id, key_hash, key_encrypted, user_id, user_email, is_active, created_at, last_checked_at
		 FROM tracked_keys WHERE id = ?`, id))
}

func (s *Store) scanKey(row *sql.Row) (*model.TrackedKey, error) {
	var k model.TrackedKey
	var active int
	var created int64
	var lastChecked sql.NullInt64
	err := row.Scan(&k.ID, &k.KeyHash, &k.KeyEncrypted, &k.UserID, &k.UserEmail, &active, &created, &lastChecked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan tracked key: %w", err)
	}
	k.Active = active == 1
	k.CreatedAt = time.Unix(created, 0)
	if lastChecked.Valid {
		t := time.Unix(lastChecked.Int64, 0)
		k.LastCheckedAt = &t
	}
	return &k, nil
}

// ListActiveKeys returns all active keys, most recently checked first.
func (s *Store) ListActiveKeys() ([]model.TrackedKey, error) {
	rows, err := s.db.Query(
		`SELECT id, key_hash, key_encrypted, user_id, user_email, is_active, created_at, last_checked_at
		 FROM tracked_keys WHERE is_active = 1
		 ORDER BY last_checked_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list active keys: %w", err)
	}
	defer rows.Close()

	var keys []model.TrackedKey
	for rows.Next() {
		var k model.TrackedKey
		var active int
		var created int64
		var lastChecked sql.NullInt64
		if err := rows.Scan(&k.ID, &k.KeyHash, &k.KeyEncrypted, &k.UserID, &k.UserEmail, &active, &created, &lastChecked); err != nil {
			return nil, fmt.Errorf("scan tracked key: %w", err)
		}
		k.Active = active == 1
		k.CreatedAt = time.Unix(created, 0)
		if lastChecked.Valid {
			t := time.Unix(lastChecked.Int64, 0)
			k.LastCheckedAt = &t
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// SetActive flips the soft-delete flag.
func (s *Store) SetActive(id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`UPDATE tracked_keys SET is_active = ? WHERE id = ?`, boolToInt(active), id)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	return nil
}

// SetActiveByHash flips the soft-delete flag by fingerprint.
func (s *Store) SetActiveByHash(hash string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`UPDATE tracked_keys SET is_active = ? WHERE key_hash = ?`, boolToInt(active), hash)
	if err != nil {
		return fmt.Errorf("set active by hash: %w", err)
	}
	return nil
}

// TouchLastChecked records a successful upstream check time.
func (s *Store) TouchLastChecked(id int64, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`UPDATE tracked_keys SET last_checked_at = ? WHERE id = ?`, t.Unix(), id)
	if err != nil {
		return fmt.Errorf("touch last checked: %w", err)
	}
	return nil
}

// AppendSample inserts one balance reading. Samples are never updated or
// deleted afterwards.
func (s *Store) AppendSample(sample model.BalanceSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO balance_history (tracked_key_id, balance, status, checked_at) VALUES (?,?,?,?)`,
		sample.TrackedKeyID, sample.Balance, sample.Status, sample.CheckedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("append sample: %w", err)
	}
	return nil
}

// RecentSamples returns up to limit samples for a key, newest first.
func (s *Store) RecentSamples(keyID int64, limit int) ([]model.BalanceSample, error) {
	rows, err := s.db.Query(
		`SELECT tracked_key_id, balance, status, checked_at FROM balance_history
		 WHERE tracked_key_id = ? ORDER BY checked_at DESC, id DESC LIMIT ?`,
		keyID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent samples: %w", err)
	}
	return scanSamples(rows)
}

// SamplesSince returns samples at or after the given time, oldest first.
func (s *Store) SamplesSince(keyID int64, since time.Time) ([]model.BalanceSample, error) {
	rows, err := s.db.Query(
		`SELECT tracked_key_id, balance, status, checked_at FROM balance_history
		 WHERE tracked_key_id = ? AND checked_at >= ? ORDER BY checked_at ASC, id ASC`,
		keyID, since.Unix())
	if err != nil {
		return nil, fmt.Errorf("samples since: %w", err)
	}
	return scanSamples(rows)
}

// EarliestSample returns the oldest sample for a key, or nil when the key
// has no history. Its balance defines the key's initial balance.
func (s *Store) EarliestSample(keyID int64) (*model.BalanceSample, error) {
	return s.scanOneSample(s.db.QueryRow(
		`SELECT tracked_key_id, balance, status, checked_at FROM balance_history
		 WHERE tracked_key_id = ? ORDER BY checked_at ASC, id ASC LIMIT 1`, keyID))
}

// LatestSample returns the newest sample for a key, or nil when the key has
// no history.
func (s *Store) LatestSample(keyID int64) (*model.BalanceSample, error) {
	return s.scanOneSample(s.db.QueryRow(
		`SELECT tracked_key_id, balance, status, checked_at FROM balance_history
		 WHERE tracked_key_id = ? ORDER BY checked_at DESC, id DESC LIMIT 1`, keyID))
}

func (s *Store) scanOneSample(row *sql.Row) (*model.BalanceSample, error) {
	var sample model.BalanceSample
	var ts int64
	err := row.Scan(&sample.TrackedKeyID, &sample.Balance, &sample.Status, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan sample: %w", err)
	}
	sample.CheckedAt = time.Unix(ts, 0)
	return &sample, nil
}

func scanSamples(rows *sql.Rows) ([]model.BalanceSample, error) {
	defer rows.Close()
	var samples []model.BalanceSample
	for rows.Next() {
		var sample model.BalanceSample
		var ts int64
		if err := rows.Scan(&sample.TrackedKeyID, &sample.Balance, &sample.Status, &ts); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		sample.CheckedAt = time.Unix(ts, 0)
		samples = append(samples, sample)
	}
	return samples, rows.Err()
}

// SetSystemStatus upserts a system_status row.
func (s *Store) SetSystemStatus(key string, value time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO system_status (status_key, status_value, updated_at) VALUES (?,?,?)
		 ON CONFLICT(status_key) DO UPDATE SET status_value = excluded.status_value, updated_at = excluded.updated_at`,
		key, value.Unix(), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("set system status: %w", err)
	}
	return nil
}

// SystemStatus reads a system_status row, returning nil when unset.
func (s *Store) SystemStatus(key string) (*time.Time, error) {
	var v int64
	err := s.db.QueryRow(`SELECT status_value FROM system_status WHERE status_key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("system status: %w", err)
	}
	t := time.Unix(v, 0)
	return &t, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	log.Info("closing sqlite store")
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"BalanceSentinel/internal/model"
	"BalanceSentinel/internal/vault"
)

type trackRequest struct {
	APIKey    string `json:"api_key"`
	UserID    string `json:"user_id"`
	UserEmail string `json:"user_email"`
}

// handleTrack adds a key to tracking, or reactivates it if it was removed
// earlier. Tracking an already-active key is a no-op, not an error.
func (s *Server) handleTrack(c *gin.Context) {
	var req trackRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.APIKey == "" {
		fail(c, http.StatusBadRequest, "api_key is required")
		return
	}

	hash := vault.Fingerprint(req.APIKey)
	existing, err := s.Store.KeyByHash(hash)
	if err != nil {
		log.WithError(err).Error("track: lookup key")
		fail(c, http.StatusInternalServerError, "server error occurred")
		return
	}

	if existing != nil {
		if existing.Active {
			ok(c, gin.H{"tracked_key_id": existing.ID, "status": "already_tracked"}, "API key is already being tracked")
			return
		}
		if err := s.Store.SetActive(existing.ID, true); err != nil {
			log.WithError(err).Error("track: reactivate")
			fail(c, http.StatusInternalServerError, "server error occurred")
			return
		}
		log.WithField("key_id", existing.ID).Info("tracking reactivated")
		ok(c, gin.H{"tracked_key_id": existing.ID, "status": "reactivated"}, "Tracking reactivated successfully")
		return
	}

	encrypted, err := s.Vault.Encrypt(req.APIKey)
	if err != nil {
		log.WithError(err).Error("track: encrypt")
		fail(c, http.StatusInternalServerError, "server error occurred")
		return
	}
	id, err := s.Store.CreateKey(hash, encrypted, req.UserID, req.UserEmail, true)
	if err != nil {
		log.WithError(err).Error("track: create key")
		fail(c, http.StatusInternalServerError, "server error occurred")
		return
	}
	log.WithField("key_id", id).Info("tracking added")
	ok(c, gin.H{"tracked_key_id": id, "status": "added"}, "Tracking added successfully")
}

type untrackRequest struct {
	APIKey       string `json:"api_key"`
	TrackedKeyID int64  `json:"tracked_key_id"`
}

// handleUntrack soft-removes a key from tracking. History is kept.
func (s *Server) handleUntrack(c *gin.Context) {
	var req untrackRequest
	if err := c.ShouldBindJSON(&req); err != nil || (req.APIKey == "" && req.TrackedKeyID == 0) {
		fail(c, http.StatusBadRequest, "either api_key or tracked_key_id is required")
		return
	}

	var err error
	if req.TrackedKeyID != 0 {
		err = s.Store.SetActive(req.TrackedKeyID, false)
	} else {
		err = s.Store.SetActiveByHash(vault.Fingerprint(req.APIKey), false)
	}
	if err != nil {
		log.WithError(err).Error("untrack")
		fail(c, http.StatusInternalServerError, "failed to remove tracking")
		return
	}
	ok(c, nil, "Tracking removed successfully")
}

// handleTrackStatus reports whether a key is currently tracked.
func (s *Server) handleTrackStatus(c *gin.Context) {
	apiKey := c.Query("api_key")
	if apiKey == "" {
		fail(c, http.StatusBadRequest, "api_key is required")
		return
	}

	key, err := s.Store.KeyByHash(vault.Fingerprint(apiKey))
	if err != nil {
		log.WithError(err).Error("track status")
		fail(c, http.StatusInternalServerError, "server error occurred")
		return
	}
	if key == nil {
		ok(c, gin.H{"is_tracked": false}, "API key is not being tracked")
		return
	}
	ok(c, gin.H{
		"is_tracked":      key.Active,
		"tracked_key_id":  key.ID,
		"created_at":      key.CreatedAt,
		"last_checked_at": key.LastCheckedAt,
	}, "Status retrieved")
}

// handleListKeys returns the full dashboard projection for every active
// key, plus the last batch time for countdown synchronization.
func (s *Server) handleListKeys(c *gin.Context) {
	keys, err := s.Store.ListActiveKeys()
	if err != nil {
		log.WithError(err).Error("list keys")
		fail(c, http.StatusInternalServerError, "failed to retrieve tracked keys")
		return
	}

	overviews := make([]*model.KeyOverview, 0, len(keys))
	for i := range keys {
		ov, err := s.buildOverview(&keys[i], true)
		if err != nil {
			log.WithError(err).WithField("key_id", keys[i].ID).Error("build overview")
			continue
		}
		overviews = append(overviews, ov)
	}

	lastBatch, err := s.Store.SystemStatus(model.LastBatchCheckKey)
	if err != nil {
		log.WithError(err).Warn("read last batch check")
	}

	ok(c, gin.H{
		"count":            len(overviews),
		"keys":             overviews,
		"last_batch_check": lastBatch,
	}, "All tracked keys retrieved successfully")
}

type lookupRequest struct {
	Keys []string `json:"keys"`
}

// handleLookupKeys returns overviews only for keys the caller already
// holds, so a dashboard in history mode cannot enumerate other users' keys.
func (s *Server) handleLookupKeys(c *gin.Context) {
	var req lookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, `expected JSON with "keys" array`)
		return
	}

	overviews := make([]*model.KeyOverview, 0, len(req.Keys))
	for _, plain := range req.Keys {
		if plain == "" {
			continue
		}
		key, err := s.Store.KeyByHash(vault.Fingerprint(plain))
		if err != nil {
			log.WithError(err).Error("lookup key")
			continue
		}
		if key == nil || !key.Active {
			continue
		}
		ov, err := s.buildOverview(key, true)
		if err != nil {
			log.WithError(err).WithField("key_id", key.ID).Error("build overview")
			continue
		}
		overviews = append(overviews, ov)
	}

	lastBatch, err := s.Store.SystemStatus(model.LastBatchCheckKey)
	if err != nil {
		log.WithError(err).Warn("read last batch check")
	}

	ok(c, gin.H{
		"count":            len(overviews),
		"keys":             overviews,
		"last_batch_check": lastBatch,
	}, "Keys retrieved successfully")
}

// handleLatestBalance returns the most recent sample for one key.
func (s *Server) handleLatestBalance(c *gin.Context) {
	apiKey := c.Query("api_key")
	if apiKey == "" {
		fail(c, http.StatusBadRequest, "api_key is required")
		return
	}

	key, err := s.Store.KeyByHash(vault.Fingerprint(apiKey))
	if err != nil {
		log.WithError(err).Error("latest balance: lookup")
		fail(c, http.StatusInternalServerError, "server error occurred")
		return
	}
	if key == nil {
		fail(c, http.StatusNotFound, "API key is not being tracked")
		return
	}
	if !key.Active {
		fail(c, http.StatusForbidden, "tracking is disabled for this API key")
		return
	}

	latest, err := s.Store.LatestSample(key.ID)
	if err != nil {
		log.WithError(err).Error("latest balance: read")
		fail(c, http.StatusInternalServerError, "server error occurred")
		return
	}
	if latest == nil {
		fail(c, http.StatusNotFound, "no balance records found for this API key")
		return
	}

	ok(c, gin.H{
		"balance":    latest.Balance,
		"status":     latest.Status,
		"checked_at": latest.CheckedAt,
		"user_id":    key.UserID,
	}, "Latest balance retrieved successfully")
}

// handleHistory returns range samples for charting. days is clamped to
// 1..90 with a 7-day default.
func (s *Server) handleHistory(c *gin.Context) {
	apiKey := c.Query("api_key")
	if apiKey == "" {
		fail(c, http.StatusBadRequest, "api_key is required")
		return
	}

	days := 7
	if v := c.Query("days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			days = n
		}
	}
	if days < 1 {
		days = 7
	}
	if days > 90 {
		days = 90
	}

	key, err := s.Store.KeyByHash(vault.Fingerprint(apiKey))
	if err != nil {
		log.WithError(err).Error("history: lookup")
		fail(c, http.StatusInternalServerError, "server error occurred")
		return
	}
	if key == nil || !key.Active {
		ok(c, gin.H{"is_tracked": false, "history": []model.BalanceSample{}}, "API key is not being tracked")
		return
	}

	history, err := s.Store.SamplesSince(key.ID, time.Now().AddDate(0, 0, -days))
	if err != nil {
		log.WithError(err).Error("history: read")
		fail(c, http.StatusInternalServerError, "failed to retrieve history data")
		return
	}
	if history == nil {
		history = []model.BalanceSample{}
	}

	ok(c, gin.H{
		"is_tracked":     true,
		"tracked_key_id": key.ID,
		"days":           days,
		"count":          len(history),
		"history":        history,
	}, "History data retrieved successfully")
}

type saveQueryRequest struct {
	APIKey    string   `json:"api_key"`
	UserID    string   `json:"user_id"`
	UserEmail string   `json:"user_email"`
	Balance   *float64 `json:"balance"`
	Status    string   `json:"status"`
}

// handleSaveQuery records a manually observed balance. Unknown keys are
// created inactive: they exist in storage but the batch driver ignores
// them until explicitly tracked.
func (s *Server) handleSaveQuery(c *gin.Context) {
	var req saveQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.APIKey == "" {
		fail(c, http.StatusBadRequest, "api_key is required")
		return
	}
	if req.Balance == nil {
		fail(c, http.StatusBadRequest, "balance data is required")
		return
	}
	if req.Status == "" {
		req.Status = "active"
	}

	hash := vault.Fingerprint(req.APIKey)
	key, err := s.Store.KeyByHash(hash)
	if err != nil {
		log.WithError(err).Error("save query: lookup")
		fail(c, http.StatusInternalServerError, "failed to save query data")
		return
	}

	var keyID int64
	if key != nil {
		keyID = key.ID
	} else {
		encrypted, err := s.Vault.Encrypt(req.APIKey)
		if err != nil {
			log.WithError(err).Error("save query: encrypt")
			fail(c, http.StatusInternalServerError, "failed to save query data")
			return
		}
		keyID, err = s.Store.CreateKey(hash, encrypted, req.UserID, req.UserEmail, false)
		if err != nil {
			log.WithError(err).Error("save query: create key")
			fail(c, http.StatusInternalServerError, "failed to save query data")
			return
		}
		log.WithField("key_id", keyID).Info("created inactive key for manual query")
	}

	sample := model.BalanceSample{
		TrackedKeyID: keyID,
		Balance:      *req.Balance,
		Status:       req.Status,
		CheckedAt:    time.Now(),
	}
	if err := s.Store.AppendSample(sample); err != nil {
		log.WithError(err).Error("save query: append sample")
		fail(c, http.StatusInternalServerError, "failed to save query data")
		return
	}

	ok(c, gin.H{
		"tracked_key_id": keyID,
		"balance":        *req.Balance,
		"status":         req.Status,
	}, "Query data saved successfully")
}

// handleRunBatch triggers a batch pass immediately and returns its summary.
// External cron-equivalents hit this endpoint in deployments where the
// in-process schedule is disabled.
func (s *Server) handleRunBatch(c *gin.Context) {
	summary := s.Scheduler.RunBatch()
	ok(c, summary, "Batch check completed")
}

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"BalanceSentinel/internal/scheduler"
	"BalanceSentinel/internal/store"
	"BalanceSentinel/internal/telemetry"
	"BalanceSentinel/internal/vault"
)

// Server exposes the tracking and dashboard API. All read paths are
// stateless projections over the store and may run concurrently with the
// batch driver.
type Server struct {
	Store     *store.Store
	Vault     *vault.Vault
	Scheduler *scheduler.Scheduler
	Metrics   *telemetry.Metrics

	engine *gin.Engine
	http   *http.Server
}

// New builds the router.
func New(st *store.Store, v *vault.Vault, sched *scheduler.Scheduler, m *telemetry.Metrics) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		Store:     st,
		Vault:     v,
		Scheduler: sched,
		Metrics:   m,
		engine:    gin.New(),
	}
	s.engine.Use(gin.Recovery())

	api := s.engine.Group("/api")
	{
		api.POST("/track", s.handleTrack)
		api.POST("/untrack", s.handleUntrack)
		api.GET("/track/status", s.handleTrackStatus)
		api.GET("/keys", s.handleListKeys)
		api.POST("/keys/lookup", s.handleLookupKeys)
		api.GET("/balance/latest", s.handleLatestBalance)
		api.GET("/history", s.handleHistory)
		api.POST("/query", s.handleSaveQuery)
		api.POST("/batch/run", s.handleRunBatch)
	}
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(m.Handler()))

	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.http = &http.Server{Addr: addr, Handler: s.engine}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("http server listening")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// apiResponse is the uniform JSON envelope.
type apiResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func ok(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusOK, apiResponse{Success: true, Message: message, Data: data})
}

func fail(c *gin.Context, code int, message string) {
	c.JSON(code, apiResponse{Success: false, Message: message})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Package api provides the read-only status/metrics HTTP server.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/NexTokenTech/TREX-PoW/internal/driver"
	"github.com/NexTokenTech/TREX-PoW/internal/telemetry"
	"github.com/NexTokenTech/TREX-PoW/internal/util"
)

// ChainStatus is satisfied by *driver.Driver.
type ChainStatus interface {
	Status() driver.Snapshot
}

// SolveMetrics is satisfied by *telemetry.Agent.
type SolveMetrics interface {
	Snapshot() telemetry.Counters
}

// Server is the read-only status API. It never exposes private keys,
// seeds, or solver internals -- only the fields spec.md's status API
// names.
type Server struct {
	bind    string
	chain   ChainStatus
	metrics SolveMetrics
	router  *gin.Engine
	server  *http.Server
}

// StatusResponse is the /status payload.
type StatusResponse struct {
	Difficulty     uint64 `json:"difficulty"`
	Height         uint64 `json:"height"`
	MiningEnabled  bool   `json:"mining_enabled"`
	LastPubKeyBits uint32 `json:"last_pub_key_bits"`
}

// SolveMetricsResponse is the /metrics/solve payload.
type SolveMetricsResponse struct {
	Attempts            uint64 `json:"attempts"`
	Solved              uint64 `json:"solved"`
	Cancelled           uint64 `json:"cancelled"`
	LastSolveDurationMs int64  `json:"last_solve_duration_ms"`
}

// NewServer creates a new status API server.
func NewServer(bind string, chain ChainStatus, metrics SolveMetrics) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{bind: bind, chain: chain, metrics: metrics, router: router}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/status", s.handleStatus)
	s.router.GET("/metrics/solve", s.handleSolveMetrics)
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	snap := s.chain.Status()
	c.JSON(http.StatusOK, StatusResponse{
		Difficulty:     snap.Difficulty,
		Height:         snap.Height,
		MiningEnabled:  snap.MiningEnabled,
		LastPubKeyBits: snap.LastPubKeyBits,
	})
}

func (s *Server) handleSolveMetrics(c *gin.Context) {
	counters := s.metrics.Snapshot()
	c.JSON(http.StatusOK, SolveMetricsResponse{
		Attempts:            counters.Attempts,
		Solved:              counters.Solved,
		Cancelled:           counters.Cancelled,
		LastSolveDurationMs: counters.LastSolveDurationMs,
	})
}

// Start begins serving the status API.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    s.bind,
		Handler: s.router,
	}
	util.Infof("status API listening on %s", s.bind)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			util.Errorf("status API error: %v", err)
		}
	}()
	return nil
}

// Stop shuts down the status API.
func (s *Server) Stop() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

// Package telemetry wraps mining-driver attempts and difficulty
// retargets in New Relic APM transactions. It is a no-op whenever
// disabled or misconfigured, so a missing license key never destabilizes
// mining.
package telemetry

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"

	"github.com/NexTokenTech/TREX-PoW/internal/config"
	"github.com/NexTokenTech/TREX-PoW/internal/consts"
	"github.com/NexTokenTech/TREX-PoW/internal/util"
)

// Agent wraps New Relic APM functionality. Its local counters are kept
// regardless of whether APM reporting is enabled, since the status API
// (component N) reads them directly.
type Agent struct {
	cfg config.TelemetryConfig
	app *newrelic.Application
	mu  sync.RWMutex

	attempts  atomic.Uint64
	solved    atomic.Uint64
	cancelled atomic.Uint64
	lastSolve atomic.Int64 // milliseconds
}

// NewAgent creates a new telemetry agent.
func NewAgent(cfg config.TelemetryConfig) *Agent {
	return &Agent{cfg: cfg}
}

// Start initializes the New Relic agent. A missing or disabled
// configuration leaves the agent in no-op mode rather than failing.
func (a *Agent) Start() error {
	if !a.cfg.Enabled {
		util.Info("telemetry disabled")
		return nil
	}
	if a.cfg.LicenseKey == "" {
		util.Warn("telemetry license key not configured, APM disabled")
		return nil
	}

	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName(a.cfg.AppName),
		newrelic.ConfigLicense(a.cfg.LicenseKey),
		newrelic.ConfigDistributedTracerEnabled(true),
	)
	if err != nil {
		return err
	}

	if err := app.WaitForConnection(5 * time.Second); err != nil {
		util.Warnf("telemetry connection timeout: %v (will retry in background)", err)
	}

	a.mu.Lock()
	a.app = app
	a.mu.Unlock()

	util.Infof("telemetry enabled for app: %s", a.cfg.AppName)
	return nil
}

// Stop shuts down the underlying APM agent, if any.
func (a *Agent) Stop() {
	a.mu.RLock()
	app := a.app
	a.mu.RUnlock()
	if app != nil {
		app.Shutdown(10 * time.Second)
	}
}

// IsEnabled reports whether an APM connection is active.
func (a *Agent) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.app != nil
}

// RecordSolveAttempt wraps one mining-driver solve attempt, updating the
// local counters the status API serves and, when APM is enabled,
// reporting a transaction with the outcome as a custom attribute.
func (a *Agent) RecordSolveAttempt(solved bool, duration time.Duration) {
	a.attempts.Add(1)
	a.lastSolve.Store(duration.Milliseconds())
	if solved {
		a.solved.Add(1)
	} else {
		a.cancelled.Add(1)
	}

	a.mu.RLock()
	app := a.app
	a.mu.RUnlock()
	if app == nil {
		return
	}
	txn := app.StartTransaction("MiningAttempt")
	defer txn.End()
	txn.AddAttribute("solved", solved)
	txn.AddAttribute("duration_ms", duration.Milliseconds())
}

// RecordRetarget reports a difficulty-controller adjustment.
func (a *Agent) RecordRetarget(previous, next consts.Difficulty) {
	a.mu.RLock()
	app := a.app
	a.mu.RUnlock()
	if app == nil {
		return
	}
	txn := app.StartTransaction("DifficultyRetarget")
	defer txn.End()
	txn.AddAttribute("previous_difficulty", previous)
	txn.AddAttribute("next_difficulty", next)
}

// Counters is a point-in-time read of the solve metrics, implementing
// the status API's SolveMetrics interface.
type Counters struct {
	Attempts            uint64
	Solved              uint64
	Cancelled           uint64
	LastSolveDurationMs int64
}

// Snapshot returns the current counters.
func (a *Agent) Snapshot() Counters {
	return Counters{
		Attempts:            a.attempts.Load(),
		Solved:              a.solved.Load(),
		Cancelled:           a.cancelled.Load(),
		LastSolveDurationMs: a.lastSolve.Load(),
	}
}

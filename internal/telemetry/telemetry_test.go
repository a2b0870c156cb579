package telemetry

import (
	"testing"
	"time"

	"github.com/NexTokenTech/TREX-PoW/internal/config"
)

func TestStartNoopWhenDisabled(t *testing.T) {
	a := NewAgent(config.TelemetryConfig{Enabled: false})
	if err := a.Start(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if a.IsEnabled() {
		t.Fatalf("expected agent to stay disabled")
	}
	a.Stop()
}

func TestStartNoopWhenLicenseKeyMissing(t *testing.T) {
	a := NewAgent(config.TelemetryConfig{Enabled: true, AppName: "test"})
	if err := a.Start(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if a.IsEnabled() {
		t.Fatalf("expected agent to stay disabled without a license key")
	}
}

func TestRecordSolveAttemptUpdatesCounters(t *testing.T) {
	a := NewAgent(config.TelemetryConfig{})
	a.RecordSolveAttempt(true, 5*time.Millisecond)
	a.RecordSolveAttempt(false, 10*time.Millisecond)

	snap := a.Snapshot()
	if snap.Attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", snap.Attempts)
	}
	if snap.Solved != 1 {
		t.Fatalf("expected 1 solved, got %d", snap.Solved)
	}
	if snap.Cancelled != 1 {
		t.Fatalf("expected 1 cancelled, got %d", snap.Cancelled)
	}
	if snap.LastSolveDurationMs != 10 {
		t.Fatalf("expected last solve duration 10ms, got %d", snap.LastSolveDurationMs)
	}
}

func TestRecordRetargetNoopWithoutAPM(t *testing.T) {
	a := NewAgent(config.TelemetryConfig{})
	a.RecordRetarget(56, 57)
}

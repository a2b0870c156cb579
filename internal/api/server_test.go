package api

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/NexTokenTech/TREX-PoW/internal/driver"
	"github.com/NexTokenTech/TREX-PoW/internal/telemetry"
)

type fakeChainStatus struct {
	snap driver.Snapshot
}

func (f fakeChainStatus) Status() driver.Snapshot { return f.snap }

type fakeSolveMetrics struct {
	counters telemetry.Counters
}

func (f fakeSolveMetrics) Snapshot() telemetry.Counters { return f.counters }

func TestHandleStatus(t *testing.T) {
	chain := fakeChainStatus{snap: driver.Snapshot{
		Difficulty:     60,
		Height:         42,
		MiningEnabled:  true,
		LastPubKeyBits: 56,
	}}
	s := NewServer("127.0.0.1:0", chain, fakeSolveMetrics{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/status", nil)
	s.router.ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Difficulty != 60 || resp.Height != 42 || !resp.MiningEnabled || resp.LastPubKeyBits != 56 {
		t.Fatalf("unexpected status response: %+v", resp)
	}
}

func TestHandleSolveMetrics(t *testing.T) {
	metrics := fakeSolveMetrics{counters: telemetry.Counters{
		Attempts:            10,
		Solved:              2,
		Cancelled:           8,
		LastSolveDurationMs: 123,
	}}
	s := NewServer("127.0.0.1:0", fakeChainStatus{}, metrics)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics/solve", nil)
	s.router.ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp SolveMetricsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Attempts != 10 || resp.Solved != 2 || resp.Cancelled != 8 || resp.LastSolveDurationMs != 123 {
		t.Fatalf("unexpected metrics response: %+v", resp)
	}
}

func TestHandleHealth(t *testing.T) {
	s := NewServer("127.0.0.1:0", fakeChainStatus{}, fakeSolveMetrics{})
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	s.router.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

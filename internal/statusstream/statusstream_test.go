package statusstream

import (
	"testing"

	"github.com/NexTokenTech/TREX-PoW/internal/driver"
)

func TestEmitWithNoClientsDoesNotBlock(t *testing.T) {
	s := New("127.0.0.1:0")
	s.Emit(driver.DriverEvent{Kind: driver.EventSolved})
}

func TestClientCountStartsAtZero(t *testing.T) {
	s := New("127.0.0.1:0")
	if got := s.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestStopWithoutStartIsSafe(t *testing.T) {
	s := New("127.0.0.1:0")
	if err := s.Stop(); err != nil {
		t.Fatalf("expected no error stopping an unstarted server, got %v", err)
	}
}

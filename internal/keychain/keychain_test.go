package keychain

import (
	"math/big"
	"testing"

	"github.com/NexTokenTech/TREX-PoW/internal/consts"
)

func TestSeedSlotRoundTrip128(t *testing.T) {
	seed := big.NewInt(123456789)
	slot := NewSeedSlot(0, seed)
	if slot.Is256 {
		t.Fatalf("index 0 should encode as 128-bit")
	}
	if slot.Value().Cmp(seed) != 0 {
		t.Fatalf("round trip mismatch: got %s want %s", slot.Value(), seed)
	}
}

func TestSeedSlotRoundTrip256(t *testing.T) {
	seed := new(big.Int).Lsh(big.NewInt(1), 200)
	slot := NewSeedSlot(consts.U128SlotBoundary, seed)
	if !slot.Is256 {
		t.Fatalf("index at U128SlotBoundary should encode as 256-bit")
	}
	if slot.Value().Cmp(seed) != 0 {
		t.Fatalf("round trip mismatch: got %s want %s", slot.Value(), seed)
	}
}

func TestGenesisSeedsLength(t *testing.T) {
	seeds := GenesisSeeds()
	if len(seeds) != consts.KeychainSize {
		t.Fatalf("expected %d genesis seed slots, got %d", consts.KeychainSize, len(seeds))
	}
}

func TestSlotForDifficulty(t *testing.T) {
	if got := SlotForDifficulty(consts.MinDifficulty); got != 0 {
		t.Fatalf("expected slot 0 for MinDifficulty, got %d", got)
	}
	if got := SlotForDifficulty(consts.MaxDifficulty - 1); got != consts.KeychainSize-1 {
		t.Fatalf("expected last slot for MaxDifficulty-1, got %d", got)
	}
}

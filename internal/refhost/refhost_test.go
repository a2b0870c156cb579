package refhost

import (
	"context"
	"math/big"
	"sync/atomic"
	"testing"

	"github.com/NexTokenTech/TREX-PoW/internal/bigint"
	"github.com/NexTokenTech/TREX-PoW/internal/collision"
	"github.com/NexTokenTech/TREX-PoW/internal/consts"
	"github.com/NexTokenTech/TREX-PoW/internal/elgamal"
	"github.com/NexTokenTech/TREX-PoW/internal/hashcompute"
	"github.com/NexTokenTech/TREX-PoW/internal/keychain"
	"github.com/NexTokenTech/TREX-PoW/internal/pollardrho"
	"github.com/NexTokenTech/TREX-PoW/internal/puzzle"
	"github.com/NexTokenTech/TREX-PoW/internal/seal"
)

func fixedClock(ts int64) func() int64 {
	return func() int64 { return ts }
}

// mineTestSeal builds a real, verifiable seal against the given height's
// pre-hash, using a small-prime puzzle so mining stays cheap in a unit
// test.
func mineTestSeal(t *testing.T, height uint64, difficulty consts.Difficulty) []byte {
	t.Helper()
	pub := elgamal.PublicKey{P: big.NewInt(383), G: big.NewInt(2), H: big.NewInt(172), BitLength: 9}
	preHash := preHashForHeight(height)
	compute := hashcompute.NewBlake3Compute(difficulty, preHash)
	store := collision.NewMemStore()
	var cancel atomic.Bool

	solutions, nonce, found := pollardrho.SolveParallel(pub, compute, big.NewInt(1), 4, &cancel, 1, store)
	if !found {
		t.Fatalf("expected SolveParallel to find a collision for the small-prime test vector")
	}

	s := seal.Seal{
		Difficulty: difficulty,
		PubKey:     pub.ToRaw(),
		Seeds:      keychain.GenesisSeeds(),
		Solutions:  solutions,
		Nonce:      bigint.ToU256(nonce),
	}
	return s.Encode()
}

func TestBestTipReportsGenesisBeforeAnySubmission(t *testing.T) {
	h := New([]byte("node"), consts.InitDifficulty, fixedClock(1000))
	height, tipSeal, isGenesis, err := h.BestTip(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if height != 0 || tipSeal != nil || !isGenesis {
		t.Fatalf("expected genesis tip, got height=%d isGenesis=%v", height, isGenesis)
	}
}

func TestSubmitAdvancesTip(t *testing.T) {
	h := New([]byte("node"), consts.Difficulty(9), fixedClock(1000))
	sealBytes := mineTestSeal(t, 0, consts.Difficulty(9))
	if err := h.Submit(context.Background(), sealBytes); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	height, tipSeal, isGenesis, err := h.BestTip(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if height != 1 || isGenesis || string(tipSeal) != string(sealBytes) {
		t.Fatalf("unexpected tip: height=%d isGenesis=%v", height, isGenesis)
	}
}

// TestSubmitRejectsUnverifiableSeal confirms the mine -> submit -> verify
// loop actually rejects a seal that does not pass seal.Verifier.Verify
// (here, a pair of solutions that do not actually collide), rather than
// accepting anything byte-decodable.
func TestSubmitRejectsUnverifiableSeal(t *testing.T) {
	h := New([]byte("node"), consts.Difficulty(9), fixedClock(1000))
	pub := elgamal.PublicKey{P: big.NewInt(383), G: big.NewInt(2), H: big.NewInt(172), BitLength: 9}
	badSeal := seal.Seal{
		Difficulty: consts.Difficulty(9),
		PubKey:     pub.ToRaw(),
		Seeds:      keychain.GenesisSeeds(),
		Solutions: puzzle.Solutions{
			First:  puzzle.Solution{A: big.NewInt(1), B: big.NewInt(2), N: pub.N()},
			Second: puzzle.Solution{A: big.NewInt(3), B: big.NewInt(4), N: pub.N()},
		},
	}
	if err := h.Submit(context.Background(), badSeal.Encode()); err == nil {
		t.Fatalf("expected Submit to reject a seal whose solutions do not collide")
	}
	if h.Height() != 0 {
		t.Fatalf("expected height to stay at 0 after a rejected submission, got %d", h.Height())
	}
}

func TestWorkerMetadataDifficultyFollowsSetDifficulty(t *testing.T) {
	h := New([]byte("node"), consts.InitDifficulty, fixedClock(1000))
	h.SetDifficulty(100)
	difficulty, _, ok, err := h.WorkerMetadata(context.Background())
	if err != nil || !ok {
		t.Fatalf("unexpected metadata error/ok: %v / %v", err, ok)
	}
	if difficulty != 100 {
		t.Fatalf("expected difficulty 100, got %d", difficulty)
	}
}

func TestSealAtOutOfRange(t *testing.T) {
	h := New([]byte("node"), consts.InitDifficulty, fixedClock(1000))
	if _, ok := h.SealAt(1); ok {
		t.Fatalf("expected no seal at height 1 before any submission")
	}
}

func TestSealAtReturnsSubmittedSeal(t *testing.T) {
	h := New([]byte("node"), consts.Difficulty(9), fixedClock(1000))
	sealBytes := mineTestSeal(t, 0, consts.Difficulty(9))
	if err := h.Submit(context.Background(), sealBytes); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok := h.SealAt(1)
	if !ok || string(got) != string(sealBytes) {
		t.Fatalf("expected submitted seal bytes at height 1, ok=%v", ok)
	}
}

func TestTimestampNowUsesInjectedClock(t *testing.T) {
	h := New([]byte("node"), consts.InitDifficulty, fixedClock(12345))
	if h.TimestampNow() != 12345 {
		t.Fatalf("expected injected clock value")
	}
}

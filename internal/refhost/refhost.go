// Package refhost is an in-memory implementation of the driver.Host
// interface, used by tests and by cmd/trex-miner's -demo mode to run
// the mine-submit-verify loop without a real chain. Explicitly not a
// blockchain: no fork choice, no transaction pool, no persistence.
package refhost

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/NexTokenTech/TREX-PoW/internal/consts"
	"github.com/NexTokenTech/TREX-PoW/internal/elgamal"
	"github.com/NexTokenTech/TREX-PoW/internal/seal"
)

// InMemoryHost backs the driver.Host interface with a slice of
// previously submitted seals and an injectable clock, with the shape
// (health counters, a simple constructor) of an RPC client but without
// making any network calls.
type InMemoryHost struct {
	mu         sync.Mutex
	seals      [][]byte
	difficulty consts.Difficulty
	identity   []byte
	now        func() int64

	successCount atomic.Uint64
	failCount    atomic.Uint64
}

// New builds a reference host starting at the genesis tip. now supplies
// TimestampNow's return value; pass a fixed function for deterministic
// tests.
func New(identity []byte, initialDifficulty consts.Difficulty, now func() int64) *InMemoryHost {
	return &InMemoryHost{
		difficulty: initialDifficulty,
		identity:   identity,
		now:        now,
	}
}

// BestTip returns the most recently submitted seal, or isGenesis=true
// before any seal has been submitted.
func (h *InMemoryHost) BestTip(ctx context.Context) (uint64, []byte, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.seals) == 0 {
		return 0, nil, true, nil
	}
	height := uint64(len(h.seals))
	return height, h.seals[len(h.seals)-1], false, nil
}

// preHashForHeight deterministically derives a stand-in block header
// hash from a tip height, shared by WorkerMetadata (so a miner sees the
// pre_hash it must solve against) and Submit (so verification recomputes
// the identical value).
func preHashForHeight(height uint64) [32]byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], height)
	return sha256.Sum256(buf[:])
}

// WorkerMetadata returns the current difficulty and a pre-hash derived
// deterministically from the tip height, standing in for a real block
// header hash.
func (h *InMemoryHost) WorkerMetadata(ctx context.Context) (consts.Difficulty, [32]byte, bool, error) {
	h.mu.Lock()
	height := uint64(len(h.seals))
	difficulty := h.difficulty
	h.mu.Unlock()

	return difficulty, preHashForHeight(height), true, nil
}

// Submit verifies the submitted seal against the pre-hash and difficulty
// the tip this seal was mined for was given through WorkerMetadata, then
// appends it as the new tip. This is the stand-in for a real chain's
// block-import verification: no seal is accepted onto the tip without
// passing seal.Verifier.Verify first.
func (h *InMemoryHost) Submit(ctx context.Context, sealBytes []byte) error {
	s, err := seal.Decode(sealBytes)
	if err != nil {
		h.failCount.Add(1)
		return fmt.Errorf("refhost: decoding submitted seal: %w", err)
	}

	h.mu.Lock()
	height := uint64(len(h.seals))
	difficulty := h.difficulty
	h.mu.Unlock()

	preHash := preHashForHeight(height)
	v := seal.Verifier{PubKey: elgamal.FromRaw(s.PubKey)}
	if !v.Verify(preHash, s, difficulty) {
		h.failCount.Add(1)
		return fmt.Errorf("refhost: submitted seal failed verification at height %d", height+1)
	}

	h.mu.Lock()
	h.seals = append(h.seals, append([]byte(nil), sealBytes...))
	h.mu.Unlock()
	h.successCount.Add(1)
	return nil
}

// TimestampNow returns the injected clock's current value.
func (h *InMemoryHost) TimestampNow() int64 {
	return h.now()
}

// NodeIdentity returns the configured identity bytes.
func (h *InMemoryHost) NodeIdentity() []byte {
	return h.identity
}

// SetDifficulty lets tests and the demo CLI simulate a retarget between
// mining attempts.
func (h *InMemoryHost) SetDifficulty(d consts.Difficulty) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.difficulty = d
}

// SealAt returns the seal submitted at the given 1-indexed height.
func (h *InMemoryHost) SealAt(height uint64) ([]byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if height == 0 || height > uint64(len(h.seals)) {
		return nil, false
	}
	return h.seals[height-1], true
}

// Height returns the current tip height (0 before any submission).
func (h *InMemoryHost) Height() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return uint64(len(h.seals))
}

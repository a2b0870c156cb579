// Package keychain derives the 176-slot chain of per-difficulty ElGamal
// public keys carried in every seal: one candidate PublicKey for each bit
// length in [MinDifficulty, MaxDifficulty), whose group parameters
// (p, g) are deterministically reproducible from a seed integer also
// carried in the seal. h is not: elgamal.GeneratePubKey draws a fresh
// private exponent for every key.
package keychain

import (
	"fmt"
	"math/big"

	"github.com/NexTokenTech/TREX-PoW/internal/bigint"
	"github.com/NexTokenTech/TREX-PoW/internal/consts"
	"github.com/NexTokenTech/TREX-PoW/internal/elgamal"
)

// SeedSlot is one tagged seed entry: slots below consts.U128SlotBoundary
// carry a compact 128-bit seed (small difficulties are mined far more
// often, so compactness matters there); slots at or above it carry the
// full 256-bit seed.
type SeedSlot struct {
	Is256 bool
	U128  [16]byte
	U256  [32]byte
}

// Value decodes a SeedSlot back into its seed integer.
func (s SeedSlot) Value() *big.Int {
	if s.Is256 {
		return bigint.FromU256(s.U256)
	}
	return bigint.FromU128(s.U128)
}

// NewSeedSlot tags and encodes seed for keychain index idx (0-based,
// corresponding to bit length consts.MinDifficulty+idx).
func NewSeedSlot(idx int, seed *big.Int) SeedSlot {
	if idx >= consts.U128SlotBoundary {
		return SeedSlot{Is256: true, U256: bigint.ToU256(seed)}
	}
	return SeedSlot{U128: bigint.ToU128(seed)}
}

// KeySeeds is the full 176-slot tagged seed table carried in a seal.
type KeySeeds [consts.KeychainSize]SeedSlot

// GenesisSeeds builds the all-ones seed table used for the genesis seal,
// matching the reference implementation's genesis_seal.
func GenesisSeeds() KeySeeds {
	var seeds KeySeeds
	for i := range seeds {
		seeds[i] = NewSeedSlot(i, big.NewInt(1))
	}
	return seeds
}

// YieldPubKeys derives the keychain of candidate public keys from a seed
// table, one per difficulty slot.
func YieldPubKeys(seeds KeySeeds) ([]elgamal.PublicKey, error) {
	keys := make([]elgamal.PublicKey, len(seeds))
	for i, slot := range seeds {
		bitLength := uint32(consts.MinDifficulty + i)
		key, err := elgamal.GeneratePubKey(slot.Value(), bitLength)
		if err != nil {
			return nil, fmt.Errorf("keychain: slot %d (bit length %d): %w", i, bitLength, err)
		}
		keys[i] = key
	}
	return keys, nil
}

// NextSeeds derives the seed table for the following block from the
// current block's keychain: seeds[i] = keys[i].YieldSeed(), a
// deterministic function of the public components only.
func NextSeeds(keys []elgamal.PublicKey) (KeySeeds, error) {
	var seeds KeySeeds
	if len(keys) != len(seeds) {
		return seeds, fmt.Errorf("keychain: expected %d keys, got %d", len(seeds), len(keys))
	}
	for i, key := range keys {
		seeds[i] = NewSeedSlot(i, key.YieldSeed())
	}
	return seeds, nil
}

// SlotForDifficulty returns the keychain index for a given bit length.
func SlotForDifficulty(bitLength consts.Difficulty) int {
	return int(bitLength) - consts.MinDifficulty
}

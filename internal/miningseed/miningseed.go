// Package miningseed derives the mining driver's starting Pollard-rho
// walk seed from a node's identity, and advances it between attempts.
package miningseed

import (
	"math/big"

	"github.com/NexTokenTech/TREX-PoW/internal/bigint"
)

// u256MaxLen bounds how many trailing bytes of an identity are used.
const u256MaxLen = 32

// FromIdentity derives a starting seed from a node's libp2p-like
// identity: the last 32 bytes of the identity encoding (truncating
// longer ones), read as a little-endian 256-bit integer. Using identity
// bytes rather than wall-clock time keeps seed collisions across nodes
// unlikely without depending on synchronized clocks.
func FromIdentity(identity []byte) *big.Int {
	if len(identity) > u256MaxLen {
		identity = identity[len(identity)-u256MaxLen:]
	}
	seed := bigint.FromLSBBytes(identity)
	if seed.Sign() == 0 {
		// Never hand back a literal zero seed: the walk state must never
		// be zero-initialized (see internal/puzzle.NewState).
		return big.NewInt(1)
	}
	return seed
}

var u256Max = func() *big.Int {
	max := new(big.Int).Lsh(big.NewInt(1), 256)
	return max.Sub(max, big.NewInt(1))
}()

// Advance bumps a mining seed after an unsuccessful attempt, wrapping
// around to 1 (never 0) instead of overflowing past the 256-bit range.
func Advance(seed *big.Int) *big.Int {
	next := new(big.Int).Add(seed, big.NewInt(1))
	if next.Cmp(u256Max) > 0 || next.Sign() == 0 {
		return big.NewInt(1)
	}
	return next
}

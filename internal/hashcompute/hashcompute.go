// Package hashcompute provides the not-yet-computed header record
// (Compute) that the puzzle engine re-hashes on every walk step, plus the
// BLAKE3 and SHA-256 adapters that turn it into a big integer.
//
// spec.md §9 specifies the hash adapter as a capability rather than a
// single concrete type: anything offering SetNonce/GetNonce/HashInteger
// and a cheap Clone is acceptable. Adapter is that capability.
package hashcompute

import (
	"crypto/sha256"
	"encoding/binary"
	"math/big"

	"github.com/NexTokenTech/TREX-PoW/internal/bigint"
	"github.com/NexTokenTech/TREX-PoW/internal/consts"
	"github.com/zeebo/blake3"
)

// Compute is the preimage hashed on every Pollard-rho walk step.
type Compute struct {
	Difficulty consts.Difficulty
	PreHash    [32]byte
	Nonce      [32]byte
}

// Encode produces the canonical byte-exact serialization spec.md §6
// requires for cross-implementation compatibility: difficulty(16) ||
// pre_hash(32) || nonce(32).
func (c Compute) Encode() []byte {
	out := make([]byte, 16+32+32)
	binary.LittleEndian.PutUint64(out[0:8], c.Difficulty)
	// upper 8 bytes of the 16-byte u128 field are always zero: Difficulty
	// never exceeds consts.MaxDifficulty.
	copy(out[16:48], c.PreHash[:])
	copy(out[48:80], c.Nonce[:])
	return out
}

// Adapter is the capability the Pollard-rho engine and the seal verifier
// require of a hash source.
type Adapter interface {
	SetNonce(n *big.Int)
	GetNonce() [32]byte
	HashInteger() *big.Int
	Clone() Adapter
}

// Blake3Compute is the default, primary hash adapter.
type Blake3Compute struct {
	Compute
}

// NewBlake3Compute builds a Blake3Compute header for difficulty/preHash
// with nonce initialized to zero (callers call SetNonce before hashing).
func NewBlake3Compute(difficulty consts.Difficulty, preHash [32]byte) *Blake3Compute {
	return &Blake3Compute{Compute{Difficulty: difficulty, PreHash: preHash}}
}

func (c *Blake3Compute) SetNonce(n *big.Int) {
	c.Nonce = bigint.ToU256(n)
}

func (c *Blake3Compute) GetNonce() [32]byte {
	return c.Nonce
}

func (c *Blake3Compute) HashInteger() *big.Int {
	digest := blake3.Sum256(c.Encode())
	return bigint.FromLSBBytes(digest[:])
}

func (c *Blake3Compute) Clone() Adapter {
	clone := *c
	return &clone
}

// Sha256Compute is the alternate hash adapter.
type Sha256Compute struct {
	Compute
}

// NewSha256Compute builds a Sha256Compute header.
func NewSha256Compute(difficulty consts.Difficulty, preHash [32]byte) *Sha256Compute {
	return &Sha256Compute{Compute{Difficulty: difficulty, PreHash: preHash}}
}

func (c *Sha256Compute) SetNonce(n *big.Int) {
	c.Nonce = bigint.ToU256(n)
}

func (c *Sha256Compute) GetNonce() [32]byte {
	return c.Nonce
}

func (c *Sha256Compute) HashInteger() *big.Int {
	digest := sha256.Sum256(c.Encode())
	return bigint.FromLSBBytes(digest[:])
}

func (c *Sha256Compute) Clone() Adapter {
	clone := *c
	return &clone
}

// DistinguishedHash folds a walk state's (nonce, work, a, b) into a
// 256-bit value used by the distinguished-point predicate. The reference
// implementation sums the four integers before hashing; spec.md's prose
// describes this as an XOR fold, but the wire-compatible behavior is the
// sum, so that is what is implemented here (see DESIGN.md).
func DistinguishedHash(nonce, work, a, b *big.Int) *big.Int {
	total := new(big.Int).Add(nonce, work)
	total.Add(total, a)
	total.Add(total, b)
	digest := blake3.Sum256(bigint.ToLSBBytes(total))
	return bigint.FromLSBBytes(digest[:])
}

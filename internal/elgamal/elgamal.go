// Package elgamal implements the ElGamal public/private key types the
// mining puzzle is built on, plus safe-prime generation and the seeded
// key derivation the keychain uses to produce a block's per-difficulty
// keys.
package elgamal

import (
	"crypto/rand"
	"errors"
	"math/big"
	mrand "math/rand"

	"github.com/NexTokenTech/TREX-PoW/internal/bigint"
	"github.com/NexTokenTech/TREX-PoW/internal/consts"
	"github.com/zeebo/blake3"
)

// ErrInvalidBitLength is returned when a requested bit length falls
// outside [consts.MinDifficulty, consts.MaxDifficulty].
var ErrInvalidBitLength = errors.New("elgamal: bit length out of range")

// PublicKey is the (p, g, h, bit_length) tuple described in spec.md §3.
// p is a safe prime, 1 < g < p, and h = g^x mod p for an x that is not
// carried on the PublicKey itself -- only the miner that solves the
// puzzle learns it.
type PublicKey struct {
	P         *big.Int
	G         *big.Int
	H         *big.Int
	BitLength uint32
}

// PrivateKey is the time-lock key recovered once a puzzle is solved.
type PrivateKey struct {
	P         *big.Int
	G         *big.Int
	X         *big.Int
	BitLength uint32
}

// RawPublicKey is PublicKey encoded as four consecutive 32-byte
// little-endian fields, matching spec.md §6's wire layout.
type RawPublicKey struct {
	P         [32]byte
	G         [32]byte
	H         [32]byte
	BitLength [32]byte
}

// ToRaw serializes a PublicKey to its wire form.
func (pk PublicKey) ToRaw() RawPublicKey {
	return RawPublicKey{
		P:         bigint.ToU256(pk.P),
		G:         bigint.ToU256(pk.G),
		H:         bigint.ToU256(pk.H),
		BitLength: bigint.ToU256(new(big.Int).SetUint64(uint64(pk.BitLength))),
	}
}

// FromRaw deserializes a PublicKey from its wire form.
func FromRaw(raw RawPublicKey) PublicKey {
	return PublicKey{
		P:         bigint.FromU256(raw.P),
		G:         bigint.FromU256(raw.G),
		H:         bigint.FromU256(raw.H),
		BitLength: uint32(bigint.FromU256(raw.BitLength).Uint64()),
	}
}

// N returns (p-1)/2, the order of the safe-prime subgroup solutions live in.
func (pk PublicKey) N() *big.Int {
	p1 := new(big.Int).Sub(pk.P, big.NewInt(1))
	return p1.Rsh(p1, 1)
}

// Valid performs the sanity checks spec.md §3 lists as PublicKey
// invariants. It does not (cannot, without x) verify h is actually a
// power of g; that is only established once a puzzle is solved.
func (pk PublicKey) Valid() bool {
	if pk.BitLength < consts.MinDifficulty || pk.BitLength > consts.MaxDifficulty {
		return false
	}
	if pk.P == nil || pk.G == nil || pk.H == nil {
		return false
	}
	if uint32(pk.P.BitLen()) != pk.BitLength {
		return false
	}
	if pk.G.Cmp(big.NewInt(1)) <= 0 || pk.G.Cmp(pk.P) >= 0 {
		return false
	}
	if !pk.P.ProbablyPrime(20) {
		return false
	}
	return pk.N().ProbablyPrime(20)
}

// generateSafePrime deterministically searches, using rnd, for a prime p
// of exactly bitLen bits such that (p-1)/2 is also prime.
func generateSafePrime(rnd *mrand.Rand, bitLen uint32) (p, q *big.Int) {
	one := big.NewInt(1)
	for {
		q = randOddOfBitLen(rnd, bitLen-1)
		if !q.ProbablyPrime(20) {
			continue
		}
		p = new(big.Int).Lsh(q, 1)
		p.Add(p, one)
		if uint32(p.BitLen()) != bitLen {
			continue
		}
		if p.ProbablyPrime(20) {
			return p, q
		}
	}
}

// randOddOfBitLen draws an odd candidate of exactly bitLen bits from rnd.
func randOddOfBitLen(rnd *mrand.Rand, bitLen uint32) *big.Int {
	if bitLen == 0 {
		return big.NewInt(1)
	}
	top := new(big.Int).Lsh(big.NewInt(1), uint(bitLen-1))
	span := new(big.Int).Lsh(big.NewInt(1), uint(bitLen-1))
	n := bigint.RandomBelow(rnd, span)
	n.Add(n, top)
	n.SetBit(n, 0, 1)
	return n
}

// qrGenerator picks a quadratic-residue generator of the order-q subgroup
// of Z_p^*: any h^2 mod p for 2 <= h < p-1 lands in that subgroup, and is
// either 1 (negligibly likely) or a generator of it since q is prime.
func qrGenerator(rnd *mrand.Rand, p *big.Int) *big.Int {
	pMinus2 := new(big.Int).Sub(p, big.NewInt(2))
	for {
		h := bigint.RandomBelow(rnd, pMinus2)
		h.Add(h, big.NewInt(2))
		g := bigint.PowMod(h, big.NewInt(2), p)
		if g.Cmp(big.NewInt(1)) > 0 {
			return g
		}
	}
}

// GeneratePubKey deterministically derives a PublicKey's group parameters
// (p, g) from seed, then draws a fresh, non-reproducible private exponent
// x to compute h = g^x mod p. The seed makes (p, g, bit_length) auditable
// across nodes running the same keychain derivation; x remains unknown to
// everyone until a miner solves the puzzle -- see DESIGN.md's Open
// Questions for why x is not seed-derived.
func GeneratePubKey(seed *big.Int, bitLength uint32) (PublicKey, error) {
	if bitLength < consts.MinDifficulty || bitLength > consts.MaxDifficulty {
		return PublicKey{}, ErrInvalidBitLength
	}
	rnd := bigint.NewSeededRand(seed)
	p, q := generateSafePrime(rnd, bitLength)
	g := qrGenerator(rnd, p)

	x, err := rand.Int(rand.Reader, q)
	if err != nil {
		return PublicKey{}, err
	}
	if x.Sign() == 0 {
		x.SetInt64(1)
	}
	h := bigint.PowMod(g, x, p)

	return PublicKey{P: p, G: g, H: h, BitLength: bitLength}, nil
}

// YieldSeed deterministically derives the seed a block's seal carries
// forward for this slot's next-round key, from this key's public
// components. It never depends on any private exponent.
func (pk PublicKey) YieldSeed() *big.Int {
	h := blake3.New()
	h.Write(bigint.ToFixedLSB(pk.P, bigint.U256Len))
	h.Write(bigint.ToFixedLSB(pk.G, bigint.U256Len))
	h.Write(bigint.ToFixedLSB(pk.H, bigint.U256Len))
	digest := h.Sum(nil)
	return bigint.FromLSBBytes(digest)
}

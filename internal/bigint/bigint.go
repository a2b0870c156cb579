// Package bigint provides the arbitrary-precision modular arithmetic and
// fixed-width conversions shared by the puzzle engine, keychain, and seal
// codec. It is a thin layer over math/big: conversions are little-endian
// to match the wire format in spec.md, and division is Euclidean (the
// remainder is always non-negative) to match the reference
// implementation's div_rem_euc semantics.
package bigint

import (
	"errors"
	"math/big"
	"math/rand"
)

// ErrNotInvertible is returned when a modular inverse does not exist,
// i.e. gcd(a, mod) != 1.
var ErrNotInvertible = errors.New("bigint: value has no inverse modulo m")

// U256Len and U128Len are the fixed encoded widths used on the wire.
const (
	U256Len = 32
	U128Len = 16
)

var maxInt63 = big.NewInt(1 << 62)

// ToLSBBytes returns the minimal little-endian byte encoding of n (n must
// be non-negative). The zero value encodes as an empty slice.
func ToLSBBytes(n *big.Int) []byte {
	be := n.Bytes()
	lsb := make([]byte, len(be))
	for i, b := range be {
		lsb[len(be)-1-i] = b
	}
	return lsb
}

// FromLSBBytes decodes a little-endian byte slice into a big integer.
func FromLSBBytes(b []byte) *big.Int {
	be := make([]byte, len(b))
	for i, v := range b {
		be[len(b)-1-i] = v
	}
	return new(big.Int).SetBytes(be)
}

// ToFixedLSB encodes n as exactly width little-endian bytes, truncating
// high-order bytes if n overflows width (callers are expected to only use
// this within the field's declared bit budget).
func ToFixedLSB(n *big.Int, width int) []byte {
	lsb := ToLSBBytes(n)
	out := make([]byte, width)
	copy(out, lsb[:min(len(lsb), width)])
	return out
}

// ToU256 encodes n as a 32-byte little-endian array.
func ToU256(n *big.Int) [32]byte {
	var out [32]byte
	copy(out[:], ToFixedLSB(n, U256Len))
	return out
}

// FromU256 decodes a 32-byte little-endian array into a big integer.
func FromU256(b [32]byte) *big.Int {
	return FromLSBBytes(b[:])
}

// ToU128 encodes n as a 16-byte little-endian array.
func ToU128(n *big.Int) [16]byte {
	var out [16]byte
	copy(out[:], ToFixedLSB(n, U128Len))
	return out
}

// FromU128 decodes a 16-byte little-endian array into a big integer.
func FromU128(b [16]byte) *big.Int {
	return FromLSBBytes(b[:])
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// PowMod computes base^exp mod m.
func PowMod(base, exp, m *big.Int) *big.Int {
	return new(big.Int).Exp(base, exp, m)
}

// EuclidMod returns a mod m with the result always in [0, m) regardless of
// the sign of a, matching the reference implementation's div_rem_euc.
func EuclidMod(a, m *big.Int) *big.Int {
	r := new(big.Int).Mod(a, m)
	if r.Sign() < 0 {
		r.Add(r, new(big.Int).Abs(m))
	}
	return r
}

// ModInverse returns the modular inverse of a modulo m, or ErrNotInvertible
// if gcd(a, m) != 1.
func ModInverse(a, m *big.Int) (*big.Int, error) {
	inv := new(big.Int).ModInverse(a, m)
	if inv == nil {
		return nil, ErrNotInvertible
	}
	return inv, nil
}

// GCD returns the greatest common divisor of a and b.
func GCD(a, b *big.Int) *big.Int {
	return new(big.Int).GCD(nil, nil, new(big.Int).Abs(a), new(big.Int).Abs(b))
}

// Sqrt returns the integer (floor) square root of n.
func Sqrt(n *big.Int) *big.Int {
	return new(big.Int).Sqrt(n)
}

// NewSeededRand builds a deterministic PRNG from a big-integer seed. The
// generator backing it (math/rand's default source) is not the Mersenne
// Twister the reference implementation seeds directly -- see DESIGN.md's
// Open Questions -- but draws are fully reproducible for a given seed,
// which is all the puzzle engine requires.
func NewSeededRand(seed *big.Int) *rand.Rand {
	s := new(big.Int).Mod(seed, maxInt63)
	return rand.New(rand.NewSource(s.Int64()))
}

// RandomBelow draws a uniform value in [0, n) from rnd.
func RandomBelow(rnd *rand.Rand, n *big.Int) *big.Int {
	if n.Sign() <= 0 {
		return big.NewInt(0)
	}
	return new(big.Int).Rand(rnd, n)
}

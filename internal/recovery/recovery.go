// Package recovery implements the linear-congruence solver that recovers
// the ElGamal private exponent from two colliding Pollard-rho solutions,
// and the verifier step that turns that exponent into a usable
// PrivateKey.
package recovery

import (
	"math/big"

	"github.com/NexTokenTech/TREX-PoW/internal/bigint"
	"github.com/NexTokenTech/TREX-PoW/internal/elgamal"
	"github.com/NexTokenTech/TREX-PoW/internal/puzzle"
)

// Solve recovers x from a1 + b1*x == a2 + b2*x (mod n), i.e. the two
// walks' accumulated solutions at their collision point
// (g^a1 * h^b1 == g^a2 * h^b2 with h = g^x). Returns ok=false
// if no solution exists (r and n share no useful structure).
//
// When r = (b1 - b2) mod n is invertible mod n, x = r^-1 * (a2 - a1) mod n
// directly. When it is not (gcd(r, n) > 1), the congruence is reduced by
// that gcd before inverting, following the reference implementation's
// fallback path -- whose numerator there reads `a2 - a2` (always zero),
// which would make the fallback branch always yield x = 0. That is
// almost certainly a typo in the reference source rather than an
// intended behavior (the surrounding code is an otherwise-textbook
// gcd-reduced congruence solve); this fixes the reduced numerator to
// `a2 - a1`, matching the non-fallback branch's numerator, since that is
// the only reading under which key recovery ever succeeds through this
// path. See DESIGN.md.
func Solve(a1, b1, a2, b2, n *big.Int) (*big.Int, bool) {
	r := bigint.EuclidMod(new(big.Int).Sub(b1, b2), n)
	if r.Sign() == 0 {
		return nil, false
	}
	if inv, err := bigint.ModInverse(r, n); err == nil {
		dif := new(big.Int).Sub(a2, a1)
		x := bigint.EuclidMod(new(big.Int).Mul(inv, dif), n)
		return x, true
	}

	div := bigint.GCD(r, n)
	if div.Sign() == 0 {
		return nil, false
	}
	resL := new(big.Int).Div(new(big.Int).Sub(b1, b2), div)
	resR := new(big.Int).Div(new(big.Int).Sub(a2, a1), div)
	p1 := new(big.Int).Div(n, div)
	inv, err := bigint.ModInverse(resL, p1)
	if err != nil {
		return nil, false
	}
	x := bigint.EuclidMod(new(big.Int).Mul(inv, resR), p1)
	return x, true
}

// KeyGen derives the PrivateKey matching pub from a colliding Solutions
// pair, validating the recovered exponent against pub.H and folding in an
// extra factor of n if the first candidate lands on the wrong branch of
// the subgroup (mirrors the reference implementation's validate-then-
// adjust step). The candidate is only accepted if g^x == h mod p; if the
// bumped exponent still does not satisfy that check, KeyGen returns
// ok=false rather than a key that fails its own defining equation.
func KeyGen(pub elgamal.PublicKey, solutions puzzle.Solutions) (elgamal.PrivateKey, bool) {
	x, ok := Solve(solutions.First.A, solutions.First.B, solutions.Second.A, solutions.Second.B, solutions.Second.N)
	if !ok {
		return elgamal.PrivateKey{}, false
	}
	validate := new(big.Int).Exp(pub.G, x, pub.P)
	if validate.Cmp(pub.H) != 0 {
		x = new(big.Int).Add(x, solutions.Second.N)
		validate = new(big.Int).Exp(pub.G, x, pub.P)
		if validate.Cmp(pub.H) != 0 {
			return elgamal.PrivateKey{}, false
		}
	}
	return elgamal.PrivateKey{P: pub.P, G: pub.G, X: x, BitLength: pub.BitLength}, true
}

// Package puzzle holds the core Pollard-rho data model shared between the
// solver (internal/pollardrho) and the distinguished-point collision store
// (internal/collision): Solution, the solution pair Solutions, and the
// walk State. Kept in its own package so the solver can depend on the
// collision store without a cycle back into the solver.
package puzzle

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/NexTokenTech/TREX-PoW/internal/bigint"
	"github.com/NexTokenTech/TREX-PoW/internal/elgamal"
)

// Solution is one (a, b) exponent pair on the walk, carried with
// n = (p-1)/2. The initial pair is drawn from [0, n); each walk step
// reduces a and b modulo p-1.
type Solution struct {
	A, B, N *big.Int
}

// Equal reports whether two solutions carry the same (a, b); n is implied
// by the public key and not compared.
func (s Solution) Equal(other Solution) bool {
	return s.A.Cmp(other.A) == 0 && s.B.Cmp(other.B) == 0
}

// Encode renders a Solution as a compact decimal string, used as the
// value stored in the Redis-backed collision store.
func (s Solution) Encode() string {
	return s.A.String() + "," + s.B.String() + "," + s.N.String()
}

// DecodeSolution parses the Encode format back into a Solution.
func DecodeSolution(raw string) (Solution, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 3 {
		return Solution{}, fmt.Errorf("puzzle: malformed solution encoding %q", raw)
	}
	a, ok1 := new(big.Int).SetString(parts[0], 10)
	b, ok2 := new(big.Int).SetString(parts[1], 10)
	n, ok3 := new(big.Int).SetString(parts[2], 10)
	if !ok1 || !ok2 || !ok3 {
		return Solution{}, fmt.Errorf("puzzle: malformed solution encoding %q", raw)
	}
	return Solution{A: a, B: b, N: n}, nil
}

// Solutions is the colliding pair of solutions the puzzle yields once two
// independent walks land on the same work value with differing (a, b).
type Solutions struct {
	First, Second Solution
}

// State is one node's position in the Pollard-rho walk: the current work
// value y_i, the previous work value (kept as the "nonce" fed to the next
// hash step, matching the reference implementation's naming), and the
// (a, b) solution accumulated so far.
type State struct {
	Solution Solution
	Nonce    *big.Int
	Work     *big.Int
	PubKey   elgamal.PublicKey
}

// NewState derives the initial walk state from a public key and a walk
// seed: a pseudo-random (a, b) pair drawn from the seed, and
// y = g^a * h^b mod p. The "nonce" field is initialized to 1, never 0,
// matching the reference implementation's note that zero-initializing
// these integers can corrupt the walk.
func NewState(key elgamal.PublicKey, seed *big.Int) State {
	n := key.N()
	rnd := bigint.NewSeededRand(seed)
	a := bigint.RandomBelow(rnd, n)
	b := bigint.RandomBelow(rnd, n)
	gaP := new(big.Int).Exp(key.G, a, key.P)
	hbP := new(big.Int).Exp(key.H, b, key.P)
	y := new(big.Int).Mul(gaP, hbP)
	y.Mod(y, key.P)
	return State{
		Solution: Solution{A: a, B: b, N: n},
		Nonce:    big.NewInt(1),
		Work:     y,
		PubKey:   key,
	}
}

// Clone deep-copies a State so the fast walk (state_2) can run
// independently of the slow walk (state_1) from a shared starting point.
func (s State) Clone() State {
	return State{
		Solution: Solution{A: new(big.Int).Set(s.Solution.A), B: new(big.Int).Set(s.Solution.B), N: new(big.Int).Set(s.Solution.N)},
		Nonce:    new(big.Int).Set(s.Nonce),
		Work:     new(big.Int).Set(s.Work),
		PubKey:   s.PubKey,
	}
}

// Package pollardrho implements the time-release puzzle's core search:
// Pollard's rho algorithm for the discrete logarithm, adapted so the walk
// step is driven by a hash of the header being mined rather than a pure
// group operation. Three search strategies are offered, matching the
// reference implementation: a single-thread Floyd's-cycle solver, a
// distinguished-point solver that periodically polls an external
// cancellation flag, and a goroutine-parallel solver that shares
// distinguished points through a collision.Store.
package pollardrho

import (
	"errors"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/NexTokenTech/TREX-PoW/internal/bigint"
	"github.com/NexTokenTech/TREX-PoW/internal/collision"
	"github.com/NexTokenTech/TREX-PoW/internal/consts"
	"github.com/NexTokenTech/TREX-PoW/internal/elgamal"
	"github.com/NexTokenTech/TREX-PoW/internal/hashcompute"
	"github.com/NexTokenTech/TREX-PoW/internal/puzzle"
)

// ErrMapping is returned when the walk's mixing function receives an
// input outside its defined domain, which indicates corrupted state
// rather than bad external input. Solve and SolveDistinguished return it
// to the caller; a SolveParallel worker that hits it stops without
// reporting it.
var ErrMapping = errors.New("pollardrho: mapping function received an invalid residue class")

var three = big.NewInt(3)

// funcF advances the walk's work value x_i -> x_(i+1). Which of the three
// branches runs is selected by x_i mod 3, partitioning the group into
// three roughly equal classes the way the textbook Pollard-rho "fruitless
// cycle" mitigation requires.
func funcF(key State, xi, yi *big.Int) (*big.Int, error) {
	switch new(big.Int).Mod(xi, three).Int64() {
	case 0:
		return new(big.Int).Exp(yi, xi, key.PubKey.P), nil
	case 1:
		baseHashP := new(big.Int).Exp(key.PubKey.G, xi, key.PubKey.P)
		return new(big.Int).Mod(new(big.Int).Mul(baseHashP, yi), key.PubKey.P), nil
	case 2:
		hHashP := new(big.Int).Exp(key.PubKey.H, xi, key.PubKey.P)
		return new(big.Int).Mod(new(big.Int).Mul(hHashP, yi), key.PubKey.P), nil
	default:
		return nil, ErrMapping
	}
}

// funcG advances the a-coefficient.
func funcG(key State, ai, xi *big.Int) (*big.Int, error) {
	p1 := new(big.Int).Sub(key.PubKey.P, big.NewInt(1))
	switch new(big.Int).Mod(xi, three).Int64() {
	case 0:
		return bigint.EuclidMod(new(big.Int).Mul(ai, xi), p1), nil
	case 1:
		return bigint.EuclidMod(new(big.Int).Add(ai, xi), p1), nil
	case 2:
		return new(big.Int).Set(ai), nil
	default:
		return nil, ErrMapping
	}
}

// funcH advances the b-coefficient.
func funcH(key State, bi, xi *big.Int) (*big.Int, error) {
	p1 := new(big.Int).Sub(key.PubKey.P, big.NewInt(1))
	switch new(big.Int).Mod(xi, three).Int64() {
	case 0:
		return bigint.EuclidMod(new(big.Int).Mul(bi, xi), p1), nil
	case 1:
		return new(big.Int).Set(bi), nil
	case 2:
		return bigint.EuclidMod(new(big.Int).Add(bi, xi), p1), nil
	default:
		return nil, ErrMapping
	}
}

// State is a local alias so this package's exported API can speak in its
// own name while sharing representation with puzzle.State.
type State = puzzle.State

// FuncF exposes the walk's work-mixing step so the seal verifier can
// replay a single step without running a full search.
func FuncF(state State, xi, yi *big.Int) (*big.Int, error) {
	return funcF(state, xi, yi)
}

// Transit performs a single Floyd step: hash the current work value
// through compute, reduce it modulo p, and fold it into the next
// (work, a, b) triple.
func Transit(s State, compute hashcompute.Adapter) (State, error) {
	compute.SetNonce(s.Work)
	raw := compute.HashInteger()
	hashI := new(big.Int).Mod(raw, s.PubKey.P)
	work, err := funcF(s, hashI, s.Work)
	if err != nil {
		return State{}, err
	}
	a, err := funcG(s, s.Solution.A, hashI)
	if err != nil {
		return State{}, err
	}
	b, err := funcH(s, s.Solution.B, hashI)
	if err != nil {
		return State{}, err
	}
	return State{
		Solution: puzzle.Solution{A: a, B: b, N: s.Solution.N},
		Work:     work,
		Nonce:    s.Work,
		PubKey:   s.PubKey,
	}, nil
}

// hashDiff returns the multiplicative test value used to require a number
// of leading-zero bits in the final nonce's distinguished-point hash,
// proportional to the difficulty. A hash whose product with this value
// does NOT overflow 256 bits meets the predicate (is a distinguished
// point).
//
// bitLength/2 - PointDstFactor is computed in a signed width and clamped
// to zero for bitLength < 2*PointDstFactor (the small-prime test vectors
// this package's tests use), rather than underflowing to a multi-billion
// shift count the way the unsigned subtraction in the reference
// implementation's hash_diff does.
func hashDiff(bitLength uint32) *big.Int {
	shift := int64(bitLength)/2 - int64(consts.PointDstFactor)
	if shift < 0 {
		shift = 0
	}
	base := new(big.Int).Lsh(big.NewInt(1), uint(shift))
	if bitLength%2 != 0 && shift > 0 {
		base.Add(base, new(big.Int).Lsh(big.NewInt(1), uint(shift-1)))
	}
	return base
}

var u256Max = func() *big.Int {
	max := new(big.Int).Lsh(big.NewInt(1), 256)
	return max.Sub(max, big.NewInt(1))
}()

// overflowsU256 reports whether hashDiff(bitLength)*candidate overflows a
// 256-bit unsigned integer, mirroring the reference implementation's
// `overflowing_mul` check on a U256.
func overflowsU256(candidate, diff *big.Int) bool {
	product := new(big.Int).Mul(candidate, diff)
	return product.Cmp(u256Max) > 0
}

func searchBound(p *big.Int) *big.Int {
	return new(big.Int).Mul(bigint.Sqrt(p), big.NewInt(consts.SearchLenFactor))
}

// Solve runs the single-thread search: Floyd's cycle detection to find a
// work-value collision between a "tortoise" and a "hare" walk, then a
// second phase that keeps walking until the nonce also satisfies the
// difficulty's leading-zero-bit requirement.
func Solve(pub elgamal.PublicKey, compute hashcompute.Adapter, seed *big.Int) (puzzle.Solutions, bool, error) {
	return solveCore(pub, compute, seed, 0, nil)
}

// solveCore is shared by Solve and SolveDistinguished; cancel may be nil,
// in which case grainSize is unused. When cancel is non-nil, it is
// polled only once every grainSize steps of each phase (mirroring the
// reference implementation's solve_dist counter/grain_size gate),
// rather than on every step.
func solveCore(pub elgamal.PublicKey, compute hashcompute.Adapter, seed *big.Int, grainSize uint32, cancel *atomic.Bool) (puzzle.Solutions, bool, error) {
	state1 := puzzle.NewState(pub, seed)
	state2 := state1.Clone()
	compute2 := compute.Clone()
	n := searchBound(pub.P)

	var err error
	var counter uint32
	for i := big.NewInt(0); i.Cmp(n) < 0; i.Add(i, big.NewInt(1)) {
		state1, err = Transit(state1, compute)
		if err != nil {
			return puzzle.Solutions{}, false, err
		}
		state2, err = Transit(state2, compute2)
		if err != nil {
			return puzzle.Solutions{}, false, err
		}
		state2, err = Transit(state2, compute2)
		if err != nil {
			return puzzle.Solutions{}, false, err
		}
		if cancel != nil {
			if counter >= grainSize {
				if cancel.Load() {
					return puzzle.Solutions{}, false, nil
				}
				counter = 0
			}
			counter++
		}
		if state1.Work.Cmp(state2.Work) == 0 {
			if !state1.Solution.Equal(state2.Solution) {
				break
			}
			return puzzle.Solutions{}, false, nil
		}
	}

	diff := hashDiff(pub.BitLength)
	counter = 0
	for i := big.NewInt(0); i.Cmp(n) < 0; i.Add(i, big.NewInt(1)) {
		state1, err = Transit(state1, compute)
		if err != nil {
			return puzzle.Solutions{}, false, err
		}
		state2, err = Transit(state2, compute2)
		if err != nil {
			return puzzle.Solutions{}, false, err
		}
		if cancel != nil {
			if counter >= grainSize {
				if cancel.Load() {
					return puzzle.Solutions{}, false, nil
				}
				counter = 0
			}
			counter++
		}
		h := hashcompute.DistinguishedHash(state1.Nonce, state1.Work, state1.Solution.A, state1.Solution.B)
		if !overflowsU256(h, diff) {
			if state1.Work.Cmp(state2.Work) == 0 && !state1.Solution.Equal(state2.Solution) {
				return puzzle.Solutions{First: state1.Solution, Second: state2.Solution}, true, nil
			}
			return puzzle.Solutions{}, false, nil
		}
	}
	return puzzle.Solutions{}, false, nil
}

// SolveDistinguished behaves like Solve but polls cancel every grainSize
// steps, returning early (no solution) once another worker reports a
// find. Intended for shared-nothing clusters coordinating over an
// external flag without a shared collision map.
func SolveDistinguished(pub elgamal.PublicKey, compute hashcompute.Adapter, seed *big.Int, grainSize uint32, cancel *atomic.Bool) (puzzle.Solutions, bool, error) {
	return solveCore(pub, compute, seed, grainSize, cancel)
}

// SolveParallel splits the search across goroutines that share a
// distinguished-point collision.Store. Each worker restarts with a bumped
// seed (up to consts.MaxRestartTries times) if it collides with its own
// previously recorded solution, matching the reference implementation's
// restart-on-self-collision behavior (the restart bumps only the
// iteration index, not the grain-size poll counter -- see DESIGN.md).
func SolveParallel(pub elgamal.PublicKey, compute hashcompute.Adapter, seed *big.Int, grainSize uint32, cancel *atomic.Bool, cpus int, store collision.Store) (puzzle.Solutions, *big.Int, bool) {
	n := searchBound(pub.P)
	diff := hashDiff(pub.BitLength)

	var wg sync.WaitGroup
	var resultMu sync.Mutex
	var result puzzle.Solutions
	var found bool
	var nonceMu sync.Mutex
	nonce := big.NewInt(1)

	for cpuIdx := 0; cpuIdx < cpus; cpuIdx++ {
		wg.Add(1)
		localSeed := new(big.Int).Add(seed, big.NewInt(int64(consts.MaxRestartTries*cpuIdx)))
		workerCompute := compute.Clone()
		go func(localSeed *big.Int, workerCompute hashcompute.Adapter) {
			defer wg.Done()
			j := 0
			counter := uint32(0)
			state := puzzle.NewState(pub, localSeed)
			for {
				for i := big.NewInt(0); i.Cmp(n) < 0; i.Add(i, big.NewInt(1)) {
					next, err := Transit(state, workerCompute)
					if err != nil {
						return
					}
					state = next
					h := hashcompute.DistinguishedHash(state.Nonce, state.Work, state.Solution.A, state.Solution.B)
					if !overflowsU256(h, diff) {
						existing, loaded := store.InsertIfAbsent(state.Work, state.Solution)
						if loaded {
							if !state.Solution.Equal(existing) {
								if cancel.Load() {
									return
								}
								cancel.Store(true)
								nonceMu.Lock()
								nonce.Set(state.Nonce)
								nonceMu.Unlock()
								resultMu.Lock()
								result = puzzle.Solutions{First: state.Solution, Second: existing}
								found = true
								resultMu.Unlock()
								return
							}
							if j >= consts.MaxRestartTries {
								return
							}
							j++
							state = puzzle.NewState(pub, new(big.Int).Add(localSeed, big.NewInt(int64(j))))
							i = big.NewInt(0)
							continue
						}
					}
					if counter >= grainSize {
						if cancel.Load() {
							return
						}
						counter = 0
					}
					counter++
				}
				if j < consts.MaxRestartTries {
					j++
					state = puzzle.NewState(pub, new(big.Int).Add(localSeed, big.NewInt(int64(j))))
				} else {
					return
				}
			}
		}(localSeed, workerCompute)
	}
	wg.Wait()

	if found {
		compute.SetNonce(nonce)
	}
	return result, nonce, found
}

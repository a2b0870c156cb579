// Package seal implements the on-wire Seal record -- the object a mining
// attempt produces and a block-import verifier checks -- plus the
// length-prefixed codec spec.md §6 defines for it and the verification
// procedure that recomputes both sides of the Pollard-rho collision.
package seal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/NexTokenTech/TREX-PoW/internal/bigint"
	"github.com/NexTokenTech/TREX-PoW/internal/consts"
	"github.com/NexTokenTech/TREX-PoW/internal/elgamal"
	"github.com/NexTokenTech/TREX-PoW/internal/hashcompute"
	"github.com/NexTokenTech/TREX-PoW/internal/keychain"
	"github.com/NexTokenTech/TREX-PoW/internal/pollardrho"
	"github.com/NexTokenTech/TREX-PoW/internal/puzzle"
	"github.com/NexTokenTech/TREX-PoW/internal/recovery"
)

// ErrDecode is returned for any malformed seal byte stream. Per spec.md
// §7 this is a decode-kind error: callers treat it as "reject", never as
// a crash.
var ErrDecode = errors.New("seal: malformed seal bytes")

// Seal is a completed time-release puzzle solution for one block:
// the difficulty it was mined at, the public key that was attacked,
// the seed table for the next block's keychain, the colliding solution
// pair, and the nonce that produced the winning hash.
type Seal struct {
	Difficulty consts.Difficulty
	PubKey     elgamal.RawPublicKey
	Seeds      keychain.KeySeeds
	Solutions  puzzle.Solutions
	Nonce      [32]byte
}

func solutionBytes(s puzzle.Solution) []byte {
	out := make([]byte, 0, 96)
	out = append(out, bigint.ToFixedLSB(s.A, 32)...)
	out = append(out, bigint.ToFixedLSB(s.B, 32)...)
	out = append(out, bigint.ToFixedLSB(s.N, 32)...)
	return out
}

func decodeSolution(b []byte) puzzle.Solution {
	return puzzle.Solution{
		A: bigint.FromLSBBytes(b[0:32]),
		B: bigint.FromLSBBytes(b[32:64]),
		N: bigint.FromLSBBytes(b[64:96]),
	}
}

// Encode renders a Seal in the canonical binary layout: difficulty(16) ||
// pubkey(4*32) || seed count(4) || seeds(176 * (1 + 16 or 32)) ||
// solutions(2*96) || nonce(32).
func (s Seal) Encode() []byte {
	out := make([]byte, 0, 16+128+len(s.Seeds)*33+192+32)
	out = append(out, bigint.ToFixedLSB(new(big.Int).SetUint64(s.Difficulty), 16)...)
	out = append(out, s.PubKey.P[:]...)
	out = append(out, s.PubKey.G[:]...)
	out = append(out, s.PubKey.H[:]...)
	out = append(out, s.PubKey.BitLength[:]...)

	count := make([]byte, 4)
	binary.LittleEndian.PutUint32(count, uint32(len(s.Seeds)))
	out = append(out, count...)
	for _, slot := range s.Seeds {
		if slot.Is256 {
			out = append(out, 1)
			out = append(out, slot.U256[:]...)
		} else {
			out = append(out, 0)
			out = append(out, slot.U128[:]...)
		}
	}

	out = append(out, solutionBytes(s.Solutions.First)...)
	out = append(out, solutionBytes(s.Solutions.Second)...)
	out = append(out, s.Nonce[:]...)
	return out
}

// Decode parses the Encode layout back into a Seal, returning ErrDecode
// on any malformed or truncated input.
func Decode(raw []byte) (Seal, error) {
	var s Seal
	r := raw
	read := func(n int) ([]byte, error) {
		if len(r) < n {
			return nil, fmt.Errorf("%w: expected %d more bytes, have %d", ErrDecode, n, len(r))
		}
		chunk := r[:n]
		r = r[n:]
		return chunk, nil
	}

	difficultyBytes, err := read(16)
	if err != nil {
		return Seal{}, err
	}
	s.Difficulty = bigint.FromLSBBytes(difficultyBytes).Uint64()

	for _, field := range []*[32]byte{&s.PubKey.P, &s.PubKey.G, &s.PubKey.H, &s.PubKey.BitLength} {
		chunk, err := read(32)
		if err != nil {
			return Seal{}, err
		}
		copy(field[:], chunk)
	}

	countBytes, err := read(4)
	if err != nil {
		return Seal{}, err
	}
	count := binary.LittleEndian.Uint32(countBytes)
	if count != uint32(len(s.Seeds)) {
		return Seal{}, fmt.Errorf("%w: expected %d seed slots, got %d", ErrDecode, len(s.Seeds), count)
	}
	for i := range s.Seeds {
		tag, err := read(1)
		if err != nil {
			return Seal{}, err
		}
		switch tag[0] {
		case 0:
			payload, err := read(16)
			if err != nil {
				return Seal{}, err
			}
			copy(s.Seeds[i].U128[:], payload)
		case 1:
			payload, err := read(32)
			if err != nil {
				return Seal{}, err
			}
			s.Seeds[i].Is256 = true
			copy(s.Seeds[i].U256[:], payload)
		default:
			return Seal{}, fmt.Errorf("%w: unknown seed tag %d", ErrDecode, tag[0])
		}
	}

	for _, dst := range []*puzzle.Solution{&s.Solutions.First, &s.Solutions.Second} {
		chunk, err := read(96)
		if err != nil {
			return Seal{}, err
		}
		*dst = decodeSolution(chunk)
	}

	nonceBytes, err := read(32)
	if err != nil {
		return Seal{}, err
	}
	copy(s.Nonce[:], nonceBytes)

	if len(r) != 0 {
		return Seal{}, fmt.Errorf("%w: %d trailing bytes", ErrDecode, len(r))
	}
	return s, nil
}

// Verifier checks seals against a public key and derives its private key
// once a valid colliding solution pair has been found.
type Verifier struct {
	PubKey elgamal.PublicKey
}

func derive(pub elgamal.PublicKey, s puzzle.Solution) *big.Int {
	gaP := new(big.Int).Exp(pub.G, s.A, pub.P)
	hbP := new(big.Int).Exp(pub.H, s.B, pub.P)
	y := new(big.Int).Mul(gaP, hbP)
	return y.Mod(y, pub.P)
}

// Verify implements spec.md §4.F's verification procedure: reconstruct
// both sides of the collision from the claimed solutions and check they
// agree, then independently recompute the winning work value from the
// header hash and nonce and check it matches too.
func (v Verifier) Verify(preHash [32]byte, s Seal, expectedDifficulty consts.Difficulty) bool {
	if s.Difficulty != expectedDifficulty {
		return false
	}
	y1 := derive(v.PubKey, s.Solutions.First)
	y2 := derive(v.PubKey, s.Solutions.Second)
	if y1.Cmp(y2) != 0 {
		return false
	}

	header := hashcompute.NewBlake3Compute(s.Difficulty, preHash)
	header.SetNonce(bigint.FromU256(s.Nonce))
	hashI := new(big.Int).Mod(header.HashInteger(), v.PubKey.P)
	nonce := bigint.FromU256(s.Nonce)
	state := puzzle.NewState(v.PubKey, big.NewInt(1))
	work, err := pollardrho.FuncF(state, hashI, nonce)
	if err != nil {
		return false
	}
	return y1.Cmp(work) == 0
}

// KeyGen releases the time-lock private key once a seal's colliding
// solutions have been verified.
func (v Verifier) KeyGen(s Seal) (elgamal.PrivateKey, bool) {
	return recovery.KeyGen(v.PubKey, s.Solutions)
}

var genesisOne = bigint.ToU256(big.NewInt(1))

// GenesisSeal builds the fixed seal that stands in for a solved puzzle
// at chain genesis, matching the reference implementation's
// genesis_seal: pubkey p, g, h are all 1 (bit_length carries the actual
// starting difficulty), the seed table is keychain.GenesisSeeds(), both
// solutions in the pair are (1, 1, 1), and the nonce is 1.
func GenesisSeal(difficulty consts.Difficulty) Seal {
	genesisSolution := puzzle.Solution{A: big.NewInt(1), B: big.NewInt(1), N: big.NewInt(1)}
	return Seal{
		Difficulty: difficulty,
		PubKey: elgamal.RawPublicKey{
			P:         genesisOne,
			G:         genesisOne,
			H:         genesisOne,
			BitLength: bigint.ToU256(new(big.Int).SetUint64(difficulty)),
		},
		Seeds:     keychain.GenesisSeeds(),
		Solutions: puzzle.Solutions{First: genesisSolution, Second: genesisSolution},
		Nonce:     genesisOne,
	}
}

// Package consts holds the canonical numeric constants shared across the
// puzzle engine, keychain, and difficulty controller. Values are taken
// directly from the reference implementation's trex-constants crate.
package consts

// Difficulty is the bit length of a PublicKey's modulus. The reference
// implementation types this as a u128 for headroom, but the legal range
// here never exceeds MaxDifficulty (224), so a plain uint64 carries it
// without loss -- only the wire encoding widens it to 16 bytes.
type Difficulty = uint64

// BlockTimeSec is the target seconds between blocks.
const BlockTimeSec = 60

// BlockTimeMillisec is BlockTimeSec in milliseconds.
const BlockTimeMillisec = BlockTimeSec * 1000

// MinDifficulty is the floor bit length a PublicKey's modulus may have.
const MinDifficulty = 48

// InitDifficulty is the bit length used before any retarget has run.
const InitDifficulty = 56

// MaxDifficulty is the ceiling bit length a PublicKey's modulus may have.
const MaxDifficulty = 224

// KeychainSize is the number of per-difficulty slots the keychain carries,
// one for every bit length in [MinDifficulty, MaxDifficulty).
const KeychainSize = MaxDifficulty - MinDifficulty

// U128SlotBoundary is the first keychain index whose seed is encoded as a
// 256-bit value rather than 128-bit (slots below this index are smaller
// for compactness, since small difficulties are mined far more often).
const U128SlotBoundary = 128 - MinDifficulty

// DifficultyAdjustWindow is the number of blocks averaged by the retarget
// controller.
const DifficultyAdjustWindow = 60

// ClampFactor bounds a single retarget step.
const ClampFactor = 1

// DifficultyDampFactor is carried for parity with the reference
// implementation but is not applied by the retarget formula -- see
// DESIGN.md's Open Questions.
const DifficultyDampFactor = 3

// PointDstFactor shrinks the distinguished-point shift so that the
// expected trail length between distinguished points is sqrt(p)/2^PointDstFactor.
const PointDstFactor = 8

// SearchLenFactor scales the Pollard-rho iteration bound: N = sqrt(p) * SearchLenFactor.
const SearchLenFactor = 8

// MaxRestartTries bounds how many times a shared-map parallel worker may
// restart its trajectory after colliding with its own prior solution.
const MaxRestartTries = 10

// UpdateKeyChainRange mirrors the reference implementation's constant of
// the same name, used by hosts that batch keychain refreshes.
const UpdateKeyChainRange = 3

// MiningWorkerTimeoutSec and MiningWorkerBuildTimeSec mirror the host
// block-authoring timeouts the reference node configures its mining
// worker with.
const (
	MiningWorkerTimeoutSec   = 10
	MiningWorkerBuildTimeSec = 10
)

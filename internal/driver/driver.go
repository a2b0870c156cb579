// Package driver runs the mining loop: on every tick it asks the host
// for the chain's current tip and worker metadata, derives the
// per-difficulty public key from the keychain, and hands the puzzle to
// the parallel Pollard-rho solver. A successful solve is submitted back
// to the host; a failed attempt advances the mining seed and tries
// again on the next tip.
package driver

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/NexTokenTech/TREX-PoW/internal/bigint"
	"github.com/NexTokenTech/TREX-PoW/internal/collision"
	"github.com/NexTokenTech/TREX-PoW/internal/consts"
	"github.com/NexTokenTech/TREX-PoW/internal/elgamal"
	"github.com/NexTokenTech/TREX-PoW/internal/hashcompute"
	"github.com/NexTokenTech/TREX-PoW/internal/keychain"
	"github.com/NexTokenTech/TREX-PoW/internal/miningseed"
	"github.com/NexTokenTech/TREX-PoW/internal/pollardrho"
	"github.com/NexTokenTech/TREX-PoW/internal/seal"
	"github.com/NexTokenTech/TREX-PoW/internal/util"
)

// idleSleep is how long the driver parks when it has no work to do,
// matching the reference node's mining thread.
const idleSleep = 1 * time.Second

// grainSize is how many iterations a parallel worker runs between polls
// of the shared cancellation flag.
const grainSize = 10000

// Host is the set of operations the driver needs from whatever consensus
// engine it is embedded in. A real implementation talks to a node over
// RPC; internal/refhost provides an in-memory one for tests and demos.
type Host interface {
	BestTip(ctx context.Context) (height uint64, sealBytes []byte, isGenesis bool, err error)
	WorkerMetadata(ctx context.Context) (difficulty consts.Difficulty, preHash [32]byte, ok bool, err error)
	Submit(ctx context.Context, sealBytes []byte) error
	TimestampNow() int64
	NodeIdentity() []byte
}

// EventKind labels a DriverEvent's lifecycle transition.
type EventKind string

const (
	EventAttemptStarted EventKind = "attempt_started"
	EventSolved         EventKind = "solved"
	EventNotFound       EventKind = "not_found"
	EventSubmitFailed   EventKind = "submit_failed"
)

// DriverEvent is a status-stream notification of a driver lifecycle
// transition. Ephemeral: never persisted, never part of consensus.
type DriverEvent struct {
	Kind       EventKind
	Height     uint64
	Difficulty consts.Difficulty
	Timestamp  int64
}

// EventSink receives DriverEvent notifications. Implementations must not
// block: the driver calls Emit from its own goroutine between attempts,
// never from inside the solver's hot loop.
type EventSink interface {
	Emit(DriverEvent)
}

// Driver owns the mining goroutine and its lifecycle.
type Driver struct {
	host     Host
	store    collision.Store
	cpus     int
	sink     EventSink
	cfg      Config
	recorder AttemptRecorder
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.Mutex
	seed     *big.Int
	lastSeen uint64
	hasSeen  bool

	snapMu   sync.RWMutex
	snapshot Snapshot
}

// Snapshot is a point-in-time read of the driver's mining state, safe to
// poll from the status API on another goroutine.
type Snapshot struct {
	Difficulty     consts.Difficulty
	Height         uint64
	MiningEnabled  bool
	LastPubKeyBits uint32
}

// Status implements the status API's ChainStatus interface.
func (d *Driver) Status() Snapshot {
	d.snapMu.RLock()
	defer d.snapMu.RUnlock()
	return d.snapshot
}

func (d *Driver) recordSnapshot(height uint64, difficulty consts.Difficulty, pub elgamal.PublicKey) {
	d.snapMu.Lock()
	defer d.snapMu.Unlock()
	d.snapshot = Snapshot{
		Difficulty:     difficulty,
		Height:         height,
		MiningEnabled:  d.cfg.Mining,
		LastPubKeyBits: pub.BitLength,
	}
}

// Config carries the mining-enablement flags spec.md §6 names.
type Config struct {
	Mining bool
	Author string
	CPUs   int
}

// AttemptRecorder receives solve-attempt timing, implemented by
// internal/telemetry.Agent. Nil-safe: the driver runs fine without one.
type AttemptRecorder interface {
	RecordSolveAttempt(solved bool, duration time.Duration)
}

// New builds a Driver. Callers resolve a zero worker count to
// runtime.NumCPU() themselves (cmd/trex-miner does), so tests can pin a
// small worker count; New itself falls back to a single worker for
// cfg.CPUs <= 0. recorder may be nil.
func New(host Host, store collision.Store, cfg Config, sink EventSink, recorder AttemptRecorder) *Driver {
	cpus := cfg.CPUs
	if cpus <= 0 {
		cpus = 1
	}
	return &Driver{
		host:     host,
		store:    store,
		cpus:     cpus,
		sink:     sink,
		cfg:      cfg,
		recorder: recorder,
		seed:  miningseed.FromIdentity(host.NodeIdentity()),
	}
}

// Start launches the mining goroutine. No-op if Config.Mining is false.
func (d *Driver) Start() {
	if !d.cfg.Mining {
		util.Info("mining disabled by configuration, driver not started")
		return
	}
	d.ctx, d.cancel = context.WithCancel(context.Background())
	d.wg.Add(1)
	go d.loop()
}

// Stop cancels the mining goroutine and waits for it to return. Safe to
// call even if Start was a no-op.
func (d *Driver) Stop() {
	if d.cancel == nil {
		return
	}
	d.cancel()
	d.wg.Wait()
}

func (d *Driver) emit(ev DriverEvent) {
	if d.sink != nil {
		d.sink.Emit(ev)
	}
}

func (d *Driver) loop() {
	defer d.wg.Done()
	for {
		select {
		case <-d.ctx.Done():
			return
		default:
		}
		progressed, err := d.tick(d.ctx)
		if err != nil {
			util.Errorf("mining driver tick failed: %v", err)
		}
		if !progressed {
			select {
			case <-d.ctx.Done():
				return
			case <-time.After(idleSleep):
			}
		}
	}
}

// tick runs one iteration of the mining loop described by spec.md §4.I.
// It returns progressed=false when the driver found nothing to do and
// should sleep before retrying.
func (d *Driver) tick(ctx context.Context) (bool, error) {
	height, tipSeal, isGenesis, err := d.host.BestTip(ctx)
	if err != nil {
		util.Warnf("best-tip query failed: %v", err)
		return false, nil
	}
	difficulty, preHash, ok, err := d.host.WorkerMetadata(ctx)
	if err != nil {
		util.Warnf("worker metadata query failed: %v", err)
		return false, nil
	}
	if !ok {
		return false, nil
	}
	if d.hasSeen && height == d.lastSeen {
		return false, nil
	}
	d.lastSeen = height
	d.hasSeen = true

	var seeds keychain.KeySeeds
	if isGenesis {
		seeds = keychain.GenesisSeeds()
	} else {
		tip, err := seal.Decode(tipSeal)
		if err != nil {
			util.Warnf("best-tip seal decode failed: %v", err)
			return false, nil
		}
		seeds = tip.Seeds
	}

	keys, err := keychain.YieldPubKeys(seeds)
	if err != nil {
		return false, fmt.Errorf("driver: deriving keychain: %w", err)
	}
	idx := keychain.SlotForDifficulty(difficulty)
	if idx < 0 || idx >= len(keys) {
		return false, fmt.Errorf("driver: difficulty %d out of keychain range", difficulty)
	}
	pub := keys[idx]
	nextSeeds, err := keychain.NextSeeds(keys)
	if err != nil {
		return false, fmt.Errorf("driver: deriving next seed table: %w", err)
	}
	d.recordSnapshot(height, difficulty, pub)

	compute := hashcompute.NewBlake3Compute(difficulty, preHash)
	var cancel atomic.Bool

	d.emit(DriverEvent{Kind: EventAttemptStarted, Height: height, Difficulty: difficulty, Timestamp: d.host.TimestampNow()})

	d.mu.Lock()
	seed := d.seed
	d.mu.Unlock()

	attemptStart := time.Now()
	solutions, nonce, found := pollardrho.SolveParallel(pub, compute, seed, grainSize, &cancel, d.cpus, d.store)
	if d.recorder != nil {
		d.recorder.RecordSolveAttempt(found, time.Since(attemptStart))
	}
	if !found {
		d.mu.Lock()
		d.seed = miningseed.Advance(seed)
		d.mu.Unlock()
		d.emit(DriverEvent{Kind: EventNotFound, Height: height, Difficulty: difficulty, Timestamp: d.host.TimestampNow()})
		return true, nil
	}

	s := seal.Seal{
		Difficulty: difficulty,
		PubKey:     pub.ToRaw(),
		Seeds:      nextSeeds,
		Solutions:  solutions,
		Nonce:      bigint.ToU256(nonce),
	}
	if err := d.host.Submit(ctx, s.Encode()); err != nil {
		d.emit(DriverEvent{Kind: EventSubmitFailed, Height: height, Difficulty: difficulty, Timestamp: d.host.TimestampNow()})
		return true, fmt.Errorf("driver: submitting seal: %w", err)
	}
	d.mu.Lock()
	d.seed = big.NewInt(1)
	d.mu.Unlock()
	d.emit(DriverEvent{Kind: EventSolved, Height: height, Difficulty: difficulty, Timestamp: d.host.TimestampNow()})
	return true, nil
}

// Package difficulty implements the retarget controller: a sliding
// window of (difficulty, timestamp) samples that, once full, nudges the
// current difficulty by at most one step toward the target average block
// time.
package difficulty

import (
	"math"
	"sync"

	"github.com/NexTokenTech/TREX-PoW/internal/consts"
)

type sample struct {
	difficulty consts.Difficulty
	timestamp  int64 // milliseconds
	set        bool
}

// Controller is the ring-buffer retarget state machine described by
// spec.md §4.H. It is safe for concurrent use: OnTimestampSet and
// Difficulty may be called from different goroutines.
type Controller struct {
	mu              sync.Mutex
	targetBlockTime int64 // milliseconds
	window          [consts.DifficultyAdjustWindow]sample
	index           int
	current         consts.Difficulty
}

// NewController builds a retarget controller starting at initial
// difficulty, targeting targetBlockTimeMs between blocks.
func NewController(initial consts.Difficulty, targetBlockTimeMs int64) *Controller {
	return &Controller{current: initial, targetBlockTime: targetBlockTimeMs}
}

// Difficulty returns the controller's current difficulty.
func (c *Controller) Difficulty() consts.Difficulty {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// clamp bounds the log2 ratio of the target window to the measured
// elapsed time to at most one step in either direction, matching
// pallets/difficulty's clamp().
func clamp(targetSeconds, measuredSeconds float64) int64 {
	ratio := targetSeconds / measuredSeconds
	adjustment := math.Round(math.Log2(ratio * ratio))
	if adjustment > consts.ClampFactor {
		return consts.ClampFactor
	}
	if adjustment < -consts.ClampFactor {
		return -consts.ClampFactor
	}
	return int64(adjustment)
}

// OnTimestampSet records a new block timestamp and, once the window
// fills, retargets the difficulty by at most consts.ClampFactor and
// resets the window.
func (c *Controller) OnTimestampSet(nowMs int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.window[c.index] = sample{difficulty: c.current, timestamp: nowMs, set: true}

	if c.index != consts.DifficultyAdjustWindow-1 {
		c.index++
		return
	}

	var elapsedSec int64
	for i := 1; i < consts.DifficultyAdjustWindow; i++ {
		prev, cur := c.window[i-1], c.window[i]
		var delta int64
		if prev.set && cur.set {
			delta = (cur.timestamp - prev.timestamp) / 1000
			if delta < 0 {
				delta = 0
			}
		} else {
			delta = c.targetBlockTime / 1000
		}
		elapsedSec += delta
	}
	if elapsedSec == 0 {
		elapsedSec = 1
	}

	targetWindowSec := float64(c.targetBlockTime/1000) * float64(consts.DifficultyAdjustWindow)
	adjustment := clamp(targetWindowSec, float64(elapsedSec))

	newDifficulty := c.current
	switch {
	case adjustment > 0:
		newDifficulty += consts.ClampFactor
	case adjustment < 0:
		newDifficulty -= consts.ClampFactor
	}
	if newDifficulty < consts.MinDifficulty {
		newDifficulty = consts.MinDifficulty
	} else if newDifficulty > consts.MaxDifficulty {
		newDifficulty = consts.MaxDifficulty
	}

	c.current = newDifficulty
	c.index = 0
	c.window = [consts.DifficultyAdjustWindow]sample{}
}

package collision

import (
	"math/big"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/NexTokenTech/TREX-PoW/internal/puzzle"
)

// storeConformance exercises the insert-if-absent semantics every Store
// implementation must share: the first InsertIfAbsent for a key stores
// its value and reports loaded false; every subsequent call for the
// same key reports the originally stored value and loaded true.
func storeConformance(t *testing.T, store Store) {
	t.Helper()

	work := big.NewInt(424242)
	first := puzzle.Solution{A: big.NewInt(1), B: big.NewInt(2), N: big.NewInt(191)}
	second := puzzle.Solution{A: big.NewInt(3), B: big.NewInt(4), N: big.NewInt(191)}

	existing, loaded := store.InsertIfAbsent(work, first)
	if loaded {
		t.Fatalf("expected the first insert for a fresh key to report loaded=false")
	}
	if !existing.Equal(first) {
		t.Fatalf("expected the first insert to return its own value, got %+v", existing)
	}

	existing, loaded = store.InsertIfAbsent(work, second)
	if !loaded {
		t.Fatalf("expected a second insert for the same key to report loaded=true")
	}
	if !existing.Equal(first) {
		t.Fatalf("expected the second insert to return the original value %+v, got %+v", first, existing)
	}

	distinctWork := big.NewInt(99)
	existing, loaded = store.InsertIfAbsent(distinctWork, second)
	if loaded {
		t.Fatalf("expected a fresh key to report loaded=false regardless of prior inserts")
	}
	if !existing.Equal(second) {
		t.Fatalf("expected the fresh key's insert to return its own value, got %+v", existing)
	}
}

// storeConcurrentInsert confirms exactly one goroutine racing to insert
// the same key observes loaded == false.
func storeConcurrentInsert(t *testing.T, store Store) {
	t.Helper()

	work := big.NewInt(777)
	const workers = 16
	var wg sync.WaitGroup
	var winners int32Counter
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			sol := puzzle.Solution{A: big.NewInt(int64(i)), B: big.NewInt(int64(i)), N: big.NewInt(191)}
			if _, loaded := store.InsertIfAbsent(work, sol); !loaded {
				winners.add(1)
			}
		}(i)
	}
	wg.Wait()
	if got := winners.load(); got != 1 {
		t.Fatalf("expected exactly one winner racing to insert the same key, got %d", got)
	}
}

// int32Counter is a minimal atomic counter local to this test; the
// production code's atomics live in internal/consts-typed packages and
// have no reason to export a test-only counter type.
type int32Counter struct {
	mu sync.Mutex
	n  int
}

func (c *int32Counter) add(delta int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n += delta
}

func (c *int32Counter) load() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func TestMemStoreConformance(t *testing.T) {
	store := NewMemStore()
	defer store.Close()
	storeConformance(t, store)
}

func TestMemStoreConcurrentInsert(t *testing.T) {
	store := NewMemStore()
	defer store.Close()
	storeConcurrentInsert(t, store)
}

func newMiniredisStore(t *testing.T) Store {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	store, err := NewRedisStore(mr.Addr(), "", 0)
	if err != nil {
		t.Fatalf("failed to create redis-backed store: %v", err)
	}
	return store
}

func TestRedisStoreConformance(t *testing.T) {
	store := newMiniredisStore(t)
	defer store.Close()
	storeConformance(t, store)
}

func TestRedisStoreConcurrentInsert(t *testing.T) {
	store := newMiniredisStore(t)
	defer store.Close()
	storeConcurrentInsert(t, store)
}

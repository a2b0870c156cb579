// Package collision implements the shared concurrent map the
// distinguished-point Pollard-rho variant uses to detect a collision
// between two independent walks: "work value seen before -> which
// (a, b) pair produced it". Two implementations satisfy the same Store
// interface, one in-process and one cross-process via Redis.
package collision

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/go-redis/redis/v8"

	"github.com/NexTokenTech/TREX-PoW/internal/puzzle"
	"github.com/NexTokenTech/TREX-PoW/internal/util"
)

// Store is a concurrent-safe insert-if-absent map keyed by a work value.
// InsertIfAbsent must be atomic: if two goroutines race to insert the
// same key, exactly one must observe loaded == false.
type Store interface {
	InsertIfAbsent(work *big.Int, sol puzzle.Solution) (existing puzzle.Solution, loaded bool)
	Close() error
}

// memStore is the default, single-process Store backed by sync.Map.
type memStore struct {
	m sync.Map
}

// NewMemStore builds an in-process collision store, adequate for a
// parallel search confined to one OS process.
func NewMemStore() Store {
	return &memStore{}
}

func (s *memStore) InsertIfAbsent(work *big.Int, sol puzzle.Solution) (puzzle.Solution, bool) {
	actual, loaded := s.m.LoadOrStore(work.String(), sol)
	return actual.(puzzle.Solution), loaded
}

func (s *memStore) Close() error { return nil }

const redisKeyPrefix = "trexpow:dp:"

// redisStore shares distinguished points across OS processes/hosts via
// Redis, using SET NX as the insert-if-absent primitive.
type redisStore struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisStore connects to a Redis instance at addr/db for cross-process
// collision detection. This is optional infrastructure: the default build
// never requires it.
func NewRedisStore(addr, password string, db int) (Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("collision: redis connection failed: %w", err)
	}
	util.Info("collision store connected to redis at ", addr)
	return &redisStore{client: client, ctx: ctx}, nil
}

func (s *redisStore) InsertIfAbsent(work *big.Int, sol puzzle.Solution) (puzzle.Solution, bool) {
	key := redisKeyPrefix + work.String()
	encoded := sol.Encode()
	ok, err := s.client.SetNX(s.ctx, key, encoded, 0).Result()
	if err != nil {
		util.Error("collision: redis SETNX failed: ", err)
		return puzzle.Solution{}, false
	}
	if ok {
		return sol, false
	}
	raw, err := s.client.Get(s.ctx, key).Result()
	if err != nil {
		util.Error("collision: redis GET after SETNX miss failed: ", err)
		return puzzle.Solution{}, false
	}
	existing, err := puzzle.DecodeSolution(raw)
	if err != nil {
		util.Error("collision: corrupt distinguished-point entry: ", err)
		return puzzle.Solution{}, false
	}
	return existing, true
}

func (s *redisStore) Close() error {
	return s.client.Close()
}

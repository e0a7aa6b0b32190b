package specialize

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"sync"
)

// ErrConflictingCacheEntry indicates two different bodies were computed for
// the same specialization key. This is an internal invariant violation, not a
// user-facing diagnostic.
var ErrConflictingCacheEntry = fmt.Errorf("conflicting specialization cache entry")

const cacheShards = 16

// Cache is the per-session specialization store: at most one instance per
// SpecKey. It is safe for concurrent use; two goroutines racing to create the
// same key converge on one winner and the loser observes the winner's
// instance. The cache lives for one compilation session and is discarded with
// it.
type Cache struct {
	shards [cacheShards]cacheShard
}

type cacheShard struct {
	mu sync.Mutex
	m  map[SpecKey]*Instance
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	c := &Cache{}
	for i := range c.shards {
		c.shards[i].m = make(map[SpecKey]*Instance)
	}
	return c
}

func (c *Cache) shard(key SpecKey) *cacheShard {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(key.Fn))
	h := fnv.New32a()
	h.Write(buf[:])
	h.Write([]byte(key.Set))
	return &c.shards[h.Sum32()%cacheShards]
}

// GetOrCreate returns the instance for key, building it with build on first
// request. build runs outside the shard lock, so it may itself consult the
// cache; a lost insert race is resolved by returning the winner's instance.
// Returns ErrConflictingCacheEntry if a racing build produced a different
// body for the same key.
func (c *Cache) GetOrCreate(key SpecKey, build func() (*Instance, error)) (*Instance, error) {
	shard := c.shard(key)

	shard.mu.Lock()
	if inst, ok := shard.m[key]; ok {
		shard.mu.Unlock()
		return inst, nil
	}
	shard.mu.Unlock()

	inst, err := build()
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, fmt.Errorf("instance build for %v returned nil", key)
	}

	shard.mu.Lock()
	defer shard.mu.Unlock()
	if existing, ok := shard.m[key]; ok {
		if existing.Hash != inst.Hash {
			return nil, fmt.Errorf("%w: key %v resolved to two different bodies", ErrConflictingCacheEntry, key)
		}
		return existing, nil
	}
	shard.m[key] = inst
	return inst, nil
}

// Get returns the instance for key if it exists.
func (c *Cache) Get(key SpecKey) (*Instance, bool) {
	shard := c.shard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	inst, ok := shard.m[key]
	return inst, ok
}

// Len returns the number of cached instances.
func (c *Cache) Len() int {
	total := 0
	for i := range c.shards {
		c.shards[i].mu.Lock()
		total += len(c.shards[i].m)
		c.shards[i].mu.Unlock()
	}
	return total
}

// Snapshot returns every cached instance. The cache must be sealed (no more
// writers) before consuming the result.
func (c *Cache) Snapshot() []*Instance {
	out := make([]*Instance, 0, c.Len())
	for i := range c.shards {
		c.shards[i].mu.Lock()
		for _, inst := range c.shards[i].m {
			out = append(out, inst)
		}
		c.shards[i].mu.Unlock()
	}
	return out
}

package specialize

import (
	"errors"
	"sync"
	"testing"

	"golang.org/x/sync/errgroup"

	"capc/internal/caps"
	"capc/internal/prog"
)

func testInstance(key SpecKey, symbol string, body []InstOp) *Instance {
	return &Instance{
		Key:    key,
		Symbol: symbol,
		Set:    caps.SetFromKey(key.Set),
		Body:   body,
		Hash:   bodyHash(symbol, body),
	}
}

func TestCacheDedup(t *testing.T) {
	cache := NewCache()
	key := SpecKey{Fn: prog.FuncID(1), Set: caps.Key("f1")}

	builds := 0
	build := func() (*Instance, error) {
		builds++
		return testInstance(key, "kernel$f1", nil), nil
	}

	first, err := cache.GetOrCreate(key, build)
	if err != nil {
		t.Fatal(err)
	}
	second, err := cache.GetOrCreate(key, build)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Fatal("same key must return the identical instance")
	}
	if builds != 1 {
		t.Fatalf("build ran %d times, want 1", builds)
	}
	if cache.Len() != 1 {
		t.Fatalf("cache len: got %d want 1", cache.Len())
	}
}

func TestCacheConcurrentIdempotence(t *testing.T) {
	cache := NewCache()
	key := SpecKey{Fn: prog.FuncID(7), Set: caps.Key("f1+f2")}

	var (
		mu   sync.Mutex
		seen = make(map[*Instance]struct{})
	)
	var g errgroup.Group
	for range 32 {
		g.Go(func() error {
			inst, err := cache.GetOrCreate(key, func() (*Instance, error) {
				return testInstance(key, "kernel$f1+f2", nil), nil
			})
			if err != nil {
				return err
			}
			mu.Lock()
			seen[inst] = struct{}{}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 1 {
		t.Fatalf("racing requests observed %d distinct instances, want 1", len(seen))
	}
	if cache.Len() != 1 {
		t.Fatalf("cache len: got %d want 1", cache.Len())
	}
}

func TestCacheConflictDetection(t *testing.T) {
	cache := NewCache()
	key := SpecKey{Fn: prog.FuncID(3), Set: caps.Key("f1")}

	if _, err := cache.GetOrCreate(key, func() (*Instance, error) {
		return testInstance(key, "a$f1", []InstOp{{Kind: InstOpBool, Cap: "f1", Value: true}}), nil
	}); err != nil {
		t.Fatal(err)
	}

	// Simulate a lost race that produced a different body for the same key.
	shard := cache.shard(key)
	shard.mu.Lock()
	delete(shard.m, key)
	shard.mu.Unlock()

	done := make(chan struct{})
	_, err := cache.GetOrCreate(key, func() (*Instance, error) {
		// Reinsert the original instance while this build is in flight.
		shard.mu.Lock()
		shard.m[key] = testInstance(key, "a$f1", []InstOp{{Kind: InstOpBool, Cap: "f1", Value: true}})
		shard.mu.Unlock()
		close(done)
		return testInstance(key, "a$f1", []InstOp{{Kind: InstOpBool, Cap: "f1", Value: false}}), nil
	})
	<-done
	if !errors.Is(err, ErrConflictingCacheEntry) {
		t.Fatalf("want ErrConflictingCacheEntry, got %v", err)
	}
}

func TestCacheBuildErrorNotCached(t *testing.T) {
	cache := NewCache()
	key := SpecKey{Fn: prog.FuncID(2), Set: caps.Key("")}

	boom := errors.New("boom")
	if _, err := cache.GetOrCreate(key, func() (*Instance, error) {
		return nil, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("want build error, got %v", err)
	}
	if cache.Len() != 0 {
		t.Fatal("failed build must not be cached")
	}

	inst, err := cache.GetOrCreate(key, func() (*Instance, error) {
		return testInstance(key, "a$", nil), nil
	})
	if err != nil || inst == nil {
		t.Fatalf("retry after failure: %v", err)
	}
}

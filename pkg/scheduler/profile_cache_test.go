package scheduler

import (
	"context"
	"testing"
	"time"
)

func TestProfileCacheMemory(t *testing.T) {
	current := time.Date(2021, 6, 2, 12, 0, 0, 0, time.UTC)
	now = func() time.Time { return current }
	defer func() { now = time.Now }()

	cache, err := NewProfileCacheMemory(2, time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	profile := BuildProfile("a", nil)

	if _, err := cache.Get(ctx, "a"); err == nil {
		t.Error("expected a miss on an empty cache")
	}

	_ = cache.Add(ctx, "a", 0, profile)

	got, err := cache.Get(ctx, "a")
	if err != nil || got != profile {
		t.Errorf("Get() = %v, %v", got, err)
	}

	_ = cache.Invalidate(ctx, "a")
	if _, err := cache.Get(ctx, "a"); err == nil {
		t.Error("expected a miss after invalidation")
	}

	generation, _ := cache.Generation(ctx, "a")
	if generation != 1 {
		t.Errorf("Generation() = %d after one invalidation", generation)
	}

	_ = cache.Add(ctx, "a", generation, profile)
	current = current.Add(time.Minute)
	if _, err := cache.Get(ctx, "a"); err == nil {
		t.Error("expected a miss after the ttl passed")
	}

	_ = cache.Add(ctx, "a", generation, profile)
	_ = cache.Add(ctx, "b", 0, profile)
	_ = cache.Add(ctx, "c", 0, profile)
	if _, err := cache.Get(ctx, "a"); err == nil {
		t.Error("expected the least recently used entry to be evicted")
	}
}

func TestProfileCacheMemory_OutdatedGeneration(t *testing.T) {
	cache, err := NewProfileCacheMemory(10, time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()

	generation, _ := cache.Generation(ctx, "a")
	_ = cache.Invalidate(ctx, "a")
	_ = cache.Add(ctx, "a", generation, BuildProfile("a", nil))

	if _, err := cache.Get(ctx, "a"); err == nil {
		t.Error("a profile built before the invalidation must not be served")
	}

	_ = cache.Add(ctx, "b", 0, BuildProfile("b", nil))
	_ = cache.Invalidate(ctx, "a")
	if _, err := cache.Get(ctx, "b"); err != nil {
		t.Errorf("invalidating one user dropped another: %v", err)
	}
}

package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/cache/v8"
	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru"
)

// ProfileCacheTTL bounds how long a cached profile is served
const ProfileCacheTTL = time.Minute * 5

// ProfileCacheInterface caches profiles by user id. Every user has a generation that Invalidate
// increments. A profile is only served while the generation it was added with is the current one,
// so a profile built from a read that started before an invalidation is never served after it.
type ProfileCacheInterface interface {
	Generation(ctx context.Context, userID string) (int64, error)
	Add(ctx context.Context, userID string, generation int64, profile *Profile) error
	Invalidate(ctx context.Context, userID string) error
	Get(ctx context.Context, userID string) (*Profile, error)
}

func profileCacheKey(userID string) string {
	return "productivity-profile-" + userID
}

func profileGenerationKey(userID string) string {
	return "productivity-profile-generation-" + userID
}

type profileCacheEntry struct {
	profile    *Profile
	generation int64
	expiresAt  time.Time
}

// ProfileCacheMemory caches profiles in process
type ProfileCacheMemory struct {
	Cache       *lru.Cache
	TTL         time.Duration
	generations map[string]int64
	mutex       sync.Mutex
}

// NewProfileCacheMemory initializes a new ProfileCacheMemory holding up to size profiles
func NewProfileCacheMemory(size int, ttl time.Duration) (*ProfileCacheMemory, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}

	return &ProfileCacheMemory{
		Cache:       c,
		TTL:         ttl,
		generations: map[string]int64{},
	}, nil
}

// Generation returns the current generation of the user
func (c *ProfileCacheMemory) Generation(_ context.Context, userID string) (int64, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.generations[userID], nil
}

// Add adds a profile built at generation, outdated profiles are dropped
func (c *ProfileCacheMemory) Add(_ context.Context, userID string, generation int64, profile *Profile) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if generation != c.generations[userID] {
		return nil
	}

	_ = c.Cache.Add(profileCacheKey(userID), &profileCacheEntry{
		profile:    profile,
		generation: generation,
		expiresAt:  now().Add(c.TTL),
	})
	return nil
}

// Invalidate removes a profile from the cache and starts a new generation
func (c *ProfileCacheMemory) Invalidate(_ context.Context, userID string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.generations[userID]++
	c.Cache.Remove(profileCacheKey(userID))
	return nil
}

// Get retrieves a profile from the cache
func (c *ProfileCacheMemory) Get(_ context.Context, userID string) (*Profile, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	key := profileCacheKey(userID)

	result, ok := c.Cache.Get(key)
	if !ok {
		return nil, fmt.Errorf("could not find key %s in profile cache", key)
	}

	entry, ok := result.(*profileCacheEntry)
	if !ok {
		return nil, fmt.Errorf("cache entry was not a profile cache entry")
	}

	if entry.generation != c.generations[userID] || !now().Before(entry.expiresAt) {
		c.Cache.Remove(key)
		return nil, fmt.Errorf("profile cache entry %s is outdated", key)
	}

	return entry.profile, nil
}

// ProfileGenerationTTL keeps the generation of a user in redis well beyond the life of a profile
const ProfileGenerationTTL = time.Hour * 24

type profileCacheItem struct {
	Generation int64    `msgpack:"generation"`
	Profile    *Profile `msgpack:"profile"`
}

// ProfileCacheRedis caches profiles in redis so all instances share them
type ProfileCacheRedis struct {
	Client *redis.Client
	Cache  *cache.Cache
	TTL    time.Duration
}

// NewProfileCacheRedis initializes a new ProfileCacheRedis
func NewProfileCacheRedis(redisClient *redis.Client, ttl time.Duration) *ProfileCacheRedis {
	redisCache := cache.New(&cache.Options{
		Redis: redisClient,
	})

	return &ProfileCacheRedis{
		Client: redisClient,
		Cache:  redisCache,
		TTL:    ttl,
	}
}

// Generation returns the current generation of the user, 0 if it was never invalidated
func (c *ProfileCacheRedis) Generation(ctx context.Context, userID string) (int64, error) {
	generation, err := c.Client.Get(ctx, profileGenerationKey(userID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}

	return generation, err
}

// Add adds a profile built at generation
func (c *ProfileCacheRedis) Add(ctx context.Context, userID string, generation int64, profile *Profile) error {
	current, err := c.Generation(ctx, userID)
	if err != nil {
		return err
	}

	if current != generation {
		return nil
	}

	return c.Cache.Set(&cache.Item{
		Ctx:   ctx,
		Key:   profileCacheKey(userID),
		Value: &profileCacheItem{Generation: generation, Profile: profile},
		TTL:   c.TTL,
	})
}

// Invalidate starts a new generation and deletes the entry
func (c *ProfileCacheRedis) Invalidate(ctx context.Context, userID string) error {
	_, err := c.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, profileGenerationKey(userID))
		pipe.Expire(ctx, profileGenerationKey(userID), ProfileGenerationTTL)
		return nil
	})
	if err != nil {
		return err
	}

	err = c.Cache.Delete(ctx, profileCacheKey(userID))
	if err != nil && err != cache.ErrCacheMiss {
		return err
	}

	return nil
}

// Get retrieves a profile if it belongs to the current generation
func (c *ProfileCacheRedis) Get(ctx context.Context, userID string) (*Profile, error) {
	item := profileCacheItem{}
	err := c.Cache.Get(ctx, profileCacheKey(userID), &item)
	if err != nil {
		return nil, err
	}

	current, err := c.Generation(ctx, userID)
	if err != nil {
		return nil, err
	}

	if item.Generation != current || item.Profile == nil {
		return nil, cache.ErrCacheMiss
	}

	return item.Profile, nil
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/storefront/stores/internal/domain/shared"
	"github.com/storefront/stores/internal/domain/store"
	"github.com/storefront/stores/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const profileKeyPrefix = "store:profile:"

// invalidateScanBatch bounds how many keys a single SCAN iteration returns
// so invalidation never blocks Redis on large keyspaces.
const invalidateScanBatch = 100

// Client is the subset of redis commands the profile cache issues.
// *redis.Client implements it.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// ProfileLoader loads a profile from the authoritative store on a cache
// miss. It is an alias so callers can pass plain closures.
type ProfileLoader = func(ctx context.Context) (*store.Profile, error)

// cacheEntry is the serialized form of a cached lookup. NotFound entries
// remember misses so repeated lookups of absent profiles do not hammer
// the database.
type cacheEntry struct {
	Version  int            `json:"version"`
	NotFound bool           `json:"not_found"`
	Profile  *store.Profile `json:"profile,omitempty"`
	CachedAt time.Time      `json:"cached_at"`
}

// loadState tracks the loads in flight for one cache key. Invalidate
// bumps the epoch; a load whose epoch moved while it ran read its row
// before the invalidating write committed and must not be stored.
type loadState struct {
	loads int
	epoch uint64
}

// ProfileCache is a read-through Redis cache for store profiles.
//
// Correctness comes from invalidate-on-write: every successful mutation
// deletes the profile's keys before the write is acknowledged, so a
// subsequent read rebuilds the entry from the database. TTLs only bound
// staleness when an invalidation is lost.
//
// A Redis outage degrades reads to the loader instead of failing them.
type ProfileCache struct {
	client      Client
	ttl         time.Duration
	negativeTTL time.Duration
	group       singleflight.Group
	logger      *zap.Logger

	mu       sync.Mutex
	inFlight map[string]*loadState
}

// NewProfileCache creates a ProfileCache on an existing Redis client.
func NewProfileCache(client Client, ttl, negativeTTL time.Duration, log *zap.Logger) *ProfileCache {
	return &ProfileCache{
		client:      client,
		ttl:         ttl,
		negativeTTL: negativeTTL,
		logger:      log.Named("profile-cache"),
		inFlight:    make(map[string]*loadState),
	}
}

// Key returns the cache key for a profile rendered in a locale.
func Key(id uuid.UUID, locale string) string {
	return profileKeyPrefix + id.String() + ":" + locale
}

// Fetch returns the cached profile for (id, locale), loading and caching
// it on a miss. Concurrent misses for the same key collapse into a single
// loader call. A cached not-found entry yields shared.ErrNotFound without
// touching the database.
func (c *ProfileCache) Fetch(ctx context.Context, id uuid.UUID, locale string, loader ProfileLoader) (*store.Profile, error) {
	key := Key(id, locale)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var entry cacheEntry
		if jsonErr := json.Unmarshal(raw, &entry); jsonErr == nil {
			telemetry.CacheHits.Inc()
			if entry.NotFound {
				return nil, shared.ErrNotFound
			}
			return entry.Profile, nil
		}
		// Undecodable entry: treat as a miss and let the rebuild overwrite it.
		c.logger.Warn("dropping corrupt cache entry", zap.String("key", key))

	case errors.Is(err, redis.Nil):
		telemetry.CacheMisses.Inc()

	default:
		// Redis is unreachable. Serve the read from the database and
		// keep the request alive.
		telemetry.CacheDegraded.Inc()
		c.logger.Warn("cache unavailable, reading through", zap.String("key", key), zap.Error(err))
		return loader(ctx)
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		epoch := c.beginLoad(key)
		profile, loadErr := loader(ctx)
		fresh := c.endLoad(key, epoch)

		if errors.Is(loadErr, shared.ErrNotFound) {
			if fresh {
				c.set(ctx, key, cacheEntry{NotFound: true, CachedAt: time.Now().UTC()}, c.negativeTTL)
			}
			return nil, loadErr
		}
		if loadErr != nil {
			return nil, loadErr
		}
		if fresh {
			c.set(ctx, key, cacheEntry{
				Version:  profile.Version,
				Profile:  profile,
				CachedAt: time.Now().UTC(),
			}, c.ttl)
		}
		return profile, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*store.Profile), nil
}

// beginLoad registers a load in flight for key and returns the epoch it
// started under.
func (c *ProfileCache) beginLoad(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.inFlight[key]
	if st == nil {
		st = &loadState{}
		c.inFlight[key] = st
	}
	st.loads++
	return st.epoch
}

// endLoad deregisters a load and reports whether its result is still
// current, meaning no invalidation ran while the row was being read.
func (c *ProfileCache) endLoad(key string, epoch uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.inFlight[key]
	if st == nil {
		return false
	}
	fresh := st.epoch == epoch
	st.loads--
	if st.loads == 0 {
		delete(c.inFlight, key)
	}
	return fresh
}

// set writes an entry best-effort; a failed write only costs a future miss.
func (c *ProfileCache) set(ctx context.Context, key string, entry cacheEntry, ttl time.Duration) {
	raw, err := json.Marshal(entry)
	if err != nil {
		c.logger.Error("failed to encode cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		c.logger.Warn("failed to write cache entry", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate removes every cached rendering of the profile, across all
// locales. Callers invoke it after each successful write; the next read
// rebuilds the entry from the committed row.
//
// Loads in flight are expired first: their row may predate the write
// that triggered this invalidation, so their result must neither be
// stored nor handed to readers that arrive after the write.
//
// Errors are logged, not returned: if Redis is down, reads are already
// degrading to the database, so no stale entry can be served.
func (c *ProfileCache) Invalidate(ctx context.Context, id uuid.UUID) {
	prefix := profileKeyPrefix + id.String() + ":"

	c.mu.Lock()
	for key, st := range c.inFlight {
		if strings.HasPrefix(key, prefix) {
			st.epoch++
			c.group.Forget(key)
		}
	}
	c.mu.Unlock()

	pattern := prefix + "*"
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, invalidateScanBatch).Result()
		if err != nil {
			telemetry.CacheDegraded.Inc()
			c.logger.Warn("cache invalidation scan failed", zap.String("pattern", pattern), zap.Error(err))
			return
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				telemetry.CacheDegraded.Inc()
				c.logger.Warn("cache invalidation delete failed", zap.Strings("keys", keys), zap.Error(err))
				return
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	telemetry.CacheInvalidations.Inc()
}

// Ping reports whether the cache backend is reachable.
func (c *ProfileCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache ping failed: %w", err)
	}
	return nil
}

package cache

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/storefront/stores/internal/domain/shared"
	"github.com/storefront/stores/internal/domain/store"
	"go.uber.org/zap"
)

// fakeRedis is an in-memory Client for tests that need a reachable
// backend. TTLs are ignored; expiry is not under test here.
type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string)}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := strings.TrimSuffix(match, "*")
	var keys []string
	for k := range f.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return redis.NewScanCmdResult(keys, 0, nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			deleted++
		}
	}
	return redis.NewIntResult(deleted, nil)
}

func (f *fakeRedis) Ping(ctx context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeRedis) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.data))
	for k := range f.data {
		out = append(out, k)
	}
	return out
}

// unreachableClient returns a client pointed at a closed port so every
// command fails fast.
func unreachableClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func newTestProfile(t *testing.T) *store.Profile {
	t.Helper()
	p, err := store.NewProfile(uuid.New(), "default", "Night Market", "night-market", "en", "EUR")
	require.NoError(t, err)
	return p
}

func TestKey(t *testing.T) {
	id := uuid.MustParse("3d6b8f9c-8f0e-4f39-b1a5-5a0a4f1b2c3d")
	assert.Equal(t, "store:profile:3d6b8f9c-8f0e-4f39-b1a5-5a0a4f1b2c3d:de", Key(id, "de"))
}

func TestCacheEntry_RoundTrip(t *testing.T) {
	p := newTestProfile(t)
	entry := cacheEntry{Version: p.Version, Profile: p, CachedAt: time.Now().UTC()}

	raw, err := json.Marshal(entry)
	require.NoError(t, err)

	var decoded cacheEntry
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.False(t, decoded.NotFound)
	assert.Equal(t, p.ID, decoded.Profile.ID)
	assert.Equal(t, p.DisplayName, decoded.Profile.DisplayName)
	assert.Equal(t, p.Version, decoded.Version)
}

func TestProfileCache_Fetch_MissLoadsThenHits(t *testing.T) {
	backend := newFakeRedis()
	c := NewProfileCache(backend, time.Minute, time.Second, zap.NewNop())
	p := newTestProfile(t)

	var loads atomic.Int32
	loader := func(ctx context.Context) (*store.Profile, error) {
		loads.Add(1)
		return p, nil
	}

	got, err := c.Fetch(context.Background(), p.ID, "en", loader)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	require.Len(t, backend.keys(), 1)

	// second read is a hit and must not touch the loader
	got, err = c.Fetch(context.Background(), p.ID, "en", loader)
	require.NoError(t, err)
	assert.Equal(t, p.DisplayName, got.DisplayName)
	assert.Equal(t, int32(1), loads.Load())
}

func TestProfileCache_Fetch_CachesNotFound(t *testing.T) {
	backend := newFakeRedis()
	c := NewProfileCache(backend, time.Minute, time.Second, zap.NewNop())
	id := uuid.New()

	var loads atomic.Int32
	loader := func(ctx context.Context) (*store.Profile, error) {
		loads.Add(1)
		return nil, shared.ErrNotFound
	}

	_, err := c.Fetch(context.Background(), id, "en", loader)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	// the miss is remembered; the database is not asked again
	_, err = c.Fetch(context.Background(), id, "en", loader)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Equal(t, int32(1), loads.Load())
}

func TestProfileCache_Fetch_CollapsesConcurrentMisses(t *testing.T) {
	backend := newFakeRedis()
	c := NewProfileCache(backend, time.Minute, time.Second, zap.NewNop())
	p := newTestProfile(t)

	var loads atomic.Int32
	release := make(chan struct{})
	loader := func(ctx context.Context) (*store.Profile, error) {
		loads.Add(1)
		<-release
		return p, nil
	}

	const readers = 20
	var started, done sync.WaitGroup
	started.Add(readers)
	done.Add(readers)
	for i := 0; i < readers; i++ {
		go func() {
			defer done.Done()
			started.Done()
			got, err := c.Fetch(context.Background(), p.ID, "en", loader)
			assert.NoError(t, err)
			assert.Equal(t, p.ID, got.ID)
		}()
	}

	started.Wait()
	time.Sleep(20 * time.Millisecond) // let every reader join the shared flight
	close(release)
	done.Wait()

	assert.Equal(t, int32(1), loads.Load(), "concurrent misses must share one load")
}

func TestProfileCache_Invalidate_RemovesAllLocaleVariants(t *testing.T) {
	backend := newFakeRedis()
	c := NewProfileCache(backend, time.Minute, time.Second, zap.NewNop())
	p := newTestProfile(t)

	loader := func(ctx context.Context) (*store.Profile, error) { return p, nil }
	for _, locale := range []string{"en", "de", "fr"} {
		_, err := c.Fetch(context.Background(), p.ID, locale, loader)
		require.NoError(t, err)
	}
	require.Len(t, backend.keys(), 3)

	c.Invalidate(context.Background(), p.ID)
	assert.Empty(t, backend.keys())

	var loads atomic.Int32
	_, err := c.Fetch(context.Background(), p.ID, "en", func(ctx context.Context) (*store.Profile, error) {
		loads.Add(1)
		return p, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), loads.Load(), "invalidated entry must rebuild from the loader")
}

func TestProfileCache_Fetch_DiscardsLoadOverlappingInvalidation(t *testing.T) {
	backend := newFakeRedis()
	c := NewProfileCache(backend, time.Minute, time.Second, zap.NewNop())

	p := newTestProfile(t) // version 1 as the row looked before the write
	updated := *p
	updated.Version = 2

	loaderStarted := make(chan struct{})
	release := make(chan struct{})
	firstDone := make(chan struct{})

	go func() {
		defer close(firstDone)
		_, _ = c.Fetch(context.Background(), p.ID, "en", func(ctx context.Context) (*store.Profile, error) {
			close(loaderStarted)
			<-release
			return p, nil
		})
	}()

	// A write commits and invalidates while the load still holds the
	// pre-write row.
	<-loaderStarted
	c.Invalidate(context.Background(), p.ID)
	close(release)
	<-firstDone

	assert.Empty(t, backend.keys(), "overlapped load must not be written back")

	var loads atomic.Int32
	got, err := c.Fetch(context.Background(), p.ID, "en", func(ctx context.Context) (*store.Profile, error) {
		loads.Add(1)
		return &updated, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), loads.Load(), "read after the write must go back to the database")
	assert.Equal(t, 2, got.Version)
}

func TestProfileCache_Fetch_DiscardsNotFoundOverlappingInvalidation(t *testing.T) {
	backend := newFakeRedis()
	c := NewProfileCache(backend, time.Minute, time.Second, zap.NewNop())
	p := newTestProfile(t)

	loaderStarted := make(chan struct{})
	release := make(chan struct{})
	firstDone := make(chan struct{})

	// The loader misses the row because the create has not committed yet;
	// the create then commits and invalidates before the loader returns.
	go func() {
		defer close(firstDone)
		_, _ = c.Fetch(context.Background(), p.ID, "en", func(ctx context.Context) (*store.Profile, error) {
			close(loaderStarted)
			<-release
			return nil, shared.ErrNotFound
		})
	}()

	<-loaderStarted
	c.Invalidate(context.Background(), p.ID)
	close(release)
	<-firstDone

	assert.Empty(t, backend.keys(), "stale not-found must not be cached over a committed create")

	got, err := c.Fetch(context.Background(), p.ID, "en", func(ctx context.Context) (*store.Profile, error) {
		return p, nil
	})
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
}

func TestProfileCache_Fetch_DegradesWhenRedisUnavailable(t *testing.T) {
	client := unreachableClient()
	defer client.Close()

	c := NewProfileCache(client, time.Minute, time.Second, zap.NewNop())
	p := newTestProfile(t)

	var calls atomic.Int32
	got, err := c.Fetch(context.Background(), p.ID, "en", func(ctx context.Context) (*store.Profile, error) {
		calls.Add(1)
		return p, nil
	})

	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, int32(1), calls.Load(), "degraded read should call the loader exactly once")
}

func TestProfileCache_Fetch_DegradedNotFoundPassesThrough(t *testing.T) {
	client := unreachableClient()
	defer client.Close()

	c := NewProfileCache(client, time.Minute, time.Second, zap.NewNop())

	_, err := c.Fetch(context.Background(), uuid.New(), "en", func(ctx context.Context) (*store.Profile, error) {
		return nil, shared.ErrNotFound
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestProfileCache_Fetch_DegradedLoaderErrorSurfaces(t *testing.T) {
	client := unreachableClient()
	defer client.Close()

	c := NewProfileCache(client, time.Minute, time.Second, zap.NewNop())

	_, err := c.Fetch(context.Background(), uuid.New(), "en", func(ctx context.Context) (*store.Profile, error) {
		return nil, shared.ErrUnavailable
	})
	assert.ErrorIs(t, err, shared.ErrUnavailable)
}

func TestProfileCache_Invalidate_SwallowsBackendFailure(t *testing.T) {
	client := unreachableClient()
	defer client.Close()

	c := NewProfileCache(client, time.Minute, time.Second, zap.NewNop())

	// Must not panic or block; writes stay acknowledged even when the
	// cache backend is down.
	c.Invalidate(context.Background(), uuid.New())
}

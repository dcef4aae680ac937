package repository

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linklet/internal/cache"
	"linklet/internal/entities"
	"linklet/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRepo(t *testing.T) (ShortLinkRepository, *store.MemoryStore, *cache.MemoryCache) {
	t.Helper()
	recordStore := store.NewMemoryStore()
	memCache := cache.NewMemoryCache()
	repo := NewShortLinkRepository(recordStore, memCache, time.Hour, testLogger())
	return repo, recordStore, memCache
}

func newLink(code, target string) *entities.ShortLink {
	return &entities.ShortLink{ShortCode: code, TargetURL: target}
}

func TestCreateThenGetByCode(t *testing.T) {
	ctx := context.Background()
	repo, _, _ := newTestRepo(t)

	created, err := repo.Create(ctx, newLink("abc234", "https://example.com"))
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	assert.True(t, created.IsActive)

	got, err := repo.GetByCode(ctx, "abc234")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.TargetURL, got.TargetURL)
}

func TestGetByCodeServesCacheHitWithoutStore(t *testing.T) {
	ctx := context.Background()
	repo, recordStore, _ := newTestRepo(t)

	_, err := repo.Create(ctx, newLink("abc234", "https://example.com"))
	require.NoError(t, err)

	// Remove the row behind the repository's back; a cache hit must not
	// consult the record store.
	_, err = recordStore.Delete(ctx, "abc234")
	require.NoError(t, err)

	got, err := repo.GetByCode(ctx, "abc234")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", got.TargetURL)
}

func TestGetByCodeMissIsNotCached(t *testing.T) {
	ctx := context.Background()
	repo, recordStore, _ := newTestRepo(t)

	_, err := repo.GetByCode(ctx, "abc234")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// A creation after the miss must be visible immediately; a cached
	// negative would mask it.
	_, err = recordStore.Insert(ctx, newLink("abc234", "https://example.com"))
	require.NoError(t, err)

	got, err := repo.GetByCode(ctx, "abc234")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", got.TargetURL)
}

func TestGetByAliasBypassesCache(t *testing.T) {
	ctx := context.Background()
	repo, _, memCache := newTestRepo(t)

	alias := "promo"
	link := newLink("abc234", "https://example.com")
	link.CustomAlias = &alias
	_, err := repo.Create(ctx, link)
	require.NoError(t, err)

	got, err := repo.GetByAlias(ctx, "promo")
	require.NoError(t, err)
	assert.Equal(t, "abc234", got.ShortCode)

	exists, err := memCache.Exists(ctx, "link:promo")
	require.NoError(t, err)
	assert.False(t, exists, "aliases must not get their own cache entries")

	_, err = repo.GetByAlias(ctx, "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateRepopulatesCache(t *testing.T) {
	ctx := context.Background()
	repo, recordStore, _ := newTestRepo(t)

	created, err := repo.Create(ctx, newLink("abc234", "https://example.com"))
	require.NoError(t, err)

	desc := "campaign link"
	_, err = repo.Update(ctx, created.ID, store.UpdateFields{Description: &desc})
	require.NoError(t, err)

	// Force the cache-hit path: with the row gone, the fresh description can
	// only come from the repopulated entry.
	_, err = recordStore.Delete(ctx, "abc234")
	require.NoError(t, err)

	got, err := repo.GetByCode(ctx, "abc234")
	require.NoError(t, err)
	require.NotNil(t, got.Description)
	assert.Equal(t, "campaign link", *got.Description)
}

func TestIncrementClicksInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	repo, _, memCache := newTestRepo(t)

	_, err := repo.Create(ctx, newLink("abc234", "https://example.com"))
	require.NoError(t, err)

	ok, err := repo.IncrementClicks(ctx, "abc234")
	require.NoError(t, err)
	require.True(t, ok)

	exists, err := memCache.Exists(ctx, "link:abc234")
	require.NoError(t, err)
	assert.False(t, exists, "increment must invalidate, not repopulate")

	got, err := repo.GetByCode(ctx, "abc234")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ClickCount)
}

func TestDeactivateAndDeleteInvalidateCache(t *testing.T) {
	ctx := context.Background()
	repo, _, _ := newTestRepo(t)

	_, err := repo.Create(ctx, newLink("abc234", "https://example.com"))
	require.NoError(t, err)

	ok, err := repo.Deactivate(ctx, "abc234")
	require.NoError(t, err)
	require.True(t, ok)

	// No stale-cache window: the next read must see the deactivated state.
	got, err := repo.GetByCode(ctx, "abc234")
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	ok, err = repo.Delete(ctx, "abc234")
	require.NoError(t, err)
	require.True(t, ok)

	_, err = repo.GetByCode(ctx, "abc234")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestConflictTranslation(t *testing.T) {
	ctx := context.Background()
	repo, _, _ := newTestRepo(t)

	alias := "promo"
	first := newLink("abc234", "https://example.com")
	first.CustomAlias = &alias
	_, err := repo.Create(ctx, first)
	require.NoError(t, err)

	_, err = repo.Create(ctx, newLink("abc234", "https://other.example.com"))
	var conflict *store.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, store.FieldShortCode, conflict.Field)
	assert.Equal(t, "abc234", conflict.Value)

	second := newLink("xyz789", "https://other.example.com")
	second.CustomAlias = &alias
	_, err = repo.Create(ctx, second)
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, store.FieldCustomAlias, conflict.Field)
	assert.Equal(t, "promo", conflict.Value)
}

// brokenCache fails every operation; the repository must absorb it all.
type brokenCache struct{}

var errCacheDown = errors.New("cache down")

func (brokenCache) Get(context.Context, string) (string, error) { return "", errCacheDown }
func (brokenCache) Set(context.Context, string, string, time.Duration) error {
	return errCacheDown
}
func (brokenCache) Delete(context.Context, string) error         { return errCacheDown }
func (brokenCache) Exists(context.Context, string) (bool, error) { return false, errCacheDown }
func (brokenCache) Incr(context.Context, string) (int64, error)  { return 0, errCacheDown }
func (brokenCache) Expire(context.Context, string, time.Duration) error {
	return errCacheDown
}
func (brokenCache) SetJSON(context.Context, string, interface{}, time.Duration) error {
	return errCacheDown
}
func (brokenCache) GetJSON(context.Context, string, interface{}) error { return errCacheDown }

func TestCacheFailuresAreAbsorbed(t *testing.T) {
	ctx := context.Background()
	recordStore := store.NewMemoryStore()
	repo := NewShortLinkRepository(recordStore, brokenCache{}, time.Hour, testLogger())

	created, err := repo.Create(ctx, newLink("abc234", "https://example.com"))
	require.NoError(t, err)

	got, err := repo.GetByCode(ctx, "abc234")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	ok, err := repo.IncrementClicks(ctx, "abc234")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Deactivate(ctx, "abc234")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Delete(ctx, "abc234")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNilCacheRunsCacheless(t *testing.T) {
	ctx := context.Background()
	recordStore := store.NewMemoryStore()
	repo := NewShortLinkRepository(recordStore, nil, time.Hour, testLogger())

	_, err := repo.Create(ctx, newLink("abc234", "https://example.com"))
	require.NoError(t, err)

	got, err := repo.GetByCode(ctx, "abc234")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", got.TargetURL)
}

func TestConcurrentIncrementsAreNotLost(t *testing.T) {
	ctx := context.Background()
	repo, _, _ := newTestRepo(t)

	_, err := repo.Create(ctx, newLink("abc234", "https://example.com"))
	require.NoError(t, err)

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, _ = repo.IncrementClicks(ctx, "abc234")
		}()
	}
	wg.Wait()

	got, err := repo.GetByCode(ctx, "abc234")
	require.NoError(t, err)
	assert.Equal(t, int64(n), got.ClickCount)
}

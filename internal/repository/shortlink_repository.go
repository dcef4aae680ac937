package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"linklet/internal/cache"
	"linklet/internal/entities"
	"linklet/internal/store"
)

// ShortLinkRepository mediates between the record store and the cache. It is
// the only component allowed to touch both; everything above it sees one
// consistent view.
type ShortLinkRepository interface {
	Create(ctx context.Context, link *entities.ShortLink) (*entities.ShortLink, error)
	GetByCode(ctx context.Context, code string) (*entities.ShortLink, error)
	GetByAlias(ctx context.Context, alias string) (*entities.ShortLink, error)
	GetActiveByTarget(ctx context.Context, targetURL string) (*entities.ShortLink, error)
	Update(ctx context.Context, id int64, fields store.UpdateFields) (*entities.ShortLink, error)
	IncrementClicks(ctx context.Context, code string) (bool, error)
	Deactivate(ctx context.Context, code string) (bool, error)
	Delete(ctx context.Context, code string) (bool, error)
	List(ctx context.Context, filter store.ListFilter) ([]*entities.ShortLink, int64, error)
	DeactivateExpired(ctx context.Context) (int64, error)
}

type shortLinkRepository struct {
	store  store.RecordStore
	cache  cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewShortLinkRepository creates a cache-aside repository. cacheClient may be
// nil to run without a cache; every cache failure degrades to the same
// cache-less behavior.
func NewShortLinkRepository(recordStore store.RecordStore, cacheClient cache.Cache, ttl time.Duration, logger *slog.Logger) ShortLinkRepository {
	return &shortLinkRepository{
		store:  recordStore,
		cache:  cacheClient,
		ttl:    ttl,
		logger: logger,
	}
}

func cacheKey(code string) string {
	return fmt.Sprintf("link:%s", code)
}

// Create persists the record and populates the cache for its code. The
// cache TTL is bounded and independent of the record's expires_at.
func (r *shortLinkRepository) Create(ctx context.Context, link *entities.ShortLink) (*entities.ShortLink, error) {
	created, err := r.store.Insert(ctx, link)
	if err != nil {
		return nil, err
	}
	r.populate(ctx, created)
	return created, nil
}

// GetByCode reads through the cache: a hit never touches the record store, a
// miss falls through and repopulates. Negative results are never cached, so
// a later create under the same code is immediately visible.
func (r *shortLinkRepository) GetByCode(ctx context.Context, code string) (*entities.ShortLink, error) {
	if r.cache != nil {
		var cached entities.ShortLink
		err := r.cache.GetJSON(ctx, cacheKey(code), &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			r.logger.Warn("cache read failed, falling through to record store",
				"code", code, "error", err)
		}
	}

	link, err := r.store.FindByCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		// Read-path store failures degrade to not-found; they must never
		// fabricate data.
		r.logger.Error("record store read failed", "code", code, "error", err)
		return nil, store.ErrNotFound
	}

	r.populate(ctx, link)
	return link, nil
}

// GetByAlias always reads the record store; aliases are not cached.
func (r *shortLinkRepository) GetByAlias(ctx context.Context, alias string) (*entities.ShortLink, error) {
	link, err := r.store.FindByAlias(ctx, alias)
	if errors.Is(err, store.ErrNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		r.logger.Error("record store read failed", "alias", alias, "error", err)
		return nil, store.ErrNotFound
	}
	return link, nil
}

func (r *shortLinkRepository) GetActiveByTarget(ctx context.Context, targetURL string) (*entities.ShortLink, error) {
	return r.store.FindActiveByTarget(ctx, targetURL)
}

// Update applies the mutation and repopulates the cache with the fresh
// record (write-through), so concurrent readers never observe a gap.
func (r *shortLinkRepository) Update(ctx context.Context, id int64, fields store.UpdateFields) (*entities.ShortLink, error) {
	updated, err := r.store.Update(ctx, id, fields)
	if err != nil {
		return nil, err
	}
	r.populate(ctx, updated)
	return updated, nil
}

// IncrementClicks bumps the counter atomically at the store and invalidates
// the cache entry. Click counts are read-mostly; the next read repopulates.
func (r *shortLinkRepository) IncrementClicks(ctx context.Context, code string) (bool, error) {
	ok, err := r.store.IncrementClicks(ctx, code)
	if err != nil {
		return false, err
	}
	if ok {
		r.invalidate(ctx, code)
	}
	return ok, nil
}

func (r *shortLinkRepository) Deactivate(ctx context.Context, code string) (bool, error) {
	ok, err := r.store.Deactivate(ctx, code)
	if err != nil {
		return false, err
	}
	if ok {
		r.invalidate(ctx, code)
	}
	return ok, nil
}

func (r *shortLinkRepository) Delete(ctx context.Context, code string) (bool, error) {
	ok, err := r.store.Delete(ctx, code)
	if err != nil {
		return false, err
	}
	if ok {
		r.invalidate(ctx, code)
	}
	return ok, nil
}

func (r *shortLinkRepository) List(ctx context.Context, filter store.ListFilter) ([]*entities.ShortLink, int64, error) {
	return r.store.List(ctx, filter)
}

func (r *shortLinkRepository) DeactivateExpired(ctx context.Context) (int64, error) {
	count, err := r.store.DeactivateExpired(ctx)
	if err != nil {
		return 0, err
	}
	// Flipped records may still sit in the cache as active; they are evicted
	// lazily by their TTL, and resolution re-checks expiry anyway.
	return count, nil
}

func (r *shortLinkRepository) populate(ctx context.Context, link *entities.ShortLink) {
	if r.cache == nil {
		return
	}
	if err := r.cache.SetJSON(ctx, cacheKey(link.ShortCode), link, r.ttl); err != nil {
		r.logger.Warn("cache populate failed", "code", link.ShortCode, "error", err)
	}
}

func (r *shortLinkRepository) invalidate(ctx context.Context, code string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Delete(ctx, cacheKey(code)); err != nil {
		r.logger.Warn("cache invalidate failed", "code", code, "error", err)
	}
}

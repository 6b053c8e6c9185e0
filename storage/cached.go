package storage

import (
	"context"
	"strconv"

	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"

	"github.com/arvik/shopsearch/internal/recordcache"
)

// Invalidator is notified after every successful mutation so dependent
// caches (the autocomplete search cache) can drop what they hold. It is
// called exactly once per committed write, never before and never on
// failure.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// CachedRepository decorates a Repository with read-through record
// caching. Reads for by-ID and list lookups go through the record cache;
// writes pass through to the base repository and, on success, drop the
// tracked keys and notify the Invalidator.
type CachedRepository[T any] struct {
	entity string
	base   Repository[T]
	cache  *recordcache.Service
	keys   *xsync.MapOf[string, struct{}]
	search Invalidator
	logger *zap.Logger
}

// NewCached wraps base with record caching for the named entity type.
// search may be nil for entities without an autocomplete cache.
func NewCached[T any](entity string, base Repository[T], cache *recordcache.Service, search Invalidator, logger *zap.Logger) *CachedRepository[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedRepository[T]{
		entity: entity,
		base:   base,
		cache:  cache,
		keys:   xsync.NewMapOf[string, struct{}](),
		search: search,
		logger: logger.With(zap.String("entity", entity)),
	}
}

var _ Repository[Product] = (*CachedRepository[Product])(nil)

func (c *CachedRepository[T]) GetByID(ctx context.Context, id int64) (T, error) {
	key := recordcache.Key(c.entity, "get_by_id", strconv.FormatInt(id, 10))
	c.keys.Store(key, struct{}{})
	return recordcache.GetOrFetch(ctx, c.cache, key, func(ctx context.Context) (T, error) {
		return c.base.GetByID(ctx, id)
	})
}

func (c *CachedRepository[T]) List(ctx context.Context) ([]T, error) {
	key := recordcache.Key(c.entity, "list")
	c.keys.Store(key, struct{}{})
	return recordcache.GetOrFetch(ctx, c.cache, key, func(ctx context.Context) ([]T, error) {
		return c.base.List(ctx)
	})
}

func (c *CachedRepository[T]) Create(ctx context.Context, record T) (T, error) {
	created, err := c.base.Create(ctx, record)
	if err == nil {
		c.invalidate(ctx)
	}
	return created, err
}

func (c *CachedRepository[T]) Update(ctx context.Context, record T) (T, error) {
	updated, err := c.base.Update(ctx, record)
	if err == nil {
		c.invalidate(ctx)
	}
	return updated, err
}

func (c *CachedRepository[T]) Delete(ctx context.Context, id int64) error {
	err := c.base.Delete(ctx, id)
	if err == nil {
		c.invalidate(ctx)
	}
	return err
}

// invalidate drops every tracked record-cache key and clears the search
// cache. A failed search-cache clear does not fail the committed write;
// the caller already mutated the backing store, so the error is reported
// and the writer accepts the staleness risk until the next clear.
func (c *CachedRepository[T]) invalidate(ctx context.Context) {
	c.keys.Range(func(key string, _ struct{}) bool {
		if err := c.cache.Delete(ctx, key); err != nil {
			c.logger.Warn("record cache delete failed", zap.String("key", key), zap.Error(err))
		}
		c.keys.Delete(key)
		return true
	})
	if c.search == nil {
		return
	}
	if err := c.search.Invalidate(ctx); err != nil {
		c.logger.Warn("search cache invalidation failed", zap.Error(err))
	}
}

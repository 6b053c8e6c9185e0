// Package search implements the read-through, populate-on-miss policy in
// front of the backing store's substring search, plus coarse invalidation
// after entity writes.
package search

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/arvik/shopsearch/cache"
)

// DefaultPutTimeout bounds how long a search waits for the coordinator to
// acknowledge a cache population before degrading to bypass mode.
const DefaultPutTimeout = 250 * time.Millisecond

// FetchFunc queries the backing store for a case-insensitive substring
// match of term against the entity's display name.
type FetchFunc[V any] func(ctx context.Context, term string) ([]V, error)

// Options tunes a Service. Zero values fall back to defaults.
type Options struct {
	// PutTimeout bounds the wait for a cache-population acknowledgment.
	PutTimeout time.Duration
	Logger     *zap.Logger
	Metrics    *Metrics
}

// Service is the autocomplete orchestrator for one entity type: cache
// lookup first, backing-store query on miss, repopulate, read back.
// Invalidation after writes clears the whole entity cache; arbitrary
// substring terms cannot be mapped back to the cached queries a single
// changed record affects, so hit rate is traded for never serving stale
// matches.
type Service[V any] struct {
	entity     string
	sup        *cache.Supervisor[[]V]
	fetch      FetchFunc[V]
	flight     singleflight.Group
	putTimeout time.Duration
	logger     *zap.Logger
	metrics    *Metrics
}

// NewService builds a Service over the supervised cache for sup's entity
// type. fetch is the backing-store query used on a miss.
func NewService[V any](sup *cache.Supervisor[[]V], fetch FetchFunc[V], opts Options) *Service[V] {
	if opts.PutTimeout <= 0 {
		opts.PutTimeout = DefaultPutTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Service[V]{
		entity:     sup.Name(),
		sup:        sup,
		fetch:      fetch,
		putTimeout: opts.PutTimeout,
		logger:     opts.Logger.With(zap.String("entity", sup.Name())),
		metrics:    opts.Metrics,
	}
}

// Entity names the entity type this service searches.
func (s *Service[V]) Entity() string { return s.entity }

// Search returns the entities whose display name contains term,
// case-insensitively. Results come from the cache when present; otherwise
// the backing store is queried and the cache repopulated under the
// case-folded term. A backing-store failure propagates verbatim. If the
// coordinator cannot acknowledge the population in time, the freshly
// fetched results are returned uncached.
func (s *Service[V]) Search(ctx context.Context, term string) ([]V, error) {
	key := strings.ToLower(term)

	if hit, ok := s.lookup(key); ok {
		s.metrics.hit(ctx, s.entity)
		return hit, nil
	}
	s.metrics.miss(ctx, s.entity)

	// Concurrent misses for the same term collapse into one query.
	v, err, _ := s.flight.Do(key, func() (any, error) {
		return s.populate(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return v.([]V), nil
}

// lookup reads the current store snapshot. A cached empty result set is
// indistinguishable from a miss, so zero-match terms hit the backing
// store on every call; that matches the documented behaviour of the
// system this cache fronts.
func (s *Service[V]) lookup(key string) ([]V, bool) {
	v, ok := s.sup.Store().Get(key)
	if !ok || len(v) == 0 {
		return nil, false
	}
	return v, true
}

func (s *Service[V]) populate(ctx context.Context, key string) ([]V, error) {
	results, err := s.fetch(ctx, key)
	if err != nil {
		// Never cached, never masked.
		return nil, err
	}

	putCtx, cancel := context.WithTimeout(ctx, s.putTimeout)
	defer cancel()
	if err := s.sup.Coordinator().Put(putCtx, key, results); err != nil {
		// Bypass mode: serve the fresh results without caching them
		// rather than failing the request.
		s.metrics.bypass(ctx, s.entity)
		s.logger.Warn("cache population failed, bypassing cache",
			zap.String("term", key), zap.Error(err))
		return results, nil
	}

	// The ack guarantees our own write is visible; reading it back keeps
	// the response on the same path a later hit would take.
	if cached, ok := s.sup.Store().Get(key); ok {
		return cached, nil
	}
	return results, nil
}

// Invalidate clears the whole cache for this entity type. Callers invoke
// it once per successful backing-store mutation. An error means the clear
// was not acknowledged; the caller must retry or accept staleness until
// the next successful clear.
func (s *Service[V]) Invalidate(ctx context.Context) error {
	clearCtx, cancel := context.WithTimeout(ctx, s.putTimeout)
	defer cancel()
	return s.sup.Coordinator().Clear(clearCtx)
}

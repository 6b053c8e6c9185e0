// Package recordcache is the TTL-based read-through cache in front of
// by-ID and list reads. It is distinct from the autocomplete search cache:
// search results live in the coordinator-owned cache package, while this
// one shields routine record lookups behind sturdyc.
package recordcache

import (
	"context"
	"errors"
	"strings"

	"github.com/viccon/sturdyc"
)

// KeySeparator delimits cache key segments.
const KeySeparator = "::"

// ErrInvalidResultType reports that a cached value did not match the type
// the caller asked for. It indicates a key collision between call sites.
var ErrInvalidResultType = errors.New("recordcache: cached value has unexpected type")

// Service wraps a sturdyc client behind the small surface the repository
// decorator needs.
type Service struct {
	client *sturdyc.Client[any]
}

// New constructs a Service from cfg.
func New(cfg Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client := sturdyc.New[any](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.options()...,
	)
	return &Service{client: client}, nil
}

// GetOrFetch returns the cached value for key, or runs fetch, stores the
// result and returns it. Errors from fetch are returned verbatim and are
// not cached.
func (s *Service) GetOrFetch(ctx context.Context, key string, fetch func(context.Context) (any, error)) (any, error) {
	return s.client.GetOrFetch(ctx, key, fetch)
}

// Delete removes a single entry so the next GetOrFetch refetches.
func (s *Service) Delete(ctx context.Context, key string) error {
	s.client.Delete(key)
	return nil
}

// DeleteByPrefix removes every entry whose key starts with prefix.
func (s *Service) DeleteByPrefix(ctx context.Context, prefix string) error {
	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			s.client.Delete(key)
		}
	}
	return nil
}

// GetOrFetch is the type-safe wrapper around Service.GetOrFetch.
func GetOrFetch[T any](ctx context.Context, s *Service, key string, fetch func(context.Context) (T, error)) (T, error) {
	result, err := s.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		var zero T
		// A nil any is still the legitimate zero value for interface and
		// pointer types.
		if result == nil {
			return zero, nil
		}
		return zero, ErrInvalidResultType
	}
	return typed, nil
}

// Key builds a cache key from its segments.
func Key(segments ...string) string {
	return strings.Join(segments, KeySeparator)
}

package recordcache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func newService(t *testing.T) *Service {
	t.Helper()
	s, err := New(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default", DefaultConfig(), false},
		{"zero capacity", Config{NumShards: 1, TTL: time.Minute, EvictionPercentage: 10}, true},
		{"zero shards", Config{Capacity: 10, TTL: time.Minute, EvictionPercentage: 10}, true},
		{"zero ttl", Config{Capacity: 10, NumShards: 1, EvictionPercentage: 10}, true},
		{"bad eviction", Config{Capacity: 10, NumShards: 1, TTL: time.Minute, EvictionPercentage: 101}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				var cerr *ConfigError
				if !errors.As(err, &cerr) {
					t.Errorf("expected ConfigError, got %T", err)
				}
			}
		})
	}
}

func TestService_GetOrFetchCachesValues(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	var fetches atomic.Int32
	fetch := func(context.Context) (string, error) {
		fetches.Add(1)
		return "value", nil
	}

	for i := 0; i < 3; i++ {
		got, err := GetOrFetch(ctx, s, Key("product", "get_by_id", "1"), fetch)
		if err != nil {
			t.Fatalf("GetOrFetch: %v", err)
		}
		if got != "value" {
			t.Errorf("unexpected value %q", got)
		}
	}
	if fetches.Load() != 1 {
		t.Errorf("expected a single fetch, got %d", fetches.Load())
	}
}

func TestService_FetchErrorsAreNotCached(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	var fetches atomic.Int32
	boom := errors.New("db down")
	fetch := func(context.Context) (string, error) {
		if fetches.Add(1) == 1 {
			return "", boom
		}
		return "recovered", nil
	}

	if _, err := GetOrFetch(ctx, s, "k", fetch); !errors.Is(err, boom) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	got, err := GetOrFetch(ctx, s, "k", fetch)
	if err != nil {
		t.Fatalf("GetOrFetch after failure: %v", err)
	}
	if got != "recovered" {
		t.Errorf("unexpected value %q", got)
	}
}

func TestService_DeleteForcesRefetch(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	var fetches atomic.Int32
	fetch := func(context.Context) (int, error) {
		return int(fetches.Add(1)), nil
	}

	if _, err := GetOrFetch(ctx, s, "k", fetch); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	got, err := GetOrFetch(ctx, s, "k", fetch)
	if err != nil {
		t.Fatal(err)
	}
	if got != 2 {
		t.Errorf("expected refetch after delete, got value %d", got)
	}
}

func TestService_DeleteByPrefix(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	var fetches atomic.Int32
	fetch := func(context.Context) (int, error) {
		return int(fetches.Add(1)), nil
	}

	keys := []string{
		Key("product", "get_by_id", "1"),
		Key("product", "list"),
		Key("customer", "list"),
	}
	for _, k := range keys {
		if _, err := GetOrFetch(ctx, s, k, fetch); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.DeleteByPrefix(ctx, "product"+KeySeparator); err != nil {
		t.Fatal(err)
	}

	before := fetches.Load()
	for _, k := range keys {
		if _, err := GetOrFetch(ctx, s, k, fetch); err != nil {
			t.Fatal(err)
		}
	}
	// Both product keys refetch; the customer key is still cached.
	if refetched := fetches.Load() - before; refetched != 2 {
		t.Errorf("expected 2 refetches, got %d", refetched)
	}
}

func TestGetOrFetch_WrongCachedTypeFails(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	if _, err := GetOrFetch(ctx, s, "shared", func(context.Context) (string, error) {
		return "text", nil
	}); err != nil {
		t.Fatal(err)
	}

	_, err := GetOrFetch(ctx, s, "shared", func(context.Context) (int, error) {
		return 1, nil
	})
	if !errors.Is(err, ErrInvalidResultType) {
		t.Errorf("expected ErrInvalidResultType, got %v", err)
	}
}

func TestKey(t *testing.T) {
	got := Key("product", "get_by_id", "7")
	want := "product::get_by_id::7"
	if got != want {
		t.Errorf("Key() = %q, want %q", got, want)
	}
}

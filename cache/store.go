package cache

import "sync/atomic"

// Store holds the cached search results for a single entity type.
//
// Reads go through an atomic snapshot pointer: Get loads the current
// snapshot and looks the key up without taking any lock. All mutation is
// funneled through the owning Coordinator's goroutine, which builds a new
// snapshot and swaps the pointer. A reader therefore observes either the
// state before a mutation or the state after it, never anything in
// between.
type Store[V any] struct {
	snapshot atomic.Pointer[map[string]V]
}

// NewStore creates an empty Store.
func NewStore[V any]() *Store[V] {
	s := &Store[V]{}
	empty := make(map[string]V)
	s.snapshot.Store(&empty)
	return s
}

// Get returns the value installed for key by the most recently applied
// mutation, or ok=false when the key is absent. It never blocks. Callers
// must treat the returned value as read-only.
func (s *Store[V]) Get(key string) (V, bool) {
	m := *s.snapshot.Load()
	v, ok := m[key]
	return v, ok
}

// Len reports the number of entries in the current snapshot.
func (s *Store[V]) Len() int {
	return len(*s.snapshot.Load())
}

// put installs or replaces the value for key. Called only from the
// Coordinator loop; the copy-then-swap keeps the install atomic for
// concurrent readers.
func (s *Store[V]) put(key string, value V) {
	old := *s.snapshot.Load()
	next := make(map[string]V, len(old)+1)
	for k, v := range old {
		next[k] = v
	}
	next[key] = value
	s.snapshot.Store(&next)
}

// delete removes key if present; absent keys are a no-op and do not
// produce a new snapshot.
func (s *Store[V]) delete(key string) {
	old := *s.snapshot.Load()
	if _, ok := old[key]; !ok {
		return
	}
	next := make(map[string]V, len(old)-1)
	for k, v := range old {
		if k != key {
			next[k] = v
		}
	}
	s.snapshot.Store(&next)
}

// clear atomically empties the store. Every Get issued after the swap
// observes an absent key; no reader can see a half-cleared map.
func (s *Store[V]) clear() {
	empty := make(map[string]V)
	s.snapshot.Store(&empty)
}

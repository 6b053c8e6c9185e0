// Package cache implements the process-local autocomplete search cache:
// a per-entity-type store of search-term -> result-set entries with
// lock-free concurrent reads and a single serialized writer.
//
// # Components
//
//   - Store: the in-memory term -> results map. Readers dereference an
//     atomic snapshot pointer and never block on writers.
//   - Coordinator: a mailbox goroutine that owns the Store and applies
//     mutations (put, delete, clear) strictly in arrival order. Callers
//     block until their mutation has been applied and acknowledged.
//   - Supervisor: restarts a crashed Coordinator with a fresh, empty
//     Store, bounded by a restart-intensity window.
//
// # Consistency
//
// Mutations are totally ordered per entity type. A caller that waits for
// the acknowledgment of its own Put and then issues a Get is guaranteed
// to observe that write. Readers either observe a fully installed value
// or none at all; partial values are never visible. Clear is atomic with
// respect to readers: once it is acknowledged, every key reads as absent.
//
// No state survives a Coordinator restart. Correctness (never serving
// stale entries) is deliberately prioritized over cache warmth.
package cache

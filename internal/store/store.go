// Package store provides the in-memory keyed tables backing the control
// plane. Tables are read by many concurrent data plane requests and written
// rarely; reads copy out snapshots so no lock is held across a request
// pipeline.
package store

import (
	"errors"
	"sync"
)

var (
	// ErrExists is returned by Put when the key is already present.
	ErrExists = errors.New("store: key already exists")

	// ErrNotFound is returned when a key is absent.
	ErrNotFound = errors.New("store: key not found")
)

// Table is a keyed in-memory table. T should be a value type; Get and
// Snapshot return copies so callers never share mutable state with the
// table.
type Table[T any] struct {
	mu    sync.RWMutex
	items map[string]T
}

// NewTable creates an empty table.
func NewTable[T any]() *Table[T] {
	return &Table[T]{items: make(map[string]T)}
}

// Get returns a copy of the value for key.
func (t *Table[T]) Get(key string) (T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	v, ok := t.items[key]
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	return v, nil
}

// Put inserts a new entry. Fails with ErrExists if the key is taken;
// idempotent creates are the control plane's concern, not the store's.
func (t *Table[T]) Put(key string, v T) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.items[key]; ok {
		return ErrExists
	}
	t.items[key] = v
	return nil
}

// Replace overwrites an existing entry.
func (t *Table[T]) Replace(key string, v T) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.items[key]; !ok {
		return ErrNotFound
	}
	t.items[key] = v
	return nil
}

// Upsert inserts or overwrites an entry.
func (t *Table[T]) Upsert(key string, v T) {
	t.mu.Lock()
	t.items[key] = v
	t.mu.Unlock()
}

// Delete removes an entry.
func (t *Table[T]) Delete(key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.items[key]; !ok {
		return ErrNotFound
	}
	delete(t.items, key)
	return nil
}

// Snapshot returns a copied slice of all values. The lock is held only for
// the duration of the copy.
func (t *Table[T]) Snapshot() []T {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]T, 0, len(t.items))
	for _, v := range t.items {
		out = append(out, v)
	}
	return out
}

// Find returns the first value matching pred, scanning under the read lock.
func (t *Table[T]) Find(pred func(T) bool) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, v := range t.items {
		if pred(v) {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// Any reports whether any value matches pred.
func (t *Table[T]) Any(pred func(T) bool) bool {
	_, ok := t.Find(pred)
	return ok
}

// Len returns the number of entries.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}

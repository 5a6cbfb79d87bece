// Package weakmap provides a map keyed by pointer identity that does not keep
// its keys alive.
//
// Entries are evicted when the garbage collector reclaims the key. Values must
// not reference their own key, otherwise the key stays reachable and the entry
// lives until it is deleted explicitly.
package weakmap

import (
	"runtime"
	"sync"
	"weak"
)

// Map associates values with pointer keys without retaining the keys.
//
// Eviction callbacks run on a runtime goroutine, so all access is guarded by a
// mutex even though callers are usually single-threaded.
type Map[K any, V any] struct {
	mu      sync.Mutex
	entries map[weak.Pointer[K]]V
}

// New returns an empty map.
func New[K any, V any]() *Map[K, V] {
	return &Map[K, V]{entries: make(map[weak.Pointer[K]]V)}
}

// Get returns the value stored for key.
func (m *Map[K, V]) Get(key *K) (V, bool) {
	var zero V
	if key == nil {
		return zero, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[weak.Make(key)]
	return v, ok
}

// Set stores v for key, replacing any previous value.
func (m *Map[K, V]) Set(key *K, v V) {
	if key == nil {
		return
	}
	wp := weak.Make(key)

	m.mu.Lock()
	_, existed := m.entries[wp]
	m.entries[wp] = v
	m.mu.Unlock()

	if !existed {
		runtime.AddCleanup(key, m.evict, wp)
	}
}

// Delete removes the entry for key and reports whether one existed.
func (m *Map[K, V]) Delete(key *K) bool {
	if key == nil {
		return false
	}
	wp := weak.Make(key)

	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[wp]
	delete(m.entries, wp)
	return ok
}

// Len returns the number of live entries.
func (m *Map[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Range calls fn for every entry whose key is still reachable. Iteration stops
// when fn returns false. fn must not call back into m.
func (m *Map[K, V]) Range(fn func(key *K, v V) bool) {
	m.mu.Lock()
	snapshot := make(map[weak.Pointer[K]]V, len(m.entries))
	for k, v := range m.entries {
		snapshot[k] = v
	}
	m.mu.Unlock()

	for wp, v := range snapshot {
		key := wp.Value()
		if key == nil {
			continue
		}
		if !fn(key, v) {
			return
		}
	}
}

func (m *Map[K, V]) evict(wp weak.Pointer[K]) {
	m.mu.Lock()
	delete(m.entries, wp)
	m.mu.Unlock()
}

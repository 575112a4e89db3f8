// Package decaymap is a map whose entries expire after a per-entry time to
// live.
package decaymap

import (
	"sync"
	"time"
)

// Zilch returns the zero value of T.
func Zilch[T any]() T {
	var zero T
	return zero
}

type decayMapEntry[V any] struct {
	Value  V
	expiry time.Time
}

// Impl is a lazily expiring map. Expired entries are invisible to Get and are
// removed on access or by Cleanup.
type Impl[K comparable, V any] struct {
	data map[K]decayMapEntry[V]
	lock sync.RWMutex
}

func New[K comparable, V any]() *Impl[K, V] {
	return &Impl[K, V]{
		data: make(map[K]decayMapEntry[V]),
	}
}

// expire removes key if it has expired. It reports whether it did.
func (m *Impl[K, V]) expire(key K) bool {
	m.lock.Lock()
	defer m.lock.Unlock()

	val, ok := m.data[key]
	if !ok || time.Now().Before(val.expiry) {
		return false
	}

	delete(m.data, key)
	return true
}

// Get returns the value for key if it is present and has not expired.
func (m *Impl[K, V]) Get(key K) (V, bool) {
	m.lock.RLock()
	value, ok := m.data[key]
	m.lock.RUnlock()

	if !ok {
		return Zilch[V](), false
	}

	if time.Now().After(value.expiry) {
		m.expire(key)
		return Zilch[V](), false
	}

	return value.Value, true
}

// Set stores value under key for ttl, replacing any previous entry.
func (m *Impl[K, V]) Set(key K, value V, ttl time.Duration) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.data[key] = decayMapEntry[V]{
		Value:  value,
		expiry: time.Now().Add(ttl),
	}
}

// Delete removes key. It reports whether a live entry was removed.
func (m *Impl[K, V]) Delete(key K) bool {
	m.lock.Lock()
	defer m.lock.Unlock()

	val, ok := m.data[key]
	if !ok {
		return false
	}

	delete(m.data, key)
	return time.Now().Before(val.expiry)
}

// Cleanup removes every expired entry.
func (m *Impl[K, V]) Cleanup() {
	m.lock.Lock()
	defer m.lock.Unlock()

	now := time.Now()
	for key, val := range m.data {
		if now.After(val.expiry) {
			delete(m.data, key)
		}
	}
}

// Len returns the number of entries, expired ones included.
func (m *Impl[K, V]) Len() int {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return len(m.data)
}

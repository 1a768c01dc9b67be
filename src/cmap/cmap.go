// Package cmap contains a thread-safe, sharded, awaitable map.
//
// It is used everywhere in this module that multiple loader goroutines need
// to agree on a single winner for "am I the one who loads this key" without
// serialising all of them behind one lock: the toolchain manager's settings
// table and the engine's per-file evaluation cache are both built on it,
// through ErrMap.
package cmap

import (
	"fmt"
	"sync"
)

// A Map is the top-level map type. All methods are safe for concurrent use.
// Construct with New, not a bare literal.
type Map[K comparable, V any] struct {
	shards []shard[K, V]
	hasher func(K) uint64
	mask   uint64
}

// New creates a Map with the given shard count (must be a power of two) and
// key hasher.
func New[K comparable, V any](shardCount uint64, hasher func(K) uint64) *Map[K, V] {
	if shardCount == 0 || shardCount&(shardCount-1) != 0 {
		panic(fmt.Sprintf("cmap: shard count %d is not a power of 2", shardCount))
	}
	m := &Map[K, V]{
		shards: make([]shard[K, V], shardCount),
		mask:   shardCount - 1,
		hasher: hasher,
	}
	for i := range m.shards {
		m.shards[i].m = map[K]awaitableValue[V]{}
	}
	return m
}

func (m *Map[K, V]) shardFor(key K) *shard[K, V] {
	return &m.shards[m.hasher(key)&m.mask]
}

// Add inserts val under key if it is not already present.
// Returns true if it was inserted, false if key already holds a value. A key
// that is still being awaited counts as not present: val fills it, its
// waiters are woken, and Add returns true.
func (m *Map[K, V]) Add(key K, val V) bool {
	return m.shardFor(key).add(key, val)
}

// Set unconditionally overwrites key, waking up any goroutine waiting on it.
func (m *Map[K, V]) Set(key K, val V) {
	m.shardFor(key).set(key, val)
}

// Get returns the current value for key and true, or the zero value and
// false if nothing has been set for it yet.
func (m *Map[K, V]) Get(key K) (V, bool) {
	return m.shardFor(key).get(key)
}

// GetOrWait returns the value for key if present. If the key has never been
// seen it marks the caller as the first arrival (first == true) so it knows
// it owns populating the value; otherwise it returns a channel that closes
// once the value is set.
func (m *Map[K, V]) GetOrWait(key K) (val V, wait <-chan struct{}, first bool) {
	return m.shardFor(key).getOrWait(key)
}

// Range calls f for every key/value pair currently in the map. No
// consistency guarantees are made across shards while Range is running.
func (m *Map[K, V]) Range(f func(key K, val V)) {
	for i := range m.shards {
		m.shards[i].rangeOver(f)
	}
}

type awaitableValue[V any] struct {
	val  V
	wait chan struct{}
	set  bool
}

type shard[K comparable, V any] struct {
	m map[K]awaitableValue[V]
	l sync.Mutex
}

func (s *shard[K, V]) add(key K, val V) bool {
	s.l.Lock()
	defer s.l.Unlock()
	if existing, present := s.m[key]; present {
		if existing.set {
			return false
		}
		s.m[key] = awaitableValue[V]{val: val, set: true}
		if existing.wait != nil {
			close(existing.wait)
		}
		return true
	}
	s.m[key] = awaitableValue[V]{val: val, set: true}
	return true
}

func (s *shard[K, V]) set(key K, val V) {
	s.l.Lock()
	defer s.l.Unlock()
	existing := s.m[key]
	s.m[key] = awaitableValue[V]{val: val, set: true}
	if existing.wait != nil {
		close(existing.wait)
	}
}

func (s *shard[K, V]) get(key K) (V, bool) {
	s.l.Lock()
	defer s.l.Unlock()
	v, present := s.m[key]
	return v.val, present && v.set
}

func (s *shard[K, V]) getOrWait(key K) (V, <-chan struct{}, bool) {
	s.l.Lock()
	defer s.l.Unlock()
	if v, present := s.m[key]; present {
		if v.set {
			return v.val, nil, false
		}
		return v.val, v.wait, false
	}
	ch := make(chan struct{})
	s.m[key] = awaitableValue[V]{wait: ch}
	var zero V
	return zero, nil, true
}

func (s *shard[K, V]) rangeOver(f func(key K, val V)) {
	s.l.Lock()
	items := make(map[K]V, len(s.m))
	for k, v := range s.m {
		if v.set {
			items[k] = v.val
		}
	}
	s.l.Unlock()
	for k, v := range items {
		f(k, v)
	}
}

package cmap

// An ErrMap is a Map whose values carry an error alongside the result, for
// caches where loading a key can fail (e.g. a source file that doesn't parse)
// and every later caller of GetOrSet needs to see the same failure rather
// than retrying the load.
type ErrMap[K comparable, V any] struct {
	inner *Map[K, errResult[V]]
}

type errResult[V any] struct {
	val V
	err error
}

// NewErrMap creates an ErrMap with the given shard count and hasher.
func NewErrMap[K comparable, V any](shardCount uint64, hasher func(K) uint64) *ErrMap[K, V] {
	return &ErrMap[K, V]{inner: New[K, errResult[V]](shardCount, hasher)}
}

// Get returns the cached value/error for key, or ok=false if nothing has
// been set yet.
func (m *ErrMap[K, V]) Get(key K) (val V, err error, ok bool) {
	r, present := m.inner.Get(key)
	return r.val, r.err, present
}

// Set records val/err for key, overwriting anything already there and
// waking up any GetOrSet callers waiting on it.
func (m *ErrMap[K, V]) Set(key K, val V, err error) {
	m.inner.Set(key, errResult[V]{val: val, err: err})
}

// GetOrSet returns the cached value for key if one exists. Otherwise it
// calls load exactly once for that key (even under concurrent callers),
// caches the result, and returns it. Concurrent callers for the same key
// block until the first caller's load completes.
func (m *ErrMap[K, V]) GetOrSet(key K, load func() (V, error)) (V, error) {
	val, wait, first := m.inner.GetOrWait(key)
	if !first && wait == nil {
		return val.val, val.err
	}
	if !first {
		<-wait
		v, _ := m.inner.Get(key)
		return v.val, v.err
	}
	v, err := load()
	m.inner.Set(key, errResult[V]{val: v, err: err})
	return v, err
}

// Range calls f for every key currently holding a completed (non-pending)
// result.
func (m *ErrMap[K, V]) Range(f func(key K, val V, err error)) {
	m.inner.Range(func(k K, r errResult[V]) {
		f(k, r.val, r.err)
	})
}

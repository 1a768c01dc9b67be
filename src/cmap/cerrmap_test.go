package cmap

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrMapGetOrSetLoadsOnce(t *testing.T) {
	m := NewErrMap[string, int](SmallShardCount, XXHash)
	var loads int32

	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := m.GetOrSet("a", func() (int, error) {
				atomic.AddInt32(&loads, 1)
				return 7, nil
			})
			require.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
	for _, r := range results {
		assert.Equal(t, 7, r)
	}
}

func TestErrMapGetOrSetCachesError(t *testing.T) {
	m := NewErrMap[string, int](SmallShardCount, XXHash)
	wantErr := errors.New("boom")

	v, err := m.GetOrSet("a", func() (int, error) {
		return 0, wantErr
	})
	assert.Equal(t, 0, v)
	assert.Equal(t, wantErr, err)

	v2, err2, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, 0, v2)
	assert.Equal(t, wantErr, err2)
}

func TestErrMapSetOverwrites(t *testing.T) {
	m := NewErrMap[string, int](SmallShardCount, XXHash)
	m.Set("a", 1, nil)
	m.Set("a", 2, nil)
	v, err, ok := m.Get("a")
	require.True(t, ok)
	assert.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestErrMapRange(t *testing.T) {
	m := NewErrMap[string, int](SmallShardCount, XXHash)
	m.Set("a", 1, nil)
	m.Set("b", 0, errors.New("bad"))

	seen := map[string]bool{}
	m.Range(func(k string, v int, err error) {
		seen[k] = err != nil
	})
	assert.Equal(t, map[string]bool{"a": false, "b": true}, seen)
}

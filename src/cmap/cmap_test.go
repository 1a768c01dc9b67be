package cmap

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAndGet(t *testing.T) {
	m := New[string, int](SmallShardCount, XXHash)
	assert.True(t, m.Add("a", 1))
	v, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestAddTwiceFails(t *testing.T) {
	m := New[string, int](SmallShardCount, XXHash)
	assert.True(t, m.Add("a", 1))
	assert.False(t, m.Add("a", 2))
	v, _ := m.Get("a")
	assert.Equal(t, 1, v)
}

func TestGetMissing(t *testing.T) {
	m := New[string, int](SmallShardCount, XXHash)
	_, ok := m.Get("missing")
	assert.False(t, ok)
}

func TestSetOverwrites(t *testing.T) {
	m := New[string, int](SmallShardCount, XXHash)
	m.Set("a", 1)
	m.Set("a", 2)
	v, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestGetOrWaitWakesWaiters(t *testing.T) {
	m := New[string, int](SmallShardCount, XXHash)
	_, wait, first := m.GetOrWait("a")
	require.True(t, first)

	var wg sync.WaitGroup
	results := make([]int, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, ch, first := m.GetOrWait("a")
			require.False(t, first)
			if ch != nil {
				<-ch
			}
			v, _ := m.Get("a")
			results[i] = v
		}(i)
	}

	m.Set("a", 42)
	_ = wait
	wg.Wait()
	for _, r := range results {
		assert.Equal(t, 42, r)
	}
}

func TestRangeOnlySeesCompletedValues(t *testing.T) {
	m := New[string, int](SmallShardCount, XXHash)
	m.Add("a", 1)
	m.Add("b", 2)
	m.GetOrWait("pending")

	seen := map[string]int{}
	m.Range(func(k string, v int) { seen[k] = v })
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, seen)
}

func TestNewPanicsOnNonPowerOfTwo(t *testing.T) {
	assert.Panics(t, func() {
		New[string, int](3, XXHash)
	})
}

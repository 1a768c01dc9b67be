package loader

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCompletesWithNoFurtherWork(t *testing.T) {
	s := NewScheduler(2)
	var ran int32
	err := s.Run(func() { atomic.AddInt32(&ran, 1) })
	require.NoError(t, err)
	assert.Equal(t, int32(1), ran)
}

func TestRunPropagatesSubmittedWork(t *testing.T) {
	s := NewScheduler(4)
	var count int32
	err := s.Run(func() {
		for i := 0; i < 10; i++ {
			s.Submit(func() { atomic.AddInt32(&count, 1) })
		}
	})
	require.NoError(t, err)
	assert.Equal(t, int32(10), count)
}

func TestRunReturnsFirstFailure(t *testing.T) {
	s := NewScheduler(4)
	err := s.Run(func() {
		s.Submit(func() { s.FailWith(errors.New("boom")) })
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestNoNewWorkAfterFailure(t *testing.T) {
	s := NewScheduler(2)
	var afterFailureRan int32
	err := s.Run(func() {
		s.FailWith(errors.New("boom"))
		s.Submit(func() { atomic.AddInt32(&afterFailureRan, 1) })
	})
	require.Error(t, err)
	assert.Equal(t, int32(0), afterFailureRan)
}

func TestPanicInTaskBecomesFailure(t *testing.T) {
	s := NewScheduler(2)
	err := s.Run(func() { panic("kaboom") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestGenDependenciesAccumulate(t *testing.T) {
	s := NewScheduler(1)
	err := s.Run(func() {
		s.AddGenDependency("a.gni")
		s.AddGenDependency("b.gni")
		s.AddGenDependency("a.gni")
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.gni", "b.gni"}, s.GenDependencies())
}

func TestLogDoesNotBlockWorkers(t *testing.T) {
	s := NewScheduler(1)
	err := s.Run(func() {
		for i := 0; i < 50; i++ {
			s.Log("test", "message")
		}
	})
	require.NoError(t, err)
	// Give the log pump a moment to drain before the test process exits;
	// nothing observable to assert beyond Run returning without deadlock.
	time.Sleep(time.Millisecond)
}

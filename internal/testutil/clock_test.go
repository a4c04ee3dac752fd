package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicClock_DefaultEpoch(t *testing.T) {
	clock := NewDeterministicClock(0)
	assert.Equal(t, DefaultEpoch, clock.Next())
	assert.Equal(t, DefaultEpoch, clock.Current())
}

func TestDeterministicClock_NextIncrementsMonotonically(t *testing.T) {
	clock := NewDeterministicClock(10)

	assert.Equal(t, uint64(10), clock.Next())
	assert.Equal(t, uint64(11), clock.Next())
	assert.Equal(t, uint64(12), clock.Next())
	assert.Equal(t, uint64(12), clock.Current())
}

func TestDeterministicClock_Reset(t *testing.T) {
	clock := NewDeterministicClock(10)
	clock.Next()
	clock.Next()

	clock.Reset()
	assert.Equal(t, uint64(10), clock.Next())
}

func TestDeterministicClock_ThreadSafe(t *testing.T) {
	clock := NewDeterministicClock(1)
	const numGoroutines = 50
	const callsPerGoroutine = 50

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	results := make([][]uint64, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		results[i] = make([]uint64, callsPerGoroutine)
		go func(idx int) {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				results[idx][j] = clock.Next()
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[uint64]bool)
	for i := range results {
		for _, v := range results[i] {
			require.False(t, seen[v], "duplicate value %d", v)
			seen[v] = true
		}
	}
	expectedTotal := numGoroutines * callsPerGoroutine
	assert.Len(t, seen, expectedTotal)
	for v := uint64(1); v <= uint64(expectedTotal); v++ {
		assert.True(t, seen[v], "missing value %d", v)
	}
}

package testutil

import "sync"

// DefaultEpoch is the first timestamp a DeterministicClock hands out
// (2023-11-14T22:13:20Z in milliseconds).
const DefaultEpoch uint64 = 1700000000000

// DeterministicClock hands out strictly increasing message timestamps.
//
// Messages built with the same clock sequence hash identically across runs,
// which keeps content ids in golden files stable.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu    sync.Mutex
	start uint64
	n     uint64
}

// NewDeterministicClock creates a clock whose first Next() returns start.
// A zero start means DefaultEpoch.
func NewDeterministicClock(start uint64) *DeterministicClock {
	if start == 0 {
		start = DefaultEpoch
	}
	return &DeterministicClock{start: start}
}

// Next returns the next timestamp, one millisecond after the previous one.
func (c *DeterministicClock) Next() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts := c.start + c.n
	c.n++
	return ts
}

// Current returns the last timestamp handed out, or start-1 before the
// first call.
func (c *DeterministicClock) Current() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.start + c.n - 1
}

// Reset rewinds the clock so the next call to Next() returns start again.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n = 0
}

package testutil

import (
	"sync"
	"time"
)

// Epoch is the wall time DeterministicClock counts from.
var Epoch = time.Date(2012, 5, 8, 6, 0, 0, 0, time.UTC)

// DeterministicClock hands out strictly increasing file modification times.
//
// Tests use it instead of sleeping between writes: each call to Next returns
// a time one second after the previous one, so ordering by mtime is exact on
// every filesystem.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu  sync.Mutex
	seq int64
}

// NewDeterministicClock creates a new deterministic clock starting at Epoch.
//
// The first call to Next() returns Epoch + 1s.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{seq: 0}
}

// Next advances the clock and returns the new time.
func (c *DeterministicClock) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return at(c.seq)
}

// Current returns the current time without advancing.
func (c *DeterministicClock) Current() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return at(c.seq)
}

// Reset rewinds the clock to Epoch.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}

func at(seq int64) time.Time {
	return Epoch.Add(time.Duration(seq) * time.Second)
}

package testutil

import (
	"fmt"
	"sync"
)

// SequenceIDGenerator hands out predictable run ids.
//
// Journal tests use it so stored rows and golden output do not depend on
// UUIDv7 timestamps.
//
// Thread-safety: Generate is safe for concurrent use.
type SequenceIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceIDGenerator creates a generator returning prefix-1, prefix-2, ...
//
// If prefix is empty, "run" is used.
func NewSequenceIDGenerator(prefix string) *SequenceIDGenerator {
	if prefix == "" {
		prefix = "run"
	}
	return &SequenceIDGenerator{prefix: prefix}
}

// Generate returns the next id.
//
// Implements journal.IDGenerator.
func (g *SequenceIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

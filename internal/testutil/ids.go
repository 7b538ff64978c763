package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs hands out load IDs "load-1", "load-2", ... so event traces
// are reproducible. It satisfies loader.IDGenerator.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDs creates a generator. An empty prefix means "load".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "load"
	}
	return &SequentialIDs{prefix: prefix}
}

// Generate returns the next ID.
func (g *SequentialIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

package journal

import "sync/atomic"

// LogicalClock is a monotonic sequence counter. Entries are ordered by the
// numbers it hands out, never by wall time.
//
// Safe for concurrent use.
type LogicalClock struct {
	seq atomic.Int64
}

// NewLogicalClockAt creates a clock whose next value is start+1.
func NewLogicalClockAt(start int64) *LogicalClock {
	c := &LogicalClock{}
	c.seq.Store(start)
	return c
}

// Next increments the clock and returns the new value.
func (c *LogicalClock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last value handed out.
func (c *LogicalClock) Current() int64 {
	return c.seq.Load()
}

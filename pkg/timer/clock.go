package timer

import (
	"sync/atomic"
	"time"
)

// Clock supplies virtual time in nanoseconds.
type Clock interface {
	NowNs() int64
}

// HostClock counts monotonic host nanoseconds since its construction.
type HostClock struct {
	start time.Time
}

// NewHostClock returns a HostClock starting at zero.
func NewHostClock() *HostClock {
	return &HostClock{start: time.Now()}
}

// NowNs returns nanoseconds elapsed since construction.
func (c *HostClock) NowNs() int64 {
	return time.Since(c.start).Nanoseconds()
}

// ManualClock is a clock moved explicitly, for tests and stepping.
// The zero value reads zero.
type ManualClock struct {
	ns atomic.Int64
}

// NewManualClock returns a ManualClock reading ns.
func NewManualClock(ns int64) *ManualClock {
	c := &ManualClock{}
	c.ns.Store(ns)
	return c
}

// NowNs returns the current reading.
func (c *ManualClock) NowNs() int64 {
	return c.ns.Load()
}

// Advance moves the clock forward by d and returns the new reading.
func (c *ManualClock) Advance(d time.Duration) int64 {
	return c.ns.Add(d.Nanoseconds())
}

// Set sets the clock reading.
func (c *ManualClock) Set(ns int64) {
	c.ns.Store(ns)
}

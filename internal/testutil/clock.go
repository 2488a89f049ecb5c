package testutil

import (
	"sync/atomic"
	"time"
)

// Epoch is the time a LedgerClock reports before its first tick.
var Epoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// LedgerClock stands in for the wall clock behind ledger timestamps. Each
// Now call moves it one second past Epoch, so recorded runs and their
// verifications carry the same created_at and verified_at on every test run.
type LedgerClock struct {
	ticks atomic.Int64
}

// NewLedgerClock returns a clock at Epoch.
func NewLedgerClock() *LedgerClock {
	return &LedgerClock{}
}

// Now ticks the clock and returns the new time. It fits store.WithNow.
func (c *LedgerClock) Now() time.Time {
	return Epoch.Add(time.Duration(c.ticks.Add(1)) * time.Second)
}

// Ticks reports how many times Now has been called since the last Reset.
func (c *LedgerClock) Ticks() int64 { return c.ticks.Load() }

// Reset moves the clock back to Epoch.
func (c *LedgerClock) Reset() { c.ticks.Store(0) }

package epoch

import "sync/atomic"

// Clock is the global logical clock shared by all participants.
//
// The zero value is ready to use and starts at epoch 0.
type Clock struct {
	v atomic.Uint64
}

// Current returns the latest epoch without advancing the clock.
func (c *Clock) Current() uint64 {
	return c.v.Load()
}

// Advance atomically increments the clock and returns the new epoch.
func (c *Clock) Advance() uint64 {
	return c.v.Add(1)
}

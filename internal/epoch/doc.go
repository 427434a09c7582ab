// Package epoch implements the logical clock and per-participant epoch
// records that the reclamation engine builds on.
//
// The clock is a single monotonically increasing 64-bit counter. At one
// advance per nanosecond it takes centuries to wrap, so wraparound is not
// handled.
//
// A Record publishes a participant's critical-section state as one atomic
// word so a reclaimer scan reads a consistent (epoch, active) pair with a
// single load. Records are written only by their owning goroutine; the
// reclaimer only reads them.
package epoch

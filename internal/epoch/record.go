package epoch

import "sync/atomic"

// Record is the published critical-section state of one participant.
//
// The state is packed into a single word: bit 0 is the active flag, the
// remaining bits hold the epoch the participant observed on entry. Packing
// both into one word means a reclaimer scan cannot observe an active flag
// paired with a stale epoch.
//
// Only the owning goroutine stores to a Record; any goroutine may load it.
type Record struct {
	state atomic.Uint64
}

const activeBit = 1

// Enter publishes that the participant is inside a critical section and
// observed the given epoch on entry. A single atomic store; Go atomics are
// sequentially consistent, which is what the reclaimer's safety argument
// relies on.
func (r *Record) Enter(observed uint64) {
	r.state.Store(observed<<1 | activeBit)
}

// Exit publishes that the participant left its critical section.
func (r *Record) Exit() {
	r.state.Store(0)
}

// Load returns the observed epoch and whether the participant is currently
// inside a critical section. The epoch is meaningful only when active is
// true.
func (r *Record) Load() (observed uint64, active bool) {
	w := r.state.Load()
	return w >> 1, w&activeBit != 0
}

// Active reports whether the participant is inside a critical section.
func (r *Record) Active() bool {
	return r.state.Load()&activeBit != 0
}

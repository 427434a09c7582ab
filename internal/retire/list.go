package retire

import (
	"sync"
	"unsafe"
)

// Entry is one retired object waiting for a safe epoch bound.
type Entry struct {
	// Ptr is the retired object. The list owns it until the finalizer runs.
	Ptr unsafe.Pointer
	// Epoch is the global clock value at retirement time. The entry may be
	// finalized once every active participant observed a later epoch.
	Epoch uint64
	// Finalizer releases the object's backing memory. Invoked exactly once.
	Finalizer func(unsafe.Pointer)
}

// List is a batch of retired entries.
//
// Appends come from the owning participant, takes from a reclaimer scan;
// both go through the mutex. The critical sections are a few pointer moves,
// so contention is limited to the hand-off itself.
type List struct {
	mu      sync.Mutex
	entries []Entry
}

// Append adds an entry and returns the new length, which callers use for
// batch-threshold decisions.
func (l *List) Append(e Entry) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
	return len(l.entries)
}

// Len returns the number of pending entries.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// TakeBefore removes and returns every entry with Epoch strictly below
// bound. Entries at or above the bound stay pending for a later scan.
func (l *List) TakeBefore(bound uint64) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var taken []Entry
	kept := l.entries[:0]
	for _, e := range l.entries {
		if e.Epoch < bound {
			taken = append(taken, e)
		} else {
			kept = append(kept, e)
		}
	}
	// Clear the tail so finalizers taken out of the list are not also
	// retained by the backing array.
	for i := len(kept); i < len(l.entries); i++ {
		l.entries[i] = Entry{}
	}
	l.entries = kept
	return taken
}

// TakeAll removes and returns every pending entry regardless of epoch.
// Used when a participant deregisters and hands its list off, and during
// engine teardown.
func (l *List) TakeAll() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	taken := l.entries
	l.entries = nil
	return taken
}

// AppendAll adds a batch of already-tagged entries, preserving their
// original retirement epochs. Used on the deregistration hand-off path.
func (l *List) AppendAll(batch []Entry) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, batch...)
	return len(l.entries)
}

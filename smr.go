package smr

import (
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/hupe1980/smr/internal/epoch"
	"github.com/hupe1980/smr/internal/retire"
)

// Finalizer releases a retired object's backing memory. It takes ownership
// of the pointer and runs exactly once, during a reclamation scan, on the
// goroutine that triggered the scan. It must not call Retire or Enter on
// the handle that triggered the scan.
type Finalizer func(ptr unsafe.Pointer)

// Engine is one reclamation domain: a global clock, a participant
// registry, and the retired entries awaiting a safe epoch bound.
//
// There are no implicit singletons; every data structure that retires
// through the engine holds an explicit reference to it. The engine spawns
// no goroutines, and all methods return without blocking.
type Engine struct {
	opts  options
	clock epoch.Clock

	// mu guards the registry. Scans hold it shared for the duration of
	// their snapshot; register/deregister hold it exclusively, so a scan
	// observes every participant registered when it started.
	mu           sync.RWMutex
	participants []*participant
	freeSlots    []int
	count        int
	closed       bool

	// orphans holds entries handed off by deregistered participants.
	orphans retire.List

	pending   atomic.Int64
	reclaimed atomic.Uint64
	lastBound atomic.Uint64
}

// participant is the registry-side state of one handle. Its record is
// written only by the owning goroutine; scans read it through the registry.
type participant struct {
	rec     epoch.Record
	retired retire.List
	slot    int
}

// New creates an engine.
func New(opts ...Option) *Engine {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Engine{opts: o}
}

// Register creates a participant record for the calling goroutine and
// returns its handle. The handle is not safe for concurrent use; each
// goroutine registers its own.
//
// Fails only on resource exhaustion: ErrEngineClosed after Close, or a
// *TooManyParticipantsError when the configured cap is reached.
func (e *Engine) Register() (*Handle, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrEngineClosed
	}
	if max := e.opts.maxParticipants; max > 0 && e.count >= max {
		e.mu.Unlock()
		return nil, &TooManyParticipantsError{Limit: max}
	}

	p := &participant{}
	if n := len(e.freeSlots); n > 0 {
		p.slot = e.freeSlots[n-1]
		e.freeSlots = e.freeSlots[:n-1]
		e.participants[p.slot] = p
	} else {
		p.slot = len(e.participants)
		e.participants = append(e.participants, p)
	}
	e.count++
	count := e.count
	e.mu.Unlock()

	e.opts.logger.Debug("participant registered", "slot", p.slot, "participants", count)
	e.opts.metrics.OnRegister(count)
	return &Handle{e: e, p: p}, nil
}

// Reclaim runs a reclamation scan and returns the number of entries
// finalized. It bypasses the configured rate limiter.
//
// A return of zero is not an error: the entries simply wait for a later
// scan with a higher bound.
func (e *Engine) Reclaim() int {
	return e.reclaim()
}

// tryReclaim is the retire-triggered path, subject to the rate limiter.
func (e *Engine) tryReclaim() int {
	if lim := e.opts.limiter; lim != nil && !lim.Allow() {
		return 0
	}
	return e.reclaim()
}

// reclaim implements the scan: advance the clock, compute the minimum
// epoch any active participant observed, free everything retired strictly
// before it.
//
// Safety: a participant already active when the scan snapshots the
// registry keeps every entry at or after its observed epoch. A participant
// that enters afterwards observes at least the advanced epoch, and a node
// is only retired after it was unlinked, so nothing reachable from its
// entry point was retired before the bound.
func (e *Engine) reclaim() int {
	start := time.Now()
	bound := e.clock.Advance()

	e.mu.RLock()
	participants := 0
	for _, p := range e.participants {
		if p == nil {
			continue
		}
		participants++
		if observed, active := p.rec.Load(); active && observed < bound {
			bound = observed
		}
	}

	var eligible []retire.Entry
	for _, p := range e.participants {
		if p == nil {
			continue
		}
		eligible = append(eligible, p.retired.TakeBefore(bound)...)
	}
	eligible = append(eligible, e.orphans.TakeBefore(bound)...)
	e.mu.RUnlock()

	// Finalizers run outside all engine locks.
	for _, en := range eligible {
		en.Finalizer(en.Ptr)
	}

	freed := len(eligible)
	if freed > 0 {
		e.pending.Add(-int64(freed))
		e.reclaimed.Add(uint64(freed))
	}
	e.lastBound.Store(bound)

	e.opts.logger.Debug("reclaim scan",
		"bound", bound,
		"participants", participants,
		"freed", freed,
		"pending", e.pending.Load(),
	)
	e.opts.metrics.OnReclaim(time.Since(start), participants, freed, bound)
	return freed
}

// Stats is a snapshot of engine counters. Pending not shrinking across
// scans usually means some participant never exits its critical section.
type Stats struct {
	Epoch          uint64 // current global clock value
	Participants   int    // registered handles
	PendingRetired int64  // retired entries not yet finalized
	Reclaimed      uint64 // cumulative finalized entries
	LastBound      uint64 // bound computed by the most recent scan
}

// Stats returns a snapshot of the engine's counters.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	count := e.count
	e.mu.RUnlock()

	return Stats{
		Epoch:          e.clock.Current(),
		Participants:   count,
		PendingRetired: e.pending.Load(),
		Reclaimed:      e.reclaimed.Load(),
		LastBound:      e.lastBound.Load(),
	}
}

// Close tears the engine down. Every handle must already be deregistered,
// otherwise ErrParticipantsActive is returned and nothing happens. With no
// participants left, every pending entry is trivially past the bound and
// is finalized before Close returns. Idempotent.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	if e.count > 0 {
		e.mu.Unlock()
		return ErrParticipantsActive
	}
	e.closed = true
	e.mu.Unlock()

	// Deregistration handed every list to orphans.
	entries := e.orphans.TakeAll()
	for _, en := range entries {
		en.Finalizer(en.Ptr)
	}
	if n := len(entries); n > 0 {
		e.pending.Add(-int64(n))
		e.reclaimed.Add(uint64(n))
	}

	e.opts.logger.Debug("engine closed", "drained", len(entries))
	return nil
}

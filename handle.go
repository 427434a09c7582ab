package smr

import (
	"unsafe"

	"github.com/hupe1980/smr/internal/retire"
)

// Handle is one goroutine's membership in the engine. It is owned by the
// registering goroutine and is not safe for concurrent use.
//
// Misuse is a contract violation and panics immediately: deregistering
// inside a critical section, exiting without a matching enter, or using a
// handle after Deregister all indicate a memory-safety bug in the caller
// that the engine must not paper over.
type Handle struct {
	e     *Engine
	p     *participant
	depth int
	done  bool
}

// Enter opens a critical section. Until the matching Exit, no node that
// was reachable from the shared structure at entry time will be finalized.
//
// Enter/Exit pairs nest; only the outermost pair publishes to the
// reclaimer. The hot path is one atomic load and one atomic store.
func (h *Handle) Enter() {
	h.check()
	h.depth++
	if h.depth > 1 {
		return
	}
	h.p.rec.Enter(h.e.clock.Current())
}

// Exit closes the critical section opened by the matching Enter. After the
// outermost Exit the goroutine must hold no references into the shared
// structure.
func (h *Handle) Exit() {
	h.check()
	if h.depth == 0 {
		panic("smr: exit without matching enter")
	}
	h.depth--
	if h.depth > 0 {
		return
	}
	h.p.rec.Exit()
}

// Retire hands a logically removed node to the engine for deferred
// freeing. The pointer must already be unreachable from the shared
// structure; the engine owns it from this call on and invokes fin exactly
// once, when no reader that could have seen the node remains.
//
// Retire never blocks. Once the handle's pending list reaches the batch
// size it triggers a synchronous reclamation attempt, subject to the
// configured rate limiter.
func (h *Handle) Retire(ptr unsafe.Pointer, fin Finalizer) {
	h.check()
	if fin == nil {
		panic("smr: nil finalizer")
	}

	e := h.e
	n := h.p.retired.Append(retire.Entry{
		Ptr:       ptr,
		Epoch:     e.clock.Current(),
		Finalizer: fin,
	})
	pending := e.pending.Add(1)
	e.opts.metrics.OnRetire(int(pending))

	if n >= e.opts.batchSize {
		e.tryReclaim()
	}
}

// TryReclaim runs a reclamation attempt, subject to the configured rate
// limiter, and returns the number of entries finalized. Safe to call
// inside a critical section; the caller's own observed epoch simply caps
// the bound.
func (h *Handle) TryReclaim() int {
	h.check()
	return h.e.tryReclaim()
}

// Pending returns the number of entries retired through this handle that
// have not yet been finalized or handed off.
func (h *Handle) Pending() int {
	h.check()
	return h.p.retired.Len()
}

// Deregister removes the participant from the registry. The handle must
// not be inside a critical section. Entries still pending on this handle
// keep their retirement epochs and are handed to the engine, where later
// scans finalize them.
func (h *Handle) Deregister() {
	if h.done {
		panic("smr: handle deregistered twice")
	}
	if h.depth != 0 {
		panic("smr: deregister inside critical section")
	}
	h.done = true

	e := h.e
	e.mu.Lock()
	e.participants[h.p.slot] = nil
	e.freeSlots = append(e.freeSlots, h.p.slot)
	e.count--
	count := e.count
	e.orphans.AppendAll(h.p.retired.TakeAll())
	e.mu.Unlock()

	e.opts.logger.Debug("participant deregistered", "slot", h.p.slot, "participants", count)
	e.opts.metrics.OnDeregister(count)
}

func (h *Handle) check() {
	if h.done {
		panic("smr: handle used after deregister")
	}
}

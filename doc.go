// Package smr provides epoch-based safe memory reclamation for lock-free
// data structures.
//
// Readers traverse shared nodes without locks; writers unlink nodes and
// retire them with a finalizer. The engine defers each finalizer until no
// reader that could still reach the node remains inside a critical section,
// which rules out use-after-free and, combined with the arena subpackage's
// generation counters, ABA hazards on memory reuse.
//
// # Quick Start
//
//	e := smr.New()
//	defer e.Close()
//
//	h, _ := e.Register()          // once per goroutine
//	defer h.Deregister()
//
//	// Reader side: bracket every traversal.
//	h.Enter()
//	node := head.Load()           // safe to dereference until Exit
//	h.Exit()
//
//	// Writer side: unlink first, then retire.
//	h.Retire(unsafe.Pointer(node), a.Finalizer())
//
// # Protocol
//
// A global logical clock ticks once per reclamation scan. Enter publishes
// the epoch the goroutine observed; Exit clears it. Retire tags the node
// with the current epoch. A scan advances the clock, takes the minimum
// epoch published by any participant still inside a critical section, and
// finalizes every entry retired strictly before that bound. A participant
// entering after the advance observes an epoch at or above the new value,
// so it cannot reach a node that was already unlinked when the bound was
// computed.
//
// # Liveness
//
// Reclamation is caller-driven: the engine spawns no goroutines. Scans run
// on Reclaim, on TryReclaim, and automatically once a handle's pending
// retirements reach the configured batch size. A participant that never
// exits its critical section pins everything retired afterward; that is a
// leak to diagnose via Stats, not an error the engine can recover from.
//
// # Ownership
//
// The engine owns a pointer from the moment it is retired: the data
// structure must not touch it again, and the finalizer takes ownership
// when it runs. Retiring a still-reachable pointer or the same pointer
// twice is a memory-safety bug on the caller's side.
package smr

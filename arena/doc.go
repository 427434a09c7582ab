// Package arena provides a fixed-size-slot allocator for nodes managed by
// the reclamation engine.
//
// # Concurrency Model
//
// Alloc and Free are safe for concurrent use. Close is NOT safe to call
// concurrently with allocations; the typical pattern is one arena per
// data structure, closed when the structure is destroyed.
//
// # Memory Management
//
// Slots are carved out of large chunks obtained via anonymous mmap, so node
// memory lives outside the Go heap. Chunks are never unmapped before Close:
// a reader that loses a race with a free and dereferences a stale pointer
// reads recycled-but-mapped memory instead of faulting. Combined with the
// engine's epoch protocol this is what makes optimistic traversal safe.
//
// # ABA Detection
//
// Every slot carries a generation counter, bumped on each allocation and
// each free (odd while live, even while free). An allocation returns a Ref
// capturing the generation; Load returns nil once the slot has been freed
// or recycled, so stale references are detectable instead of silently
// aliasing a new object.
package arena

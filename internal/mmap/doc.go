// Package mmap provides anonymous memory mappings for off-heap allocation.
//
// The slab arena obtains its chunks through MapAnon so retired-node memory
// lives outside the Go heap: the garbage collector never scans it, and a
// chunk stays mapped until the arena is closed, so a stale reader racing a
// free dereferences valid memory instead of faulting.
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) with MAP_ANON | MAP_PRIVATE
//   - Windows: VirtualAlloc with MEM_RESERVE | MEM_COMMIT
//
// # Thread Safety
//
// Bytes is safe for concurrent use. Close is idempotent, but callers must
// ensure no goroutine touches the mapped memory after Close returns.
package mmap

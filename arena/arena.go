package arena

import (
	"errors"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/hupe1980/smr/internal/mmap"
)

var (
	// ErrClosed is returned when allocating from a closed arena.
	ErrClosed = errors.New("arena: closed")
	// ErrMaxChunksExceeded is returned when the arena exceeds the maximum
	// number of chunks.
	ErrMaxChunksExceeded = errors.New("arena: max chunks exceeded")
)

const (
	// DefaultSlotsPerChunk is the default number of slots carved from one
	// mmap chunk.
	DefaultSlotsPerChunk = 1024
	// MaxChunks limits the number of chunks to prevent runaway growth.
	MaxChunks = 65536
)

// slot is the per-slot header preceding each payload.
//
// gen is odd while the slot is live and even while it is free; it is bumped
// on every transition, so a generation value identifies one lifetime of the
// slot. next links free slots and is guarded by the arena mutex.
type slot struct {
	gen  atomic.Uint32
	_    uint32
	next *slot
}

// headerSize is the slot header footprint, rounded up so payloads keep
// 8-byte alignment.
var headerSize = int((unsafe.Sizeof(slot{}) + 7) &^ 7)

// Ref is a generation-validated reference to an allocated slot.
// It detects ABA reuse: once the slot is freed (and possibly reallocated),
// Load rejects the Ref instead of handing out the new occupant.
type Ref struct {
	Gen uint32
	Ptr unsafe.Pointer
}

type chunk struct {
	mapping *mmap.Mapping
	base    unsafe.Pointer
	used    int // slots carved so far, guarded by Arena.mu
}

// Arena is a slab allocator handing out fixed-size slots from mmap chunks.
type Arena struct {
	slotSize      int // payload bytes, 8-byte aligned
	stride        int // header + payload
	slotsPerChunk int

	mu       sync.Mutex
	chunks   []*chunk
	freeHead *slot
	closed   bool

	allocs atomic.Uint64
	frees  atomic.Uint64
}

// Option is a configuration option for Arena.
type Option func(*Arena)

// WithSlotsPerChunk sets how many slots each mmap chunk holds. Larger
// chunks amortize mmap calls; smaller chunks waste less on small pools.
func WithSlotsPerChunk(n int) Option {
	return func(a *Arena) {
		if n > 0 {
			a.slotsPerChunk = n
		}
	}
}

// New creates an arena whose slots hold slotSize bytes of payload.
func New(slotSize int, opts ...Option) (*Arena, error) {
	if slotSize <= 0 {
		return nil, errors.New("arena: slot size must be positive")
	}

	a := &Arena{
		slotSize:      (slotSize + 7) &^ 7,
		slotsPerChunk: DefaultSlotsPerChunk,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.stride = headerSize + a.slotSize

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.growLocked(); err != nil {
		return nil, err
	}
	return a, nil
}

// Alloc returns a zeroed slot and a generation-validated Ref to it.
func (a *Arena) Alloc() (unsafe.Pointer, Ref, error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil, Ref{}, ErrClosed
	}

	s := a.freeHead
	if s != nil {
		a.freeHead = s.next
		s.next = nil
	} else {
		cur := a.chunks[len(a.chunks)-1]
		if cur.used == a.slotsPerChunk {
			if err := a.growLocked(); err != nil {
				a.mu.Unlock()
				return nil, Ref{}, err
			}
			cur = a.chunks[len(a.chunks)-1]
		}
		s = (*slot)(unsafe.Add(cur.base, cur.used*a.stride))
		cur.used++
	}
	a.mu.Unlock()

	gen := s.gen.Add(1) // even -> odd: live
	p := unsafe.Add(unsafe.Pointer(s), headerSize)
	clear(unsafe.Slice((*byte)(p), a.slotSize))

	a.allocs.Add(1)
	return p, Ref{Gen: gen, Ptr: p}, nil
}

// Free recycles a slot previously returned by Alloc. Freeing a pointer
// twice, or a pointer the arena did not allocate, is a memory-safety bug
// and panics rather than corrupting the free list.
func (a *Arena) Free(ptr unsafe.Pointer) {
	s := header(ptr)
	if s.gen.Load()&1 == 0 {
		panic("arena: double free or foreign pointer")
	}
	s.gen.Add(1) // odd -> even: free

	a.mu.Lock()
	s.next = a.freeHead
	a.freeHead = s
	a.mu.Unlock()

	a.frees.Add(1)
}

// Load returns the slot pointer if ref still refers to the same lifetime
// of the slot, or nil if the slot has since been freed or reallocated.
func (a *Arena) Load(ref Ref) unsafe.Pointer {
	if ref.Ptr == nil {
		return nil
	}
	if header(ref.Ptr).gen.Load() != ref.Gen {
		return nil
	}
	return ref.Ptr
}

// Finalizer adapts Free to the reclamation engine's finalizer contract, so
// retired arena slots can be handed straight to Handle.Retire.
func (a *Arena) Finalizer() func(unsafe.Pointer) {
	return a.Free
}

// SlotSize returns the usable payload size of each slot, which may be
// larger than requested due to alignment.
func (a *Arena) SlotSize() int {
	return a.slotSize
}

// Stats reports arena usage counters.
type Stats struct {
	Chunks      int    // mapped chunks currently held
	TotalAllocs uint64 // cumulative allocations
	TotalFrees  uint64 // cumulative frees
	Live        uint64 // allocations not yet freed
}

// Stats returns a snapshot of the arena's usage counters.
func (a *Arena) Stats() Stats {
	a.mu.Lock()
	chunks := len(a.chunks)
	a.mu.Unlock()

	allocs := a.allocs.Load()
	frees := a.frees.Load()
	return Stats{
		Chunks:      chunks,
		TotalAllocs: allocs,
		TotalFrees:  frees,
		Live:        allocs - frees,
	}
}

// Close unmaps every chunk. All outstanding pointers and Refs become
// invalid; the caller must guarantee no goroutine still uses them.
func (a *Arena) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true
	a.freeHead = nil

	var firstErr error
	for _, c := range a.chunks {
		if err := c.mapping.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.chunks = nil
	return firstErr
}

func (a *Arena) growLocked() error {
	if len(a.chunks) >= MaxChunks {
		return ErrMaxChunksExceeded
	}

	m, err := mmap.MapAnon(a.stride * a.slotsPerChunk)
	if err != nil {
		return err
	}
	a.chunks = append(a.chunks, &chunk{
		mapping: m,
		base:    unsafe.Pointer(&m.Bytes()[0]),
	})
	return nil
}

func header(ptr unsafe.Pointer) *slot {
	return (*slot)(unsafe.Add(ptr, -headerSize))
}

package fixedarena

import (
	"fmt"
	"unsafe"

	"github.com/hupe1980/fixedarena/internal/blocklist"
	"github.com/hupe1980/fixedarena/internal/mem"
	"github.com/hupe1980/fixedarena/internal/mmap"
)

const (
	// Alignment is the arena's base alignment in bytes. Allocate never honours
	// more than this, and ArenaAllocator rounds every request up to a multiple
	// of it so vector storage always starts aligned.
	Alignment = 8

	// MaxCapacity is the largest arena capacity in bytes.
	MaxCapacity = blocklist.MaxCapacity
)

// Block describes a sub-range of an arena buffer.
type Block = blocklist.Block

// Range is the token returned by Allocate. It must be passed back unchanged
// (same Offset, same Length) to Release.
type Range struct {
	Offset int
	Length int
}

// End returns the offset one past the last byte of the range.
func (r Range) End() int {
	return r.Offset + r.Length
}

// Stats is a snapshot of arena usage.
//
// Note on semantics:
//   - UsedBytes/FreeBytes: current split of Capacity between allocated and free blocks
//   - LargestFree: the largest request that can currently succeed
//   - Allocations/Releases/Splits/Coalesces: cumulative counts since New
type Stats struct {
	Capacity        int
	UsedBytes       int
	FreeBytes       int
	Blocks          int
	AllocatedBlocks int
	FreeBlocks      int
	LargestFree     int
	Allocations     uint64
	Releases        uint64
	Splits          uint64
	Coalesces       uint64
}

// Fragmentation returns 1 - LargestFree/FreeBytes: 0 when all free space is
// one block, approaching 1 as it is scattered across many small blocks.
func (s Stats) Fragmentation() float64 {
	if s.FreeBytes == 0 {
		return 0
	}
	return 1 - float64(s.LargestFree)/float64(s.FreeBytes)
}

type counters struct {
	allocations uint64
	releases    uint64
	splits      uint64
	coalesces   uint64
}

// Arena is a fixed-capacity first-fit allocator over a single buffer.
//
// The buffer is acquired once in New and released once in Close; the arena
// never grows. Arena is not safe for concurrent use.
type Arena struct {
	buf      []byte
	mapping  *mmap.Mapping // non-nil for BackingMmap
	blocks   *blocklist.List
	opts     options
	logger   *Logger
	metrics  MetricsCollector
	counters counters
	closed   bool
}

// New creates an arena of exactly capacity bytes with one free block spanning it.
//
// It returns ErrInvalidCapacity if capacity is not in (0, MaxCapacity], and
// ErrOutOfMemory if the memory budget or the system cannot supply the buffer.
func New(capacity int, optFns ...Option) (*Arena, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	blocks, err := blocklist.New(capacity)
	if err != nil {
		return nil, translateError(err)
	}

	if err := opts.controller.AcquireMemory(int64(capacity)); err != nil {
		return nil, translateError(err)
	}

	a := &Arena{
		blocks:  blocks,
		opts:    opts,
		logger:  opts.logger.WithArena(capacity),
		metrics: opts.metricsCollector,
	}

	if err := a.acquire(capacity); err != nil {
		opts.controller.ReleaseMemory(int64(capacity))
		a.logger.Error("arena creation failed", "backing", opts.backing, "error", err)
		return nil, err
	}

	a.logger.Debug("arena created", "backing", opts.backing)
	return a, nil
}

func (a *Arena) acquire(capacity int) error {
	switch a.opts.backing {
	case BackingMmap:
		m, err := mmap.MapAnon(capacity)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrOutOfMemory, err)
		}
		a.mapping = m
		a.buf = m.Bytes()
	case BackingHeap:
		buf, err := mem.AllocAligned(capacity)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrOutOfMemory, err)
		}
		a.buf = buf
	default:
		return fmt.Errorf("unknown backing %d", a.opts.backing)
	}
	return nil
}

// Capacity returns the arena size in bytes.
func (a *Arena) Capacity() int {
	return a.blocks.Capacity()
}

// Backing returns where the arena buffer lives.
func (a *Arena) Backing() Backing {
	return a.opts.backing
}

// Allocate reserves size bytes from the first free block large enough to hold
// them, splitting that block if it is larger.
//
// alignment is either 0 (the base alignment) or a power of two no larger than
// Alignment. The arena never searches for a better-aligned block: requests
// needing more than Alignment fail with ErrUnsupportedAlignment.
//
// It returns ErrAllocationFailed when no free block is large enough.
func (a *Arena) Allocate(size, alignment int) (Range, error) {
	if a.closed {
		return Range{}, ErrClosed
	}
	if alignment < 0 || alignment > Alignment || alignment&(alignment-1) != 0 {
		err := fmt.Errorf("%w: %d (base alignment is %d)", ErrUnsupportedAlignment, alignment, Alignment)
		a.logger.LogAllocate(size, -1, err)
		a.metrics.RecordAllocate(size, err)
		return Range{}, err
	}

	res, err := a.blocks.Allocate(size)
	if err != nil {
		err = &AllocationError{Size: size, LargestFree: a.blocks.LargestFree(), cause: translateError(err)}
		a.logger.LogAllocate(size, -1, err)
		a.metrics.RecordAllocate(size, err)
		return Range{}, err
	}

	a.counters.allocations++
	if res.Split {
		a.counters.splits++
		a.logger.LogSplit(res.Block.Offset, res.Block.Length, res.Remainder.Offset, res.Remainder.Length)
		a.metrics.RecordSplit()
	}

	a.logger.LogAllocate(size, res.Block.Offset, nil)
	a.metrics.RecordAllocate(size, nil)

	return Range{Offset: res.Block.Offset, Length: res.Block.Length}, nil
}

// Release returns the allocated block at offset, which must be exactly size
// bytes long, and merges it with free neighbours.
//
// It returns ErrInvalidRelease for offsets that were never returned by
// Allocate, blocks that are already free, and size mismatches.
func (a *Arena) Release(offset, size int) error {
	if a.closed {
		return ErrClosed
	}

	res, err := a.blocks.Release(offset, size)
	if err != nil {
		err = &ReleaseError{Offset: offset, Size: size, cause: translateError(err)}
		a.logger.LogRelease(offset, size, err)
		a.metrics.RecordRelease(size, err)
		return err
	}

	a.counters.releases++
	a.logger.LogRelease(offset, size, nil)
	a.metrics.RecordRelease(size, nil)

	if res.MergedNext {
		a.counters.coalesces++
		a.metrics.RecordCoalesce()
	}
	if res.MergedPrev {
		a.counters.coalesces++
		a.metrics.RecordCoalesce()
	}
	if res.MergedNext || res.MergedPrev {
		a.logger.LogCoalesce(res.Block.Offset, res.Block.Length, res.MergedNext, res.MergedPrev)
	}

	return nil
}

// Bytes returns the memory of an allocated range. It returns nil if r is not
// currently allocated or the arena is closed.
//
// The slice aliases the arena buffer and is valid until r is released.
func (a *Arena) Bytes(r Range) []byte {
	if a.closed {
		return nil
	}
	b, ok := a.blocks.Lookup(r.Offset)
	if !ok || !b.Allocated || b.Length != r.Length {
		return nil
	}
	return a.buf[r.Offset:r.End():r.End()]
}

// Blocks returns a snapshot of the block list in ascending offset order.
func (a *Arena) Blocks() []Block {
	return a.blocks.Blocks()
}

// Leaks returns the blocks that are currently allocated.
func (a *Arena) Leaks() []Block {
	return a.blocks.Allocated()
}

// Validate checks the block list invariants: the blocks partition the buffer
// exactly and no two neighbouring blocks are free.
func (a *Arena) Validate() error {
	return a.blocks.Validate()
}

// Stats returns current arena statistics.
func (a *Arena) Stats() Stats {
	free := a.blocks.FreeBytes()
	freeBlocks := a.blocks.FreeCount()
	return Stats{
		Capacity:        a.blocks.Capacity(),
		UsedBytes:       a.blocks.Capacity() - free,
		FreeBytes:       free,
		Blocks:          a.blocks.Len(),
		AllocatedBlocks: a.blocks.Len() - freeBlocks,
		FreeBlocks:      freeBlocks,
		LargestFree:     a.blocks.LargestFree(),
		Allocations:     a.counters.allocations,
		Releases:        a.counters.releases,
		Splits:          a.counters.splits,
		Coalesces:       a.counters.coalesces,
	}
}

// Close releases the arena buffer. Blocks still allocated are reported as
// leaks to the logger and metrics collector; they are not an error.
//
// Close is idempotent. After Close, Allocate and Release return ErrClosed.
func (a *Arena) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true

	leaks := a.blocks.Allocated()
	for _, b := range leaks {
		a.logger.LogLeak(b.Offset, b.Length)
		a.metrics.RecordLeak(b.Length)
	}

	var err error
	if a.mapping != nil {
		err = a.mapping.Close()
		a.mapping = nil
	}
	a.buf = nil
	a.opts.controller.ReleaseMemory(int64(a.blocks.Capacity()))

	a.logger.LogClose(len(leaks), err)
	return err
}

// Closed reports whether Close has been called.
func (a *Arena) Closed() bool {
	return a.closed
}

func (a *Arena) String() string {
	s := a.Stats()
	return fmt.Sprintf(
		"Arena{capacity: %d, used: %d, free: %d, blocks: %d (%d allocated), largest free: %d, fragmentation: %.1f%%}",
		s.Capacity,
		s.UsedBytes,
		s.FreeBytes,
		s.Blocks,
		s.AllocatedBlocks,
		s.LargestFree,
		s.Fragmentation()*100,
	)
}

// offsetOf returns the offset of p's first byte within the arena buffer.
func (a *Arena) offsetOf(p []byte) (int, bool) {
	if len(a.buf) == 0 || cap(p) == 0 {
		return 0, false
	}
	base := uintptr(unsafe.Pointer(unsafe.SliceData(a.buf))) //nolint:gosec // address comparison only
	ptr := uintptr(unsafe.Pointer(unsafe.SliceData(p)))      //nolint:gosec // address comparison only
	if ptr < base || ptr >= base+uintptr(len(a.buf)) {
		return 0, false
	}
	return int(ptr - base), true //nolint:gosec // bounded by len(a.buf)
}

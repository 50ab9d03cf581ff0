package blocklist

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/fixedarena/internal/conv"
)

// MaxCapacity is the largest capacity a List can manage.
const MaxCapacity = math.MaxUint32

var (
	// ErrInvalidCapacity is returned when the capacity is not in (0, MaxCapacity].
	ErrInvalidCapacity = errors.New("blocklist: invalid capacity")
	// ErrInvalidSize is returned when an allocation size is not positive.
	ErrInvalidSize = errors.New("blocklist: invalid size")
	// ErrNoFit is returned when no free block is large enough.
	ErrNoFit = errors.New("blocklist: no free block large enough")
	// ErrNotAllocated is returned when no allocated block starts at the offset.
	ErrNotAllocated = errors.New("blocklist: no allocated block at offset")
	// ErrLengthMismatch is returned when a release length differs from the block length.
	ErrLengthMismatch = errors.New("blocklist: release length does not match block")
	// ErrCorrupt is returned by Validate when an invariant does not hold.
	ErrCorrupt = errors.New("blocklist: corrupt block list")
)

// Block describes a contiguous sub-range of the managed region.
type Block struct {
	Offset    int
	Length    int
	Allocated bool
}

// End returns the offset one past the last byte of the block.
func (b Block) End() int {
	return b.Offset + b.Length
}

func (b Block) String() string {
	state := "free"
	if b.Allocated {
		state = "used"
	}
	return fmt.Sprintf("[%d,%d) %s", b.Offset, b.End(), state)
}

// AllocResult reports what Allocate did.
type AllocResult struct {
	Block     Block // the allocated block
	Split     bool  // whether a free remainder was carved off
	Remainder Block // the remainder, valid only if Split
}

// ReleaseResult reports what Release did.
type ReleaseResult struct {
	Block      Block // the free block that now contains the released range
	MergedNext bool
	MergedPrev bool
}

// List is an ordered, gap-free partition of [0, capacity) into blocks.
// It is not safe for concurrent use.
type List struct {
	capacity int
	blocks   []Block
	free     *roaring.Bitmap // offsets of free blocks
}

// New returns a List with a single free block spanning the whole capacity.
func New(capacity int) (*List, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	if _, err := conv.IntToUint32(capacity); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCapacity, err)
	}

	l := &List{
		capacity: capacity,
		blocks:   []Block{{Offset: 0, Length: capacity}},
		free:     roaring.New(),
	}
	l.free.Add(0)
	return l, nil
}

// Capacity returns the total number of managed bytes.
func (l *List) Capacity() int {
	return l.capacity
}

// Len returns the number of blocks.
func (l *List) Len() int {
	return len(l.blocks)
}

// Blocks returns a copy of the blocks in ascending offset order.
func (l *List) Blocks() []Block {
	return slices.Clone(l.blocks)
}

// Allocated returns a copy of the allocated blocks in ascending offset order.
func (l *List) Allocated() []Block {
	var out []Block
	for _, b := range l.blocks {
		if b.Allocated {
			out = append(out, b)
		}
	}
	return out
}

// FreeCount returns the number of free blocks.
func (l *List) FreeCount() int {
	return int(l.free.GetCardinality()) //nolint:gosec // bounded by len(l.blocks)
}

// LargestFree returns the length of the largest free block, or 0.
func (l *List) LargestFree() int {
	largest := 0
	it := l.free.Iterator()
	for it.HasNext() {
		b := l.blocks[l.mustIndex(it.Next())]
		largest = max(largest, b.Length)
	}
	return largest
}

// FreeBytes returns the total length of all free blocks.
func (l *List) FreeBytes() int {
	total := 0
	it := l.free.Iterator()
	for it.HasNext() {
		total += l.blocks[l.mustIndex(it.Next())].Length
	}
	return total
}

// Lookup returns the block starting at offset.
func (l *List) Lookup(offset int) (Block, bool) {
	idx, ok := l.index(offset)
	if !ok {
		return Block{}, false
	}
	return l.blocks[idx], true
}

// FirstFit returns the index of the first free block, in ascending offset
// order, whose length is at least size.
func (l *List) FirstFit(size int) (int, bool) {
	it := l.free.Iterator()
	for it.HasNext() {
		idx := l.mustIndex(it.Next())
		if l.blocks[idx].Length >= size {
			return idx, true
		}
	}
	return -1, false
}

// Allocate reserves size bytes from the first free block that can hold them.
func (l *List) Allocate(size int) (AllocResult, error) {
	if size <= 0 {
		return AllocResult{}, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}

	idx, ok := l.FirstFit(size)
	if !ok {
		return AllocResult{}, fmt.Errorf("%w: requested %d bytes", ErrNoFit, size)
	}

	b := &l.blocks[idx]
	l.free.Remove(key(b.Offset))
	b.Allocated = true

	if b.Length == size {
		return AllocResult{Block: *b}, nil
	}

	rest := Block{Offset: b.Offset + size, Length: b.Length - size}
	b.Length = size
	res := AllocResult{Block: *b, Split: true, Remainder: rest}

	l.blocks = slices.Insert(l.blocks, idx+1, rest)
	l.free.Add(key(rest.Offset))
	return res, nil
}

// Release frees the allocated block at offset, which must have the given
// length, and merges it with free neighbours.
func (l *List) Release(offset, length int) (ReleaseResult, error) {
	idx, ok := l.index(offset)
	if !ok || !l.blocks[idx].Allocated {
		return ReleaseResult{}, fmt.Errorf("%w: %d", ErrNotAllocated, offset)
	}
	if l.blocks[idx].Length != length {
		return ReleaseResult{}, fmt.Errorf("%w: block at %d has %d bytes, got %d",
			ErrLengthMismatch, offset, l.blocks[idx].Length, length)
	}

	var res ReleaseResult
	l.blocks[idx].Allocated = false
	l.free.Add(key(offset))

	if next := idx + 1; next < len(l.blocks) && !l.blocks[next].Allocated {
		l.blocks[idx].Length += l.blocks[next].Length
		l.free.Remove(key(l.blocks[next].Offset))
		l.blocks = slices.Delete(l.blocks, next, next+1)
		res.MergedNext = true
	}

	if prev := idx - 1; prev >= 0 && !l.blocks[prev].Allocated {
		l.blocks[prev].Length += l.blocks[idx].Length
		l.free.Remove(key(l.blocks[idx].Offset))
		l.blocks = slices.Delete(l.blocks, idx, idx+1)
		idx = prev
		res.MergedPrev = true
	}

	res.Block = l.blocks[idx]
	return res, nil
}

// Validate checks that the blocks partition [0, capacity) without gaps or
// overlaps, that no two adjacent blocks are free, and that the free index
// matches the descriptors.
func (l *List) Validate() error {
	if len(l.blocks) == 0 {
		return fmt.Errorf("%w: no blocks", ErrCorrupt)
	}

	next, total, free := 0, 0, 0
	for i, b := range l.blocks {
		if b.Length <= 0 {
			return fmt.Errorf("%w: block %d (%s) has non-positive length", ErrCorrupt, i, b)
		}
		if b.Offset != next {
			return fmt.Errorf("%w: block %d starts at %d, want %d", ErrCorrupt, i, b.Offset, next)
		}
		if i > 0 && !b.Allocated && !l.blocks[i-1].Allocated {
			return fmt.Errorf("%w: adjacent free blocks %s and %s", ErrCorrupt, l.blocks[i-1], b)
		}
		if !b.Allocated {
			free++
			if !l.free.Contains(key(b.Offset)) {
				return fmt.Errorf("%w: free block %s missing from index", ErrCorrupt, b)
			}
		}
		next = b.End()
		total += b.Length
	}

	if total != l.capacity {
		return fmt.Errorf("%w: block lengths sum to %d, capacity is %d", ErrCorrupt, total, l.capacity)
	}
	if l.FreeCount() != free {
		return fmt.Errorf("%w: free index holds %d offsets, %d blocks are free", ErrCorrupt, l.FreeCount(), free)
	}
	return nil
}

func (l *List) index(offset int) (int, bool) {
	return slices.BinarySearchFunc(l.blocks, offset, func(b Block, off int) int {
		return cmp.Compare(b.Offset, off)
	})
}

// mustIndex resolves an offset taken from the free index.
func (l *List) mustIndex(k uint32) int {
	off, _ := conv.Uint32ToInt(k)
	idx, ok := l.index(off)
	if !ok {
		panic(fmt.Sprintf("blocklist: free index references unknown offset %d", k))
	}
	return idx
}

func key(offset int) uint32 {
	return uint32(offset) //nolint:gosec // offsets are < capacity <= MaxCapacity
}

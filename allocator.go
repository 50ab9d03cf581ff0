package fixedarena

import (
	"fmt"

	"github.com/hupe1980/fixedarena/internal/conv"
)

// Allocator supplies element storage to a Vector.
type Allocator interface {
	// Allocate returns storage for count elements of elemSize bytes each.
	// The storage must be at least count*elemSize bytes long and aligned for
	// the element type; Vector rejects anything else.
	Allocate(count, elemSize int) ([]byte, error)

	// Release returns storage obtained from Allocate with the same count and elemSize.
	Release(buf []byte, count, elemSize int) error

	// Equal reports whether other hands out storage from the same source, so
	// that storage allocated by one may be released by the other.
	Equal(other Allocator) bool
}

// ArenaAllocator adapts an Arena to the Allocator interface.
//
// Byte sizes are rounded up to Alignment so every range it hands out starts
// on an aligned offset. Storage is zeroed before it is returned.
type ArenaAllocator struct {
	arena *Arena
}

var _ Allocator = (*ArenaAllocator)(nil)

// Allocator returns an Allocator drawing from a.
func (a *Arena) Allocator() *ArenaAllocator {
	return &ArenaAllocator{arena: a}
}

// Arena returns the underlying arena.
func (aa *ArenaAllocator) Arena() *Arena {
	return aa.arena
}

// Allocate implements Allocator.
func (aa *ArenaAllocator) Allocate(count, elemSize int) ([]byte, error) {
	n, err := byteSize(count, elemSize)
	if err != nil {
		return nil, err
	}

	r, err := aa.arena.Allocate(n, Alignment)
	if err != nil {
		return nil, err
	}

	if r.Offset%Alignment != 0 {
		// Only possible when the arena is shared with unaligned raw allocations.
		_ = aa.arena.Release(r.Offset, r.Length)
		return nil, fmt.Errorf("%w: block at offset %d is not %d-byte aligned",
			ErrUnsupportedAlignment, r.Offset, Alignment)
	}

	buf := aa.arena.buf[r.Offset:r.End():r.End()]
	clear(buf)
	return buf, nil
}

// Release implements Allocator.
func (aa *ArenaAllocator) Release(buf []byte, count, elemSize int) error {
	if aa.arena.closed {
		return ErrClosed
	}

	n, err := byteSize(count, elemSize)
	if err != nil {
		return err
	}

	off, ok := aa.arena.offsetOf(buf)
	if !ok {
		err := &ReleaseError{Offset: -1, Size: n, cause: fmt.Errorf("%w: pointer outside arena buffer", ErrInvalidRelease)}
		aa.arena.logger.LogRelease(-1, n, err)
		aa.arena.metrics.RecordRelease(n, err)
		return err
	}

	return aa.arena.Release(off, n)
}

// Closed reports whether the underlying arena has been closed. Storage handed
// out before Close must not be touched afterwards.
func (aa *ArenaAllocator) Closed() bool {
	return aa.arena.closed
}

// Equal implements Allocator. Two ArenaAllocators are equal when they draw
// from the same Arena instance.
func (aa *ArenaAllocator) Equal(other Allocator) bool {
	o, ok := other.(*ArenaAllocator)
	if !ok || o == nil || aa == nil {
		return false
	}
	return o.arena == aa.arena
}

// byteSize returns count*elemSize rounded up to Alignment.
func byteSize(count, elemSize int) (int, error) {
	if count <= 0 || elemSize <= 0 {
		return 0, fmt.Errorf("%w: %d elements of %d bytes", ErrInvalidSize, count, elemSize)
	}
	n, err := conv.MulInt(count, elemSize)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidSize, err)
	}
	n, err = conv.AlignUp(n, Alignment)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidSize, err)
	}
	return n, nil
}

package fixedarena

import (
	"errors"
	"fmt"

	"github.com/hupe1980/fixedarena/internal/blocklist"
	"github.com/hupe1980/fixedarena/resource"
)

var (
	// ErrOutOfMemory is returned when an arena cannot acquire its backing buffer,
	// either because the memory budget is exhausted or the system refused it.
	ErrOutOfMemory = errors.New("out of memory")

	// ErrAllocationFailed is returned when no free block is large enough.
	// The arena never grows; free space and retry if needed.
	ErrAllocationFailed = errors.New("allocation failed")

	// ErrInvalidRelease is returned when a release does not match a currently
	// allocated block (double free, foreign pointer or wrong length).
	ErrInvalidRelease = errors.New("invalid release")

	// ErrIndexOutOfRange is returned by checked element access beyond the length.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrInvalidCapacity is returned when an arena capacity is not positive or too large.
	ErrInvalidCapacity = errors.New("invalid capacity")

	// ErrInvalidSize is returned when an allocation size is not positive.
	ErrInvalidSize = errors.New("invalid size")

	// ErrUnsupportedAlignment is returned when an allocation asks for more than
	// the arena's base alignment.
	ErrUnsupportedAlignment = errors.New("unsupported alignment")

	// ErrClosed is returned by operations on a closed arena or vector.
	ErrClosed = errors.New("use after close")

	// ErrPointerElement is returned when a vector element type contains pointers.
	ErrPointerElement = errors.New("element type contains pointers")

	// ErrZeroSizeElement is returned when a vector element type has size zero.
	ErrZeroSizeElement = errors.New("element type has zero size")

	// ErrNilAllocator is returned when a vector is created without an allocator.
	ErrNilAllocator = errors.New("nil allocator")
)

// AllocationError describes a failed allocation.
//
// It matches ErrAllocationFailed (or ErrInvalidSize) via errors.Is.
type AllocationError struct {
	Size        int // requested bytes
	LargestFree int // largest free block at the time of the request
	cause       error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("allocate %d bytes (largest free block %d): %v", e.Size, e.LargestFree, e.cause)
}

func (e *AllocationError) Unwrap() error { return e.cause }

// ReleaseError describes a rejected release.
//
// It matches ErrInvalidRelease via errors.Is.
type ReleaseError struct {
	Offset int
	Size   int
	cause  error
}

func (e *ReleaseError) Error() string {
	return fmt.Sprintf("release %d bytes at offset %d: %v", e.Size, e.Offset, e.cause)
}

func (e *ReleaseError) Unwrap() error { return e.cause }

// IndexError describes an out-of-range element access.
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index %d out of range [0:%d]", e.Index, e.Len)
}

func (e *IndexError) Unwrap() error { return ErrIndexOutOfRange }

// translateError maps errors from internal packages onto the public sentinels.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, blocklist.ErrNoFit):
		return fmt.Errorf("%w: %w", ErrAllocationFailed, err)
	case errors.Is(err, blocklist.ErrInvalidSize):
		return fmt.Errorf("%w: %w", ErrInvalidSize, err)
	case errors.Is(err, blocklist.ErrNotAllocated), errors.Is(err, blocklist.ErrLengthMismatch):
		return fmt.Errorf("%w: %w", ErrInvalidRelease, err)
	case errors.Is(err, blocklist.ErrInvalidCapacity):
		return fmt.Errorf("%w: %w", ErrInvalidCapacity, err)
	case errors.Is(err, resource.ErrMemoryLimitExceeded):
		return fmt.Errorf("%w: %w", ErrOutOfMemory, err)
	}

	return err
}

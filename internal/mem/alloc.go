package mem

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"unsafe"
)

// Alignment is the byte alignment of buffers returned by AllocAligned (64 bytes).
const Alignment = 64

// ErrAllocFailed is returned when the runtime refuses to allocate the buffer.
var ErrAllocFailed = errors.New("mem: allocation failed")

// AllocAligned allocates a zeroed byte slice of the given size with 64-byte alignment.
// The returned slice is guaranteed to start at a memory address divisible by 64.
//
// Note: This function allocates slightly more memory than requested to ensure alignment.
// The underlying array is kept alive by the returned slice.
func AllocAligned(size int) (buf []byte, err error) {
	if size <= 0 {
		return nil, nil
	}
	if size > math.MaxInt-Alignment {
		return nil, fmt.Errorf("%w: %d bytes", ErrAllocFailed, size)
	}

	// make panics with a runtime error when the length is out of range for
	// the platform; surface that as an error instead.
	defer func() {
		if r := recover(); r != nil {
			rerr, ok := r.(runtime.Error)
			if !ok {
				panic(r)
			}
			buf, err = nil, fmt.Errorf("%w: %d bytes: %v", ErrAllocFailed, size, rerr)
		}
	}()

	// Allocate size + alignment to ensure we can find an aligned offset
	raw := make([]byte, size+Alignment)

	addr := uintptr(unsafe.Pointer(&raw[0])) //nolint:gosec // unsafe is required for memory alignment
	offset := (Alignment - (addr & (Alignment - 1))) & (Alignment - 1)

	return raw[offset : offset+uintptr(size) : offset+uintptr(size)], nil
}

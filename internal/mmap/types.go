package mmap

import "errors"

var (
	// ErrInvalidSize is returned when the requested size is not positive.
	ErrInvalidSize = errors.New("mmap: invalid size")
	// ErrUnsupported is returned on platforms without anonymous mappings.
	ErrUnsupported = errors.New("mmap: anonymous mappings not supported on this platform")
)

// Package mmap provides anonymous memory mappings for off-heap buffers.
//
// # Anonymous Mappings
//
// MapAnon() creates a read-write private anonymous mapping. The arena uses it
// to obtain its backing buffer outside the Go garbage collector's control, so
// a large arena adds nothing to the heap the collector has to scan.
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) with MAP_ANON|MAP_PRIVATE
//   - Windows: VirtualAlloc with MEM_RESERVE|MEM_COMMIT
//   - Other platforms: MapAnon returns ErrUnsupported
//
// # Lifetime
//
// Close() unmaps the memory and is idempotent. Callers must not touch the
// slice returned by Bytes() after Close() returns.
package mmap

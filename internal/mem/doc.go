// Package mem provides aligned heap buffers.
//
// # Aligned Allocation
//
// AllocAligned returns a byte slice whose first byte sits on a 64-byte
// boundary, which satisfies the alignment of every Go scalar type and keeps
// arena blocks cache-line aligned.
package mem

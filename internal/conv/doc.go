// Package conv provides checked integer arithmetic and conversions.
//
// Byte sizes in the arena are computed from caller-supplied element counts and
// element sizes, and block offsets are indexed in a 32-bit bitmap. These helpers
// report overflow as an error instead of silently wrapping.
//
// For arithmetic that is provably safe by construction (offsets inside an
// already-validated buffer, loop indices) use direct expressions instead.
package conv

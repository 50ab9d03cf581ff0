package conv

import (
	"fmt"
	"math"
	"math/bits"
)

// IntToUint32 converts int to uint32 safely.
func IntToUint32(v int) (uint32, error) {
	if v < 0 {
		return 0, fmt.Errorf("integer overflow: %d cannot be converted to uint32 (negative)", v)
	}
	// On 64-bit systems, int can exceed uint32 max; on 32-bit, this is always false
	if uint64(v) > math.MaxUint32 {
		return 0, fmt.Errorf("integer overflow: %d cannot be converted to uint32 (too large)", v)
	}
	return uint32(v), nil
}

// Uint32ToInt converts uint32 to int safely.
func Uint32ToInt(v uint32) (int, error) {
	if uint64(v) > uint64(math.MaxInt) {
		return 0, fmt.Errorf("integer overflow: %d cannot be converted to int (too large)", v)
	}
	return int(v), nil
}

// MulInt multiplies two non-negative ints and reports overflow.
func MulInt(a, b int) (int, error) {
	if a < 0 || b < 0 {
		return 0, fmt.Errorf("integer overflow: %d * %d has a negative operand", a, b)
	}
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if hi != 0 || lo > uint64(math.MaxInt) {
		return 0, fmt.Errorf("integer overflow: %d * %d exceeds max int", a, b)
	}
	return int(lo), nil
}

// AlignUp rounds v up to the next multiple of align, which must be a power of two.
func AlignUp(v, align int) (int, error) {
	if v < 0 {
		return 0, fmt.Errorf("integer overflow: cannot align negative value %d", v)
	}
	if align <= 0 || align&(align-1) != 0 {
		return 0, fmt.Errorf("invalid alignment %d: must be a positive power of two", align)
	}
	mask := align - 1
	if v > math.MaxInt-mask {
		return 0, fmt.Errorf("integer overflow: %d aligned to %d exceeds max int", v, align)
	}
	return (v + mask) &^ mask, nil
}

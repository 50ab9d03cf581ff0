package fixedarena

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/hupe1980/fixedarena/internal/conv"
)

// elemLayout returns the size and alignment of T after checking that T can
// live in arena memory: it must have a non-zero size, need no more than
// Alignment, and contain no pointers, since the garbage collector does not
// scan arena buffers.
func elemLayout[T any]() (size, align int, err error) {
	t := reflect.TypeFor[T]()
	if t.Size() == 0 {
		return 0, 0, fmt.Errorf("%w: %s", ErrZeroSizeElement, t)
	}
	if t.Align() > Alignment {
		return 0, 0, fmt.Errorf("%w: %s needs %d-byte alignment", ErrUnsupportedAlignment, t, t.Align())
	}
	if hasPointers(t) {
		return 0, 0, fmt.Errorf("%w: %s", ErrPointerElement, t)
	}
	return int(t.Size()), t.Align(), nil //nolint:gosec // type sizes fit in int
}

func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		// Pointer, String, Slice, Map, Chan, Func, Interface, UnsafePointer.
		return true
	}
}

// checkStorage verifies that buf, handed out by an Allocator, can hold n
// elements of size bytes aligned to align.
func checkStorage(buf []byte, n, size, align int) error {
	need, err := conv.MulInt(n, size)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAllocationFailed, err)
	}
	if len(buf) < need {
		return fmt.Errorf("%w: allocator returned %d bytes for %d elements of %d bytes",
			ErrAllocationFailed, len(buf), n, size)
	}
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(buf))) //nolint:gosec // address check only
	if addr%uintptr(align) != 0 { //nolint:gosec // align is a small positive type alignment
		return fmt.Errorf("%w: storage at %#x is not %d-byte aligned", ErrUnsupportedAlignment, addr, align)
	}
	return nil
}

// view reinterprets buf as n elements of T. buf must hold at least n*sizeof(T)
// bytes and be suitably aligned.
func view[T any](buf []byte, n int) []T {
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(buf))), n) //nolint:gosec // buf is aligned arena storage of sufficient size
}

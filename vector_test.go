package fixedarena

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVector[T any](t *testing.T, capacity int, opts ...VectorOption[T]) (*Vector[T], *Arena) {
	t.Helper()
	a := newTestArena(t, capacity)
	v, err := NewVector[T](a.Allocator(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = v.Close() })
	return v, a
}

// appendCaps appends values and returns every distinct capacity seen.
func appendCaps(t *testing.T, v *Vector[int32], values ...int32) []int {
	t.Helper()
	caps := []int{v.Cap()}
	for _, x := range values {
		require.NoError(t, v.Append(x))
		if c := v.Cap(); c != caps[len(caps)-1] {
			caps = append(caps, c)
		}
	}
	return caps
}

func seq(n int) []int32 {
	out := make([]int32, n)
	for i := range out {
		out[i] = int32(i) //nolint:gosec // test values
	}
	return out
}

func TestNewVector(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		v, a := newTestVector[int32](t, 64)

		assert.Equal(t, 0, v.Len())
		assert.Equal(t, 0, v.Cap())
		assert.True(t, v.IsEmpty())
		assert.True(t, v.Allocator().Equal(a.Allocator()))
		assert.Equal(t, []Block{{Offset: 0, Length: 64}}, a.Blocks())
	})

	t.Run("nil allocator", func(t *testing.T) {
		_, err := NewVector[int32](nil)
		assert.ErrorIs(t, err, ErrNilAllocator)
	})

	t.Run("pointer elements", func(t *testing.T) {
		a := newTestArena(t, 64)

		_, err := NewVector[string](a.Allocator())
		assert.ErrorIs(t, err, ErrPointerElement)
		_, err = NewVector[*int](a.Allocator())
		assert.ErrorIs(t, err, ErrPointerElement)
		_, err = NewVector[struct {
			ID   int32
			Tags []byte
		}](a.Allocator())
		assert.ErrorIs(t, err, ErrPointerElement)
	})

	t.Run("zero size elements", func(t *testing.T) {
		a := newTestArena(t, 64)
		_, err := NewVector[struct{}](a.Allocator())
		assert.ErrorIs(t, err, ErrZeroSizeElement)
	})

	t.Run("sized", func(t *testing.T) {
		a := newTestArena(t, 64)
		v, err := NewVectorSize[int64](a.Allocator(), 3)
		require.NoError(t, err)
		defer v.Close()

		assert.Equal(t, 3, v.Len())
		assert.Equal(t, 3, v.Cap())
		assert.Equal(t, []int64{0, 0, 0}, slices.Collect(v.Values()))

		_, err = NewVectorSize[int64](a.Allocator(), -1)
		assert.ErrorIs(t, err, ErrInvalidSize)
	})
}

func TestVector_Append(t *testing.T) {
	t.Run("growth", func(t *testing.T) {
		v, a := newTestVector[int32](t, 1024)

		caps := appendCaps(t, v, seq(100)...)
		assert.Equal(t, []int{0, 1, 2, 4, 8, 16, 32, 64, 128}, caps)
		assert.Equal(t, 100, v.Len())

		var sum int32
		for i, x := range v.All() {
			assert.Equal(t, int32(i), *x) //nolint:gosec // small index
			sum += *x
		}
		assert.Equal(t, int32(4950), sum)
		assert.Equal(t, seq(100), slices.Collect(v.Values()))

		// Old ranges were released and coalesced behind the live one.
		assert.Equal(t, []Block{{Offset: 0, Length: 512, Allocated: false}, {Offset: 512, Length: 512, Allocated: true}}, a.Blocks())
		require.NoError(t, a.Validate())
	})

	t.Run("exhaustion", func(t *testing.T) {
		v, a := newTestVector[int64](t, 64)

		require.NoError(t, v.Append(1))
		require.NoError(t, v.Append(2))
		require.NoError(t, v.Append(3))
		require.NoError(t, v.Append(4))
		before := a.Blocks()

		// Growing to 8 elements needs 64 contiguous bytes.
		err := v.Append(5)
		require.ErrorIs(t, err, ErrAllocationFailed)

		assert.Equal(t, 4, v.Len())
		assert.Equal(t, 4, v.Cap())
		assert.Equal(t, []int64{1, 2, 3, 4}, slices.Collect(v.Values()))
		assert.Equal(t, before, a.Blocks())
	})

	t.Run("move failure rolls back", func(t *testing.T) {
		errMove := errors.New("move failed")
		fail := false
		moved, destroyed := 0, 0

		v, a := newTestVector(t, 256,
			WithMove(func(dst, src *int32) error {
				if fail && moved == 2 {
					return errMove
				}
				moved++
				*dst = *src
				return nil
			}),
			WithDestroy(func(*int32) { destroyed++ }),
		)

		for _, x := range []int32{10, 20, 30, 40} {
			require.NoError(t, v.Append(x))
		}
		before := a.Blocks()
		stats := a.Stats()
		fail, moved, destroyed = true, 0, 0

		err := v.Append(50)
		require.ErrorIs(t, err, errMove)

		assert.Equal(t, 2, destroyed, "partially moved prefix")
		assert.Equal(t, 4, v.Len())
		assert.Equal(t, 4, v.Cap())
		assert.Equal(t, []int32{10, 20, 30, 40}, slices.Collect(v.Values()))
		assert.Equal(t, before, a.Blocks())
		assert.Equal(t, stats.Allocations+1, a.Stats().Allocations)
		assert.Equal(t, stats.Releases+1, a.Stats().Releases)

		fail = false
		require.NoError(t, v.Append(50))
		assert.Equal(t, []int32{10, 20, 30, 40, 50}, slices.Collect(v.Values()))
	})

	t.Run("after close", func(t *testing.T) {
		v, _ := newTestVector[int32](t, 64)
		require.NoError(t, v.Close())
		assert.ErrorIs(t, v.Append(1), ErrClosed)
	})
}

func TestVector_Access(t *testing.T) {
	v, _ := newTestVector[int32](t, 128)
	appendCaps(t, v, 7, 8, 9)

	assert.Equal(t, int32(8), *v.At(1))
	*v.At(1) = 80

	p, err := v.Get(1)
	require.NoError(t, err)
	assert.Equal(t, int32(80), *p)

	_, err = v.Get(3)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
	var ie *IndexError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, 3, ie.Index)
	assert.Equal(t, 3, ie.Len)

	_, err = v.Get(-1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	var seen []int32
	for _, x := range v.All() {
		seen = append(seen, *x)
		if len(seen) == 2 {
			break
		}
	}
	assert.Equal(t, []int32{7, 80}, seen)
}

func TestVector_RemoveLast(t *testing.T) {
	var destroyed []int32
	v, _ := newTestVector(t, 128, WithDestroy(func(x *int32) { destroyed = append(destroyed, *x) }))

	v.RemoveLast()
	assert.Empty(t, destroyed)

	appendCaps(t, v, 1, 2, 3)
	destroyed = nil

	v.RemoveLast()
	assert.Equal(t, []int32{3}, destroyed)
	assert.Equal(t, 2, v.Len())
	assert.Equal(t, 4, v.Cap())
	assert.Equal(t, int32(0), *v.At(2), "destroyed slot is zeroed")
}

func TestVector_Clear(t *testing.T) {
	destroyed := 0
	v, a := newTestVector(t, 1024, WithDestroy(func(*int32) { destroyed++ }))

	fresh := appendCaps(t, v, seq(20)...)
	blocks := a.Blocks()
	destroyed = 0

	v.Clear()
	assert.Equal(t, 20, destroyed)
	assert.Equal(t, 0, v.Len())
	assert.True(t, v.IsEmpty())
	assert.Equal(t, 32, v.Cap())
	assert.Equal(t, blocks, a.Blocks(), "storage is kept")

	again := appendCaps(t, v, seq(70)...)
	assert.Equal(t, seq(70), slices.Collect(v.Values()))
	assert.Equal(t, []int{32, 64, 128}, again)
	assert.Equal(t, fresh[len(fresh)-1], again[0])
	for i := 1; i < len(again); i++ {
		assert.Equal(t, again[i-1]*2, again[i])
	}
}

func TestVector_Destroy(t *testing.T) {
	destroyed := 0
	a := newTestArena(t, 256)
	v, err := NewVector(a.Allocator(), WithDestroy(func(*int32) { destroyed++ }))
	require.NoError(t, err)

	appendCaps(t, v, 1, 2, 3)
	// Growth 1->2 destroys one old element, 2->4 destroys two.
	assert.Equal(t, 3, destroyed)

	v.RemoveLast()
	assert.Equal(t, 4, destroyed)

	require.NoError(t, v.Close())
	assert.Equal(t, 6, destroyed)
	assert.Empty(t, a.Leaks())

	require.NoError(t, v.Close())
	assert.Equal(t, 6, destroyed)
}

func TestVector_Move(t *testing.T) {
	v, a := newTestVector[int32](t, 128)
	appendCaps(t, v, 1, 2, 3)

	w := v.Move()
	defer w.Close()

	assert.Equal(t, 0, v.Len())
	assert.Equal(t, 0, v.Cap())
	assert.Equal(t, []int32{1, 2, 3}, slices.Collect(w.Values()))
	assert.True(t, w.Allocator().Equal(v.Allocator()))
	assert.Len(t, a.Leaks(), 1)

	// The moved-from vector stays usable.
	require.NoError(t, v.Append(9))
	assert.Len(t, a.Leaks(), 2)
	require.NoError(t, v.Close())
	require.NoError(t, w.Close())
	assert.Empty(t, a.Leaks())
}

func TestVector_Struct(t *testing.T) {
	type point struct {
		X, Y float64
		Tag  [4]byte
		ID   int32
	}

	v, _ := newTestVector[point](t, 512)
	for i := 0; i < 5; i++ {
		require.NoError(t, v.Append(point{X: float64(i), Y: float64(-i), Tag: [4]byte{'p'}, ID: int32(i)})) //nolint:gosec // small index
	}

	p, err := v.Get(4)
	require.NoError(t, err)
	assert.Equal(t, point{X: 4, Y: -4, Tag: [4]byte{'p'}, ID: 4}, *p)
}

var errRelease = errors.New("release failed")

// heapAllocator hands out Go heap storage that may be too short or misaligned.
type heapAllocator struct {
	short       bool
	misalign    bool
	failRelease int // fail the n-th Release, 0 never
	releases    int
}

func (h *heapAllocator) Allocate(count, elemSize int) ([]byte, error) {
	n := count * elemSize
	if h.short {
		n = 8
	}
	if h.misalign {
		return make([]byte, n+1)[1:], nil
	}
	return make([]byte, n), nil
}

func (h *heapAllocator) Release([]byte, int, int) error {
	h.releases++
	if h.releases == h.failRelease {
		return errRelease
	}
	return nil
}

func (h *heapAllocator) Equal(other Allocator) bool {
	o, ok := other.(*heapAllocator)
	return ok && o == h
}

func TestVector_Storage(t *testing.T) {
	t.Run("short storage", func(t *testing.T) {
		alloc := &heapAllocator{short: true}

		_, err := NewVectorSize[int64](alloc, 1000)
		require.ErrorIs(t, err, ErrAllocationFailed)
		assert.Equal(t, 1, alloc.releases)

		v, err := NewVector[int64](alloc)
		require.NoError(t, err)
		require.NoError(t, v.Append(1))

		err = v.Append(2)
		require.ErrorIs(t, err, ErrAllocationFailed)
		assert.Equal(t, 1, v.Len())
		assert.Equal(t, 1, v.Cap())
		assert.Equal(t, []int64{1}, slices.Collect(v.Values()))
	})

	t.Run("misaligned storage", func(t *testing.T) {
		alloc := &heapAllocator{misalign: true}
		v, err := NewVector[int64](alloc)
		require.NoError(t, err)

		require.ErrorIs(t, v.Append(1), ErrUnsupportedAlignment)
		assert.Equal(t, 1, alloc.releases)
		assert.True(t, v.IsEmpty())

		// Byte elements need no alignment.
		b, err := NewVector[byte](alloc)
		require.NoError(t, err)
		require.NoError(t, b.Append(7))
	})

	t.Run("old storage release fails", func(t *testing.T) {
		alloc := &heapAllocator{failRelease: 1}
		v, err := NewVector[int32](alloc)
		require.NoError(t, err)
		require.NoError(t, v.Append(1))

		err = v.Append(2)
		require.ErrorIs(t, err, errRelease)
		assert.Equal(t, 2, v.Len())
		assert.Equal(t, 2, v.Cap())
		assert.Equal(t, []int32{1, 2}, slices.Collect(v.Values()))
	})
}

func TestVector_MoveFrom(t *testing.T) {
	t.Run("replaces storage", func(t *testing.T) {
		a := newTestArena(t, 256)
		src, err := NewVector[int32](a.Allocator())
		require.NoError(t, err)
		appendCaps(t, src, 1, 2, 3)

		destroyed := 0
		dst, err := NewVector(a.Allocator(), WithDestroy(func(*int32) { destroyed++ }))
		require.NoError(t, err)
		require.NoError(t, dst.Append(9))
		assert.Len(t, a.Leaks(), 2)

		require.NoError(t, dst.MoveFrom(src))
		assert.Equal(t, 1, destroyed)
		assert.Equal(t, []int32{1, 2, 3}, slices.Collect(dst.Values()))
		assert.Equal(t, 4, dst.Cap())
		assert.Equal(t, 0, src.Len())
		assert.Equal(t, 0, src.Cap())
		assert.Len(t, a.Leaks(), 1)

		require.NoError(t, dst.MoveFrom(dst))
		assert.Equal(t, 3, dst.Len())

		require.NoError(t, src.Close())
		require.NoError(t, dst.Close())
		assert.Empty(t, a.Leaks())
	})

	t.Run("takes the source allocator", func(t *testing.T) {
		a := newTestArena(t, 128)
		b := newTestArena(t, 128)

		src, err := NewVector[int64](b.Allocator())
		require.NoError(t, err)
		require.NoError(t, src.Append(42))
		dst, err := NewVector[int64](a.Allocator())
		require.NoError(t, err)

		require.NoError(t, dst.MoveFrom(src))
		assert.True(t, dst.Allocator().Equal(b.Allocator()))

		require.NoError(t, dst.Close())
		assert.Empty(t, a.Leaks())
		assert.Empty(t, b.Leaks())
	})

	t.Run("closed receiver", func(t *testing.T) {
		a := newTestArena(t, 128)
		src, err := NewVector[int64](a.Allocator())
		require.NoError(t, err)
		require.NoError(t, src.Append(1))
		dst, err := NewVector[int64](a.Allocator())
		require.NoError(t, err)
		require.NoError(t, dst.Close())

		assert.ErrorIs(t, dst.MoveFrom(src), ErrClosed)
		assert.Equal(t, 1, src.Len())
		require.NoError(t, src.Close())
	})
}

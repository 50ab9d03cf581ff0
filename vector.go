package fixedarena

import (
	"errors"
	"fmt"
	"iter"

	"github.com/hupe1980/fixedarena/internal/conv"
)

// VectorOption configures a Vector.
type VectorOption[T any] func(*vectorOptions[T])

type vectorOptions[T any] struct {
	move    func(dst, src *T) error
	destroy func(*T)
}

// WithMove sets the per-element move step used when the vector grows.
// The default copies *src into *dst and never fails.
//
// If fn returns an error, the growth is rolled back: elements already moved
// into the new storage are destroyed, the new storage is released and the
// vector keeps its previous storage and contents.
func WithMove[T any](fn func(dst, src *T) error) VectorOption[T] {
	return func(o *vectorOptions[T]) {
		o.move = fn
	}
}

// WithDestroy sets a hook that runs on every element the vector destroys
// (removal, clear, growth and close) before its slot is zeroed.
func WithDestroy[T any](fn func(*T)) VectorOption[T] {
	return func(o *vectorOptions[T]) {
		o.destroy = fn
	}
}

func copyMove[T any](dst, src *T) error {
	*dst = *src
	return nil
}

// Vector is a growable sequence whose storage comes from an Allocator.
//
// Elements [0, Len) are constructed; [Len, Cap) is raw storage. Pointers
// returned by At, Get and All are valid until the next growth or removal.
//
// T must be free of pointers (no strings, slices, maps or pointers), because
// arena memory is not scanned by the garbage collector. Vector is not safe
// for concurrent use.
//
// If the allocator reports that its memory is gone (an ArenaAllocator whose
// Arena was closed), the vector drops its storage without touching it: the
// elements are lost, destroy hooks do not run, and Append and Close return
// ErrClosed.
type Vector[T any] struct {
	alloc     Allocator
	elemSize  int
	elemAlign int
	buf       []byte // nil while the vector has no storage
	data      []T    // view over buf, len(data) == capacity
	size      int
	move      func(dst, src *T) error
	destroy   func(*T)
	closed    bool
}

type closedReporter interface {
	Closed() bool
}

// NewVector returns an empty vector that draws storage from alloc.
// No storage is allocated until the first Append.
func NewVector[T any](alloc Allocator, opts ...VectorOption[T]) (*Vector[T], error) {
	if alloc == nil {
		return nil, ErrNilAllocator
	}

	size, align, err := elemLayout[T]()
	if err != nil {
		return nil, err
	}

	o := vectorOptions[T]{move: copyMove[T]}
	for _, fn := range opts {
		fn(&o)
	}
	if o.move == nil {
		o.move = copyMove[T]
	}

	return &Vector[T]{
		alloc:     alloc,
		elemSize:  size,
		elemAlign: align,
		move:      o.move,
		destroy:   o.destroy,
	}, nil
}

// NewVectorSize returns a vector holding n zero-value elements, with
// capacity exactly n.
func NewVectorSize[T any](alloc Allocator, n int, opts ...VectorOption[T]) (*Vector[T], error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d elements", ErrInvalidSize, n)
	}

	v, err := NewVector[T](alloc, opts...)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return v, nil
	}

	buf, err := v.allocate(n)
	if err != nil {
		return nil, err
	}

	v.buf = buf
	v.data = view[T](buf, n)
	var zero T
	for i := range v.data {
		v.data[i] = zero
	}
	v.size = n
	return v, nil
}

// Len returns the number of elements.
func (v *Vector[T]) Len() int {
	v.detached()
	return v.size
}

// Cap returns the number of elements the current storage can hold.
func (v *Vector[T]) Cap() int {
	v.detached()
	return len(v.data)
}

// IsEmpty reports whether the vector has no elements.
func (v *Vector[T]) IsEmpty() bool {
	return v.Len() == 0
}

// Allocator returns the allocator the vector draws storage from.
func (v *Vector[T]) Allocator() Allocator {
	return v.alloc
}

// Append adds value at the end, growing the storage to max(1, 2*Cap) when it
// is full. If the growth fails the vector is unchanged.
//
// If growth succeeds but the old storage cannot be returned to the allocator,
// value is still appended and the release error is returned.
func (v *Vector[T]) Append(value T) error {
	if v.closed || v.detached() {
		return ErrClosed
	}

	var releaseErr error
	if v.size == len(v.data) {
		newCap := 1
		if c := len(v.data); c > 0 {
			n, err := conv.MulInt(c, 2)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrAllocationFailed, err)
			}
			newCap = n
		}
		rerr, err := v.grow(newCap)
		if err != nil {
			return err
		}
		releaseErr = rerr
	}

	v.data[v.size] = value
	v.size++
	return releaseErr
}

// grow moves the elements into new storage for newCap elements. The old
// storage is untouched until every element has been moved successfully.
//
// err reports a failed growth that left the vector unchanged; releaseErr
// reports that the vector grew but its old storage was not released.
func (v *Vector[T]) grow(newCap int) (releaseErr, err error) {
	buf, err := v.allocate(newCap)
	if err != nil {
		return nil, fmt.Errorf("grow to %d elements: %w", newCap, err)
	}
	data := view[T](buf, newCap)

	for i := 0; i < v.size; i++ {
		if err := v.move(&data[i], &v.data[i]); err != nil {
			v.destroyRange(data, 0, i)
			if rerr := v.alloc.Release(buf, newCap, v.elemSize); rerr != nil {
				err = errors.Join(err, rerr)
			}
			return nil, fmt.Errorf("grow to %d elements: move element %d: %w", newCap, i, err)
		}
	}

	v.destroyRange(v.data, 0, v.size)
	oldBuf, oldCap := v.buf, len(v.data)
	v.buf, v.data = buf, data

	if oldBuf != nil {
		if err := v.alloc.Release(oldBuf, oldCap, v.elemSize); err != nil {
			return fmt.Errorf("grow to %d elements: release old storage: %w", newCap, err), nil
		}
	}
	return nil, nil
}

// allocate obtains storage for n elements and checks that it can hold them.
func (v *Vector[T]) allocate(n int) ([]byte, error) {
	buf, err := v.alloc.Allocate(n, v.elemSize)
	if err != nil {
		return nil, err
	}
	if err := checkStorage(buf, n, v.elemSize, v.elemAlign); err != nil {
		if rerr := v.alloc.Release(buf, n, v.elemSize); rerr != nil {
			err = errors.Join(err, rerr)
		}
		return nil, err
	}
	return buf, nil
}

// RemoveLast destroys the last element. It is a no-op on an empty vector.
// Capacity is kept for reuse.
func (v *Vector[T]) RemoveLast() {
	if v.detached() || v.size == 0 {
		return
	}
	v.size--
	v.destroyRange(v.data, v.size, v.size+1)
}

// At returns a pointer to element i without checking i against Len.
// The result for i >= Len is undefined; i >= Cap panics. At does not check
// whether the allocator's memory is still there.
func (v *Vector[T]) At(i int) *T {
	return &v.data[i]
}

// Get returns a pointer to element i, or an error matching ErrIndexOutOfRange.
func (v *Vector[T]) Get(i int) (*T, error) {
	v.detached()
	if i < 0 || i >= v.size {
		return nil, &IndexError{Index: i, Len: v.size}
	}
	return &v.data[i], nil
}

// All returns an iterator over index/element-pointer pairs in index order.
// Growth or removal during iteration invalidates pointers already yielded.
func (v *Vector[T]) All() iter.Seq2[int, *T] {
	return func(yield func(int, *T) bool) {
		v.detached()
		for i := 0; i < v.size; i++ {
			if !yield(i, &v.data[i]) {
				return
			}
		}
	}
}

// Values returns an iterator over copies of the elements in index order.
func (v *Vector[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		v.detached()
		for i := 0; i < v.size; i++ {
			if !yield(v.data[i]) {
				return
			}
		}
	}
}

// Clear destroys all elements. Capacity is kept for reuse.
func (v *Vector[T]) Clear() {
	if v.detached() {
		return
	}
	v.destroyRange(v.data, 0, v.size)
	v.size = 0
}

// Move transfers the storage and elements to a new vector and leaves v empty
// with no storage. v stays usable.
func (v *Vector[T]) Move() *Vector[T] {
	nv := &Vector[T]{
		alloc:     v.alloc,
		elemSize:  v.elemSize,
		elemAlign: v.elemAlign,
		buf:       v.buf,
		data:      v.data,
		size:      v.size,
		move:      v.move,
		destroy:   v.destroy,
		closed:    v.closed,
	}
	v.buf, v.data, v.size = nil, nil, 0
	return nv
}

// MoveFrom destroys v's elements, releases its storage and then takes over
// the allocator, storage and elements of src, leaving src empty with no
// storage. MoveFrom(v) is a no-op.
//
// The transfer happens even if releasing v's old storage fails; that error is
// returned.
func (v *Vector[T]) MoveFrom(src *Vector[T]) error {
	if v == src {
		return nil
	}
	if v.closed {
		return ErrClosed
	}

	err := v.releaseStorage()

	v.alloc = src.alloc
	v.buf, v.data, v.size = src.buf, src.data, src.size
	v.move, v.destroy = src.move, src.destroy
	src.buf, src.data, src.size = nil, nil, 0
	return err
}

// Close destroys all elements and returns the storage to the allocator.
// Close is idempotent; Append on a closed vector returns ErrClosed.
//
// If the allocator's memory is already gone, Close drops the storage and
// returns ErrClosed.
func (v *Vector[T]) Close() error {
	if v.closed {
		return nil
	}
	v.closed = true
	return v.releaseStorage()
}

func (v *Vector[T]) releaseStorage() error {
	if v.detached() {
		return ErrClosed
	}

	v.Clear()
	if v.buf == nil {
		return nil
	}

	buf, n := v.buf, len(v.data)
	v.buf, v.data = nil, nil
	return v.alloc.Release(buf, n, v.elemSize)
}

// detached reports whether the allocator's memory is gone, in which case the
// storage is forgotten without being touched.
func (v *Vector[T]) detached() bool {
	c, ok := v.alloc.(closedReporter)
	if !ok || !c.Closed() {
		return false
	}
	v.buf, v.data, v.size = nil, nil, 0
	return true
}

func (v *Vector[T]) destroyRange(data []T, from, to int) {
	var zero T
	for i := from; i < to; i++ {
		if v.destroy != nil {
			v.destroy(&data[i])
		}
		data[i] = zero
	}
}

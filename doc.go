// Package fixedarena provides a fixed-capacity first-fit memory arena and a
// growable vector that draws its storage from it.
//
// An Arena owns exactly one buffer, acquired in New and released in Close.
// The buffer is carved into blocks that always cover it exactly; allocation
// takes the first free block large enough and splits off the remainder, and
// release merges the block with free neighbours. The arena never grows.
//
// # Quick Start
//
//	a, _ := fixedarena.New(1024)
//	defer a.Close()
//
//	r, _ := a.Allocate(64, 0)
//	buf := a.Bytes(r)
//	_ = a.Release(r.Offset, r.Length)
//
// # Vectors
//
// Vector[T] is a growable sequence backed by any Allocator. ArenaAllocator
// adapts an Arena:
//
//	v, _ := fixedarena.NewVector[int32](a.Allocator())
//	defer v.Close()
//
//	for i := range int32(100) {
//	    _ = v.Append(i)
//	}
//	for i, x := range v.All() {
//	    fmt.Println(i, *x)
//	}
//
// Growth doubles the capacity. If a custom move step (WithMove) fails mid-way,
// the growth is rolled back and the vector keeps its old storage.
//
// Element types must be free of pointers: arena memory is not scanned by the
// garbage collector.
//
// # Backing
//
// By default the buffer is a 64-byte aligned heap slice. WithBacking(BackingMmap)
// maps anonymous memory outside the Go heap instead.
//
// # Memory Budget
//
// Several arenas can share a budget through a resource.Controller:
//
//	rc := resource.NewController(resource.Config{MemoryLimitBytes: 64 << 20})
//	a, err := fixedarena.New(32<<20, fixedarena.WithResourceController(rc))
//	if errors.Is(err, fixedarena.ErrOutOfMemory) {
//	    // budget exhausted
//	}
//
// # Observability
//
// Allocation, release, split, coalesce and leak events go to a Logger and a
// MetricsCollector. Both are advisory:
//
//	mc := &fixedarena.BasicMetricsCollector{}
//	a, _ := fixedarena.New(4096,
//	    fixedarena.WithLogger(fixedarena.NewTextLogger(slog.LevelDebug)),
//	    fixedarena.WithMetricsCollector(mc),
//	)
//
// Blocks still allocated at Close are reported as leaks, not errors.
//
// # Errors
//
//	ErrOutOfMemory       - the buffer could not be acquired
//	ErrAllocationFailed  - no free block is large enough
//	ErrInvalidRelease    - release does not match an allocated block
//	ErrIndexOutOfRange   - checked access beyond the vector length
//
// Arena and Vector are not safe for concurrent use.
package fixedarena

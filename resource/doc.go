// Package resource implements a process-wide memory budget for arenas.
//
// A Controller tracks how many bytes arenas have reserved and, when a limit is
// configured, refuses reservations that would exceed it. Several arenas may
// share one Controller; each reserves its full capacity when it is created and
// returns it when it is closed.
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 64 << 20, // 64MB for all arenas
//	})
//
//	a, err := fixedarena.New(1<<20, fixedarena.WithResourceController(rc))
//	if errors.Is(err, fixedarena.ErrOutOfMemory) {
//	    // budget exhausted - caller decides retry/backoff
//	}
//
// # Memory Management
//
// Limits are enforced with a weighted semaphore and usage is tracked with an
// atomic counter. AcquireMemory never blocks: it returns
// ErrMemoryLimitExceeded immediately when the limit would be exceeded.
//
// # Thread Safety
//
// All Controller methods are safe for concurrent use.
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully - they become no-ops.
// This allows optional budgeting without nil checks everywhere.
package resource

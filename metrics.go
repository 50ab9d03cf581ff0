package fixedarena

import (
	"sync/atomic"
)

// MetricsCollector defines an interface for collecting arena events.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    allocBytes prometheus.Counter
//	    failures   prometheus.Counter
//	}
//
//	func (p *PrometheusCollector) RecordAllocate(size int, err error) {
//	    if err != nil {
//	        p.failures.Inc()
//	        return
//	    }
//	    p.allocBytes.Add(float64(size))
//	}
//
// Collectors are advisory and must not panic.
type MetricsCollector interface {
	// RecordAllocate is called after each allocation request.
	// size is the requested byte count, err is nil if successful.
	RecordAllocate(size int, err error)

	// RecordRelease is called after each release request.
	RecordRelease(size int, err error)

	// RecordSplit is called when an allocation splits a free block.
	RecordSplit()

	// RecordCoalesce is called once per neighbour merged on release.
	RecordCoalesce()

	// RecordLeak is called at teardown for each block still allocated.
	RecordLeak(size int)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAllocate(int, error) {}
func (NoopMetricsCollector) RecordRelease(int, error)  {}
func (NoopMetricsCollector) RecordSplit()              {}
func (NoopMetricsCollector) RecordCoalesce()           {}
func (NoopMetricsCollector) RecordLeak(int)            {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AllocCount    atomic.Int64
	AllocErrors   atomic.Int64
	AllocBytes    atomic.Int64
	ReleaseCount  atomic.Int64
	ReleaseErrors atomic.Int64
	ReleaseBytes  atomic.Int64
	SplitCount    atomic.Int64
	CoalesceCount atomic.Int64
	LeakCount     atomic.Int64
	LeakBytes     atomic.Int64
}

// RecordAllocate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAllocate(size int, err error) {
	if err != nil {
		b.AllocErrors.Add(1)
		return
	}
	b.AllocCount.Add(1)
	b.AllocBytes.Add(int64(size))
}

// RecordRelease implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRelease(size int, err error) {
	if err != nil {
		b.ReleaseErrors.Add(1)
		return
	}
	b.ReleaseCount.Add(1)
	b.ReleaseBytes.Add(int64(size))
}

// RecordSplit implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSplit() {
	b.SplitCount.Add(1)
}

// RecordCoalesce implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCoalesce() {
	b.CoalesceCount.Add(1)
}

// RecordLeak implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLeak(size int) {
	b.LeakCount.Add(1)
	b.LeakBytes.Add(int64(size))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		AllocCount:    b.AllocCount.Load(),
		AllocErrors:   b.AllocErrors.Load(),
		AllocBytes:    b.AllocBytes.Load(),
		ReleaseCount:  b.ReleaseCount.Load(),
		ReleaseErrors: b.ReleaseErrors.Load(),
		ReleaseBytes:  b.ReleaseBytes.Load(),
		SplitCount:    b.SplitCount.Load(),
		CoalesceCount: b.CoalesceCount.Load(),
		LeakCount:     b.LeakCount.Load(),
		LeakBytes:     b.LeakBytes.Load(),
	}
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AllocCount    int64
	AllocErrors   int64
	AllocBytes    int64
	ReleaseCount  int64
	ReleaseErrors int64
	ReleaseBytes  int64
	SplitCount    int64
	CoalesceCount int64
	LeakCount     int64
	LeakBytes     int64
}

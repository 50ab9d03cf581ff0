package fixedarena

import (
	"github.com/hupe1980/fixedarena/resource"
)

// Backing selects where an arena's buffer lives.
type Backing int

const (
	// BackingHeap allocates the buffer on the Go heap, 64-byte aligned.
	BackingHeap Backing = iota
	// BackingMmap maps the buffer as anonymous memory outside the Go heap.
	BackingMmap
)

func (b Backing) String() string {
	switch b {
	case BackingHeap:
		return "heap"
	case BackingMmap:
		return "mmap"
	default:
		return "unknown"
	}
}

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	backing          Backing
	controller       *resource.Controller
}

func defaultOptions() options {
	return options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		backing:          BackingHeap,
	}
}

// Option configures an Arena.
type Option func(*options)

// WithLogger sets the diagnostics logger.
//
// If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector sets the metrics collector.
//
// If nil is passed, NoopMetricsCollector is used.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithBacking selects the buffer backing. The default is BackingHeap.
//
// Element types stored through a Vector are pointer-free, so either backing
// is safe with respect to the garbage collector.
func WithBacking(b Backing) Option {
	return func(o *options) {
		o.backing = b
	}
}

// WithResourceController makes the arena reserve its capacity from rc when it
// is created and return it when it is closed. If the reservation fails, New
// returns ErrOutOfMemory.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.controller = rc
	}
}

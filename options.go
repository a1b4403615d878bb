package facevault

import (
	"log/slog"
	"time"

	"github.com/mindwatch/facevault/blobstore"
	"github.com/mindwatch/facevault/codec"
	"github.com/mindwatch/facevault/enroll"
	"github.com/mindwatch/facevault/roster"
	"github.com/mindwatch/facevault/store"
)

type options struct {
	codec              codec.Codec
	logger             *Logger
	metricsCollector   MetricsCollector
	dimension          int
	bounds             *store.CountBounds
	backupWindow       time.Duration
	mirror             blobstore.BlobStore
	processLock        bool
	extractor          enroll.Extractor
	workers            int
	topK               int
	keepImages         bool
	roster             roster.Roster
	autoRefresh        time.Duration
	disableAutoRefresh bool
	tolerance          float64
	retryTolerance     float64
}

// Option configures Service constructor behavior.
//
// Options primarily exist to avoid exploding the API surface
// (e.g. codec-specific constructor variants).
type Option func(*options)

// WithCodec configures the codec used for the metadata artifact.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := facevault.NewJSONLogger(slog.LevelInfo)
//	svc, _ := facevault.New(dir, facevault.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &facevault.BasicMetricsCollector{}
//	svc, _ := facevault.New(dir, facevault.WithMetricsCollector(metrics))
//	// ... use svc ...
//	stats := metrics.GetStats()
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithDimension overrides the expected embedding dimensionality.
func WithDimension(dim int) Option {
	return func(o *options) {
		o.dimension = dim
	}
}

// WithCountBounds overrides the per-identity count plausibility bounds used
// by integrity validation.
func WithCountBounds(b store.CountBounds) Option {
	return func(o *options) {
		o.bounds = &b
	}
}

// WithBackupWindow overrides the recent-modification window that triggers a
// backup before incremental mutations.
func WithBackupWindow(d time.Duration) Option {
	return func(o *options) {
		o.backupWindow = d
	}
}

// WithMirror mirrors committed artifacts to a blob store after every save.
// Mirroring is best-effort and never fails a save.
func WithMirror(bs blobstore.BlobStore) Option {
	return func(o *options) {
		o.mirror = bs
	}
}

// WithProcessLock guards mutations with a file lock in the model directory,
// so separate enrollment and recognition processes on the same box cannot
// interleave writes.
func WithProcessLock() Option {
	return func(o *options) {
		o.processLock = true
	}
}

// WithExtractor wires the face embedding extractor. Required for Enroll and
// EnrollBatch; a Service without one is read-only.
func WithExtractor(e enroll.Extractor) Option {
	return func(o *options) {
		o.extractor = e
	}
}

// WithEnrollWorkers sets the enrollment extraction parallelism.
func WithEnrollWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithTopK sets how many best shots per identity get committed.
func WithTopK(k int) Option {
	return func(o *options) {
		o.topK = k
	}
}

// WithKeepImages disables source-image deletion after enrollment
// (diagnostics only).
func WithKeepImages() Option {
	return func(o *options) {
		o.keepImages = true
	}
}

// WithRoster wires the authoritative enrollment roster; Status then includes
// a model/roster consistency check.
func WithRoster(r roster.Roster) Option {
	return func(o *options) {
		o.roster = r
	}
}

// WithAutoRefresh sets the background cache refresh interval. A non-positive
// value keeps the default.
func WithAutoRefresh(interval time.Duration) Option {
	return func(o *options) {
		o.autoRefresh = interval
	}
}

// WithoutAutoRefresh disables the background cache refresh loop; the cache
// then refreshes only on demand.
func WithoutAutoRefresh() Option {
	return func(o *options) {
		o.disableAutoRefresh = true
	}
}

// WithTolerance overrides the recognition distance thresholds. retry must be
// >= tolerance.
func WithTolerance(tolerance, retry float64) Option {
	return func(o *options) {
		o.tolerance = tolerance
		o.retryTolerance = retry
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	return o
}

package facevault

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    enrollCounter      prometheus.Counter
//	    recognizeHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordEnroll(duration time.Duration, err error) {
//	    p.enrollCounter.Inc()
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordEnroll is called after each single-identity enrollment.
	// duration is the total time taken, err is nil if successful.
	RecordEnroll(duration time.Duration, err error)

	// RecordBatchEnroll is called after each batch enrollment.
	// count is the number of identities attempted, failed is the number
	// that failed, duration is the total time taken.
	RecordBatchEnroll(count, failed int, duration time.Duration)

	// RecordRecognize is called after each recognition.
	// known reports whether a match cleared the tolerance.
	RecordRecognize(known bool, duration time.Duration)

	// RecordRemove is called after each identity removal.
	RecordRemove(duration time.Duration, err error)

	// RecordRefresh is called after each cache refresh decision.
	// refreshed reports whether a reload actually happened.
	RecordRefresh(refreshed bool, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordEnroll(time.Duration, error)         {}
func (NoopMetricsCollector) RecordBatchEnroll(int, int, time.Duration) {}
func (NoopMetricsCollector) RecordRecognize(bool, time.Duration)       {}
func (NoopMetricsCollector) RecordRemove(time.Duration, error)         {}
func (NoopMetricsCollector) RecordRefresh(bool, time.Duration, error)  {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	EnrollCount         atomic.Int64
	EnrollErrors        atomic.Int64
	EnrollTotalNanos    atomic.Int64
	BatchEnrollCount    atomic.Int64
	BatchEnrollItems    atomic.Int64
	BatchEnrollFailed   atomic.Int64
	RecognizeCount      atomic.Int64
	RecognizeKnown      atomic.Int64
	RecognizeTotalNanos atomic.Int64
	RemoveCount         atomic.Int64
	RemoveErrors        atomic.Int64
	RefreshCount        atomic.Int64
	RefreshReloads      atomic.Int64
	RefreshErrors       atomic.Int64
}

// RecordEnroll implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEnroll(duration time.Duration, err error) {
	b.EnrollCount.Add(1)
	b.EnrollTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.EnrollErrors.Add(1)
	}
}

// RecordBatchEnroll implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBatchEnroll(count, failed int, duration time.Duration) {
	b.BatchEnrollCount.Add(1)
	b.BatchEnrollItems.Add(int64(count))
	b.BatchEnrollFailed.Add(int64(failed))
}

// RecordRecognize implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRecognize(known bool, duration time.Duration) {
	b.RecognizeCount.Add(1)
	b.RecognizeTotalNanos.Add(duration.Nanoseconds())
	if known {
		b.RecognizeKnown.Add(1)
	}
}

// RecordRemove implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRemove(duration time.Duration, err error) {
	b.RemoveCount.Add(1)
	if err != nil {
		b.RemoveErrors.Add(1)
	}
}

// RecordRefresh implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRefresh(refreshed bool, duration time.Duration, err error) {
	b.RefreshCount.Add(1)
	if refreshed {
		b.RefreshReloads.Add(1)
	}
	if err != nil {
		b.RefreshErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		EnrollCount:       b.EnrollCount.Load(),
		EnrollErrors:      b.EnrollErrors.Load(),
		EnrollAvgNanos:    b.getAvgEnrollNanos(),
		BatchEnrollCount:  b.BatchEnrollCount.Load(),
		BatchEnrollItems:  b.BatchEnrollItems.Load(),
		BatchEnrollFailed: b.BatchEnrollFailed.Load(),
		RecognizeCount:    b.RecognizeCount.Load(),
		RecognizeKnown:    b.RecognizeKnown.Load(),
		RecognizeAvgNanos: b.getAvgRecognizeNanos(),
		RemoveCount:       b.RemoveCount.Load(),
		RemoveErrors:      b.RemoveErrors.Load(),
		RefreshCount:      b.RefreshCount.Load(),
		RefreshReloads:    b.RefreshReloads.Load(),
		RefreshErrors:     b.RefreshErrors.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgEnrollNanos() int64 {
	count := b.EnrollCount.Load()
	if count == 0 {
		return 0
	}
	return b.EnrollTotalNanos.Load() / count
}

func (b *BasicMetricsCollector) getAvgRecognizeNanos() int64 {
	count := b.RecognizeCount.Load()
	if count == 0 {
		return 0
	}
	return b.RecognizeTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	EnrollCount       int64
	EnrollErrors      int64
	EnrollAvgNanos    int64
	BatchEnrollCount  int64
	BatchEnrollItems  int64
	BatchEnrollFailed int64
	RecognizeCount    int64
	RecognizeKnown    int64
	RecognizeAvgNanos int64
	RemoveCount       int64
	RemoveErrors      int64
	RefreshCount      int64
	RefreshReloads    int64
	RefreshErrors     int64
}

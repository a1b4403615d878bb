// Package monitor runs the continuous observation loop: frames come from a
// camera source, faces are matched against the cached model, emotions are
// classified, and per-soldier readings are averaged over a short window
// before publication. Detection and classification are injected
// capabilities; this package owns only the loop and the aggregation.
package monitor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/mindwatch/facevault/enroll"
	"github.com/mindwatch/facevault/recognize"
)

// DefaultWindow is the rolling averaging window for emotion readings.
const DefaultWindow = 3 * time.Second

// Frame is one captured camera image.
type Frame struct {
	Image  []byte
	Width  int
	Height int
	At     time.Time
}

// FrameSource yields frames until exhausted or closed. Read returns io.EOF
// when the source ends.
type FrameSource interface {
	Read(ctx context.Context) (Frame, error)
	Close() error
}

// Detection is one face found in a frame, with its embedding.
type Detection struct {
	Encoding []float32
	Face     enroll.Rect
}

// Detector finds faces in a frame and extracts their embeddings.
type Detector interface {
	Detect(ctx context.Context, frame Frame) ([]Detection, error)
}

// Emotion is a classifier output: a dominant label plus per-label scores.
type Emotion struct {
	Label  string
	Scores map[string]float64
}

// Classifier assigns an emotion to one detected face.
type Classifier interface {
	Classify(ctx context.Context, frame Frame, face enroll.Rect) (Emotion, error)
}

// Observation is one published per-soldier window average.
type Observation struct {
	SessionID   string             `json:"session_id"`
	Identity    string             `json:"identity"`
	WindowStart time.Time          `json:"window_start"`
	WindowEnd   time.Time          `json:"window_end"`
	Dominant    string             `json:"dominant"`
	AvgScores   map[string]float64 `json:"avg_scores"`
	Samples     int                `json:"samples"`
	Tentative   bool               `json:"tentative"`
}

// Sink receives published observations.
type Sink interface {
	Publish(ctx context.Context, obs Observation) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, obs Observation) error

func (f SinkFunc) Publish(ctx context.Context, obs Observation) error { return f(ctx, obs) }

// Monitor drives one monitoring session over a frame source.
type Monitor struct {
	source     FrameSource
	detector   Detector
	classifier Classifier
	matcher    *recognize.Matcher
	sink       Sink
	logger     *slog.Logger
	limiter    *rate.Limiter
	window     time.Duration
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithFrameRate caps processed frames per second.
func WithFrameRate(fps float64) Option {
	return func(m *Monitor) {
		if fps > 0 {
			m.limiter = rate.NewLimiter(rate.Limit(fps), 1)
		}
	}
}

// WithWindow sets the averaging window.
func WithWindow(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.window = d
		}
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// New wires a monitoring session. All capabilities are required except the
// sink, which defaults to a logging sink.
func New(source FrameSource, detector Detector, classifier Classifier, matcher *recognize.Matcher, sink Sink, opts ...Option) *Monitor {
	m := &Monitor{
		source:     source,
		detector:   detector,
		classifier: classifier,
		matcher:    matcher,
		sink:       sink,
		logger:     slog.Default(),
		limiter:    rate.NewLimiter(rate.Limit(2), 1),
		window:     DefaultWindow,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.sink == nil {
		m.sink = SinkFunc(func(_ context.Context, obs Observation) error {
			m.logger.Info("observation",
				"identity", obs.Identity, "dominant", obs.Dominant, "samples", obs.Samples)
			return nil
		})
	}
	return m
}

// Run processes frames until the context is cancelled or the source ends.
// The source is always closed and buffered readings are flushed on the way
// out. A clean source end returns nil.
func (m *Monitor) Run(ctx context.Context) error {
	sessionID := uuid.NewString()
	agg := newAggregator(m.window)
	m.logger.Info("monitoring session started", "session_id", sessionID)

	defer func() {
		m.flush(context.WithoutCancel(ctx), sessionID, agg.drain(time.Now()))
		if err := m.source.Close(); err != nil {
			m.logger.Warn("frame source close failed", "error", err)
		}
		m.logger.Info("monitoring session ended", "session_id", sessionID)
	}()

	for {
		if err := m.limiter.Wait(ctx); err != nil {
			return ctx.Err()
		}

		frame, err := m.source.Read(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if frame.At.IsZero() {
			frame.At = time.Now()
		}

		if err := m.processFrame(ctx, frame, agg); err != nil {
			m.logger.Warn("frame processing failed", "error", err)
		}

		m.flush(ctx, sessionID, agg.expire(frame.At))
	}
}

func (m *Monitor) processFrame(ctx context.Context, frame Frame, agg *aggregator) error {
	detections, err := m.detector.Detect(ctx, frame)
	if err != nil {
		return err
	}

	for _, det := range detections {
		match := m.matcher.Recognize(det.Encoding)
		if !match.Known {
			continue
		}
		emotion, err := m.classifier.Classify(ctx, frame, det.Face)
		if err != nil {
			m.logger.Warn("emotion classification failed",
				"identity", match.Identity, "error", err)
			continue
		}
		agg.add(match.Identity, match.Tentative, emotion, frame.At)
	}
	return nil
}

func (m *Monitor) flush(ctx context.Context, sessionID string, ready []Observation) {
	for _, obs := range ready {
		obs.SessionID = sessionID
		if err := m.sink.Publish(ctx, obs); err != nil {
			m.logger.Warn("observation publish failed",
				"identity", obs.Identity, "error", err)
		}
	}
}

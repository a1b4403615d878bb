package monitor

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindwatch/facevault/enroll"
	"github.com/mindwatch/facevault/recognize"
)

type staticCache struct {
	encodings  [][]float32
	identities []string
}

func (c *staticCache) Current() ([][]float32, []string) {
	return c.encodings, c.identities
}

// scriptedSource replays a fixed frame sequence, then reports EOF.
type scriptedSource struct {
	frames []Frame
	next   int
	closed bool
}

func (s *scriptedSource) Read(context.Context) (Frame, error) {
	if s.next >= len(s.frames) {
		return Frame{}, io.EOF
	}
	f := s.frames[s.next]
	s.next++
	return f, nil
}

func (s *scriptedSource) Close() error {
	s.closed = true
	return nil
}

// embeddingDetector reports one face per frame with a fixed embedding.
type embeddingDetector struct {
	encoding []float32
}

func (d embeddingDetector) Detect(context.Context, Frame) ([]Detection, error) {
	return []Detection{{Encoding: d.encoding, Face: enroll.Rect{W: 100, H: 100}}}, nil
}

type constantClassifier struct {
	emotion Emotion
}

func (c constantClassifier) Classify(context.Context, Frame, enroll.Rect) (Emotion, error) {
	return c.emotion, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func enrolledMatcher(encoding []float32) *recognize.Matcher {
	return recognize.NewMatcher(&staticCache{
		encodings:  [][]float32{encoding},
		identities: []string{"S-1"},
	}, recognize.WithLogger(quietLogger()))
}

func framesAt(start time.Time, n int) []Frame {
	frames := make([]Frame, n)
	for i := range frames {
		frames[i] = Frame{At: start.Add(time.Duration(i) * time.Second)}
	}
	return frames
}

func TestRunPublishesAveragedObservations(t *testing.T) {
	encoding := []float32{1, 2, 3, 4}
	start := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	source := &scriptedSource{frames: framesAt(start, 4)}

	var published []Observation
	sink := SinkFunc(func(_ context.Context, obs Observation) error {
		published = append(published, obs)
		return nil
	})

	m := New(source, embeddingDetector{encoding}, constantClassifier{
		emotion: Emotion{Label: "calm", Scores: map[string]float64{"calm": 0.8, "stressed": 0.2}},
	}, enrolledMatcher(encoding), sink,
		WithLogger(quietLogger()),
		WithFrameRate(1000),
		WithWindow(3*time.Second),
	)

	require.NoError(t, m.Run(context.Background()))

	require.Len(t, published, 1)
	obs := published[0]
	assert.Equal(t, "S-1", obs.Identity)
	assert.Equal(t, "calm", obs.Dominant)
	assert.Equal(t, 4, obs.Samples)
	assert.InDelta(t, 0.8, obs.AvgScores["calm"], 1e-6)
	assert.NotEmpty(t, obs.SessionID)
	assert.True(t, source.closed)
}

func TestRunSkipsUnknownFaces(t *testing.T) {
	start := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	source := &scriptedSource{frames: framesAt(start, 3)}

	var published []Observation
	sink := SinkFunc(func(_ context.Context, obs Observation) error {
		published = append(published, obs)
		return nil
	})

	// The detector reports an embedding far from every enrolled record.
	m := New(source, embeddingDetector{[]float32{50, 50, 50, 50}}, constantClassifier{
		emotion: Emotion{Label: "calm"},
	}, enrolledMatcher([]float32{1, 2, 3, 4}), sink,
		WithLogger(quietLogger()),
		WithFrameRate(1000),
	)

	require.NoError(t, m.Run(context.Background()))
	assert.Empty(t, published)
	assert.True(t, source.closed)
}

func TestRunDrainsBufferOnExit(t *testing.T) {
	encoding := []float32{1, 2, 3, 4}
	start := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	// Two frames only; the window never elapses before EOF.
	source := &scriptedSource{frames: framesAt(start, 2)}

	var published []Observation
	sink := SinkFunc(func(_ context.Context, obs Observation) error {
		published = append(published, obs)
		return nil
	})

	m := New(source, embeddingDetector{encoding}, constantClassifier{
		emotion: Emotion{Label: "calm", Scores: map[string]float64{"calm": 1}},
	}, enrolledMatcher(encoding), sink,
		WithLogger(quietLogger()),
		WithFrameRate(1000),
		WithWindow(time.Hour),
	)

	require.NoError(t, m.Run(context.Background()))
	require.Len(t, published, 1)
	assert.Equal(t, 2, published[0].Samples)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	encoding := []float32{1, 2, 3, 4}
	source := &scriptedSource{frames: framesAt(time.Now(), 10000)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := New(source, embeddingDetector{encoding}, constantClassifier{
		emotion: Emotion{Label: "calm"},
	}, enrolledMatcher(encoding), nil, WithLogger(quietLogger()))

	err := m.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, source.closed)
}

func TestAggregatorAverages(t *testing.T) {
	agg := newAggregator(3 * time.Second)
	start := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	agg.add("S-1", false, Emotion{Scores: map[string]float64{"calm": 1.0}}, start)
	agg.add("S-1", true, Emotion{Scores: map[string]float64{"calm": 0.0, "stressed": 1.0}}, start.Add(time.Second))

	// Window not yet elapsed.
	assert.Empty(t, agg.expire(start.Add(2*time.Second)))

	ready := agg.expire(start.Add(3 * time.Second))
	require.Len(t, ready, 1)
	obs := ready[0]
	assert.Equal(t, 2, obs.Samples)
	assert.True(t, obs.Tentative)
	assert.InDelta(t, 0.5, obs.AvgScores["calm"], 1e-6)
	assert.InDelta(t, 0.5, obs.AvgScores["stressed"], 1e-6)

	// The bucket is gone after release.
	assert.Empty(t, agg.expire(start.Add(10*time.Second)))
}

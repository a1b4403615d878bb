package recognize

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

// staticCache is a Snapshotter over fixed parallel slices.
type staticCache struct {
	encodings  [][]float32
	identities []string
}

func (c *staticCache) Current() ([][]float32, []string) {
	return c.encodings, c.identities
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// probeAt returns a probe at exactly the given Euclidean distance from the
// zero vector.
func probeAt(dim int, dist float32) []float32 {
	vec := make([]float32, dim)
	vec[0] = dist
	return vec
}

func newTestMatcher(cache Snapshotter, opts ...Option) *Matcher {
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return NewMatcher(cache, opts...)
}

func zeros(dim int) []float32 { return make([]float32, dim) }

func TestRecognizeExactMatch(t *testing.T) {
	cache := &staticCache{
		encodings:  [][]float32{zeros(4), probeAt(4, 3)},
		identities: []string{"S-1", "S-2"},
	}
	m := newTestMatcher(cache)

	match := m.Recognize(zeros(4))
	assert.True(t, match.Known)
	assert.False(t, match.Tentative)
	assert.Equal(t, "S-1", match.Identity)
	assert.InDelta(t, 0.0, match.Distance, 1e-6)
	assert.InDelta(t, 1.0, match.Confidence, 1e-6)
}

func TestRecognizeWithinTolerance(t *testing.T) {
	cache := &staticCache{
		encodings:  [][]float32{zeros(4)},
		identities: []string{"S-1"},
	}
	m := newTestMatcher(cache)

	match := m.Recognize(probeAt(4, 0.5))
	assert.True(t, match.Known)
	assert.False(t, match.Tentative)
	assert.Equal(t, "S-1", match.Identity)
}

func TestRecognizeRetryBandIsTentative(t *testing.T) {
	cache := &staticCache{
		encodings:  [][]float32{zeros(4)},
		identities: []string{"S-1"},
	}
	m := newTestMatcher(cache)

	match := m.Recognize(probeAt(4, 0.65))
	assert.True(t, match.Known)
	assert.True(t, match.Tentative)
	assert.Equal(t, "S-1", match.Identity)
}

func TestRecognizeBeyondRetryIsUnknown(t *testing.T) {
	cache := &staticCache{
		encodings:  [][]float32{zeros(4)},
		identities: []string{"S-1"},
	}
	m := newTestMatcher(cache)

	match := m.Recognize(probeAt(4, 0.8))
	assert.False(t, match.Known)
	assert.Equal(t, "unknown", match.Identity)
	assert.InDelta(t, 0.8, match.Distance, 1e-6)
}

func TestRecognizePicksNearestIdentity(t *testing.T) {
	cache := &staticCache{
		encodings:  [][]float32{probeAt(4, 0.3), probeAt(4, 0.1)},
		identities: []string{"S-far", "S-near"},
	}
	m := newTestMatcher(cache)

	match := m.Recognize(zeros(4))
	assert.Equal(t, "S-near", match.Identity)
}

func TestRecognizeEmptyCache(t *testing.T) {
	m := newTestMatcher(&staticCache{})

	match := m.Recognize(zeros(4))
	assert.False(t, match.Known)
	assert.Equal(t, "unknown", match.Identity)
}

func TestRecognizeSkipsMismatchedDimensions(t *testing.T) {
	cache := &staticCache{
		encodings:  [][]float32{zeros(8), zeros(4)},
		identities: []string{"S-wrong-dim", "S-1"},
	}
	m := newTestMatcher(cache)

	match := m.Recognize(zeros(4))
	assert.Equal(t, "S-1", match.Identity)
}

func TestCustomTolerance(t *testing.T) {
	cache := &staticCache{
		encodings:  [][]float32{zeros(4)},
		identities: []string{"S-1"},
	}
	m := newTestMatcher(cache, WithTolerance(0.2, 0.3))

	assert.False(t, m.Recognize(probeAt(4, 0.5)).Known)
	assert.True(t, m.Recognize(probeAt(4, 0.25)).Tentative)
	assert.False(t, m.Recognize(probeAt(4, 0.1)).Tentative)
}

func TestRecognizeAll(t *testing.T) {
	cache := &staticCache{
		encodings:  [][]float32{zeros(4)},
		identities: []string{"S-1"},
	}
	m := newTestMatcher(cache)

	matches := m.RecognizeAll([][]float32{zeros(4), probeAt(4, 5)})
	assert.Len(t, matches, 2)
	assert.True(t, matches[0].Known)
	assert.False(t, matches[1].Known)
}

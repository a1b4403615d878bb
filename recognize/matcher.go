// Package recognize matches probe embeddings against the cached face model.
package recognize

import (
	"log/slog"

	"github.com/mindwatch/facevault/distance"
)

const (
	// DefaultTolerance is the strict match threshold on Euclidean distance.
	DefaultTolerance = 0.6
	// DefaultRetryTolerance is the relaxed threshold tried when no match
	// clears the strict one. Matches in the band are flagged tentative.
	DefaultRetryTolerance = 0.7
)

// Snapshotter provides the current model generation as parallel slices. The
// refresh cache satisfies it; Matcher never holds the cache lock while
// computing distances.
type Snapshotter interface {
	Current() ([][]float32, []string)
}

// Match is one recognition outcome.
type Match struct {
	Identity   string  `json:"identity"`
	Known      bool    `json:"known"`
	Tentative  bool    `json:"tentative"`
	Distance   float64 `json:"distance"`
	Confidence float64 `json:"confidence"`
}

// Matcher recognizes probe embeddings by nearest Euclidean distance.
type Matcher struct {
	cache     Snapshotter
	dist      distance.Func
	logger    *slog.Logger
	tolerance float64
	retry     float64
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithTolerance overrides both thresholds. retry must be >= tolerance.
func WithTolerance(tolerance, retry float64) Option {
	return func(m *Matcher) {
		m.tolerance = tolerance
		if retry >= tolerance {
			m.retry = retry
		} else {
			m.retry = tolerance
		}
	}
}

// WithDistance overrides the distance function (defaults to Euclidean).
func WithDistance(f distance.Func) Option {
	return func(m *Matcher) {
		if f != nil {
			m.dist = f
		}
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Matcher) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewMatcher creates a Matcher over a model cache.
func NewMatcher(cache Snapshotter, opts ...Option) *Matcher {
	m := &Matcher{
		cache:     cache,
		dist:      distance.L2,
		logger:    slog.Default(),
		tolerance: DefaultTolerance,
		retry:     DefaultRetryTolerance,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Recognize matches one probe embedding against every cached record and
// returns the nearest identity. Distances above the strict tolerance fall
// into the retry band up to the relaxed tolerance; beyond that the probe is
// unknown.
func (m *Matcher) Recognize(probe []float32) Match {
	encodings, identities := m.cache.Current()
	if len(encodings) == 0 {
		return Match{Identity: "unknown"}
	}

	best := -1
	bestDist := 0.0
	for i, enc := range encodings {
		if len(enc) != len(probe) {
			continue
		}
		d := float64(m.dist(probe, enc))
		if best == -1 || d < bestDist {
			best, bestDist = i, d
		}
	}
	if best == -1 {
		return Match{Identity: "unknown"}
	}

	switch {
	case bestDist <= m.tolerance:
		return Match{
			Identity:   identities[best],
			Known:      true,
			Distance:   bestDist,
			Confidence: 1 - bestDist,
		}
	case bestDist <= m.retry:
		m.logger.Debug("match in retry band", "identity", identities[best], "distance", bestDist)
		return Match{
			Identity:   identities[best],
			Known:      true,
			Tentative:  true,
			Distance:   bestDist,
			Confidence: 1 - bestDist,
		}
	default:
		return Match{Identity: "unknown", Distance: bestDist}
	}
}

// RecognizeAll matches a batch of probe embeddings.
func (m *Matcher) RecognizeAll(probes [][]float32) []Match {
	out := make([]Match, len(probes))
	for i, probe := range probes {
		out[i] = m.Recognize(probe)
	}
	return out
}

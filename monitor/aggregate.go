package monitor

import "time"

type bucket struct {
	start     time.Time
	last      time.Time
	sums      map[string]float64
	samples   int
	tentative bool
}

// aggregator buffers per-identity emotion readings and releases a window
// average once the window has elapsed for that identity. Not safe for
// concurrent use; the monitor loop is single-threaded.
type aggregator struct {
	window  time.Duration
	buckets map[string]*bucket
}

func newAggregator(window time.Duration) *aggregator {
	return &aggregator{window: window, buckets: make(map[string]*bucket)}
}

func (a *aggregator) add(identity string, tentative bool, emotion Emotion, at time.Time) {
	b, ok := a.buckets[identity]
	if !ok {
		b = &bucket{start: at, sums: make(map[string]float64)}
		a.buckets[identity] = b
	}
	b.last = at
	b.samples++
	b.tentative = b.tentative || tentative
	for label, score := range emotion.Scores {
		b.sums[label] += score
	}
	if len(emotion.Scores) == 0 && emotion.Label != "" {
		b.sums[emotion.Label]++
	}
}

// expire releases the identities whose window has elapsed as of now.
func (a *aggregator) expire(now time.Time) []Observation {
	var out []Observation
	for identity, b := range a.buckets {
		if now.Sub(b.start) < a.window {
			continue
		}
		out = append(out, a.observation(identity, b))
		delete(a.buckets, identity)
	}
	return out
}

// drain releases everything buffered, regardless of window age.
func (a *aggregator) drain(now time.Time) []Observation {
	var out []Observation
	for identity, b := range a.buckets {
		if b.last.IsZero() {
			b.last = now
		}
		out = append(out, a.observation(identity, b))
		delete(a.buckets, identity)
	}
	return out
}

func (a *aggregator) observation(identity string, b *bucket) Observation {
	avg := make(map[string]float64, len(b.sums))
	dominant := ""
	best := 0.0
	for label, sum := range b.sums {
		v := sum / float64(b.samples)
		avg[label] = v
		if dominant == "" || v > best {
			dominant, best = label, v
		}
	}
	return Observation{
		Identity:    identity,
		WindowStart: b.start,
		WindowEnd:   b.last,
		Dominant:    dominant,
		AvgScores:   avg,
		Samples:     b.samples,
		Tentative:   b.tentative,
	}
}

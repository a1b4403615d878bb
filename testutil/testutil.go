package testutil

import (
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/mindwatch/facevault/model"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float32 returns, as a float32, a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// FillUniform fills dst with random values in range [0, 1).
// Locks only once per call (preferred over calling Float32 in a loop).
func (r *RNG) FillUniform(dst []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = r.rand.Float32()
	}
}

// FillGaussian fills dst with standard normal values.
func (r *RNG) FillGaussian(dst []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = float32(r.rand.NormFloat64())
	}
}

// Embedding returns one uniform random embedding of the given dimension.
func (r *RNG) Embedding(dim int) []float32 {
	vec := make([]float32, dim)
	r.FillUniform(vec)
	return vec
}

// Embeddings returns n uniform random embeddings of the given dimension.
func (r *RNG) Embeddings(n, dim int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		out[i] = r.Embedding(dim)
	}
	return out
}

// Nearby returns a copy of base perturbed by at most epsilon per component.
// Useful for building probes that should match an enrolled embedding.
func (r *RNG) Nearby(base []float32, epsilon float32) []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]float32, len(base))
	for i, v := range base {
		out[i] = v + (r.rand.Float32()*2-1)*epsilon
	}
	return out
}

// SnapshotFor builds a model snapshot holding perToken embeddings for each
// identity token. Tokens are emitted in sorted order so snapshots built from
// equal inputs have identical layout.
func SnapshotFor(r *RNG, dim int, perToken map[string]int) *model.Snapshot {
	tokens := make([]string, 0, len(perToken))
	for token := range perToken {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)

	snap := &model.Snapshot{}
	for _, token := range tokens {
		for i := 0; i < perToken[token]; i++ {
			snap.Encodings = append(snap.Encodings, r.Embedding(dim))
			snap.Identities = append(snap.Identities, token)
		}
	}
	return snap
}

// DistantEmbedding returns an embedding far from anything the generators
// draw: every component sits well outside the unit range.
func DistantEmbedding(dim int) []float32 {
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = 10 + float32(math.Mod(float64(i), 3))
	}
	return vec
}

package model

import (
	"fmt"
	"slices"
)

// Dimension is the length of a face embedding produced by the external
// feature extractor. All persisted and cached embeddings have this length.
const Dimension = 128

// IdentityToken is the stable string identifier for one person. Multiple
// records may carry the same token; each represents a different training
// image of the same person.
type IdentityToken = string

// Snapshot is the full ordered collection of (embedding, identity) pairs at
// a point in time. Encodings[i] belongs to Identities[i]; the two sequences
// always have equal length for any persisted or cached snapshot.
type Snapshot struct {
	Encodings  [][]float32
	Identities []string
}

// Len returns the number of identity records in the snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Identities)
}

// Validate checks the structural invariants of the snapshot: equal sequence
// lengths and the expected embedding dimensionality.
func (s *Snapshot) Validate(dimension int) error {
	if len(s.Encodings) != len(s.Identities) {
		return &ErrLengthMismatch{Encodings: len(s.Encodings), Identities: len(s.Identities)}
	}
	for i, enc := range s.Encodings {
		if len(enc) != dimension {
			return &ErrDimensionMismatch{Expected: dimension, Actual: len(enc), Identity: s.Identities[i]}
		}
	}
	return nil
}

// Clone returns a deep copy of the snapshot. The refresh cache hands out
// clones so the recognition hot path never shares slices with a refresh in
// progress.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := &Snapshot{
		Encodings:  make([][]float32, len(s.Encodings)),
		Identities: slices.Clone(s.Identities),
	}
	for i, enc := range s.Encodings {
		out.Encodings[i] = slices.Clone(enc)
	}
	return out
}

// UniqueIdentities returns the distinct identity tokens in snapshot order.
func (s *Snapshot) UniqueIdentities() []string {
	if s.Len() == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(s.Identities))
	out := make([]string, 0, len(s.Identities))
	for _, id := range s.Identities {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// IdentityCounts returns the number of records per identity token.
func (s *Snapshot) IdentityCounts() map[string]int {
	counts := make(map[string]int, s.Len())
	for _, id := range s.Identities {
		counts[id]++
	}
	return counts
}

// Append returns a new snapshot with the records of other appended. Neither
// input is modified.
func (s *Snapshot) Append(other *Snapshot) *Snapshot {
	out := &Snapshot{
		Encodings:  make([][]float32, 0, s.Len()+other.Len()),
		Identities: make([]string, 0, s.Len()+other.Len()),
	}
	if s != nil {
		out.Encodings = append(out.Encodings, s.Encodings...)
		out.Identities = append(out.Identities, s.Identities...)
	}
	if other != nil {
		out.Encodings = append(out.Encodings, other.Encodings...)
		out.Identities = append(out.Identities, other.Identities...)
	}
	return out
}

// ErrLengthMismatch indicates the two parallel sequences of a snapshot have
// unequal length. This is a corruption signal, never a valid state.
type ErrLengthMismatch struct {
	Encodings  int
	Identities int
}

func (e *ErrLengthMismatch) Error() string {
	return fmt.Sprintf("snapshot length mismatch: %d encodings, %d identities", e.Encodings, e.Identities)
}

// ErrDimensionMismatch indicates an embedding with unexpected dimensionality.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	Identity string
}

func (e *ErrDimensionMismatch) Error() string {
	if e.Identity != "" {
		return fmt.Sprintf("dimension mismatch for %s: expected %d, got %d", e.Identity, e.Expected, e.Actual)
	}
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

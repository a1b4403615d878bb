package store

import (
	"fmt"
	"os"
)

// Severity classifies an integrity issue. Only fatal issues flip the
// overall verdict; warnings are surfaced for operator review.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityFatal:
		return "fatal"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Issue is a single finding of the integrity check.
type Issue struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// IntegrityDetails summarizes the inspected snapshot.
type IntegrityDetails struct {
	TotalEncodings     int     `json:"total_encodings"`
	UniqueIdentities   int     `json:"unique_identities"`
	AvgPerIdentity     float64 `json:"avg_encodings_per_identity"`
	EmbeddingDimension int     `json:"embedding_dimension"`
	SizeBytes          int64   `json:"model_size_bytes"`
}

// IntegrityReport is the structured result of ValidateIntegrity. Valid is
// derived purely from issue severities, so the policy of what counts as
// fatal lives in one place.
type IntegrityReport struct {
	Valid   bool             `json:"valid"`
	Issues  []Issue          `json:"issues"`
	Details IntegrityDetails `json:"details"`
}

func deriveValid(issues []Issue) bool {
	for _, issue := range issues {
		if issue.Severity == SeverityFatal {
			return false
		}
	}
	return true
}

// ValidateIntegrity runs the full integrity check: file existence,
// deserialization, parallel-sequence consistency, per-identity count
// plausibility and embedding dimensionality. The check never repairs
// anything; findings are surfaced for operator action.
func (s *Store) ValidateIntegrity() IntegrityReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	var issues []Issue

	if _, err := s.fsys.Stat(s.snapshotPath); err != nil {
		if os.IsNotExist(err) {
			issues = append(issues, Issue{SeverityFatal, "Model file does not exist"})
		} else {
			issues = append(issues, Issue{SeverityFatal, fmt.Sprintf("Model file not accessible: %v", err)})
		}
		return IntegrityReport{Valid: deriveValid(issues), Issues: issues}
	}

	snap, err := s.load()
	if err != nil || snap == nil {
		issues = append(issues, Issue{SeverityFatal, "Failed to load model"})
		return IntegrityReport{Valid: deriveValid(issues), Issues: issues}
	}

	if len(snap.Encodings) != len(snap.Identities) {
		issues = append(issues, Issue{SeverityFatal, fmt.Sprintf(
			"Encoding count (%d) != identity count (%d)", len(snap.Encodings), len(snap.Identities))})
	}

	// Per-identity record counts outside the plausible range. Moderate
	// anomalies are reported; only extreme outliers invalidate the model.
	for token, count := range snap.IdentityCounts() {
		switch {
		case count < s.bounds.FatalMin || count > s.bounds.FatalMax:
			issues = append(issues, Issue{SeverityFatal, fmt.Sprintf(
				"Identity %s has severely abnormal encoding count: %d", token, count)})
		case count < s.bounds.WarnMin || count > s.bounds.WarnMax:
			issues = append(issues, Issue{SeverityWarning, fmt.Sprintf(
				"Identity %s has unusual encoding count: %d", token, count)})
		}
	}

	// A single malformed embedding invalidates the whole snapshot.
	for i, enc := range snap.Encodings {
		if len(enc) != s.dimension {
			issues = append(issues, Issue{SeverityFatal, fmt.Sprintf(
				"Invalid encoding dimensions for %s: expected %d, got %d",
				snap.Identities[i], s.dimension, len(enc))})
			break
		}
	}

	unique := len(snap.UniqueIdentities())
	details := IntegrityDetails{
		TotalEncodings:     snap.Len(),
		UniqueIdentities:   unique,
		EmbeddingDimension: s.dimension,
		SizeBytes:          s.fileSize(s.snapshotPath),
	}
	if unique > 0 {
		details.AvgPerIdentity = float64(snap.Len()) / float64(unique)
	}

	return IntegrityReport{Valid: deriveValid(issues), Issues: issues, Details: details}
}

// ModelInfo is the read-only descriptive snapshot returned by Info.
type ModelInfo struct {
	Exists             bool           `json:"model_exists"`
	TotalEncodings     int            `json:"total_encodings"`
	UniqueIdentities   int            `json:"unique_soldiers"`
	AvgPerIdentity     float64        `json:"avg_encodings_per_soldier"`
	Identities         []string       `json:"identities"`
	PerIdentityCounts  map[string]int `json:"per_identity_counts"`
	Metadata           *Metadata      `json:"metadata"`
	EmbeddingDimension int            `json:"embedding_dimension"`
	SizeBytes          int64          `json:"model_size_bytes"`
}

// Info returns descriptive information about the committed model. It is
// read-only and side-effect-free.
func (s *Store) Info() ModelInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := ModelInfo{Metadata: s.loadMetadata(), EmbeddingDimension: s.dimension}

	snap, err := s.load()
	if err != nil || snap == nil {
		return info
	}

	info.Exists = true
	info.TotalEncodings = snap.Len()
	info.Identities = snap.UniqueIdentities()
	info.UniqueIdentities = len(info.Identities)
	info.PerIdentityCounts = snap.IdentityCounts()
	info.SizeBytes = s.fileSize(s.snapshotPath)
	if info.UniqueIdentities > 0 {
		info.AvgPerIdentity = float64(info.TotalEncodings) / float64(info.UniqueIdentities)
	}
	return info
}

func (s *Store) fileSize(path string) int64 {
	fi, err := s.fsys.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}

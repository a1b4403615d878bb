package store

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"time"

	"github.com/mindwatch/facevault/model"
	"github.com/mindwatch/facevault/persistence"
)

// Metadata describes the committed snapshot. It is replaced atomically with
// every save; only the most recent record exists on disk.
type Metadata struct {
	Version            string         `json:"version"`
	CreatedAt          time.Time      `json:"created_at"`
	TotalEncodings     int            `json:"total_encodings"`
	IdentityCount      int            `json:"identity_count"`
	PerIdentityCounts  map[string]int `json:"per_identity_counts"`
	IntegrityDigest    string         `json:"integrity_digest"`
	EmbeddingDimension int            `json:"embedding_dimension"`
}

// Digest computes the integrity digest of a snapshot: the SHA-256 of its
// canonical binary encoding. It is a pure function of the snapshot content,
// so the same content yields the same digest in any process at any time.
func Digest(snap *model.Snapshot) string {
	h := sha256.New()
	// The canonical encoding cannot fail against a hash writer.
	_ = persistence.EncodeSnapshot(h, snap)
	return hex.EncodeToString(h.Sum(nil))
}

func (s *Store) buildMetadata(snap *model.Snapshot, version string) *Metadata {
	counts := snap.IdentityCounts()
	return &Metadata{
		Version:            version,
		CreatedAt:          s.now(),
		TotalEncodings:     snap.Len(),
		IdentityCount:      len(counts),
		PerIdentityCounts:  counts,
		IntegrityDigest:    Digest(snap),
		EmbeddingDimension: s.dimension,
	}
}

// loadMetadata reads the metadata artifact, returning nil when it is absent
// or unreadable. Metadata problems never fail a load on their own.
func (s *Store) loadMetadata() *Metadata {
	var data []byte
	if err := persistence.LoadFromFile(s.fsys, s.metadataPath, func(r io.Reader) error {
		var err error
		data, err = io.ReadAll(r)
		return err
	}); err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error("error loading metadata", "error", err)
		}
		return nil
	}

	var meta Metadata
	if err := s.codec.Unmarshal(data, &meta); err != nil {
		s.logger.Error("error decoding metadata", "error", err)
		return nil
	}
	return &meta
}

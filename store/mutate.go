package store

import (
	"fmt"
	"time"

	"github.com/mindwatch/facevault/model"
	"github.com/mindwatch/facevault/persistence"
)

// AddIncremental appends the given records to the model, skipping every
// record whose identity token already has records in the durable store. An
// enrollment must not add more records for an existing identity; the flow
// for that is retrain-and-replace, not incremental-add.
//
// Filtering everything as duplicate is a successful no-op. A backup is
// taken first only when the snapshot was modified within the backup window.
func (s *Store) AddIncremental(snap *model.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.now()

	if err := snap.Validate(s.dimension); err != nil {
		return fmt.Errorf("store: %w", err)
	}

	if persistence.NeedsBackup(s.fsys, s.snapshotPath, s.backupWindow, start) {
		if _, err := persistence.CreateBackup(s.fsys, s.snapshotPath, persistence.BackupKindIncremental, start); err != nil {
			return err
		}
	}

	existing, err := s.load()
	if err != nil {
		return err
	}
	if existing == nil {
		existing = &model.Snapshot{}
	}

	idx := newIdentityIndex(existing.Identities)
	filtered := &model.Snapshot{}
	skipped := 0
	for i, token := range snap.Identities {
		if idx.contains(token) {
			skipped++
			continue
		}
		filtered.Encodings = append(filtered.Encodings, snap.Encodings[i])
		filtered.Identities = append(filtered.Identities, token)
	}
	if skipped > 0 {
		s.logger.Warn("skipping records for already-enrolled identities", "skipped", skipped)
	}
	if filtered.Len() == 0 {
		s.logger.Info("no new identities to add (all duplicates)")
		return nil
	}

	version := "incremental_" + start.Format(versionTimeFormat)
	if err := s.save(existing.Append(filtered), version); err != nil {
		return err
	}

	s.logger.Info("incremental add completed",
		"added", filtered.Len(),
		"duration", s.now().Sub(start),
	)
	return nil
}

// EnrollmentSet is one identity's embeddings for a batch mutation.
type EnrollmentSet struct {
	Identity  string
	Encodings [][]float32
}

// BatchResult is the structured outcome of AddBatch.
type BatchResult struct {
	Success             bool
	ProcessedIdentities []string
	ProcessedCount      int
	TotalAdded          int
	Version             string
	Duration            time.Duration
	Err                 error
}

// AddBatch adds several identities' embedding sets in one logical
// transaction: exactly one backup before starting, duplicate filtering
// against the durable snapshot and within the batch itself, and exactly one
// save. On failure the pre-batch backup is restored over the production
// file; on success it is removed.
func (s *Store) AddBatch(sets []EnrollmentSet) BatchResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.now()
	fail := func(err error) BatchResult {
		return BatchResult{Err: err, Duration: s.now().Sub(start)}
	}

	backupPath, err := persistence.CreateBackup(s.fsys, s.snapshotPath, persistence.BackupKindBatch, start)
	if err != nil {
		return fail(fmt.Errorf("store: batch backup: %w", err))
	}
	removeBackup := func() {
		if backupPath != "" {
			_ = s.fsys.Remove(backupPath)
		}
	}

	existing, err := s.load()
	if err != nil {
		removeBackup()
		return fail(err)
	}
	if existing == nil {
		existing = &model.Snapshot{}
	}

	// Admit each identity at most once: skip tokens already durable and
	// tokens seen earlier in this batch.
	idx := newIdentityIndex(existing.Identities)
	admitted := make(map[string]struct{})
	incoming := &model.Snapshot{}
	var processed []string

	for _, set := range sets {
		if idx.contains(set.Identity) {
			s.logger.Warn("skipping duplicate identity", "identity", set.Identity)
			continue
		}
		if _, ok := admitted[set.Identity]; ok {
			s.logger.Warn("identity repeated within batch", "identity", set.Identity)
			continue
		}
		admitted[set.Identity] = struct{}{}
		for _, enc := range set.Encodings {
			incoming.Encodings = append(incoming.Encodings, enc)
			incoming.Identities = append(incoming.Identities, set.Identity)
		}
		processed = append(processed, set.Identity)
	}

	if len(processed) == 0 {
		removeBackup()
		s.logger.Info("no new identities in batch")
		return BatchResult{Success: true, Duration: s.now().Sub(start)}
	}

	version := fmt.Sprintf("batch_%s_%d", start.Format(versionTimeFormat), len(processed))
	if err := s.save(existing.Append(incoming), version); err != nil {
		// Roll back to the pre-batch state.
		if backupPath != "" {
			if rerr := persistence.RestoreBackup(s.fsys, backupPath, s.snapshotPath); rerr != nil {
				s.logger.Error("batch rollback failed", "error", rerr)
			} else {
				s.logger.Info("rolled back from batch backup")
			}
			removeBackup()
		}
		return fail(err)
	}

	removeBackup()

	res := BatchResult{
		Success:             true,
		ProcessedIdentities: processed,
		ProcessedCount:      len(processed),
		TotalAdded:          incoming.Len(),
		Version:             version,
		Duration:            s.now().Sub(start),
	}
	s.logger.Info("batch add completed",
		"identities", res.ProcessedCount,
		"total_added", res.TotalAdded,
		"duration", res.Duration,
	)
	return res
}

// Remove drops every record whose identity token is in tokens and persists
// the filtered snapshot. Matching nothing is a success with zero removed.
func (s *Store) Remove(tokens []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.load()
	if err != nil {
		return 0, err
	}
	if existing == nil {
		return 0, fmt.Errorf("store: cannot remove identities: no model committed")
	}

	idx := newIdentityIndex(existing.Identities)
	drop := idx.rowsOf(tokens)
	if drop.IsEmpty() {
		s.logger.Warn("no matching identities to remove")
		return 0, nil
	}

	filtered := &model.Snapshot{
		Encodings:  make([][]float32, 0, existing.Len()-int(drop.GetCardinality())),
		Identities: make([]string, 0, existing.Len()-int(drop.GetCardinality())),
	}
	for i := range existing.Identities {
		if drop.Contains(uint32(i)) {
			continue
		}
		filtered.Encodings = append(filtered.Encodings, existing.Encodings[i])
		filtered.Identities = append(filtered.Identities, existing.Identities[i])
	}

	if err := s.save(filtered, ""); err != nil {
		return 0, err
	}

	removed := int(drop.GetCardinality())
	s.logger.Info("identities removed", "records", removed)
	return removed, nil
}

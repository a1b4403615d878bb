// Package store owns the durable face model: a binary snapshot of
// (embedding, identity) pairs plus a JSON metadata artifact, persisted with
// an atomic replace discipline and backup-based recovery.
//
// All mutations serialize on a single store-wide mutex; public operations
// lock once and delegate to unlocked internal variants, so internal reuse
// (mutation calling save calling load) never re-acquires the lock.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/mindwatch/facevault/blobstore"
	"github.com/mindwatch/facevault/codec"
	"github.com/mindwatch/facevault/internal/fs"
	"github.com/mindwatch/facevault/model"
	"github.com/mindwatch/facevault/persistence"
)

const (
	// SnapshotFileName is the production snapshot artifact.
	SnapshotFileName = "face_recognition_model.bin"
	// MetadataFileName is the metadata artifact replaced alongside it.
	MetadataFileName = "model_metadata.json"

	versionTimeFormat = "20060102_150405"

	// DefaultBackupWindow is how recently the snapshot must have been
	// modified for an incremental mutation to take a backup first.
	DefaultBackupWindow = 30 * time.Minute
)

// ErrSaveValidation indicates the post-write validation of a save did not
// reproduce the input, so the commit was aborted.
var ErrSaveValidation = errors.New("model validation failed after save")

// CountBounds are the per-identity record-count plausibility bounds used by
// integrity validation. Counts outside [WarnMin, WarnMax] are reported;
// counts outside [FatalMin, FatalMax] invalidate the model. The defaults
// assume the enrollment pipeline's fixed image-count-per-pose policy and are
// configurable for other pipelines.
type CountBounds struct {
	WarnMin  int
	WarnMax  int
	FatalMin int
	FatalMax int
}

// DefaultCountBounds matches an enrollment flow capturing roughly a dozen
// images per identity.
var DefaultCountBounds = CountBounds{WarnMin: 5, WarnMax: 50, FatalMin: 1, FatalMax: 100}

// Store is the durable face model store. It is safe for concurrent use;
// concurrent mutations queue on the store lock rather than failing.
type Store struct {
	fsys         fs.FileSystem
	dir          string
	snapshotPath string
	metadataPath string
	codec        codec.Codec
	logger       *slog.Logger
	dimension    int
	bounds       CountBounds
	backupWindow time.Duration
	keepBackups  int
	mirror       blobstore.BlobStore
	flk          *flock.Flock
	now          func() time.Time

	mu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithFileSystem injects a FileSystem (tests use a FaultyFS).
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(s *Store) { s.fsys = fsys }
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCodec sets the codec for the metadata artifact.
func WithCodec(c codec.Codec) Option {
	return func(s *Store) {
		if c != nil {
			s.codec = c
		}
	}
}

// WithDimension overrides the expected embedding dimensionality.
func WithDimension(dim int) Option {
	return func(s *Store) { s.dimension = dim }
}

// WithCountBounds overrides the per-identity count plausibility bounds.
func WithCountBounds(b CountBounds) Option {
	return func(s *Store) { s.bounds = b }
}

// WithBackupWindow overrides the recent-modification window that triggers a
// backup before incremental mutations.
func WithBackupWindow(d time.Duration) Option {
	return func(s *Store) { s.backupWindow = d }
}

// WithMirror mirrors the snapshot and metadata artifacts to a blob store
// after every successful save. Mirroring is best-effort and never fails the
// save.
func WithMirror(bs blobstore.BlobStore) Option {
	return func(s *Store) { s.mirror = bs }
}

// WithProcessLock guards mutations with a file lock in the model directory,
// so an enrollment process and a recognition process on the same box cannot
// interleave writes.
func WithProcessLock() Option {
	return func(s *Store) { s.flk = flock.New(filepath.Join(s.dir, "facevault.lock")) }
}

// WithClock injects the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a Store rooted at dir, creating the directory if needed and
// sweeping stale incremental backups from previous runs.
func New(dir string, opts ...Option) (*Store, error) {
	s := &Store{
		fsys:         fs.Default,
		dir:          dir,
		snapshotPath: filepath.Join(dir, SnapshotFileName),
		metadataPath: filepath.Join(dir, MetadataFileName),
		codec:        codec.Default,
		logger:       slog.Default(),
		dimension:    model.Dimension,
		bounds:       DefaultCountBounds,
		backupWindow: DefaultBackupWindow,
		keepBackups:  1,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create model dir: %w", err)
	}

	if err := persistence.CleanupBackups(s.fsys, s.snapshotPath, persistence.BackupKindIncremental, s.keepBackups); err != nil {
		s.logger.Warn("backup cleanup on startup failed", "error", err)
	}
	return s, nil
}

// SnapshotPath returns the path of the production snapshot artifact.
func (s *Store) SnapshotPath() string { return s.snapshotPath }

// Dimension returns the expected embedding dimensionality.
func (s *Store) Dimension() int { return s.dimension }

// Exists reports whether a snapshot has ever been committed.
func (s *Store) Exists() bool {
	_, err := s.fsys.Stat(s.snapshotPath)
	return err == nil
}

// ModTime returns the last-modified time of the snapshot artifact, or the
// zero time when no snapshot exists. The refresh cache uses it to decide
// whether a reload is needed.
func (s *Store) ModTime() time.Time {
	info, err := s.fsys.Stat(s.snapshotPath)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// Save atomically persists a full snapshot under the given version token
// (time-derived when empty). The snapshot and metadata artifacts are
// replaced as a unit; on any failure the previously committed pair is left
// untouched.
func (s *Store) Save(snap *model.Snapshot, version string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(snap, version)
}

// Load returns the current snapshot, or (nil, nil) when no model has been
// committed yet. A metadata mismatch is logged as a soft corruption warning
// rather than failing the load; the refresh protocol has its own validation
// layer.
func (s *Store) Load() (*model.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Metadata returns the current metadata artifact, or nil when absent.
func (s *Store) Metadata() *Metadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadMetadata()
}

// save is the unlocked core of Save. Callers hold s.mu.
func (s *Store) save(snap *model.Snapshot, version string) error {
	if err := snap.Validate(s.dimension); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if version == "" {
		version = s.now().Format(versionTimeFormat)
	}

	if s.flk != nil {
		if err := s.flk.Lock(); err != nil {
			return fmt.Errorf("store: acquire process lock: %w", err)
		}
		defer func() { _ = s.flk.Unlock() }()
	}

	meta := s.buildMetadata(snap, version)

	tmpSnap := s.snapshotPath + ".tmp"
	tmpMeta := s.metadataPath + ".tmp"
	cleanupTemp := func() {
		_ = s.fsys.Remove(tmpSnap)
		_ = s.fsys.Remove(tmpMeta)
	}

	// Write both halves of the commit unit to temp files first.
	if err := persistence.WriteTo(s.fsys, tmpSnap, func(w io.Writer) error {
		return persistence.EncodeSnapshot(w, snap)
	}); err != nil {
		cleanupTemp()
		return fmt.Errorf("store: write snapshot: %w", err)
	}
	if err := persistence.WriteTo(s.fsys, tmpMeta, func(w io.Writer) error {
		data, err := s.codec.Marshal(meta)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}); err != nil {
		cleanupTemp()
		return fmt.Errorf("store: write metadata: %w", err)
	}

	// Validate the temp snapshot by reloading and comparing against the
	// input: record count plus byte-for-byte identity equality.
	var reloaded *model.Snapshot
	if err := persistence.LoadFromFile(s.fsys, tmpSnap, func(r io.Reader) error {
		var err error
		reloaded, err = persistence.DecodeSnapshot(r)
		return err
	}); err != nil {
		cleanupTemp()
		return fmt.Errorf("store: validate saved snapshot: %w", err)
	}
	if reloaded.Len() != snap.Len() || !slices.Equal(reloaded.Identities, snap.Identities) {
		cleanupTemp()
		return fmt.Errorf("store: %w", ErrSaveValidation)
	}

	// Atomic replace of both artifacts.
	if err := s.fsys.Rename(tmpSnap, s.snapshotPath); err != nil {
		cleanupTemp()
		return fmt.Errorf("store: commit snapshot: %w", err)
	}
	if err := s.fsys.Rename(tmpMeta, s.metadataPath); err != nil {
		// The snapshot is already committed; the stale metadata surfaces
		// as a soft warning on the next load.
		_ = s.fsys.Remove(tmpMeta)
		return fmt.Errorf("store: commit metadata: %w", err)
	}

	if err := persistence.CleanupBackups(s.fsys, s.snapshotPath, persistence.BackupKindIncremental, s.keepBackups); err != nil {
		s.logger.Warn("backup cleanup after save failed", "error", err)
	}

	s.mirrorArtifacts()

	s.logger.Info("model saved atomically",
		"version", version,
		"total_encodings", snap.Len(),
		"identities", len(meta.PerIdentityCounts),
	)
	return nil
}

// load is the unlocked core of Load. Callers hold s.mu.
func (s *Store) load() (*model.Snapshot, error) {
	if _, err := s.fsys.Stat(s.snapshotPath); err != nil {
		if os.IsNotExist(err) {
			s.logger.Warn("model file does not exist")
			return nil, nil
		}
		return nil, fmt.Errorf("store: stat snapshot: %w", err)
	}

	var snap *model.Snapshot
	if err := persistence.LoadFromFile(s.fsys, s.snapshotPath, func(r io.Reader) error {
		var err error
		snap, err = persistence.DecodeSnapshot(r)
		return err
	}); err != nil {
		return nil, fmt.Errorf("store: load snapshot: %w", err)
	}

	if meta := s.loadMetadata(); meta != nil {
		if digest := Digest(snap); digest != meta.IntegrityDigest {
			s.logger.Warn("model digest mismatch - possible corruption",
				"expected", meta.IntegrityDigest, "actual", digest)
		}
		if snap.Len() != meta.TotalEncodings {
			s.logger.Warn("record count mismatch in metadata",
				"metadata", meta.TotalEncodings, "snapshot", snap.Len())
		}
	}

	s.logger.Debug("model loaded", "total_encodings", snap.Len())
	return snap, nil
}

// mirrorArtifacts copies the committed pair to the configured blob store.
// Best-effort: failures are logged, never propagated.
func (s *Store) mirrorArtifacts() {
	if s.mirror == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, name := range []string{SnapshotFileName, MetadataFileName} {
		path := filepath.Join(s.dir, name)
		var data []byte
		if err := persistence.LoadFromFile(s.fsys, path, func(r io.Reader) error {
			var err error
			data, err = io.ReadAll(r)
			return err
		}); err != nil {
			s.logger.Warn("mirror read failed", "artifact", name, "error", err)
			return
		}
		if err := s.mirror.Put(ctx, name, data); err != nil {
			s.logger.Warn("mirror upload failed", "artifact", name, "error", err)
			return
		}
	}
	s.logger.Debug("artifacts mirrored")
}

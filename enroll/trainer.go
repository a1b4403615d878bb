package enroll

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/mindwatch/facevault/internal/fs"
	"github.com/mindwatch/facevault/model"
	"github.com/mindwatch/facevault/store"
)

// Committer is the store side of training. *store.Store satisfies it.
type Committer interface {
	AddIncremental(snap *model.Snapshot) error
	AddBatch(sets []store.EnrollmentSet) store.BatchResult
}

// IdentitySource names the image directory holding one identity's captures.
type IdentitySource struct {
	Identity string
	Dir      string
}

// IdentityReport is the per-identity outcome of a training run.
type IdentityReport struct {
	Identity       string  `json:"identity"`
	ImagesFound    int     `json:"images_found"`
	FacesExtracted int     `json:"faces_extracted"`
	Selected       int     `json:"selected"`
	AverageQuality float64 `json:"average_quality"`
	ImagesDeleted  int     `json:"images_deleted"`
	Error          string  `json:"error,omitempty"`
}

// TrainReport is the outcome of a batch training run. Per-identity failures
// do not abort the batch; the commit covers the identities that extracted.
type TrainReport struct {
	Reports  []IdentityReport  `json:"reports"`
	Batch    store.BatchResult `json:"-"`
	Duration time.Duration     `json:"duration"`
}

// Succeeded lists the identities whose encodings were committed.
func (r TrainReport) Succeeded() []string {
	return r.Batch.ProcessedIdentities
}

// Trainer drives the enrollment pipeline end to end: list captures, extract
// and score in parallel, keep the best shots, delete the source images, then
// commit. Captured face images are sensitive; they are removed as soon as
// their embeddings exist, even though a later commit failure then loses the
// batch. Re-capturing is acceptable, retaining face images is not.
type Trainer struct {
	pipeline *Pipeline
	store    Committer
	fsys     fs.FileSystem
	logger   *slog.Logger
	keep     bool
}

// TrainerOption configures a Trainer.
type TrainerOption func(*Trainer)

// WithKeepImages disables source-image deletion (diagnostics only).
func WithKeepImages() TrainerOption {
	return func(t *Trainer) { t.keep = true }
}

// WithTrainerFileSystem injects a FileSystem (tests).
func WithTrainerFileSystem(fsys fs.FileSystem) TrainerOption {
	return func(t *Trainer) { t.fsys = fsys }
}

// WithTrainerLogger sets the structured logger. Defaults to slog.Default().
func WithTrainerLogger(logger *slog.Logger) TrainerOption {
	return func(t *Trainer) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewTrainer wires a Pipeline to a Committer.
func NewTrainer(pipeline *Pipeline, committer Committer, opts ...TrainerOption) *Trainer {
	t := &Trainer{
		pipeline: pipeline,
		store:    committer,
		fsys:     fs.Default,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".bmp": true,
}

// ListImages returns the image files in dir, sorted by ReadDir order
// (lexicographic).
func (t *Trainer) ListImages(dir string) ([]string, error) {
	entries, err := t.fsys.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("enroll: list images: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	return paths, nil
}

// Train enrolls a single identity from its capture directory and commits the
// selected encodings incrementally.
func (t *Trainer) Train(ctx context.Context, src IdentitySource) (IdentityReport, error) {
	rep, selected, err := t.prepare(ctx, src)
	if err != nil {
		rep.Error = err.Error()
		return rep, err
	}

	snap := &model.Snapshot{}
	for _, c := range selected {
		snap.Encodings = append(snap.Encodings, c.Observation.Encoding)
		snap.Identities = append(snap.Identities, src.Identity)
	}
	if err := t.store.AddIncremental(snap); err != nil {
		rep.Error = err.Error()
		return rep, err
	}

	t.logger.Info("identity trained",
		"identity", src.Identity,
		"selected", rep.Selected,
		"avg_quality", rep.AverageQuality,
	)
	return rep, nil
}

// TrainBatch enrolls several identities in one store transaction. An
// identity that fails extraction is reported and skipped; the batch commit
// proceeds with the rest.
func (t *Trainer) TrainBatch(ctx context.Context, sources []IdentitySource) TrainReport {
	start := time.Now()
	report := TrainReport{}

	var sets []store.EnrollmentSet
	for _, src := range sources {
		rep, selected, err := t.prepare(ctx, src)
		if err != nil {
			rep.Error = err.Error()
			report.Reports = append(report.Reports, rep)
			t.logger.Warn("identity skipped in batch",
				"identity", src.Identity, "error", err)
			continue
		}
		set := store.EnrollmentSet{Identity: src.Identity}
		for _, c := range selected {
			set.Encodings = append(set.Encodings, c.Observation.Encoding)
		}
		sets = append(sets, set)
		report.Reports = append(report.Reports, rep)
	}

	if len(sets) > 0 {
		report.Batch = t.store.AddBatch(sets)
		if report.Batch.Err != nil {
			for i := range report.Reports {
				if report.Reports[i].Error == "" {
					report.Reports[i].Error = report.Batch.Err.Error()
				}
			}
		}
	}

	report.Duration = time.Since(start)
	t.logger.Info("batch training finished",
		"identities", len(sources),
		"committed", report.Batch.ProcessedCount,
		"duration", report.Duration,
	)
	return report
}

// prepare runs listing, extraction, selection and source cleanup for one
// identity. The returned candidates are ready to commit.
func (t *Trainer) prepare(ctx context.Context, src IdentitySource) (IdentityReport, []Candidate, error) {
	rep := IdentityReport{Identity: src.Identity}

	paths, err := t.ListImages(src.Dir)
	if err != nil {
		return rep, nil, err
	}
	rep.ImagesFound = len(paths)
	if len(paths) == 0 {
		return rep, nil, fmt.Errorf("enroll: no images for %s in %s", src.Identity, src.Dir)
	}

	candidates, err := t.pipeline.Collect(ctx, paths)
	if err != nil {
		return rep, nil, err
	}
	rep.FacesExtracted = len(candidates)
	if len(candidates) == 0 {
		return rep, nil, fmt.Errorf("enroll: no usable faces for %s", src.Identity)
	}

	selected := t.pipeline.Select(candidates)
	rep.Selected = len(selected)
	var total float64
	for _, c := range selected {
		total += c.Quality
	}
	rep.AverageQuality = total / float64(len(selected))

	// Every capture goes, not just the selected ones.
	if !t.keep {
		for _, path := range paths {
			if err := t.fsys.Remove(path); err != nil {
				t.logger.Warn("source image cleanup failed", "image", path, "error", err)
				continue
			}
			rep.ImagesDeleted++
		}
	}

	return rep, selected, nil
}

package enroll

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/mindwatch/facevault/internal/fs"
)

const (
	// DefaultWorkers bounds concurrent extractions.
	DefaultWorkers = 4
	// DefaultTopK is how many best shots per identity get committed.
	DefaultTopK = 12
)

// Candidate is one scored extraction. Path identifies the source image.
type Candidate struct {
	Path        string
	Observation *Observation
	Quality     float64
}

// Pipeline extracts and scores faces from image files with bounded
// parallelism. Results are deterministic: candidates are ranked by quality
// then path, independent of goroutine completion order.
type Pipeline struct {
	extractor Extractor
	fsys      fs.FileSystem
	logger    *slog.Logger
	workers   int
	topK      int
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithWorkers sets the extraction parallelism, capped at GOMAXPROCS.
func WithWorkers(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithTopK sets how many best candidates Select keeps.
func WithTopK(k int) PipelineOption {
	return func(p *Pipeline) {
		if k > 0 {
			p.topK = k
		}
	}
}

// WithFileSystem injects a FileSystem (tests).
func WithFileSystem(fsys fs.FileSystem) PipelineOption {
	return func(p *Pipeline) { p.fsys = fsys }
}

// WithPipelineLogger sets the structured logger. Defaults to slog.Default().
func WithPipelineLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPipeline creates a Pipeline around an Extractor.
func NewPipeline(extractor Extractor, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		extractor: extractor,
		fsys:      fs.Default,
		logger:    slog.Default(),
		workers:   DefaultWorkers,
		topK:      DefaultTopK,
	}
	for _, opt := range opts {
		opt(p)
	}
	if procs := runtime.GOMAXPROCS(0); p.workers > procs {
		p.workers = procs
	}
	return p
}

// Collect extracts and scores every image, returning candidates sorted by
// quality descending with path as the tiebreaker. Images without a usable
// face are dropped. A per-image extractor error is logged and skipped; only
// I/O setup errors and ctx cancellation abort the collection.
func (p *Pipeline) Collect(ctx context.Context, paths []string) ([]Candidate, error) {
	results := make([]Candidate, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := p.readFile(path)
			if err != nil {
				return fmt.Errorf("enroll: read %s: %w", path, err)
			}
			obs, err := p.extractor.Extract(ctx, data)
			if err != nil {
				p.logger.Warn("face extraction failed", "image", path, "error", err)
				return nil
			}
			if obs == nil {
				p.logger.Debug("no usable face", "image", path)
				return nil
			}
			results[i] = Candidate{Path: path, Observation: obs, Quality: Score(obs)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	candidates := results[:0]
	for _, c := range results {
		if c.Observation != nil {
			candidates = append(candidates, c)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Quality != candidates[j].Quality {
			return candidates[i].Quality > candidates[j].Quality
		}
		return candidates[i].Path < candidates[j].Path
	})
	return candidates, nil
}

// Select keeps the top-K candidates of an already-sorted collection.
func (p *Pipeline) Select(candidates []Candidate) []Candidate {
	if len(candidates) <= p.topK {
		return candidates
	}
	return candidates[:p.topK]
}

func (p *Pipeline) readFile(path string) ([]byte, error) {
	f, err := p.fsys.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// Package preload warms heavyweight artifacts (detector assets, the emotion
// classifier, the cached face model) once, in the background, so the first
// monitoring request does not pay the load cost. Preloading is best-effort:
// a failed artifact is recorded and consumers fall back to lazy loading.
package preload

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mindwatch/facevault/model"
)

// Loader warms one artifact. It must be safe to call once from a background
// goroutine and should honor ctx cancellation.
type Loader func(ctx context.Context) error

type task struct {
	name string
	load Loader
}

// Counter reports how many records the warmed model cache holds. The refresh
// cache satisfies it.
type Counter interface {
	Len() int
}

// Preloader runs registered loaders once in the background and tracks
// per-artifact outcomes.
type Preloader struct {
	logger  *slog.Logger
	counter Counter
	tasks   []task

	mu        sync.Mutex
	started   bool
	completed bool
	startedAt time.Time
	elapsed   time.Duration
	loaded    map[string]bool
	errs      map[string]error

	done chan struct{}
}

// Option configures a Preloader.
type Option func(*Preloader)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Preloader) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithModelCounter wires the cache whose record count Status reports.
func WithModelCounter(c Counter) Option {
	return func(p *Preloader) { p.counter = c }
}

// New creates an empty Preloader. Register artifacts, then Start.
func New(opts ...Option) *Preloader {
	p := &Preloader{
		logger: slog.Default(),
		loaded: make(map[string]bool),
		errs:   make(map[string]error),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Register adds a named artifact loader. Must be called before Start.
func (p *Preloader) Register(name string, load Loader) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.tasks = append(p.tasks, task{name: name, load: load})
}

// Start launches the warmup goroutine. Calling Start again is a no-op. The
// call returns immediately; Done or Ready observe completion.
func (p *Preloader) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.startedAt = time.Now()
	tasks := p.tasks
	p.mu.Unlock()

	go func() {
		defer close(p.done)
		for _, t := range tasks {
			if ctx.Err() != nil {
				p.record(t.name, ctx.Err())
				continue
			}
			start := time.Now()
			err := t.load(ctx)
			p.record(t.name, err)
			if err != nil {
				p.logger.Warn("artifact preload failed",
					"artifact", t.name, "error", err)
				continue
			}
			p.logger.Info("artifact preloaded",
				"artifact", t.name, "duration", time.Since(start))
		}

		p.mu.Lock()
		p.completed = true
		p.elapsed = time.Since(p.startedAt)
		p.mu.Unlock()
		p.logger.Info("preload complete", "elapsed", time.Since(p.startedAt))
	}()
}

func (p *Preloader) record(name string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loaded[name] = err == nil
	if err != nil {
		p.errs[name] = err
	}
}

// Done is closed when the warmup goroutine has finished all artifacts.
func (p *Preloader) Done() <-chan struct{} { return p.done }

// Ready reports whether warmup has completed with every artifact loaded.
func (p *Preloader) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.completed {
		return false
	}
	for _, ok := range p.loaded {
		if !ok {
			return false
		}
	}
	return true
}

// Loaded reports whether the named artifact warmed successfully. Consumers
// use it to choose between the warm path and lazy fallback loading.
func (p *Preloader) Loaded(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loaded[name]
}

// Status describes the preloader for diagnostics.
type Status struct {
	Started           bool              `json:"started"`
	Completed         bool              `json:"completed"`
	Elapsed           time.Duration     `json:"elapsed"`
	Artifacts         map[string]bool   `json:"artifacts"`
	Errors            map[string]string `json:"errors,omitempty"`
	SoldierCount      int               `json:"soldier_encodings"`
	EstimatedMemoryMB float64           `json:"estimated_memory_mb"`
}

// Status returns a point-in-time view of the warmup.
func (p *Preloader) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := Status{
		Started:   p.started,
		Completed: p.completed,
		Elapsed:   p.elapsed,
		Artifacts: make(map[string]bool, len(p.loaded)),
	}
	if p.started && !p.completed {
		st.Elapsed = time.Since(p.startedAt)
	}
	for name, ok := range p.loaded {
		st.Artifacts[name] = ok
	}
	if len(p.errs) > 0 {
		st.Errors = make(map[string]string, len(p.errs))
		for name, err := range p.errs {
			st.Errors[name] = err.Error()
		}
	}
	if p.counter != nil {
		st.SoldierCount = p.counter.Len()
		st.EstimatedMemoryMB = float64(st.SoldierCount*model.Dimension*4) / (1 << 20)
	}
	return st
}

package facevault

import (
	"context"
	"fmt"
	"time"

	"github.com/mindwatch/facevault/enroll"
	"github.com/mindwatch/facevault/monitor"
	"github.com/mindwatch/facevault/preload"
	"github.com/mindwatch/facevault/recognize"
	"github.com/mindwatch/facevault/refresh"
	"github.com/mindwatch/facevault/roster"
	"github.com/mindwatch/facevault/store"
)

// Service wires the model store, refresh cache, preloader, enrollment
// pipeline and matcher into one operational surface. All dependencies are
// constructor-injected; there are no package-level singletons.
type Service struct {
	opts    options
	logger  *Logger
	metrics MetricsCollector

	store     *store.Store
	cache     *refresh.Cache
	matcher   *recognize.Matcher
	preloader *preload.Preloader
	trainer   *enroll.Trainer
	roster    roster.Roster
}

// New creates a Service rooted at the given model directory.
func New(dir string, optFns ...Option) (*Service, error) {
	o := applyOptions(optFns)

	storeOpts := []store.Option{
		store.WithLogger(o.logger.Logger),
	}
	if o.codec != nil {
		storeOpts = append(storeOpts, store.WithCodec(o.codec))
	}
	if o.dimension > 0 {
		storeOpts = append(storeOpts, store.WithDimension(o.dimension))
	}
	if o.bounds != nil {
		storeOpts = append(storeOpts, store.WithCountBounds(*o.bounds))
	}
	if o.backupWindow > 0 {
		storeOpts = append(storeOpts, store.WithBackupWindow(o.backupWindow))
	}
	if o.mirror != nil {
		storeOpts = append(storeOpts, store.WithMirror(o.mirror))
	}
	if o.processLock {
		storeOpts = append(storeOpts, store.WithProcessLock())
	}

	st, err := store.New(dir, storeOpts...)
	if err != nil {
		return nil, err
	}

	cache := refresh.NewCache(st, refresh.WithLogger(o.logger.Logger))

	matcherOpts := []recognize.Option{recognize.WithLogger(o.logger.Logger)}
	if o.tolerance > 0 {
		matcherOpts = append(matcherOpts, recognize.WithTolerance(o.tolerance, o.retryTolerance))
	}
	matcher := recognize.NewMatcher(cache, matcherOpts...)

	s := &Service{
		opts:      o,
		logger:    o.logger,
		metrics:   o.metricsCollector,
		store:     st,
		cache:     cache,
		matcher:   matcher,
		preloader: preload.New(preload.WithLogger(o.logger.Logger), preload.WithModelCounter(cache)),
		roster:    o.roster,
	}
	s.preloader.Register("face_model", func(context.Context) error {
		_, err := cache.ForceRefresh()
		return err
	})

	if o.extractor != nil {
		pipelineOpts := []enroll.PipelineOption{enroll.WithPipelineLogger(o.logger.Logger)}
		if o.workers > 0 {
			pipelineOpts = append(pipelineOpts, enroll.WithWorkers(o.workers))
		}
		if o.topK > 0 {
			pipelineOpts = append(pipelineOpts, enroll.WithTopK(o.topK))
		}
		trainerOpts := []enroll.TrainerOption{enroll.WithTrainerLogger(o.logger.Logger)}
		if o.keepImages {
			trainerOpts = append(trainerOpts, enroll.WithKeepImages())
		}
		pipeline := enroll.NewPipeline(o.extractor, pipelineOpts...)
		s.trainer = enroll.NewTrainer(pipeline, st, trainerOpts...)
	}

	return s, nil
}

// Preload registers additional warmup artifacts (detector assets, the
// emotion classifier). Call before Warmup.
func (s *Service) Preload(name string, load preload.Loader) {
	s.preloader.Register(name, load)
}

// Warmup starts the background artifact preload and, unless disabled, the
// periodic cache refresh. It returns immediately; recognition before warmup
// completes serves whatever the cache holds.
func (s *Service) Warmup(ctx context.Context) {
	s.preloader.Start(ctx)
	if !s.opts.disableAutoRefresh {
		s.cache.StartAutoRefresh(s.opts.autoRefresh)
	}
}

// Ready reports whether every warmup artifact has loaded.
func (s *Service) Ready() bool { return s.preloader.Ready() }

// Enroll trains one identity from its capture directory and commits the
// selected encodings. Requires an extractor; see WithExtractor.
func (s *Service) Enroll(ctx context.Context, identity, imageDir string) (enroll.IdentityReport, error) {
	start := time.Now()
	if s.trainer == nil {
		return enroll.IdentityReport{}, fmt.Errorf("facevault: no extractor configured")
	}

	rep, err := s.trainer.Train(ctx, enroll.IdentitySource{Identity: identity, Dir: imageDir})
	err = translateError(err)
	s.metrics.RecordEnroll(time.Since(start), err)
	s.logger.LogEnroll(ctx, identity, rep.Selected, err)
	if err != nil {
		return rep, err
	}

	if _, rerr := s.cache.ForceRefresh(); rerr != nil {
		s.logger.Warn("cache refresh after enrollment failed", "error", rerr)
	}
	return rep, nil
}

// EnrollBatch trains several identities in one store transaction.
// Per-identity extraction failures are reported, not fatal.
func (s *Service) EnrollBatch(ctx context.Context, sources []enroll.IdentitySource) (enroll.TrainReport, error) {
	start := time.Now()
	if s.trainer == nil {
		return enroll.TrainReport{}, fmt.Errorf("facevault: no extractor configured")
	}

	report := s.trainer.TrainBatch(ctx, sources)
	failed := len(sources) - report.Batch.ProcessedCount
	s.metrics.RecordBatchEnroll(len(sources), failed, time.Since(start))
	s.logger.LogBatchEnroll(ctx, len(sources), report.Batch.ProcessedCount, report.Duration)

	if err := translateError(report.Batch.Err); err != nil {
		return report, err
	}
	if report.Batch.ProcessedCount > 0 {
		if _, rerr := s.cache.ForceRefresh(); rerr != nil {
			s.logger.Warn("cache refresh after batch enrollment failed", "error", rerr)
		}
	}
	return report, nil
}

// RemoveIdentity drops every record for one identity token.
func (s *Service) RemoveIdentity(ctx context.Context, token string) (int, error) {
	return s.RemoveIdentities(ctx, []string{token})
}

// RemoveIdentities drops every record for the given identity tokens and
// refreshes the cache. Matching nothing is a success with zero removed.
func (s *Service) RemoveIdentities(ctx context.Context, tokens []string) (int, error) {
	start := time.Now()
	removed, err := s.store.Remove(tokens)
	err = translateError(err)
	s.metrics.RecordRemove(time.Since(start), err)
	s.logger.LogRemove(ctx, tokens, removed, err)
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		if _, rerr := s.cache.ForceRefresh(); rerr != nil {
			s.logger.Warn("cache refresh after removal failed", "error", rerr)
		}
	}
	return removed, nil
}

// Recognize matches one probe embedding against the cached model. An empty
// cache triggers one lazy refresh attempt; with no committed model at all it
// returns ErrNoModel.
func (s *Service) Recognize(probe []float32) (recognize.Match, error) {
	start := time.Now()

	if s.cache.Len() == 0 {
		if _, err := s.cache.Refresh(false); err != nil {
			return recognize.Match{}, translateError(err)
		}
		if s.cache.Len() == 0 {
			if !s.store.Exists() {
				return recognize.Match{}, ErrNoModel
			}
			return recognize.Match{}, ErrNotReady
		}
	}

	match := s.matcher.Recognize(probe)
	s.metrics.RecordRecognize(match.Known, time.Since(start))
	return match, nil
}

// ForceRefresh reloads the cache from the durable snapshot unconditionally.
func (s *Service) ForceRefresh(ctx context.Context) (refresh.Report, error) {
	start := time.Now()
	rep, err := s.cache.ForceRefresh()
	err = translateError(err)
	s.metrics.RecordRefresh(rep.Refreshed, time.Since(start), err)
	s.logger.LogRefresh(ctx, rep.Refreshed, rep.Reason, rep.NewCount)
	return rep, err
}

// ValidateIntegrity runs the store's integrity check.
func (s *Service) ValidateIntegrity() store.IntegrityReport {
	return s.store.ValidateIntegrity()
}

// Status is the aggregate operational view of the service.
type Status struct {
	Operational bool                  `json:"operational"`
	Model       store.ModelInfo       `json:"model"`
	Integrity   store.IntegrityReport `json:"integrity"`
	Cache       refresh.Status        `json:"cache"`
	Preload     preload.Status        `json:"preload"`
	Roster      *roster.CheckResult   `json:"roster,omitempty"`
}

// Status aggregates model info, integrity, cache and preload state, plus a
// roster consistency check when a roster is configured.
func (s *Service) Status(ctx context.Context) (Status, error) {
	st := Status{
		Model:     s.store.Info(),
		Integrity: s.store.ValidateIntegrity(),
		Cache:     s.cache.Status(),
		Preload:   s.preloader.Status(),
	}
	st.Operational = st.Model.Exists && st.Integrity.Valid

	if s.roster != nil {
		res, err := roster.Check(ctx, s.roster, roster.ModeledFunc(func() ([]string, error) {
			return s.store.Info().Identities, nil
		}))
		if err != nil {
			return st, err
		}
		st.Roster = &res
	}
	return st, nil
}

// NewMonitor wires a monitoring session against this service's matcher.
func (s *Service) NewMonitor(source monitor.FrameSource, detector monitor.Detector, classifier monitor.Classifier, sink monitor.Sink, opts ...monitor.Option) *monitor.Monitor {
	opts = append([]monitor.Option{monitor.WithLogger(s.logger.Logger)}, opts...)
	return monitor.New(source, detector, classifier, s.matcher, sink, opts...)
}

// Store exposes the underlying model store for operational tooling.
func (s *Service) Store() *store.Store { return s.store }

// Cache exposes the refresh cache for diagnostics.
func (s *Service) Cache() *refresh.Cache { return s.cache }

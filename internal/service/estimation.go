package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pediatric-gfr-server/internal/cache"
	"github.com/pediatric-gfr-server/internal/domain"
	"github.com/pediatric-gfr-server/internal/engine"
	"github.com/pediatric-gfr-server/internal/events"
	"github.com/pediatric-gfr-server/internal/history"
)

// ConfigOverride carries caller supplied engine options. Empty fields keep
// the service defaults.
type ConfigOverride struct {
	DeclineModel    string `json:"decline_model,omitempty"`
	GFRFormula      string `json:"gfr_formula,omitempty"`
	SchwartzProfile string `json:"schwartz_profile,omitempty"`
	ScoringProfile  string `json:"scoring_profile,omitempty"`
	StagingMode     string `json:"staging_mode,omitempty"`
	ProjectionYears *int   `json:"projection_years,omitempty"`
}

// Apply returns base with the non-empty override fields replaced.
func (o *ConfigOverride) Apply(base domain.EngineConfig) domain.EngineConfig {
	if o == nil {
		return base
	}
	if o.DeclineModel != "" {
		base.DeclineModel = domain.DeclineModel(o.DeclineModel)
	}
	if o.GFRFormula != "" {
		base.GFRFormula = domain.GFRFormula(o.GFRFormula)
	}
	if o.SchwartzProfile != "" {
		base.SchwartzProfile = domain.SchwartzProfile(o.SchwartzProfile)
	}
	if o.ScoringProfile != "" {
		base.ScoringProfile = domain.ScoringProfile(o.ScoringProfile)
	}
	if o.StagingMode != "" {
		base.StagingMode = domain.StagingMode(o.StagingMode)
	}
	if o.ProjectionYears != nil {
		base.ProjectionYears = domain.Years(*o.ProjectionYears)
	}
	return base
}

// EvaluateRequest is one evaluation to run.
type EvaluateRequest struct {
	Patient    domain.PatientInput `json:"patient"`
	Config     *ConfigOverride     `json:"config,omitempty"`
	PatientRef string              `json:"patient_ref,omitempty"`
}

// EvaluationResult wraps the report with its stored identity.
type EvaluationResult struct {
	ID         string                   `json:"id"`
	PatientRef string                   `json:"patient_ref,omitempty"`
	Cached     bool                     `json:"cached"`
	Stored     bool                     `json:"stored"`
	Report     *domain.EstimationReport `json:"report"`
}

// BatchItem is one entry of a batch response, in request order.
type BatchItem struct {
	Index  int               `json:"index"`
	Result *EvaluationResult `json:"result,omitempty"`
	Error  *domain.APIError  `json:"error,omitempty"`
}

// EstimationService runs evaluations and handles the side effects around
// them: report caching, history and event publishing.
type EstimationService struct {
	logger      *logrus.Logger
	evaluator   domain.Evaluator
	defaults    domain.EngineConfig
	cache       domain.ReportCache
	store       history.Store
	publisher   events.Publisher
	source      string
	concurrency int
	maxBatch    int
}

// Option configures an EstimationService.
type Option func(*EstimationService)

// WithCache enables report caching.
func WithCache(c domain.ReportCache) Option {
	return func(s *EstimationService) { s.cache = c }
}

// WithHistory persists every fresh evaluation.
func WithHistory(store history.Store) Option {
	return func(s *EstimationService) { s.store = store }
}

// WithPublisher publishes an event after every fresh evaluation.
func WithPublisher(p events.Publisher) Option {
	return func(s *EstimationService) { s.publisher = p }
}

// WithBatchLimits bounds batch size and parallelism.
func WithBatchLimits(concurrency, maxBatch int) Option {
	return func(s *EstimationService) {
		if concurrency > 0 {
			s.concurrency = concurrency
		}
		if maxBatch > 0 {
			s.maxBatch = maxBatch
		}
	}
}

// WithSource names the service in published events.
func WithSource(source string) Option {
	return func(s *EstimationService) { s.source = source }
}

// NewEstimationService creates a service. A nil evaluator uses the engine.
func NewEstimationService(logger *logrus.Logger, evaluator domain.Evaluator, defaults domain.EngineConfig, opts ...Option) *EstimationService {
	if logger == nil {
		logger = logrus.New()
	}
	if evaluator == nil {
		evaluator = engine.New()
	}
	s := &EstimationService{
		logger:      logger,
		evaluator:   evaluator,
		defaults:    defaults,
		publisher:   events.NopPublisher{},
		source:      "pediatric-gfr-server",
		concurrency: 8,
		maxBatch:    100,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Defaults returns the engine configuration applied when a request has no override.
func (s *EstimationService) Defaults() domain.EngineConfig {
	return s.defaults
}

// Evaluate runs one evaluation. Engine errors are returned unwrapped so
// callers can classify them with errors.Is and errors.As.
func (s *EstimationService) Evaluate(ctx context.Context, req EvaluateRequest) (*EvaluationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	cfg, err := engine.ValidateConfig(req.Config.Apply(s.defaults))
	if err != nil {
		return nil, err
	}

	fields := logrus.Fields{
		"decline_model": cfg.DeclineModel,
		"gfr_formula":   cfg.GFRFormula,
		"horizon":       cfg.Horizon(req.Patient),
	}

	key := ""
	if s.cache != nil {
		if key, err = cache.Key(req.Patient, cfg); err != nil {
			s.logger.WithError(err).Warn("Failed to derive cache key")
			key = ""
		} else if report, ok := s.cache.Get(ctx, key); ok {
			s.logger.WithFields(fields).Debug("Serving cached evaluation")
			return &EvaluationResult{
				ID:         uuid.New().String(),
				PatientRef: req.PatientRef,
				Cached:     true,
				Report:     report,
			}, nil
		}
	}

	report, err := s.evaluator.Evaluate(req.Patient, cfg)
	if err != nil {
		s.logger.WithFields(fields).WithError(err).Info("Evaluation rejected")
		return nil, err
	}

	if key != "" {
		if err := s.cache.Set(ctx, key, report); err != nil {
			s.logger.WithError(err).Warn("Failed to cache evaluation")
		}
	}

	result := &EvaluationResult{
		ID:         uuid.New().String(),
		PatientRef: req.PatientRef,
		Report:     report,
	}

	if s.store != nil {
		rec := history.NewRecord(req.PatientRef, req.Patient, report)
		rec.ID = result.ID
		if err := s.store.Save(ctx, rec); err != nil {
			s.logger.WithError(err).Warn("Failed to store evaluation")
		} else {
			result.Stored = true
		}
	}

	event := events.NewEvaluationEvent(s.source, result.ID, req.PatientRef, report)
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WithError(err).Warn("Failed to publish evaluation event")
	}

	fields["initial_gfr"] = report.InitialGFR
	fields["ckd_stage"] = report.CKDStage.String()
	fields["duration"] = time.Since(start).String()
	s.logger.WithFields(fields).Info("Evaluation completed")

	return result, nil
}

// EvaluateBatch evaluates every request concurrently with bounded
// parallelism. Results keep the request order; a failed item does not
// fail the batch.
func (s *EstimationService) EvaluateBatch(ctx context.Context, reqs []EvaluateRequest) ([]BatchItem, error) {
	if len(reqs) > s.maxBatch {
		return nil, domain.NewInvalidInput("requests", fmt.Sprintf("batch exceeds the maximum of %d evaluations", s.maxBatch), len(reqs))
	}

	items := make([]BatchItem, len(reqs))
	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup

	s.logger.WithField("batch_size", len(reqs)).Info("Starting batch evaluation")

	for i := range reqs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			items[i].Index = i

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				items[i].Error = domain.APIErrorFrom(ctx.Err(), "")
				return
			}

			result, err := s.Evaluate(ctx, reqs[i])
			if err != nil {
				items[i].Error = domain.APIErrorFrom(err, "")
				return
			}
			items[i].Result = result
		}(i)
	}
	wg.Wait()

	failed := 0
	for _, item := range items {
		if item.Error != nil {
			failed++
		}
	}
	s.logger.WithFields(logrus.Fields{
		"batch_size": len(reqs),
		"successful": len(reqs) - failed,
		"failed":     failed,
	}).Info("Completed batch evaluation")

	return items, nil
}

// Get returns a stored evaluation.
func (s *EstimationService) Get(ctx context.Context, id string) (*history.Record, error) {
	if s.store == nil {
		return nil, domain.ErrNotFound
	}
	return s.store.Get(ctx, id)
}

// List returns stored evaluations newest first together with the total count.
func (s *EstimationService) List(ctx context.Context, limit, offset int) ([]*history.Record, int64, error) {
	if s.store == nil {
		return nil, 0, nil
	}
	records, err := s.store.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// Profiles returns the selectable engine options and constant sets.
func (s *EstimationService) Profiles() engine.Catalog {
	return engine.Profiles()
}

package evaluation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/relevance/internal/domain"
	"github.com/kailas-cloud/relevance/internal/domain/dataset"
	"github.com/kailas-cloud/relevance/internal/domain/model"
	"github.com/kailas-cloud/relevance/internal/domain/score"
	"github.com/kailas-cloud/relevance/internal/logger"
	"github.com/kailas-cloud/relevance/internal/metrics"
	"github.com/kailas-cloud/relevance/internal/ml/forest"
	"github.com/kailas-cloud/relevance/internal/ml/pipeline"
)

// DefaultFolds is the cross-validation fold count.
const DefaultFolds = 5

// Request selects the artifact and corpus to evaluate.
type Request struct {
	ArtifactPath  string
	RelevantDir   string
	IrrelevantDir string

	// ScoreArtifact also scores the stored model on the full corpus. That
	// score overlaps the artifact's training data and is optimistic.
	ScoreArtifact bool
}

// FoldResult is the score of one held-out fold.
type FoldResult struct {
	Index  int            `json:"fold"`
	Train  dataset.Counts `json:"train"`
	Test   dataset.Counts `json:"test"`
	Scores score.Scores   `json:"scores"`
}

// Result is a cross-validation report.
type Result struct {
	ArtifactPath   string         `json:"artifactPath"`
	Params         model.Params   `json:"params"`
	Dataset        dataset.Counts `json:"dataset"`
	Folds          []FoldResult   `json:"folds"`
	Summary        score.Summary  `json:"summary"`
	ArtifactScores *score.Scores  `json:"artifactScores,omitempty"`
}

// Service cross-validates the training procedure recorded in an artifact.
type Service struct {
	corpus      CorpusLoader
	artifacts   ArtifactLoader
	folds       int
	foldWorkers int
	workers     int
}

// Option configures a Service.
type Option func(*Service)

// WithFolds sets k.
func WithFolds(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.folds = k
		}
	}
}

// WithFoldWorkers sets how many folds are fitted concurrently. Each fold
// already fans out across trees, so the default is 1.
func WithFoldWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.foldWorkers = n
		}
	}
}

// WithWorkers bounds the per-fold tree fan-out.
func WithWorkers(n int) Option {
	return func(s *Service) { s.workers = n }
}

// New creates an evaluation service.
func New(corpus CorpusLoader, artifacts ArtifactLoader, opts ...Option) *Service {
	s := &Service{
		corpus:      corpus,
		artifacts:   artifacts,
		folds:       DefaultFolds,
		foldWorkers: 1,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Evaluate runs k-fold cross-validation. Every fold refits a fresh pipeline
// with the artifact's parameters on the other k-1 folds, so no fold's
// vocabulary sees its held-out documents.
func (s *Service) Evaluate(ctx context.Context, req Request) (*Result, error) {
	log := logger.FromContext(ctx)

	art, err := s.artifacts.Load(req.ArtifactPath)
	if err != nil {
		return nil, err
	}
	cfg := pipeline.ConfigFromParams(art.Params)

	ds, err := s.corpus.Load(ctx, req.RelevantDir, req.IrrelevantDir)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}

	rng := domain.NewRand(art.Params.Seed)
	folds, err := ds.Shuffled(rng).Folds(s.folds)
	if err != nil {
		return nil, err
	}
	seeds := make([]uint64, len(folds))
	for i := range seeds {
		seeds[i] = rng.Uint64()
	}

	results := make([]FoldResult, len(folds))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.foldWorkers)
	for i, fold := range folds {
		g.Go(func() error {
			res, err := s.runFold(gctx, fold, cfg, seeds[i])
			if err != nil {
				return fmt.Errorf("fold %d: %w", fold.Index+1, err)
			}
			results[i] = res
			log.Info("Fold scored",
				zap.Int("fold", fold.Index+1),
				zap.Int("test", fold.Test.Len()),
				zap.Float64("accuracy", res.Scores.Accuracy),
				zap.Float64("f1", res.Scores.F1),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	scores := make([]score.Scores, len(results))
	for i, r := range results {
		scores[i] = r.Scores
	}
	summary := score.Summarize(scores)
	recordSummary(summary)

	out := &Result{
		ArtifactPath: art.Path,
		Params:       art.Params,
		Dataset:      ds.Counts(),
		Folds:        results,
		Summary:      summary,
	}

	if req.ScoreArtifact {
		predicted, err := art.Pipeline.PredictBatch(ctx, ds.Texts())
		if err != nil {
			return nil, fmt.Errorf("score artifact: %w", err)
		}
		conf, err := score.NewConfusion(ds.Labels(), predicted)
		if err != nil {
			return nil, err
		}
		as := conf.Scores()
		out.ArtifactScores = &as
		log.Warn("Artifact scored on data it was trained on; treat as an upper bound",
			zap.Float64("accuracy", as.Accuracy))
	}

	log.Info("Cross-validation finished",
		zap.Int("folds", len(results)),
		zap.Float64("accuracy_mean", summary.Mean.Accuracy),
		zap.Float64("accuracy_std", summary.Std.Accuracy),
	)
	return out, nil
}

func (s *Service) runFold(ctx context.Context, fold dataset.Fold, cfg pipeline.Config, seed uint64) (FoldResult, error) {
	start := time.Now()
	p, err := pipeline.Fit(ctx, fold.Train.Texts(), fold.Train.Labels(), cfg, domain.NewRand(seed), forest.WithWorkers(s.workers))
	if err != nil {
		return FoldResult{}, err
	}
	metrics.FitDuration.WithLabelValues("fold").Observe(time.Since(start).Seconds())

	predicted, err := p.PredictBatch(ctx, fold.Test.Texts())
	if err != nil {
		return FoldResult{}, err
	}
	conf, err := score.NewConfusion(fold.Test.Labels(), predicted)
	if err != nil {
		return FoldResult{}, err
	}
	return FoldResult{
		Index:  fold.Index,
		Train:  fold.Train.Counts(),
		Test:   fold.Test.Counts(),
		Scores: conf.Scores(),
	}, nil
}

func recordSummary(s score.Summary) {
	for scope, sc := range map[string]score.Scores{"cv_mean": s.Mean, "cv_std": s.Std} {
		metrics.ModelScore.WithLabelValues(scope, "accuracy").Set(sc.Accuracy)
		metrics.ModelScore.WithLabelValues(scope, "precision").Set(sc.Precision)
		metrics.ModelScore.WithLabelValues(scope, "recall").Set(sc.Recall)
		metrics.ModelScore.WithLabelValues(scope, "f1").Set(sc.F1)
	}
}

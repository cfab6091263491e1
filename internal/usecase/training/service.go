package training

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/relevance/internal/domain"
	"github.com/kailas-cloud/relevance/internal/domain/dataset"
	"github.com/kailas-cloud/relevance/internal/domain/model"
	"github.com/kailas-cloud/relevance/internal/domain/score"
	"github.com/kailas-cloud/relevance/internal/logger"
	"github.com/kailas-cloud/relevance/internal/metrics"
	"github.com/kailas-cloud/relevance/internal/ml/forest"
	"github.com/kailas-cloud/relevance/internal/ml/pipeline"
)

// Settings is the fixed training procedure.
type Settings struct {
	Pipeline     pipeline.Config
	Seed         uint64
	TestFraction float64
}

// DefaultSettings returns seed 42, an 80/20 split and the default pipeline.
func DefaultSettings() Settings {
	return Settings{Pipeline: pipeline.DefaultConfig(), Seed: 42, TestFraction: 0.2}
}

// Request names the corpus partitions.
type Request struct {
	RelevantDir   string
	IrrelevantDir string
}

// Result is the outcome of a training run.
type Result struct {
	Metadata     model.Metadata  `json:"metadata"`
	Confusion    score.Confusion `json:"confusion"`
	Report       score.Report    `json:"report"`
	Train        dataset.Counts  `json:"train"`
	Test         dataset.Counts  `json:"test"`
	ArtifactPath string          `json:"artifactPath"`
	RecordPath   string          `json:"recordPath"`
}

// Service trains a pipeline, scores it on a held-out split and persists it.
type Service struct {
	corpus    CorpusLoader
	artifacts ArtifactWriter
	records   MetadataWriter
	publisher Publisher
	settings  Settings
	workers   int
	now       func() time.Time
	newRunID  func(time.Time) string
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher mirrors the new current model to a registry.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithWorkers bounds the tree fan-out.
func WithWorkers(n int) Option {
	return func(s *Service) { s.workers = n }
}

// WithClock overrides the training timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a training service.
func New(corpus CorpusLoader, artifacts ArtifactWriter, records MetadataWriter, settings Settings, opts ...Option) *Service {
	s := &Service{
		corpus:    corpus,
		artifacts: artifacts,
		records:   records,
		settings:  settings,
		now:       time.Now,
		newRunID:  newRunID,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Train runs the full procedure. A degenerate corpus fails before anything is
// written.
func (s *Service) Train(ctx context.Context, req Request) (*Result, error) {
	log := logger.FromContext(ctx)

	if err := s.settings.Pipeline.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline config: %w", err)
	}

	ds, err := s.corpus.Load(ctx, req.RelevantDir, req.IrrelevantDir)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}

	rng := domain.NewRand(s.settings.Seed)
	train, test, err := ds.Shuffled(rng).TrainTestSplit(s.settings.TestFraction, rng)
	if err != nil {
		return nil, fmt.Errorf("split dataset: %w", err)
	}
	log.Info("Dataset split",
		zap.Int("train", train.Len()),
		zap.Int("test", test.Len()),
		zap.Uint64("seed", s.settings.Seed),
	)

	start := time.Now()
	p, err := pipeline.Fit(ctx, train.Texts(), train.Labels(), s.settings.Pipeline, rng, forest.WithWorkers(s.workers))
	if err != nil {
		return nil, fmt.Errorf("fit pipeline: %w", err)
	}
	metrics.FitDuration.WithLabelValues("train").Observe(time.Since(start).Seconds())
	log.Info("Pipeline fitted",
		zap.Int("vocabulary", p.Vectorizer().Dim()),
		zap.Int("trees", p.Forest().Trees()),
		zap.Duration("took", time.Since(start)),
	)

	predicted, err := p.PredictBatch(ctx, test.Texts())
	if err != nil {
		return nil, fmt.Errorf("predict holdout: %w", err)
	}
	conf, err := score.NewConfusion(test.Labels(), predicted)
	if err != nil {
		return nil, err
	}
	scores := conf.Scores()

	trainedOn := s.now()
	params := s.settings.Pipeline.Params(s.settings.Seed, s.settings.TestFraction)
	artifactPath, err := s.artifacts.Save(p, params, trainedOn)
	if err != nil {
		return nil, fmt.Errorf("save artifact: %w", err)
	}

	counts := ds.Counts()
	meta := model.Metadata{
		ModelPath:   artifactPath,
		Type:        model.Type,
		TrainedOn:   trainedOn,
		Performance: scores,
		TrainingSize: model.TrainingSize{
			Relevant:   counts.Relevant,
			Irrelevant: counts.Irrelevant,
			Total:      counts.Total(),
		},
		RunID:  s.newRunID(trainedOn),
		Params: params,
	}
	recordPath, err := s.records.Save(meta)
	if err != nil {
		return nil, fmt.Errorf("save metadata: %w", err)
	}
	if err := s.records.SetCurrent(meta); err != nil {
		return nil, fmt.Errorf("set current model: %w", err)
	}

	// The registry is a mirror; the models directory stays authoritative.
	if s.publisher != nil {
		if err := s.publisher.PublishCurrent(ctx, meta); err != nil {
			log.Warn("Registry publish failed", zap.String("run_id", meta.RunID), zap.Error(err))
		}
	}

	recordScores("holdout", scores)
	log.Info("Model trained",
		zap.String("model_path", artifactPath),
		zap.String("run_id", meta.RunID),
		zap.Float64("accuracy", scores.Accuracy),
		zap.Float64("f1", scores.F1),
	)

	return &Result{
		Metadata:     meta,
		Confusion:    conf,
		Report:       conf.Report(),
		Train:        train.Counts(),
		Test:         test.Counts(),
		ArtifactPath: artifactPath,
		RecordPath:   recordPath,
	}, nil
}

func recordScores(scope string, s score.Scores) {
	metrics.ModelScore.WithLabelValues(scope, "accuracy").Set(s.Accuracy)
	metrics.ModelScore.WithLabelValues(scope, "precision").Set(s.Precision)
	metrics.ModelScore.WithLabelValues(scope, "recall").Set(s.Recall)
	metrics.ModelScore.WithLabelValues(scope, "f1").Set(s.F1)
}

func newRunID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), rand.Reader).String()
}

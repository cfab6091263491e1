package deploy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/relevance/internal/db/file"
	"github.com/kailas-cloud/relevance/internal/domain/model"
	"github.com/kailas-cloud/relevance/internal/logger"
)

// Service promotes the current model to production.
type Service struct {
	current    CurrentReader
	production ProductionWriter
	artifacts  ArtifactLoader
	publisher  Publisher
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher mirrors the promoted model to a registry.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithClock overrides the deployment timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a deploy service.
func New(current CurrentReader, production ProductionWriter, artifacts ArtifactLoader, opts ...Option) *Service {
	s := &Service{current: current, production: production, artifacts: artifacts, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Deploy copies the current artifact into the production directory and
// replaces production-model.json. The artifact must load before it is copied.
func (s *Service) Deploy(ctx context.Context) (model.Metadata, error) {
	log := logger.FromContext(ctx)

	meta, err := s.current.Current()
	if err != nil {
		return model.Metadata{}, fmt.Errorf("resolve current model: %w", err)
	}
	if _, err := s.artifacts.Load(meta.ModelPath); err != nil {
		return model.Metadata{}, err
	}

	dir := s.production.Dir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return model.Metadata{}, fmt.Errorf("create production dir: %w", err)
	}
	dst := filepath.Join(dir, filepath.Base(meta.ModelPath))
	if err := file.Copy(meta.ModelPath, dst, 0o644); err != nil {
		return model.Metadata{}, fmt.Errorf("copy artifact: %w", err)
	}

	deployedOn := s.now()
	meta.DeployedOn = &deployedOn
	meta.ProdModelPath = dst
	if err := s.production.SetProduction(meta); err != nil {
		return model.Metadata{}, fmt.Errorf("set production model: %w", err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishProduction(ctx, meta); err != nil {
			log.Warn("Registry publish failed", zap.String("run_id", meta.RunID), zap.Error(err))
		}
	}

	log.Info("Model deployed",
		zap.String("model_path", meta.ModelPath),
		zap.String("prod_model_path", dst),
	)
	return meta, nil
}

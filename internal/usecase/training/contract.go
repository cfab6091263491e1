package training

import (
	"context"
	"time"

	"github.com/kailas-cloud/relevance/internal/domain/dataset"
	"github.com/kailas-cloud/relevance/internal/domain/model"
	"github.com/kailas-cloud/relevance/internal/ml/pipeline"
)

// CorpusLoader reads the labeled corpus.
type CorpusLoader interface {
	Load(ctx context.Context, relevantDir, irrelevantDir string) (*dataset.Dataset, error)
}

// ArtifactWriter persists fitted pipelines.
type ArtifactWriter interface {
	Save(p *pipeline.Pipeline, params model.Params, createdAt time.Time) (string, error)
}

// MetadataWriter records artifact metadata and the current-model pointer.
type MetadataWriter interface {
	Save(meta model.Metadata) (string, error)
	SetCurrent(meta model.Metadata) error
}

// Publisher mirrors the current model to an external registry.
type Publisher interface {
	PublishCurrent(ctx context.Context, meta model.Metadata) error
}

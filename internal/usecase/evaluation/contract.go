package evaluation

import (
	"context"

	"github.com/kailas-cloud/relevance/internal/domain/dataset"
	"github.com/kailas-cloud/relevance/internal/repository/artifact"
)

// CorpusLoader reads the labeled corpus.
type CorpusLoader interface {
	Load(ctx context.Context, relevantDir, irrelevantDir string) (*dataset.Dataset, error)
}

// ArtifactLoader reads a persisted model. Failures are domain.ArtifactLoadError.
type ArtifactLoader interface {
	Load(path string) (*artifact.Artifact, error)
}

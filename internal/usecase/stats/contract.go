package stats

import (
	"context"

	"github.com/kailas-cloud/relevance/internal/domain/dataset"
)

// CorpusLoader reads the labeled corpus.
type CorpusLoader interface {
	Load(ctx context.Context, relevantDir, irrelevantDir string) (*dataset.Dataset, error)
}

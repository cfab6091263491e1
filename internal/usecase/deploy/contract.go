package deploy

import (
	"context"

	"github.com/kailas-cloud/relevance/internal/domain/model"
	"github.com/kailas-cloud/relevance/internal/repository/artifact"
)

// CurrentReader resolves the most recently trained model.
type CurrentReader interface {
	Current() (model.Metadata, error)
}

// ProductionWriter owns the production directory and its pointer record.
type ProductionWriter interface {
	Dir() string
	SetProduction(meta model.Metadata) error
}

// ArtifactLoader verifies an artifact before it is promoted.
type ArtifactLoader interface {
	Load(path string) (*artifact.Artifact, error)
}

// Publisher mirrors the production model to an external registry.
type Publisher interface {
	PublishProduction(ctx context.Context, meta model.Metadata) error
}

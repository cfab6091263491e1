package inference

import "github.com/kailas-cloud/relevance/internal/repository/artifact"

// ArtifactLoader reads a persisted model. Failures are domain.ArtifactLoadError.
type ArtifactLoader interface {
	Load(path string) (*artifact.Artifact, error)
}

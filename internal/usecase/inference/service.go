package inference

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/kailas-cloud/relevance/internal/db/file"
	"github.com/kailas-cloud/relevance/internal/domain"
	"github.com/kailas-cloud/relevance/internal/domain/document"
	"github.com/kailas-cloud/relevance/internal/domain/model"
	"github.com/kailas-cloud/relevance/internal/jsonx"
	"github.com/kailas-cloud/relevance/internal/logger"
	"github.com/kailas-cloud/relevance/internal/metrics"
	"github.com/kailas-cloud/relevance/internal/ml/pipeline"
	"github.com/kailas-cloud/relevance/internal/repository/corpus"
)

// FileResult is the outcome for one document of a directory run.
type FileResult struct {
	Path           string  `json:"path"`
	Title          string  `json:"title,omitempty"`
	Classification string  `json:"classification,omitempty"`
	Confidence     float64 `json:"confidence,omitempty"`
	Error          string  `json:"error,omitempty"`
}

// Summary counts the outcomes of a directory run.
type Summary struct {
	Total          int     `json:"total"`
	Relevant       int     `json:"relevant"`
	Irrelevant     int     `json:"irrelevant"`
	Failed         int     `json:"failed"`
	RelevanceRatio float64 `json:"relevanceRatio"`
}

// DirResult is the outcome of classifying a directory.
type DirResult struct {
	ArtifactPath string       `json:"artifactPath"`
	Dir          string       `json:"dir"`
	Results      []FileResult `json:"results"`
	Summary      Summary      `json:"summary"`
}

// Service classifies documents with a stored model. It never modifies the
// artifact it reads.
type Service struct {
	artifacts ArtifactLoader
	ext       string
}

// New creates an inference service. ext is the document extension used by
// ClassifyDir ("" means corpus.DefaultExtension).
func New(artifacts ArtifactLoader, ext string) *Service {
	if ext == "" {
		ext = corpus.DefaultExtension
	}
	return &Service{artifacts: artifacts, ext: ext}
}

// Classify predicts the label of doc with the artifact at artifactPath.
func (s *Service) Classify(artifactPath string, doc document.Document) (model.Prediction, error) {
	art, err := s.artifacts.Load(artifactPath)
	if err != nil {
		return model.Prediction{}, err
	}
	return predict(art.Pipeline, doc), nil
}

// ClassifyFile reads a document file and classifies it. An unreadable or
// malformed document is an InferenceInputError.
func (s *Service) ClassifyFile(artifactPath, docPath string) (model.Prediction, error) {
	doc, err := ReadInput(docPath)
	if err != nil {
		return model.Prediction{}, err
	}
	return s.Classify(artifactPath, doc)
}

// ClassifyDir classifies every document file in dir. Per-file failures are
// recorded in the result and do not stop the run.
func (s *Service) ClassifyDir(ctx context.Context, artifactPath, dir string) (*DirResult, error) {
	log := logger.FromContext(ctx)

	art, err := s.artifacts.Load(artifactPath)
	if err != nil {
		return nil, err
	}
	files, err := corpus.ListFiles(dir, s.ext)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	out := &DirResult{ArtifactPath: artifactPath, Dir: dir, Results: make([]FileResult, 0, len(files))}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res := FileResult{Path: path}
		doc, err := ReadInput(path)
		if err != nil {
			log.Warn("Skipping unreadable document", zap.String("path", path), zap.Error(err))
			res.Error = err.Error()
			out.Summary.Failed++
			out.Results = append(out.Results, res)
			continue
		}

		pred := predict(art.Pipeline, doc)
		res.Title = doc.Title()
		res.Classification = pred.Classification
		res.Confidence = pred.Confidence
		if pred.IsRelevant() {
			out.Summary.Relevant++
		} else {
			out.Summary.Irrelevant++
		}
		out.Results = append(out.Results, res)
	}

	out.Summary.Total = len(files)
	if classified := out.Summary.Relevant + out.Summary.Irrelevant; classified > 0 {
		out.Summary.RelevanceRatio = float64(out.Summary.Relevant) / float64(classified)
	}
	log.Info("Directory classified",
		zap.String("dir", dir),
		zap.Int("total", out.Summary.Total),
		zap.Int("relevant", out.Summary.Relevant),
		zap.Int("failed", out.Summary.Failed),
	)
	return out, nil
}

// SaveResults writes a directory run as indented JSON.
func SaveResults(path string, res *DirResult) error {
	data, err := jsonx.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create results dir: %w", err)
		}
	}
	if err := file.WriteFileAtomic(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write results %s: %w", path, err)
	}
	return nil
}

// ReadInput parses a document file for inference.
func ReadInput(path string) (document.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return document.Document{}, &domain.InferenceInputError{Path: path, Err: err}
	}
	doc, err := document.Parse(data)
	if err != nil {
		return document.Document{}, &domain.InferenceInputError{Path: path, Err: err}
	}
	return doc, nil
}

func predict(p *pipeline.Pipeline, doc document.Document) model.Prediction {
	label, confidence := p.Predict(doc.Text())
	metrics.ClassificationsTotal.WithLabelValues(label.String()).Inc()
	return model.NewPrediction(label, confidence)
}

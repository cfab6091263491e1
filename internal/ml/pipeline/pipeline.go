// Package pipeline bundles the fitted feature extractor and classifier that
// together make up a relevance model.
package pipeline

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/kailas-cloud/relevance/internal/domain"
	"github.com/kailas-cloud/relevance/internal/domain/model"
	"github.com/kailas-cloud/relevance/internal/ml/forest"
	"github.com/kailas-cloud/relevance/internal/ml/tfidf"
)

// Config is the fixed configuration of both pipeline stages.
type Config struct {
	Vectorizer tfidf.Config
	Forest     forest.Config
}

// DefaultConfig returns the production defaults: 10,000 unigram+bigram terms
// and 100 trees.
func DefaultConfig() Config {
	return Config{Vectorizer: tfidf.DefaultConfig(), Forest: forest.DefaultConfig()}
}

// Validate checks both stages.
func (c Config) Validate() error {
	if err := c.Vectorizer.Validate(); err != nil {
		return fmt.Errorf("vectorizer: %w", err)
	}
	if err := c.Forest.Validate(); err != nil {
		return fmt.Errorf("forest: %w", err)
	}
	return nil
}

// Params renders the configuration as the record stored in model metadata.
func (c Config) Params(seed uint64, testFraction float64) model.Params {
	return model.Params{
		MaxFeatures:     c.Vectorizer.MaxFeatures,
		NGramMin:        c.Vectorizer.NGramMin,
		NGramMax:        c.Vectorizer.NGramMax,
		Trees:           c.Forest.Trees,
		SplitFeatures:   c.Forest.SplitFeatures,
		MaxDepth:        c.Forest.MaxDepth,
		MinSamplesSplit: c.Forest.MinSamplesSplit,
		Seed:            seed,
		TestFraction:    testFraction,
	}
}

// ConfigFromParams is the inverse of Config.Params.
func ConfigFromParams(p model.Params) Config {
	return Config{
		Vectorizer: tfidf.Config{
			MaxFeatures: p.MaxFeatures,
			NGramMin:    p.NGramMin,
			NGramMax:    p.NGramMax,
		},
		Forest: forest.Config{
			Trees:           p.Trees,
			SplitFeatures:   p.SplitFeatures,
			MaxDepth:        p.MaxDepth,
			MinSamplesSplit: p.MinSamplesSplit,
		},
	}
}

// Pipeline is a fitted vectorizer + forest pair. Immutable and safe for
// concurrent use.
type Pipeline struct {
	vectorizer *tfidf.Vectorizer
	forest     *forest.Forest
}

// Fit fits the vectorizer on texts, then the forest on their vectors. Nothing
// outside texts influences the vocabulary.
func Fit(ctx context.Context, texts []string, labels []domain.Label, cfg Config, rng *rand.Rand, opts ...forest.Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(texts) != len(labels) {
		return nil, fmt.Errorf("fit pipeline: %d texts but %d labels", len(texts), len(labels))
	}

	vec, err := tfidf.Fit(texts, cfg.Vectorizer)
	if err != nil {
		return nil, fmt.Errorf("fit vectorizer: %w", err)
	}
	f, err := forest.Fit(ctx, vec.Transform(texts), labels, vec.Dim(), cfg.Forest, rng, opts...)
	if err != nil {
		return nil, fmt.Errorf("fit forest: %w", err)
	}
	return &Pipeline{vectorizer: vec, forest: f}, nil
}

// Vectorizer returns the fitted feature extractor.
func (p *Pipeline) Vectorizer() *tfidf.Vectorizer { return p.vectorizer }

// Forest returns the fitted classifier.
func (p *Pipeline) Forest() *forest.Forest { return p.forest }

// Config returns the configuration the pipeline was fitted with.
func (p *Pipeline) Config() Config {
	return Config{Vectorizer: p.vectorizer.Config(), Forest: p.forest.Config()}
}

// PredictProba returns [p(irrelevant), p(relevant)] for text.
func (p *Pipeline) PredictProba(text string) [2]float64 {
	return p.forest.PredictProba(p.vectorizer.TransformOne(text))
}

// Predict returns the majority label for text and its vote fraction.
func (p *Pipeline) Predict(text string) (domain.Label, float64) {
	return p.forest.Predict(p.vectorizer.TransformOne(text))
}

// PredictBatch labels texts, fanning the forest out across trees.
func (p *Pipeline) PredictBatch(ctx context.Context, texts []string) ([]domain.Label, error) {
	return p.forest.PredictBatch(ctx, p.vectorizer.Transform(texts))
}

// State is the serializable form of a fitted Pipeline.
type State struct {
	Vectorizer tfidf.State  `cbor:"vectorizer"`
	Forest     forest.State `cbor:"classifier"`
}

// State exports both fitted stages.
func (p *Pipeline) State() State {
	return State{Vectorizer: p.vectorizer.State(), Forest: p.forest.State()}
}

// FromState restores a Pipeline, rejecting a classifier trained on a
// different feature space than the vectorizer produces.
func FromState(s State, opts ...forest.Option) (*Pipeline, error) {
	vec, err := tfidf.FromState(s.Vectorizer)
	if err != nil {
		return nil, err
	}
	f, err := forest.FromState(s.Forest, opts...)
	if err != nil {
		return nil, err
	}
	if f.Dim() != vec.Dim() {
		return nil, fmt.Errorf("classifier dimension %d does not match vocabulary size %d", f.Dim(), vec.Dim())
	}
	return &Pipeline{vectorizer: vec, forest: f}, nil
}

// Package model holds the records that describe trained relevance models:
// the metadata written next to every artifact and the prediction returned
// by inference.
package model

import (
	"time"

	"github.com/kailas-cloud/relevance/internal/domain"
	"github.com/kailas-cloud/relevance/internal/domain/score"
)

// Type identifies the feature extractor + classifier combination.
const Type = "tfidf-random-forest"

// Algorithm is the short algorithm tag used in artifact file names.
const Algorithm = "tfidf-rf"

// TrainingSize records how many examples of each label the corpus held.
type TrainingSize struct {
	Relevant   int `json:"relevant"`
	Irrelevant int `json:"irrelevant"`
	Total      int `json:"total"`
}

// Params is the fixed pipeline configuration a model was trained with.
type Params struct {
	MaxFeatures     int     `json:"maxFeatures"`
	NGramMin        int     `json:"ngramMin"`
	NGramMax        int     `json:"ngramMax"`
	Trees           int     `json:"trees"`
	SplitFeatures   int     `json:"splitFeatures"` // 0 = sqrt(vocabulary size)
	MaxDepth        int     `json:"maxDepth"`      // 0 = unlimited
	MinSamplesSplit int     `json:"minSamplesSplit"`
	Seed            uint64  `json:"seed"`
	TestFraction    float64 `json:"testFraction,omitempty"`
}

// Metadata describes one trained artifact.
type Metadata struct {
	ModelPath    string       `json:"modelPath"`
	Type         string       `json:"type"`
	TrainedOn    time.Time    `json:"trainedOn"`
	Performance  score.Scores `json:"performance"`
	TrainingSize TrainingSize `json:"trainingSize"`
	RunID        string       `json:"runId,omitempty"`
	Params       Params       `json:"params"`

	// Set when the model has been promoted to production.
	DeployedOn    *time.Time `json:"deployedOn,omitempty"`
	ProdModelPath string     `json:"prodModelPath,omitempty"`
}

// Prediction is the inference outcome for a single document.
type Prediction struct {
	Classification string  `json:"classification"`
	Confidence     float64 `json:"confidence"`
}

// NewPrediction builds a Prediction from the winning label and its vote fraction.
func NewPrediction(label domain.Label, confidence float64) Prediction {
	return Prediction{Classification: label.String(), Confidence: confidence}
}

// IsRelevant reports whether the prediction is the relevant class.
func (p Prediction) IsRelevant() bool { return p.Classification == domain.Relevant.String() }

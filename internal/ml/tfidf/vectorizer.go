// Package tfidf implements the term-frequency / inverse-document-frequency
// feature extractor over word n-grams with a bounded vocabulary.
package tfidf

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/kailas-cloud/relevance/internal/ml/sparse"
	"github.com/kailas-cloud/relevance/internal/ml/text"
)

// ErrEmptyVocabulary signals a fit corpus that produced no terms.
var ErrEmptyVocabulary = errors.New("empty vocabulary: documents contain no terms")

// Config holds the fixed vectorizer settings.
type Config struct {
	MaxFeatures int `cbor:"max_features" json:"maxFeatures"`
	NGramMin    int `cbor:"ngram_min" json:"ngramMin"`
	NGramMax    int `cbor:"ngram_max" json:"ngramMax"`
}

// DefaultConfig returns unigrams+bigrams with a 10,000 term vocabulary.
func DefaultConfig() Config {
	return Config{MaxFeatures: 10000, NGramMin: 1, NGramMax: 2}
}

// Validate checks the configuration for correctness.
func (c Config) Validate() error {
	if c.MaxFeatures <= 0 {
		return fmt.Errorf("max features must be positive, got %d", c.MaxFeatures)
	}
	if c.NGramMin < 1 || c.NGramMax < c.NGramMin {
		return fmt.Errorf("invalid n-gram range [%d, %d]", c.NGramMin, c.NGramMax)
	}
	return nil
}

// Vectorizer is a fitted TF-IDF transform. It is immutable after Fit and safe
// for concurrent use.
type Vectorizer struct {
	cfg        Config
	analyzer   *text.Analyzer
	terms      []string // index -> term, lexically sorted
	vocabulary map[string]int32
	idf        []float64
}

// Fit builds the vocabulary and idf weights from texts.
//
// The vocabulary keeps the MaxFeatures terms with the highest total count
// across texts (ties by term), then assigns indices in lexical order.
// idf uses smoothing: ln((1+n)/(1+df)) + 1.
func Fit(texts []string, cfg Config) (*Vectorizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return nil, fmt.Errorf("fit: no documents")
	}

	analyzer := text.NewAnalyzer()
	totals := make(map[string]int)
	docFreq := make(map[string]int)
	for _, t := range texts {
		counts := countTerms(analyzer, t, cfg)
		for term, c := range counts {
			totals[term] += c
			docFreq[term]++
		}
	}
	if len(totals) == 0 {
		return nil, ErrEmptyVocabulary
	}

	candidates := make([]string, 0, len(totals))
	for term := range totals {
		candidates = append(candidates, term)
	}
	sort.Slice(candidates, func(i, j int) bool {
		ti, tj := totals[candidates[i]], totals[candidates[j]]
		if ti != tj {
			return ti > tj
		}
		return candidates[i] < candidates[j]
	})
	if len(candidates) > cfg.MaxFeatures {
		candidates = candidates[:cfg.MaxFeatures]
	}
	sort.Strings(candidates)

	n := float64(len(texts))
	idf := make([]float64, len(candidates))
	for i, term := range candidates {
		idf[i] = math.Log((1+n)/(1+float64(docFreq[term]))) + 1
	}

	return newVectorizer(cfg, candidates, idf), nil
}

func newVectorizer(cfg Config, terms []string, idf []float64) *Vectorizer {
	vocab := make(map[string]int32, len(terms))
	for i, term := range terms {
		vocab[term] = int32(i)
	}
	return &Vectorizer{
		cfg:        cfg,
		analyzer:   text.NewAnalyzer(),
		terms:      terms,
		vocabulary: vocab,
		idf:        idf,
	}
}

// Config returns the configuration the vectorizer was fit with.
func (v *Vectorizer) Config() Config { return v.cfg }

// Dim returns the vocabulary size, i.e. the feature space dimension.
func (v *Vectorizer) Dim() int { return len(v.terms) }

// Index returns the feature index of term and whether it is in the vocabulary.
func (v *Vectorizer) Index(term string) (int, bool) {
	i, ok := v.vocabulary[term]
	return int(i), ok
}

// Term returns the vocabulary term at index i.
func (v *Vectorizer) Term(i int) string { return v.terms[i] }

// IDF returns the inverse document frequency of feature i.
func (v *Vectorizer) IDF(i int) float64 { return v.idf[i] }

// Transform maps texts into the fitted feature space.
func (v *Vectorizer) Transform(texts []string) []sparse.Vector {
	out := make([]sparse.Vector, len(texts))
	for i, t := range texts {
		out[i] = v.TransformOne(t)
	}
	return out
}

// TransformOne maps a single text into the fitted feature space.
// Terms outside the vocabulary contribute nothing. The result is L2-normalized
// unless it is all zeros.
func (v *Vectorizer) TransformOne(t string) sparse.Vector {
	counts := countTerms(v.analyzer, t, v.cfg)

	vec := sparse.Vector{
		Indices: make([]int32, 0, len(counts)),
		Values:  make([]float64, 0, len(counts)),
	}
	for term := range counts {
		if idx, ok := v.vocabulary[term]; ok {
			vec.Indices = append(vec.Indices, idx)
		}
	}
	sort.Slice(vec.Indices, func(i, j int) bool { return vec.Indices[i] < vec.Indices[j] })

	var sumSq float64
	for _, idx := range vec.Indices {
		w := float64(counts[v.terms[idx]]) * v.idf[idx]
		vec.Values = append(vec.Values, w)
		sumSq += w * w
	}
	if sumSq > 0 {
		norm := math.Sqrt(sumSq)
		for i := range vec.Values {
			vec.Values[i] /= norm
		}
	}
	return vec
}

// Terms returns the analyzed n-gram terms of t, including out-of-vocabulary ones.
func (v *Vectorizer) Terms(t string) []string {
	return text.Terms(v.analyzer.Tokens(t), v.cfg.NGramMin, v.cfg.NGramMax)
}

func countTerms(a *text.Analyzer, t string, cfg Config) map[string]int {
	terms := text.Terms(a.Tokens(t), cfg.NGramMin, cfg.NGramMax)
	counts := make(map[string]int, len(terms))
	for _, term := range terms {
		counts[term]++
	}
	return counts
}

// State is the serializable form of a fitted Vectorizer.
type State struct {
	Config Config    `cbor:"config"`
	Terms  []string  `cbor:"terms"`
	IDF    []float64 `cbor:"idf"`
}

// State exports the fitted vocabulary and idf weights.
func (v *Vectorizer) State() State {
	terms := make([]string, len(v.terms))
	copy(terms, v.terms)
	idf := make([]float64, len(v.idf))
	copy(idf, v.idf)
	return State{Config: v.cfg, Terms: terms, IDF: idf}
}

// FromState restores a Vectorizer exported with State.
func FromState(s State) (*Vectorizer, error) {
	if err := s.Config.Validate(); err != nil {
		return nil, fmt.Errorf("vectorizer state: %w", err)
	}
	if len(s.Terms) == 0 {
		return nil, fmt.Errorf("vectorizer state: %w", ErrEmptyVocabulary)
	}
	if len(s.Terms) != len(s.IDF) {
		return nil, fmt.Errorf("vectorizer state: %d terms but %d idf weights", len(s.Terms), len(s.IDF))
	}
	for i := 1; i < len(s.Terms); i++ {
		if s.Terms[i-1] >= s.Terms[i] {
			return nil, fmt.Errorf("vectorizer state: terms not strictly sorted at %d", i)
		}
	}
	return newVectorizer(s.Config, s.Terms, s.IDF), nil
}

package stats

import (
	"context"
	"fmt"
	"sort"

	"github.com/kailas-cloud/relevance/internal/domain"
	"github.com/kailas-cloud/relevance/internal/domain/dataset"
	"github.com/kailas-cloud/relevance/internal/ml/text"
)

const (
	// DefaultMinOccurrences drops rare words from the keyword ranking.
	DefaultMinOccurrences = 5
	// DefaultTop is the number of keywords reported per label.
	DefaultTop = 20
)

// Keyword is a word with its per-label occurrence counts.
type Keyword struct {
	Term          string  `json:"term"`
	Relevant      int     `json:"relevant"`
	Irrelevant    int     `json:"irrelevant"`
	RelevantShare float64 `json:"relevantShare"`
}

// Total returns the occurrences across both labels.
func (k Keyword) Total() int { return k.Relevant + k.Irrelevant }

// Report summarizes corpus balance and its most discriminative words.
type Report struct {
	Counts        dataset.Counts `json:"counts"`
	RelevantRatio float64        `json:"relevantRatio"`
	Vocabulary    int            `json:"vocabulary"`
	TopRelevant   []Keyword      `json:"topRelevant"`
	TopIrrelevant []Keyword      `json:"topIrrelevant"`
}

// Service computes corpus statistics.
type Service struct {
	corpus   CorpusLoader
	analyzer *text.Analyzer
	minOcc   int
	top      int
}

// Option configures a Service.
type Option func(*Service)

// WithMinOccurrences sets the minimum total count for a ranked keyword.
func WithMinOccurrences(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.minOcc = n
		}
	}
}

// WithTop sets how many keywords are reported per label.
func WithTop(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.top = n
		}
	}
}

// New creates a stats service.
func New(corpus CorpusLoader, opts ...Option) *Service {
	s := &Service{
		corpus:   corpus,
		analyzer: text.NewAnalyzer(),
		minOcc:   DefaultMinOccurrences,
		top:      DefaultTop,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Compute loads the corpus and ranks words by the share of their
// occurrences that fall in relevant documents.
func (s *Service) Compute(ctx context.Context, relevantDir, irrelevantDir string) (*Report, error) {
	ds, err := s.corpus.Load(ctx, relevantDir, irrelevantDir)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}

	counts := ds.Counts()
	rep := &Report{Counts: counts}
	if counts.Total() > 0 {
		rep.RelevantRatio = float64(counts.Relevant) / float64(counts.Total())
	}

	words := make(map[string]*Keyword)
	for i := range ds.Len() {
		ex := ds.At(i)
		for _, tok := range s.analyzer.Tokens(ex.Text) {
			k := words[tok]
			if k == nil {
				k = &Keyword{Term: tok}
				words[tok] = k
			}
			if ex.Label == domain.Relevant {
				k.Relevant++
			} else {
				k.Irrelevant++
			}
		}
	}
	rep.Vocabulary = len(words)

	frequent := make([]Keyword, 0, len(words))
	for _, k := range words {
		if k.Total() < s.minOcc {
			continue
		}
		k.RelevantShare = float64(k.Relevant) / float64(k.Total())
		frequent = append(frequent, *k)
	}

	rep.TopRelevant = rank(frequent, s.top, func(k Keyword) float64 { return k.RelevantShare })
	rep.TopIrrelevant = rank(frequent, s.top, func(k Keyword) float64 { return 1 - k.RelevantShare })
	return rep, nil
}

// rank orders by share descending, then total descending, then term.
func rank(in []Keyword, top int, share func(Keyword) float64) []Keyword {
	out := make([]Keyword, len(in))
	copy(out, in)
	sort.Slice(out, func(i, j int) bool {
		si, sj := share(out[i]), share(out[j])
		if si != sj {
			return si > sj
		}
		if out[i].Total() != out[j].Total() {
			return out[i].Total() > out[j].Total()
		}
		return out[i].Term < out[j].Term
	})
	if len(out) > top {
		out = out[:top]
	}
	return out
}

// Package forest implements a random forest of CART classification trees for
// the two-label relevance problem.
package forest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/relevance/internal/domain"
	"github.com/kailas-cloud/relevance/internal/ml/sparse"
)

// ErrNotFitted is returned when a forest has no trees.
var ErrNotFitted = errors.New("forest has no trees")

// Config holds the fixed forest hyperparameters.
type Config struct {
	Trees           int `cbor:"trees" json:"trees"`
	SplitFeatures   int `cbor:"split_features" json:"splitFeatures"` // 0 = sqrt(dim)
	MaxDepth        int `cbor:"max_depth" json:"maxDepth"`           // 0 = unlimited
	MinSamplesSplit int `cbor:"min_samples_split" json:"minSamplesSplit"`
}

// DefaultConfig returns 100 fully grown trees with sqrt(dim) split candidates.
func DefaultConfig() Config {
	return Config{Trees: 100, MinSamplesSplit: 2}
}

// Validate checks the configuration for correctness.
func (c Config) Validate() error {
	if c.Trees <= 0 {
		return fmt.Errorf("trees must be positive, got %d", c.Trees)
	}
	if c.SplitFeatures < 0 {
		return fmt.Errorf("split features must be >= 0, got %d", c.SplitFeatures)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("max depth must be >= 0, got %d", c.MaxDepth)
	}
	if c.MinSamplesSplit < 2 {
		return fmt.Errorf("min samples split must be >= 2, got %d", c.MinSamplesSplit)
	}
	return nil
}

// splitFeatures resolves the per-split candidate count for a feature space.
func (c Config) splitFeatures(dim int) int {
	if c.SplitFeatures > 0 {
		return min(c.SplitFeatures, dim)
	}
	return max(1, int(math.Sqrt(float64(dim))))
}

// Forest is a fitted ensemble. It is immutable after Fit and safe for
// concurrent prediction.
type Forest struct {
	cfg     Config
	dim     int
	trees   []*Tree
	workers int
}

// Option configures a Forest.
type Option func(*Forest)

// WithWorkers bounds the goroutines used for fitting and batch prediction.
// Non-positive means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(f *Forest) {
		if n > 0 {
			f.workers = n
		}
	}
}

func newForest(cfg Config, dim int, opts ...Option) *Forest {
	f := &Forest{cfg: cfg, dim: dim, workers: runtime.GOMAXPROCS(0)}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fit trains cfg.Trees trees on bootstrap samples of (x, y).
//
// Per-tree seeds are drawn from rng before any tree is grown, so the result
// depends only on rng and the data, not on the worker count.
func Fit(ctx context.Context, x []sparse.Vector, y []domain.Label, dim int, cfg Config, rng *rand.Rand, opts ...Option) (*Forest, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(x) == 0 {
		return nil, fmt.Errorf("fit: no samples")
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("fit: %d samples but %d labels", len(x), len(y))
	}
	if dim <= 0 {
		return nil, fmt.Errorf("fit: dimension must be positive, got %d", dim)
	}
	for i, l := range y {
		if !l.Valid() {
			return nil, fmt.Errorf("fit: invalid label %d at sample %d", l, i)
		}
	}

	f := newForest(cfg, dim, opts...)
	seeds := make([]uint64, cfg.Trees)
	for i := range seeds {
		seeds[i] = rng.Uint64()
	}

	p := growParams{
		splitFeatures:   cfg.splitFeatures(dim),
		maxDepth:        cfg.MaxDepth,
		minSamplesSplit: cfg.MinSamplesSplit,
	}

	f.trees = make([]*Tree, cfg.Trees)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)
	for i := range f.trees {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f.trees[i] = growTree(x, y, p, domain.NewRand(seeds[i]))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fit trees: %w", err)
	}
	return f, nil
}

// Config returns the hyperparameters the forest was trained with.
func (f *Forest) Config() Config { return f.cfg }

// Dim returns the feature space dimension.
func (f *Forest) Dim() int { return f.dim }

// Trees returns the number of trees.
func (f *Forest) Trees() int { return len(f.trees) }

// PredictProba returns [p(irrelevant), p(relevant)] as vote fractions.
func (f *Forest) PredictProba(x sparse.Vector) [2]float64 {
	var relevant int
	for _, t := range f.trees {
		if t.Vote(x) == domain.Relevant {
			relevant++
		}
	}
	return proba(relevant, len(f.trees))
}

// Predict returns the majority label and its vote fraction. A tied vote
// resolves to irrelevant.
func (f *Forest) Predict(x sparse.Vector) (domain.Label, float64) {
	return decide(f.PredictProba(x))
}

// PredictProbaBatch scores xs with trees fanned out across workers.
func (f *Forest) PredictProbaBatch(ctx context.Context, xs []sparse.Vector) ([][2]float64, error) {
	votes := make([][]bool, len(f.trees))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)
	for i, t := range f.trees {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			v := make([]bool, len(xs))
			for j, x := range xs {
				v[j] = t.Vote(x) == domain.Relevant
			}
			votes[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("predict batch: %w", err)
	}

	out := make([][2]float64, len(xs))
	for j := range xs {
		var relevant int
		for i := range votes {
			if votes[i][j] {
				relevant++
			}
		}
		out[j] = proba(relevant, len(f.trees))
	}
	return out, nil
}

// PredictBatch returns the majority label of each of xs.
func (f *Forest) PredictBatch(ctx context.Context, xs []sparse.Vector) ([]domain.Label, error) {
	probs, err := f.PredictProbaBatch(ctx, xs)
	if err != nil {
		return nil, err
	}
	labels := make([]domain.Label, len(probs))
	for i, p := range probs {
		labels[i], _ = decide(p)
	}
	return labels, nil
}

func proba(relevant, trees int) [2]float64 {
	p1 := float64(relevant) / float64(trees)
	return [2]float64{1 - p1, p1}
}

func decide(p [2]float64) (domain.Label, float64) {
	if p[domain.Relevant] > p[domain.Irrelevant] {
		return domain.Relevant, p[domain.Relevant]
	}
	return domain.Irrelevant, p[domain.Irrelevant]
}

// State is the serializable form of a fitted Forest.
type State struct {
	Config Config `cbor:"config"`
	Dim    int    `cbor:"dim"`
	Trees  []Tree `cbor:"trees"`
}

// State exports the fitted trees.
func (f *Forest) State() State {
	trees := make([]Tree, len(f.trees))
	for i, t := range f.trees {
		nodes := make([]Node, len(t.Nodes))
		copy(nodes, t.Nodes)
		trees[i] = Tree{Nodes: nodes}
	}
	return State{Config: f.cfg, Dim: f.dim, Trees: trees}
}

// FromState restores a Forest exported with State, checking every node
// reference so a corrupt state cannot panic at prediction time.
func FromState(s State, opts ...Option) (*Forest, error) {
	if len(s.Trees) == 0 {
		return nil, fmt.Errorf("forest state: %w", ErrNotFitted)
	}
	if s.Dim <= 0 {
		return nil, fmt.Errorf("forest state: dimension must be positive, got %d", s.Dim)
	}

	f := newForest(s.Config, s.Dim, opts...)
	f.trees = make([]*Tree, len(s.Trees))
	for i := range s.Trees {
		if err := validateTree(&s.Trees[i], s.Dim); err != nil {
			return nil, fmt.Errorf("forest state: tree %d: %w", i, err)
		}
		f.trees[i] = &s.Trees[i]
	}
	return f, nil
}

func validateTree(t *Tree, dim int) error {
	n := int32(len(t.Nodes))
	if n == 0 {
		return errors.New("no nodes")
	}
	for i, node := range t.Nodes {
		if node.IsLeaf() {
			continue
		}
		if node.Feature < 0 || int(node.Feature) >= dim {
			return fmt.Errorf("node %d: feature %d out of range", i, node.Feature)
		}
		// children always follow their parent
		if node.Left <= int32(i) || node.Left >= n || node.Right <= int32(i) || node.Right >= n {
			return fmt.Errorf("node %d: child out of range", i)
		}
	}
	return nil
}

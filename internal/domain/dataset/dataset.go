package dataset

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/kailas-cloud/relevance/internal/domain"
)

// Example is a labeled training document.
type Example struct {
	Text   string
	Label  domain.Label
	Source string // originating file, informational only
}

// Counts holds per-label example counts.
type Counts struct {
	Relevant   int `json:"relevant"`
	Irrelevant int `json:"irrelevant"`
}

// Total returns the number of examples across both labels.
func (c Counts) Total() int { return c.Relevant + c.Irrelevant }

// Dataset is an ordered, immutable sequence of labeled examples.
// Operations that reorder or split return new datasets.
type Dataset struct {
	examples []Example
}

// New creates a Dataset from a copy of examples.
func New(examples []Example) *Dataset {
	cp := make([]Example, len(examples))
	copy(cp, examples)
	return &Dataset{examples: cp}
}

// Len returns the number of examples.
func (d *Dataset) Len() int { return len(d.examples) }

// At returns the i-th example.
func (d *Dataset) At(i int) Example { return d.examples[i] }

// Texts returns the example texts in order.
func (d *Dataset) Texts() []string {
	out := make([]string, len(d.examples))
	for i, ex := range d.examples {
		out[i] = ex.Text
	}
	return out
}

// Labels returns the example labels in order.
func (d *Dataset) Labels() []domain.Label {
	out := make([]domain.Label, len(d.examples))
	for i, ex := range d.examples {
		out[i] = ex.Label
	}
	return out
}

// Counts returns the number of examples per label.
func (d *Dataset) Counts() Counts {
	var c Counts
	for _, ex := range d.examples {
		if ex.Label == domain.Relevant {
			c.Relevant++
		} else {
			c.Irrelevant++
		}
	}
	return c
}

// Validate rejects datasets that cannot produce a binary classifier:
// empty, or containing a single label.
func (d *Dataset) Validate() error {
	c := d.Counts()
	switch {
	case c.Total() == 0:
		return domain.NewDegenerateDataset(0, 0, "dataset is empty")
	case c.Relevant == 0:
		return domain.NewDegenerateDataset(c.Relevant, c.Irrelevant, "no relevant examples")
	case c.Irrelevant == 0:
		return domain.NewDegenerateDataset(c.Relevant, c.Irrelevant, "no irrelevant examples")
	}
	return nil
}

// Shuffled returns a copy of d in an order drawn from rng.
func (d *Dataset) Shuffled(rng *rand.Rand) *Dataset {
	out := New(d.examples)
	rng.Shuffle(len(out.examples), func(i, j int) {
		out.examples[i], out.examples[j] = out.examples[j], out.examples[i]
	})
	return out
}

// Subset returns the examples at the given indices, in index order.
func (d *Dataset) Subset(indices []int) *Dataset {
	out := make([]Example, len(indices))
	for i, idx := range indices {
		out[i] = d.examples[idx]
	}
	return &Dataset{examples: out}
}

// TrainTestSplit draws a random permutation from rng and holds out the first
// ceil(n*testFraction) positions as the test partition. The split is not stratified.
func (d *Dataset) TrainTestSplit(testFraction float64, rng *rand.Rand) (train, test *Dataset, err error) {
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, fmt.Errorf("test fraction must be in (0, 1), got %v", testFraction)
	}
	n := len(d.examples)
	nTest := int(math.Ceil(float64(n) * testFraction))
	if nTest < 1 || n-nTest < 1 {
		c := d.Counts()
		return nil, nil, domain.NewDegenerateDataset(c.Relevant, c.Irrelevant,
			fmt.Sprintf("%d examples cannot be split with test fraction %v", n, testFraction))
	}
	perm := rng.Perm(n)
	return d.Subset(perm[nTest:]), d.Subset(perm[:nTest]), nil
}

// Fold is one round of k-fold cross-validation.
type Fold struct {
	Index int
	Train *Dataset
	Test  *Dataset
}

// Folds partitions d into k contiguous, non-overlapping test groups in the
// current order. The first n%k groups hold one extra example.
func (d *Dataset) Folds(k int) ([]Fold, error) {
	n := len(d.examples)
	if k < 2 {
		return nil, fmt.Errorf("fold count must be at least 2, got %d", k)
	}
	if n < k {
		c := d.Counts()
		return nil, domain.NewDegenerateDataset(c.Relevant, c.Irrelevant,
			fmt.Sprintf("%d examples cannot be split into %d folds", n, k))
	}

	folds := make([]Fold, 0, k)
	start := 0
	for i := 0; i < k; i++ {
		size := n / k
		if i < n%k {
			size++
		}
		end := start + size

		testIdx := make([]int, 0, size)
		trainIdx := make([]int, 0, n-size)
		for j := 0; j < n; j++ {
			if j >= start && j < end {
				testIdx = append(testIdx, j)
			} else {
				trainIdx = append(trainIdx, j)
			}
		}
		folds = append(folds, Fold{Index: i, Train: d.Subset(trainIdx), Test: d.Subset(testIdx)})
		start = end
	}
	return folds, nil
}

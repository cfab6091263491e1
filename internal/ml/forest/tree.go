package forest

import (
	"math/rand/v2"
	"slices"
	"sort"

	"github.com/kailas-cloud/relevance/internal/domain"
	"github.com/kailas-cloud/relevance/internal/ml/sparse"
)

// leaf marks a node without a split.
const leaf int32 = -1

// Node is one entry of a flattened tree. Internal nodes route a sample left
// when its Feature weight is <= Threshold.
type Node struct {
	Feature   int32      `cbor:"f"`
	Threshold float64    `cbor:"t"`
	Left      int32      `cbor:"l"`
	Right     int32      `cbor:"r"`
	Dist      [2]float64 `cbor:"d"` // class fractions of the training samples reaching the node
}

// IsLeaf reports whether n is terminal.
func (n Node) IsLeaf() bool { return n.Feature == leaf }

// Tree is a fitted CART classification tree stored as a flat node slice;
// node 0 is the root.
type Tree struct {
	Nodes []Node `cbor:"nodes"`
}

// Vote returns the label the tree assigns to x.
func (t *Tree) Vote(x sparse.Vector) domain.Label {
	n := t.Nodes[0]
	for !n.IsLeaf() {
		if x.Get(n.Feature) <= n.Threshold {
			n = t.Nodes[n.Left]
		} else {
			n = t.Nodes[n.Right]
		}
	}
	if n.Dist[domain.Relevant] > n.Dist[domain.Irrelevant] {
		return domain.Relevant
	}
	return domain.Irrelevant
}

// Depth returns the length of the longest root-to-leaf path.
func (t *Tree) Depth() int {
	var walk func(i int32) int
	walk = func(i int32) int {
		n := t.Nodes[i]
		if n.IsLeaf() {
			return 0
		}
		return 1 + max(walk(n.Left), walk(n.Right))
	}
	return walk(0)
}

type growParams struct {
	splitFeatures   int
	maxDepth        int
	minSamplesSplit int
}

// grower builds one tree from a bootstrap sample.
type grower struct {
	x      []sparse.Vector
	y      []domain.Label
	params growParams
	rng    *rand.Rand
	nodes  []Node

	// scratch reused across split searches
	pairs []valueLabel
}

type valueLabel struct {
	v     float64
	label domain.Label
}

type split struct {
	feature   int32
	threshold float64
	impurity  float64
}

func growTree(x []sparse.Vector, y []domain.Label, p growParams, rng *rand.Rand) *Tree {
	n := len(x)
	sample := make([]int, n)
	for i := range sample {
		sample[i] = rng.IntN(n)
	}

	g := &grower{x: x, y: y, params: p, rng: rng}
	g.grow(sample, 0)
	return &Tree{Nodes: g.nodes}
}

func (g *grower) grow(sample []int, depth int) int32 {
	var counts [2]int
	for _, s := range sample {
		counts[g.y[s]]++
	}
	total := float64(len(sample))

	idx := int32(len(g.nodes))
	g.nodes = append(g.nodes, Node{
		Feature: leaf,
		Left:    leaf,
		Right:   leaf,
		Dist:    [2]float64{float64(counts[0]) / total, float64(counts[1]) / total},
	})

	if counts[0] == 0 || counts[1] == 0 {
		return idx
	}
	if len(sample) < g.params.minSamplesSplit {
		return idx
	}
	if g.params.maxDepth > 0 && depth >= g.params.maxDepth {
		return idx
	}

	best, ok := g.bestSplit(sample, counts)
	if !ok {
		return idx
	}

	left := make([]int, 0, len(sample))
	right := make([]int, 0, len(sample))
	for _, s := range sample {
		if g.x[s].Get(best.feature) <= best.threshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}

	l := g.grow(left, depth+1)
	r := g.grow(right, depth+1)
	g.nodes[idx].Feature = best.feature
	g.nodes[idx].Threshold = best.threshold
	g.nodes[idx].Left = l
	g.nodes[idx].Right = r
	return idx
}

// bestSplit evaluates up to splitFeatures non-constant candidate features in
// random order. Features absent from every sample are all-zero here and never
// candidates.
func (g *grower) bestSplit(sample []int, counts [2]int) (split, bool) {
	seen := make(map[int32]struct{})
	for _, s := range sample {
		for _, f := range g.x[s].Indices {
			seen[f] = struct{}{}
		}
	}
	candidates := make([]int32, 0, len(seen))
	for f := range seen {
		candidates = append(candidates, f)
	}
	slices.Sort(candidates)
	g.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	best := split{impurity: 2}
	found := false
	visited := 0
	for _, f := range candidates {
		if visited >= g.params.splitFeatures {
			break
		}
		s, constant := g.evaluate(sample, counts, f)
		if constant {
			continue
		}
		visited++
		if s.impurity < best.impurity {
			best = s
			found = true
		}
	}
	return best, found
}

// evaluate finds the lowest weighted Gini split on feature f.
func (g *grower) evaluate(sample []int, counts [2]int, f int32) (split, bool) {
	pairs := g.pairs[:0]
	for _, s := range sample {
		pairs = append(pairs, valueLabel{v: g.x[s].Get(f), label: g.y[s]})
	}
	g.pairs = pairs
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].v < pairs[j].v })

	if pairs[0].v == pairs[len(pairs)-1].v {
		return split{}, true
	}

	n := len(pairs)
	best := split{feature: f, impurity: 2}
	var left [2]int
	for i := 0; i < n-1; i++ {
		left[pairs[i].label]++
		if pairs[i].v == pairs[i+1].v {
			continue
		}
		nl := i + 1
		nr := n - nl
		right := [2]int{counts[0] - left[0], counts[1] - left[1]}
		imp := (float64(nl)*gini(left, nl) + float64(nr)*gini(right, nr)) / float64(n)
		if imp < best.impurity {
			best.impurity = imp
			best.threshold = midpoint(pairs[i].v, pairs[i+1].v)
		}
	}
	return best, false
}

func gini(c [2]int, n int) float64 {
	p0 := float64(c[0]) / float64(n)
	p1 := float64(c[1]) / float64(n)
	return 1 - p0*p0 - p1*p1
}

// midpoint keeps the threshold strictly below hi even when the two values are
// adjacent floats.
func midpoint(lo, hi float64) float64 {
	m := lo + (hi-lo)/2
	if m >= hi {
		return lo
	}
	return m
}

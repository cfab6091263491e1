// Package sparse holds the sparse feature vector shared by the extractor and the classifier.
package sparse

import (
	"math"
	"sort"
)

// Vector is a sparse feature vector: Indices are strictly increasing and
// Values[i] is the weight of feature Indices[i]. Absent features are 0.
type Vector struct {
	Indices []int32
	Values  []float64
}

// NNZ returns the number of stored (non-zero) features.
func (v Vector) NNZ() int { return len(v.Indices) }

// Get returns the weight of feature idx.
func (v Vector) Get(idx int32) float64 {
	i := sort.Search(len(v.Indices), func(i int) bool { return v.Indices[i] >= idx })
	if i < len(v.Indices) && v.Indices[i] == idx {
		return v.Values[i]
	}
	return 0
}

// Norm returns the Euclidean norm of v.
func (v Vector) Norm() float64 {
	var sum float64
	for _, x := range v.Values {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Equal reports whether v and o hold exactly the same features and weights.
func (v Vector) Equal(o Vector) bool {
	if len(v.Indices) != len(o.Indices) {
		return false
	}
	for i := range v.Indices {
		if v.Indices[i] != o.Indices[i] || v.Values[i] != o.Values[i] {
			return false
		}
	}
	return true
}

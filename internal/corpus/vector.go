package corpus

import (
	"math"
	"sort"
)

// FeatureVector is a sparse feature-name to weight mapping.
type FeatureVector map[string]float64

// Dot returns the dot product of two sparse vectors.
func (v FeatureVector) Dot(o FeatureVector) float64 {
	// Iterate the shorter map.
	if len(o) < len(v) {
		v, o = o, v
	}
	var sum float64
	for k, w := range v {
		if ow, ok := o[k]; ok {
			sum += w * ow
		}
	}
	return sum
}

// Norm returns the Euclidean magnitude of the vector.
func (v FeatureVector) Norm() float64 {
	var sum float64
	for _, w := range v {
		sum += w * w
	}
	return math.Sqrt(sum)
}

// Keys returns the feature names in sorted order.
func (v FeatureVector) Keys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns an independent copy.
func (v FeatureVector) Clone() FeatureVector {
	out := make(FeatureVector, len(v))
	for k, w := range v {
		out[k] = w
	}
	return out
}

// Cosine returns the cosine similarity of a and b, or 0 when either is empty.
func Cosine(a, b FeatureVector) float64 {
	na, nb := a.Norm(), b.Norm()
	if na == 0 || nb == 0 {
		return 0
	}
	return a.Dot(b) / (na * nb)
}

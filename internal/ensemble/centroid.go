package ensemble

import (
	"context"
	"fmt"

	"github.com/screenlab/screensim/internal/corpus"
	"github.com/screenlab/screensim/internal/rank"
)

// Centroid is a Rocchio classifier: a document scores by its cosine to the
// relevant centroid minus its cosine to the irrelevant one. Relevant
// examples are weighted by their label so stronger tiers pull harder.
type Centroid struct {
	positive corpus.FeatureVector
	negative corpus.FeatureVector
}

// NewCentroid returns a centroid classifier. It uses no randomness.
func NewCentroid(uint64) Classifier {
	return &Centroid{}
}

// Train builds both centroids.
func (c *Centroid) Train(_ context.Context, examples []Example) error {
	pos, neg := corpus.FeatureVector{}, corpus.FeatureVector{}
	var posWeight, negWeight float64

	for _, ex := range examples {
		if ex.Label > 0 {
			w := float64(ex.Label)
			addScaled(pos, ex.Features, w)
			posWeight += w
		} else {
			addScaled(neg, ex.Features, 1)
			negWeight++
		}
	}
	if posWeight == 0 || negWeight == 0 {
		return fmt.Errorf("centroid: need relevant and irrelevant examples")
	}

	scale(pos, 1/posWeight)
	scale(neg, 1/negWeight)
	c.positive, c.negative = pos, neg
	return nil
}

// ScoreAndRank orders examples by their centroid margin.
func (c *Centroid) ScoreAndRank(ctx context.Context, examples []Example) (rank.Ranking, error) {
	if c.positive == nil {
		return nil, fmt.Errorf("centroid: not trained")
	}
	return scored(ctx, examples, func(v corpus.FeatureVector) float64 {
		return corpus.Cosine(v, c.positive) - corpus.Cosine(v, c.negative)
	})
}

func addScaled(dst, src corpus.FeatureVector, w float64) {
	for k, v := range src {
		dst[k] += w * v
	}
}

func scale(v corpus.FeatureVector, f float64) {
	for k := range v {
		v[k] *= f
	}
}

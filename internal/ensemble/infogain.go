package ensemble

import (
	"context"

	"github.com/screenlab/screensim/internal/corpus"
	"github.com/screenlab/screensim/internal/infogain"
	"github.com/screenlab/screensim/internal/rank"
)

// InfoGain adapts the tag information-gain classifier to the bagging
// interface. Every relevant tier counts as the relevant group.
type InfoGain struct {
	clf *infogain.Classifier
}

// NewInfoGain returns an information-gain classifier. It uses no randomness.
func NewInfoGain(uint64) Classifier {
	return &InfoGain{clf: infogain.New()}
}

// Train rebuilds the tag table from the labeled groups.
func (c *InfoGain) Train(_ context.Context, examples []Example) error {
	relevant := make(map[string]corpus.FeatureVector)
	irrelevant := make(map[string]corpus.FeatureVector)
	for _, ex := range examples {
		if ex.Label > 0 {
			relevant[ex.ID] = ex.Features
		} else {
			irrelevant[ex.ID] = ex.Features
		}
	}
	c.clf.Update(relevant, irrelevant)
	return nil
}

// ScoreAndRank orders examples by summed tag scores.
func (c *InfoGain) ScoreAndRank(ctx context.Context, examples []Example) (rank.Ranking, error) {
	return scored(ctx, examples, c.clf.Classify)
}

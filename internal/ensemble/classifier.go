package ensemble

import (
	"context"
	"sort"

	"github.com/screenlab/screensim/internal/corpus"
	"github.com/screenlab/screensim/internal/rank"
)

// Example is one labeled or unlabeled feature vector. Label is the ordinal
// relevance grade: 0 for irrelevant, higher for stronger relevance. It is
// ignored when scoring.
type Example struct {
	ID       string
	Features corpus.FeatureVector
	Label    int
}

// Classifier is the pluggable learner trained once per bag.
type Classifier interface {
	// Train fits the classifier to labeled examples.
	Train(ctx context.Context, examples []Example) error
	// ScoreAndRank scores unlabeled examples and returns them best first.
	ScoreAndRank(ctx context.Context, examples []Example) (rank.Ranking, error)
}

// Factory builds a fresh classifier for one bag. seed drives any randomness
// the classifier uses so a bag is reproducible.
type Factory func(seed uint64) Classifier

// examplesFrom converts a feature map to examples sorted by identifier.
func examplesFrom(m map[string]corpus.FeatureVector) []Example {
	out := make([]Example, 0, len(m))
	for id, v := range m {
		out = append(out, Example{ID: id, Features: v})
	}
	sortExamples(out)
	return out
}

// labeled converts judgments to examples labeled by grade.
func labeled(m map[string]corpus.Judgment) []Example {
	out := make([]Example, 0, len(m))
	for id, j := range m {
		out = append(out, Example{ID: id, Features: j.Features, Label: int(j.Grade)})
	}
	sortExamples(out)
	return out
}

func sortExamples(ex []Example) {
	sort.Slice(ex, func(i, j int) bool { return ex[i].ID < ex[j].ID })
}

// scored ranks examples by a scoring function.
func scored(ctx context.Context, examples []Example, score func(corpus.FeatureVector) float64) (rank.Ranking, error) {
	scores := make(map[string]float64, len(examples))
	for i, ex := range examples {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		scores[ex.ID] = score(ex.Features)
	}
	return rank.FromScores(scores), nil
}

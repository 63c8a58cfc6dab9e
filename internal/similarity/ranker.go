package similarity

import (
	"context"

	"github.com/screenlab/screensim/internal/corpus"
	"github.com/screenlab/screensim/internal/rank"
)

// Ranker orders candidates by similarity to the documents judged relevant.
// It keeps its Scorer across iterations so only new reference members cost
// anything.
type Ranker struct {
	scorer *Scorer
}

// NewRanker wraps a scorer as a ranking strategy.
func NewRanker(scorer *Scorer) *Ranker {
	return &Ranker{scorer: scorer}
}

// Name identifies the strategy in logs.
func (r *Ranker) Name() string { return "similarity" }

// Rank scores every candidate against the relevant judgments. With no
// relevant judgments yet every candidate ties at zero.
func (r *Ranker) Rank(ctx context.Context, candidates map[string]corpus.FeatureVector, judgments corpus.Snapshot) (rank.Ranking, error) {
	if len(judgments.Relevant) == 0 {
		return rank.Neutral(keys(candidates)), nil
	}

	r.syncReference(judgments.RelevantFeatures())

	scores, err := r.scorer.ScoreAll(ctx, candidates)
	if err != nil {
		return nil, err
	}
	return rank.FromScores(scores), nil
}

// syncReference extends the reference set when it only grew and replaces
// it otherwise, so the cache is reset exactly when stale.
func (r *Ranker) syncReference(relevant map[string]corpus.FeatureVector) {
	current := r.scorer.ReferenceIDs()
	for _, id := range current {
		if _, ok := relevant[id]; !ok {
			r.scorer.SetReferenceSet(relevant)
			return
		}
	}
	r.scorer.Extend(relevant)
}

func keys(m map[string]corpus.FeatureVector) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

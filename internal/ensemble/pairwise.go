package ensemble

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/screenlab/screensim/internal/corpus"
	"github.com/screenlab/screensim/internal/rank"
)

// Pairwise is a linear ranker trained by stochastic gradient descent on a
// hinge loss over label-discordant pairs. Higher labels rank above lower
// ones, so graded relevance is learned directly.
type Pairwise struct {
	Epochs       int
	LearningRate float64

	rng     *rand.Rand
	weights corpus.FeatureVector
}

// NewPairwise returns a pairwise ranker seeded for reproducible training.
func NewPairwise(seed uint64) Classifier {
	return &Pairwise{
		Epochs:       10,
		LearningRate: 0.1,
		rng:          rand.New(rand.NewPCG(seed, 0x9e3779b97f4a7c15)),
	}
}

// PairwiseFactory returns a Factory for pairwise rankers with the given
// training schedule. Non-positive values keep the defaults.
func PairwiseFactory(epochs int, learningRate float64) Factory {
	return func(seed uint64) Classifier {
		p := NewPairwise(seed).(*Pairwise)
		if epochs > 0 {
			p.Epochs = epochs
		}
		if learningRate > 0 {
			p.LearningRate = learningRate
		}
		return p
	}
}

// Train fits the weight vector.
func (p *Pairwise) Train(ctx context.Context, examples []Example) error {
	if !hasDiscordantPair(examples) {
		return fmt.Errorf("pairwise: need at least two distinct labels, got %d examples", len(examples))
	}

	p.weights = make(corpus.FeatureVector)
	steps := p.Epochs * len(examples)
	for step := 0; step < steps; step++ {
		if step%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		a := examples[p.rng.IntN(len(examples))]
		b := examples[p.rng.IntN(len(examples))]
		if a.Label == b.Label {
			continue
		}
		if a.Label < b.Label {
			a, b = b, a
		}
		if p.weights.Dot(a.Features)-p.weights.Dot(b.Features) >= 1 {
			continue
		}
		for k, v := range a.Features {
			p.weights[k] += p.LearningRate * v
		}
		for k, v := range b.Features {
			p.weights[k] -= p.LearningRate * v
		}
	}
	return nil
}

// ScoreAndRank orders examples by their projection onto the weights.
func (p *Pairwise) ScoreAndRank(ctx context.Context, examples []Example) (rank.Ranking, error) {
	if p.weights == nil {
		return nil, fmt.Errorf("pairwise: not trained")
	}
	return scored(ctx, examples, p.weights.Dot)
}

func hasDiscordantPair(examples []Example) bool {
	for _, ex := range examples[min(1, len(examples)):] {
		if ex.Label != examples[0].Label {
			return true
		}
	}
	return false
}

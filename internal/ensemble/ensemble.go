// Package ensemble ranks documents with a bag of classifiers, each trained
// on the full minority class plus a random undersample of the majority
// class, and merges the per-bag rankings by reciprocal Borda count.
package ensemble

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/screenlab/screensim/internal/corpus"
	"github.com/screenlab/screensim/internal/pkg/errors"
	"github.com/screenlab/screensim/internal/pkg/hash"
	"github.com/screenlab/screensim/internal/pkg/logger"
	"github.com/screenlab/screensim/internal/rank"
)

// Config holds ensemble settings.
type Config struct {
	// Size is the number of bags when undersampling pays off.
	Size int
	// Multiplier bounds each bag's majority draw to |minority|*Multiplier.
	Multiplier int
	// Workers bounds how many bags train concurrently.
	Workers int
	// Seed makes bag composition and classifier randomness reproducible.
	Seed uint64
}

// DefaultConfig returns the default ensemble settings.
func DefaultConfig() Config {
	return Config{
		Size:       7,
		Multiplier: 2,
		Workers:    4,
		Seed:       1,
	}
}

// Ranker is the bagging wrapper around a pluggable classifier.
type Ranker struct {
	name    string
	cfg     Config
	factory Factory
	log     *logger.Logger

	mu    sync.Mutex
	round uint64
}

// NewRanker creates an ensemble ranker. Invalid config values fall back to
// their defaults.
func NewRanker(name string, factory Factory, cfg Config, log *logger.Logger) *Ranker {
	def := DefaultConfig()
	if cfg.Size <= 0 {
		cfg.Size = def.Size
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = def.Multiplier
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if log == nil {
		log = logger.Default()
	}
	return &Ranker{
		name:    name,
		cfg:     cfg,
		factory: factory,
		log:     log.WithComponent("ensemble"),
	}
}

// Name identifies the strategy in logs.
func (r *Ranker) Name() string { return r.name }

// Rank trains the ensemble on the judgment snapshot and ranks candidates.
// With no relevant or no irrelevant judgments it returns the neutral
// ranking. A classifier failure in any bag fails the whole call with a
// CLASSIFIER_ERROR.
func (r *Ranker) Rank(ctx context.Context, candidates map[string]corpus.FeatureVector, judgments corpus.Snapshot) (rank.Ranking, error) {
	ids := make([]string, 0, len(candidates))
	for id := range candidates {
		ids = append(ids, id)
	}
	if judgments.Empty() {
		return rank.Neutral(ids), nil
	}

	start := time.Now()

	positives := labeled(judgments.Relevant)
	negatives := labeled(judgments.Irrelevant)

	minority, majority := positives, negatives
	positiveMajority := len(positives) > len(negatives)
	if positiveMajority {
		minority, majority = negatives, positives
	}
	bags, draw := plan(len(minority), len(majority), r.cfg.Size, r.cfg.Multiplier)
	stratify := positiveMajority && judgments.HasTiers()

	unlabeled := examplesFrom(candidates)
	round := r.nextRound()

	results := make([]rank.Ranking, bags)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)

	for i := 0; i < bags; i++ {
		seed := hash.Seed(r.cfg.Seed, fmt.Sprintf("%s/%d/%d", r.name, round, i))
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(seed, seed>>1|1))

			var sample []Example
			if stratify {
				sample = drawStratified(rng, majority, draw)
			} else {
				sample = drawSimple(rng, majority, draw)
			}

			training := make([]Example, 0, len(minority)+len(sample))
			training = append(training, minority...)
			training = append(training, sample...)

			clf := r.factory(seed)
			if err := clf.Train(gctx, training); err != nil {
				return errors.ClassifierError(fmt.Sprintf("training bag %d failed", i), err)
			}
			ranking, err := clf.ScoreAndRank(gctx, unlabeled)
			if err != nil {
				return errors.ClassifierError(fmt.Sprintf("scoring bag %d failed", i), err)
			}
			results[i] = ranking
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := rank.Aggregate(results...)

	r.log.Debug("Ensemble ranked",
		"strategy", r.name,
		"bags", bags,
		"minority", len(minority),
		"majority_draw", draw,
		"stratified", stratify,
		"candidates", len(unlabeled),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return merged, nil
}

func (r *Ranker) nextRound() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.round++
	return r.round
}

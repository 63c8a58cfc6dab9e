package screening

import (
	"context"
	"fmt"
	"sort"

	"github.com/screenlab/screensim/internal/corpus"
	"github.com/screenlab/screensim/internal/ensemble"
	"github.com/screenlab/screensim/internal/pkg/errors"
	"github.com/screenlab/screensim/internal/pkg/logger"
	"github.com/screenlab/screensim/internal/pkg/workpool"
	"github.com/screenlab/screensim/internal/rank"
	"github.com/screenlab/screensim/internal/similarity"
)

// Ranker produces a full best-first ranking of candidates from a frozen
// snapshot of the judgments.
type Ranker interface {
	Name() string
	Rank(ctx context.Context, candidates map[string]corpus.FeatureVector, judgments corpus.Snapshot) (rank.Ranking, error)
}

// Strategy names a (representation, model) pair.
type Strategy struct {
	Representation string `json:"representation"`
	Model          string `json:"model"`
}

func (s Strategy) String() string {
	return s.Representation + "/" + s.Model
}

// RankerOptions carries the settings a model constructor may need.
type RankerOptions struct {
	Ensemble     ensemble.Config
	Epochs       int
	LearningRate float64
	Similarity   workpool.Config
	CacheMetrics similarity.CacheMetrics
	Log          *logger.Logger
}

// ModelConstructor builds a ranker for one session.
type ModelConstructor func(opts RankerOptions) Ranker

// Registry maps representation and model names to their implementations.
// It is resolved once at startup.
type Registry struct {
	featurizers map[string]func(minDocFreq int) corpus.Featurizer
	models      map[string]ModelConstructor
	describe    map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		featurizers: make(map[string]func(int) corpus.Featurizer),
		models:      make(map[string]ModelConstructor),
		describe:    make(map[string]string),
	}
}

// DefaultRegistry returns the built-in representations and models.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.RegisterRepresentation("tfidf", func(minDocFreq int) corpus.Featurizer {
		return corpus.TFIDF{MinDocFreq: max(minDocFreq, 1)}
	})
	r.RegisterRepresentation("mesh", func(int) corpus.Featurizer {
		return corpus.Mesh{}
	})

	r.RegisterModel("similarity", "mean cosine similarity to the judged-relevant set", func(opts RankerOptions) Ranker {
		cache := similarity.NewCache()
		if opts.CacheMetrics != nil {
			cache.SetMetrics(opts.CacheMetrics)
		}
		return similarity.NewRanker(similarity.NewScorer(cache, opts.Similarity, opts.Log))
	})
	r.RegisterModel("pairwise", "undersampled bagging of pairwise hinge-loss rankers", func(opts RankerOptions) Ranker {
		return ensemble.NewRanker("pairwise", ensemble.PairwiseFactory(opts.Epochs, opts.LearningRate), opts.Ensemble, opts.Log)
	})
	r.RegisterModel("centroid", "undersampled bagging of Rocchio centroid classifiers", func(opts RankerOptions) Ranker {
		return ensemble.NewRanker("centroid", ensemble.NewCentroid, opts.Ensemble, opts.Log)
	})
	r.RegisterModel("infogain", "undersampled bagging of information-gain tag scorers", func(opts RankerOptions) Ranker {
		return ensemble.NewRanker("infogain", ensemble.NewInfoGain, opts.Ensemble, opts.Log)
	})

	return r
}

// RegisterRepresentation adds or replaces a representation.
func (r *Registry) RegisterRepresentation(name string, build func(minDocFreq int) corpus.Featurizer) {
	r.featurizers[name] = build
}

// RegisterModel adds or replaces a model.
func (r *Registry) RegisterModel(name, description string, build ModelConstructor) {
	r.models[name] = build
	r.describe[name] = description
}

// Strategies lists every registered combination, sorted.
func (r *Registry) Strategies() []Strategy {
	var out []Strategy
	for rep := range r.featurizers {
		for model := range r.models {
			out = append(out, Strategy{Representation: rep, Model: model})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Describe returns the model's one-line description.
func (r *Registry) Describe(model string) string {
	return r.describe[model]
}

// Resolve builds the featurizer and ranker for s.
func (r *Registry) Resolve(s Strategy, minDocFreq int, opts RankerOptions) (corpus.Featurizer, Ranker, error) {
	feat, ok := r.featurizers[s.Representation]
	if !ok {
		return nil, nil, errors.ValidationError(fmt.Sprintf("unknown representation: %s", s.Representation))
	}
	model, ok := r.models[s.Model]
	if !ok {
		return nil, nil, errors.ValidationError(fmt.Sprintf("unknown model: %s", s.Model))
	}
	if opts.Log == nil {
		opts.Log = logger.Default()
	}
	return feat(minDocFreq), model(opts), nil
}

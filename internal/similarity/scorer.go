// Package similarity scores documents by their average cosine similarity to
// a reference set, memoizing every pair it computes.
package similarity

import (
	"context"
	"sort"
	"sync"

	"github.com/screenlab/screensim/internal/corpus"
	"github.com/screenlab/screensim/internal/pkg/logger"
	"github.com/screenlab/screensim/internal/pkg/workpool"
)

// Scorer computes the mean similarity of a document to the reference set.
type Scorer struct {
	mu        sync.RWMutex
	reference map[string]corpus.FeatureVector
	order     []string // reference ids, sorted, so sums are reproducible
	cache     *Cache
	pool      workpool.Config
	log       *logger.Logger
}

// NewScorer creates a scorer with an empty reference set. cache may be nil.
func NewScorer(cache *Cache, pool workpool.Config, log *logger.Logger) *Scorer {
	if cache == nil {
		cache = NewCache()
	}
	if log == nil {
		log = logger.Default()
	}
	return &Scorer{
		reference: make(map[string]corpus.FeatureVector),
		cache:     cache,
		pool:      pool,
		log:       log,
	}
}

// Cache returns the scorer's cache.
func (s *Scorer) Cache() *Cache {
	return s.cache
}

// SetReferenceSet replaces the reference set and invalidates every cached
// pair computed against the previous one.
func (s *Scorer) SetReferenceSet(ref map[string]corpus.FeatureVector) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reference = make(map[string]corpus.FeatureVector, len(ref))
	s.order = s.order[:0]
	for id, v := range ref {
		s.reference[id] = v
		s.order = append(s.order, id)
	}
	sort.Strings(s.order)
	s.cache.Reset()
}

// Extend adds members to the reference set. Cached pairs stay valid, so
// only the new members' pairs are computed on the next Score. Members
// already present are left untouched.
func (s *Scorer) Extend(ref map[string]corpus.FeatureVector) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for id, v := range ref {
		if _, ok := s.reference[id]; ok {
			continue
		}
		s.reference[id] = v
		s.order = append(s.order, id)
		added++
	}
	if added > 0 {
		sort.Strings(s.order)
	}
	return added
}

// ReferenceIDs returns the current reference members in order.
func (s *Scorer) ReferenceIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, len(s.order))
	copy(ids, s.order)
	return ids
}

// Score returns the mean cosine similarity between features and every
// reference member, or 0 when the reference set is empty.
func (s *Scorer) Score(docID string, features corpus.FeatureVector) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.reference) == 0 {
		return 0
	}

	cached := s.cache.entry(docID)
	fresh := make(map[string]float64)
	var sum float64
	for _, refID := range s.order {
		v, ok := cached[refID]
		if !ok {
			v = corpus.Cosine(features, s.reference[refID])
			fresh[refID] = v
		}
		sum += v
	}

	s.cache.Store(docID, fresh)
	s.cache.recordLookups(len(s.reference)-len(fresh), len(fresh))

	return sum / float64(len(s.reference))
}

type scored struct {
	id    string
	score float64
}

// ScoreAll scores every document on the worker pool and joins before
// returning.
func (s *Scorer) ScoreAll(ctx context.Context, docs map[string]corpus.FeatureVector) (map[string]float64, error) {
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	proc := workpool.NewProcessor(s.pool, func(ctx context.Context, batch []string) ([]scored, error) {
		out := make([]scored, len(batch))
		for i, id := range batch {
			out[i] = scored{id: id, score: s.Score(id, docs[id])}
		}
		return out, nil
	})

	results, err := proc.Process(ctx, ids)
	if err != nil {
		return nil, err
	}

	scores := make(map[string]float64, len(results))
	for _, r := range results {
		scores[r.id] = r.score
	}

	s.log.Debug("Scored documents against reference set",
		"documents", len(scores),
		"reference", len(s.ReferenceIDs()),
		"cached_pairs", s.cache.Size(),
	)
	return scores, nil
}

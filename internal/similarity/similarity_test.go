package similarity

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/screenlab/screensim/internal/corpus"
	"github.com/screenlab/screensim/internal/pkg/logger"
	"github.com/screenlab/screensim/internal/pkg/workpool"
)

type countingMetrics struct {
	mu     sync.Mutex
	hits   int
	misses int
	size   int
}

func (m *countingMetrics) RecordCacheHits(_ string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hits += n
}

func (m *countingMetrics) RecordCacheMisses(_ string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.misses += n
}

func (m *countingMetrics) UpdateCacheSize(_ string, size int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.size = size
}

func newScorer(t *testing.T) (*Scorer, *countingMetrics) {
	t.Helper()
	m := &countingMetrics{}
	cache := NewCache()
	cache.SetMetrics(m)
	return NewScorer(cache, workpool.Config{Size: 2, Workers: 3}, logger.Discard()), m
}

func TestScore_EmptyReference(t *testing.T) {
	s, _ := newScorer(t)
	if got := s.Score("d1", corpus.FeatureVector{"x": 1}); got != 0 {
		t.Errorf("Score() with empty reference = %v, want 0", got)
	}
}

func TestScore_AverageCosine(t *testing.T) {
	s, _ := newScorer(t)
	s.SetReferenceSet(map[string]corpus.FeatureVector{
		"r1": {"x": 1},
		"r2": {"y": 1},
	})

	got := s.Score("d1", corpus.FeatureVector{"x": 1})
	if math.Abs(got-0.5) > 1e-12 {
		t.Errorf("Score() = %v, want 0.5", got)
	}
}

func TestScore_ExtendReusesCache(t *testing.T) {
	s, m := newScorer(t)
	s.SetReferenceSet(map[string]corpus.FeatureVector{"r1": {"x": 1}})

	doc := corpus.FeatureVector{"x": 1, "y": 1}
	s.Score("d1", doc)
	if m.misses != 1 || m.hits != 0 {
		t.Fatalf("first score: hits=%d misses=%d, want 0/1", m.hits, m.misses)
	}

	if added := s.Extend(map[string]corpus.FeatureVector{"r1": {"z": 1}, "r2": {"y": 1}}); added != 1 {
		t.Errorf("Extend() added %d, want 1 (r1 already present)", added)
	}

	got := s.Score("d1", doc)
	if m.misses != 2 || m.hits != 1 {
		t.Errorf("after extend: hits=%d misses=%d, want 1/2", m.hits, m.misses)
	}
	want := (1/math.Sqrt2 + 1/math.Sqrt2) / 2
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("Score() = %v, want %v", got, want)
	}
	if s.Cache().Size() != 2 || m.size != 2 {
		t.Errorf("cache size = %d (metric %d), want 2", s.Cache().Size(), m.size)
	}
}

func TestSetReferenceSet_Invalidates(t *testing.T) {
	s, _ := newScorer(t)
	s.SetReferenceSet(map[string]corpus.FeatureVector{"r1": {"x": 1}})
	s.Score("d1", corpus.FeatureVector{"x": 1})

	// Same member id, different vector: a stale entry would report 1.
	s.SetReferenceSet(map[string]corpus.FeatureVector{"r1": {"y": 1}})
	if s.Cache().Size() != 0 {
		t.Fatalf("cache size after replace = %d, want 0", s.Cache().Size())
	}
	if got := s.Score("d1", corpus.FeatureVector{"x": 1}); got != 0 {
		t.Errorf("Score() after replace = %v, want 0", got)
	}
}

func TestScoreAll(t *testing.T) {
	s, _ := newScorer(t)
	s.SetReferenceSet(map[string]corpus.FeatureVector{"r1": {"statin": 1}})

	docs := map[string]corpus.FeatureVector{
		"a": {"statin": 2},
		"b": {"statin": 1, "asthma": 1},
		"c": {"asthma": 1},
		"d": {},
		"e": {"statin": 1, "asthma": 3},
	}

	scores, err := s.ScoreAll(context.Background(), docs)
	if err != nil {
		t.Fatalf("ScoreAll() error = %v", err)
	}
	if len(scores) != len(docs) {
		t.Fatalf("ScoreAll() returned %d scores, want %d", len(scores), len(docs))
	}
	if !(scores["a"] > scores["b"] && scores["b"] > scores["e"] && scores["e"] > scores["c"]) {
		t.Errorf("unexpected order: %v", scores)
	}
	if scores["d"] != 0 {
		t.Errorf("empty document score = %v, want 0", scores["d"])
	}
}

func TestRanker(t *testing.T) {
	s, m := newScorer(t)
	r := NewRanker(s)
	ctx := context.Background()

	candidates := map[string]corpus.FeatureVector{
		"a": {"statin": 1},
		"b": {"asthma": 1},
		"c": {"statin": 1, "trial": 1},
	}

	neutral, err := r.Rank(ctx, candidates, corpus.Snapshot{})
	if err != nil {
		t.Fatalf("Rank(no judgments) error = %v", err)
	}
	if len(neutral) != 3 || neutral[0].ID != "a" || neutral[0].Score != 0 {
		t.Errorf("Rank(no judgments) = %v, want neutral id order", neutral)
	}

	snap := corpus.Snapshot{
		Relevant: map[string]corpus.Judgment{"r1": {Features: corpus.FeatureVector{"statin": 1}, Grade: corpus.Relevant}},
	}
	ranked, err := r.Rank(ctx, candidates, snap)
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if ranked[0].ID != "a" || ranked[len(ranked)-1].ID != "b" {
		t.Errorf("Rank() = %v, want a first and b last", ranked.IDs())
	}

	// Growing the relevant set extends the reference: old pairs are hits.
	snap.Relevant["r2"] = corpus.Judgment{Features: corpus.FeatureVector{"trial": 1}, Grade: corpus.Relevant}
	before := m.hits
	if _, err := r.Rank(ctx, candidates, snap); err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if m.hits-before != 3 {
		t.Errorf("extension produced %d cache hits, want 3", m.hits-before)
	}

	// Dropping a member replaces the set and clears the cache.
	delete(snap.Relevant, "r1")
	if _, err := r.Rank(ctx, candidates, snap); err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if got := s.ReferenceIDs(); len(got) != 1 || got[0] != "r2" {
		t.Errorf("ReferenceIDs() = %v, want [r2]", got)
	}
	if s.Cache().Size() != 3 {
		t.Errorf("cache size = %d, want 3 fresh pairs", s.Cache().Size())
	}
}

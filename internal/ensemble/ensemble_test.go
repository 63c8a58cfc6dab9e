package ensemble

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/screenlab/screensim/internal/corpus"
	apperrors "github.com/screenlab/screensim/internal/pkg/errors"
	"github.com/screenlab/screensim/internal/pkg/logger"
	"github.com/screenlab/screensim/internal/rank"
)

// recorder is a classifier that remembers every training set it saw and
// scores by a fixed feature.
type recorder struct {
	mu       sync.Mutex
	training [][]Example
	failOn   string
}

func (r *recorder) factory(uint64) Classifier {
	return &recordingClassifier{parent: r}
}

type recordingClassifier struct {
	parent *recorder
}

func (c *recordingClassifier) Train(_ context.Context, examples []Example) error {
	c.parent.mu.Lock()
	defer c.parent.mu.Unlock()
	if c.parent.failOn == "train" {
		return errors.New("boom")
	}
	c.parent.training = append(c.parent.training, examples)
	return nil
}

func (c *recordingClassifier) ScoreAndRank(ctx context.Context, examples []Example) (rank.Ranking, error) {
	if c.parent.failOn == "score" {
		return nil, errors.New("boom")
	}
	return scored(ctx, examples, func(v corpus.FeatureVector) float64 { return v["signal"] })
}

func judgments(relevant, tier2, irrelevant int) corpus.Snapshot {
	snap := corpus.Snapshot{
		Relevant:   make(map[string]corpus.Judgment),
		Irrelevant: make(map[string]corpus.Judgment),
	}
	for i := 0; i < relevant; i++ {
		g := corpus.Relevant
		if i < tier2 {
			g = corpus.HighlyRelevant
		}
		snap.Relevant[fmt.Sprintf("rel-%02d", i)] = corpus.Judgment{
			Features: corpus.FeatureVector{"signal": 1, "topic": 1},
			Grade:    g,
		}
	}
	for i := 0; i < irrelevant; i++ {
		snap.Irrelevant[fmt.Sprintf("irr-%02d", i)] = corpus.Judgment{
			Features: corpus.FeatureVector{"noise": 1},
			Grade:    corpus.NotRelevant,
		}
	}
	return snap
}

func candidates() map[string]corpus.FeatureVector {
	return map[string]corpus.FeatureVector{
		"a": {"signal": 3},
		"b": {"signal": 1},
		"c": {"signal": 2},
		"d": {"noise": 1},
	}
}

func countLabels(examples []Example) map[int]int {
	out := make(map[int]int)
	for _, ex := range examples {
		out[ex.Label]++
	}
	return out
}

func TestPlan(t *testing.T) {
	tests := []struct {
		name                string
		minority, majority  int
		wantBags, wantDrawn int
	}{
		{"balanced", 5, 5, 1, 5},
		{"within multiplier", 5, 10, 1, 10},
		{"imbalanced", 3, 40, 7, 6},
		{"single minority", 1, 90, 7, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bags, drawn := plan(tt.minority, tt.majority, 7, 2)
			if bags != tt.wantBags || drawn != tt.wantDrawn {
				t.Errorf("plan(%d, %d) = (%d, %d), want (%d, %d)",
					tt.minority, tt.majority, bags, drawn, tt.wantBags, tt.wantDrawn)
			}
		})
	}
}

func TestRank_NeutralWithoutSignal(t *testing.T) {
	rec := &recorder{}
	r := NewRanker("test", rec.factory, DefaultConfig(), logger.Discard())

	for _, snap := range []corpus.Snapshot{judgments(0, 0, 5), judgments(3, 0, 0)} {
		got, err := r.Rank(context.Background(), candidates(), snap)
		if err != nil {
			t.Fatalf("Rank() error = %v", err)
		}
		if len(got) != 4 || got[0].ID != "a" || got[3].ID != "d" {
			t.Errorf("Rank() = %v, want neutral id order", got.IDs())
		}
		for _, e := range got {
			if e.Score != 0 {
				t.Errorf("neutral score for %s = %v, want 0", e.ID, e.Score)
			}
		}
	}
	if len(rec.training) != 0 {
		t.Errorf("classifier trained %d times, want 0", len(rec.training))
	}
}

func TestRank_SingleBagWhenBalanced(t *testing.T) {
	rec := &recorder{}
	r := NewRanker("test", rec.factory, DefaultConfig(), logger.Discard())

	got, err := r.Rank(context.Background(), candidates(), judgments(4, 0, 6))
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if len(rec.training) != 1 {
		t.Fatalf("bags = %d, want 1", len(rec.training))
	}
	if n := len(rec.training[0]); n != 10 {
		t.Errorf("training size = %d, want all 10 judgments", n)
	}
	want := []string{"a", "c", "b", "d"}
	for i, id := range got.IDs() {
		if id != want[i] {
			t.Errorf("Rank()[%d] = %s, want %s", i, id, want[i])
		}
	}
}

func TestRank_Undersampling(t *testing.T) {
	rec := &recorder{}
	cfg := DefaultConfig()
	cfg.Size = 5
	r := NewRanker("test", rec.factory, cfg, logger.Discard())

	if _, err := r.Rank(context.Background(), candidates(), judgments(3, 0, 40)); err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if len(rec.training) != 5 {
		t.Fatalf("bags = %d, want 5", len(rec.training))
	}
	for i, set := range rec.training {
		labels := countLabels(set)
		if labels[1] != 3 {
			t.Errorf("bag %d: relevant = %d, want full minority 3", i, labels[1])
		}
		if labels[0] != 6 {
			t.Errorf("bag %d: irrelevant = %d, want 3*2", i, labels[0])
		}
		seen := make(map[string]bool)
		for _, ex := range set {
			if seen[ex.ID] {
				t.Errorf("bag %d: %s drawn twice", i, ex.ID)
			}
			seen[ex.ID] = true
		}
	}
}

func TestRank_StratifiedWhenRelevantIsMajority(t *testing.T) {
	rec := &recorder{}
	r := NewRanker("test", rec.factory, DefaultConfig(), logger.Discard())

	// 30 relevant (3 of them tier2) against 2 irrelevant: draw 4 relevant.
	if _, err := r.Rank(context.Background(), candidates(), judgments(30, 3, 2)); err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	for i, set := range rec.training {
		labels := countLabels(set)
		if labels[0] != 2 {
			t.Errorf("bag %d: irrelevant = %d, want 2", i, labels[0])
		}
		if labels[2] != 1 {
			t.Errorf("bag %d: tier2 = %d, want 1 (rounded up share)", i, labels[2])
		}
		if labels[1]+labels[2] != 4 {
			t.Errorf("bag %d: relevant = %d, want 4", i, labels[1]+labels[2])
		}
	}
}

func TestRank_ClassifierFailure(t *testing.T) {
	for _, stage := range []string{"train", "score"} {
		t.Run(stage, func(t *testing.T) {
			rec := &recorder{failOn: stage}
			r := NewRanker("test", rec.factory, DefaultConfig(), logger.Discard())

			_, err := r.Rank(context.Background(), candidates(), judgments(2, 0, 20))
			if err == nil {
				t.Fatal("Rank() error = nil, want classifier error")
			}
			if !apperrors.IsClassifier(err) {
				t.Errorf("Rank() error = %v, want CLASSIFIER_ERROR", err)
			}
		})
	}
}

func TestRank_Reproducible(t *testing.T) {
	run := func() [][]string {
		rec := &recorder{}
		cfg := DefaultConfig()
		cfg.Workers = 1
		r := NewRanker("test", rec.factory, cfg, logger.Discard())
		if _, err := r.Rank(context.Background(), candidates(), judgments(2, 0, 30)); err != nil {
			t.Fatalf("Rank() error = %v", err)
		}
		var out [][]string
		for _, set := range rec.training {
			ids := make([]string, len(set))
			for i, ex := range set {
				ids[i] = ex.ID
			}
			out = append(out, ids)
		}
		return out
	}

	a, b := run(), run()
	if fmt.Sprint(a) != fmt.Sprint(b) {
		t.Errorf("training sets differ between identically seeded runs:\n%v\n%v", a, b)
	}
}

func TestDrawStratified_Shares(t *testing.T) {
	var pool []Example
	for i := 0; i < 8; i++ {
		pool = append(pool, Example{ID: fmt.Sprintf("t1-%d", i), Label: 1})
	}
	for i := 0; i < 2; i++ {
		pool = append(pool, Example{ID: fmt.Sprintf("t2-%d", i), Label: 2})
	}
	rng := rand.New(rand.NewPCG(1, 2))

	got := countLabels(drawStratified(rng, pool, 5))
	if got[2] != 1 || got[1] != 4 {
		t.Errorf("drawStratified() labels = %v, want 1 tier2 and 4 tier1", got)
	}

	all := drawStratified(rng, pool, 20)
	if len(all) != len(pool) {
		t.Errorf("drawStratified(n > pool) = %d examples, want %d", len(all), len(pool))
	}
}

func trainingData() ([]Example, []Example) {
	train := []Example{
		{ID: "p1", Features: corpus.FeatureVector{"statin": 1, "stroke": 1}, Label: 2},
		{ID: "p2", Features: corpus.FeatureVector{"statin": 1, "trial": 1}, Label: 1},
		{ID: "n1", Features: corpus.FeatureVector{"asthma": 1, "child": 1}},
		{ID: "n2", Features: corpus.FeatureVector{"asthma": 1, "trial": 1}},
		{ID: "n3", Features: corpus.FeatureVector{"vaccine": 1}},
	}
	test := []Example{
		{ID: "x-on", Features: corpus.FeatureVector{"statin": 1, "stroke": 1}},
		{ID: "x-off", Features: corpus.FeatureVector{"asthma": 1, "child": 1}},
	}
	return train, test
}

func TestClassifiers_RankRelevantFirst(t *testing.T) {
	factories := map[string]Factory{
		"pairwise": NewPairwise,
		"centroid": NewCentroid,
		"infogain": NewInfoGain,
	}

	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			train, test := trainingData()
			clf := factory(7)
			if err := clf.Train(context.Background(), train); err != nil {
				t.Fatalf("Train() error = %v", err)
			}
			got, err := clf.ScoreAndRank(context.Background(), test)
			if err != nil {
				t.Fatalf("ScoreAndRank() error = %v", err)
			}
			if len(got) != 2 || got[0].ID != "x-on" {
				t.Errorf("ScoreAndRank() = %v, want x-on first", got)
			}
			if got[0].Score <= got[1].Score {
				t.Errorf("scores %v should strictly separate", got)
			}
		})
	}
}

func TestClassifiers_RejectSingleLabel(t *testing.T) {
	only := []Example{
		{ID: "a", Features: corpus.FeatureVector{"x": 1}, Label: 1},
		{ID: "b", Features: corpus.FeatureVector{"y": 1}, Label: 1},
	}
	if err := NewPairwise(1).Train(context.Background(), only); err == nil {
		t.Error("Pairwise.Train() with one label should fail")
	}
	if err := NewCentroid(1).Train(context.Background(), only); err == nil {
		t.Error("Centroid.Train() without irrelevant examples should fail")
	}
	if _, err := NewPairwise(1).ScoreAndRank(context.Background(), only); err == nil {
		t.Error("untrained Pairwise.ScoreAndRank() should fail")
	}
}

func TestPairwiseFactory(t *testing.T) {
	p := PairwiseFactory(25, 0.05)(3).(*Pairwise)
	if p.Epochs != 25 || p.LearningRate != 0.05 {
		t.Errorf("PairwiseFactory(25, 0.05) = epochs %d, rate %v", p.Epochs, p.LearningRate)
	}

	d := PairwiseFactory(0, 0)(3).(*Pairwise)
	if d.Epochs != 10 || d.LearningRate != 0.1 {
		t.Errorf("PairwiseFactory(0, 0) = epochs %d, rate %v, want defaults", d.Epochs, d.LearningRate)
	}
}

package infogain

import (
	"fmt"
	"math"
	"testing"

	"github.com/screenlab/screensim/internal/corpus"
)

func TestEntropy(t *testing.T) {
	tests := []struct {
		a, b int
		want float64
	}{
		{3, 0, 0},
		{0, 8, 0},
		{0, 0, 0},
		{5, 5, 1},
		{1, 3, 0.811},
		{222, 533, 0.874},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_%d", tt.a, tt.b), func(t *testing.T) {
			got := Entropy(tt.a, tt.b)
			if math.IsNaN(got) {
				t.Fatalf("Entropy(%d, %d) is NaN", tt.a, tt.b)
			}
			if math.Abs(got-tt.want) > 5e-4 {
				t.Errorf("Entropy(%d, %d) = %.6f, want %.3f", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestGain_NeverNegativeMagnitude(t *testing.T) {
	for irrTotal := 1; irrTotal <= 12; irrTotal++ {
		for relTotal := 1; relTotal <= 6; relTotal++ {
			for nIrr := 0; nIrr <= irrTotal; nIrr++ {
				for nRel := 0; nRel <= relTotal; nRel++ {
					g := Gain(irrTotal, relTotal, nIrr, nRel)
					if math.IsNaN(g) {
						t.Fatalf("Gain(%d,%d,%d,%d) is NaN", irrTotal, relTotal, nIrr, nRel)
					}
					if nRel > nIrr && g < 0 {
						t.Errorf("Gain(%d,%d,%d,%d) = %v, want >= 0", irrTotal, relTotal, nIrr, nRel, g)
					}
					if nRel <= nIrr && g > 0 {
						t.Errorf("Gain(%d,%d,%d,%d) = %v, want <= 0", irrTotal, relTotal, nIrr, nRel, g)
					}
				}
			}
		}
	}
}

func TestGain_IdenticalDistribution(t *testing.T) {
	// Half of each group carries the tag.
	if g := Gain(10, 10, 5, 5); math.Abs(g) > 1e-12 {
		t.Errorf("Gain() = %v, want ~0", g)
	}
}

func TestGain_Separating(t *testing.T) {
	// Tag only on the relevant side.
	pos := Gain(10, 10, 0, 10)
	if pos <= 0.9 {
		t.Errorf("Gain(perfect separator) = %v, want close to 1", pos)
	}
	neg := Gain(10, 10, 10, 0)
	if neg >= -0.9 {
		t.Errorf("Gain(anti separator) = %v, want close to -1", neg)
	}
}

func group(tags ...[]string) map[string]corpus.FeatureVector {
	out := make(map[string]corpus.FeatureVector)
	for i, ts := range tags {
		v := corpus.FeatureVector{}
		for _, tag := range ts {
			v[tag] = 1
		}
		out[fmt.Sprintf("doc%d", i)] = v
	}
	return out
}

func TestClassifier(t *testing.T) {
	relevant := group(
		[]string{"statins", "stroke"},
		[]string{"statins", "humans"},
		[]string{"statins", "stroke", "humans"},
	)
	irrelevant := group(
		[]string{"asthma", "humans"},
		[]string{"asthma", "child"},
		[]string{"vaccines", "humans"},
	)

	c := New()
	c.Update(relevant, irrelevant)

	table := c.Table()
	if table["statins"] <= 0 {
		t.Errorf("statins score = %v, want positive", table["statins"])
	}
	if table["asthma"] >= 0 {
		t.Errorf("asthma score = %v, want negative", table["asthma"])
	}
	if table["humans"] > 0 {
		t.Errorf("humans score = %v, want <= 0 (2 relevant vs 2 irrelevant)", table["humans"])
	}

	onTopic := c.Classify(corpus.FeatureVector{"statins": 1, "stroke": 1})
	offTopic := c.Classify(corpus.FeatureVector{"asthma": 1, "child": 1})
	if onTopic <= offTopic {
		t.Errorf("Classify(on topic) = %v should exceed Classify(off topic) = %v", onTopic, offTopic)
	}
	if got := c.Classify(corpus.FeatureVector{"unseen": 1}); got != 0 {
		t.Errorf("Classify(unseen tag) = %v, want 0", got)
	}
	if got := c.Classify(corpus.FeatureVector{"statins": 0}); got != 0 {
		t.Errorf("Classify(zero weight) = %v, want 0", got)
	}
}


// Package evaluation computes screening effectiveness: set-based
// precision/recall, ranking AUC, and the per-iteration cost/recall log.
package evaluation

import (
	"math"
	"sort"
)

// PrecisionRecallF computes precision = tp/retrieved, recall =
// tp/relevantTotal and their harmonic mean. Zero denominators yield NaN.
func PrecisionRecallF(truePositives, retrieved, relevantTotal int) PRF {
	p := ratio(truePositives, retrieved)
	r := ratio(truePositives, relevantTotal)

	f := math.NaN()
	if !math.IsNaN(p) && !math.IsNaN(r) {
		if p+r == 0 {
			f = 0
		} else {
			f = 2 * p * r / (p + r)
		}
	}

	return PRF{Precision: p, Recall: r, FMeasure: f}
}

// AUC returns the area under the ROC curve of a best-first ranking against a
// relevant set, by a single pass: each relevant document is credited with
// the irrelevant documents still below it. The result equals the fraction
// of (relevant, irrelevant) pairs ordered correctly.
//
// Counting the irrelevant documents above each relevant one instead gives
// the misordered fraction, which is 1 - AUC. Higher is better here: a
// ranking with every relevant document first scores 1.
//
// Relevant ids missing from the ranking are ignored. With no relevant or no
// irrelevant documents in the ranking there are no pairs and AUC is 0.5.
func AUC(ranking []string, relevant map[string]struct{}) float64 {
	nRel := 0
	for _, id := range ranking {
		if _, ok := relevant[id]; ok {
			nRel++
		}
	}
	nIrr := len(ranking) - nRel

	denominator := float64(nIrr) * float64(nRel)
	if denominator == 0 {
		return 0.5
	}

	var correctPairs float64
	irrelevantSeen := 0
	for _, id := range ranking {
		if _, ok := relevant[id]; ok {
			correctPairs += float64(nIrr - irrelevantSeen)
		} else {
			irrelevantSeen++
		}
	}

	return correctPairs / denominator
}

// AveragePrecision calculates Average Precision of a ranking.
func AveragePrecision(ranking []string, relevant map[string]struct{}) float64 {
	found := 0
	sumPrecision := 0.0

	for i, id := range ranking {
		if _, ok := relevant[id]; ok {
			found++
			sumPrecision += float64(found) / float64(i+1)
		}
	}

	if found == 0 {
		return 0
	}
	return sumPrecision / float64(found)
}

// NDCG calculates Normalized Discounted Cumulative Gain at k using graded
// relevance (missing ids have gain 0).
func NDCG(ranking []string, grades map[string]int, k int) float64 {
	if k > len(ranking) {
		k = len(ranking)
	}
	if k == 0 {
		return 0
	}

	dcg := 0.0
	for i := 0; i < k; i++ {
		dcg += float64(grades[ranking[i]]) / math.Log2(float64(i+2))
	}

	// Ideal DCG over every graded document, not just those ranked.
	ideal := make([]int, 0, len(grades))
	for _, g := range grades {
		ideal = append(ideal, g)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ideal)))

	idcg := 0.0
	for i := 0; i < k && i < len(ideal); i++ {
		idcg += float64(ideal[i]) / math.Log2(float64(i+2))
	}

	if idcg == 0 {
		return 0
	}
	return dcg / idcg
}

// Cost is the screening effort per relevant document found: proposed/found.
// NaN until something has been found.
func Cost(proposed, found int) float64 {
	return ratio(proposed, found)
}

func ratio(num, den int) float64 {
	if den == 0 {
		return math.NaN()
	}
	return float64(num) / float64(den)
}

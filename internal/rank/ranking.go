// Package rank provides the best-first Ranking type and consensus
// aggregation of several rankings.
package rank

import "sort"

// Entry is one ranked document.
type Entry struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Ranking is an ordered sequence of documents, best first. A Ranking is
// built fresh for every iteration and treated as read-only afterwards.
type Ranking []Entry

// FromScores sorts scored documents by descending score. Ties are broken
// by identifier so a fixed RNG seed gives a reproducible sample.
func FromScores(scores map[string]float64) Ranking {
	r := make(Ranking, 0, len(scores))
	for id, s := range scores {
		r = append(r, Entry{ID: id, Score: s})
	}
	sort.Slice(r, func(i, j int) bool {
		if r[i].Score != r[j].Score {
			return r[i].Score > r[j].Score
		}
		return r[i].ID < r[j].ID
	})
	return r
}

// Neutral returns every id tied at score zero, in identifier order.
// Used when there is nothing to learn from yet.
func Neutral(ids []string) Ranking {
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)

	r := make(Ranking, len(sorted))
	for i, id := range sorted {
		r[i] = Entry{ID: id}
	}
	return r
}

// IDs returns the identifiers in rank order.
func (r Ranking) IDs() []string {
	ids := make([]string, len(r))
	for i, e := range r {
		ids[i] = e.ID
	}
	return ids
}

// Positions maps each identifier to its 1-based rank.
func (r Ranking) Positions() map[string]int {
	pos := make(map[string]int, len(r))
	for i, e := range r {
		pos[e.ID] = i + 1
	}
	return pos
}

// HarmonicNumber returns H(n) = 1 + 1/2 + ... + 1/n, or 0 for n <= 0.
func HarmonicNumber(n int) float64 {
	var h float64
	for i := 1; i <= n; i++ {
		h += 1 / float64(i)
	}
	return h
}

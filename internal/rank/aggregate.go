package rank

import "sort"

// Aggregate merges rankings by reciprocal-rank Borda counting: the document
// at 0-based position j of any input contributes 1/(j+1) to its total.
//
// Documents are ordered by total descending, ties by first appearance
// across the inputs. The output is truncated to the length of the longest
// single input, even when more distinct documents were seen; downstream
// evaluation cutoffs depend on that bound.
func Aggregate(rankings ...Ranking) Ranking {
	type tally struct {
		id    string
		score float64
		first int
	}

	scores := make(map[string]*tally)
	var order []*tally
	longest := 0

	for _, r := range rankings {
		if len(r) > longest {
			longest = len(r)
		}
		for j, e := range r {
			t, ok := scores[e.ID]
			if !ok {
				t = &tally{id: e.ID, first: len(order)}
				scores[e.ID] = t
				order = append(order, t)
			}
			t.score += 1 / float64(j+1)
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return order[i].score > order[j].score
	})

	n := min(longest, len(order))
	out := make(Ranking, n)
	for i := 0; i < n; i++ {
		out[i] = Entry{ID: order[i].id, Score: order[i].score}
	}
	return out
}

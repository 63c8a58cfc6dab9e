package ensemble

import (
	"math"
	"math/rand/v2"
	"sort"
)

// plan returns the number of bags and the majority draw per bag.
func plan(minority, majority, size, multiplier int) (bags, draw int) {
	if minority*multiplier >= majority {
		return 1, majority
	}
	return size, minority * multiplier
}

// drawSimple picks n examples uniformly without replacement. The result
// keeps identifier order so training input is reproducible.
func drawSimple(rng *rand.Rand, pool []Example, n int) []Example {
	if n >= len(pool) {
		out := make([]Example, len(pool))
		copy(out, pool)
		return out
	}

	idx := rng.Perm(len(pool))[:n]
	sort.Ints(idx)

	out := make([]Example, n)
	for i, j := range idx {
		out[i] = pool[j]
	}
	return out
}

// drawStratified picks n examples keeping the label mix of pool. Each label
// gets its proportional share; higher labels are rounded up and the lowest
// label absorbs the remainder, so the rarest strong tier is never dropped.
func drawStratified(rng *rand.Rand, pool []Example, n int) []Example {
	if n >= len(pool) {
		return drawSimple(rng, pool, n)
	}

	byLabel := make(map[int][]Example)
	var labels []int
	for _, ex := range pool {
		if _, ok := byLabel[ex.Label]; !ok {
			labels = append(labels, ex.Label)
		}
		byLabel[ex.Label] = append(byLabel[ex.Label], ex)
	}
	if len(labels) == 1 {
		return drawSimple(rng, pool, n)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(labels)))

	remaining := n
	out := make([]Example, 0, n)
	for i, label := range labels {
		group := byLabel[label]
		quota := remaining
		if i < len(labels)-1 {
			quota = int(math.Ceil(float64(n) * float64(len(group)) / float64(len(pool))))
			quota = min(quota, remaining, len(group))
		}
		out = append(out, drawSimple(rng, group, quota)...)
		remaining -= quota
	}
	sortExamples(out)
	return out
}

package evaluation

import "github.com/screenlab/screensim/internal/corpus"

// Tally accumulates the judged outcomes of a session and produces the
// per-iteration Record.
type Tally struct {
	totalTier1 int
	totalTier2 int

	proposed int
	accepted int
	found1   int
	found2   int
}

// NewTally creates a tally against the ground-truth tier sizes.
func NewTally(totalTier1, totalTier2 int) *Tally {
	return &Tally{totalTier1: totalTier1, totalTier2: totalTier2}
}

// Seed counts a document known relevant before screening began. It adds to
// recall but not to proposed/accepted.
func (t *Tally) Seed(g corpus.Grade) {
	t.countFound(g)
}

// Observe counts one proposed document with its judged grade.
func (t *Tally) Observe(g corpus.Grade) {
	t.proposed++
	if g.IsRelevant() {
		t.accepted++
	}
	t.countFound(g)
}

func (t *Tally) countFound(g corpus.Grade) {
	if g.MeetsTier(corpus.Tier1) {
		t.found1++
	}
	if g.MeetsTier(corpus.Tier2) {
		t.found2++
	}
}

// Proposed returns the number of documents proposed so far.
func (t *Tally) Proposed() int { return t.proposed }

// Accepted returns the number of proposed documents judged relevant.
func (t *Tally) Accepted() int { return t.accepted }

// RecallTier1 returns tier-1 recall so far.
func (t *Tally) RecallTier1() float64 {
	return ratio(t.found1, t.totalTier1)
}

// RecallTier2 returns tier-2 recall so far.
func (t *Tally) RecallTier2() float64 {
	return ratio(t.found2, t.totalTier2)
}

// Record snapshots the tally for an iteration.
func (t *Tally) Record(iteration int, q RankingQuality) Record {
	return Record{
		Iteration:   iteration,
		Proposed:    t.proposed,
		Accepted:    t.accepted,
		CostTier1:   Cost(t.proposed, t.found1),
		RecallTier1: t.RecallTier1(),
		CostTier2:   Cost(t.proposed, t.found2),
		RecallTier2: t.RecallTier2(),
		Quality:     q,
	}
}

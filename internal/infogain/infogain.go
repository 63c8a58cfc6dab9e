// Package infogain scores categorical tags (subject headings) by how well
// they separate a relevant group of documents from an irrelevant one, and
// classifies documents by summing the scores of the tags they carry.
package infogain

import (
	"math"
	"sort"
	"sync"

	"github.com/screenlab/screensim/internal/corpus"
)

// Entropy returns the two-class Shannon entropy, in bits, of counts a and b.
// Empty classes contribute nothing, so a pure group has entropy 0.
func Entropy(a, b int) float64 {
	total := float64(a + b)
	if total <= 0 {
		return 0
	}

	h := 0.0
	for _, c := range []int{a, b} {
		if c <= 0 {
			continue
		}
		p := float64(c) / total
		h -= p * math.Log2(p)
	}
	return h
}

// Gain returns the signed information gain of a tag carried by numRelevant
// of relevantTotal relevant documents and numIrrelevant of irrelevantTotal
// irrelevant ones. The magnitude is clamped at zero from below; the sign is
// positive when more relevant than irrelevant documents carry the tag.
func Gain(irrelevantTotal, relevantTotal, numIrrelevant, numRelevant int) float64 {
	ig := Entropy(irrelevantTotal, relevantTotal) -
		0.5*Entropy(numIrrelevant, numRelevant) -
		0.5*Entropy(irrelevantTotal-numIrrelevant, relevantTotal-numRelevant)
	if ig < 0 {
		ig = 0
	}
	if numRelevant > numIrrelevant {
		return ig
	}
	return -ig
}

// Table maps a tag to its signed information gain.
type Table map[string]float64

// Classifier holds the table built from the latest judged groups.
type Classifier struct {
	mu    sync.RWMutex
	table Table
}

// New creates a classifier with an empty table.
func New() *Classifier {
	return &Classifier{table: Table{}}
}

// Tags returns the tags a feature vector carries (features with positive
// weight), in sorted order.
func Tags(v corpus.FeatureVector) []string {
	tags := make([]string, 0, len(v))
	for k, w := range v {
		if w > 0 {
			tags = append(tags, k)
		}
	}
	sort.Strings(tags)
	return tags
}

// Update rebuilds the table from the two groups.
func (c *Classifier) Update(relevant, irrelevant map[string]corpus.FeatureVector) {
	relCounts := countTags(relevant)
	irrCounts := countTags(irrelevant)

	table := make(Table, len(relCounts)+len(irrCounts))
	for tag := range relCounts {
		table[tag] = Gain(len(irrelevant), len(relevant), irrCounts[tag], relCounts[tag])
	}
	for tag := range irrCounts {
		if _, done := table[tag]; !done {
			table[tag] = Gain(len(irrelevant), len(relevant), irrCounts[tag], relCounts[tag])
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.table = table
}

// Classify sums the table scores of the document's tags. Unknown tags
// contribute 0. The result is a ranking signal, not a probability.
func (c *Classifier) Classify(v corpus.FeatureVector) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var sum float64
	for _, tag := range Tags(v) {
		sum += c.table[tag]
	}
	return sum
}

// Table returns a copy of the current table.
func (c *Classifier) Table() Table {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(Table, len(c.table))
	for k, v := range c.table {
		out[k] = v
	}
	return out
}

func countTags(group map[string]corpus.FeatureVector) map[string]int {
	counts := make(map[string]int)
	for _, v := range group {
		for tag, w := range v {
			if w > 0 {
				counts[tag]++
			}
		}
	}
	return counts
}

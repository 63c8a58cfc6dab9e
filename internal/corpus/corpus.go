package corpus

import (
	"fmt"
	"sort"

	"github.com/screenlab/screensim/internal/pkg/errors"
	"github.com/screenlab/screensim/internal/pkg/sanitize"
)

// Corpus is the immutable set of candidate documents for one session.
// Documents are kept in identifier order.
type Corpus struct {
	docs  []Document
	index map[string]int
}

// New validates docs, computes their features with f and returns the corpus.
// A nil featurizer keeps whatever Features the documents already carry.
func New(docs []Document, f Featurizer) (*Corpus, error) {
	if len(docs) == 0 {
		return nil, errors.ValidationError("corpus is empty")
	}

	sorted := make([]Document, len(docs))
	copy(sorted, docs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	index := make(map[string]int, len(sorted))
	for i, d := range sorted {
		if d.ID == "" {
			return nil, errors.ValidationError(fmt.Sprintf("document at position %d has no id", i))
		}
		if err := sanitize.ValidateID(d.ID); err != nil {
			return nil, errors.ValidationError(err.Error())
		}
		if _, dup := index[d.ID]; dup {
			return nil, errors.ValidationError(fmt.Sprintf("duplicate document id %s", d.ID))
		}
		index[d.ID] = i
	}

	if f != nil {
		vectors := f.Featurize(sorted)
		for i := range sorted {
			sorted[i].Features = vectors[i]
		}
	}

	return &Corpus{docs: sorted, index: index}, nil
}

// Len returns the number of documents.
func (c *Corpus) Len() int {
	return len(c.docs)
}

// IDs returns all identifiers in order.
func (c *Corpus) IDs() []string {
	ids := make([]string, len(c.docs))
	for i, d := range c.docs {
		ids[i] = d.ID
	}
	return ids
}

// Get returns the document with the given id.
func (c *Corpus) Get(id string) (Document, bool) {
	i, ok := c.index[id]
	if !ok {
		return Document{}, false
	}
	return c.docs[i], true
}

// Documents returns the documents in identifier order. Callers must not
// modify the returned slice.
func (c *Corpus) Documents() []Document {
	return c.docs
}

// FeatureMap returns id to features for every document.
func (c *Corpus) FeatureMap() map[string]FeatureVector {
	out := make(map[string]FeatureVector, len(c.docs))
	for _, d := range c.docs {
		out[d.ID] = d.Features
	}
	return out
}

// RelevantSet returns the ground-truth identifiers meeting tier.
func (c *Corpus) RelevantSet(tier int) map[string]struct{} {
	out := make(map[string]struct{})
	for _, d := range c.docs {
		if d.Grade.MeetsTier(tier) {
			out[d.ID] = struct{}{}
		}
	}
	return out
}

// CountTier returns how many documents meet tier in ground truth.
func (c *Corpus) CountTier(tier int) int {
	n := 0
	for _, d := range c.docs {
		if d.Grade.MeetsTier(tier) {
			n++
		}
	}
	return n
}

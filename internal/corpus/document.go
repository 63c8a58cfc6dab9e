// Package corpus holds the screening corpus data model: documents, their
// sparse feature vectors, ground-truth grades and the growing judgment set.
package corpus

import "fmt"

// Grade is a tiered relevance label.
type Grade int

const (
	// NotRelevant marks a document that should be excluded.
	NotRelevant Grade = 0

	// Relevant marks a tier-1 include (e.g. passes abstract screening).
	Relevant Grade = 1

	// HighlyRelevant marks a tier-2 include. Tier-2 documents are a subset
	// of tier-1 documents.
	HighlyRelevant Grade = 2
)

// Tiers reported by the loop.
const (
	Tier1 = 1
	Tier2 = 2
)

// MeetsTier reports whether the grade counts as relevant at the given tier.
func (g Grade) MeetsTier(tier int) bool {
	return int(g) >= tier
}

// IsRelevant reports whether the grade is any positive tier.
func (g Grade) IsRelevant() bool {
	return g >= Relevant
}

// String returns a short label for the grade.
func (g Grade) String() string {
	switch g {
	case NotRelevant:
		return "irrelevant"
	case Relevant:
		return "relevant"
	case HighlyRelevant:
		return "highly_relevant"
	default:
		return fmt.Sprintf("grade(%d)", int(g))
	}
}

// Document is a unit of the corpus. Grade is ground truth and must not be
// read by ranking code; only the simulated judge uses it.
type Document struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Abstract string        `json:"abstract"`
	Tags     []string      `json:"mesh,omitempty"`
	Grade    Grade         `json:"relevance"`
	Features FeatureVector `json:"-"`
}

// Text returns the text used for term features.
func (d Document) Text() string {
	if d.Abstract == "" {
		return d.Title
	}
	return d.Title + "\n" + d.Abstract
}

package corpus

import (
	"fmt"

	"github.com/screenlab/screensim/internal/pkg/errors"
)

// Judgment is an accepted relevance decision together with the features
// the ranking algorithms are allowed to learn from.
type Judgment struct {
	Features FeatureVector
	Grade    Grade
}

// JudgmentSet is the pair of disjoint relevant/irrelevant mappings that grows
// over a session. An ID lives in at most one of the two.
type JudgmentSet struct {
	relevant   map[string]Judgment
	irrelevant map[string]Judgment
}

// NewJudgmentSet creates an empty judgment set.
func NewJudgmentSet() *JudgmentSet {
	return &JudgmentSet{
		relevant:   make(map[string]Judgment),
		irrelevant: make(map[string]Judgment),
	}
}

// Accept records a judgment. Judging the same document twice is rejected.
func (s *JudgmentSet) Accept(id string, features FeatureVector, grade Grade) error {
	if id == "" {
		return errors.ValidationError("judgment requires a document id")
	}
	if s.Contains(id) {
		return errors.ValidationError(fmt.Sprintf("document %s already judged", id))
	}

	j := Judgment{Features: features, Grade: grade}
	if grade.IsRelevant() {
		s.relevant[id] = j
	} else {
		s.irrelevant[id] = j
	}
	return nil
}

// Contains reports whether id has been judged either way.
func (s *JudgmentSet) Contains(id string) bool {
	if _, ok := s.relevant[id]; ok {
		return true
	}
	_, ok := s.irrelevant[id]
	return ok
}

// Len returns the number of judged documents.
func (s *JudgmentSet) Len() int {
	return len(s.relevant) + len(s.irrelevant)
}

// RelevantCount returns the number of documents judged relevant at any tier.
func (s *JudgmentSet) RelevantCount() int {
	return len(s.relevant)
}

// IrrelevantCount returns the number of documents judged irrelevant.
func (s *JudgmentSet) IrrelevantCount() int {
	return len(s.irrelevant)
}

// CountTier returns the number of judged documents meeting tier.
func (s *JudgmentSet) CountTier(tier int) int {
	n := 0
	for _, j := range s.relevant {
		if j.Grade.MeetsTier(tier) {
			n++
		}
	}
	return n
}

// IDs returns every judged identifier as a set.
func (s *JudgmentSet) IDs() map[string]struct{} {
	out := make(map[string]struct{}, s.Len())
	for id := range s.relevant {
		out[id] = struct{}{}
	}
	for id := range s.irrelevant {
		out[id] = struct{}{}
	}
	return out
}

// Snapshot returns a frozen copy for one ranking computation.
func (s *JudgmentSet) Snapshot() Snapshot {
	return Snapshot{
		Relevant:   copyJudgments(s.relevant),
		Irrelevant: copyJudgments(s.irrelevant),
	}
}

// Snapshot is an immutable view of the judgments at one point in time.
type Snapshot struct {
	Relevant   map[string]Judgment
	Irrelevant map[string]Judgment
}

// Empty reports whether either side has no examples, i.e. there is no
// signal to train on.
func (s Snapshot) Empty() bool {
	return len(s.Relevant) == 0 || len(s.Irrelevant) == 0
}

// HasTiers reports whether the relevant side carries more than one grade.
func (s Snapshot) HasTiers() bool {
	seen := Grade(-1)
	for _, j := range s.Relevant {
		if seen >= 0 && j.Grade != seen {
			return true
		}
		seen = j.Grade
	}
	return false
}

// RelevantFeatures returns the relevant side as plain feature vectors.
func (s Snapshot) RelevantFeatures() map[string]FeatureVector {
	out := make(map[string]FeatureVector, len(s.Relevant))
	for id, j := range s.Relevant {
		out[id] = j.Features
	}
	return out
}

func copyJudgments(in map[string]Judgment) map[string]Judgment {
	out := make(map[string]Judgment, len(in))
	for id, j := range in {
		out[id] = j
	}
	return out
}

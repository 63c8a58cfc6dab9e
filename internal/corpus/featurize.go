package corpus

import "math"

// Featurizer turns documents into sparse feature vectors. It sees the whole
// corpus at once so collection statistics (document frequency) are available.
type Featurizer interface {
	Name() string
	Featurize(docs []Document) []FeatureVector
}

// TagPrefix is prepended to subject-heading features.
const TagPrefix = "mesh:"

// TFIDF weights terms by log-scaled term frequency times smoothed inverse
// document frequency.
type TFIDF struct {
	// MinDocFreq drops terms seen in fewer documents than this.
	MinDocFreq int
}

// Name implements Featurizer.
func (TFIDF) Name() string { return "tfidf" }

// Featurize implements Featurizer.
func (t TFIDF) Featurize(docs []Document) []FeatureVector {
	termCounts := make([]map[string]int, len(docs))
	df := make(map[string]int)

	for i, d := range docs {
		counts := make(map[string]int)
		for _, tok := range Tokenize(d.Text()) {
			counts[tok]++
		}
		termCounts[i] = counts
		for term := range counts {
			df[term]++
		}
	}

	n := float64(len(docs))
	out := make([]FeatureVector, len(docs))
	for i, counts := range termCounts {
		vec := make(FeatureVector, len(counts))
		for term, c := range counts {
			if df[term] < t.MinDocFreq {
				continue
			}
			tf := 1 + math.Log(float64(c))
			idf := math.Log((n+1)/(float64(df[term])+1)) + 1
			vec[term] = tf * idf
		}
		out[i] = vec
	}
	return out
}

// Mesh represents a document by indicator features over its subject headings.
type Mesh struct{}

// Name implements Featurizer.
func (Mesh) Name() string { return "mesh" }

// Featurize implements Featurizer.
func (Mesh) Featurize(docs []Document) []FeatureVector {
	out := make([]FeatureVector, len(docs))
	for i, d := range docs {
		vec := make(FeatureVector, len(d.Tags))
		for _, tag := range d.Tags {
			if norm := NormalizeTag(tag); norm != "" {
				vec[TagPrefix+norm] = 1
			}
		}
		out[i] = vec
	}
	return out
}

package corpus

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/screenlab/screensim/internal/pkg/errors"
)

// SyntheticConfig describes a generated corpus with known ground truth.
type SyntheticConfig struct {
	Size      int
	Relevant  int // tier-1 includes, tier-2 included
	Tier2     int // subset of Relevant graded HighlyRelevant
	WordsEach int
	Seed      uint64
}

// DefaultSyntheticConfig returns a small corpus with a heavy class imbalance.
func DefaultSyntheticConfig() SyntheticConfig {
	return SyntheticConfig{
		Size:      100,
		Relevant:  10,
		Tier2:     4,
		WordsEach: 40,
		Seed:      1,
	}
}

var topicTerms = []string{
	"statin", "cholesterol", "ldl", "cardiovascular", "stroke", "randomised",
	"placebo", "myocardial", "infarction", "lipid", "atorvastatin", "simvastatin",
}

var strongTerms = []string{"mortality", "double-blind", "trial", "endpoint", "follow-up"}

var noiseTerms = []string{
	"asthma", "pediatric", "vaccine", "influenza", "diabetes", "insulin", "retinopathy",
	"oncology", "tumour", "chemotherapy", "dementia", "cognitive", "fracture", "osteoporosis",
	"depression", "anxiety", "survey", "cohort", "prevalence", "hospital", "nursing",
	"genome", "sequencing", "mouse", "protein", "receptor", "inflammation", "antibiotic",
}

var topicTags = []string{
	"Hydroxymethylglutaryl-CoA Reductase Inhibitors", "Cardiovascular Diseases", "Stroke", "Cholesterol, LDL",
}

var strongTags = []string{"Randomized Controlled Trial", "Mortality"}

var noiseTags = []string{
	"Asthma", "Child", "Vaccination", "Diabetes Mellitus", "Neoplasms", "Dementia",
	"Fractures, Bone", "Depression", "Surveys and Questionnaires", "Mice", "Humans", "Adult",
}

// Synthetic generates a reproducible corpus. Relevant documents draw most of
// their words and headings from the topic vocabulary; the rest are noise.
func Synthetic(cfg SyntheticConfig) ([]Document, error) {
	if cfg.Size <= 0 || cfg.Relevant < 0 || cfg.Relevant > cfg.Size || cfg.Tier2 < 0 || cfg.Tier2 > cfg.Relevant {
		return nil, errors.ValidationError("synthetic corpus needs 0 <= tier2 <= relevant <= size and size > 0")
	}
	if cfg.WordsEach <= 0 {
		cfg.WordsEach = DefaultSyntheticConfig().WordsEach
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	// Scatter relevant documents across the id space so identifier order
	// carries no signal.
	grades := make([]Grade, cfg.Size)
	for i := 0; i < cfg.Relevant; i++ {
		grades[i] = Relevant
		if i < cfg.Tier2 {
			grades[i] = HighlyRelevant
		}
	}
	rng.Shuffle(len(grades), func(i, j int) { grades[i], grades[j] = grades[j], grades[i] })

	width := len(fmt.Sprint(cfg.Size))
	docs := make([]Document, cfg.Size)
	for i, g := range grades {
		docs[i] = Document{
			ID:       fmt.Sprintf("doc-%0*d", width, i),
			Title:    strings.Join(words(rng, g, 6), " "),
			Abstract: strings.Join(words(rng, g, cfg.WordsEach), " "),
			Tags:     tags(rng, g),
			Grade:    g,
		}
	}
	return docs, nil
}

func words(rng *rand.Rand, g Grade, n int) []string {
	out := make([]string, n)
	for i := range out {
		p := rng.Float64()
		switch {
		case g == HighlyRelevant && p < 0.2:
			out[i] = strongTerms[rng.IntN(len(strongTerms))]
		case g.IsRelevant() && p < 0.6:
			out[i] = topicTerms[rng.IntN(len(topicTerms))]
		case !g.IsRelevant() && p < 0.08:
			// Irrelevant documents occasionally mention the topic.
			out[i] = topicTerms[rng.IntN(len(topicTerms))]
		default:
			out[i] = noiseTerms[rng.IntN(len(noiseTerms))]
		}
	}
	return out
}

func tags(rng *rand.Rand, g Grade) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(t string) {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}

	if g.IsRelevant() {
		for _, t := range topicTags {
			if rng.Float64() < 0.7 {
				add(t)
			}
		}
	} else if rng.Float64() < 0.1 {
		add(topicTags[rng.IntN(len(topicTags))])
	}
	if g == HighlyRelevant {
		for _, t := range strongTags {
			if rng.Float64() < 0.8 {
				add(t)
			}
		}
	}
	for i := 0; i < 3; i++ {
		add(noiseTags[rng.IntN(len(noiseTags))])
	}
	return out
}

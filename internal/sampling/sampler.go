// Package sampling draws rank-biased batches of documents to propose to the
// judge.
package sampling

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/screenlab/screensim/internal/pkg/errors"
	"github.com/screenlab/screensim/internal/rank"
)

// Bias selects how strongly sampling favours the top of a ranking.
type Bias int

const (
	// Harmonic weights the r-th eligible document by 1/r.
	Harmonic Bias = iota

	// Quadratic weights the r-th eligible document by 1/r². Kept for
	// comparison studies.
	Quadratic
)

// String returns the configuration name of the bias.
func (b Bias) String() string {
	switch b {
	case Harmonic:
		return "harmonic"
	case Quadratic:
		return "quadratic"
	default:
		return fmt.Sprintf("bias(%d)", int(b))
	}
}

// ParseBias resolves a configuration name.
func ParseBias(name string) (Bias, error) {
	switch name {
	case "", "harmonic":
		return Harmonic, nil
	case "quadratic":
		return Quadratic, nil
	default:
		return 0, errors.ValidationError(fmt.Sprintf("unknown sampling bias: %s (must be harmonic or quadratic)", name))
	}
}

func (b Bias) weight(r int) float64 {
	if b == Quadratic {
		return 1 / float64(r*r)
	}
	return 1 / float64(r)
}

// Sampler draws documents without replacement from the eligible part of a
// ranking. It is not safe for concurrent use; the loop owns one.
type Sampler struct {
	rng  *rand.Rand
	bias Bias
}

// New creates a sampler over the given random source.
func New(src rand.Source, bias Bias) *Sampler {
	return &Sampler{
		rng:  rand.New(src),
		bias: bias,
	}
}

// NewSeeded creates a sampler with a PCG source derived from seed.
func NewSeeded(seed uint64, bias Bias) *Sampler {
	return New(rand.NewPCG(seed, seed^0xda942042e4dd58b5), bias)
}

// Bias returns the configured bias.
func (s *Sampler) Bias() Bias {
	return s.bias
}

// Sample draws up to k unique identifiers from r, skipping anything in
// excluded. Ranks are counted over eligible entries only, 1-based. When
// fewer than k entries are eligible, all of them are returned. r is never
// modified.
func (s *Sampler) Sample(r rank.Ranking, excluded map[string]struct{}, k int) []string {
	if k <= 0 {
		return nil
	}

	type candidate struct {
		id     string
		weight float64
	}

	seen := make(map[string]struct{}, len(r))
	eligible := make([]candidate, 0, len(r))
	for _, e := range r {
		if _, skip := excluded[e.ID]; skip {
			continue
		}
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		eligible = append(eligible, candidate{id: e.ID, weight: s.bias.weight(len(eligible) + 1)})
	}

	if k >= len(eligible) {
		k = len(eligible)
	}
	out := make([]string, 0, k)
	if k == 0 {
		return out
	}

	chosen := make([]bool, len(eligible))
	cum := cumulative(len(eligible), func(i int) float64 { return eligible[i].weight })
	index := make([]int, len(eligible)) // position in cum -> position in eligible
	for i := range index {
		index[i] = i
	}
	misses := 0

	for len(out) < k {
		total := cum[len(cum)-1]
		u := s.rng.Float64() * total
		pos := sort.Search(len(cum), func(i int) bool { return cum[i] > u })
		if pos == len(cum) {
			pos = len(cum) - 1
		}

		idx := index[pos]
		if chosen[idx] {
			misses++
			// Too many rejections: rebuild the table over what is left,
			// keeping each entry's original weight.
			if misses > len(cum) {
				index = index[:0]
				for i := range eligible {
					if !chosen[i] {
						index = append(index, i)
					}
				}
				cum = cumulative(len(index), func(i int) float64 { return eligible[index[i]].weight })
				misses = 0
			}
			continue
		}

		chosen[idx] = true
		out = append(out, eligible[idx].id)
	}

	return out
}

func cumulative(n int, weight func(int) float64) []float64 {
	cum := make([]float64, n)
	var total float64
	for i := 0; i < n; i++ {
		total += weight(i)
		cum[i] = total
	}
	return cum
}

// Probability returns the harmonic selection probability 1/(rank·Z) of the
// document at a 1-based position, where z is the harmonic number of the ranking
// length.
func Probability(position int, z float64) float64 {
	if position <= 0 || z <= 0 {
		return 0
	}
	return 1 / (float64(position) * z)
}

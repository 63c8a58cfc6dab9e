package sampling

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/screenlab/screensim/internal/pkg/errors"
	"github.com/screenlab/screensim/internal/rank"
)

func makeRanking(n int) rank.Ranking {
	r := make(rank.Ranking, n)
	for i := range r {
		r[i] = rank.Entry{ID: fmt.Sprintf("d%03d", i+1), Score: float64(n - i)}
	}
	return r
}

func TestSample_WithoutReplacement(t *testing.T) {
	r := makeRanking(20)
	s := NewSeeded(7, Harmonic)

	got := s.Sample(r, map[string]struct{}{}, len(r)+10)
	if len(got) != len(r) {
		t.Fatalf("Sample() returned %d ids, want %d", len(got), len(r))
	}

	seen := make(map[string]bool)
	for _, id := range got {
		if seen[id] {
			t.Fatalf("Sample() repeated %s", id)
		}
		seen[id] = true
	}
}

func TestSample_RespectsExclusions(t *testing.T) {
	r := makeRanking(10)
	excluded := map[string]struct{}{"d001": {}, "d002": {}, "d005": {}}
	s := NewSeeded(3, Harmonic)

	for trial := 0; trial < 50; trial++ {
		for _, id := range s.Sample(r, excluded, 4) {
			if _, bad := excluded[id]; bad {
				t.Fatalf("Sample() returned excluded id %s", id)
			}
		}
	}

	all := s.Sample(r, excluded, 100)
	if len(all) != 7 {
		t.Errorf("Sample() with k > eligible returned %d, want 7", len(all))
	}
}

func TestSample_EmptyAndZero(t *testing.T) {
	s := NewSeeded(1, Harmonic)

	if got := s.Sample(makeRanking(5), nil, 0); len(got) != 0 {
		t.Errorf("Sample(k=0) = %v, want empty", got)
	}
	if got := s.Sample(nil, nil, 5); len(got) != 0 {
		t.Errorf("Sample(empty ranking) = %v, want empty", got)
	}

	r := makeRanking(3)
	excludeAll := map[string]struct{}{"d001": {}, "d002": {}, "d003": {}}
	if got := s.Sample(r, excludeAll, 2); len(got) != 0 {
		t.Errorf("Sample(all excluded) = %v, want empty", got)
	}
}

func TestSample_DoesNotMutateRanking(t *testing.T) {
	r := makeRanking(8)
	before := fmt.Sprint(r)

	NewSeeded(9, Quadratic).Sample(r, map[string]struct{}{"d004": {}}, 5)

	if fmt.Sprint(r) != before {
		t.Error("Sample() modified the ranking")
	}
}

func TestSample_HarmonicBias(t *testing.T) {
	r := makeRanking(50)
	s := NewSeeded(42, Harmonic)

	counts := make(map[string]int)
	const draws = 10000
	for i := 0; i < draws; i++ {
		got := s.Sample(r, nil, 1)
		if len(got) != 1 {
			t.Fatalf("Sample(k=1) returned %d ids", len(got))
		}
		counts[got[0]]++
	}

	c1, c2, c3 := counts["d001"], counts["d002"], counts["d003"]
	if !(c1 > c2 && c2 > c3) {
		t.Errorf("frequencies not decreasing: rank1=%d rank2=%d rank3=%d", c1, c2, c3)
	}

	// Rank 1 has probability 1/H(50) ≈ 0.222.
	want := draws / rank.HarmonicNumber(50)
	if math.Abs(float64(c1)-want) > 0.1*want {
		t.Errorf("rank-1 count = %d, want about %.0f", c1, want)
	}
}

func TestSample_QuadraticIsSteeper(t *testing.T) {
	r := makeRanking(30)
	h := NewSeeded(11, Harmonic)
	q := NewSeeded(11, Quadratic)

	var topH, topQ int
	for i := 0; i < 5000; i++ {
		if h.Sample(r, nil, 1)[0] == "d001" {
			topH++
		}
		if q.Sample(r, nil, 1)[0] == "d001" {
			topQ++
		}
	}
	if topQ <= topH {
		t.Errorf("quadratic rank-1 count %d should exceed harmonic %d", topQ, topH)
	}
}

func TestSample_EligibleRanksRestart(t *testing.T) {
	// With the first 49 entries excluded, the last entry is eligible rank 1
	// and is always chosen.
	r := makeRanking(50)
	excluded := make(map[string]struct{})
	for _, e := range r[:49] {
		excluded[e.ID] = struct{}{}
	}

	got := NewSeeded(5, Harmonic).Sample(r, excluded, 1)
	if len(got) != 1 || got[0] != "d050" {
		t.Errorf("Sample() = %v, want [d050]", got)
	}
}

func TestSample_Reproducible(t *testing.T) {
	r := makeRanking(40)
	a := New(rand.NewPCG(1, 2), Harmonic).Sample(r, nil, 10)
	b := New(rand.NewPCG(1, 2), Harmonic).Sample(r, nil, 10)

	if fmt.Sprint(a) != fmt.Sprint(b) {
		t.Errorf("same seed gave %v and %v", a, b)
	}
}

func TestParseBias(t *testing.T) {
	tests := []struct {
		input   string
		want    Bias
		wantErr bool
	}{
		{"", Harmonic, false},
		{"harmonic", Harmonic, false},
		{"quadratic", Quadratic, false},
		{"cubic", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseBias(tt.input)
			if tt.wantErr {
				if errors.CodeOf(err) != errors.CodeValidation {
					t.Errorf("ParseBias(%q) error = %v, want validation error", tt.input, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseBias(%q) = %v, %v; want %v", tt.input, got, err, tt.want)
			}
		})
	}
}

func TestProbability(t *testing.T) {
	z := rank.HarmonicNumber(4)

	var sum float64
	for r := 1; r <= 4; r++ {
		sum += Probability(r, z)
	}
	if math.Abs(sum-1) > 1e-12 {
		t.Errorf("probabilities sum to %v, want 1", sum)
	}
	if Probability(0, z) != 0 || Probability(1, 0) != 0 {
		t.Error("Probability() should be 0 for invalid input")
	}
}

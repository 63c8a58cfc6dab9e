package evaluation

import (
	"encoding/json"
	"math"
)

// encoding/json rejects NaN, so undefined metrics travel as null.

type recordJSON struct {
	Iteration   int                `json:"iteration"`
	Proposed    int                `json:"documents_proposed"`
	Accepted    int                `json:"documents_accepted"`
	CostTier1   *float64           `json:"cost_tier1"`
	RecallTier1 *float64           `json:"recall_tier1"`
	CostTier2   *float64           `json:"cost_tier2"`
	RecallTier2 *float64           `json:"recall_tier2"`
	Quality     rankingQualityJSON `json:"ranking_quality"`
}

type rankingQualityJSON struct {
	AUC              *float64 `json:"auc"`
	AveragePrecision *float64 `json:"average_precision"`
	NDCG             *float64 `json:"ndcg_at_k"`
}

// MarshalJSON encodes NaN metrics as null.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{
		Iteration:   r.Iteration,
		Proposed:    r.Proposed,
		Accepted:    r.Accepted,
		CostTier1:   nullable(r.CostTier1),
		RecallTier1: nullable(r.RecallTier1),
		CostTier2:   nullable(r.CostTier2),
		RecallTier2: nullable(r.RecallTier2),
		Quality:     r.Quality.wire(),
	})
}

// UnmarshalJSON decodes null metrics back to NaN.
func (r *Record) UnmarshalJSON(data []byte) error {
	var w recordJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = Record{
		Iteration:   w.Iteration,
		Proposed:    w.Proposed,
		Accepted:    w.Accepted,
		CostTier1:   orNaN(w.CostTier1),
		RecallTier1: orNaN(w.RecallTier1),
		CostTier2:   orNaN(w.CostTier2),
		RecallTier2: orNaN(w.RecallTier2),
		Quality: RankingQuality{
			AUC:              orNaN(w.Quality.AUC),
			AveragePrecision: orNaN(w.Quality.AveragePrecision),
			NDCG:             orNaN(w.Quality.NDCG),
		},
	}
	return nil
}

// MarshalJSON encodes NaN metrics as null.
func (q RankingQuality) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.wire())
}

func (q RankingQuality) wire() rankingQualityJSON {
	return rankingQualityJSON{
		AUC:              nullable(q.AUC),
		AveragePrecision: nullable(q.AveragePrecision),
		NDCG:             nullable(q.NDCG),
	}
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func orNaN(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

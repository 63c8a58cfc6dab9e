package evaluation

import (
	"math"
	"strconv"
)

// PRF holds precision, recall and F-measure. Any field may be NaN when its
// denominator is zero, meaning "not yet measurable".
type PRF struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	FMeasure  float64 `json:"f_measure"`
}

// Record is the per-iteration snapshot appended to the session log.
type Record struct {
	Iteration   int     `json:"iteration"`
	Proposed    int     `json:"documents_proposed"`
	Accepted    int     `json:"documents_accepted"`
	CostTier1   float64 `json:"cost_tier1"`
	RecallTier1 float64 `json:"recall_tier1"`
	CostTier2   float64 `json:"cost_tier2"`
	RecallTier2 float64 `json:"recall_tier2"`

	// Quality of the ranking the batch was drawn from. Not part of the
	// tabular report.
	Quality RankingQuality `json:"ranking_quality"`
}

// RecordHeader is the fixed column order of the tabular report. Downstream
// analysis depends on it.
var RecordHeader = []string{
	"iteration",
	"documents_proposed",
	"documents_accepted",
	"cost_tier1",
	"recall_tier1",
	"cost_tier2",
	"recall_tier2",
}

// Row renders the record in RecordHeader order.
func (r Record) Row() []string {
	return []string{
		strconv.Itoa(r.Iteration),
		strconv.Itoa(r.Proposed),
		strconv.Itoa(r.Accepted),
		FormatFloat(r.CostTier1),
		FormatFloat(r.RecallTier1),
		FormatFloat(r.CostTier2),
		FormatFloat(r.RecallTier2),
	}
}

// RankingQuality summarises one ranking against ground truth.
type RankingQuality struct {
	AUC              float64 `json:"auc"`
	AveragePrecision float64 `json:"average_precision"`
	NDCG             float64 `json:"ndcg_at_k"`
}

// FormatFloat renders a metric, writing NaN for undefined values.
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}

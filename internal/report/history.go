package report

import (
	"sort"
	"strconv"
	"sync"

	"github.com/screenlab/screensim/internal/evaluation"
)

// History is a per-document table of one value per iteration.
type History struct {
	mu         sync.RWMutex
	values     map[string]map[int]float64
	iterations map[int]struct{}
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{
		values:     make(map[string]map[int]float64),
		iterations: make(map[int]struct{}),
	}
}

// Set records the value of docID at iteration.
func (h *History) Set(docID string, iteration int, v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	row, ok := h.values[docID]
	if !ok {
		row = make(map[int]float64)
		h.values[docID] = row
	}
	row[iteration] = v
	h.iterations[iteration] = struct{}{}
}

// Value returns the value of docID at iteration.
func (h *History) Value(docID string, iteration int) (float64, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	v, ok := h.values[docID][iteration]
	return v, ok
}

// IDs returns the document identifiers in ascending order.
func (h *History) IDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.values))
	for id := range h.values {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Iterations returns the recorded iterations in ascending order.
func (h *History) Iterations() []int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	its := make([]int, 0, len(h.iterations))
	for it := range h.iterations {
		its = append(its, it)
	}
	sort.Ints(its)
	return its
}

// Len returns the number of documents in the table.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.values)
}

// Header returns the table header: document_id then one column per iteration.
func (h *History) Header() []string {
	its := h.Iterations()
	header := make([]string, 0, len(its)+1)
	header = append(header, "document_id")
	for _, it := range its {
		header = append(header, "iteration_"+strconv.Itoa(it))
	}
	return header
}

// Rows returns one row per document aligned with Header. Iterations without
// a value are left empty.
func (h *History) Rows() [][]string {
	its := h.Iterations()
	ids := h.IDs()

	h.mu.RLock()
	defer h.mu.RUnlock()

	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		row := make([]string, 0, len(its)+1)
		row = append(row, id)
		for _, it := range its {
			v, ok := h.values[id][it]
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, formatValue(v))
		}
		rows = append(rows, row)
	}
	return rows
}

// Series returns the values of docID keyed by iteration.
func (h *History) Series(docID string) map[string]float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	row := h.values[docID]
	out := make(map[string]float64, len(row))
	for it, v := range row {
		out[strconv.Itoa(it)] = v
	}
	return out
}

func formatValue(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return evaluation.FormatFloat(v)
}

// Histories are the two end-of-session tables.
type Histories struct {
	Rank        *History
	Probability *History
}

// NewHistories creates empty rank and probability tables.
func NewHistories() Histories {
	return Histories{Rank: NewHistory(), Probability: NewHistory()}
}

// Tables returns the tables by name, in a fixed order.
func (h Histories) Tables() []NamedHistory {
	return []NamedHistory{
		{Name: "ranks", History: h.Rank},
		{Name: "probabilities", History: h.Probability},
	}
}

// NamedHistory pairs a table with its output name.
type NamedHistory struct {
	Name    string
	History *History
}

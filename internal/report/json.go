package report

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/screenlab/screensim/internal/evaluation"
	"github.com/screenlab/screensim/internal/pkg/errors"
)

// File names written by the JSON sink.
const (
	RecordsJSONL  = "report.jsonl"
	HistoriesJSON = "histories.json"
)

// JSONSink writes one JSON record per line and the history tables as a
// single JSON document. Undefined metrics are null.
type JSONSink struct {
	dir string

	mu      sync.Mutex
	file    *os.File
	encoder *json.Encoder
}

// NewJSONSink creates dir and opens report.jsonl.
func NewJSONSink(dir string) (*JSONSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.ReportError("creating report directory", err)
	}

	file, err := os.Create(filepath.Join(dir, RecordsJSONL))
	if err != nil {
		return nil, errors.ReportError("creating record file", err)
	}

	return &JSONSink{dir: dir, file: file, encoder: json.NewEncoder(file)}, nil
}

// Name returns "json".
func (s *JSONSink) Name() string { return "json" }

// WriteRecord appends one line.
func (s *JSONSink) WriteRecord(_ context.Context, r evaluation.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.encoder == nil {
		return errors.New(errors.CodeReport, "json sink closed")
	}
	if err := s.encoder.Encode(r); err != nil {
		return errors.ReportError("encoding record", err)
	}
	return nil
}

// historiesDocument is the shape of histories.json.
type historiesDocument struct {
	Iterations    []int                         `json:"iterations"`
	Ranks         map[string]map[string]float64 `json:"ranks"`
	Probabilities map[string]map[string]float64 `json:"probabilities"`
}

// WriteHistories writes histories.json.
func (s *JSONSink) WriteHistories(_ context.Context, h Histories) error {
	data, err := json.MarshalIndent(historiesDocument{
		Iterations:    h.Rank.Iterations(),
		Ranks:         seriesByDocument(h.Rank),
		Probabilities: seriesByDocument(h.Probability),
	}, "", "  ")
	if err != nil {
		return errors.ReportError("encoding histories", err)
	}

	if err := os.WriteFile(filepath.Join(s.dir, HistoriesJSON), data, 0644); err != nil {
		return errors.ReportError("writing histories", err)
	}
	return nil
}

func seriesByDocument(h *History) map[string]map[string]float64 {
	out := make(map[string]map[string]float64, h.Len())
	for _, id := range h.IDs() {
		out[id] = h.Series(id)
	}
	return out
}

// Close closes report.jsonl.
func (s *JSONSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.encoder = nil
	if err != nil {
		return errors.ReportError("closing record file", err)
	}
	return nil
}

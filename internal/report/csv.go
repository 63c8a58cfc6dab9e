package report

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"sync"

	"github.com/screenlab/screensim/internal/evaluation"
	"github.com/screenlab/screensim/internal/pkg/errors"
)

// File names written by the file sinks.
const (
	RecordsCSV       = "report.csv"
	RanksCSV         = "ranks.csv"
	ProbabilitiesCSV = "probabilities.csv"
)

// CSVSink writes report.csv as records arrive and the two history tables
// at session end.
type CSVSink struct {
	dir string

	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVSink creates dir and opens report.csv with its header row.
func NewCSVSink(dir string) (*CSVSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.ReportError("creating report directory", err)
	}

	file, err := os.Create(filepath.Join(dir, RecordsCSV))
	if err != nil {
		return nil, errors.ReportError("creating record file", err)
	}

	w := csv.NewWriter(file)
	if err := w.Write(evaluation.RecordHeader); err != nil {
		file.Close()
		return nil, errors.ReportError("writing record header", err)
	}
	w.Flush()

	return &CSVSink{dir: dir, file: file, writer: w}, nil
}

// Name returns "csv".
func (s *CSVSink) Name() string { return "csv" }

// WriteRecord appends and flushes one row.
func (s *CSVSink) WriteRecord(_ context.Context, r evaluation.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writer == nil {
		return errors.New(errors.CodeReport, "csv sink closed")
	}
	if err := s.writer.Write(r.Row()); err != nil {
		return errors.ReportError("writing record row", err)
	}
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return errors.ReportError("flushing record row", err)
	}
	return nil
}

// WriteHistories writes ranks.csv and probabilities.csv.
func (s *CSVSink) WriteHistories(_ context.Context, h Histories) error {
	if err := writeHistoryCSV(filepath.Join(s.dir, RanksCSV), h.Rank); err != nil {
		return err
	}
	return writeHistoryCSV(filepath.Join(s.dir, ProbabilitiesCSV), h.Probability)
}

func writeHistoryCSV(path string, h *History) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.ReportError("creating history file", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(h.Header()); err != nil {
		return errors.ReportError("writing history header", err)
	}
	if err := w.WriteAll(h.Rows()); err != nil {
		return errors.ReportError("writing history rows", err)
	}
	return nil
}

// Close flushes and closes report.csv.
func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	s.writer.Flush()
	flushErr := s.writer.Error()
	closeErr := s.file.Close()
	s.file = nil
	s.writer = nil

	if flushErr != nil {
		return errors.ReportError("flushing record file", flushErr)
	}
	if closeErr != nil {
		return errors.ReportError("closing record file", closeErr)
	}
	return nil
}

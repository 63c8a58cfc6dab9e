package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/screenlab/screensim/internal/config"
	"github.com/screenlab/screensim/internal/corpus"
	"github.com/screenlab/screensim/internal/pkg/logger"
)

func TestApplyFlags(t *testing.T) {
	cmd := simulateCmd()
	if err := cmd.ParseFlags([]string{"--model", "similarity", "--batch-size", "8", "--formats", "csv,json"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}

	cfg := config.Default()
	if err := applyFlags(cmd, cfg); err != nil {
		t.Fatalf("applyFlags() error = %v", err)
	}
	if cfg.Strategy.Model != "similarity" || cfg.Loop.BatchSize != 8 {
		t.Errorf("model = %s, batch = %d", cfg.Strategy.Model, cfg.Loop.BatchSize)
	}
	if len(cfg.Report.Formats) != 2 {
		t.Errorf("formats = %v, want csv and json", cfg.Report.Formats)
	}
	if cfg.Strategy.Representation != "tfidf" {
		t.Errorf("unset flag changed representation to %s", cfg.Strategy.Representation)
	}

	bad := simulateCmd()
	if err := bad.ParseFlags([]string{"--bias", "linear"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	if err := applyFlags(bad, config.Default()); err == nil {
		t.Error("applyFlags() with invalid bias should fail validation")
	}
}

func TestLoadDocuments(t *testing.T) {
	t.Run("synthetic", func(t *testing.T) {
		cfg := config.Default()
		docs, err := loadDocuments(context.Background(), cfg, nil, logger.Discard())
		if err != nil {
			t.Fatalf("loadDocuments() error = %v", err)
		}
		if len(docs) != cfg.Corpus.Size {
			t.Errorf("loaded %d documents, want %d", len(docs), cfg.Corpus.Size)
		}
	})

	t.Run("jsonl", func(t *testing.T) {
		src, err := corpus.Synthetic(corpus.SyntheticConfig{Size: 12, Relevant: 3, WordsEach: 8, Seed: 2})
		if err != nil {
			t.Fatalf("Synthetic() error = %v", err)
		}
		path := filepath.Join(t.TempDir(), "corpus.jsonl")
		var buf bytes.Buffer
		if err := corpus.WriteJSONL(&buf, src); err != nil {
			t.Fatalf("WriteJSONL() error = %v", err)
		}
		if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
			t.Fatal(err)
		}

		cfg := config.Default()
		cfg.Corpus.Source = "jsonl"
		cfg.Corpus.Path = path
		docs, err := loadDocuments(context.Background(), cfg, nil, logger.Discard())
		if err != nil {
			t.Fatalf("loadDocuments() error = %v", err)
		}
		if len(docs) != 12 {
			t.Errorf("loaded %d documents, want 12", len(docs))
		}
	})
}

func TestSimulateCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "screensim.yaml")
	yaml := `corpus:
  size: 40
  relevant: 5
  tier2: 2
strategy:
  representation: mesh
  model: similarity
loop:
  batch_size: 4
  max_iterations: 3
report:
  dir: ` + filepath.Join(dir, "report") + `
  formats: [csv, json]
bus:
  event_log: ` + filepath.Join(dir, "events.jsonl") + `
metrics:
  enabled: true
  textfile: ` + filepath.Join(dir, "screensim.prom") + `
log:
  level: error
`
	if err := os.WriteFile(cfgPath, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	root := withRootFlags(simulateCmd())
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"-c", cfgPath, "--format", "json"})

	if err := root.Execute(); err != nil {
		t.Fatalf("simulate error = %v", err)
	}

	var s summary
	if err := json.Unmarshal(out.Bytes(), &s); err != nil {
		t.Fatalf("summary is not JSON: %v\n%s", err, out.String())
	}
	if s.State != "converged" || s.Iterations != 3 {
		t.Errorf("summary = %+v, want converged after 3 iterations", s)
	}

	for _, name := range []string{"report/report.csv", "report/ranks.csv", "report/probabilities.csv", "report/report.jsonl", "report/histories.json", "events.jsonl", "screensim.prom"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, "report/report.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Errorf("report.csv has %d lines, want header + 3", len(lines))
	}
}

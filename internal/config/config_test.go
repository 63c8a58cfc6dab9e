package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("SCREENSIM_BATCH_SIZE", "9")
	t.Setenv("SCREENSIM_LOG_LEVEL", "debug")
	t.Setenv("SCREENSIM_REPORT_FORMATS", "csv,json")
	t.Setenv("SCREENSIM_RETRIEVAL_TIMEOUT", "5s")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Loop.BatchSize != 9 {
		t.Errorf("Loop.BatchSize = %d, want 9", cfg.Loop.BatchSize)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %s, want debug", cfg.Log.Level)
	}

	if len(cfg.Report.Formats) != 2 || cfg.Report.Formats[1] != "json" {
		t.Errorf("Report.Formats = %v, want [csv json]", cfg.Report.Formats)
	}

	if cfg.Retrieval.Timeout != 5*time.Second {
		t.Errorf("Retrieval.Timeout = %v, want 5s", cfg.Retrieval.Timeout)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
corpus:
  source: jsonl
  path: ./docs.jsonl
strategy:
  representation: mesh
  model: infogain
loop:
  batch_size: 10
  target_recall: 0.95
  bias: quadratic
retrieval:
  timeout: 2m
log:
  level: warn
  format: json
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Corpus.Source != "jsonl" || cfg.Corpus.Path != "./docs.jsonl" {
		t.Errorf("Corpus = %+v, want jsonl ./docs.jsonl", cfg.Corpus)
	}

	if cfg.Strategy.Representation != "mesh" || cfg.Strategy.Model != "infogain" {
		t.Errorf("Strategy = %+v, want mesh/infogain", cfg.Strategy)
	}

	if cfg.Loop.BatchSize != 10 {
		t.Errorf("Loop.BatchSize = %d, want 10", cfg.Loop.BatchSize)
	}

	if cfg.Loop.TargetRecall != 0.95 {
		t.Errorf("Loop.TargetRecall = %v, want 0.95", cfg.Loop.TargetRecall)
	}

	if cfg.Retrieval.Timeout != 2*time.Minute {
		t.Errorf("Retrieval.Timeout = %v, want 2m", cfg.Retrieval.Timeout)
	}

	// Untouched sections keep their defaults.
	if cfg.Ensemble.Size != 7 {
		t.Errorf("Ensemble.Size = %d, want default 7", cfg.Ensemble.Size)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() with missing file should fail")
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid defaults",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "invalid corpus source",
			modify: func(c *Config) {
				c.Corpus.Source = "soap"
			},
			wantErr: true,
		},
		{
			name: "jsonl without path",
			modify: func(c *Config) {
				c.Corpus.Source = "jsonl"
			},
			wantErr: true,
		},
		{
			name: "more relevant than documents",
			modify: func(c *Config) {
				c.Corpus.Relevant = 200
			},
			wantErr: true,
		},
		{
			name: "tier2 exceeds relevant",
			modify: func(c *Config) {
				c.Corpus.Tier2 = 11
			},
			wantErr: true,
		},
		{
			name: "invalid representation",
			modify: func(c *Config) {
				c.Strategy.Representation = "bm25"
			},
			wantErr: true,
		},
		{
			name: "invalid model",
			modify: func(c *Config) {
				c.Strategy.Model = "svm"
			},
			wantErr: true,
		},
		{
			name: "zero batch size",
			modify: func(c *Config) {
				c.Loop.BatchSize = 0
			},
			wantErr: true,
		},
		{
			name: "target recall out of range",
			modify: func(c *Config) {
				c.Loop.TargetRecall = 1.5
			},
			wantErr: true,
		},
		{
			name: "invalid bias",
			modify: func(c *Config) {
				c.Loop.Bias = "linear"
			},
			wantErr: true,
		},
		{
			name: "invalid report format",
			modify: func(c *Config) {
				c.Report.Formats = []string{"csv", "xml"}
			},
			wantErr: true,
		},
		{
			name: "kafka without brokers",
			modify: func(c *Config) {
				c.Bus.Type = "kafka"
			},
			wantErr: true,
		},
		{
			name: "invalid log level",
			modify: func(c *Config) {
				c.Log.Level = "invalid"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHasFormat(t *testing.T) {
	cfg := Default()
	cfg.Report.Formats = []string{"csv", "redis"}

	if !cfg.HasFormat("redis") {
		t.Error("HasFormat(redis) = false, want true")
	}
	if cfg.HasFormat("json") {
		t.Error("HasFormat(json) = true, want false")
	}
}

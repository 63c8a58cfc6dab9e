// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all simulator configuration.
type Config struct {
	// Corpus source configuration
	Corpus CorpusConfig `yaml:"corpus"`

	// Retrieval collaborator configuration
	Retrieval RetrievalConfig `yaml:"retrieval"`

	// Qdrant configuration
	Qdrant QdrantConfig `yaml:"qdrant"`

	// Ranking strategy configuration
	Strategy StrategyConfig `yaml:"strategy"`

	// Ensemble configuration
	Ensemble EnsembleConfig `yaml:"ensemble"`

	// Loop configuration
	Loop LoopConfig `yaml:"loop"`

	// Report configuration
	Report ReportConfig `yaml:"report"`

	// Bus configuration
	Bus BusConfig `yaml:"bus"`

	// Metrics configuration
	Metrics MetricsConfig `yaml:"metrics"`

	// Logging configuration
	Log LogConfig `yaml:"log"`
}

// CorpusConfig selects where documents come from.
type CorpusConfig struct {
	Source    string `envconfig:"SCREENSIM_CORPUS_SOURCE" yaml:"source"` // synthetic, jsonl, qdrant
	Path      string `envconfig:"SCREENSIM_CORPUS_PATH" yaml:"path"`
	Size      int    `envconfig:"SCREENSIM_CORPUS_SIZE" yaml:"size"`
	Relevant  int    `envconfig:"SCREENSIM_CORPUS_RELEVANT" yaml:"relevant"`
	Tier2     int    `envconfig:"SCREENSIM_CORPUS_TIER2" yaml:"tier2"`
	WordsEach int    `envconfig:"SCREENSIM_CORPUS_WORDS" yaml:"words_each"`
	Seed      uint64 `envconfig:"SCREENSIM_CORPUS_SEED" yaml:"seed"`
}

// RetrievalConfig holds settings for the external retrieval collaborator.
type RetrievalConfig struct {
	Queries   []string      `envconfig:"SCREENSIM_RETRIEVAL_QUERIES" yaml:"queries"`
	Limit     int           `envconfig:"SCREENSIM_RETRIEVAL_LIMIT" yaml:"limit"` // 0 = no limit
	Timeout   time.Duration `envconfig:"SCREENSIM_RETRIEVAL_TIMEOUT" yaml:"timeout"`
	RateLimit float64       `envconfig:"SCREENSIM_RETRIEVAL_RATE_LIMIT" yaml:"rate_limit"` // queries per second, 0 = unlimited
	Burst     int           `envconfig:"SCREENSIM_RETRIEVAL_BURST" yaml:"burst"`
	Workers   int           `envconfig:"SCREENSIM_RETRIEVAL_WORKERS" yaml:"workers"`

	// AllowPartial keeps going when some queries fail.
	AllowPartial bool `envconfig:"SCREENSIM_RETRIEVAL_ALLOW_PARTIAL" yaml:"allow_partial"`
}

// QdrantConfig holds Qdrant connection settings.
type QdrantConfig struct {
	Host       string `envconfig:"QDRANT_HOST" yaml:"host"`
	Port       int    `envconfig:"QDRANT_PORT" yaml:"port"`
	APIKey     string `envconfig:"QDRANT_API_KEY" yaml:"api_key"`
	UseTLS     bool   `envconfig:"QDRANT_USE_TLS" yaml:"use_tls"`
	Collection string `envconfig:"SCREENSIM_QDRANT_COLLECTION" yaml:"collection"`
	PageSize   int    `envconfig:"SCREENSIM_QDRANT_PAGE_SIZE" yaml:"page_size"`
}

// StrategyConfig selects the ranking strategy.
type StrategyConfig struct {
	Representation string `envconfig:"SCREENSIM_REPRESENTATION" yaml:"representation"` // tfidf, mesh
	Model          string `envconfig:"SCREENSIM_MODEL" yaml:"model"`                   // similarity, pairwise, centroid, infogain
	MinDocFreq     int    `envconfig:"SCREENSIM_MIN_DOC_FREQ" yaml:"min_doc_freq"`
	Workers        int    `envconfig:"SCREENSIM_SIMILARITY_WORKERS" yaml:"workers"`
	BatchSize      int    `envconfig:"SCREENSIM_SIMILARITY_BATCH_SIZE" yaml:"batch_size"`
}

// EnsembleConfig holds bagging settings.
type EnsembleConfig struct {
	Size         int     `envconfig:"SCREENSIM_ENSEMBLE_SIZE" yaml:"size"`
	Multiplier   int     `envconfig:"SCREENSIM_UNDERSAMPLING_MULTIPLIER" yaml:"undersampling_multiplier"`
	Workers      int     `envconfig:"SCREENSIM_ENSEMBLE_WORKERS" yaml:"workers"`
	Epochs       int     `envconfig:"SCREENSIM_PAIRWISE_EPOCHS" yaml:"epochs"`
	LearningRate float64 `envconfig:"SCREENSIM_PAIRWISE_LEARNING_RATE" yaml:"learning_rate"`
}

// LoopConfig holds active-learning loop settings.
type LoopConfig struct {
	BatchSize     int     `envconfig:"SCREENSIM_BATCH_SIZE" yaml:"batch_size"`
	MaxIterations int     `envconfig:"SCREENSIM_MAX_ITERATIONS" yaml:"max_iterations"` // 0 = until exhausted
	TargetRecall  float64 `envconfig:"SCREENSIM_TARGET_RECALL" yaml:"target_recall"`   // 0 = disabled
	SeedRelevant  int     `envconfig:"SCREENSIM_SEED_RELEVANT" yaml:"seed_relevant"`
	Seed          uint64  `envconfig:"SCREENSIM_SEED" yaml:"seed"`
	Bias          string  `envconfig:"SCREENSIM_BIAS" yaml:"bias"` // harmonic, quadratic
}

// ReportConfig holds report sink settings.
type ReportConfig struct {
	Dir         string        `envconfig:"SCREENSIM_REPORT_DIR" yaml:"dir"`
	Formats     []string      `envconfig:"SCREENSIM_REPORT_FORMATS" yaml:"formats"` // csv, json, redis, bus
	RedisURL    string        `envconfig:"SCREENSIM_REDIS_URL" yaml:"redis_url"`
	RedisPrefix string        `envconfig:"SCREENSIM_REDIS_PREFIX" yaml:"redis_prefix"`
	RedisTTL    time.Duration `envconfig:"SCREENSIM_REDIS_TTL" yaml:"redis_ttl"` // 0 = no expiry
}

// BusConfig holds event bus settings.
type BusConfig struct {
	Type         string `envconfig:"SCREENSIM_BUS_TYPE" yaml:"type"`
	KafkaBrokers string `envconfig:"SCREENSIM_KAFKA_BROKERS" yaml:"kafka_brokers"`
	KafkaGroup   string `envconfig:"SCREENSIM_KAFKA_GROUP" yaml:"kafka_group"`
	EventLog     string `envconfig:"SCREENSIM_EVENT_LOG" yaml:"event_log"` // empty = disabled
}

// MetricsConfig holds metrics export settings.
type MetricsConfig struct {
	Enabled  bool   `envconfig:"SCREENSIM_METRICS_ENABLED" yaml:"enabled"`
	Textfile string `envconfig:"SCREENSIM_METRICS_TEXTFILE" yaml:"textfile"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `envconfig:"SCREENSIM_LOG_LEVEL" yaml:"level"`
	Format string `envconfig:"SCREENSIM_LOG_FORMAT" yaml:"format"`
}

// Load loads configuration from environment variables and optional config file.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	// Set defaults first
	setDefaults(cfg)

	// Load from YAML file if provided (overrides defaults)
	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	// Override with environment variables (highest priority)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("processing env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the default configuration.
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func setDefaults(cfg *Config) {
	cfg.Corpus = CorpusConfig{
		Source:    "synthetic",
		Size:      100,
		Relevant:  10,
		Tier2:     4,
		WordsEach: 40,
		Seed:      1,
	}

	cfg.Retrieval = RetrievalConfig{
		Timeout:   30 * time.Second,
		RateLimit: 3,
		Burst:     1,
		Workers:   4,
	}

	cfg.Qdrant = QdrantConfig{
		Host:       "localhost",
		Port:       6334,
		Collection: "screensim_documents",
		PageSize:   256,
	}

	cfg.Strategy = StrategyConfig{
		Representation: "tfidf",
		Model:          "pairwise",
		MinDocFreq:     1,
		Workers:        4,
		BatchSize:      64,
	}

	cfg.Ensemble = EnsembleConfig{
		Size:         7,
		Multiplier:   2,
		Workers:      4,
		Epochs:       10,
		LearningRate: 0.1,
	}

	cfg.Loop = LoopConfig{
		BatchSize:     5,
		MaxIterations: 20,
		SeedRelevant:  1,
		Seed:          1,
		Bias:          "harmonic",
	}

	cfg.Report = ReportConfig{
		Dir:         "./report",
		Formats:     []string{"csv"},
		RedisURL:    "redis://localhost:6379",
		RedisPrefix: "screensim:",
	}

	cfg.Bus = BusConfig{
		Type: "memory",
	}

	cfg.Metrics = MetricsConfig{
		Enabled: true,
	}

	cfg.Log = LogConfig{
		Level:  "info",
		Format: "text",
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	// Corpus validation
	validSources := map[string]bool{"synthetic": true, "jsonl": true, "qdrant": true}
	if !validSources[c.Corpus.Source] {
		errs = append(errs, fmt.Sprintf("invalid corpus source: %s (must be synthetic, jsonl, or qdrant)", c.Corpus.Source))
	}

	if c.Corpus.Source == "jsonl" && c.Corpus.Path == "" {
		errs = append(errs, "corpus path is required for jsonl source")
	}

	if c.Corpus.Source == "synthetic" {
		if c.Corpus.Size < 1 {
			errs = append(errs, "corpus size must be positive")
		}
		if c.Corpus.Relevant < 0 || c.Corpus.Relevant > c.Corpus.Size {
			errs = append(errs, "corpus relevant must be between 0 and size")
		}
		if c.Corpus.Tier2 < 0 || c.Corpus.Tier2 > c.Corpus.Relevant {
			errs = append(errs, "corpus tier2 must be between 0 and relevant")
		}
	}

	// Retrieval validation
	if c.Retrieval.Timeout < 0 {
		errs = append(errs, "retrieval timeout must not be negative")
	}

	if c.Retrieval.RateLimit < 0 {
		errs = append(errs, "retrieval rate_limit must not be negative")
	}

	if c.Retrieval.Workers < 1 {
		errs = append(errs, "retrieval workers must be positive")
	}

	// Qdrant validation
	if c.Corpus.Source == "qdrant" && c.Qdrant.Collection == "" {
		errs = append(errs, "qdrant collection is required for qdrant source")
	}

	// Strategy validation
	validRepresentations := map[string]bool{"tfidf": true, "mesh": true}
	if !validRepresentations[c.Strategy.Representation] {
		errs = append(errs, fmt.Sprintf("invalid representation: %s (must be tfidf or mesh)", c.Strategy.Representation))
	}

	validModels := map[string]bool{"similarity": true, "pairwise": true, "centroid": true, "infogain": true}
	if !validModels[c.Strategy.Model] {
		errs = append(errs, fmt.Sprintf("invalid model: %s (must be similarity, pairwise, centroid, or infogain)", c.Strategy.Model))
	}

	// Ensemble validation
	if c.Ensemble.Size < 1 {
		errs = append(errs, "ensemble size must be positive")
	}

	if c.Ensemble.Multiplier < 1 {
		errs = append(errs, "undersampling_multiplier must be positive")
	}

	if c.Ensemble.LearningRate <= 0 {
		errs = append(errs, "learning_rate must be positive")
	}

	// Loop validation
	if c.Loop.BatchSize < 1 {
		errs = append(errs, "batch_size must be positive")
	}

	if c.Loop.MaxIterations < 0 {
		errs = append(errs, "max_iterations must not be negative")
	}

	if c.Loop.TargetRecall < 0 || c.Loop.TargetRecall > 1 {
		errs = append(errs, "target_recall must be between 0 and 1")
	}

	if c.Loop.SeedRelevant < 0 {
		errs = append(errs, "seed_relevant must not be negative")
	}

	validBiases := map[string]bool{"harmonic": true, "quadratic": true}
	if !validBiases[c.Loop.Bias] {
		errs = append(errs, fmt.Sprintf("invalid bias: %s (must be harmonic or quadratic)", c.Loop.Bias))
	}

	// Report validation
	validFormats := map[string]bool{"csv": true, "json": true, "redis": true, "bus": true}
	for _, f := range c.Report.Formats {
		if !validFormats[f] {
			errs = append(errs, fmt.Sprintf("invalid report format: %s (must be csv, json, redis, or bus)", f))
		}
	}

	// Bus validation
	validBusTypes := map[string]bool{"memory": true, "kafka": true}
	if !validBusTypes[c.Bus.Type] {
		errs = append(errs, fmt.Sprintf("invalid bus type: %s (must be memory or kafka)", c.Bus.Type))
	}

	if c.Bus.Type == "kafka" && c.Bus.KafkaBrokers == "" {
		errs = append(errs, "kafka_brokers is required for kafka bus")
	}

	// Log validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level))
	}

	validLogFormats := map[string]bool{"text": true, "json": true}
	if !validLogFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be text or json)", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// HasFormat reports whether the report format is enabled.
func (c *Config) HasFormat(format string) bool {
	for _, f := range c.Report.Formats {
		if f == format {
			return true
		}
	}
	return false
}

package main

import (
	"context"
	"fmt"

	"github.com/screenlab/screensim/internal/config"
	"github.com/screenlab/screensim/internal/corpus"
	"github.com/screenlab/screensim/internal/pkg/logger"
	"github.com/screenlab/screensim/internal/qdrant"
	"github.com/screenlab/screensim/internal/retrieval"
)

// loadDocuments gathers the corpus from the configured source. File and
// Qdrant sources go through the retrieval collector so queries, rate limits
// and timeouts apply the same way to both.
func loadDocuments(ctx context.Context, cfg *config.Config, m retrieval.MetricsRecorder, log *logger.Logger) ([]corpus.Document, error) {
	switch cfg.Corpus.Source {
	case "synthetic":
		return corpus.Synthetic(corpus.SyntheticConfig{
			Size:      cfg.Corpus.Size,
			Relevant:  cfg.Corpus.Relevant,
			Tier2:     cfg.Corpus.Tier2,
			WordsEach: cfg.Corpus.WordsEach,
			Seed:      cfg.Corpus.Seed,
		})

	case "jsonl":
		r, err := retrieval.NewFileRetriever(cfg.Corpus.Path)
		if err != nil {
			return nil, err
		}
		return collect(ctx, r, cfg, m, log)

	case "qdrant":
		client, err := qdrant.NewClient(qdrant.ClientConfigFrom(cfg.Qdrant))
		if err != nil {
			return nil, err
		}
		defer client.Close()

		v, err := client.HealthCheck(ctx)
		if err != nil {
			return nil, err
		}
		log.Debug("Connected to Qdrant", "version", v, "collection", cfg.Qdrant.Collection)

		return collect(ctx, retrieval.NewQdrantRetriever(client, cfg.Qdrant.Collection), cfg, m, log)

	default:
		return nil, fmt.Errorf("unknown corpus source: %s", cfg.Corpus.Source)
	}
}

func collect(ctx context.Context, r retrieval.Retriever, cfg *config.Config, m retrieval.MetricsRecorder, log *logger.Logger) ([]corpus.Document, error) {
	c := retrieval.NewCollector(r, retrieval.CollectorConfigFrom(cfg.Retrieval), log)
	if m != nil {
		c.SetMetrics(m)
	}
	return c.Collect(ctx, cfg.Retrieval.Queries)
}

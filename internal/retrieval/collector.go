package retrieval

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/screenlab/screensim/internal/config"
	"github.com/screenlab/screensim/internal/corpus"
	"github.com/screenlab/screensim/internal/pkg/errors"
	"github.com/screenlab/screensim/internal/pkg/logger"
	"github.com/screenlab/screensim/internal/pkg/sanitize"
)

// MetricsRecorder records query outcomes. Implemented by metrics.Metrics.
type MetricsRecorder interface {
	RecordRetrieval(source string, docs int, err error)
}

// CollectorConfig configures a Collector.
type CollectorConfig struct {
	Timeout      time.Duration // per query, 0 = none
	RateLimit    float64       // queries per second, 0 = unlimited
	Burst        int
	Workers      int
	Limit        int  // documents kept after merging, 0 = all
	AllowPartial bool // tolerate failed queries while at least one succeeds
}

// CollectorConfigFrom converts the application configuration.
func CollectorConfigFrom(cfg config.RetrievalConfig) CollectorConfig {
	return CollectorConfig{
		Timeout:      cfg.Timeout,
		RateLimit:    cfg.RateLimit,
		Burst:        cfg.Burst,
		Workers:      cfg.Workers,
		Limit:        cfg.Limit,
		AllowPartial: cfg.AllowPartial,
	}
}

// Collector runs queries against a Retriever in parallel and joins the
// results before returning.
type Collector struct {
	retriever Retriever
	cfg       CollectorConfig
	limiter   *rate.Limiter
	metrics   MetricsRecorder
	log       *logger.Logger
}

// NewCollector creates a collector.
func NewCollector(r Retriever, cfg CollectorConfig, log *logger.Logger) *Collector {
	if log == nil {
		log = logger.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	return &Collector{
		retriever: r,
		cfg:       cfg,
		limiter:   rate.NewLimiter(limit, cfg.Burst),
		log:       log.WithComponent("retrieval"),
	}
}

// SetMetrics attaches a recorder for query outcomes.
func (c *Collector) SetMetrics(m MetricsRecorder) {
	c.metrics = m
}

// Collect runs every query and returns the union of their documents,
// deduplicated by identifier in query order. No queries means one empty
// query, which sources treat as "everything".
func (c *Collector) Collect(ctx context.Context, queries []string) ([]corpus.Document, error) {
	if len(queries) == 0 {
		queries = []string{""}
	}
	queries = sanitize.Queries(queries)

	results := make([][]corpus.Document, len(queries))
	failures := make([]error, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Workers)

	for i, q := range queries {
		g.Go(func() error {
			docs, err := c.fetch(gctx, q)
			if err != nil {
				failures[i] = err
				if c.cfg.AllowPartial {
					c.log.Warn("Query failed", "query", sanitize.ForLog(q), "error", err)
					return nil
				}
				return err
			}
			results[i] = docs
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var failed []error
	for _, err := range failures {
		if err != nil {
			failed = append(failed, err)
		}
	}
	if len(failed) == len(queries) {
		return nil, errors.RetrievalError("every query failed", stderrors.Join(failed...))
	}

	docs := merge(results)
	if c.cfg.Limit > 0 && len(docs) > c.cfg.Limit {
		docs = docs[:c.cfg.Limit]
	}
	c.log.Info("Retrieval complete",
		"source", c.retriever.Name(),
		"queries", len(queries),
		"failed", len(failed),
		"documents", len(docs),
	)
	return docs, nil
}

func (c *Collector) fetch(ctx context.Context, query string) ([]corpus.Document, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.RetrievalError("rate limiter", err)
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	docs, err := c.retriever.FetchDocuments(ctx, query)
	if c.metrics != nil {
		c.metrics.RecordRetrieval(c.retriever.Name(), len(docs), err)
	}
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) || errors.CodeOf(err) == errors.CodeTimeout {
			return nil, errors.Wrap(errors.CodeTimeout, fmt.Sprintf("query %q timed out", query), err)
		}
		return nil, errors.RetrievalError(fmt.Sprintf("query %q", query), err)
	}

	c.log.Debug("Query fetched",
		"query", sanitize.ForLog(query),
		"documents", len(docs),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return docs, nil
}

func merge(results [][]corpus.Document) []corpus.Document {
	seen := make(map[string]struct{})
	var out []corpus.Document
	for _, docs := range results {
		for _, d := range docs {
			if _, ok := seen[d.ID]; ok {
				continue
			}
			seen[d.ID] = struct{}{}
			out = append(out, d)
		}
	}
	return out
}

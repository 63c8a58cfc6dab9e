package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/screenlab/screensim/internal/bus"
	"github.com/screenlab/screensim/internal/config"
	"github.com/screenlab/screensim/internal/corpus"
	"github.com/screenlab/screensim/internal/ensemble"
	"github.com/screenlab/screensim/internal/evaluation"
	"github.com/screenlab/screensim/internal/metrics"
	"github.com/screenlab/screensim/internal/pkg/logger"
	"github.com/screenlab/screensim/internal/pkg/workpool"
	"github.com/screenlab/screensim/internal/report"
	"github.com/screenlab/screensim/internal/retrieval"
	"github.com/screenlab/screensim/internal/sampling"
	"github.com/screenlab/screensim/internal/screening"
)

func simulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run one screening session",
		Long: `Run one active-learning screening session over the configured corpus.

The session stops when the iteration limit or recall target is reached,
when every document has been judged, or on SIGINT/SIGTERM. An interrupted
session still writes its report.

Examples:
  screensim simulate                                   # defaults: synthetic corpus, tfidf/pairwise
  screensim simulate --model similarity --batch-size 10
  screensim simulate -c screensim.yaml --formats csv,json`,
		RunE: runSimulate,
	}

	cmd.Flags().String("representation", "", "document representation (tfidf, mesh)")
	cmd.Flags().String("model", "", "ranking model (similarity, pairwise, centroid, infogain)")
	cmd.Flags().Int("batch-size", 0, "documents proposed per iteration")
	cmd.Flags().Int("max-iterations", 0, "iteration limit (0 = until exhausted)")
	cmd.Flags().Float64("target-recall", 0, "stop at this tier-1 recall (0 = disabled)")
	cmd.Flags().Uint64("seed", 0, "random seed for sampling and bagging")
	cmd.Flags().String("bias", "", "sampling bias (harmonic, quadratic)")
	cmd.Flags().String("report-dir", "", "report output directory")
	cmd.Flags().StringSlice("formats", nil, "report formats (csv, json, redis, bus)")

	return cmd
}

// applyFlags overrides configuration with explicitly set flags.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("representation") {
		cfg.Strategy.Representation, _ = flags.GetString("representation")
	}
	if flags.Changed("model") {
		cfg.Strategy.Model, _ = flags.GetString("model")
	}
	if flags.Changed("batch-size") {
		cfg.Loop.BatchSize, _ = flags.GetInt("batch-size")
	}
	if flags.Changed("max-iterations") {
		cfg.Loop.MaxIterations, _ = flags.GetInt("max-iterations")
	}
	if flags.Changed("target-recall") {
		cfg.Loop.TargetRecall, _ = flags.GetFloat64("target-recall")
	}
	if flags.Changed("seed") {
		cfg.Loop.Seed, _ = flags.GetUint64("seed")
	}
	if flags.Changed("bias") {
		cfg.Loop.Bias, _ = flags.GetString("bias")
	}
	if flags.Changed("report-dir") {
		cfg.Report.Dir, _ = flags.GetString("report-dir")
	}
	if flags.Changed("formats") {
		cfg.Report.Formats, _ = flags.GetStringSlice("formats")
	}
	return cfg.Validate()
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := uuid.NewString()
	log = log.WithSession(session)
	strategy := screening.Strategy{Representation: cfg.Strategy.Representation, Model: cfg.Strategy.Model}

	log.Info("Starting screening simulation",
		"version", version,
		"strategy", strategy.String(),
		"corpus", cfg.Corpus.Source,
		"bus", cfg.Bus.Type,
	)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	featurizer, ranker, err := screening.DefaultRegistry().Resolve(strategy, cfg.Strategy.MinDocFreq, rankerOptions(cfg, m, log))
	if err != nil {
		return err
	}

	var retrievalMetrics retrieval.MetricsRecorder
	if m != nil {
		retrievalMetrics = m
	}
	docs, err := loadDocuments(ctx, cfg, retrievalMetrics, log)
	if err != nil {
		return fmt.Errorf("failed to load corpus: %w", err)
	}
	c, err := corpus.New(docs, featurizer)
	if err != nil {
		return err
	}

	b, err := bus.NewBus(cfg.Bus, log)
	if err != nil {
		return fmt.Errorf("failed to create event bus: %w", err)
	}
	if m != nil {
		b = bus.NewInstrumentedBus(b, m)
	}
	defer func() {
		if err := b.Close(); err != nil {
			log.Warn("Failed to close event bus", "error", err)
		}
	}()

	sink, err := report.Open(cfg.Report, session, b, log)
	if err != nil {
		return fmt.Errorf("failed to open report: %w", err)
	}
	if m != nil {
		sink.SetMetrics(m)
	}

	bias, err := sampling.ParseBias(cfg.Loop.Bias)
	if err != nil {
		sink.Close()
		return err
	}

	loopOpts := []screening.Option{
		screening.WithSession(session),
		screening.WithSink(sink),
		screening.WithBus(b),
		screening.WithLogger(log),
	}
	if m != nil {
		loopOpts = append(loopOpts, screening.WithMetrics(m))
	}

	loop, err := screening.NewLoop(c, ranker, screening.Options{
		BatchSize:     cfg.Loop.BatchSize,
		MaxIterations: cfg.Loop.MaxIterations,
		TargetRecall:  cfg.Loop.TargetRecall,
		SeedRelevant:  cfg.Loop.SeedRelevant,
		Seed:          cfg.Loop.Seed,
		Bias:          bias,
	}, loopOpts...)
	if err != nil {
		sink.Close()
		return err
	}

	start := time.Now()
	res, runErr := loop.Run(ctx)

	if err := sink.Close(); err != nil {
		log.Warn("Failed to close report", "error", err)
	}
	if m != nil {
		if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			log.Warn("Failed to write metrics", "error", err)
		}
	}
	if res != nil {
		if err := printSummary(cmd, res, time.Since(start)); err != nil {
			return err
		}
	}
	return runErr
}

func rankerOptions(cfg *config.Config, m *metrics.Metrics, log *logger.Logger) screening.RankerOptions {
	opts := screening.RankerOptions{
		Ensemble: ensemble.Config{
			Size:       cfg.Ensemble.Size,
			Multiplier: cfg.Ensemble.Multiplier,
			Workers:    cfg.Ensemble.Workers,
			Seed:       cfg.Loop.Seed,
		},
		Epochs:       cfg.Ensemble.Epochs,
		LearningRate: cfg.Ensemble.LearningRate,
		Similarity: workpool.Config{
			Size:    cfg.Strategy.BatchSize,
			Workers: cfg.Strategy.Workers,
		},
		Log: log,
	}
	if m != nil {
		opts.CacheMetrics = m
	}
	return opts
}

type summary struct {
	Session     string             `json:"session"`
	Strategy    string             `json:"strategy"`
	State       string             `json:"state"`
	Iterations  int                `json:"iterations"`
	Judged      int                `json:"judged"`
	DurationMS  int64              `json:"duration_ms"`
	FinalRecord *evaluation.Record `json:"final_record,omitempty"`
}

func printSummary(cmd *cobra.Command, res *screening.Result, elapsed time.Duration) error {
	s := summary{
		Session:    res.Session,
		Strategy:   res.Strategy,
		State:      res.State.String(),
		Iterations: res.Iterations,
		Judged:     res.Judged,
		DurationMS: elapsed.Milliseconds(),
	}
	if n := len(res.Records); n > 0 {
		s.FinalRecord = &res.Records[n-1]
	}

	w := cmd.OutOrStdout()
	if outputJSON(cmd) {
		return printJSON(w, s)
	}

	fmt.Fprintf(w, "session:    %s\n", s.Session)
	fmt.Fprintf(w, "strategy:   %s\n", s.Strategy)
	fmt.Fprintf(w, "state:      %s after %d iterations (%s)\n", s.State, s.Iterations, elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "judged:     %d documents\n", s.Judged)
	if r := s.FinalRecord; r != nil {
		fmt.Fprintf(w, "proposed:   %d (accepted %d)\n", r.Proposed, r.Accepted)
		fmt.Fprintf(w, "tier 1:     recall %s, cost %s\n", evaluation.FormatFloat(r.RecallTier1), evaluation.FormatFloat(r.CostTier1))
		fmt.Fprintf(w, "tier 2:     recall %s, cost %s\n", evaluation.FormatFloat(r.RecallTier2), evaluation.FormatFloat(r.CostTier2))
	}
	return nil
}

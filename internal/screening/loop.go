// Package screening drives an active-learning screening session: rank the
// corpus, propose a batch, take judgments, account recall and cost, repeat.
package screening

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/screenlab/screensim/internal/bus"
	"github.com/screenlab/screensim/internal/corpus"
	"github.com/screenlab/screensim/internal/evaluation"
	"github.com/screenlab/screensim/internal/pkg/errors"
	"github.com/screenlab/screensim/internal/pkg/hash"
	"github.com/screenlab/screensim/internal/pkg/logger"
	"github.com/screenlab/screensim/internal/rank"
	"github.com/screenlab/screensim/internal/report"
	"github.com/screenlab/screensim/internal/sampling"
)

// Recorder receives loop telemetry. Implemented by metrics.Metrics.
type Recorder interface {
	RecordIteration(proposed, acceptedTier1, acceptedTier2 int)
	RecordRerank(strategy string, d time.Duration, err error)
	RecordRerankSkipped()
	SetProgress(recallTier1, costTier1, recallTier2, costTier2 float64)
	SetAUC(auc float64)
}

// Options configures a session.
type Options struct {
	// BatchSize is the number of documents proposed per iteration.
	BatchSize int

	// MaxIterations ends the session after that many batches. 0 runs until
	// the corpus is exhausted.
	MaxIterations int

	// TargetRecall ends the session once tier-1 recall reaches it. 0 disables.
	TargetRecall float64

	// SeedRelevant is the number of relevant documents known before
	// screening starts.
	SeedRelevant int

	Seed uint64
	Bias sampling.Bias
}

// Loop is one screening session. It is single-use and not safe for
// concurrent use.
type Loop struct {
	session string
	corpus  *corpus.Corpus
	ranker  Ranker
	judge   Judge
	opts    Options

	sink    report.Sink
	bus     bus.Bus
	metrics Recorder
	log     *logger.Logger

	sampler    *sampling.Sampler
	candidates map[string]corpus.FeatureVector
	relevant   map[string]struct{}
	grades     map[string]int

	state     State
	judgments *corpus.JudgmentSet
	pending   map[string]struct{}
	tally     *evaluation.Tally
	iteration int

	ranking          rank.Ranking
	positions        map[string]int
	z                float64
	quality          evaluation.RankingQuality
	rankedAtRelevant int

	// rankedTrainable is false while the current ranking was built from
	// judgments lacking one of the two classes.
	rankedTrainable bool

	records   []evaluation.Record
	histories report.Histories
}

// Option customises a Loop.
type Option func(*Loop)

// WithSink sends records and histories to s.
func WithSink(s report.Sink) Option {
	return func(l *Loop) { l.sink = s }
}

// WithBus publishes session events to b.
func WithBus(b bus.Bus) Option {
	return func(l *Loop) { l.bus = b }
}

// WithMetrics records loop telemetry.
func WithMetrics(m Recorder) Option {
	return func(l *Loop) { l.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) Option {
	return func(l *Loop) { l.log = log }
}

// WithSession fixes the session identifier instead of generating one.
func WithSession(id string) Option {
	return func(l *Loop) { l.session = id }
}

// WithJudge replaces the ground-truth oracle.
func WithJudge(j Judge) Option {
	return func(l *Loop) { l.judge = j }
}

// NewLoop creates a session over c. The corpus must already carry features
// for the ranker's representation.
func NewLoop(c *corpus.Corpus, ranker Ranker, opts Options, options ...Option) (*Loop, error) {
	if c == nil || c.Len() == 0 {
		return nil, errors.ValidationError("screening needs a non-empty corpus")
	}
	if ranker == nil {
		return nil, errors.ValidationError("screening needs a ranker")
	}
	if opts.BatchSize < 1 {
		return nil, errors.ValidationError("batch size must be at least 1")
	}
	if opts.MaxIterations < 0 || opts.SeedRelevant < 0 {
		return nil, errors.ValidationError("max iterations and seed relevant must not be negative")
	}

	l := &Loop{
		corpus:           c,
		ranker:           ranker,
		judge:            OracleJudge{},
		opts:             opts,
		candidates:       c.FeatureMap(),
		relevant:         c.RelevantSet(corpus.Tier1),
		grades:           make(map[string]int, c.Len()),
		judgments:        corpus.NewJudgmentSet(),
		pending:          make(map[string]struct{}),
		tally:            evaluation.NewTally(c.CountTier(corpus.Tier1), c.CountTier(corpus.Tier2)),
		histories:        report.NewHistories(),
		rankedAtRelevant: -1,
	}
	for _, d := range c.Documents() {
		l.grades[d.ID] = int(d.Grade)
	}
	for _, o := range options {
		o(l)
	}

	if l.session == "" {
		l.session = uuid.NewString()
	}
	if l.log == nil {
		l.log = logger.Default()
	}
	l.log = l.log.WithSession(l.session).WithComponent("screening")
	l.sampler = sampling.NewSeeded(hash.Seed(opts.Seed, "sampler"), opts.Bias)

	return l, nil
}

// Session returns the session identifier.
func (l *Loop) Session() string { return l.session }

// State returns the current loop state.
func (l *Loop) State() State { return l.state }

// Result is the outcome of a session.
type Result struct {
	Session    string
	Strategy   string
	State      State
	Iterations int
	Judged     int
	Records    []evaluation.Record
	Histories  report.Histories
}

// Run executes the session until it converges, runs out of documents or ctx
// is cancelled. Cancellation is honoured between iterations only; the
// report is finalised in every case.
func (l *Loop) Run(ctx context.Context) (*Result, error) {
	if l.state != Initializing {
		return nil, errors.New(errors.CodeInternal, "screening session already run")
	}

	// Iterations run to completion once started
	work := context.WithoutCancel(ctx)

	if err := l.initialize(work); err != nil {
		return nil, err
	}

	var runErr error
	for !l.state.Terminal() {
		if ctx.Err() != nil {
			l.state = Interrupted
			break
		}
		if l.converged() {
			l.state = Converged
			break
		}
		if err := l.step(work); err != nil {
			runErr = err
			l.state = Interrupted
			break
		}
	}

	l.finalize(work)

	l.log.Info("Screening finished",
		"state", l.state.String(),
		"iterations", l.iteration,
		"judged", l.judgments.Len(),
		"recall_tier1", l.tally.RecallTier1(),
		"recall_tier2", l.tally.RecallTier2(),
	)

	return l.result(), runErr
}

func (l *Loop) initialize(ctx context.Context) error {
	seeds := l.seedDocuments()
	for _, d := range seeds {
		if err := l.judgments.Accept(d.ID, d.Features, d.Grade); err != nil {
			return err
		}
		l.tally.Seed(d.Grade)
	}

	l.publish(ctx, bus.TopicSessionStarted, "session.started", SessionInfo{
		Session:       l.session,
		Strategy:      l.ranker.Name(),
		Documents:     l.corpus.Len(),
		RelevantTier1: l.corpus.CountTier(corpus.Tier1),
		RelevantTier2: l.corpus.CountTier(corpus.Tier2),
		Seeds:         len(seeds),
	})

	l.log.Info("Screening started",
		"strategy", l.ranker.Name(),
		"documents", l.corpus.Len(),
		"relevant", len(l.relevant),
		"seeds", len(seeds),
		"batch_size", l.opts.BatchSize,
		"bias", l.opts.Bias.String(),
	)

	l.state = Iterating
	return nil
}

// seedDocuments draws the known-relevant starting documents.
func (l *Loop) seedDocuments() []corpus.Document {
	if l.opts.SeedRelevant == 0 || len(l.relevant) == 0 {
		return nil
	}

	ids := make([]string, 0, len(l.relevant))
	for id := range l.relevant {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	seed := hash.Seed(l.opts.Seed, "seed-judgments")
	rng := rand.New(rand.NewPCG(seed, seed>>1|1))
	rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })

	n := min(l.opts.SeedRelevant, len(ids))
	out := make([]corpus.Document, 0, n)
	for _, id := range ids[:n] {
		d, _ := l.corpus.Get(id)
		out = append(out, d)
	}
	return out
}

func (l *Loop) converged() bool {
	if l.opts.MaxIterations > 0 && l.iteration >= l.opts.MaxIterations {
		return true
	}
	return l.opts.TargetRecall > 0 && l.tally.RecallTier1() >= l.opts.TargetRecall
}

// step runs one iteration.
func (l *Loop) step(ctx context.Context) error {
	iteration := l.iteration + 1
	log := l.log.WithIteration(iteration)

	l.refreshRanking(ctx, iteration, log)

	excluded := l.judgments.IDs()
	for id := range l.pending {
		excluded[id] = struct{}{}
	}
	batch := l.sampler.Sample(l.ranking, excluded, l.opts.BatchSize)
	if len(batch) == 0 {
		l.state = Exhausted
		log.Info("No documents left to propose")
		return nil
	}

	l.iteration = iteration
	l.recordTelemetry(iteration)

	for _, id := range batch {
		l.pending[id] = struct{}{}
	}

	var acceptedTier1, acceptedTier2 int
	for _, id := range batch {
		doc, ok := l.corpus.Get(id)
		if !ok {
			return errors.New(errors.CodeInternal, fmt.Sprintf("ranked document %s not in corpus", id))
		}

		grade, err := l.judge.Judge(ctx, doc)
		if err != nil {
			return errors.Wrap(errors.CodeInternal, fmt.Sprintf("judging %s", id), err)
		}
		if err := l.judgments.Accept(id, doc.Features, grade); err != nil {
			return err
		}
		delete(l.pending, id)

		l.tally.Observe(grade)
		if grade.MeetsTier(corpus.Tier1) {
			acceptedTier1++
		}
		if grade.MeetsTier(corpus.Tier2) {
			acceptedTier2++
		}
	}

	rec := l.tally.Record(iteration, l.quality)
	l.records = append(l.records, rec)

	if l.sink != nil {
		if err := l.sink.WriteRecord(ctx, rec); err != nil {
			log.Warn("Failed to write report record", "error", err)
		}
	}
	if l.metrics != nil {
		l.metrics.RecordIteration(len(batch), acceptedTier1, acceptedTier2)
		l.metrics.SetProgress(rec.RecallTier1, rec.CostTier1, rec.RecallTier2, rec.CostTier2)
	}

	log.Info("Iteration complete",
		"proposed", len(batch),
		"accepted", acceptedTier1,
		"recall_tier1", rec.RecallTier1,
		"recall_tier2", rec.RecallTier2,
		"auc", rec.Quality.AUC,
	)
	return nil
}

// refreshRanking recomputes the ranking when the relevant count grew since
// the last one, or when the judgments first hold both classes. A failed
// recomputation keeps the previous ranking.
func (l *Loop) refreshRanking(ctx context.Context, iteration int, log *logger.Logger) {
	relevant := l.judgments.RelevantCount()
	trainable := relevant > 0 && l.judgments.IrrelevantCount() > 0
	if l.ranking != nil && relevant <= l.rankedAtRelevant && (l.rankedTrainable || !trainable) {
		if l.metrics != nil {
			l.metrics.RecordRerankSkipped()
		}
		log.Debug("Reusing previous ranking", "relevant", relevant)
		return
	}

	start := time.Now()
	ranking, err := l.ranker.Rank(ctx, l.candidates, l.judgments.Snapshot())
	if l.metrics != nil {
		l.metrics.RecordRerank(l.ranker.Name(), time.Since(start), err)
	}

	if err != nil {
		log.Warn("Ranking failed, keeping previous ranking",
			"strategy", l.ranker.Name(),
			"classifier_error", errors.IsClassifier(err),
			"error", err,
		)
		l.publish(ctx, bus.TopicRankingFailed, "ranking.failed", RankingFailure{
			Iteration: iteration,
			Strategy:  l.ranker.Name(),
			Code:      errors.CodeOf(err),
			Error:     err.Error(),
		})
		if l.ranking == nil {
			l.setRanking(rank.Neutral(l.corpus.IDs()))
		}
		return
	}

	l.setRanking(ranking)
	l.rankedAtRelevant = relevant
	l.rankedTrainable = trainable
	if l.metrics != nil {
		l.metrics.SetAUC(l.quality.AUC)
	}
	log.Debug("Ranking recomputed",
		"relevant", relevant,
		"length", len(ranking),
		"auc", l.quality.AUC,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// setRanking installs r with its positions, normalizer and quality.
func (l *Loop) setRanking(r rank.Ranking) {
	l.ranking = r
	l.positions = r.Positions()
	l.z = rank.HarmonicNumber(len(r))

	ids := r.IDs()
	l.quality = evaluation.RankingQuality{
		AUC:              evaluation.AUC(ids, l.relevant),
		AveragePrecision: evaluation.AveragePrecision(ids, l.relevant),
		NDCG:             evaluation.NDCG(ids, l.grades, l.opts.BatchSize),
	}
}

// recordTelemetry stores every document's rank and selection probability
// under the current ranking.
func (l *Loop) recordTelemetry(iteration int) {
	for id, pos := range l.positions {
		l.histories.Rank.Set(id, iteration, float64(pos))
		l.histories.Probability.Set(id, iteration, sampling.Probability(pos, l.z))
	}
}

func (l *Loop) finalize(ctx context.Context) {
	if l.sink == nil {
		return
	}
	if err := l.sink.WriteHistories(ctx, l.histories); err != nil {
		l.log.Warn("Failed to write report histories", "error", err)
	}
}

func (l *Loop) publish(ctx context.Context, topic, eventType string, payload any) {
	if l.bus == nil {
		return
	}
	if err := l.bus.Publish(ctx, topic, bus.NewEvent(eventType, "screening", l.session, payload)); err != nil {
		l.log.Warn("Failed to publish event", "topic", topic, "error", err)
	}
}

func (l *Loop) result() *Result {
	records := make([]evaluation.Record, len(l.records))
	copy(records, l.records)
	return &Result{
		Session:    l.session,
		Strategy:   l.ranker.Name(),
		State:      l.state,
		Iterations: l.iteration,
		Judged:     l.judgments.Len(),
		Records:    records,
		Histories:  l.histories,
	}
}

// SessionInfo is the payload of the session-started event.
type SessionInfo struct {
	Session       string `json:"session"`
	Strategy      string `json:"strategy"`
	Documents     int    `json:"documents"`
	RelevantTier1 int    `json:"relevant_tier1"`
	RelevantTier2 int    `json:"relevant_tier2"`
	Seeds         int    `json:"seeds"`
}

// RankingFailure is the payload of the ranking-failed event.
type RankingFailure struct {
	Iteration int    `json:"iteration"`
	Strategy  string `json:"strategy"`
	Code      string `json:"code,omitempty"`
	Error     string `json:"error"`
}

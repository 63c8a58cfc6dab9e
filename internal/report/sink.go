// Package report writes the per-iteration record stream and the
// end-of-session rank and probability tables to one or more sinks.
package report

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/screenlab/screensim/internal/bus"
	"github.com/screenlab/screensim/internal/config"
	"github.com/screenlab/screensim/internal/evaluation"
	"github.com/screenlab/screensim/internal/pkg/errors"
	"github.com/screenlab/screensim/internal/pkg/logger"
	"github.com/screenlab/screensim/internal/pkg/sanitize"
)

// Sink receives the session report.
type Sink interface {
	// Name identifies the sink in logs and metrics.
	Name() string

	// WriteRecord appends one iteration record.
	WriteRecord(ctx context.Context, r evaluation.Record) error

	// WriteHistories writes the end-of-session tables. Called once.
	WriteHistories(ctx context.Context, h Histories) error

	// Close flushes and releases the sink.
	Close() error
}

// MetricsRecorder records sink writes. Implemented by metrics.Metrics.
type MetricsRecorder interface {
	RecordReportWrite(sink string, err error)
}

// Multi fans writes out to several sinks. A failing sink does not stop the
// others; the errors are joined.
type Multi struct {
	sinks   []Sink
	metrics MetricsRecorder
	log     *logger.Logger
}

// NewMulti creates a fan-out over sinks.
func NewMulti(log *logger.Logger, sinks ...Sink) *Multi {
	if log == nil {
		log = logger.Default()
	}
	return &Multi{sinks: sinks, log: log.WithComponent("report")}
}

// SetMetrics attaches a recorder for sink writes.
func (m *Multi) SetMetrics(rec MetricsRecorder) {
	m.metrics = rec
}

// Name returns "multi".
func (m *Multi) Name() string {
	return "multi"
}

// Sinks returns the wrapped sinks.
func (m *Multi) Sinks() []Sink {
	return m.sinks
}

// WriteRecord writes r to every sink.
func (m *Multi) WriteRecord(ctx context.Context, r evaluation.Record) error {
	return m.each(func(s Sink) error { return s.WriteRecord(ctx, r) })
}

// WriteHistories writes h to every sink.
func (m *Multi) WriteHistories(ctx context.Context, h Histories) error {
	return m.each(func(s Sink) error { return s.WriteHistories(ctx, h) })
}

// Close closes every sink.
func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return stderrors.Join(errs...)
}

func (m *Multi) each(write func(Sink) error) error {
	var errs []error
	for _, s := range m.sinks {
		err := write(s)
		if m.metrics != nil {
			m.metrics.RecordReportWrite(s.Name(), err)
		}
		if err != nil {
			m.log.Warn("Report sink write failed", "sink", s.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return stderrors.Join(errs...)
}

// Open builds the sinks enabled in cfg. The bus sink needs b; it is skipped
// when b is nil.
func Open(cfg config.ReportConfig, session string, b bus.Bus, log *logger.Logger) (*Multi, error) {
	if log == nil {
		log = logger.Default()
	}

	var sinks []Sink
	fail := func(err error) (*Multi, error) {
		for _, s := range sinks {
			s.Close()
		}
		return nil, err
	}

	for _, format := range cfg.Formats {
		switch format {
		case "csv":
			s, err := NewCSVSink(cfg.Dir)
			if err != nil {
				return fail(err)
			}
			sinks = append(sinks, s)
		case "json":
			s, err := NewJSONSink(cfg.Dir)
			if err != nil {
				return fail(err)
			}
			sinks = append(sinks, s)
		case "redis":
			s, err := NewRedisSink(RedisConfig{
				URL:     cfg.RedisURL,
				Prefix:  cfg.RedisPrefix,
				TTL:     cfg.RedisTTL,
				Session: session,
			})
			if err != nil {
				return fail(err)
			}
			log.Debug("Redis report sink connected", "url", sanitize.MaskURL(cfg.RedisURL), "session", session)
			sinks = append(sinks, s)
		case "bus":
			if b == nil {
				log.Warn("Bus report format enabled without a bus, skipping")
				continue
			}
			sinks = append(sinks, NewBusSink(b, session))
		default:
			return fail(errors.New(errors.CodeValidation, fmt.Sprintf("unknown report format: %s", format)))
		}
	}

	return NewMulti(log, sinks...), nil
}

package report

import (
	"context"

	"github.com/screenlab/screensim/internal/bus"
	"github.com/screenlab/screensim/internal/evaluation"
)

// SessionSummary is the payload of the session-finished event.
type SessionSummary struct {
	Iterations []int `json:"iterations"`
	Documents  int   `json:"documents"`
}

// BusSink publishes each record as an iteration-completed event and a
// summary as the session-finished event.
type BusSink struct {
	bus     bus.Bus
	session string
}

// NewBusSink creates a sink publishing to b, correlated by session.
func NewBusSink(b bus.Bus, session string) *BusSink {
	return &BusSink{bus: b, session: session}
}

// Name returns "bus".
func (s *BusSink) Name() string { return "bus" }

// WriteRecord publishes r.
func (s *BusSink) WriteRecord(ctx context.Context, r evaluation.Record) error {
	return s.bus.Publish(ctx, bus.TopicIterationCompleted,
		bus.NewEvent("iteration.completed", "report", s.session, r))
}

// WriteHistories publishes the session summary. The tables themselves stay
// with the file and Redis sinks.
func (s *BusSink) WriteHistories(ctx context.Context, h Histories) error {
	return s.bus.Publish(ctx, bus.TopicSessionFinished,
		bus.NewEvent("session.finished", "report", s.session, SessionSummary{
			Iterations: h.Rank.Iterations(),
			Documents:  h.Rank.Len(),
		}))
}

// Close does nothing; the bus is owned by the caller.
func (s *BusSink) Close() error { return nil }

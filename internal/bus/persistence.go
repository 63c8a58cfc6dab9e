package bus

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/screenlab/screensim/internal/pkg/errors"
)

// LoggedEvent is one journal line.
type LoggedEvent struct {
	Event    Event     `json:"event"`
	Topic    string    `json:"topic"`
	LoggedAt time.Time `json:"logged_at"`
}

// EventFilter selects journal entries. Zero fields match everything.
type EventFilter struct {
	Since         time.Time
	Topic         string
	CorrelationID string
	Limit         int
}

func (f EventFilter) match(le LoggedEvent) bool {
	if !f.Since.IsZero() && !le.LoggedAt.After(f.Since) {
		return false
	}
	if f.Topic != "" && le.Topic != f.Topic {
		return false
	}
	if f.CorrelationID != "" && le.Event.CorrelationID != f.CorrelationID {
		return false
	}
	return true
}

// EventLogger appends events to a JSON-lines journal.
type EventLogger struct {
	path    string
	enabled bool

	mu      sync.Mutex
	file    *os.File
	encoder *json.Encoder
}

// NewEventLogger opens (or creates) the journal at path. A disabled logger
// accepts events and drops them.
func NewEventLogger(path string, enabled bool) (*EventLogger, error) {
	l := &EventLogger{path: path, enabled: enabled}
	if !enabled {
		return l, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	l.file = file
	l.encoder = json.NewEncoder(file)
	return l, nil
}

// Log appends one event.
func (l *EventLogger) Log(topic string, event Event) error {
	if !l.enabled {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return errors.New(errors.CodeInternal, "event logger closed")
	}

	if err := l.encoder.Encode(LoggedEvent{Event: event, Topic: topic, LoggedAt: time.Now()}); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	return nil
}

// Path returns the journal location.
func (l *EventLogger) Path() string {
	return l.path
}

// IsEnabled returns true if the logger is enabled.
func (l *EventLogger) IsEnabled() bool {
	return l.enabled
}

// Events reads back journaled events matching filter.
func (l *EventLogger) Events(filter EventFilter) ([]LoggedEvent, error) {
	if !l.enabled {
		return nil, errors.New(errors.CodeUnavailable, "event logging is disabled")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		if err := l.file.Sync(); err != nil {
			return nil, fmt.Errorf("failed to sync log file: %w", err)
		}
	}
	return ReadEvents(l.path, filter)
}

// Replay publishes journaled events matching filter to b, in journal order.
func (l *EventLogger) Replay(ctx context.Context, b Bus, filter EventFilter) (int, error) {
	events, err := l.Events(filter)
	if err != nil {
		return 0, err
	}

	for i, le := range events {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := b.Publish(ctx, le.Topic, le.Event); err != nil {
			return i, fmt.Errorf("failed to replay event %s: %w", le.Event.ID, err)
		}
	}
	return len(events), nil
}

// Close closes the journal file.
func (l *EventLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.encoder = nil
	if err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	return nil
}

// ReadEvents reads a journal file. A missing file yields no events.
func ReadEvents(path string, filter EventFilter) ([]LoggedEvent, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []LoggedEvent{}, nil
		}
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	return DecodeEvents(file, filter)
}

// DecodeEvents decodes journal lines from r. Malformed lines are skipped.
func DecodeEvents(r io.Reader, filter EventFilter) ([]LoggedEvent, error) {
	const maxLine = 1024 * 1024

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLine)

	events := []LoggedEvent{}
	for scanner.Scan() {
		var le LoggedEvent
		if err := json.Unmarshal(scanner.Bytes(), &le); err != nil {
			continue
		}
		if !filter.match(le) {
			continue
		}
		events = append(events, le)
		if filter.Limit > 0 && len(events) >= filter.Limit {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan log file: %w", err)
	}
	return events, nil
}

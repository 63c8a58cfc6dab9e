package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/screenlab/screensim/internal/evaluation"
	"github.com/screenlab/screensim/internal/pkg/errors"
	"github.com/screenlab/screensim/internal/pkg/sanitize"
)

// RedisConfig configures a RedisSink.
type RedisConfig struct {
	URL     string
	Prefix  string
	TTL     time.Duration // 0 keeps keys forever
	Session string
}

// RedisSink stores a session under <prefix><session>:
//
//	records        list of JSON records, in iteration order
//	ranks          hash document ID -> JSON {iteration: rank}
//	probabilities  hash document ID -> JSON {iteration: probability}
type RedisSink struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisSink connects to Redis and verifies the connection.
func NewRedisSink(cfg RedisConfig) (*RedisSink, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, errors.ReportError("parsing redis URL", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(errors.CodeUnavailable, "connecting to redis at "+sanitize.MaskURL(cfg.URL), err)
	}

	return &RedisSink{
		client: client,
		prefix: cfg.Prefix + cfg.Session + ":",
		ttl:    cfg.TTL,
	}, nil
}

// Name returns "redis".
func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) key(name string) string {
	return s.prefix + name
}

// WriteRecord appends r to the records list.
func (s *RedisSink) WriteRecord(ctx context.Context, r evaluation.Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return errors.ReportError("encoding record", err)
	}

	key := s.key("records")
	pipe := s.client.Pipeline()
	pipe.RPush(ctx, key, data)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.ReportError("saving record", err)
	}
	return nil
}

// WriteHistories stores both tables, one hash field per document.
func (s *RedisSink) WriteHistories(ctx context.Context, h Histories) error {
	pipe := s.client.Pipeline()

	for _, table := range h.Tables() {
		key := s.key(table.Name)
		ids := table.History.IDs()
		if len(ids) == 0 {
			continue
		}

		fields := make(map[string]any, len(ids))
		for _, id := range ids {
			data, err := json.Marshal(table.History.Series(id))
			if err != nil {
				return errors.ReportError(fmt.Sprintf("encoding %s of %s", table.Name, id), err)
			}
			fields[id] = data
		}
		pipe.HSet(ctx, key, fields)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return errors.ReportError("saving histories", err)
	}
	return nil
}

// LoadRecords reads the records list back.
func (s *RedisSink) LoadRecords(ctx context.Context) ([]evaluation.Record, error) {
	raw, err := s.client.LRange(ctx, s.key("records"), 0, -1).Result()
	if err != nil {
		return nil, errors.ReportError("loading records", err)
	}

	records := make([]evaluation.Record, 0, len(raw))
	for _, item := range raw {
		var r evaluation.Record
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			// Skip invalid entries
			continue
		}
		records = append(records, r)
	}
	return records, nil
}

// LoadSeries reads one document's series from a history table.
func (s *RedisSink) LoadSeries(ctx context.Context, table, docID string) (map[string]float64, error) {
	raw, err := s.client.HGet(ctx, s.key(table), docID).Result()
	if err == redis.Nil {
		return map[string]float64{}, nil
	}
	if err != nil {
		return nil, errors.ReportError("loading series", err)
	}

	series := map[string]float64{}
	if err := json.Unmarshal([]byte(raw), &series); err != nil {
		return nil, errors.ReportError("decoding series", err)
	}
	return series, nil
}

// Delete removes every key of the session.
func (s *RedisSink) Delete(ctx context.Context) error {
	return s.client.Del(ctx, s.key("records"), s.key("ranks"), s.key("probabilities")).Err()
}

// Close closes the Redis connection.
func (s *RedisSink) Close() error {
	return s.client.Close()
}

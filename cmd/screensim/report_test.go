package main

import (
	"bytes"
	"context"
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/screenlab/screensim/internal/evaluation"
	"github.com/screenlab/screensim/internal/report"
)

const testRedisURL = "redis://localhost:6379/15"

func TestSeriesIterations(t *testing.T) {
	got := seriesIterations(
		map[string]float64{"10": 1, "2": 3},
		map[string]float64{"1": 0.5, "2": 0.25, "bad": 1},
	)
	want := []string{"1", "2", "10"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("seriesIterations() = %v, want %v", got, want)
	}
}

func TestReportCommand_Redis(t *testing.T) {
	// Skip if Redis not available
	const session = "cmd-report-test"
	sink, err := report.NewRedisSink(report.RedisConfig{URL: testRedisURL, Prefix: "screensim:", Session: session})
	if err != nil {
		t.Skip("Redis not available:", err)
	}
	defer sink.Close()

	ctx := context.Background()
	sink.Delete(ctx)
	defer sink.Delete(ctx)

	for i := 1; i <= 2; i++ {
		if err := sink.WriteRecord(ctx, evaluation.Record{Iteration: i, Proposed: 5, Accepted: i}); err != nil {
			t.Fatalf("WriteRecord() error = %v", err)
		}
	}
	h := report.NewHistories()
	h.Rank.Set("d1", 1, 4)
	h.Rank.Set("d1", 2, 1)
	h.Probability.Set("d1", 1, 0.125)
	if err := sink.WriteHistories(ctx, h); err != nil {
		t.Fatalf("WriteHistories() error = %v", err)
	}

	run := func(args ...string) string {
		t.Helper()
		cmd := withRootFlags(reportCmd())
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs(append([]string{"--redis-url", testRedisURL, "--session", session}, args...))
		if err := cmd.Execute(); err != nil {
			t.Fatalf("report %v error = %v", args, err)
		}
		return out.String()
	}

	var records []evaluation.Record
	if err := json.Unmarshal([]byte(run("--format", "json")), &records); err != nil {
		t.Fatalf("records are not JSON: %v", err)
	}
	if len(records) != 2 || records[1].Accepted != 2 {
		t.Errorf("records = %+v, want 2 in iteration order", records)
	}

	var series documentSeries
	if err := json.Unmarshal([]byte(run("--document", "d1", "--format", "json")), &series); err != nil {
		t.Fatalf("series is not JSON: %v", err)
	}
	if series.Ranks["2"] != 1 || series.Probabilities["1"] != 0.125 {
		t.Errorf("series = %+v", series)
	}
	if text := run("--document", "d1"); !strings.Contains(text, "ITERATION") {
		t.Errorf("series table = %q", text)
	}

	if text := run("--delete"); !strings.Contains(text, "Deleted session") {
		t.Errorf("delete output = %q", text)
	}
	left, err := sink.LoadRecords(ctx)
	if err != nil {
		t.Fatalf("LoadRecords() error = %v", err)
	}
	if len(left) != 0 {
		t.Errorf("%d records left after delete", len(left))
	}
}

func TestReportCommand_InvalidRedisURL(t *testing.T) {
	cmd := withRootFlags(reportCmd())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--session", "s1", "--redis-url", "invalid://url"})

	if err := cmd.Execute(); err == nil {
		t.Error("report with an invalid redis URL should fail")
	}
}

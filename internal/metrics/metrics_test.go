package metrics

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordIteration(t *testing.T) {
	m := New()

	m.RecordIteration(5, 2, 1)
	m.RecordIteration(5, 0, 0)

	if got := testutil.ToFloat64(m.Iterations); got != 2 {
		t.Errorf("Iterations = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Proposed); got != 10 {
		t.Errorf("Proposed = %v, want 10", got)
	}
	if got := testutil.ToFloat64(m.Accepted.WithLabelValues("tier1")); got != 2 {
		t.Errorf("Accepted[tier1] = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Accepted.WithLabelValues("tier2")); got != 1 {
		t.Errorf("Accepted[tier2] = %v, want 1", got)
	}
}

func TestRecordRerank(t *testing.T) {
	m := New()

	m.RecordRerank("ensemble", 10*time.Millisecond, nil)
	m.RecordRerank("ensemble", 20*time.Millisecond, errors.New("boom"))
	m.RecordRerankSkipped()

	if got := testutil.ToFloat64(m.Reranks.WithLabelValues("ensemble")); got != 1 {
		t.Errorf("Reranks = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RerankFailures.WithLabelValues("ensemble")); got != 1 {
		t.Errorf("RerankFailures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RerankSkipped); got != 1 {
		t.Errorf("RerankSkipped = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.RankingDuration); got != 1 {
		t.Errorf("RankingDuration series = %d, want 1", got)
	}
}

func TestSetProgress_IgnoresNaN(t *testing.T) {
	m := New()

	m.SetProgress(0.5, 4, math.NaN(), math.NaN())
	m.SetProgress(math.NaN(), math.NaN(), math.NaN(), math.NaN())

	if got := testutil.ToFloat64(m.Recall.WithLabelValues("tier1")); got != 0.5 {
		t.Errorf("Recall[tier1] = %v, want 0.5", got)
	}
	if got := testutil.ToFloat64(m.Cost.WithLabelValues("tier1")); got != 4 {
		t.Errorf("Cost[tier1] = %v, want 4", got)
	}
	if got := testutil.ToFloat64(m.Recall.WithLabelValues("tier2")); got != 0 {
		t.Errorf("Recall[tier2] = %v, want untouched 0", got)
	}
}

func TestCacheMetrics(t *testing.T) {
	m := New()

	m.RecordCacheHits("similarity", 3)
	m.RecordCacheMisses("similarity", 2)
	m.UpdateCacheSize("similarity", 7)

	if got := testutil.ToFloat64(m.CacheHits.WithLabelValues("similarity")); got != 3 {
		t.Errorf("CacheHits = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.CacheMisses.WithLabelValues("similarity")); got != 2 {
		t.Errorf("CacheMisses = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.CacheSize.WithLabelValues("similarity")); got != 7 {
		t.Errorf("CacheSize = %v, want 7", got)
	}
}

func TestRecordRetrieval(t *testing.T) {
	m := New()

	m.RecordRetrieval("file", 12, nil)
	m.RecordRetrieval("qdrant", 0, errors.New("unavailable"))

	if got := testutil.ToFloat64(m.Retrieved.WithLabelValues("file")); got != 12 {
		t.Errorf("Retrieved[file] = %v, want 12", got)
	}
	if got := testutil.ToFloat64(m.RetrievalError.WithLabelValues("qdrant")); got != 1 {
		t.Errorf("RetrievalError[qdrant] = %v, want 1", got)
	}
}

func TestRecordBusPublish(t *testing.T) {
	m := New()

	m.RecordBusPublish("screening.iteration.completed", time.Millisecond, nil)
	m.RecordBusPublish("screening.iteration.completed", time.Millisecond, nil)
	m.RecordBusPublish("screening.session.finished", time.Millisecond, errors.New("closed"))

	if got := testutil.ToFloat64(m.BusPublished.WithLabelValues("screening.iteration.completed")); got != 2 {
		t.Errorf("BusPublished = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.BusErrors.WithLabelValues("screening.session.finished")); got != 1 {
		t.Errorf("BusErrors = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.BusLatency); got != 2 {
		t.Errorf("BusLatency series = %d, want 2", got)
	}
}

func TestRecordReportWrite(t *testing.T) {
	m := New()

	m.RecordReportWrite("csv", nil)
	m.RecordReportWrite("redis", errors.New("connection refused"))

	if got := testutil.ToFloat64(m.ReportWrites.WithLabelValues("csv")); got != 1 {
		t.Errorf("ReportWrites[csv] = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ReportErrors.WithLabelValues("redis")); got != 1 {
		t.Errorf("ReportErrors[redis] = %v, want 1", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.RecordIteration(3, 1, 0)
	m.SetAUC(0.75)

	path := filepath.Join(t.TempDir(), "screensim.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	for _, want := range []string{
		"screensim_iterations_total 1",
		"screensim_documents_proposed_total 3",
		"screensim_ranking_auc 0.75",
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("textfile missing %q", want)
		}
	}

	if err := m.WriteTextfile(""); err != nil {
		t.Errorf("WriteTextfile(\"\") error = %v, want nil", err)
	}
}

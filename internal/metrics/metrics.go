// Package metrics exposes screening-session counters and gauges through a
// dedicated Prometheus registry.
package metrics

import (
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "screensim"

// Metrics holds all simulator metrics.
type Metrics struct {
	// Loop metrics
	Iterations      prometheus.Counter
	Proposed        prometheus.Counter
	Accepted        *prometheus.CounterVec // labels: tier
	Reranks         *prometheus.CounterVec // labels: strategy
	RerankSkipped   prometheus.Counter
	RerankFailures  *prometheus.CounterVec   // labels: strategy
	RankingDuration *prometheus.HistogramVec // labels: strategy

	// Evaluation metrics
	Recall *prometheus.GaugeVec // labels: tier
	Cost   *prometheus.GaugeVec // labels: tier
	AUC    prometheus.Gauge

	// Cache metrics
	CacheHits   *prometheus.CounterVec // labels: type
	CacheMisses *prometheus.CounterVec // labels: type
	CacheSize   *prometheus.GaugeVec   // labels: type

	// Retrieval metrics
	Retrieved      *prometheus.CounterVec // labels: source
	RetrievalError *prometheus.CounterVec // labels: source

	// Bus metrics
	BusPublished *prometheus.CounterVec   // labels: topic
	BusErrors    *prometheus.CounterVec   // labels: topic
	BusLatency   *prometheus.HistogramVec // labels: topic

	// Report metrics
	ReportWrites *prometheus.CounterVec // labels: sink
	ReportErrors *prometheus.CounterVec // labels: sink

	registry *prometheus.Registry
}

// New creates a metrics instance registered on its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	f := promauto.With(reg)

	return &Metrics{
		Iterations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "iterations_total",
			Help:      "Completed screening iterations",
		}),
		Proposed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_proposed_total",
			Help:      "Documents proposed to the judge",
		}),
		Accepted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_accepted_total",
			Help:      "Proposed documents judged relevant, by tier",
		}, []string{"tier"}),
		Reranks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reranks_total",
			Help:      "Full ranking recomputations",
		}, []string{"strategy"}),
		RerankSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reranks_skipped_total",
			Help:      "Iterations that reused the previous ranking because no new relevant document was found",
		}),
		RerankFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rerank_failures_total",
			Help:      "Ranking recomputations that failed and kept the previous ranking",
		}, []string{"strategy"}),
		RankingDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ranking_duration_seconds",
			Help:      "Time to compute a full ranking",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"strategy"}),
		Recall: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "recall",
			Help:      "Current recall, by tier",
		}, []string{"tier"}),
		Cost: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cost",
			Help:      "Documents proposed per relevant document found, by tier",
		}, []string{"tier"}),
		AUC: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ranking_auc",
			Help:      "AUC of the latest ranking against ground truth",
		}),
		CacheHits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Cache hits",
		}, []string{"type"}),
		CacheMisses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Cache misses",
		}, []string{"type"}),
		CacheSize: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_size",
			Help:      "Cached entries",
		}, []string{"type"}),
		Retrieved: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_retrieved_total",
			Help:      "Documents fetched from retrieval sources",
		}, []string{"source"}),
		RetrievalError: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_errors_total",
			Help:      "Failed retrieval queries",
		}, []string{"source"}),
		BusPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bus_events_published_total",
			Help:      "Events published to the bus",
		}, []string{"topic"}),
		BusErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bus_publish_errors_total",
			Help:      "Failed bus publishes",
		}, []string{"topic"}),
		BusLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bus_publish_duration_seconds",
			Help:      "Bus publish latency",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"topic"}),
		ReportWrites: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_writes_total",
			Help:      "Report rows and tables written, by sink",
		}, []string{"sink"}),
		ReportErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_errors_total",
			Help:      "Failed report writes, by sink",
		}, []string{"sink"}),
		registry: reg,
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordIteration records one completed iteration.
func (m *Metrics) RecordIteration(proposed, acceptedTier1, acceptedTier2 int) {
	m.Iterations.Inc()
	m.Proposed.Add(float64(proposed))
	m.Accepted.WithLabelValues("tier1").Add(float64(acceptedTier1))
	m.Accepted.WithLabelValues("tier2").Add(float64(acceptedTier2))
}

// RecordRerank records a ranking recomputation and how long it took.
func (m *Metrics) RecordRerank(strategy string, d time.Duration, err error) {
	m.RankingDuration.WithLabelValues(strategy).Observe(d.Seconds())
	if err != nil {
		m.RerankFailures.WithLabelValues(strategy).Inc()
		return
	}
	m.Reranks.WithLabelValues(strategy).Inc()
}

// RecordRerankSkipped records an iteration that reused the previous ranking.
func (m *Metrics) RecordRerankSkipped() {
	m.RerankSkipped.Inc()
}

// SetProgress updates the recall and cost gauges. NaN values (nothing
// found yet) leave the gauge unchanged.
func (m *Metrics) SetProgress(recallTier1, costTier1, recallTier2, costTier2 float64) {
	setIfNumber(m.Recall.WithLabelValues("tier1"), recallTier1)
	setIfNumber(m.Cost.WithLabelValues("tier1"), costTier1)
	setIfNumber(m.Recall.WithLabelValues("tier2"), recallTier2)
	setIfNumber(m.Cost.WithLabelValues("tier2"), costTier2)
}

// SetAUC updates the ranking AUC gauge.
func (m *Metrics) SetAUC(auc float64) {
	setIfNumber(m.AUC, auc)
}

// RecordRetrieval records a retrieval query outcome.
func (m *Metrics) RecordRetrieval(source string, docs int, err error) {
	if err != nil {
		m.RetrievalError.WithLabelValues(source).Inc()
		return
	}
	m.Retrieved.WithLabelValues(source).Add(float64(docs))
}

// RecordCacheHits records n cache hits.
func (m *Metrics) RecordCacheHits(cacheType string, n int) {
	m.CacheHits.WithLabelValues(cacheType).Add(float64(n))
}

// RecordCacheMisses records n cache misses.
func (m *Metrics) RecordCacheMisses(cacheType string, n int) {
	m.CacheMisses.WithLabelValues(cacheType).Add(float64(n))
}

// UpdateCacheSize sets the current cache size.
func (m *Metrics) UpdateCacheSize(cacheType string, size int) {
	m.CacheSize.WithLabelValues(cacheType).Set(float64(size))
}

// RecordBusPublish records a bus publish.
func (m *Metrics) RecordBusPublish(topic string, latency time.Duration, err error) {
	m.BusLatency.WithLabelValues(topic).Observe(latency.Seconds())
	if err != nil {
		m.BusErrors.WithLabelValues(topic).Inc()
		return
	}
	m.BusPublished.WithLabelValues(topic).Inc()
}

// RecordReportWrite records a report sink write.
func (m *Metrics) RecordReportWrite(sink string, err error) {
	if err != nil {
		m.ReportErrors.WithLabelValues(sink).Inc()
		return
	}
	m.ReportWrites.WithLabelValues(sink).Inc()
}

func setIfNumber(g prometheus.Gauge, v float64) {
	if math.IsNaN(v) {
		return
	}
	g.Set(v)
}

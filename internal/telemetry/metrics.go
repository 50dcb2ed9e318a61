// Package telemetry exposes the Prometheus counters for retrieval, the
// index cache and outbound model calls.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result labels.
const (
	ResultOK          = "ok"
	ResultError       = "error"
	ResultNotIndexed  = "not_indexed"
	ResultHit         = "hit"
	ResultMiss        = "miss"
	ResultRetry       = "retry"
	ResultUnavailable = "unavailable"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	retrievals    *prometheus.CounterVec
	retrievalTime prometheus.Histogram
	indexCache    *prometheus.CounterVec
	externalCalls *prometheus.CounterVec
	indexedDocs   prometheus.Counter
	indexedChunks prometheus.Counter
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		retrievals: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paperqa_retrievals_total",
				Help: "Retrieval requests by result",
			},
			[]string{"result"},
		),
		retrievalTime: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "paperqa_retrieval_seconds",
				Help:    "Retrieval latency including query embedding",
				Buckets: prometheus.DefBuckets,
			},
		),
		indexCache: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paperqa_index_cache_total",
				Help: "Loaded-index cache lookups by result",
			},
			[]string{"result"},
		),
		externalCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paperqa_external_calls_total",
				Help: "Embedding and completion calls by service and result",
			},
			[]string{"service", "result"},
		),
		indexedDocs: f.NewCounter(
			prometheus.CounterOpts{
				Name: "paperqa_indexed_documents_total",
				Help: "Documents indexed by this process",
			},
		),
		indexedChunks: f.NewCounter(
			prometheus.CounterOpts{
				Name: "paperqa_indexed_chunks_total",
				Help: "Chunks embedded and stored by this process",
			},
		),
	}
}

func (m *Metrics) ObserveRetrieval(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.retrievals.WithLabelValues(result).Inc()
	m.retrievalTime.Observe(d.Seconds())
}

func (m *Metrics) IndexCache(result string) {
	if m == nil {
		return
	}
	m.indexCache.WithLabelValues(result).Inc()
}

func (m *Metrics) ExternalCall(service, result string) {
	if m == nil {
		return
	}
	m.externalCalls.WithLabelValues(service, result).Inc()
}

func (m *Metrics) Indexed(chunks int) {
	if m == nil {
		return
	}
	m.indexedDocs.Inc()
	m.indexedChunks.Add(float64(chunks))
}

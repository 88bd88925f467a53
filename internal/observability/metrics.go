package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instruments for the query and ingestion paths.
type Metrics struct {
	QueriesTotal      *prometheus.CounterVec
	AgentAttempts     prometheus.Histogram
	RetrievalDuration prometheus.Histogram
	IngestIndexed     prometheus.Counter
	IngestSkipped     prometheus.Counter
	IngestRuns        *prometheus.CounterVec
}

// NewMetrics registers and returns the service metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		QueriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ragsql_queries_total",
			Help: "Natural language queries handled, by outcome.",
		}, []string{"outcome"}),
		AgentAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ragsql_agent_attempts",
			Help:    "Generate-execute attempts per query.",
			Buckets: []float64{1, 2, 3, 4, 5},
		}),
		RetrievalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ragsql_retrieval_duration_seconds",
			Help:    "Context retrieval latency.",
			Buckets: prometheus.DefBuckets,
		}),
		IngestIndexed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ragsql_ingest_documents_indexed_total",
			Help: "Schema documents embedded and stored across ingestion runs.",
		}),
		IngestSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ragsql_ingest_documents_skipped_total",
			Help: "Schema documents skipped due to embedding failures.",
		}),
		IngestRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ragsql_ingest_runs_total",
			Help: "Ingestion runs, by outcome.",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.QueriesTotal,
			m.AgentAttempts,
			m.RetrievalDuration,
			m.IngestIndexed,
			m.IngestSkipped,
			m.IngestRuns,
		)
	}
	return m
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "qdrant_nodes"

// Node invocation metrics.
var (
	NodeInvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_invocations_total",
			Help:      "Total node invocations by node type and status",
		},
		[]string{"node", "status"},
	)

	NodeInvocationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "node_invocation_duration_seconds",
			Help:      "Node invocation duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"node"},
	)
)

// Qdrant REST client metrics.
var (
	QdrantRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "qdrant_requests_total",
			Help:      "Total requests sent to Qdrant by operation and status",
		},
		[]string{"operation", "status"},
	)

	QdrantRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "qdrant_request_duration_seconds",
			Help:      "Qdrant request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)
)

// Embedding provider metrics.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"model", "status"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_tokens_total",
			Help:      "Total embedding tokens consumed",
		},
		[]string{"model"},
	)
)

var registered bool

// Register registers all collectors on the default registry. Must be called once from main.
func Register() {
	if registered {
		return
	}
	prometheus.MustRegister(
		NodeInvocationsTotal,
		NodeInvocationDuration,
		QdrantRequestsTotal,
		QdrantRequestDuration,
		EmbeddingRequestsTotal,
		EmbeddingTokensTotal,
		httpRequestDuration,
		httpRequestsTotal,
	)
	registered = true
}

// Status maps an error to a status label.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveNode records one node invocation.
func ObserveNode(node string, start time.Time, err error) {
	NodeInvocationsTotal.WithLabelValues(node, Status(err)).Inc()
	NodeInvocationDuration.WithLabelValues(node).Observe(time.Since(start).Seconds())
}

// ObserveQdrant records one request against Qdrant.
func ObserveQdrant(op string, start time.Time, err error) {
	QdrantRequestsTotal.WithLabelValues(op, Status(err)).Inc()
	QdrantRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

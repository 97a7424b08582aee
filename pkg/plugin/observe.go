package plugin

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// pluginMetrics holds prometheus metrics registered for the plugin.
type pluginMetrics struct {
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

func newPluginMetrics(reg prometheus.Registerer) (*pluginMetrics, error) {
	m := &pluginMetrics{
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qdrant_nodes",
			Subsystem: "plugin",
			Name:      "invocations_total",
			Help:      "Total node invocations by node type and status.",
		}, []string{"node", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "qdrant_nodes",
			Subsystem: "plugin",
			Name:      "invocation_duration_seconds",
			Help:      "Node invocation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"node"}),
	}
	if err := registerOrReuse(reg, &m.invocations); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers a collector or reuses an existing one.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("qdrant plugin: metric already registered with incompatible type: %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("qdrant plugin: register metric: %w", err)
	}
	return nil
}

// observer provides metrics for plugin invocations. Logging happens inside
// the nodes through the logger carried by the context.
type observer struct {
	metrics *pluginMetrics
}

func newObserver(reg prometheus.Registerer) (*observer, error) {
	if reg == nil {
		return &observer{}, nil
	}
	m, err := newPluginMetrics(reg)
	if err != nil {
		return nil, err
	}
	return &observer{metrics: m}, nil
}

func (o *observer) observe(nodeType string, start time.Time, err error) {
	if o == nil || o.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	o.metrics.invocations.WithLabelValues(nodeType, status).Inc()
	o.metrics.duration.WithLabelValues(nodeType).Observe(time.Since(start).Seconds())
}

func nopIfNil(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

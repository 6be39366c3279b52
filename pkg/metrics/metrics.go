// Package metrics records form lifecycle telemetry with Prometheus. A
// Collector satisfies orchestrator.Observer and owns its own registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/goliatone/go-formbind/pkg/orchestrator"
)

// Collector gathers orchestrator metrics.
type Collector struct {
	registry *prometheus.Registry

	loads        *prometheus.CounterVec
	loadLatency  *prometheus.HistogramVec
	dictionaries *prometheus.CounterVec
	dictLatency  *prometheus.HistogramVec
	mutations    *prometheus.CounterVec
	mutLatency   *prometheus.HistogramVec
	validations  *prometheus.CounterVec
	transitions  *prometheus.CounterVec
}

var _ orchestrator.Observer = (*Collector)(nil)

// NewCollector creates a collector under namespace ("formbind" when empty).
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "formbind"
	}

	c := &Collector{registry: prometheus.NewRegistry()}

	c.loads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "entity",
			Name:      "loads_total",
			Help:      "Entity fetches by resource and result",
		},
		[]string{"resource", "result"},
	)
	c.loadLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "entity",
			Name:      "load_duration_seconds",
			Help:      "Time taken to fetch and decode an entity",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"resource"},
	)
	c.dictionaries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dictionary",
			Name:      "resolutions_total",
			Help:      "Dictionary resolutions by source and result (ok, cached, error)",
		},
		[]string{"source", "result"},
	)
	c.dictLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dictionary",
			Name:      "fetch_duration_seconds",
			Help:      "Time taken to fetch a dictionary",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"source"},
	)
	c.mutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mutation",
			Name:      "total",
			Help:      "Create, update, and delete calls by result",
		},
		[]string{"resource", "op", "result"},
	)
	c.mutLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "mutation",
			Name:      "duration_seconds",
			Help:      "Time taken by create, update, and delete calls",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"resource", "op"},
	)
	c.validations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "runs_total",
			Help:      "Validation passes by result",
		},
		[]string{"resource", "result"},
	)
	c.transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "form",
			Name:      "transitions_total",
			Help:      "Status transitions by target status",
		},
		[]string{"resource", "to"},
	)

	c.registry.MustRegister(
		c.loads,
		c.loadLatency,
		c.dictionaries,
		c.dictLatency,
		c.mutations,
		c.mutLatency,
		c.validations,
		c.transitions,
	)
	return c
}

// Registry returns the Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler exposes the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveLoad implements orchestrator.Observer.
func (c *Collector) ObserveLoad(resource string, err error, elapsed time.Duration) {
	c.loads.WithLabelValues(resource, result(err)).Inc()
	c.loadLatency.WithLabelValues(resource).Observe(elapsed.Seconds())
}

// ObserveDictionary implements orchestrator.Observer.
func (c *Collector) ObserveDictionary(source string, cached bool, err error, elapsed time.Duration) {
	if cached {
		c.dictionaries.WithLabelValues(source, "cached").Inc()
		return
	}
	c.dictionaries.WithLabelValues(source, result(err)).Inc()
	c.dictLatency.WithLabelValues(source).Observe(elapsed.Seconds())
}

// ObserveMutation implements orchestrator.Observer.
func (c *Collector) ObserveMutation(resource, op string, err error, elapsed time.Duration) {
	c.mutations.WithLabelValues(resource, op, result(err)).Inc()
	c.mutLatency.WithLabelValues(resource, op).Observe(elapsed.Seconds())
}

// ObserveValidation implements orchestrator.Observer.
func (c *Collector) ObserveValidation(resource string, failures int) {
	outcome := "valid"
	if failures > 0 {
		outcome = "invalid"
	}
	c.validations.WithLabelValues(resource, outcome).Inc()
}

// ObserveTransition implements orchestrator.Observer.
func (c *Collector) ObserveTransition(resource string, _, to orchestrator.Status) {
	c.transitions.WithLabelValues(resource, string(to)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

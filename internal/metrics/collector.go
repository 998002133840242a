// Package metrics exposes Prometheus counters for link creation, redirects,
// click recording and destination health.
//
// All recording methods are safe on a nil *Collector, so components can run with
// metrics disabled without nil checks at every call site.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Redirect outcomes.
const (
	OutcomeFound    = "found"
	OutcomeNotFound = "not_found"
	OutcomeExpired  = "expired"
	OutcomeError    = "error"
)

// Collector owns the service's metrics and the registry they are registered on.
type Collector struct {
	registry *prometheus.Registry

	linksCreated     *prometheus.CounterVec
	createFailures   *prometheus.CounterVec
	redirects        *prometheus.CounterVec
	clicksRecorded   prometheus.Counter
	clickFailures    prometheus.Counter
	destinationsDown prometheus.Gauge
}

// NewCollector registers all metrics under namespace on registry. A nil registry
// gets a fresh one, which keeps tests independent of the global default.
func NewCollector(namespace string, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if namespace == "" {
		namespace = "shortlinks"
	}

	c := &Collector{
		registry: registry,
		linksCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_created_total",
			Help:      "Links created, by code origin (custom or generated).",
		}, []string{"origin"}),
		createFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "link_create_failures_total",
			Help:      "Rejected or failed link creations, by reason.",
		}, []string{"reason"}),
		redirects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redirects_total",
			Help:      "Resolve requests, by outcome.",
		}, []string{"outcome"}),
		clicksRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clicks_recorded_total",
			Help:      "Clicks persisted to the link store.",
		}),
		clickFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "click_record_failures_total",
			Help:      "Clicks that could not be persisted.",
		}),
		destinationsDown: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "destinations_inaccessible",
			Help:      "Destinations that failed the last health check.",
		}),
	}

	registry.MustRegister(
		c.linksCreated,
		c.createFailures,
		c.redirects,
		c.clicksRecorded,
		c.clickFailures,
		c.destinationsDown,
	)
	return c
}

// LinkCreated counts a successful creation.
func (c *Collector) LinkCreated(custom bool) {
	if c == nil {
		return
	}
	origin := "generated"
	if custom {
		origin = "custom"
	}
	c.linksCreated.WithLabelValues(origin).Inc()
}

// CreateFailed counts a failed creation.
func (c *Collector) CreateFailed(reason string) {
	if c == nil {
		return
	}
	c.createFailures.WithLabelValues(reason).Inc()
}

// Redirect counts a resolve request with one of the Outcome* values.
func (c *Collector) Redirect(outcome string) {
	if c == nil {
		return
	}
	c.redirects.WithLabelValues(outcome).Inc()
}

// ObserveClick counts one click recording attempt.
func (c *Collector) ObserveClick(err error) {
	if c == nil {
		return
	}
	if err != nil {
		c.clickFailures.Inc()
		return
	}
	c.clicksRecorded.Inc()
}

// SetDestinationsDown reports the result of the last monitor pass.
func (c *Collector) SetDestinationsDown(n int) {
	if c == nil {
		return
	}
	c.destinationsDown.Set(float64(n))
}

// Registry returns the registry the collector writes to.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}

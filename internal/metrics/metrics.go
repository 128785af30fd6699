// Package metrics exposes engine counters in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/btouchard/nbnotify/internal/notify"
)

const namespace = "nbnotify"

// Collector implements notify.Metrics on a private Prometheus registry.
type Collector struct {
	registry *prometheus.Registry

	registrations *prometheus.CounterVec
	resolutions   *prometheus.CounterVec
	deliveries    *prometheus.CounterVec
	durations     *prometheus.HistogramVec
	pending       prometheus.Gauge
}

// New creates a Collector with its own registry, including the Go runtime
// and process collectors.
func New() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Cell registrations accepted, by mode.",
		}, []string{"mode"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Cells resolved, by trigger and status.",
		}, []string{"trigger", "status"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Dispatch decisions, by channel and result.",
		}, []string{"channel", "result"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "delivery_duration_seconds",
			Help:      "Time spent sending through a channel, including failed sends.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"channel"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_registrations",
			Help:      "Registrations awaiting completion or timeout.",
		}),
	}

	reg.MustRegister(
		c.registrations,
		c.resolutions,
		c.deliveries,
		c.durations,
		c.pending,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registered counts an accepted registration.
func (c *Collector) Registered(mode notify.Mode) {
	c.registrations.WithLabelValues(string(mode)).Inc()
}

// Resolved counts a resolved cell.
func (c *Collector) Resolved(trigger string, status notify.Status) {
	c.resolutions.WithLabelValues(trigger, string(status)).Inc()
}

// Delivered counts a channel attempt or a suppression (empty channel).
func (c *Collector) Delivered(channel, result string) {
	if channel == "" {
		channel = "none"
	}
	c.deliveries.WithLabelValues(channel, result).Inc()
}

// DeliveryDuration observes how long one channel send took.
func (c *Collector) DeliveryDuration(channel string, d time.Duration) {
	c.durations.WithLabelValues(channel).Observe(d.Seconds())
}

// Pending sets the current number of pending registrations.
func (c *Collector) Pending(n int) {
	c.pending.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}


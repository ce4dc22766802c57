package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter publishes gateway metrics on its own Prometheus registry.
// A nil Exporter is valid and records nothing.
type Exporter struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	rejections      *prometheus.CounterVec
	breakerState    *prometheus.GaugeVec
	breakerTrips    *prometheus.CounterVec
	backendUp       *prometheus.GaugeVec
}

func NewExporter() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Requests forwarded to a route, by response status code.",
		}, []string{"route", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Time spent serving forwarded requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_breaker_rejections_total",
			Help: "Requests rejected because the route's circuit breaker was open.",
		}, []string{"route"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gateway_breaker_state",
			Help: "Circuit breaker state by route key: 0=closed, 1=open.",
		}, []string{"route"}),
		breakerTrips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_breaker_trips_total",
			Help: "Transitions of a route's circuit breaker into the open state.",
		}, []string{"route"}),
		backendUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gateway_backend_up",
			Help: "Backend health as seen by the health checker: 1=healthy, 0=unhealthy.",
		}, []string{"backend"}),
	}

	e.registry.MustRegister(
		e.requests,
		e.requestDuration,
		e.rejections,
		e.breakerState,
		e.breakerTrips,
		e.backendUp,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return e
}

// Handler serves the registry in the Prometheus exposition format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{Registry: e.registry})
}

func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

func (e *Exporter) observeRequest(route string, duration time.Duration, statusCode int) {
	if e == nil {
		return
	}
	e.requests.WithLabelValues(route, strconv.Itoa(statusCode)).Inc()
	e.requestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func (e *Exporter) observeRejection(route string) {
	if e == nil {
		return
	}
	e.rejections.WithLabelValues(route).Inc()
}

func (e *Exporter) observeBreakerState(route string, open bool) {
	if e == nil {
		return
	}
	if open {
		e.breakerState.WithLabelValues(route).Set(1)
		e.breakerTrips.WithLabelValues(route).Inc()
		return
	}
	e.breakerState.WithLabelValues(route).Set(0)
}

func (e *Exporter) observeHealth(backend string, healthy bool) {
	if e == nil {
		return
	}
	value := 0.0
	if healthy {
		value = 1
	}
	e.backendUp.WithLabelValues(backend).Set(value)
}

package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/spigell/marketsync/internal/upstream"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "marketsync"

// Metrics groups the collectors of the service. All methods are no-ops on a nil receiver.
type Metrics struct {
	Registry *prometheus.Registry

	CacheLookups     *prometheus.CounterVec
	UpstreamRequests *prometheus.CounterVec
	Repairs          *prometheus.CounterVec
	Placeholders     prometheus.Counter
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_cache_lookups_total",
			Help:      "Analysis cache lookups by result.",
		}, []string{"result"}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Outbound upstream calls by service and outcome.",
		}, []string{"service", "outcome"}),
		Repairs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_repairs_total",
			Help:      "Repair round-trips by result.",
		}, []string{"result"}),
		Placeholders: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_placeholders_total",
			Help:      "Analyses answered with the low-confidence placeholder.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Handled HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"route"}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.CacheLookups,
		m.UpstreamRequests,
		m.Repairs,
		m.Placeholders,
		m.HTTPRequests,
		m.HTTPDuration,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveUpstream(service string, err error) {
	if m == nil {
		return
	}
	m.UpstreamRequests.WithLabelValues(service, Outcome(err)).Inc()
}

func (m *Metrics) Repair(recovered bool) {
	if m == nil {
		return
	}
	result := "failed"
	if recovered {
		result = "recovered"
	}
	m.Repairs.WithLabelValues(result).Inc()
}

func (m *Metrics) Placeholder() {
	if m == nil {
		return
	}
	m.Placeholders.Inc()
}

func (m *Metrics) ObserveHTTP(route string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Outcome labels an upstream call result.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}

	var rl *upstream.RateLimitError
	var upErr *upstream.Error
	switch {
	case errors.As(err, &rl):
		return "rate_limited"
	case errors.As(err, &upErr):
		return "bad_status"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}

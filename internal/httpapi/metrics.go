package httpapi

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the prometheus instruments for the HTTP surface.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	captureAccepted prometheus.Counter
	searchResults   prometheus.Counter
}

// NewMetrics creates the instruments on a private registry, so tests can
// build servers independently.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recalld_http_requests_total",
			Help: "HTTP requests by method, path and status code.",
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "recalld_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"method", "path"}),
		captureAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recalld_capture_accepted_total",
			Help: "Knowledge records accepted by capture passes.",
		}),
		searchResults: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recalld_search_results_total",
			Help: "Results returned by search requests.",
		}),
	}

	registry.MustRegister(m.requestsTotal, m.requestDuration, m.captureAccepted, m.searchResults)
	return m
}

// middleware records request counts and latency per route.
func (m *Metrics) middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)

		path := c.Path()
		if path == "" {
			path = c.Request().URL.Path
		}
		m.requestsTotal.WithLabelValues(
			c.Request().Method,
			path,
			strconv.Itoa(c.Response().Status),
		).Inc()
		m.requestDuration.WithLabelValues(c.Request().Method, path).
			Observe(time.Since(start).Seconds())
		return err
	}
}

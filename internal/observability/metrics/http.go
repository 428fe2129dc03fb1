package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics captures low-cardinality HTTP server metrics.
type HTTPMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestsTotal   *prometheus.CounterVec
	inFlight        prometheus.Gauge
}

// NewHTTPMetrics creates and registers HTTP metrics instruments.
func NewHTTPMetrics() (*HTTPMetrics, error) {
	m := &HTTPMetrics{
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_server_duration_seconds",
			Help:    "HTTP request duration by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_server_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_server_in_flight",
			Help: "HTTP requests currently being served.",
		}),
	}

	for _, c := range []prometheus.Collector{m.requestDuration, m.requestsTotal, m.inFlight} {
		if err := prometheus.Register(c); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				_ = are
				continue
			}
			return nil, err
		}
	}
	return m, nil
}

// GinMiddleware records request duration and in-flight metrics.
func GinMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		m.inFlight.Inc()
		start := time.Now()
		c.Next()
		m.inFlight.Dec()

		route := normalizeRoute(c.FullPath())
		status := strconv.Itoa(c.Writer.Status())
		m.requestDuration.WithLabelValues(route, status).Observe(time.Since(start).Seconds())
		m.requestsTotal.WithLabelValues(route, c.Request.Method, status).Inc()
	}
}

func normalizeRoute(route string) string {
	route = strings.TrimSpace(route)
	if route == "" {
		return "unknown"
	}
	return route
}

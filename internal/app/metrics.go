package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hearth_http_requests_total",
		Help: "Total HTTP requests by method, path prefix and status.",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hearth_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// metricsPath collapses the request path to its first two segments so ids do
// not explode label cardinality.
func metricsPath(parts []string) string {
	switch {
	case len(parts) == 0:
		return "/"
	case len(parts) == 1:
		return "/" + parts[0]
	default:
		return "/" + parts[0] + "/" + parts[1]
	}
}

package cromwell

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cromwell_client_requests_total",
			Help: "Total number of engine API requests.",
		},
		[]string{"endpoint", "method", "status"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cromwell_client_request_duration_seconds",
			Help:    "Engine API request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method"},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal)
	prometheus.MustRegister(requestDuration)
}

// observeRequest records one completed request. Labels use the endpoint's
// path template (not the interpolated path) to avoid unbounded cardinality.
func observeRequest(template, method string, status int, d time.Duration) {
	requestsTotal.WithLabelValues(template, method, strconv.Itoa(status)).Inc()
	requestDuration.WithLabelValues(template, method).Observe(d.Seconds())
}

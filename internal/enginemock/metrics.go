package enginemock

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var serverRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "enginemock_http_requests_total",
		Help: "Total number of HTTP requests served by the mock engine.",
	},
	[]string{"method", "route", "status"},
)

func init() {
	prometheus.MustRegister(serverRequests)
}

// metricsMiddleware counts served requests by chi route pattern, keeping
// label cardinality bounded regardless of workflow IDs in the path.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		serverRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
	})
}

// metricsHandler returns the Prometheus metrics handler.
func metricsHandler() http.Handler {
	return promhttp.Handler()
}

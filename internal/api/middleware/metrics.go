package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/arsenmarkotskyi/tt-event-management/internal/metrics"
)

// HTTPMetrics records request counts and latency for one route. The route
// label is the registration pattern, not the raw path, so path parameters do
// not explode cardinality.
func HTTPMetrics(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}

		metrics.HTTPRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

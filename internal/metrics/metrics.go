package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ttevents"

// Registry is the Prometheus registry for all server metrics.
var Registry = prometheus.NewRegistry()

// AppInfo exposes version information as labels (value always 1).
var AppInfo = promauto.With(Registry).NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "app_info",
		Help:      "Application version information (always set to 1, version info in labels)",
	},
	[]string{"version", "commit", "build_date"},
)

// HTTPRequestsTotal counts handled requests by route pattern, method and status.
var HTTPRequestsTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests handled",
	},
	[]string{"route", "method", "status"},
)

// HTTPRequestDuration tracks request latency by route pattern and method.
var HTTPRequestDuration = promauto.With(Registry).NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	},
	[]string{"route", "method"},
)

// RegistrationsTotal counts registration attempts by outcome.
var RegistrationsTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of event registration attempts",
	},
	[]string{"outcome"}, // outcome: created|duplicate|full|past|error
)

// EmailsSentTotal counts confirmation email deliveries by outcome.
var EmailsSentTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "emails_sent_total",
		Help:      "Total number of confirmation emails attempted",
	},
	[]string{"outcome"}, // outcome: sent|skipped|error
)

// RateLimitedTotal counts requests rejected by the rate limiter.
var RateLimitedTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Total number of requests rejected by rate limiting",
	},
	[]string{"tier"}, // tier: public|auth|login
)

// Init registers runtime collectors and records version information.
func Init(version, commit, buildDate string) {
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	AppInfo.WithLabelValues(version, commit, buildDate).Set(1)
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name:        "neobridge_build_info",
			Help:        "Build information",
			ConstLabels: prometheus.Labels{"component": "bridge"},
		},
		[]string{"date", "sha", "version"},
	)

	requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neobridge_requests_total",
			Help: "Number of bridge requests per operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "neobridge_request_duration_seconds",
			Help:    "Bridge request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	requestsInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "neobridge_requests_inflight",
			Help: "Number of bridge requests currently executing",
		},
	)

	sessionConnects = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "neobridge_session_connects_total",
			Help: "Number of NeoConsole session (re)connections",
		},
	)
)

// Register registers all metrics with the provided registerer.
func Register(r prometheus.Registerer) {
	r.MustRegister(buildInfo, requests, requestDuration, requestsInflight, sessionConnects)
}

// SetBuildInfo sets the build info metric.
func SetBuildInfo(version, sha, date string) {
	buildInfo.WithLabelValues(date, sha, version).Set(1)
}

// RequestStart increments the in-flight gauge.
func RequestStart() { requestsInflight.Inc() }

// RequestEnd records one finished request with its outcome label
// ("ok" or the error kind) and duration.
func RequestEnd(op, outcome string, d time.Duration) {
	requestsInflight.Dec()
	requests.WithLabelValues(op, outcome).Inc()
	requestDuration.WithLabelValues(op).Observe(d.Seconds())
}

// SessionConnect counts one console connection attempt that succeeded.
func SessionConnect() { sessionConnects.Inc() }

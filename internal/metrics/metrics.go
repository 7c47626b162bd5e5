package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Screen metrics
	screenRuns        *prometheus.CounterVec
	screenDuration    prometheus.Histogram
	providerRequests  *prometheus.CounterVec
	providerDuration  *prometheus.HistogramVec
	contractsRanked   prometheus.Counter
	contractsExcluded *prometheus.CounterVec
	underlyingErrors  *prometheus.CounterVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	// Screen metrics
	r.screenRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "premia_screen_runs_total",
			Help: "Total number of screen runs by result status",
		},
		[]string{"status"},
	)
	r.screenDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "premia_screen_duration_seconds",
			Help:    "Screen run duration in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)
	r.providerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "premia_provider_requests_total",
			Help: "Total number of provider calls by role, provider and status",
		},
		[]string{"role", "provider", "status"},
	)
	r.providerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "premia_provider_request_duration_seconds",
			Help:    "Provider call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"role", "provider"},
	)
	r.contractsRanked = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "premia_contracts_ranked_total",
			Help: "Total number of contracts returned in ranked results",
		},
	)
	r.contractsExcluded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "premia_contracts_excluded_total",
			Help: "Total number of contracts excluded by reason",
		},
		[]string{"reason"},
	)
	r.underlyingErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "premia_underlying_errors_total",
			Help: "Total number of per-underlying provider failures",
		},
		[]string{"stage", "code"},
	)

	reg.MustRegister(r.screenRuns)
	reg.MustRegister(r.screenDuration)
	reg.MustRegister(r.providerRequests)
	reg.MustRegister(r.providerDuration)
	reg.MustRegister(r.contractsRanked)
	reg.MustRegister(r.contractsExcluded)
	reg.MustRegister(r.underlyingErrors)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// ProviderCall records one provider call; status is "ok" or an error code.
func (r *Registry) ProviderCall(role, name, status string, d time.Duration) {
	r.providerRequests.WithLabelValues(role, name, status).Inc()
	r.providerDuration.WithLabelValues(role, name).Observe(d.Seconds())
}

// ContractExcluded records a contract left out of the ranking.
func (r *Registry) ContractExcluded(reason string) {
	r.contractsExcluded.WithLabelValues(reason).Inc()
}

// UnderlyingError records a per-underlying provider failure.
func (r *Registry) UnderlyingError(stage, code string) {
	r.underlyingErrors.WithLabelValues(stage, code).Inc()
}

// RunCompleted records a finished screen run.
func (r *Registry) RunCompleted(status string, d time.Duration, ranked int) {
	r.screenRuns.WithLabelValues(status).Inc()
	r.screenDuration.Observe(d.Seconds())
	r.contractsRanked.Add(float64(ranked))
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}

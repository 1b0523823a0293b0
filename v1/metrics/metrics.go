package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// LockAttempts tracks TryLock calls by result (acquired, held, error).
	LockAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "redisdemo_lock_attempts_total",
		Help: "Total number of lock acquisition attempts",
	}, []string{"result"})
	// LockSectionFailures counts protected regions that returned an error.
	LockSectionFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "redisdemo_lock_section_failures_total",
		Help: "Total number of failed critical sections run under a lock",
	})
	// StreamAppended tracks events appended to streams.
	StreamAppended = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "redisdemo_stream_appended_total",
		Help: "Total number of events appended to streams",
	})
	// StreamDelivered tracks events delivered to consumer groups, including claims.
	StreamDelivered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "redisdemo_stream_delivered_total",
		Help: "Total number of events delivered to consumers",
	})
	// StreamAcknowledged tracks events removed from pending-entries lists.
	StreamAcknowledged = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "redisdemo_stream_acknowledged_total",
		Help: "Total number of acknowledged events",
	})
	// TailWatchers reports the number of live stream tails.
	TailWatchers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "redisdemo_stream_tail_watchers",
		Help: "Current number of live stream tail connections",
	})
	// HTTPRequests tracks served requests by route pattern, method and status.
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "redisdemo_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"route", "method", "status"})
	// HTTPLatency observes request latency by route pattern.
	HTTPLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "redisdemo_http_request_duration_seconds",
		Help:    "Latency of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
)

// NewRegistry creates a new Prometheus registry.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// RegisterCoreMetrics registers the service metrics on the provided registry.
func RegisterCoreMetrics(reg prometheus.Registerer) {
	reg.MustRegister(
		LockAttempts,
		LockSectionFailures,
		StreamAppended,
		StreamDelivered,
		StreamAcknowledged,
		TailWatchers,
		HTTPRequests,
		HTTPLatency,
	)
}

package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the bizdash collectors.
	Registry = prometheus.NewRegistry()

	callAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bizdash",
			Subsystem: "orchestrator",
			Name:      "attempts_total",
			Help:      "Outbound API attempts by outcome kind.",
		},
		[]string{"class", "kind"},
	)

	callDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bizdash",
			Subsystem: "orchestrator",
			Name:      "call_duration_seconds",
			Help:      "Duration of complete calls including retries.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
		[]string{"class", "outcome"},
	)

	replays = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bizdash",
			Subsystem: "orchestrator",
			Name:      "replays_total",
			Help:      "Calls replayed after a credential refresh.",
		},
		[]string{"result"},
	)

	refreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bizdash",
			Subsystem: "auth",
			Name:      "refreshes_total",
			Help:      "Credential refresh network calls.",
		},
		[]string{"success"},
	)

	sessionEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bizdash",
			Subsystem: "auth",
			Name:      "session_events_total",
			Help:      "Session lifecycle transitions.",
		},
		[]string{"event"},
	)

	guardDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bizdash",
			Subsystem: "guard",
			Name:      "decisions_total",
			Help:      "Access guard decisions.",
		},
		[]string{"allowed", "reason"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bizdash",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Requests handled by the edge server.",
		},
		[]string{"method", "status"},
	)
)

func init() {
	Registry.MustRegister(
		callAttempts,
		callDuration,
		replays,
		refreshes,
		sessionEvents,
		guardDecisions,
		httpRequests,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler exposes Registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func RecordAttempt(class, kind string) {
	if kind == "" {
		kind = "ok"
	}
	callAttempts.WithLabelValues(class, kind).Inc()
}

func RecordCall(class, outcome string, elapsed time.Duration) {
	callDuration.WithLabelValues(class, outcome).Observe(elapsed.Seconds())
}

func RecordReplay(result string) {
	replays.WithLabelValues(result).Inc()
}

func RecordRefresh(success bool) {
	refreshes.WithLabelValues(strconv.FormatBool(success)).Inc()
}

func RecordSessionEvent(event string) {
	sessionEvents.WithLabelValues(event).Inc()
}

func RecordGuardDecision(allowed bool, reason string) {
	guardDecisions.WithLabelValues(strconv.FormatBool(allowed), reason).Inc()
}

func RecordHTTPRequest(method string, status int) {
	httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

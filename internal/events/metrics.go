package events

import "github.com/prometheus/client_golang/prometheus"

var (
	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "solverd",
			Subsystem: "runtime",
			Name:      "sessions_active",
			Help:      "Inference sessions currently held by the pool",
		},
	)

	sessionBuildsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "solverd",
			Subsystem: "runtime",
			Name:      "session_builds_total",
			Help:      "Total inference sessions constructed",
		},
	)

	sessionReleasesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "solverd",
			Subsystem: "runtime",
			Name:      "session_releases_total",
			Help:      "Total inference sessions closed",
		},
	)

	projectsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "solverd",
			Subsystem: "runtime",
			Name:      "projects_active",
			Help:      "Registered projects",
		},
	)

	evictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "solverd",
			Subsystem: "runtime",
			Name:      "evictions_total",
			Help:      "Total projects removed by TTL eviction",
		},
	)

	importsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "solverd",
			Subsystem: "runtime",
			Name:      "imports_total",
			Help:      "Bundle imports by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(sessionsActive, sessionBuildsTotal, sessionReleasesTotal,
		projectsActive, evictionsTotal, importsTotal)
}

type metricsPublisher struct{}

// Metrics returns a publisher that maps lifecycle events onto the
// solverd_runtime_* series.
func Metrics() Publisher { return metricsPublisher{} }

func (metricsPublisher) Publish(e Event) {
	switch e.Name {
	case SessionBuilt:
		sessionBuildsTotal.Inc()
		sessionsActive.Inc()
	case SessionReleased:
		sessionReleasesTotal.Inc()
		sessionsActive.Dec()
	case ProjectAdded:
		projectsActive.Inc()
	case ProjectRemoved:
		projectsActive.Dec()
	case ProjectEvicted:
		evictionsTotal.Inc()
	case ImportSucceeded:
		importsTotal.WithLabelValues("ok").Inc()
	case ImportFailed:
		reason, _ := e.Fields["reason"].(string)
		if reason == "" {
			reason = "error"
		}
		importsTotal.WithLabelValues(reason).Inc()
	}
}

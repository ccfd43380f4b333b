package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds every lanwatch collector and backs the /metrics endpoint
var Registry = prometheus.NewRegistry()

var (
	// PollTotal counts finished poll cycles by result (published/failed)
	PollTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lanwatch_poll_total",
			Help: "Total number of finished poll cycles.",
		},
		[]string{"source", "result"},
	)

	// PollErrors counts failed polls by error kind
	PollErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lanwatch_poll_errors_total",
			Help: "Total number of failed polls by error kind.",
		},
		[]string{"source", "kind"},
	)

	// PollSkipped counts ticks dropped because a fetch was still in flight
	PollSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lanwatch_poll_skipped_total",
			Help: "Total number of ticks skipped because a fetch was in flight.",
		},
		[]string{"source"},
	)

	// ConsecutiveFailures is reset to 0 on every published snapshot
	ConsecutiveFailures = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lanwatch_poll_consecutive_failures",
			Help: "Number of failed polls since the last published snapshot.",
		},
		[]string{"source"},
	)

	PollDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lanwatch_poll_duration_seconds",
			Help:    "Duration of fetch and normalize per poll.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	NormalizeWarnings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lanwatch_normalize_warnings_total",
			Help: "Host entries skipped or overwritten during normalization.",
		},
		[]string{"source"},
	)

	// Hosts exposes the aggregate counts of the selected hosts
	Hosts = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lanwatch_hosts",
			Help: "Selected hosts in the current snapshot by state (total/online/offline/known/unknown).",
		},
		[]string{"source", "state"},
	)

	TrackedChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lanwatch_tracked_changes_total",
			Help: "Tracked host changes emitted by reconcile cycles.",
		},
		[]string{"source", "kind"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		PollTotal,
		PollErrors,
		PollSkipped,
		ConsecutiveFailures,
		PollDuration,
		NormalizeWarnings,
		Hosts,
		TrackedChanges,
	)
}

// ObservePoll records one finished poll cycle
func ObservePoll(source, result string, took time.Duration) {
	PollTotal.WithLabelValues(source, result).Inc()
	PollDuration.WithLabelValues(source).Observe(took.Seconds())
}

// SetAggregates publishes aggregate counts for a source
func SetAggregates(source string, total, online, offline, known, unknown int) {
	Hosts.WithLabelValues(source, "total").Set(float64(total))
	Hosts.WithLabelValues(source, "online").Set(float64(online))
	Hosts.WithLabelValues(source, "offline").Set(float64(offline))
	Hosts.WithLabelValues(source, "known").Set(float64(known))
	Hosts.WithLabelValues(source, "unknown").Set(float64(unknown))
}

// ForgetSource drops every series of a source
func ForgetSource(source string) {
	labels := prometheus.Labels{"source": source}
	PollTotal.DeletePartialMatch(labels)
	PollErrors.DeletePartialMatch(labels)
	PollSkipped.DeletePartialMatch(labels)
	ConsecutiveFailures.DeletePartialMatch(labels)
	PollDuration.DeletePartialMatch(labels)
	NormalizeWarnings.DeletePartialMatch(labels)
	Hosts.DeletePartialMatch(labels)
	TrackedChanges.DeletePartialMatch(labels)
}

// Package metrics provides Prometheus instrumentation for the queue
// orchestration engine. Every metric here is deliberately low-cardinality:
// labels are bounded enum-like values (provider name, error kind, rule) and
// never guild/user/track identifiers, which would make each series unique
// per tenant and blow up the cardinality of the whole registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SubmitTotal counts every submit() call, by outcome.
	SubmitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "queueengine_submit_total",
		Help: "Total number of submit() calls, by outcome (admitted/rejected).",
	}, []string{"outcome"})

	// RejectTotal counts rejected submissions by the rule that rejected them.
	RejectTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "queueengine_reject_total",
		Help: "Total number of rejected submissions, by rejecting rule.",
	}, []string{"rule"})

	// PumpTrackTotal counts tracks the pump has finished, by the reason
	// playback ended.
	PumpTrackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "queueengine_pump_track_total",
		Help: "Total number of tracks finished by the playback pump, by completion reason.",
	}, []string{"reason"})

	// ExtractFailureTotal counts provider Extract/ResolvePlayable failures
	// by provider name and error kind.
	ExtractFailureTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "queueengine_extract_failure_total",
		Help: "Total number of provider extract/resolve failures, by provider and error kind.",
	}, []string{"provider", "kind"})

	// PersistenceSaveFailureTotal counts snapshot save failures.
	PersistenceSaveFailureTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "queueengine_persistence_save_failure_total",
		Help: "Total number of snapshot save failures, by guild-scoped operation that triggered the save.",
	}, []string{"operation"})

	// GuildCount is set once by Engine.Start to the number of guilds that
	// have a persisted queue snapshot; it is not updated afterwards.
	GuildCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "queueengine_guild_count",
		Help: "Number of guilds with a persisted queue snapshot at engine start.",
	})

	// QueueLength samples pending queue length across all guilds into a
	// shared histogram. Deliberately not a per-guild gauge: a guild_id label
	// would make this series' cardinality grow with tenant count.
	QueueLength = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "queueengine_queue_length",
		Help:    "Distribution of per-guild pending queue length, sampled after every admitted submit.",
		Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
	})

	// ProviderBreakerState mirrors provider.Breaker's state as a gauge
	// (0=closed, 1=open, 2=half-open) for alerting.
	ProviderBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "queueengine_provider_breaker_state",
		Help: "Current circuit breaker state per provider (0=closed, 1=open, 2=half-open).",
	}, []string{"provider"})

	// PersistenceSaveDurationSeconds observes how long Store.Save takes.
	PersistenceSaveDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "queueengine_persistence_save_duration_seconds",
		Help:    "Duration of Store.Save calls, in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
)

// RecordSubmit increments SubmitTotal for outcome, and RejectTotal for rule
// when outcome is a rejection.
func RecordSubmit(outcome, rule string) {
	SubmitTotal.WithLabelValues(outcome).Inc()
	if rule != "" {
		RejectTotal.WithLabelValues(rule).Inc()
	}
}

// RecordPumpTrack increments PumpTrackTotal for the given completion reason.
func RecordPumpTrack(reason string) {
	PumpTrackTotal.WithLabelValues(reason).Inc()
}

// RecordExtractFailure increments ExtractFailureTotal for provider/kind.
func RecordExtractFailure(provider, kind string) {
	ExtractFailureTotal.WithLabelValues(provider, kind).Inc()
}

// RecordPersistenceSaveFailure increments PersistenceSaveFailureTotal for
// operation.
func RecordPersistenceSaveFailure(operation string) {
	PersistenceSaveFailureTotal.WithLabelValues(operation).Inc()
}

// RecordQueueLength samples one guild's current pending queue length into
// the shared QueueLength histogram.
func RecordQueueLength(pendingLen int) {
	QueueLength.Observe(float64(pendingLen))
}

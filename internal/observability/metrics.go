package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Bot-level Prometheus collectors. Label values are drawn from small fixed
// sets (outcome names, list names, breaker states) to keep cardinality flat.
var (
	// Recommendations counts recommendation requests by outcome:
	// delivered|denied|none_found|not_ready|error.
	Recommendations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_recommendations_total",
			Help: "Recommendation requests by outcome.",
		},
		[]string{"outcome"},
	)

	// Reactions counts like/dislike/favorite intents by kind and outcome.
	Reactions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_reactions_total",
			Help: "Reaction intents by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	// CatalogPageFailures counts discover pages skipped during sampling.
	CatalogPageFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_catalog_page_failures_total",
			Help: "Catalog pages that failed to load and were skipped.",
		},
	)

	// CatalogBreakerState is 0 closed, 1 half-open, 2 open.
	CatalogBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bot_catalog_breaker_state",
			Help: "Catalog circuit breaker state (0 closed, 1 half-open, 2 open).",
		},
		[]string{"name"},
	)

	// ThrottledEvents counts inbound events dropped by the per-user throttle.
	ThrottledEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_throttled_events_total",
			Help: "Inbound events rejected by the per-user action throttle.",
		},
		[]string{"class"},
	)

	// ProcessedEventsPurged counts expired redelivery records removed by the
	// janitor.
	ProcessedEventsPurged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_processed_events_purged_total",
			Help: "Expired processed-event records deleted.",
		},
	)

	// ProfilesStored is the number of stored profiles as of the last sweep.
	ProfilesStored = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_profiles_stored",
			Help: "Stored user profiles.",
		},
	)
)

func init() {
	prometheus.MustRegister(Recommendations, Reactions, CatalogPageFailures, CatalogBreakerState, ThrottledEvents, ProcessedEventsPurged, ProfilesStored)
}

package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "modulith_parsing_seconds",
		Help:    "Time spent loading the type graph of a source tree.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	TypesTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "modulith_types_total",
		Help: "Number of types in the last loaded type graph.",
	})

	ModulesTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "modulith_modules_total",
		Help: "Number of application modules in the last built model.",
	})

	DependenciesTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "modulith_dependencies_total",
		Help: "Number of module dependency edges in the last built model.",
	})

	ViolationsTotal = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "modulith_violations",
		Help: "Violations reported by the last verification, by kind.",
	}, []string{"kind"})

	VerificationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "modulith_verification_seconds",
		Help:    "Time spent verifying a module model.",
		Buckets: prometheus.DefBuckets,
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "modulith_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	PublicationsPublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "modulith_publications_published_total",
		Help: "Total number of event publications recorded in the ledger.",
	})

	PublicationsCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "modulith_publications_completed_total",
		Help: "Total number of event publications marked completed.",
	})

	PublicationsIncomplete = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "modulith_publications_incomplete",
		Help: "Incomplete publications seen by the last ledger scan.",
	})

	ResubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "modulith_resubmissions_total",
		Help: "Redelivery attempts of incomplete publications, by outcome.",
	}, []string{"outcome"})
)

package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ParseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ripple_parse_seconds",
		Help:    "Time spent parsing a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ripple_stage_seconds",
		Help:    "Time spent in each analysis stage.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	AnalysisRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ripple_analysis_runs_total",
		Help: "Total number of analysis runs by outcome.",
	}, []string{"outcome"})

	GraphModules = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ripple_graph_modules",
		Help: "Modules in the dependency graph of the latest run.",
	})

	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ripple_graph_edges",
		Help: "Import edges in the dependency graph of the latest run.",
	})

	ImpactedModules = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ripple_impacted_modules",
		Help: "Impacted modules reported by the latest run.",
	})

	ImpactedTests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ripple_impacted_tests",
		Help: "Impacted test files reported by the latest run.",
	})

	SuggestedJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ripple_suggested_jobs",
		Help: "CI jobs suggested by the latest run.",
	})

	DiagnosticsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ripple_diagnostics_total",
		Help: "Non-fatal diagnostics accumulated across runs.",
	}, []string{"code"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ripple_watcher_events_total",
		Help: "File system events received in watch mode.",
	})
)

// Package observability exposes Prometheus instrumentation for the
// translation backend.
//
// The collectors track the state of the translation index and the health of
// the sync and commit pipelines with careful attention to label
// cardinality:
//
//   - project:   project slug
//   - component: component slug
//   - language:  BCP 47 language code of the translation
//
// Slugs and language codes are operator-controlled and bounded, so the
// label space stays small. All collectors are safe for concurrent use.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// unitsTotal gauges the number of units per translation.
	unitsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "translation_units_total",
			Help: "Total number of translation units.",
		},
		[]string{"project", "component", "language"},
	)

	// unitsTranslated gauges the number of translated units per translation.
	unitsTranslated = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "translation_units_translated",
			Help: "Number of translated units.",
		},
		[]string{"project", "component", "language"},
	)

	// unitsFuzzy gauges the number of fuzzy units per translation.
	unitsFuzzy = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "translation_units_fuzzy",
			Help: "Number of units marked as needing review.",
		},
		[]string{"project", "component", "language"},
	)

	// projectUnitsTotal gauges the summed unit count per project.
	projectUnitsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "translation_project_units_total",
			Help: "Total number of translation units across a project.",
		},
		[]string{"project"},
	)

	// projectUnitsTranslated gauges the summed translated count per project.
	projectUnitsTranslated = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "translation_project_units_translated",
			Help: "Number of translated units across a project.",
		},
		[]string{"project"},
	)

	// syncsTotal counts sync passes by outcome.
	syncsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "translation_syncs_total",
			Help: "Total number of translation sync passes.",
		},
		[]string{"project", "component", "result"},
	)

	// syncDuration records sync pass duration in seconds.
	syncDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "translation_sync_duration_seconds",
			Help:    "Duration of translation sync passes in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"project", "component"},
	)

	// commitsTotal counts repository commits by outcome.
	commitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "translation_commits_total",
			Help: "Total number of repository commits for translation files.",
		},
		[]string{"project", "component", "result"},
	)
)

func init() {
	prometheus.MustRegister(
		unitsTotal, unitsTranslated, unitsFuzzy,
		projectUnitsTotal, projectUnitsTranslated,
		syncsTotal, syncDuration, commitsTotal,
	)
}

// SetUnitCounts publishes the unit aggregate of one translation.
func SetUnitCounts(project, component, language string, total, translated, fuzzy int64) {
	unitsTotal.WithLabelValues(project, component, language).Set(float64(total))
	unitsTranslated.WithLabelValues(project, component, language).Set(float64(translated))
	unitsFuzzy.WithLabelValues(project, component, language).Set(float64(fuzzy))
}

// SetProjectCounts publishes the project-wide unit aggregate.
func SetProjectCounts(project string, total, translated int64) {
	projectUnitsTotal.WithLabelValues(project).Set(float64(total))
	projectUnitsTranslated.WithLabelValues(project).Set(float64(translated))
}

// ObserveSync records the outcome and duration of one sync pass.
func ObserveSync(project, component string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	syncsTotal.WithLabelValues(project, component, result).Inc()
	syncDuration.WithLabelValues(project, component).Observe(d.Seconds())
}

// ObserveCommit records the outcome of one commit attempt.
func ObserveCommit(project, component string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	commitsTotal.WithLabelValues(project, component, result).Inc()
}

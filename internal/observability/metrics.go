package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for one
// pipeline run.
type Metrics struct {
	OccurrencesLoaded         prometheus.Counter
	SpeciesProcessed          prometheus.Counter
	SpeciesWithoutOccurrences prometheus.Counter
	RunSuccess                prometheus.Gauge

	// Climate sampling metrics.
	SamplesMissing *prometheus.CounterVec   // labels: variable={tmean,prec}
	LayerFetches   *prometheus.CounterVec   // labels: variable={tmean,prec}, source={download,cache}
	FetchDuration  *prometheus.HistogramVec // labels: variable={tmean,prec}

	// Red List join metrics.
	RedListLookups *prometheus.CounterVec // labels: result={match,miss}

	// Per-stage wall time of the run.
	StageDuration *prometheus.HistogramVec // labels: stage
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		OccurrencesLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "plotclim",
			Name:      "occurrences_loaded_total",
			Help:      "Occurrence records read from the archive.",
		}),
		SpeciesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "plotclim",
			Name:      "species_processed_total",
			Help:      "Species from the plot inventory processed to completion.",
		}),
		SpeciesWithoutOccurrences: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "plotclim",
			Name:      "species_without_occurrences_total",
			Help:      "Species whose per-species file is header-only.",
		}),
		RunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "plotclim",
			Name:      "run_success",
			Help:      "1 when the run completed, 0 when it aborted.",
		}),
		SamplesMissing: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plotclim",
			Name:      "samples_missing_total",
			Help:      "Monthly samples outside coverage or on nodata cells, by variable.",
		}, []string{"variable"}),
		LayerFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plotclim",
			Name:      "layer_fetches_total",
			Help:      "Climate layer retrievals by variable and source.",
		}, []string{"variable", "source"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "plotclim",
			Name:      "layer_fetch_duration_seconds",
			Help:      "Time to make a climate layer available locally.",
			Buckets:   []float64{0.1, 1, 5, 15, 60, 180, 600},
		}, []string{"variable"}),
		RedListLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plotclim",
			Name:      "red_list_lookups_total",
			Help:      "Red List category lookups by result.",
		}, []string{"result"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "plotclim",
			Name:      "stage_duration_seconds",
			Help:      "Wall time of each pipeline stage.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"stage"}),
	}

	prometheus.MustRegister(
		m.OccurrencesLoaded,
		m.SpeciesProcessed,
		m.SpeciesWithoutOccurrences,
		m.RunSuccess,
		m.SamplesMissing,
		m.LayerFetches,
		m.FetchDuration,
		m.RedListLookups,
		m.StageDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		OccurrencesLoaded:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "plotclim", Name: "occurrences_loaded_total"}),
		SpeciesProcessed:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "plotclim", Name: "species_processed_total"}),
		SpeciesWithoutOccurrences: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "plotclim", Name: "species_without_occurrences_total"}),
		RunSuccess:                prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "plotclim", Name: "run_success"}),
		SamplesMissing:            prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "plotclim", Name: "samples_missing_total"}, []string{"variable"}),
		LayerFetches:              prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "plotclim", Name: "layer_fetches_total"}, []string{"variable", "source"}),
		FetchDuration:             prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "plotclim", Name: "layer_fetch_duration_seconds"}, []string{"variable"}),
		RedListLookups:            prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "plotclim", Name: "red_list_lookups_total"}, []string{"result"}),
		StageDuration:             prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "plotclim", Name: "stage_duration_seconds"}, []string{"stage"}),
	}
}

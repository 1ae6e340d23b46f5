package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	PipelineDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "heatstress_pipeline_duration_seconds",
		Help:    "Sample, aggregate and enrich duration per variable",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"variable"})
	CacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "heatstress_cache_hits_total",
		Help: "Aggregate cache hits by tier",
	}, []string{"tier"})
	CacheMissesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "heatstress_cache_misses_total",
		Help: "Aggregate cache misses by tier",
	}, []string{"tier"})
	DatasetReloadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "heatstress_dataset_reloads_total",
		Help: "Dataset reload attempts by outcome",
	}, []string{"outcome"})
	RegionsLoaded = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "heatstress_regions_loaded",
		Help: "Number of regions in the active snapshot",
	})
	DaysLoaded = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "heatstress_days_loaded",
		Help: "Number of forecast days in the active snapshot",
	})
	SourceFetchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "heatstress_source_fetches_total",
		Help: "Dataset source fetches by scheme and result",
	}, []string{"scheme", "result"})
)

func init() {
	prometheus.MustRegister(PipelineDuration)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(DatasetReloadsTotal)
	prometheus.MustRegister(RegionsLoaded)
	prometheus.MustRegister(DaysLoaded)
	prometheus.MustRegister(SourceFetchesTotal)
}

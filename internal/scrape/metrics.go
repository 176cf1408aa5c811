package scrape

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sourceCrawls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "avmeta",
		Subsystem: "scrape",
		Name:      "source_crawls_total",
		Help:      "Per-site crawl attempts by result.",
	}, []string{"site", "result"})

	pipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "avmeta",
		Subsystem: "scrape",
		Name:      "pipeline_runs_total",
		Help:      "Full pipeline runs by outcome.",
	}, []string{"outcome"})

	pipelineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "avmeta",
		Subsystem: "scrape",
		Name:      "pipeline_duration_seconds",
		Help:      "Wall time of one full pipeline run.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
	})
)

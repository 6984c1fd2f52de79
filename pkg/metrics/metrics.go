package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	ScrapeRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_runs_total",
			Help: "Total number of finished scrape runs.",
		},
		[]string{"status"}, // completed, failed, cancelled
	)

	ScrapeRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_run_duration_seconds",
			Help:    "Duration of scrape runs.",
			Buckets: []float64{10, 30, 60, 120, 300, 600, 1200, 3600},
		},
	)

	ActiveRuns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scraper_active_runs",
			Help: "Current number of scrape runs holding a browser session.",
		},
	)

	PageLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_page_loads_total",
			Help: "Search page loads by site and result.",
		},
		[]string{"site", "result"}, // result: ready, failed
	)

	CandidatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_candidates_total",
			Help: "Image candidates by dedup gate decision.",
		},
		[]string{"decision"},
	)

	DownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_downloads_total",
			Help: "Image downloads by result.",
		},
		[]string{"result"}, // success, http_error, transport_error, too_large
	)

	ImagesSavedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_images_saved_total",
			Help: "Images uploaded to blob storage and persisted.",
		},
	)
)

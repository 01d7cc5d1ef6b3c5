package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/MeKo-Tech/bubbletrans/internal/pipeline"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bubbletrans_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bubbletrans_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	pagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bubbletrans_pages_total",
			Help: "Total number of processed pages",
		},
		[]string{"source", "status"}, // source: http, websocket
	)

	pageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bubbletrans_page_duration_seconds",
			Help:    "Page processing duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 25, 50, 100},
		},
		[]string{"source"},
	)

	regionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bubbletrans_regions_total",
			Help: "Regions processed, by final status",
		},
		[]string{"status"},
	)

	engineWinsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bubbletrans_engine_wins_total",
			Help: "Regions whose text came from each engine",
		},
		[]string{"engine"},
	)

	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bubbletrans_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"type"},
	)

	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bubbletrans_upload_size_bytes",
			Help:    "Size of uploaded pages in bytes",
			Buckets: []float64{10 * 1024, 100 * 1024, 512 * 1024, 1024 * 1024, 5 * 1024 * 1024, 10 * 1024 * 1024, 50 * 1024 * 1024},
		},
	)

	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bubbletrans_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bubbletrans_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // sent, received
	)
)

// observePage records the outcome of one processed page.
func observePage(source string, page *pipeline.ProcessedPage, err error) {
	status := "success"
	if err != nil || page == nil || page.State == pipeline.StateFailed {
		status = "error"
	}
	pagesTotal.WithLabelValues(source, status).Inc()
	if page == nil {
		return
	}
	pageDuration.WithLabelValues(source).Observe(page.Summary.ProcessingTime.Seconds())
	for _, r := range page.Regions {
		regionsTotal.WithLabelValues(string(r.Status)).Inc()
	}
	for name, n := range page.Summary.EngineWins {
		engineWinsTotal.WithLabelValues(name).Add(float64(n))
	}
}

package server

import (
	"github.com/MeKo-Tech/scangate/internal/gate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scangate_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scangate_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Acceptance metrics
	decisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scangate_decisions_total",
			Help: "Total number of evaluated detections",
		},
		[]string{"source", "outcome", "type"}, // source: evaluate, image, websocket
	)

	// Image scan metrics
	scanRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scangate_scan_requests_total",
			Help: "Total number of image scan requests",
		},
		[]string{"status"},
	)

	scanDecodeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scangate_scan_decode_duration_seconds",
			Help:    "Barcode decoding duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	barcodesDecoded = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scangate_barcodes_decoded",
			Help:    "Number of barcodes decoded per image",
			Buckets: []float64{0, 1, 2, 5, 10, 25},
		},
	)

	// File upload metrics
	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scangate_upload_size_bytes",
			Help:    "Size of uploaded images in bytes",
			Buckets: []float64{1024, 10 * 1024, 100 * 1024, 1024 * 1024, 10 * 1024 * 1024, 50 * 1024 * 1024},
		},
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scangate_websocket_active_connections",
			Help: "Number of active WebSocket scan sessions",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scangate_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // direction: sent, received
	)
)

// recordDecisions counts decisions by outcome and symbology.
func recordDecisions(source string, ds []gate.Decision) {
	for _, d := range ds {
		decisionsTotal.WithLabelValues(source, d.Outcome.String(), d.Name).Inc()
	}
}

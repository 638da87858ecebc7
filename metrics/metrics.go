// Package metrics provides Prometheus metrics for the HTTP API and exports
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains the Prometheus metrics of the server
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	exportsTotal             *prometheus.CounterVec
	exportDuration           prometheus.Histogram
	exportSkippedAnnotations prometheus.Counter
	exportDefaultedImages    prometheus.Counter

	activeSessions prometheus.GaugeFunc
}

// New creates the metrics and registers them on registry. sessions, when
// not nil, reports the number of live sessions.
func New(registry *prometheus.Registry, sessions func() int) (*Metrics, error) {
	m := &Metrics{registry: registry}
	m.initMetrics(sessions)
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) initMetrics(sessions func() int) {
	m.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tagframe_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	m.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tagframe_http_request_duration_seconds",
			Help:    "Time taken to serve HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	m.exportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tagframe_coco_exports_total",
			Help: "Total number of COCO exports",
		},
		[]string{"status"}, // status: success, error
	)

	m.exportDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tagframe_coco_export_duration_seconds",
			Help:    "Time taken to build a COCO export",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)

	m.exportSkippedAnnotations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tagframe_coco_export_skipped_annotations_total",
			Help: "Annotations left out of exports because they could not be converted",
		},
	)

	m.exportDefaultedImages = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tagframe_coco_export_defaulted_images_total",
			Help: "Images exported with default dimensions",
		},
	)

	if sessions == nil {
		sessions = func() int { return 0 }
	}
	m.activeSessions = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "tagframe_active_sessions",
			Help: "Number of signed-in sessions",
		},
		func() float64 { return float64(sessions()) },
	)
}

// Describe implements the Collector interface
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.httpRequestsTotal.Describe(ch)
	m.httpRequestDuration.Describe(ch)
	m.exportsTotal.Describe(ch)
	m.exportDuration.Describe(ch)
	m.exportSkippedAnnotations.Describe(ch)
	m.exportDefaultedImages.Describe(ch)
	m.activeSessions.Describe(ch)
}

// Collect implements the Collector interface
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.httpRequestsTotal.Collect(ch)
	m.httpRequestDuration.Collect(ch)
	m.exportsTotal.Collect(ch)
	m.exportDuration.Collect(ch)
	m.exportSkippedAnnotations.Collect(ch)
	m.exportDefaultedImages.Collect(ch)
	m.activeSessions.Collect(ch)
}

// RecordRequest records one served HTTP request
func (m *Metrics) RecordRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordExport records the outcome of one COCO export
func (m *Metrics) RecordExport(duration time.Duration, skipped, defaulted int, err error) {
	if err != nil {
		m.exportsTotal.WithLabelValues("error").Inc()
		return
	}
	m.exportsTotal.WithLabelValues("success").Inc()
	m.exportDuration.Observe(duration.Seconds())
	m.exportSkippedAnnotations.Add(float64(skipped))
	m.exportDefaultedImages.Add(float64(defaulted))
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

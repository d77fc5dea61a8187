package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the HLS server.
type Metrics struct {
	registry              *prometheus.Registry
	requestsTotal         prometheus.Counter
	notFoundTotal         prometheus.Counter
	serverErrorsTotal     prometheus.Counter
	ticksTotal            prometheus.Counter
	segmentsEvictedTotal  prometheus.Counter
	segmentsPurgedTotal   prometheus.Counter
	producerErrorsTotal   prometheus.Counter
	segmentStoreSize      prometheus.Gauge
	windowSegments        prometheus.Gauge
	mediaSequence         prometheus.Gauge
	pendingPurges         prometheus.Gauge
	presentationTimestamp prometheus.Gauge
}

// New creates and registers Prometheus metrics for the server.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hls_requests_total",
			Help: "Total number of HTTP requests received",
		}),
		notFoundTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hls_not_found_total",
			Help: "Total number of requests answered with 404 (unknown path or segment no longer held)",
		}),
		serverErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hls_server_errors_total",
			Help: "Total number of HTTP responses with a 5xx status",
		}),
		ticksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hls_ticks_total",
			Help: "Total number of segments added to the playlist",
		}),
		segmentsEvictedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hls_segments_evicted_total",
			Help: "Total number of segments dropped from the playlist window",
		}),
		segmentsPurgedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hls_segments_purged_total",
			Help: "Total number of evicted segments removed after their grace period",
		}),
		producerErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hls_producer_errors_total",
			Help: "Total number of ticks where the payload producer failed",
		}),
		segmentStoreSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hls_segment_store_size",
			Help: "Number of segments held in the store, including those in their grace period",
		}),
		windowSegments: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hls_window_segments",
			Help: "Number of segments advertised in the playlist",
		}),
		mediaSequence: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hls_media_sequence",
			Help: "Current EXT-X-MEDIA-SEQUENCE value",
		}),
		pendingPurges: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hls_pending_purges",
			Help: "Number of evicted segments waiting for their grace period to end",
		}),
		presentationTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hls_presentation_timestamp",
			Help: "Current 90kHz presentation timestamp",
		}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.notFoundTotal,
		m.serverErrorsTotal,
		m.ticksTotal,
		m.segmentsEvictedTotal,
		m.segmentsPurgedTotal,
		m.producerErrorsTotal,
		m.segmentStoreSize,
		m.windowSegments,
		m.mediaSequence,
		m.pendingPurges,
		m.presentationTimestamp,
	)

	return m
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncNotFound increments the not found counter.
func (m *Metrics) IncNotFound() {
	m.notFoundTotal.Inc()
}

// IncServerErrors increments the 5xx counter.
func (m *Metrics) IncServerErrors() {
	m.serverErrorsTotal.Inc()
}

// IncTicks increments the tick counter.
func (m *Metrics) IncTicks() {
	m.ticksTotal.Inc()
}

// IncSegmentsEvicted increments the evicted segments counter.
func (m *Metrics) IncSegmentsEvicted() {
	m.segmentsEvictedTotal.Inc()
}

// IncSegmentsPurged increments the purged segments counter.
func (m *Metrics) IncSegmentsPurged() {
	m.segmentsPurgedTotal.Inc()
}

// IncProducerErrors increments the producer failure counter.
func (m *Metrics) IncProducerErrors() {
	m.producerErrorsTotal.Inc()
}

// SetSegmentStoreSize sets the store size gauge.
func (m *Metrics) SetSegmentStoreSize(n int) {
	m.segmentStoreSize.Set(float64(n))
}

// SetWindowSegments sets the playlist window gauge.
func (m *Metrics) SetWindowSegments(n int) {
	m.windowSegments.Set(float64(n))
}

// SetMediaSequence sets the media sequence gauge.
func (m *Metrics) SetMediaSequence(seq uint64) {
	m.mediaSequence.Set(float64(seq))
}

// SetPendingPurges sets the pending purges gauge.
func (m *Metrics) SetPendingPurges(n int) {
	m.pendingPurges.Set(float64(n))
}

// SetPresentationTimestamp sets the presentation timestamp gauge.
func (m *Metrics) SetPresentationTimestamp(pts uint64) {
	m.presentationTimestamp.Set(float64(pts))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values (e.g. store size).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}

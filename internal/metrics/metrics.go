package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	// Source ingestion counters
	FramesIngested    atomic.Uint64
	FramesOverwritten atomic.Uint64 // latest-wins evictions
	SourceReconnects  atomic.Uint64
	ConnectFailures   atomic.Uint64
	ReadFailures      atomic.Uint64
	OversizeResets    atomic.Uint64

	// Mixer counters
	FramesMixed     atomic.Uint64
	DecodeFailures  atomic.Uint64
	SkippedTicks    atomic.Uint64
	TransitionsDone atomic.Uint64
	MixTickMs       atomic.Uint64 // Last mix tick duration in ms

	// Publisher counters
	FramesServed  atomic.Uint64
	ActiveViewers atomic.Int64
	TotalViewers  atomic.Uint64

	registry *prometheus.Registry
}

// New creates a new Metrics instance with Prometheus collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.registerPrometheusMetrics()
	return m
}

func (m *Metrics) registerPrometheusMetrics() {
	gauges := []struct {
		name string
		help string
		fn   func() float64
	}{
		{"relay_frames_ingested_total", "Total frames delimited from camera sources",
			func() float64 { return float64(m.FramesIngested.Load()) }},
		{"relay_frames_overwritten_total", "Frames evicted from a buffer before being read",
			func() float64 { return float64(m.FramesOverwritten.Load()) }},
		{"relay_source_reconnects_total", "Total source reconnection attempts",
			func() float64 { return float64(m.SourceReconnects.Load()) }},
		{"relay_connect_failures_total", "Total source connect failures",
			func() float64 { return float64(m.ConnectFailures.Load()) }},
		{"relay_read_failures_total", "Total mid-stream read failures",
			func() float64 { return float64(m.ReadFailures.Load()) }},
		{"relay_oversize_resets_total", "Accumulator resets due to missing EOI marker",
			func() float64 { return float64(m.OversizeResets.Load()) }},
		{"relay_frames_mixed_total", "Total composite frames produced by the mixer",
			func() float64 { return float64(m.FramesMixed.Load()) }},
		{"relay_decode_failures_total", "Total JPEG decode failures in the mixer",
			func() float64 { return float64(m.DecodeFailures.Load()) }},
		{"relay_skipped_ticks_total", "Mixer ticks skipped because no source had a frame",
			func() float64 { return float64(m.SkippedTicks.Load()) }},
		{"relay_transitions_total", "Completed crossfade transitions",
			func() float64 { return float64(m.TransitionsDone.Load()) }},
		{"relay_mix_tick_ms", "Duration of the last mixer tick in milliseconds",
			func() float64 { return float64(m.MixTickMs.Load()) }},
		{"relay_frames_served_total", "Total multipart frames written to viewers",
			func() float64 { return float64(m.FramesServed.Load()) }},
		{"relay_active_viewers", "Number of connected MJPEG viewers",
			func() float64 { return float64(m.ActiveViewers.Load()) }},
		{"relay_total_viewers", "Total MJPEG viewer connections accepted",
			func() float64 { return float64(m.TotalViewers.Load()) }},
	}

	for _, g := range gauges {
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: g.name, Help: g.help},
			g.fn,
		))
	}
}

// UpdateMixTick records the duration of a mixer tick
func (m *Metrics) UpdateMixTick(d time.Duration) {
	m.MixTickMs.Store(uint64(d.Milliseconds()))
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

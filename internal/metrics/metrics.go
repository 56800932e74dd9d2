// Package metrics exposes process counters on a private Prometheus registry.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	// Frame pipeline counters
	FramesReceived   atomic.Uint64
	FramesClassified atomic.Uint64
	NoFaceFrames     atomic.Uint64
	InvalidFrames    atomic.Uint64

	// Latency of the last frame, microseconds
	ProcessLatencyUs atomic.Uint64
	RenderLatencyUs  atomic.Uint64

	// Stream clients (MJPEG + SSE + websocket)
	ActiveClients atomic.Int64
	TotalClients  atomic.Uint64

	MJPEGFramesSent    atomic.Uint64
	MJPEGFramesDropped atomic.Uint64
	EventsSent         atomic.Uint64
	EventsDropped      atomic.Uint64

	emotions *prometheus.CounterVec
	registry *prometheus.Registry
}

// New creates a new Metrics instance with Prometheus collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		emotions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moodface_emotions_total",
			Help: "Frames classified per emotion label",
		}, []string{"emotion"}),
	}
	m.register()
	return m
}

func (m *Metrics) gauge(name, help string, load func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, load))
}

func (m *Metrics) register() {
	u := func(v *atomic.Uint64) func() float64 {
		return func() float64 { return float64(v.Load()) }
	}

	m.gauge("moodface_frames_received_total", "Landmark frames received from any transport", u(&m.FramesReceived))
	m.gauge("moodface_frames_classified_total", "Frames with a face that went through the rule cascade", u(&m.FramesClassified))
	m.gauge("moodface_no_face_frames_total", "Frames without a detected face", u(&m.NoFaceFrames))
	m.gauge("moodface_invalid_frames_total", "Frames rejected by decoding or validation", u(&m.InvalidFrames))

	m.gauge("moodface_process_latency_us", "Pipeline latency of the last frame in microseconds", u(&m.ProcessLatencyUs))
	m.gauge("moodface_render_latency_us", "Avatar render latency of the last frame in microseconds", u(&m.RenderLatencyUs))

	m.gauge("moodface_active_clients", "Connected stream clients", func() float64 { return float64(m.ActiveClients.Load()) })
	m.gauge("moodface_total_clients", "Stream clients connected since start", u(&m.TotalClients))

	m.gauge("moodface_mjpeg_frames_sent_total", "Avatar JPEG frames delivered to MJPEG clients", u(&m.MJPEGFramesSent))
	m.gauge("moodface_mjpeg_frames_dropped_total", "Avatar JPEG frames dropped for slow MJPEG clients", u(&m.MJPEGFramesDropped))
	m.gauge("moodface_events_sent_total", "Emotion events delivered to SSE clients", u(&m.EventsSent))
	m.gauge("moodface_events_dropped_total", "Emotion events dropped for slow SSE clients", u(&m.EventsDropped))

	m.registry.MustRegister(m.emotions)
}

// ObserveEmotion counts one classified frame under label.
func (m *Metrics) ObserveEmotion(label string) {
	m.emotions.WithLabelValues(label).Inc()
}

// UpdateProcessLatency stores the pipeline latency of the last frame.
func (m *Metrics) UpdateProcessLatency(d time.Duration) {
	m.ProcessLatencyUs.Store(uint64(d.Microseconds()))
}

// UpdateRenderLatency stores the render latency of the last frame.
func (m *Metrics) UpdateRenderLatency(d time.Duration) {
	m.RenderLatencyUs.Store(uint64(d.Microseconds()))
}

// ClientConnected and ClientDisconnected track stream clients.
func (m *Metrics) ClientConnected() {
	m.ActiveClients.Add(1)
	m.TotalClients.Add(1)
}

func (m *Metrics) ClientDisconnected() {
	m.ActiveClients.Add(-1)
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer serves /metrics on addr until ctx is cancelled.
func (m *Metrics) StartServer(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

// Package server exposes the classifier over HTTP: frame ingest (POST and
// websocket), the avatar MJPEG stream, SSE emotion events and status.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dj-oyu/moodface/internal/avatar"
	"github.com/dj-oyu/moodface/internal/codec"
	"github.com/dj-oyu/moodface/internal/config"
	"github.com/dj-oyu/moodface/internal/emotion"
	"github.com/dj-oyu/moodface/internal/logger"
	"github.com/dj-oyu/moodface/internal/metrics"
	"github.com/dj-oyu/moodface/internal/pipeline"
	"github.com/dj-oyu/moodface/pkg/types"
)

// Server wires the pipeline to its HTTP transports.
type Server struct {
	cfg      config.Config
	pipeline *pipeline.Pipeline
	metrics  *metrics.Metrics
	monitor  *Monitor
	frames   *FrameBroadcaster
	events   *EventBroadcaster
}

// New returns a configured server. A nil pipeline is replaced by one built
// from cfg; m may be nil to disable metrics.
func New(cfg config.Config, p *pipeline.Pipeline, m *metrics.Metrics) *Server {
	def := config.DefaultConfig()
	if cfg.TargetFPS <= 0 {
		cfg.TargetFPS = def.TargetFPS
	}
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = def.StatusInterval
	}
	if cfg.KeepaliveInterval <= 0 {
		cfg.KeepaliveInterval = def.KeepaliveInterval
	}
	if cfg.MJPEGIdleInterval <= 0 {
		cfg.MJPEGIdleInterval = def.MJPEGIdleInterval
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}
	if p == nil {
		opts := []pipeline.Option{pipeline.WithStabilizer(cfg.StabilizeFrames)}
		if m != nil {
			opts = append(opts, pipeline.WithMetrics(m))
		}
		p = pipeline.New(opts...)
	}

	return &Server{
		cfg:      cfg,
		pipeline: p,
		metrics:  m,
		monitor:  NewMonitor(cfg.TargetFPS),
		frames:   NewFrameBroadcaster(cfg.TargetFPS, cfg.JPEGQuality, m),
		events:   NewEventBroadcaster(m),
	}
}

// Monitor exposes the status holder.
func (s *Server) Monitor() *Monitor { return s.monitor }

// Handler exposes the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /stream", s.handleStream)
	mux.HandleFunc("GET /api/emotions/stream", s.handleEmotionsStream)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/status/stream", s.handleStatusStream)
	mux.HandleFunc("POST /api/landmarks", s.handleLandmarks)
	mux.HandleFunc("GET /api/landmarks/ws", s.handleLandmarksWS)
	mux.HandleFunc("GET /api/avatar/{emotion}", s.handleAvatar)
	mux.HandleFunc("GET /health", s.handleHealth)
	if s.metrics != nil && s.cfg.MetricsAddr == "" {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	return mux
}

// Run serves on cfg.Addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the broadcaster and the HTTP server on ln, then shuts both
// down gracefully when ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	// Request contexts derive from gctx so long-lived streams end as soon as
	// shutdown starts instead of holding it for ShutdownTimeout.
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return gctx },
	}

	g.Go(func() error {
		return s.frames.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("Server", "Listening on %s", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Server", "Shutting down...")
		s.events.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Server", "Graceful shutdown incomplete: %v", err)
			_ = srv.Close()
		}
		return nil
	})
	return g.Wait()
}

// Ingest classifies one validated frame and publishes the outcome to every
// stream.
func (s *Server) Ingest(frame types.LandmarkFrame) codec.EmotionEvent {
	if s.metrics != nil {
		s.metrics.FramesReceived.Add(1)
	}

	res := s.pipeline.Process(frame)
	ev := codec.EventFromResult(res)

	s.monitor.Record(ev)
	if res.Image != nil {
		s.frames.Publish(res.Image)
	}
	s.events.Publish(ev)

	logger.Debug("Server", "Frame %d: %s (rule=%s, %v)", ev.FrameNumber, ev.Emotion, ev.Rule, res.Latency)
	return ev
}

func (s *Server) rejectFrame(err error) {
	if s.metrics != nil {
		s.metrics.InvalidFrames.Add(1)
	}
	s.monitor.RecordInvalid()
	logger.Debug("Server", "Rejected frame: %v", err)
}

func (s *Server) clientConnected() {
	if s.metrics != nil {
		s.metrics.ClientConnected()
	}
	s.monitor.ClientDelta(1)
}

func (s *Server) clientDisconnected() {
	if s.metrics != nil {
		s.metrics.ClientDisconnected()
	}
	s.monitor.ClientDelta(-1)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	s.clientConnected()
	defer s.clientDisconnected()

	id, frameCh := s.frames.Subscribe()
	defer s.frames.Unsubscribe(id)
	streamMJPEGFromChannel(r.Context(), w, frameCh, s.cfg.MJPEGIdleInterval)
}

func (s *Server) handleEmotionsStream(w http.ResponseWriter, r *http.Request) {
	s.clientConnected()
	defer s.clientDisconnected()

	id, eventCh := s.events.Subscribe()
	defer s.events.Unsubscribe(id)
	streamEventsFromChannel(r.Context(), w, eventCh, wantsProtobuf(r.Header.Get("Accept")), s.cfg.KeepaliveInterval)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.monitor.Snapshot())
}

func (s *Server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(s.cfg.StatusInterval)
	defer ticker.Stop()

	for {
		if err := writeSSE(w, s.monitor.Snapshot()); err != nil {
			return
		}
		flusher.Flush()

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) handleLandmarks(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, codec.MaxFrameBytes)

	var (
		frame types.LandmarkFrame
		err   error
	)
	if wantsProtobuf(r.Header.Get("Content-Type")) {
		var data []byte
		data, err = io.ReadAll(body)
		if err == nil {
			frame, err = codec.UnmarshalLandmarkFrame(data)
		}
	} else {
		frame, err = codec.DecodeLandmarkFrameJSON(body)
	}
	if err != nil {
		s.rejectFrame(err)
		writeJSONWithStatus(w, errorResponse{Error: err.Error()}, http.StatusBadRequest)
		return
	}

	ev := s.Ingest(frame)
	if wantsProtobuf(r.Header.Get("Accept")) {
		w.Header().Set("Content-Type", formatProtobuf)
		_, _ = w.Write(codec.MarshalEmotionEvent(ev))
		return
	}
	writeJSON(w, ev)
}

func (s *Server) handleAvatar(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSuffix(r.PathValue("emotion"), ".png")
	e, err := emotion.ParseEmotion(name)
	if err != nil {
		writeJSONWithStatus(w, errorResponse{Error: err.Error()}, http.StatusNotFound)
		return
	}

	var buf bytes.Buffer
	if err := avatar.EncodePNG(&buf, avatar.Render(e)); err != nil {
		writeJSONWithStatus(w, errorResponse{Error: "failed to render avatar"}, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":         "ok",
		"uptime_seconds": s.monitor.Snapshot().Monitor.UptimeSeconds,
	})
}

// wantsProtobuf matches a Content-Type or Accept header against the binary
// wire format.
func wantsProtobuf(header string) bool {
	for _, part := range strings.Split(header, ",") {
		mt, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		switch mt {
		case formatProtobuf, "application/x-protobuf", "application/octet-stream":
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, payload any) {
	writeJSONWithStatus(w, payload, http.StatusOK)
}

func writeJSONWithStatus(w http.ResponseWriter, payload any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		_, _ = fmt.Fprintf(w, `{"error":%q}`, err.Error())
	}
}

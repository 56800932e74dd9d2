package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/dj-oyu/moodface/internal/avatar"
	"github.com/dj-oyu/moodface/internal/codec"
	"github.com/dj-oyu/moodface/internal/logger"
	"github.com/dj-oyu/moodface/internal/metrics"
)

const clientBuffer = 2

// FrameBroadcaster fans avatar JPEGs out to MJPEG clients. Publish only
// stores the newest image; Run encodes and delivers it at most TargetFPS
// times per second, so bursts of frames collapse into the latest one.
type FrameBroadcaster struct {
	quality int
	limiter *rate.Limiter
	metrics *metrics.Metrics

	mu       sync.Mutex
	clients  map[string]chan []byte
	latest   *image.RGBA
	version  uint64
	sent     uint64
	lastJPEG []byte
	notify   chan struct{}
	closed   bool
}

// NewFrameBroadcaster creates a broadcaster paced at fps frames per second.
func NewFrameBroadcaster(fps, quality int, m *metrics.Metrics) *FrameBroadcaster {
	if fps <= 0 {
		fps = 1
	}
	return &FrameBroadcaster{
		quality: quality,
		limiter: rate.NewLimiter(rate.Limit(fps), 1),
		metrics: m,
		clients: make(map[string]chan []byte),
		notify:  make(chan struct{}, 1),
	}
}

// Subscribe adds a client. The channel is primed with the most recent JPEG
// so a new viewer sees the current avatar immediately.
func (fb *FrameBroadcaster) Subscribe() (string, <-chan []byte) {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	id := uuid.NewString()
	ch := make(chan []byte, clientBuffer)
	if fb.closed {
		close(ch)
		return id, ch
	}
	if fb.lastJPEG != nil {
		ch <- fb.lastJPEG
	}
	fb.clients[id] = ch

	logger.Debug("FrameBroadcaster", "Client %s subscribed (total clients: %d)", id, len(fb.clients))
	return id, ch
}

// Unsubscribe removes a client and closes its channel.
func (fb *FrameBroadcaster) Unsubscribe(id string) {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	if ch, ok := fb.clients[id]; ok {
		close(ch)
		delete(fb.clients, id)
		logger.Debug("FrameBroadcaster", "Client %s unsubscribed (remaining clients: %d)", id, len(fb.clients))
	}
}

// ClientCount returns the number of subscribed clients.
func (fb *FrameBroadcaster) ClientCount() int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return len(fb.clients)
}

// Publish replaces the pending frame.
func (fb *FrameBroadcaster) Publish(img *image.RGBA) {
	fb.mu.Lock()
	fb.latest = img
	fb.version++
	fb.mu.Unlock()

	select {
	case fb.notify <- struct{}{}:
	default:
	}
}

// Run delivers published frames until ctx is cancelled, then closes every
// client channel. Later subscribers get an already closed channel.
func (fb *FrameBroadcaster) Run(ctx context.Context) error {
	defer fb.closeAll()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-fb.notify:
		}

		if err := fb.limiter.Wait(ctx); err != nil {
			return nil
		}

		fb.mu.Lock()
		img, version := fb.latest, fb.version
		pending := version != fb.sent
		fb.mu.Unlock()
		if !pending || img == nil {
			continue
		}

		var buf bytes.Buffer
		if err := avatar.EncodeJPEG(&buf, img, fb.quality); err != nil {
			logger.Error("FrameBroadcaster", "JPEG encode failed: %v", err)
			continue
		}

		fb.mu.Lock()
		fb.sent = version
		fb.lastJPEG = buf.Bytes()
		fb.mu.Unlock()

		fb.broadcast(buf.Bytes())
	}
}

func (fb *FrameBroadcaster) broadcast(data []byte) {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	for _, ch := range fb.clients {
		select {
		case ch <- data:
			if fb.metrics != nil {
				fb.metrics.MJPEGFramesSent.Add(1)
			}
		default:
			// Client too slow, skip this frame for this client
			if fb.metrics != nil {
				fb.metrics.MJPEGFramesDropped.Add(1)
			}
		}
	}
}

func (fb *FrameBroadcaster) closeAll() {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.closed = true
	for id, ch := range fb.clients {
		close(ch)
		delete(fb.clients, id)
	}
}

// SerializedEvent holds one event pre-encoded in both SSE formats.
type SerializedEvent struct {
	ID           uint64
	JSONData     []byte
	ProtobufData []byte // base64 of the binary EmotionEvent
}

// EventBroadcaster fans emotion events out to SSE clients. Events are
// serialized once per publish, not once per client.
type EventBroadcaster struct {
	metrics *metrics.Metrics

	mu      sync.Mutex
	clients map[string]chan *SerializedEvent
	nextID  uint64
	closed  bool
}

func NewEventBroadcaster(m *metrics.Metrics) *EventBroadcaster {
	return &EventBroadcaster{
		metrics: m,
		clients: make(map[string]chan *SerializedEvent),
	}
}

// Subscribe adds a client and returns its event channel.
func (eb *EventBroadcaster) Subscribe() (string, <-chan *SerializedEvent) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	id := uuid.NewString()
	ch := make(chan *SerializedEvent, clientBuffer)
	if eb.closed {
		close(ch)
		return id, ch
	}
	eb.clients[id] = ch
	logger.Debug("EventBroadcaster", "Client %s subscribed (total clients: %d)", id, len(eb.clients))
	return id, ch
}

// Unsubscribe removes a client.
func (eb *EventBroadcaster) Unsubscribe(id string) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if ch, ok := eb.clients[id]; ok {
		close(ch)
		delete(eb.clients, id)
		logger.Debug("EventBroadcaster", "Client %s unsubscribed (remaining clients: %d)", id, len(eb.clients))
	}
}

// Publish serializes ev and offers it to every client. Slow clients miss it.
func (eb *EventBroadcaster) Publish(ev codec.EmotionEvent) {
	jsonData, err := json.Marshal(ev)
	if err != nil {
		logger.Error("EventBroadcaster", "JSON marshal error: %v", err)
		return
	}
	pbBase64 := []byte(base64.StdEncoding.EncodeToString(codec.MarshalEmotionEvent(ev)))

	eb.mu.Lock()
	defer eb.mu.Unlock()
	if eb.closed {
		return
	}

	eb.nextID++
	event := &SerializedEvent{ID: eb.nextID, JSONData: jsonData, ProtobufData: pbBase64}
	for _, ch := range eb.clients {
		select {
		case ch <- event:
			if eb.metrics != nil {
				eb.metrics.EventsSent.Add(1)
			}
		default:
			if eb.metrics != nil {
				eb.metrics.EventsDropped.Add(1)
			}
		}
	}
}

// Close disconnects every client; later publishes are ignored.
func (eb *EventBroadcaster) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	if eb.closed {
		return
	}
	eb.closed = true
	for id, ch := range eb.clients {
		close(ch)
		delete(eb.clients, id)
	}
}

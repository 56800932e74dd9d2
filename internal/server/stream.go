package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dj-oyu/moodface/internal/avatar"
	"github.com/dj-oyu/moodface/internal/emotion"
	"github.com/dj-oyu/moodface/internal/logger"
)

const (
	formatJSON     = "application/json"
	formatProtobuf = "application/protobuf"
)

var (
	idleOnce sync.Once
	idleJPEG []byte
)

// idleFrame is the Neutral avatar, shown before the first classified frame.
func idleFrame() []byte {
	idleOnce.Do(func() {
		var buf bytes.Buffer
		if err := avatar.EncodeJPEG(&buf, avatar.Render(emotion.Neutral), 75); err != nil {
			logger.Error("MJPEG", "Failed to render idle frame: %v", err)
			return
		}
		idleJPEG = buf.Bytes()
	})
	return idleJPEG
}

func writeSSE(w http.ResponseWriter, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

// streamMJPEGFromChannel streams frames from a broadcaster subscription. When
// nothing arrives for idle, the last frame is sent again to keep proxies and
// browsers from timing out.
func streamMJPEGFromChannel(ctx context.Context, w http.ResponseWriter, frameCh <-chan []byte, idle time.Duration) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")

	last := idleFrame()
	if last == nil {
		http.Error(w, "Failed to render frame", http.StatusInternalServerError)
		return
	}

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-frameCh:
			if !ok {
				return
			}
			if data != nil {
				last = data
			}
		case <-timer.C:
		}

		if err := writeMJPEGPart(w, last); err != nil {
			logger.Debug("MJPEG", "Client disconnected during write: %v", err)
			return
		}
		flusher.Flush()

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(idle)
	}
}

func writeMJPEGPart(w http.ResponseWriter, jpegData []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpegData)); err != nil {
		return err
	}
	if _, err := w.Write(jpegData); err != nil {
		return err
	}
	_, err := w.Write([]byte("\r\n"))
	return err
}

// streamEventsFromChannel streams pre-serialized emotion events as SSE.
func streamEventsFromChannel(ctx context.Context, w http.ResponseWriter, eventCh <-chan *SerializedEvent, useProtobuf bool, keepalive time.Duration) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	if useProtobuf {
		w.Header().Set("X-Content-Format", formatProtobuf)
	} else {
		w.Header().Set("X-Content-Format", formatJSON)
	}
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(keepalive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			data := event.JSONData
			if useProtobuf {
				data = event.ProtobufData
			}
			if _, err := fmt.Fprintf(w, "id: %d\ndata: %s\n\n", event.ID, data); err != nil {
				logger.Debug("SSE", "Client disconnected during event write: %v", err)
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				logger.Debug("SSE", "Client disconnected during keepalive: %v", err)
				return
			}
			flusher.Flush()
		}
	}
}

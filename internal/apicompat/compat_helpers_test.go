// Package apicompat holds contract tests for the public HTTP API. They run
// against an in-process server, or against SPEC_BASE_URL when it is set.
package apicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/dj-oyu/moodface/internal/codec"
	"github.com/dj-oyu/moodface/internal/config"
	"github.com/dj-oyu/moodface/internal/landmark/landmarktest"
	"github.com/dj-oyu/moodface/internal/metrics"
	"github.com/dj-oyu/moodface/internal/server"
)

const defaultRequestTimeout = 2 * time.Second

type specClient struct {
	baseURL string
	client  *http.Client
}

func newSpecClient(t *testing.T) *specClient {
	t.Helper()
	client := &http.Client{Timeout: defaultRequestTimeout}

	if baseURL := os.Getenv("SPEC_BASE_URL"); baseURL != "" {
		if !isReachable(client, baseURL+"/api/status") {
			t.Skipf("server not reachable at %s", baseURL)
		}
		return &specClient{baseURL: baseURL, client: client}
	}

	return &specClient{baseURL: startServer(t), client: client}
}

// startServer runs the full Serve path on a loopback port.
func startServer(t *testing.T) string {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	cfg.StatusInterval = 100 * time.Millisecond
	cfg.ShutdownTimeout = time.Second

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := server.New(cfg, nil, metrics.New())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("serve: %v", err)
		}
	})
	return "http://" + ln.Addr().String()
}

func isReachable(client *http.Client, url string) bool {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 500
}

func (c *specClient) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	resp := c.getResponse(t, path)
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	_ = resp.Body.Close()
	return resp, body
}

func (c *specClient) getResponse(t *testing.T, path string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func (c *specClient) post(t *testing.T, path, contentType string, data []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	_ = resp.Body.Close()
	return resp, body
}

func (c *specClient) postFrame(t *testing.T, n uint64, g landmarktest.Geometry) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if err := codec.EncodeLandmarkFrameJSON(&buf, landmarktest.Frame(n, g)); err != nil {
		t.Fatalf("encode frame: %v", err)
	}
	return c.post(t, "/api/landmarks", "application/json", buf.Bytes())
}

// openStream starts a streaming GET whose lifetime is bounded by timeout.
func (c *specClient) openStream(t *testing.T, path string, timeout time.Duration) *http.Response {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// readSSEEvent returns the next event block that carries data, skipping
// keepalive comments.
func readSSEEvent(body io.Reader) (string, error) {
	buf := make([]byte, 0, 4096)
	tmp := make([]byte, 256)
	for {
		for {
			idx := bytes.Index(buf, []byte("\n\n"))
			if idx < 0 {
				break
			}
			event := string(buf[:idx])
			buf = buf[idx+2:]
			if strings.Contains(event, "data:") {
				return event, nil
			}
		}
		n, err := body.Read(tmp)
		buf = append(buf, tmp[:n]...)
		if err != nil {
			if err == io.EOF {
				return "", fmt.Errorf("sse stream closed before event")
			}
			return "", fmt.Errorf("read sse: %w", err)
		}
	}
}

func parseSSEData(t *testing.T, event string) map[string]any {
	t.Helper()
	for _, line := range strings.Split(event, "\n") {
		if strings.HasPrefix(line, "data:") {
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if payload == "" {
				t.Fatalf("empty sse data line")
			}
			return decodeJSONMap(t, []byte(payload))
		}
	}
	t.Fatalf("no data line in sse event: %q", event)
	return nil
}

func decodeJSONMap(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode json: %v\nbody=%s", err, string(body))
	}
	return payload
}

func requireString(t *testing.T, value any, field string) string {
	t.Helper()
	str, ok := value.(string)
	if !ok {
		t.Fatalf("expected %s to be string, got %T", field, value)
	}
	return str
}

func requireNumber(t *testing.T, value any, field string) float64 {
	t.Helper()
	num, ok := value.(float64)
	if !ok {
		t.Fatalf("expected %s to be number, got %T", field, value)
	}
	return num
}

func requireBool(t *testing.T, value any, field string) bool {
	t.Helper()
	b, ok := value.(bool)
	if !ok {
		t.Fatalf("expected %s to be bool, got %T", field, value)
	}
	return b
}

func requireMap(t *testing.T, value any, field string) map[string]any {
	t.Helper()
	m, ok := value.(map[string]any)
	if !ok {
		t.Fatalf("expected %s to be object, got %T", field, value)
	}
	return m
}

func requireSlice(t *testing.T, value any, field string) []any {
	t.Helper()
	s, ok := value.([]any)
	if !ok {
		t.Fatalf("expected %s to be array, got %T", field, value)
	}
	return s
}

var emotionNames = map[string]bool{
	"neutral": true, "sleepy": true, "happy": true, "surprised": true, "sad": true,
}

func requireEmotion(t *testing.T, value any, field string) string {
	t.Helper()
	name := requireString(t, value, field)
	if !emotionNames[name] {
		t.Fatalf("%s = %q is not an emotion label", field, name)
	}
	return name
}

func assertEventPayload(t *testing.T, payload map[string]any, field string) {
	t.Helper()
	requireNumber(t, payload["frame_number"], field+".frame_number")
	requireNumber(t, payload["timestamp"], field+".timestamp")
	faceFound := requireBool(t, payload["face_found"], field+".face_found")
	requireEmotion(t, payload["emotion"], field+".emotion")
	requireEmotion(t, payload["raw_emotion"], field+".raw_emotion")
	requireString(t, payload["rule"], field+".rule")

	if !faceFound {
		if _, ok := payload["features"]; ok {
			t.Fatalf("%s.features present without a face", field)
		}
		return
	}
	features := requireMap(t, payload["features"], field+".features")
	for _, key := range []string{"avg_eye_open", "mouth_openness", "mouth_width", "lip_droop"} {
		requireNumber(t, features[key], field+".features."+key)
	}
	requireBool(t, features["showing_teeth"], field+".features.showing_teeth")
}

func assertStatusPayload(t *testing.T, payload map[string]any) {
	t.Helper()
	monitor := requireMap(t, payload["monitor"], "monitor")
	for _, key := range []string{
		"frames_processed", "current_fps", "target_fps", "no_face_frames",
		"invalid_frames", "stream_clients", "uptime_seconds",
	} {
		requireNumber(t, monitor[key], "monitor."+key)
	}

	counts := requireMap(t, payload["emotion_counts"], "emotion_counts")
	for name := range emotionNames {
		requireNumber(t, counts[name], "emotion_counts."+name)
	}

	requireNumber(t, payload["timestamp"], "timestamp")

	if payload["latest_event"] != nil {
		assertEventPayload(t, requireMap(t, payload["latest_event"], "latest_event"), "latest_event")
	}

	history := requireSlice(t, payload["label_history"], "label_history")
	for i, raw := range history {
		field := fmt.Sprintf("label_history[%d]", i)
		item := requireMap(t, raw, field)
		requireNumber(t, item["frame_number"], field+".frame_number")
		requireNumber(t, item["timestamp"], field+".timestamp")
		requireEmotion(t, item["from"], field+".from")
		requireEmotion(t, item["to"], field+".to")
		requireString(t, item["rule"], field+".rule")
	}
}

package server

import "github.com/dj-oyu/moodface/internal/codec"

// MonitorStats is the "monitor" object of /api/status.
type MonitorStats struct {
	FramesProcessed int     `json:"frames_processed"`
	CurrentFPS      float64 `json:"current_fps"`
	TargetFPS       int     `json:"target_fps"`
	NoFaceFrames    int     `json:"no_face_frames"`
	InvalidFrames   int     `json:"invalid_frames"`
	StreamClients   int     `json:"stream_clients"`
	UptimeSeconds   float64 `json:"uptime_seconds"`
}

// LabelChange records a transition of the output label.
type LabelChange struct {
	FrameNumber uint64  `json:"frame_number"`
	Timestamp   float64 `json:"timestamp"`
	From        string  `json:"from"`
	To          string  `json:"to"`
	Rule        string  `json:"rule"`
}

// StatusPayload is the body of /api/status and each /api/status/stream event.
type StatusPayload struct {
	Monitor       MonitorStats        `json:"monitor"`
	EmotionCounts map[string]int      `json:"emotion_counts"`
	LatestEvent   *codec.EmotionEvent `json:"latest_event"`
	LabelHistory  []LabelChange       `json:"label_history"`
	Timestamp     float64             `json:"timestamp"`
}

type errorResponse struct {
	Error string `json:"error"`
}

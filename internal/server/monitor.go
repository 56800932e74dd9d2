package server

import (
	"sync"
	"time"

	"github.com/dj-oyu/moodface/internal/codec"
	"github.com/dj-oyu/moodface/internal/emotion"
)

const (
	labelHistorySize = 8
	fpsWindow        = time.Second
)

// Monitor keeps the latest classification state for the status endpoints.
type Monitor struct {
	startTime time.Time
	targetFPS int
	now       func() time.Time

	mu              sync.Mutex
	framesProcessed int
	noFaceFrames    int
	invalidFrames   int
	counts          map[string]int
	latest          *codec.EmotionEvent
	history         []LabelChange // newest first
	arrivals        []time.Time   // within fpsWindow, oldest first
	streamClients   int
}

// NewMonitor creates a Monitor reporting the given target FPS.
func NewMonitor(targetFPS int) *Monitor {
	counts := make(map[string]int, len(emotion.All()))
	for _, e := range emotion.All() {
		counts[e.String()] = 0
	}
	return &Monitor{
		startTime: time.Now(),
		targetFPS: targetFPS,
		now:       time.Now,
		counts:    counts,
	}
}

// Record stores a classified frame.
func (m *Monitor) Record(ev codec.EmotionEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.framesProcessed++
	if !ev.FaceFound {
		m.noFaceFrames++
	}
	m.counts[ev.Emotion]++

	if m.latest != nil && m.latest.Emotion != ev.Emotion {
		change := LabelChange{
			FrameNumber: ev.FrameNumber,
			Timestamp:   ev.Timestamp,
			From:        m.latest.Emotion,
			To:          ev.Emotion,
			Rule:        ev.Rule,
		}
		m.history = append([]LabelChange{change}, m.history...)
		if len(m.history) > labelHistorySize {
			m.history = m.history[:labelHistorySize]
		}
	}
	latest := ev
	m.latest = &latest

	m.arrivals = append(m.arrivals, now)
	m.trimArrivalsLocked(now)
}

// RecordInvalid counts a frame rejected before classification.
func (m *Monitor) RecordInvalid() {
	m.mu.Lock()
	m.invalidFrames++
	m.mu.Unlock()
}

// ClientDelta adjusts the number of connected stream clients.
func (m *Monitor) ClientDelta(d int) {
	m.mu.Lock()
	m.streamClients += d
	m.mu.Unlock()
}

func (m *Monitor) trimArrivalsLocked(now time.Time) {
	cut := 0
	for cut < len(m.arrivals) && now.Sub(m.arrivals[cut]) > fpsWindow {
		cut++
	}
	m.arrivals = m.arrivals[cut:]
}

// Snapshot returns a copy of the current state.
func (m *Monitor) Snapshot() StatusPayload {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.trimArrivalsLocked(now)

	counts := make(map[string]int, len(m.counts))
	for k, v := range m.counts {
		counts[k] = v
	}
	history := make([]LabelChange, len(m.history))
	copy(history, m.history)

	var latest *codec.EmotionEvent
	if m.latest != nil {
		ev := *m.latest
		latest = &ev
	}

	return StatusPayload{
		Monitor: MonitorStats{
			FramesProcessed: m.framesProcessed,
			CurrentFPS:      float64(len(m.arrivals)) / fpsWindow.Seconds(),
			TargetFPS:       m.targetFPS,
			NoFaceFrames:    m.noFaceFrames,
			InvalidFrames:   m.invalidFrames,
			StreamClients:   m.streamClients,
			UptimeSeconds:   now.Sub(m.startTime).Seconds(),
		},
		EmotionCounts: counts,
		LatestEvent:   latest,
		LabelHistory:  history,
		Timestamp:     float64(now.UnixMilli()) / 1000,
	}
}

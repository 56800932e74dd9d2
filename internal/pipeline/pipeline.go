// Package pipeline turns landmark frames into emotion labels and avatar images.
package pipeline

import (
	"image"
	"sync"
	"time"

	"github.com/dj-oyu/moodface/internal/avatar"
	"github.com/dj-oyu/moodface/internal/emotion"
	"github.com/dj-oyu/moodface/internal/landmark"
	"github.com/dj-oyu/moodface/internal/metrics"
	"github.com/dj-oyu/moodface/pkg/types"
)

// Result is the outcome of one frame.
type Result struct {
	FrameNumber uint64
	Timestamp   float64
	FaceFound   bool

	// Features is nil when no face was detected.
	Features *landmark.FeatureVector

	// Raw is the cascade output, Emotion the label after stabilization.
	Raw     emotion.Emotion
	Emotion emotion.Emotion
	Rule    string

	// Image is nil when rendering is disabled.
	Image *image.RGBA

	Latency time.Duration
}

// Pipeline runs extract → classify → stabilize → render. It is safe for
// concurrent use; frames are processed one at a time so the stabilizer
// sees them in arrival order.
type Pipeline struct {
	mu         sync.Mutex
	cascade    *emotion.Cascade
	stabilizer *emotion.Stabilizer
	metrics    *metrics.Metrics
	render     bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithStabilizer requires n consecutive identical labels before the output
// label changes. n <= 1 disables stabilization.
func WithStabilizer(n int) Option {
	return func(p *Pipeline) { p.stabilizer = emotion.NewStabilizer(n) }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithoutRender skips avatar rendering; Result.Image stays nil.
func WithoutRender() Option {
	return func(p *Pipeline) { p.render = false }
}

// WithCascade replaces the default rule cascade.
func WithCascade(c *emotion.Cascade) Option {
	return func(p *Pipeline) { p.cascade = c }
}

// New builds a pipeline with the default cascade and no stabilization.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		cascade:    emotion.Default(),
		stabilizer: emotion.NewStabilizer(1),
		render:     true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process classifies one frame. A frame without a detected face yields
// Neutral under the "no-face" rule and resets the stabilizer. A non-empty
// landmark set shorter than the 468-point mesh panics; callers validate first.
func (p *Pipeline) Process(frame types.LandmarkFrame) Result {
	start := time.Now()

	res := Result{
		FrameNumber: frame.FrameNumber,
		Timestamp:   frame.Timestamp,
		FaceFound:   frame.HasFace(),
	}

	p.label(&res, frame.Landmarks)

	if p.render {
		renderStart := time.Now()
		res.Image = avatar.Render(res.Emotion)
		if p.metrics != nil {
			p.metrics.UpdateRenderLatency(time.Since(renderStart))
		}
	}

	res.Latency = time.Since(start)
	p.record(res)
	return res
}

// label runs the cascade and stabilizer. The lock is released even when
// Extract panics on a short set.
func (p *Pipeline) label(res *Result, ls types.LandmarkSet) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !res.FaceFound {
		res.Raw, res.Emotion, res.Rule = emotion.Neutral, emotion.Neutral, emotion.NoFaceRuleName
		p.stabilizer.Reset()
		return
	}
	f := landmark.Extract(ls)
	res.Features = &f
	res.Raw, res.Rule = p.cascade.Explain(f)
	res.Emotion = p.stabilizer.Observe(res.Raw)
}

func (p *Pipeline) record(res Result) {
	if p.metrics == nil {
		return
	}
	if res.FaceFound {
		p.metrics.FramesClassified.Add(1)
	} else {
		p.metrics.NoFaceFrames.Add(1)
	}
	p.metrics.ObserveEmotion(res.Emotion.String())
	p.metrics.UpdateProcessLatency(res.Latency)
}

// Reset clears stabilizer history, e.g. when a new session starts.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	p.stabilizer.Reset()
	p.mu.Unlock()
}

package codec

import (
	"github.com/dj-oyu/moodface/internal/landmark"
	"github.com/dj-oyu/moodface/internal/pipeline"
)

// EmotionEvent is the per-frame classification result sent to clients.
type EmotionEvent struct {
	FrameNumber uint64                  `json:"frame_number"`
	Timestamp   float64                 `json:"timestamp"`
	FaceFound   bool                    `json:"face_found"`
	Emotion     string                  `json:"emotion"`
	RawEmotion  string                  `json:"raw_emotion"`
	Rule        string                  `json:"rule"`
	Features    *landmark.FeatureVector `json:"features,omitempty"`
}

// EventFromResult converts a pipeline result into its wire form.
func EventFromResult(res pipeline.Result) EmotionEvent {
	ev := EmotionEvent{
		FrameNumber: res.FrameNumber,
		Timestamp:   res.Timestamp,
		FaceFound:   res.FaceFound,
		Emotion:     res.Emotion.String(),
		RawEmotion:  res.Raw.String(),
		Rule:        res.Rule,
	}
	if res.Features != nil {
		f := *res.Features
		ev.Features = &f
	}
	return ev
}

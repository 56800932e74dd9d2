// Package landmarktest builds synthetic face mesh landmark sets for tests
// and offline fixtures.
package landmarktest

import (
	"github.com/dj-oyu/moodface/internal/landmark"
	"github.com/dj-oyu/moodface/pkg/types"
)

// Geometry describes the features a synthetic face should produce.
type Geometry struct {
	EyeGap        float64
	MouthOpenness float64
	MouthWidth    float64
	LipDroop      float64
}

// Relaxed is a neutral, eyes-open face.
var Relaxed = Geometry{EyeGap: 0.03, MouthOpenness: 0.01, MouthWidth: 0.10, LipDroop: 0}

const (
	eyeTop   = 0.40
	mouthTop = 0.70
	centerX  = 0.50
)

// Face returns a full 468-point set whose extracted features approximate g.
// Points not referenced by the feature tables sit at the frame center.
func Face(g Geometry) types.LandmarkSet {
	ls := make(types.LandmarkSet, types.NumFaceLandmarks)
	for i := range ls {
		ls[i] = types.Point3D{X: centerX, Y: 0.5}
	}

	for _, eye := range []landmark.EyeIndices{landmark.EyeLandmarkIndices.Left, landmark.EyeLandmarkIndices.Right} {
		for _, idx := range eye.Upper {
			ls[idx].Y = eyeTop
		}
		for _, idx := range eye.Lower {
			ls[idx].Y = eyeTop + g.EyeGap
		}
	}

	m := landmark.MouthLandmarkIndices
	ls[m.UpperInnerLip].Y = mouthTop
	ls[m.LowerInnerLip].Y = mouthTop + g.MouthOpenness
	cornerY := mouthTop + g.MouthOpenness/2 + g.LipDroop
	ls[m.LeftCorner] = types.Point3D{X: centerX - g.MouthWidth/2, Y: cornerY}
	ls[m.RightCorner] = types.Point3D{X: centerX + g.MouthWidth/2, Y: cornerY}
	return ls
}

// Frame wraps Face in a detector envelope.
func Frame(n uint64, g Geometry) types.LandmarkFrame {
	return types.LandmarkFrame{
		FrameNumber: n,
		Timestamp:   float64(n) / 30,
		FaceFound:   true,
		Landmarks:   Face(g),
	}
}

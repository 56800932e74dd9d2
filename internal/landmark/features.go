package landmark

import (
	"fmt"
	"math"

	"github.com/dj-oyu/moodface/pkg/types"
)

// Teeth are considered visible when the mouth is both open and stretched.
// Both thresholds are strict and empirically fixed.
const (
	TeethMinOpenness = 0.04
	TeethMinWidth    = 0.18
)

// FeatureVector is the per-frame classifier input.
type FeatureVector struct {
	AvgEyeOpen    float64 `json:"avg_eye_open"`
	MouthOpenness float64 `json:"mouth_openness"`
	MouthWidth    float64 `json:"mouth_width"`
	LipDroop      float64 `json:"lip_droop"` // Positive when mouth corners sit below mouth center
	ShowingTeeth  bool    `json:"showing_teeth"`
}

// MustHaveLandmarks panics unless ls carries the full face mesh topology.
// A short set is an upstream integration bug, not a runtime condition.
func MustHaveLandmarks(ls types.LandmarkSet) {
	if len(ls) < types.NumFaceLandmarks {
		panic(fmt.Sprintf("landmark: set has %d points, face mesh topology needs at least %d", len(ls), types.NumFaceLandmarks))
	}
}

// Extract computes the feature vector for one frame.
func Extract(ls types.LandmarkSet) FeatureVector {
	MustHaveLandmarks(ls)

	left := eyeGap(ls, EyeLandmarkIndices.Left)
	right := eyeGap(ls, EyeLandmarkIndices.Right)

	mouthTop := ls[MouthLandmarkIndices.UpperInnerLip].Y
	mouthBottom := ls[MouthLandmarkIndices.LowerInnerLip].Y
	leftCorner := ls[MouthLandmarkIndices.LeftCorner]
	rightCorner := ls[MouthLandmarkIndices.RightCorner]

	f := FeatureVector{
		AvgEyeOpen:    (left + right) / 2,
		MouthOpenness: math.Abs(mouthTop - mouthBottom),
		MouthWidth:    math.Abs(leftCorner.X - rightCorner.X),
		LipDroop:      (leftCorner.Y+rightCorner.Y)/2 - (mouthTop+mouthBottom)/2,
	}
	f.ShowingTeeth = f.MouthOpenness > TeethMinOpenness && f.MouthWidth > TeethMinWidth
	return f
}

func eyeGap(ls types.LandmarkSet, eye EyeIndices) float64 {
	top := (ls[eye.Upper[0]].Y + ls[eye.Upper[1]].Y) / 2
	bottom := (ls[eye.Lower[0]].Y + ls[eye.Lower[1]].Y) / 2
	return math.Abs(top - bottom)
}

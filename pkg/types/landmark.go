package types

import (
	"errors"
	"fmt"
	"math"
)

// NumFaceLandmarks is the size of a MediaPipe Face Mesh landmark set
// (468 points, refine_landmarks disabled).
const NumFaceLandmarks = 468

var (
	// ErrShortLandmarkSet is returned when a set has fewer than NumFaceLandmarks points.
	ErrShortLandmarkSet = errors.New("landmark set shorter than face mesh topology")
	// ErrNonFiniteLandmark is returned when a coordinate is NaN or Inf.
	ErrNonFiniteLandmark = errors.New("landmark coordinate is not finite")
)

// Point3D is a single face mesh landmark. X and Y are normalized to [0,1]
// relative to frame width/height, Z is relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// LandmarkSet is the ordered landmark list produced by the upstream face mesh
// model. Index assignment is a contract with that model and must not be renumbered.
type LandmarkSet []Point3D

// Validate checks the set against the face mesh contract.
func (ls LandmarkSet) Validate() error {
	if len(ls) < NumFaceLandmarks {
		return fmt.Errorf("%w: got %d points, need %d", ErrShortLandmarkSet, len(ls), NumFaceLandmarks)
	}
	for i, p := range ls {
		if !finite(p.X) || !finite(p.Y) || !finite(p.Z) {
			return fmt.Errorf("%w: index %d", ErrNonFiniteLandmark, i)
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// LandmarkFrame is the per-frame envelope sent by the face landmark detector.
type LandmarkFrame struct {
	FrameNumber uint64      `json:"frame_number"` // Sequential frame number
	Timestamp   float64     `json:"timestamp"`    // Capture time, unix seconds
	FaceFound   bool        `json:"face_found"`   // False when the detector saw no face
	Landmarks   LandmarkSet `json:"landmarks"`
}

// HasFace reports whether the frame carries a detection to classify.
func (f LandmarkFrame) HasFace() bool {
	return f.FaceFound && len(f.Landmarks) > 0
}

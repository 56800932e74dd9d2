// Package landmark derives scalar geometric features from face mesh landmarks.
package landmark

// Landmark indices follow the MediaPipe Face Mesh 468-point topology
// (face_mesh solution, refine_landmarks=false). A model upgrade that
// renumbers the mesh only needs to touch these tables.
// See: https://github.com/google/mediapipe/blob/master/mediapipe/modules/face_geometry/data/canonical_face_model_uv_visualization.png

// EyeIndices lists the lid landmarks of one eye. Each lid is averaged over
// two points to reduce jitter.
type EyeIndices struct {
	Upper [2]int
	Lower [2]int
}

// EyeLandmarkIndices holds the lid points for both eyes.
var EyeLandmarkIndices = struct {
	Left  EyeIndices
	Right EyeIndices
}{
	Left:  EyeIndices{Upper: [2]int{159, 158}, Lower: [2]int{145, 153}},
	Right: EyeIndices{Upper: [2]int{386, 385}, Lower: [2]int{374, 380}},
}

// MouthLandmarkIndices holds the inner lip and mouth corner points.
var MouthLandmarkIndices = struct {
	UpperInnerLip int
	LowerInnerLip int
	LeftCorner    int
	RightCorner   int
}{
	UpperInnerLip: 13,
	LowerInnerLip: 14,
	LeftCorner:    61,
	RightCorner:   291,
}

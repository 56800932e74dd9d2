// Package codec decodes landmark frames and encodes emotion events for the
// HTTP, websocket and file transports.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/dj-oyu/moodface/pkg/types"
)

// ErrMalformedFrame marks input that cannot be turned into a LandmarkFrame.
var ErrMalformedFrame = errors.New("malformed landmark frame")

// MaxFrameBytes bounds a single encoded frame on every transport.
const MaxFrameBytes = 1 << 20

// wirePoint accepts {"x":..,"y":..,"z":..} or [x, y, z] (z optional).
type wirePoint types.Point3D

func (p *wirePoint) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var xyz []float64
		if err := json.Unmarshal(b, &xyz); err != nil {
			return err
		}
		if len(xyz) < 2 || len(xyz) > 3 {
			return fmt.Errorf("landmark array has %d components", len(xyz))
		}
		p.X, p.Y = xyz[0], xyz[1]
		if len(xyz) == 3 {
			p.Z = xyz[2]
		}
		return nil
	}
	return json.Unmarshal(b, (*types.Point3D)(p))
}

type wireFrame struct {
	FrameNumber *uint64     `json:"frame_number"`
	Timestamp   float64     `json:"timestamp"`
	FaceFound   *bool       `json:"face_found"`
	Landmarks   []wirePoint `json:"landmarks"`
}

// DecodeLandmarkFrameJSON reads one frame. The body is either the envelope
//
//	{"frame_number": 1, "timestamp": 0.03, "face_found": true, "landmarks": [...]}
//
// or a bare landmark array. A missing face_found means "face present iff
// landmarks are non-empty". Frames with a face are validated.
func DecodeLandmarkFrameJSON(r io.Reader) (types.LandmarkFrame, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxFrameBytes+1))
	if err != nil {
		return types.LandmarkFrame{}, fmt.Errorf("read frame: %w", err)
	}
	if len(data) > MaxFrameBytes {
		return types.LandmarkFrame{}, fmt.Errorf("%w: frame exceeds %d bytes", ErrMalformedFrame, MaxFrameBytes)
	}
	frame, _, err := decodeJSON(data)
	return frame, err
}

// decodeJSON also reports whether the input carried an explicit frame number.
func decodeJSON(data []byte) (types.LandmarkFrame, bool, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return types.LandmarkFrame{}, false, fmt.Errorf("%w: empty input", ErrMalformedFrame)
	}

	var wf wireFrame
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &wf.Landmarks); err != nil {
			return types.LandmarkFrame{}, false, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
	case '{':
		if err := json.Unmarshal(data, &wf); err != nil {
			return types.LandmarkFrame{}, false, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
	default:
		return types.LandmarkFrame{}, false, fmt.Errorf("%w: expected JSON object or array", ErrMalformedFrame)
	}

	frame := types.LandmarkFrame{Timestamp: wf.Timestamp}
	if wf.FrameNumber != nil {
		frame.FrameNumber = *wf.FrameNumber
	}
	if len(wf.Landmarks) > 0 {
		frame.Landmarks = make(types.LandmarkSet, len(wf.Landmarks))
		for i, p := range wf.Landmarks {
			frame.Landmarks[i] = types.Point3D(p)
		}
	}
	if wf.FaceFound != nil {
		frame.FaceFound = *wf.FaceFound
	} else {
		frame.FaceFound = len(frame.Landmarks) > 0
	}

	if err := validate(frame); err != nil {
		return types.LandmarkFrame{}, false, err
	}
	return frame, wf.FrameNumber != nil, nil
}

func validate(frame types.LandmarkFrame) error {
	if !frame.HasFace() {
		return nil
	}
	if err := frame.Landmarks.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}
	return nil
}

// EncodeLandmarkFrameJSON writes frame in the envelope form.
func EncodeLandmarkFrameJSON(w io.Writer, frame types.LandmarkFrame) error {
	return json.NewEncoder(w).Encode(frame)
}

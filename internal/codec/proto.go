package codec

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/dj-oyu/moodface/internal/landmark"
	"github.com/dj-oyu/moodface/pkg/types"
)

// Binary wire schema, proto3 field numbering:
//
//	message LandmarkFrame {
//	  uint64 frame_number = 1;
//	  double timestamp    = 2;
//	  bool   face_found   = 3;
//	  repeated float coords = 4; // packed x,y,z per landmark
//	}
//
//	message EmotionEvent {
//	  uint64 frame_number   = 1;
//	  double timestamp      = 2;
//	  string emotion        = 3;
//	  string rule           = 4;
//	  double avg_eye_open   = 5;
//	  double mouth_openness = 6;
//	  double mouth_width    = 7;
//	  double lip_droop      = 8;
//	  bool   showing_teeth  = 9;
//	  bool   face_found     = 10;
//	  string raw_emotion    = 11;
//	}
const (
	frameNumberField protowire.Number = 1
	timestampField   protowire.Number = 2
	faceFoundField   protowire.Number = 3
	coordsField      protowire.Number = 4

	eventFrameNumberField protowire.Number = 1
	eventTimestampField   protowire.Number = 2
	eventEmotionField     protowire.Number = 3
	eventRuleField        protowire.Number = 4
	eventEyeOpenField     protowire.Number = 5
	eventOpennessField    protowire.Number = 6
	eventWidthField       protowire.Number = 7
	eventDroopField       protowire.Number = 8
	eventTeethField       protowire.Number = 9
	eventFaceFoundField   protowire.Number = 10
	eventRawEmotionField  protowire.Number = 11
)

// Landmark coordinates travel as float32, as the detector produces them.
const coordsPerLandmark = 3

// MarshalLandmarkFrame encodes frame. Zero scalars are omitted.
func MarshalLandmarkFrame(frame types.LandmarkFrame) []byte {
	b := make([]byte, 0, 32+len(frame.Landmarks)*coordsPerLandmark*4)
	if frame.FrameNumber != 0 {
		b = protowire.AppendTag(b, frameNumberField, protowire.VarintType)
		b = protowire.AppendVarint(b, frame.FrameNumber)
	}
	b = appendDouble(b, timestampField, frame.Timestamp)
	b = appendBool(b, faceFoundField, frame.FaceFound)
	if len(frame.Landmarks) > 0 {
		packed := make([]byte, 0, len(frame.Landmarks)*coordsPerLandmark*4)
		for _, p := range frame.Landmarks {
			packed = protowire.AppendFixed32(packed, math.Float32bits(float32(p.X)))
			packed = protowire.AppendFixed32(packed, math.Float32bits(float32(p.Y)))
			packed = protowire.AppendFixed32(packed, math.Float32bits(float32(p.Z)))
		}
		b = protowire.AppendTag(b, coordsField, protowire.BytesType)
		b = protowire.AppendBytes(b, packed)
	}
	return b
}

// UnmarshalLandmarkFrame decodes and validates a binary frame. Unknown
// fields are skipped. Coordinates may be packed or repeated.
func UnmarshalLandmarkFrame(b []byte) (types.LandmarkFrame, error) {
	var (
		frame  types.LandmarkFrame
		coords []float32
	)
	if len(b) > MaxFrameBytes {
		return frame, fmt.Errorf("%w: frame exceeds %d bytes", ErrMalformedFrame, MaxFrameBytes)
	}

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return types.LandmarkFrame{}, wireError(protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == frameNumberField && typ == protowire.VarintType:
			frame.FrameNumber, n = protowire.ConsumeVarint(b)
		case num == timestampField && typ == protowire.Fixed64Type:
			var v uint64
			v, n = protowire.ConsumeFixed64(b)
			frame.Timestamp = math.Float64frombits(v)
		case num == faceFoundField && typ == protowire.VarintType:
			var v uint64
			v, n = protowire.ConsumeVarint(b)
			frame.FaceFound = protowire.DecodeBool(v)
		case num == coordsField && typ == protowire.BytesType:
			var packed []byte
			packed, n = protowire.ConsumeBytes(b)
			if n >= 0 {
				if len(packed)%4 != 0 {
					return types.LandmarkFrame{}, fmt.Errorf("%w: packed coordinates length %d", ErrMalformedFrame, len(packed))
				}
				for len(packed) > 0 {
					v, m := protowire.ConsumeFixed32(packed)
					coords = append(coords, math.Float32frombits(v))
					packed = packed[m:]
				}
			}
		case num == coordsField && typ == protowire.Fixed32Type:
			var v uint32
			v, n = protowire.ConsumeFixed32(b)
			coords = append(coords, math.Float32frombits(v))
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return types.LandmarkFrame{}, wireError(protowire.ParseError(n))
		}
		b = b[n:]
	}

	if len(coords)%coordsPerLandmark != 0 {
		return types.LandmarkFrame{}, fmt.Errorf("%w: %d coordinates is not a multiple of %d", ErrMalformedFrame, len(coords), coordsPerLandmark)
	}
	if len(coords) > 0 {
		frame.Landmarks = make(types.LandmarkSet, len(coords)/coordsPerLandmark)
		for i := range frame.Landmarks {
			c := coords[i*coordsPerLandmark:]
			frame.Landmarks[i] = types.Point3D{X: float64(c[0]), Y: float64(c[1]), Z: float64(c[2])}
		}
	}

	if err := validate(frame); err != nil {
		return types.LandmarkFrame{}, err
	}
	return frame, nil
}

// MarshalEmotionEvent encodes ev. Feature fields are written only when present.
func MarshalEmotionEvent(ev EmotionEvent) []byte {
	b := make([]byte, 0, 96)
	if ev.FrameNumber != 0 {
		b = protowire.AppendTag(b, eventFrameNumberField, protowire.VarintType)
		b = protowire.AppendVarint(b, ev.FrameNumber)
	}
	b = appendDouble(b, eventTimestampField, ev.Timestamp)
	b = appendString(b, eventEmotionField, ev.Emotion)
	b = appendString(b, eventRuleField, ev.Rule)
	if f := ev.Features; f != nil {
		// Always written so a present-but-zero vector survives the round trip.
		for _, fd := range []struct {
			num protowire.Number
			v   float64
		}{
			{eventEyeOpenField, f.AvgEyeOpen},
			{eventOpennessField, f.MouthOpenness},
			{eventWidthField, f.MouthWidth},
			{eventDroopField, f.LipDroop},
		} {
			b = protowire.AppendTag(b, fd.num, protowire.Fixed64Type)
			b = protowire.AppendFixed64(b, math.Float64bits(fd.v))
		}
		b = appendBool(b, eventTeethField, f.ShowingTeeth)
	}
	b = appendBool(b, eventFaceFoundField, ev.FaceFound)
	b = appendString(b, eventRawEmotionField, ev.RawEmotion)
	return b
}

// UnmarshalEmotionEvent decodes an event produced by MarshalEmotionEvent.
func UnmarshalEmotionEvent(b []byte) (EmotionEvent, error) {
	var (
		ev EmotionEvent
		f  landmark.FeatureVector
	)
	hasFeatures := false

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return EmotionEvent{}, wireError(protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == eventFrameNumberField && typ == protowire.VarintType:
			ev.FrameNumber, n = protowire.ConsumeVarint(b)
		case typ == protowire.Fixed64Type && (num == eventTimestampField || (num >= eventEyeOpenField && num <= eventDroopField)):
			var v uint64
			v, n = protowire.ConsumeFixed64(b)
			d := math.Float64frombits(v)
			switch num {
			case eventTimestampField:
				ev.Timestamp = d
			case eventEyeOpenField:
				f.AvgEyeOpen, hasFeatures = d, true
			case eventOpennessField:
				f.MouthOpenness, hasFeatures = d, true
			case eventWidthField:
				f.MouthWidth, hasFeatures = d, true
			case eventDroopField:
				f.LipDroop, hasFeatures = d, true
			}
		case typ == protowire.BytesType && (num == eventEmotionField || num == eventRuleField || num == eventRawEmotionField):
			var s string
			s, n = protowire.ConsumeString(b)
			switch num {
			case eventEmotionField:
				ev.Emotion = s
			case eventRuleField:
				ev.Rule = s
			default:
				ev.RawEmotion = s
			}
		case typ == protowire.VarintType && (num == eventTeethField || num == eventFaceFoundField):
			var v uint64
			v, n = protowire.ConsumeVarint(b)
			if num == eventTeethField {
				f.ShowingTeeth, hasFeatures = protowire.DecodeBool(v), true
			} else {
				ev.FaceFound = protowire.DecodeBool(v)
			}
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return EmotionEvent{}, wireError(protowire.ParseError(n))
		}
		b = b[n:]
	}

	if hasFeatures {
		ev.Features = &f
	}
	return ev, nil
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeBool(v))
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func wireError(err error) error {
	return fmt.Errorf("%w: %v", ErrMalformedFrame, err)
}

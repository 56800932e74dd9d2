package codec

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/dj-oyu/moodface/internal/emotion"
	"github.com/dj-oyu/moodface/internal/landmark/landmarktest"
	"github.com/dj-oyu/moodface/internal/pipeline"
	"github.com/dj-oyu/moodface/pkg/types"
)

func frameJSON(t *testing.T, frame types.LandmarkFrame) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, EncodeLandmarkFrameJSON(&buf, frame))
	return strings.TrimSpace(buf.String())
}

func TestDecodeEnvelope(t *testing.T) {
	want := landmarktest.Frame(42, landmarktest.Relaxed)
	got, err := DecodeLandmarkFrameJSON(strings.NewReader(frameJSON(t, want)))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecodeBareArray(t *testing.T) {
	pts := landmarktest.Face(landmarktest.Relaxed)
	arrays := make([][]float64, len(pts))
	for i, p := range pts {
		arrays[i] = []float64{p.X, p.Y, p.Z}
	}
	data, err := json.Marshal(arrays)
	require.NoError(t, err)

	got, err := DecodeLandmarkFrameJSON(bytes.NewReader(data))
	require.NoError(t, err)
	assert.True(t, got.FaceFound, "face presence inferred from landmarks")
	assert.Equal(t, pts, got.Landmarks)
}

func TestDecodeNoFace(t *testing.T) {
	got, err := DecodeLandmarkFrameJSON(strings.NewReader(`{"frame_number":3,"timestamp":1.5,"face_found":false,"landmarks":[]}`))
	require.NoError(t, err)
	assert.False(t, got.HasFace())
	assert.Equal(t, uint64(3), got.FrameNumber)

	got, err = DecodeLandmarkFrameJSON(strings.NewReader(`{"frame_number":4}`))
	require.NoError(t, err)
	assert.False(t, got.FaceFound)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"empty":      "",
		"not json":   "hello",
		"bad object": `{"landmarks": "nope"}`,
		"short set":  `{"face_found": true, "landmarks": [{"x":0.1,"y":0.2,"z":0}]}`,
		"bad point":  `[[0.1]]`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeLandmarkFrameJSON(strings.NewReader(body))
			require.ErrorIs(t, err, ErrMalformedFrame)
		})
	}

	_, err := DecodeLandmarkFrameJSON(strings.NewReader(`{"face_found": true, "landmarks": [{"x":0.1,"y":0.2,"z":0}]}`))
	assert.ErrorIs(t, err, types.ErrShortLandmarkSet)
}

func TestScanner(t *testing.T) {
	var session strings.Builder
	session.WriteString("# recorded session\n")
	session.WriteString(frameJSON(t, landmarktest.Frame(10, landmarktest.Relaxed)) + "\n\n")
	session.WriteString(`{"timestamp": 2.0, "face_found": false}` + "\n")

	sc := NewLandmarkFrameScanner(strings.NewReader(session.String()))
	require.True(t, sc.Scan())
	assert.Equal(t, uint64(10), sc.Frame().FrameNumber)
	assert.Equal(t, 2, sc.Line())

	require.True(t, sc.Scan())
	assert.Equal(t, uint64(1), sc.Frame().FrameNumber, "numbered by position when absent")
	assert.False(t, sc.Frame().FaceFound)
	assert.Equal(t, 4, sc.Line())

	assert.False(t, sc.Scan())
	assert.NoError(t, sc.Err())
}

func TestScannerStopsOnBadLine(t *testing.T) {
	sc := NewLandmarkFrameScanner(strings.NewReader("{\"face_found\":false}\n{oops\n{\"face_found\":false}\n"))
	require.True(t, sc.Scan())
	assert.False(t, sc.Scan())
	require.ErrorIs(t, sc.Err(), ErrMalformedFrame)
	assert.Contains(t, sc.Err().Error(), "line 2")
	assert.False(t, sc.Scan())
}

func TestLandmarkFrameWire(t *testing.T) {
	want := landmarktest.Frame(7, landmarktest.Geometry{EyeGap: 0.02, MouthOpenness: 0.05, MouthWidth: 0.2})
	got, err := UnmarshalLandmarkFrame(MarshalLandmarkFrame(want))
	require.NoError(t, err)

	assert.Equal(t, want.FrameNumber, got.FrameNumber)
	assert.Equal(t, want.Timestamp, got.Timestamp)
	assert.True(t, got.FaceFound)
	require.Len(t, got.Landmarks, types.NumFaceLandmarks)
	for i := range want.Landmarks {
		assert.InDelta(t, want.Landmarks[i].X, got.Landmarks[i].X, 1e-6)
		assert.InDelta(t, want.Landmarks[i].Y, got.Landmarks[i].Y, 1e-6)
	}
}

func TestLandmarkFrameWireErrors(t *testing.T) {
	_, err := UnmarshalLandmarkFrame([]byte{0xff})
	assert.ErrorIs(t, err, ErrMalformedFrame)

	// Two floats cannot form a landmark.
	var b []byte
	b = protowire.AppendTag(b, coordsField, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, 0)
	b = protowire.AppendTag(b, coordsField, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, 0)
	_, err = UnmarshalLandmarkFrame(b)
	assert.ErrorIs(t, err, ErrMalformedFrame)

	// Unknown fields are skipped; an empty frame has no face.
	b = protowire.AppendTag(nil, 99, protowire.BytesType)
	b = protowire.AppendString(b, "future")
	frame, err := UnmarshalLandmarkFrame(b)
	require.NoError(t, err)
	assert.False(t, frame.HasFace())
}

func TestEmotionEventWire(t *testing.T) {
	res := pipeline.New(pipeline.WithoutRender()).Process(landmarktest.Frame(5, landmarktest.Relaxed))
	want := EventFromResult(res)
	require.NotNil(t, want.Features)
	assert.Equal(t, "neutral", want.Emotion)
	assert.Equal(t, emotion.DefaultRuleName, want.Rule)

	got, err := UnmarshalEmotionEvent(MarshalEmotionEvent(want))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	noFace := EmotionEvent{FrameNumber: 9, Emotion: "neutral", RawEmotion: "neutral", Rule: emotion.NoFaceRuleName}
	got, err = UnmarshalEmotionEvent(MarshalEmotionEvent(noFace))
	require.NoError(t, err)
	assert.Equal(t, noFace, got)
	assert.Nil(t, got.Features)
}

func TestEmotionEventJSON(t *testing.T) {
	ev := EmotionEvent{FrameNumber: 1, Emotion: "sad", RawEmotion: "sad", Rule: "lip-droop", FaceFound: true}
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t, `{"frame_number":1,"timestamp":0,"face_found":true,"emotion":"sad","raw_emotion":"sad","rule":"lip-droop"}`, string(data))
}

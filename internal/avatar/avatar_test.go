package avatar

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dj-oyu/moodface/internal/emotion"
)

func rgbaAt(img *image.RGBA, x, y int) color.RGBA {
	return img.RGBAAt(x, y)
}

// assertColorNear tolerates antialiasing rounding on fully covered pixels.
func assertColorNear(t *testing.T, want color.RGBA, img *image.RGBA, x, y int, msg string) {
	t.Helper()
	got := rgbaAt(img, x, y)
	diff := func(a, b uint8) int {
		if a > b {
			return int(a - b)
		}
		return int(b - a)
	}
	ok := diff(want.R, got.R) <= 2 && diff(want.G, got.G) <= 2 && diff(want.B, got.B) <= 2
	assert.True(t, ok, "%s: pixel (%d,%d) = %v, want %v", msg, x, y, got, want)
}

func TestRenderDimensions(t *testing.T) {
	for _, e := range emotion.All() {
		img := Render(e)
		assert.Equal(t, image.Rect(0, 0, Width, Height), img.Bounds(), e.String())
		assert.Len(t, PackRGB(img), Width*Height*3)
	}
}

func TestRenderDeterministic(t *testing.T) {
	for _, e := range emotion.All() {
		a := PackRGB(Render(e))
		b := PackRGB(Render(e))
		assert.True(t, bytes.Equal(a, b), "render %s twice", e)
	}
}

func TestRenderDistinctPerEmotion(t *testing.T) {
	seen := map[string]emotion.Emotion{}
	for _, e := range emotion.All() {
		key := string(PackRGB(Render(e)))
		prev, dup := seen[key]
		assert.False(t, dup, "%s renders identically to %s", e, prev)
		seen[key] = e
	}
}

func TestRenderUnknownFallsBackToNeutral(t *testing.T) {
	assert.Equal(t, PackRGB(Render(emotion.Neutral)), PackRGB(Render(emotion.Emotion(99))))
	assert.Equal(t, Palette(emotion.Neutral), Palette(emotion.Emotion(-3)))
}

func TestRenderLayout(t *testing.T) {
	neutral := Render(emotion.Neutral)
	assertColorNear(t, background, neutral, 0, 0, "neutral")
	assertColorNear(t, background, neutral, Width-1, Height-1, "neutral")
	assertColorNear(t, skin, neutral, Width/2, Height/2, "face center")
	assertColorNear(t, ink, neutral, 270, 190, "solid left eye")
	assertColorNear(t, ink, neutral, 370, 190, "solid right eye")

	happy := Render(emotion.Happy)
	assertColorNear(t, skin, happy, 270, 190, "arched eye leaves center open")
	assertColorNear(t, toothWhite, happy, 270, 280, "first tooth")
	assertColorNear(t, toothWhite, happy, 370, 280, "last tooth")

	surprised := Render(emotion.Surprised)
	assertColorNear(t, skin, surprised, 320, 290, "open mouth is a ring")
	assertColorNear(t, ink, surprised, 349, 290, "surprised")

	sad := Render(emotion.Sad)
	assertColorNear(t, ink, sad, 320, 330, "bottom of the frown")
	assertColorNear(t, skin, sad, 320, 310, "frown center")
	assertColorNear(t, skin, sad, 320, 290, "no upper half")
}

func TestRenderLabelColor(t *testing.T) {
	for _, e := range emotion.All() {
		img := Render(e)
		want := Palette(e)
		found := 0
		for y := labelY - 13*labelScale; y < labelY+4*labelScale; y++ {
			for x := labelX; x < labelX+7*labelScale*len(e.Label()); x++ {
				if rgbaAt(img, x, y) == want {
					found++
				}
			}
		}
		assert.Positive(t, found, "label pixels for %s", e)
	}
}

func TestEncoders(t *testing.T) {
	img := Render(emotion.Happy)

	var pngBuf bytes.Buffer
	require.NoError(t, EncodePNG(&pngBuf, img))
	decoded, err := png.Decode(&pngBuf)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())

	var jpgBuf bytes.Buffer
	require.NoError(t, EncodeJPEG(&jpgBuf, img, 0))
	cfg, err := jpeg.DecodeConfig(&jpgBuf)
	require.NoError(t, err)
	assert.Equal(t, Width, cfg.Width)
	assert.Equal(t, Height, cfg.Height)
}

func TestPackRGBOrder(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.SetRGBA(0, 0, color.RGBA{1, 2, 3, 255})
	img.SetRGBA(1, 0, color.RGBA{4, 5, 6, 255})
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, PackRGB(img))
}

// Package avatar draws a fixed-layout cartoon face for an emotion label.
package avatar

import (
	"image"
	"image/color"

	"github.com/dj-oyu/moodface/internal/emotion"
)

// Canvas size. All geometry below is relative to its center.
const (
	Width  = 640
	Height = 480
)

const (
	faceRadius   = 150
	eyeDX        = 50
	eyeDY        = -50
	mouthDY      = 50
	labelX       = 50
	labelY       = 50
	labelScale   = 2
	teethCount   = 5
	teethSpacing = 25
)

var (
	background = color.RGBA{0, 0, 0, 255}
	skin       = color.RGBA{255, 220, 180, 255}
	ink        = color.RGBA{0, 0, 0, 255}
	toothWhite = color.RGBA{255, 255, 255, 255}
)

var palette = map[emotion.Emotion]color.RGBA{
	emotion.Happy:     {0, 200, 0, 255},
	emotion.Surprised: {255, 165, 0, 255},
	emotion.Sleepy:    {100, 100, 255, 255},
	emotion.Sad:       {255, 0, 0, 255},
	emotion.Neutral:   {0, 0, 255, 255},
}

// Palette returns the label colour for e. Unknown values use the Neutral colour.
func Palette(e emotion.Emotion) color.RGBA {
	if c, ok := palette[e]; ok {
		return c
	}
	return palette[emotion.Neutral]
}

// Render draws the avatar for e into a freshly allocated 640x480 image.
// Output depends only on e.
func Render(e emotion.Emotion) *image.RGBA {
	if !e.Valid() {
		e = emotion.Neutral
	}
	c := newCanvas(Width, Height, background)
	cx, cy := float64(Width/2), float64(Height/2)

	c.FillCircle(cx, cy, faceRadius, skin)
	drawEyes(c, e, cx, cy+eyeDY)
	drawMouth(c, e, cx, cy+mouthDY)
	c.Text(labelX, labelY, e.Label(), labelScale, Palette(e))

	return c.img
}

func drawEyes(c *canvas, e emotion.Emotion, cx, y float64) {
	for _, x := range []float64{cx - eyeDX, cx + eyeDX} {
		switch e {
		case emotion.Sleepy:
			// Closed: a flat lid line.
			c.StrokeLine(x-15, y, x+15, y, 2, ink)
		case emotion.Happy:
			c.StrokeArc(x, y, 20, 10, 0, 180, 2, ink)
		case emotion.Surprised:
			c.FillCircle(x, y, 20, ink)
		case emotion.Sad:
			c.StrokeArc(x, y+5, 20, 10, 0, 180, 2, ink)
		default:
			c.FillCircle(x, y, 15, ink)
		}
	}
}

func drawMouth(c *canvas, e emotion.Emotion, cx, y float64) {
	switch e {
	case emotion.Happy:
		c.StrokeArc(cx, y, 60, 30, 0, 180, 3, ink)
		for i := range teethCount {
			x := cx - 50 + float64(i*teethSpacing)
			c.StrokeLine(x, y, x, y-20, 2, toothWhite)
		}
	case emotion.Surprised:
		c.StrokeCircle(cx, y, 30, 2, ink)
	case emotion.Sad:
		// Lower half of an ellipse sitting below the mouth line.
		c.StrokeArc(cx, y+20, 40, 20, 0, 180, 3, ink)
	case emotion.Sleepy:
		c.StrokeLine(cx-20, y, cx+20, y, 2, ink)
	default:
		c.StrokeLine(cx-30, y, cx+30, y, 2, ink)
	}
}

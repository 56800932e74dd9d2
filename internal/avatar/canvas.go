package avatar

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

type point struct{ x, y float64 }

// canvas wraps an RGBA image with the handful of primitives the avatar needs.
// Every shape is reduced to polygons and filled with the x/image/vector
// rasterizer, one primitive per pass, clipped to the primitive's bounds.
type canvas struct {
	img *image.RGBA
	ras *vector.Rasterizer
}

func newCanvas(w, h int, bg color.Color) *canvas {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	return &canvas{img: img, ras: vector.NewRasterizer(1, 1)}
}

// fillPolygons rasterizes the union of polys in a single pass. Each polygon
// is normalized to the same winding so overlaps saturate instead of cancelling.
func (c *canvas) fillPolygons(col color.Color, polys ...[]point) {
	bounds := image.Rectangle{}
	for _, poly := range polys {
		for _, p := range poly {
			pr := image.Rect(int(math.Floor(p.x))-1, int(math.Floor(p.y))-1, int(math.Ceil(p.x))+1, int(math.Ceil(p.y))+1)
			bounds = bounds.Union(pr)
		}
	}
	bounds = bounds.Intersect(c.img.Bounds())
	if bounds.Empty() {
		return
	}

	c.ras.Reset(bounds.Dx(), bounds.Dy())
	ox, oy := float64(bounds.Min.X), float64(bounds.Min.Y)
	for _, poly := range polys {
		if len(poly) < 3 {
			continue
		}
		if signedArea(poly) > 0 {
			poly = reversed(poly)
		}
		c.ras.MoveTo(float32(poly[0].x-ox), float32(poly[0].y-oy))
		for _, p := range poly[1:] {
			c.ras.LineTo(float32(p.x-ox), float32(p.y-oy))
		}
		c.ras.ClosePath()
	}
	c.ras.Draw(c.img, bounds, image.NewUniform(col), image.Point{})
}

// FillCircle draws a solid disc.
func (c *canvas) FillCircle(cx, cy, r float64, col color.Color) {
	c.fillPolygons(col, ellipsePoints(cx, cy, r, r, 0, 360, true))
}

// StrokeCircle draws a circle outline of the given thickness.
func (c *canvas) StrokeCircle(cx, cy, r, thickness float64, col color.Color) {
	c.StrokeArc(cx, cy, r, r, 0, 360, thickness, col)
}

// StrokeLine draws a segment with round caps.
func (c *canvas) StrokeLine(x0, y0, x1, y1, thickness float64, col color.Color) {
	c.strokePolyline([]point{{x0, y0}, {x1, y1}}, thickness, col)
}

// StrokeArc draws part of an axis-aligned ellipse. Angles are in degrees,
// measured clockwise from the +x axis in image space (y grows downward), so
// 0..180 is the lower half.
func (c *canvas) StrokeArc(cx, cy, ax, ay, startDeg, endDeg, thickness float64, col color.Color) {
	c.strokePolyline(ellipsePoints(cx, cy, ax, ay, startDeg, endDeg, false), thickness, col)
}

func (c *canvas) strokePolyline(pts []point, thickness float64, col color.Color) {
	hw := thickness / 2
	polys := make([][]point, 0, 2*len(pts))
	for i := 0; i+1 < len(pts); i++ {
		if q := segmentQuad(pts[i], pts[i+1], hw); q != nil {
			polys = append(polys, q)
		}
	}
	// Round joins and caps.
	for _, p := range pts {
		polys = append(polys, ellipsePoints(p.x, p.y, hw, hw, 0, 360, true))
	}
	c.fillPolygons(col, polys...)
}

// Text draws s with its baseline-left corner at (x, y), scaled by an integer factor.
func (c *canvas) Text(x, y int, s string, scale int, col color.Color) {
	face := basicfont.Face7x13
	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	height := metrics.Height.Ceil()

	d := &font.Drawer{Face: face, Src: image.NewUniform(col)}
	width := d.MeasureString(s).Ceil()
	if width <= 0 {
		return
	}
	glyphs := image.NewRGBA(image.Rect(0, 0, width, height))
	d.Dst = glyphs
	d.Dot = fixed.P(0, ascent)
	d.DrawString(s)

	if scale < 1 {
		scale = 1
	}
	dst := image.Rect(x, y-ascent*scale, x+width*scale, y+(height-ascent)*scale)
	xdraw.NearestNeighbor.Scale(c.img, dst, glyphs, glyphs.Bounds(), xdraw.Over, nil)
}

func segmentQuad(a, b point, hw float64) []point {
	dx, dy := b.x-a.x, b.y-a.y
	l := math.Hypot(dx, dy)
	if l == 0 {
		return nil
	}
	nx, ny := -dy/l*hw, dx/l*hw
	return []point{
		{a.x + nx, a.y + ny},
		{b.x + nx, b.y + ny},
		{b.x - nx, b.y - ny},
		{a.x - nx, a.y - ny},
	}
}

// ellipsePoints samples an axis-aligned ellipse from startDeg to endDeg.
// closed drops the duplicated end vertex of a full turn.
func ellipsePoints(cx, cy, ax, ay, startDeg, endDeg float64, closed bool) []point {
	span := endDeg - startDeg
	n := int(math.Ceil(math.Abs(span) / 360 * segmentsFor(math.Max(ax, ay))))
	if n < 2 {
		n = 2
	}
	count := n + 1
	if closed {
		count = n
	}
	pts := make([]point, 0, count)
	for i := 0; i < count; i++ {
		theta := (startDeg + span*float64(i)/float64(n)) * math.Pi / 180
		pts = append(pts, point{cx + ax*math.Cos(theta), cy + ay*math.Sin(theta)})
	}
	return pts
}

func segmentsFor(r float64) float64 {
	return math.Max(24, math.Min(360, 8*math.Sqrt(r)*math.Pi))
}

func signedArea(poly []point) float64 {
	var a float64
	for i := range poly {
		j := (i + 1) % len(poly)
		a += poly[i].x*poly[j].y - poly[j].x*poly[i].y
	}
	return a / 2
}

func reversed(poly []point) []point {
	out := make([]point, len(poly))
	for i, p := range poly {
		out[len(poly)-1-i] = p
	}
	return out
}

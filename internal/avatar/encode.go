package avatar

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
)

// PackRGB flattens img into a tightly packed 24-bit RGB raster (row-major,
// 3 bytes per pixel), the format handed to raw display sinks.
func PackRGB(img *image.RGBA) []byte {
	b := img.Bounds()
	out := make([]byte, 0, b.Dx()*b.Dy()*3)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Max.X, y)]
		for i := 0; i < len(row); i += 4 {
			out = append(out, row[i], row[i+1], row[i+2])
		}
	}
	return out
}

// EncodeJPEG writes img as a baseline JPEG.
func EncodeJPEG(w io.Writer, img image.Image, quality int) error {
	if quality < 1 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	if err := jpeg.Encode(w, img, &jpeg.Options{Quality: quality}); err != nil {
		return fmt.Errorf("encode avatar jpeg: %w", err)
	}
	return nil
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode avatar png: %w", err)
	}
	return nil
}

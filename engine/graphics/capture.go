package graphics

import (
	"image"
	"image/color"

	"github.com/spaghettifunk/anima/engine/math"
)

// Capture reads a color output of the layer into an image. Rows are flipped
// so the image origin is the top left corner.
func (l *Layer) Capture(colorIndex uint32, width, height uint32) (*image.RGBA, error) {
	pixels, err := l.ReadPixels(colorIndex, 0, 0, int32(width), int32(height))
	if err != nil {
		return nil, err
	}
	return PixelsToImage(pixels, int(width), int(height)), nil
}

// PixelsToImage converts bottom-up RGBA float texels to an 8 bit image.
func PixelsToImage(pixels []float32, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		row := height - 1 - y
		for x := 0; x < width; x++ {
			i := (row*width + x) * 4
			if i+3 >= len(pixels) {
				return img
			}
			img.SetRGBA(x, y, color.RGBA{
				R: toByte(pixels[i]),
				G: toByte(pixels[i+1]),
				B: toByte(pixels[i+2]),
				A: toByte(pixels[i+3]),
			})
		}
	}
	return img
}

func toByte(v float32) uint8 {
	return uint8(math.Clamp(v, 0, 1)*255 + 0.5)
}

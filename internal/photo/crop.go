package photo

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// CropOutputSize is the side length of the square raster produced by a
// confirmed crop.
const CropOutputSize = 1024

// InitialSquare returns the suggested crop region for an image: a centered
// square sized at 90% of the shorter dimension, in native pixel coordinates.
func InitialSquare(bounds image.Rectangle) image.Rectangle {
	w := bounds.Dx()
	h := bounds.Dy()

	side := w
	if h < side {
		side = h
	}
	side = side * 9 / 10
	if side < 1 {
		side = 1
	}

	x0 := bounds.Min.X + (w-side)/2
	y0 := bounds.Min.Y + (h-side)/2
	return image.Rect(x0, y0, x0+side, y0+side)
}

// SquareCrop rasterizes the selected source rectangle into an outSize×outSize
// square. The selection is clamped to the image bounds; an empty selection
// after clamping is an error.
func SquareCrop(img image.Image, sel image.Rectangle, outSize int) (image.Image, error) {
	sel = sel.Intersect(img.Bounds())
	if sel.Empty() {
		return nil, fmt.Errorf("empty crop selection")
	}

	cropped := imaging.Crop(img, sel)
	if outSize <= 0 {
		outSize = CropOutputSize
	}
	return imaging.Fill(cropped, outSize, outSize, imaging.Center, imaging.Lanczos), nil
}

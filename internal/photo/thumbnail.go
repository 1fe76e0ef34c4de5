package photo

import (
	"bytes"
	"fmt"
	"image"

	"github.com/chai2010/webp"
	"golang.org/x/image/draw"
)

// DefaultThumbnailMaxDimension is the maximum dimension (width or height) for
// browser grid thumbnails.
const DefaultThumbnailMaxDimension = 512

// Thumbnail downscales an image so its longer side is at most maxDimension
// and encodes it as WebP. Images already within bounds are re-encoded without
// resizing.
func Thumbnail(img image.Image, maxDimension int) ([]byte, error) {
	bounds := img.Bounds()
	origWidth := bounds.Dx()
	origHeight := bounds.Dy()

	newWidth, newHeight := thumbnailDimensions(origWidth, origHeight, maxDimension)

	out := img
	if newWidth != origWidth || newHeight != origHeight {
		resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
		draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
		out = resized
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, out, &webp.Options{Quality: 80}); err != nil {
		return nil, fmt.Errorf("encode thumbnail as WebP: %w", err)
	}
	return buf.Bytes(), nil
}

// thumbnailDimensions calculates downscaled dimensions maintaining aspect ratio.
func thumbnailDimensions(width, height, maxDimension int) (int, int) {
	if width <= maxDimension && height <= maxDimension {
		return width, height
	}

	if width > height {
		newWidth := maxDimension
		newHeight := int(float64(height) * float64(maxDimension) / float64(width))
		return newWidth, newHeight
	}

	newHeight := maxDimension
	newWidth := int(float64(width) * float64(maxDimension) / float64(height))
	return newWidth, newHeight
}

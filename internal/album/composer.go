// Package album composes generated looks into a single downloadable collage
// and bundles results for download.
package album

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/fpang/album-studio/internal/photo"
)

// ErrEmptyInput is returned when composition is requested with no completed
// results. Surfaced to the user as a blocking notice, never a crash.
var ErrEmptyInput = errors.New("no completed images to compose")

// Labeled pairs a display label with a result image.
type Labeled struct {
	Label string
	Image photo.Encoded
}

const (
	cellSize    = 512
	labelHeight = 32
	cellGap     = 24
	margin      = 32
)

var (
	canvasBackground = color.RGBA{R: 24, G: 24, B: 28, A: 255}
	labelColor       = color.RGBA{R: 235, G: 235, B: 240, A: 255}
)

// Compose lays every labeled image onto one grid canvas and encodes the
// result as PNG. Each input appears exactly once, scaled to fit its cell
// without clipping, with its label drawn underneath.
func Compose(results []Labeled) (photo.Encoded, error) {
	if len(results) == 0 {
		return "", ErrEmptyInput
	}

	cols := int(math.Ceil(math.Sqrt(float64(len(results)))))
	rows := (len(results) + cols - 1) / cols

	width := 2*margin + cols*cellSize + (cols-1)*cellGap
	height := 2*margin + rows*(cellSize+labelHeight) + (rows-1)*cellGap

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(canvasBackground), image.Point{}, draw.Src)

	for i, item := range results {
		img, err := item.Image.Image()
		if err != nil {
			return "", fmt.Errorf("decode %q: %w", item.Label, err)
		}

		col := i % cols
		row := i / cols
		cellX := margin + col*(cellSize+cellGap)
		cellY := margin + row*(cellSize+labelHeight+cellGap)

		target := fitRect(img.Bounds(), image.Rect(cellX, cellY, cellX+cellSize, cellY+cellSize))
		draw.CatmullRom.Scale(canvas, target, img, img.Bounds(), draw.Over, nil)

		drawLabel(canvas, item.Label, cellX, cellY+cellSize+labelHeight-10, cellSize)
	}

	data, err := photo.EncodePNG(canvas)
	if err != nil {
		return "", fmt.Errorf("encode album: %w", err)
	}
	return photo.FromBytes("image/png", data), nil
}

// fitRect scales src to fit inside cell preserving aspect ratio, centered.
func fitRect(src, cell image.Rectangle) image.Rectangle {
	srcW := float64(src.Dx())
	srcH := float64(src.Dy())
	if srcW <= 0 || srcH <= 0 {
		return cell
	}

	scale := math.Min(float64(cell.Dx())/srcW, float64(cell.Dy())/srcH)
	w := int(srcW * scale)
	h := int(srcH * scale)

	x0 := cell.Min.X + (cell.Dx()-w)/2
	y0 := cell.Min.Y + (cell.Dy()-h)/2
	return image.Rect(x0, y0, x0+w, y0+h)
}

// drawLabel renders the label centered under a cell.
func drawLabel(dst *image.RGBA, label string, cellX, baselineY, cellWidth int) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(labelColor),
		Face: basicfont.Face7x13,
	}
	textWidth := d.MeasureString(label).Ceil()
	d.Dot = fixed.P(cellX+(cellWidth-textWidth)/2, baselineY)
	d.DrawString(label)
}

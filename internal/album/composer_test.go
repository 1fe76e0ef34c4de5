package album

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"testing"

	"github.com/fpang/album-studio/internal/photo"
)

func testEncoded(t *testing.T, w, h int, c color.RGBA) photo.Encoded {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	data, err := photo.EncodePNG(img)
	if err != nil {
		t.Fatal(err)
	}
	return photo.FromBytes("image/png", data)
}

func TestComposeEmptyInput(t *testing.T) {
	_, err := Compose(nil)
	if !errors.Is(err, ErrEmptyInput) {
		t.Errorf("Compose(nil) error = %v, want ErrEmptyInput", err)
	}
}

func TestComposeSingle(t *testing.T) {
	results := []Labeled{
		{Label: "Look 1", Image: testEncoded(t, 100, 100, color.RGBA{R: 200, A: 255})},
	}

	out, err := Compose(results)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	img, err := out.Image()
	if err != nil {
		t.Fatalf("decode composed album: %v", err)
	}

	wantW := 2*margin + cellSize
	wantH := 2*margin + cellSize + labelHeight
	if img.Bounds().Dx() != wantW || img.Bounds().Dy() != wantH {
		t.Errorf("canvas = %v, want %dx%d", img.Bounds(), wantW, wantH)
	}
	if out.MIMEType() != "image/png" {
		t.Errorf("MIME = %q, want image/png", out.MIMEType())
	}
}

func TestComposeGridDimensions(t *testing.T) {
	tests := []struct {
		n, cols, rows int
	}{
		{1, 1, 1},
		{2, 2, 1},
		{3, 2, 2},
		{4, 2, 2},
		{5, 3, 2},
		{8, 3, 3},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d", tt.n), func(t *testing.T) {
			var results []Labeled
			for i := 0; i < tt.n; i++ {
				results = append(results, Labeled{
					Label: fmt.Sprintf("Look %d", i+1),
					Image: testEncoded(t, 64, 64, color.RGBA{B: 180, A: 255}),
				})
			}

			out, err := Compose(results)
			if err != nil {
				t.Fatalf("Compose: %v", err)
			}
			img, err := out.Image()
			if err != nil {
				t.Fatal(err)
			}

			wantW := 2*margin + tt.cols*cellSize + (tt.cols-1)*cellGap
			wantH := 2*margin + tt.rows*(cellSize+labelHeight) + (tt.rows-1)*cellGap
			if img.Bounds().Dx() != wantW || img.Bounds().Dy() != wantH {
				t.Errorf("canvas = %v, want %dx%d", img.Bounds(), wantW, wantH)
			}
		})
	}
}

func TestComposeRejectsUndecodableImage(t *testing.T) {
	results := []Labeled{
		{Label: "Look 1", Image: photo.FromBytes("image/png", []byte("not a png"))},
	}
	if _, err := Compose(results); err == nil {
		t.Error("expected error for undecodable input image")
	}
}

func TestFitRectPreservesAspect(t *testing.T) {
	cell := image.Rect(0, 0, 100, 100)

	wide := fitRect(image.Rect(0, 0, 200, 100), cell)
	if wide.Dx() != 100 || wide.Dy() != 50 {
		t.Errorf("wide fit = %v, want 100x50", wide)
	}

	tall := fitRect(image.Rect(0, 0, 100, 200), cell)
	if tall.Dx() != 50 || tall.Dy() != 100 {
		t.Errorf("tall fit = %v, want 50x100", tall)
	}

	// Centered within the cell.
	if wide.Min.Y != 25 {
		t.Errorf("wide fit not vertically centered: %v", wide)
	}
}

func TestBundle(t *testing.T) {
	results := []Labeled{
		{Label: "Look 1", Image: testEncoded(t, 32, 32, color.RGBA{G: 150, A: 255})},
		{Label: "Look 2", Image: testEncoded(t, 32, 32, color.RGBA{R: 150, A: 255})},
	}
	albumData := []byte("fake album png bytes")

	data, err := Bundle(results, albumData)
	if err != nil {
		t.Fatalf("Bundle: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open bundle: %v", err)
	}

	names := make(map[string]bool)
	for _, f := range zr.File {
		names[f.Name] = true
	}
	for _, want := range []string{"look-1.png", "look-2.png", "album.png"} {
		if !names[want] {
			t.Errorf("bundle missing %s (has %v)", want, names)
		}
	}
}

func TestBundleEmpty(t *testing.T) {
	if _, err := Bundle(nil, nil); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("Bundle(nil, nil) error = %v, want ErrEmptyInput", err)
	}
}

func TestSafeFileName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Look 1", "look-1"},
		{"Weird/Name!", "weird-name"},
		{"---", "image"},
	}
	for _, tt := range tests {
		if got := safeFileName(tt.in); got != tt.want {
			t.Errorf("safeFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

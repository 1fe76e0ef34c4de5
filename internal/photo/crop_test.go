package photo

import (
	"image"
	"testing"
)

func TestInitialSquare(t *testing.T) {
	tests := []struct {
		name   string
		bounds image.Rectangle
		want   image.Rectangle
	}{
		// 90% of the shorter dimension, centered.
		{"landscape", image.Rect(0, 0, 1000, 600), image.Rect(230, 30, 770, 570)},
		{"portrait", image.Rect(0, 0, 600, 1000), image.Rect(30, 230, 570, 770)},
		{"square", image.Rect(0, 0, 100, 100), image.Rect(5, 5, 95, 95)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InitialSquare(tt.bounds)
			if got != tt.want {
				t.Errorf("InitialSquare(%v) = %v, want %v", tt.bounds, got, tt.want)
			}
			if got.Dx() != got.Dy() {
				t.Errorf("region is not square: %v", got)
			}
		})
	}
}

func TestInitialSquareTiny(t *testing.T) {
	got := InitialSquare(image.Rect(0, 0, 1, 1))
	if got.Empty() {
		t.Errorf("suggested region for 1x1 image is empty: %v", got)
	}
}

func TestSquareCrop(t *testing.T) {
	img := testImage(200, 100)

	out, err := SquareCrop(img, image.Rect(50, 10, 130, 90), 64)
	if err != nil {
		t.Fatalf("SquareCrop: %v", err)
	}
	if out.Bounds().Dx() != 64 || out.Bounds().Dy() != 64 {
		t.Errorf("output bounds = %v, want 64x64", out.Bounds())
	}
}

func TestSquareCropClampsToBounds(t *testing.T) {
	img := testImage(100, 100)

	// Selection extends past the right edge; the overlap is still valid.
	out, err := SquareCrop(img, image.Rect(60, 60, 180, 180), 32)
	if err != nil {
		t.Fatalf("SquareCrop: %v", err)
	}
	if out.Bounds().Dx() != 32 || out.Bounds().Dy() != 32 {
		t.Errorf("output bounds = %v, want 32x32", out.Bounds())
	}
}

func TestSquareCropEmptySelection(t *testing.T) {
	img := testImage(100, 100)

	if _, err := SquareCrop(img, image.Rect(200, 200, 300, 300), 32); err == nil {
		t.Error("expected error for selection outside image bounds")
	}
	if _, err := SquareCrop(img, image.Rectangle{}, 32); err == nil {
		t.Error("expected error for zero selection")
	}
}

package imaging

import (
	"image"
	"image/color"
	"testing"
)

func TestCrop(t *testing.T) {
	img := createPatternImage(100, 100)

	result, err := Crop(img, Region{X1: 0, Y1: 0, X2: 50, Y2: 50})
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}

	if result.Bounds() != image.Rect(0, 0, 50, 50) {
		t.Errorf("bounds: got %v, want (0,0)-(50,50)", result.Bounds())
	}

	// Top-left quadrant is red
	c := result.NRGBAAt(25, 25)
	if c.R != 255 || c.G != 0 || c.B != 0 {
		t.Errorf("cropped color: got (%d,%d,%d), want (255,0,0)", c.R, c.G, c.B)
	}
}

func TestCrop_SubImageOrigin(t *testing.T) {
	// Parent bottom-right quadrant is white, its left neighbour blue.
	sub := createPatternImage(100, 100).SubImage(image.Rect(40, 50, 100, 100))

	result, err := Crop(sub, Region{X1: 0, Y1: 0, X2: 20, Y2: 10})
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}

	if c := result.NRGBAAt(0, 0); c.B != 255 || c.R != 0 {
		t.Errorf("pixel (0,0): got %+v, want blue", c)
	}
	if c := result.NRGBAAt(15, 5); c.R != 255 || c.G != 255 || c.B != 255 {
		t.Errorf("pixel (15,5): got %+v, want white", c)
	}
}

func TestCrop_OutOfBounds(t *testing.T) {
	img := createInMemoryImage(100, 100, color.RGBA{255, 0, 0, 255})

	tests := []struct {
		name   string
		region Region
	}{
		{"x1 negative", Region{-1, 0, 50, 50}},
		{"y1 negative", Region{0, -1, 50, 50}},
		{"x2 too large", Region{0, 0, 101, 50}},
		{"y2 too large", Region{0, 0, 50, 101}},
		{"all out of bounds", Region{-1, -1, 200, 200}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Crop(img, tt.region); err == nil {
				t.Error("Crop should fail for out-of-bounds coordinates")
			}
		})
	}
}

func TestCrop_InvalidRegion(t *testing.T) {
	img := createInMemoryImage(100, 100, color.RGBA{255, 0, 0, 255})

	tests := []struct {
		name   string
		region Region
	}{
		{"x1 >= x2", Region{50, 0, 50, 50}},
		{"x1 > x2", Region{60, 0, 50, 50}},
		{"y1 >= y2", Region{0, 50, 50, 50}},
		{"zero area", Region{50, 50, 50, 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Crop(img, tt.region); err == nil {
				t.Error("Crop should fail for invalid region")
			}
		})
	}
}

func TestRegionDimensions(t *testing.T) {
	r := Region{X1: 15, Y1: 12, X2: 23, Y2: 27}
	if r.Width() != 8 || r.Height() != 15 {
		t.Errorf("got %dx%d, want 8x15", r.Width(), r.Height())
	}
}

package sketchpad

import (
	"image"
	"image/color"
	"testing"
)

func solidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func TestBrightnessContrastIdentity(t *testing.T) {
	m := BrightnessContrast(100, 100)
	if !m.IsIdentity() {
		t.Errorf("BrightnessContrast(100, 100) = %v, want identity", m)
	}
	if BrightnessContrast(120, 100).IsIdentity() {
		t.Error("brightness 120 should not be identity")
	}
}

func TestBrightnessContrastApply(t *testing.T) {
	tests := []struct {
		name     string
		b, c     float64
		in, want float64
	}{
		{"darker", 50, 100, 0.8, 0.4},
		{"brighter clamps", 200, 100, 0.8, 1},
		{"zero contrast is gray", 100, 0, 0.9, 0.5},
		{"high contrast", 100, 200, 0.75, 1},
		{"high contrast dark", 100, 200, 0.25, 0},
		{"clamped input", 500, 100, 0.4, 0.8},
		{"brightness clamps before contrast", 150, 50, 0.8, 0.75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, g, b, a := BrightnessContrast(tt.b, tt.c).apply(tt.in, tt.in, tt.in, 0.6)
			if !approxEqual(r, tt.want, 1e-9) || r != g || g != b {
				t.Errorf("rgb = %v, %v, %v; want %v", r, g, b, tt.want)
			}
			if a != 0.6 {
				t.Errorf("alpha = %v, want 0.6", a)
			}
		})
	}
}

func TestFilterImageIdentityCopies(t *testing.T) {
	src := solidImage(4, 4, color.NRGBA{10, 20, 30, 255})
	dst := filterImage(src, IdentityTone, 1)
	if &dst.Pix[0] == &src.Pix[0] {
		t.Fatal("filterImage returned the source buffer")
	}
	if got := dst.NRGBAAt(1, 1); got != (color.NRGBA{10, 20, 30, 255}) {
		t.Errorf("pixel = %v", got)
	}
}

func TestFilterImageOpacityAndMatrix(t *testing.T) {
	src := solidImage(2, 2, color.NRGBA{200, 100, 0, 255})
	dst := filterImage(src, BrightnessContrast(50, 100), 0.5)
	got := dst.NRGBAAt(0, 0)
	want := color.NRGBA{100, 50, 0, 128}
	if got != want {
		t.Errorf("pixel = %v, want %v", got, want)
	}
}

func TestFilterImageClampsBetweenStages(t *testing.T) {
	src := solidImage(1, 1, color.NRGBA{240, 40, 0, 255})
	dst := filterImage(src, BrightnessContrast(150, 50), 1)
	// Red saturates at brightness and then loses contrast; folding the
	// stages would give 0.5*1.5*240/255 + 0.25 for red instead.
	got := dst.NRGBAAt(0, 0)
	if got.R != 191 {
		t.Errorf("R = %d, want 191", got.R)
	}
	if got.B != 64 {
		t.Errorf("B = %d, want 64", got.B)
	}
}

func TestFilterImageSkipsTransparent(t *testing.T) {
	src := solidImage(2, 2, color.NRGBA{0, 0, 0, 0})
	dst := filterImage(src, BrightnessContrast(100, 0), 1)
	if got := dst.NRGBAAt(0, 0); got.A != 0 || got.R != 0 {
		t.Errorf("transparent pixel changed to %v", got)
	}
}

func TestFilterImageOffsetBounds(t *testing.T) {
	src := solidImage(6, 6, color.NRGBA{1, 2, 3, 255}).SubImage(image.Rect(2, 2, 5, 6))
	dst := filterImage(src, IdentityTone, 1)
	if b := dst.Bounds(); b != image.Rect(0, 0, 3, 4) {
		t.Errorf("Bounds = %v, want (0,0)-(3,4)", b)
	}
}

func TestPlaceholderImage(t *testing.T) {
	img := placeholderImage(1, 0)
	if b := img.Bounds(); b.Dx() != 2 || b.Dy() != 2 {
		t.Errorf("size = %v, want 2x2", b)
	}
	img = placeholderImage(50, 40)
	if got := img.NRGBAAt(0, 20); got != (color.NRGBA{0x9c, 0xa3, 0xaf, 0xff}) {
		t.Errorf("edge = %v", got)
	}
	if got := img.NRGBAAt(10, 30); got != (color.NRGBA{0xe5, 0xe7, 0xeb, 0xff}) {
		t.Errorf("fill = %v", got)
	}
}

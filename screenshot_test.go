package sketchpad

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizeLabel(t *testing.T) {
	tests := []struct {
		label, want string
	}{
		{"", "unlabeled"},
		{"   ", "unlabeled"},
		{"after-drag", "after-drag"},
		{"zoom 200%", "zoom_200_"},
		{"../etc/passwd", ".._etc_passwd"},
		{"v1.2", "v1.2"},
	}
	for _, tt := range tests {
		if got := sanitizeLabel(tt.label); got != tt.want {
			t.Errorf("sanitizeLabel(%q) = %q, want %q", tt.label, got, tt.want)
		}
	}
}

func TestScreenshotQueues(t *testing.T) {
	e, _ := newTestEditor(t)
	e.Screenshot("one")
	e.Screenshot("two")
	if len(e.screenshotQueue) != 2 {
		t.Errorf("queue = %v, want two labels", e.screenshotQueue)
	}
}

func TestWritePNG(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	img.SetNRGBA(1, 1, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	path := filepath.Join(t.TempDir(), "shot.png")
	if err := writePNG(path, img); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	got, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if got.Bounds().Dx() != 4 || got.Bounds().Dy() != 3 {
		t.Errorf("bounds = %v, want 4x3", got.Bounds())
	}
	r, g, b, _ := got.At(1, 1).RGBA()
	if r>>8 != 10 || g>>8 != 20 || b>>8 != 30 {
		t.Errorf("pixel = %d,%d,%d, want 10,20,30", r>>8, g>>8, b>>8)
	}
}

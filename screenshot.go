package sketchpad

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

// Screenshot queues a labeled capture of the live canvas, taken at the end
// of the current frame's Draw. The PNG is written to the editor's screenshot
// directory with a timestamped filename.
func (e *Editor) Screenshot(label string) {
	e.screenshotQueue = append(e.screenshotQueue, label)
}

// flushScreenshots captures the rendered frame for every queued label.
// Called at the end of Editor.Draw.
func (e *Editor) flushScreenshots(screen *ebiten.Image) {
	if len(e.screenshotQueue) == 0 {
		return
	}
	defer func() { e.screenshotQueue = e.screenshotQueue[:0] }()

	if err := os.MkdirAll(e.screenshotDir, 0o755); err != nil {
		e.log.Error().Err(err).Str("dir", e.screenshotDir).Msg("screenshot: mkdir")
		return
	}

	img := readScreen(screen)
	stamp := time.Now().Format("20060102_150405")
	for _, label := range e.screenshotQueue {
		path := filepath.Join(e.screenshotDir, fmt.Sprintf("%s_%s.png", stamp, sanitizeLabel(label)))
		if err := writePNG(path, img); err != nil {
			e.log.Error().Err(err).Msg("screenshot")
			continue
		}
		e.log.Debug().Str("path", path).Msg("screenshot written")
	}
}

// readScreen copies screen into a straight-alpha image.
func readScreen(screen *ebiten.Image) *image.NRGBA {
	bounds := screen.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	pixels := make([]byte, 4*w*h)
	screen.ReadPixels(pixels)

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(pixels); i += 4 {
		r, g, b, a := pixels[i], pixels[i+1], pixels[i+2], pixels[i+3]
		if a > 0 && a < 255 {
			r = uint8(min(int(r)*255/int(a), 255))
			g = uint8(min(int(g)*255/int(a), 255))
			b = uint8(min(int(b)*255/int(a), 255))
		}
		img.Pix[i] = r
		img.Pix[i+1] = g
		img.Pix[i+2] = b
		img.Pix[i+3] = a
	}
	return img
}

// writePNG encodes an image to a PNG file at the given path.
func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// sanitizeLabel replaces characters that are unsafe in file names with
// underscores and falls back to "unlabeled" for empty strings.
func sanitizeLabel(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return "unlabeled"
	}
	var b strings.Builder
	b.Grow(len(label))
	for _, r := range label {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

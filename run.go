package sketchpad

import (
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
)

// RunConfig configures the window opened by Run.
type RunConfig struct {
	Title         string
	Width, Height int
	// ShowFPS appends the measured frame rate to the status line.
	ShowFPS bool
}

// Run opens a resizable window and runs the editor until the window is
// closed. Width and Height default to the editor's layout size.
func Run(e *Editor, cfg RunConfig) error {
	w, h := cfg.Width, cfg.Height
	if w <= 0 || h <= 0 {
		w, h = e.width, e.height
	}
	title := cfg.Title
	if title == "" {
		title = SoftwareName
	}
	e.showFPS = cfg.ShowFPS

	ebiten.SetWindowSize(w, h)
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	if err := ebiten.RunGame(e); err != nil {
		return fmt.Errorf("run editor: %w", err)
	}
	return nil
}

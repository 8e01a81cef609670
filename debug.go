package sketchpad

import (
	"fmt"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// statusLine is the one-line summary shown at the bottom of the window.
func (e *Editor) statusLine() string {
	online := "online"
	if !e.persist.Online() {
		online = "offline"
	}
	record := e.persist.RecordID()
	if record == "" {
		record = "unsaved"
	}
	line := fmt.Sprintf("zoom %.0f%% | %d features | %d selected | %s | %s",
		e.scene.camera.Zoom, e.scene.Len(), len(e.scene.selection), record, online)
	if e.showFPS {
		line += fmt.Sprintf(" | fps %.1f", ebiten.ActualFPS())
	}
	if e.status != "" {
		line += " | " + e.status
	}
	return line
}

func (e *Editor) drawStatus(screen *ebiten.Image) {
	ebitenutil.DebugPrintAt(screen, e.statusLine(), 8, e.height-20)
}

// debugLog reports the cost of a recompiled frame. Only active when debug
// is enabled.
func (e *Editor) debugLog(elapsed time.Duration) {
	if !e.debug {
		return
	}
	images := 0
	for i := range e.renderer.commands {
		if e.renderer.commands[i].Type == CommandImage {
			images++
		}
	}
	e.log.Debug().
		Dur("frame", elapsed).
		Int("commands", len(e.renderer.commands)).
		Int("images", images).
		Int("compiles", e.renderer.compiles).
		Msg("redraw")
}

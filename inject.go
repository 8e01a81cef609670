package sketchpad

// syntheticPointerEvent is one injected pointer event in screen coordinates.
// It goes through the camera exactly like real mouse input.
type syntheticPointerEvent struct {
	screenX, screenY float64
	kind             pointerEventKind
	mods             KeyModifiers
}

type pointerEventKind uint8

const (
	pointerPress pointerEventKind = iota
	pointerMove
	pointerRelease
)

// InjectPress queues a left-button press at the given screen coordinates. The
// event is consumed on the next Update.
func (e *Editor) InjectPress(x, y float64, mods KeyModifiers) {
	e.injectQueue = append(e.injectQueue, syntheticPointerEvent{screenX: x, screenY: y, kind: pointerPress, mods: mods})
}

// InjectMove queues a pointer move with the button held.
func (e *Editor) InjectMove(x, y float64) {
	e.injectQueue = append(e.injectQueue, syntheticPointerEvent{screenX: x, screenY: y, kind: pointerMove})
}

// InjectRelease queues a release at the given screen coordinates.
func (e *Editor) InjectRelease(x, y float64) {
	e.injectQueue = append(e.injectQueue, syntheticPointerEvent{screenX: x, screenY: y, kind: pointerRelease})
}

// InjectClick queues a press followed by a release. Consumes two frames.
func (e *Editor) InjectClick(x, y float64, mods KeyModifiers) {
	e.InjectPress(x, y, mods)
	e.InjectRelease(x, y)
}

// InjectDrag queues a press at (fromX, fromY), frames-2 interpolated moves
// and a release at (toX, toY). Minimum frames is 2.
func (e *Editor) InjectDrag(fromX, fromY, toX, toY float64, frames int) {
	if frames < 2 {
		frames = 2
	}
	e.InjectPress(fromX, fromY, 0)
	steps := frames - 2
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps+1)
		e.InjectMove(fromX+(toX-fromX)*t, fromY+(toY-fromY)*t)
	}
	e.InjectRelease(toX, toY)
}

// InjectPending returns the number of queued synthetic events.
func (e *Editor) InjectPending() int {
	return len(e.injectQueue)
}

// processInjectedInput pops one event and feeds it to the controller.
// Returns true if an event was consumed, in which case real mouse input is
// skipped this frame.
func (e *Editor) processInjectedInput() bool {
	if len(e.injectQueue) == 0 {
		return false
	}
	evt := e.injectQueue[0]
	copy(e.injectQueue, e.injectQueue[1:])
	e.injectQueue = e.injectQueue[:len(e.injectQueue)-1]

	x, y := e.scene.camera.ScreenToCanvas(evt.screenX, evt.screenY)
	switch evt.kind {
	case pointerPress:
		e.controller.PointerDown(x, y, evt.mods)
	case pointerMove:
		e.controller.PointerMove(x, y)
	case pointerRelease:
		e.controller.PointerUp(x, y)
	}
	return true
}

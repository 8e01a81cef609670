package sketchpad

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// Camera is the editor view: a zoom percentage and a screen-space pan offset.
// Canvas point p maps to screen point pan + p*zoom/100.
type Camera struct {
	// Zoom is the view scale in percent (100 = 1:1).
	Zoom float64
	// Pan is the screen-space offset of the canvas origin.
	Pan Vec2

	viewMatrix    [6]float64
	invViewMatrix [6]float64
	dirty         bool

	zoomTween *gween.Tween
}

func newCamera() *Camera {
	c := &Camera{}
	c.reset()
	return c
}

func (c *Camera) reset() {
	c.Zoom = 100
	c.Pan = Vec2{}
	c.zoomTween = nil
	c.dirty = true
}

// Scale returns the zoom as a factor.
func (c *Camera) Scale() float64 {
	return c.Zoom / 100
}

// setZoom clamps and applies a zoom percentage. Reports whether it changed.
func (c *Camera) setZoom(percent float64) bool {
	percent = clamp(percent, MinZoom, MaxZoom)
	c.zoomTween = nil
	if percent == c.Zoom {
		return false
	}
	c.Zoom = percent
	c.dirty = true
	return true
}

// ZoomTo animates the zoom to percent over duration seconds. A non-positive
// duration applies the zoom on the next update.
func (c *Camera) ZoomTo(percent float64, duration float32) {
	percent = clamp(percent, MinZoom, MaxZoom)
	if duration <= 0 {
		duration = 0.0001
	}
	c.zoomTween = gween.New(float32(c.Zoom), float32(percent), duration, ease.OutQuad)
}

// Animating reports whether a zoom animation is running.
func (c *Camera) Animating() bool {
	return c.zoomTween != nil
}

// update advances the zoom animation. Reports whether the view changed.
func (c *Camera) update(dt float32) bool {
	if c.zoomTween == nil {
		return false
	}
	val, done := c.zoomTween.Update(dt)
	if done {
		c.zoomTween = nil
	}
	z := clamp(float64(val), MinZoom, MaxZoom)
	if z == c.Zoom {
		return false
	}
	c.Zoom = z
	c.dirty = true
	return true
}

// computeViewMatrix recomputes the cached view matrix if dirty.
//
// viewMatrix = Translate(pan) * Scale(zoom/100)
func (c *Camera) computeViewMatrix() [6]float64 {
	if !c.dirty {
		return c.viewMatrix
	}
	c.dirty = false
	s := c.Scale()
	c.viewMatrix = [6]float64{s, 0, 0, s, c.Pan.X, c.Pan.Y}
	c.invViewMatrix = invertAffine(c.viewMatrix)
	return c.viewMatrix
}

// ViewMatrix returns the canvas-to-screen affine matrix.
func (c *Camera) ViewMatrix() [6]float64 {
	return c.computeViewMatrix()
}

// ScreenToCanvas converts screen coordinates to canvas coordinates.
func (c *Camera) ScreenToCanvas(sx, sy float64) (float64, float64) {
	c.computeViewMatrix()
	return transformPoint(c.invViewMatrix, sx, sy)
}

// CanvasToScreen converts canvas coordinates to screen coordinates.
func (c *Camera) CanvasToScreen(x, y float64) (float64, float64) {
	return transformPoint(c.computeViewMatrix(), x, y)
}

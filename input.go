package sketchpad

import (
	"math"
	"sort"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

const (
	// HandleScreenSize is the resize handle edge length in screen pixels.
	HandleScreenSize = 10.0
	// AutoSelectDuration is how long the auto-selected indicator stays up.
	AutoSelectDuration = 2.0
)

// PointerState is the interaction controller state.
type PointerState uint8

const (
	StateIdle PointerState = iota
	StateDragging
	StateResizing
)

func (s PointerState) String() string {
	switch s {
	case StateDragging:
		return "dragging"
	case StateResizing:
		return "resizing"
	default:
		return "idle"
	}
}

// HandleKind identifies one of the eight resize handles.
type HandleKind uint8

const (
	HandleNone HandleKind = iota
	HandleNW
	HandleN
	HandleNE
	HandleE
	HandleSE
	HandleS
	HandleSW
	HandleW
)

var handleNames = [...]string{"none", "nw", "n", "ne", "e", "se", "s", "sw", "w"}

func (h HandleKind) String() string {
	if int(h) < len(handleNames) {
		return handleNames[h]
	}
	return "unknown"
}

// handleAnchors places each handle on the unit box [-1,1]x[-1,1], scaled by
// half the feature size. Order matches the drawing order.
var handleAnchors = [8]struct {
	kind   HandleKind
	ux, uy float64
}{
	{HandleNW, -1, -1},
	{HandleN, 0, -1},
	{HandleNE, 1, -1},
	{HandleE, 1, 0},
	{HandleSE, 1, 1},
	{HandleS, 0, 1},
	{HandleSW, -1, 1},
	{HandleW, -1, 0},
}

// geometry is the position and size part of a feature.
type geometry struct {
	X, Y, W, H float64
}

func geometryOf(f *PlacedFeature) geometry {
	return geometry{f.X, f.Y, f.Width, f.Height}
}

// resizeGeometry applies a handle drag of (dx, dy) in the feature's frame to
// the starting geometry g. Corner handles change both dimensions, edge
// handles one; dragging a top or left handle moves the origin so the
// opposite edge stays put. Sizes never drop below MinFeatureSize.
func resizeGeometry(kind HandleKind, g geometry, dx, dy float64, grid int) geometry {
	out := g
	switch kind {
	case HandleNW:
		out.W = math.Max(MinFeatureSize, g.W-dx)
		out.H = math.Max(MinFeatureSize, g.H-dy)
		out.X = g.X + g.W - out.W
		out.Y = g.Y + g.H - out.H
	case HandleN:
		out.H = math.Max(MinFeatureSize, g.H-dy)
		out.Y = g.Y + g.H - out.H
	case HandleNE:
		out.W = math.Max(MinFeatureSize, g.W+dx)
		out.H = math.Max(MinFeatureSize, g.H-dy)
		out.Y = g.Y + g.H - out.H
	case HandleE:
		out.W = math.Max(MinFeatureSize, g.W+dx)
	case HandleSE:
		out.W = math.Max(MinFeatureSize, g.W+dx)
		out.H = math.Max(MinFeatureSize, g.H+dy)
	case HandleS:
		out.H = math.Max(MinFeatureSize, g.H+dy)
	case HandleSW:
		out.W = math.Max(MinFeatureSize, g.W-dx)
		out.H = math.Max(MinFeatureSize, g.H+dy)
		out.X = g.X + g.W - out.W
	case HandleW:
		out.W = math.Max(MinFeatureSize, g.W-dx)
		out.X = g.X + g.W - out.W
	}
	if grid > 0 {
		out.X = snap(out.X, grid)
		out.Y = snap(out.Y, grid)
		out.W = math.Max(MinFeatureSize, snap(out.W, grid))
		out.H = math.Max(MinFeatureSize, snap(out.H, grid))
	}
	return out
}

// applyGeometry writes positions and sizes for several features as a single
// mutation. Locked or missing features are skipped.
func (s *Scene) applyGeometry(m map[string]geometry) {
	changed := false
	for id, g := range m {
		i, ok := s.index[id]
		if !ok || s.features[i].Locked {
			continue
		}
		f := &s.features[i]
		if f.X == g.X && f.Y == g.Y && f.Width == g.W && f.Height == g.H {
			continue
		}
		f.X, f.Y = g.X, g.Y
		f.Width = math.Max(MinFeatureSize, g.W)
		f.Height = math.Max(MinFeatureSize, g.H)
		changed = true
	}
	if changed {
		s.notify(ChangeFeatures)
	}
}

// Controller turns pointer input into scene mutations. Coordinates passed to
// its methods are canvas coordinates; the editor converts from screen space
// through the camera.
type Controller struct {
	scene *Scene

	state  PointerState
	handle HandleKind
	target string // feature being resized

	startX, startY float64
	starts         map[string]geometry
	moved          bool

	pending *PendingWrite[map[string]geometry]

	autoSelected string
	autoTween    *gween.Tween
	autoAlpha    float64

	// onCommit is called once per finished gesture that changed geometry.
	onCommit func()
}

// NewController creates a controller bound to scene. onCommit, if non-nil,
// is called when a drag or resize gesture ends with a change, so the caller
// can record a history snapshot.
func NewController(scene *Scene, onCommit func()) *Controller {
	c := &Controller{scene: scene, onCommit: onCommit}
	c.pending = NewPendingWrite(scene.applyGeometry)
	return c
}

// State returns the current pointer state.
func (c *Controller) State() PointerState { return c.state }

// ActiveHandle returns the handle being dragged while resizing.
func (c *Controller) ActiveHandle() HandleKind { return c.handle }

// AutoSelected returns the id carrying the auto-selected indicator and the
// indicator's current intensity in [0, 1]. id is empty when none is shown.
func (c *Controller) AutoSelected() (id string, alpha float64) {
	return c.autoSelected, c.autoAlpha
}

// Overlapping returns the unlocked, visible features whose bounding box
// contains (x, y), smallest area first, ties by highest z-order. This is the
// candidate list an overlap picker would show; the first entry is what a
// plain click selects.
func (c *Controller) Overlapping(x, y float64) []PlacedFeature {
	var hits []PlacedFeature
	for i := range c.scene.features {
		f := &c.scene.features[i]
		if !f.Visible || f.Locked {
			continue
		}
		if f.Bounds().Contains(x, y) {
			hits = append(hits, *f)
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		ai, aj := hits[i].Bounds().Area(), hits[j].Bounds().Area()
		if ai != aj {
			return ai < aj
		}
		return hits[i].ZIndex > hits[j].ZIndex
	})
	return hits
}

// HandleAt returns the resize handle of feature f under (x, y), or
// HandleNone. The hit box is HandleScreenSize pixels regardless of zoom.
func (c *Controller) HandleAt(f *PlacedFeature, x, y float64) HandleKind {
	size := HandleScreenSize / c.scene.camera.Scale()
	half := size / 2
	lx, ly := transformPoint(invertAffine(decorationTransform(f)), x, y)
	for _, h := range handleAnchors {
		hx := h.ux * f.Width / 2
		hy := h.uy * f.Height / 2
		if math.Abs(lx-hx) <= half && math.Abs(ly-hy) <= half {
			return h.kind
		}
	}
	return HandleNone
}

// PointerDown starts a gesture at canvas point (x, y).
func (c *Controller) PointerDown(x, y float64, mods KeyModifiers) {
	c.cancelGesture()
	s := c.scene

	if len(s.selection) == 1 {
		if f, ok := s.Feature(s.selection[0]); ok && !f.Locked && f.Visible {
			if h := c.HandleAt(&f, x, y); h != HandleNone {
				c.state = StateResizing
				c.handle = h
				c.target = f.ID
				c.startX, c.startY = x, y
				c.starts = map[string]geometry{f.ID: geometryOf(&f)}
				return
			}
		}
	}

	hits := c.Overlapping(x, y)
	switch len(hits) {
	case 0:
		s.ClearSelection()
		return
	case 1:
		id := hits[0].ID
		switch {
		case mods&ModShift != 0:
			s.ToggleSelected(id)
		case !s.IsSelected(id):
			s.Select(id)
		}
		if !s.IsSelected(id) {
			return
		}
	default:
		id := hits[0].ID
		s.Select(id)
		c.autoSelected = id
		c.autoAlpha = 1
		c.autoTween = gween.New(1, 0, AutoSelectDuration, ease.InExpo)
	}
	c.beginDrag(x, y)
}

func (c *Controller) beginDrag(x, y float64) {
	c.state = StateDragging
	c.startX, c.startY = x, y
	c.starts = make(map[string]geometry)
	for _, f := range c.scene.SelectedFeatures() {
		if !f.Locked {
			c.starts[f.ID] = geometryOf(&f)
		}
	}
}

// PointerMove updates the active gesture. Writes are buffered until the next
// Tick or PointerUp.
func (c *Controller) PointerMove(x, y float64) {
	dx, dy := x-c.startX, y-c.startY
	grid := c.scene.grid.snapSize()

	switch c.state {
	case StateDragging:
		next := make(map[string]geometry, len(c.starts))
		for id, g := range c.starts {
			g.X = snap(g.X+dx, grid)
			g.Y = snap(g.Y+dy, grid)
			next[id] = g
		}
		c.pending.Put(next)
	case StateResizing:
		f, ok := c.scene.Feature(c.target)
		if !ok {
			c.cancelGesture()
			return
		}
		// Express the delta in the feature's unrotated frame.
		sin, cos := math.Sincos(f.Rotation * math.Pi / 180)
		ldx := cos*dx + sin*dy
		ldy := -sin*dx + cos*dy
		g := resizeGeometry(c.handle, c.starts[c.target], ldx, ldy, grid)
		c.pending.Put(map[string]geometry{c.target: g})
	default:
		return
	}
	if dx != 0 || dy != 0 {
		c.moved = true
	}
}

// PointerUp flushes the pending write, commits the gesture and returns to
// Idle.
func (c *Controller) PointerUp(x, y float64) {
	if c.state == StateIdle {
		return
	}
	c.PointerMove(x, y)
	c.pending.Flush()
	moved := c.moved
	c.cancelGesture()
	if moved && c.onCommit != nil {
		c.onCommit()
	}
}

// Tick flushes at most one buffered write and advances the indicator fade.
// Call once per frame.
func (c *Controller) Tick(dt float32) {
	c.pending.Flush()
	if c.autoTween != nil {
		val, done := c.autoTween.Update(dt)
		c.autoAlpha = float64(val)
		if done {
			c.autoTween = nil
			c.autoSelected = ""
			c.autoAlpha = 0
		}
	}
}

// Animating reports whether the auto-selected indicator is fading, which
// needs a redraw every frame.
func (c *Controller) Animating() bool {
	return c.autoTween != nil
}

// Pending reports whether a buffered write is waiting for the next Tick.
func (c *Controller) Pending() bool {
	return c.pending.Pending()
}

// Cancel aborts the active gesture, discarding unflushed writes.
func (c *Controller) Cancel() {
	c.cancelGesture()
}

func (c *Controller) cancelGesture() {
	c.pending.Discard()
	c.state = StateIdle
	c.handle = HandleNone
	c.target = ""
	c.starts = nil
	c.moved = false
}

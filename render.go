package sketchpad

import (
	"image"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
)

// Palette of the editor chrome.
var (
	gridColor      = mustHex("#e5e7eb")
	safeAreaColor  = mustHex("#3b82f6")
	selectionColor = mustHex("#ef4444")
	autoColor      = mustHex("#10b981")
	handleColor    = mustHex("#3b82f6")
	handleBorder   = ColorWhite
	lockColor      = mustHex("#f59e0b")
)

// Stroke widths in screen pixels.
const (
	gridLineWidth      = 1.0
	safeAreaLineWidth  = 2.0
	selectionLineWidth = 2.0
	autoLineWidth      = 3.0
	handleBorderWidth  = 1.5
	lockBadgeSize      = 20.0
)

// Dash patterns in canvas units: {dash, gap}.
var (
	safeAreaDash  = [2]float64{5, 5}
	selectionDash = [2]float64{3, 3}
	autoDash      = [2]float64{5, 5}
)

// CommandType identifies the kind of render command.
type CommandType uint8

const (
	CommandFill  CommandType = iota // fill the whole target
	CommandLine                     // stroke Points[0]-Points[1]
	CommandQuad                     // fill the quad Points[0..3]
	CommandImage                    // draw a feature image through Transform
)

func (t CommandType) String() string {
	switch t {
	case CommandFill:
		return "fill"
	case CommandLine:
		return "line"
	case CommandQuad:
		return "quad"
	case CommandImage:
		return "image"
	default:
		return "unknown"
	}
}

// RenderCommand is a single draw instruction in screen space. The command list
// is built without touching the GPU so it can be inspected in tests.
type RenderCommand struct {
	Type   CommandType
	Color  Color
	Points [4]Vec2
	Width  float64

	// Image commands.
	FeatureID   string
	ImageRef    string
	Transform   [6]float64 // image pixels to screen
	Alpha       float64
	Filter      Tone
	Placeholder bool
	ImageW      int
	ImageH      int
}

// ImageLookup reports the decoded image for a reference and its cache state.
// Lookups may start a load as a side effect.
type ImageLookup func(ref string) (image.Image, ImageStatus)

// renderInput is everything compileCommands reads.
type renderInput struct {
	scene     *Scene
	images    ImageLookup
	autoID    string
	autoAlpha float64
}

// compileCommands builds the draw list for one frame: background, grid, safe
// area, then each visible feature by ascending z with its decorations.
func compileCommands(in renderInput, out []RenderCommand) []RenderCommand {
	s := in.scene
	out = append(out, RenderCommand{Type: CommandFill, Color: backgroundColor(s.settings)})

	view := s.camera.ViewMatrix()
	zoom := s.camera.Scale()

	if s.grid.Show && s.grid.Size > 0 {
		step := float64(s.grid.Size)
		for x := 0.0; x <= CanvasWidth; x += step {
			out = appendLine(out, view, x, 0, x, CanvasHeight, gridColor, gridLineWidth)
		}
		for y := 0.0; y <= CanvasHeight; y += step {
			out = appendLine(out, view, 0, y, CanvasWidth, y, gridColor, gridLineWidth)
		}
	}

	if s.settings.ShowSafeArea {
		out = appendDashedRect(out, view, SafeArea, safeAreaDash, safeAreaColor, safeAreaLineWidth)
	}

	for _, f := range s.SortedByZ() {
		if !f.Visible {
			continue
		}
		out = appendFeatureImage(out, in.images, view, &f)

		if !s.IsSelected(f.ID) {
			continue
		}
		// Decorations use the full feature transform so they flip with it.
		m := multiplyAffine(view, featureTransform(&f))
		local := Rect{X: -f.Width / 2, Y: -f.Height / 2, Width: f.Width, Height: f.Height}
		if f.ID == in.autoID {
			c := autoColor.WithAlpha(math.Max(0.4, in.autoAlpha))
			out = appendDashedRect(out, m, local, autoDash, c, autoLineWidth)
		} else {
			out = appendDashedRect(out, m, local, selectionDash, selectionColor, selectionLineWidth)
		}

		fill := handleColor
		if f.ID == in.autoID {
			fill = autoColor
		}
		size := HandleScreenSize / zoom
		for _, h := range handleAnchors {
			hx := h.ux * f.Width / 2
			hy := h.uy * f.Height / 2
			r := Rect{X: hx - size/2, Y: hy - size/2, Width: size, Height: size}
			out = appendQuad(out, m, r, fill)
			out = appendRect(out, m, r, handleBorder, handleBorderWidth)
		}

		if f.Locked {
			badge := Rect{X: f.Width/2 - lockBadgeSize/2, Y: -f.Height / 2, Width: lockBadgeSize, Height: lockBadgeSize}
			out = appendQuad(out, m, badge, lockColor)
		}
	}
	return out
}

// backgroundColor parses the canvas background, falling back to white.
func backgroundColor(cs CanvasSettings) Color {
	c, err := ParseHexColor(cs.BackgroundColor)
	if err != nil {
		return ColorWhite
	}
	return c
}

func appendFeatureImage(out []RenderCommand, images ImageLookup, view [6]float64, f *PlacedFeature) []RenderCommand {
	img, status := images(f.Asset.Path)
	cmd := RenderCommand{
		Type:      CommandImage,
		FeatureID: f.ID,
		ImageRef:  f.Asset.Path,
		Alpha:     f.Opacity,
		Filter:    BrightnessContrast(f.Brightness, f.Contrast),
	}
	switch status {
	case ImageReady:
		b := img.Bounds()
		cmd.ImageW, cmd.ImageH = b.Dx(), b.Dy()
	case ImageFailed:
		cmd.Placeholder = true
		cmd.ImageW = int(math.Max(2, math.Round(f.Width)))
		cmd.ImageH = int(math.Max(2, math.Round(f.Height)))
	default:
		// Still loading; the completed load schedules another frame.
		return out
	}
	cmd.Transform = imageTransform(multiplyAffine(view, featureTransform(f)), f, cmd.ImageW, cmd.ImageH)
	return append(out, cmd)
}

func appendLine(out []RenderCommand, m [6]float64, x0, y0, x1, y1 float64, c Color, width float64) []RenderCommand {
	sx0, sy0 := transformPoint(m, x0, y0)
	sx1, sy1 := transformPoint(m, x1, y1)
	return append(out, RenderCommand{
		Type:   CommandLine,
		Color:  c,
		Points: [4]Vec2{{sx0, sy0}, {sx1, sy1}},
		Width:  width,
	})
}

// appendDashed splits the segment into dash runs measured in the local units
// of m, matching how a 2D canvas scales line dashes with the transform.
func appendDashed(out []RenderCommand, m [6]float64, x0, y0, x1, y1 float64, dash [2]float64, c Color, width float64) []RenderCommand {
	dx, dy := x1-x0, y1-y0
	length := math.Hypot(dx, dy)
	period := dash[0] + dash[1]
	if length == 0 || period <= 0 {
		return out
	}
	ux, uy := dx/length, dy/length
	for d := 0.0; d < length; d += period {
		end := math.Min(d+dash[0], length)
		out = appendLine(out, m, x0+ux*d, y0+uy*d, x0+ux*end, y0+uy*end, c, width)
	}
	return out
}

func appendDashedRect(out []RenderCommand, m [6]float64, r Rect, dash [2]float64, c Color, width float64) []RenderCommand {
	x0, y0, x1, y1 := r.X, r.Y, r.X+r.Width, r.Y+r.Height
	out = appendDashed(out, m, x0, y0, x1, y0, dash, c, width)
	out = appendDashed(out, m, x1, y0, x1, y1, dash, c, width)
	out = appendDashed(out, m, x1, y1, x0, y1, dash, c, width)
	return appendDashed(out, m, x0, y1, x0, y0, dash, c, width)
}

func appendRect(out []RenderCommand, m [6]float64, r Rect, c Color, width float64) []RenderCommand {
	x0, y0, x1, y1 := r.X, r.Y, r.X+r.Width, r.Y+r.Height
	out = appendLine(out, m, x0, y0, x1, y0, c, width)
	out = appendLine(out, m, x1, y0, x1, y1, c, width)
	out = appendLine(out, m, x1, y1, x0, y1, c, width)
	return appendLine(out, m, x0, y1, x0, y0, c, width)
}

func appendQuad(out []RenderCommand, m [6]float64, r Rect, c Color) []RenderCommand {
	var pts [4]Vec2
	corners := [4][2]float64{
		{r.X, r.Y}, {r.X + r.Width, r.Y}, {r.X + r.Width, r.Y + r.Height}, {r.X, r.Y + r.Height},
	}
	for i, p := range corners {
		x, y := transformPoint(m, p[0], p[1])
		pts[i] = Vec2{x, y}
	}
	return append(out, RenderCommand{Type: CommandQuad, Color: c, Points: pts})
}

// --- Renderer ---

type filterKey struct {
	ref  string
	tone Tone
	w, h int
}

// Renderer owns the compiled command list and the GPU resources used to
// submit it. A frame is recompiled only after Invalidate; Draw then replays
// the cached canvas.
type Renderer struct {
	commands []RenderCommand
	dirty    bool
	compiles int

	canvas *ebiten.Image

	filter       *ToneFilter
	filtered     map[filterKey]*ebiten.Image
	placeholders map[[2]int]*ebiten.Image
	whitePixel   *ebiten.Image

	vertices [4]ebiten.Vertex
	indices  [6]uint16
	imageOp  ebiten.DrawImageOptions
	triOp    ebiten.DrawTrianglesOptions
}

// NewRenderer creates a renderer that draws on its first frame.
func NewRenderer() *Renderer {
	return &Renderer{
		dirty:        true,
		filter:       NewToneFilter(IdentityTone),
		filtered:     make(map[filterKey]*ebiten.Image),
		placeholders: make(map[[2]int]*ebiten.Image),
		indices:      [6]uint16{0, 1, 2, 0, 2, 3},
	}
}

// Invalidate schedules a redraw on the next frame. Repeated calls within a
// frame coalesce.
func (r *Renderer) Invalidate() {
	r.dirty = true
}

// Dirty reports whether a redraw is scheduled.
func (r *Renderer) Dirty() bool {
	return r.dirty
}

// Compiles returns how many times the command list has been rebuilt.
func (r *Renderer) Compiles() int {
	return r.compiles
}

// Commands returns the last compiled command list. The slice is reused by
// the next compile.
func (r *Renderer) Commands() []RenderCommand {
	return r.commands
}

// Prepare recompiles the command list if a redraw is scheduled. Reports
// whether it did.
func (r *Renderer) Prepare(in renderInput) bool {
	if !r.dirty {
		return false
	}
	r.dirty = false
	r.compiles++
	r.commands = compileCommands(in, r.commands[:0])
	return true
}

// Draw renders the current frame onto screen. When compiled is true the
// offscreen canvas is repainted first; otherwise the previous frame is reused.
func (r *Renderer) Draw(screen *ebiten.Image, cache *ImageCache, compiled bool) {
	b := screen.Bounds()
	if r.canvas == nil || r.canvas.Bounds().Dx() != b.Dx() || r.canvas.Bounds().Dy() != b.Dy() {
		if r.canvas != nil {
			r.canvas.Deallocate()
		}
		r.canvas = ebiten.NewImage(b.Dx(), b.Dy())
		compiled = true
	}
	if compiled {
		r.submit(r.canvas, cache)
	}
	screen.DrawImage(r.canvas, nil)
}

// ReleaseImage drops GPU copies derived from ref.
func (r *Renderer) ReleaseImage(ref string) {
	for k, img := range r.filtered {
		if k.ref == ref {
			img.Deallocate()
			delete(r.filtered, k)
		}
	}
}

func (r *Renderer) submit(target *ebiten.Image, cache *ImageCache) {
	for i := range r.commands {
		cmd := &r.commands[i]
		switch cmd.Type {
		case CommandFill:
			target.Fill(cmd.Color.RGBA())
		case CommandLine:
			r.submitQuad(target, cmd.Color, lineQuad(cmd.Points[0], cmd.Points[1], cmd.Width))
		case CommandQuad:
			r.submitQuad(target, cmd.Color, cmd.Points)
		case CommandImage:
			r.submitImage(target, cache, cmd)
		}
	}
}

// lineQuad expands a segment into a quad of the given width.
func lineQuad(p0, p1 Vec2, width float64) [4]Vec2 {
	dx, dy := p1.X-p0.X, p1.Y-p0.Y
	l := math.Hypot(dx, dy)
	if l == 0 {
		return [4]Vec2{p0, p0, p0, p0}
	}
	nx, ny := -dy/l*width/2, dx/l*width/2
	return [4]Vec2{
		{p0.X + nx, p0.Y + ny},
		{p1.X + nx, p1.Y + ny},
		{p1.X - nx, p1.Y - ny},
		{p0.X - nx, p0.Y - ny},
	}
}

func (r *Renderer) submitQuad(target *ebiten.Image, c Color, pts [4]Vec2) {
	if r.whitePixel == nil {
		img := ebiten.NewImage(3, 3)
		img.Fill(ColorWhite.RGBA())
		r.whitePixel = img.SubImage(image.Rect(1, 1, 2, 2)).(*ebiten.Image)
	}
	for i, p := range pts {
		r.vertices[i] = ebiten.Vertex{
			DstX: float32(p.X), DstY: float32(p.Y),
			SrcX: 1, SrcY: 1,
			ColorR: float32(c.R), ColorG: float32(c.G), ColorB: float32(c.B), ColorA: float32(c.A),
		}
	}
	target.DrawTriangles(r.vertices[:], r.indices[:], r.whitePixel, &r.triOp)
}

func (r *Renderer) submitImage(target *ebiten.Image, cache *ImageCache, cmd *RenderCommand) {
	var src *ebiten.Image
	if cmd.Placeholder {
		src = r.placeholder(cmd.ImageW, cmd.ImageH)
	} else if cache != nil {
		src = cache.gpuImage(cmd.ImageRef)
	}
	if src == nil {
		return
	}
	if !cmd.Filter.IsIdentity() {
		src = r.filteredImage(src, cmd)
	}
	r.imageOp.GeoM = commandGeoM(cmd)
	r.imageOp.ColorScale.Reset()
	r.imageOp.ColorScale.ScaleAlpha(float32(cmd.Alpha))
	r.imageOp.Filter = ebiten.FilterLinear
	target.DrawImage(src, &r.imageOp)
}

// filteredImage returns src with the command's tone applied, cached per
// reference and tone so unchanged features are not refiltered.
func (r *Renderer) filteredImage(src *ebiten.Image, cmd *RenderCommand) *ebiten.Image {
	key := filterKey{ref: cmd.ImageRef, tone: cmd.Filter, w: cmd.ImageW, h: cmd.ImageH}
	if cmd.Placeholder {
		key.ref = ""
	}
	if img, ok := r.filtered[key]; ok {
		return img
	}
	b := src.Bounds()
	dst := ebiten.NewImage(b.Dx(), b.Dy())
	r.filter.Tone = cmd.Filter
	r.filter.Apply(src, dst)
	r.filtered[key] = dst
	return dst
}

func (r *Renderer) placeholder(w, h int) *ebiten.Image {
	key := [2]int{w, h}
	if img, ok := r.placeholders[key]; ok {
		return img
	}
	img := ebiten.NewImageFromImage(placeholderImage(w, h))
	r.placeholders[key] = img
	return img
}

// commandGeoM builds an ebiten.GeoM from a command's affine transform.
func commandGeoM(cmd *RenderCommand) ebiten.GeoM {
	var m ebiten.GeoM
	m.SetElement(0, 0, cmd.Transform[0])
	m.SetElement(1, 0, cmd.Transform[1])
	m.SetElement(0, 1, cmd.Transform[2])
	m.SetElement(1, 1, cmd.Transform[3])
	m.SetElement(0, 2, cmd.Transform[4])
	m.SetElement(1, 2, cmd.Transform[5])
	return m
}

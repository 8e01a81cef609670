package sketchpad

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// Canvas dimensions in canvas units. All feature geometry is expressed in this
// space; the view (zoom/pan) and export quality scale it to pixels.
const (
	CanvasWidth  = 600
	CanvasHeight = 700
)

const (
	MinFeatureSize  = 20.0 // width/height floor for every feature
	MinScale        = 0.5
	MaxScale        = 2.0
	ScaleStep       = 0.1
	DefaultGridSize = 20
	DuplicateOffset = 20.0

	MinZoom  = 25.0
	MaxZoom  = 300.0
	ZoomStep = 25.0
)

// SafeArea is the dashed guide drawn when CanvasSettings.ShowSafeArea is set.
var SafeArea = Rect{X: 50, Y: 50, Width: 500, Height: 600}

// Color represents an RGBA color with components in [0, 1]. Not premultiplied.
// Premultiplication occurs at render submission time.
type Color struct {
	R, G, B, A float64
}

// ColorWhite is the default canvas background.
var ColorWhite = Color{1, 1, 1, 1}

// ParseHexColor parses "#rrggbb", "#rgb" or "#rrggbbaa".
func ParseHexColor(s string) (Color, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return Color{}, fmt.Errorf("parse color %q: bad length", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("parse color %q: %w", s, err)
	}
	return Color{
		R: float64(v>>24&0xff) / 255,
		G: float64(v>>16&0xff) / 255,
		B: float64(v>>8&0xff) / 255,
		A: float64(v&0xff) / 255,
	}, nil
}

// mustHex is for package-level palette constants only.
func mustHex(s string) Color {
	c, err := ParseHexColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Hex formats the color as "#rrggbb", dropping alpha.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", to8(c.R), to8(c.G), to8(c.B))
}

// WithAlpha returns c with its alpha multiplied by a.
func (c Color) WithAlpha(a float64) Color {
	c.A *= a
	return c
}

// RGBA returns the premultiplied 8-bit form used by image/draw and ebiten.
func (c Color) RGBA() color.RGBA {
	a := clamp01(c.A)
	return color.RGBA{
		R: to8(c.R * a),
		G: to8(c.G * a),
		B: to8(c.B * a),
		A: to8(a),
	}
}

func to8(v float64) uint8 {
	return uint8(math.Round(clamp01(v) * 255))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Vec2 is a 2D vector used for positions, offsets and sizes.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle. The coordinate system has its origin at
// the top-left, with Y increasing downward.
type Rect struct {
	X, Y, Width, Height float64
}

// Contains reports whether the point (x, y) lies inside the rectangle.
// Points on the edge are considered inside.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// Area returns Width*Height.
func (r Rect) Area() float64 {
	return r.Width * r.Height
}

// Center returns the midpoint of the rectangle.
func (r Rect) Center() Vec2 {
	return Vec2{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// KeyModifiers is a bitmask of keyboard modifier keys.
// Values can be combined with bitwise OR (e.g. ModShift | ModCtrl).
type KeyModifiers uint8

const (
	ModShift KeyModifiers = 1 << iota // Shift key
	ModCtrl                           // Control key
	ModAlt                            // Alt / Option key
	ModMeta                           // Meta / Command / Windows key
)

// command reports whether the platform command modifier (Ctrl or Meta) is held.
func (m KeyModifiers) command() bool {
	return m&(ModCtrl|ModMeta) != 0
}

// snap rounds v to the nearest multiple of grid. A non-positive grid is a no-op.
func snap(v float64, grid int) float64 {
	if grid <= 0 {
		return v
	}
	g := float64(grid)
	return math.Round(v/g) * g
}

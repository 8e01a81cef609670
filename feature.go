package sketchpad

import (
	"encoding/json"
	"math"
)

// PlacedFeature is one instance of a catalog asset on the canvas. JSON field
// names follow the persisted sketch_state schema.
type PlacedFeature struct {
	ID    string       `json:"id"`
	Asset FeatureAsset `json:"asset"`

	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	// Rotation in degrees, [-180, 180].
	Rotation float64 `json:"rotation"`
	Opacity  float64 `json:"opacity"`
	ZIndex   int     `json:"zIndex"`

	Locked  bool `json:"locked"`
	Visible bool `json:"visible"`
	FlipH   bool `json:"flipH"`
	FlipV   bool `json:"flipV"`

	// Brightness and Contrast are percentages, 100 = unchanged.
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
	Scale      float64 `json:"scale"`
}

// featureDefaults returns the values assumed for fields missing from a
// persisted feature.
func featureDefaults() PlacedFeature {
	return PlacedFeature{
		Width:      100,
		Height:     100,
		Opacity:    1,
		Visible:    true,
		Brightness: 100,
		Contrast:   100,
		Scale:      1,
	}
}

// UnmarshalJSON decodes a feature, filling absent fields with defaults.
func (f *PlacedFeature) UnmarshalJSON(data []byte) error {
	type plain PlacedFeature
	p := plain(featureDefaults())
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*f = PlacedFeature(p)
	return nil
}

// Bounds returns the unrotated bounding box used for hit testing.
func (f *PlacedFeature) Bounds() Rect {
	return Rect{X: f.X, Y: f.Y, Width: f.Width, Height: f.Height}
}

// Center returns the center of the feature's bounding box.
func (f *PlacedFeature) Center() Vec2 {
	return Vec2{X: f.X + f.Width/2, Y: f.Y + f.Height/2}
}

// normalize enforces the field ranges of a placed feature.
func (f *PlacedFeature) normalize() {
	f.Width = math.Max(f.Width, MinFeatureSize)
	f.Height = math.Max(f.Height, MinFeatureSize)
	f.Scale = clamp(f.Scale, MinScale, MaxScale)
	f.Rotation = wrapRotation(f.Rotation)
	f.Opacity = clamp(f.Opacity, 0, 1)
	f.Brightness = clamp(f.Brightness, 0, 200)
	f.Contrast = clamp(f.Contrast, 0, 200)
}

// wrapRotation maps any angle in degrees into [-180, 180].
func wrapRotation(deg float64) float64 {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0
	}
	if deg >= -180 && deg <= 180 {
		return deg
	}
	r := math.Mod(deg+180, 360)
	if r < 0 {
		r += 360
	}
	return r - 180
}

// cloneFeatures deep-copies a feature slice, including asset tag slices.
func cloneFeatures(src []PlacedFeature) []PlacedFeature {
	if src == nil {
		return []PlacedFeature{}
	}
	out := make([]PlacedFeature, len(src))
	copy(out, src)
	for i := range out {
		if out[i].Asset.Tags != nil {
			out[i].Asset.Tags = append([]string(nil), out[i].Asset.Tags...)
		}
	}
	return out
}

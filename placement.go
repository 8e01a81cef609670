package sketchpad

// FeatureSize is the default size and scale of a newly placed asset.
type FeatureSize struct {
	Width, Height float64
	Scale         float64
}

var defaultSizes = map[Category]FeatureSize{
	CategoryFaceShape:  {400, 500, 1.0},
	CategoryEyes:       {80, 60, 0.8},
	CategoryEyebrows:   {90, 40, 0.85},
	CategoryNose:       {120, 150, 0.9},
	CategoryLips:       {100, 80, 0.75},
	CategoryHair:       {450, 550, 1.1},
	CategoryFacialHair: {140, 120, 0.8},
	CategoryEars:       {60, 100, 0.8},
	CategoryNeck:       {160, 140, 0.9},
	CategoryAccessory:  {200, 200, 0.9},
}

var fallbackSize = FeatureSize{100, 100, 1.0}

// DefaultSize returns the initial size for an asset of the given category.
// User-defined categories get 100x100 at scale 1.
func DefaultSize(c Category) FeatureSize {
	if s, ok := defaultSizes[c]; ok {
		return s
	}
	return fallbackSize
}

// placementOffset describes where a category lands relative to the anchor.
// Paired categories alternate between -DX and +DX.
type placementOffset struct {
	DX, DY   float64
	paired   bool
	centered bool // ignore the anchor and use the canvas center
}

var placementOffsets = map[Category]placementOffset{
	CategoryFaceShape:  {centered: true},
	CategoryEyes:       {DX: 80, DY: -70, paired: true},
	CategoryEyebrows:   {DX: 80, DY: -100, paired: true},
	CategoryNose:       {},
	CategoryLips:       {DY: 70},
	CategoryHair:       {DY: -100},
	CategoryFacialHair: {DY: 110},
	CategoryEars:       {DX: 160, paired: true},
	CategoryNeck:       {DY: 260},
	CategoryAccessory:  {centered: true},
}

// canvasCenter is the default anchor.
var canvasCenter = Vec2{X: CanvasWidth / 2, Y: CanvasHeight / 2}

// SmartPosition computes the top-left position for a new feature of category
// c. The anchor is the center of the first face-shape feature in the scene,
// or the canvas center when there is none. Paired categories go left when
// the scene holds an even number of that category and right otherwise. The
// result is snapped to the grid when snapping is enabled.
func SmartPosition(s *Scene, c Category) Vec2 {
	size := DefaultSize(c)
	anchor := canvasCenter
	for i := range s.features {
		if s.features[i].Asset.Category == CategoryFaceShape {
			anchor = s.features[i].Center()
			break
		}
	}

	off, known := placementOffsets[c]
	if !known || off.centered {
		anchor = canvasCenter
	}
	cx := anchor.X
	if off.paired {
		n := 0
		for i := range s.features {
			if s.features[i].Asset.Category == c {
				n++
			}
		}
		if n%2 == 0 {
			cx -= off.DX
		} else {
			cx += off.DX
		}
	} else {
		cx += off.DX
	}
	cy := anchor.Y + off.DY

	grid := s.grid.snapSize()
	return Vec2{
		X: snap(cx-size.Width/2, grid),
		Y: snap(cy-size.Height/2, grid),
	}
}

// DropPosition converts a drop location in screen pixels to a canvas
// position, snapped to the grid when enabled. The dropped feature's top-left
// corner lands at the drop point.
func DropPosition(s *Scene, screenX, screenY float64) Vec2 {
	x, y := s.camera.ScreenToCanvas(screenX, screenY)
	grid := s.grid.snapSize()
	return Vec2{X: snap(x, grid), Y: snap(y, grid)}
}

// NewPlacedFeature builds a feature for asset at pos with the category's
// default size and scale. Its z-order places it above every existing feature
// of a densely numbered scene.
func NewPlacedFeature(s *Scene, asset FeatureAsset, pos Vec2) PlacedFeature {
	size := DefaultSize(asset.Category)
	f := featureDefaults()
	f.ID = newFeatureID()
	f.Asset = asset
	f.X, f.Y = pos.X, pos.Y
	f.Width, f.Height = size.Width, size.Height
	f.Scale = size.Scale
	f.ZIndex = len(s.features)
	return f
}

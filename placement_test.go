package sketchpad

import "testing"

func TestDefaultSize(t *testing.T) {
	tests := []struct {
		cat  Category
		want FeatureSize
	}{
		{CategoryFaceShape, FeatureSize{400, 500, 1.0}},
		{CategoryEyes, FeatureSize{80, 60, 0.8}},
		{CategoryHair, FeatureSize{450, 550, 1.1}},
		{Category("scars"), FeatureSize{100, 100, 1.0}},
	}
	for _, tt := range tests {
		if got := DefaultSize(tt.cat); got != tt.want {
			t.Errorf("DefaultSize(%s) = %+v, want %+v", tt.cat, got, tt.want)
		}
	}
}

func TestSmartPositionNoFace(t *testing.T) {
	s := NewScene()
	got := SmartPosition(s, CategoryNose)
	// nose 120x150 centered on (300, 350)
	want := Vec2{X: 240, Y: 275}
	if got != want {
		t.Errorf("SmartPosition(nose) = %+v, want %+v", got, want)
	}
}

func TestSmartPositionPairedEyes(t *testing.T) {
	s := NewScene()
	addTestFeature(t, s, "face", CategoryFaceShape, Rect{100, 100, 400, 500}, 0)
	// face center (300, 350)

	first := SmartPosition(s, CategoryEyes)
	if want := (Vec2{X: 300 - 80 - 40, Y: 350 - 70 - 30}); first != want {
		t.Errorf("first eye = %+v, want %+v", first, want)
	}
	s.Add(NewPlacedFeature(s, testAsset("e1", CategoryEyes), first))

	second := SmartPosition(s, CategoryEyes)
	if want := (Vec2{X: 300 + 80 - 40, Y: 350 - 70 - 30}); second != want {
		t.Errorf("second eye = %+v, want %+v", second, want)
	}
	s.Add(NewPlacedFeature(s, testAsset("e2", CategoryEyes), second))

	third := SmartPosition(s, CategoryEyes)
	if third != first {
		t.Errorf("third eye = %+v, want left side %+v", third, first)
	}
}

func TestSmartPositionFollowsFace(t *testing.T) {
	s := NewScene()
	addTestFeature(t, s, "face", CategoryFaceShape, Rect{0, 0, 200, 300}, 0)
	// face center (100, 150); lips sit 70 below

	got := SmartPosition(s, CategoryLips)
	want := Vec2{X: 100 - 50, Y: 150 + 70 - 40}
	if got != want {
		t.Errorf("SmartPosition(lips) = %+v, want %+v", got, want)
	}
}

func TestSmartPositionCenteredIgnoresFace(t *testing.T) {
	s := NewScene()
	addTestFeature(t, s, "face", CategoryFaceShape, Rect{0, 0, 200, 300}, 0)

	got := SmartPosition(s, CategoryFaceShape)
	want := Vec2{X: 300 - 200, Y: 350 - 250}
	if got != want {
		t.Errorf("SmartPosition(face) = %+v, want %+v", got, want)
	}
}

func TestSmartPositionSnapsToGrid(t *testing.T) {
	s := NewScene()
	s.SetGrid(GridSettings{Show: true, Size: 20, Snap: true})

	got := SmartPosition(s, CategoryNose)
	// (240, 275) snapped to 20
	want := Vec2{X: 240, Y: 280}
	if got != want {
		t.Errorf("SmartPosition = %+v, want %+v", got, want)
	}
}

func TestDropPosition(t *testing.T) {
	s := NewScene()
	s.SetZoom(200)
	s.SetPan(Vec2{X: 10, Y: 20})

	got := DropPosition(s, 210, 420)
	if want := (Vec2{X: 100, Y: 200}); got != want {
		t.Errorf("DropPosition = %+v, want %+v", got, want)
	}

	s.SetGrid(GridSettings{Size: 30, Snap: true})
	got = DropPosition(s, 210+2*14, 420)
	if want := (Vec2{X: 120, Y: 210}); got != want {
		t.Errorf("snapped DropPosition = %+v, want %+v", got, want)
	}
}

func TestNewPlacedFeature(t *testing.T) {
	s := NewScene()
	addTestFeature(t, s, "a", CategoryNose, Rect{0, 0, 50, 50}, 0)
	addTestFeature(t, s, "b", CategoryNose, Rect{0, 0, 50, 50}, 1)

	f := NewPlacedFeature(s, testAsset("e", CategoryEyes), Vec2{X: 5, Y: 6})
	if f.ID == "" {
		t.Error("ID is empty")
	}
	if f.ZIndex != 2 {
		t.Errorf("ZIndex = %d, want 2", f.ZIndex)
	}
	if f.Width != 80 || f.Height != 60 || f.Scale != 0.8 {
		t.Errorf("size = %vx%v @%v, want 80x60 @0.8", f.Width, f.Height, f.Scale)
	}
	if !f.Visible || f.Opacity != 1 || f.Brightness != 100 || f.Contrast != 100 {
		t.Errorf("defaults not applied: %+v", f)
	}
	if f.X != 5 || f.Y != 6 {
		t.Errorf("pos = (%v, %v), want (5, 6)", f.X, f.Y)
	}
}

func TestSnap(t *testing.T) {
	tests := []struct {
		v    float64
		grid int
		want float64
	}{
		{29, 20, 20},
		{30, 20, 40},
		{-11, 20, -20},
		{13.7, 0, 13.7},
	}
	for _, tt := range tests {
		if got := snap(tt.v, tt.grid); got != tt.want {
			t.Errorf("snap(%v, %d) = %v, want %v", tt.v, tt.grid, got, tt.want)
		}
	}
}

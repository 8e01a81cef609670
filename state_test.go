package sketchpad

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseStateDefaults(t *testing.T) {
	st, err := ParseState([]byte(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	if st.Zoom != 100 {
		t.Errorf("Zoom = %v, want 100", st.Zoom)
	}
	if st.Features == nil || len(st.Features) != 0 {
		t.Errorf("Features = %v, want empty non-nil", st.Features)
	}
	if st.SelectedFeatures == nil {
		t.Error("SelectedFeatures is nil")
	}
	if st.CanvasSettings != DefaultCanvasSettings() {
		t.Errorf("CanvasSettings = %+v", st.CanvasSettings)
	}
	if st.SaveDetails.Priority != PriorityNormal || st.CaseInfo.Priority != PriorityMedium {
		t.Errorf("priorities = %q, %q", st.SaveDetails.Priority, st.CaseInfo.Priority)
	}
}

func TestParseStateFeatureDefaults(t *testing.T) {
	data := `{"features":[{"id":"f1","asset":{"id":"e1","category":"eyes","path":"e1.png"},"x":12,"y":34}]}`
	st, err := ParseState([]byte(data))
	if err != nil {
		t.Fatal(err)
	}
	f := st.Features[0]
	if f.Width != 100 || f.Height != 100 || f.Opacity != 1 || !f.Visible || f.Scale != 1 {
		t.Errorf("missing fields not defaulted: %+v", f)
	}
	if f.Brightness != 100 || f.Contrast != 100 {
		t.Errorf("Brightness, Contrast = %v, %v; want 100, 100", f.Brightness, f.Contrast)
	}
	if f.Asset.Category != CategoryEyes || f.X != 12 || f.Y != 34 {
		t.Errorf("decoded = %+v", f)
	}
}

func TestParseStateInvalid(t *testing.T) {
	if _, err := ParseState([]byte(`{"features":7}`)); err == nil {
		t.Error("expected error")
	}
}

func TestStateSceneRoundTrip(t *testing.T) {
	s := NewScene()
	addTestFeature(t, s, "a", CategoryNose, Rect{10, 20, 60, 70}, 0)
	addTestFeature(t, s, "b", CategoryLips, Rect{30, 40, 50, 50}, 1)
	s.Update("b", func(f *PlacedFeature) {
		f.Rotation = 45
		f.FlipH = true
		f.Brightness = 150
	})
	s.SetLocked("a", true)
	s.Select("b")
	s.SetZoom(150)
	s.SetPan(Vec2{X: 7, Y: -3})
	s.SetDetails(SaveDetails{Name: "Case 7", Officer: "Ortiz", Priority: PriorityHigh, Status: StatusReview})
	s.SetCaseInfo(CaseInfo{CaseNumber: "C-7"})

	data, err := StateFromScene(s).Encode()
	if err != nil {
		t.Fatal(err)
	}
	st, err := ParseState(data)
	if err != nil {
		t.Fatal(err)
	}

	other := NewScene()
	ApplyState(other, st)

	if other.Len() != 2 {
		t.Fatalf("Len = %d, want 2", other.Len())
	}
	a, _ := other.Feature("a")
	b, _ := other.Feature("b")
	if !a.Locked || a.X != 10 || a.Height != 70 {
		t.Errorf("a = %+v", a)
	}
	if b.Rotation != 45 || !b.FlipH || b.Brightness != 150 || b.ZIndex != 1 {
		t.Errorf("b = %+v", b)
	}
	if sel := other.Selection(); !equalStrings(sel, []string{"b"}) {
		t.Errorf("Selection = %v, want [b]", sel)
	}
	if other.Camera().Zoom != 150 || other.Camera().Pan != (Vec2{X: 7, Y: -3}) {
		t.Errorf("view = %v, %+v", other.Camera().Zoom, other.Camera().Pan)
	}
	if d := other.Details(); d.Name != "Case 7" || d.Priority != PriorityHigh {
		t.Errorf("Details = %+v", d)
	}
	if other.CaseInfo().CaseNumber != "C-7" {
		t.Errorf("CaseNumber = %q", other.CaseInfo().CaseNumber)
	}
}

func TestApplyStatePrunesUnknownSelection(t *testing.T) {
	s := NewScene()
	ApplyState(s, SketchState{
		Features:         snapshotWith("a"),
		SelectedFeatures: []string{"a", "gone"},
		Zoom:             1000,
	})
	if sel := s.Selection(); !equalStrings(sel, []string{"a"}) {
		t.Errorf("Selection = %v, want [a]", sel)
	}
	if s.Camera().Zoom != MaxZoom {
		t.Errorf("Zoom = %v, want %v", s.Camera().Zoom, MaxZoom)
	}
	if s.Settings().BackgroundColor != "#ffffff" || s.Settings().Quality != QualityHigh {
		t.Errorf("Settings = %+v", s.Settings())
	}
}

func TestStateWireFieldNames(t *testing.T) {
	s := NewScene()
	addTestFeature(t, s, "a", CategoryNose, Rect{0, 0, 50, 50}, 0)
	data, err := StateFromScene(s).Encode()
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"features", "canvasSettings", "zoom", "panOffset", "selectedFeatures", "saveDetails", "caseInfo"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
	var features []map[string]json.RawMessage
	json.Unmarshal(doc["features"], &features)
	for _, key := range []string{"id", "asset", "x", "y", "width", "height", "rotation", "opacity", "zIndex", "locked", "visible", "flipH", "flipV", "brightness", "contrast", "scale"} {
		if _, ok := features[0][key]; !ok {
			t.Errorf("feature missing key %q", key)
		}
	}
}

func TestDraftJSON(t *testing.T) {
	ts := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	d := Draft{State: SketchState{Features: snapshotWith("a"), Zoom: 80}, Timestamp: ts}

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]json.RawMessage
	json.Unmarshal(data, &doc)
	if _, ok := doc["timestamp"]; !ok {
		t.Error("draft has no timestamp key")
	}
	if _, ok := doc["features"]; !ok {
		t.Error("draft should inline the state fields")
	}

	var back Draft
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if !back.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", back.Timestamp, ts)
	}
	if back.State.Zoom != 80 || len(back.State.Features) != 1 {
		t.Errorf("State = %+v", back.State)
	}
}

func TestDraftKey(t *testing.T) {
	if got := DraftKey(""); got != "sketch_draft_new" {
		t.Errorf("DraftKey(\"\") = %q", got)
	}
	if got := DraftKey("65f0"); got != "sketch_draft_65f0" {
		t.Errorf("DraftKey(65f0) = %q", got)
	}
}

func TestStructuralHash(t *testing.T) {
	base := SketchState{Features: snapshotWith("a", "b"), Zoom: 100}
	h := StructuralHash(base)

	other := base
	other.Features = cloneFeatures(base.Features)
	other.Features[0].Asset.Path = "https://cdn.example/new.png"
	other.Features[0].Brightness = 10
	other.SaveDetails.Name = "renamed"
	other.SelectedFeatures = []string{"a"}
	if StructuralHash(other) != h {
		t.Error("images, filters, metadata and selection should not affect the hash")
	}

	moved := base
	moved.Features = cloneFeatures(base.Features)
	moved.Features[1].X = 1
	if StructuralHash(moved) == h {
		t.Error("moving a feature should change the hash")
	}

	zoomed := base
	zoomed.Zoom = 125
	if StructuralHash(zoomed) == h {
		t.Error("zoom should change the hash")
	}

	locked := base
	locked.Features = cloneFeatures(base.Features)
	locked.Features[0].Locked = true
	if StructuralHash(locked) == h {
		t.Error("lock should change the hash")
	}
}

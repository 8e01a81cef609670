package sketchpad

import (
	"errors"
	"testing"
)

func layerScene(t *testing.T) *Scene {
	t.Helper()
	s := NewScene()
	for i, id := range []string{"a", "b", "c", "d"} {
		addTestFeature(t, s, id, CategoryNose, Rect{0, 0, 50, 50}, i)
	}
	return s
}

func equalIDs(a, b []string) bool {
	return equalStrings(a, b)
}

func TestLayerOrderTopFirst(t *testing.T) {
	s := layerScene(t)
	if got, want := s.LayerOrder(), []string{"d", "c", "b", "a"}; !equalIDs(got, want) {
		t.Errorf("LayerOrder = %v, want %v", got, want)
	}
}

func TestBringToFrontAndSendToBack(t *testing.T) {
	s := layerScene(t)
	s.BringToFront("a")
	if f, _ := s.Feature("a"); f.ZIndex != 4 {
		t.Errorf("a.ZIndex = %d, want 4", f.ZIndex)
	}
	s.SendToBack("d")
	if f, _ := s.Feature("d"); f.ZIndex != -1 {
		t.Errorf("d.ZIndex = %d, want -1", f.ZIndex)
	}
	if got, want := s.LayerOrder(), []string{"a", "c", "b", "d"}; !equalIDs(got, want) {
		t.Errorf("LayerOrder = %v, want %v", got, want)
	}
}

func TestBringToFrontSkipsLocked(t *testing.T) {
	s := layerScene(t)
	s.SetLocked("a", true)
	if got := s.BringToFront("a"); len(got) != 0 {
		t.Errorf("changed = %v, want none", got)
	}
	if f, _ := s.Feature("a"); f.ZIndex != 0 {
		t.Errorf("a.ZIndex = %d, want 0", f.ZIndex)
	}
}

func TestReorderLayer(t *testing.T) {
	tests := []struct {
		name            string
		dragged, target string
		want            []string // ascending z
	}{
		{"down onto lower", "d", "b", []string{"a", "d", "b", "c"}},
		{"up onto higher", "a", "c", []string{"b", "a", "c", "d"}},
		{"onto itself", "b", "b", []string{"a", "b", "c", "d"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := layerScene(t)
			if err := s.ReorderLayer(tt.dragged, tt.target); err != nil {
				t.Fatal(err)
			}
			got := snapshotIDs(s.SortedByZ())
			if !equalIDs(got, tt.want) {
				t.Errorf("order = %v, want %v", got, tt.want)
			}
			for z, f := range s.SortedByZ() {
				if f.ZIndex != z {
					t.Errorf("%s.ZIndex = %d, want %d", f.ID, f.ZIndex, z)
				}
			}
		})
	}
}

func TestReorderLayerLocked(t *testing.T) {
	s := layerScene(t)
	s.SetLocked("a", true)
	if err := s.ReorderLayer("a", "c"); !errors.Is(err, ErrFeatureLocked) {
		t.Errorf("err = %v, want ErrFeatureLocked", err)
	}
	// a locked target is fine
	if err := s.ReorderLayer("d", "a"); err != nil {
		t.Errorf("onto locked target: %v", err)
	}
}

func TestReorderLayerUnknown(t *testing.T) {
	s := layerScene(t)
	if err := s.ReorderLayer("x", "a"); !errors.Is(err, ErrFeatureNotFound) {
		t.Errorf("err = %v, want ErrFeatureNotFound", err)
	}
	if err := s.ReorderLayer("a", "x"); !errors.Is(err, ErrFeatureNotFound) {
		t.Errorf("err = %v, want ErrFeatureNotFound", err)
	}
}

func TestToggleVisibilityAndLock(t *testing.T) {
	s := layerScene(t)
	if err := s.ToggleLock("b"); err != nil {
		t.Fatal(err)
	}
	if err := s.ToggleVisibility("b"); err != nil {
		t.Fatal(err)
	}
	f, _ := s.Feature("b")
	if !f.Locked || f.Visible {
		t.Errorf("Locked, Visible = %v, %v; want true, false", f.Locked, f.Visible)
	}
	if err := s.ToggleLock("ghost"); !errors.Is(err, ErrFeatureNotFound) {
		t.Errorf("err = %v, want ErrFeatureNotFound", err)
	}
}

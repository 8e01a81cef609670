package sketchpad

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// SketchState is the persisted scene serialization shared by the sketch store
// service, local drafts and project files. Field names are part of the wire
// format.
type SketchState struct {
	Features         []PlacedFeature `json:"features"`
	CanvasSettings   CanvasSettings  `json:"canvasSettings"`
	Zoom             float64         `json:"zoom"`
	PanOffset        Vec2            `json:"panOffset"`
	SelectedFeatures []string        `json:"selectedFeatures"`
	SaveDetails      SaveDetails     `json:"saveDetails"`
	CaseInfo         CaseInfo        `json:"caseInfo"`
}

// UnmarshalJSON decodes a state, defaulting zoom and settings that older
// records omit.
func (st *SketchState) UnmarshalJSON(data []byte) error {
	type plain SketchState
	p := plain{
		CanvasSettings: DefaultCanvasSettings(),
		Zoom:           100,
		SaveDetails:    DefaultSaveDetails(),
		CaseInfo:       DefaultCaseInfo(),
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.Features == nil {
		p.Features = []PlacedFeature{}
	}
	if p.SelectedFeatures == nil {
		p.SelectedFeatures = []string{}
	}
	*st = SketchState(p)
	return nil
}

// ParseState decodes a sketch_state document.
func ParseState(data []byte) (SketchState, error) {
	var st SketchState
	if err := json.Unmarshal(data, &st); err != nil {
		return SketchState{}, fmt.Errorf("parse sketch state: %w", err)
	}
	return st, nil
}

// Encode returns the JSON form of the state.
func (st SketchState) Encode() ([]byte, error) {
	data, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("encode sketch state: %w", err)
	}
	return data, nil
}

// StateFromScene captures everything persisted about s.
func StateFromScene(s *Scene) SketchState {
	return SketchState{
		Features:         s.Snapshot(),
		CanvasSettings:   s.settings,
		Zoom:             s.camera.Zoom,
		PanOffset:        s.camera.Pan,
		SelectedFeatures: append([]string{}, s.selection...),
		SaveDetails:      s.details,
		CaseInfo:         s.caseInfo,
	}
}

// ApplyState replaces the scene content with st as a single change. Grid
// preferences are kept.
func ApplyState(s *Scene, st SketchState) {
	s.features = s.features[:0]
	clear(s.index)
	for _, f := range cloneFeatures(st.Features) {
		if f.ID == "" {
			f.ID = newFeatureID()
		}
		if _, dup := s.index[f.ID]; dup {
			continue
		}
		f.normalize()
		s.features = append(s.features, f)
		s.index[f.ID] = len(s.features) - 1
	}
	s.selection = append(s.selection[:0], st.SelectedFeatures...)
	s.pruneSelection()

	s.settings = st.CanvasSettings
	if s.settings.Quality == "" {
		s.settings.Quality = QualityHigh
	}
	if s.settings.BackgroundColor == "" {
		s.settings.BackgroundColor = "#ffffff"
	}
	s.camera.zoomTween = nil
	s.camera.Zoom = 100
	if st.Zoom != 0 {
		s.camera.Zoom = clamp(st.Zoom, MinZoom, MaxZoom)
	}
	s.camera.Pan = st.PanOffset
	s.camera.dirty = true
	s.details = st.SaveDetails
	s.caseInfo = st.CaseInfo
	s.notify(ChangeFeatures | ChangeSelection | ChangeView | ChangeSettings | ChangeMetadata)
}

// Draft is a locally stored state with the time it was written. It encodes
// as the sketch_state object with an added "timestamp" field.
type Draft struct {
	State     SketchState
	Timestamp time.Time
}

// MarshalJSON implements json.Marshaler.
func (d Draft) MarshalJSON() ([]byte, error) {
	state, err := json.Marshal(d.State)
	if err != nil {
		return nil, err
	}
	return mergeJSON(state, "timestamp", d.Timestamp)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Draft) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &d.State); err != nil {
		return err
	}
	var ts struct {
		Timestamp time.Time `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &ts); err != nil {
		return err
	}
	d.Timestamp = ts.Timestamp
	return nil
}

// DraftKey returns the local draft key for a record id; an empty id is the
// unsaved sketch.
func DraftKey(recordID string) string {
	if recordID == "" {
		return "sketch_draft_new"
	}
	return "sketch_draft_" + recordID
}

type hashFeature struct {
	ID       string  `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation float64 `json:"rotation"`
	Opacity  float64 `json:"opacity"`
	ZIndex   int     `json:"zIndex"`
	Visible  bool    `json:"visible"`
	Locked   bool    `json:"locked"`
}

// StructuralHash digests the parts of a state autosave cares about: feature
// geometry, visibility, lock, zoom and pan. Images and metadata are excluded.
func StructuralHash(st SketchState) string {
	doc := struct {
		Features []hashFeature `json:"features"`
		Zoom     float64       `json:"zoom"`
		Pan      Vec2          `json:"panOffset"`
	}{
		Features: make([]hashFeature, len(st.Features)),
		Zoom:     st.Zoom,
		Pan:      st.PanOffset,
	}
	for i, f := range st.Features {
		doc.Features[i] = hashFeature{
			ID: f.ID, X: f.X, Y: f.Y, Width: f.Width, Height: f.Height,
			Rotation: f.Rotation, Opacity: f.Opacity, ZIndex: f.ZIndex,
			Visible: f.Visible, Locked: f.Locked,
		}
	}
	// Marshalling plain structs of numbers and strings cannot fail.
	data, _ := json.Marshal(doc)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

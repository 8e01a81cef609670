package sketchpad

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

var (
	ErrFeatureNotFound = errors.New("feature not found")
	ErrFeatureLocked   = errors.New("feature is locked")
	ErrDuplicateID     = errors.New("duplicate feature id")
)

// ExportQuality selects the export resolution multiplier.
type ExportQuality string

const (
	QualityStandard ExportQuality = "standard"
	QualityHigh     ExportQuality = "high"
)

// Multiplier returns 2 for high quality and 1 otherwise.
func (q ExportQuality) Multiplier() int {
	if q == QualityHigh {
		return 2
	}
	return 1
}

// CanvasSettings are the persisted global canvas options.
type CanvasSettings struct {
	BackgroundColor string        `json:"backgroundColor"`
	ShowRulers      bool          `json:"showRulers"`
	ShowSafeArea    bool          `json:"showSafeArea"`
	Quality         ExportQuality `json:"quality"`
}

// DefaultCanvasSettings returns a white, high-quality canvas.
func DefaultCanvasSettings() CanvasSettings {
	return CanvasSettings{BackgroundColor: "#ffffff", Quality: QualityHigh}
}

// GridSettings control the editing grid. They are view preferences and are
// not part of the persisted state.
type GridSettings struct {
	Show bool
	Size int
	Snap bool
}

// snapSize returns the grid size to snap to, or 0 when snapping is off.
func (g GridSettings) snapSize() int {
	if !g.Snap {
		return 0
	}
	return g.Size
}

// Priority of a sketch record.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Status of a sketch record.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusInProgress Status = "in-progress"
	StatusReview     Status = "review"
	StatusCompleted  Status = "completed"
)

// SaveDetails is the descriptive metadata sent with a remote save.
type SaveDetails struct {
	Name        string   `json:"name"`
	Suspect     string   `json:"suspect"`
	Eyewitness  string   `json:"eyewitness"`
	Officer     string   `json:"officer"`
	Date        string   `json:"date"`
	Reason      string   `json:"reason"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
	Status      Status   `json:"status"`
}

// CaseInfo mirrors SaveDetails and adds the case number used in export names.
type CaseInfo struct {
	CaseNumber string `json:"caseNumber"`
	SaveDetails
}

// DefaultSaveDetails returns empty details with normal priority, draft status.
func DefaultSaveDetails() SaveDetails {
	return SaveDetails{Priority: PriorityNormal, Status: StatusDraft}
}

// DefaultCaseInfo returns empty case info with medium priority, draft status.
func DefaultCaseInfo() CaseInfo {
	return CaseInfo{SaveDetails: SaveDetails{Priority: PriorityMedium, Status: StatusDraft}}
}

// ChangeKind flags what a scene mutation touched.
type ChangeKind uint8

const (
	ChangeFeatures  ChangeKind = 1 << iota // feature collection or a feature field
	ChangeSelection                        // selection set
	ChangeView                             // zoom or pan
	ChangeSettings                         // canvas or grid settings
	ChangeMetadata                         // save details or case info
)

type changeListener struct {
	id uint32
	fn func(ChangeKind)
}

// ListenerHandle allows removing a registered change listener.
type ListenerHandle struct {
	id    uint32
	scene *Scene
}

// Remove unregisters the listener.
func (h ListenerHandle) Remove() {
	if h.scene == nil {
		return
	}
	ls := h.scene.listeners
	for i := range ls {
		if ls[i].id == h.id {
			copy(ls[i:], ls[i+1:])
			ls[len(ls)-1] = changeListener{}
			h.scene.listeners = ls[:len(ls)-1]
			return
		}
	}
}

// Scene is the single source of truth for one sketch: placed features,
// settings, view state, selection and case metadata. Features are addressed
// by stable id. Scene is not safe for concurrent use; it belongs to the
// editor's update loop.
type Scene struct {
	features  []PlacedFeature
	index     map[string]int
	selection []string

	settings CanvasSettings
	grid     GridSettings
	camera   *Camera

	details  SaveDetails
	caseInfo CaseInfo

	revision   uint64
	listeners  []changeListener
	listenerID uint32
}

// NewScene creates an empty scene with default settings.
func NewScene() *Scene {
	s := &Scene{
		index:  make(map[string]int),
		camera: newCamera(),
	}
	s.resetFields()
	return s
}

func (s *Scene) resetFields() {
	s.features = s.features[:0]
	clear(s.index)
	s.selection = s.selection[:0]
	s.settings = DefaultCanvasSettings()
	s.grid = GridSettings{Show: true, Size: DefaultGridSize}
	s.camera.reset()
	s.details = DefaultSaveDetails()
	s.caseInfo = DefaultCaseInfo()
}

// Reset clears the scene back to a blank sketch. Grid preferences survive.
func (s *Scene) Reset() {
	grid := s.grid
	s.resetFields()
	s.grid = grid
	s.notify(ChangeFeatures | ChangeSelection | ChangeView | ChangeSettings | ChangeMetadata)
}

// OnChange registers fn to be called after every mutation.
func (s *Scene) OnChange(fn func(ChangeKind)) ListenerHandle {
	s.listenerID++
	s.listeners = append(s.listeners, changeListener{id: s.listenerID, fn: fn})
	return ListenerHandle{id: s.listenerID, scene: s}
}

func (s *Scene) notify(kind ChangeKind) {
	s.revision++
	for _, l := range s.listeners {
		l.fn(kind)
	}
}

// Revision increases on every mutation.
func (s *Scene) Revision() uint64 {
	return s.revision
}

// --- Features ---

// newFeatureID returns a fresh unique feature id.
func newFeatureID() string {
	return "feature-" + uuid.NewString()
}

// Len returns the number of placed features.
func (s *Scene) Len() int {
	return len(s.features)
}

// Feature returns a copy of the feature with the given id.
func (s *Scene) Feature(id string) (PlacedFeature, bool) {
	i, ok := s.index[id]
	if !ok {
		return PlacedFeature{}, false
	}
	return s.features[i], true
}

// Features returns a copy of all features in insertion order.
func (s *Scene) Features() []PlacedFeature {
	return cloneFeatures(s.features)
}

// Snapshot returns a deep copy of the feature collection for history.
func (s *Scene) Snapshot() []PlacedFeature {
	return cloneFeatures(s.features)
}

// SortedByZ returns the features ordered by ascending z-order. Equal z keeps
// insertion order.
func (s *Scene) SortedByZ() []PlacedFeature {
	out := cloneFeatures(s.features)
	sortByZ(out)
	return out
}

func sortByZ(fs []PlacedFeature) {
	sort.SliceStable(fs, func(i, j int) bool { return fs[i].ZIndex < fs[j].ZIndex })
}

// Add inserts a feature. An empty id is replaced with a generated one.
// Returns the id of the added feature.
func (s *Scene) Add(f PlacedFeature) (string, error) {
	if f.ID == "" {
		f.ID = newFeatureID()
	}
	if _, exists := s.index[f.ID]; exists {
		return "", fmt.Errorf("add %s: %w", f.ID, ErrDuplicateID)
	}
	f.normalize()
	s.features = append(s.features, f)
	s.index[f.ID] = len(s.features) - 1
	s.notify(ChangeFeatures)
	return f.ID, nil
}

// Remove deletes the given features and drops them from the selection.
// Unknown ids are ignored. Returns the number removed.
func (s *Scene) Remove(ids ...string) int {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := s.index[id]; ok {
			drop[id] = true
		}
	}
	if len(drop) == 0 {
		return 0
	}
	kept := s.features[:0]
	for _, f := range s.features {
		if !drop[f.ID] {
			kept = append(kept, f)
		}
	}
	s.features = kept
	s.reindex()
	kind := ChangeFeatures
	if s.pruneSelection() {
		kind |= ChangeSelection
	}
	s.notify(kind)
	return len(drop)
}

// Update applies fn to the feature with the given id. Locked features reject
// the update with ErrFeatureLocked. The id and lock flag cannot be changed
// through fn; use SetLocked for the latter.
func (s *Scene) Update(id string, fn func(*PlacedFeature)) error {
	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("update %s: %w", id, ErrFeatureNotFound)
	}
	if s.features[i].Locked {
		return fmt.Errorf("update %s: %w", id, ErrFeatureLocked)
	}
	f := s.features[i]
	fn(&f)
	f.ID = id
	f.Locked = false
	f.normalize()
	s.features[i] = f
	s.notify(ChangeFeatures)
	return nil
}

// UpdateMany applies fn to every unlocked feature among ids and notifies once.
// Returns the ids actually updated.
func (s *Scene) UpdateMany(ids []string, fn func(*PlacedFeature)) []string {
	var updated []string
	for _, id := range ids {
		i, ok := s.index[id]
		if !ok || s.features[i].Locked {
			continue
		}
		f := s.features[i]
		fn(&f)
		f.ID = id
		f.Locked = false
		f.normalize()
		s.features[i] = f
		updated = append(updated, id)
	}
	if len(updated) > 0 {
		s.notify(ChangeFeatures)
	}
	return updated
}

// SetLocked sets the lock flag. Allowed on locked features.
func (s *Scene) SetLocked(id string, locked bool) error {
	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("lock %s: %w", id, ErrFeatureNotFound)
	}
	if s.features[i].Locked == locked {
		return nil
	}
	s.features[i].Locked = locked
	s.notify(ChangeFeatures)
	return nil
}

// SetVisible sets the visibility flag. Allowed on locked features.
func (s *Scene) SetVisible(id string, visible bool) error {
	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("visibility %s: %w", id, ErrFeatureNotFound)
	}
	if s.features[i].Visible == visible {
		return nil
	}
	s.features[i].Visible = visible
	s.notify(ChangeFeatures)
	return nil
}

// Replace swaps the whole feature collection, as done by undo/redo and load.
// Features with duplicate ids after the first are dropped.
func (s *Scene) Replace(features []PlacedFeature) {
	s.features = s.features[:0]
	clear(s.index)
	for _, f := range cloneFeatures(features) {
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
	kind := ChangeFeatures
	if s.pruneSelection() {
		kind |= ChangeSelection
	}
	s.notify(kind)
}

func (s *Scene) reindex() {
	clear(s.index)
	for i := range s.features {
		s.index[s.features[i].ID] = i
	}
}

// zRange returns the min and max z-order. ok is false for an empty scene.
func (s *Scene) zRange() (lo, hi int, ok bool) {
	for i, f := range s.features {
		if i == 0 || f.ZIndex < lo {
			lo = f.ZIndex
		}
		if i == 0 || f.ZIndex > hi {
			hi = f.ZIndex
		}
	}
	return lo, hi, len(s.features) > 0
}

// --- Selection ---

// Selection returns the selected ids in selection order.
func (s *Scene) Selection() []string {
	return append([]string(nil), s.selection...)
}

// IsSelected reports whether id is selected.
func (s *Scene) IsSelected(id string) bool {
	for _, sel := range s.selection {
		if sel == id {
			return true
		}
	}
	return false
}

// SelectedFeatures returns copies of the selected features.
func (s *Scene) SelectedFeatures() []PlacedFeature {
	out := make([]PlacedFeature, 0, len(s.selection))
	for _, id := range s.selection {
		if f, ok := s.Feature(id); ok {
			out = append(out, f)
		}
	}
	return out
}

// Select replaces the selection. Unknown ids are ignored.
func (s *Scene) Select(ids ...string) {
	next := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := s.index[id]; ok && !seen[id] {
			next = append(next, id)
			seen[id] = true
		}
	}
	if equalStrings(next, s.selection) {
		return
	}
	s.selection = next
	s.notify(ChangeSelection)
}

// ToggleSelected adds id to the selection or removes it if present.
func (s *Scene) ToggleSelected(id string) {
	if _, ok := s.index[id]; !ok {
		return
	}
	for i, sel := range s.selection {
		if sel == id {
			s.selection = append(s.selection[:i], s.selection[i+1:]...)
			s.notify(ChangeSelection)
			return
		}
	}
	s.selection = append(s.selection, id)
	s.notify(ChangeSelection)
}

// SelectAll selects every feature in insertion order.
func (s *Scene) SelectAll() {
	ids := make([]string, len(s.features))
	for i, f := range s.features {
		ids[i] = f.ID
	}
	s.Select(ids...)
}

// ClearSelection empties the selection.
func (s *Scene) ClearSelection() {
	if len(s.selection) == 0 {
		return
	}
	s.selection = s.selection[:0]
	s.notify(ChangeSelection)
}

// pruneSelection drops ids that no longer exist. Reports whether it changed.
func (s *Scene) pruneSelection() bool {
	kept := s.selection[:0]
	for _, id := range s.selection {
		if _, ok := s.index[id]; ok {
			kept = append(kept, id)
		}
	}
	changed := len(kept) != len(s.selection)
	s.selection = kept
	return changed
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// --- Settings, view and metadata ---

// Settings returns the canvas settings.
func (s *Scene) Settings() CanvasSettings { return s.settings }

// SetSettings replaces the canvas settings.
func (s *Scene) SetSettings(c CanvasSettings) {
	if c.Quality == "" {
		c.Quality = QualityHigh
	}
	if c.BackgroundColor == "" {
		c.BackgroundColor = "#ffffff"
	}
	s.settings = c
	s.notify(ChangeSettings)
}

// Grid returns the grid preferences.
func (s *Scene) Grid() GridSettings { return s.grid }

// SetGrid replaces the grid preferences. A non-positive size resets to the default.
func (s *Scene) SetGrid(g GridSettings) {
	if g.Size <= 0 {
		g.Size = DefaultGridSize
	}
	s.grid = g
	s.notify(ChangeSettings)
}

// Camera returns the view camera. Mutate it through SetZoom/SetPan/ZoomTo so
// listeners are notified.
func (s *Scene) Camera() *Camera { return s.camera }

// SetZoom sets the zoom percentage, clamped to [MinZoom, MaxZoom].
func (s *Scene) SetZoom(percent float64) {
	if s.camera.setZoom(percent) {
		s.notify(ChangeView)
	}
}

// ZoomTo animates the zoom to percent over duration seconds.
func (s *Scene) ZoomTo(percent float64, duration float32) {
	s.camera.ZoomTo(percent, duration)
}

// SetPan sets the pan offset in screen pixels.
func (s *Scene) SetPan(p Vec2) {
	if s.camera.Pan == p {
		return
	}
	s.camera.Pan = p
	s.camera.dirty = true
	s.notify(ChangeView)
}

// Tick advances view animations by dt seconds.
func (s *Scene) Tick(dt float32) {
	if s.camera.update(dt) {
		s.notify(ChangeView)
	}
}

// Details returns the save details.
func (s *Scene) Details() SaveDetails { return s.details }

// SetDetails replaces the save details.
func (s *Scene) SetDetails(d SaveDetails) {
	s.details = d
	s.notify(ChangeMetadata)
}

// CaseInfo returns the case info.
func (s *Scene) CaseInfo() CaseInfo { return s.caseInfo }

// SetCaseInfo replaces the case info.
func (s *Scene) SetCaseInfo(c CaseInfo) {
	s.caseInfo = c
	s.notify(ChangeMetadata)
}

package sketchpad

import "fmt"

// BringToFront sets the z-order of every unlocked feature among ids to one
// above the current maximum. Returns the ids changed.
func (s *Scene) BringToFront(ids ...string) []string {
	_, hi, ok := s.zRange()
	if !ok {
		return nil
	}
	return s.UpdateMany(ids, func(f *PlacedFeature) { f.ZIndex = hi + 1 })
}

// SendToBack sets the z-order of every unlocked feature among ids to one
// below the current minimum. Returns the ids changed.
func (s *Scene) SendToBack(ids ...string) []string {
	lo, _, ok := s.zRange()
	if !ok {
		return nil
	}
	return s.UpdateMany(ids, func(f *PlacedFeature) { f.ZIndex = lo - 1 })
}

// ReorderLayer moves dragged to just before target in z-order and renumbers
// every feature 0..N-1. A locked dragged feature is rejected.
func (s *Scene) ReorderLayer(draggedID, targetID string) error {
	di, ok := s.index[draggedID]
	if !ok {
		return fmt.Errorf("reorder %s: %w", draggedID, ErrFeatureNotFound)
	}
	if _, ok := s.index[targetID]; !ok {
		return fmt.Errorf("reorder onto %s: %w", targetID, ErrFeatureNotFound)
	}
	if s.features[di].Locked {
		return fmt.Errorf("reorder %s: %w", draggedID, ErrFeatureLocked)
	}
	if draggedID == targetID {
		return nil
	}

	order := s.SortedByZ()
	from, to := -1, -1
	for i := range order {
		switch order[i].ID {
		case draggedID:
			from = i
		case targetID:
			to = i
		}
	}
	moved := order[from]
	order = append(order[:from], order[from+1:]...)
	insert := to
	if from < to {
		insert = to - 1
	}
	order = append(order, PlacedFeature{})
	copy(order[insert+1:], order[insert:])
	order[insert] = moved

	for z, f := range order {
		s.features[s.index[f.ID]].ZIndex = z
	}
	s.notify(ChangeFeatures)
	return nil
}

// LayerOrder returns feature ids from top-most to bottom-most, the order a
// layer list displays them in.
func (s *Scene) LayerOrder() []string {
	sorted := s.SortedByZ()
	ids := make([]string, len(sorted))
	for i := range sorted {
		ids[len(sorted)-1-i] = sorted[i].ID
	}
	return ids
}

// ToggleVisibility flips the visibility of id.
func (s *Scene) ToggleVisibility(id string) error {
	f, ok := s.Feature(id)
	if !ok {
		return fmt.Errorf("toggle visibility %s: %w", id, ErrFeatureNotFound)
	}
	return s.SetVisible(id, !f.Visible)
}

// ToggleLock flips the lock flag of id.
func (s *Scene) ToggleLock(id string) error {
	f, ok := s.Feature(id)
	if !ok {
		return fmt.Errorf("toggle lock %s: %w", id, ErrFeatureNotFound)
	}
	return s.SetLocked(id, !f.Locked)
}

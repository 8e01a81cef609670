package sketchpad

import (
	"math"
)

// Key identifies a keyboard key the editor binds commands to. It is
// independent of the windowing backend; the ebiten loop maps its own key
// codes onto these.
type Key uint8

const (
	KeyUnknown Key = iota
	KeyA
	KeyD
	KeyE
	KeyH
	KeyS
	KeyV
	KeyY
	KeyZ
	KeyDelete
	KeyBackspace
	KeyEscape
	KeyBracketLeft
	KeyBracketRight
	KeyPlus
	KeyEqual
	KeyMinus
)

var keyNames = map[string]Key{
	"a": KeyA, "d": KeyD, "e": KeyE, "h": KeyH, "s": KeyS, "v": KeyV, "y": KeyY, "z": KeyZ,
	"delete": KeyDelete, "backspace": KeyBackspace, "escape": KeyEscape,
	"[": KeyBracketLeft, "]": KeyBracketRight, "+": KeyPlus, "=": KeyEqual, "-": KeyMinus,
}

// ParseKey maps a key name such as "z", "delete" or "[" to a Key.
func ParseKey(name string) Key {
	return keyNames[name]
}

// HandleKey runs the command bound to key with mods held. Reports whether a
// command was bound.
func (e *Editor) HandleKey(key Key, mods KeyModifiers) bool {
	if mods.command() {
		switch key {
		case KeyZ:
			if mods&ModShift != 0 {
				e.Redo()
			} else {
				e.Undo()
			}
		case KeyY:
			e.Redo()
		case KeyD:
			e.DuplicateSelection()
		case KeyS:
			e.Save()
		case KeyE:
			e.Export()
		case KeyA:
			e.scene.SelectAll()
		default:
			return false
		}
		return true
	}

	switch key {
	case KeyDelete, KeyBackspace:
		e.DeleteSelection()
	case KeyEscape:
		e.controller.Cancel()
		e.scene.ClearSelection()
	case KeyH:
		e.FlipSelection(true)
	case KeyV:
		e.FlipSelection(false)
	case KeyBracketLeft:
		if len(e.scene.BringToFront(e.scene.selection...)) > 0 {
			e.commit()
		}
	case KeyBracketRight:
		if len(e.scene.SendToBack(e.scene.selection...)) > 0 {
			e.commit()
		}
	case KeyPlus, KeyEqual:
		e.ScaleSelection(ScaleStep)
	case KeyMinus:
		e.ScaleSelection(-ScaleStep)
	default:
		return false
	}
	return true
}

// commit records the current feature set as a history snapshot.
func (e *Editor) commit() {
	e.history.Push(e.scene.Snapshot())
}

// Undo restores the previous snapshot.
func (e *Editor) Undo() bool {
	snap, ok := e.history.Undo()
	if !ok {
		return false
	}
	e.controller.Cancel()
	e.scene.Replace(snap)
	return true
}

// Redo restores the snapshot undone last.
func (e *Editor) Redo() bool {
	snap, ok := e.history.Redo()
	if !ok {
		return false
	}
	e.controller.Cancel()
	e.scene.Replace(snap)
	return true
}

// DuplicateSelection copies every selected unlocked feature offset by
// DuplicateOffset with a new id, stacking the copies above everything else.
// The copies become the selection. Returns the new ids.
func (e *Editor) DuplicateSelection() []string {
	_, hi, _ := e.scene.zRange()
	var ids []string
	for _, f := range e.scene.SelectedFeatures() {
		if f.Locked {
			continue
		}
		dup := f
		dup.ID = newFeatureID()
		dup.X += DuplicateOffset
		dup.Y += DuplicateOffset
		hi++
		dup.ZIndex = hi
		id, err := e.scene.Add(dup)
		if err != nil {
			e.log.Warn().Err(err).Msg("duplicate feature")
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) > 0 {
		e.scene.Select(ids...)
		e.commit()
	}
	return ids
}

// DeleteSelection removes the selected unlocked features.
func (e *Editor) DeleteSelection() int {
	var ids []string
	for _, f := range e.scene.SelectedFeatures() {
		if !f.Locked {
			ids = append(ids, f.ID)
		}
	}
	n := e.scene.Remove(ids...)
	if n > 0 {
		e.commit()
	}
	return n
}

// FlipSelection toggles the horizontal (or vertical) flip of the selection,
// taking the new value from the first selected feature.
func (e *Editor) FlipSelection(horizontal bool) {
	sel := e.scene.SelectedFeatures()
	if len(sel) == 0 {
		return
	}
	var updated []string
	if horizontal {
		v := !sel[0].FlipH
		updated = e.scene.UpdateMany(e.scene.selection, func(f *PlacedFeature) { f.FlipH = v })
	} else {
		v := !sel[0].FlipV
		updated = e.scene.UpdateMany(e.scene.selection, func(f *PlacedFeature) { f.FlipV = v })
	}
	if len(updated) > 0 {
		e.commit()
	}
}

// ScaleSelection steps the scale of the selection by delta relative to the
// first selected feature.
func (e *Editor) ScaleSelection(delta float64) {
	sel := e.scene.SelectedFeatures()
	if len(sel) == 0 {
		return
	}
	e.SetSelectionScale(sel[0].Scale + delta)
}

// SetSelectionScale sets the scale of every selected unlocked feature and
// resizes it to its category default size times that scale.
func (e *Editor) SetSelectionScale(scale float64) {
	scale = clamp(math.Round(scale*100)/100, MinScale, MaxScale)
	updated := e.scene.UpdateMany(e.scene.selection, func(f *PlacedFeature) {
		size := DefaultSize(f.Asset.Category)
		f.Scale = scale
		f.Width = size.Width * scale
		f.Height = size.Height * scale
	})
	if len(updated) > 0 {
		e.commit()
	}
}

// UpdateSelection applies fn to every selected unlocked feature as one
// undoable change, as a property panel does.
func (e *Editor) UpdateSelection(fn func(*PlacedFeature)) []string {
	updated := e.scene.UpdateMany(e.scene.selection, fn)
	if len(updated) > 0 {
		e.commit()
	}
	return updated
}

// ReorderLayer moves dragged just below target in the layer list order and
// records the change. Dropping a layer onto itself records nothing.
func (e *Editor) ReorderLayer(draggedID, targetID string) error {
	rev := e.scene.Revision()
	if err := e.scene.ReorderLayer(draggedID, targetID); err != nil {
		return err
	}
	if e.scene.Revision() != rev {
		e.commit()
	}
	return nil
}

// ToggleVisibility flips a feature's visibility as an undoable change.
func (e *Editor) ToggleVisibility(id string) error {
	if err := e.scene.ToggleVisibility(id); err != nil {
		return err
	}
	e.commit()
	return nil
}

// ToggleLock flips a feature's lock flag as an undoable change.
func (e *Editor) ToggleLock(id string) error {
	if err := e.scene.ToggleLock(id); err != nil {
		return err
	}
	e.commit()
	return nil
}

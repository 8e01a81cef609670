package sketchpad

import "testing"

func snapshotWith(ids ...string) []PlacedFeature {
	out := make([]PlacedFeature, len(ids))
	for i, id := range ids {
		out[i] = featureDefaults()
		out[i].ID = id
	}
	return out
}

func snapshotIDs(fs []PlacedFeature) []string {
	ids := make([]string, len(fs))
	for i := range fs {
		ids[i] = fs[i].ID
	}
	return ids
}

func TestNewHistoryDefaultCapacity(t *testing.T) {
	h := NewHistory(0)
	if h.Capacity() != DefaultHistoryCapacity {
		t.Errorf("Capacity = %d, want %d", h.Capacity(), DefaultHistoryCapacity)
	}
	if h.Cursor() != -1 {
		t.Errorf("Cursor = %d, want -1", h.Cursor())
	}
	if h.CanUndo() || h.CanRedo() {
		t.Error("empty history should not undo or redo")
	}
}

func TestHistoryUndoRedo(t *testing.T) {
	h := NewHistory(10)
	h.Reset(nil)
	h.Push(snapshotWith("a"))
	h.Push(snapshotWith("a", "b"))

	got, ok := h.Undo()
	if !ok || len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("Undo = %v, %v; want [a]", snapshotIDs(got), ok)
	}
	got, ok = h.Undo()
	if !ok || len(got) != 0 {
		t.Fatalf("second Undo = %v, %v; want empty", snapshotIDs(got), ok)
	}
	if _, ok := h.Undo(); ok {
		t.Error("Undo past the seed should fail")
	}

	got, ok = h.Redo()
	if !ok || len(got) != 1 {
		t.Fatalf("Redo = %v, %v; want [a]", snapshotIDs(got), ok)
	}
	got, ok = h.Redo()
	if !ok || len(got) != 2 {
		t.Fatalf("second Redo = %v, %v; want [a b]", snapshotIDs(got), ok)
	}
	if h.CanRedo() {
		t.Error("CanRedo at the newest entry should be false")
	}
}

func TestHistoryPushTruncatesRedo(t *testing.T) {
	h := NewHistory(10)
	h.Reset(nil)
	h.Push(snapshotWith("a"))
	h.Push(snapshotWith("a", "b"))
	h.Undo()
	h.Push(snapshotWith("c"))

	if h.CanRedo() {
		t.Error("push after undo should discard redo entries")
	}
	if h.Len() != 3 {
		t.Errorf("Len = %d, want 3", h.Len())
	}
	got, _ := h.Undo()
	if ids := snapshotIDs(got); len(ids) != 1 || ids[0] != "a" {
		t.Errorf("Undo = %v, want [a]", ids)
	}
}

func TestHistoryCapacityEvictsOldest(t *testing.T) {
	h := NewHistory(3)
	h.Reset(snapshotWith("s0"))
	for _, id := range []string{"s1", "s2", "s3", "s4", "s5"} {
		h.Push(snapshotWith(id))
	}
	if h.Len() != 4 {
		t.Fatalf("Len = %d, want 4", h.Len())
	}
	var last string
	steps := 0
	for {
		got, ok := h.Undo()
		if !ok {
			break
		}
		last = got[0].ID
		steps++
	}
	if steps != 3 {
		t.Errorf("undo steps = %d, want 3", steps)
	}
	if last != "s2" {
		t.Errorf("oldest reachable = %q, want s2", last)
	}
}

func TestHistoryFiftyUndoSteps(t *testing.T) {
	h := NewHistory(DefaultHistoryCapacity)
	h.Reset(nil)
	for i := 0; i < 80; i++ {
		h.Push(snapshotWith("f"))
	}
	steps := 0
	for h.CanUndo() {
		h.Undo()
		steps++
	}
	if steps != 50 {
		t.Errorf("undo steps = %d, want 50", steps)
	}
}

func TestHistorySnapshotsAreCopies(t *testing.T) {
	h := NewHistory(5)
	snap := snapshotWith("a")
	snap[0].Asset.Tags = []string{"x"}
	h.Reset(snap)
	snap[0].X = 99
	snap[0].Asset.Tags[0] = "mutated"

	h.Push(snapshotWith("b"))
	got, _ := h.Undo()
	if got[0].X != 0 {
		t.Errorf("X = %v, want 0", got[0].X)
	}
	if got[0].Asset.Tags[0] != "x" {
		t.Errorf("Tags[0] = %q, want x", got[0].Asset.Tags[0])
	}
}

func TestHistoryResetSeedsSingleEntry(t *testing.T) {
	h := NewHistory(5)
	h.Reset(nil)
	h.Push(snapshotWith("a"))
	h.Push(snapshotWith("b"))
	h.Reset(snapshotWith("z"))

	if h.Len() != 1 || h.Cursor() != 0 {
		t.Errorf("Len, Cursor = %d, %d; want 1, 0", h.Len(), h.Cursor())
	}
	if h.CanUndo() || h.CanRedo() {
		t.Error("freshly reset history should not undo or redo")
	}
}

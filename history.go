package sketchpad

// DefaultHistoryCapacity is the number of undo steps kept.
const DefaultHistoryCapacity = 50

// History is a linear undo/redo stack of full feature snapshots. The entry
// at the cursor is the current state; entries before it are undo targets and
// entries after it are redo targets. Cursor is -1 when the history is empty.
//
// Capacity bounds the number of undo steps, so up to capacity+1 snapshots are
// held (the current state plus capacity previous states).
type History struct {
	entries  [][]PlacedFeature
	cursor   int
	capacity int
}

// NewHistory creates an empty history. A non-positive capacity uses
// DefaultHistoryCapacity.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{cursor: -1, capacity: capacity}
}

// Push records a new current state. Redo entries are discarded and the oldest
// snapshot is evicted when the stack exceeds capacity.
func (h *History) Push(snapshot []PlacedFeature) {
	h.entries = h.entries[:h.cursor+1]
	h.entries = append(h.entries, cloneFeatures(snapshot))
	if over := len(h.entries) - (h.capacity + 1); over > 0 {
		copy(h.entries, h.entries[over:])
		for i := len(h.entries) - over; i < len(h.entries); i++ {
			h.entries[i] = nil
		}
		h.entries = h.entries[:len(h.entries)-over]
	}
	h.cursor = len(h.entries) - 1
}

// Reset discards everything and seeds the history with a single snapshot, so
// undo stops at seed.
func (h *History) Reset(seed []PlacedFeature) {
	clear(h.entries)
	h.entries = h.entries[:0]
	h.cursor = -1
	h.Push(seed)
}

// Undo moves the cursor back and returns the snapshot to restore.
func (h *History) Undo() ([]PlacedFeature, bool) {
	if !h.CanUndo() {
		return nil, false
	}
	h.cursor--
	return cloneFeatures(h.entries[h.cursor]), true
}

// Redo moves the cursor forward and returns the snapshot to restore.
func (h *History) Redo() ([]PlacedFeature, bool) {
	if !h.CanRedo() {
		return nil, false
	}
	h.cursor++
	return cloneFeatures(h.entries[h.cursor]), true
}

// CanUndo reports whether an earlier snapshot exists.
func (h *History) CanUndo() bool {
	return h.cursor > 0
}

// CanRedo reports whether a later snapshot exists.
func (h *History) CanRedo() bool {
	return h.cursor >= 0 && h.cursor < len(h.entries)-1
}

// Len returns the number of snapshots held.
func (h *History) Len() int {
	return len(h.entries)
}

// Cursor returns the index of the current snapshot, or -1 when empty.
func (h *History) Cursor() int {
	return h.cursor
}

// Capacity returns the maximum number of undo steps.
func (h *History) Capacity() int {
	return h.capacity
}

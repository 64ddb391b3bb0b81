package sheet

// Snapshot is an immutable copy of the content sequence.
type Snapshot struct {
	cells []string
}

func newSnapshot(content []string) Snapshot {
	cells := make([]string, len(content))
	copy(cells, content)
	return Snapshot{cells: cells}
}

func (s Snapshot) Len() int {
	return len(s.cells)
}

func (s Snapshot) At(index int) string {
	return s.cells[index]
}

// Cells returns a copy of the snapshot contents.
func (s Snapshot) Cells() []string {
	out := make([]string, len(s.cells))
	copy(out, s.cells)
	return out
}

// History keeps the undo and redo stacks of content snapshots.
// Formatting never enters history.
type History struct {
	undo []Snapshot // oldest first
	redo []Snapshot // last element is the front of the redo stack
	// limit caps the undo stack; 0 means unbounded.
	limit int
}

func NewHistory(limit int) *History {
	if limit < 0 {
		limit = 0
	}
	return &History{limit: limit}
}

// RecordBeforeChange pushes the pre-edit content and clears redo.
func (h *History) RecordBeforeChange(snapshot Snapshot) {
	h.undo = append(h.undo, snapshot)
	h.redo = nil
	if h.limit > 0 && len(h.undo) > h.limit {
		excess := len(h.undo) - h.limit
		h.undo = append([]Snapshot(nil), h.undo[excess:]...)
	}
}

// Undo pops the newest undo entry, moving current onto the redo stack.
// It reports false when there is nothing to undo.
func (h *History) Undo(current Snapshot) (Snapshot, bool) {
	if len(h.undo) == 0 {
		return Snapshot{}, false
	}
	previous := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, current)
	return previous, true
}

// Redo pops the front of the redo stack, moving current onto undo.
func (h *History) Redo(current Snapshot) (Snapshot, bool) {
	if len(h.redo) == 0 {
		return Snapshot{}, false
	}
	next := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, current)
	return next, true
}

func (h *History) UndoDepth() int { return len(h.undo) }
func (h *History) RedoDepth() int { return len(h.redo) }
func (h *History) CanUndo() bool  { return len(h.undo) > 0 }
func (h *History) CanRedo() bool  { return len(h.redo) > 0 }

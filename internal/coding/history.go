package coding

// DefaultHistoryLimit is the default undo depth per project.
const DefaultHistoryLimit = 20

// History is a bounded deque of immutable project snapshots supporting
// undo/redo. Pushing a new snapshot clears the redo side; when the undo side
// exceeds the limit, the oldest snapshot is evicted.
type History struct {
	limit  int
	past   []Project
	future []Project
}

// NewHistory returns a history bounded at limit snapshots. If limit <= 0,
// DefaultHistoryLimit is used.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit}
}

// Push records the state being replaced by a new mutation and clears any
// redo entries.
func (h *History) Push(p Project) {
	h.past = append(h.past, p.Clone())
	if len(h.past) > h.limit {
		h.past = h.past[len(h.past)-h.limit:]
	}
	h.future = nil
}

// Undo returns the previous snapshot, moving current onto the redo side.
// ok is false when there is nothing to undo.
func (h *History) Undo(current Project) (Project, bool) {
	if len(h.past) == 0 {
		return Project{}, false
	}
	prev := h.past[len(h.past)-1]
	h.past = h.past[:len(h.past)-1]
	h.future = append([]Project{current.Clone()}, h.future...)
	return prev, true
}

// Redo returns the next snapshot, moving current back onto the undo side.
// ok is false when there is nothing to redo.
func (h *History) Redo(current Project) (Project, bool) {
	if len(h.future) == 0 {
		return Project{}, false
	}
	next := h.future[0]
	h.future = h.future[1:]
	h.past = append(h.past, current.Clone())
	return next, true
}

// CanUndo reports whether an undo snapshot exists.
func (h *History) CanUndo() bool { return len(h.past) > 0 }

// CanRedo reports whether a redo snapshot exists.
func (h *History) CanRedo() bool { return len(h.future) > 0 }

// Reset drops both stacks, e.g. when a different project is loaded.
func (h *History) Reset() {
	h.past = nil
	h.future = nil
}

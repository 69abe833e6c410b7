package kit

// History is the ordered turn sequence sent to the backend as context.
// It is not safe for concurrent use; the owning controller serializes access.
type History struct {
	turns []Turn
}

// Append adds a turn at the end.
func (h *History) Append(t Turn) {
	h.turns = append(h.turns, t)
}

// Reset empties the history.
func (h *History) Reset() {
	h.turns = nil
}

// Len returns the number of turns.
func (h *History) Len() int {
	return len(h.turns)
}

// Turns returns a copy of the turns in insertion order. The result is never
// nil so it serializes as [] rather than null.
func (h *History) Turns() []Turn {
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

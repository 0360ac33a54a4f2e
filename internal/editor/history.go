package editor

import "github.com/ivlev/tactiboard/internal/scene"

// DefaultHistorySize is the number of undo steps kept when none is set.
const DefaultHistorySize = 50

// History is a bounded undo/redo stack of document snapshots.
type History struct {
	limit int
	undo  []scene.Document
	redo  []scene.Document
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistorySize
	}
	return &History{limit: limit}
}

// Record stores doc as the state to return to on the next Undo and drops the
// redo stack.
func (h *History) Record(doc scene.Document) {
	h.undo = append(h.undo, doc.Clone())
	if len(h.undo) > h.limit {
		h.undo = h.undo[len(h.undo)-h.limit:]
	}
	h.redo = nil
}

// Undo returns the previous document, given the current one.
func (h *History) Undo(current scene.Document) (scene.Document, bool) {
	if len(h.undo) == 0 {
		return current, false
	}
	prev := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, current.Clone())
	return prev, true
}

func (h *History) Redo(current scene.Document) (scene.Document, bool) {
	if len(h.redo) == 0 {
		return current, false
	}
	next := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, current.Clone())
	return next, true
}

func (h *History) CanUndo() bool { return len(h.undo) > 0 }
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

func (h *History) Clear() {
	h.undo = nil
	h.redo = nil
}

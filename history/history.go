// Package history keeps bounded per-page undo and redo stacks of raster
// snapshots.
//
// An entry is the page's edited raster as it was before a destructive
// change, together with the page's live text layer at that moment. The
// empty raster is the sentinel for "no edit existed yet", which is distinct
// from an edit whose pixels happen to equal the original.
package history

import (
	"github.com/wudi/pagekit/document"
	"github.com/wudi/pagekit/raster"
	"github.com/wudi/pagekit/textlayer"
)

// DefaultDepth is the maximum number of undo entries kept per page.
const DefaultDepth = 20

// Entry is one undo or redo step.
type Entry struct {
	Raster raster.Encoded
	// Text is the page's text layer that goes with Raster; nil when the
	// page had no live text.
	Text *textlayer.Layer
}

// Manager owns the undo/redo stacks of every page, keyed by page index.
// Indices are transient handles: after any structural document change the
// caller must pass the resulting IndexMap to Relocate.
type Manager struct {
	depth int
	undo  map[int][]Entry
	redo  map[int][]Entry
}

// NewManager creates a manager keeping at most depth entries per page.
func NewManager(depth int) *Manager {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Manager{
		depth: depth,
		undo:  make(map[int][]Entry),
		redo:  make(map[int][]Entry),
	}
}

// Push records prior (the page's edited raster before a change; empty when
// the page had no edit) and clears the page's redo stack.
func (m *Manager) Push(page int, prior raster.Encoded) {
	m.PushEntry(page, Entry{Raster: prior})
}

// PushEntry records prior along with its text layer and clears the page's
// redo stack.
func (m *Manager) PushEntry(page int, prior Entry) {
	m.undo[page] = m.trim(append(m.undo[page], prior))
	delete(m.redo, page)
}

// Undo pops the page's undo stack, saving current for redo. It returns the
// raster to restore (empty meaning "no edit") and false when there is
// nothing to undo.
func (m *Manager) Undo(page int, current raster.Encoded) (raster.Encoded, bool) {
	prev, ok := m.UndoEntry(page, Entry{Raster: current})
	return prev.Raster, ok
}

// Redo is the inverse of Undo.
func (m *Manager) Redo(page int, current raster.Encoded) (raster.Encoded, bool) {
	next, ok := m.RedoEntry(page, Entry{Raster: current})
	return next.Raster, ok
}

// UndoEntry is Undo carrying text layers.
func (m *Manager) UndoEntry(page int, current Entry) (Entry, bool) {
	prev, ok := pop(m.undo, page)
	if !ok {
		return Entry{}, false
	}
	m.redo[page] = append(m.redo[page], current)
	return prev, true
}

// RedoEntry is Redo carrying text layers.
func (m *Manager) RedoEntry(page int, current Entry) (Entry, bool) {
	next, ok := pop(m.redo, page)
	if !ok {
		return Entry{}, false
	}
	m.undo[page] = m.trim(append(m.undo[page], current))
	return next, true
}

func (m *Manager) trim(stack []Entry) []Entry {
	if len(stack) > m.depth {
		stack = append([]Entry(nil), stack[len(stack)-m.depth:]...)
	}
	return stack
}

func pop(stacks map[int][]Entry, page int) (Entry, bool) {
	s := stacks[page]
	if len(s) == 0 {
		return Entry{}, false
	}
	top := s[len(s)-1]
	if len(s) == 1 {
		delete(stacks, page)
	} else {
		stacks[page] = s[:len(s)-1]
	}
	return top, true
}

// Relocate moves every non-empty stack to its page's new index. Stacks of
// indices absent from im (deleted pages) are dropped.
func (m *Manager) Relocate(im document.IndexMap) {
	m.undo = document.Relocate(nonEmpty(m.undo), im)
	m.redo = document.Relocate(nonEmpty(m.redo), im)
}

func nonEmpty(in map[int][]Entry) map[int][]Entry {
	for k, v := range in {
		if len(v) == 0 {
			delete(in, k)
		}
	}
	return in
}

func (m *Manager) CanUndo(page int) bool { return len(m.undo[page]) > 0 }
func (m *Manager) CanRedo(page int) bool { return len(m.redo[page]) > 0 }

// Depth returns the number of undo entries for page.
func (m *Manager) Depth(page int) int { return len(m.undo[page]) }

// RedoDepth returns the number of redo entries for page.
func (m *Manager) RedoDepth(page int) int { return len(m.redo[page]) }

// Forget discards the page's stacks.
func (m *Manager) Forget(page int) {
	delete(m.undo, page)
	delete(m.redo, page)
}

// Reset discards all history.
func (m *Manager) Reset() {
	m.undo = make(map[int][]Entry)
	m.redo = make(map[int][]Entry)
}

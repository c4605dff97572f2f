package editor

import (
	"image"

	"github.com/wudi/pagekit/document"
	"github.com/wudi/pagekit/observability"
)

// structural runs a page-list change: in-progress work is flushed first,
// then history and text layers follow their pages through the index map.
// The active page keeps pointing at the same content, or at the nearest
// surviving index when its page is gone.
func (e *Editor) structural(op string, fn func() (document.IndexMap, error)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.flush(); err != nil {
		return err
	}
	m, err := fn()
	if err != nil {
		return err
	}
	e.history.Relocate(m)
	e.text.Relocate(m)
	if n, ok := m.Lookup(e.active); ok {
		e.active = n
	} else if e.active >= e.doc.Len() {
		e.active = e.doc.Len() - 1
	}
	e.surface = nil
	e.sel.Clear()
	e.hit = nil
	e.logger.Info("pages changed",
		observability.String("op", op),
		observability.Int("pages", e.doc.Len()),
		observability.Int("active", e.active),
	)
	e.notify()
	return nil
}

// InsertBlankPage inserts a page filled with the background colour after
// index after, sized like its neighbour.
func (e *Editor) InsertBlankPage(after int) error {
	return e.structural("insert", func() (document.IndexMap, error) {
		ref := after
		if ref < 0 {
			ref = 0
		}
		if ref >= e.doc.Len() {
			ref = e.doc.Len() - 1
		}
		p := e.doc.Pages[ref]
		return e.doc.InsertBlank(after, p.Width, p.Height, e.background)
	})
}

// DeletePage removes page idx.
func (e *Editor) DeletePage(idx int) error {
	return e.structural("delete", func() (document.IndexMap, error) {
		return e.doc.Delete(idx)
	})
}

// DuplicatePage inserts a copy of page idx right after it.
func (e *Editor) DuplicatePage(idx int) error {
	return e.structural("duplicate", func() (document.IndexMap, error) {
		return e.doc.Duplicate(idx)
	})
}

// MovePage moves page from to index to.
func (e *Editor) MovePage(from, to int) error {
	return e.structural("move", func() (document.IndexMap, error) {
		return e.doc.Move(from, to)
	})
}

// ReorderPage is the drag-and-drop variant of MovePage.
func (e *Editor) ReorderPage(from, to int) error {
	return e.structural("reorder", func() (document.IndexMap, error) {
		return e.doc.Reorder(from, to)
	})
}

// CopyPage puts a detached copy of page idx on the page clipboard.
func (e *Editor) CopyPage(idx int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.flush(); err != nil {
		return err
	}
	p, err := e.doc.CopyPage(idx)
	if err != nil {
		return err
	}
	e.pageClip = p
	return nil
}

// PastePage inserts the page clipboard after index after, scaled to the
// size of the page it follows.
func (e *Editor) PastePage(after int) error {
	return e.structural("paste", func() (document.IndexMap, error) {
		if e.pageClip == nil {
			return nil, ErrNoClipboard
		}
		ref := after
		if ref < 0 {
			ref = 0
		}
		var target *image.Point
		if ref < e.doc.Len() {
			p := e.doc.Pages[ref]
			target = &image.Point{X: p.Width, Y: p.Height}
		}
		return e.doc.Paste(after, e.pageClip, target, e.background)
	})
}

// PageCount returns the number of pages.
func (e *Editor) PageCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.Len()
}

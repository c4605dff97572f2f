// Package editor drives one editing session: the document, the active page
// and its working surface, the current tool, per-page history and text
// layers, the selection clipboard and crash-recovery autosave.
//
// Every destructive change to a page raster goes through a bracket that
// records the page's prior raster in history and then commits the new one.
// A change that fails before the commit step leaves the page untouched.
package editor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/wudi/pagekit/aiedit"
	"github.com/wudi/pagekit/assemble"
	"github.com/wudi/pagekit/document"
	"github.com/wudi/pagekit/fonts"
	"github.com/wudi/pagekit/history"
	"github.com/wudi/pagekit/observability"
	"github.com/wudi/pagekit/paint"
	"github.com/wudi/pagekit/raster"
	"github.com/wudi/pagekit/recovery"
	"github.com/wudi/pagekit/scripting"
	"github.com/wudi/pagekit/selection"
	"github.com/wudi/pagekit/session"
	"github.com/wudi/pagekit/textlayer"
)

var (
	// ErrEmptyPrompt is returned before any service call for a blank prompt.
	ErrEmptyPrompt = aiedit.ErrEmptyPrompt

	ErrNoService    = errors.New("no ai edit service configured")
	ErrInvalidRange = errors.New("invalid page range")
	ErrPageGone     = errors.New("page was removed during the operation")
	ErrNoClipboard  = errors.New("page clipboard is empty")
	ErrNotText      = errors.New("text tool is not active")
)

// Editor is safe for concurrent use; every public method serializes on an
// internal mutex. Network calls run without the lock held.
type Editor struct {
	mu sync.Mutex

	doc     *document.Document
	active  int
	surface *image.RGBA // decoded raster of the active page, nil until needed

	history *history.Manager
	text    *textlayer.Engine
	sel     *selection.Engine
	fonts   *fonts.Registry

	tool  Tool
	state toolState
	hit   *spanHit

	background  color.RGBA
	strokeColor color.RGBA
	strokeWidth int
	eraserWidth int
	shape       paint.Shape
	textStyle   textlayer.Style
	format      raster.Format
	quality     int
	depth       int

	pageClip *document.Page

	ai        aiedit.Service
	autosaver *session.Autosaver
	labels    *scripting.GojaEngine
	strategy  func() recovery.Strategy
	logger    observability.Logger
}

// New starts a session over doc with page 0 active.
func New(doc *document.Document, opts ...Option) (*Editor, error) {
	if doc == nil || doc.Len() == 0 {
		return nil, errors.New("editor needs a document with at least one page")
	}
	e := &Editor{
		doc:         doc,
		tool:        ToolPen,
		state:       idleState{},
		background:  color.RGBA{255, 255, 255, 255},
		strokeColor: color.RGBA{0, 0, 0, 255},
		strokeWidth: 3,
		eraserWidth: 20,
		shape:       paint.ShapeRect,
		textStyle:   textlayer.Style{FontSize: 24, FontFamily: fonts.Sans, Color: color.RGBA{0, 0, 0, 255}},
		format:      raster.PNG,
		quality:     92,
		depth:       history.DefaultDepth,
		strategy:    func() recovery.Strategy { return recovery.NewLenientStrategy() },
		logger:      observability.NopLogger{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.fonts == nil {
		e.fonts = fonts.Default()
	}
	e.history = history.NewManager(e.depth)
	e.text = textlayer.New(e.fonts, textlayer.WithLogger(e.logger))
	e.sel = selection.New()
	return e, nil
}

// Document returns a detached copy of the current document.
func (e *Editor) Document() *document.Document {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.Copy()
}

// ActivePage returns the index of the active page.
func (e *Editor) ActivePage() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// SetActivePage flushes in-progress work and activates page i.
func (e *Editor) SetActivePage(i int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.doc.Page(i); err != nil {
		return err
	}
	if err := e.flush(); err != nil {
		return err
	}
	if i != e.active {
		e.active = i
		e.surface = nil
		e.sel.Clear()
		e.hit = nil
		e.notify()
	}
	return nil
}

// Surface returns a copy of the active page's working raster.
func (e *Editor) Surface() (*image.RGBA, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, err := e.ensureSurface()
	if err != nil {
		return nil, err
	}
	return raster.Clone(s), nil
}

// TextObjects lists the live text annotations of page i.
func (e *Editor) TextObjects(i int) []textlayer.TextObject {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.text.Objects(i)
}

// CanUndo reports whether page i has undo history.
func (e *Editor) CanUndo(i int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.CanUndo(i)
}

// CanRedo reports whether page i has redo history.
func (e *Editor) CanRedo(i int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.CanRedo(i)
}

func (e *Editor) ensureSurface() (*image.RGBA, error) {
	if e.surface != nil {
		return e.surface, nil
	}
	p := e.doc.Pages[e.active]
	img, err := raster.Decode(p.Current())
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", e.active, err)
	}
	e.surface = img
	return img, nil
}

func (e *Editor) encode(img *image.RGBA) (raster.Encoded, error) {
	return raster.Encode(img, e.format, raster.WithQuality(e.quality))
}

func (e *Editor) indexOf(id string) int {
	for i, p := range e.doc.Pages {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// bracket is one open edit of the active page: what to push to history
// and what to restore on failure.
type bracket struct {
	page   int
	prior  raster.Encoded
	layer  *textlayer.Layer
	before *image.RGBA
}

func (e *Editor) open() (*bracket, error) {
	s, err := e.ensureSurface()
	if err != nil {
		return nil, err
	}
	return &bracket{
		page:   e.active,
		prior:  e.doc.Pages[e.active].Edited,
		layer:  e.text.Capture(e.active),
		before: raster.Clone(s),
	}, nil
}

// abort puts the surface back the way the bracket found it.
func (e *Editor) abort(b *bracket) {
	if e.surface != nil && b.page == e.active {
		copy(e.surface.Pix, b.before.Pix)
	}
}

// close commits the surface: the prior raster and text layer go to
// history, a non-text edit is folded into the page's text base, and the
// page gets the new raster. Nothing is recorded when encoding fails.
func (e *Editor) close(b *bracket, op string, reconcile bool) error {
	if raster.Equal(e.surface, b.before) {
		return nil
	}
	enc, err := e.encode(e.surface)
	if err != nil {
		e.abort(b)
		return fmt.Errorf("%s: %w", op, err)
	}
	e.history.PushEntry(b.page, history.Entry{Raster: b.prior, Text: b.layer})
	if reconcile && e.text.HasObjects(b.page) {
		if err := e.text.Reconcile(b.page, b.before, e.surface); err != nil {
			e.logger.Warn("text layer reconcile failed", observability.Int("page", b.page), observability.Error("error", err))
			e.text.Flatten(b.page)
		}
	}
	e.doc.Pages[b.page].Edited = enc
	e.logger.Debug("page edited", observability.String("op", op), observability.Int("page", b.page))
	e.notify()
	return nil
}

// mutate runs fn against the active surface inside a bracket.
func (e *Editor) mutate(op string, reconcile bool, fn func(s *image.RGBA) error) error {
	b, err := e.open()
	if err != nil {
		return err
	}
	if err := fn(e.surface); err != nil {
		e.abort(b)
		return err
	}
	return e.close(b, op, reconcile)
}

// editPage applies fn to page id, which need not be active.
func (e *Editor) editPage(id, op string, fn func(img *image.RGBA, idx int) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	idx := e.indexOf(id)
	if idx < 0 {
		return ErrPageGone
	}
	if idx == e.active {
		if err := e.flush(); err != nil {
			return err
		}
		return e.mutate(op, true, func(s *image.RGBA) error { return fn(s, idx) })
	}
	p := e.doc.Pages[idx]
	img, err := raster.Decode(p.Current())
	if err != nil {
		return fmt.Errorf("page %d: %w", idx, err)
	}
	before := raster.Clone(img)
	if err := fn(img, idx); err != nil {
		return err
	}
	if raster.Equal(img, before) {
		return nil
	}
	enc, err := e.encode(img)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	e.history.PushEntry(idx, history.Entry{Raster: p.Edited, Text: e.text.Capture(idx)})
	if e.text.HasObjects(idx) {
		if err := e.text.Reconcile(idx, before, img); err != nil {
			e.logger.Warn("text layer reconcile failed", observability.Int("page", idx), observability.Error("error", err))
			e.text.Flatten(idx)
		}
	}
	p.Edited = enc
	e.notify()
	return nil
}

// Undo restores the active page's previous raster together with the text
// objects the page had at that point.
func (e *Editor) Undo() (bool, error) {
	return e.step(e.history.UndoEntry)
}

// Redo re-applies the last undone change of the active page.
func (e *Editor) Redo() (bool, error) {
	return e.step(e.history.RedoEntry)
}

func (e *Editor) step(fn func(int, history.Entry) (history.Entry, bool)) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.flush(); err != nil {
		return false, err
	}
	p := e.doc.Pages[e.active]
	prev, ok := fn(e.active, history.Entry{Raster: p.Edited, Text: e.text.Capture(e.active)})
	if !ok {
		return false, nil
	}
	p.Edited = prev.Raster
	e.text.Restore(e.active, prev.Text)
	e.surface = nil
	e.notify()
	return true, nil
}

// Snapshot returns the current session state for persistence.
func (e *Editor) Snapshot() session.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return session.New(e.doc.Copy(), e.active)
}

// Restore replaces the session with s. History, text layers and the
// selection start empty.
func (e *Editor) Restore(s session.Snapshot) error {
	if s.Document == nil {
		return session.ErrNilDocument
	}
	if err := s.Document.Validate(); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = idleState{}
	e.doc = s.Document
	e.active = s.ActiveIndex
	if e.active < 0 || e.active >= e.doc.Len() {
		e.active = 0
	}
	e.surface = nil
	e.history.Reset()
	e.text.Reset()
	e.sel.Clear()
	e.hit = nil
	return nil
}

// Export flushes pending work and assembles the final page rasters.
func (e *Editor) Export(ctx context.Context, asm assemble.Assembler) ([]byte, error) {
	e.mu.Lock()
	if err := e.flush(); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	pages := make([]assemble.PageImage, e.doc.Len())
	for i, p := range e.doc.Pages {
		pages[i] = assemble.PageImage{
			PageNumber:   p.Position,
			Final:        p.Current(),
			NativeWidth:  p.Width,
			NativeHeight: p.Height,
		}
	}
	e.mu.Unlock()
	return asm.Assemble(ctx, pages)
}

// Close flushes pending work and the autosaver.
func (e *Editor) Close(ctx context.Context) error {
	e.mu.Lock()
	err := e.flush()
	a := e.autosaver
	e.mu.Unlock()
	if a != nil {
		return errors.Join(err, a.Close(ctx))
	}
	return err
}

func (e *Editor) notify() {
	if e.autosaver != nil {
		e.autosaver.Notify(session.New(e.doc.Copy(), e.active))
	}
}

// saveNow writes a snapshot immediately. Failures are logged: the edit that
// triggered the save is already committed.
func (e *Editor) saveNow(ctx context.Context) {
	e.mu.Lock()
	a := e.autosaver
	var s session.Snapshot
	if a != nil {
		s = session.New(e.doc.Copy(), e.active)
	}
	e.mu.Unlock()
	if a == nil {
		return
	}
	if err := a.SaveNow(ctx, s); err != nil {
		e.logger.Warn("immediate session save failed", observability.Error("error", err))
	}
}

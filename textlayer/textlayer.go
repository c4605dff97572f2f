// Package textlayer keeps movable, re-editable text annotations on top of a
// single flattened page raster.
//
// Each page that owns text objects also owns a base raster: the page pixels
// with every text object excluded. The visible raster is always the base
// with the objects drawn over it in insertion order. Non-text edits reach
// the base through Reconcile, which copies the pixels an edit changed.
package textlayer

import (
	"errors"
	"image"
	"image/color"

	"github.com/wudi/pagekit/document"
	"github.com/wudi/pagekit/fonts"
	"github.com/wudi/pagekit/observability"
	"github.com/wudi/pagekit/raster"
)

// DragThreshold is the pointer travel, in native pixels, beyond which a
// press on a text object becomes a move instead of a click.
const DragThreshold = 5

var (
	ErrEmptyText     = errors.New("text is empty")
	ErrNoInteraction = errors.New("no text interaction in progress")
	ErrBusy          = errors.New("another text interaction is in progress")
)

// TextObject is one live annotation. X and Y are the native pixel
// coordinates of the top-left corner of its box.
type TextObject struct {
	X          int        `json:"x"`
	Y          int        `json:"y"`
	Text       string     `json:"text"`
	FontSize   float64    `json:"fontSize"`
	FontFamily string     `json:"fontFamily"`
	Color      color.RGBA `json:"color"`
}

// Style is the typographic part of a TextObject.
type Style struct {
	FontSize   float64
	FontFamily string
	Color      color.RGBA
}

// Style returns the object's style.
func (o TextObject) Style() Style {
	return Style{FontSize: o.FontSize, FontFamily: o.FontFamily, Color: o.Color}
}

func (o TextObject) with(text string, s Style) TextObject {
	o.Text = text
	o.FontSize = s.FontSize
	o.FontFamily = s.FontFamily
	o.Color = s.Color
	return o
}

// Layer is the text state of one page.
type Layer struct {
	Objects []TextObject
	Base    *image.RGBA
}

// State is the phase of the text tool on the active page.
type State int

const (
	StateIdle State = iota
	StatePlacing
	StateDragging
	StateEditing
)

func (s State) String() string {
	switch s {
	case StatePlacing:
		return "placing"
	case StateDragging:
		return "dragging"
	case StateEditing:
		return "editing"
	default:
		return "idle"
	}
}

// interaction is the in-progress gesture. Exactly one variant is live at a
// time; nil means idle.
type interaction interface{ state() State }

type placing struct {
	page     int
	at       image.Point
	backdrop *image.RGBA
}

type dragging struct {
	page     int
	index    int
	origin   image.Point
	start    image.Point
	moved    bool
	backdrop *image.RGBA
}

type editing struct {
	page     int
	index    int
	backdrop *image.RGBA
}

func (placing) state() State  { return StatePlacing }
func (dragging) state() State { return StateDragging }
func (editing) state() State  { return StateEditing }

// Engine owns the text layers of every page, keyed by page index, and the
// text tool interaction on the active page.
type Engine struct {
	fonts  *fonts.Registry
	layers map[int]*Layer
	cur    interaction
	logger observability.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger that reports text the registry failed to draw.
func WithLogger(l observability.Logger) Option {
	return func(e *Engine) { e.logger = observability.OrNop(l) }
}

// New creates an engine drawing with reg, or the default font registry when
// reg is nil.
func New(reg *fonts.Registry, opts ...Option) *Engine {
	if reg == nil {
		reg = fonts.Default()
	}
	e := &Engine{fonts: reg, layers: make(map[int]*Layer), logger: observability.NopLogger{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State reports the current interaction phase.
func (e *Engine) State() State {
	if e.cur == nil {
		return StateIdle
	}
	return e.cur.state()
}

// ActivePage returns the page of the current interaction.
func (e *Engine) ActivePage() (int, bool) {
	switch c := e.cur.(type) {
	case *placing:
		return c.page, true
	case *dragging:
		return c.page, true
	case *editing:
		return c.page, true
	}
	return 0, false
}

// Objects returns a copy of the page's text objects.
func (e *Engine) Objects(page int) []TextObject {
	l := e.layers[page]
	if l == nil {
		return nil
	}
	return append([]TextObject(nil), l.Objects...)
}

// HasObjects reports whether page owns at least one text object.
func (e *Engine) HasObjects(page int) bool {
	l := e.layers[page]
	return l != nil && len(l.Objects) > 0
}

// Base returns a copy of the page's base raster, or nil when none is cached.
func (e *Engine) Base(page int) *image.RGBA {
	if l := e.layers[page]; l != nil {
		return raster.Clone(l.Base)
	}
	return nil
}

// layer returns the page layer, initializing the base from surface when the
// page owns no objects yet.
func (e *Engine) layer(page int, surface *image.RGBA) *Layer {
	l := e.layers[page]
	if l == nil {
		l = &Layer{}
		e.layers[page] = l
	}
	if len(l.Objects) == 0 || l.Base == nil || l.Base.Rect != surface.Rect {
		l.Base = raster.Clone(surface)
	}
	return l
}

// Bounds returns the hit box of o.
func (e *Engine) Bounds(o TextObject) image.Rectangle {
	return e.fonts.Box(o.Text, o.FontFamily, o.FontSize, o.X, o.Y)
}

// HitTest returns the index of the topmost object whose box contains pt.
func (e *Engine) HitTest(page int, pt image.Point) (int, bool) {
	l := e.layers[page]
	if l == nil {
		return -1, false
	}
	for i := len(l.Objects) - 1; i >= 0; i-- {
		if pt.In(e.Bounds(l.Objects[i])) {
			return i, true
		}
	}
	return -1, false
}

func (e *Engine) draw(dst *image.RGBA, o TextObject) {
	if o.Text == "" {
		return
	}
	if err := e.fonts.Draw(dst, o.Text, o.FontFamily, o.FontSize, o.Color, o.X, o.Y); err != nil {
		e.logger.Warn("text not drawn",
			observability.String("family", o.FontFamily),
			observability.Float64("size", o.FontSize),
			observability.Error("error", err))
	}
}

// render returns the base with every object except skip drawn over it.
func (e *Engine) render(l *Layer, skip int) *image.RGBA {
	out := raster.Clone(l.Base)
	for i, o := range l.Objects {
		if i != skip {
			e.draw(out, o)
		}
	}
	return out
}

// Composite returns the page raster implied by its layer: base plus every
// object. ok is false when the page has no layer.
func (e *Engine) Composite(page int) (*image.RGBA, bool) {
	l := e.layers[page]
	if l == nil || l.Base == nil {
		return nil, false
	}
	return e.render(l, -1), true
}

func blit(dst, src *image.RGBA) {
	copy(dst.Pix, src.Pix)
}

// PointerDown starts a text interaction at pt. A press on an existing object
// begins a potential drag of the topmost hit; a press elsewhere starts a new
// text input. surface is the active page raster and is updated in place.
func (e *Engine) PointerDown(page int, surface *image.RGBA, pt image.Point) (State, error) {
	if e.cur != nil {
		return e.State(), ErrBusy
	}
	l := e.layer(page, surface)
	if idx, ok := e.HitTest(page, pt); ok {
		e.cur = &dragging{
			page:     page,
			index:    idx,
			origin:   image.Pt(l.Objects[idx].X, l.Objects[idx].Y),
			start:    pt,
			backdrop: e.render(l, idx),
		}
		return StateDragging, nil
	}
	e.cur = &placing{page: page, at: pt, backdrop: raster.Clone(surface)}
	return StatePlacing, nil
}

// PointerMove updates a drag. It reports whether surface was redrawn.
func (e *Engine) PointerMove(surface *image.RGBA, pt image.Point) bool {
	d, ok := e.cur.(*dragging)
	if !ok {
		return false
	}
	delta := pt.Sub(d.start)
	if !d.moved && delta.X*delta.X+delta.Y*delta.Y <= DragThreshold*DragThreshold {
		return false
	}
	d.moved = true
	o := e.layers[d.page].Objects[d.index]
	o.X, o.Y = d.origin.X+delta.X, d.origin.Y+delta.Y
	blit(surface, d.backdrop)
	e.draw(surface, o)
	return true
}

// Outcome describes what a pointer release or confirm did.
type Outcome int

const (
	// OutcomeNone leaves the raster untouched.
	OutcomeNone Outcome = iota
	// OutcomeEditStarted means a click opened an object for editing; the
	// object was lifted off the surface.
	OutcomeEditStarted
	// OutcomeCommitted means the surface holds a new raster that must be
	// recorded in history and persisted.
	OutcomeCommitted
)

// Result is returned by PointerUp and Confirm.
type Result struct {
	Outcome Outcome
	Page    int
	// Object is the object opened for editing, or the object written.
	Object TextObject
	// Removed is set when an edit emptied the text and the object is gone.
	Removed bool
}

// PointerUp ends a press. A drag beyond DragThreshold moves the object; a
// shorter one is a click and opens the object for editing.
func (e *Engine) PointerUp(surface *image.RGBA, pt image.Point) Result {
	d, ok := e.cur.(*dragging)
	if !ok {
		return Result{}
	}
	l := e.layers[d.page]
	e.PointerMove(surface, pt)
	if d.moved {
		delta := pt.Sub(d.start)
		o := &l.Objects[d.index]
		o.X, o.Y = d.origin.X+delta.X, d.origin.Y+delta.Y
		blit(surface, e.render(l, -1))
		e.cur = nil
		return Result{Outcome: OutcomeCommitted, Page: d.page, Object: *o}
	}
	blit(surface, d.backdrop)
	e.cur = &editing{page: d.page, index: d.index, backdrop: d.backdrop}
	return Result{Outcome: OutcomeEditStarted, Page: d.page, Object: l.Objects[d.index]}
}

// SetDraft renders the in-progress text over the backdrop so the user sees
// it live while typing.
func (e *Engine) SetDraft(surface *image.RGBA, text string, s Style) error {
	switch c := e.cur.(type) {
	case *placing:
		blit(surface, c.backdrop)
		e.draw(surface, TextObject{X: c.at.X, Y: c.at.Y}.with(text, s))
	case *editing:
		blit(surface, c.backdrop)
		e.draw(surface, e.layers[c.page].Objects[c.index].with(text, s))
	default:
		return ErrNoInteraction
	}
	return nil
}

// Confirm finishes text input. Editing replaces the object in place or
// removes it when text is empty; placing appends a new object and rejects
// empty text without touching state. The surface ends up as base plus all
// objects.
func (e *Engine) Confirm(surface *image.RGBA, text string, s Style) (Result, error) {
	if s.FontSize <= 0 {
		return Result{}, fonts.ErrBadSize
	}
	switch c := e.cur.(type) {
	case *placing:
		if text == "" {
			return Result{}, ErrEmptyText
		}
		l := e.layers[c.page]
		o := TextObject{X: c.at.X, Y: c.at.Y}.with(text, s)
		l.Objects = append(l.Objects, o)
		blit(surface, e.render(l, -1))
		e.cur = nil
		return Result{Outcome: OutcomeCommitted, Page: c.page, Object: o}, nil
	case *editing:
		l := e.layers[c.page]
		res := Result{Outcome: OutcomeCommitted, Page: c.page}
		if text == "" {
			res.Object, res.Removed = l.Objects[c.index], true
			l.Objects = append(l.Objects[:c.index], l.Objects[c.index+1:]...)
		} else {
			l.Objects[c.index] = l.Objects[c.index].with(text, s)
			res.Object = l.Objects[c.index]
		}
		blit(surface, e.render(l, -1))
		e.cur = nil
		return res, nil
	case *dragging:
		return Result{}, ErrBusy
	}
	return Result{}, ErrNoInteraction
}

// Cancel abandons the interaction and restores the surface to base plus all
// objects. It reports whether anything was cancelled.
func (e *Engine) Cancel(surface *image.RGBA) bool {
	if e.cur == nil {
		return false
	}
	page, _ := e.ActivePage()
	e.cur = nil
	if l := e.layers[page]; l != nil && l.Base != nil && surface != nil && l.Base.Rect == surface.Rect {
		blit(surface, e.render(l, -1))
	}
	return true
}

// Reconcile folds a non-text edit into the page's base raster. Without text
// objects the base simply becomes after; otherwise only the pixels that the
// edit changed are copied into the base.
func (e *Engine) Reconcile(page int, before, after *image.RGBA) error {
	l := e.layers[page]
	if l == nil || len(l.Objects) == 0 || l.Base == nil || l.Base.Rect != after.Rect {
		e.layers[page] = &Layer{Objects: nil, Base: raster.Clone(after)}
		if l != nil && len(l.Objects) > 0 {
			// size changed under the objects; keep them over the new raster
			e.layers[page].Objects = l.Objects
		}
		return nil
	}
	_, err := raster.MergeDelta(l.Base, before, after)
	return err
}

// Capture returns a detached copy of the page's layer, or nil when the page
// owns no text objects.
func (e *Engine) Capture(page int) *Layer {
	l := e.layers[page]
	if l == nil || len(l.Objects) == 0 {
		return nil
	}
	return &Layer{Objects: append([]TextObject(nil), l.Objects...), Base: raster.Clone(l.Base)}
}

// Restore installs a copy of l as the page's layer; nil drops the layer.
// The caller keeps the page raster consistent with it.
func (e *Engine) Restore(page int, l *Layer) {
	if l == nil {
		delete(e.layers, page)
		return
	}
	e.layers[page] = &Layer{Objects: append([]TextObject(nil), l.Objects...), Base: raster.Clone(l.Base)}
}

// Flatten drops the page's objects and base; whatever text is visible stays
// baked into the raster.
func (e *Engine) Flatten(page int) {
	delete(e.layers, page)
}

// Relocate moves every layer to its page's new index. Layers of deleted
// pages are dropped. Callers cancel any interaction first.
func (e *Engine) Relocate(im document.IndexMap) {
	e.cur = nil
	e.layers = document.Relocate(e.layers, im)
}

// Reset drops every layer and any interaction.
func (e *Engine) Reset() {
	e.cur = nil
	e.layers = make(map[int]*Layer)
}

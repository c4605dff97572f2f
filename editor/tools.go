package editor

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/wudi/pagekit/paint"
	"github.com/wudi/pagekit/selection"
	"github.com/wudi/pagekit/textlayer"
)

// Tool is the active pointer tool.
type Tool int

const (
	ToolPen Tool = iota
	ToolEraser
	ToolShape
	ToolText
	// ToolSelect draws a marquee in native pixels.
	ToolSelect
	// ToolAISelect draws a marquee in percent of the page, or hit-tests
	// the page's text spans on a click.
	ToolAISelect
)

func (t Tool) String() string {
	switch t {
	case ToolPen:
		return "pen"
	case ToolEraser:
		return "eraser"
	case ToolShape:
		return "shape"
	case ToolText:
		return "text"
	case ToolSelect:
		return "select"
	case ToolAISelect:
		return "ai-select"
	default:
		return fmt.Sprintf("tool(%d)", int(t))
	}
}

// toolState is what the current press is doing. Each variant carries only
// the data its phase needs.
type toolState interface{ isToolState() }

type idleState struct{}

type drawingState struct {
	b      *bracket
	last   image.Point
	eraser bool
}

type shapeState struct {
	b     *bracket
	start image.Point
}

type textState struct {
	b     *bracket
	draft string
	style textlayer.Style
}

type selectingState struct {
	g selection.Gesture
}

func (idleState) isToolState()       {}
func (*drawingState) isToolState()   {}
func (*shapeState) isToolState()     {}
func (*textState) isToolState()      {}
func (*selectingState) isToolState() {}

// Tool returns the active tool.
func (e *Editor) Tool() Tool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tool
}

// SetTool flushes in-progress work and switches tools.
func (e *Editor) SetTool(t Tool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.flush(); err != nil {
		return err
	}
	e.tool = t
	return nil
}

// flush finishes whatever the current press left open. A stroke or shape
// is committed; typed text is confirmed and an empty text input dropped.
func (e *Editor) flush() error {
	st := e.state
	e.state = idleState{}
	switch s := st.(type) {
	case *drawingState:
		return e.close(s.b, e.strokeOp(s.eraser), true)
	case *shapeState:
		return e.close(s.b, "shape", true)
	case *textState:
		if s.draft != "" {
			if _, err := e.text.Confirm(e.surface, s.draft, s.style); err == nil {
				return e.close(s.b, "text", false)
			}
		}
		e.text.Cancel(e.surface)
		e.abortText(s.b)
	case *selectingState:
		s.g.Cancel()
	}
	return nil
}

// abortText leaves the surface as the text layer shows it after a cancel.
// A cancelled edit that had lifted an object puts it back, so the surface
// only returns to the bracket's copy when nothing else changed.
func (e *Editor) abortText(b *bracket) {
	if e.text.HasObjects(b.page) {
		return
	}
	e.abort(b)
}

func (e *Editor) strokeOp(eraser bool) string {
	if eraser {
		return "erase"
	}
	return "pen"
}

// point converts native pixel coordinates to the pixel under them.
func point(x, y float64) image.Point {
	return image.Pt(int(math.Floor(x)), int(math.Floor(y)))
}

// PointerDown starts a press of the active tool. Coordinates are native
// pixels, except for ToolAISelect which takes percent of the page.
func (e *Editor) PointerDown(x, y float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state.(type) {
	case idleState:
	case *textState:
		if e.text.State() == textlayer.StateDragging {
			return nil
		}
		// a press while typing commits the text first
		if err := e.flush(); err != nil {
			return err
		}
	default:
		return nil
	}
	pt := point(x, y)
	switch e.tool {
	case ToolPen, ToolEraser:
		b, err := e.open()
		if err != nil {
			return err
		}
		eraser := e.tool == ToolEraser
		e.dab(pt, pt, eraser)
		e.state = &drawingState{b: b, last: pt, eraser: eraser}
	case ToolShape:
		b, err := e.open()
		if err != nil {
			return err
		}
		e.state = &shapeState{b: b, start: pt}
	case ToolText:
		b, err := e.open()
		if err != nil {
			return err
		}
		if _, err := e.text.PointerDown(e.active, e.surface, pt); err != nil {
			return err
		}
		e.state = &textState{b: b, style: e.textStyle}
	case ToolSelect:
		s := &selectingState{}
		s.g.Begin(selection.SpacePixel, x, y)
		e.state = s
	case ToolAISelect:
		s := &selectingState{}
		s.g.Begin(selection.SpacePercent, x, y)
		e.state = s
	}
	return nil
}

func (e *Editor) dab(from, to image.Point, eraser bool) {
	if eraser {
		paint.Line(e.surface, from, to, e.background, e.eraserWidth)
		return
	}
	paint.Line(e.surface, from, to, e.strokeColor, e.strokeWidth)
}

// PointerMove continues the current press.
func (e *Editor) PointerMove(x, y float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	pt := point(x, y)
	switch s := e.state.(type) {
	case *drawingState:
		e.dab(s.last, pt, s.eraser)
		s.last = pt
	case *shapeState:
		copy(e.surface.Pix, s.b.before.Pix)
		paint.DrawShape(e.surface, e.shape, s.start, pt, e.strokeColor, e.strokeWidth)
	case *textState:
		e.text.PointerMove(e.surface, pt)
	case *selectingState:
		s.g.Update(x, y)
	}
}

// PointerUp ends the press. Strokes and shapes are committed; a text drag
// commits the moved object; a marquee becomes the active selection.
func (e *Editor) PointerUp(x, y float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	pt := point(x, y)
	switch s := e.state.(type) {
	case *drawingState:
		e.dab(s.last, pt, s.eraser)
		e.state = idleState{}
		return e.close(s.b, e.strokeOp(s.eraser), true)
	case *shapeState:
		copy(e.surface.Pix, s.b.before.Pix)
		paint.DrawShape(e.surface, e.shape, s.start, pt, e.strokeColor, e.strokeWidth)
		e.state = idleState{}
		return e.close(s.b, "shape", true)
	case *textState:
		res := e.text.PointerUp(e.surface, pt)
		switch res.Outcome {
		case textlayer.OutcomeCommitted:
			e.state = idleState{}
			return e.close(s.b, "text move", false)
		case textlayer.OutcomeEditStarted:
			s.draft = res.Object.Text
			s.style = res.Object.Style()
		}
	case *selectingState:
		space := selection.SpacePixel
		if e.tool == ToolAISelect {
			space = selection.SpacePercent
		}
		r, ok := s.g.End(x, y)
		e.state = idleState{}
		if ok {
			e.sel.Select(selection.Selection{Rect: r, Space: space})
			e.hit = nil
			return nil
		}
		e.sel.Clear()
		if space == selection.SpacePercent {
			e.clickAI(x, y)
		}
	}
	return nil
}

// SetTextDraft shows text as the in-progress input of the text tool.
func (e *Editor) SetTextDraft(text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.state.(*textState)
	if !ok {
		return ErrNotText
	}
	if err := e.text.SetDraft(e.surface, text, s.style); err != nil {
		return err
	}
	s.draft = text
	return nil
}

// ConfirmText finishes the text input and commits the page.
func (e *Editor) ConfirmText(text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.state.(*textState)
	if !ok {
		return ErrNotText
	}
	if _, err := e.text.Confirm(e.surface, text, s.style); err != nil {
		if errors.Is(err, textlayer.ErrEmptyText) {
			s.draft = ""
		}
		return err
	}
	e.state = idleState{}
	return e.close(s.b, "text", false)
}

// CancelText abandons the text input.
func (e *Editor) CancelText() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.state.(*textState)
	if !ok {
		return false
	}
	e.state = idleState{}
	e.text.Cancel(e.surface)
	e.abortText(s.b)
	return true
}

// SetTextStyle sets the style for new text and for the input in progress.
func (e *Editor) SetTextStyle(st textlayer.Style) error {
	if st.FontSize <= 0 {
		return fmt.Errorf("invalid font size %v", st.FontSize)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.textStyle = st
	if s, ok := e.state.(*textState); ok {
		s.style = st
		if s.draft != "" {
			return e.text.SetDraft(e.surface, s.draft, st)
		}
	}
	return nil
}

// TextState reports the text engine's interaction state.
func (e *Editor) TextState() textlayer.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.text.State()
}

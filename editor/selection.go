package editor

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/wudi/pagekit/document"
	"github.com/wudi/pagekit/selection"
)

// SpanHit is the text span an AI-mode click landed on.
type SpanHit struct {
	Page  int
	Index int
	Span  document.TextSpan
}

type spanHit struct {
	pageID string
	index  int
	span   document.TextSpan
}

// Select makes sel the active selection of the active page.
func (e *Editor) Select(sel selection.Selection) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sel.Select(sel)
	e.hit = nil
}

// ClearSelection drops the active selection.
func (e *Editor) ClearSelection() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sel.Clear()
}

// Selection returns the active selection.
func (e *Editor) Selection() (selection.Selection, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sel.Active()
}

// Copy captures the selected region into the clipboard.
func (e *Editor) Copy() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.flush(); err != nil {
		return err
	}
	s, err := e.ensureSurface()
	if err != nil {
		return err
	}
	_, err = e.sel.Copy(s)
	return err
}

// Cut copies the selected region and fills it with the background colour.
func (e *Editor) Cut() error {
	return e.selectionEdit("cut", func(s *image.RGBA) error {
		_, err := e.sel.Cut(s, e.background)
		return err
	})
}

// DeleteSelection fills the selected region with the background colour.
func (e *Editor) DeleteSelection() error {
	return e.selectionEdit("delete selection", func(s *image.RGBA) error {
		_, err := e.sel.Delete(s, e.background)
		return err
	})
}

// Paste writes the clipboard at the selection origin, or centred when
// nothing is selected.
func (e *Editor) Paste() error {
	return e.selectionEdit("paste", func(s *image.RGBA) error {
		_, err := e.sel.Paste(s)
		return err
	})
}

func (e *Editor) selectionEdit(op string, fn func(*image.RGBA) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.flush(); err != nil {
		return err
	}
	return e.mutate(op, true, fn)
}

// ClickAI hit-tests an AI-mode click, in percent of the page, against the
// active page's text spans.
func (e *Editor) ClickAI(xPct, yPct float64) (SpanHit, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clickAI(xPct, yPct)
}

func (e *Editor) clickAI(xPct, yPct float64) (SpanHit, bool) {
	p := e.doc.Pages[e.active]
	i, ok := document.HitTestSpan(p.TextSpans, xPct, yPct, document.SpanTolerance)
	if !ok {
		e.hit = nil
		return SpanHit{}, false
	}
	e.hit = &spanHit{pageID: p.ID, index: i, span: p.TextSpans[i]}
	return SpanHit{Page: e.active, Index: i, Span: p.TextSpans[i]}, true
}

// Hit returns the span picked by the last AI-mode click, if it is still on
// the active page.
func (e *Editor) Hit() (SpanHit, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.hit == nil || e.doc.Pages[e.active].ID != e.hit.pageID {
		return SpanHit{}, false
	}
	return SpanHit{Page: e.active, Index: e.hit.index, Span: e.hit.span}, true
}

// ReplaceSpanText asks the AI service to rewrite the span picked by the last
// AI-mode click.
func (e *Editor) ReplaceSpanText(ctx context.Context, text string) error {
	h, ok := e.Hit()
	if !ok {
		return fmt.Errorf("replace span text: %w", selection.ErrNoSelection)
	}
	return e.ApplyAIEdit(ctx, h.Page, SpanPrompt(h.Span, text))
}

// SpanPrompt describes replacing one span's text.
func SpanPrompt(s document.TextSpan, text string) string {
	return fmt.Sprintf(
		"Replace the text %q located at %.1f%% from the left and %.1f%% from the top with %q. Match the original lettering and keep everything else unchanged.",
		s.Text, s.Left, s.Top, text)
}

// RegionPrompt restricts prompt to a percent-space marquee.
func RegionPrompt(prompt string, r selection.Rect) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(prompt))
	fmt.Fprintf(&b, " Apply this only inside the area from %.1f%% to %.1f%% horizontally and %.1f%% to %.1f%% vertically; leave the rest of the page unchanged.",
		r.X, r.X+r.W, r.Y, r.Y+r.H)
	return b.String()
}

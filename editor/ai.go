package editor

import (
	"context"
	"fmt"
	"time"

	"github.com/wudi/pagekit/aiedit"
	"github.com/wudi/pagekit/history"
	"github.com/wudi/pagekit/observability"
	"github.com/wudi/pagekit/raster"
	"github.com/wudi/pagekit/selection"
)

// ApplyAIEdit sends page idx to the AI service and commits the returned
// raster. When idx is the active page and a percent-space marquee is
// active, the prompt is limited to that area. The editor is not locked
// while the service runs; the page is found again by identity afterwards.
func (e *Editor) ApplyAIEdit(ctx context.Context, idx int, prompt string) error {
	prompt, err := aiedit.ValidatePrompt(prompt)
	if err != nil {
		return err
	}
	e.mu.Lock()
	if err := e.flush(); err != nil {
		e.mu.Unlock()
		return err
	}
	p, err := e.doc.Page(idx)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	if sel, ok := e.sel.Active(); ok && idx == e.active && sel.Space == selection.SpacePercent {
		prompt = RegionPrompt(prompt, sel.Rect)
	}
	id := p.ID
	e.mu.Unlock()

	if err := e.aiEdit(ctx, id, prompt); err != nil {
		return err
	}
	e.saveNow(context.WithoutCancel(ctx))
	return nil
}

// aiEdit runs one service call for page id and commits the result.
func (e *Editor) aiEdit(ctx context.Context, id, prompt string) error {
	e.mu.Lock()
	svc := e.ai
	idx := e.indexOf(id)
	if svc == nil {
		e.mu.Unlock()
		return ErrNoService
	}
	if idx < 0 {
		e.mu.Unlock()
		return ErrPageGone
	}
	p := e.doc.Pages[idx]
	current, w, h := p.Current(), p.Width, p.Height
	bg := e.background
	e.mu.Unlock()

	start := time.Now()
	out, err := svc.Edit(ctx, current, prompt)
	e.logger.Info("ai edit finished",
		observability.Int("page", idx),
		observability.Duration(observability.MetricAIEditTime, time.Since(start)),
		observability.Bool("ok", err == nil),
	)
	if err != nil {
		return err
	}
	img, err := raster.Decode(out)
	if err != nil {
		return fmt.Errorf("ai edit result: %w", err)
	}
	if b := img.Bounds(); b.Dx() != w || b.Dy() != h {
		img = raster.ScaleToFit(img, w, h, bg)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	enc, err := e.encode(img)
	if err != nil {
		return fmt.Errorf("ai edit result: %w", err)
	}
	idx = e.indexOf(id)
	if idx < 0 {
		return ErrPageGone
	}
	if idx == e.active {
		if err := e.flush(); err != nil {
			return err
		}
		e.surface = nil
	}
	p = e.doc.Pages[idx]
	e.history.PushEntry(idx, history.Entry{Raster: p.Edited, Text: e.text.Capture(idx)})
	p.Edited = enc
	e.text.Flatten(idx)
	e.notify()
	return nil
}

package editor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/wudi/pagekit/aiedit"
	"github.com/wudi/pagekit/fonts"
	"github.com/wudi/pagekit/observability"
	"github.com/wudi/pagekit/raster"
	"github.com/wudi/pagekit/recovery"
	"github.com/wudi/pagekit/scripting"
)

// PageError is the failure of one page of a batch.
type PageError struct {
	Page int
	Err  error
}

func (e PageError) Error() string { return fmt.Sprintf("page %d: %v", e.Page+1, e.Err) }
func (e PageError) Unwrap() error { return e.Err }

// BatchReport tallies a batch run. Cancelled is set when the context ended
// before every page was visited; pages already done stay committed.
type BatchReport struct {
	Total     int
	Succeeded int
	Failed    int
	Cancelled bool
	Errors    []PageError
}

// resolve turns page indices into identities. nil means every page.
func (e *Editor) resolve(pages []int) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if pages == nil {
		ids := make([]string, e.doc.Len())
		for i, p := range e.doc.Pages {
			ids[i] = p.ID
		}
		return ids, nil
	}
	ids := make([]string, 0, len(pages))
	for _, i := range pages {
		if i < 0 || i >= e.doc.Len() {
			return nil, fmt.Errorf("%w: page %d of %d", ErrInvalidRange, i+1, e.doc.Len())
		}
		ids = append(ids, e.doc.Pages[i].ID)
	}
	return ids, nil
}

// runBatch visits pages one at a time. The context is checked before each
// page; failures go to the configured recovery strategy. A snapshot is
// saved once at the end, cancelled or not.
func (e *Editor) runBatch(ctx context.Context, op string, pages []int, fn func(ctx context.Context, id string) error) (BatchReport, error) {
	ids, err := e.resolve(pages)
	if err != nil {
		return BatchReport{}, err
	}
	rep := BatchReport{Total: len(ids)}
	strategy := e.strategy()
	defer func() {
		e.logger.Info("batch finished",
			observability.String("op", op),
			observability.Int(observability.MetricBatchPages, rep.Succeeded),
			observability.Int("failed", rep.Failed),
			observability.Bool("cancelled", rep.Cancelled),
		)
		e.saveNow(context.WithoutCancel(ctx))
	}()
	for _, id := range ids {
		if ctx.Err() != nil {
			rep.Cancelled = true
			break
		}
		err := fn(ctx, id)
		if err == nil {
			rep.Succeeded++
			continue
		}
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			rep.Cancelled = true
			break
		}
		e.mu.Lock()
		idx := e.indexOf(id)
		e.mu.Unlock()
		rep.Failed++
		rep.Errors = append(rep.Errors, PageError{Page: idx, Err: err})
		e.logger.Warn("batch page failed",
			observability.String("op", op),
			observability.Int("page", idx),
			observability.Error("error", err),
		)
		if strategy.OnError(ctx, err, recovery.Location{Page: idx, Operation: op}) == recovery.ActionFail {
			return rep, PageError{Page: idx, Err: err}
		}
	}
	return rep, nil
}

// ApplyAIEditAll runs prompt against pages (nil for every page) in order.
func (e *Editor) ApplyAIEditAll(ctx context.Context, pages []int, prompt string) (BatchReport, error) {
	prompt, err := aiedit.ValidatePrompt(prompt)
	if err != nil {
		return BatchReport{}, err
	}
	e.mu.Lock()
	svc := e.ai
	e.mu.Unlock()
	if svc == nil {
		return BatchReport{}, ErrNoService
	}
	return e.runBatch(ctx, "ai-edit", pages, func(ctx context.Context, id string) error {
		return e.aiEdit(ctx, id, prompt)
	})
}

// ApplyBackground recolours every pixel within tolerance of the current
// background colour to hex, then makes hex the background.
func (e *Editor) ApplyBackground(ctx context.Context, pages []int, hex string, tolerance uint8) (BatchReport, error) {
	col, err := raster.ParseHexColor(hex)
	if err != nil {
		return BatchReport{}, err
	}
	e.mu.Lock()
	match := e.background
	e.mu.Unlock()
	rep, err := e.runBatch(ctx, "background", pages, func(ctx context.Context, id string) error {
		return e.editPage(id, "background", func(img *image.RGBA, _ int) error {
			raster.ReplaceNear(img, match, col, tolerance)
			return nil
		})
	})
	if rep.Succeeded > 0 {
		e.mu.Lock()
		e.background = col
		e.mu.Unlock()
	}
	return rep, err
}

// Placement positions a stamped image on a page.
type Placement struct {
	// Corner is one of "top-left", "top-right", "bottom-left",
	// "bottom-right" or "center".
	Corner string
	// Scale is the stamp width as a fraction of the page width.
	Scale float64
	// Margin is the distance from the page edges in pixels.
	Margin int
}

// DefaultPlacement puts the stamp in the top-right corner at 15% width.
var DefaultPlacement = Placement{Corner: "top-right", Scale: 0.15, Margin: 24}

func (pl Placement) rect(page image.Rectangle, size image.Point) image.Rectangle {
	scale := pl.Scale
	if scale <= 0 || scale > 1 {
		scale = DefaultPlacement.Scale
	}
	w := int(math.Round(float64(page.Dx()) * scale))
	if w < 1 {
		w = 1
	}
	h := 1
	if size.X > 0 {
		h = int(math.Round(float64(w) * float64(size.Y) / float64(size.X)))
	}
	return anchor(page, image.Pt(w, h), pl.Corner, pl.Margin)
}

// anchor places a box of size sz inside page at the named position.
func anchor(page image.Rectangle, sz image.Point, pos string, margin int) image.Rectangle {
	x := page.Min.X + (page.Dx()-sz.X)/2
	y := page.Min.Y + (page.Dy()-sz.Y)/2
	if strings.HasSuffix(pos, "left") {
		x = page.Min.X + margin
	} else if strings.HasSuffix(pos, "right") {
		x = page.Max.X - margin - sz.X
	}
	if strings.HasPrefix(pos, "top") {
		y = page.Min.Y + margin
	} else if strings.HasPrefix(pos, "bottom") {
		y = page.Max.Y - margin - sz.Y
	}
	return image.Rectangle{Min: image.Pt(x, y), Max: image.Pt(x+sz.X, y+sz.Y)}
}

// ApplyLogo stamps logo on pages.
func (e *Editor) ApplyLogo(ctx context.Context, pages []int, logo image.Image, pl Placement) (BatchReport, error) {
	if logo == nil || logo.Bounds().Empty() {
		return BatchReport{}, errors.New("logo image is empty")
	}
	return e.runBatch(ctx, "logo", pages, func(ctx context.Context, id string) error {
		return e.editPage(id, "logo", func(img *image.RGBA, _ int) error {
			raster.OverlayScaled(img, pl.rect(img.Bounds(), logo.Bounds().Size()), logo)
			return nil
		})
	})
}

// PageNumberOptions configures ApplyPageNumbers.
type PageNumberOptions struct {
	// Script is evaluated with page (1-based) and total bound; see
	// scripting.GojaEngine.FormatPageLabel.
	Script   string
	Position string
	FontSize float64
	Family   string
	Margin   int
	Color    color.RGBA
}

// DefaultPageNumbers renders "Page N of M" centred at the bottom.
var DefaultPageNumbers = PageNumberOptions{
	Script:   `"Page " + page + " of " + total`,
	Position: "bottom-center",
	FontSize: 18,
	Family:   fonts.Sans,
	Margin:   24,
	Color:    color.RGBA{0, 0, 0, 255},
}

// ApplyPageNumbers draws a label on each page. Labels use the page's
// position at the time it is visited.
func (e *Editor) ApplyPageNumbers(ctx context.Context, pages []int, opts PageNumberOptions) (BatchReport, error) {
	if opts.Script == "" {
		opts.Script = DefaultPageNumbers.Script
	}
	if opts.Position == "" {
		opts.Position = DefaultPageNumbers.Position
	}
	if opts.FontSize <= 0 {
		opts.FontSize = DefaultPageNumbers.FontSize
	}
	if opts.Family == "" {
		opts.Family = DefaultPageNumbers.Family
	}
	if opts.Color == (color.RGBA{}) {
		opts.Color = DefaultPageNumbers.Color
	}
	e.mu.Lock()
	if e.labels == nil {
		e.labels = scripting.NewEngine()
	}
	labels := e.labels
	e.mu.Unlock()
	return e.runBatch(ctx, "page-numbers", pages, func(ctx context.Context, id string) error {
		return e.editPage(id, "page numbers", func(img *image.RGBA, idx int) error {
			label, err := labels.FormatPageLabel(ctx, opts.Script, idx+1, e.doc.Len())
			if err != nil {
				return err
			}
			box := e.fonts.Box(label, opts.Family, opts.FontSize, 0, 0)
			r := anchor(img.Bounds(), box.Size(), opts.Position, opts.Margin)
			return e.fonts.Draw(img, label, opts.Family, opts.FontSize, opts.Color, r.Min.X, r.Min.Y)
		})
	})
}

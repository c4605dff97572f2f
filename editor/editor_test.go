package editor

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"
	"time"

	"github.com/wudi/pagekit/aiedit"
	"github.com/wudi/pagekit/assemble"
	"github.com/wudi/pagekit/document"
	"github.com/wudi/pagekit/raster"
	"github.com/wudi/pagekit/recovery"
	"github.com/wudi/pagekit/selection"
	"github.com/wudi/pagekit/session"
	"github.com/wudi/pagekit/textlayer"
)

var (
	white = color.RGBA{255, 255, 255, 255}
	black = color.RGBA{0, 0, 0, 255}
	red   = color.RGBA{255, 0, 0, 255}
)

func page(t *testing.T, img *image.RGBA, spans ...document.TextSpan) *document.Page {
	t.Helper()
	enc, err := raster.Encode(img, raster.PNG)
	if err != nil {
		t.Fatal(err)
	}
	b := img.Bounds()
	return document.NewPage(enc, b.Dx(), b.Dy(), spans)
}

func blankDoc(t *testing.T, n, w, h int) *document.Document {
	t.Helper()
	pages := make([]*document.Page, n)
	for i := range pages {
		pages[i] = page(t, raster.Solid(w, h, white))
	}
	return document.New(pages...)
}

func newEditor(t *testing.T, doc *document.Document, opts ...Option) *Editor {
	t.Helper()
	e, err := New(doc, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func surfaceAt(t *testing.T, e *Editor, x, y int) color.RGBA {
	t.Helper()
	s, err := e.Surface()
	if err != nil {
		t.Fatalf("Surface: %v", err)
	}
	return s.RGBAAt(x, y)
}

func decoded(t *testing.T, enc raster.Encoded) *image.RGBA {
	t.Helper()
	img, err := raster.Decode(enc)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return img
}

// reddish tolerates resampling error.
func reddish(c color.RGBA) bool { return c.R > 240 && c.G < 16 && c.B < 16 }

func stroke(t *testing.T, e *Editor, pts ...image.Point) {
	t.Helper()
	if err := e.PointerDown(float64(pts[0].X), float64(pts[0].Y)); err != nil {
		t.Fatalf("PointerDown: %v", err)
	}
	for _, p := range pts[1:] {
		e.PointerMove(float64(p.X), float64(p.Y))
	}
	last := pts[len(pts)-1]
	if err := e.PointerUp(float64(last.X), float64(last.Y)); err != nil {
		t.Fatalf("PointerUp: %v", err)
	}
}

func TestNewRejectsEmptyDocument(t *testing.T) {
	if _, err := New(document.New()); err == nil {
		t.Fatalf("expected error for empty document")
	}
}

func TestStrokeUndoRedo(t *testing.T) {
	e := newEditor(t, blankDoc(t, 1, 100, 100))
	stroke(t, e, image.Pt(10, 10), image.Pt(30, 10))

	if got := surfaceAt(t, e, 20, 10); got != black {
		t.Fatalf("stroke pixel = %v, want black", got)
	}
	if !e.Document().Pages[0].HasEdit() {
		t.Fatalf("stroke not committed")
	}

	if ok, err := e.Undo(); !ok || err != nil {
		t.Fatalf("Undo = %v, %v", ok, err)
	}
	if e.Document().Pages[0].HasEdit() {
		t.Fatalf("undo should restore the unedited page")
	}
	if got := surfaceAt(t, e, 20, 10); got != white {
		t.Fatalf("after undo pixel = %v, want white", got)
	}

	if ok, err := e.Redo(); !ok || err != nil {
		t.Fatalf("Redo = %v, %v", ok, err)
	}
	if got := surfaceAt(t, e, 20, 10); got != black {
		t.Fatalf("after redo pixel = %v, want black", got)
	}
	if ok, _ := e.Redo(); ok {
		t.Fatalf("redo stack should be empty")
	}
}

func TestEraserUsesBackground(t *testing.T) {
	e := newEditor(t, document.New(page(t, raster.Solid(60, 60, black))))
	if err := e.SetTool(ToolEraser); err != nil {
		t.Fatal(err)
	}
	stroke(t, e, image.Pt(30, 30), image.Pt(31, 30))
	if got := surfaceAt(t, e, 30, 30); got != white {
		t.Fatalf("erased pixel = %v, want white", got)
	}
	if got := surfaceAt(t, e, 2, 2); got != black {
		t.Fatalf("untouched pixel = %v, want black", got)
	}
}

func TestShapePreviewLeavesOneShape(t *testing.T) {
	e := newEditor(t, blankDoc(t, 1, 100, 100))
	if err := e.SetTool(ToolShape); err != nil {
		t.Fatal(err)
	}
	stroke(t, e, image.Pt(10, 10), image.Pt(90, 90), image.Pt(40, 40))
	if got := surfaceAt(t, e, 80, 80); got != white {
		t.Fatalf("preview outline left behind at (80,80): %v", got)
	}
	if got := surfaceAt(t, e, 40, 20); got != black {
		t.Fatalf("final rect edge = %v, want black", got)
	}
	if !e.CanUndo(0) {
		t.Fatalf("shape not recorded")
	}
}

func TestToolSwitchFlushesStroke(t *testing.T) {
	e := newEditor(t, blankDoc(t, 1, 50, 50))
	if err := e.PointerDown(5, 5); err != nil {
		t.Fatal(err)
	}
	e.PointerMove(20, 5)
	if e.CanUndo(0) {
		t.Fatalf("stroke committed before release")
	}
	if err := e.SetTool(ToolEraser); err != nil {
		t.Fatal(err)
	}
	if !e.CanUndo(0) || !e.Document().Pages[0].HasEdit() {
		t.Fatalf("tool switch did not commit the open stroke")
	}
}

func TestTextSurvivesStrokeAndMoves(t *testing.T) {
	e := newEditor(t, blankDoc(t, 1, 200, 200))
	if err := e.SetTool(ToolText); err != nil {
		t.Fatal(err)
	}
	if err := e.PointerDown(50, 50); err != nil {
		t.Fatal(err)
	}
	if err := e.ConfirmText("Hi"); err != nil {
		t.Fatalf("ConfirmText: %v", err)
	}
	if n := len(e.TextObjects(0)); n != 1 {
		t.Fatalf("objects = %d, want 1", n)
	}

	if err := e.SetTool(ToolPen); err != nil {
		t.Fatal(err)
	}
	stroke(t, e, image.Pt(10, 150), image.Pt(190, 150))
	if n := len(e.TextObjects(0)); n != 1 {
		t.Fatalf("stroke dropped the text layer")
	}

	if err := e.SetTool(ToolText); err != nil {
		t.Fatal(err)
	}
	stroke(t, e, image.Pt(52, 55), image.Pt(52, 80), image.Pt(52, 105))
	objs := e.TextObjects(0)
	if len(objs) != 1 || objs[0].X != 50 || objs[0].Y != 100 {
		t.Fatalf("moved object = %+v, want at (50,100)", objs)
	}
	s, err := e.Surface()
	if err != nil {
		t.Fatal(err)
	}
	if got := s.RGBAAt(50, 150); got != black {
		t.Fatalf("stroke lost after text move: %v", got)
	}
	for y := 50; y < 74; y++ {
		for x := 50; x < 70; x++ {
			if s.RGBAAt(x, y) != white {
				t.Fatalf("text left behind at (%d,%d)", x, y)
			}
		}
	}
}

func TestUndoKeepsTextEditable(t *testing.T) {
	e := newEditor(t, blankDoc(t, 1, 200, 200))
	if err := e.SetTool(ToolText); err != nil {
		t.Fatal(err)
	}
	if err := e.PointerDown(50, 50); err != nil {
		t.Fatal(err)
	}
	if err := e.ConfirmText("Hello"); err != nil {
		t.Fatalf("ConfirmText: %v", err)
	}
	if err := e.SetTool(ToolPen); err != nil {
		t.Fatal(err)
	}
	stroke(t, e, image.Pt(10, 150), image.Pt(190, 150))

	if ok, err := e.Undo(); !ok || err != nil {
		t.Fatalf("Undo = %v, %v", ok, err)
	}
	if got := surfaceAt(t, e, 100, 150); got != white {
		t.Fatalf("stroke still visible after undo: %v", got)
	}
	if n := len(e.TextObjects(0)); n != 1 {
		t.Fatalf("objects after undoing a stroke = %d, want 1", n)
	}

	if err := e.SetTool(ToolText); err != nil {
		t.Fatal(err)
	}
	if err := e.PointerDown(55, 60); err != nil {
		t.Fatal(err)
	}
	if err := e.PointerUp(55, 60); err != nil {
		t.Fatal(err)
	}
	if got := e.TextState(); got != textlayer.StateEditing {
		t.Fatalf("click on text after undo: state = %v, want editing", got)
	}
	e.CancelText()

	if ok, err := e.Undo(); !ok || err != nil {
		t.Fatalf("second Undo = %v, %v", ok, err)
	}
	if n := len(e.TextObjects(0)); n != 0 || e.Document().Pages[0].HasEdit() {
		t.Fatalf("undoing the placement left %d objects", n)
	}
	if ok, err := e.Redo(); !ok || err != nil {
		t.Fatalf("Redo = %v, %v", ok, err)
	}
	if n := len(e.TextObjects(0)); n != 1 {
		t.Fatalf("objects after redo = %d, want 1", n)
	}
}

func TestEmptyTextRejected(t *testing.T) {
	e := newEditor(t, blankDoc(t, 1, 100, 100))
	if err := e.SetTool(ToolText); err != nil {
		t.Fatal(err)
	}
	if err := e.PointerDown(10, 10); err != nil {
		t.Fatal(err)
	}
	if err := e.ConfirmText(""); err == nil {
		t.Fatalf("empty text accepted")
	}
	if err := e.SetTextDraft("draft"); err != nil {
		t.Fatalf("input should still be open: %v", err)
	}
	if !e.CancelText() {
		t.Fatalf("CancelText found nothing to cancel")
	}
	if e.CanUndo(0) || e.Document().Pages[0].HasEdit() {
		t.Fatalf("cancelled text changed the page")
	}
	if got := surfaceAt(t, e, 12, 12); got != white {
		t.Fatalf("draft left on surface: %v", got)
	}
}

func TestCutAndPaste(t *testing.T) {
	img := raster.Solid(100, 100, white)
	raster.FillRect(img, image.Rect(10, 10, 30, 30), red)
	e := newEditor(t, document.New(page(t, img)))
	if err := e.SetTool(ToolSelect); err != nil {
		t.Fatal(err)
	}
	stroke(t, e, image.Pt(10, 10), image.Pt(30, 30))
	if _, ok := e.Selection(); !ok {
		t.Fatalf("marquee not selected")
	}
	if err := e.Cut(); err != nil {
		t.Fatalf("Cut: %v", err)
	}
	if got := surfaceAt(t, e, 20, 20); got != white {
		t.Fatalf("cut region = %v, want background", got)
	}
	e.Select(selection.Selection{Rect: selection.Rect{X: 60, Y: 60, W: 20, H: 20}, Space: selection.SpacePixel})
	if err := e.Paste(); err != nil {
		t.Fatalf("Paste: %v", err)
	}
	if got := surfaceAt(t, e, 65, 65); got != red {
		t.Fatalf("pasted pixel = %v, want red", got)
	}
	if got := surfaceAt(t, e, 85, 85); got != white {
		t.Fatalf("paste overflowed: %v", got)
	}
}

func TestDeleteSelectionPercent(t *testing.T) {
	e := newEditor(t, document.New(page(t, raster.Solid(200, 100, black))))
	if err := e.SetTool(ToolAISelect); err != nil {
		t.Fatal(err)
	}
	stroke(t, e, image.Pt(10, 10), image.Pt(30, 30))
	sel, ok := e.Selection()
	if !ok || sel.Space != selection.SpacePercent {
		t.Fatalf("selection = %+v, %v", sel, ok)
	}
	if err := e.DeleteSelection(); err != nil {
		t.Fatalf("DeleteSelection: %v", err)
	}
	if got := surfaceAt(t, e, 40, 20); got != white {
		t.Fatalf("(40,20) = %v, want white", got)
	}
	if got := surfaceAt(t, e, 100, 50); got != black {
		t.Fatalf("(100,50) = %v, want black", got)
	}
}

func TestSelectionErrorsCommitNothing(t *testing.T) {
	e := newEditor(t, blankDoc(t, 1, 20, 20))
	if err := e.Cut(); !errors.Is(err, selection.ErrNoSelection) {
		t.Fatalf("Cut = %v, want ErrNoSelection", err)
	}
	if err := e.Paste(); !errors.Is(err, selection.ErrEmptyClipboard) {
		t.Fatalf("Paste = %v, want ErrEmptyClipboard", err)
	}
	if e.CanUndo(0) {
		t.Fatalf("failed edits pushed history")
	}
}

func TestClickAIPicksSpan(t *testing.T) {
	spans := []document.TextSpan{{Text: "Invoice", Left: 10, Top: 10, Width: 20, Height: 5}}
	var prompts []string
	svc := aiedit.Func(func(ctx context.Context, cur raster.Encoded, prompt string) (raster.Encoded, error) {
		prompts = append(prompts, prompt)
		return cur, nil
	})
	e := newEditor(t, document.New(page(t, raster.Solid(100, 100, white), spans...)), WithAIService(svc))
	if err := e.SetTool(ToolAISelect); err != nil {
		t.Fatal(err)
	}
	stroke(t, e, image.Pt(15, 12), image.Pt(16, 12))
	hit, ok := e.Hit()
	if !ok || hit.Span.Text != "Invoice" {
		t.Fatalf("Hit = %+v, %v", hit, ok)
	}
	if err := e.ReplaceSpanText(context.Background(), "Receipt"); err != nil {
		t.Fatalf("ReplaceSpanText: %v", err)
	}
	if len(prompts) != 1 || !strings.Contains(prompts[0], `"Invoice"`) || !strings.Contains(prompts[0], `"Receipt"`) {
		t.Fatalf("prompts = %q", prompts)
	}
	if _, ok := e.ClickAI(90, 90); ok {
		t.Fatalf("click far from every span hit something")
	}
}

func TestMovePageCarriesHistory(t *testing.T) {
	e := newEditor(t, blankDoc(t, 3, 40, 40))
	stroke(t, e, image.Pt(5, 5), image.Pt(20, 5))
	if err := e.MovePage(0, 2); err != nil {
		t.Fatal(err)
	}
	if got := e.ActivePage(); got != 2 {
		t.Fatalf("active = %d, want 2", got)
	}
	if e.CanUndo(0) || !e.CanUndo(2) {
		t.Fatalf("history did not follow the page")
	}
	if ok, err := e.Undo(); !ok || err != nil {
		t.Fatalf("Undo = %v, %v", ok, err)
	}
	if e.Document().Pages[2].HasEdit() {
		t.Fatalf("undo hit the wrong page")
	}
}

func TestDeleteActivePageClamps(t *testing.T) {
	e := newEditor(t, blankDoc(t, 3, 10, 10))
	if err := e.SetActivePage(2); err != nil {
		t.Fatal(err)
	}
	if err := e.DeletePage(2); err != nil {
		t.Fatal(err)
	}
	if got := e.ActivePage(); got != 1 {
		t.Fatalf("active = %d, want 1", got)
	}
	if err := e.DeletePage(5); !errors.Is(err, document.ErrIndexOutOfRange) {
		t.Fatalf("DeletePage(5) = %v", err)
	}
}

func TestCopyPastePage(t *testing.T) {
	doc := document.New(page(t, raster.Solid(40, 40, white)), page(t, raster.Solid(20, 10, red)))
	e := newEditor(t, doc)
	if err := e.PastePage(0); !errors.Is(err, ErrNoClipboard) {
		t.Fatalf("PastePage on empty clipboard = %v", err)
	}
	if err := e.CopyPage(1); err != nil {
		t.Fatal(err)
	}
	if err := e.PastePage(0); err != nil {
		t.Fatalf("PastePage: %v", err)
	}
	d := e.Document()
	if d.Len() != 3 || d.Pages[1].Width != 40 || d.Pages[1].Height != 40 {
		t.Fatalf("pasted page %dx%d of %d pages", d.Pages[1].Width, d.Pages[1].Height, d.Len())
	}
	if d.Pages[1].ID == d.Pages[2].ID {
		t.Fatalf("pasted page shares identity with its source")
	}
}

func TestInsertAndDuplicate(t *testing.T) {
	e := newEditor(t, blankDoc(t, 1, 30, 20))
	if err := e.InsertBlankPage(0); err != nil {
		t.Fatal(err)
	}
	if err := e.DuplicatePage(0); err != nil {
		t.Fatal(err)
	}
	if err := e.ReorderPage(2, 0); err != nil {
		t.Fatal(err)
	}
	d := e.Document()
	if d.Len() != 3 {
		t.Fatalf("len = %d, want 3", d.Len())
	}
	for i, p := range d.Pages {
		if p.Position != i+1 || p.Width != 30 || p.Height != 20 {
			t.Fatalf("page %d = pos %d %dx%d", i, p.Position, p.Width, p.Height)
		}
	}
}

func TestAIEditNormalizesAndSaves(t *testing.T) {
	store := &session.MemoryStore{}
	saver := session.NewAutosaver(store, session.WithDebounce(time.Hour))
	svc := aiedit.Func(func(ctx context.Context, cur raster.Encoded, prompt string) (raster.Encoded, error) {
		return raster.Encode(raster.Solid(50, 25, red), raster.PNG)
	})
	spans := document.TextSpan{Text: "secret", Left: 1, Top: 1, Width: 2, Height: 2}
	doc := document.New(page(t, raster.Solid(100, 100, white), spans))
	e := newEditor(t, doc, WithAIService(svc), WithAutosaver(saver))

	if err := e.ApplyAIEdit(context.Background(), 0, "make it red"); err != nil {
		t.Fatalf("ApplyAIEdit: %v", err)
	}
	img := decoded(t, e.Document().Pages[0].Edited)
	if img.Bounds() != image.Rect(0, 0, 100, 100) {
		t.Fatalf("result bounds %v, want page size", img.Bounds())
	}
	if !reddish(img.RGBAAt(50, 50)) || img.RGBAAt(50, 2) != white {
		t.Fatalf("result not letterboxed: centre %v, top %v", img.RGBAAt(50, 50), img.RGBAAt(50, 2))
	}
	if store.Saves() != 1 {
		t.Fatalf("saves = %d, want 1 immediate save", store.Saves())
	}
	if bytes.Contains(store.Bytes(), []byte("secret")) {
		t.Fatalf("snapshot kept text spans")
	}
	if !e.CanUndo(0) {
		t.Fatalf("ai edit not recorded in history")
	}
}

func TestAIEditEmptyPrompt(t *testing.T) {
	calls := 0
	svc := aiedit.Func(func(ctx context.Context, cur raster.Encoded, prompt string) (raster.Encoded, error) {
		calls++
		return cur, nil
	})
	e := newEditor(t, blankDoc(t, 1, 10, 10), WithAIService(svc))
	if err := e.ApplyAIEdit(context.Background(), 0, "   "); !errors.Is(err, aiedit.ErrEmptyPrompt) {
		t.Fatalf("err = %v, want ErrEmptyPrompt", err)
	}
	if _, err := e.ApplyAIEditAll(context.Background(), nil, ""); !errors.Is(err, aiedit.ErrEmptyPrompt) {
		t.Fatalf("batch err = %v, want ErrEmptyPrompt", err)
	}
	if calls != 0 {
		t.Fatalf("service called %d times", calls)
	}
}

func TestAIEditWithoutService(t *testing.T) {
	e := newEditor(t, blankDoc(t, 1, 10, 10))
	if err := e.ApplyAIEdit(context.Background(), 0, "x"); !errors.Is(err, ErrNoService) {
		t.Fatalf("err = %v, want ErrNoService", err)
	}
}

func TestAIEditScopedToMarquee(t *testing.T) {
	var got string
	svc := aiedit.Func(func(ctx context.Context, cur raster.Encoded, prompt string) (raster.Encoded, error) {
		got = prompt
		return cur, nil
	})
	e := newEditor(t, blankDoc(t, 1, 10, 10), WithAIService(svc))
	e.Select(selection.Selection{Rect: selection.Rect{X: 10, Y: 20, W: 30, H: 40}, Space: selection.SpacePercent})
	if err := e.ApplyAIEdit(context.Background(), 0, "remove the stain"); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(got, "remove the stain") || !strings.Contains(got, "10.0% to 40.0%") {
		t.Fatalf("prompt = %q", got)
	}
}

func TestBatchCancelledAfterThirdPage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	calls := 0
	svc := aiedit.Func(func(ctx context.Context, cur raster.Encoded, prompt string) (raster.Encoded, error) {
		calls++
		if calls == 3 {
			cancel()
		}
		return raster.Encode(raster.Solid(20, 20, red), raster.PNG)
	})
	e := newEditor(t, blankDoc(t, 5, 20, 20), WithAIService(svc))
	rep, err := e.ApplyAIEditAll(ctx, nil, "redden")
	if err != nil {
		t.Fatalf("ApplyAIEditAll: %v", err)
	}
	if !rep.Cancelled || rep.Succeeded != 3 || rep.Total != 5 {
		t.Fatalf("report = %+v", rep)
	}
	d := e.Document()
	for i, p := range d.Pages {
		if want := i < 3; p.HasEdit() != want {
			t.Fatalf("page %d edited = %v, want %v", i, p.HasEdit(), want)
		}
	}
}

func TestBatchFailureStrategies(t *testing.T) {
	boom := errors.New("boom")
	failSecond := func() aiedit.Service {
		calls := 0
		return aiedit.Func(func(ctx context.Context, cur raster.Encoded, prompt string) (raster.Encoded, error) {
			calls++
			if calls == 2 {
				return "", boom
			}
			return cur, nil
		})
	}

	t.Run("lenient", func(t *testing.T) {
		e := newEditor(t, blankDoc(t, 3, 10, 10), WithAIService(failSecond()))
		rep, err := e.ApplyAIEditAll(context.Background(), nil, "x")
		if err != nil {
			t.Fatalf("err = %v", err)
		}
		if rep.Succeeded != 2 || rep.Failed != 1 || len(rep.Errors) != 1 || rep.Errors[0].Page != 1 {
			t.Fatalf("report = %+v", rep)
		}
		if !errors.Is(rep.Errors[0], boom) {
			t.Fatalf("page error does not wrap the cause")
		}
	})

	t.Run("strict", func(t *testing.T) {
		e := newEditor(t, blankDoc(t, 3, 10, 10),
			WithAIService(failSecond()),
			WithStrategy(func() recovery.Strategy { return recovery.NewStrictStrategy() }),
		)
		rep, err := e.ApplyAIEditAll(context.Background(), nil, "x")
		if !errors.Is(err, boom) {
			t.Fatalf("err = %v, want boom", err)
		}
		if rep.Succeeded != 1 || rep.Failed != 1 {
			t.Fatalf("report = %+v", rep)
		}
		if e.Document().Pages[2].HasEdit() {
			t.Fatalf("strict batch kept going")
		}
	})
}

func TestBatchRejectsBadRange(t *testing.T) {
	e := newEditor(t, blankDoc(t, 2, 10, 10))
	if _, err := e.ApplyBackground(context.Background(), []int{0, 4}, "#000", 0); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("err = %v, want ErrInvalidRange", err)
	}
}

func TestApplyBackground(t *testing.T) {
	img := raster.Solid(40, 40, white)
	raster.FillRect(img, image.Rect(10, 10, 20, 20), black)
	e := newEditor(t, document.New(page(t, img), page(t, raster.Solid(40, 40, white))))
	rep, err := e.ApplyBackground(context.Background(), nil, "#FF0000", 8)
	if err != nil || rep.Succeeded != 2 {
		t.Fatalf("ApplyBackground = %+v, %v", rep, err)
	}
	if got := surfaceAt(t, e, 0, 0); got != red {
		t.Fatalf("paper = %v, want red", got)
	}
	if got := surfaceAt(t, e, 15, 15); got != black {
		t.Fatalf("ink = %v, want black", got)
	}
	if e.Background() != "#FF0000" {
		t.Fatalf("background = %s", e.Background())
	}
	if got := decoded(t, e.Document().Pages[1].Edited).RGBAAt(5, 5); got != red {
		t.Fatalf("second page paper = %v", got)
	}
}

func TestApplyBackgroundNoChangeRecordsNothing(t *testing.T) {
	e := newEditor(t, blankDoc(t, 2, 30, 30))
	rep, err := e.ApplyBackground(context.Background(), nil, "#FFFFFF", 0)
	if err != nil || rep.Succeeded != 2 {
		t.Fatalf("ApplyBackground = %+v, %v", rep, err)
	}
	for i, p := range e.Document().Pages {
		if p.HasEdit() || e.CanUndo(i) {
			t.Errorf("page %d: edited=%v canUndo=%v, want untouched", i, p.HasEdit(), e.CanUndo(i))
		}
	}
}

func TestApplyLogo(t *testing.T) {
	e := newEditor(t, blankDoc(t, 1, 200, 100))
	logo := raster.Solid(10, 10, red)
	rep, err := e.ApplyLogo(context.Background(), nil, logo, Placement{Corner: "bottom-left", Scale: 0.1, Margin: 5})
	if err != nil || rep.Succeeded != 1 {
		t.Fatalf("ApplyLogo = %+v, %v", rep, err)
	}
	// 20x20 stamp at (5,75)
	if got := surfaceAt(t, e, 15, 85); !reddish(got) {
		t.Fatalf("logo pixel = %v, want red", got)
	}
	if got := surfaceAt(t, e, 150, 20); got != white {
		t.Fatalf("page outside logo = %v", got)
	}
}

func TestApplyPageNumbers(t *testing.T) {
	e := newEditor(t, blankDoc(t, 2, 200, 100))
	rep, err := e.ApplyPageNumbers(context.Background(), nil, DefaultPageNumbers)
	if err != nil || rep.Succeeded != 2 {
		t.Fatalf("ApplyPageNumbers = %+v, %v", rep, err)
	}
	for i, p := range e.Document().Pages {
		img := decoded(t, p.Edited)
		inked := false
		for y := 50; y < 100 && !inked; y++ {
			for x := 0; x < 200; x++ {
				if img.RGBAAt(x, y) != white {
					inked = true
					break
				}
			}
		}
		if !inked {
			t.Fatalf("page %d has no label", i)
		}
	}
}

func TestRestoreResetsState(t *testing.T) {
	e := newEditor(t, blankDoc(t, 2, 20, 20))
	stroke(t, e, image.Pt(2, 2), image.Pt(10, 2))
	snap := session.New(blankDoc(t, 3, 20, 20), 2)
	if err := e.Restore(snap); err != nil {
		t.Fatal(err)
	}
	if e.PageCount() != 3 || e.ActivePage() != 2 || e.CanUndo(0) {
		t.Fatalf("restore kept old state")
	}
}

func TestExport(t *testing.T) {
	e := newEditor(t, blankDoc(t, 2, 20, 20))
	out, err := e.Export(context.Background(), assemble.NewPDFWriter(assemble.Config{}))
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Fatalf("output is not a PDF")
	}
}

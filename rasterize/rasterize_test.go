package rasterize

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"testing"

	"golang.org/x/image/bmp"

	"github.com/wudi/pagekit/document"
	"github.com/wudi/pagekit/ocr"
	"github.com/wudi/pagekit/raster"
)

func pngSource(t *testing.T, w, h int) []byte {
	t.Helper()
	data, err := raster.EncodeBytes(raster.Solid(w, h, color.White), raster.PNG)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

type wordsEngine struct{ words []ocr.TextWord }

func (e wordsEngine) Name() string { return "words" }

func (e wordsEngine) Recognize(_ context.Context, in ocr.Input) (ocr.Result, error) {
	return ocr.Result{ID: in.ID, Blocks: []ocr.TextBlock{{Lines: []ocr.TextLine{{Words: e.words}}}}}, nil
}

func TestRenderPNGKeepsBytes(t *testing.T) {
	src := pngSource(t, 40, 20)
	out, err := NewImageRasterizer().Render(context.Background(), src, 1)
	if err != nil {
		t.Fatal(err)
	}
	if out.Width != 40 || out.Height != 20 {
		t.Fatalf("size %dx%d", out.Width, out.Height)
	}
	got, err := raster.Bytes(out.Pixels)
	if err != nil || !bytes.Equal(got, src) {
		t.Fatalf("png bytes not carried through")
	}
	if out.TextSpans != nil {
		t.Fatalf("spans without an OCR engine")
	}
}

func TestRenderBMPReencodes(t *testing.T) {
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, raster.Solid(6, 4, color.RGBA{10, 20, 30, 255})); err != nil {
		t.Fatal(err)
	}
	out, err := NewImageRasterizer().Render(context.Background(), buf.Bytes(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if raster.DetectFormat(out.Pixels) != raster.PNG {
		t.Fatalf("bmp page not re-encoded as png")
	}
	img, err := raster.Decode(out.Pixels)
	if err != nil {
		t.Fatal(err)
	}
	if c := img.RGBAAt(2, 2); c != (color.RGBA{10, 20, 30, 255}) {
		t.Fatalf("pixel = %v", c)
	}
}

func TestRenderWithOCRSpans(t *testing.T) {
	eng := wordsEngine{words: []ocr.TextWord{
		{Text: "Title", Bounds: ocr.Region{X: 20, Y: 10, Width: 40, Height: 5}},
		{Text: "", Bounds: ocr.Region{X: 1, Y: 1, Width: 1, Height: 1}},
	}}
	out, err := NewImageRasterizer(WithOCR(eng, "eng")).Render(context.Background(), pngSource(t, 200, 100), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.TextSpans) != 1 {
		t.Fatalf("spans = %+v", out.TextSpans)
	}
	s := out.TextSpans[0]
	if s.Left != 10 || s.Top != 10 || s.Width != 20 || s.Height != 5 {
		t.Fatalf("span in percent = %+v", s)
	}
}

func TestRenderErrors(t *testing.T) {
	r := NewImageRasterizer(WithLimits(raster.Limits{MaxDimension: 10, MaxPixels: 100}))
	ctx := context.Background()
	if _, err := r.Render(ctx, []byte("%PDF-1.7\n"), 1); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("pdf: %v", err)
	}
	if _, err := r.Render(ctx, pngSource(t, 4, 4), 2); !errors.Is(err, ErrPageRange) {
		t.Fatalf("page 2: %v", err)
	}
	if _, err := r.Render(ctx, []byte("plain text"), 1); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("garbage: %v", err)
	}
	if _, err := r.Render(ctx, pngSource(t, 40, 4), 1); !errors.Is(err, raster.ErrDecode) {
		t.Fatalf("oversized: %v", err)
	}
}

func TestLoadBuildsDocument(t *testing.T) {
	doc, err := Load(context.Background(), NewImageRasterizer(), pngSource(t, 8, 8), pngSource(t, 8, 8))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Len() != 2 || doc.Pages[1].Position != 2 {
		t.Fatalf("document = %+v", doc.Pages)
	}
	if err := doc.Validate(); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Load(ctx, NewImageRasterizer(), pngSource(t, 8, 8)); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled load: %v", err)
	}
}

func TestPageCountImage(t *testing.T) {
	if n, err := PageCount(pngSource(t, 2, 2)); err != nil || n != 1 {
		t.Fatalf("PageCount = %d, %v", n, err)
	}
}

func TestAnnotateFillsMissingSpans(t *testing.T) {
	enc := raster.FromBytes(pngSource(t, 100, 50))
	has := []document.TextSpan{{Text: "kept", Left: 1, Top: 1, Width: 1, Height: 1}}
	doc := document.New(
		document.NewPage(enc, 100, 50, nil),
		document.NewPage(enc, 100, 50, has),
	)
	eng := wordsEngine{words: []ocr.TextWord{{Text: "Total", Bounds: ocr.Region{X: 10, Y: 5, Width: 20, Height: 10}}}}
	n, err := Annotate(context.Background(), doc, eng, 144, "eng")
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	if n != 1 {
		t.Fatalf("spans added = %d, want 1", n)
	}
	got := doc.Pages[0].TextSpans
	if len(got) != 1 || got[0].Text != "Total" || got[0].Left != 10 || got[0].Top != 10 || got[0].Width != 20 {
		t.Fatalf("spans = %+v", got)
	}
	if doc.Pages[1].TextSpans[0].Text != "kept" {
		t.Fatalf("existing spans replaced")
	}
}

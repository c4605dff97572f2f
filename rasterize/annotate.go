package rasterize

import (
	"context"
	"fmt"

	"github.com/wudi/pagekit/document"
	"github.com/wudi/pagekit/ocr"
)

// Annotate recovers text spans for every page of doc that has none, from
// the page's original raster. Restored sessions need this: snapshots do
// not carry spans.
func Annotate(ctx context.Context, doc *document.Document, engine ocr.Engine, dpi int, languages ...string) (int, error) {
	if engine == nil {
		engine = ocr.DefaultEngine()
	}
	var (
		inputs []ocr.Input
		pages  []*document.Page
	)
	for i, p := range doc.Pages {
		if len(p.TextSpans) > 0 {
			continue
		}
		opts := []ocr.InputOption{ocr.WithLanguages(languages...)}
		if dpi > 0 {
			opts = append(opts, ocr.WithDPI(dpi))
		}
		in, err := ocr.InputFromRaster(i, p.Original, opts...)
		if err != nil {
			return 0, err
		}
		inputs = append(inputs, in)
		pages = append(pages, p)
	}
	if len(inputs) == 0 {
		return 0, nil
	}
	results, err := ocr.RecognizeAll(ctx, engine, inputs)
	if err != nil {
		return 0, fmt.Errorf("ocr %s: %w", engine.Name(), err)
	}
	n := 0
	for i, res := range results {
		p := pages[i]
		p.TextSpans = SpansFromWords(res.Words(), p.Width, p.Height)
		n += len(p.TextSpans)
	}
	return n, nil
}

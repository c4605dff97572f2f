// Package rasterize turns page sources into page rasters with the text
// geometry used for AI-mode click hit-testing.
package rasterize

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/wudi/pagekit/document"
	"github.com/wudi/pagekit/raster"
)

var (
	ErrUnsupported = errors.New("unsupported page source")
	ErrPageRange   = errors.New("page number out of range")
)

// Rendered is one rasterized page. TextSpans use percentages of the page
// dimensions.
type Rendered struct {
	Pixels    raster.Encoded
	Width     int
	Height    int
	TextSpans []document.TextSpan
}

// Rasterizer renders page pageNumber (1-based) of source.
type Rasterizer interface {
	Render(ctx context.Context, source []byte, pageNumber int) (Rendered, error)
}

var pdfMagic = []byte("%PDF-")

// IsPDF reports whether source starts with the PDF header.
func IsPDF(source []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(source, "\x00\t\r\n "), pdfMagic)
}

// PageCount returns the number of pages in source: the PDF page count for
// PDF sources and 1 for single images.
func PageCount(source []byte) (int, error) {
	if !IsPDF(source) {
		return 1, nil
	}
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	n, err := api.PageCount(bytes.NewReader(source), conf)
	if err != nil {
		return 0, fmt.Errorf("count pdf pages: %w", err)
	}
	return n, nil
}

// Load renders every page of every source, in order, into a new document.
func Load(ctx context.Context, r Rasterizer, sources ...[]byte) (*document.Document, error) {
	var pages []*document.Page
	for i, src := range sources {
		n, err := PageCount(src)
		if err != nil {
			return nil, fmt.Errorf("source %d: %w", i, err)
		}
		for p := 1; p <= n; p++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			out, err := r.Render(ctx, src, p)
			if err != nil {
				return nil, fmt.Errorf("source %d page %d: %w", i, p, err)
			}
			pages = append(pages, document.NewPage(out.Pixels, out.Width, out.Height, out.TextSpans))
		}
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: no pages", ErrUnsupported)
	}
	return document.New(pages...), nil
}

package rasterize

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/wudi/pagekit/document"
	"github.com/wudi/pagekit/observability"
	"github.com/wudi/pagekit/ocr"
	"github.com/wudi/pagekit/raster"
)

// ImageRasterizer renders single-image page sources: PNG, JPEG, TIFF and
// BMP. PNG and JPEG bytes are carried through unchanged; other formats are
// re-encoded as PNG. With an OCR engine, recognized words become text spans.
type ImageRasterizer struct {
	engine    ocr.Engine
	languages []string
	dpi       int
	limits    raster.Limits
	logger    observability.Logger
}

// Option configures an ImageRasterizer.
type Option func(*ImageRasterizer)

// WithOCR enables text spans from engine.
func WithOCR(engine ocr.Engine, languages ...string) Option {
	return func(r *ImageRasterizer) {
		r.engine = engine
		r.languages = languages
	}
}

// WithDPI passes the scan resolution to the OCR engine.
func WithDPI(dpi int) Option {
	return func(r *ImageRasterizer) { r.dpi = dpi }
}

// WithLimits overrides the decode size limits.
func WithLimits(l raster.Limits) Option {
	return func(r *ImageRasterizer) { r.limits = l }
}

func WithLogger(l observability.Logger) Option {
	return func(r *ImageRasterizer) { r.logger = observability.OrNop(l) }
}

// NewImageRasterizer creates the rasterizer.
func NewImageRasterizer(opts ...Option) *ImageRasterizer {
	r := &ImageRasterizer{limits: raster.DefaultLimits(), logger: observability.NopLogger{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *ImageRasterizer) Render(ctx context.Context, source []byte, pageNumber int) (Rendered, error) {
	if IsPDF(source) {
		return Rendered{}, fmt.Errorf("%w: pdf pages need a pdf rasterizer", ErrUnsupported)
	}
	if pageNumber != 1 {
		return Rendered{}, fmt.Errorf("%w: %d of 1", ErrPageRange, pageNumber)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(source))
	if err != nil {
		return Rendered{}, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	if err := r.limits.Check(cfg.Width, cfg.Height); err != nil {
		return Rendered{}, fmt.Errorf("%w: %v", raster.ErrDecode, err)
	}

	var pixels raster.Encoded
	switch format {
	case "png", "jpeg":
		pixels = raster.FromBytes(source)
	default:
		img, _, err := image.Decode(bytes.NewReader(source))
		if err != nil {
			return Rendered{}, fmt.Errorf("%w: %s: %v", raster.ErrDecode, format, err)
		}
		if pixels, err = raster.Encode(img, raster.PNG); err != nil {
			return Rendered{}, err
		}
	}
	out := Rendered{Pixels: pixels, Width: cfg.Width, Height: cfg.Height}

	if r.engine != nil {
		spans, err := r.spans(ctx, pixels, cfg.Width, cfg.Height)
		if err != nil {
			return Rendered{}, err
		}
		out.TextSpans = spans
	}
	r.logger.Debug("page rasterized",
		observability.String("format", format),
		observability.Int("width", cfg.Width),
		observability.Int("height", cfg.Height),
		observability.Int("spans", len(out.TextSpans)))
	return out, nil
}

func (r *ImageRasterizer) spans(ctx context.Context, pixels raster.Encoded, w, h int) ([]document.TextSpan, error) {
	opts := []ocr.InputOption{ocr.WithLanguages(r.languages...)}
	if r.dpi > 0 {
		opts = append(opts, ocr.WithDPI(r.dpi))
	}
	in, err := ocr.InputFromRaster(0, pixels, opts...)
	if err != nil {
		return nil, err
	}
	res, err := r.engine.Recognize(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("ocr %s: %w", r.engine.Name(), err)
	}
	return SpansFromWords(res.Words(), w, h), nil
}

// SpansFromWords converts pixel word boxes into percentage text spans.
func SpansFromWords(words []ocr.TextWord, width, height int) []document.TextSpan {
	if width <= 0 || height <= 0 {
		return nil
	}
	fw, fh := float64(width), float64(height)
	spans := make([]document.TextSpan, 0, len(words))
	for _, w := range words {
		if w.Text == "" || w.Bounds.IsEmpty() {
			continue
		}
		spans = append(spans, document.TextSpan{
			Text:   w.Text,
			Left:   w.Bounds.X * 100 / fw,
			Top:    w.Bounds.Y * 100 / fh,
			Width:  w.Bounds.Width * 100 / fw,
			Height: w.Bounds.Height * 100 / fh,
		})
	}
	return spans
}

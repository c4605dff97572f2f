// Package assemble builds the output document from the final page rasters.
package assemble

import (
	"bytes"
	"compress/zlib"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"sort"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/wudi/pagekit/observability"
	"github.com/wudi/pagekit/raster"
)

var (
	ErrNoPages = errors.New("nothing to assemble")
	ErrVerify  = errors.New("assembled document failed verification")
)

// PageImage is one page handed to the assembler.
type PageImage struct {
	PageNumber   int
	Final        raster.Encoded
	NativeWidth  int
	NativeHeight int
}

// Assembler produces document bytes from page images.
type Assembler interface {
	Assemble(ctx context.Context, pages []PageImage) ([]byte, error)
}

// DefaultDPI maps native pixels to PDF points (72 per inch).
const DefaultDPI = 144

// Config configures PDFWriter.
type Config struct {
	// DPI is the resolution the page rasters were rendered at.
	DPI float64
	// Verify re-reads the output with pdfcpu and checks the page count.
	Verify bool
	// Compression is the zlib level for lossless page images.
	Compression int
	Logger      observability.Logger
}

// PDFWriter writes an image-only PDF: one page per raster, each page
// showing one image XObject scaled to the full media box. JPEG rasters are
// embedded as-is with DCTDecode; everything else is stored as Flate
// compressed 8-bit RGB.
type PDFWriter struct {
	cfg Config
}

// NewPDFWriter creates the writer.
func NewPDFWriter(cfg Config) *PDFWriter {
	if cfg.DPI <= 0 {
		cfg.DPI = DefaultDPI
	}
	if cfg.Compression == 0 {
		cfg.Compression = zlib.BestCompression
	}
	cfg.Logger = observability.OrNop(cfg.Logger)
	return &PDFWriter{cfg: cfg}
}

func (w *PDFWriter) Assemble(ctx context.Context, pages []PageImage) ([]byte, error) {
	if len(pages) == 0 {
		return nil, ErrNoPages
	}
	start := time.Now()
	ordered := append([]PageImage(nil), pages...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].PageNumber < ordered[j].PageNumber })

	f := &file{}
	catalog := f.add(nil)
	tree := f.add(nil)
	kids := make(array, 0, len(ordered))
	for _, p := range ordered {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := w.imageObject(p)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", p.PageNumber, err)
		}
		width, height := p.NativeWidth, p.NativeHeight
		if width <= 0 || height <= 0 {
			width, height = img.dict["Width"].(int), img.dict["Height"].(int)
		}
		pw := float64(width) * 72 / w.cfg.DPI
		ph := float64(height) * 72 / w.cfg.DPI
		imgRef := f.add(img)
		content := f.add(&stream{
			dict: dict{},
			data: []byte(fmt.Sprintf("q %s 0 0 %s 0 0 cm /Im0 Do Q", formatNumber(pw), formatNumber(ph))),
		})
		page := f.add(dict{
			"Type":      name("Page"),
			"Parent":    tree,
			"MediaBox":  array{0, 0, pw, ph},
			"Resources": dict{"XObject": dict{"Im0": imgRef}},
			"Contents":  content,
		})
		kids = append(kids, page)
	}
	f.set(tree, dict{"Type": name("Pages"), "Kids": kids, "Count": len(kids)})
	f.set(catalog, dict{"Type": name("Catalog"), "Pages": tree})
	out := f.bytes(catalog)

	if w.cfg.Verify {
		if err := verify(out, len(ordered)); err != nil {
			return nil, err
		}
	}
	w.cfg.Logger.Info("document assembled",
		observability.Int("pages", len(ordered)),
		observability.Int("bytes", len(out)),
		observability.Duration(observability.MetricAssembleTime, time.Since(start)))
	return out, nil
}

func (w *PDFWriter) imageObject(p PageImage) (*stream, error) {
	data, err := raster.Bytes(p.Final)
	if err != nil {
		return nil, err
	}
	if raster.DetectBytes(data) == raster.JPEG {
		cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: jpeg header: %v", raster.ErrDecode, err)
		}
		space := name("DeviceRGB")
		switch cfg.ColorModel {
		case color.GrayModel:
			space = "DeviceGray"
		case color.CMYKModel:
			space = "DeviceCMYK"
		}
		d := imageDict(cfg.Width, cfg.Height, space)
		d["Filter"] = name("DCTDecode")
		if space == "DeviceCMYK" {
			// Adobe CMYK JPEGs are stored inverted.
			d["Decode"] = array{1, 0, 1, 0, 1, 0, 1, 0}
		}
		return &stream{dict: d, data: data}, nil
	}

	img, err := raster.Decode(p.Final)
	if err != nil {
		return nil, err
	}
	rgb, err := w.flateRGB(img)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	d := imageDict(b.Dx(), b.Dy(), "DeviceRGB")
	d["Filter"] = name("FlateDecode")
	return &stream{dict: d, data: rgb}, nil
}

func imageDict(w, h int, space name) dict {
	return dict{
		"Type":             name("XObject"),
		"Subtype":          name("Image"),
		"Width":            w,
		"Height":           h,
		"ColorSpace":       space,
		"BitsPerComponent": 8,
	}
}

// flateRGB drops alpha by compositing over white and compresses the
// samples.
func (w *PDFWriter) flateRGB(img *image.RGBA) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, w.cfg.Compression)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	row := make([]byte, 0, b.Dx()*3)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row = row[:0]
		for x := b.Min.X; x < b.Max.X; x++ {
			i := img.PixOffset(x, y)
			r, g, bl, a := img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3]
			if a != 255 {
				// premultiplied: add the white showing through
				r, g, bl = r+255-a, g+255-a, bl+255-a
			}
			row = append(row, r, g, bl)
		}
		if _, err := zw.Write(row); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func verify(out []byte, want int) error {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	n, err := api.PageCount(bytes.NewReader(out), conf)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVerify, err)
	}
	if n != want {
		return fmt.Errorf("%w: %d pages, want %d", ErrVerify, n, want)
	}
	return nil
}

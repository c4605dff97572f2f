package ocr

import (
	"context"

	"github.com/wudi/pagekit/raster"
)

// Region is a pixel rectangle with its origin at the image's top-left.
type Region struct {
	X, Y          float64
	Width, Height float64
}

// IsEmpty reports whether r covers no area.
func (r Region) IsEmpty() bool { return r.Width <= 0 || r.Height <= 0 }

// Input is one page raster handed to an Engine.
type Input struct {
	ID        string
	PageIndex int
	Image     []byte
	Format    raster.Format
	// DPI of the raster; 0 when unknown.
	DPI       int
	Languages []string
	// Region limits recognition. nil means the whole image.
	Region *Region
	// Vars are engine variables, e.g. tesseract's tessedit_* settings.
	Vars map[string]string
}

// TextWord is one recognised word and its box.
type TextWord struct {
	Text       string
	Bounds     Region
	Confidence float64
}

// TextLine groups the words of one line.
type TextLine struct {
	Text   string
	Bounds Region
	Words  []TextWord
}

// TextBlock groups lines of one layout block.
type TextBlock struct {
	Bounds Region
	Lines  []TextLine
}

// Result is what an Engine found in one Input.
type Result struct {
	ID     string
	Text   string
	Blocks []TextBlock
	// Confidence is the mean word confidence, 0..1.
	Confidence float64
}

// Words returns every word in block, line, word order.
func (r Result) Words() []TextWord {
	var out []TextWord
	for _, b := range r.Blocks {
		for _, l := range b.Lines {
			out = append(out, l.Words...)
		}
	}
	return out
}

// Engine recognises text in page rasters.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, in Input) (Result, error)
}

// BatchEngine is an Engine that can reuse its setup across inputs.
type BatchEngine interface {
	Engine
	RecognizeBatch(ctx context.Context, in []Input) ([]Result, error)
}

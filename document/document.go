// Package document holds the ordered page collection of an editing session
// and the structural operations on it. Every structural operation returns an
// IndexMap so auxiliary per-page state keyed by index can be relocated.
package document

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/wudi/pagekit/raster"
)

var (
	ErrIndexOutOfRange = errors.New("page index out of range")
	ErrLastPage        = errors.New("cannot delete the last remaining page")
	ErrNoPage          = errors.New("page is nil")
)

// TextSpan is a run of original text reported by the rasterizer. Coordinates
// are percentages of the page dimensions so they survive display scaling.
type TextSpan struct {
	Text   string  `json:"text"`
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Page is one rasterized page. Position is derived (index+1) and recomputed
// after every structural change; ID is the stable identity.
type Page struct {
	ID        string         `json:"id"`
	Position  int            `json:"position"`
	Original  raster.Encoded `json:"original"`
	Edited    raster.Encoded `json:"edited,omitempty"`
	Width     int            `json:"width"`
	Height    int            `json:"height"`
	TextSpans []TextSpan     `json:"textSpans,omitempty"`
}

// NewPage creates a page from rasterizer output.
func NewPage(original raster.Encoded, width, height int, spans []TextSpan) *Page {
	return &Page{
		ID:        uuid.NewString(),
		Original:  original,
		Width:     width,
		Height:    height,
		TextSpans: spans,
	}
}

// Current is the raster the page displays: the edit if one exists, otherwise
// the original.
func (p *Page) Current() raster.Encoded {
	if !p.Edited.IsEmpty() {
		return p.Edited
	}
	return p.Original
}

// HasEdit reports whether the page carries an edited raster.
func (p *Page) HasEdit() bool { return !p.Edited.IsEmpty() }

// Clone returns a copy with a fresh identity, the same raster content and no
// text spans.
func (p *Page) Clone() *Page {
	return &Page{
		ID:       uuid.NewString(),
		Original: p.Original,
		Edited:   p.Edited,
		Width:    p.Width,
		Height:   p.Height,
	}
}

// Document is the authoritative ordered page list.
type Document struct {
	Pages []*Page `json:"pages"`
}

// New builds a document from pages and numbers them.
func New(pages ...*Page) *Document {
	d := &Document{Pages: append([]*Page(nil), pages...)}
	d.renumber()
	return d
}

// Len returns the page count.
func (d *Document) Len() int { return len(d.Pages) }

// Page returns the page at index i.
func (d *Document) Page(i int) (*Page, error) {
	if i < 0 || i >= len(d.Pages) {
		return nil, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(d.Pages))
	}
	return d.Pages[i], nil
}

// Copy returns a shallow copy of the document whose Page structs are copied.
// Raster strings are immutable, so the copy is safe to hand to another
// goroutine while the original keeps changing.
func (d *Document) Copy() *Document {
	out := &Document{Pages: make([]*Page, len(d.Pages))}
	for i, p := range d.Pages {
		cp := *p
		cp.TextSpans = append([]TextSpan(nil), p.TextSpans...)
		out.Pages[i] = &cp
	}
	return out
}

// Validate checks the Position invariant and page sanity.
func (d *Document) Validate() error {
	if len(d.Pages) == 0 {
		return errors.New("document has no pages")
	}
	for i, p := range d.Pages {
		if p == nil {
			return fmt.Errorf("page %d: %w", i, ErrNoPage)
		}
		if p.Position != i+1 {
			return fmt.Errorf("page %d: position %d, want %d", i, p.Position, i+1)
		}
		if p.Original.IsEmpty() {
			return fmt.Errorf("page %d: missing original raster", i)
		}
	}
	return nil
}

func (d *Document) renumber() {
	for i, p := range d.Pages {
		p.Position = i + 1
	}
}

func (d *Document) checkIndex(i int) error {
	if i < 0 || i >= len(d.Pages) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(d.Pages))
	}
	return nil
}

// Package selection implements rectangular marquee selection and a
// one-slot pixel clipboard over a page raster.
//
// Selections live in one of two coordinate spaces: percentages of the
// displayed image (AI mode) or native raster pixels (direct mode). The
// engine only moves pixels; recording history around a change is up to
// the caller.
package selection

import (
	"errors"
	"image"
	"image/color"
	"math"

	"github.com/wudi/pagekit/raster"
)

var (
	ErrNoSelection    = errors.New("no active selection")
	ErrEmptyClipboard = errors.New("clipboard is empty")
	ErrEmptyRegion    = errors.New("selection does not cover any pixels")
)

// Space is the coordinate space of a selection.
type Space int

const (
	// SpacePercent coordinates are percentages of the displayed image.
	SpacePercent Space = iota
	// SpacePixel coordinates are native raster pixels.
	SpacePixel
)

func (s Space) String() string {
	if s == SpacePixel {
		return "pixel"
	}
	return "percent"
}

// Rect is a selection rectangle: origin plus size.
type Rect struct {
	X, Y, W, H float64
}

// Selection is a Rect tagged with its coordinate space.
type Selection struct {
	Rect
	Space Space
}

// Pixels converts the selection to a pixel rectangle on an image with the
// given bounds, clipped to them.
func (s Selection) Pixels(bounds image.Rectangle) image.Rectangle {
	x, y, w, h := s.X, s.Y, s.W, s.H
	if s.Space == SpacePercent {
		bw, bh := float64(bounds.Dx()), float64(bounds.Dy())
		x, y, w, h = x*bw/100, y*bh/100, w*bw/100, h*bh/100
	}
	r := image.Rect(
		int(math.Round(x)), int(math.Round(y)),
		int(math.Round(x+w)), int(math.Round(y+h)),
	).Add(bounds.Min)
	return r.Intersect(bounds)
}

// Clipboard holds one captured pixel region and the space it came from.
type Clipboard struct {
	Pixels *image.RGBA
	Space  Space
}

// Engine holds the active selection and the clipboard.
type Engine struct {
	active *Selection
	clip   *Clipboard
}

// New returns an engine with no selection and an empty clipboard.
func New() *Engine { return &Engine{} }

// Select makes sel the active selection.
func (e *Engine) Select(sel Selection) {
	e.active = &sel
}

// Clear drops the active selection. The clipboard is kept.
func (e *Engine) Clear() { e.active = nil }

// Active returns the active selection.
func (e *Engine) Active() (Selection, bool) {
	if e.active == nil {
		return Selection{}, false
	}
	return *e.active, true
}

// Clipboard returns the clipboard content.
func (e *Engine) Clipboard() (Clipboard, bool) {
	if e.clip == nil {
		return Clipboard{}, false
	}
	return *e.clip, true
}

func (e *Engine) region(surface *image.RGBA) (image.Rectangle, error) {
	if e.active == nil {
		return image.Rectangle{}, ErrNoSelection
	}
	r := e.active.Pixels(surface.Bounds())
	if r.Empty() {
		return image.Rectangle{}, ErrEmptyRegion
	}
	return r, nil
}

// Copy captures the selected region into the clipboard.
func (e *Engine) Copy(surface *image.RGBA) (image.Rectangle, error) {
	r, err := e.region(surface)
	if err != nil {
		return r, err
	}
	e.clip = &Clipboard{Pixels: raster.Crop(surface, r), Space: e.active.Space}
	return r, nil
}

// Cut copies the region and fills it with bg.
func (e *Engine) Cut(surface *image.RGBA, bg color.Color) (image.Rectangle, error) {
	r, err := e.Copy(surface)
	if err != nil {
		return r, err
	}
	raster.FillRect(surface, r, bg)
	return r, nil
}

// Delete fills the region with bg without touching the clipboard.
func (e *Engine) Delete(surface *image.RGBA, bg color.Color) (image.Rectangle, error) {
	r, err := e.region(surface)
	if err != nil {
		return r, err
	}
	raster.FillRect(surface, r, bg)
	return r, nil
}

// Paste writes the clipboard at the active selection's origin, or centred
// on the surface when nothing is selected. It returns the rectangle
// written.
func (e *Engine) Paste(surface *image.RGBA) (image.Rectangle, error) {
	if e.clip == nil || e.clip.Pixels == nil {
		return image.Rectangle{}, ErrEmptyClipboard
	}
	b := surface.Bounds()
	size := e.clip.Pixels.Bounds().Size()
	var at image.Point
	if e.active != nil {
		at = e.active.Pixels(b).Min
		if e.active.Pixels(b).Empty() {
			at = b.Min
		}
	} else {
		at = b.Min.Add(image.Pt((b.Dx()-size.X)/2, (b.Dy()-size.Y)/2))
	}
	r := raster.Paste(surface, e.clip.Pixels, at)
	if r.Empty() {
		return r, ErrEmptyRegion
	}
	return r, nil
}

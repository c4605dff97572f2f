package selection

import "math"

// Gesture thresholds. AI-mode values are percentage points of the displayed
// image, the direct-mode value is native pixels. Each mode classifies a
// borderline press with its own values.
const (
	// AIStartThreshold is the travel beyond which an AI-mode press becomes
	// a marquee drag.
	AIStartThreshold = 2.0
	// AIMinSize is the smallest AI-mode marquee kept; anything narrower or
	// shorter is treated as a click.
	AIMinSize = 3.0
	// DirectMinSize is the size a direct-mode marquee must exceed in both
	// dimensions to be kept.
	DirectMinSize = 5.0
)

// Gesture tracks one pointer press from down to up.
type Gesture struct {
	space   Space
	x0, y0  float64
	x1, y1  float64
	active  bool
	started bool
}

// Begin starts tracking at (x, y), given in the coordinates of space.
func (g *Gesture) Begin(space Space, x, y float64) {
	*g = Gesture{space: space, x0: x, y0: y, x1: x, y1: y, active: true}
	if space == SpacePixel {
		g.started = true
	}
}

// Active reports whether a press is being tracked.
func (g *Gesture) Active() bool { return g.active }

// Started reports whether the press has become a marquee drag.
func (g *Gesture) Started() bool { return g.active && g.started }

// Update records pointer travel and reports whether the press is a drag.
func (g *Gesture) Update(x, y float64) bool {
	if !g.active {
		return false
	}
	g.x1, g.y1 = x, y
	if !g.started && math.Max(math.Abs(x-g.x0), math.Abs(y-g.y0)) > AIStartThreshold {
		g.started = true
	}
	return g.started
}

// Current returns the marquee spanned so far.
func (g *Gesture) Current() Rect {
	return normalize(g.x0, g.y0, g.x1, g.y1)
}

// End finishes the press at (x, y). ok is false when the press was a click:
// it never started a drag or the marquee is below the minimum size of its
// space.
func (g *Gesture) End(x, y float64) (Rect, bool) {
	if !g.active {
		return Rect{}, false
	}
	g.Update(x, y)
	r := g.Current()
	started := g.started
	g.active, g.started = false, false
	if !started {
		return Rect{}, false
	}
	switch g.space {
	case SpacePercent:
		if r.W < AIMinSize || r.H < AIMinSize {
			return Rect{}, false
		}
	default:
		if r.W <= DirectMinSize || r.H <= DirectMinSize {
			return Rect{}, false
		}
	}
	return r, true
}

// Cancel drops the press.
func (g *Gesture) Cancel() { *g = Gesture{} }

func normalize(x0, y0, x1, y1 float64) Rect {
	return Rect{
		X: math.Min(x0, x1),
		Y: math.Min(y0, y1),
		W: math.Abs(x1 - x0),
		H: math.Abs(y1 - y0),
	}
}

// DisplayToNative converts a display coordinate to native pixels for an
// image displayed displayedWidth wide whose raster is nativeWidth wide.
func DisplayToNative(v, displayedWidth, nativeWidth float64) float64 {
	if displayedWidth <= 0 {
		return v
	}
	return v * nativeWidth / displayedWidth
}

// DisplayToPercent converts a display coordinate to a percentage of the
// displayed extent.
func DisplayToPercent(v, displayedExtent float64) float64 {
	if displayedExtent <= 0 {
		return 0
	}
	return v * 100 / displayedExtent
}

package document

import "math"

// SpanTolerance is the radius, in percentage points, around a span centre
// that still counts as a hit in AI-mode click testing.
const SpanTolerance = 1.5

// HitTestSpan returns the first span, in stored order, that contains the
// point or whose centre lies within tolerance of it. Coordinates are
// percentages of the page size. There is no distance-based tie break.
func HitTestSpan(spans []TextSpan, xPct, yPct, tolerance float64) (int, bool) {
	for i, s := range spans {
		if xPct >= s.Left && xPct <= s.Left+s.Width && yPct >= s.Top && yPct <= s.Top+s.Height {
			return i, true
		}
		cx := s.Left + s.Width/2
		cy := s.Top + s.Height/2
		if math.Hypot(xPct-cx, yPct-cy) <= tolerance {
			return i, true
		}
	}
	return -1, false
}

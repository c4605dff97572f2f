// Package paint draws the freehand and shape primitives of the direct-edit
// tools onto RGBA page buffers. All functions clip to the destination bounds.
package paint

import (
	"image"
	"image/color"
	"math"
)

// Shape selects the outline drawn by the shape tool.
type Shape int

const (
	ShapeRect Shape = iota
	ShapeEllipse
	ShapeLine
	ShapeArrow
)

func (s Shape) String() string {
	switch s {
	case ShapeEllipse:
		return "ellipse"
	case ShapeLine:
		return "line"
	case ShapeArrow:
		return "arrow"
	default:
		return "rect"
	}
}

// Dot stamps a square brush of the given width centred on p.
func Dot(img *image.RGBA, p image.Point, col color.Color, width int) {
	if width < 1 {
		width = 1
	}
	r := width / 2
	rect := image.Rect(p.X-r, p.Y-r, p.X-r+width, p.Y-r+width).Intersect(img.Bounds())
	c := color.RGBAModel.Convert(col).(color.RGBA)
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

// Line draws a Bresenham line from a to b with a square brush.
func Line(img *image.RGBA, a, b image.Point, col color.Color, width int) {
	x0, y0, x1, y1 := a.X, a.Y, b.X, b.Y
	dx := int(math.Abs(float64(x1 - x0)))
	dy := int(math.Abs(float64(y1 - y0)))
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy
	for {
		Dot(img, image.Pt(x0, y0), col, width)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// Stroke joins consecutive points with lines. A single point is drawn as a dot.
func Stroke(img *image.RGBA, pts []image.Point, col color.Color, width int) {
	switch len(pts) {
	case 0:
		return
	case 1:
		Dot(img, pts[0], col, width)
		return
	}
	for i := 1; i < len(pts); i++ {
		Line(img, pts[i-1], pts[i], col, width)
	}
}

// Rect outlines r.
func Rect(img *image.RGBA, r image.Rectangle, col color.Color, width int) {
	r = r.Canon()
	if r.Empty() {
		return
	}
	Line(img, image.Pt(r.Min.X, r.Min.Y), image.Pt(r.Max.X-1, r.Min.Y), col, width)
	Line(img, image.Pt(r.Max.X-1, r.Min.Y), image.Pt(r.Max.X-1, r.Max.Y-1), col, width)
	Line(img, image.Pt(r.Max.X-1, r.Max.Y-1), image.Pt(r.Min.X, r.Max.Y-1), col, width)
	Line(img, image.Pt(r.Min.X, r.Max.Y-1), image.Pt(r.Min.X, r.Min.Y), col, width)
}

// Ellipse outlines the ellipse inscribed in r.
func Ellipse(img *image.RGBA, r image.Rectangle, col color.Color, width int) {
	r = r.Canon()
	if r.Empty() {
		return
	}
	cx := (r.Min.X + r.Max.X) / 2
	cy := (r.Min.Y + r.Max.Y) / 2
	rx := r.Dx() / 2
	ry := r.Dy() / 2
	steps := int(math.Ceil(2 * math.Pi * math.Sqrt(float64(rx*rx+ry*ry))))
	if steps < 8 {
		steps = 8
	}
	var prev image.Point
	for i := 0; i <= steps; i++ {
		angle := 2 * math.Pi * float64(i) / float64(steps)
		p := image.Pt(cx+int(math.Cos(angle)*float64(rx)), cy+int(math.Sin(angle)*float64(ry)))
		if i > 0 {
			Line(img, prev, p, col, width)
		}
		prev = p
	}
}

// Arrow draws a line from a to b with a head at b.
func Arrow(img *image.RGBA, a, b image.Point, col color.Color, width int) {
	Line(img, a, b, col, width)
	angle := math.Atan2(float64(b.Y-a.Y), float64(b.X-a.X))
	size := float64(6 + width*2)
	for _, da := range []float64{math.Pi / 6, -math.Pi / 6} {
		h := image.Pt(b.X-int(math.Cos(angle+da)*size), b.Y-int(math.Sin(angle+da)*size))
		Line(img, b, h, col, width)
	}
}

// DrawShape renders s spanning from a to b.
func DrawShape(img *image.RGBA, s Shape, a, b image.Point, col color.Color, width int) {
	switch s {
	case ShapeEllipse:
		Ellipse(img, image.Rectangle{Min: a, Max: b}.Canon(), col, width)
	case ShapeLine:
		Line(img, a, b, col, width)
	case ShapeArrow:
		Arrow(img, a, b, col, width)
	default:
		Rect(img, image.Rectangle{Min: a, Max: b}.Canon(), col, width)
	}
}

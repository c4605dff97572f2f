package raster

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

var ErrSizeMismatch = errors.New("raster sizes differ")

// Clone returns a deep copy of img.
func Clone(img *image.RGBA) *image.RGBA {
	if img == nil {
		return nil
	}
	out := &image.RGBA{
		Pix:    make([]byte, len(img.Pix)),
		Stride: img.Stride,
		Rect:   img.Rect,
	}
	copy(out.Pix, img.Pix)
	return out
}

// Equal reports whether a and b have the same bounds and pixels.
func Equal(a, b *image.RGBA) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Rect != b.Rect {
		return false
	}
	if a.Stride == b.Stride {
		return bytes.Equal(a.Pix, b.Pix)
	}
	for y := a.Rect.Min.Y; y < a.Rect.Max.Y; y++ {
		ra := a.Pix[a.PixOffset(a.Rect.Min.X, y):a.PixOffset(a.Rect.Max.X, y)]
		rb := b.Pix[b.PixOffset(b.Rect.Min.X, y):b.PixOffset(b.Rect.Max.X, y)]
		if !bytes.Equal(ra, rb) {
			return false
		}
	}
	return true
}

// MergeDelta copies into base every pixel whose channel values differ between
// before and after. Pixels that did not change are left as they are in base.
// It returns the number of pixels written.
func MergeDelta(base, before, after *image.RGBA) (int, error) {
	if base.Rect != before.Rect || before.Rect != after.Rect {
		return 0, ErrSizeMismatch
	}
	changed := 0
	r := base.Rect
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			ib := before.PixOffset(x, y)
			ia := after.PixOffset(x, y)
			if before.Pix[ib] == after.Pix[ia] &&
				before.Pix[ib+1] == after.Pix[ia+1] &&
				before.Pix[ib+2] == after.Pix[ia+2] &&
				before.Pix[ib+3] == after.Pix[ia+3] {
				continue
			}
			io := base.PixOffset(x, y)
			copy(base.Pix[io:io+4], after.Pix[ia:ia+4])
			changed++
		}
	}
	return changed, nil
}

// Solid returns a w x h buffer filled with c.
func Solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

// FillRect overwrites r (clipped to img) with c.
func FillRect(img *image.RGBA, r image.Rectangle, c color.Color) {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
}

// Crop returns a copy of rect from img, anchored at (0,0). Parts of rect that
// fall outside img are left transparent.
func Crop(img *image.RGBA, rect image.Rectangle) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	src := rect.Intersect(img.Bounds())
	if !src.Empty() {
		draw.Draw(out, src.Sub(rect.Min), img, src.Min, draw.Src)
	}
	return out
}

// Paste writes src into dst with its top-left corner at at, replacing the
// destination pixels. It returns the rectangle of dst that was written.
func Paste(dst *image.RGBA, src image.Image, at image.Point) image.Rectangle {
	sb := src.Bounds()
	r := image.Rectangle{Min: at, Max: at.Add(sb.Size())}
	clipped := r.Intersect(dst.Bounds())
	if clipped.Empty() {
		return image.Rectangle{}
	}
	draw.Draw(dst, clipped, src, sb.Min.Add(clipped.Min.Sub(at)), draw.Src)
	return clipped
}

// OverlayScaled scales src into r and alpha-blends it over dst.
func OverlayScaled(dst *image.RGBA, r image.Rectangle, src image.Image) {
	xdraw.CatmullRom.Scale(dst, r, src, src.Bounds(), draw.Over, nil)
}

// ScaleToFit returns a w x h buffer with src scaled to fit inside, preserving
// aspect ratio, centred, and padded with bg. When src already has the target
// size the result is a plain copy.
func ScaleToFit(src image.Image, w, h int, bg color.Color) *image.RGBA {
	sb := src.Bounds()
	if sb.Dx() == w && sb.Dy() == h {
		return ToRGBA(src)
	}
	dst := Solid(w, h, bg)
	if sb.Empty() || w <= 0 || h <= 0 {
		return dst
	}
	sx := float64(w) / float64(sb.Dx())
	sy := float64(h) / float64(sb.Dy())
	s := sx
	if sy < s {
		s = sy
	}
	tw := int(float64(sb.Dx())*s + 0.5)
	th := int(float64(sb.Dy())*s + 0.5)
	if tw < 1 {
		tw = 1
	}
	if th < 1 {
		th = 1
	}
	off := image.Pt((w-tw)/2, (h-th)/2)
	target := image.Rectangle{Min: off, Max: off.Add(image.Pt(tw, th))}
	xdraw.CatmullRom.Scale(dst, target, src, sb, draw.Over, nil)
	return dst
}

// ReplaceNear recolours every opaque pixel within tolerance (per channel) of
// match with repl and returns the number of pixels changed.
func ReplaceNear(img *image.RGBA, match, repl color.RGBA, tolerance uint8) int {
	n := 0
	for i := 0; i+3 < len(img.Pix); i += 4 {
		if img.Pix[i+3] != 255 {
			continue
		}
		if near(img.Pix[i], match.R, tolerance) && near(img.Pix[i+1], match.G, tolerance) && near(img.Pix[i+2], match.B, tolerance) {
			img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = repl.R, repl.G, repl.B, repl.A
			n++
		}
	}
	return n
}

func near(a, b, tol uint8) bool {
	if a > b {
		return a-b <= tol
	}
	return b-a <= tol
}

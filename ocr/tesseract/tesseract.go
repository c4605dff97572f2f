// Package tesseract backs ocr.Engine with the Tesseract library through
// gosseract. Importing it registers the engine as ocr's default.
package tesseract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"math"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/wudi/pagekit/ocr"
)

func init() {
	ocr.SetDefaultEngine(New())
}

var errRegionOutside = errors.New("region outside image bounds")

// Engine runs Tesseract with a fresh client per image.
type Engine struct {
	newClient func() *gosseract.Client
}

// New constructs the engine.
func New() *Engine {
	return &Engine{newClient: gosseract.NewClient}
}

func (e *Engine) Name() string { return "tesseract" }

// Recognize performs word-level recognition on one image.
func (e *Engine) Recognize(ctx context.Context, in ocr.Input) (ocr.Result, error) {
	if err := ctx.Err(); err != nil {
		return ocr.Result{}, err
	}
	c := e.newClient()
	defer c.Close()
	return recognize(c, in)
}

// RecognizeBatch processes inputs one after another, stopping at the first
// failure or cancellation.
func (e *Engine) RecognizeBatch(ctx context.Context, inputs []ocr.Input) ([]ocr.Result, error) {
	results := make([]ocr.Result, 0, len(inputs))
	for _, in := range inputs {
		res, err := e.Recognize(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("recognize %s: %w", in.ID, err)
		}
		results = append(results, res)
	}
	return results, nil
}

func recognize(c *gosseract.Client, in ocr.Input) (ocr.Result, error) {
	data, offset, err := crop(in.Image, in.Region)
	if err != nil {
		return ocr.Result{}, err
	}
	if err := c.SetImageFromBytes(data); err != nil {
		return ocr.Result{}, fmt.Errorf("set image: %w", err)
	}
	if len(in.Languages) > 0 {
		if err := c.SetLanguage(in.Languages...); err != nil {
			return ocr.Result{}, fmt.Errorf("set languages: %w", err)
		}
	}
	if in.DPI > 0 {
		if err := c.SetVariable("user_defined_dpi", fmt.Sprint(in.DPI)); err != nil {
			return ocr.Result{}, fmt.Errorf("set dpi: %w", err)
		}
	}
	for k, v := range in.Vars {
		if err := c.SetVariable(gosseract.SettableVariable(k), v); err != nil {
			return ocr.Result{}, fmt.Errorf("set variable %s: %w", k, err)
		}
	}
	text, err := c.Text()
	if err != nil {
		return ocr.Result{}, fmt.Errorf("recognize text: %w", err)
	}
	plain := strings.TrimSpace(text)

	lines, conf := lines(c, offset)
	res := ocr.Result{ID: in.ID, Text: plain, Confidence: conf}
	if len(lines) > 0 {
		res.Blocks = []ocr.TextBlock{{Bounds: union(lineBounds(lines)), Lines: lines}}
	}
	return res, nil
}

// lines groups word boxes by the text line Tesseract reports them on.
// Coordinates are shifted back by offset when a region was cropped.
func lines(c *gosseract.Client, offset image.Point) ([]ocr.TextLine, float64) {
	boxes, err := c.GetBoundingBoxesVerbose()
	if err != nil || len(boxes) == 0 {
		return nil, 0
	}
	type key struct{ block, par, line int }
	var (
		out   []ocr.TextLine
		index = map[key]int{}
		sum   float64
		n     int
	)
	for _, b := range boxes {
		word := strings.TrimSpace(b.Word)
		if word == "" {
			continue
		}
		r := b.Box.Add(offset)
		w := ocr.TextWord{
			Text:       word,
			Bounds:     ocr.Region{X: float64(r.Min.X), Y: float64(r.Min.Y), Width: float64(r.Dx()), Height: float64(r.Dy())},
			Confidence: b.Confidence / 100,
		}
		k := key{b.BlockNum, b.ParNum, b.LineNum}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, ocr.TextLine{})
		}
		out[i].Words = append(out[i].Words, w)
		sum += w.Confidence
		n++
	}
	for i := range out {
		l := &out[i]
		texts := make([]string, len(l.Words))
		for j, w := range l.Words {
			texts[j] = w.Text
		}
		l.Text = strings.Join(texts, " ")
		l.Bounds = union(wordBounds(l.Words))
	}
	if n == 0 {
		return nil, 0
	}
	return out, sum / float64(n)
}

func wordBounds(ws []ocr.TextWord) []ocr.Region {
	out := make([]ocr.Region, len(ws))
	for i, w := range ws {
		out[i] = w.Bounds
	}
	return out
}

func lineBounds(ls []ocr.TextLine) []ocr.Region {
	out := make([]ocr.Region, len(ls))
	for i, l := range ls {
		out[i] = l.Bounds
	}
	return out
}

func union(rs []ocr.Region) ocr.Region {
	if len(rs) == 0 {
		return ocr.Region{}
	}
	minX, minY := math.MaxFloat64, math.MaxFloat64
	var maxX, maxY float64
	for _, r := range rs {
		minX = math.Min(minX, r.X)
		minY = math.Min(minY, r.Y)
		maxX = math.Max(maxX, r.X+r.Width)
		maxY = math.Max(maxY, r.Y+r.Height)
	}
	return ocr.Region{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// crop re-encodes the region of the image as PNG and returns its offset.
func crop(data []byte, region *ocr.Region) ([]byte, image.Point, error) {
	if region == nil || region.IsEmpty() {
		return data, image.Point{}, nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, image.Point{}, fmt.Errorf("decode for region: %w", err)
	}
	rect := image.Rect(
		int(math.Round(region.X)),
		int(math.Round(region.Y)),
		int(math.Round(region.X+region.Width)),
		int(math.Round(region.Y+region.Height)),
	).Intersect(img.Bounds())
	if rect.Empty() {
		return nil, image.Point{}, errRegionOutside
	}
	sub, ok := img.(interface {
		SubImage(r image.Rectangle) image.Image
	})
	if !ok {
		return nil, image.Point{}, fmt.Errorf("image type %T cannot be cropped", img)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, sub.SubImage(rect)); err != nil {
		return nil, image.Point{}, fmt.Errorf("encode cropped image: %w", err)
	}
	return buf.Bytes(), rect.Min, nil
}

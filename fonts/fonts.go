// Package fonts resolves text-annotation font families to the bundled Go
// fonts, measures text with HarfBuzz shaping and rasterizes it onto page
// buffers.
package fonts

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"
	"sync"

	gofont "github.com/go-text/typesetting/font"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Built-in family names.
const (
	Sans       = "sans"
	SansBold   = "sans-bold"
	SansItalic = "sans-italic"
	Mono       = "mono"
)

// ErrBadSize is returned for non-positive font sizes.
var ErrBadSize = errors.New("invalid font size")

var families = map[string][]byte{
	Sans:       goregular.TTF,
	SansBold:   gobold.TTF,
	SansItalic: goitalic.TTF,
	Mono:       gomono.TTF,
}

// Normalize maps a requested family (including common CSS names) to one of
// the built-in families. Unknown names fall back to Sans.
func Normalize(family string) string {
	f := strings.ToLower(strings.TrimSpace(family))
	if _, ok := families[f]; ok {
		return f
	}
	switch {
	case strings.Contains(f, "mono"), strings.Contains(f, "courier"), strings.Contains(f, "consol"):
		return Mono
	case strings.Contains(f, "bold"):
		return SansBold
	case strings.Contains(f, "italic"), strings.Contains(f, "oblique"):
		return SansItalic
	default:
		return Sans
	}
}

// Families lists the built-in family names.
func Families() []string {
	return []string{Sans, SansBold, SansItalic, Mono}
}

type faceKey struct {
	family string
	size   float64
}

// Registry caches parsed fonts and sized faces. It is safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	parsed map[string]*opentype.Font
	shaped map[string]*gofont.Face
	faces  map[faceKey]font.Face
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		parsed: make(map[string]*opentype.Font),
		shaped: make(map[string]*gofont.Face),
		faces:  make(map[faceKey]font.Face),
	}
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry { return defaultRegistry }

// Face returns a face for family at size pixels.
func (r *Registry) Face(family string, size float64) (font.Face, error) {
	family = Normalize(family)
	if size <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrBadSize, size)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := faceKey{family, size}
	if f, ok := r.faces[key]; ok {
		return f, nil
	}
	otf, ok := r.parsed[family]
	if !ok {
		var err error
		otf, err = opentype.Parse(families[family])
		if err != nil {
			return nil, fmt.Errorf("parse font %s: %w", family, err)
		}
		r.parsed[family] = otf
	}
	face, err := opentype.NewFace(otf, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("font face %s/%v: %w", family, size, err)
	}
	r.faces[key] = face
	return face, nil
}

func (r *Registry) shapingFace(family string) (*gofont.Face, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.shaped[family]; ok {
		return f, nil
	}
	face, err := gofont.ParseTTF(bytes.NewReader(families[family]))
	if err != nil {
		return nil, err
	}
	r.shaped[family] = face
	return face, nil
}

// Measure returns the advance width of text in pixels. Shaping is used when
// possible so kerning and ligatures match the rendered result closely; the
// x/image face metrics are the fallback.
func (r *Registry) Measure(text, family string, size float64) float64 {
	if text == "" || size <= 0 {
		return 0
	}
	family = Normalize(family)
	if w, ok := r.shapeWidth(text, family, size); ok {
		return w
	}
	face, err := r.Face(family, size)
	if err != nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return fixedToFloat(font.MeasureString(face, text))
}

// Draw renders text with its top-left corner at (x, y). The baseline sits one
// ascent below y so that the box y..y+size covers the glyphs.
func (r *Registry) Draw(dst *image.RGBA, text, family string, size float64, col color.Color, x, y int) error {
	face, err := r.Face(family, size)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y) + face.Metrics().Ascent},
	}
	d.DrawString(text)
	return nil
}

// Box returns the hit box of text drawn at (x, y): x..x+width, y..y+size.
func (r *Registry) Box(text, family string, size float64, x, y int) image.Rectangle {
	w := int(math.Ceil(r.Measure(text, family, size)))
	return image.Rect(x, y, x+w, y+int(math.Ceil(size)))
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64.0
}

// Package raster encodes and decodes page rasters and provides the pixel
// operations the editing engine is built from.
//
// Every raster that crosses a package boundary is an Encoded value: a data URL
// or bare base64 string. The image family is detected from the payload prefix,
// never from the declared MIME type.
package raster

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"strings"
)

// Encoded is a string-encoded image. The empty value means "no raster".
type Encoded string

// IsEmpty reports whether e holds no raster.
func (e Encoded) IsEmpty() bool { return e == "" }

// Format identifies an encoding family.
type Format int

const (
	// PNG is the default lossless format.
	PNG Format = iota
	JPEG
)

func (f Format) String() string {
	switch f {
	case JPEG:
		return "jpeg"
	default:
		return "png"
	}
}

// MIME returns the content type used in data URL headers.
func (f Format) MIME() string {
	if f == JPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// ParseFormat maps "jpeg"/"jpg" to JPEG and anything else to PNG.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jpeg", "jpg":
		return JPEG
	default:
		return PNG
	}
}

// jpegPrefix is the base64 rendering of the JPEG SOI marker FF D8 FF.
const jpegPrefix = "/9j/"

var (
	ErrDecode = errors.New("raster decode failed")
	ErrEmpty  = errors.New("empty raster")
)

// payload strips a data URL header if present.
func payload(e Encoded) string {
	s := string(e)
	if strings.HasPrefix(s, "data:") {
		if i := strings.IndexByte(s, ','); i >= 0 {
			return s[i+1:]
		}
	}
	return s
}

// DetectFormat reports the family of e from its payload prefix.
func DetectFormat(e Encoded) Format {
	if strings.HasPrefix(payload(e), jpegPrefix) {
		return JPEG
	}
	return PNG
}

// DetectBytes reports the family of raw image bytes.
func DetectBytes(b []byte) Format {
	if len(b) >= 3 && b[0] == 0xFF && b[1] == 0xD8 && b[2] == 0xFF {
		return JPEG
	}
	return PNG
}

type encodeOptions struct {
	quality int
}

// EncodeOption tunes Encode.
type EncodeOption func(*encodeOptions)

// WithQuality sets the JPEG quality (1-100).
func WithQuality(q int) EncodeOption {
	return func(o *encodeOptions) {
		if q > 0 && q <= 100 {
			o.quality = q
		}
	}
}

// Encode renders img as a data URL in the requested format.
func Encode(img image.Image, f Format, opts ...EncodeOption) (Encoded, error) {
	data, err := EncodeBytes(img, f, opts...)
	if err != nil {
		return "", err
	}
	return FromBytes(data), nil
}

// EncodeBytes renders img as raw PNG or JPEG bytes.
func EncodeBytes(img image.Image, f Format, opts ...EncodeOption) ([]byte, error) {
	o := encodeOptions{quality: 92}
	for _, opt := range opts {
		opt(&o)
	}
	var buf bytes.Buffer
	switch f {
	case JPEG:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: o.quality}); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
	default:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// FromBytes wraps raw image bytes in a data URL, detecting the family from
// the magic number.
func FromBytes(data []byte) Encoded {
	f := DetectBytes(data)
	return Encoded("data:" + f.MIME() + ";base64," + base64.StdEncoding.EncodeToString(data))
}

// Bytes returns the raw image bytes carried by e.
func Bytes(e Encoded) ([]byte, error) {
	if e.IsEmpty() {
		return nil, ErrEmpty
	}
	p := strings.TrimSpace(payload(e))
	data, err := base64.StdEncoding.DecodeString(p)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(p, "="))
		if err != nil {
			return nil, fmt.Errorf("%w: base64: %v", ErrDecode, err)
		}
	}
	return data, nil
}

// Decode turns e into an RGBA buffer anchored at (0,0).
func Decode(e Encoded) (*image.RGBA, error) {
	return DecodeWithLimits(e, DefaultLimits())
}

// DecodeWithLimits is Decode with explicit size limits.
func DecodeWithLimits(e Encoded, lim Limits) (*image.RGBA, error) {
	data, err := Bytes(e)
	if err != nil {
		return nil, err
	}
	f := DetectFormat(e)
	var cfg image.Config
	switch f {
	case JPEG:
		cfg, err = jpeg.DecodeConfig(bytes.NewReader(data))
	default:
		cfg, err = png.DecodeConfig(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s header: %v", ErrDecode, f, err)
	}
	if err := lim.Check(cfg.Width, cfg.Height); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	var img image.Image
	switch f {
	case JPEG:
		img, err = jpeg.Decode(bytes.NewReader(data))
	default:
		img, err = png.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, f, err)
	}
	return ToRGBA(img), nil
}

// ToRGBA copies img into a fresh RGBA buffer whose bounds start at (0,0).
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// Size decodes only the header of e and returns its dimensions.
func Size(e Encoded) (int, int, error) {
	data, err := Bytes(e)
	if err != nil {
		return 0, 0, err
	}
	var cfg image.Config
	if DetectFormat(e) == JPEG {
		cfg, err = jpeg.DecodeConfig(bytes.NewReader(data))
	} else {
		cfg, err = png.DecodeConfig(bytes.NewReader(data))
	}
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return cfg.Width, cfg.Height, nil
}

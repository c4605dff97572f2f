package ocr

import (
	"fmt"
	"strconv"

	"github.com/wudi/pagekit/raster"
)

// InputOption mutates an Input built by InputFromRaster.
type InputOption func(*Input)

// WithLanguages sets language hints.
func WithLanguages(langs ...string) InputOption {
	return func(in *Input) { in.Languages = append([]string(nil), langs...) }
}

// WithRegion restricts recognition to region. An empty region means the
// whole image.
func WithRegion(region Region) InputOption {
	return func(in *Input) {
		if region.IsEmpty() {
			in.Region = nil
			return
		}
		in.Region = &region
	}
}

// WithDPI sets the effective resolution.
func WithDPI(dpi int) InputOption {
	return func(in *Input) { in.DPI = dpi }
}

// WithVar sets one engine variable.
func WithVar(name, value string) InputOption {
	return func(in *Input) {
		if in.Vars == nil {
			in.Vars = make(map[string]string)
		}
		in.Vars[name] = value
	}
}

// WithPageSegMode sets tesseract's page segmentation mode.
func WithPageSegMode(mode int) InputOption {
	return WithVar("tessedit_pageseg_mode", strconv.Itoa(mode))
}

// WithCharWhitelist limits recognition to chars.
func WithCharWhitelist(chars string) InputOption {
	return WithVar("tessedit_char_whitelist", chars)
}

// InputFromRaster builds the input for one page raster. The image is sent
// in its own encoding; the ID is derived from the page index.
func InputFromRaster(page int, enc raster.Encoded, opts ...InputOption) (Input, error) {
	data, err := raster.Bytes(enc)
	if err != nil {
		return Input{}, fmt.Errorf("page %d: %w", page, err)
	}
	in := Input{
		ID:        fmt.Sprintf("page-%d", page),
		PageIndex: page,
		Image:     data,
		Format:    raster.DetectBytes(data),
	}
	for _, opt := range opts {
		opt(&in)
	}
	return in, nil
}

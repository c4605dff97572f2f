package raster

import "fmt"

// Limits bounds decoded raster sizes so a corrupted or hostile payload cannot
// force huge allocations.
type Limits struct {
	// Maximum width or height in pixels. Default: 32768.
	MaxDimension int
	// Maximum pixel count. Default: 64M (an RGBA buffer under 256 MB).
	MaxPixels int64
}

// DefaultLimits returns the stock decode limits.
func DefaultLimits() Limits {
	return Limits{
		MaxDimension: 32768,
		MaxPixels:    64 * 1024 * 1024,
	}
}

// Check validates a width/height pair against the limits.
func (l Limits) Check(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("image bounds invalid (%d x %d)", width, height)
	}
	if l.MaxDimension > 0 && (width > l.MaxDimension || height > l.MaxDimension) {
		return fmt.Errorf("image dimension exceeds limit (%d x %d)", width, height)
	}
	pixels := int64(width) * int64(height)
	if l.MaxPixels > 0 && pixels > l.MaxPixels {
		return fmt.Errorf("image pixel count %d exceeds limit %d", pixels, l.MaxPixels)
	}
	return nil
}

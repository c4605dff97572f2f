// Package ocr defines the small engine contract used to recover word
// geometry from rasterized pages. Rasterizers turn the recognized word boxes
// into the text spans that AI-mode clicks are hit-tested against.
package ocr

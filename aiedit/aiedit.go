// Package aiedit defines the natural-language image edit service used for
// whole-page AI edits and an OpenAI images backend for it.
package aiedit

import (
	"context"
	"errors"
	"strings"

	"github.com/wudi/pagekit/raster"
)

var (
	// ErrService wraps every failure reported by or on the way to the
	// backend. Callers surface it; nothing is retried.
	ErrService = errors.New("ai edit service failed")
	// ErrEmptyResult is returned when the backend answers without an image.
	ErrEmptyResult = errors.New("ai edit service returned no image")
	// ErrEmptyPrompt rejects blank prompts before any network call.
	ErrEmptyPrompt = errors.New("prompt is empty")
)

// Service edits a page raster according to a prompt. current is the page's
// displayed raster (the edit when one exists, otherwise the original).
type Service interface {
	Edit(ctx context.Context, current raster.Encoded, prompt string) (raster.Encoded, error)
}

// Func adapts a function to Service.
type Func func(ctx context.Context, current raster.Encoded, prompt string) (raster.Encoded, error)

func (f Func) Edit(ctx context.Context, current raster.Encoded, prompt string) (raster.Encoded, error) {
	return f(ctx, current, prompt)
}

// ValidatePrompt trims prompt and rejects it when empty.
func ValidatePrompt(prompt string) (string, error) {
	p := strings.TrimSpace(prompt)
	if p == "" {
		return "", ErrEmptyPrompt
	}
	return p, nil
}

package editor

import (
	"fmt"

	"github.com/wudi/pagekit/aiedit"
	"github.com/wudi/pagekit/config"
	"github.com/wudi/pagekit/fonts"
	"github.com/wudi/pagekit/observability"
	"github.com/wudi/pagekit/paint"
	"github.com/wudi/pagekit/raster"
	"github.com/wudi/pagekit/recovery"
	"github.com/wudi/pagekit/scripting"
	"github.com/wudi/pagekit/session"
)

// Option configures an Editor.
type Option func(*Editor)

// WithConfig applies the canvas, text, raster and history sections of cfg.
// Invalid colours keep the built-in defaults.
func WithConfig(cfg config.Config) Option {
	return func(e *Editor) {
		cfg.Validate()
		if c, err := raster.ParseHexColor(cfg.Canvas.Background); err == nil {
			e.background = c
		}
		if c, err := raster.ParseHexColor(cfg.Canvas.StrokeColor); err == nil {
			e.strokeColor = c
		}
		e.strokeWidth = cfg.Canvas.StrokeWidth
		e.eraserWidth = cfg.Canvas.EraserWidth
		e.textStyle.FontFamily = fonts.Normalize(cfg.Text.FontFamily)
		e.textStyle.FontSize = cfg.Text.FontSize
		if c, err := raster.ParseHexColor(cfg.Text.Color); err == nil {
			e.textStyle.Color = c
		}
		e.format = raster.ParseFormat(cfg.Raster.Format)
		e.quality = cfg.Raster.JPEGQuality
		e.depth = cfg.History.Depth
	}
}

// WithAIService sets the generative edit backend.
func WithAIService(s aiedit.Service) Option {
	return func(e *Editor) { e.ai = s }
}

// WithAutosaver persists every committed change through a.
func WithAutosaver(a *session.Autosaver) Option {
	return func(e *Editor) { e.autosaver = a }
}

// WithLogger sets the logger.
func WithLogger(l observability.Logger) Option {
	return func(e *Editor) { e.logger = observability.OrNop(l) }
}

// WithStrategy sets how batch operations react to a failing page. fn is
// called once per batch. The default skips failed pages and continues.
func WithStrategy(fn func() recovery.Strategy) Option {
	return func(e *Editor) {
		if fn != nil {
			e.strategy = fn
		}
	}
}

// WithFonts sets the font registry used for text objects and page numbers.
func WithFonts(r *fonts.Registry) Option {
	return func(e *Editor) { e.fonts = r }
}

// WithLabelEngine sets the script engine used for page number labels.
func WithLabelEngine(g *scripting.GojaEngine) Option {
	return func(e *Editor) { e.labels = g }
}

// SetStrokeColor sets the pen and shape colour.
func (e *Editor) SetStrokeColor(c string) error {
	col, err := raster.ParseHexColor(c)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.strokeColor = col
	e.mu.Unlock()
	return nil
}

// SetStrokeWidth sets the pen and shape width in pixels.
func (e *Editor) SetStrokeWidth(w int) error {
	if w <= 0 {
		return fmt.Errorf("invalid stroke width %d", w)
	}
	e.mu.Lock()
	e.strokeWidth = w
	e.mu.Unlock()
	return nil
}

// SetEraserWidth sets the eraser width in pixels.
func (e *Editor) SetEraserWidth(w int) error {
	if w <= 0 {
		return fmt.Errorf("invalid eraser width %d", w)
	}
	e.mu.Lock()
	e.eraserWidth = w
	e.mu.Unlock()
	return nil
}

// SetShape picks the shape drawn by ToolShape.
func (e *Editor) SetShape(s paint.Shape) {
	e.mu.Lock()
	e.shape = s
	e.mu.Unlock()
}

// SetBackground sets the fill used by the eraser, cut and delete.
func (e *Editor) SetBackground(c string) error {
	col, err := raster.ParseHexColor(c)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.background = col
	e.mu.Unlock()
	return nil
}

// Background returns the current fill colour.
func (e *Editor) Background() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return raster.HexColor(e.background)
}

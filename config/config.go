// Package config loads pagekit settings from TOML.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds every tunable of the editor. Gesture thresholds are fixed
// constants in the selection and textlayer packages and are not listed here.
type Config struct {
	Log         LogConfig         `toml:"log"`
	History     HistoryConfig     `toml:"history"`
	Canvas      CanvasConfig      `toml:"canvas"`
	Text        TextConfig        `toml:"text"`
	Raster      RasterConfig      `toml:"raster"`
	Session     SessionConfig     `toml:"session"`
	AI          AIConfig          `toml:"ai"`
	Assemble    AssembleConfig    `toml:"assemble"`
	OCR         OCRConfig         `toml:"ocr"`
	PageNumbers PageNumbersConfig `toml:"page_numbers"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type HistoryConfig struct {
	Depth int `toml:"depth"`
}

type CanvasConfig struct {
	Background  string `toml:"background"`
	StrokeColor string `toml:"stroke_color"`
	StrokeWidth int    `toml:"stroke_width"`
	EraserWidth int    `toml:"eraser_width"`
}

type TextConfig struct {
	FontFamily string  `toml:"font_family"`
	FontSize   float64 `toml:"font_size"`
	Color      string  `toml:"color"`
}

type RasterConfig struct {
	// Format is "png" or "jpeg".
	Format      string `toml:"format"`
	JPEGQuality int    `toml:"jpeg_quality"`
}

type SessionConfig struct {
	Path     string   `toml:"path"`
	Debounce Duration `toml:"debounce"`
}

type AIConfig struct {
	Model     string `toml:"model"`
	APIKeyEnv string `toml:"api_key_env"`
	Size      string `toml:"size"`
}

type AssembleConfig struct {
	DPI    float64 `toml:"dpi"`
	Verify bool    `toml:"verify"`
}

type OCRConfig struct {
	Enabled   bool     `toml:"enabled"`
	Languages []string `toml:"languages"`
}

type PageNumbersConfig struct {
	// Script is a JavaScript expression evaluated with `page` and `total` bound.
	Script   string  `toml:"script"`
	Position string  `toml:"position"`
	FontSize float64 `toml:"font_size"`
	Margin   int     `toml:"margin"`
}

// Duration decodes TOML strings such as "1s" or "750ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns a Config with the stock values.
func Default() Config {
	return Config{
		Log:     LogConfig{Level: "info"},
		History: HistoryConfig{Depth: DefaultHistoryDepth},
		Canvas: CanvasConfig{
			Background:  "#FFFFFF",
			StrokeColor: "#000000",
			StrokeWidth: 3,
			EraserWidth: 20,
		},
		Text: TextConfig{
			FontFamily: "sans",
			FontSize:   24,
			Color:      "#000000",
		},
		Raster:  RasterConfig{Format: "png", JPEGQuality: 92},
		Session: SessionConfig{Path: "", Debounce: Duration{DefaultDebounce}},
		AI: AIConfig{
			Model:     "gpt-image-1",
			APIKeyEnv: "OPENAI_API_KEY",
			Size:      "auto",
		},
		Assemble: AssembleConfig{DPI: 144, Verify: false},
		OCR:      OCRConfig{Enabled: false, Languages: []string{"eng"}},
		PageNumbers: PageNumbersConfig{
			Script:   `"Page " + page + " of " + total`,
			Position: "bottom-center",
			FontSize: 18,
			Margin:   24,
		},
	}
}

const (
	DefaultHistoryDepth = 20
	DefaultDebounce     = time.Second
)

// Load reads path over the defaults. A missing file is not an error. Keys the
// decoder did not recognise are returned in undecoded so callers can warn.
func Load(path string) (cfg Config, undecoded []string, err error) {
	cfg = Default()
	if path == "" {
		return cfg, nil, nil
	}
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		return cfg, nil, nil
	} else if statErr != nil {
		return cfg, nil, fmt.Errorf("stat config %s: %w", path, statErr)
	}
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Default(), nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	for _, k := range md.Undecoded() {
		undecoded = append(undecoded, k.String())
	}
	cfg.Validate()
	return cfg, undecoded, nil
}

// Decode parses TOML text over the defaults.
func Decode(data string) (Config, error) {
	cfg := Default()
	if _, err := toml.Decode(data, &cfg); err != nil {
		return Default(), fmt.Errorf("parse config: %w", err)
	}
	cfg.Validate()
	return cfg, nil
}

// Validate resets out-of-range values to their defaults.
func (c *Config) Validate() {
	d := Default()
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.History.Depth <= 0 {
		c.History.Depth = d.History.Depth
	}
	if c.Canvas.Background == "" {
		c.Canvas.Background = d.Canvas.Background
	}
	if c.Canvas.StrokeColor == "" {
		c.Canvas.StrokeColor = d.Canvas.StrokeColor
	}
	if c.Canvas.StrokeWidth <= 0 {
		c.Canvas.StrokeWidth = d.Canvas.StrokeWidth
	}
	if c.Canvas.EraserWidth <= 0 {
		c.Canvas.EraserWidth = d.Canvas.EraserWidth
	}
	if c.Text.FontFamily == "" {
		c.Text.FontFamily = d.Text.FontFamily
	}
	if c.Text.FontSize <= 0 {
		c.Text.FontSize = d.Text.FontSize
	}
	if c.Text.Color == "" {
		c.Text.Color = d.Text.Color
	}
	if c.Raster.Format != "png" && c.Raster.Format != "jpeg" {
		c.Raster.Format = d.Raster.Format
	}
	if c.Raster.JPEGQuality <= 0 || c.Raster.JPEGQuality > 100 {
		c.Raster.JPEGQuality = d.Raster.JPEGQuality
	}
	if c.Session.Debounce.Duration <= 0 {
		c.Session.Debounce = d.Session.Debounce
	}
	if c.AI.Model == "" {
		c.AI.Model = d.AI.Model
	}
	if c.AI.APIKeyEnv == "" {
		c.AI.APIKeyEnv = d.AI.APIKeyEnv
	}
	if c.Assemble.DPI <= 0 {
		c.Assemble.DPI = d.Assemble.DPI
	}
	if len(c.OCR.Languages) == 0 {
		c.OCR.Languages = d.OCR.Languages
	}
	if c.PageNumbers.Script == "" {
		c.PageNumbers.Script = d.PageNumbers.Script
	}
	if c.PageNumbers.Position == "" {
		c.PageNumbers.Position = d.PageNumbers.Position
	}
	if c.PageNumbers.FontSize <= 0 {
		c.PageNumbers.FontSize = d.PageNumbers.FontSize
	}
	if c.PageNumbers.Margin < 0 {
		c.PageNumbers.Margin = d.PageNumbers.Margin
	}
}

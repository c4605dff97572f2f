package aiedit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/wudi/pagekit/observability"
	"github.com/wudi/pagekit/raster"
)

// Config configures the OpenAI backend.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Size    string
	Timeout time.Duration
	Logger  observability.Logger
}

// DefaultModel is the image model used when Config.Model is empty.
const DefaultModel = "gpt-image-1"

// OpenAIService sends edits to the OpenAI images edit endpoint.
type OpenAIService struct {
	client openai.Client
	model  string
	size   string
	logger observability.Logger
}

// NewOpenAI creates the backend. An empty APIKey falls back to the
// OPENAI_API_KEY environment variable.
func NewOpenAI(cfg Config) (*OpenAIService, error) {
	key := cfg.APIKey
	if key == "" {
		key = os.Getenv("OPENAI_API_KEY")
	}
	if key == "" {
		return nil, fmt.Errorf("%w: no API key", ErrService)
	}
	opts := []option.RequestOption{
		option.WithAPIKey(key),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &OpenAIService{
		client: openai.NewClient(opts...),
		model:  model,
		size:   cfg.Size,
		logger: observability.OrNop(cfg.Logger),
	}, nil
}

func (s *OpenAIService) Edit(ctx context.Context, current raster.Encoded, prompt string) (raster.Encoded, error) {
	prompt, err := ValidatePrompt(prompt)
	if err != nil {
		return "", err
	}
	data, err := raster.Bytes(current)
	if err != nil {
		return "", err
	}
	format := raster.DetectBytes(data)
	params := openai.ImageEditParams{
		Image: openai.ImageEditParamsImageUnion{
			OfFile: openai.File(bytes.NewReader(data), "page."+format.String(), format.MIME()),
		},
		Prompt: prompt,
		Model:  openai.ImageModel(s.model),
	}
	if s.size != "" {
		params.Size = openai.ImageEditParamsSize(s.size)
	}

	start := time.Now()
	resp, err := s.client.Images.Edit(ctx, params)
	elapsed := time.Since(start)
	if err != nil {
		fields := []observability.Field{
			observability.String("model", s.model),
			observability.Duration(observability.MetricAIEditTime, elapsed),
			observability.Error("error", err),
		}
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			fields = append(fields, observability.Int("status", apiErr.StatusCode))
		}
		s.logger.Warn("ai edit request failed", fields...)
		return "", fmt.Errorf("%w: %v", ErrService, err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return "", ErrEmptyResult
	}
	out := raster.Encoded(resp.Data[0].B64JSON)
	out = raster.Encoded("data:" + raster.DetectFormat(out).MIME() + ";base64," + string(out))
	s.logger.Info("ai edit completed",
		observability.String("model", s.model),
		observability.Duration(observability.MetricAIEditTime, elapsed))
	return out, nil
}

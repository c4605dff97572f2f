package ocr

import (
	"context"
	"fmt"
)

var defaultEngine Engine = noopEngine{}

// DefaultEngine returns the registered default engine. Without a registered
// backend it recognizes nothing.
func DefaultEngine() Engine {
	return defaultEngine
}

// SetDefaultEngine registers engine as the default.
func SetDefaultEngine(engine Engine) {
	if engine == nil {
		engine = noopEngine{}
	}
	defaultEngine = engine
}

// RecognizeAll runs engine over inputs, in one batch when the engine
// supports it and sequentially otherwise. Cancellation is checked before
// each input.
func RecognizeAll(ctx context.Context, engine Engine, inputs []Input) ([]Result, error) {
	if b, ok := engine.(BatchEngine); ok {
		return b.RecognizeBatch(ctx, inputs)
	}
	results := make([]Result, 0, len(inputs))
	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := engine.Recognize(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("recognize %s: %w", in.ID, err)
		}
		results = append(results, res)
	}
	return results, nil
}

type noopEngine struct{}

func (noopEngine) Name() string { return "noop" }

func (noopEngine) Recognize(ctx context.Context, input Input) (Result, error) {
	return Result{ID: input.ID}, nil
}

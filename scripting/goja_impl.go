package scripting

import (
	"context"
	"fmt"
	"strings"

	"github.com/dop251/goja"
)

// GojaEngine is an Engine backed by a goja runtime. It is not safe for
// concurrent use.
type GojaEngine struct {
	vm *goja.Runtime
}

// NewEngine creates a runtime with the label helpers installed.
func NewEngine() *GojaEngine {
	vm := goja.New()
	e := &GojaEngine{vm: vm}
	vm.Set("roman", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(Roman(int(call.Argument(0).ToInteger())))
	})
	vm.Set("pad", func(call goja.FunctionCall) goja.Value {
		s := call.Argument(0).String()
		width := int(call.Argument(1).ToInteger())
		if n := width - len(s); n > 0 {
			s = strings.Repeat("0", n) + s
		}
		return vm.ToValue(s)
	})
	return e
}

func (e *GojaEngine) Set(name string, value interface{}) error {
	return e.vm.Set(name, value)
}

func (e *GojaEngine) Execute(ctx context.Context, script string) (interface{}, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	defer close(done)
	defer e.vm.ClearInterrupt()

	go func() {
		select {
		case <-ctx.Done():
			e.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	val, err := e.vm.RunString(script)
	if err != nil {
		if interruptedErr, ok := err.(*goja.InterruptedError); ok {
			if cause := interruptedErr.Unwrap(); cause != nil {
				return nil, cause
			}
			return nil, context.Canceled
		}
		return nil, err
	}
	return val.Export(), nil
}

// FormatPageLabel evaluates script with the globals page (1-based) and
// total bound, and returns the resulting label.
func (e *GojaEngine) FormatPageLabel(ctx context.Context, script string, page, total int) (string, error) {
	if err := e.Set("page", page); err != nil {
		return "", err
	}
	if err := e.Set("total", total); err != nil {
		return "", err
	}
	v, err := e.Execute(ctx, script)
	if err != nil {
		return "", fmt.Errorf("page label: %w", err)
	}
	switch s := v.(type) {
	case string:
		if s == "" {
			return "", ErrBadLabel
		}
		return s, nil
	case int64, float64:
		return fmt.Sprint(s), nil
	}
	return "", fmt.Errorf("%w: got %T", ErrBadLabel, v)
}

var romanDigits = []struct {
	v int
	s string
}{
	{1000, "m"}, {900, "cm"}, {500, "d"}, {400, "cd"},
	{100, "c"}, {90, "xc"}, {50, "l"}, {40, "xl"},
	{10, "x"}, {9, "ix"}, {5, "v"}, {4, "iv"}, {1, "i"},
}

// Roman renders n as a lower-case roman numeral. Values outside 1..3999 are
// rendered in decimal.
func Roman(n int) string {
	if n <= 0 || n >= 4000 {
		return fmt.Sprint(n)
	}
	var b strings.Builder
	for _, d := range romanDigits {
		for n >= d.v {
			b.WriteString(d.s)
			n -= d.v
		}
	}
	return b.String()
}
